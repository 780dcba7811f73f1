// Command ssaopt lowers an ALaS JSON module to the SSA-form IR in
// internal/ir, runs the optimizing pipeline over it, and dumps the result
// as text or LLVM IR — the same read-validate-generate-write shape as
// dshills-alas's alas-compile, with the LLVM backend swapped out for the
// pass pipeline this module builds.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dshills/ssaopt/internal/ast"
	"github.com/dshills/ssaopt/internal/irbuild"
	"github.com/dshills/ssaopt/internal/irdump"
	"github.com/dshills/ssaopt/internal/pass"
	"github.com/dshills/ssaopt/internal/pipeline"
	"github.com/dshills/ssaopt/internal/validator"
)

func main() {
	var (
		input    string
		output   string
		optLevel int
		passList string
		dumpFmt  string
		trace    bool
	)
	flag.StringVar(&input, "file", "", "ALaS JSON file to compile (reads from stdin if not provided)")
	flag.StringVar(&output, "o", "", "output file (default: stdout)")
	flag.IntVar(&optLevel, "O", 1, "optimization level 0-3 (0 runs mem2reg+dead-code only)")
	flag.StringVar(&passList, "passes", "", "comma-separated pass names, overriding the default -O pipeline")
	flag.StringVar(&dumpFmt, "dump", "text", "output format: text or llvm")
	flag.BoolVar(&trace, "trace", false, "print one line per pass invocation to stderr")
	flag.Parse()

	if err := run(input, output, optLevel, passList, dumpFmt, trace); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(input, output string, optLevel int, passList, dumpFmt string, traceOn bool) error {
	data, err := readInput(input)
	if err != nil {
		return errors.Wrap(err, "reading input")
	}
	if err := validator.ValidateJSON(data); err != nil {
		return errors.Wrap(err, "validating module")
	}
	var astMod ast.Module
	if err := json.Unmarshal(data, &astMod); err != nil {
		return errors.Wrap(err, "parsing module")
	}

	mod, err := irbuild.New().Build(&astMod)
	if err != nil {
		return errors.Wrap(err, "lowering to IR")
	}

	runID := uuid.New().String()[:8]
	tracer := pass.Tracer(func(string, ...any) {})
	if traceOn {
		tracer = newColorTracer(runID)
	}

	mgr := pipeline.New(mod, tracer)
	if passList != "" {
		pipeline.RunCustom(mgr, strings.Split(passList, ","))
	} else {
		pipeline.Run(mgr, optLevel > 0)
	}

	if traceOn {
		color.New(color.FgCyan).Fprintf(os.Stderr, "[%s] stats: %s\n", runID, irdump.Collect(mod))
	}

	var out string
	switch dumpFmt {
	case "text":
		var sb strings.Builder
		if err := irdump.Text(&sb, mod); err != nil {
			return errors.Wrap(err, "rendering text dump")
		}
		out = sb.String()
	case "llvm":
		out, err = irdump.LLVM(mod)
		if err != nil {
			return errors.Wrap(err, "rendering LLVM dump")
		}
	default:
		return errors.Errorf("unsupported dump format %q", dumpFmt)
	}

	if output == "" {
		_, err = fmt.Print(out)
	} else {
		err = os.WriteFile(output, []byte(out), 0600)
	}
	return errors.Wrap(err, "writing output")
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// newColorTracer renders each pass invocation the way a dev build prints a
// compiler's -ftime-report: the run's correlation id first, then the pass
// line in yellow, invalidation lines in red.
func newColorTracer(runID string) pass.Tracer {
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	return func(format string, args ...any) {
		line := fmt.Sprintf(format, args...)
		c := yellow
		if strings.Contains(line, "invalidates") {
			c = red
		}
		c.Fprintf(os.Stderr, "[%s] %s\n", runID, line)
	}
}
