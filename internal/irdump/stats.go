package irdump

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/dshills/ssaopt/internal/ir"
)

// Stats is a summary of a module's size, printed after a pipeline run so a
// caller can see at a glance how much inlining/unrolling grew (or DCE
// shrank) the module.
type Stats struct {
	Functions    int
	Globals      int
	Blocks       int
	Instructions int
}

// Collect walks mod and totals up its size.
func Collect(mod *ir.Module) Stats {
	s := Stats{Globals: len(mod.Globals)}
	for _, fn := range mod.Functions {
		if fn.IsExternal() {
			continue
		}
		s.Functions++
		s.Blocks += len(fn.Blocks)
		for _, bb := range fn.Blocks {
			s.Instructions += len(bb.Insts)
		}
	}
	return s
}

// String renders the summary the way a build tool reports a binary's size:
// comma-grouped counts, not raw digits.
func (s Stats) String() string {
	return fmt.Sprintf("%s functions, %s globals, %s blocks, %s instructions",
		humanize.Comma(int64(s.Functions)), humanize.Comma(int64(s.Globals)),
		humanize.Comma(int64(s.Blocks)), humanize.Comma(int64(s.Instructions)))
}
