// Package irdump renders an internal/ir.Module back to text, the way
// dshills-alas/internal/codegen/llvm.go's generated module can be printed
// with llvm.Module.String(): a plain, human-readable listing for -dump=text,
// and (in llvm.go) an LLVM-flavored rendering built on github.com/llir/llvm
// for -dump=llvm.
package irdump

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/ssaopt/internal/ir"
)

// namer assigns every unnamed instruction and block a stable %N/bbN label
// the first time it's printed, the way an unnamed LLVM value prints as
// "%7": numbering is per-function and resets at each Text call.
type namer struct {
	next int
	ids  map[ir.Value]string
}

func newNamer() *namer { return &namer{ids: make(map[ir.Value]string)} }

func (n *namer) of(v ir.Value) string {
	if v == nil {
		return "<nil>"
	}
	if v.Name() != "" {
		return "%" + v.Name()
	}
	if id, ok := n.ids[v]; ok {
		return id
	}
	id := fmt.Sprintf("%%%d", n.next)
	n.next++
	n.ids[v] = id
	return id
}

// Text writes a plain-text listing of mod to w: one line per global, then
// one function at a time, one basic block at a time, one instruction per
// line, in the order CFGSimplify and friends leave them.
func Text(w io.Writer, mod *ir.Module) error {
	bw := &bufWriter{w: w}
	for _, g := range mod.Globals {
		bw.printf("global %s %s = %s\n", g.ElemType, g.Name(), g.Init)
	}
	if len(mod.Globals) > 0 {
		bw.printf("\n")
	}
	for i, fn := range mod.Functions {
		if i > 0 {
			bw.printf("\n")
		}
		writeFunction(bw, fn)
	}
	return bw.err
}

func writeFunction(bw *bufWriter, fn *ir.Function) {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		name := p.Name()
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		params[i] = fmt.Sprintf("%s %%%s", p.Type(), name)
	}
	sig := fmt.Sprintf("(%s) %s", strings.Join(params, ", "), fn.RetType)

	if fn.IsExternal() {
		bw.printf("declare %s %s\n", fn.NameStr, sig)
		return
	}

	bw.printf("define %s %s {\n", fn.NameStr, sig)
	n := newNamer()
	for _, bb := range fn.Blocks {
		bw.printf("%s:\n", bb.Name())
		for _, in := range bb.Insts {
			bw.printf("  %s\n", instText(n, in))
		}
	}
	bw.printf("}\n")
}

func instText(n *namer, in *ir.Instruction) string {
	lhs := ""
	if _, void := in.Type().(*ir.VoidType); !void && in.Op != ir.OpStore && in.Op != ir.OpBr {
		lhs = n.of(in) + " = "
	}

	switch in.Op {
	case ir.OpRet:
		if len(in.Operands) == 0 {
			return "ret void"
		}
		return fmt.Sprintf("ret %s %s", in.Operands[0].Type(), n.of(in.Operands[0]))

	case ir.OpBr:
		if !in.IsConditional() {
			return fmt.Sprintf("br label %s", n.of(in.Operands[0]))
		}
		return fmt.Sprintf("br i1 %s, label %s, label %s",
			n.of(in.Operands[0]), n.of(in.Operands[1]), n.of(in.Operands[2]))

	case ir.OpAlloca:
		return fmt.Sprintf("%salloca %s", lhs, in.ElemType)

	case ir.OpLoad:
		return fmt.Sprintf("%sload %s, %s %s", lhs, in.Type(), in.Operands[0].Type(), n.of(in.Operands[0]))

	case ir.OpStore:
		return fmt.Sprintf("store %s %s, %s %s",
			in.Operands[0].Type(), n.of(in.Operands[0]), in.Operands[1].Type(), n.of(in.Operands[1]))

	case ir.OpGEP:
		idx := make([]string, 0, len(in.Operands)-1)
		for _, o := range in.Operands[1:] {
			idx = append(idx, n.of(o))
		}
		return fmt.Sprintf("%sgetelementptr %s, %s %s, %s", lhs, in.ElemType,
			in.Operands[0].Type(), n.of(in.Operands[0]), strings.Join(idx, ", "))

	case ir.OpICmp, ir.OpFCmp:
		return fmt.Sprintf("%s%s %s %s %s, %s", lhs, in.Op, in.Pred,
			in.Operands[0].Type(), n.of(in.Operands[0]), n.of(in.Operands[1]))

	case ir.OpCall:
		args := make([]string, 0, len(in.Args()))
		for _, a := range in.Args() {
			args = append(args, fmt.Sprintf("%s %s", a.Type(), n.of(a)))
		}
		return fmt.Sprintf("%scall %s %s(%s)", lhs, in.Type(), in.CalleeFunc().Name(), strings.Join(args, ", "))

	case ir.OpPhi:
		pairs := make([]string, len(in.Operands))
		for i, o := range in.Operands {
			pairs[i] = fmt.Sprintf("[ %s, %s ]", n.of(o), n.of(in.Incoming[i]))
		}
		return fmt.Sprintf("%sphi %s %s", lhs, in.Type(), strings.Join(pairs, ", "))

	case ir.OpZExt, ir.OpSExt, ir.OpTrunc, ir.OpSIToFP, ir.OpFPToSI, ir.OpPtrToInt, ir.OpIntToPtr:
		return fmt.Sprintf("%s%s %s %s to %s", lhs, in.Op, in.Operands[0].Type(), n.of(in.Operands[0]), in.Type())

	default:
		ops := make([]string, len(in.Operands))
		for i, o := range in.Operands {
			ops[i] = n.of(o)
		}
		return fmt.Sprintf("%s%s %s %s", lhs, in.Op, in.Type(), strings.Join(ops, ", "))
	}
}

// bufWriter collapses every printf's error into one sticky first error, so
// Text's call sites don't need to check after every line.
type bufWriter struct {
	w   io.Writer
	err error
}

func (b *bufWriter) printf(format string, args ...any) {
	if b.err != nil {
		return
	}
	_, b.err = fmt.Fprintf(b.w, format, args...)
}
