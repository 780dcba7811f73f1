package transform_test

import (
	"reflect"
	"testing"

	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
	"github.com/dshills/ssaopt/internal/pipeline"
	"github.com/dshills/ssaopt/internal/transform"
)

func runUnroll(mod *ir.Module) {
	mgr := pipeline.New(mod, nil)
	mgr.Run([]reflect.Type{pass.ID[*transform.LoopUnroll]()}, false)
}

// buildCountedSumLoop builds a 3-iteration "for i := 0; i < 3; i++ { sum +=
// i+1 }" loop (sum ends at 1+2+3 = 6), matching spec.md §8's fixed-count
// unroll scenario.
func buildCountedSumLoop() (*ir.Module, *ir.Function, *ir.BasicBlock) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), nil, nil)

	entry := fn.NewBlock("entry")
	preheader := fn.NewBlock("preheader")
	header := fn.NewBlock("header")
	body := fn.NewBlock("body")
	exit := fn.NewBlock("exit")

	entry.NewBr(preheader)
	preheader.NewBr(header)

	i := header.NewPhi(m.I32())
	sum := header.NewPhi(m.I32())
	i.AddIncoming(m.ConstInt(32, 0), preheader)
	sum.AddIncoming(m.ConstInt(32, 0), preheader)
	cond := header.NewICmp(ir.PredLT, i, m.ConstInt(32, 3))
	header.NewCondBr(cond, body, exit)

	inc := body.NewAdd(i, m.ConstInt(32, 1))
	sumNext := body.NewAdd(sum, inc)
	iNext := body.NewAdd(i, m.ConstInt(32, 1))
	body.NewBr(header)
	i.AddIncoming(iNext, body)
	sum.AddIncoming(sumNext, body)

	exitSum := exit.NewPhi(m.I32())
	exitSum.AddIncoming(sum, header)
	exit.NewRet(exitSum)

	return m, fn, exit
}

func TestLoopUnrollFlattensFixedCountLoop(t *testing.T) {
	m, fn, exit := buildCountedSumLoop()
	runUnroll(m)

	for _, bb := range fn.Blocks {
		if bb.Name() == "header" || bb.Name() == "body" {
			t.Errorf("want header/body erased after full unroll, still have %s", bb.Name())
		}
	}
	if len(exit.Phis()) != 0 {
		t.Error("want exit's phi resolved to a single straight-line value, no phi left")
	}
}

// TestLoopUnrollLeavesNonConstantBoundAlone confirms a loop whose bound
// isn't a compile-time constant is left untouched.
func TestLoopUnrollLeavesNonConstantBoundAlone(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), []ir.Type{m.I32()}, []string{"n"})
	n := fn.Params[0]

	entry := fn.NewBlock("entry")
	preheader := fn.NewBlock("preheader")
	header := fn.NewBlock("header")
	body := fn.NewBlock("body")
	exit := fn.NewBlock("exit")

	entry.NewBr(preheader)
	preheader.NewBr(header)

	i := header.NewPhi(m.I32())
	i.AddIncoming(m.ConstInt(32, 0), preheader)
	cond := header.NewICmp(ir.PredLT, i, n)
	header.NewCondBr(cond, body, exit)

	iNext := body.NewAdd(i, m.ConstInt(32, 1))
	body.NewBr(header)
	i.AddIncoming(iNext, body)

	exit.NewRet(m.ConstInt(32, 0))

	runUnroll(m)

	found := false
	for _, bb := range fn.Blocks {
		if bb.Name() == "header" {
			found = true
		}
	}
	if !found {
		t.Error("want the non-constant-bound loop left in place, header erased unexpectedly")
	}
}
