package transform_test

import (
	"reflect"
	"testing"

	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
	"github.com/dshills/ssaopt/internal/pipeline"
	"github.com/dshills/ssaopt/internal/transform"
)

func runLICM(mod *ir.Module) {
	mgr := pipeline.New(mod, nil)
	mgr.Run([]reflect.Type{pass.ID[*transform.LICM]()}, false)
}

// buildInvariantLoop builds preheader -> header -> body -> header (latch),
// header -> exit, where body computes an invariant a+b (both loop params,
// never redefined in the loop) alongside a loop-varying use of the
// induction phi. LICM should hoist the invariant add into the preheader.
func buildInvariantLoop() (*ir.Module, *ir.Function, *ir.BasicBlock) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), []ir.Type{m.I32(), m.I32()}, []string{"a", "b"})
	a, b := fn.Params[0], fn.Params[1]

	entry := fn.NewBlock("entry")
	preheader := fn.NewBlock("preheader")
	header := fn.NewBlock("header")
	body := fn.NewBlock("body")
	exit := fn.NewBlock("exit")

	entry.NewBr(preheader)
	preheader.NewBr(header)

	iv := header.NewPhi(m.I32())
	iv.AddIncoming(m.ConstInt(32, 0), preheader)
	cond := header.NewICmp(ir.PredLT, iv, m.ConstInt(32, 10))
	header.NewCondBr(cond, body, exit)

	invariant := body.NewAdd(a, b)
	next := body.NewAdd(iv, invariant)
	body.NewBr(header)
	iv.AddIncoming(next, body)

	exit.NewRet(iv)

	return m, fn, body
}

func TestLICMHoistsInvariantComputation(t *testing.T) {
	m, fn, body := buildInvariantLoop()
	runLICM(m)

	for _, bb := range fn.Blocks {
		if bb.Name() == "preheader" {
			found := false
			for _, in := range bb.Insts {
				if in.Op == ir.OpAdd {
					found = true
				}
			}
			if !found {
				t.Error("want the invariant a+b hoisted into the preheader")
			}
		}
	}

	a, b := fn.Params[0], fn.Params[1]
	for _, in := range body.Insts {
		if in.Op == ir.OpAdd && in.Operands[0] == a && in.Operands[1] == b {
			t.Error("want the invariant a+b no longer recomputed in the loop body")
		}
	}
}
