package transform_test

import (
	"reflect"
	"testing"

	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
	"github.com/dshills/ssaopt/internal/pipeline"
	"github.com/dshills/ssaopt/internal/transform"
)

func runRmUnreachBB(mod *ir.Module) {
	mgr := pipeline.New(mod, nil)
	mgr.Run([]reflect.Type{pass.ID[*transform.RmUnreachBB]()}, false)
}

// TestRmUnreachBBRemovesDeadBlockAndPhiEntry covers an unconditional branch
// past an unreachable block that still feeds a phi in the reachable
// successor: the dead block must go, and so must its now-dangling phi
// entry.
func TestRmUnreachBBRemovesDeadBlockAndPhiEntry(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), nil, nil)
	entry := fn.NewBlock("entry")
	dead := fn.NewBlock("dead")
	join := fn.NewBlock("join")

	entry.NewBr(join)
	dv := dead.NewAdd(m.ConstInt(32, 1), m.ConstInt(32, 1))
	dead.NewBr(join)

	phi := join.NewPhi(m.I32())
	phi.AddIncoming(m.ConstInt(32, 0), entry)
	phi.AddIncoming(dv, dead)
	join.NewRet(phi)

	runRmUnreachBB(m)

	for _, bb := range fn.Blocks {
		if bb.Name() == "dead" {
			t.Fatal("want the unreachable block removed")
		}
	}
	if len(phi.Incoming) != 1 {
		t.Errorf("want the dangling phi entry from dead dropped, got %d incoming", len(phi.Incoming))
	}
}

// TestRmUnreachBBLeavesFullyReachableFunctionAlone confirms a function with
// no unreachable blocks is left untouched.
func TestRmUnreachBBLeavesFullyReachableFunctionAlone(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), nil, nil)
	entry := fn.NewBlock("entry")
	entry.NewRet(m.ConstInt(32, 0))

	runRmUnreachBB(m)

	if len(fn.Blocks) != 1 {
		t.Errorf("want the single reachable block kept, got %d blocks", len(fn.Blocks))
	}
}
