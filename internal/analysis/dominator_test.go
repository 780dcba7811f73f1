package analysis_test

import (
	"reflect"
	"testing"

	"github.com/dshills/ssaopt/internal/analysis"
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// buildDiamond builds entry -> {left, right} -> join, with join returning a
// phi of the two arms: the classic shape exercising dominance frontiers at a
// join point.
func buildDiamond() (*ir.Module, *ir.Function) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), []ir.Type{m.I1()}, []string{"c"})
	entry := fn.NewBlock("entry")
	left := fn.NewBlock("left")
	right := fn.NewBlock("right")
	join := fn.NewBlock("join")

	entry.NewCondBr(fn.Params[0], left, right)
	lv := left.NewAdd(m.ConstInt(32, 1), m.ConstInt(32, 1))
	left.NewBr(join)
	rv := right.NewAdd(m.ConstInt(32, 2), m.ConstInt(32, 2))
	right.NewBr(join)
	phi := join.NewPhi(m.I32())
	phi.AddIncoming(lv, left)
	phi.AddIncoming(rv, right)
	join.NewRet(phi)

	return m, fn
}

func TestDominatorIdomAndFrontier(t *testing.T) {
	m, fn := buildDiamond()
	mgr := pass.NewManager(m, nil)
	pass.Add[*analysis.DepthOrder](mgr, &analysis.DepthOrder{})
	pass.Add[*analysis.Dominator](mgr, &analysis.Dominator{})
	mgr.Run([]reflect.Type{pass.ID[*analysis.Dominator]()}, false)
	dom := pass.GetResult[*analysis.Dominator](mgr)

	entry := fn.Blocks[0]
	left := fn.Blocks[1]
	right := fn.Blocks[2]
	join := fn.Blocks[3]

	if dom.IDom(entry) != nil {
		t.Error("entry block should have no immediate dominator")
	}
	if dom.IDom(left) != entry || dom.IDom(right) != entry {
		t.Error("left and right should be immediately dominated by entry")
	}
	if dom.IDom(join) != entry {
		t.Error("join is reachable from both arms so its idom is entry, not left or right")
	}
	if !dom.Dominates(entry, join) {
		t.Error("entry dominates every block in its function")
	}
	if dom.Dominates(left, right) {
		t.Error("left does not dominate right, they're siblings")
	}

	frontier := dom.DominanceFrontier(left)
	if len(frontier) != 1 || frontier[0] != join {
		t.Errorf("want left's dominance frontier to be exactly {join}, got %v", frontier)
	}
}
