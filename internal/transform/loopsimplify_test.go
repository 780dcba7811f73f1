package transform_test

import (
	"reflect"
	"testing"

	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
	"github.com/dshills/ssaopt/internal/pipeline"
	"github.com/dshills/ssaopt/internal/transform"
)

func runLoopSimplify(mod *ir.Module) {
	mgr := pipeline.New(mod, nil)
	mgr.Run([]reflect.Type{pass.ID[*transform.LoopSimplify]()}, false)
}

// TestLoopSimplifyBuildsPreheaderForMultipleOutsidePreds builds a header
// reachable from two distinct outside blocks (no single preheader), so
// LoopSimplify must synthesize one routing both entries through it.
func TestLoopSimplifyBuildsPreheaderForMultipleOutsidePreds(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), []ir.Type{m.I1()}, []string{"c"})
	entry := fn.NewBlock("entry")
	left := fn.NewBlock("left")
	right := fn.NewBlock("right")
	header := fn.NewBlock("header")
	body := fn.NewBlock("body")
	exit := fn.NewBlock("exit")

	entry.NewCondBr(fn.Params[0], left, right)
	left.NewBr(header)
	right.NewBr(header)

	phi := header.NewPhi(m.I32())
	phi.AddIncoming(m.ConstInt(32, 1), left)
	phi.AddIncoming(m.ConstInt(32, 2), right)
	cond := header.NewICmp(ir.PredLT, phi, m.ConstInt(32, 10))
	header.NewCondBr(cond, body, exit)

	body.NewBr(header)
	phi.AddIncoming(phi, body)

	exit.NewRet(phi)

	runLoopSimplify(m)

	for _, bb := range []*ir.BasicBlock{left, right} {
		term := bb.Terminator()
		for _, target := range term.BrTargets() {
			if target == header {
				t.Errorf("want %s routed through a new preheader instead of branching straight to header", bb.Name())
			}
		}
	}
	if len(header.Phis()[0].Incoming) != 2 {
		t.Errorf("want header's phi reduced to the in-loop entry plus one preheader entry, got %d incoming", len(header.Phis()[0].Incoming))
	}
}

// TestLoopSimplifyLeavesExistingPreheaderAlone confirms a header already
// fed by a single dedicated preheader is left untouched.
func TestLoopSimplifyLeavesExistingPreheaderAlone(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), nil, nil)
	entry := fn.NewBlock("entry")
	preheader := fn.NewBlock("preheader")
	header := fn.NewBlock("header")
	body := fn.NewBlock("body")
	exit := fn.NewBlock("exit")

	entry.NewBr(preheader)
	preheader.NewBr(header)

	phi := header.NewPhi(m.I32())
	phi.AddIncoming(m.ConstInt(32, 0), preheader)
	cond := header.NewICmp(ir.PredLT, phi, m.ConstInt(32, 10))
	header.NewCondBr(cond, body, exit)

	body.NewBr(header)
	phi.AddIncoming(phi, body)
	exit.NewRet(phi)

	blocksBefore := len(fn.Blocks)
	runLoopSimplify(m)

	if len(fn.Blocks) != blocksBefore {
		t.Errorf("want no new preheader synthesized, block count changed from %d to %d", blocksBefore, len(fn.Blocks))
	}
}
