// Package transform holds every IR-mutating pass: mem2reg, dead-code
// elimination, algebraic simplification, GVN, loop-invariant code motion,
// loop unrolling, inlining, control-flow simplification and
// global-variable localization.
package transform

import (
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// RmUnreachBB deletes every block unreachable from its function's entry, a
// prerequisite the dominator analysis assumes has already run (an
// unreachable block has no well-defined dominator). Kept as a standalone
// transform rather than folded into the dominator analysis itself so
// pipelines can schedule it explicitly (see internal/pipeline), avoiding a
// dependency cycle between the analysis and transform packages.
type RmUnreachBB struct{}

func (t *RmUnreachBB) Name() string { return "rm-unreach-bb" }

func (t *RmUnreachBB) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillAll
}

func (t *RmUnreachBB) Run(mod *ir.Module, mgr *pass.Manager) bool {
	changed := false
	for _, fn := range mod.Functions {
		if fn.IsExternal() {
			continue
		}
		if removeUnreachable(fn) {
			changed = true
		}
	}
	return changed
}

func removeUnreachable(fn *ir.Function) bool {
	entry := fn.Entry()
	if entry == nil {
		return false
	}
	reachable := make(map[*ir.BasicBlock]bool)
	queue := []*ir.BasicBlock{entry}
	reachable[entry] = true
	for len(queue) > 0 {
		bb := queue[0]
		queue = queue[1:]
		for _, s := range bb.Succs {
			if !reachable[s] {
				reachable[s] = true
				queue = append(queue, s)
			}
		}
	}

	var dead []*ir.BasicBlock
	for _, bb := range fn.Blocks {
		if !reachable[bb] {
			dead = append(dead, bb)
		}
	}
	if len(dead) == 0 {
		return false
	}
	for _, bb := range dead {
		// Any phi in a surviving successor that still lists this dead
		// block as an incoming predecessor must drop that entry first,
		// since RemoveBlock only severs the CFG edge, not phi operands.
		for _, s := range bb.Succs {
			if reachable[s] {
				for _, in := range s.Phis() {
					in.RemoveIncoming(bb)
				}
			}
		}
	}
	for _, bb := range dead {
		eraseBlockBody(bb)
		fn.RemoveBlock(bb)
	}
	return true
}

// eraseBlockBody erases every instruction in bb, last first. Before each
// erase, every remaining user of that instruction (in bb or in any other
// block) has the operand that referred to it set to nil, so no instruction
// is left pointing at an erased one.
func eraseBlockBody(bb *ir.BasicBlock) {
	insts := append([]*ir.Instruction(nil), bb.Insts...)
	for i := len(insts) - 1; i >= 0; i-- {
		in := insts[i]
		for _, u := range append([]*ir.Use(nil), in.Uses()...) {
			u.User.SetOperand(u.Index, nil)
		}
		in.EraseFromParent()
	}
}
