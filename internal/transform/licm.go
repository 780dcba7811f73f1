package transform

import (
	"github.com/dshills/ssaopt/internal/analysis"
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// LICM hoists loop-invariant instructions (every operand either a
// constant/argument or defined outside the loop) out of the loop body and
// into its preheader, repeating to a fixed point so a chain of invariant
// computations hoists in one pass. Instructions with any side effect
// (load, store, call, the block terminators, phi) never move: there is no
// alias analysis here to prove a hoisted load can't observe a store still
// left behind in the loop.
type LICM struct{}

func (t *LICM) Name() string { return "loop-invariant" }

func (t *LICM) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillAll
	pass.Require[*LoopSimplify](au)
	pass.Require[*analysis.LoopFind](au)
}

func (t *LICM) Run(mod *ir.Module, mgr *pass.Manager) bool {
	loops := pass.GetResult[*analysis.LoopFind](mgr)
	changed := false
	for _, fn := range mod.Functions {
		if fn.IsExternal() {
			continue
		}
		for _, loop := range loops.ForFunction(fn) {
			if hoistLoop(loop) {
				changed = true
			}
		}
	}
	return changed
}

func isSideEffectInst(in *ir.Instruction) bool {
	switch in.Op {
	case ir.OpLoad, ir.OpStore, ir.OpCall, ir.OpRet, ir.OpBr, ir.OpPhi:
		return true
	}
	return false
}

func isInvariantOperand(v ir.Value, loop *analysis.LoopInfo) bool {
	in, ok := v.(*ir.Instruction)
	if !ok {
		return true
	}
	return !loop.Blocks[in.Block()]
}

func hoistLoop(loop *analysis.LoopInfo) bool {
	preheader := loop.Preheader
	if preheader == nil {
		return false
	}
	mark := preheader.Terminator()
	changed := false
	again := true
	for again {
		again = false
		for bb := range loop.Blocks {
			if bb == preheader {
				continue
			}
			for _, in := range append([]*ir.Instruction(nil), bb.Insts...) {
				if in.Block() != bb || isSideEffectInst(in) {
					continue
				}
				invariant := true
				for _, o := range in.Operands {
					if !isInvariantOperand(o, loop) {
						invariant = false
						break
					}
				}
				if !invariant {
					continue
				}
				preheader.AdoptBefore(mark, in)
				changed = true
				again = true
			}
		}
	}
	return changed
}
