package transform

import (
	"github.com/dshills/ssaopt/internal/analysis"
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// LoopSimplify guarantees every natural loop a dedicated preheader: a
// block with no other job than branching straight to the header, fed by
// every edge entering the loop from outside. Passes that hoist or
// duplicate loop code (loop-invariant, loop-unroll) depend on this shape
// so they have a single safe insertion point upstream of the loop.
type LoopSimplify struct{}

func (t *LoopSimplify) Name() string { return "loop-simplify" }

func (t *LoopSimplify) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillAll
	pass.Require[*analysis.LoopFind](au)
}

func (t *LoopSimplify) Run(mod *ir.Module, mgr *pass.Manager) bool {
	loops := pass.GetResult[*analysis.LoopFind](mgr)
	changed := false
	for _, fn := range mod.Functions {
		if fn.IsExternal() {
			continue
		}
		for _, loop := range loops.ForFunction(fn) {
			if ensurePreheader(fn, loop) {
				changed = true
			}
		}
	}
	return changed
}

type incomingPair struct {
	val ir.Value
	bb  *ir.BasicBlock
}

// ensurePreheader reports whether it had to build a new preheader block
// for loop (false means one of the required shape already existed).
func ensurePreheader(fn *ir.Function, loop *analysis.LoopInfo) bool {
	header := loop.Header
	var outside []*ir.BasicBlock
	for _, p := range header.Preds {
		if !loop.Blocks[p] {
			outside = append(outside, p)
		}
	}
	if len(outside) == 0 {
		return false
	}
	if len(outside) == 1 && len(outside[0].Succs) == 1 {
		return false
	}

	preheader := fn.NewBlock("")
	for _, phi := range append([]*ir.Instruction(nil), header.Phis()...) {
		splitPhiForPreheader(phi, loop, preheader)
	}
	for _, p := range outside {
		term := p.Terminator()
		for i, tgt := range term.BrTargets() {
			if tgt == header {
				term.SetBrTarget(i, preheader)
			}
		}
	}
	preheader.NewBr(header)
	return true
}

// splitPhiForPreheader partitions phi's incoming pairs into those fed by
// in-loop blocks and those fed from outside, then rewires phi to route the
// outside pairs through preheader: moved wholesale if phi is entirely fed
// from outside, given a single preheader entry if there's exactly one
// outside value, or mirrored into a new phi in preheader if there's more
// than one.
func splitPhiForPreheader(phi *ir.Instruction, loop *analysis.LoopInfo, preheader *ir.BasicBlock) {
	var inner, outer []incomingPair
	for i, p := range phi.Incoming {
		pair := incomingPair{val: phi.Operands[i], bb: p}
		if loop.Blocks[p] {
			inner = append(inner, pair)
		} else {
			outer = append(outer, pair)
		}
	}
	if len(outer) == 0 {
		return
	}
	if len(inner) == 0 {
		preheader.Adopt(phi)
		preheader.Insts = movePhiToFront(preheader, phi)
		return
	}
	if len(outer) == 1 {
		setIncoming(phi, append(inner, incomingPair{val: outer[0].val, bb: preheader}))
		return
	}
	phiOuter := preheader.NewPhi(phi.Type())
	for _, pr := range outer {
		phiOuter.AddIncoming(pr.val, pr.bb)
	}
	setIncoming(phi, append(inner, incomingPair{val: phiOuter, bb: preheader}))
}

// movePhiToFront keeps the phi-instruction-prefix invariant (§3.5) intact
// after Adopt appended phi to the end of preheader's instruction list.
func movePhiToFront(bb *ir.BasicBlock, phi *ir.Instruction) []*ir.Instruction {
	out := make([]*ir.Instruction, 0, len(bb.Insts))
	out = append(out, phi)
	for _, in := range bb.Insts {
		if in != phi {
			out = append(out, in)
		}
	}
	return out
}

func setIncoming(phi *ir.Instruction, pairs []incomingPair) {
	for _, b := range append([]*ir.BasicBlock(nil), phi.Incoming...) {
		phi.RemoveIncoming(b)
	}
	for _, pr := range pairs {
		phi.AddIncoming(pr.val, pr.bb)
	}
}
