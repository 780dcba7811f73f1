package transform

import (
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// CFGSimplify cleans up control flow: a conditional branch whose two
// targets coincide becomes unconditional, an empty block ending in an
// unconditional branch is merged into its successor, a block with exactly
// one predecessor is merged upward into it, and a block whose only
// instruction is a conditional branch is copied into predecessors that
// jump to it unconditionally.
type CFGSimplify struct{}

func (t *CFGSimplify) Name() string { return "control-flow-simplify" }

func (t *CFGSimplify) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillAll
}

func (t *CFGSimplify) Run(mod *ir.Module, mgr *pass.Manager) bool {
	changed := false
	for _, fn := range mod.Functions {
		if fn.IsExternal() {
			continue
		}
		if simplifyFunc(fn) {
			changed = true
		}
	}
	return changed
}

func simplifyFunc(fn *ir.Function) bool {
	changed := false
	again := true
	for again {
		again = false
		for _, bb := range append([]*ir.BasicBlock(nil), fn.Blocks...) {
			if bb.Terminator() == nil {
				continue
			}
			if foldCondBr(bb) || mergeEmptyBlock(fn, bb) || mergeSinglePred(fn, bb) || threadJump(bb) {
				changed = true
				again = true
			}
		}
	}
	return changed
}

// foldCondBr rewrites a conditional branch with identical true/false
// targets into an unconditional one.
func foldCondBr(bb *ir.BasicBlock) bool {
	term := bb.Terminator()
	if term == nil || term.Op != ir.OpBr || !term.IsConditional() {
		return false
	}
	targets := term.BrTargets()
	if targets[0] != targets[1] {
		return false
	}
	target := targets[0]
	bb.ClearTerminator()
	bb.NewBr(target)
	return true
}

// mergeEmptyBlock folds a block containing only an unconditional branch
// into its successor, by redirecting every predecessor straight to the
// successor and fixing the successor's phis.
func mergeEmptyBlock(fn *ir.Function, bb *ir.BasicBlock) bool {
	if bb == fn.Entry() {
		return false
	}
	if len(bb.Phis()) > 0 || len(bb.Insts) != 1 {
		return false
	}
	term := bb.Terminator()
	if term == nil || term.Op != ir.OpBr || term.IsConditional() {
		return false
	}
	succ := term.BrTargets()[0]
	if succ == bb {
		return false
	}
	for _, in := range succ.Phis() {
		if v, ok := in.IncomingFor(bb); ok {
			for _, p := range bb.Preds {
				in.AddIncoming(v, p)
			}
			in.RemoveIncoming(bb)
		}
	}
	for _, p := range append([]*ir.BasicBlock(nil), bb.Preds...) {
		pterm := p.Terminator()
		for i, t := range pterm.BrTargets() {
			if t == bb {
				pterm.SetBrTarget(i, succ)
			}
		}
	}
	eraseBlockBody(bb)
	fn.RemoveBlock(bb)
	return true
}

// mergeSinglePred merges bb upward into its unique predecessor when that
// predecessor ends with an unconditional branch solely to bb.
func mergeSinglePred(fn *ir.Function, bb *ir.BasicBlock) bool {
	if bb == fn.Entry() || len(bb.Preds) != 1 {
		return false
	}
	pred := bb.Preds[0]
	pterm := pred.Terminator()
	if pterm == nil || pterm.Op != ir.OpBr || pterm.IsConditional() {
		return false
	}
	if countEdges(pred, bb) != 1 {
		return false
	}
	if len(bb.Phis()) > 0 {
		return false
	}
	pred.ClearTerminator()
	for _, in := range append([]*ir.Instruction(nil), bb.Insts...) {
		pred.Adopt(in)
	}
	for _, s := range append([]*ir.BasicBlock(nil), bb.Succs...) {
		ir.RemoveEdge(bb, s)
		ir.AddEdge(pred, s)
	}
	fn.RemoveBlock(bb)
	return true
}

// threadJump copies bb's sole conditional branch into every predecessor
// that jumps to bb unconditionally, when bb holds nothing but that branch
// and its condition is defined outside bb (so the copy is valid at the
// predecessor too). A predecessor a block threads into this way keeps its
// edge to bb only if some other successor still needs it; once every
// predecessor has been threaded, bb is left unreachable for RmUnreachBB to
// collect.
func threadJump(bb *ir.BasicBlock) bool {
	if len(bb.Phis()) > 0 || len(bb.Insts) != 1 {
		return false
	}
	term := bb.Terminator()
	if term == nil || term.Op != ir.OpBr || !term.IsConditional() {
		return false
	}
	cond := term.Operands[0]
	if in, ok := cond.(*ir.Instruction); ok && in.Block() == bb {
		return false
	}
	targets := term.BrTargets()
	changed := false
	for _, p := range append([]*ir.BasicBlock(nil), bb.Preds...) {
		pterm := p.Terminator()
		if pterm == nil || pterm.Op != ir.OpBr || pterm.IsConditional() {
			continue
		}
		if pterm.BrTargets()[0] != bb || countEdges(p, bb) != 1 {
			continue
		}
		p.ClearTerminator()
		p.NewCondBr(cond, targets[0], targets[1])
		for _, s := range targets {
			for _, phi := range s.Phis() {
				if v, ok := phi.IncomingFor(bb); ok {
					phi.AddIncoming(v, p)
				}
			}
		}
		changed = true
	}
	return changed
}

func countEdges(from, to *ir.BasicBlock) int {
	n := 0
	for _, s := range from.Succs {
		if s == to {
			n++
		}
	}
	return n
}
