package transform

import (
	"github.com/dshills/ssaopt/internal/analysis"
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// unrollMax bounds how many iterations a simple counted loop may unroll
// to; above this the straight-line expansion is judged not worth the code
// growth and the loop is left alone.
const unrollMax = 1000

// LoopUnroll fully unrolls a simple loop — one with at most a header and
// one body block, a single exit edge out of the header, and an induction
// variable compared against a constant bound with a constant per-iteration
// step — into straight-line code, when the iteration count can be
// determined at compile time and stays under unrollMax. Anything more
// irregular (multiple exits, a non-constant bound, an induction variable
// that isn't a direct header phi) is left to the other loop transforms.
type LoopUnroll struct{}

func (t *LoopUnroll) Name() string { return "loop-unroll" }

func (t *LoopUnroll) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillAll
	pass.Require[*LoopSimplify](au)
	pass.Require[*analysis.LoopFind](au)
	pass.RunAfter[*DCE](au)
}

func (t *LoopUnroll) Run(mod *ir.Module, mgr *pass.Manager) bool {
	loops := pass.GetResult[*analysis.LoopFind](mgr)
	changed := false
	for _, fn := range mod.Functions {
		if fn.IsExternal() {
			continue
		}
		for _, loop := range loops.ForFunction(fn) {
			sl, ok := parseSimpleLoop(loop)
			if !ok || !shouldUnroll(sl) {
				continue
			}
			unrollSimpleLoop(fn, sl)
			changed = true
		}
	}
	return changed
}

type simpleLoop struct {
	blocks               map[*ir.BasicBlock]bool
	header, body, exit   *ir.BasicBlock
	preheader            *ir.BasicBlock
	indVar               ir.Value
	initial, bound, step int64
	exitPred             ir.Predicate
}

func parseSimpleLoop(loop *analysis.LoopInfo) (*simpleLoop, bool) {
	if len(loop.Blocks) > 2 {
		return nil, false
	}
	header := loop.Header
	body := header
	for bb := range loop.Blocks {
		if bb != header {
			body = bb
		}
	}

	if len(loop.Exits) != 1 || loop.Exits[0].Exiting != header {
		return nil, false
	}
	exit := loop.Exits[0].Target

	preheader := loop.Preheader
	if preheader == nil {
		return nil, false
	}

	term := header.Terminator()
	if term == nil || term.Op != ir.OpBr || !term.IsConditional() {
		return nil, false
	}
	cond, ok := term.Operands[0].(*ir.Instruction)
	if !ok || cond.Op != ir.OpICmp {
		return nil, false
	}
	lhs, rhs := cond.Operands[0], cond.Operands[1]

	var indVar ir.Value
	var bound int64
	var isIndRHS bool
	if c, ok := ir.AsInt(lhs); ok {
		indVar, bound, isIndRHS = rhs, c, true
	} else if c, ok := ir.AsInt(rhs); ok {
		indVar, bound, isIndRHS = lhs, c, false
	} else {
		return nil, false
	}

	op := cond.Pred
	if isIndRHS {
		op = op.Swapped()
	}
	targets := term.BrTargets()
	switch exit {
	case targets[0]:
		// exit taken when cond is true: op already expresses "should exit".
	case targets[1]:
		op = op.Negated()
	default:
		return nil, false
	}

	phi, ok := indVar.(*ir.Instruction)
	if !ok || phi.Op != ir.OpPhi || phi.Block() != header {
		return nil, false
	}
	var initial, step int64
	var haveInitial, haveStep bool
	for i, p := range phi.Incoming {
		v := phi.Operands[i]
		if loop.Blocks[p] {
			bin, ok := v.(*ir.Instruction)
			if !ok || bin.Op != ir.OpAdd {
				continue
			}
			if c, ok := ir.AsInt(bin.Operands[0]); ok && bin.Operands[1] == ir.Value(phi) {
				step, haveStep = c, true
			} else if c, ok := ir.AsInt(bin.Operands[1]); ok && bin.Operands[0] == ir.Value(phi) {
				step, haveStep = c, true
			}
		} else if c, ok := ir.AsInt(v); ok {
			initial, haveInitial = c, true
		}
	}
	if !haveInitial || !haveStep {
		return nil, false
	}

	return &simpleLoop{
		blocks:   loop.Blocks,
		header:   header,
		body:     body,
		exit:     exit,
		preheader: preheader,
		indVar:   indVar,
		initial:  initial,
		bound:    bound,
		step:     step,
		exitPred: op,
	}, true
}

func shouldUnroll(sl *simpleLoop) bool {
	if sl.step == 0 {
		return false
	}
	estimate := (sl.bound - sl.initial) / sl.step
	return estimate >= 0 && estimate < unrollMax
}

func shouldExit(i, bound int64, pred ir.Predicate) bool {
	switch pred {
	case ir.PredEQ:
		return i == bound
	case ir.PredNE:
		return i != bound
	case ir.PredLT:
		return i < bound
	case ir.PredLE:
		return i <= bound
	case ir.PredGT:
		return i > bound
	case ir.PredGE:
		return i >= bound
	default:
		return true
	}
}

// unrollSimpleLoop replaces sl's header/body blocks with unrollMax-bounded
// straight-line clones: vm carries the running substitution (the
// induction-variable phi resolves to whatever value it held in the
// iteration just cloned, then gets overwritten to the new iteration's
// step computation as soon as that's cloned), exactly the rename trick
// CloneInstruction is built for.
func unrollSimpleLoop(fn *ir.Function, sl *simpleLoop) {
	vm := make(ir.ValueMap)
	phiDst := make(map[ir.Value]*ir.Instruction)
	for _, phi := range sl.header.Phis() {
		for i, p := range phi.Incoming {
			v := phi.Operands[i]
			if sl.blocks[p] {
				phiDst[v] = phi
			} else {
				vm[phi] = v
			}
		}
	}

	bb := fn.NewBlock("")
	cloneInto := func(old *ir.BasicBlock) {
		for _, in := range old.Insts {
			if in.Op == ir.OpBr || in.Op == ir.OpPhi {
				continue
			}
			clone := ir.CloneInstruction(in, vm)
			bb.Adopt(clone)
			vm[in] = clone
			if dst, ok := phiDst[in]; ok {
				vm[dst] = clone
			}
		}
	}

	i := sl.initial
	for n := 0; !shouldExit(i, sl.bound, sl.exitPred) && n < unrollMax+1; n++ {
		cloneInto(sl.header)
		if sl.body != sl.header {
			cloneInto(sl.body)
		}
		i += sl.step
	}
	cloneInto(sl.header)

	for old, newV := range vm {
		old.ReplaceAllUsesWith(newV)
	}

	bb.NewBr(sl.exit)
	pterm := sl.preheader.Terminator()
	for idx, t := range pterm.BrTargets() {
		if t == sl.header {
			pterm.SetBrTarget(idx, bb)
		}
	}
	for _, phi := range append([]*ir.Instruction(nil), sl.exit.Phis()...) {
		if v, ok := phi.IncomingFor(sl.header); ok {
			phi.RemoveIncoming(sl.header)
			phi.AddIncoming(v, bb)
		}
		if len(phi.Incoming) == 1 {
			phi.ReplaceAllUsesWith(phi.Operands[0])
			phi.EraseFromParent()
		}
	}

	for b := range sl.blocks {
		eraseBlockBody(b)
	}
	for b := range sl.blocks {
		fn.RemoveBlock(b)
	}
}
