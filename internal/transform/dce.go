package transform

import (
	"github.com/dshills/ssaopt/internal/analysis"
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// DCE is mark-sweep dead-code elimination: critical instructions (returns,
// branches, stores to escaping memory, calls to non-pure functions) seed a
// worklist; every operand of a marked instruction is marked in turn; the
// sweep erases everything left unmarked. A final module-scope sweep drops
// functions and globals with no remaining uses (except main).
type DCE struct{}

func (t *DCE) Name() string { return "dead-code" }

func (t *DCE) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillAll
	pass.Require[*analysis.FuncInfo](au)
}

func (t *DCE) Run(mod *ir.Module, mgr *pass.Manager) bool {
	info := pass.GetResult[*analysis.FuncInfo](mgr)
	changed := false
	for _, fn := range mod.Functions {
		if fn.IsExternal() {
			continue
		}
		if sweepFunction(fn, info) {
			changed = true
		}
	}
	if sweepModule(mod) {
		changed = true
	}
	return changed
}

func isCritical(in *ir.Instruction, info *analysis.FuncInfo) bool {
	switch in.Op {
	case ir.OpRet, ir.OpBr:
		return true
	case ir.OpStore:
		return !analysis.IsStackLocal(in.Operands[1])
	case ir.OpCall:
		return !info.IsPure(in.CalleeFunc())
	}
	return false
}

func sweepFunction(fn *ir.Function, info *analysis.FuncInfo) bool {
	marked := make(map[*ir.Instruction]bool)
	var worklist []*ir.Instruction
	for _, bb := range fn.Blocks {
		for _, in := range bb.Insts {
			if isCritical(in, info) && !marked[in] {
				marked[in] = true
				worklist = append(worklist, in)
			}
		}
	}
	for len(worklist) > 0 {
		in := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, o := range in.Operands {
			if opInst, ok := o.(*ir.Instruction); ok && !marked[opInst] {
				marked[opInst] = true
				worklist = append(worklist, opInst)
			}
		}
	}

	changed := false
	for _, bb := range fn.Blocks {
		var toErase []*ir.Instruction
		for _, in := range bb.Insts {
			if !marked[in] {
				toErase = append(toErase, in)
			}
		}
		for i := len(toErase) - 1; i >= 0; i-- {
			in := toErase[i]
			for _, u := range append([]*ir.Use(nil), in.Uses()...) {
				u.User.SetOperand(u.Index, nil)
			}
			in.EraseFromParent()
			changed = true
		}
	}
	return changed
}

func sweepModule(mod *ir.Module) bool {
	changed := false
	var deadFns []*ir.Function
	for _, fn := range mod.Functions {
		if fn == mod.Main() || fn.IsExternal() {
			continue
		}
		if len(fn.Uses()) == 0 {
			deadFns = append(deadFns, fn)
		}
	}
	for _, fn := range deadFns {
		mod.RemoveFunction(fn)
		changed = true
	}

	var deadGlobals []*ir.GlobalVariable
	for _, g := range mod.Globals {
		if len(g.Uses()) == 0 {
			deadGlobals = append(deadGlobals, g)
		}
	}
	for _, g := range deadGlobals {
		mod.RemoveGlobal(g)
		changed = true
	}
	return changed
}
