package analysis

import (
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// FuncInfo computes the reverse call graph and the set of pure functions:
// functions with no side effect and no dependence on external state beyond
// their own arguments.
type FuncInfo struct {
	// Callers maps a function to the call instructions that target it.
	Callers map[*ir.Function][]*ir.Instruction
	pure    map[*ir.Function]bool
}

func (a *FuncInfo) Name() string { return "func-info" }

func (a *FuncInfo) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillNone
}

func (a *FuncInfo) Run(mod *ir.Module, mgr *pass.Manager) bool {
	a.Callers = make(map[*ir.Function][]*ir.Instruction)
	for _, fn := range mod.Functions {
		for _, bb := range fn.Blocks {
			for _, in := range bb.Insts {
				if in.Op == ir.OpCall {
					callee := in.CalleeFunc()
					a.Callers[callee] = append(a.Callers[callee], in)
				}
			}
		}
	}

	a.pure = make(map[*ir.Function]bool)
	for _, fn := range mod.Functions {
		if fn.IsExternal() || fn == mod.Main() {
			continue
		}
		if maybePure(fn) {
			a.pure[fn] = true
		}
	}
	for {
		changed := false
		for fn := range a.pure {
			if callsImpure(fn, a.pure) {
				delete(a.pure, fn)
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return false
}

// maybePure reports whether fn contains no store to non-stack memory and
// no load whose address is rooted in a global or argument rather than a
// local alloca. Calls are checked separately by the fixed-point loop.
func maybePure(fn *ir.Function) bool {
	for _, bb := range fn.Blocks {
		for _, in := range bb.Insts {
			switch in.Op {
			case ir.OpStore:
				if !IsStackLocal(in.Operands[1]) {
					return false
				}
			case ir.OpLoad:
				if !IsStackLocal(in.Operands[0]) {
					return false
				}
			}
		}
	}
	return true
}

// IsStackLocal walks back through getelementptr chains to find the root of
// an address, reporting whether that root is an alloca.
func IsStackLocal(addr ir.Value) bool {
	for {
		in, ok := addr.(*ir.Instruction)
		if !ok {
			return false
		}
		switch in.Op {
		case ir.OpAlloca:
			return true
		case ir.OpGEP:
			addr = in.Operands[0]
		default:
			return false
		}
	}
}

func callsImpure(fn *ir.Function, pure map[*ir.Function]bool) bool {
	for _, bb := range fn.Blocks {
		for _, in := range bb.Insts {
			if in.Op == ir.OpCall {
				callee := in.CalleeFunc()
				if callee == fn {
					continue
				}
				if !pure[callee] {
					return true
				}
			}
		}
	}
	return false
}

// IsPure reports whether fn was determined to be free of side effects and
// external-state dependence.
func (a *FuncInfo) IsPure(fn *ir.Function) bool { return a.pure[fn] }
