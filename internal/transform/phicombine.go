package transform

import (
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// PhiCombine merges a predecessor block that holds nothing but phis and a
// terminator into its successor, when every one of that predecessor's phis
// is used only by the successor's own phis. The successor's phis absorb
// the predecessor's phi chains directly, removing one hop of phi
// indirection; any successor-phi entry from the predecessor whose value is
// not one of the predecessor's phis is repeated once for each of the
// predecessor's own predecessors.
type PhiCombine struct{}

func (t *PhiCombine) Name() string { return "phi-combine" }

func (t *PhiCombine) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillAll
}

func (t *PhiCombine) Run(mod *ir.Module, mgr *pass.Manager) bool {
	changed := false
	for _, fn := range mod.Functions {
		if fn.IsExternal() {
			continue
		}
		if combineFunc(fn) {
			changed = true
		}
	}
	return changed
}

func combineFunc(fn *ir.Function) bool {
	changed := false
	again := true
	for again {
		again = false
		for _, bb := range append([]*ir.BasicBlock(nil), fn.Blocks...) {
			for _, pre := range append([]*ir.BasicBlock(nil), bb.Preds...) {
				if tryCombine(fn, bb, pre) {
					changed = true
					again = true
					break
				}
			}
			if again {
				break
			}
		}
	}
	return changed
}

// tryCombine attempts to fold pre's phis into bb, per the shape described
// on PhiCombine.
func tryCombine(fn *ir.Function, bb, pre *ir.BasicBlock) bool {
	if pre == bb {
		return false
	}
	phis := bb.Phis()
	prePhis := pre.Phis()
	if len(phis) == 0 || len(prePhis) == 0 {
		return false
	}
	// pre must consist of nothing but its phis and a terminator.
	if len(prePhis)+1 != len(pre.Insts) {
		return false
	}
	// every use of a pre-phi must be one of bb's own phis.
	isBBPhi := make(map[*ir.Instruction]bool, len(phis))
	for _, p := range phis {
		isBBPhi[p] = true
	}
	for _, p := range prePhis {
		for _, use := range p.Uses() {
			if !isBBPhi[use.User] {
				return false
			}
		}
	}
	isPrePhi := make(map[*ir.Instruction]bool, len(prePhis))
	for _, p := range prePhis {
		isPrePhi[p] = true
	}

	prePreds := append([]*ir.BasicBlock(nil), pre.Preds...)

	for _, phi := range phis {
		type pair struct {
			val  ir.Value
			from *ir.BasicBlock
		}
		var newPairs []pair
		for i, from := range phi.Incoming {
			val := phi.Operands[i]
			switch {
			case from != pre:
				newPairs = append(newPairs, pair{val, from})
			case isPrePhi[asInstruction(val)]:
				src := asInstruction(val)
				for j, srcFrom := range src.Incoming {
					newPairs = append(newPairs, pair{src.Operands[j], srcFrom})
				}
			default:
				for _, pp := range prePreds {
					newPairs = append(newPairs, pair{val, pp})
				}
			}
		}
		for len(phi.Operands) > 0 {
			phi.RemoveIncoming(phi.Incoming[0])
		}
		for _, p := range newPairs {
			phi.AddIncoming(p.val, p.from)
		}
	}

	for _, pp := range prePreds {
		pterm := pp.Terminator()
		for i, t := range pterm.BrTargets() {
			if t == pre {
				pterm.SetBrTarget(i, bb)
			}
		}
	}

	eraseBlockBody(pre)
	fn.RemoveBlock(pre)
	return true
}

func asInstruction(v ir.Value) *ir.Instruction {
	in, _ := v.(*ir.Instruction)
	return in
}
