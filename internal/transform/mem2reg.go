package transform

import (
	"github.com/dshills/ssaopt/internal/analysis"
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// Mem2reg promotes stack slots (alloca of a base type, never escaping) to
// SSA values: loads become the most recent stored value, and phi nodes are
// inserted at dominance-frontier join points.
type Mem2reg struct{}

func (t *Mem2reg) Name() string { return "mem2reg" }

func (t *Mem2reg) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillAll
	pass.Require[*analysis.Dominator](au)
	pass.Require[*analysis.UseDef](au)
}

func (t *Mem2reg) Run(mod *ir.Module, mgr *pass.Manager) bool {
	dom := pass.GetResult[*analysis.Dominator](mgr)
	changed := false
	for _, fn := range mod.Functions {
		if fn.IsExternal() {
			continue
		}
		if promoteFunction(fn, dom) {
			changed = true
		}
	}
	return changed
}

// promotable reports whether alloca in is a candidate: its allocated type
// is a base type, and its address never escapes (used as a GEP base,
// passed to a call, or converted via ptrtoint).
func promotable(in *ir.Instruction) bool {
	if in.Op != ir.OpAlloca || !ir.IsBaseType(in.ElemType) {
		return false
	}
	for _, u := range in.Uses() {
		switch u.User.Op {
		case ir.OpLoad:
		case ir.OpStore:
			if u.Index != 1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func promoteFunction(fn *ir.Function, dom *analysis.Dominator) bool {
	var slots []*ir.Instruction
	entry := fn.Entry()
	for _, in := range entry.Insts {
		if in.Op == ir.OpAlloca && promotable(in) {
			slots = append(slots, in)
		}
	}
	if len(slots) == 0 {
		return false
	}

	storeBlocks := make(map[*ir.Instruction]map[*ir.BasicBlock]bool)
	var global []*ir.Instruction
	for _, bb := range fn.Blocks {
		killed := make(map[*ir.Instruction]bool)
		for _, in := range bb.Insts {
			switch in.Op {
			case ir.OpStore:
				if slot, ok := in.Operands[1].(*ir.Instruction); ok && isSlot(slot, slots) {
					killed[slot] = true
					if storeBlocks[slot] == nil {
						storeBlocks[slot] = make(map[*ir.BasicBlock]bool)
					}
					storeBlocks[slot][bb] = true
				}
			case ir.OpLoad:
				if slot, ok := in.Operands[0].(*ir.Instruction); ok && isSlot(slot, slots) && !killed[slot] {
					global = append(global, slot)
				}
			}
		}
	}

	phiSlot := make(map[*ir.Instruction]*ir.Instruction)
	hasPhi := make(map[*ir.Instruction]map[*ir.BasicBlock]bool)
	seenGlobal := make(map[*ir.Instruction]bool)
	for _, slot := range global {
		if seenGlobal[slot] {
			continue
		}
		seenGlobal[slot] = true
		worklist := make([]*ir.BasicBlock, 0)
		for bb := range storeBlocks[slot] {
			worklist = append(worklist, bb)
		}
		if hasPhi[slot] == nil {
			hasPhi[slot] = make(map[*ir.BasicBlock]bool)
		}
		for i := 0; i < len(worklist); i++ {
			bb := worklist[i]
			for _, df := range dom.DominanceFrontier(bb) {
				if hasPhi[slot][df] {
					continue
				}
				phi := df.NewPhi(slot.ElemType)
				phiSlot[phi] = slot
				hasPhi[slot][df] = true
				worklist = append(worklist, df)
			}
		}
	}

	stacks := make(map[*ir.Instruction][]ir.Value)
	var toErase []*ir.Instruction
	var rename func(bb *ir.BasicBlock)
	rename = func(bb *ir.BasicBlock) {
		pushed := make(map[*ir.Instruction]int)
		for _, in := range bb.Phis() {
			if slot, ok := phiSlot[in]; ok {
				stacks[slot] = append(stacks[slot], in)
				pushed[slot]++
			}
		}
		for _, in := range bb.Insts {
			switch in.Op {
			case ir.OpLoad:
				slot, ok := in.Operands[0].(*ir.Instruction)
				if !ok || !isSlot(slot, slots) {
					continue
				}
				var repl ir.Value
				if st := stacks[slot]; len(st) > 0 {
					repl = st[len(st)-1]
				} else {
					repl = bb.Parent.Parent.Undef(in.Type())
				}
				in.ReplaceAllUsesWith(repl)
				toErase = append(toErase, in)
			case ir.OpStore:
				slot, ok := in.Operands[1].(*ir.Instruction)
				if !ok || !isSlot(slot, slots) {
					continue
				}
				stacks[slot] = append(stacks[slot], in.Operands[0])
				pushed[slot]++
				toErase = append(toErase, in)
			}
		}
		for _, s := range bb.Succs {
			for _, in := range s.Phis() {
				slot, ok := phiSlot[in]
				if !ok {
					continue
				}
				var v ir.Value
				if st := stacks[slot]; len(st) > 0 {
					v = st[len(st)-1]
				} else {
					v = bb.Parent.Parent.Undef(in.Type())
				}
				in.AddIncoming(v, bb)
			}
		}
		for _, succ := range sortedTreeSucc(dom, bb) {
			rename(succ)
		}
		for slot, n := range pushed {
			stacks[slot] = stacks[slot][:len(stacks[slot])-n]
		}
	}
	rename(entry)

	for i := len(toErase) - 1; i >= 0; i-- {
		toErase[i].EraseFromParent()
	}
	for _, slot := range slots {
		if len(slot.Uses()) == 0 {
			slot.EraseFromParent()
		}
	}
	return true
}

func isSlot(in *ir.Instruction, slots []*ir.Instruction) bool {
	for _, s := range slots {
		if s == in {
			return true
		}
	}
	return false
}

func sortedTreeSucc(dom *analysis.Dominator, bb *ir.BasicBlock) []*ir.BasicBlock {
	out := make([]*ir.BasicBlock, 0, len(dom.TreeSucc[bb]))
	for s := range dom.TreeSucc[bb] {
		out = append(out, s)
	}
	return out
}
