package transform

import (
	"fmt"
	"strconv"

	"github.com/dshills/ssaopt/internal/analysis"
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// GVN is value numbering scoped to the dominator tree: walking each
// function in dominator pre-order, every side-effect-free instruction is
// keyed by its opcode and operand identity, and an instruction whose key
// already has a live definition in an enclosing scope is replaced by that
// definition rather than recomputed. The key table is pushed per block and
// popped on return from that block's dominator-tree children, so a
// redundant computation is only ever recognized along a path actually
// dominated by the first one (the scoped variant of global value
// numbering, in place of the full partition-refinement lattice). Loads are
// merged only within a single block: a load from the same pointer value as
// an earlier load in that block, with no store or call between the two,
// reuses the earlier load.
type GVN struct{}

func (t *GVN) Name() string { return "gvn" }

func (t *GVN) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillAll
	pass.Require[*analysis.Dominator](au)
	pass.Require[*analysis.FuncInfo](au)
}

func (t *GVN) Run(mod *ir.Module, mgr *pass.Manager) bool {
	dom := pass.GetResult[*analysis.Dominator](mgr)
	info := pass.GetResult[*analysis.FuncInfo](mgr)
	changed := false
	for _, fn := range mod.Functions {
		if fn.IsExternal() {
			continue
		}
		if numberFunction(fn, dom, info) {
			changed = true
		}
	}
	return changed
}

type exprKey string

// eligible reports whether in is pure and deterministic enough to be
// safely shared across every point it dominates: arithmetic, compares,
// GEP, casts, and calls to functions FuncInfo has proven pure.
func eligible(in *ir.Instruction, info *analysis.FuncInfo) bool {
	switch in.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpSDiv, ir.OpSRem,
		ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpLShr, ir.OpAShr,
		ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv,
		ir.OpICmp, ir.OpFCmp, ir.OpGEP,
		ir.OpZExt, ir.OpSExt, ir.OpTrunc, ir.OpSIToFP, ir.OpFPToSI,
		ir.OpPtrToInt, ir.OpIntToPtr:
		return true
	case ir.OpCall:
		return info.IsPure(in.CalleeFunc())
	}
	return false
}

// makeKey builds a structural key for in, canonicalizing commutative
// binary operators so x+y and y+x number the same.
func makeKey(in *ir.Instruction, info *analysis.FuncInfo) (exprKey, bool) {
	if !eligible(in, info) {
		return "", false
	}
	ops := append([]ir.Value(nil), in.Operands...)
	if in.Op.IsCommutative() && len(ops) == 2 && valueKey(ops[0]) > valueKey(ops[1]) {
		ops[0], ops[1] = ops[1], ops[0]
	}
	key := strconv.Itoa(int(in.Op)) + "|"
	switch in.Op {
	case ir.OpICmp, ir.OpFCmp:
		key += strconv.Itoa(int(in.Pred)) + "|"
	case ir.OpGEP:
		key += in.ElemType.String() + "|"
	}
	for _, o := range ops {
		key += valueKey(o) + ","
	}
	return exprKey(key), true
}

func valueKey(v ir.Value) string {
	if x, ok := ir.AsInt(v); ok {
		return "i:" + v.Type().String() + ":" + strconv.FormatInt(x, 10)
	}
	if x, ok := ir.AsFloat(v); ok {
		return "f:" + strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprintf("p:%p", v)
}

func numberFunction(fn *ir.Function, dom *analysis.Dominator, info *analysis.FuncInfo) bool {
	table := make(map[exprKey]ir.Value)
	changed := false
	var toErase []*ir.Instruction

	var walk func(bb *ir.BasicBlock)
	walk = func(bb *ir.BasicBlock) {
		var pushed []exprKey
		loads := make(map[ir.Value]*ir.Instruction)
		for _, in := range append([]*ir.Instruction(nil), bb.Insts...) {
			if in.Op == ir.OpPhi {
				continue
			}
			switch in.Op {
			case ir.OpStore, ir.OpCall:
				loads = make(map[ir.Value]*ir.Instruction)
			case ir.OpLoad:
				if prev, ok := loads[in.Operands[0]]; ok {
					in.ReplaceAllUsesWith(prev)
					toErase = append(toErase, in)
					changed = true
				} else {
					loads[in.Operands[0]] = in
				}
				continue
			}
			key, ok := makeKey(in, info)
			if !ok {
				continue
			}
			if existing, found := table[key]; found {
				in.ReplaceAllUsesWith(existing)
				toErase = append(toErase, in)
				changed = true
				continue
			}
			table[key] = in
			pushed = append(pushed, key)
		}
		for _, succ := range sortedTreeSucc(dom, bb) {
			walk(succ)
		}
		for _, k := range pushed {
			delete(table, k)
		}
	}
	walk(fn.Entry())

	for i := len(toErase) - 1; i >= 0; i-- {
		toErase[i].EraseFromParent()
	}
	return changed
}
