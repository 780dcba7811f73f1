package transform

import (
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// Algebraic is the pattern-rewrite algebraic simplifier: a fixed point of
// identity/constant-folding rules applied per block, plus a handful of
// combining and strength-reduction rules that recognize repeated operands
// across nested add/mul/div chains.
type Algebraic struct{}

func (t *Algebraic) Name() string { return "algebraic-simplify" }

func (t *Algebraic) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillAll
}

func (t *Algebraic) Run(mod *ir.Module, mgr *pass.Manager) bool {
	changed := false
	for _, fn := range mod.Functions {
		if fn.IsExternal() {
			continue
		}
		for _, bb := range fn.Blocks {
			if simplifyBlock(fn, bb) {
				changed = true
			}
		}
	}
	return changed
}

func simplifyBlock(fn *ir.Function, bb *ir.BasicBlock) bool {
	m := fn.Parent
	changed := false
	ignore := make(map[*ir.Instruction]bool)
	again := true
	for again {
		again = false
		for _, in := range append([]*ir.Instruction(nil), bb.Insts...) {
			if ignore[in] || in.Block() == nil || len(in.Uses()) == 0 {
				continue
			}
			if applyRules(m, bb, in) {
				ignore[in] = true
				changed = true
				again = true
			}
		}
	}
	return changed
}

// asConstInt returns v's constant value and whether v is a ConstInt.
func asConstInt(v ir.Value) (int64, bool) { return ir.AsInt(v) }

// binOperands returns (x, y) if v is a binary instruction of op op.
func asBin(v ir.Value, op ir.Opcode) (x, y ir.Value, ok bool) {
	in, is := v.(*ir.Instruction)
	if !is || in.Op != op {
		return nil, nil, false
	}
	return in.Operands[0], in.Operands[1], true
}

func oneUse(v ir.Value) bool {
	in, ok := v.(*ir.Instruction)
	return ok && len(in.Uses()) == 1
}

func insertBin(m *ir.Module, bb *ir.BasicBlock, before *ir.Instruction, op ir.Opcode, x, y ir.Value) ir.Value {
	_ = m
	return bb.NewBinBefore(before, op, x, y)
}

// applyRules tries every rewrite rule against inst, in the block that owns
// it, and returns whether one applied (rewriting inst's uses and marking
// inst for a later DCE sweep, which deletes it once unused).
func applyRules(m *ir.Module, bb *ir.BasicBlock, inst *ir.Instruction) bool {
	_, i64 := inst.Type().(*ir.I64IntType)
	cint := func(x int64) ir.Value {
		if i64 {
			return m.ConstI64(x)
		}
		return m.ConstInt(32, x)
	}

	switch inst.Op {
	case ir.OpAdd:
		x, y := inst.Operands[0], inst.Operands[1]
		if c, ok := asConstInt(y); ok && c == 0 {
			inst.ReplaceAllUsesWith(x)
			return true
		}
		if c, ok := asConstInt(x); ok && c == 0 {
			inst.ReplaceAllUsesWith(y)
			return true
		}
		// (a - b) + b -> a
		if a, b, ok := asBin(x, ir.OpSub); ok && b == y {
			inst.ReplaceAllUsesWith(a)
			return true
		}
		if a, b, ok := asBin(y, ir.OpSub); ok && b == x {
			inst.ReplaceAllUsesWith(a)
			return true
		}
		// (v + c1) + c2 -> v + (c1+c2)
		if v1, c1v, ok := asBin(x, ir.OpAdd); ok {
			if c1, ok := asConstInt(c1v); ok {
				if c2, ok := asConstInt(y); ok {
					sum := insertBin(m, bb, inst, ir.OpAdd, v1, cint(c1+c2))
					inst.ReplaceAllUsesWith(sum)
					return true
				}
			}
		}
		// (v - c1) + c2 -> v + (c2-c1)
		if v1, c1v, ok := asBin(x, ir.OpSub); ok {
			if c1, ok := asConstInt(c1v); ok {
				if c2, ok := asConstInt(y); ok {
					sum := insertBin(m, bb, inst, ir.OpAdd, v1, cint(c2-c1))
					inst.ReplaceAllUsesWith(sum)
					return true
				}
			}
		}
		if rewriteCombine(m, bb, inst, x, y, i64, cint) {
			return true
		}
	case ir.OpSub:
		x, y := inst.Operands[0], inst.Operands[1]
		if c, ok := asConstInt(y); ok && c == 0 {
			inst.ReplaceAllUsesWith(x)
			return true
		}
		if x == y {
			inst.ReplaceAllUsesWith(cint(0))
			return true
		}
		if v1, c1v, ok := asBin(x, ir.OpSub); ok {
			if c1, ok := asConstInt(c1v); ok {
				if c2, ok := asConstInt(y); ok {
					sum := insertBin(m, bb, inst, ir.OpSub, v1, cint(c1+c2))
					inst.ReplaceAllUsesWith(sum)
					return true
				}
			}
		}
		// (v + c1) - c2 -> v + (c1-c2)
		if v1, c1v, ok := asBin(x, ir.OpAdd); ok {
			if c1, ok := asConstInt(c1v); ok {
				if c2, ok := asConstInt(y); ok {
					sum := insertBin(m, bb, inst, ir.OpAdd, v1, cint(c1-c2))
					inst.ReplaceAllUsesWith(sum)
					return true
				}
			}
		}
		// (v1+v2) - v2/v1 -> v1/v2
		if v1, v2, ok := asBin(x, ir.OpAdd); ok {
			if v2 == y {
				inst.ReplaceAllUsesWith(v1)
				return true
			}
			if v1 == y {
				inst.ReplaceAllUsesWith(v2)
				return true
			}
		}
	case ir.OpMul:
		x, y := inst.Operands[0], inst.Operands[1]
		if c, ok := asConstInt(y); ok {
			if c == 0 {
				inst.ReplaceAllUsesWith(cint(0))
				return true
			}
			if c == 1 {
				inst.ReplaceAllUsesWith(x)
				return true
			}
		}
		if c, ok := asConstInt(x); ok {
			if c == 0 {
				inst.ReplaceAllUsesWith(cint(0))
				return true
			}
			if c == 1 {
				inst.ReplaceAllUsesWith(y)
				return true
			}
		}
		if v1, c1v, ok := asBin(x, ir.OpMul); ok {
			if c1, ok := asConstInt(c1v); ok {
				if c2, ok := asConstInt(y); ok {
					prod := insertBin(m, bb, inst, ir.OpMul, v1, cint(c1*c2))
					inst.ReplaceAllUsesWith(prod)
					return true
				}
			}
		}
		// (v1*v2)/v2 -> v1, from division side handled in OpSDiv case.
		// (a / b) * b -> a
		if a, b, ok := asBin(x, ir.OpSDiv); ok && b == y {
			inst.ReplaceAllUsesWith(a)
			return true
		}
		if a, b, ok := asBin(y, ir.OpSDiv); ok && b == x {
			inst.ReplaceAllUsesWith(a)
			return true
		}
	case ir.OpSDiv:
		x, y := inst.Operands[0], inst.Operands[1]
		if c, ok := asConstInt(x); ok && c == 0 {
			inst.ReplaceAllUsesWith(cint(0))
			return true
		}
		if c, ok := asConstInt(y); ok && c == 1 {
			inst.ReplaceAllUsesWith(x)
			return true
		}
		if v1, c1v, ok := asBin(x, ir.OpSDiv); ok {
			if c1, ok := asConstInt(c1v); ok {
				if c2, ok := asConstInt(y); ok && c1 != 0 && c2 != 0 {
					div := insertBin(m, bb, inst, ir.OpSDiv, v1, cint(c1*c2))
					inst.ReplaceAllUsesWith(div)
					return true
				}
			}
		}
		if v1, v2, ok := asBin(x, ir.OpMul); ok {
			if v2 == y {
				inst.ReplaceAllUsesWith(v1)
				return true
			}
			if v1 == y {
				inst.ReplaceAllUsesWith(v2)
				return true
			}
		}
		if v1, c1v, ok := asBin(x, ir.OpMul); ok {
			if c1, ok := asConstInt(c1v); ok {
				if c2, ok := asConstInt(y); ok && c2 != 0 && c1%c2 == 0 {
					mul := insertBin(m, bb, inst, ir.OpMul, v1, cint(c1/c2))
					inst.ReplaceAllUsesWith(mul)
					return true
				}
			}
		}
	}
	return false
}

// rewriteCombine handles the "combining" rules that recognize a repeated
// operand across an add chain or an add-of-mul shape.
func rewriteCombine(m *ir.Module, bb *ir.BasicBlock, inst *ir.Instruction, x, y ir.Value, i64 bool, cint func(int64) ir.Value) bool {
	// (v1 + v2) + v3, one-use inner add, with a repeated operand.
	if v1, v2, ok := asBin(x, ir.OpAdd); ok && oneUse(x) {
		v3 := y
		switch {
		case v1 == v2 && v2 == v3:
			mul := insertBin(m, bb, inst, ir.OpMul, v1, cint(3))
			inst.ReplaceAllUsesWith(mul)
			return true
		case v1 == v3:
			mul := insertBin(m, bb, inst, ir.OpMul, v2, cint(2))
			sum := insertBin(m, bb, inst, ir.OpAdd, v1, mul)
			inst.ReplaceAllUsesWith(sum)
			return true
		case v1 == v2:
			mul := insertBin(m, bb, inst, ir.OpMul, v1, cint(2))
			sum := insertBin(m, bb, inst, ir.OpAdd, v3, mul)
			inst.ReplaceAllUsesWith(sum)
			return true
		case v2 == v3:
			mul := insertBin(m, bb, inst, ir.OpMul, v2, cint(2))
			sum := insertBin(m, bb, inst, ir.OpAdd, v1, mul)
			inst.ReplaceAllUsesWith(sum)
			return true
		}
	}
	// v1*v2 + v3, one-use inner mul, v3 equal to one of the factors.
	if v1, v2, ok := asBin(x, ir.OpMul); ok && oneUse(x) {
		v3 := y
		if v1 == v3 || v2 == v3 {
			if v2 == v3 {
				v1, v2 = v2, v1
			}
			times := insertBin(m, bb, inst, ir.OpAdd, v2, cint(1))
			mul := insertBin(m, bb, inst, ir.OpMul, v1, times)
			inst.ReplaceAllUsesWith(mul)
			return true
		}
	}
	// (v1*v2) + (v3*v4), one-use on both, sharing a factor.
	if v1, v2, ok1 := asBin(x, ir.OpMul); ok1 && oneUse(x) {
		if v3, v4, ok2 := asBin(y, ir.OpMul); ok2 && oneUse(y) {
			switch {
			case v1 == v3:
				v1, v2 = v2, v1
				v3, v4 = v4, v3
			case v1 == v4:
				v1, v2 = v2, v1
			case v2 == v3:
				v3, v4 = v4, v3
			case v2 == v4:
			default:
				goto divCombine
			}
			if v2 == v4 {
				sum := insertBin(m, bb, inst, ir.OpAdd, v1, v3)
				prod := insertBin(m, bb, inst, ir.OpMul, sum, v2)
				inst.ReplaceAllUsesWith(prod)
				return true
			}
		}
	}
divCombine:
	// (v1/v2) + (v3/v2), one-use on both.
	if v1, v2, ok1 := asBin(x, ir.OpSDiv); ok1 && oneUse(x) {
		if v3, v4, ok2 := asBin(y, ir.OpSDiv); ok2 && oneUse(y) && v2 == v4 {
			sum := insertBin(m, bb, inst, ir.OpAdd, v1, v3)
			div := insertBin(m, bb, inst, ir.OpSDiv, sum, v2)
			inst.ReplaceAllUsesWith(div)
			return true
		}
	}
	return false
}
