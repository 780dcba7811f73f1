package transform

import (
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// ConstFold evaluates an instruction outright when every operand is already
// a compile-time constant: integer/float arithmetic, comparisons, and a phi
// whose incoming values all agree on the same constant. It runs ahead of
// Algebraic in both pipeline phases so the rewrite rules there see already
// folded constants rather than having to special-case two-constant operands
// themselves.
type ConstFold struct{}

func (t *ConstFold) Name() string { return "const-fold" }

func (t *ConstFold) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillAll
}

func (t *ConstFold) Run(mod *ir.Module, mgr *pass.Manager) bool {
	changed := false
	for _, fn := range mod.Functions {
		if fn.IsExternal() {
			continue
		}
		for _, bb := range fn.Blocks {
			if foldBlock(mod, bb) {
				changed = true
			}
		}
	}
	return changed
}

func foldBlock(m *ir.Module, bb *ir.BasicBlock) bool {
	changed := false
	again := true
	for again {
		again = false
		for _, in := range append([]*ir.Instruction(nil), bb.Insts...) {
			if in.Block() == nil || len(in.Uses()) == 0 {
				continue
			}
			if c, ok := foldInst(m, in); ok {
				in.ReplaceAllUsesWith(c)
				changed = true
				again = true
			}
		}
	}
	return changed
}

// constLike reports the integer value of v if it's a ConstInt or ConstZero,
// the only two constant kinds the integer opcodes below ever see.
func constLike(v ir.Value) (int64, bool) {
	switch c := v.(type) {
	case *ir.ConstInt:
		return c.X, true
	case *ir.ConstZero:
		return 0, true
	}
	return 0, false
}

func foldInst(m *ir.Module, in *ir.Instruction) (ir.Constant, bool) {
	switch in.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpSDiv, ir.OpSRem,
		ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpLShr, ir.OpAShr:
		return foldIBinary(m, in)
	case ir.OpICmp:
		return foldICmp(m, in)
	case ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv:
		return foldFBinary(m, in)
	case ir.OpPhi:
		return foldPhi(in)
	}
	return nil, false
}

func intWidth(m *ir.Module, in *ir.Instruction) func(int64) *ir.ConstInt {
	if _, i64 := in.Type().(*ir.I64IntType); i64 {
		return m.ConstI64
	}
	return func(x int64) *ir.ConstInt { return m.ConstInt(32, x) }
}

func foldIBinary(m *ir.Module, in *ir.Instruction) (ir.Constant, bool) {
	l, lok := constLike(in.Operands[0])
	r, rok := constLike(in.Operands[1])
	if !lok || !rok {
		return nil, false
	}
	cint := intWidth(m, in)
	switch in.Op {
	case ir.OpAdd:
		return cint(l + r), true
	case ir.OpSub:
		return cint(l - r), true
	case ir.OpMul:
		return cint(l * r), true
	case ir.OpSDiv:
		if r == 0 {
			return nil, false
		}
		return cint(l / r), true
	case ir.OpSRem:
		if r == 0 {
			return nil, false
		}
		return cint(l % r), true
	case ir.OpAnd:
		return cint(l & r), true
	case ir.OpOr:
		return cint(l | r), true
	case ir.OpXor:
		return cint(l ^ r), true
	case ir.OpShl:
		return cint(l << uint64(r)), true
	case ir.OpLShr:
		return cint(int64(uint64(l) >> uint64(r))), true
	case ir.OpAShr:
		return cint(l >> uint64(r)), true
	}
	return nil, false
}

func foldICmp(m *ir.Module, in *ir.Instruction) (ir.Constant, bool) {
	l, lok := constLike(in.Operands[0])
	r, rok := constLike(in.Operands[1])
	if !lok || !rok {
		return nil, false
	}
	var result bool
	switch in.Pred {
	case ir.PredEQ:
		result = l == r
	case ir.PredNE:
		result = l != r
	case ir.PredLT:
		result = l < r
	case ir.PredLE:
		result = l <= r
	case ir.PredGT:
		result = l > r
	case ir.PredGE:
		result = l >= r
	default:
		return nil, false
	}
	return m.ConstBool(result), true
}

func foldFBinary(m *ir.Module, in *ir.Instruction) (ir.Constant, bool) {
	l, lok := ir.AsFloat(in.Operands[0])
	r, rok := ir.AsFloat(in.Operands[1])
	if !lok || !rok {
		return nil, false
	}
	switch in.Op {
	case ir.OpFAdd:
		return m.ConstFloat(l + r), true
	case ir.OpFSub:
		return m.ConstFloat(l - r), true
	case ir.OpFMul:
		return m.ConstFloat(l * r), true
	case ir.OpFDiv:
		if r == 0 {
			return nil, false
		}
		return m.ConstFloat(l / r), true
	}
	return nil, false
}

// foldPhi folds a phi whose incoming operands all agree on the same
// constant, regardless of which predecessor reaches it.
func foldPhi(in *ir.Instruction) (ir.Constant, bool) {
	if len(in.Operands) == 0 {
		return nil, false
	}
	first, ok := in.Operands[0].(ir.Constant)
	if !ok {
		return nil, false
	}
	for _, op := range in.Operands[1:] {
		c, ok := op.(ir.Constant)
		if !ok || c != first {
			return nil, false
		}
	}
	return first, true
}
