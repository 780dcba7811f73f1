package transform_test

import (
	"reflect"
	"testing"

	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
	"github.com/dshills/ssaopt/internal/pipeline"
	"github.com/dshills/ssaopt/internal/transform"
)

func runAlgebraic(mod *ir.Module) {
	mgr := pipeline.New(mod, nil)
	mgr.Run([]reflect.Type{pass.ID[*transform.Algebraic]()}, false)
}

// TestAlgebraicCancelsSubThenAdd covers (a - b) + b -> a.
func TestAlgebraicCancelsSubThenAdd(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), []ir.Type{m.I32(), m.I32()}, []string{"a", "b"})
	entry := fn.NewBlock("entry")
	a, b := fn.Params[0], fn.Params[1]
	sub := entry.NewSub(a, b)
	add := entry.NewAdd(sub, b)
	entry.NewRet(add)

	runAlgebraic(m)

	ret := entry.Terminator()
	if ret.Operands[0] != ir.Value(a) {
		t.Errorf("want (a - b) + b folded to a, got %v", ret.Operands[0])
	}
}

// TestAlgebraicCancelsSubThenAddCommuted covers b + (a - b) -> a.
func TestAlgebraicCancelsSubThenAddCommuted(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), []ir.Type{m.I32(), m.I32()}, []string{"a", "b"})
	entry := fn.NewBlock("entry")
	a, b := fn.Params[0], fn.Params[1]
	sub := entry.NewSub(a, b)
	add := entry.NewAdd(b, sub)
	entry.NewRet(add)

	runAlgebraic(m)

	ret := entry.Terminator()
	if ret.Operands[0] != ir.Value(a) {
		t.Errorf("want b + (a - b) folded to a, got %v", ret.Operands[0])
	}
}

// TestAlgebraicCancelsDivThenMul covers (a / b) * b -> a.
func TestAlgebraicCancelsDivThenMul(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), []ir.Type{m.I32(), m.I32()}, []string{"a", "b"})
	entry := fn.NewBlock("entry")
	a, b := fn.Params[0], fn.Params[1]
	div := entry.NewSDiv(a, b)
	mul := entry.NewMul(div, b)
	entry.NewRet(mul)

	runAlgebraic(m)

	ret := entry.Terminator()
	if ret.Operands[0] != ir.Value(a) {
		t.Errorf("want (a / b) * b folded to a, got %v", ret.Operands[0])
	}
}

// TestAlgebraicCancelsDivThenMulCommuted covers b * (a / b) -> a.
func TestAlgebraicCancelsDivThenMulCommuted(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), []ir.Type{m.I32(), m.I32()}, []string{"a", "b"})
	entry := fn.NewBlock("entry")
	a, b := fn.Params[0], fn.Params[1]
	div := entry.NewSDiv(a, b)
	mul := entry.NewMul(b, div)
	entry.NewRet(mul)

	runAlgebraic(m)

	ret := entry.Terminator()
	if ret.Operands[0] != ir.Value(a) {
		t.Errorf("want b * (a / b) folded to a, got %v", ret.Operands[0])
	}
}

// TestAlgebraicFoldsAddChainWithConstants covers (v - c1) + c2 -> v + (c2-c1)
// and confirms the constant-combine rules still hold alongside the new
// value-level cancellation rules.
func TestAlgebraicFoldsAddChainWithConstants(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), []ir.Type{m.I32()}, []string{"v"})
	entry := fn.NewBlock("entry")
	v := fn.Params[0]
	sub := entry.NewSub(v, m.ConstInt(32, 3))
	add := entry.NewAdd(sub, m.ConstInt(32, 5))
	entry.NewRet(add)

	runAlgebraic(m)

	ret := entry.Terminator()
	result, ok := ret.Operands[0].(*ir.Instruction)
	if !ok || result.Op != ir.OpAdd {
		t.Fatalf("want a single add left after folding, got %v", ret.Operands[0])
	}
	if c, ok := ir.AsInt(result.Operands[1]); !ok || c != 2 {
		t.Errorf("want v + 2, got constant %v", result.Operands[1])
	}
}

// TestAlgebraicCancelsSelfSubtraction covers a - a -> 0, the identity
// scenario 3's (a - a) sub-term depends on.
func TestAlgebraicCancelsSelfSubtraction(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), []ir.Type{m.I32()}, []string{"a"})
	entry := fn.NewBlock("entry")
	a := fn.Params[0]
	sub := entry.NewSub(a, a)
	entry.NewRet(sub)

	runAlgebraic(m)

	ret := entry.Terminator()
	if c, ok := ir.AsInt(ret.Operands[0]); !ok || c != 0 {
		t.Errorf("want a - a folded to 0, got %v", ret.Operands[0])
	}
}

// TestAlgebraicFoldsScenarioThree reproduces the end-to-end case from
// spec.md §8: (a + 0) * 1 - (a - a) simplifies all the way down to a.
func TestAlgebraicFoldsScenarioThree(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), []ir.Type{m.I32()}, []string{"a"})
	entry := fn.NewBlock("entry")
	a := fn.Params[0]
	addZero := entry.NewAdd(a, m.ConstInt(32, 0))
	mulOne := entry.NewMul(addZero, m.ConstInt(32, 1))
	selfSub := entry.NewSub(a, a)
	result := entry.NewSub(mulOne, selfSub)
	entry.NewRet(result)

	runAlgebraic(m)

	ret := entry.Terminator()
	if ret.Operands[0] != ir.Value(a) {
		t.Errorf("want (a + 0) * 1 - (a - a) folded to a, got %v", ret.Operands[0])
	}
}
