package ir

import "testing"

// buildAddOne returns a module with one function, `addone(x int) int`,
// that returns x+1 through a single ret block.
func buildAddOne() (*Module, *Function) {
	m := NewModule()
	fn := m.NewFunction("addone", m.I32(), []Type{m.I32()}, []string{"x"})
	entry := fn.NewBlock("entry")
	sum := entry.NewAdd(fn.Params[0], m.ConstInt(32, 1))
	entry.NewRet(sum)
	return m, fn
}

func TestNewFunctionDeclaresParams(t *testing.T) {
	m, fn := buildAddOne()
	if len(fn.Params) != 1 {
		t.Fatalf("want 1 param, got %d", len(fn.Params))
	}
	if fn.Params[0].Name() != "x" {
		t.Errorf("want param name %q, got %q", "x", fn.Params[0].Name())
	}
	if fn.Params[0].Type() != m.I32() {
		t.Errorf("param type not interned to the same *IntType instance")
	}
}

func TestFunctionEntryAndExit(t *testing.T) {
	_, fn := buildAddOne()
	if fn.Entry() != fn.Blocks[0] {
		t.Errorf("Entry() should be the first block")
	}
	if fn.Exit() != fn.Blocks[0] {
		t.Errorf("single-block function should report itself as Exit()")
	}
}

func TestExitReturnsNilWithoutAUniqueRet(t *testing.T) {
	m := NewModule()
	fn := m.NewFunction("f", m.Void(), nil, nil)
	a := fn.NewBlock("a")
	b := fn.NewBlock("b")
	a.NewRet(nil)
	b.NewRet(nil)
	if fn.Exit() != nil {
		t.Errorf("want nil Exit() for a function with two ret blocks, got %v", fn.Exit())
	}
}

func TestTypeInterning(t *testing.T) {
	m := NewModule()
	p1 := m.NewPointer(m.I32())
	p2 := m.NewPointer(m.I32())
	if p1 != p2 {
		t.Errorf("structurally equal pointer types should share identity")
	}
	a1 := m.NewArray(m.Float(), 4)
	a2 := m.NewArray(m.Float(), 4)
	if a1 != a2 {
		t.Errorf("structurally equal array types should share identity")
	}
	a3 := m.NewArray(m.Float(), 5)
	if a1 == a3 {
		t.Errorf("arrays of different length must not share identity")
	}
}

func TestConstIntInterning(t *testing.T) {
	m := NewModule()
	c1 := m.ConstInt(32, 7)
	c2 := m.ConstInt(32, 7)
	if c1 != c2 {
		t.Errorf("equal int constants of the same width should share identity")
	}
	c3 := m.ConstI64(7)
	if Value(c1) == Value(c3) {
		t.Errorf("constants of different bit width must not share identity")
	}
}

func TestCondBrWiresEdgesAndPhiIncoming(t *testing.T) {
	m := NewModule()
	fn := m.NewFunction("f", m.I32(), []Type{m.I1()}, []string{"c"})
	entry := fn.NewBlock("entry")
	thenBB := fn.NewBlock("then")
	elseBB := fn.NewBlock("else")
	join := fn.NewBlock("join")

	entry.NewCondBr(fn.Params[0], thenBB, elseBB)
	thenBB.NewBr(join)
	elseBB.NewBr(join)

	phi := join.NewPhi(m.I32())
	phi.AddIncoming(m.ConstInt(32, 1), thenBB)
	phi.AddIncoming(m.ConstInt(32, 2), elseBB)
	join.NewRet(phi)

	if len(join.Preds) != 2 {
		t.Fatalf("want 2 preds on join, got %d", len(join.Preds))
	}
	if v, ok := phi.IncomingFor(thenBB); !ok || v.(*ConstInt).X != 1 {
		t.Errorf("phi incoming for then-block wrong: %v, %v", v, ok)
	}
}

func TestRemoveBlockSeversEdges(t *testing.T) {
	m := NewModule()
	fn := m.NewFunction("f", m.Void(), nil, nil)
	a := fn.NewBlock("a")
	b := fn.NewBlock("b")
	a.NewBr(b)
	b.NewRet(nil)

	fn.RemoveBlock(b)
	if len(a.Succs) != 0 {
		t.Errorf("removing b should sever a's outgoing edge")
	}
	if len(fn.Blocks) != 1 {
		t.Errorf("want 1 remaining block, got %d", len(fn.Blocks))
	}
}
