package transform_test

import (
	"reflect"
	"testing"

	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
	"github.com/dshills/ssaopt/internal/pipeline"
	"github.com/dshills/ssaopt/internal/transform"
)

func TestDCERemovesDeadArithmetic(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), nil, nil)
	entry := fn.NewBlock("entry")
	// dead: never read by anything live
	entry.NewAdd(m.ConstInt(32, 1), m.ConstInt(32, 2))
	entry.NewRet(m.ConstInt(32, 0))

	mgr := pipeline.New(m, nil)
	mgr.Run([]reflect.Type{pass.ID[*transform.DCE]()}, false)

	if countOpcode(fn, ir.OpAdd) != 0 {
		t.Errorf("want the dead add removed, still found %d", countOpcode(fn, ir.OpAdd))
	}
}

func TestDCERemovesUnusedFunction(t *testing.T) {
	m := ir.NewModule()
	main := m.NewFunction("main", m.Void(), nil, nil)
	main.NewBlock("entry").NewRet(nil)
	unused := m.NewFunction("unused", m.Void(), nil, nil)
	unused.NewBlock("entry").NewRet(nil)

	mgr := pipeline.New(m, nil)
	mgr.Run([]reflect.Type{pass.ID[*transform.DCE]()}, false)

	if m.FindFunction("unused") != nil {
		t.Error("want the unused function swept away")
	}
	if m.FindFunction("main") == nil {
		t.Error("main must never be swept, even with no callers")
	}
}

func TestDCEKeepsStoresToEscapingMemory(t *testing.T) {
	m := ir.NewModule()
	g := m.NewGlobal("counter", m.I32(), m.Zero(m.I32()))
	fn := m.NewFunction("bump", m.Void(), nil, nil)
	entry := fn.NewBlock("entry")
	entry.NewStore(m.ConstInt(32, 1), g)
	entry.NewRet(nil)

	mgr := pipeline.New(m, nil)
	mgr.Run([]reflect.Type{pass.ID[*transform.DCE]()}, false)

	if countOpcode(fn, ir.OpStore) != 1 {
		t.Errorf("want the store to the global kept (it escapes), found %d", countOpcode(fn, ir.OpStore))
	}
}
