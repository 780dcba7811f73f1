package irdump_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/irdump"
)

func buildAddOne() *ir.Module {
	m := ir.NewModule()
	fn := m.NewFunction("addone", m.I32(), []ir.Type{m.I32()}, []string{"x"})
	entry := fn.NewBlock("entry")
	entry.NewRet(entry.NewAdd(fn.Params[0], m.ConstInt(32, 1)))
	return m
}

func TestTextDumpContainsFunctionSignatureAndBody(t *testing.T) {
	m := buildAddOne()
	var sb strings.Builder
	if err := irdump.Text(&sb, m); err != nil {
		t.Fatalf("Text: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "define addone") {
		t.Errorf("want function signature in output, got:\n%s", out)
	}
	if !strings.Contains(out, "add") {
		t.Errorf("want the add instruction rendered, got:\n%s", out)
	}
	if !strings.Contains(out, "ret i32") {
		t.Errorf("want the ret instruction rendered, got:\n%s", out)
	}
}

func TestTextDumpRendersExternalFunctionAsDeclare(t *testing.T) {
	m := ir.NewModule()
	m.NewFunction("puts", m.I32(), []ir.Type{m.NewPointer(m.I32())}, []string{"s"})

	var sb strings.Builder
	if err := irdump.Text(&sb, m); err != nil {
		t.Fatalf("Text: %v", err)
	}
	if !strings.Contains(sb.String(), "declare puts") {
		t.Errorf("want an external function rendered as declare, got:\n%s", sb.String())
	}
}

func TestStatsCollect(t *testing.T) {
	m := buildAddOne()
	s := irdump.Collect(m)
	assert.Equal(t, 1, s.Functions)
	assert.Equal(t, 1, s.Blocks)
	assert.Equal(t, 2, s.Instructions, "want 2 instructions (add, ret)")
	assert.Contains(t, s.String(), "1 functions")
}

func TestLLVMDumpProducesNonEmptyOutput(t *testing.T) {
	m := buildAddOne()
	out, err := irdump.LLVM(m)
	if err != nil {
		t.Fatalf("LLVM: %v", err)
	}
	if !strings.Contains(out, "addone") {
		t.Errorf("want function name in LLVM dump, got:\n%s", out)
	}
}
