package pipeline_test

import (
	"testing"

	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pipeline"
)

// buildRedundantAdd builds a function whose mem2reg+GVN+DCE fixed point
// should collapse to a single constant return: two locals computed the
// same way, one added to the other, then only the sum returned.
func buildRedundantAdd() *ir.Module {
	m := ir.NewModule()
	fn := m.NewFunction("main", m.I32(), nil, nil)
	entry := fn.NewBlock("entry")
	a := entry.NewAlloca(m.I32())
	b := entry.NewAlloca(m.I32())
	entry.NewStore(m.ConstInt(32, 1), a)
	entry.NewStore(m.ConstInt(32, 1), b)
	la := entry.NewLoad(m.I32(), a)
	lb := entry.NewLoad(m.I32(), b)
	sum1 := entry.NewAdd(la, m.ConstInt(32, 2))
	sum2 := entry.NewAdd(lb, m.ConstInt(32, 2))
	total := entry.NewAdd(sum1, sum2)
	entry.NewRet(total)
	return m
}

func TestRunOptimizeConverges(t *testing.T) {
	m := buildRedundantAdd()
	mgr := pipeline.New(m, nil)
	pipeline.Run(mgr, true)

	fn := m.FindFunction("main")
	if fn.Entry() == nil {
		t.Fatal("function has no entry block")
	}
	term := fn.Entry().Terminator()
	if term.Op != ir.OpRet {
		t.Fatalf("want a ret terminator after optimization, got %s", term.Op)
	}
	if c, ok := ir.AsInt(term.Operands[0]); !ok || c != 6 {
		t.Fatalf("want the fully folded module to return the constant 6 (1+2 added to itself), got %v", term.Operands[0])
	}
}

// TestRunOptimizeScenarioThree covers spec.md §8 scenario 3: algebraic
// simplify collapses (a + 0) * 1 - (a - a) down to a.
func TestRunOptimizeScenarioThree(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), []ir.Type{m.I32()}, []string{"a"})
	entry := fn.NewBlock("entry")
	a := fn.Params[0]
	addZero := entry.NewAdd(a, m.ConstInt(32, 0))
	mulOne := entry.NewMul(addZero, m.ConstInt(32, 1))
	selfSub := entry.NewSub(a, a)
	result := entry.NewSub(mulOne, selfSub)
	entry.NewRet(result)

	mgr := pipeline.New(m, nil)
	pipeline.Run(mgr, true)

	term := fn.Entry().Terminator()
	if term.Operands[0] != ir.Value(a) {
		t.Errorf("want return a after full optimization, got %v", term.Operands[0])
	}
}

// TestRunOptimizeScenarioFour covers spec.md §8 scenario 4: GVN collapses
// two GEPs with identical constant indices into the same alloca, separated
// by no intervening store, down to a single load used twice.
func TestRunOptimizeScenarioFour(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), nil, nil)
	entry := fn.NewBlock("entry")
	arr := entry.NewAlloca(m.NewArray(m.I32(), 4))
	entry.NewStore(m.ConstInt(32, 7), entry.NewGEP(m.I32(), arr, m.ConstInt(32, 0), m.ConstInt(32, 2)))
	g1 := entry.NewGEP(m.I32(), arr, m.ConstInt(32, 0), m.ConstInt(32, 2))
	l1 := entry.NewLoad(m.I32(), g1)
	g2 := entry.NewGEP(m.I32(), arr, m.ConstInt(32, 0), m.ConstInt(32, 2))
	l2 := entry.NewLoad(m.I32(), g2)
	entry.NewRet(entry.NewAdd(l1, l2))

	mgr := pipeline.New(m, nil)
	pipeline.Run(mgr, true)

	loads := 0
	for _, bb := range fn.Blocks {
		for _, in := range bb.Insts {
			if in.Op == ir.OpLoad {
				loads++
			}
		}
	}
	if loads > 1 {
		t.Errorf("want the redundant load eliminated, got %d loads", loads)
	}
}

// TestRunOptimizeScenarioFive covers spec.md §8 scenario 5: a fixed-count
// loop summing 0..3 unrolls and folds down to the constant 6.
func TestRunOptimizeScenarioFive(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), nil, nil)

	entry := fn.NewBlock("entry")
	preheader := fn.NewBlock("preheader")
	header := fn.NewBlock("header")
	body := fn.NewBlock("body")
	exit := fn.NewBlock("exit")

	entry.NewBr(preheader)
	preheader.NewBr(header)

	i := header.NewPhi(m.I32())
	sum := header.NewPhi(m.I32())
	i.AddIncoming(m.ConstInt(32, 0), preheader)
	sum.AddIncoming(m.ConstInt(32, 0), preheader)
	cond := header.NewICmp(ir.PredLT, i, m.ConstInt(32, 4))
	header.NewCondBr(cond, body, exit)

	sumNext := body.NewAdd(sum, i)
	iNext := body.NewAdd(i, m.ConstInt(32, 1))
	body.NewBr(header)
	i.AddIncoming(iNext, body)
	sum.AddIncoming(sumNext, body)

	exitSum := exit.NewPhi(m.I32())
	exitSum.AddIncoming(sum, header)
	exit.NewRet(exitSum)

	mgr := pipeline.New(m, nil)
	pipeline.Run(mgr, true)

	found := false
	for _, bb := range fn.Blocks {
		term := bb.Terminator()
		if term != nil && term.Op == ir.OpRet {
			if c, ok := ir.AsInt(term.Operands[0]); ok && c == 6 {
				found = true
			}
		}
	}
	if !found {
		t.Error("want the unrolled, folded loop to return the constant 6")
	}
}

// TestRunOptimizeScenarioSix covers spec.md §8 scenario 6: inlining a pure
// callee leaves its add directly in the caller with no remaining call.
func TestRunOptimizeScenarioSix(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", m.I32(), []ir.Type{m.I32()}, []string{"x"})
	fEntry := f.NewBlock("entry")
	fEntry.NewRet(fEntry.NewAdd(f.Params[0], m.ConstInt(32, 1)))

	main := m.NewFunction("main", m.I32(), []ir.Type{m.I32()}, []string{"x"})
	mainEntry := main.NewBlock("entry")
	call := mainEntry.NewCall(f, main.Params[0])
	mainEntry.NewRet(call)

	mgr := pipeline.New(m, nil)
	pipeline.Run(mgr, true)

	for _, bb := range main.Blocks {
		for _, in := range bb.Insts {
			if in.Op == ir.OpCall {
				t.Error("want no remaining call instruction after inlining")
			}
		}
	}
	found := false
	for _, bb := range main.Blocks {
		for _, in := range bb.Insts {
			if in.Op == ir.OpAdd && in.Operands[0] == main.Params[0] {
				found = true
			}
		}
	}
	if !found {
		t.Error("want the callee's add inlined directly into main")
	}
}

func TestRunMinimalOnlyPromotesAndSweeps(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), nil, nil)
	entry := fn.NewBlock("entry")
	slot := entry.NewAlloca(m.I32())
	entry.NewStore(m.ConstInt(32, 5), slot)
	entry.NewRet(entry.NewLoad(m.I32(), slot))

	mgr := pipeline.New(m, nil)
	pipeline.Run(mgr, false)

	for _, bb := range fn.Blocks {
		for _, in := range bb.Insts {
			if in.Op == ir.OpAlloca {
				t.Errorf("want mem2reg to have promoted the alloca even at -O0")
			}
		}
	}
}

func TestRunCustomOnlyRunsNamedPasses(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.I32(), nil, nil)
	entry := fn.NewBlock("entry")
	slot := entry.NewAlloca(m.I32())
	entry.NewStore(m.ConstInt(32, 5), slot)
	entry.NewRet(entry.NewLoad(m.I32(), slot))

	mgr := pipeline.New(m, nil)
	pipeline.RunCustom(mgr, []string{"dead-code"})

	found := false
	for _, bb := range fn.Blocks {
		for _, in := range bb.Insts {
			if in.Op == ir.OpAlloca {
				found = true
			}
		}
	}
	if !found {
		t.Error("running only dead-code (without mem2reg) should leave the slot itself in place")
	}
}

func TestRunCustomSkipsUnknownNames(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", m.Void(), nil, nil)
	fn.NewBlock("entry").NewRet(nil)

	var traced []string
	mgr := pipeline.New(m, func(format string, args ...any) {
		traced = append(traced, format)
	})
	pipeline.RunCustom(mgr, []string{"not-a-real-pass", "dead-code"})
	if len(traced) == 0 {
		t.Error("want dead-code to have run and traced at least one line")
	}
}
