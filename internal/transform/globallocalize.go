package transform

import (
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// GlobalLocalize narrows a global variable's scope when it's safe to:
// a scalar global touched by only one function sinks into an alloca at
// that function's entry (exposing it to mem2reg); an array global that's
// only ever read, never stored to, has its loads replaced outright by the
// indexed element of its constant initializer.
type GlobalLocalize struct{}

func (t *GlobalLocalize) Name() string { return "global-localize" }

func (t *GlobalLocalize) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillAll
}

func (t *GlobalLocalize) Run(mod *ir.Module, mgr *pass.Manager) bool {
	changed := false
	for _, g := range append([]*ir.GlobalVariable(nil), mod.Globals...) {
		switch classifyGlobal(g) {
		case sinkBaseType:
			sinkGlobal(mod, g)
			changed = true
		case propConstArray:
			propConstGlobal(mod, g)
			changed = true
		}
	}
	return changed
}

type globalAction int

const (
	skipGlobal globalAction = iota
	sinkBaseType
	propConstArray
)

func classifyGlobal(g *ir.GlobalVariable) globalAction {
	if len(g.Uses()) == 0 {
		return skipGlobal
	}
	switch g.ElemType.(type) {
	case *ir.IntType, *ir.I64IntType, *ir.FloatType:
		var fn *ir.Function
		for _, u := range g.Uses() {
			f := u.User.Block().Parent
			if fn == nil {
				fn = f
			} else if fn != f {
				return skipGlobal
			}
		}
		return sinkBaseType
	case *ir.ArrayType:
		for _, u := range g.Uses() {
			if u.User.Op != ir.OpGEP {
				return skipGlobal
			}
			for _, gu := range u.User.Uses() {
				if gu.User.Op != ir.OpLoad {
					return skipGlobal
				}
			}
		}
		return propConstArray
	}
	return skipGlobal
}

func sinkGlobal(mod *ir.Module, g *ir.GlobalVariable) {
	fn := g.Uses()[0].User.Block().Parent
	entry := fn.Entry()
	alloc := entry.NewAllocaFirst(g.ElemType)
	entry.NewStoreAfter(alloc, g.Init, alloc)
	g.ReplaceAllUsesWith(alloc)
	mod.RemoveGlobal(g)
}

// constGEPIndices reports the constant index chain of a GEP into global g,
// dropping the leading pointer-decay index (required to be 0).
func constGEPIndices(gep *ir.Instruction, g *ir.GlobalVariable) ([]int64, bool) {
	if gep.Operands[0] != ir.Value(g) {
		return nil, false
	}
	var idxs []int64
	for _, o := range gep.Operands[1:] {
		c, ok := ir.AsInt(o)
		if !ok {
			return nil, false
		}
		idxs = append(idxs, c)
	}
	if len(idxs) == 0 || idxs[0] != 0 {
		return nil, false
	}
	return idxs[1:], true
}

// constAt walks init through idxs (one nested ConstArray level per index),
// returning the element found, or (nil, true) if a ConstZero is reached
// first (every element below it is implicitly zero).
func constAt(init ir.Constant, idxs []int64) (ir.Constant, bool) {
	cur := init
	for _, idx := range idxs {
		switch v := cur.(type) {
		case *ir.ConstZero:
			return nil, true
		case *ir.ConstArray:
			if idx < 0 || int(idx) >= len(v.Elems) {
				return nil, false
			}
			cur = v.Elems[idx]
		default:
			return nil, false
		}
	}
	return cur, false
}

func propConstGlobal(mod *ir.Module, g *ir.GlobalVariable) {
	for _, u := range append([]*ir.Use(nil), g.Uses()...) {
		gep := u.User
		idxs, ok := constGEPIndices(gep, g)
		if !ok {
			continue
		}
		val, isZero := constAt(g.Init, idxs)
		var cv ir.Constant
		switch {
		case isZero:
			cv = mod.Zero(gep.ElemType)
		case val != nil:
			cv = val
		default:
			continue
		}
		for _, lu := range append([]*ir.Use(nil), gep.Uses()...) {
			lu.User.ReplaceAllUsesWith(cv)
		}
	}
}
