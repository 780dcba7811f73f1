// Package pipeline wires the analysis and transform passes in
// internal/analysis and internal/transform into the two fixed default
// orders a driver selects between with -O, plus the escape hatch of a
// caller-supplied pass list.
package pipeline

import (
	"reflect"

	"github.com/dshills/ssaopt/internal/analysis"
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
	"github.com/dshills/ssaopt/internal/transform"
)

// New registers every known analysis and transform against mod and returns
// the manager, ready for Run/RunCustom. Registration order doesn't
// matter: the manager resolves dependencies through AnalysisUsage.Relies
// at run time, not registration time.
func New(mod *ir.Module, trace pass.Tracer) *pass.Manager {
	mgr := pass.NewManager(mod, trace)

	pass.Add[*analysis.UseDef](mgr, &analysis.UseDef{})
	pass.Add[*analysis.DepthOrder](mgr, &analysis.DepthOrder{})
	pass.Add[*analysis.Dominator](mgr, &analysis.Dominator{})
	pass.Add[*analysis.LoopFind](mgr, &analysis.LoopFind{})
	pass.Add[*analysis.FuncInfo](mgr, &analysis.FuncInfo{})

	pass.Add[*transform.RmUnreachBB](mgr, &transform.RmUnreachBB{})
	pass.Add[*transform.Mem2reg](mgr, &transform.Mem2reg{})
	pass.Add[*transform.GlobalLocalize](mgr, &transform.GlobalLocalize{})
	pass.Add[*transform.ConstFold](mgr, &transform.ConstFold{})
	pass.Add[*transform.Algebraic](mgr, &transform.Algebraic{})
	pass.Add[*transform.GVN](mgr, &transform.GVN{})
	pass.Add[*transform.Inline](mgr, &transform.Inline{})
	pass.Add[*transform.LoopSimplify](mgr, &transform.LoopSimplify{})
	pass.Add[*transform.LICM](mgr, &transform.LICM{})
	pass.Add[*transform.LoopUnroll](mgr, &transform.LoopUnroll{})
	pass.Add[*transform.CFGSimplify](mgr, &transform.CFGSimplify{})
	pass.Add[*transform.PhiCombine](mgr, &transform.PhiCombine{})
	pass.Add[*transform.DCE](mgr, &transform.DCE{})

	return mgr
}

// phase1 is run to a fixed point before anything in phase2 sees the
// module: global-var-localize exposes sunk globals to mem2reg, mem2reg
// exposes arithmetic to GVN/algebraic-simplify, inline exposes a callee's
// body to the loop passes running in the caller. RmUnreachBB is scheduled
// ahead of every Dominator-dependent pass in this list by construction,
// since transform.RmUnreachBB is deliberately not itself wired as a
// Dominator dependency (see DESIGN.md).
func phase1() []reflect.Type {
	return []reflect.Type{
		pass.ID[*transform.RmUnreachBB](),
		pass.ID[*transform.GlobalLocalize](),
		pass.ID[*transform.Mem2reg](),
		pass.ID[*transform.ConstFold](),
		pass.ID[*transform.Algebraic](),
		pass.ID[*transform.GVN](),
		pass.ID[*transform.Inline](),
		pass.ID[*transform.ConstFold](),
		pass.ID[*transform.Algebraic](),
		pass.ID[*transform.LoopSimplify](),
		pass.ID[*transform.LICM](),
		pass.ID[*transform.LoopUnroll](),
		pass.ID[*transform.CFGSimplify](),
		pass.ID[*transform.PhiCombine](),
	}
}

// phase2 re-settles the module once inlining and loop transforms have
// stopped introducing new shapes for phase1 to chew on: it runs against a
// module whose analyses were all reset, so every pass recomputes fresh
// rather than trusting phase1's now-stale cached results.
func phase2() []reflect.Type {
	return []reflect.Type{
		pass.ID[*transform.RmUnreachBB](),
		pass.ID[*transform.ConstFold](),
		pass.ID[*transform.Algebraic](),
		pass.ID[*transform.LoopSimplify](),
		pass.ID[*transform.LICM](),
		pass.ID[*transform.LoopUnroll](),
		pass.ID[*transform.ConstFold](),
		pass.ID[*transform.Algebraic](),
		pass.ID[*transform.CFGSimplify](),
		pass.ID[*transform.PhiCombine](),
		pass.ID[*transform.DCE](),
	}
}

// minimal is the optimize=false order: just enough to turn alloca/load/
// store into registers and sweep away what that leaves dead.
func minimal() []reflect.Type {
	return []reflect.Type{
		pass.ID[*transform.Mem2reg](),
		pass.ID[*transform.DCE](),
	}
}

// Run executes the default pipeline selected by optimize: the two
// fixed-point phases of SPEC §6 when true, or just mem2reg+dead-code when
// false. The pass list passed to level selects between them; levels O1
// through O3 all currently run the identical two-phase order, since the
// distinction SPEC §6 draws is binary (optimize or don't) — see DESIGN.md
// for how -O1/-O2/-O3 map onto that.
func Run(mgr *pass.Manager, optimize bool) {
	if !optimize {
		mgr.Run(minimal(), false)
		return
	}
	mgr.RunIteratively(phase1())
	mgr.Reset()
	mgr.RunIteratively(phase2())
}

// RunCustom runs exactly the pass list named, in order, once each — the
// `-passes` CLI override that replaces the fixed default order with a
// caller-chosen sequence. Unrecognized names are silently skipped rather
// than treated as an error, since the set of valid names is exactly
// ByName's keys and a driver validates against those before calling in.
func RunCustom(mgr *pass.Manager, names []string) {
	var order []reflect.Type
	for _, n := range names {
		if id, ok := ByName[n]; ok {
			order = append(order, id)
		}
	}
	mgr.Run(order, false)
}

// ByName maps the -passes CLI flag's pass names to their registered
// types, for building a custom order with RunCustom.
var ByName = map[string]reflect.Type{
	"rm-unreach-bb":      pass.ID[*transform.RmUnreachBB](),
	"mem2reg":            pass.ID[*transform.Mem2reg](),
	"global-localize":    pass.ID[*transform.GlobalLocalize](),
	"const-fold":         pass.ID[*transform.ConstFold](),
	"algebraic-simplify": pass.ID[*transform.Algebraic](),
	"gvn":                pass.ID[*transform.GVN](),
	"inline":             pass.ID[*transform.Inline](),
	"loop-simplify":      pass.ID[*transform.LoopSimplify](),
	"loop-invariant":     pass.ID[*transform.LICM](),
	"loop-unroll":        pass.ID[*transform.LoopUnroll](),
	"control-flow":       pass.ID[*transform.CFGSimplify](),
	"phi-combine":        pass.ID[*transform.PhiCombine](),
	"dead-code":          pass.ID[*transform.DCE](),
}
