package pass

import (
	"reflect"

	"github.com/dshills/ssaopt/internal/ir"
)

// Tracer receives one line per pass invocation, for the -trace CLI flag.
type Tracer func(format string, args ...any)

type passInfo struct {
	p     Pass
	valid bool
}

// Manager owns the module being optimized and schedules passes over it.
// Each registered pass runs at most once between invalidations; an
// analysis caches its result as its own fields, retrieved later by
// GetResult.
type Manager struct {
	mod        *ir.Module
	passes     map[reflect.Type]*passInfo
	order      []reflect.Type
	running    map[reflect.Type]bool
	ranHistory []string
	trace      Tracer
}

// NewManager returns a Manager that will run passes over mod. Trace, if
// non-nil, receives a line for every pass invocation and cache
// invalidation.
func NewManager(mod *ir.Module, trace Tracer) *Manager {
	if trace == nil {
		trace = func(string, ...any) {}
	}
	return &Manager{
		mod:     mod,
		passes:  make(map[reflect.Type]*passInfo),
		running: make(map[reflect.Type]bool),
		trace:   trace,
	}
}

// Module returns the module this manager optimizes.
func (mgr *Manager) Module() *ir.Module { return mgr.mod }

// Add registers a pass under its own type, at most once. Safe to call
// multiple times with the same T; later calls are no-ops.
func Add[T Pass](mgr *Manager, p T) {
	id := ID[T]()
	if _, ok := mgr.passes[id]; ok {
		return
	}
	mgr.passes[id] = &passInfo{p: p}
}

// GetResult returns analysis T, running it first (after satisfying its own
// dependencies) if its cached result is stale or has never been computed.
func GetResult[T Pass](mgr *Manager) T {
	id := ID[T]()
	info := mgr.at(id)
	if !info.valid {
		mgr.runSingle(id, false, false)
	}
	p, ok := info.p.(T)
	invariant(ok, "pass %s has unexpected type", passName(id))
	return p
}

// Run executes order in sequence, skipping any pass already valid. When
// post is true, each pass's declared Posts also run immediately after it.
func (mgr *Manager) Run(order []reflect.Type, post bool) {
	for _, id := range order {
		mgr.runSingle(id, false, post)
	}
}

// RunIteratively repeats order until a full pass over it produces no
// change, the fixed-point loop Phase 2 pipelines use for passes like
// algebraic-simplify and DCE that can re-expose each other's work.
func (mgr *Manager) RunIteratively(order []reflect.Type) {
	for {
		changed := false
		for _, id := range order {
			if mgr.runSingle(id, true, false) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// Reset marks every registered pass invalid, forcing full recomputation on
// the next Run/GetResult.
func (mgr *Manager) Reset() {
	for _, info := range mgr.passes {
		info.valid = false
	}
}

func (mgr *Manager) at(id reflect.Type) *passInfo {
	info, ok := mgr.passes[id]
	invariant(ok, "pass %s was never added", passName(id))
	return info
}

func (mgr *Manager) runSingle(id reflect.Type, force, post bool) bool {
	info := mgr.at(id)
	if info.valid && !force {
		return false
	}
	invariant(!mgr.running[id], "cyclic pass dependency on %s", passName(id))

	var au AnalysisUsage
	info.p.GetAnalysisUsage(&au)

	mgr.running[id] = true
	for _, relyID := range au.Relies {
		if !mgr.at(relyID).valid {
			mgr.runSingle(relyID, false, false)
		}
	}

	mgr.trace("run %s", info.p.Name())
	changed := info.p.Run(mgr.mod, mgr)
	mgr.ranHistory = append(mgr.ranHistory, info.p.Name())
	mgr.running[id] = false

	switch au.Mode {
	case KillAll:
		mgr.trace("%s invalidates all analyses", info.p.Name())
		for otherID, other := range mgr.passes {
			if otherID != id {
				other.valid = false
			}
		}
	case KillNormal:
		for _, killID := range au.Kills {
			mgr.trace("%s invalidates %s", info.p.Name(), passName(killID))
			mgr.at(killID).valid = false
		}
	case KillNone:
	}

	if post {
		for _, postID := range au.Posts {
			if mgr.runSingle(postID, force, post) {
				changed = true
			}
		}
	}
	info.valid = true
	return changed
}

// PassesRun returns the name of every pass invocation so far, in order,
// including repeats from RunIteratively — used by -trace output.
func (mgr *Manager) PassesRun() []string { return mgr.ranHistory }
