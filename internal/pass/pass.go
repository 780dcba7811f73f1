// Package pass provides the analysis/transform scheduling infrastructure
// shared by internal/analysis and internal/transform: a single Pass
// interface, dependency declarations via AnalysisUsage, and a Manager that
// runs passes over a whole module on demand, caching analysis results
// until something invalidates them.
package pass

import (
	"fmt"
	"reflect"

	"github.com/dshills/ssaopt/internal/ir"
)

// KillType says how much of the cached-analysis set a pass invalidates
// once it has run.
type KillType int

const (
	// KillAll invalidates every cached analysis result unconditionally —
	// the zero value, and the safe default for a transform that doesn't
	// track its own invalidation set precisely.
	KillAll KillType = iota
	// KillNormal invalidates exactly the analyses named in Kills.
	KillNormal
	// KillNone invalidates nothing: the pass provably preserves every
	// analysis result already computed. Analyses set this explicitly.
	KillNone
)

// AnalysisUsage declares a pass's dependencies: which passes must run
// before it (Relies), which optionally run right after it as a convenience
// (Posts), and which cached results it invalidates (Kills, read under
// Mode).
type AnalysisUsage struct {
	Relies []reflect.Type
	Posts  []reflect.Type
	Kills  []reflect.Type
	Mode   KillType
}

// Require records that pass T must already be valid (and is run if not)
// before the host pass runs.
func Require[T Pass](au *AnalysisUsage) {
	au.Relies = append(au.Relies, ID[T]())
}

// RunAfter records that pass T should run immediately after the host pass
// when the manager is run with post enabled.
func RunAfter[T Pass](au *AnalysisUsage) {
	au.Posts = append(au.Posts, ID[T]())
}

// Kill records that a successful run of the host pass invalidates T's
// cached result; only consulted when Mode is KillNormal.
func Kill[T Pass](au *AnalysisUsage) {
	au.Kills = append(au.Kills, ID[T]())
}

// Pass is implemented by both analyses and transforms: Run walks the whole
// module (an analysis computes and stores results as its own fields; a
// transform mutates IR in place) and reports whether it changed anything.
type Pass interface {
	Name() string
	GetAnalysisUsage(au *AnalysisUsage)
	Run(mod *ir.Module, mgr *Manager) (changed bool)
}

// ID returns the reflect.Type identifying pass type T, the key the
// manager's pass table and result cache use. Mirrors the teacher's
// template-based PassID<PassName>() with Go's reflection-based generics.
func ID[T Pass]() reflect.Type {
	var zero T
	return reflect.TypeOf(&zero).Elem()
}

func passName(id reflect.Type) string {
	if id.Kind() == reflect.Ptr {
		return id.Elem().Name()
	}
	return id.Name()
}

func invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("pass: invariant violated: "+format, args...))
	}
}
