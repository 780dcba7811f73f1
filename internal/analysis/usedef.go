package analysis

import (
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// UseDef is a nominal pass over the use-def chain. The chain itself needs
// no separate index: every ir.Value already maintains its own use-list
// incrementally through Instruction.SetOperand (see internal/ir/value.go),
// so ir.Value.ReplaceAllUsesWith already is the replace_all_use_with
// operation this pass would otherwise have had to build. UseDef exists so
// other passes can still depend on "the use-def chain is up to date" as an
// explicit, schedulable requirement.
type UseDef struct{}

func (a *UseDef) Name() string { return "use-def" }

func (a *UseDef) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillNone
}

func (a *UseDef) Run(mod *ir.Module, mgr *pass.Manager) bool { return false }
