// Package analysis holds the read-only passes the transform package builds
// on: reverse-post-order/post-order numbering, dominance, natural-loop
// discovery, and simple whole-function facts like purity and the call
// graph. Each analysis's result maps are keyed directly by *ir.BasicBlock
// or *ir.Function, so one Run call computes the whole module's answer at
// once without needing a function-scoped cache.
package analysis

import (
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// DepthOrder computes, per function, a reverse post-order block list and
// each block's post-order index — the shared numbering Dominator is built
// on.
type DepthOrder struct {
	RPO         map[*ir.Function][]*ir.BasicBlock
	PostOrderID map[*ir.BasicBlock]int
}

func (a *DepthOrder) Name() string { return "depth-order" }

func (a *DepthOrder) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillNone
}

func (a *DepthOrder) Run(mod *ir.Module, mgr *pass.Manager) bool {
	a.RPO = make(map[*ir.Function][]*ir.BasicBlock)
	a.PostOrderID = make(map[*ir.BasicBlock]int)
	for _, fn := range mod.Functions {
		if fn.IsExternal() {
			continue
		}
		visited := make(map[*ir.BasicBlock]bool)
		postOrder := postOrderVisit(fn.Entry(), visited, a.PostOrderID, nil)
		rpo := make([]*ir.BasicBlock, len(postOrder))
		for i, bb := range postOrder {
			rpo[len(postOrder)-1-i] = bb
		}
		a.RPO[fn] = rpo
	}
	return false
}

func postOrderVisit(bb *ir.BasicBlock, visited map[*ir.BasicBlock]bool, ids map[*ir.BasicBlock]int, out []*ir.BasicBlock) []*ir.BasicBlock {
	visited[bb] = true
	for _, s := range bb.Succs {
		if !visited[s] {
			out = postOrderVisit(s, visited, ids, out)
		}
	}
	ids[bb] = len(out)
	return append(out, bb)
}
