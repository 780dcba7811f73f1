package analysis

import (
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// Dominator computes immediate dominators, dominance frontiers, and the
// dominator-tree successor relation for every function in the module,
// using the Cooper-Harvey-Kennedy iterative algorithm over DepthOrder's
// post-order numbering.
type Dominator struct {
	idom map[*ir.BasicBlock]*ir.BasicBlock

	Frontier    map[*ir.BasicBlock]map[*ir.BasicBlock]bool
	TreeSucc    map[*ir.BasicBlock]map[*ir.BasicBlock]bool
	postOrderID map[*ir.BasicBlock]int
}

func (a *Dominator) Name() string { return "dominator" }

func (a *Dominator) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillNone
	pass.Require[*DepthOrder](au)
}

func (a *Dominator) Run(mod *ir.Module, mgr *pass.Manager) bool {
	depth := pass.GetResult[*DepthOrder](mgr)
	a.postOrderID = depth.PostOrderID
	a.idom = make(map[*ir.BasicBlock]*ir.BasicBlock)
	a.Frontier = make(map[*ir.BasicBlock]map[*ir.BasicBlock]bool)
	a.TreeSucc = make(map[*ir.BasicBlock]map[*ir.BasicBlock]bool)

	for _, fn := range mod.Functions {
		if fn.IsExternal() {
			continue
		}
		for _, bb := range fn.Blocks {
			a.Frontier[bb] = make(map[*ir.BasicBlock]bool)
			a.TreeSucc[bb] = make(map[*ir.BasicBlock]bool)
		}
		a.createIdom(fn, depth.RPO[fn])
		a.createFrontier(fn)
		a.createTreeSucc(fn)
	}
	return false
}

func (a *Dominator) createIdom(fn *ir.Function, rpo []*ir.BasicBlock) {
	root := fn.Entry()
	a.idom[root] = root

	changed := true
	for changed {
		changed = false
		for _, bb := range rpo {
			if bb == root {
				continue
			}
			var newIdom *ir.BasicBlock
			for _, p := range bb.Preds {
				if a.idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = a.intersect(p, newIdom)
			}
			ir.Invariant(newIdom != nil, "no processed predecessor for %s", bb.Name())
			if a.idom[bb] != newIdom {
				a.idom[bb] = newIdom
				changed = true
			}
		}
	}
}

func (a *Dominator) intersect(b1, b2 *ir.BasicBlock) *ir.BasicBlock {
	for b1 != b2 {
		for a.postOrderID[b1] < a.postOrderID[b2] {
			b1 = a.idom[b1]
		}
		for a.postOrderID[b2] < a.postOrderID[b1] {
			b2 = a.idom[b2]
		}
	}
	return b1
}

func (a *Dominator) createFrontier(fn *ir.Function) {
	for _, bb := range fn.Blocks {
		if len(bb.Preds) < 2 {
			continue
		}
		for _, p := range bb.Preds {
			runner := p
			for runner != a.idom[bb] {
				a.Frontier[runner][bb] = true
				runner = a.idom[runner]
			}
		}
	}
}

func (a *Dominator) createTreeSucc(fn *ir.Function) {
	for _, bb := range fn.Blocks {
		idom := a.idom[bb]
		if idom != bb {
			a.TreeSucc[idom][bb] = true
		}
	}
}

// IDom returns bb's immediate dominator, or nil if bb is its function's
// entry block.
func (a *Dominator) IDom(bb *ir.BasicBlock) *ir.BasicBlock {
	if d := a.idom[bb]; d != bb {
		return d
	}
	return nil
}

// DominanceFrontier returns the set of blocks in bb's dominance frontier.
func (a *Dominator) DominanceFrontier(bb *ir.BasicBlock) []*ir.BasicBlock {
	out := make([]*ir.BasicBlock, 0, len(a.Frontier[bb]))
	for f := range a.Frontier[bb] {
		out = append(out, f)
	}
	return out
}

// Dominates reports whether domer dominates domee via a BFS of the
// dominator tree rooted at domer.
func (a *Dominator) Dominates(domer, domee *ir.BasicBlock) bool {
	if domer == domee {
		return true
	}
	queue := []*ir.BasicBlock{domer}
	for len(queue) > 0 {
		bb := queue[0]
		queue = queue[1:]
		for s := range a.TreeSucc[bb] {
			if s == domee {
				return true
			}
			queue = append(queue, s)
		}
	}
	return false
}
