package analysis

import (
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// ExitEdge is a loop exit: an edge from exiting (a block inside the loop)
// to target (a block outside it).
type ExitEdge struct {
	Exiting *ir.BasicBlock
	Target  *ir.BasicBlock
}

// LoopInfo describes one natural loop: its header, the latch blocks whose
// back edge targets the header, every block in the loop body (including
// the header), the unique predecessor of the header from outside the loop
// (nil if the header has more than one such predecessor), and the set of
// edges leaving the loop.
type LoopInfo struct {
	Header    *ir.BasicBlock
	Latches   []*ir.BasicBlock
	Blocks    map[*ir.BasicBlock]bool
	Preheader *ir.BasicBlock
	Exits     []ExitEdge
}

// LoopFind finds every natural loop in the module by looking for back
// edges (a predecessor dominated by the block it branches to) and walking
// backward from each latch to the header.
type LoopFind struct {
	dom *Dominator

	// ByHeader maps each loop header to its LoopInfo.
	ByHeader map[*ir.BasicBlock]*LoopInfo
}

func (a *LoopFind) Name() string { return "loop-find" }

func (a *LoopFind) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillNone
	pass.Require[*Dominator](au)
}

func (a *LoopFind) Run(mod *ir.Module, mgr *pass.Manager) bool {
	a.dom = pass.GetResult[*Dominator](mgr)
	a.ByHeader = make(map[*ir.BasicBlock]*LoopInfo)

	for _, fn := range mod.Functions {
		if fn.IsExternal() {
			continue
		}
		for _, bb := range fn.Blocks {
			for _, pred := range bb.Preds {
				if !a.dom.Dominates(bb, pred) {
					continue
				}
				// pred -> bb is a back edge: bb is a loop header, pred a
				// latch.
				loop, ok := a.ByHeader[bb]
				if !ok {
					loop = &LoopInfo{Header: bb, Blocks: make(map[*ir.BasicBlock]bool)}
					a.ByHeader[bb] = loop
				}
				loop.Latches = append(loop.Latches, pred)
				for b := range findBodyByLatch(bb, pred) {
					loop.Blocks[b] = true
				}
			}
		}
	}
	for _, loop := range a.ByHeader {
		loop.Preheader = findPreheader(loop)
		loop.Exits = findExits(loop)
	}
	return false
}

// findPreheader returns the header's unique predecessor from outside the
// loop, or nil if there is more than one (an irreducible entry the loop
// simplifier would need to fix up first).
func findPreheader(loop *LoopInfo) *ir.BasicBlock {
	var preheader *ir.BasicBlock
	for _, p := range loop.Header.Preds {
		if loop.Blocks[p] {
			continue
		}
		if preheader != nil {
			return nil
		}
		preheader = p
	}
	return preheader
}

// findExits walks every block in the loop and records each edge whose
// target lies outside it.
func findExits(loop *LoopInfo) []ExitEdge {
	var exits []ExitEdge
	for bb := range loop.Blocks {
		for _, s := range bb.Succs {
			if !loop.Blocks[s] {
				exits = append(exits, ExitEdge{Exiting: bb, Target: s})
			}
		}
	}
	return exits
}

func findBodyByLatch(header, latch *ir.BasicBlock) map[*ir.BasicBlock]bool {
	body := map[*ir.BasicBlock]bool{header: true}
	queue := []*ir.BasicBlock{latch}
	for len(queue) > 0 {
		bb := queue[0]
		queue = queue[1:]
		if body[bb] {
			continue
		}
		body[bb] = true
		for _, p := range bb.Preds {
			if !body[p] {
				queue = append(queue, p)
			}
		}
	}
	return body
}

// ForFunction returns every loop header found within fn.
func (a *LoopFind) ForFunction(fn *ir.Function) []*LoopInfo {
	out := make([]*LoopInfo, 0)
	for _, bb := range fn.Blocks {
		if loop, ok := a.ByHeader[bb]; ok {
			out = append(out, loop)
		}
	}
	return out
}
