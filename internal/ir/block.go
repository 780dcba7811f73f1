package ir

// BasicBlock owns an ordered instruction list and maintains CFG
// predecessor/successor lists in lock-step with its terminator (§3.5). It
// is itself a Value of LabelType, usable as a branch-target operand.
type BasicBlock struct {
	valueBase
	Insts  []*Instruction
	Preds  []*BasicBlock
	Succs  []*BasicBlock
	Parent *Function
}

func (bb *BasicBlock) module() *Module { return bb.Parent.Parent }

// Terminator returns the block's terminator instruction, or nil if the
// block is (transiently, mid-construction) missing one.
func (bb *BasicBlock) Terminator() *Instruction {
	if len(bb.Insts) == 0 {
		return nil
	}
	last := bb.Insts[len(bb.Insts)-1]
	if last.IsTerminator() {
		return last
	}
	return nil
}

// Phis returns the contiguous prefix of phi instructions (§3.5).
func (bb *BasicBlock) Phis() []*Instruction {
	var out []*Instruction
	for _, in := range bb.Insts {
		if in.Op != OpPhi {
			break
		}
		out = append(out, in)
	}
	return out
}

// appendInst inserts in at the end of the block (before any existing
// terminator is illegal and left to callers to enforce).
func (bb *BasicBlock) appendInst(in *Instruction) *Instruction {
	in.block = bb
	bb.Insts = append(bb.Insts, in)
	return in
}

// prependInst inserts in at the very front of the block, used only for
// phi insertion so phis remain the instruction-list prefix.
func (bb *BasicBlock) prependInst(in *Instruction) *Instruction {
	in.block = bb
	bb.Insts = append([]*Instruction{in}, bb.Insts...)
	return in
}

// InsertBefore inserts in immediately before mark in the instruction list.
func (bb *BasicBlock) InsertBefore(mark, in *Instruction) {
	for i, x := range bb.Insts {
		if x == mark {
			in.block = bb
			bb.Insts = append(bb.Insts, nil)
			copy(bb.Insts[i+1:], bb.Insts[i:])
			bb.Insts[i] = in
			return
		}
	}
	Invariant(false, "InsertBefore: mark not found in block")
}

// Adopt moves in from whatever block currently owns it (if any) to the end
// of bb's instruction list, used by control-flow-simplify and inlining
// when merging or splitting blocks.
func (bb *BasicBlock) Adopt(in *Instruction) {
	if in.block != nil {
		in.block.removeInst(in)
	}
	bb.appendInst(in)
}

// AdoptBefore moves in from whatever block currently owns it (if any) to
// immediately before mark in bb's instruction list, used by loop-invariant
// code motion to hoist an instruction into a preheader ahead of its
// terminator.
func (bb *BasicBlock) AdoptBefore(mark, in *Instruction) {
	if in.block != nil {
		in.block.removeInst(in)
	}
	bb.InsertBefore(mark, in)
}

// AddEdge records a CFG edge from->to. Exported for transforms that
// restructure control flow (control-flow-simplify, loop-unroll, inline)
// outside the builder methods that normally create edges.
func AddEdge(from, to *BasicBlock) { addEdge(from, to) }

// RemoveEdge removes exactly one from->to edge. See AddEdge.
func RemoveEdge(from, to *BasicBlock) { removeEdge(from, to) }

// removeInst detaches in from the instruction list without touching its
// operands' use-list edges (callers that want that too should use
// Instruction.EraseFromParent).
func (bb *BasicBlock) removeInst(in *Instruction) {
	for i, x := range bb.Insts {
		if x == in {
			bb.Insts = append(bb.Insts[:i], bb.Insts[i+1:]...)
			in.block = nil
			return
		}
	}
}

// addEdge records a CFG edge from->to, appending to both endpoints' lists.
// Edges are a multiset: a conditional branch whose two targets happen to
// coincide contributes two edges, matching the "predecessors as a
// multiset" invariant phi placement depends on (§3.5).
func addEdge(from, to *BasicBlock) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

// removeEdge removes exactly one from->to edge.
func removeEdge(from, to *BasicBlock) {
	from.Succs = removeOneBB(from.Succs, to)
	to.Preds = removeOneBB(to.Preds, from)
}

func removeOneBB(list []*BasicBlock, target *BasicBlock) []*BasicBlock {
	for i, b := range list {
		if b == target {
			out := make([]*BasicBlock, 0, len(list)-1)
			out = append(out, list[:i]...)
			out = append(out, list[i+1:]...)
			return out
		}
	}
	return list
}

// ClearTerminator removes the block's current terminator (if any) and its
// outgoing CFG edges, leaving the block ready for a new one. Transforms
// that rewrite control flow (control-flow-simplify, loop-unroll) use this
// before installing a replacement terminator.
func (bb *BasicBlock) ClearTerminator() {
	term := bb.Terminator()
	if term == nil {
		return
	}
	succs := append([]*BasicBlock(nil), bb.Succs...)
	for _, s := range succs {
		removeEdge(bb, s)
	}
	bb.Succs = nil
	term.EraseFromParent()
}
