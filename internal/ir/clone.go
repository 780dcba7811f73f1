package ir

// ValueMap remaps values from a source region (a callee being inlined, a
// loop body being unrolled) to their clones in the destination. Values not
// present in the map (constants, globals, other functions) pass through
// unchanged — only instructions, arguments and blocks local to the cloned
// region need remapping.
type ValueMap map[Value]Value

// Resolve looks up v in the map, falling back to v itself when absent.
func (vm ValueMap) Resolve(v Value) Value {
	if v == nil {
		return nil
	}
	if mapped, ok := vm[v]; ok {
		return mapped
	}
	return v
}

// CloneInstruction creates an unattached copy of in (not yet appended to
// any block) with operands remapped through vm. The clone's own identity
// is not added to vm; callers normally do that themselves once they know
// which block the clone will live in.
func CloneInstruction(in *Instruction, vm ValueMap) *Instruction {
	operands := make([]Value, len(in.Operands))
	for i, o := range in.Operands {
		operands[i] = vm.Resolve(o)
	}
	clone := &Instruction{
		Op:       in.Op,
		Pred:     in.Pred,
		ElemType: in.ElemType,
	}
	clone.init(clone, in.Type())
	clone.Operands = make([]Value, len(operands))
	for i, o := range operands {
		clone.SetOperand(i, o)
	}
	if in.Op == OpPhi {
		clone.Incoming = make([]*BasicBlock, len(in.Incoming))
		for i, b := range in.Incoming {
			if mapped, ok := vm[b]; ok {
				clone.Incoming[i] = mapped.(*BasicBlock)
			} else {
				clone.Incoming[i] = b
			}
		}
	}
	return clone
}

// CloneBlocks deep-clones every block reachable from entry (within the
// given block set) into dstFn, remapping instruction/argument/block
// references through vm as it goes. vm must already map the source
// function's arguments to the destination call's actual arguments. Returns
// the map from source block to its clone; vm is extended in place with the
// block and instruction mappings.
func CloneBlocks(blocks []*BasicBlock, dstFn *Function, vm ValueMap) map[*BasicBlock]*BasicBlock {
	blockMap := make(map[*BasicBlock]*BasicBlock, len(blocks))
	for _, src := range blocks {
		dst := dstFn.NewBlock("")
		blockMap[src] = dst
		vm[src] = dst
	}
	for _, src := range blocks {
		dst := blockMap[src]
		for _, in := range src.Insts {
			clone := CloneInstruction(in, vm)
			vm[in] = clone
			if clone.Op == OpPhi {
				dst.prependInst(clone)
			} else {
				dst.appendInst(clone)
			}
		}
	}
	// Second pass: wire CFG edges for branch terminators now that every
	// block has a clone, and re-point phi Incoming entries accordingly.
	for _, src := range blocks {
		dst := blockMap[src]
		term := dst.Terminator()
		if term == nil || term.Op != OpBr {
			continue
		}
		if term.IsConditional() {
			addEdge(dst, term.Operands[1].(*BasicBlock))
			addEdge(dst, term.Operands[2].(*BasicBlock))
		} else {
			addEdge(dst, term.Operands[0].(*BasicBlock))
		}
	}
	return blockMap
}
