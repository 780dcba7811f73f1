package ir

// This file is the instruction-constructor surface: one method per opcode,
// each appending the new instruction to the block and returning it so
// callers can chain (`v := bb.NewAdd(x, y)`), in the same shape as the
// pack's llir/llvm block-builder API (bb.NewAdd, bb.NewLoad, ...) — the
// teacher's own AST->IR lowering (internal/codegen/llvm.go) is written
// against exactly that shape, and internal/irbuild keeps the same call
// pattern retargeted at this package.

func (bb *BasicBlock) binInst(op Opcode, x, y Value) *Instruction {
	Invariant(x.Type() == y.Type(), "%s operand type mismatch: %s vs %s", op, x.Type(), y.Type())
	return bb.appendInst(newInst(op, x.Type(), []Value{x, y}))
}

// NewBinBefore builds a binary instruction and splices it in immediately
// before mark, for passes (algebraic-simplify, strength-reduce) that
// rewrite an instruction into a replacement computed from its own
// operands rather than appending at the block's end.
func (bb *BasicBlock) NewBinBefore(mark *Instruction, op Opcode, x, y Value) *Instruction {
	Invariant(x.Type() == y.Type(), "%s operand type mismatch: %s vs %s", op, x.Type(), y.Type())
	in := newInst(op, x.Type(), []Value{x, y})
	bb.InsertBefore(mark, in)
	return in
}

func (bb *BasicBlock) NewAdd(x, y Value) *Instruction  { return bb.binInst(OpAdd, x, y) }
func (bb *BasicBlock) NewSub(x, y Value) *Instruction  { return bb.binInst(OpSub, x, y) }
func (bb *BasicBlock) NewMul(x, y Value) *Instruction  { return bb.binInst(OpMul, x, y) }
func (bb *BasicBlock) NewSDiv(x, y Value) *Instruction { return bb.binInst(OpSDiv, x, y) }
func (bb *BasicBlock) NewSRem(x, y Value) *Instruction { return bb.binInst(OpSRem, x, y) }
func (bb *BasicBlock) NewAnd(x, y Value) *Instruction  { return bb.binInst(OpAnd, x, y) }
func (bb *BasicBlock) NewOr(x, y Value) *Instruction   { return bb.binInst(OpOr, x, y) }
func (bb *BasicBlock) NewXor(x, y Value) *Instruction  { return bb.binInst(OpXor, x, y) }
func (bb *BasicBlock) NewShl(x, y Value) *Instruction  { return bb.binInst(OpShl, x, y) }
func (bb *BasicBlock) NewLShr(x, y Value) *Instruction { return bb.binInst(OpLShr, x, y) }
func (bb *BasicBlock) NewAShr(x, y Value) *Instruction { return bb.binInst(OpAShr, x, y) }

func (bb *BasicBlock) NewFAdd(x, y Value) *Instruction { return bb.binInst(OpFAdd, x, y) }
func (bb *BasicBlock) NewFSub(x, y Value) *Instruction { return bb.binInst(OpFSub, x, y) }
func (bb *BasicBlock) NewFMul(x, y Value) *Instruction { return bb.binInst(OpFMul, x, y) }
func (bb *BasicBlock) NewFDiv(x, y Value) *Instruction { return bb.binInst(OpFDiv, x, y) }

func (bb *BasicBlock) NewICmp(pred Predicate, x, y Value) *Instruction {
	in := newInst(OpICmp, bb.module().I1(), []Value{x, y})
	in.Pred = pred
	return bb.appendInst(in)
}

func (bb *BasicBlock) NewFCmp(pred Predicate, x, y Value) *Instruction {
	in := newInst(OpFCmp, bb.module().I1(), []Value{x, y})
	in.Pred = pred
	return bb.appendInst(in)
}

// NewAlloca allocates a stack slot holding a value of elemType.
func (bb *BasicBlock) NewAlloca(elemType Type) *Instruction {
	in := newInst(OpAlloca, bb.module().NewPointer(elemType), nil)
	in.ElemType = elemType
	return bb.appendInst(in)
}

// NewAllocaFirst allocates a stack slot and inserts it ahead of every other
// instruction in bb, used by global-variable localization to materialize a
// function-local slot for what used to be a global.
func (bb *BasicBlock) NewAllocaFirst(elemType Type) *Instruction {
	in := newInst(OpAlloca, bb.module().NewPointer(elemType), nil)
	in.ElemType = elemType
	in.block = bb
	bb.Insts = append([]*Instruction{in}, bb.Insts...)
	return in
}

// NewStoreAfter builds a store and inserts it immediately after mark,
// pairing with NewAllocaFirst to seed a sunk global's initial value right
// after its slot.
func (bb *BasicBlock) NewStoreAfter(mark *Instruction, val, ptr Value) *Instruction {
	in := newInst(OpStore, bb.module().Void(), []Value{val, ptr})
	for i, x := range bb.Insts {
		if x == mark {
			in.block = bb
			bb.Insts = append(bb.Insts, nil)
			copy(bb.Insts[i+2:], bb.Insts[i+1:])
			bb.Insts[i+1] = in
			return in
		}
	}
	Invariant(false, "NewStoreAfter: mark not found in block")
	return nil
}

func (bb *BasicBlock) NewLoad(elemType Type, ptr Value) *Instruction {
	in := newInst(OpLoad, elemType, []Value{ptr})
	return bb.appendInst(in)
}

func (bb *BasicBlock) NewStore(val, ptr Value) *Instruction {
	in := newInst(OpStore, bb.module().Void(), []Value{val, ptr})
	return bb.appendInst(in)
}

// NewGEP computes the address of an element of elemType within the
// aggregate pointed to by ptr, offset by indices.
func (bb *BasicBlock) NewGEP(elemType Type, ptr Value, indices ...Value) *Instruction {
	operands := append([]Value{ptr}, indices...)
	in := newInst(OpGEP, bb.module().NewPointer(elemType), operands)
	in.ElemType = elemType
	return bb.appendInst(in)
}

func (bb *BasicBlock) convInst(op Opcode, x Value, to Type) *Instruction {
	return bb.appendInst(newInst(op, to, []Value{x}))
}

func (bb *BasicBlock) NewZExt(x Value, to Type) *Instruction    { return bb.convInst(OpZExt, x, to) }
func (bb *BasicBlock) NewSExt(x Value, to Type) *Instruction    { return bb.convInst(OpSExt, x, to) }
func (bb *BasicBlock) NewTrunc(x Value, to Type) *Instruction   { return bb.convInst(OpTrunc, x, to) }
func (bb *BasicBlock) NewSIToFP(x Value, to Type) *Instruction  { return bb.convInst(OpSIToFP, x, to) }
func (bb *BasicBlock) NewFPToSI(x Value, to Type) *Instruction  { return bb.convInst(OpFPToSI, x, to) }
func (bb *BasicBlock) NewPtrToInt(x Value, to Type) *Instruction { return bb.convInst(OpPtrToInt, x, to) }
func (bb *BasicBlock) NewIntToPtr(x Value, to Type) *Instruction { return bb.convInst(OpIntToPtr, x, to) }

// NewCall emits a call to callee, with callee as operand 0 and args as the
// remaining operands (so the call graph falls directly out of the
// function's use-list, per the call(callee, args…) opcode in §3.6).
func (bb *BasicBlock) NewCall(callee *Function, args ...Value) *Instruction {
	operands := append([]Value{Value(callee)}, args...)
	in := newInst(OpCall, callee.RetType, operands)
	return bb.appendInst(in)
}

// NewPhi starts a phi instruction of type typ with no incoming entries yet,
// inserted at the block's current phi prefix.
func (bb *BasicBlock) NewPhi(typ Type) *Instruction {
	in := &Instruction{Op: OpPhi}
	in.init(in, typ)
	return bb.prependInst(in)
}

// NewRet terminates the block with a return. val may be nil for a void
// return.
func (bb *BasicBlock) NewRet(val Value) *Instruction {
	var operands []Value
	if val != nil {
		operands = []Value{val}
	}
	return bb.appendInst(newInst(OpRet, bb.module().Void(), operands))
}

// NewBr terminates the block with an unconditional branch to target,
// recording the CFG edge.
func (bb *BasicBlock) NewBr(target *BasicBlock) *Instruction {
	in := bb.appendInst(newInst(OpBr, bb.module().Void(), []Value{target}))
	addEdge(bb, target)
	return in
}

// NewCondBr terminates the block with a conditional branch, recording both
// CFG edges (twice, if whenTrue == whenFalse).
func (bb *BasicBlock) NewCondBr(cond Value, whenTrue, whenFalse *BasicBlock) *Instruction {
	in := bb.appendInst(newInst(OpBr, bb.module().Void(), []Value{cond, whenTrue, whenFalse}))
	addEdge(bb, whenTrue)
	addEdge(bb, whenFalse)
	return in
}

// IsConditional reports whether a br instruction is conditional (3
// operands: cond, true-target, false-target) rather than unconditional (1:
// target).
func (in *Instruction) IsConditional() bool {
	return in.Op == OpBr && len(in.Operands) == 3
}

// BrTargets returns the branch's successor blocks, in operand order
// (single-element for an unconditional branch).
func (in *Instruction) BrTargets() []*BasicBlock {
	Invariant(in.Op == OpBr, "BrTargets on non-branch instruction")
	if in.IsConditional() {
		return []*BasicBlock{in.Operands[1].(*BasicBlock), in.Operands[2].(*BasicBlock)}
	}
	return []*BasicBlock{in.Operands[0].(*BasicBlock)}
}

// SetBrTarget rewrites one successor of a branch terminator in place,
// updating the CFG edge accordingly. idx is 0 for an unconditional
// branch's target, or 0/1 for a conditional branch's true/false target.
func (in *Instruction) SetBrTarget(idx int, newTarget *BasicBlock) {
	Invariant(in.Op == OpBr, "SetBrTarget on non-branch instruction")
	bb := in.block
	operandIdx := idx
	if in.IsConditional() {
		operandIdx = idx + 1
	}
	oldTarget := in.Operands[operandIdx].(*BasicBlock)
	removeEdge(bb, oldTarget)
	in.SetOperand(operandIdx, newTarget)
	addEdge(bb, newTarget)
}
