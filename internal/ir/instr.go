package ir

// Opcode discriminates the closed instruction set (§3.6). Behavior is
// dispatched by switching on Opcode rather than through a class hierarchy,
// per the design notes' preference for a tagged union over deep
// inheritance.
type Opcode int

const (
	OpRet Opcode = iota
	OpBr

	OpAdd
	OpSub
	OpMul
	OpSDiv
	OpSRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpLShr
	OpAShr

	OpFAdd
	OpFSub
	OpFMul
	OpFDiv

	OpICmp
	OpFCmp

	OpAlloca
	OpLoad
	OpStore
	OpGEP

	OpZExt
	OpSExt
	OpTrunc
	OpSIToFP
	OpFPToSI
	OpPtrToInt
	OpIntToPtr

	OpCall
	OpPhi
)

func (op Opcode) String() string {
	switch op {
	case OpRet:
		return "ret"
	case OpBr:
		return "br"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpSDiv:
		return "sdiv"
	case OpSRem:
		return "srem"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpXor:
		return "xor"
	case OpShl:
		return "shl"
	case OpLShr:
		return "lshr"
	case OpAShr:
		return "ashr"
	case OpFAdd:
		return "fadd"
	case OpFSub:
		return "fsub"
	case OpFMul:
		return "fmul"
	case OpFDiv:
		return "fdiv"
	case OpICmp:
		return "icmp"
	case OpFCmp:
		return "fcmp"
	case OpAlloca:
		return "alloca"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpGEP:
		return "getelementptr"
	case OpZExt:
		return "zext"
	case OpSExt:
		return "sext"
	case OpTrunc:
		return "trunc"
	case OpSIToFP:
		return "sitofp"
	case OpFPToSI:
		return "fptosi"
	case OpPtrToInt:
		return "ptrtoint"
	case OpIntToPtr:
		return "inttoptr"
	case OpCall:
		return "call"
	case OpPhi:
		return "phi"
	default:
		return "<bad opcode>"
	}
}

// IsIntArith reports whether op is one of the integer binary arithmetic
// opcodes (add, sub, mul, sdiv, srem, and, or, xor, shl, lshr, ashr).
func (op Opcode) IsIntArith() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpSDiv, OpSRem, OpAnd, OpOr, OpXor, OpShl, OpLShr, OpAShr:
		return true
	}
	return false
}

// IsFloatArith reports whether op is fadd/fsub/fmul/fdiv.
func (op Opcode) IsFloatArith() bool {
	switch op {
	case OpFAdd, OpFSub, OpFMul, OpFDiv:
		return true
	}
	return false
}

// IsCommutative reports whether operand order doesn't affect the result,
// as used by GVN's expression-equality rule and algebraic-simplify's
// pattern matching.
func (op Opcode) IsCommutative() bool {
	switch op {
	case OpAdd, OpMul, OpFAdd, OpFMul, OpAnd, OpOr, OpXor:
		return true
	}
	return false
}

// IsTerminator reports whether op ends a basic block.
func (op Opcode) IsTerminator() bool { return op == OpRet || op == OpBr }

// Predicate is the comparison kind for icmp/fcmp.
type Predicate int

const (
	PredEQ Predicate = iota
	PredNE
	PredLT
	PredLE
	PredGT
	PredGE
)

func (p Predicate) String() string {
	switch p {
	case PredEQ:
		return "eq"
	case PredNE:
		return "ne"
	case PredLT:
		return "lt"
	case PredLE:
		return "le"
	case PredGT:
		return "gt"
	case PredGE:
		return "ge"
	default:
		return "<bad predicate>"
	}
}

// Negated returns the logical complement of p (the predicate that holds
// exactly when p does not), used by loop-unroll to turn a "take the exit
// edge when false" branch into a plain exit condition.
func (p Predicate) Negated() Predicate {
	switch p {
	case PredEQ:
		return PredNE
	case PredNE:
		return PredEQ
	case PredLT:
		return PredGE
	case PredLE:
		return PredGT
	case PredGT:
		return PredLE
	case PredGE:
		return PredLT
	default:
		return p
	}
}

// Swapped returns the predicate that holds when the operands are swapped,
// e.g. lt becomes gt. Used by GVN and algebraic-simplify to canonicalize
// non-commutative comparisons.
func (p Predicate) Swapped() Predicate {
	switch p {
	case PredLT:
		return PredGT
	case PredLE:
		return PredGE
	case PredGT:
		return PredLT
	case PredGE:
		return PredLE
	default:
		return p
	}
}

// Instruction is every non-terminator and terminator opcode in one shape:
// a tag, a uniform operand list, and the few opcode-specific extra fields
// (element type for alloca/GEP, predicate for compares, incoming blocks
// for phi). It is itself a Value: SSA instructions define exactly one
// result (Type() is Void for instructions with no result, e.g. store/ret).
type Instruction struct {
	valueBase
	Op       Opcode
	Pred     Predicate // icmp/fcmp only
	ElemType Type      // alloca (allocated type) / GEP (pointee type) only
	Operands []Value
	Incoming []*BasicBlock // phi only: Incoming[i] is the predecessor Operands[i] flows from
	block    *BasicBlock
}

// CalleeFunc returns a call instruction's target function (its operand 0).
func (in *Instruction) CalleeFunc() *Function {
	Invariant(in.Op == OpCall, "CalleeFunc on non-call instruction")
	return in.Operands[0].(*Function)
}

// Args returns a call instruction's argument operands (operands 1:).
func (in *Instruction) Args() []Value {
	Invariant(in.Op == OpCall, "Args on non-call instruction")
	return in.Operands[1:]
}

// newInst allocates an instruction with the given opcode, result type and
// operands, wiring up use-list edges for every non-nil operand.
func newInst(op Opcode, typ Type, operands []Value) *Instruction {
	in := &Instruction{Op: op, Operands: operands}
	in.init(in, typ)
	for i, o := range operands {
		if o != nil {
			o.addUse(&Use{User: in, Index: i})
		}
	}
	return in
}

// Block returns the basic block this instruction belongs to, or nil if it
// has not been inserted yet.
func (in *Instruction) Block() *BasicBlock { return in.block }

// SetOperand rewrites operand i to newVal, maintaining use-list edges on
// both the old and new value. This is the single point through which every
// operand mutation in the package flows, including ReplaceAllUsesWith.
func (in *Instruction) SetOperand(i int, newVal Value) {
	old := in.Operands[i]
	if old != nil {
		old.removeUse(in, i)
	}
	in.Operands[i] = newVal
	if newVal != nil {
		newVal.addUse(&Use{User: in, Index: i})
	}
}

// EraseFromParent detaches the instruction from its block and clears its
// operands' use-list edges to it. The caller must have already ensured the
// instruction's own use-list is empty (no other instruction still
// references its result), per the value lifetime contract in §3.1.
func (in *Instruction) EraseFromParent() {
	if len(in.Uses()) != 0 {
		Invariant(false, "erasing instruction %q with %d remaining uses", in.Op, len(in.Uses()))
	}
	for i, o := range in.Operands {
		if o != nil {
			o.removeUse(in, i)
		}
	}
	if in.block != nil {
		in.block.removeInst(in)
	}
}

// IsTerminator reports whether this instruction is a block terminator.
func (in *Instruction) IsTerminator() bool { return in.Op.IsTerminator() }

// AddIncoming appends an (value, block) pair to a phi instruction,
// extending both Operands and Incoming.
func (in *Instruction) AddIncoming(val Value, from *BasicBlock) {
	Invariant(in.Op == OpPhi, "AddIncoming on non-phi instruction")
	idx := len(in.Operands)
	in.Operands = append(in.Operands, nil)
	in.Incoming = append(in.Incoming, from)
	in.SetOperand(idx, val)
}

// IncomingFor returns the value a phi takes from predecessor bb, and
// whether such an entry exists.
func (in *Instruction) IncomingFor(bb *BasicBlock) (Value, bool) {
	for i, p := range in.Incoming {
		if p == bb {
			return in.Operands[i], true
		}
	}
	return nil, false
}

// RemoveIncoming drops the phi entry for predecessor bb, if present.
func (in *Instruction) RemoveIncoming(bb *BasicBlock) {
	for i, p := range in.Incoming {
		if p == bb {
			if in.Operands[i] != nil {
				in.Operands[i].removeUse(in, i)
			}
			in.Operands = append(in.Operands[:i], in.Operands[i+1:]...)
			in.Incoming = append(in.Incoming[:i], in.Incoming[i+1:]...)
			// Operand indices above i shifted down by one; fix up their
			// use-list entries.
			for j := i; j < len(in.Operands); j++ {
				if in.Operands[j] != nil {
					in.Operands[j].removeUse(in, j+1)
					in.Operands[j].addUse(&Use{User: in, Index: j})
				}
			}
			return
		}
	}
}
