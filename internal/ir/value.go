package ir

// Use is one edge of a value's use-list: the instruction that references
// the value, and the operand position at which it does so.
type Use struct {
	User  *Instruction
	Index int
}

// Value is the universal vertex of the IR: every constant, argument,
// instruction, basic block, function and global variable has a type and a
// use-list. The unexported methods close the set of implementers to this
// package.
type Value interface {
	Type() Type
	Name() string
	SetName(name string)

	// Uses returns the value's current use-list. Callers must not retain
	// the slice across a mutation that calls ReplaceAllUsesWith.
	Uses() []*Use

	// ReplaceAllUsesWith rewrites every use of this value to refer to
	// newVal instead, moving each use edge over. After the call this
	// value's use-list is empty.
	ReplaceAllUsesWith(newVal Value)

	// ReplaceAllUsesWithIf is the same, restricted to uses for which pred
	// returns true.
	ReplaceAllUsesWithIf(newVal Value, pred func(*Use) bool)

	addUse(u *Use)
	removeUse(user *Instruction, index int)
}

// valueBase is embedded by every concrete value kind. self must be set by
// the embedding constructor to the outer value so that ReplaceAllUsesWith
// can hand it to the use-list bookkeeping on the other end of each edge.
type valueBase struct {
	self Value
	typ  Type
	name string
	uses []*Use
}

func (v *valueBase) init(self Value, typ Type) {
	v.self = self
	v.typ = typ
}

func (v *valueBase) Type() Type      { return v.typ }
func (v *valueBase) Name() string    { return v.name }
func (v *valueBase) SetName(n string) { v.name = n }

func (v *valueBase) Uses() []*Use { return v.uses }

func (v *valueBase) addUse(u *Use) {
	v.uses = append(v.uses, u)
}

func (v *valueBase) removeUse(user *Instruction, index int) {
	for i, u := range v.uses {
		if u.User == user && u.Index == index {
			v.uses = append(v.uses[:i], v.uses[i+1:]...)
			return
		}
	}
}

func (v *valueBase) ReplaceAllUsesWith(newVal Value) {
	v.ReplaceAllUsesWithIf(newVal, func(*Use) bool { return true })
}

func (v *valueBase) ReplaceAllUsesWithIf(newVal Value, pred func(*Use) bool) {
	// SetOperand below mutates v.uses as it runs, so iterate a snapshot.
	snapshot := make([]*Use, len(v.uses))
	copy(snapshot, v.uses)
	for _, u := range snapshot {
		if pred(u) {
			u.User.SetOperand(u.Index, newVal)
		}
	}
}
