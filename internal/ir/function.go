package ir

import "strconv"

// Argument is a function parameter, a value of base or pointer type.
type Argument struct {
	valueBase
	Index  int
	Parent *Function
}

// Function owns an ordered argument list and an ordered basic-block list.
// A function with no blocks is external (declaration only); the entry
// block, by convention, is Blocks[0].
type Function struct {
	valueBase
	NameStr  string
	Params   []*Argument
	RetType  Type
	Blocks   []*BasicBlock
	Parent   *Module
	blockSeq int
}

// IsExternal reports whether the function is a declaration without a body.
func (f *Function) IsExternal() bool { return len(f.Blocks) == 0 }

// Entry returns the function's entry block (its first), or nil if external.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Exit returns the canonical single-return exit block, if control-flow
// canonicalization has established one: the unique block whose terminator
// is a ret. Returns nil if no such unique block exists (e.g. before the
// control-flow simplifier has run, or for a multi-return function).
func (f *Function) Exit() *BasicBlock {
	var exit *BasicBlock
	for _, bb := range f.Blocks {
		if term := bb.Terminator(); term != nil && term.Op == OpRet {
			if exit != nil {
				return nil
			}
			exit = bb
		}
	}
	return exit
}

// NewBlock appends a fresh, terminator-less basic block named name (or an
// auto-generated name if name is empty) to the function.
func (f *Function) NewBlock(name string) *BasicBlock {
	if name == "" {
		name = autoBlockName(f)
	}
	bb := &BasicBlock{Parent: f}
	bb.init(bb, f.Parent.Label())
	bb.SetName(name)
	f.Blocks = append(f.Blocks, bb)
	return bb
}

func autoBlockName(f *Function) string {
	f.blockSeq++
	return "bb" + strconv.Itoa(f.blockSeq)
}

// RemoveBlock detaches bb from the function and severs its CFG edges. The
// caller is responsible for having redirected any surviving
// predecessors/phis first; this is the low-level primitive
// rm-unreachable-bb and control-flow-simplify build on.
func (f *Function) RemoveBlock(bb *BasicBlock) {
	preds := append([]*BasicBlock(nil), bb.Preds...)
	for _, p := range preds {
		removeEdge(p, bb)
	}
	succs := append([]*BasicBlock(nil), bb.Succs...)
	for _, s := range succs {
		removeEdge(bb, s)
	}
	for i, x := range f.Blocks {
		if x == bb {
			f.Blocks = append(f.Blocks[:i], f.Blocks[i+1:]...)
			return
		}
	}
}
