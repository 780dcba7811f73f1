package transform

import (
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/pass"
)

// Inline clones a callee's body directly into the caller at each call
// site, split across the call: the callee's entry block becomes a branch
// target replacing the call instruction, and the callee's (unique) exit
// block inherits whatever instructions originally followed the call,
// becoming the new tail of the caller's block. Self-recursive callees are
// left alone — inlining a function into itself would never terminate this
// pass.
type Inline struct{}

func (t *Inline) Name() string { return "inline" }

func (t *Inline) GetAnalysisUsage(au *pass.AnalysisUsage) {
	au.Mode = pass.KillAll
}

func (t *Inline) Run(mod *ir.Module, mgr *pass.Manager) bool {
	changed := false
	for _, fn := range mod.Functions {
		if fn.IsExternal() {
			continue
		}
		var calls []*ir.Instruction
		for _, bb := range fn.Blocks {
			for _, in := range bb.Insts {
				if in.Op == ir.OpCall && inlinable(in.CalleeFunc(), fn) {
					calls = append(calls, in)
				}
			}
		}
		for _, call := range calls {
			if call.Block() == nil {
				continue // a prior inline in this batch already consumed it
			}
			inlineCall(fn, call)
			changed = true
		}
	}
	return changed
}

func inlinable(callee, caller *ir.Function) bool {
	if callee.IsExternal() || callee == caller {
		return false
	}
	return callee.Exit() != nil
}

func inlineCall(caller *ir.Function, call *ir.Instruction) {
	callee := call.CalleeFunc()
	vm := make(ir.ValueMap)
	for i, arg := range callee.Params {
		vm[arg] = call.Args()[i]
	}
	blockMap := ir.CloneBlocks(callee.Blocks, caller, vm)
	entryClone := blockMap[callee.Entry()]
	exitClone := blockMap[callee.Exit()]

	retInst := exitClone.Terminator()
	if _, voidRet := callee.RetType.(*ir.VoidType); !voidRet {
		call.ReplaceAllUsesWith(retInst.Operands[0])
	}
	retInst.EraseFromParent()

	parentBB := call.Block()
	idx := 0
	for i, in := range parentBB.Insts {
		if in == call {
			idx = i
			break
		}
	}
	tail := append([]*ir.Instruction(nil), parentBB.Insts[idx+1:]...)
	for _, in := range tail {
		exitClone.Adopt(in)
	}

	for _, s := range append([]*ir.BasicBlock(nil), parentBB.Succs...) {
		ir.RemoveEdge(parentBB, s)
		ir.AddEdge(exitClone, s)
		for _, phi := range s.Phis() {
			if v, ok := phi.IncomingFor(parentBB); ok {
				phi.RemoveIncoming(parentBB)
				phi.AddIncoming(v, exitClone)
			}
		}
	}

	call.EraseFromParent()
	parentBB.NewBr(entryClone)
}
