package irdump

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	ssair "github.com/dshills/ssaopt/internal/ir"
)

// github.com/mewmew/float is llir/llvm's own dependency for formatting the
// hex float literals its constant.Float.String prints; nothing here needs
// to call it directly, it rides along as llir/llvm's transitive formatter.

// LLVM lowers mod into a github.com/llir/llvm module and returns its
// textual form (the same rendering dshills-alas/internal/codegen/llvm.go
// produces from its own builder), for -dump=llvm. Values built by this
// package's transforms have already been canonicalized to the closed
// instruction set internal/ir defines, so this is a straight opcode-by-
// opcode translation rather than a second code generator.
func LLVM(mod *ssair.Module) (string, error) {
	l := &lowerer{
		mod:     ir.NewModule(),
		funcs:   make(map[*ssair.Function]*ir.Func),
		globals: make(map[*ssair.GlobalVariable]*ir.Global),
		types:   make(map[ssair.Type]types.Type),
	}
	for _, g := range mod.Globals {
		l.declareGlobal(g)
	}
	for _, fn := range mod.Functions {
		l.declareFunc(fn)
	}
	for _, fn := range mod.Functions {
		if !fn.IsExternal() {
			if err := l.lowerFunc(fn); err != nil {
				return "", fmt.Errorf("irdump: lowering %q: %w", fn.Name(), err)
			}
		}
	}
	return l.mod.String(), nil
}

type lowerer struct {
	mod     *ir.Module
	funcs   map[*ssair.Function]*ir.Func
	globals map[*ssair.GlobalVariable]*ir.Global
	types   map[ssair.Type]types.Type
	blocks  map[*ssair.BasicBlock]*ir.Block
	vals    map[*ssair.Instruction]value.Value
}

func (l *lowerer) llType(t ssair.Type) types.Type {
	if cached, ok := l.types[t]; ok {
		return cached
	}
	var out types.Type
	switch x := t.(type) {
	case *ssair.IntType:
		out = types.NewInt(uint64(x.Bits))
	case *ssair.I64IntType:
		out = types.I64
	case *ssair.FloatType:
		out = types.Double
	case *ssair.VoidType:
		out = types.Void
	case *ssair.LabelType:
		out = types.Label
	case *ssair.PointerType:
		out = types.NewPointer(l.llType(x.Elem))
	case *ssair.ArrayType:
		out = types.NewArray(uint64(x.Len), l.llType(x.Elem))
	case *ssair.FuncType:
		params := make([]types.Type, len(x.Params))
		for i, p := range x.Params {
			params[i] = l.llType(p)
		}
		out = types.NewFunc(l.llType(x.Ret), params...)
	default:
		out = types.Void
	}
	l.types[t] = out
	return out
}

func (l *lowerer) declareGlobal(g *ssair.GlobalVariable) {
	init := l.constant(g.Init)
	gv := l.mod.NewGlobalDef(g.Name(), init)
	l.globals[g] = gv
}

func (l *lowerer) declareFunc(fn *ssair.Function) {
	params := make([]*ir.Param, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = ir.NewParam(p.Name(), l.llType(p.Type()))
	}
	f := l.mod.NewFunc(fn.Name(), l.llType(fn.RetType), params...)
	l.funcs[fn] = f
}

func (l *lowerer) constant(c ssair.Constant) constant.Constant {
	switch x := c.(type) {
	case *ssair.ConstInt:
		t := l.llType(x.Type()).(*types.IntType)
		return constant.NewInt(t, x.X)
	case *ssair.ConstFloat:
		return constant.NewFloat(types.Double, x.X)
	case *ssair.ConstZero:
		return constant.NewZeroInitializer(l.llType(x.Type()))
	case *ssair.ConstUndef:
		return constant.NewUndef(l.llType(x.Type()))
	case *ssair.ConstArray:
		elems := make([]constant.Constant, len(x.Elems))
		for i, e := range x.Elems {
			elems[i] = l.constant(e)
		}
		at := l.llType(x.Type()).(*types.ArrayType)
		return constant.NewArray(at, elems...)
	default:
		return constant.NewZeroInitializer(l.llType(c.Type()))
	}
}

func (l *lowerer) lowerFunc(fn *ssair.Function) error {
	f := l.funcs[fn]
	l.blocks = make(map[*ssair.BasicBlock]*ir.Block)
	l.vals = make(map[*ssair.Instruction]value.Value)

	for _, bb := range fn.Blocks {
		l.blocks[bb] = f.NewBlock(bb.Name())
	}
	for _, bb := range fn.Blocks {
		blk := l.blocks[bb]
		for _, in := range bb.Insts {
			if err := l.lowerInst(blk, fn, in); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *lowerer) operand(fn *ssair.Function, v ssair.Value) value.Value {
	switch x := v.(type) {
	case *ssair.Instruction:
		return l.vals[x]
	case *ssair.Argument:
		return l.funcs[fn].Params[x.Index]
	case *ssair.Function:
		return l.funcs[x]
	case *ssair.GlobalVariable:
		return l.globals[x]
	case *ssair.BasicBlock:
		return l.blocks[x]
	case ssair.Constant:
		return l.constant(x)
	default:
		return constant.NewZeroInitializer(types.Void)
	}
}

func icmpPred(p ssair.Predicate) enum.IPred {
	switch p {
	case ssair.PredEQ:
		return enum.IPredEQ
	case ssair.PredNE:
		return enum.IPredNE
	case ssair.PredLT:
		return enum.IPredSLT
	case ssair.PredLE:
		return enum.IPredSLE
	case ssair.PredGT:
		return enum.IPredSGT
	default:
		return enum.IPredSGE
	}
}

func fcmpPred(p ssair.Predicate) enum.FPred {
	switch p {
	case ssair.PredEQ:
		return enum.FPredOEQ
	case ssair.PredNE:
		return enum.FPredONE
	case ssair.PredLT:
		return enum.FPredOLT
	case ssair.PredLE:
		return enum.FPredOLE
	case ssair.PredGT:
		return enum.FPredOGT
	default:
		return enum.FPredOGE
	}
}

func (l *lowerer) lowerInst(blk *ir.Block, fn *ssair.Function, in *ssair.Instruction) error {
	op := func(i int) value.Value { return l.operand(fn, in.Operands[i]) }

	switch in.Op {
	case ssair.OpRet:
		if len(in.Operands) == 0 {
			blk.NewRet(nil)
		} else {
			blk.NewRet(op(0))
		}
	case ssair.OpBr:
		if !in.IsConditional() {
			blk.NewBr(l.blocks[in.Operands[0].(*ssair.BasicBlock)])
		} else {
			blk.NewCondBr(op(0), l.blocks[in.Operands[1].(*ssair.BasicBlock)], l.blocks[in.Operands[2].(*ssair.BasicBlock)])
		}
	case ssair.OpAdd:
		l.vals[in] = blk.NewAdd(op(0), op(1))
	case ssair.OpSub:
		l.vals[in] = blk.NewSub(op(0), op(1))
	case ssair.OpMul:
		l.vals[in] = blk.NewMul(op(0), op(1))
	case ssair.OpSDiv:
		l.vals[in] = blk.NewSDiv(op(0), op(1))
	case ssair.OpSRem:
		l.vals[in] = blk.NewSRem(op(0), op(1))
	case ssair.OpAnd:
		l.vals[in] = blk.NewAnd(op(0), op(1))
	case ssair.OpOr:
		l.vals[in] = blk.NewOr(op(0), op(1))
	case ssair.OpXor:
		l.vals[in] = blk.NewXor(op(0), op(1))
	case ssair.OpShl:
		l.vals[in] = blk.NewShl(op(0), op(1))
	case ssair.OpLShr:
		l.vals[in] = blk.NewLShr(op(0), op(1))
	case ssair.OpAShr:
		l.vals[in] = blk.NewAShr(op(0), op(1))
	case ssair.OpFAdd:
		l.vals[in] = blk.NewFAdd(op(0), op(1))
	case ssair.OpFSub:
		l.vals[in] = blk.NewFSub(op(0), op(1))
	case ssair.OpFMul:
		l.vals[in] = blk.NewFMul(op(0), op(1))
	case ssair.OpFDiv:
		l.vals[in] = blk.NewFDiv(op(0), op(1))
	case ssair.OpICmp:
		l.vals[in] = blk.NewICmp(icmpPred(in.Pred), op(0), op(1))
	case ssair.OpFCmp:
		l.vals[in] = blk.NewFCmp(fcmpPred(in.Pred), op(0), op(1))
	case ssair.OpAlloca:
		l.vals[in] = blk.NewAlloca(l.llType(in.ElemType))
	case ssair.OpLoad:
		l.vals[in] = blk.NewLoad(l.llType(in.Type()), op(0))
	case ssair.OpStore:
		blk.NewStore(op(0), op(1))
	case ssair.OpGEP:
		idx := make([]value.Value, 0, len(in.Operands)-1)
		for _, o := range in.Operands[1:] {
			idx = append(idx, l.operand(fn, o))
		}
		l.vals[in] = blk.NewGetElementPtr(l.llType(in.ElemType), op(0), idx...)
	case ssair.OpZExt:
		l.vals[in] = blk.NewZExt(op(0), l.llType(in.Type()))
	case ssair.OpSExt:
		l.vals[in] = blk.NewSExt(op(0), l.llType(in.Type()))
	case ssair.OpTrunc:
		l.vals[in] = blk.NewTrunc(op(0), l.llType(in.Type()))
	case ssair.OpSIToFP:
		l.vals[in] = blk.NewSIToFP(op(0), l.llType(in.Type()))
	case ssair.OpFPToSI:
		l.vals[in] = blk.NewFPToSI(op(0), l.llType(in.Type()))
	case ssair.OpPtrToInt:
		l.vals[in] = blk.NewPtrToInt(op(0), l.llType(in.Type()))
	case ssair.OpIntToPtr:
		l.vals[in] = blk.NewIntToPtr(op(0), l.llType(in.Type()))
	case ssair.OpCall:
		callee := l.funcs[in.CalleeFunc()]
		args := make([]value.Value, len(in.Args()))
		for i, a := range in.Args() {
			args[i] = l.operand(fn, a)
		}
		l.vals[in] = blk.NewCall(callee, args...)
	case ssair.OpPhi:
		incs := make([]*ir.Incoming, len(in.Operands))
		for i, incBlk := range in.Incoming {
			incs[i] = ir.NewIncoming(l.operand(fn, in.Operands[i]), l.blocks[incBlk])
		}
		l.vals[in] = blk.NewPhi(incs...)
	default:
		return fmt.Errorf("irdump: unsupported opcode %s", in.Op)
	}
	return nil
}
