// Package irbuild lowers an ALaS JSON AST (internal/ast) into
// internal/ir, standing in for the out-of-scope AST->IR lowering spec.md
// assumes has already run before the pass manager ever sees a module. It
// follows dshills-alas/internal/codegen/llvm.go's walking style — declare
// every function signature first so forward and recursive calls resolve,
// then generate each body by walking statements and expressions — adapted
// to internal/ir's alloca/load/store locals (so internal/transform.Mem2reg
// has something to promote) and to a single return block per function (so
// internal/transform.Inline always has a unique ir.Function.Exit to split
// against).
package irbuild

import (
	"fmt"

	"github.com/dshills/ssaopt/internal/ast"
	"github.com/dshills/ssaopt/internal/ir"
)

// Builder accumulates one ir.Module across Build calls.
type Builder struct {
	mod *ir.Module
}

// New returns a Builder over a fresh, empty module.
func New() *Builder {
	return &Builder{mod: ir.NewModule()}
}

// Build lowers every function in m into the builder's module, declaring
// signatures before generating any body so mutually recursive calls
// resolve regardless of declaration order.
func (b *Builder) Build(m *ast.Module) (*ir.Module, error) {
	for i := range m.Functions {
		if err := b.declareFunction(&m.Functions[i]); err != nil {
			return nil, fmt.Errorf("irbuild: declaring %q: %w", m.Functions[i].Name, err)
		}
	}
	for i := range m.Functions {
		if err := b.generateFunction(&m.Functions[i]); err != nil {
			return nil, fmt.Errorf("irbuild: generating %q: %w", m.Functions[i].Name, err)
		}
	}
	return b.mod, nil
}

// convertType maps an ALaS scalar type name onto the IR's closed type set.
// ALaS's dynamic array_literal/map_literal/struct/string values have no
// counterpart in that set (§3.2 of spec.md: Int/I64Int/Float/Void/Pointer/
// Array/Func, no heap-managed maps or strings) and are rejected here
// rather than approximated.
func (b *Builder) convertType(name string) (ir.Type, error) {
	switch name {
	case ast.TypeInt:
		return b.mod.I32(), nil
	case ast.TypeFloat:
		return b.mod.Float(), nil
	case ast.TypeBool:
		return b.mod.I1(), nil
	case ast.TypeVoid, "":
		return b.mod.Void(), nil
	default:
		return nil, fmt.Errorf("unsupported type %q", name)
	}
}

func (b *Builder) declareFunction(fn *ast.Function) error {
	retType, err := b.convertType(fn.Returns)
	if err != nil {
		return err
	}
	paramTypes := make([]ir.Type, len(fn.Params))
	paramNames := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		pt, err := b.convertType(p.Type)
		if err != nil {
			return fmt.Errorf("param %q: %w", p.Name, err)
		}
		paramTypes[i] = pt
		paramNames[i] = p.Name
	}
	b.mod.NewFunction(fn.Name, retType, paramTypes, paramNames)
	return nil
}

// fnCtx carries one function's in-progress lowering state: the block
// currently being appended to, each local's stack slot, and where a
// `return` statement should store its value and jump to.
type fnCtx struct {
	b       *Builder
	fn      *ir.Function
	bb      *ir.BasicBlock
	vars    map[string]*ir.Instruction
	retSlot *ir.Instruction
	retType ir.Type
	exit    *ir.BasicBlock
}

func (b *Builder) generateFunction(astFn *ast.Function) error {
	fn := b.mod.FindFunction(astFn.Name)
	ir.Invariant(fn != nil, "generateFunction: %q was not declared", astFn.Name)

	entry := fn.NewBlock("entry")
	exit := fn.NewBlock("exit")
	ctx := &fnCtx{b: b, fn: fn, bb: entry, vars: make(map[string]*ir.Instruction), retType: fn.RetType, exit: exit}

	for i, p := range astFn.Params {
		slot := entry.NewAlloca(fn.Params[i].Type())
		entry.NewStore(fn.Params[i], slot)
		ctx.vars[p.Name] = slot
	}
	if _, void := fn.RetType.(*ir.VoidType); !void {
		ctx.retSlot = entry.NewAlloca(fn.RetType)
	}

	if err := ctx.genStatements(astFn.Body); err != nil {
		return err
	}
	if ctx.bb.Terminator() == nil {
		ctx.bb.NewBr(exit)
	}
	if ctx.retSlot == nil {
		exit.NewRet(nil)
	} else {
		exit.NewRet(exit.NewLoad(ctx.retType, ctx.retSlot))
	}
	return nil
}

func (c *fnCtx) genStatements(stmts []ast.Statement) error {
	for i := range stmts {
		if c.bb.Terminator() != nil {
			// Statements after a return/break in the same block are
			// unreachable; RmUnreachBB has nothing to do here since they
			// were never placed in their own block to begin with.
			return nil
		}
		if err := c.genStatement(&stmts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *fnCtx) genStatement(stmt *ast.Statement) error {
	switch stmt.Type {
	case ast.StmtAssign:
		val, err := c.genExpr(stmt.Value)
		if err != nil {
			return err
		}
		slot, ok := c.vars[stmt.Target]
		if !ok {
			slot = c.fn.Entry().NewAllocaFirst(val.Type())
			c.vars[stmt.Target] = slot
		}
		c.bb.NewStore(val, slot)
		return nil

	case ast.StmtReturn:
		if stmt.Value != nil {
			val, err := c.genExpr(stmt.Value)
			if err != nil {
				return err
			}
			ir.Invariant(c.retSlot != nil, "return with value in a void function")
			c.bb.NewStore(val, c.retSlot)
		}
		c.bb.NewBr(c.exit)
		return nil

	case ast.StmtExpr:
		_, err := c.genExpr(stmt.Value)
		return err

	case ast.StmtIf:
		return c.genIf(stmt)

	case ast.StmtWhile, ast.StmtFor:
		return c.genLoop(stmt)

	default:
		return fmt.Errorf("unsupported statement %q", stmt.Type)
	}
}

func (c *fnCtx) genIf(stmt *ast.Statement) error {
	cond, err := c.genExpr(stmt.Cond)
	if err != nil {
		return err
	}
	thenBB := c.fn.NewBlock("")
	elseBB := c.fn.NewBlock("")
	contBB := c.fn.NewBlock("")
	c.bb.NewCondBr(cond, thenBB, elseBB)

	c.bb = thenBB
	if err := c.genStatements(stmt.Then); err != nil {
		return err
	}
	if c.bb.Terminator() == nil {
		c.bb.NewBr(contBB)
	}

	c.bb = elseBB
	if err := c.genStatements(stmt.Else); err != nil {
		return err
	}
	if c.bb.Terminator() == nil {
		c.bb.NewBr(contBB)
	}

	c.bb = contBB
	return nil
}

// genLoop lowers both `while` and `for`: the AST carries the same
// Cond/Body shape for each (ALaS's JSON front end desugars a counted for
// loop into a while with an explicit counter variable before emitting
// this AST), so one header/body/after skeleton serves both.
func (c *fnCtx) genLoop(stmt *ast.Statement) error {
	header := c.fn.NewBlock("")
	body := c.fn.NewBlock("")
	after := c.fn.NewBlock("")

	c.bb.NewBr(header)
	c.bb = header
	cond, err := c.genExpr(stmt.Cond)
	if err != nil {
		return err
	}
	c.bb.NewCondBr(cond, body, after)

	c.bb = body
	if err := c.genStatements(stmt.Body); err != nil {
		return err
	}
	if c.bb.Terminator() == nil {
		c.bb.NewBr(header)
	}

	c.bb = after
	return nil
}

func (c *fnCtx) genExpr(expr *ast.Expression) (ir.Value, error) {
	if expr == nil {
		return nil, fmt.Errorf("nil expression")
	}
	switch expr.Type {
	case ast.ExprLiteral:
		return c.genLiteral(expr.Value)
	case ast.ExprVariable:
		slot, ok := c.vars[expr.Name]
		if !ok {
			return nil, fmt.Errorf("undefined variable %q", expr.Name)
		}
		return c.bb.NewLoad(slot.ElemType, slot), nil
	case ast.ExprBinary:
		return c.genBinary(expr)
	case ast.ExprUnary:
		return c.genUnary(expr)
	case ast.ExprCall:
		return c.genCall(expr)
	default:
		return nil, fmt.Errorf("unsupported expression %q", expr.Type)
	}
}

func (c *fnCtx) genLiteral(v interface{}) (ir.Value, error) {
	switch x := v.(type) {
	case bool:
		return c.b.mod.ConstBool(x), nil
	case int:
		return c.b.mod.ConstInt(32, int64(x)), nil
	case int64:
		return c.b.mod.ConstInt(32, x), nil
	case float64:
		if x == float64(int64(x)) {
			return c.b.mod.ConstInt(32, int64(x)), nil
		}
		return c.b.mod.ConstFloat(x), nil
	default:
		return nil, fmt.Errorf("unsupported literal value %v (%T)", v, v)
	}
}

func isFloat(v ir.Value) bool {
	_, ok := v.Type().(*ir.FloatType)
	return ok
}

// promote casts x to float if y is float and x isn't, so a mixed-type
// binary op's operands always agree, the way dshills-alas/internal/
// codegen/llvm.go's generateBinary coerces int operands up to float
// before emitting an F-prefixed LLVM instruction.
func (c *fnCtx) promote(x, y ir.Value) (ir.Value, ir.Value) {
	switch {
	case isFloat(x) && !isFloat(y):
		y = c.bb.NewSIToFP(y, c.b.mod.Float())
	case isFloat(y) && !isFloat(x):
		x = c.bb.NewSIToFP(x, c.b.mod.Float())
	}
	return x, y
}

func (c *fnCtx) genBinary(expr *ast.Expression) (ir.Value, error) {
	lhs, err := c.genExpr(expr.Left)
	if err != nil {
		return nil, err
	}
	rhs, err := c.genExpr(expr.Right)
	if err != nil {
		return nil, err
	}
	lhs, rhs = c.promote(lhs, rhs)
	flt := isFloat(lhs)

	switch expr.Op {
	case ast.OpAdd:
		if flt {
			return c.bb.NewFAdd(lhs, rhs), nil
		}
		return c.bb.NewAdd(lhs, rhs), nil
	case ast.OpSub:
		if flt {
			return c.bb.NewFSub(lhs, rhs), nil
		}
		return c.bb.NewSub(lhs, rhs), nil
	case ast.OpMul:
		if flt {
			return c.bb.NewFMul(lhs, rhs), nil
		}
		return c.bb.NewMul(lhs, rhs), nil
	case ast.OpDiv:
		if flt {
			return c.bb.NewFDiv(lhs, rhs), nil
		}
		return c.bb.NewSDiv(lhs, rhs), nil
	case ast.OpMod:
		if flt {
			return nil, fmt.Errorf("%% is not defined on float operands")
		}
		return c.bb.NewSRem(lhs, rhs), nil
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		pred, err := comparePredicate(expr.Op)
		if err != nil {
			return nil, err
		}
		if flt {
			return c.bb.NewFCmp(pred, lhs, rhs), nil
		}
		return c.bb.NewICmp(pred, lhs, rhs), nil
	case ast.OpAnd:
		return c.bb.NewAnd(lhs, rhs), nil
	case ast.OpOr:
		return c.bb.NewOr(lhs, rhs), nil
	default:
		return nil, fmt.Errorf("unsupported binary operator %q", expr.Op)
	}
}

func comparePredicate(op string) (ir.Predicate, error) {
	switch op {
	case ast.OpEq:
		return ir.PredEQ, nil
	case ast.OpNe:
		return ir.PredNE, nil
	case ast.OpLt:
		return ir.PredLT, nil
	case ast.OpLe:
		return ir.PredLE, nil
	case ast.OpGt:
		return ir.PredGT, nil
	case ast.OpGe:
		return ir.PredGE, nil
	default:
		return 0, fmt.Errorf("unsupported comparison operator %q", op)
	}
}

func (c *fnCtx) genUnary(expr *ast.Expression) (ir.Value, error) {
	x, err := c.genExpr(expr.Operand)
	if err != nil {
		return nil, err
	}
	switch expr.Op {
	case ast.OpNeg:
		if isFloat(x) {
			return c.bb.NewFSub(c.b.mod.ConstFloat(0), x), nil
		}
		return c.bb.NewSub(c.b.mod.ConstInt(32, 0), x), nil
	case ast.OpNot:
		return c.bb.NewICmp(ir.PredEQ, x, c.b.mod.ConstBool(false)), nil
	default:
		return nil, fmt.Errorf("unsupported unary operator %q", expr.Op)
	}
}

func (c *fnCtx) genCall(expr *ast.Expression) (ir.Value, error) {
	callee := c.b.mod.FindFunction(expr.Name)
	if callee == nil {
		return nil, fmt.Errorf("call to undeclared function %q", expr.Name)
	}
	args := make([]ir.Value, len(expr.Args))
	for i := range expr.Args {
		v, err := c.genExpr(&expr.Args[i])
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return c.bb.NewCall(callee, args...), nil
}
