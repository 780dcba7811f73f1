package irbuild_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/ssaopt/internal/ast"
	"github.com/dshills/ssaopt/internal/ir"
	"github.com/dshills/ssaopt/internal/irbuild"
)

func expr(t string, left, right *ast.Expression, op string) *ast.Expression {
	return &ast.Expression{Type: t, Left: left, Right: right, Op: op}
}

func literal(v interface{}) *ast.Expression {
	return &ast.Expression{Type: ast.ExprLiteral, Value: v}
}

func variable(name string) *ast.Expression {
	return &ast.Expression{Type: ast.ExprVariable, Name: name}
}

// addOne builds `function addone(x int) int { return x + 1 }`.
func addOne() *ast.Module {
	return &ast.Module{
		Type: "module",
		Name: "m",
		Functions: []ast.Function{
			{
				Type:    "function",
				Name:    "addone",
				Params:  []ast.Parameter{{Name: "x", Type: ast.TypeInt}},
				Returns: ast.TypeInt,
				Body: []ast.Statement{
					{Type: ast.StmtReturn, Value: expr(ast.ExprBinary, variable("x"), literal(1), ast.OpAdd)},
				},
			},
		},
	}
}

func TestBuildLowersSimpleFunction(t *testing.T) {
	mod, err := irbuild.New().Build(addOne())
	require.NoError(t, err)
	fn := mod.FindFunction("addone")
	require.NotNil(t, fn, "addone not found in lowered module")
	require.NotNil(t, fn.Exit(), "want a unique ret-terminated exit block")
	require.Len(t, fn.Params, 1)
	require.Equal(t, "x", fn.Params[0].Name())
}

// countTo builds a while loop summing 1..n-1 into acc, the way a simple
// counted loop desugars into a while with a manual counter.
func countTo() *ast.Module {
	return &ast.Module{
		Type: "module",
		Name: "m",
		Functions: []ast.Function{
			{
				Type:    "function",
				Name:    "sumto",
				Params:  []ast.Parameter{{Name: "n", Type: ast.TypeInt}},
				Returns: ast.TypeInt,
				Body: []ast.Statement{
					{Type: ast.StmtAssign, Target: "acc", Value: literal(0)},
					{Type: ast.StmtAssign, Target: "i", Value: literal(0)},
					{
						Type: ast.StmtWhile,
						Cond: expr(ast.ExprBinary, variable("i"), variable("n"), ast.OpLt),
						Body: []ast.Statement{
							{Type: ast.StmtAssign, Target: "acc", Value: expr(ast.ExprBinary, variable("acc"), variable("i"), ast.OpAdd)},
							{Type: ast.StmtAssign, Target: "i", Value: expr(ast.ExprBinary, variable("i"), literal(1), ast.OpAdd)},
						},
					},
					{Type: ast.StmtReturn, Value: variable("acc")},
				},
			},
		},
	}
}

func TestBuildLowersWhileLoop(t *testing.T) {
	mod, err := irbuild.New().Build(countTo())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	fn := mod.FindFunction("sumto")
	if fn == nil {
		t.Fatal("sumto not found")
	}
	// entry, header, body, after, exit: a while loop's skeleton plus the
	// function-wide exit block.
	if len(fn.Blocks) != 5 {
		t.Errorf("want 5 blocks (entry/header/body/after/exit), got %d", len(fn.Blocks))
	}
	if fn.Exit() == nil {
		t.Error("want a unique ret-terminated exit block")
	}
}

func TestBuildRejectsUnsupportedType(t *testing.T) {
	mod := &ast.Module{
		Type: "module",
		Name: "m",
		Functions: []ast.Function{
			{Type: "function", Name: "f", Returns: ast.TypeMap, Body: []ast.Statement{}},
		},
	}
	if _, err := irbuild.New().Build(mod); err == nil {
		t.Error("want an error lowering a map-returning function, got nil")
	}
}

func TestBuildCallBetweenFunctionsResolvesForwardDeclaration(t *testing.T) {
	mod := &ast.Module{
		Type: "module",
		Name: "m",
		Functions: []ast.Function{
			{
				Type:    "function",
				Name:    "main",
				Returns: ast.TypeInt,
				Body: []ast.Statement{
					{Type: ast.StmtReturn, Value: &ast.Expression{Type: ast.ExprCall, Name: "helper", Args: nil}},
				},
			},
			{
				Type:    "function",
				Name:    "helper",
				Returns: ast.TypeInt,
				Body: []ast.Statement{
					{Type: ast.StmtReturn, Value: literal(1)},
				},
			},
		},
	}
	built, err := irbuild.New().Build(mod)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	main := built.FindFunction("main")
	found := false
	for _, bb := range main.Blocks {
		for _, in := range bb.Insts {
			if in.Op == ir.OpCall && in.CalleeFunc().Name() == "helper" {
				found = true
			}
		}
	}
	if !found {
		t.Error("want a call to helper somewhere in main, forward declaration should have resolved it")
	}
}
