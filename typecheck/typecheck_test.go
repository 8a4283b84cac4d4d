package typecheck

import (
	"testing"

	"github.com/dr8co/tau/ast"
	"github.com/dr8co/tau/binder"
	"github.com/dr8co/tau/scope"
	"github.com/dr8co/tau/semtype"
	"github.com/dr8co/tau/token"
)

func span() token.Span { return token.Span{} }

func ident(name string) *ast.Id {
	return ast.NewId(token.Token{Type: token.Ident, Literal: name})
}

func opTok(lit string) token.Token { return token.Token{Literal: lit} }

// bindAndCheck runs the binder then the type checker, mirroring the real
// pipeline order, and fails the test if binding itself errors.
func bindAndCheck(t *testing.T, prog *ast.Program) error {
	t.Helper()
	table := scope.NewTable()
	if err := binder.Bind(prog, table); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return Check(prog, table)
}

func TestCheckAssignTypeMismatch(t *testing.T) {
	body := ast.NewCompoundStmt(
		[]*ast.VarDecl{ast.NewVarDecl(ident("x"), ast.NewIntType(span()), span())},
		[]ast.Stmt{ast.NewAssignStmt(ast.NewIdExpr(ident("x"), span()), ast.NewBoolLiteral(true, span()), span())},
		span(),
	)
	main := ast.NewFuncDecl(ident("main"), nil, ast.NewVoidType(span()), body, span())
	prog := ast.NewProgram([]*ast.FuncDecl{main}, span())

	if err := bindAndCheck(t, prog); err == nil {
		t.Fatal("expected a type mismatch error assigning bool to int")
	}
}

func TestCheckAssignOK(t *testing.T) {
	body := ast.NewCompoundStmt(
		[]*ast.VarDecl{ast.NewVarDecl(ident("x"), ast.NewIntType(span()), span())},
		[]ast.Stmt{ast.NewAssignStmt(ast.NewIdExpr(ident("x"), span()), ast.NewIntLiteral(1, span()), span())},
		span(),
	)
	main := ast.NewFuncDecl(ident("main"), nil, ast.NewVoidType(span()), body, span())
	prog := ast.NewProgram([]*ast.FuncDecl{main}, span())

	if err := bindAndCheck(t, prog); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckIfConditionMustBeBool(t *testing.T) {
	ifStmt := ast.NewIfStmt(ast.NewIntLiteral(1, span()), ast.NewCompoundStmt(nil, nil, span()), nil, span())
	body := ast.NewCompoundStmt(nil, []ast.Stmt{ifStmt}, span())
	main := ast.NewFuncDecl(ident("main"), nil, ast.NewVoidType(span()), body, span())
	prog := ast.NewProgram([]*ast.FuncDecl{main}, span())

	if err := bindAndCheck(t, prog); err == nil {
		t.Fatal("expected an error for a non-bool if condition")
	}
}

func TestCheckReturnTypeMatch(t *testing.T) {
	body := ast.NewCompoundStmt(nil,
		[]ast.Stmt{ast.NewReturnStmt(ast.NewIntLiteral(1, span()), span())}, span())
	f := ast.NewFuncDecl(ident("f"), nil, ast.NewIntType(span()), body, span())
	main := ast.NewFuncDecl(ident("main"), nil, ast.NewVoidType(span()), ast.NewCompoundStmt(nil, nil, span()), span())
	prog := ast.NewProgram([]*ast.FuncDecl{f, main}, span())

	if err := bindAndCheck(t, prog); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckReturnVoidRejectsValue(t *testing.T) {
	body := ast.NewCompoundStmt(nil,
		[]ast.Stmt{ast.NewReturnStmt(ast.NewIntLiteral(1, span()), span())}, span())
	f := ast.NewFuncDecl(ident("f"), nil, ast.NewVoidType(span()), body, span())
	main := ast.NewFuncDecl(ident("main"), nil, ast.NewVoidType(span()), ast.NewCompoundStmt(nil, nil, span()), span())
	prog := ast.NewProgram([]*ast.FuncDecl{f, main}, span())

	if err := bindAndCheck(t, prog); err == nil {
		t.Fatal("expected an error returning a value from a void function")
	}
}

func TestCheckCallArityMismatch(t *testing.T) {
	fBody := ast.NewCompoundStmt(nil, nil, span())
	f := ast.NewFuncDecl(ident("f"),
		[]*ast.ParamDecl{ast.NewParamDecl(ident("a"), ast.NewIntType(span()), span())},
		ast.NewVoidType(span()), fBody, span())

	call := ast.NewCallStmt(ast.NewCallExpr(ast.NewIdExpr(ident("f"), span()), nil, span()), span())
	main := ast.NewFuncDecl(ident("main"), nil, ast.NewVoidType(span()),
		ast.NewCompoundStmt(nil, []ast.Stmt{call}, span()), span())
	prog := ast.NewProgram([]*ast.FuncDecl{f, main}, span())

	if err := bindAndCheck(t, prog); err == nil {
		t.Fatal("expected an arity mismatch error")
	}
}

func TestCheckCallArgTypeMismatch(t *testing.T) {
	fBody := ast.NewCompoundStmt(nil, nil, span())
	f := ast.NewFuncDecl(ident("f"),
		[]*ast.ParamDecl{ast.NewParamDecl(ident("a"), ast.NewIntType(span()), span())},
		ast.NewVoidType(span()), fBody, span())

	call := ast.NewCallStmt(
		ast.NewCallExpr(ast.NewIdExpr(ident("f"), span()), []ast.Expr{ast.NewBoolLiteral(true, span())}, span()),
		span())
	main := ast.NewFuncDecl(ident("main"), nil, ast.NewVoidType(span()),
		ast.NewCompoundStmt(nil, []ast.Stmt{call}, span()), span())
	prog := ast.NewProgram([]*ast.FuncDecl{f, main}, span())

	if err := bindAndCheck(t, prog); err == nil {
		t.Fatal("expected an argument-type mismatch error")
	}
}

func TestCheckBinaryOpTypes(t *testing.T) {
	cases := []struct {
		name    string
		op      string
		left    ast.Expr
		right   ast.Expr
		wantErr bool
	}{
		{"int+int ok", "+", ast.NewIntLiteral(1, span()), ast.NewIntLiteral(2, span()), false},
		{"int+bool rejected", "+", ast.NewIntLiteral(1, span()), ast.NewBoolLiteral(true, span()), true},
		{"bool and bool ok", "and", ast.NewBoolLiteral(true, span()), ast.NewBoolLiteral(false, span()), false},
		{"int and bool rejected", "and", ast.NewIntLiteral(1, span()), ast.NewBoolLiteral(false, span()), true},
		{"int<int ok", "<", ast.NewIntLiteral(1, span()), ast.NewIntLiteral(2, span()), false},
		{"int<bool rejected", "<", ast.NewIntLiteral(1, span()), ast.NewBoolLiteral(true, span()), true},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			e := ast.NewBinaryOp(opTok(tt.op), tt.left, tt.right, span())
			body := ast.NewCompoundStmt(nil, []ast.Stmt{ast.NewPrintStmt(e, span())}, span())
			main := ast.NewFuncDecl(ident("main"), nil, ast.NewVoidType(span()), body, span())
			prog := ast.NewProgram([]*ast.FuncDecl{main}, span())

			err := bindAndCheck(t, prog)
			if tt.wantErr && err == nil {
				t.Error("expected a type error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCheckArrayIndexForcesIntResult(t *testing.T) {
	body := ast.NewCompoundStmt(
		[]*ast.VarDecl{ast.NewVarDecl(ident("a"), ast.NewArrayType(nil, ast.NewIntType(span()), span()), span())},
		[]ast.Stmt{ast.NewPrintStmt(
			ast.NewArrayCell(ast.NewIdExpr(ident("a"), span()), ast.NewIntLiteral(0, span()), span()),
			span(),
		)},
		span(),
	)
	main := ast.NewFuncDecl(ident("main"), nil, ast.NewVoidType(span()), body, span())
	prog := ast.NewProgram([]*ast.FuncDecl{main}, span())

	table := scope.NewTable()
	if err := binder.Bind(prog, table); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := Check(prog, table); err != nil {
		t.Fatalf("Check: %v", err)
	}
	cell := body.Stmts[0].(*ast.PrintStmt).Value.(*ast.ArrayCell)
	if _, ok := cell.SemType().(semtype.Int); !ok {
		t.Errorf("ArrayCell semtype = %v, want Int", cell.SemType())
	}
}
