package binder

import (
	"testing"

	"github.com/dr8co/tau/ast"
	"github.com/dr8co/tau/scope"
	"github.com/dr8co/tau/token"
)

func span() token.Span { return token.Span{} }

func ident(name string) *ast.Id {
	return ast.NewId(token.Token{Type: token.Ident, Literal: name})
}

func emptyMain() *ast.FuncDecl {
	body := ast.NewCompoundStmt(nil, nil, span())
	return ast.NewFuncDecl(ident("main"), nil, ast.NewVoidType(span()), body, span())
}

func TestBindResolvesLocal(t *testing.T) {
	body := ast.NewCompoundStmt(
		[]*ast.VarDecl{ast.NewVarDecl(ident("x"), ast.NewIntType(span()), span())},
		[]ast.Stmt{ast.NewPrintStmt(ast.NewIdExpr(ident("x"), span()), span())},
		span(),
	)
	main := ast.NewFuncDecl(ident("main"), nil, ast.NewVoidType(span()), body, span())
	prog := ast.NewProgram([]*ast.FuncDecl{main}, span())

	table := scope.NewTable()
	if err := Bind(prog, table); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	printStmt := body.Stmts[0].(*ast.PrintStmt)
	id := printStmt.Value.(*ast.IdExpr).Id
	if id.Symbol == scope.NoSymbol {
		t.Fatal("x was not resolved")
	}
	if got := table.Symbol(id.Symbol).Name; got != "x" {
		t.Errorf("resolved name = %q, want x", got)
	}
}

func TestBindUndefinedIdentifier(t *testing.T) {
	body := ast.NewCompoundStmt(nil,
		[]ast.Stmt{ast.NewPrintStmt(ast.NewIdExpr(ident("nope"), span()), span())},
		span(),
	)
	main := ast.NewFuncDecl(ident("main"), nil, ast.NewVoidType(span()), body, span())
	prog := ast.NewProgram([]*ast.FuncDecl{main}, span())

	if err := Bind(prog, scope.NewTable()); err == nil {
		t.Fatal("expected an error for an undefined identifier")
	}
}

func TestBindRequiresMain(t *testing.T) {
	other := ast.NewFuncDecl(ident("other"), nil, ast.NewVoidType(span()), ast.NewCompoundStmt(nil, nil, span()), span())
	prog := ast.NewProgram([]*ast.FuncDecl{other}, span())

	err := Bind(prog, scope.NewTable())
	if err == nil {
		t.Fatal("expected an error for a program missing main")
	}
}

func TestBindAllowsForwardReference(t *testing.T) {
	// main calls helper, declared after it.
	call := ast.NewCallStmt(
		ast.NewCallExpr(ast.NewIdExpr(ident("helper"), span()), nil, span()),
		span(),
	)
	main := ast.NewFuncDecl(ident("main"), nil, ast.NewVoidType(span()),
		ast.NewCompoundStmt(nil, []ast.Stmt{call}, span()), span())
	helper := ast.NewFuncDecl(ident("helper"), nil, ast.NewVoidType(span()),
		ast.NewCompoundStmt(nil, nil, span()), span())
	prog := ast.NewProgram([]*ast.FuncDecl{main, helper}, span())

	if err := Bind(prog, scope.NewTable()); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if call.Call.Callee.Id.Symbol == scope.NoSymbol {
		t.Fatal("forward-referenced helper was not resolved")
	}
}

func TestBindRejectsRedeclarationInSameScope(t *testing.T) {
	body := ast.NewCompoundStmt(
		[]*ast.VarDecl{
			ast.NewVarDecl(ident("x"), ast.NewIntType(span()), span()),
			ast.NewVarDecl(ident("x"), ast.NewIntType(span()), span()),
		},
		nil, span(),
	)
	main := ast.NewFuncDecl(ident("main"), nil, ast.NewVoidType(span()), body, span())
	prog := ast.NewProgram([]*ast.FuncDecl{main}, span())

	if err := Bind(prog, scope.NewTable()); err == nil {
		t.Fatal("expected a redeclaration error")
	}
}

func TestBindShadowingAcrossScopesAllowed(t *testing.T) {
	inner := ast.NewCompoundStmt(
		[]*ast.VarDecl{ast.NewVarDecl(ident("x"), ast.NewIntType(span()), span())},
		nil, span(),
	)
	outer := ast.NewCompoundStmt(
		[]*ast.VarDecl{ast.NewVarDecl(ident("x"), ast.NewIntType(span()), span())},
		[]ast.Stmt{inner},
		span(),
	)
	main := ast.NewFuncDecl(ident("main"), nil, ast.NewVoidType(span()), outer, span())
	prog := ast.NewProgram([]*ast.FuncDecl{main}, span())

	if err := Bind(prog, scope.NewTable()); err != nil {
		t.Fatalf("Bind: %v (shadowing across nested scopes should be allowed)", err)
	}
}
