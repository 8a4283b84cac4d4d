package offsets

import (
	"testing"

	"github.com/dr8co/tau/ast"
	"github.com/dr8co/tau/scope"
	"github.com/dr8co/tau/semtype"
	"github.com/dr8co/tau/token"
)

func ident(name string) *ast.Id {
	return ast.NewId(token.Token{Type: token.Ident, Literal: name})
}

func span() token.Span { return token.Span{} }

func TestAssignParamOffsets(t *testing.T) {
	table := scope.NewTable()
	global := table.NewGlobal(span())

	aName, bName := ident("a"), ident("b")
	params := []*ast.ParamDecl{
		ast.NewParamDecl(aName, ast.NewIntType(span()), span()),
		ast.NewParamDecl(bName, ast.NewIntType(span()), span()),
	}
	body := ast.NewCompoundStmt(nil, nil, span())
	f := ast.NewFuncDecl(ident("f"), params, ast.NewVoidType(span()), body, span())

	fscope := table.NewFunc(global, span())
	for _, p := range params {
		id, _ := table.Define(fscope, p.Name.String(), span())
		p.Name.Symbol = id
		table.Symbol(id).Type = semtype.Int{}
	}
	f.Scope = fscope

	Assign(&ast.Program{Funcs: []*ast.FuncDecl{f}}, table)

	if got := table.Symbol(aName.Symbol).Offset; got != -2 {
		t.Errorf("param a offset = %d, want -2", got)
	}
	if got := table.Symbol(bName.Symbol).Offset; got != -3 {
		t.Errorf("param b offset = %d, want -3", got)
	}
}

func TestAssignLocalsMonotonicAcrossBlocks(t *testing.T) {
	table := scope.NewTable()
	global := table.NewGlobal(span())
	fscope := table.NewFunc(global, span())

	xName := ident("x")
	yName := ident("y")
	thenVar := ast.NewVarDecl(xName, ast.NewIntType(span()), span())
	thenBlock := ast.NewCompoundStmt([]*ast.VarDecl{thenVar}, nil, span())
	elseVar := ast.NewVarDecl(yName, ast.NewIntType(span()), span())
	elseBlock := ast.NewCompoundStmt([]*ast.VarDecl{elseVar}, nil, span())

	ifStmt := ast.NewIfStmt(nil, thenBlock, elseBlock, span())
	body := ast.NewCompoundStmt(nil, []ast.Stmt{ifStmt}, span())
	f := ast.NewFuncDecl(ident("f"), nil, ast.NewVoidType(span()), body, span())
	f.Scope = fscope

	for _, v := range []*ast.VarDecl{thenVar, elseVar} {
		id, _ := table.Define(fscope, v.Name.String(), span())
		v.Name.Symbol = id
	}

	Assign(&ast.Program{Funcs: []*ast.FuncDecl{f}}, table)

	if got := table.Symbol(xName.Symbol).Offset; got != firstLocalOffset {
		t.Errorf("x offset = %d, want %d", got, firstLocalOffset)
	}
	if got := table.Symbol(yName.Symbol).Offset; got != firstLocalOffset+1 {
		t.Errorf("y offset = %d (sibling blocks must not reuse offsets), want %d", got, firstLocalOffset+1)
	}
}

func TestAssignFrameSizeFloor(t *testing.T) {
	table := scope.NewTable()
	global := table.NewGlobal(span())
	fscope := table.NewFunc(global, span())
	body := ast.NewCompoundStmt(nil, nil, span())
	f := ast.NewFuncDecl(ident("f"), nil, ast.NewVoidType(span()), body, span())
	f.Scope = fscope

	Assign(&ast.Program{Funcs: []*ast.FuncDecl{f}}, table)

	if f.Size != minFrameSize {
		t.Errorf("Size = %d, want floor %d for an empty frame", f.Size, minFrameSize)
	}
}

func TestAssignFrameSizeGrowsWithLocals(t *testing.T) {
	table := scope.NewTable()
	global := table.NewGlobal(span())
	fscope := table.NewFunc(global, span())

	names := []*ast.Id{ident("a"), ident("b"), ident("c")}
	var vars []*ast.VarDecl
	for _, n := range names {
		vars = append(vars, ast.NewVarDecl(n, ast.NewIntType(span()), span()))
	}
	body := ast.NewCompoundStmt(vars, nil, span())
	f := ast.NewFuncDecl(ident("f"), nil, ast.NewVoidType(span()), body, span())
	f.Scope = fscope

	for _, v := range vars {
		id, _ := table.Define(fscope, v.Name.String(), span())
		v.Name.Symbol = id
	}

	Assign(&ast.Program{Funcs: []*ast.FuncDecl{f}}, table)

	want := firstLocalOffset + len(vars)
	if f.Size != want {
		t.Errorf("Size = %d, want %d", f.Size, want)
	}
}
