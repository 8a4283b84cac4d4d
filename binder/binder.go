// Package binder performs name resolution: it builds the scope tree parallel
// to the lexical structure of a [ast.Program] and attaches a [scope.Symbol]
// to every identifier use-site.
//
// It is a pure tree walk with one function per AST node kind, in the style
// of a recursive-descent pass: no value is computed, only side effects on
// the AST's scope and symbol fields and on the shared [scope.Table].
package binder

import (
	"github.com/dr8co/tau/ast"
	"github.com/dr8co/tau/cerr"
	"github.com/dr8co/tau/scope"
)

// Bind populates prog's scope tree and resolves every identifier. It
// returns the first error encountered — an undefined identifier or a
// duplicate declaration — and stops at that point; there is no recovery.
func Bind(prog *ast.Program, table *scope.Table) error {
	b := &binder{table: table}
	b.program(prog)
	return b.err
}

type binder struct {
	table *scope.Table
	err   error
}

func (b *binder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *binder) failed() bool { return b.err != nil }

func (b *binder) program(p *ast.Program) {
	global := b.table.NewGlobal(p.Span())
	p.Scope = global

	for _, f := range p.Funcs {
		if b.failed() {
			return
		}
		id, err := b.table.Define(global, f.Name.String(), f.Name.Span())
		if err != nil {
			b.fail(err)
			return
		}
		f.Name.Symbol = id
	}

	for _, f := range p.Funcs {
		if b.failed() {
			return
		}
		b.funcDecl(f, global)
	}
	if b.failed() {
		return
	}
	if _, ok := b.table.Lookup(global, "main"); !ok {
		b.fail(cerr.New(p.Span(), "program does not declare main"))
	}
}

func (b *binder) funcDecl(f *ast.FuncDecl, global scope.ScopeID) {
	fscope := b.table.NewFunc(global, f.Span())
	f.Scope = fscope

	for _, param := range f.Params {
		id, err := b.table.Define(fscope, param.Name.String(), param.Name.Span())
		if err != nil {
			b.fail(err)
			return
		}
		param.Name.Symbol = id
		b.typeAST(param.Type, fscope)
	}
	b.typeAST(f.RetType, fscope)
	if b.failed() {
		return
	}
	b.compound(f.Body, fscope)
}

func (b *binder) compound(c *ast.CompoundStmt, parent scope.ScopeID) {
	local := b.table.NewLocal(parent, c.Span())
	c.Scope = local

	for _, v := range c.Vars {
		if b.failed() {
			return
		}
		id, err := b.table.Define(local, v.Name.String(), v.Name.Span())
		if err != nil {
			b.fail(err)
			return
		}
		v.Name.Symbol = id
		b.typeAST(v.Type, local)
	}

	for _, s := range c.Stmts {
		if b.failed() {
			return
		}
		b.stmt(s, local)
	}
}

func (b *binder) stmt(s ast.Stmt, cur scope.ScopeID) {
	switch s := s.(type) {
	case *ast.CompoundStmt:
		b.compound(s, cur)
	case *ast.AssignStmt:
		b.expr(s.LHS, cur)
		b.expr(s.RHS, cur)
	case *ast.IfStmt:
		b.expr(s.Cond, cur)
		if b.failed() {
			return
		}
		b.compound(s.Then, cur)
		if s.Else != nil {
			b.compound(s.Else, cur)
		}
	case *ast.WhileStmt:
		b.expr(s.Cond, cur)
		if b.failed() {
			return
		}
		b.compound(s.Body, cur)
	case *ast.ReturnStmt:
		s.Scope = cur
		if s.Value != nil {
			b.expr(s.Value, cur)
		}
	case *ast.CallStmt:
		b.expr(s.Call, cur)
	case *ast.PrintStmt:
		b.expr(s.Value, cur)
	default:
		b.fail(cerr.New(s.Span(), "binder: unhandled statement %T", s))
	}
}

func (b *binder) expr(e ast.Expr, cur scope.ScopeID) {
	if b.failed() {
		return
	}
	switch e := e.(type) {
	case *ast.IdExpr:
		b.id(e.Id, cur)
	case *ast.CallExpr:
		b.id(e.Callee.Id, cur)
		for _, a := range e.Args {
			b.expr(a, cur)
		}
	case *ast.ArrayCell:
		b.expr(e.Array, cur)
		b.expr(e.Index, cur)
	case *ast.IntLiteral, *ast.BoolLiteral:
		// no identifiers to resolve
	case *ast.BinaryOp:
		b.expr(e.Left, cur)
		b.expr(e.Right, cur)
	case *ast.UnaryOp:
		b.expr(e.Operand, cur)
	default:
		b.fail(cerr.New(e.Span(), "binder: unhandled expression %T", e))
	}
}

func (b *binder) id(id *ast.Id, cur scope.ScopeID) {
	sym, ok := b.table.Lookup(cur, id.String())
	if !ok {
		b.fail(cerr.New(id.Span(), "undefined identifier %s", id.String()))
		return
	}
	id.Symbol = sym
}

func (b *binder) typeAST(t ast.TypeAST, cur scope.ScopeID) {
	at, ok := t.(*ast.ArrayType)
	if !ok {
		return
	}
	if at.Size != nil {
		b.expr(at.Size, cur)
	}
	b.typeAST(at.Elem, cur)
}
