// Package ast defines Tau's abstract syntax tree.
//
// The tree is a closed, sum-typed hierarchy: a fixed set of node variants for
// declarations, types, statements, and expressions. The parser builds nodes
// with phony type annotations and unresolved identifiers; the binder,
// type checker, and offset pass each mutate those annotations in place as
// they walk the tree. Codegen is the only pass that only reads it.
package ast

import (
	"strconv"
	"strings"

	"github.com/dr8co/tau/scope"
	"github.com/dr8co/tau/semtype"
	"github.com/dr8co/tau/token"
)

// Node is implemented by every AST node.
type Node interface {
	Span() token.Span
	String() string
}

// Decl is implemented by top-level and local declarations.
type Decl interface {
	Node
	declNode()
}

// TypeAST is implemented by every type-annotation node variant.
type TypeAST interface {
	Node
	typeNode()
	SemType() semtype.Type
	SetSemType(t semtype.Type)
}

// Stmt is implemented by every statement variant.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is implemented by every expression variant.
type Expr interface {
	Node
	exprNode()
	SemType() semtype.Type
	SetSemType(t semtype.Type)
}

// typed is embedded by every node that carries a mutable semantic type,
// initialized to the phony sentinel until the type checker runs.
type typed struct {
	semType semtype.Type
}

func newTyped() typed { return typed{semType: semtype.Phony{}} }

func (t *typed) SemType() semtype.Type     { return t.semType }
func (t *typed) SetSemType(s semtype.Type) { t.semType = s }

// Id is a leaf wrapping an identifier token. After binding, Symbol refers to
// the declaration it names; before binding it is [scope.NoSymbol].
type Id struct {
	typed
	Token  token.Token
	Symbol scope.SymbolID
}

// NewId builds an Id from an identifier token, unresolved.
func NewId(tok token.Token) *Id {
	return &Id{typed: newTyped(), Token: tok, Symbol: scope.NoSymbol}
}

func (i *Id) Span() token.Span { return i.Token.Span }
func (i *Id) String() string   { return i.Token.Literal }

// ---- Program ----------------------------------------------------------------

// Program is the root node: an ordered sequence of function declarations.
type Program struct {
	Funcs []*FuncDecl
	Scope scope.ScopeID
	span  token.Span
}

func NewProgram(funcs []*FuncDecl, span token.Span) *Program {
	return &Program{Funcs: funcs, Scope: scope.NoScope, span: span}
}

func (p *Program) Span() token.Span { return p.span }
func (p *Program) String() string {
	var b strings.Builder
	for _, f := range p.Funcs {
		b.WriteString(f.String())
		b.WriteString("\n")
	}
	return b.String()
}

// ---- Declarations -------------------------------------------------------------

// FuncDecl is a function declaration: name, parameters, return type, and body.
// Scope is populated by the binder; Size is populated by the offset pass.
type FuncDecl struct {
	Name    *Id
	Params  []*ParamDecl
	RetType TypeAST
	Body    *CompoundStmt
	Scope   scope.ScopeID
	Size    int
	span    token.Span
}

func NewFuncDecl(name *Id, params []*ParamDecl, ret TypeAST, body *CompoundStmt, span token.Span) *FuncDecl {
	return &FuncDecl{Name: name, Params: params, RetType: ret, Body: body, Scope: scope.NoScope, span: span}
}

func (f *FuncDecl) Span() token.Span { return f.span }
func (f *FuncDecl) declNode()        {}
func (f *FuncDecl) String() string {
	var b strings.Builder
	b.WriteString("func ")
	b.WriteString(f.Name.String())
	b.WriteString("(")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString("): ")
	b.WriteString(f.RetType.String())
	b.WriteString(" ")
	b.WriteString(f.Body.String())
	return b.String()
}

// ParamDecl is one function parameter: a name and its declared type.
type ParamDecl struct {
	Name *Id
	Type TypeAST
	span token.Span
}

func NewParamDecl(name *Id, typ TypeAST, span token.Span) *ParamDecl {
	return &ParamDecl{Name: name, Type: typ, span: span}
}

func (p *ParamDecl) Span() token.Span { return p.span }
func (p *ParamDecl) declNode()        {}
func (p *ParamDecl) String() string   { return p.Name.String() + ": " + p.Type.String() }

// VarDecl is a local variable declaration inside a compound statement.
type VarDecl struct {
	Name *Id
	Type TypeAST
	span token.Span
}

func NewVarDecl(name *Id, typ TypeAST, span token.Span) *VarDecl {
	return &VarDecl{Name: name, Type: typ, span: span}
}

func (v *VarDecl) Span() token.Span { return v.span }
func (v *VarDecl) declNode()        {}
func (v *VarDecl) String() string   { return "var " + v.Name.String() + ": " + v.Type.String() }

// ---- Type annotations ---------------------------------------------------------

// IntType is the "int" type annotation.
type IntType struct {
	typed
	span token.Span
}

func NewIntType(span token.Span) *IntType { return &IntType{typed: newTyped(), span: span} }
func (t *IntType) Span() token.Span       { return t.span }
func (t *IntType) typeNode()              {}
func (t *IntType) String() string         { return "int" }

// BoolType is the "bool" type annotation.
type BoolType struct {
	typed
	span token.Span
}

func NewBoolType(span token.Span) *BoolType { return &BoolType{typed: newTyped(), span: span} }
func (t *BoolType) Span() token.Span        { return t.span }
func (t *BoolType) typeNode()               {}
func (t *BoolType) String() string          { return "bool" }

// VoidType is the "void" type annotation, also the implicit return type of a
// function declared without one.
type VoidType struct {
	typed
	span token.Span
}

func NewVoidType(span token.Span) *VoidType { return &VoidType{typed: newTyped(), span: span} }
func (t *VoidType) Span() token.Span        { return t.span }
func (t *VoidType) typeNode()               {}
func (t *VoidType) String() string          { return "void" }

// ArrayType is "[" [size] "]" elem. Size is nil when no size expression was
// given. Array types parse and type-check but are never lowered by codegen.
type ArrayType struct {
	typed
	Size Expr // optional
	Elem TypeAST
	span token.Span
}

func NewArrayType(size Expr, elem TypeAST, span token.Span) *ArrayType {
	return &ArrayType{typed: newTyped(), Size: size, Elem: elem, span: span}
}

func (t *ArrayType) Span() token.Span { return t.span }
func (t *ArrayType) typeNode()        {}
func (t *ArrayType) String() string {
	if t.Size != nil {
		return "[" + t.Size.String() + "]" + t.Elem.String()
	}
	return "[]" + t.Elem.String()
}

// ---- Statements ---------------------------------------------------------------

// CompoundStmt is a "{" block: local declarations followed by statements.
// Scope is populated by the binder.
type CompoundStmt struct {
	Vars  []*VarDecl
	Stmts []Stmt
	Scope scope.ScopeID
	span  token.Span
}

func NewCompoundStmt(vars []*VarDecl, stmts []Stmt, span token.Span) *CompoundStmt {
	return &CompoundStmt{Vars: vars, Stmts: stmts, Scope: scope.NoScope, span: span}
}

func (c *CompoundStmt) Span() token.Span { return c.span }
func (c *CompoundStmt) stmtNode()        {}
func (c *CompoundStmt) String() string {
	var b strings.Builder
	b.WriteString("{\n")
	for _, v := range c.Vars {
		b.WriteString("  ")
		b.WriteString(v.String())
		b.WriteString("\n")
	}
	for _, s := range c.Stmts {
		b.WriteString("  ")
		b.WriteString(s.String())
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

// AssignStmt assigns the value of RHS to the lvalue LHS.
type AssignStmt struct {
	LHS, RHS Expr
	span     token.Span
}

func NewAssignStmt(lhs, rhs Expr, span token.Span) *AssignStmt {
	return &AssignStmt{LHS: lhs, RHS: rhs, span: span}
}

func (a *AssignStmt) Span() token.Span { return a.span }
func (a *AssignStmt) stmtNode()        {}
func (a *AssignStmt) String() string   { return a.LHS.String() + " = " + a.RHS.String() }

// IfStmt is a conditional with an optional else branch.
type IfStmt struct {
	Cond Expr
	Then *CompoundStmt
	Else *CompoundStmt // nil if absent
	span token.Span
}

func NewIfStmt(cond Expr, then, els *CompoundStmt, span token.Span) *IfStmt {
	return &IfStmt{Cond: cond, Then: then, Else: els, span: span}
}

func (i *IfStmt) Span() token.Span { return i.span }
func (i *IfStmt) stmtNode()        {}
func (i *IfStmt) String() string {
	s := "if " + i.Cond.String() + " " + i.Then.String()
	if i.Else != nil {
		s += " else " + i.Else.String()
	}
	return s
}

// WhileStmt is a pretest loop.
type WhileStmt struct {
	Cond Expr
	Body *CompoundStmt
	span token.Span
}

func NewWhileStmt(cond Expr, body *CompoundStmt, span token.Span) *WhileStmt {
	return &WhileStmt{Cond: cond, Body: body, span: span}
}

func (w *WhileStmt) Span() token.Span { return w.span }
func (w *WhileStmt) stmtNode()        {}
func (w *WhileStmt) String() string   { return "while " + w.Cond.String() + " " + w.Body.String() }

// ReturnStmt returns from the enclosing function, optionally with a value.
// Scope is the scope enclosing the return, populated by the binder.
type ReturnStmt struct {
	Value Expr // nil for a bare "return" in a void function
	Scope scope.ScopeID
	span  token.Span
}

func NewReturnStmt(value Expr, span token.Span) *ReturnStmt {
	return &ReturnStmt{Value: value, Scope: scope.NoScope, span: span}
}

func (r *ReturnStmt) Span() token.Span { return r.span }
func (r *ReturnStmt) stmtNode()        {}
func (r *ReturnStmt) String() string {
	if r.Value == nil {
		return "return"
	}
	return "return " + r.Value.String()
}

// CallStmt wraps a CallExpr used as a standalone statement.
type CallStmt struct {
	Call *CallExpr
	span token.Span
}

func NewCallStmt(call *CallExpr, span token.Span) *CallStmt {
	return &CallStmt{Call: call, span: span}
}

func (c *CallStmt) Span() token.Span { return c.span }
func (c *CallStmt) stmtNode()        {}
func (c *CallStmt) String() string   { return "call " + c.Call.String() }

// PrintStmt prints the value of an expression followed by a newline.
type PrintStmt struct {
	Value Expr
	span  token.Span
}

func NewPrintStmt(value Expr, span token.Span) *PrintStmt {
	return &PrintStmt{Value: value, span: span}
}

func (p *PrintStmt) Span() token.Span { return p.span }
func (p *PrintStmt) stmtNode()        {}
func (p *PrintStmt) String() string   { return "print " + p.Value.String() }

// ---- Expressions ---------------------------------------------------------------

// IdExpr is an identifier used as an expression (a variable, parameter, or
// function reference).
type IdExpr struct {
	typed
	Id   *Id
	span token.Span
}

func NewIdExpr(id *Id, span token.Span) *IdExpr {
	return &IdExpr{typed: newTyped(), Id: id, span: span}
}

func (i *IdExpr) Span() token.Span { return i.span }
func (i *IdExpr) exprNode()        {}
func (i *IdExpr) String() string   { return i.Id.String() }

// CallExpr calls the function named by Callee with the given arguments.
type CallExpr struct {
	typed
	Callee *IdExpr
	Args   []Expr
	span   token.Span
}

func NewCallExpr(callee *IdExpr, args []Expr, span token.Span) *CallExpr {
	return &CallExpr{typed: newTyped(), Callee: callee, Args: args, span: span}
}

func (c *CallExpr) Span() token.Span { return c.span }
func (c *CallExpr) exprNode()        {}
func (c *CallExpr) String() string {
	var b strings.Builder
	b.WriteString(c.Callee.String())
	b.WriteString("(")
	for i, a := range c.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteString(")")
	return b.String()
}

// ArrayCell indexes Array by Index. Parses and type-checks, but is never
// lowered by codegen — see the design notes on array support.
type ArrayCell struct {
	typed
	Array Expr
	Index Expr
	span  token.Span
}

func NewArrayCell(array, index Expr, span token.Span) *ArrayCell {
	return &ArrayCell{typed: newTyped(), Array: array, Index: index, span: span}
}

func (a *ArrayCell) Span() token.Span { return a.span }
func (a *ArrayCell) exprNode()        {}
func (a *ArrayCell) String() string   { return a.Array.String() + "[" + a.Index.String() + "]" }

// IntLiteral is a literal integer value.
type IntLiteral struct {
	typed
	Value int64
	span  token.Span
}

func NewIntLiteral(value int64, span token.Span) *IntLiteral {
	return &IntLiteral{typed: newTyped(), Value: value, span: span}
}

func (i *IntLiteral) Span() token.Span { return i.span }
func (i *IntLiteral) exprNode()        {}
func (i *IntLiteral) String() string   { return strconv.FormatInt(i.Value, 10) }

// BoolLiteral is a literal boolean value.
type BoolLiteral struct {
	typed
	Value bool
	span  token.Span
}

func NewBoolLiteral(value bool, span token.Span) *BoolLiteral {
	return &BoolLiteral{typed: newTyped(), Value: value, span: span}
}

func (b *BoolLiteral) Span() token.Span { return b.span }
func (b *BoolLiteral) exprNode()        {}
func (b *BoolLiteral) String() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// BinaryOp is a binary operator expression: "+ - * / < <= > >= == != and or".
type BinaryOp struct {
	typed
	Op          token.Token
	Left, Right Expr
	span        token.Span
}

func NewBinaryOp(op token.Token, left, right Expr, span token.Span) *BinaryOp {
	return &BinaryOp{typed: newTyped(), Op: op, Left: left, Right: right, span: span}
}

func (b *BinaryOp) Span() token.Span { return b.span }
func (b *BinaryOp) exprNode()        {}
func (b *BinaryOp) String() string {
	return "(" + b.Left.String() + " " + b.Op.Literal + " " + b.Right.String() + ")"
}

// UnaryOp is a unary operator expression: "-" or "not".
type UnaryOp struct {
	typed
	Op      token.Token
	Operand Expr
	span    token.Span
}

func NewUnaryOp(op token.Token, operand Expr, span token.Span) *UnaryOp {
	return &UnaryOp{typed: newTyped(), Op: op, Operand: operand, span: span}
}

func (u *UnaryOp) Span() token.Span { return u.span }
func (u *UnaryOp) exprNode()        {}
func (u *UnaryOp) String() string   { return "(" + u.Op.Literal + u.Operand.String() + ")" }
