// Package parser implements the syntactic analyzer for the Tau programming
// language.
//
// It is a recursive-descent parser: each grammar production gets its own
// method, and the expression grammar's operator precedence (or, and,
// comparisons, +/-, * //, unary) is climbed by chaining those methods rather
// than by a Pratt-style prefix/infix function table, since Tau's precedence
// ladder is fixed and has no user-extensible operators. The current token
// (cur) alone is enough to decide every production.
//
// Parsing stops at the first syntax error; there is no error recovery.
package parser

import (
	"strconv"

	"github.com/dr8co/tau/ast"
	"github.com/dr8co/tau/cerr"
	"github.com/dr8co/tau/lexer"
	"github.com/dr8co/tau/token"
)

// Parse scans and parses a complete Tau program from l, returning the first
// syntax error encountered, if any.
func Parse(l *lexer.Lexer) (*ast.Program, error) {
	p := New(l)
	prog := p.program()
	if p.failed() {
		return nil, p.err
	}
	p.match(token.EOF)
	if p.failed() {
		return nil, p.err
	}
	return prog, nil
}

// Parser holds the recursive-descent parser's state: the token stream and
// the first error encountered, if any.
type Parser struct {
	l    *lexer.Lexer
	cur  token.Token
	peek token.Token
	err  error
}

// New builds a Parser over l, primed with the first two tokens.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	p.next()
	return p
}

func (p *Parser) fail(span token.Span, format string, args ...any) {
	if p.err == nil {
		p.err = cerr.New(span, format, args...)
	}
}

func (p *Parser) failed() bool { return p.err != nil }

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

// match consumes the current token if it has type t, failing otherwise. It
// is a no-op once the parser has already failed, so callers can chain
// productions without checking failed() after every single token.
func (p *Parser) match(t token.Type) token.Token {
	if p.failed() {
		return token.Token{}
	}
	if p.cur.Type != t {
		p.fail(p.cur.Span, "expected %s, got %q", t, p.cur.Literal)
		return token.Token{}
	}
	tok := p.cur
	p.next()
	return tok
}

func span(start, end token.Span) token.Span {
	return token.Merge(start, end)
}

// ---- program, functions --------------------------------------------------

// program -> funcDecl { funcDecl }
func (p *Parser) program() *ast.Program {
	var funcs []*ast.FuncDecl
	first := p.funcDecl()
	if p.failed() {
		return nil
	}
	funcs = append(funcs, first)
	for p.cur.Type == token.Func {
		f := p.funcDecl()
		if p.failed() {
			return nil
		}
		funcs = append(funcs, f)
	}
	return ast.NewProgram(funcs, span(first.Span(), funcs[len(funcs)-1].Span()))
}

// funcDecl -> "func" ID "(" [ param { "," param } ] ")" [ ":" typeName ] compound
func (p *Parser) funcDecl() *ast.FuncDecl {
	begin := p.match(token.Func)
	name := ast.NewId(p.match(token.Ident))
	p.match(token.Lparen)
	var params []*ast.ParamDecl
	if p.cur.Type == token.Ident {
		params = append(params, p.paramDecl())
		for p.cur.Type == token.Comma {
			p.next()
			params = append(params, p.paramDecl())
		}
	}
	p.match(token.Rparen)

	var retType ast.TypeAST = ast.NewVoidType(p.cur.Span)
	if p.cur.Type == token.Colon {
		p.next()
		retType = p.typeName()
	}
	body := p.compound()
	if p.failed() {
		return nil
	}
	return ast.NewFuncDecl(name, params, retType, body, span(begin.Span, body.Span()))
}

// param -> ID ":" typeName
func (p *Parser) paramDecl() *ast.ParamDecl {
	name := ast.NewId(p.match(token.Ident))
	p.match(token.Colon)
	typ := p.typeName()
	if p.failed() {
		return nil
	}
	return ast.NewParamDecl(name, typ, span(name.Span(), typ.Span()))
}

// varDecl -> "var" ID ":" typeName
func (p *Parser) varDecl() *ast.VarDecl {
	begin := p.match(token.Var)
	name := ast.NewId(p.match(token.Ident))
	p.match(token.Colon)
	typ := p.typeName()
	if p.failed() {
		return nil
	}
	return ast.NewVarDecl(name, typ, span(begin.Span, typ.Span()))
}

// typeName -> "void" | "int" | "bool" | "[" [ expr ] "]" typeName
func (p *Parser) typeName() ast.TypeAST {
	switch p.cur.Type {
	case token.Void:
		tok := p.match(token.Void)
		return ast.NewVoidType(tok.Span)
	case token.IntTy:
		tok := p.match(token.IntTy)
		return ast.NewIntType(tok.Span)
	case token.BoolTy:
		tok := p.match(token.BoolTy)
		return ast.NewBoolType(tok.Span)
	case token.Lbracket:
		begin := p.match(token.Lbracket)
		var size ast.Expr
		if p.startsExpr() {
			size = p.expr()
		}
		p.match(token.Rbracket)
		elem := p.typeName()
		if p.failed() {
			return nil
		}
		return ast.NewArrayType(size, elem, span(begin.Span, elem.Span()))
	default:
		p.fail(p.cur.Span, "expected a type, got %q", p.cur.Literal)
		return nil
	}
}

// startsExpr reports whether the current token can begin an expression,
// used to decide optional-expression productions (array sizes, call args).
func (p *Parser) startsExpr() bool {
	switch p.cur.Type {
	case token.Lparen, token.Minus, token.Not, token.True, token.False, token.Ident, token.Int:
		return true
	default:
		return false
	}
}

// ---- statements -----------------------------------------------------------

// compound -> "{" { varDecl } { stmt } [ returnStmt ] "}"
func (p *Parser) compound() *ast.CompoundStmt {
	begin := p.match(token.Lbrace)
	if p.failed() {
		return nil
	}
	var vars []*ast.VarDecl
	for p.cur.Type == token.Var {
		vars = append(vars, p.varDecl())
		if p.failed() {
			return nil
		}
	}
	var stmts []ast.Stmt
	for p.startsStmt() {
		stmts = append(stmts, p.stmt())
		if p.failed() {
			return nil
		}
	}
	if p.cur.Type == token.Return {
		stmts = append(stmts, p.returnStmt())
	}
	end := p.match(token.Rbrace)
	if p.failed() {
		return nil
	}
	return ast.NewCompoundStmt(vars, stmts, span(begin.Span, end.Span))
}

func (p *Parser) startsStmt() bool {
	switch p.cur.Type {
	case token.Call, token.If, token.Print, token.While, token.Lbrace, token.Ident:
		return true
	default:
		return false
	}
}

// stmt -> whileStmt | compound | ifStmt | print | funcCall | varAssignment
func (p *Parser) stmt() ast.Stmt {
	switch p.cur.Type {
	case token.While:
		return p.whileStmt()
	case token.Lbrace:
		return p.compound()
	case token.If:
		return p.ifStmt()
	case token.Print:
		return p.printStmt()
	case token.Call:
		return p.callStmt()
	case token.Ident:
		return p.varAssignment()
	default:
		p.fail(p.cur.Span, "unexpected %q", p.cur.Literal)
		return nil
	}
}

// returnStmt -> "return" expr
func (p *Parser) returnStmt() ast.Stmt {
	begin := p.match(token.Return)
	value := p.expr()
	if p.failed() {
		return nil
	}
	return ast.NewReturnStmt(value, span(begin.Span, value.Span()))
}

// whileStmt -> "while" expr compound
func (p *Parser) whileStmt() ast.Stmt {
	begin := p.match(token.While)
	cond := p.expr()
	body := p.compound()
	if p.failed() {
		return nil
	}
	return ast.NewWhileStmt(cond, body, span(begin.Span, body.Span()))
}

// ifStmt -> "if" expr compound [ "else" compound ]
func (p *Parser) ifStmt() ast.Stmt {
	begin := p.match(token.If)
	cond := p.expr()
	then := p.compound()
	if p.failed() {
		return nil
	}
	var els *ast.CompoundStmt
	end := then.Span()
	if p.cur.Type == token.Else {
		p.next()
		els = p.compound()
		if p.failed() {
			return nil
		}
		end = els.Span()
	}
	return ast.NewIfStmt(cond, then, els, span(begin.Span, end))
}

// print -> "print" expr
func (p *Parser) printStmt() ast.Stmt {
	begin := p.match(token.Print)
	value := p.expr()
	if p.failed() {
		return nil
	}
	return ast.NewPrintStmt(value, span(begin.Span, value.Span()))
}

// funcCall -> "call" ID funcAssignCall, as a standalone statement. The
// keyword is mandatory here: it is what distinguishes a bare call statement
// from the start of a varAssignment.
func (p *Parser) callStmt() ast.Stmt {
	begin := p.match(token.Call)
	name := ast.NewId(p.match(token.Ident))
	idExpr := ast.NewIdExpr(name, name.Span())
	args, end := p.funcAssignCall()
	if p.failed() {
		return nil
	}
	call := ast.NewCallExpr(idExpr, args, span(idExpr.Span(), end.Span))
	return ast.NewCallStmt(call, span(begin.Span, end.Span))
}

// varAssignment -> ID [ arrayIndex ] "=" expr
func (p *Parser) varAssignment() ast.Stmt {
	name := ast.NewId(p.match(token.Ident))
	var lhs ast.Expr = ast.NewIdExpr(name, name.Span())
	if p.cur.Type == token.Lbracket {
		indices, ends := p.arrayIndex()
		if p.failed() {
			return nil
		}
		lhs = p.buildArrayCell(lhs, indices, ends)
	}
	p.match(token.Assign)
	rhs := p.expr()
	if p.failed() {
		return nil
	}
	return ast.NewAssignStmt(lhs, rhs, span(lhs.Span(), rhs.Span()))
}

// arrayIndex -> "[" expr "]" { "[" expr "]" }
func (p *Parser) arrayIndex() ([]ast.Expr, []token.Token) {
	p.match(token.Lbracket)
	idx := p.expr()
	indices := []ast.Expr{idx}
	end := p.match(token.Rbracket)
	ends := []token.Token{end}
	for p.cur.Type == token.Lbracket {
		p.next()
		indices = append(indices, p.expr())
		ends = append(ends, p.match(token.Rbracket))
	}
	return indices, ends
}

// buildArrayCell folds a base expression and a chain of index expressions
// into nested ArrayCell nodes, left-associatively: a[i][j] becomes
// ArrayCell(ArrayCell(a, i), j).
func (p *Parser) buildArrayCell(base ast.Expr, indices []ast.Expr, ends []token.Token) ast.Expr {
	res := ast.NewArrayCell(base, indices[0], span(base.Span(), ends[0].Span))
	var cur ast.Expr = res
	for i := 1; i < len(indices); i++ {
		cur = ast.NewArrayCell(cur, indices[i], span(base.Span(), ends[i].Span))
	}
	return cur
}

// funcAssignCall -> "(" [ expr { "," expr } ] ")"
func (p *Parser) funcAssignCall() ([]ast.Expr, token.Token) {
	p.match(token.Lparen)
	var args []ast.Expr
	if p.startsExpr() {
		args = append(args, p.expr())
		for p.cur.Type == token.Comma {
			p.next()
			args = append(args, p.expr())
		}
	}
	end := p.match(token.Rparen)
	return args, end
}

// ---- expressions ------------------------------------------------------------
//
// expr  -> expr1 { "or"  expr1 }
// expr1 -> expr2 { "and" expr2 }
// expr2 -> expr3 { ("<"|"<="|"=="|"!="|">"|">=") expr3 }
// expr3 -> expr4 { ("+"|"-") expr4 }
// expr4 -> base  { ("*"|"/") base }

func (p *Parser) expr() ast.Expr {
	left := p.expr1()
	for p.cur.Type == token.Or {
		op := p.match(token.Or)
		right := p.expr1()
		if p.failed() {
			return nil
		}
		left = ast.NewBinaryOp(op, left, right, span(left.Span(), right.Span()))
	}
	return left
}

func (p *Parser) expr1() ast.Expr {
	left := p.expr2()
	for p.cur.Type == token.And {
		op := p.match(token.And)
		right := p.expr2()
		if p.failed() {
			return nil
		}
		left = ast.NewBinaryOp(op, left, right, span(left.Span(), right.Span()))
	}
	return left
}

func (p *Parser) expr2() ast.Expr {
	left := p.expr3()
	for isComparisonOp(p.cur.Type) {
		op := p.cur
		p.next()
		right := p.expr3()
		if p.failed() {
			return nil
		}
		left = ast.NewBinaryOp(op, left, right, span(left.Span(), right.Span()))
	}
	return left
}

func isComparisonOp(t token.Type) bool {
	switch t {
	case token.Lt, token.Lte, token.Eq, token.NotEq, token.Gt, token.Gte:
		return true
	default:
		return false
	}
}

func (p *Parser) expr3() ast.Expr {
	left := p.expr4()
	for p.cur.Type == token.Plus || p.cur.Type == token.Minus {
		op := p.cur
		p.next()
		right := p.expr4()
		if p.failed() {
			return nil
		}
		left = ast.NewBinaryOp(op, left, right, span(left.Span(), right.Span()))
	}
	return left
}

func (p *Parser) expr4() ast.Expr {
	left := p.base()
	for p.cur.Type == token.Asterisk || p.cur.Type == token.Slash {
		op := p.cur
		p.next()
		right := p.base()
		if p.failed() {
			return nil
		}
		left = ast.NewBinaryOp(op, left, right, span(left.Span(), right.Span()))
	}
	return left
}

// base -> { "not" | "-" } ( "call" ID funcAssignCall
//
//	| ID [ funcAssignCall | arrayIndex ]
//	| INT | "true" | "false" | "(" expr ")" )
//
// Multiple stacked prefix operators (e.g. "- - x", "not not b") build nested
// UnaryOp nodes, innermost operand first.
func (p *Parser) base() ast.Expr {
	var prefixes []token.Token
	for p.cur.Type == token.Minus || p.cur.Type == token.Not {
		prefixes = append(prefixes, p.cur)
		p.next()
	}

	var result ast.Expr
	switch p.cur.Type {
	case token.Call:
		// Optional keyword before an identifier call used as an expression;
		// the statement-level call still requires it separately (callStmt).
		p.next()
		name := ast.NewId(p.match(token.Ident))
		idExpr := ast.NewIdExpr(name, name.Span())
		args, end := p.funcAssignCall()
		if p.failed() {
			return nil
		}
		result = ast.NewCallExpr(idExpr, args, span(idExpr.Span(), end.Span))
	case token.Ident:
		name := ast.NewId(p.match(token.Ident))
		idExpr := ast.NewIdExpr(name, name.Span())
		switch p.cur.Type {
		case token.Lparen:
			args, end := p.funcAssignCall()
			if p.failed() {
				return nil
			}
			result = ast.NewCallExpr(idExpr, args, span(idExpr.Span(), end.Span))
		case token.Lbracket:
			indices, ends := p.arrayIndex()
			if p.failed() {
				return nil
			}
			result = p.buildArrayCell(idExpr, indices, ends)
		default:
			result = idExpr
		}
	case token.Int:
		tok := p.match(token.Int)
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.fail(tok.Span, "invalid integer literal %q", tok.Literal)
			return nil
		}
		result = ast.NewIntLiteral(v, tok.Span)
	case token.True:
		tok := p.match(token.True)
		result = ast.NewBoolLiteral(true, tok.Span)
	case token.False:
		tok := p.match(token.False)
		result = ast.NewBoolLiteral(false, tok.Span)
	case token.Lparen:
		p.next()
		result = p.expr()
		p.match(token.Rparen)
	default:
		p.fail(p.cur.Span, "unexpected %q", p.cur.Literal)
		return nil
	}
	if p.failed() {
		return nil
	}

	for i := len(prefixes) - 1; i >= 0; i-- {
		result = ast.NewUnaryOp(prefixes[i], result, span(prefixes[i].Span, result.Span()))
	}
	return result
}
