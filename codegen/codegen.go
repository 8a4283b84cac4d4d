// Package codegen lowers a bound, type-checked, offset-assigned
// [ast.Program] into a flat [code.Instructions] program for the stack VM.
//
// It implements the calling convention described for the frame layout in
// package offsets, a short-circuit emission scheme for boolean expressions
// (see the control method), and the l-value/r-value distinction: an
// l-value computation leaves an address on the evaluation stack, an
// r-value computation leaves a value.
package codegen

import (
	"fmt"

	"github.com/dr8co/tau/ast"
	"github.com/dr8co/tau/cerr"
	"github.com/dr8co/tau/code"
	"github.com/dr8co/tau/scope"
	"github.com/dr8co/tau/semtype"
)

// Generate lowers prog to a flat instruction list, or returns the first
// codegen error encountered (currently only "array types are not lowered").
func Generate(prog *ast.Program, table *scope.Table) (code.Instructions, error) {
	g := &generator{table: table}
	out := g.program(prog)
	if g.err != nil {
		return nil, g.err
	}
	return out, nil
}

type generator struct {
	table   *scope.Table
	err     error
	labelID int
}

func (g *generator) fail(err error) {
	if g.err == nil {
		g.err = err
	}
}

func (g *generator) failed() bool { return g.err != nil }

// freshLabel returns a unique label built from prefix; Go has no stable
// per-node identity the way the reference uses id(ast-node), so disambiguation
// is a monotonically increasing counter instead.
func (g *generator) freshLabel(prefix string) string {
	g.labelID++
	return fmt.Sprintf("%s%d", prefix, g.labelID)
}

func (g *generator) program(p *ast.Program) code.Instructions {
	var out code.Instructions
	out = append(out, code.Instruction{Op: code.PushLabel, Label: "main"})
	out = append(out, code.Instruction{Op: code.Call})
	out = append(out, code.Instruction{Op: code.Halt})
	for _, f := range p.Funcs {
		if g.failed() {
			return nil
		}
		out = append(out, code.Instruction{Op: code.Label, Label: f.Name.String()})
		out = append(out, g.funcDecl(f)...)
	}
	out = append(out, code.Instruction{Op: code.Halt})
	return out
}

func (g *generator) funcDecl(f *ast.FuncDecl) code.Instructions {
	var out code.Instructions
	offset := int64(f.Size)

	out = append(out,
		code.Instruction{Op: code.PushSP, Int: 0, Comment: "address of return-address slot"},
		code.Instruction{Op: code.Swap},
		code.Instruction{Op: code.Store},
		code.Instruction{Op: code.PushSP, Int: 1, Comment: "address of saved-FP slot"},
		code.Instruction{Op: code.PushFP, Int: 0, Comment: "FP value to save"},
		code.Instruction{Op: code.Store},
		code.Instruction{Op: code.PushSP, Int: 2, Comment: "address of saved-SP slot"},
		code.Instruction{Op: code.PushSP, Int: 0, Comment: "SP value to save"},
		code.Instruction{Op: code.Store},
		code.Instruction{Op: code.PushSP, Int: 0},
		code.Instruction{Op: code.PopFP, Comment: "FP = old SP"},
		code.Instruction{Op: code.PushSP, Int: offset},
		code.Instruction{Op: code.PopSP, Comment: "SP = old SP + frame size"},
	)

	out = append(out, g.compound(f.Body)...)
	if g.failed() {
		return nil
	}

	if !endsInReturn(f.Body) {
		out = append(out, g.epilogue()...)
	}
	return out
}

// endsInReturn reports whether c's last statement is already a ReturnStmt,
// in which case a trailing fall-through epilogue would be unreachable.
func endsInReturn(c *ast.CompoundStmt) bool {
	if len(c.Stmts) == 0 {
		return false
	}
	_, ok := c.Stmts[len(c.Stmts)-1].(*ast.ReturnStmt)
	return ok
}

// epilogue restores the caller's FP and SP and jumps back to the saved
// return address. Shared by the function's fall-through exit and every
// ReturnStmt.
func (g *generator) epilogue() code.Instructions {
	return code.Instructions{
		{Op: code.PushFP, Int: 0},
		{Op: code.Load},
		{Op: code.PushFP, Int: 2, Comment: "caller's SP"},
		{Op: code.Load},
		{Op: code.PopSP},
		{Op: code.PushFP, Int: 1, Comment: "caller's FP"},
		{Op: code.Load},
		{Op: code.PopFP},
		{Op: code.JumpIndirect},
	}
}

func (g *generator) compound(c *ast.CompoundStmt) code.Instructions {
	var out code.Instructions
	for _, s := range c.Stmts {
		if g.failed() {
			return nil
		}
		out = append(out, g.stmt(s)...)
	}
	return out
}

func (g *generator) stmt(s ast.Stmt) code.Instructions {
	switch s := s.(type) {
	case *ast.CompoundStmt:
		return g.compound(s)
	case *ast.AssignStmt:
		return g.assignStmt(s)
	case *ast.IfStmt:
		return g.ifStmt(s)
	case *ast.WhileStmt:
		return g.whileStmt(s)
	case *ast.ReturnStmt:
		return g.returnStmt(s)
	case *ast.CallStmt:
		return g.callStmt(s)
	case *ast.PrintStmt:
		return g.printStmt(s)
	default:
		g.fail(cerr.New(s.Span(), "codegen: unhandled statement %T", s))
		return nil
	}
}

func (g *generator) assignStmt(s *ast.AssignStmt) code.Instructions {
	var out code.Instructions
	out = append(out, g.lval(s.LHS)...)
	out = append(out, g.rval(s.RHS)...)
	if g.failed() {
		return nil
	}
	out = append(out, code.Instruction{Op: code.Store})
	return out
}

func (g *generator) printStmt(s *ast.PrintStmt) code.Instructions {
	out := g.rval(s.Value)
	if g.failed() {
		return nil
	}
	return append(out, code.Instruction{Op: code.Print})
}

func (g *generator) ifStmt(s *ast.IfStmt) code.Instructions {
	elseLabel := g.freshLabel("else")
	exitLabel := g.freshLabel("exit")

	var out code.Instructions
	out = append(out, g.control(s.Cond, elseLabel, false)...)
	out = append(out, g.compound(s.Then)...)
	if g.failed() {
		return nil
	}
	out = append(out, code.Instruction{Op: code.Jump, Label: exitLabel})
	out = append(out, code.Instruction{Op: code.Label, Label: elseLabel})
	if s.Else != nil {
		out = append(out, g.compound(s.Else)...)
		if g.failed() {
			return nil
		}
	}
	out = append(out, code.Instruction{Op: code.Label, Label: exitLabel})
	return out
}

func (g *generator) whileStmt(s *ast.WhileStmt) code.Instructions {
	topLabel := g.freshLabel("top")
	exitLabel := g.freshLabel("exit")

	var out code.Instructions
	out = append(out, code.Instruction{Op: code.Label, Label: topLabel})
	out = append(out, g.control(s.Cond, exitLabel, false)...)
	out = append(out, g.compound(s.Body)...)
	if g.failed() {
		return nil
	}
	out = append(out, code.Instruction{Op: code.Jump, Label: topLabel})
	out = append(out, code.Instruction{Op: code.Label, Label: exitLabel})
	return out
}

func (g *generator) returnStmt(s *ast.ReturnStmt) code.Instructions {
	var out code.Instructions
	if s.Value != nil {
		out = append(out, code.Instruction{Op: code.PushFP, Int: -1})
		out = append(out, g.rval(s.Value)...)
		if g.failed() {
			return nil
		}
		out = append(out, code.Instruction{Op: code.Store})
	}
	return append(out, g.epilogue()...)
}

func (g *generator) callStmt(s *ast.CallStmt) code.Instructions {
	out := g.rval(s.Call)
	if g.failed() {
		return nil
	}
	if _, void := s.Call.SemType().(semtype.Void); !void {
		out = append(out, code.Instruction{Op: code.Pop})
	}
	return out
}

// control emits code that transfers control to label iff e evaluates to the
// boolean sense; otherwise falls through.
func (g *generator) control(e ast.Expr, label string, sense bool) code.Instructions {
	switch e := e.(type) {
	case *ast.BoolLiteral:
		if e.Value == sense {
			return code.Instructions{{Op: code.Jump, Label: label}}
		}
		return nil
	case *ast.BinaryOp:
		return g.controlBinaryOp(e, label, sense)
	case *ast.UnaryOp:
		return g.controlUnaryOp(e, label, sense)
	case *ast.IdExpr, *ast.CallExpr:
		out := g.rval(e)
		if g.failed() {
			return nil
		}
		if sense {
			return append(out, code.Instruction{Op: code.JumpIfNotZero, Label: label})
		}
		return append(out, code.Instruction{Op: code.JumpIfZero, Label: label})
	default:
		g.fail(cerr.New(e.Span(), "codegen: control() not implemented for %T", e))
		return nil
	}
}

var comparisonOps = map[string]code.Opcode{
	"<":  code.LessThan,
	"<=": code.LessEq,
	">":  code.GreaterThan,
	">=": code.GreaterEq,
	"==": code.Equal,
	"!=": code.NotEqual,
}

func (g *generator) controlBinaryOp(e *ast.BinaryOp, label string, sense bool) code.Instructions {
	switch e.Op.Literal {
	case "and":
		if sense {
			exitLabel := g.freshLabel("exit")
			var out code.Instructions
			out = append(out, g.control(e.Left, exitLabel, false)...)
			out = append(out, g.control(e.Right, label, true)...)
			out = append(out, code.Instruction{Op: code.Label, Label: exitLabel})
			return out
		}
		var out code.Instructions
		out = append(out, g.control(e.Left, label, false)...)
		out = append(out, g.control(e.Right, label, false)...)
		return out
	case "or":
		if sense {
			var out code.Instructions
			out = append(out, g.control(e.Left, label, true)...)
			out = append(out, g.control(e.Right, label, true)...)
			return out
		}
		exitLabel := g.freshLabel("exit")
		var out code.Instructions
		out = append(out, g.control(e.Left, exitLabel, true)...)
		out = append(out, g.control(e.Right, label, false)...)
		out = append(out, code.Instruction{Op: code.Label, Label: exitLabel})
		return out
	default:
		op, ok := comparisonOps[e.Op.Literal]
		if !ok {
			g.fail(cerr.New(e.Span(), "codegen: control() not implemented for operator %s", e.Op.Literal))
			return nil
		}
		var out code.Instructions
		out = append(out, g.rval(e.Left)...)
		out = append(out, g.rval(e.Right)...)
		if g.failed() {
			return nil
		}
		out = append(out, code.Instruction{Op: op})
		if sense {
			out = append(out, code.Instruction{Op: code.JumpIfNotZero, Label: label})
		} else {
			out = append(out, code.Instruction{Op: code.JumpIfZero, Label: label})
		}
		return out
	}
}

func (g *generator) controlUnaryOp(e *ast.UnaryOp, label string, sense bool) code.Instructions {
	if e.Op.Literal != "not" {
		g.fail(cerr.New(e.Span(), "codegen: control() not implemented for unary operator %s", e.Op.Literal))
		return nil
	}
	return g.control(e.Operand, label, !sense)
}

// lval computes the address of an l-value expression, leaving it on the
// evaluation stack.
func (g *generator) lval(e ast.Expr) code.Instructions {
	switch e := e.(type) {
	case *ast.IdExpr:
		return g.lvalID(e)
	case *ast.ArrayCell:
		g.fail(cerr.New(e.Span(), "codegen: array types are parsed but not lowered"))
		return nil
	default:
		g.fail(cerr.New(e.Span(), "codegen: %T is not an l-value", e))
		return nil
	}
}

func (g *generator) lvalID(e *ast.IdExpr) code.Instructions {
	sym := g.table.Symbol(e.Id.Symbol)
	if g.table.Scope(sym.Scope).Kind == scope.Global {
		return code.Instructions{{Op: code.PushLabel, Label: e.Id.String()}}
	}
	return code.Instructions{{Op: code.PushFP, Int: int64(sym.Offset)}}
}

// rval computes the value of an expression, leaving it on the evaluation
// stack.
func (g *generator) rval(e ast.Expr) code.Instructions {
	switch e := e.(type) {
	case *ast.BinaryOp:
		return g.rvalBinaryOp(e)
	case *ast.UnaryOp:
		return g.rvalUnaryOp(e)
	case *ast.CallExpr:
		return g.rvalCallExpr(e)
	case *ast.IdExpr:
		out := g.lval(e)
		if g.failed() {
			return nil
		}
		return append(out, code.Instruction{Op: code.Load})
	case *ast.IntLiteral:
		return code.Instructions{{Op: code.PushImmediate, Int: e.Value}}
	case *ast.BoolLiteral:
		n := int64(0)
		if e.Value {
			n = 1
		}
		return code.Instructions{{Op: code.PushImmediate, Int: n}}
	case *ast.ArrayCell:
		g.fail(cerr.New(e.Span(), "codegen: array types are parsed but not lowered"))
		return nil
	default:
		g.fail(cerr.New(e.Span(), "codegen: unhandled expression %T", e))
		return nil
	}
}

func (g *generator) rvalCallExpr(e *ast.CallExpr) code.Instructions {
	// Raise SP past the callee's argument and return-value slots first, so
	// they land above the caller's frame instead of over its bookkeeping
	// slots and locals; SP is lowered again once the result is loaded.
	reserve := int64(len(e.Args) + 1)
	out := code.Instructions{
		{Op: code.PushSP, Int: reserve},
		{Op: code.PopSP, Comment: "reserve argument and return-value slots"},
	}
	for i, a := range e.Args {
		out = append(out, code.Instruction{Op: code.PushSP, Int: int64(-(i + 2))})
		out = append(out, g.rval(a)...)
		if g.failed() {
			return nil
		}
		out = append(out, code.Instruction{Op: code.Store})
	}
	out = append(out, g.lval(e.Callee)...)
	if g.failed() {
		return nil
	}
	out = append(out, code.Instruction{Op: code.Call})
	out = append(out, code.Instruction{Op: code.PushSP, Int: -1})
	out = append(out, code.Instruction{Op: code.Load})
	out = append(out, code.Instruction{Op: code.PushSP, Int: -reserve})
	out = append(out, code.Instruction{Op: code.PopSP, Comment: "release argument and return-value slots"})
	return out
}

var arithmeticOps = map[string]code.Opcode{
	"+": code.Add,
	"-": code.Sub,
	"*": code.Mul,
	"/": code.Div,
}

func (g *generator) rvalBinaryOp(e *ast.BinaryOp) code.Instructions {
	if op, ok := arithmeticOps[e.Op.Literal]; ok {
		var out code.Instructions
		out = append(out, g.rval(e.Left)...)
		out = append(out, g.rval(e.Right)...)
		if g.failed() {
			return nil
		}
		return append(out, code.Instruction{Op: op})
	}
	if op, ok := comparisonOps[e.Op.Literal]; ok {
		var out code.Instructions
		out = append(out, g.rval(e.Left)...)
		out = append(out, g.rval(e.Right)...)
		if g.failed() {
			return nil
		}
		return append(out, code.Instruction{Op: op})
	}
	switch e.Op.Literal {
	case "and", "or":
		return g.shortCircuitToValue(e)
	default:
		g.fail(cerr.New(e.Span(), "codegen: unknown binary operator %s", e.Op.Literal))
		return nil
	}
}

// shortCircuitToValue generates control(e, trueLabel, true) bracketed by
// immediate pushes, turning a short-circuit jump scheme into a 0/1 value.
// Used for and/or/not's boolean result, per the short-circuit emission rule.
func (g *generator) shortCircuitToValue(e ast.Expr) code.Instructions {
	trueLabel := g.freshLabel("true")
	exitLabel := g.freshLabel("exit")

	var out code.Instructions
	out = append(out, g.control(e, trueLabel, true)...)
	if g.failed() {
		return nil
	}
	out = append(out,
		code.Instruction{Op: code.PushImmediate, Int: 0},
		code.Instruction{Op: code.Jump, Label: exitLabel},
		code.Instruction{Op: code.Label, Label: trueLabel},
		code.Instruction{Op: code.PushImmediate, Int: 1},
		code.Instruction{Op: code.Label, Label: exitLabel},
	)
	return out
}

func (g *generator) rvalUnaryOp(e *ast.UnaryOp) code.Instructions {
	switch e.Op.Literal {
	case "-":
		out := g.rval(e.Operand)
		if g.failed() {
			return nil
		}
		return append(out,
			code.Instruction{Op: code.PushImmediate, Int: -1},
			code.Instruction{Op: code.Mul},
		)
	case "not":
		return g.shortCircuitToValue(e)
	default:
		g.fail(cerr.New(e.Span(), "codegen: unknown unary operator %s", e.Op.Literal))
		return nil
	}
}
