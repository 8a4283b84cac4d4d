// Package pipeline wires the compiler passes together in the order the
// language driver runs them: scan, parse, bind, type-check, assign frame
// offsets, generate code. Both the command-line driver and the interactive
// REPL share it so the two front ends can never drift out of step with each
// other about what "compiling a Tau program" means.
package pipeline

import (
	"github.com/dr8co/tau/ast"
	"github.com/dr8co/tau/binder"
	"github.com/dr8co/tau/code"
	"github.com/dr8co/tau/codegen"
	"github.com/dr8co/tau/lexer"
	"github.com/dr8co/tau/offsets"
	"github.com/dr8co/tau/parser"
	"github.com/dr8co/tau/scope"
	"github.com/dr8co/tau/typecheck"
)

// Stage names a point at which the pipeline can be told to stop early, for
// inspecting intermediate passes without running the program.
type Stage string

const (
	Scanner   Stage = "scanner"
	Parser    Stage = "parser"
	Bindings  Stage = "bindings"
	Typecheck Stage = "typecheck"
	Offsets   Stage = "offsets"
)

// ValidStage reports whether s names a recognized stage (the empty string
// means "run to completion" and is valid too).
func ValidStage(s string) bool {
	switch Stage(s) {
	case "", Scanner, Parser, Bindings, Typecheck, Offsets:
		return true
	default:
		return false
	}
}

// Compiled holds the artifacts of a pipeline run that was asked to stop
// before code generation, for callers that want to report on an intermediate
// pass (a --stopafter driver, or a REPL inspecting bindings).
type Compiled struct {
	Program *ast.Program
	Table   *scope.Table
}

// Run scans, parses, and compiles src down to instructions, stopping early
// if stopAfter names a stage before "codegen". It returns the first error
// from whichever pass raises one; insns is nil whenever the pipeline was
// asked to stop early or failed before reaching codegen.
func Run(src string, stopAfter Stage) (insns code.Instructions, stopped *Compiled, err error) {
	l := lexer.New(src)
	if stopAfter == Scanner {
		return nil, &Compiled{}, nil
	}

	prog, err := parser.Parse(l)
	if err != nil {
		return nil, nil, err
	}
	if stopAfter == Parser {
		return nil, &Compiled{Program: prog}, nil
	}

	table := scope.NewTable()
	if err := binder.Bind(prog, table); err != nil {
		return nil, nil, err
	}
	if stopAfter == Bindings {
		return nil, &Compiled{Program: prog, Table: table}, nil
	}

	if err := typecheck.Check(prog, table); err != nil {
		return nil, nil, err
	}
	if stopAfter == Typecheck {
		return nil, &Compiled{Program: prog, Table: table}, nil
	}

	offsets.Assign(prog, table)
	if stopAfter == Offsets {
		return nil, &Compiled{Program: prog, Table: table}, nil
	}

	insns, err = codegen.Generate(prog, table)
	if err != nil {
		return nil, nil, err
	}
	return insns, nil, nil
}
