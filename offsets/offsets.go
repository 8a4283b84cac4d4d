// Package offsets is the frame-layout pass: it assigns every parameter and
// local a frame-relative slot, and computes the total frame size for every
// function. It runs after type checking and before codegen, which reads the
// offsets it sets to implement the calling convention.
//
// Frame layout, offsets relative to the callee's frame pointer:
//
//	-(2+n) .. -2   parameters, last to first
//	-1             reserved return-value slot
//	 0             saved return address
//	 1             saved frame pointer
//	 2             saved stack pointer
//	 3..size-1     locals, in declaration order
package offsets

import (
	"github.com/dr8co/tau/ast"
	"github.com/dr8co/tau/scope"
)

// minFrameSize is the smallest legal frame: bookkeeping slots 0-2 plus one
// slot for the return-value region.
const minFrameSize = 4

// firstLocalOffset is where the first local of a function lives.
const firstLocalOffset = 3

// Assign walks every function declaration in prog, setting each parameter's
// and local's symbol offset, and each FuncDecl's Size.
func Assign(prog *ast.Program, table *scope.Table) {
	for _, f := range prog.Funcs {
		assignFunc(f, table)
	}
}

func assignFunc(f *ast.FuncDecl, table *scope.Table) {
	for i, p := range f.Params {
		table.Symbol(p.Name.Symbol).Offset = -(2 + i)
	}

	counter := firstLocalOffset
	highWater := firstLocalOffset - 1
	assignCompound(f.Body, table, &counter, &highWater)

	size := highWater + 1
	if size < minFrameSize {
		size = minFrameSize
	}
	f.Size = size
}

func assignCompound(c *ast.CompoundStmt, table *scope.Table, counter, highWater *int) {
	for _, v := range c.Vars {
		table.Symbol(v.Name.Symbol).Offset = *counter
		if *counter > *highWater {
			*highWater = *counter
		}
		*counter++
	}
	for _, s := range c.Stmts {
		assignStmt(s, table, counter, highWater)
	}
}

func assignStmt(s ast.Stmt, table *scope.Table, counter, highWater *int) {
	switch s := s.(type) {
	case *ast.CompoundStmt:
		assignCompound(s, table, counter, highWater)
	case *ast.IfStmt:
		assignCompound(s.Then, table, counter, highWater)
		if s.Else != nil {
			assignCompound(s.Else, table, counter, highWater)
		}
	case *ast.WhileStmt:
		assignCompound(s.Body, table, counter, highWater)
	}
}
