// Package semtype defines Tau's closed semantic-type lattice.
//
// Every expression, declaration, and type annotation in the AST carries one
// of these types once the type checker has run. Equality is structural, not
// pointer identity: two [Array] values with equal element types are equal,
// and two [Func] values with equal parameter and return types are equal.
package semtype

import "strings"

// Type is the interface implemented by every semantic type variant.
type Type interface {
	// Equal reports whether t and other denote the same semantic type.
	Equal(other Type) bool
	String() string
}

// Int is the type of integer-valued expressions.
type Int struct{}

func (Int) Equal(other Type) bool { _, ok := other.(Int); return ok }
func (Int) String() string        { return "int" }

// Bool is the type of boolean-valued expressions.
type Bool struct{}

func (Bool) Equal(other Type) bool { _, ok := other.(Bool); return ok }
func (Bool) String() string        { return "bool" }

// Void is the type of a function that returns no value.
type Void struct{}

func (Void) Equal(other Type) bool { _, ok := other.(Void); return ok }
func (Void) String() string        { return "void" }

// Phony is the sentinel type every AST node is annotated with before type
// checking runs. Equal reports any two Phony values as equal; Phony only
// ever appears transiently.
type Phony struct{}

func (Phony) Equal(other Type) bool { _, ok := other.(Phony); return ok }
func (Phony) String() string        { return "<phony>" }

// Array is the type of an array of Element, for array-typed declarations
// that parse and type-check but are never lowered by codegen.
type Array struct {
	Element Type
}

func (a Array) Equal(other Type) bool {
	o, ok := other.(Array)
	return ok && a.Element.Equal(o.Element)
}

func (a Array) String() string { return "[]" + a.Element.String() }

// Func is the type of a named function: its parameter types in declaration
// order and its return type.
type Func struct {
	Params []Type
	Ret    Type
}

func (f Func) Equal(other Type) bool {
	o, ok := other.(Func)
	if !ok || len(f.Params) != len(o.Params) || !f.Ret.Equal(o.Ret) {
		return false
	}
	for i, p := range f.Params {
		if !p.Equal(o.Params[i]) {
			return false
		}
	}
	return true
}

func (f Func) String() string {
	var b strings.Builder
	b.WriteString("func(")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString("): ")
	b.WriteString(f.Ret.String())
	return b.String()
}
