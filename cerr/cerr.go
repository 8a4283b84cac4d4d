// Package cerr is the compile-error sink shared by the parser, binder,
// type checker, and code generator. The VM reports its runtime traps as
// plain errors instead. An error always carries the source span it was
// raised against.
package cerr

import "fmt"

// Error is a single compile-time failure, anchored at a span.
type Error struct {
	Span    fmt.Stringer
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Span, e.Message)
}

// New builds an *Error from a span and a printf-style message.
func New(span fmt.Stringer, format string, args ...any) *Error {
	return &Error{Span: span, Message: fmt.Sprintf(format, args...)}
}
