// Package errors implements the XDL error taxonomy and the typed early-exit
// control signals (Break, Continue, Return) used by the evaluator and
// statement driver for non-local control flow (spec.md §7, §9).
package errors

import (
	"fmt"
	"strings"

	"github.com/kr/text"
	pkgerrors "github.com/pkg/errors"

	"xdl/internal/value"
)

// Kind tags an XdlError's failure category.
type Kind string

const (
	ParseError      Kind = "ParseError"
	TypeMismatch    Kind = "TypeMismatch"
	InvalidArgument Kind = "InvalidArgument"
	DivisionByZero  Kind = "DivisionByZero"
	MathError       Kind = "MathError"
	DimensionError  Kind = "DimensionError"
	RuntimeErr      Kind = "RuntimeError"
	NotImplemented  Kind = "NotImplemented"

	// GPU/device kinds (spec.md §4.8, §7).
	BufferSizeMismatch  Kind = "BufferSizeMismatch"
	BufferCreationFailed Kind = "BufferCreationFailed"
	ExecutionFailed     Kind = "ExecutionFailed"
	CompilationFailed   Kind = "CompilationFailed"
	UnsupportedBackend  Kind = "UnsupportedBackend"
	CudaError           Kind = "CudaError"
)

// Location is a source position, present when known.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.Line == 0 {
		return ""
	}
	if l.File != "" {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// XdlError is the single error type threaded through lexer, parser,
// evaluator and dispatcher. Expected is used by TypeMismatch.
type XdlError struct {
	Kind     Kind
	Message  string
	Loc      Location
	Expected string
	Actual   string
	cause    error
}

func (e *XdlError) Error() string {
	var sb strings.Builder
	msg := e.Message
	if e.Kind == TypeMismatch && msg == "" {
		msg = fmt.Sprintf("expected %s, got %s", e.Expected, e.Actual)
	}
	fmt.Fprintf(&sb, "%s: %s", e.Kind, msg)
	if loc := e.Loc.String(); loc != "" {
		fmt.Fprintf(&sb, " (at %s)", loc)
	}
	if e.cause != nil {
		sb.WriteString("\n")
		sb.WriteString(text.Indent(e.cause.Error(), "  caused by: "))
	}
	return sb.String()
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *XdlError) Unwrap() error { return e.cause }

// Wrap attaches cause as this error's underlying reason, recording a stack
// via pkg/errors the way the rest of the ambient stack layers context onto
// root causes.
func (e *XdlError) Wrap(cause error) *XdlError {
	if cause != nil {
		e.cause = pkgerrors.WithStack(cause)
	}
	return e
}

func New(kind Kind, format string, args ...interface{}) *XdlError {
	return &XdlError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewAt(kind Kind, loc Location, format string, args ...interface{}) *XdlError {
	return &XdlError{Kind: kind, Message: fmt.Sprintf(format, args...), Loc: loc}
}

func NewTypeMismatch(expected, actual string) *XdlError {
	return &XdlError{Kind: TypeMismatch, Expected: expected, Actual: actual}
}

func NewParseError(loc Location, format string, args ...interface{}) *XdlError {
	return NewAt(ParseError, loc, format, args...)
}

// --- Control signals -------------------------------------------------
//
// Break/Continue/Return are not errors but propagate through the same Go
// `error` channel so the evaluator can use a single return-value shape;
// loop/function frames type-assert and consume the matching signal,
// everything else propagates per spec.md §9.

type BreakSignal struct{}

func (BreakSignal) Error() string { return "break" }

type ContinueSignal struct{}

func (ContinueSignal) Error() string { return "continue" }

// ReturnSignal carries the returned value out of a function/procedure body.
type ReturnSignal struct {
	Value value.Value
}

func (ReturnSignal) Error() string { return "return" }

// IsControlSignal reports whether err is one of Break/Continue/Return,
// i.e. not a real failure.
func IsControlSignal(err error) bool {
	switch err.(type) {
	case BreakSignal, ContinueSignal, ReturnSignal:
		return true
	default:
		return false
	}
}
