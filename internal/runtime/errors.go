package runtime

import (
	"errors"
	"fmt"
	"lako/internal/diag"
	"lako/internal/span"
)

// Sentinel kinds of runtime error. Match them with errors.Is.
var (
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrTypeError         = errors.New("type error")
	ErrArityMismatch     = errors.New("arity mismatch")
	ErrNotCallable       = errors.New("not callable")
	ErrUndefinedProperty = errors.New("undefined property")

	// ErrInternal marks a tree the interpreter cannot evaluate. It indicates a
	// bug in the front end rather than in the script.
	ErrInternal = errors.New("internal error")
)

var errorCodes = map[error]string{
	ErrUndefinedVariable: "E3001",
	ErrTypeError:         "E3002",
	ErrArityMismatch:     "E3003",
	ErrNotCallable:       "E3004",
	ErrUndefinedProperty: "E3005",
	ErrInternal:          "E3000",
}

// RuntimeError represents an error during interpretation.
type RuntimeError struct {
	Kind    error
	Message string
	Span    span.Span
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at %d:%d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Message)
}

func (e *RuntimeError) Unwrap() error {
	return e.Kind
}

// Code returns the stable diagnostic code for the error's kind.
func (e *RuntimeError) Code() string {
	if code, ok := errorCodes[e.Kind]; ok {
		return code
	}
	return "E3000"
}

// Diagnostic converts the error into a runtime-phase diagnostic.
func (e *RuntimeError) Diagnostic() diag.Diagnostic {
	return diag.Errorf(diag.Runtime, e.Code(), e.Span, "%s", e.Message)
}

func runtimeErr(kind error, s span.Span, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...), Span: s}
}

// asRuntimeError attaches call-site position to an error returned by a
// built-in.
func asRuntimeError(err error, s span.Span) *RuntimeError {
	var re *RuntimeError
	if errors.As(err, &re) {
		if re.Span == (span.Span{}) {
			re.Span = s
		}
		return re
	}
	return &RuntimeError{Kind: err, Message: err.Error(), Span: s}
}
