// Package diag provides diagnostic (error/warning) types shared by the scanner,
// parser and interpreter.
package diag

import (
	"fmt"
	"lako/internal/span"
)

// Severity indicates the severity of a diagnostic.
type Severity int

const (
	Error Severity = iota
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "unknown"
}

// Phase names the pipeline stage that produced a diagnostic.
type Phase int

const (
	Lexical Phase = iota
	Syntax
	Runtime
)

func (p Phase) String() string {
	switch p {
	case Lexical:
		return "lexical"
	case Syntax:
		return "syntax"
	case Runtime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Diagnostic represents a single reported problem.
type Diagnostic struct {
	Code     string    `json:"code"`            // stable error code, e.g. "E2001"
	Phase    Phase     `json:"phase"`           // lexical, syntax or runtime
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`         // human-readable description
	File     string    `json:"file,omitempty"`  // script name, empty for anonymous input
	Span     span.Span `json:"span"`            // source location
	Where    string    `json:"where,omitempty"` // e.g. "near 'x'" or "at end"
}

// Line returns the 1-based source line of the diagnostic.
func (d Diagnostic) Line() int {
	return d.Span.Start.Line
}

// String returns a human-readable representation of the diagnostic.
func (d Diagnostic) String() string {
	loc := d.Span.Start.String()
	if d.File != "" {
		loc = d.File + ":" + loc
	}
	if d.Where != "" {
		loc += " " + d.Where
	}
	return fmt.Sprintf("[%s] %s %s at %s: %s", d.Code, d.Phase, d.Severity, loc, d.Message)
}

// InFile stamps name on every diagnostic that has no file yet.
func InFile(diags []Diagnostic, name string) []Diagnostic {
	for i := range diags {
		if diags[i].File == "" {
			diags[i].File = name
		}
	}
	return diags
}

// Errorf creates an error diagnostic for the given phase at the given span.
func Errorf(phase Phase, code string, s span.Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Code:     code,
		Phase:    phase,
		Severity: Error,
		Message:  fmt.Sprintf(format, args...),
		Span:     s,
	}
}
