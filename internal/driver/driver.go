// Package driver ties the scanner, parser and interpreter into a session that
// runs source text and reports problems as diagnostics.
package driver

import (
	"errors"
	"fmt"
	"io"
	"lako/internal/ast"
	"lako/internal/diag"
	"lako/internal/lexer"
	"lako/internal/parser"
	"lako/internal/runtime"
	"lako/internal/span"
)

// Session is a persistent interpreter instance. Globals defined by one Run
// are visible to the next.
type Session struct {
	interp   *runtime.Interpreter
	output   io.Writer
	filename string
}

// New creates a session whose print output goes to w.
func New(w io.Writer) *Session {
	return &Session{
		interp: runtime.NewInterpreter(w),
		output: w,
	}
}

// SetFilename sets the script name carried by the diagnostics of subsequent
// runs. An empty name leaves diagnostics without a file.
func (s *Session) SetFilename(name string) {
	s.filename = name
}

// Parse scans and parses source. Lexical and syntax diagnostics are returned
// together, lexical first. The program is only fit to run when none were
// returned.
func Parse(source, filename string) (*ast.Program, []diag.Diagnostic) {
	l := lexer.New(source, filename)
	tokens, lexDiags := l.Tokenize()
	prog, parseDiags := parser.New(tokens).ParseProgram()

	var diags []diag.Diagnostic
	diags = append(diags, lexDiags...)
	diags = append(diags, parseDiags...)
	return prog, diag.InFile(diags, filename)
}

// Run executes source in the session. An empty result means success.
func (s *Session) Run(source string) []diag.Diagnostic {
	prog, diags := Parse(source, s.filename)
	if len(diags) > 0 {
		return diags
	}
	if err := s.interp.Run(prog.Stmts); err != nil {
		return s.runtimeDiagnostics(err)
	}
	return nil
}

// RunREPL is Run for one line of interactive input: when the input is a
// single expression statement its value is also written to the output.
func (s *Session) RunREPL(line string) []diag.Diagnostic {
	prog, diags := Parse(line, s.filename)
	if len(diags) > 0 {
		return diags
	}

	if len(prog.Stmts) == 1 {
		if es, ok := prog.Stmts[0].(*ast.ExprStmt); ok {
			val, err := s.interp.Eval(es.Expr)
			if err != nil {
				return s.runtimeDiagnostics(err)
			}
			fmt.Fprintln(s.output, val.String())
			return nil
		}
	}

	if err := s.interp.Run(prog.Stmts); err != nil {
		return s.runtimeDiagnostics(err)
	}
	return nil
}

func (s *Session) runtimeDiagnostics(err error) []diag.Diagnostic {
	var d diag.Diagnostic
	var re *runtime.RuntimeError
	if errors.As(err, &re) {
		d = re.Diagnostic()
	} else {
		d = diag.Errorf(diag.Runtime, "E3000", span.Span{}, "%s", err)
	}
	return diag.InFile([]diag.Diagnostic{d}, s.filename)
}
