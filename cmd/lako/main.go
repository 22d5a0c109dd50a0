// Command lako is the CLI entry point for the lako interpreter.
//
// Usage:
//
//	lako                          Start interactive REPL
//	lako <file>                   Run a source file
//	lako tokens <file> [--json]   Print tokens
//	lako parse  <file> [--sexpr]  Print AST as JSON (or as an S-expression)
//	lako run    <file>            Run a source file
//	lako repl                     Start interactive REPL
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"lako/internal/ast"
	"lako/internal/diag"
	"lako/internal/driver"
	"lako/internal/lexer"
	"lako/internal/token"
	"os"
)

// Exit codes (sysexits.h).
const (
	exitOK       = 0
	exitUsage    = 64
	exitDataErr  = 65 // lexical or syntax error
	exitNoInput  = 66 // script cannot be read
	exitSoftware = 70 // runtime error
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		return cmdRepl()
	}

	command := args[0]

	switch command {
	case "tokens", "parse", "run":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "error: missing file argument")
			return exitUsage
		}
		filename := args[1]
		source, err := readSource(filename)
		if err != nil {
			fmt.Fprintf(stderr, "error: cannot read file %s: %v\n", filename, err)
			return exitNoInput
		}
		switch command {
		case "tokens":
			return cmdTokens(stdout, stderr, source, filename, hasFlag(args[2:], "--json"))
		case "parse":
			return cmdParse(stdout, stderr, source, filename, hasFlag(args[2:], "--sexpr"))
		default:
			return cmdRun(stdout, stderr, source, filename)
		}
	case "repl":
		return cmdRepl()
	case "help", "-h", "--help":
		usage(stdout)
		return exitOK
	default:
		if len(args) == 1 {
			source, err := readSource(command)
			if err != nil {
				fmt.Fprintf(stderr, "error: cannot read file %s: %v\n", command, err)
				return exitNoInput
			}
			return cmdRun(stdout, stderr, source, command)
		}
		fmt.Fprintf(stderr, "error: unknown command '%s'\n", command)
		usage(stderr)
		return exitUsage
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  lako                           Start interactive REPL")
	fmt.Fprintln(w, "  lako <file>                    Run a source file")
	fmt.Fprintln(w, "  lako tokens <file> [--json]    Tokenize and print tokens")
	fmt.Fprintln(w, "  lako parse  <file> [--sexpr]   Parse and print AST (JSON)")
	fmt.Fprintln(w, "  lako run    <file>             Run a source file")
	fmt.Fprintln(w, "  lako repl                      Start interactive REPL")
}

func hasFlag(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag {
			return true
		}
	}
	return false
}

// ---- tokens command ----

func cmdTokens(stdout, stderr io.Writer, source, filename string, jsonMode bool) int {
	l := lexer.New(source, filename)
	tokens, diags := l.Tokenize()

	if jsonMode {
		printTokensJSON(stdout, tokens, diags)
	} else {
		printTokensText(stdout, tokens)
		printDiagsText(stderr, diags)
	}

	if len(diags) > 0 {
		return exitDataErr
	}
	return exitOK
}

func printTokensText(w io.Writer, tokens []token.Token) {
	for _, tok := range tokens {
		fmt.Fprintf(w, "%-12s %-20s %d:%d\n", tok.Kind, tok.Lexeme, tok.Span.Start.Line, tok.Span.Start.Column)
	}
}

func printTokensJSON(w io.Writer, tokens []token.Token, diags []diag.Diagnostic) {
	type tokenJSON struct {
		Kind    string      `json:"kind"`
		Lexeme  string      `json:"lexeme"`
		Literal interface{} `json:"literal,omitempty"`
		Line    int         `json:"line"`
		Column  int         `json:"column"`
		Offset  int         `json:"offset"`
	}

	toks := make([]tokenJSON, 0, len(tokens))
	for _, tok := range tokens {
		toks = append(toks, tokenJSON{
			Kind:    tok.Kind.String(),
			Lexeme:  tok.Lexeme,
			Literal: tok.Literal,
			Line:    tok.Span.Start.Line,
			Column:  tok.Span.Start.Column,
			Offset:  tok.Span.Start.Offset,
		})
	}

	output := map[string]interface{}{
		"tokens":      toks,
		"diagnostics": diagsToSlice(diags),
	}
	printJSON(w, output)
}

// ---- parse command ----

func cmdParse(stdout, stderr io.Writer, source, filename string, sexpr bool) int {
	prog, diags := driver.Parse(source, filename)

	if sexpr {
		fmt.Fprintln(stdout, ast.Print(prog))
		printDiagsText(stderr, diags)
	} else {
		output := map[string]interface{}{
			"ast":         ast.NodeToMap(prog),
			"diagnostics": diagsToSlice(diags),
		}
		printJSON(stdout, output)
	}

	if len(diags) > 0 {
		return exitDataErr
	}
	return exitOK
}

// ---- run command ----

func cmdRun(stdout, stderr io.Writer, source, filename string) int {
	session := driver.New(stdout)
	session.SetFilename(filename)

	diags := session.Run(source)
	printDiagsText(stderr, diags)
	return exitCode(diags)
}

// exitCode maps the diagnostics of a run to the process exit status.
func exitCode(diags []diag.Diagnostic) int {
	if len(diags) == 0 {
		return exitOK
	}
	for _, d := range diags {
		if d.Phase == diag.Runtime {
			return exitSoftware
		}
	}
	return exitDataErr
}

// ---- output helpers ----

func printJSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error: JSON encoding failed: %v\n", err)
	}
}

func printDiagsText(w io.Writer, diags []diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.String())
	}
}

func diagsToSlice(diags []diag.Diagnostic) []map[string]interface{} {
	result := make([]map[string]interface{}, len(diags))
	for i, d := range diags {
		result[i] = map[string]interface{}{
			"code":     d.Code,
			"phase":    d.Phase.String(),
			"severity": d.Severity.String(),
			"message":  d.Message,
			"line":     d.Span.Start.Line,
			"column":   d.Span.Start.Column,
			"offset":   d.Span.Start.Offset,
		}
		if d.Where != "" {
			result[i]["where"] = d.Where
		}
		if d.File != "" {
			result[i]["file"] = d.File
		}
	}
	return result
}
