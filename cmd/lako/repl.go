package main

import (
	"fmt"
	"io"
	"lako/internal/diag"
	"lako/internal/driver"
	"lako/internal/lexer"
	"lako/internal/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
)

// ---- ANSI colors ----

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

const (
	promptMain = colorGreen + "lako> " + colorReset
	promptMore = colorGray + "...   " + colorReset
)

// ---- repl command ----

func cmdRepl() int {
	// Determine history file path (~/.lako_history)
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".lako_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptMain,
		HistoryFile:       historyFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init failed: %v\n", err)
		return exitSoftware
	}
	defer rl.Close()

	// Welcome banner
	fmt.Fprintf(rl.Stdout(), "%s%slako REPL%s %s(type 'exit' or Ctrl+D to quit)%s\n\n",
		colorBold, colorCyan, colorReset, colorGray, colorReset)

	session := driver.New(rl.Stdout())
	var pending inputBuffer

	for {
		if pending.open() {
			rl.SetPrompt(promptMore)
		} else {
			rl.SetPrompt(promptMain)
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if pending.open() {
					// Cancel multi-line input
					pending.reset()
					continue
				}
				fmt.Fprintf(rl.Stdout(), "\n%s(use 'exit' or Ctrl+D to quit)%s\n", colorGray, colorReset)
				continue
			}
			// EOF (Ctrl+D) or other error → exit
			if err == io.EOF {
				fmt.Fprintln(rl.Stdout())
			}
			break
		}

		if !pending.open() && strings.TrimSpace(line) == "exit" {
			break
		}

		source, ok := pending.add(line)
		if !ok {
			continue
		}
		printDiagsColored(rl.Stderr(), session.RunREPL(source))
	}
	return exitOK
}

// inputBuffer collects REPL lines until their braces balance.
type inputBuffer struct {
	text  strings.Builder
	depth int
}

func (b *inputBuffer) open() bool {
	return b.depth > 0
}

func (b *inputBuffer) reset() {
	b.text.Reset()
	b.depth = 0
}

// add appends a line. It returns the complete input once braces balance; ok
// is false while more lines are needed or when the input is blank.
func (b *inputBuffer) add(line string) (source string, ok bool) {
	b.depth += braceDepth(line)
	b.text.WriteString(line)
	b.text.WriteString("\n")
	if b.depth > 0 {
		return "", false
	}

	source = b.text.String()
	b.reset()
	if strings.TrimSpace(source) == "" {
		return "", false
	}
	return source, true
}

// braceDepth returns the net count of '{' tokens in line, so braces inside
// strings and comments are ignored.
func braceDepth(line string) int {
	depth := 0
	l := lexer.New(line, "")
	for tok := l.Next(); tok.Kind != token.EOF; tok = l.Next() {
		switch tok.Kind {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			depth--
		}
	}
	return depth
}

// printDiagsColored prints diagnostics with red color for REPL display.
func printDiagsColored(w io.Writer, diags []diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s%s%s\n", colorRed, d.String(), colorReset)
	}
}
