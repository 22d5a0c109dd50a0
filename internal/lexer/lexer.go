// Package lexer implements the lexical analysis (tokenization) for lako.
//
// The Lexer is lazy: each call to Next scans just enough input to produce one
// token. Bad input is recorded as a diagnostic and skipped, so a single pass
// reports every lexical error in the source.
package lexer

import (
	"lako/internal/diag"
	"lako/internal/span"
	"lako/internal/token"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Lexical error codes.
const (
	CodeUnterminatedString = "E1001"
	CodeUnexpectedChar     = "E1002"
)

// Lexer tokenizes source code into a sequence of tokens.
type Lexer struct {
	source   string
	filename string

	pos  int // current read position in source
	line int // current line (1-based)
	col  int // current column (1-based)

	diags []diag.Diagnostic
}

// New creates a new Lexer for the given source text.
func New(source, filename string) *Lexer {
	return &Lexer{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

// Next scans and returns the next token. Once the end of input is reached it
// keeps returning EOF.
func (l *Lexer) Next() token.Token {
	for {
		l.skipTrivia()

		if l.pos >= len(l.source) {
			return token.Token{Kind: token.EOF, Lexeme: "", Span: l.makeSpan(l.curPos())}
		}

		start := l.curPos()
		ch := l.peek()

		switch {
		case ch == '"':
			if tok, ok := l.readString(start); ok {
				return tok
			}
		case isDigit(ch):
			return l.readNumber(start)
		case l.atIdentStart():
			return l.readIdentifier(start)
		default:
			if tok, ok := l.readOperator(start); ok {
				return tok
			}
		}
	}
}

// Tokenize scans the entire source and returns all tokens and diagnostics.
// The token slice always ends with exactly one EOF token.
func (l *Lexer) Tokenize() ([]token.Token, []diag.Diagnostic) {
	var tokens []token.Token
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return tokens, l.diags
}

// ---- internal helpers ----

// peek returns the current character without advancing, or 0 if at end.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

// peekNext returns the character after current, or 0 if at end.
func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

// advance consumes the current character and returns it.
func (l *Lexer) advance() byte {
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

// match consumes the current character if it equals expected.
func (l *Lexer) match(expected byte) bool {
	if l.pos >= len(l.source) || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

// curPos returns the current position as a span.Position.
func (l *Lexer) curPos() span.Position {
	return span.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

// makeSpan returns a span from start to current position.
func (l *Lexer) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: l.curPos()}
}

// skipTrivia skips whitespace, newlines and // comments.
func (l *Lexer) skipTrivia() {
	for l.pos < len(l.source) {
		switch ch := l.peek(); {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/' && l.peekNext() == '/':
			for l.pos < len(l.source) && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

// addError records a lexical diagnostic.
func (l *Lexer) addError(code string, s span.Span, format string, args ...interface{}) {
	d := diag.Errorf(diag.Lexical, code, s, format, args...)
	d.File = l.filename
	l.diags = append(l.diags, d)
}

func (l *Lexer) makeToken(kind token.Kind, start span.Position) token.Token {
	return token.Token{Kind: kind, Lexeme: l.source[start.Offset:l.pos], Span: l.makeSpan(start)}
}

// ---- token reading ----

// readString reads a double-quoted string literal. Strings may span lines and
// have no escape sequences. An unterminated string yields no token.
func (l *Lexer) readString(start span.Position) (token.Token, bool) {
	l.advance() // skip opening "

	for l.pos < len(l.source) && l.peek() != '"' {
		l.advance()
	}

	if l.pos >= len(l.source) {
		l.addError(CodeUnterminatedString, l.makeSpan(start), "Unterminated string.")
		return token.Token{}, false
	}

	l.advance() // skip closing "
	tok := l.makeToken(token.STRING, start)
	tok.Literal = l.source[start.Offset+1 : l.pos-1]
	return tok, true
}

// readNumber reads an integer or decimal literal. Exponents are not supported
// and a trailing '.' is left for the next token.
func (l *Lexer) readNumber(start span.Position) token.Token {
	for isDigit(l.peek()) {
		l.advance()
	}

	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance() // skip '.'
		for isDigit(l.peek()) {
			l.advance()
		}
	}

	tok := l.makeToken(token.NUMBER, start)
	// Digits with an optional fraction always parse.
	val, _ := strconv.ParseFloat(tok.Lexeme, 64)
	tok.Literal = val
	return tok
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier(start span.Position) token.Token {
	for l.pos < len(l.source) && l.atIdentPart() {
		l.advanceRune()
	}
	tok := l.makeToken(token.IDENT, start)
	tok.Kind = token.LookupIdent(tok.Lexeme)
	return tok
}

// readOperator reads an operator or delimiter token. Unknown characters are
// reported and skipped.
func (l *Lexer) readOperator(start span.Position) (token.Token, bool) {
	ch := l.advance()

	var kind token.Kind
	switch ch {
	case '(':
		kind = token.LPAREN
	case ')':
		kind = token.RPAREN
	case '{':
		kind = token.LBRACE
	case '}':
		kind = token.RBRACE
	case ',':
		kind = token.COMMA
	case '.':
		kind = token.DOT
	case ';':
		kind = token.SEMICOLON
	case '+':
		kind = token.PLUS
	case '-':
		kind = token.MINUS
	case '*':
		kind = token.STAR
	case '/':
		kind = token.SLASH
	case '!':
		kind = token.BANG
		if l.match('=') {
			kind = token.NEQ
		}
	case '=':
		kind = token.ASSIGN
		if l.match('=') {
			kind = token.EQ
		}
	case '<':
		kind = token.LT
		if l.match('=') {
			kind = token.LTE
		}
	case '>':
		kind = token.GT
		if l.match('=') {
			kind = token.GTE
		}
	default:
		// Swallow the rest of a multi-byte character so it is reported once.
		if ch >= utf8.RuneSelf {
			l.pos--
			l.col--
			r := l.advanceRune()
			l.addError(CodeUnexpectedChar, l.makeSpan(start), "Unexpected character '%c'.", r)
			return token.Token{}, false
		}
		l.addError(CodeUnexpectedChar, l.makeSpan(start), "Unexpected character '%c'.", ch)
		return token.Token{}, false
	}
	return l.makeToken(kind, start), true
}

// ---- character classification ----

// advanceRune consumes one UTF-8 encoded character and returns it.
func (l *Lexer) advanceRune() rune {
	r, size := utf8.DecodeRuneInString(l.source[l.pos:])
	l.pos += size
	l.col++
	return r
}

func (l *Lexer) atIdentStart() bool {
	r, _ := utf8.DecodeRuneInString(l.source[l.pos:])
	return r == '_' || unicode.IsLetter(r)
}

func (l *Lexer) atIdentPart() bool {
	r, _ := utf8.DecodeRuneInString(l.source[l.pos:])
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
