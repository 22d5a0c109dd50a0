// Package parser implements the syntax analysis for lako.
// It uses recursive descent for declarations/statements and a binding-power
// loop (precedence climbing) for expressions.
package parser

import (
	"fmt"
	"lako/internal/ast"
	"lako/internal/diag"
	"lako/internal/span"
	"lako/internal/token"
)

// Syntax error codes.
const (
	CodeExpectToken      = "E2001"
	CodeExpectExpression = "E2002"
	CodeInvalidAssign    = "E2003"
	CodeTooMany          = "E2004"
	CodeTopLevelReturn   = "E2005"
	CodeInitReturnValue  = "E2006"
	CodeThisOutsideClass = "E2007"
	CodeSuperMisuse      = "E2008"
	CodeSelfInheritance  = "E2009"
)

// maxArgs is the largest parameter or argument count a call may have.
const maxArgs = 255

// ============================================================
// Binding power (precedence) levels
// ============================================================

const (
	bpNone       = 0
	bpAssign     = 10 // =
	bpOr         = 20 // or
	bpAnd        = 30 // and
	bpEquality   = 40 // == !=
	bpComparison = 50 // < <= > >=
	bpTerm       = 60 // + -
	bpFactor     = 70 // * /
	bpUnary      = 80 // ! -
	bpCall       = 90 // () .
)

// infixBP returns the left binding power for an infix/postfix operator.
func infixBP(kind token.Kind) int {
	switch kind {
	case token.ASSIGN:
		return bpAssign
	case token.KW_OR:
		return bpOr
	case token.KW_AND:
		return bpAnd
	case token.EQ, token.NEQ:
		return bpEquality
	case token.LT, token.LTE, token.GT, token.GTE:
		return bpComparison
	case token.PLUS, token.MINUS:
		return bpTerm
	case token.STAR, token.SLASH:
		return bpFactor
	case token.LPAREN, token.DOT:
		return bpCall
	default:
		return bpNone
	}
}

type funcKind int

const (
	funcNone funcKind = iota
	funcFunction
	funcMethod
	funcInitializer
)

type classKind int

const (
	classNone classKind = iota
	classPlain
	classSub
)

// ============================================================
// Parser
// ============================================================

// Parser performs syntax analysis on a stream of tokens.
type Parser struct {
	tokens []token.Token
	pos    int
	diags  []diag.Diagnostic

	// panicking is set by the first error inside a declaration and cleared
	// once the parser has synchronized, so one mistake yields one diagnostic.
	panicking bool

	fn  funcKind
	cls classKind
}

// New creates a new parser from a token slice.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens, pos: 0}
}

// ParseProgram parses every declaration up to EOF and returns the AST root and
// diagnostics. The tree is only meant to be evaluated when no diagnostics
// were returned.
func (p *Parser) ParseProgram() (*ast.Program, []diag.Diagnostic) {
	prog := &ast.Program{}
	startPos := p.peek().Span.Start

	prog.Stmts = p.declarations(func() bool { return p.isAtEnd() })

	endPos := p.peek().Span.End
	prog.Span = span.Span{Start: startPos, End: endPos}
	return prog, p.diags
}

// ---- navigation helpers ----

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		if len(p.tokens) > 0 {
			return p.tokens[len(p.tokens)-1]
		}
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekKind() token.Kind {
	return p.peek().Kind
}

func (p *Parser) previous() token.Token {
	if p.pos > 0 && p.pos-1 < len(p.tokens) {
		return p.tokens[p.pos-1]
	}
	return p.peek()
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if !p.isAtEnd() {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind token.Kind) bool {
	return p.peekKind() == kind
}

func (p *Parser) checkAny(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			return true
		}
	}
	return false
}

// expect consumes a token of the given kind or reports msg at the current
// token.
func (p *Parser) expect(kind token.Kind, msg string) (token.Token, bool) {
	if p.check(kind) {
		return p.advance(), true
	}
	tok := p.peek()
	p.error(CodeExpectToken, tok, msg)
	return tok, false
}

func (p *Parser) isAtEnd() bool {
	return p.peekKind() == token.EOF
}

// error reports a syntax error at tok and enters panic mode.
func (p *Parser) error(code string, tok token.Token, msg string) {
	p.report(code, tok, msg)
	p.panicking = true
}

// report records a syntax error without entering panic mode; the parser can
// carry on from where it is.
func (p *Parser) report(code string, tok token.Token, msg string) {
	if p.panicking {
		return
	}
	d := diag.Errorf(diag.Syntax, code, tok.Span, "%s", msg)
	if tok.Kind == token.EOF {
		d.Where = "at end"
	} else {
		d.Where = fmt.Sprintf("near '%s'", tok.Lexeme)
	}
	p.diags = append(p.diags, d)
}

// ============================================================
// Error recovery
// ============================================================

// synchronize discards tokens until a likely statement boundary: just past a
// semicolon, or before a keyword that starts a declaration or statement.
func (p *Parser) synchronize() {
	p.panicking = false
	if !p.isAtEnd() {
		p.advance()
	}
	for !p.isAtEnd() {
		if p.previous().Kind == token.SEMICOLON {
			return
		}
		if p.checkAny(token.KW_CLASS, token.KW_FUN, token.KW_VAR, token.KW_FOR,
			token.KW_IF, token.KW_WHILE, token.KW_PRINT, token.KW_RETURN) {
			return
		}
		p.advance()
	}
}

// ============================================================
// Declarations
// ============================================================

// declarations parses declarations until done reports true or input ends.
func (p *Parser) declarations(done func() bool) []ast.Stmt {
	var stmts []ast.Stmt
	for !done() && !p.isAtEnd() {
		before := p.pos
		if stmt := p.parseDeclaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
		if p.pos == before {
			// Always make progress, whatever the error.
			p.advance()
		}
	}
	return stmts
}

// parseDeclaration parses one declaration. On a syntax error it synchronizes
// and returns nil.
func (p *Parser) parseDeclaration() ast.Stmt {
	var stmt ast.Stmt
	switch p.peekKind() {
	case token.KW_CLASS:
		stmt = p.parseClassDecl()
	case token.KW_FUN:
		p.advance() // consume 'fun'
		stmt = p.parseFunction(funcFunction)
	case token.KW_VAR:
		stmt = p.parseVarDecl()
	default:
		stmt = p.parseStmt()
	}

	if p.panicking {
		p.synchronize()
		return nil
	}
	return stmt
}

// parseClassDecl parses: class IDENT [ < IDENT ] { function* }
func (p *Parser) parseClassDecl() ast.Stmt {
	start := p.advance() // consume 'class'
	decl := &ast.ClassStmt{}

	nameTok, ok := p.expect(token.IDENT, "Expect class name.")
	if !ok {
		return decl
	}
	decl.Name = nameTok.Lexeme

	if p.check(token.LT) {
		p.advance()
		superTok, ok := p.expect(token.IDENT, "Expect superclass name.")
		if !ok {
			return decl
		}
		if superTok.Lexeme == decl.Name {
			p.report(CodeSelfInheritance, superTok, "A class can't inherit from itself.")
		}
		decl.SuperClass = &ast.VariableExpr{
			ExprBase: makeExprBase(superTok.Span.Start, superTok.Span.End),
			Name:     superTok.Lexeme,
		}
	}

	if _, ok := p.expect(token.LBRACE, "Expect '{' before class body."); !ok {
		return decl
	}

	enclosing := p.cls
	p.cls = classPlain
	if decl.SuperClass != nil {
		p.cls = classSub
	}
	defer func() { p.cls = enclosing }()

	for !p.check(token.RBRACE) && !p.isAtEnd() {
		kind := funcMethod
		if p.check(token.IDENT) && p.peek().Lexeme == "init" {
			kind = funcInitializer
		}
		method := p.parseFunction(kind)
		if p.panicking {
			return decl
		}
		decl.Methods = append(decl.Methods, method)
	}

	p.expect(token.RBRACE, "Expect '}' after class body.")
	decl.Span = p.makeSpan(start.Span.Start)
	return decl
}

// parseFunction parses: IDENT ( params ) block
// The 'fun' keyword, if any, has already been consumed.
func (p *Parser) parseFunction(kind funcKind) *ast.FunctionStmt {
	start := p.peek()
	decl := &ast.FunctionStmt{}

	what := "function"
	if kind != funcFunction {
		what = "method"
	}

	nameTok, ok := p.expect(token.IDENT, fmt.Sprintf("Expect %s name.", what))
	if !ok {
		return decl
	}
	decl.Name = nameTok.Lexeme

	if _, ok := p.expect(token.LPAREN, fmt.Sprintf("Expect '(' after %s name.", what)); !ok {
		return decl
	}
	decl.Params = p.parseParamList()
	if p.panicking {
		return decl
	}
	if _, ok := p.expect(token.LBRACE, fmt.Sprintf("Expect '{' before %s body.", what)); !ok {
		return decl
	}

	enclosing := p.fn
	p.fn = kind
	decl.Body = p.parseBlockBody()
	p.fn = enclosing

	decl.Span = p.makeSpan(start.Span.Start)
	return decl
}

// parseParamList parses: [ ident { , ident } ] )
// The opening parenthesis has already been consumed.
func (p *Parser) parseParamList() []string {
	var params []string

	if !p.check(token.RPAREN) {
		for {
			if len(params) >= maxArgs {
				p.report(CodeTooMany, p.peek(), fmt.Sprintf("Can't have more than %d parameters.", maxArgs))
			}
			nameTok, ok := p.expect(token.IDENT, "Expect parameter name.")
			if !ok {
				return params
			}
			params = append(params, nameTok.Lexeme)
			if !p.check(token.COMMA) {
				break
			}
			p.advance() // consume ','
		}
	}

	p.expect(token.RPAREN, "Expect ')' after parameters.")
	return params
}

// parseVarDecl parses: var IDENT [ = expr ] ;
func (p *Parser) parseVarDecl() ast.Stmt {
	start := p.advance() // consume 'var'
	stmt := &ast.VarStmt{}

	nameTok, ok := p.expect(token.IDENT, "Expect variable name.")
	if !ok {
		return stmt
	}
	stmt.Name = nameTok.Lexeme

	if p.check(token.ASSIGN) {
		p.advance()
		stmt.Init = p.parseExpr(bpNone)
	}

	p.expect(token.SEMICOLON, "Expect ';' after variable declaration.")
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// ============================================================
// Statement parsing
// ============================================================

func (p *Parser) parseStmt() ast.Stmt {
	switch p.peekKind() {
	case token.KW_FOR:
		return p.parseForStmt()
	case token.KW_IF:
		return p.parseIfStmt()
	case token.KW_PRINT:
		return p.parsePrintStmt()
	case token.KW_RETURN:
		return p.parseReturnStmt()
	case token.KW_WHILE:
		return p.parseWhileStmt()
	case token.LBRACE:
		return p.parseBlock()
	default:
		return p.parseExprStmt()
	}
}

// parseBlock parses: { declaration* }
func (p *Parser) parseBlock() *ast.BlockStmt {
	start := p.advance() // consume '{'
	block := &ast.BlockStmt{}
	block.Stmts = p.parseBlockBody()
	block.Span = p.makeSpan(start.Span.Start)
	return block
}

// parseBlockBody parses declarations up to and including the closing brace.
// The opening brace has already been consumed.
func (p *Parser) parseBlockBody() []ast.Stmt {
	stmts := p.declarations(func() bool { return p.check(token.RBRACE) })
	p.expect(token.RBRACE, "Expect '}' after block.")
	return stmts
}

// parseIfStmt parses: if ( expr ) stmt [ else stmt ]
func (p *Parser) parseIfStmt() ast.Stmt {
	start := p.advance() // consume 'if'
	stmt := &ast.IfStmt{}

	if _, ok := p.expect(token.LPAREN, "Expect '(' after 'if'."); !ok {
		return stmt
	}
	stmt.Condition = p.parseExpr(bpNone)
	if _, ok := p.expect(token.RPAREN, "Expect ')' after if condition."); !ok {
		return stmt
	}

	stmt.Then = p.parseStmt()
	if p.panicking {
		return stmt
	}
	if p.check(token.KW_ELSE) {
		p.advance()
		stmt.Else = p.parseStmt()
	}

	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseWhileStmt parses: while ( expr ) stmt
func (p *Parser) parseWhileStmt() ast.Stmt {
	start := p.advance() // consume 'while'
	stmt := &ast.WhileStmt{}

	if _, ok := p.expect(token.LPAREN, "Expect '(' after 'while'."); !ok {
		return stmt
	}
	stmt.Condition = p.parseExpr(bpNone)
	if _, ok := p.expect(token.RPAREN, "Expect ')' after condition."); !ok {
		return stmt
	}
	stmt.Body = p.parseStmt()
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseForStmt parses: for ( [init] ; [cond] ; [incr] ) stmt
// and desugars it into a block holding the initializer and a while loop.
func (p *Parser) parseForStmt() ast.Stmt {
	start := p.advance() // consume 'for'

	if _, ok := p.expect(token.LPAREN, "Expect '(' after 'for'."); !ok {
		return nil
	}

	// Init (optional)
	var init ast.Stmt
	switch {
	case p.check(token.SEMICOLON):
		p.advance()
	case p.check(token.KW_VAR):
		init = p.parseVarDecl()
	default:
		init = p.parseExprStmt()
	}
	if p.panicking {
		return nil
	}

	// Condition (optional)
	var cond ast.Expr
	if !p.check(token.SEMICOLON) {
		cond = p.parseExpr(bpNone)
	}
	if _, ok := p.expect(token.SEMICOLON, "Expect ';' after loop condition."); !ok {
		return nil
	}

	// Increment (optional)
	var incr ast.Expr
	if !p.check(token.RPAREN) {
		incr = p.parseExpr(bpNone)
	}
	if _, ok := p.expect(token.RPAREN, "Expect ')' after for clauses."); !ok {
		return nil
	}

	body := p.parseStmt()
	if p.panicking {
		return nil
	}
	forSpan := p.makeSpan(start.Span.Start)

	if incr != nil {
		body = &ast.BlockStmt{
			StmtBase: ast.StmtBase{NodeBase: ast.NodeBase{Span: forSpan}},
			Stmts: []ast.Stmt{
				body,
				&ast.ExprStmt{StmtBase: makeStmtBase(incr.GetSpan().Start, incr.GetSpan().End), Expr: incr},
			},
		}
	}
	if cond == nil {
		cond = &ast.LiteralExpr{ExprBase: makeExprBase(start.Span.Start, start.Span.End), Value: true}
	}

	var loop ast.Stmt = &ast.WhileStmt{
		StmtBase:  ast.StmtBase{NodeBase: ast.NodeBase{Span: forSpan}},
		Condition: cond,
		Body:      body,
	}
	if init != nil {
		loop = &ast.BlockStmt{
			StmtBase: ast.StmtBase{NodeBase: ast.NodeBase{Span: forSpan}},
			Stmts:    []ast.Stmt{init, loop},
		}
	}
	return loop
}

// parsePrintStmt parses: print expr ;
func (p *Parser) parsePrintStmt() ast.Stmt {
	start := p.advance() // consume 'print'
	stmt := &ast.PrintStmt{Expr: p.parseExpr(bpNone)}
	p.expect(token.SEMICOLON, "Expect ';' after value.")
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseReturnStmt parses: return [expr] ;
func (p *Parser) parseReturnStmt() ast.Stmt {
	start := p.advance() // consume 'return'
	stmt := &ast.ReturnStmt{}

	if p.fn == funcNone {
		p.report(CodeTopLevelReturn, start, "Can't return from top-level code.")
	}

	if !p.check(token.SEMICOLON) {
		if p.fn == funcInitializer {
			p.report(CodeInitReturnValue, start, "Can't return a value from an initializer.")
		}
		stmt.Value = p.parseExpr(bpNone)
	}

	p.expect(token.SEMICOLON, "Expect ';' after return value.")
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseExprStmt parses: expr ;
func (p *Parser) parseExprStmt() ast.Stmt {
	expr := p.parseExpr(bpNone)
	p.expect(token.SEMICOLON, "Expect ';' after expression.")
	return &ast.ExprStmt{
		StmtBase: makeStmtBase(expr.GetSpan().Start, p.prevEnd()),
		Expr:     expr,
	}
}

// ============================================================
// Expression parsing (precedence climbing)
// ============================================================

// parseExpr parses an expression whose operators all bind tighter than minBP.
// It never returns nil: a missing operand becomes an *ast.BadExpr.
func (p *Parser) parseExpr(minBP int) ast.Expr {
	left := p.nud()

	for !p.panicking {
		bp := infixBP(p.peekKind())
		if bp <= minBP {
			break
		}
		left = p.led(left)
	}

	return left
}

// nud handles prefix (null denotation) parsing.
func (p *Parser) nud() ast.Expr {
	tok := p.peek()

	switch tok.Kind {
	case token.NUMBER, token.STRING:
		p.advance()
		return &ast.LiteralExpr{
			ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
			Value:    tok.Literal,
		}

	case token.KW_TRUE, token.KW_FALSE:
		p.advance()
		return &ast.LiteralExpr{
			ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
			Value:    tok.Kind == token.KW_TRUE,
		}

	case token.KW_NIL:
		p.advance()
		return &ast.LiteralExpr{
			ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
		}

	case token.KW_THIS:
		p.advance()
		if p.cls == classNone {
			p.report(CodeThisOutsideClass, tok, "Can't use 'this' outside of a class.")
		}
		return &ast.ThisExpr{
			ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
		}

	case token.KW_SUPER:
		return p.parseSuper()

	case token.IDENT:
		p.advance()
		return &ast.VariableExpr{
			ExprBase: makeExprBase(tok.Span.Start, tok.Span.End),
			Name:     tok.Lexeme,
		}

	case token.LPAREN:
		// Grouped expression: ( expr )
		p.advance() // consume '('
		inner := p.parseExpr(bpNone)
		p.expect(token.RPAREN, "Expect ')' after expression.")
		return &ast.GroupingExpr{
			ExprBase: makeExprBase(tok.Span.Start, p.prevEnd()),
			Inner:    inner,
		}

	case token.BANG, token.MINUS:
		// Unary: !expr, -expr
		p.advance()
		operand := p.parseExpr(bpUnary)
		return &ast.UnaryExpr{
			ExprBase: makeExprBase(tok.Span.Start, operand.GetSpan().End),
			Op:       tok.Kind,
			Operand:  operand,
		}

	default:
		p.error(CodeExpectExpression, tok, "Expect expression.")
		return &ast.BadExpr{ExprBase: makeExprBase(tok.Span.Start, tok.Span.End)}
	}
}

// led handles infix/postfix (left denotation) parsing.
func (p *Parser) led(left ast.Expr) ast.Expr {
	tok := p.peek()

	switch tok.Kind {
	case token.ASSIGN:
		// Right-associative: the value may itself be an assignment.
		p.advance()
		value := p.parseExpr(bpAssign - 1)
		s := makeExprBase(left.GetSpan().Start, value.GetSpan().End)
		switch target := left.(type) {
		case *ast.VariableExpr:
			return &ast.AssignExpr{ExprBase: s, Name: target.Name, Value: value}
		case *ast.GetExpr:
			return &ast.SetExpr{ExprBase: s, Object: target.Object, Name: target.Name, Value: value}
		default:
			p.report(CodeInvalidAssign, tok, "Invalid assignment target.")
			return left
		}

	case token.KW_AND, token.KW_OR:
		bp := infixBP(tok.Kind)
		p.advance()
		right := p.parseExpr(bp)
		return &ast.LogicalExpr{
			ExprBase: makeExprBase(left.GetSpan().Start, right.GetSpan().End),
			Op:       tok.Kind,
			Left:     left,
			Right:    right,
		}

	case token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE:
		// Binary infix operator (left-associative)
		bp := infixBP(tok.Kind)
		p.advance()
		right := p.parseExpr(bp)
		return &ast.BinaryExpr{
			ExprBase: makeExprBase(left.GetSpan().Start, right.GetSpan().End),
			Op:       tok.Kind,
			Left:     left,
			Right:    right,
		}

	case token.LPAREN:
		return p.parseCallExpr(left)

	case token.DOT:
		// Property access: object.name
		p.advance() // consume '.'
		nameTok, _ := p.expect(token.IDENT, "Expect property name after '.'.")
		return &ast.GetExpr{
			ExprBase: makeExprBase(left.GetSpan().Start, nameTok.Span.End),
			Object:   left,
			Name:     nameTok.Lexeme,
		}

	default:
		return left
	}
}

// parseCallExpr parses: callee ( args )
func (p *Parser) parseCallExpr(callee ast.Expr) *ast.CallExpr {
	p.advance() // consume '('
	var args []ast.Expr

	if !p.check(token.RPAREN) {
		for {
			if len(args) >= maxArgs {
				p.report(CodeTooMany, p.peek(), fmt.Sprintf("Can't have more than %d arguments.", maxArgs))
			}
			args = append(args, p.parseExpr(bpNone))
			if !p.check(token.COMMA) || p.panicking {
				break
			}
			p.advance() // consume ','
		}
	}
	end, _ := p.expect(token.RPAREN, "Expect ')' after arguments.")

	return &ast.CallExpr{
		ExprBase: makeExprBase(callee.GetSpan().Start, end.Span.End),
		Callee:   callee,
		Args:     args,
	}
}

// parseSuper parses: super . IDENT
func (p *Parser) parseSuper() ast.Expr {
	start := p.advance() // consume 'super'
	switch p.cls {
	case classNone:
		p.report(CodeSuperMisuse, start, "Can't use 'super' outside of a class.")
	case classPlain:
		p.report(CodeSuperMisuse, start, "Can't use 'super' in a class with no superclass.")
	}

	expr := &ast.SuperExpr{}
	if _, ok := p.expect(token.DOT, "Expect '.' after 'super'."); !ok {
		expr.ExprBase = makeExprBase(start.Span.Start, start.Span.End)
		return expr
	}
	methodTok, _ := p.expect(token.IDENT, "Expect superclass method name.")
	expr.Method = methodTok.Lexeme
	expr.ExprBase = makeExprBase(start.Span.Start, p.prevEnd())
	return expr
}

// ============================================================
// Span helpers
// ============================================================

func (p *Parser) prevEnd() span.Position {
	if p.pos > 0 && p.pos-1 < len(p.tokens) {
		return p.tokens[p.pos-1].Span.End
	}
	return p.peek().Span.Start
}

func (p *Parser) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: p.prevEnd()}
}

func makeExprBase(start, end span.Position) ast.ExprBase {
	return ast.ExprBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}

func makeStmtBase(start, end span.Position) ast.StmtBase {
	return ast.StmtBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}
