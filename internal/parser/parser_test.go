package parser

import (
	"encoding/json"
	"lako/internal/ast"
	"lako/internal/diag"
	"lako/internal/lexer"
	"strings"
	"testing"
)

// helper: parse source and return AST + check for no errors
func parseOK(t *testing.T, source string) *ast.Program {
	t.Helper()
	l := lexer.New(source, "test.lox")
	tokens, lexDiags := l.Tokenize()
	if len(lexDiags) > 0 {
		t.Fatalf("lex errors: %v", lexDiags)
	}
	p := New(tokens)
	prog, parseDiags := p.ParseProgram()
	if len(parseDiags) > 0 {
		t.Fatalf("parse errors: %v", parseDiags)
	}
	return prog
}

// helper: parse source that must fail and return its diagnostics
func parseErr(t *testing.T, source string) []diag.Diagnostic {
	t.Helper()
	l := lexer.New(source, "test.lox")
	tokens, lexDiags := l.Tokenize()
	if len(lexDiags) > 0 {
		t.Fatalf("lex errors: %v", lexDiags)
	}
	_, parseDiags := New(tokens).ParseProgram()
	if len(parseDiags) == 0 {
		t.Fatalf("expected parse errors for %q", source)
	}
	return parseDiags
}

// helper: parse and render in prefix form
func sexpr(t *testing.T, source string) string {
	t.Helper()
	return ast.Print(parseOK(t, source))
}

func TestParseVarDecl(t *testing.T) {
	prog := parseOK(t, `var x = 42;`)
	if len(prog.Stmts) != 1 {
		t.Fatalf("expected 1 node, got %d", len(prog.Stmts))
	}
	decl, ok := prog.Stmts[0].(*ast.VarStmt)
	if !ok {
		t.Fatalf("expected VarStmt, got %T", prog.Stmts[0])
	}
	if decl.Name != "x" {
		t.Errorf("expected name 'x', got %q", decl.Name)
	}
	lit, ok := decl.Init.(*ast.LiteralExpr)
	if !ok || lit.Value != 42.0 {
		t.Errorf("expected literal 42, got %#v", decl.Init)
	}
}

func TestParseVarDeclWithoutInit(t *testing.T) {
	prog := parseOK(t, `var x;`)
	decl := prog.Stmts[0].(*ast.VarStmt)
	if decl.Init != nil {
		t.Errorf("expected nil init, got %T", decl.Init)
	}
}

func TestParseBinaryExpr(t *testing.T) {
	prog := parseOK(t, `var z = 1 + 2 * 3;`)
	decl := prog.Stmts[0].(*ast.VarStmt)
	// init should be BinaryExpr: 1 + (2 * 3)
	binExpr, ok := decl.Init.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected BinaryExpr, got %T", decl.Init)
	}
	if binExpr.Op.String() != "+" {
		t.Errorf("expected '+', got %q", binExpr.Op.String())
	}
	right, ok := binExpr.Right.(*ast.BinaryExpr)
	if !ok || right.Op.String() != "*" {
		t.Errorf("expected right to be '*', got %#v", binExpr.Right)
	}
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{`-123 * (45.67);`, `(; (* (- 123) (group 45.67)))`},
		{`1 + 2 * 3;`, `(; (+ 1 (* 2 3)))`},
		{`1 - 2 - 3;`, `(; (- (- 1 2) 3))`},
		{`8 / 4 / 2;`, `(; (/ (/ 8 4) 2))`},
		{`1 < 2 == 3 > 4;`, `(; (== (< 1 2) (> 3 4)))`},
		{`a or b and c;`, `(; (or a (and b c)))`},
		{`a and b or c;`, `(; (or (and a b) c))`},
		{`!!true;`, `(; (! (! true)))`},
		{`-a.b(c);`, `(; (- (call (. b a) c)))`},
		{`a = b = 3;`, `(; (= a (= b 3)))`},
		{`a.b.c = 1;`, `(; (set c (. b a) 1))`},
		{`x = 1 or 2;`, `(; (= x (or 1 2)))`},
		{`f(1)(2, "s");`, `(; (call (call f 1) 2 "s"))`},
		{`!a == b;`, `(; (== (! a) b))`},
	}

	for _, tt := range tests {
		if got := sexpr(t, tt.source); got != tt.want {
			t.Errorf("%s\n  expected %s\n  got      %s", tt.source, tt.want, got)
		}
	}
}

func TestParseIfStmt(t *testing.T) {
	prog := parseOK(t, `if (x > 0) print "pos"; else print "neg";`)
	ifStmt, ok := prog.Stmts[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected IfStmt, got %T", prog.Stmts[0])
	}
	if ifStmt.Else == nil {
		t.Error("expected else branch")
	}
	if _, ok := ifStmt.Then.(*ast.PrintStmt); !ok {
		t.Errorf("expected PrintStmt then, got %T", ifStmt.Then)
	}
}

func TestParseDanglingElse(t *testing.T) {
	got := sexpr(t, `if (a) if (b) print 1; else print 2;`)
	want := `(if a (if b (print 1) (print 2)))`
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestParseWhileStmt(t *testing.T) {
	prog := parseOK(t, `while (i < 10) { i = i + 1; }`)
	whileStmt, ok := prog.Stmts[0].(*ast.WhileStmt)
	if !ok {
		t.Fatalf("expected WhileStmt, got %T", prog.Stmts[0])
	}
	if _, ok := whileStmt.Body.(*ast.BlockStmt); !ok {
		t.Errorf("expected BlockStmt body, got %T", whileStmt.Body)
	}
}

func TestParseForDesugarsToWhile(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{
			`for (var i = 0; i < 3; i = i + 1) print i;`,
			`(block (var i 0) (while (< i 3) (block (print i) (; (= i (+ i 1))))))`,
		},
		{
			`for (;;) print 1;`,
			`(while true (print 1))`,
		},
		{
			`for (i = 0; i < 3;) print i;`,
			`(block (; (= i 0)) (while (< i 3) (print i)))`,
		},
	}

	for _, tt := range tests {
		if got := sexpr(t, tt.source); got != tt.want {
			t.Errorf("%s\n  expected %s\n  got      %s", tt.source, tt.want, got)
		}
	}
}

func TestParseFuncDecl(t *testing.T) {
	prog := parseOK(t, `fun add(a, b) { return a + b; }`)
	fn, ok := prog.Stmts[0].(*ast.FunctionStmt)
	if !ok {
		t.Fatalf("expected FunctionStmt, got %T", prog.Stmts[0])
	}
	if fn.Name != "add" {
		t.Errorf("expected name 'add', got %q", fn.Name)
	}
	if len(fn.Params) != 2 || fn.Params[0] != "a" || fn.Params[1] != "b" {
		t.Errorf("expected params [a b], got %v", fn.Params)
	}
	if len(fn.Body) != 1 {
		t.Fatalf("expected 1 body stmt, got %d", len(fn.Body))
	}
	if _, ok := fn.Body[0].(*ast.ReturnStmt); !ok {
		t.Errorf("expected ReturnStmt, got %T", fn.Body[0])
	}
}

func TestParseClassDecl(t *testing.T) {
	source := `class Dog < Animal {
	init(name) { this.name = name; }
	speak() { return super.speak(); }
}`
	prog := parseOK(t, source)
	cls, ok := prog.Stmts[0].(*ast.ClassStmt)
	if !ok {
		t.Fatalf("expected ClassStmt, got %T", prog.Stmts[0])
	}
	if cls.Name != "Dog" {
		t.Errorf("expected name 'Dog', got %q", cls.Name)
	}
	if cls.SuperClass == nil || cls.SuperClass.Name != "Animal" {
		t.Errorf("expected superclass Animal, got %#v", cls.SuperClass)
	}
	if len(cls.Methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(cls.Methods))
	}
	if cls.Methods[0].Name != "init" || cls.Methods[1].Name != "speak" {
		t.Errorf("unexpected method names: %s, %s", cls.Methods[0].Name, cls.Methods[1].Name)
	}

	want := `(class Dog < Animal (fun init (name) (; (set name this name))) (fun speak () (return (call (super speak)))))`
	if got := ast.Print(prog); got != want {
		t.Errorf("expected %s\n got %s", want, got)
	}
}

func TestParseCallExpr(t *testing.T) {
	prog := parseOK(t, `print add(1, 2);`)
	stmt := prog.Stmts[0].(*ast.PrintStmt)
	call, ok := stmt.Expr.(*ast.CallExpr)
	if !ok {
		t.Fatalf("expected CallExpr, got %T", stmt.Expr)
	}
	if len(call.Args) != 2 {
		t.Errorf("expected 2 args, got %d", len(call.Args))
	}
}

func TestParseAssignment(t *testing.T) {
	prog := parseOK(t, `x = 10;`)
	exprStmt := prog.Stmts[0].(*ast.ExprStmt)
	assign, ok := exprStmt.Expr.(*ast.AssignExpr)
	if !ok {
		t.Fatalf("expected AssignExpr, got %T", exprStmt.Expr)
	}
	if assign.Name != "x" {
		t.Errorf("expected 'x', got %q", assign.Name)
	}
}

func TestParseSpans(t *testing.T) {
	prog := parseOK(t, "var a = 1;\nprint a + 2;")
	pr := prog.Stmts[1].(*ast.PrintStmt)
	s := pr.GetSpan()
	if s.Start.Line != 2 || s.Start.Column != 1 {
		t.Errorf("print span start: expected 2:1, got %s", s.Start)
	}
	bin := pr.Expr.(*ast.BinaryExpr)
	if bin.GetSpan().Start.Column != 7 || bin.GetSpan().End.Column != 12 {
		t.Errorf("binary span: expected columns 7-12, got %s", bin.GetSpan())
	}
}

func TestParseJSONOutput(t *testing.T) {
	prog := parseOK(t, `var x = 1;`)
	data, err := json.Marshal(ast.NodeToMap(prog))
	if err != nil {
		t.Fatalf("json error: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if m["kind"] != "Program" {
		t.Errorf("expected kind 'Program', got %v", m["kind"])
	}
	body, ok := m["body"].([]interface{})
	if !ok || len(body) != 1 {
		t.Fatalf("expected 1 body element, got %v", m["body"])
	}
	if body[0].(map[string]interface{})["kind"] != "VarStmt" {
		t.Errorf("expected VarStmt, got %v", body[0])
	}
}

func TestParseErrorMessages(t *testing.T) {
	tests := []struct {
		source string
		code   string
		msg    string
		where  string
	}{
		{`print ;`, CodeExpectExpression, "Expect expression.", "near ';'"},
		{`print 1`, CodeExpectToken, "Expect ';' after value.", "at end"},
		{`var 1 = 2;`, CodeExpectToken, "Expect variable name.", "near '1'"},
		{`(1 + 2;`, CodeExpectToken, "Expect ')' after expression.", "near ';'"},
		{`{ print 1;`, CodeExpectToken, "Expect '}' after block.", "at end"},
		{`a + b = c;`, CodeInvalidAssign, "Invalid assignment target.", "near '='"},
		{`return 1;`, CodeTopLevelReturn, "Can't return from top-level code.", "near 'return'"},
		{`print this;`, CodeThisOutsideClass, "Can't use 'this' outside of a class.", "near 'this'"},
		{`class A { f() { super.f(); } }`, CodeSuperMisuse, "Can't use 'super' in a class with no superclass.", "near 'super'"},
		{`fun f() { super.f(); }`, CodeSuperMisuse, "Can't use 'super' outside of a class.", "near 'super'"},
		{`class A < A {}`, CodeSelfInheritance, "A class can't inherit from itself.", "near 'A'"},
		{`class A { init() { return 1; } }`, CodeInitReturnValue, "Can't return a value from an initializer.", "near 'return'"},
	}

	for _, tt := range tests {
		diags := parseErr(t, tt.source)
		if len(diags) != 1 {
			t.Errorf("%s: expected 1 diagnostic, got %d: %v", tt.source, len(diags), diags)
			continue
		}
		d := diags[0]
		if d.Code != tt.code || d.Message != tt.msg || d.Where != tt.where {
			t.Errorf("%s: expected [%s] %s %q, got %s", tt.source, tt.code, tt.where, tt.msg, d)
		}
		if d.Phase != diag.Syntax {
			t.Errorf("%s: expected syntax phase, got %s", tt.source, d.Phase)
		}
	}
}

func TestParseAllowedReturns(t *testing.T) {
	parseOK(t, `fun f() { return 1; }`)
	parseOK(t, `class A { init() { return; } }`)
	parseOK(t, `class A { init() { fun g() { return 1; } } }`)
	parseOK(t, `class A { m() { fun g() { return this; } return g; } }`)
}

func TestParseTooManyArguments(t *testing.T) {
	args := make([]string, 256)
	for i := range args {
		args[i] = "1"
	}
	diags := parseErr(t, "f("+strings.Join(args, ", ")+");")
	if len(diags) != 1 || diags[0].Code != CodeTooMany {
		t.Errorf("expected one %s diagnostic, got %v", CodeTooMany, diags)
	}

	params := make([]string, 256)
	for i := range params {
		params[i] = "p" + strings.Repeat("x", i)
	}
	diags = parseErr(t, "fun f("+strings.Join(params, ", ")+") {}")
	if len(diags) != 1 || diags[0].Code != CodeTooMany {
		t.Errorf("expected one %s diagnostic, got %v", CodeTooMany, diags)
	}
}

func TestParseErrorRecovery(t *testing.T) {
	// Two independent mistakes on different lines: both are reported, and the
	// valid declaration between them still parses.
	source := "var = 1;\nprint \"ok\";\nprint (;\nvar y = 2;"
	l := lexer.New(source, "test.lox")
	tokens, _ := l.Tokenize()
	prog, diags := New(tokens).ParseProgram()

	if len(diags) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d: %v", len(diags), diags)
	}
	if diags[0].Line() != 1 || diags[1].Line() != 3 {
		t.Errorf("expected errors on lines 1 and 3, got %d and %d", diags[0].Line(), diags[1].Line())
	}
	if len(prog.Stmts) != 2 {
		t.Fatalf("expected 2 surviving statements, got %d: %s", len(prog.Stmts), ast.Print(prog))
	}
	if _, ok := prog.Stmts[0].(*ast.PrintStmt); !ok {
		t.Errorf("expected PrintStmt, got %T", prog.Stmts[0])
	}
	if _, ok := prog.Stmts[1].(*ast.VarStmt); !ok {
		t.Errorf("expected VarStmt, got %T", prog.Stmts[1])
	}
}

func TestParseErrorInsideBlockRecovers(t *testing.T) {
	source := "fun f() {\n  var = 1;\n  print 2;\n}\nprint f;"
	l := lexer.New(source, "test.lox")
	tokens, _ := l.Tokenize()
	prog, diags := New(tokens).ParseProgram()

	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d: %v", len(diags), diags)
	}
	if diags[0].Line() != 2 {
		t.Errorf("expected error on line 2, got %d", diags[0].Line())
	}
	if len(prog.Stmts) != 2 {
		t.Errorf("expected function and print to survive, got %s", ast.Print(prog))
	}
}

func TestParseBrokenClassBodyTerminates(t *testing.T) {
	diags := parseErr(t, "class A { var x; }\nprint 1;")
	if diags[0].Message != "Expect method name." {
		t.Errorf("unexpected first diagnostic: %s", diags[0])
	}
}

func TestParseStrayTokensTerminate(t *testing.T) {
	diags := parseErr(t, ") } ) else ;")
	if len(diags) == 0 {
		t.Fatal("expected diagnostics")
	}
}
