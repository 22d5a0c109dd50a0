package runtime

import (
	"fmt"
	"io"
	"lako/internal/ast"
	"lako/internal/span"
	"lako/internal/token"
	"time"
)

// ============================================================
// Control flow signals
// ============================================================

// ExecSignal represents a control flow signal from statement execution.
type ExecSignal int

const (
	SigNone   ExecSignal = iota
	SigReturn            // return from function
)

// ExecResult carries a control flow signal and an optional value (for return).
type ExecResult struct {
	Signal ExecSignal
	Value  Value
}

var resultNone = ExecResult{Signal: SigNone}

// ============================================================
// Interpreter
// ============================================================

// Interpreter walks the AST and executes it. Its global scope outlives
// individual runs, so a REPL can feed it one line at a time.
type Interpreter struct {
	global *Environment
	env    *Environment
	output io.Writer
}

// NewInterpreter creates a new interpreter with built-in functions registered.
// print statements write to output.
func NewInterpreter(output io.Writer) *Interpreter {
	global := NewEnvironment(nil)
	RegisterBuiltins(global, time.Now)
	return &Interpreter{
		global: global,
		env:    global,
		output: output,
	}
}

// Run executes top-level statements in order and stops at the first runtime
// error. Definitions made before the error stay in the global scope.
func (i *Interpreter) Run(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if _, err := i.execStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Eval evaluates a single expression in the current scope.
func (i *Interpreter) Eval(expr ast.Expr) (Value, error) {
	return i.evalExpr(expr)
}

// Globals returns the global environment.
func (i *Interpreter) Globals() *Environment {
	return i.global
}

// ============================================================
// Statement execution
// ============================================================

func (i *Interpreter) execStmt(stmt ast.Stmt) (ExecResult, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		_, err := i.evalExpr(s.Expr)
		return resultNone, err

	case *ast.PrintStmt:
		val, err := i.evalExpr(s.Expr)
		if err != nil {
			return resultNone, err
		}
		fmt.Fprintln(i.output, val.String())
		return resultNone, nil

	case *ast.VarStmt:
		return i.execVarDecl(s)

	case *ast.ReturnStmt:
		var val Value = NilVal{}
		if s.Value != nil {
			v, err := i.evalExpr(s.Value)
			if err != nil {
				return resultNone, err
			}
			val = v
		}
		return ExecResult{Signal: SigReturn, Value: val}, nil

	case *ast.IfStmt:
		return i.execIf(s)

	case *ast.WhileStmt:
		return i.execWhile(s)

	case *ast.BlockStmt:
		return i.execBlock(s.Stmts, NewEnvironment(i.env))

	case *ast.FunctionStmt:
		i.env.Define(s.Name, &FuncVal{Decl: s, Closure: i.env})
		return resultNone, nil

	case *ast.ClassStmt:
		return i.execClassDecl(s)

	default:
		return resultNone, runtimeErr(ErrInternal, stmt.GetSpan(), "unhandled statement type: %T", stmt)
	}
}

func (i *Interpreter) execVarDecl(s *ast.VarStmt) (ExecResult, error) {
	var val Value = NilVal{}
	if s.Init != nil {
		v, err := i.evalExpr(s.Init)
		if err != nil {
			return resultNone, err
		}
		val = v
	}
	i.env.Define(s.Name, val)
	return resultNone, nil
}

func (i *Interpreter) execIf(s *ast.IfStmt) (ExecResult, error) {
	cond, err := i.evalExpr(s.Condition)
	if err != nil {
		return resultNone, err
	}

	if IsTruthy(cond) {
		return i.execStmt(s.Then)
	}
	if s.Else != nil {
		return i.execStmt(s.Else)
	}
	return resultNone, nil
}

func (i *Interpreter) execWhile(s *ast.WhileStmt) (ExecResult, error) {
	for {
		cond, err := i.evalExpr(s.Condition)
		if err != nil {
			return resultNone, err
		}
		if !IsTruthy(cond) {
			break
		}

		result, err := i.execStmt(s.Body)
		if err != nil {
			return resultNone, err
		}
		if result.Signal == SigReturn {
			return result, nil // propagate return
		}
	}
	return resultNone, nil
}

// execBlock runs stmts in blockEnv and restores the previous scope on every
// exit path, including errors.
func (i *Interpreter) execBlock(stmts []ast.Stmt, blockEnv *Environment) (ExecResult, error) {
	prevEnv := i.env
	i.env = blockEnv
	defer func() { i.env = prevEnv }()

	for _, stmt := range stmts {
		result, err := i.execStmt(stmt)
		if err != nil {
			return resultNone, err
		}
		if result.Signal != SigNone {
			return result, nil // propagate signal
		}
	}
	return resultNone, nil
}

func (i *Interpreter) execClassDecl(s *ast.ClassStmt) (ExecResult, error) {
	var super *ClassVal
	if s.SuperClass != nil {
		superVal, err := i.evalExpr(s.SuperClass)
		if err != nil {
			return resultNone, err
		}
		cls, ok := superVal.(*ClassVal)
		if !ok {
			return resultNone, runtimeErr(ErrTypeError, s.SuperClass.GetSpan(),
				"Superclass must be a class, got %s.", superVal.TypeName())
		}
		super = cls
	}

	methodEnv := i.env
	if super != nil {
		methodEnv = NewEnvironment(i.env)
		methodEnv.Define("super", super)
	}

	cls := &ClassVal{
		Name:    s.Name,
		Super:   super,
		Methods: make(map[string]*FuncVal, len(s.Methods)),
	}
	for _, m := range s.Methods {
		cls.Methods[m.Name] = &FuncVal{Decl: m, Closure: methodEnv, IsInit: m.Name == "init"}
	}

	i.env.Define(s.Name, cls)
	return resultNone, nil
}

// ============================================================
// Expression evaluation
// ============================================================

func (i *Interpreter) evalExpr(expr ast.Expr) (Value, error) {
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		return literalValue(e.Value), nil
	case *ast.GroupingExpr:
		return i.evalExpr(e.Inner)
	case *ast.VariableExpr:
		return i.lookup(e.Name, e.GetSpan())
	case *ast.AssignExpr:
		return i.evalAssign(e)
	case *ast.UnaryExpr:
		return i.evalUnary(e)
	case *ast.BinaryExpr:
		return i.evalBinary(e)
	case *ast.LogicalExpr:
		return i.evalLogical(e)
	case *ast.CallExpr:
		return i.evalCall(e)
	case *ast.GetExpr:
		return i.evalGet(e)
	case *ast.SetExpr:
		return i.evalSet(e)
	case *ast.ThisExpr:
		return i.lookup("this", e.GetSpan())
	case *ast.SuperExpr:
		return i.evalSuper(e)
	default:
		return nil, runtimeErr(ErrInternal, expr.GetSpan(), "unhandled expression type: %T", expr)
	}
}

func literalValue(v interface{}) Value {
	switch val := v.(type) {
	case float64:
		return NumberVal(val)
	case string:
		return StringVal(val)
	case bool:
		return BoolVal(val)
	default:
		return NilVal{}
	}
}

func (i *Interpreter) lookup(name string, s span.Span) (Value, error) {
	val, err := i.env.Get(name)
	if err != nil {
		return nil, runtimeErr(ErrUndefinedVariable, s, "Undefined variable '%s'.", name)
	}
	return val, nil
}

func (i *Interpreter) evalAssign(e *ast.AssignExpr) (Value, error) {
	val, err := i.evalExpr(e.Value)
	if err != nil {
		return nil, err
	}
	if err := i.env.Assign(e.Name, val); err != nil {
		return nil, runtimeErr(ErrUndefinedVariable, e.GetSpan(), "Undefined variable '%s'.", e.Name)
	}
	return val, nil
}

func (i *Interpreter) evalUnary(e *ast.UnaryExpr) (Value, error) {
	operand, err := i.evalExpr(e.Operand)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case token.BANG:
		return BoolVal(!IsTruthy(operand)), nil
	case token.MINUS:
		n, ok := operand.(NumberVal)
		if !ok {
			return nil, runtimeErr(ErrTypeError, e.GetSpan(),
				"Operand of '-' must be a number, got %s.", operand.TypeName())
		}
		return -n, nil
	default:
		return nil, runtimeErr(ErrInternal, e.GetSpan(), "unknown unary operator: %s", e.Op)
	}
}

func (i *Interpreter) evalBinary(e *ast.BinaryExpr) (Value, error) {
	left, err := i.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := i.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case token.EQ:
		return BoolVal(ValuesEqual(left, right)), nil
	case token.NEQ:
		return BoolVal(!ValuesEqual(left, right)), nil
	case token.PLUS:
		switch l := left.(type) {
		case NumberVal:
			if r, ok := right.(NumberVal); ok {
				return l + r, nil
			}
		case StringVal:
			if r, ok := right.(StringVal); ok {
				return l + r, nil
			}
		}
		return nil, runtimeErr(ErrTypeError, e.GetSpan(),
			"Operands of '+' must be two numbers or two strings, got %s and %s.",
			left.TypeName(), right.TypeName())
	}

	l, lok := left.(NumberVal)
	r, rok := right.(NumberVal)
	if !lok || !rok {
		return nil, runtimeErr(ErrTypeError, e.GetSpan(),
			"Operands of '%s' must be numbers, got %s and %s.",
			e.Op, left.TypeName(), right.TypeName())
	}

	switch e.Op {
	case token.MINUS:
		return l - r, nil
	case token.STAR:
		return l * r, nil
	case token.SLASH:
		// Division by zero yields ±Infinity or NaN.
		return l / r, nil
	case token.LT:
		return BoolVal(l < r), nil
	case token.LTE:
		return BoolVal(l <= r), nil
	case token.GT:
		return BoolVal(l > r), nil
	case token.GTE:
		return BoolVal(l >= r), nil
	default:
		return nil, runtimeErr(ErrInternal, e.GetSpan(), "unknown binary operator: %s", e.Op)
	}
}

func (i *Interpreter) evalLogical(e *ast.LogicalExpr) (Value, error) {
	left, err := i.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	if e.Op == token.KW_OR {
		if IsTruthy(left) {
			return left, nil // short-circuit
		}
		return i.evalExpr(e.Right)
	}
	// AND
	if !IsTruthy(left) {
		return left, nil // short-circuit
	}
	return i.evalExpr(e.Right)
}

// ============================================================
// Calls
// ============================================================

func (i *Interpreter) evalCall(e *ast.CallExpr) (Value, error) {
	callee, err := i.evalExpr(e.Callee)
	if err != nil {
		return nil, err
	}

	args := make([]Value, len(e.Args))
	for idx, argExpr := range e.Args {
		val, err := i.evalExpr(argExpr)
		if err != nil {
			return nil, err
		}
		args[idx] = val
	}

	return i.callValue(callee, args, e.GetSpan())
}

func (i *Interpreter) callValue(callee Value, args []Value, s span.Span) (Value, error) {
	switch fn := callee.(type) {
	case *FuncVal:
		if err := checkArity(fn.Arity(), len(args), s); err != nil {
			return nil, err
		}
		return i.callFunc(fn, args)

	case *BuiltinVal:
		if err := checkArity(fn.Arity, len(args), s); err != nil {
			return nil, err
		}
		val, err := fn.Fn(args)
		if err != nil {
			return nil, asRuntimeError(err, s)
		}
		return val, nil

	case *ClassVal:
		if err := checkArity(fn.Arity(), len(args), s); err != nil {
			return nil, err
		}
		inst := NewInstance(fn)
		if init := fn.FindMethod("init"); init != nil {
			if _, err := i.callFunc(init.bind(inst), args); err != nil {
				return nil, err
			}
		}
		return inst, nil

	default:
		return nil, runtimeErr(ErrNotCallable, s,
			"Can only call functions and classes, got %s.", callee.TypeName())
	}
}

func checkArity(want, got int, s span.Span) error {
	if want != got {
		return runtimeErr(ErrArityMismatch, s, "Expected %d arguments but got %d.", want, got)
	}
	return nil
}

// callFunc runs fn's body in a fresh scope whose parent is the closure.
// Arity has already been checked.
func (i *Interpreter) callFunc(fn *FuncVal, args []Value) (Value, error) {
	funcEnv := NewEnvironment(fn.Closure)
	for idx, param := range fn.Decl.Params {
		funcEnv.Define(param, args[idx])
	}

	result, err := i.execBlock(fn.Decl.Body, funcEnv)
	if err != nil {
		return nil, err
	}

	if fn.IsInit {
		if this, err := fn.Closure.Get("this"); err == nil {
			return this, nil
		}
	}
	if result.Signal == SigReturn {
		return result.Value, nil
	}
	return NilVal{}, nil
}

// ============================================================
// Properties
// ============================================================

func (i *Interpreter) evalGet(e *ast.GetExpr) (Value, error) {
	obj, err := i.evalExpr(e.Object)
	if err != nil {
		return nil, err
	}
	inst, ok := obj.(*InstanceVal)
	if !ok {
		return nil, runtimeErr(ErrTypeError, e.GetSpan(),
			"Only instances have properties, got %s.", obj.TypeName())
	}
	val, ok := inst.Get(e.Name)
	if !ok {
		return nil, runtimeErr(ErrUndefinedProperty, e.GetSpan(), "Undefined property '%s'.", e.Name)
	}
	return val, nil
}

func (i *Interpreter) evalSet(e *ast.SetExpr) (Value, error) {
	obj, err := i.evalExpr(e.Object)
	if err != nil {
		return nil, err
	}
	inst, ok := obj.(*InstanceVal)
	if !ok {
		return nil, runtimeErr(ErrTypeError, e.GetSpan(),
			"Only instances have fields, got %s.", obj.TypeName())
	}
	val, err := i.evalExpr(e.Value)
	if err != nil {
		return nil, err
	}
	inst.Set(e.Name, val)
	return val, nil
}

// evalSuper resolves super.method against the superclass captured when the
// enclosing class was declared, bound to the current this.
func (i *Interpreter) evalSuper(e *ast.SuperExpr) (Value, error) {
	superVal, err := i.lookup("super", e.GetSpan())
	if err != nil {
		return nil, err
	}
	thisVal, err := i.lookup("this", e.GetSpan())
	if err != nil {
		return nil, err
	}
	super, ok := superVal.(*ClassVal)
	inst, ok2 := thisVal.(*InstanceVal)
	if !ok || !ok2 {
		return nil, runtimeErr(ErrTypeError, e.GetSpan(), "'super' used outside of a subclass method")
	}

	method := super.FindMethod(e.Method)
	if method == nil {
		return nil, runtimeErr(ErrUndefinedProperty, e.GetSpan(), "Undefined property '%s'.", e.Method)
	}
	return method.bind(inst), nil
}
