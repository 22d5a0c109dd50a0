// Package runtime implements the tree-walking interpreter and runtime value
// system for lako.
//
// Calls are evaluated on the Go stack: a script that recurses without bound
// exhausts it and the process dies. There is no depth guard.
package runtime

import (
	"fmt"
	"lako/internal/ast"
	"math"
	"strconv"
)

// Value is the interface for all runtime values.
type Value interface {
	TypeName() string
	String() string
}

// ---- Primitive values ----

// NilVal represents nil.
type NilVal struct{}

func (v NilVal) TypeName() string { return "nil" }
func (v NilVal) String() string   { return "nil" }

// BoolVal represents a boolean value.
type BoolVal bool

func (v BoolVal) TypeName() string { return "boolean" }
func (v BoolVal) String() string   { return strconv.FormatBool(bool(v)) }

// NumberVal represents a number. All numbers are float64.
type NumberVal float64

func (v NumberVal) TypeName() string { return "number" }
func (v NumberVal) String() string   { return FormatNumber(float64(v)) }

// StringVal represents a string value.
type StringVal string

func (v StringVal) TypeName() string { return "string" }
func (v StringVal) String() string   { return string(v) }

// FormatNumber renders a number in its shortest round-trip decimal form,
// without an exponent and without a trailing ".0".
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ---- Callable values ----

// FuncVal represents a user-defined function or method (closure).
type FuncVal struct {
	Decl    *ast.FunctionStmt
	Closure *Environment
	IsInit  bool // class initializer: always returns this
}

func (v *FuncVal) TypeName() string { return "function" }
func (v *FuncVal) String() string   { return fmt.Sprintf("<fn %s>", v.Decl.Name) }

// Arity returns the number of declared parameters.
func (v *FuncVal) Arity() int { return len(v.Decl.Params) }

// bind returns a copy of the method whose closure has this bound to inst.
func (v *FuncVal) bind(inst *InstanceVal) *FuncVal {
	env := NewEnvironment(v.Closure)
	env.Define("this", inst)
	return &FuncVal{Decl: v.Decl, Closure: env, IsInit: v.IsInit}
}

// BuiltinFn is the Go signature for built-in functions.
type BuiltinFn func(args []Value) (Value, error)

// BuiltinVal represents a built-in (native) function.
type BuiltinVal struct {
	Name  string
	Arity int
	Fn    BuiltinFn
}

func (v *BuiltinVal) TypeName() string { return "function" }
func (v *BuiltinVal) String() string   { return "<native fn>" }

// ---- OOP values ----

// ClassVal represents a class. Methods close over the defining environment
// (plus a super binding when the class has a superclass).
type ClassVal struct {
	Name    string
	Super   *ClassVal // may be nil
	Methods map[string]*FuncVal
}

func (v *ClassVal) TypeName() string { return "class" }
func (v *ClassVal) String() string   { return v.Name }

// FindMethod looks up an unbound method on the class, then its ancestors.
func (v *ClassVal) FindMethod(name string) *FuncVal {
	for cls := v; cls != nil; cls = cls.Super {
		if m, ok := cls.Methods[name]; ok {
			return m
		}
	}
	return nil
}

// Arity is the arity of init, or 0 when the class has none.
func (v *ClassVal) Arity() int {
	if init := v.FindMethod("init"); init != nil {
		return init.Arity()
	}
	return 0
}

// InstanceVal represents an instance of a class.
type InstanceVal struct {
	Class  *ClassVal
	Fields map[string]Value
}

// NewInstance creates an instance with no fields.
func NewInstance(cls *ClassVal) *InstanceVal {
	return &InstanceVal{Class: cls, Fields: make(map[string]Value)}
}

func (v *InstanceVal) TypeName() string { return v.Class.Name }
func (v *InstanceVal) String() string   { return v.Class.Name + " instance" }

// Get returns an own field, or else a method bound to the instance.
func (v *InstanceVal) Get(name string) (Value, bool) {
	if val, ok := v.Fields[name]; ok {
		return val, true
	}
	if m := v.Class.FindMethod(name); m != nil {
		return m.bind(v), true
	}
	return nil, false
}

// Set writes an own field.
func (v *InstanceVal) Set(name string, val Value) {
	v.Fields[name] = val
}

// ---- Truthiness and equality ----

// IsTruthy reports whether v counts as true: everything except nil and false.
func IsTruthy(v Value) bool {
	switch val := v.(type) {
	case NilVal:
		return false
	case BoolVal:
		return bool(val)
	default:
		return true
	}
}

// ValuesEqual implements ==. Values of different types are never equal;
// numbers compare by IEEE-754 rules, strings by content, and functions,
// classes and instances by identity.
func ValuesEqual(a, b Value) bool {
	// Every Value implementation is comparable, so interface equality gives
	// exactly these semantics.
	return a == b
}
