package runtime

import (
	"prebake/pkg/ast"
)

// NativeHandler is the call interface every intrinsic implements. Handlers
// must route all heap effects through realm operations, must not retain the
// argument slice, and signal model errors by returning a *ThrowError.
type NativeHandler func(r *Realm, this Value, args []Value) (Value, error)

// FunctionValue is a callable object: either a user-defined function with an
// AST body and captured environment, or an intrinsic with a native handler.
type FunctionValue struct {
	ObjectValue

	Name   string
	Params []string

	// User-defined form
	Body   *ast.BlockStatement
	Env    *LexicalEnvironment
	Strict bool

	// Intrinsic form
	Native NativeHandler
	// Pure marks intrinsics whose calls may be folded away when the result
	// is unused (Math.*, String.prototype helpers).
	Pure bool
	// Ctor marks intrinsics that may be invoked with `new`.
	Ctor bool
}

func (f *FunctionValue) valueNode()      {}
func (f *FunctionValue) Types() TypeFlag { return FlagFunction }
func (f *FunctionValue) Display() string {
	if f.Name != "" {
		return "function " + f.Name
	}
	return "function"
}

// IsIntrinsic reports whether the function is natively implemented.
func (f *FunctionValue) IsIntrinsic() bool { return f.Native != nil }

// AsObject unwraps a value to its object record. Functions expose their
// embedded object. Returns false for primitives and abstract values.
func AsObject(v Value) (*ObjectValue, bool) {
	switch x := v.(type) {
	case *ObjectValue:
		return x, true
	case *FunctionValue:
		return &x.ObjectValue, true
	default:
		return nil, false
	}
}

// AsFunction unwraps a value to a function, if it is one.
func AsFunction(v Value) (*FunctionValue, bool) {
	f, ok := v.(*FunctionValue)
	return f, ok
}

// SelfValue returns the Value identity of an object record: functions are
// returned as *FunctionValue so type predicates stay accurate.
func (o *ObjectValue) SelfValue() Value {
	if o.self != nil {
		return o.self
	}
	return o
}
