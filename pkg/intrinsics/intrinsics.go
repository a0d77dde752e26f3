// Package intrinsics installs the modeled built-in library onto a realm.
//
// Every built-in group is an Initializer, registered with a priority and run
// in order. The contract for native handlers: route all heap effects through
// realm operations, never retain the argument slice, and signal model
// errors by returning a *runtime.ThrowError. A handler either returns a
// concrete result, mints an abstract value via the generator's Derive, or
// throws.
package intrinsics

import (
	"sort"

	"prebake/pkg/runtime"
)

// Initializer installs one built-in group.
type Initializer interface {
	Name() string
	Priority() int
	Init(r *runtime.Realm) error
}

// Initialization order groups.
const (
	PriorityObject   = 0
	PriorityFunction = 1
	PriorityError    = 10
	PriorityGlobal   = 20
	PriorityArray    = 30
	PriorityString   = 31
	PriorityNumber   = 32
	PriorityBoolean  = 33
	PrioritySymbol   = 34
	PriorityRegExp   = 35
	PriorityMath     = 100
	PriorityJSON     = 101
	PriorityConsole  = 102
	PriorityAbstract = 110
)

func defaultInitializers() []Initializer {
	return []Initializer{
		&ObjectInitializer{},
		&FunctionInitializer{},
		&ErrorInitializer{},
		&GlobalInitializer{},
		&ArrayInitializer{},
		&StringInitializer{},
		&NumberInitializer{},
		&BooleanInitializer{},
		&RegExpInitializer{},
		&MathInitializer{},
		&JSONInitializer{},
		&ConsoleInitializer{},
		&AbstractInitializer{},
	}
}

// InitializeRealm bootstraps the realm's global object and environment and
// runs all initializers by priority.
func InitializeRealm(r *runtime.Realm) error {
	// The two root prototypes come first; everything else hangs off them.
	objProto := r.NewObject(runtime.Null)
	objProto.OriginalName = "Object.prototype"
	r.Intrinsics.ObjectPrototype = objProto

	fnProto := r.NewObject(objProto)
	fnProto.OriginalName = "Function.prototype"
	r.Intrinsics.FunctionPrototype = fnProto

	global := r.NewObject(objProto)
	global.OriginalName = "global"
	r.GlobalObject = global
	r.GlobalEnv = &runtime.LexicalEnvironment{
		Record: runtime.NewGlobalRecord(global, global.SelfValue()),
	}

	inits := defaultInitializers()
	sort.SliceStable(inits, func(i, j int) bool { return inits[i].Priority() < inits[j].Priority() })
	for _, init := range inits {
		if err := init.Init(r); err != nil {
			return err
		}
	}
	return nil
}

// --- Shared helpers ---

// defineMethod installs a non-enumerable native method on an object.
func defineMethod(r *runtime.Realm, obj *runtime.ObjectValue, name string, length int, handler runtime.NativeHandler) *runtime.FunctionValue {
	fn := r.NewNativeFunction(name, length, handler)
	obj.DefineOwnProperty(runtime.StringKey(name), runtime.NewDataDescriptor(fn, true, false, true))
	return fn
}

// defineValue installs a non-enumerable data property.
func defineValue(r *runtime.Realm, obj *runtime.ObjectValue, name string, v runtime.Value) {
	obj.DefineOwnProperty(runtime.StringKey(name), runtime.NewDataDescriptor(v, true, false, true))
}

// defineGlobal installs a value on the global object under its own name and
// records the intrinsic path for prelude memoization.
func defineGlobal(r *runtime.Realm, name string, v runtime.Value) {
	if obj, ok := runtime.AsObject(v); ok && obj.OriginalName == "" {
		obj.OriginalName = name
	}
	r.GlobalObject.DefineOwnProperty(runtime.StringKey(name), runtime.NewDataDescriptor(v, true, false, true))
}

// arg returns args[i] or undefined.
func arg(args []runtime.Value, i int) runtime.Value {
	if i < len(args) {
		return args[i]
	}
	return runtime.Undefined
}

// concreteString coerces a concrete argument to a Go string, or reports
// that the value is abstract.
func concreteString(r *runtime.Realm, v runtime.Value) (string, bool, error) {
	if !runtime.IsConcrete(v) {
		return "", false, nil
	}
	s, err := runtime.ToStringValue(r, v)
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

// concreteNumber coerces a concrete argument to a float64.
func concreteNumber(r *runtime.Realm, v runtime.Value) (float64, bool, error) {
	if !runtime.IsConcrete(v) {
		return 0, false, nil
	}
	f, err := runtime.ToNumber(r, v)
	if err != nil {
		return 0, false, err
	}
	return f, true, nil
}
