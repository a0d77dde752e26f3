package intrinsics

import (
	"prebake/pkg/ast"
	"prebake/pkg/runtime"
)

// AbstractInitializer installs the partial-evaluation helpers in the
// __abstract family. User code (or test harnesses) calls these to introduce
// unknown values and to assert object modes.
type AbstractInitializer struct{}

func (a *AbstractInitializer) Name() string  { return "abstract" }
func (a *AbstractInitializer) Priority() int { return PriorityAbstract }

func (a *AbstractInitializer) Init(r *runtime.Realm) error {
	// __abstract(typeName, sourceExpr) mints an unknown value of the given
	// type whose origin is the source expression text.
	install := func(name string, handler runtime.NativeHandler) {
		fn := r.NewNativeFunction(name, 2, handler)
		fn.OriginalName = name
		defineGlobal(r, name, fn)
	}

	install("__abstract", func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		typeName := "value"
		if s, ok, err := concreteString(r, arg(args, 0)); err != nil {
			return nil, err
		} else if ok {
			typeName = s
		}
		origin, ok, err := concreteString(r, arg(args, 1))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, r.NewTypeError("__abstract requires a concrete origin expression")
		}

		if typeName == "object" {
			ao := r.CreateAbstractObject(nil, runtime.IdentTemplate(origin), nil)
			ao.IntrinsicName = origin
			return ao, nil
		}
		types := typeFlagForName(typeName)
		av := r.CreateAbstract(types, runtime.ValuesTop, nil, runtime.IdentTemplate(origin), runtime.KindNone)
		av.IntrinsicName = origin
		return av, nil
	})

	// __abstract_simple_partial(sourceExpr) mints an unknown object that is
	// asserted simple and partial, the mode the residual for-in copy needs.
	install("__abstract_simple_partial", func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		origin, ok, err := concreteString(r, arg(args, 0))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, r.NewTypeError("__abstract_simple_partial requires a concrete origin expression")
		}
		ao := r.CreateAbstractObject(nil, runtime.IdentTemplate(origin), nil)
		ao.IntrinsicName = origin
		ao.AssertModes(true, true)
		return ao, nil
	})

	// __makeSimple(obj) asserts the simple bit on a concrete object.
	install("__makeSimple", func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if obj, ok := runtime.AsObject(arg(args, 0)); ok {
			obj.MakeSimple()
		}
		return arg(args, 0), nil
	})

	// __makePartial(obj) marks a concrete object partial: unknown keys may
	// exist at runtime.
	install("__makePartial", func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if obj, ok := runtime.AsObject(arg(args, 0)); ok {
			obj.MakePartial()
		}
		return arg(args, 0), nil
	})

	// __residual(expr) forces a value to survive into the output program as
	// a declared residual binding.
	install("__residual", func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		v := arg(args, 0)
		derived := r.Generator.Derive(v.Types(), runtime.ValuesTop,
			[]runtime.Value{v},
			func(argExprs []ast.Expression) ast.Expression { return argExprs[0] },
			runtime.DeriveOptions{SkipInvariant: true})
		return derived, nil
	})

	return nil
}

func typeFlagForName(name string) runtime.TypeFlag {
	switch name {
	case "boolean":
		return runtime.FlagBoolean
	case "number", "integral":
		return runtime.FlagNumber
	case "string":
		return runtime.FlagString
	case "symbol":
		return runtime.FlagSymbol
	case "function":
		return runtime.FlagFunction
	case "undefined":
		return runtime.FlagUndefined
	case "null":
		return runtime.FlagNull
	default:
		return runtime.TypesTop
	}
}
