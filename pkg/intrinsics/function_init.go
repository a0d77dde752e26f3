package intrinsics

import (
	"prebake/pkg/runtime"
)

// FunctionInitializer installs Function.prototype.
type FunctionInitializer struct{}

func (f *FunctionInitializer) Name() string  { return "Function" }
func (f *FunctionInitializer) Priority() int { return PriorityFunction }

func (f *FunctionInitializer) Init(r *runtime.Realm) error {
	proto := r.Intrinsics.FunctionPrototype

	defineMethod(r, proto, "call", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		fn, ok := runtime.AsFunction(this)
		if !ok {
			return nil, r.NewTypeError("Function.prototype.call called on non-function")
		}
		var callThis runtime.Value = runtime.Undefined
		var callArgs []runtime.Value
		if len(args) > 0 {
			callThis = args[0]
			callArgs = args[1:]
		}
		return r.CallFunction(fn, callThis, callArgs)
	})

	defineMethod(r, proto, "apply", 2, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		fn, ok := runtime.AsFunction(this)
		if !ok {
			return nil, r.NewTypeError("Function.prototype.apply called on non-function")
		}
		var callThis runtime.Value = runtime.Undefined
		if len(args) > 0 {
			callThis = args[0]
		}
		var callArgs []runtime.Value
		if len(args) > 1 {
			arr, ok := runtime.AsObject(args[1])
			if !ok {
				return nil, r.NewTypeError("CreateListFromArrayLike called on non-object")
			}
			length, err := arr.Get(r, runtime.StringKey("length"), args[1])
			if err != nil {
				return nil, err
			}
			n, okNum, err := concreteNumber(r, length)
			if err != nil {
				return nil, err
			}
			if !okNum {
				return nil, r.NewTypeError("apply with abstract argument list")
			}
			for i := 0; i < int(n); i++ {
				el, err := arr.Get(r, runtime.StringKey(runtime.NumberToString(float64(i))), args[1])
				if err != nil {
					return nil, err
				}
				callArgs = append(callArgs, el)
			}
		}
		return r.CallFunction(fn, callThis, callArgs)
	})

	defineMethod(r, proto, "toString", 0, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		fn, ok := runtime.AsFunction(this)
		if !ok {
			return nil, r.NewTypeError("Function.prototype.toString called on non-function")
		}
		if fn.IsIntrinsic() {
			return runtime.StringValue("function " + fn.Name + "() { [native code] }"), nil
		}
		return runtime.StringValue("function " + fn.Name + "() { ... }"), nil
	})

	return nil
}
