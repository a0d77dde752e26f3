package intrinsics

import (
	"strings"

	"prebake/pkg/runtime"
)

// ArrayInitializer installs the Array constructor and prototype.
type ArrayInitializer struct{}

func (a *ArrayInitializer) Name() string  { return "Array" }
func (a *ArrayInitializer) Priority() int { return PriorityArray }

func (a *ArrayInitializer) Init(r *runtime.Realm) error {
	proto := r.NewObject(r.Intrinsics.ObjectPrototype)
	proto.OriginalName = "Array.prototype"
	r.Intrinsics.ArrayPrototype = proto

	ctor := r.NewNativeFunction("Array", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if len(args) == 1 {
			if n, ok := args[0].(runtime.NumberValue); ok {
				return r.NewArrayObject(make([]runtime.Value, int(n))), nil
			}
		}
		return r.NewArrayObject(args), nil
	})
	ctor.Ctor = true
	ctor.OriginalName = "Array"
	defineValue(r, &ctor.ObjectValue, "prototype", proto)
	defineValue(r, proto, "constructor", ctor)

	defineMethod(r, &ctor.ObjectValue, "isArray", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		obj, ok := runtime.AsObject(arg(args, 0))
		if !ok {
			return runtime.False, nil
		}
		_, isArr := obj.Slot("Array")
		return runtime.NewBoolean(isArr), nil
	})

	defineMethod(r, proto, "push", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		obj, length, err := arrayAndLength(r, this)
		if err != nil {
			return nil, err
		}
		for i, v := range args {
			obj.DefineOwnProperty(runtime.StringKey(runtime.NumberToString(float64(length+i))), runtime.DefaultDataDescriptor(v))
		}
		newLen := runtime.NumberValue(float64(length + len(args)))
		setArrayLength(obj, newLen)
		return newLen, nil
	})

	defineMethod(r, proto, "pop", 0, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		obj, length, err := arrayAndLength(r, this)
		if err != nil {
			return nil, err
		}
		if length == 0 {
			return runtime.Undefined, nil
		}
		key := runtime.StringKey(runtime.NumberToString(float64(length - 1)))
		v, err := obj.Get(r, key, this)
		if err != nil {
			return nil, err
		}
		obj.DeleteOwnProperty(key)
		setArrayLength(obj, runtime.NumberValue(float64(length-1)))
		return v, nil
	})

	defineMethod(r, proto, "indexOf", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		obj, length, err := arrayAndLength(r, this)
		if err != nil {
			return nil, err
		}
		needle := arg(args, 0)
		for i := 0; i < length; i++ {
			v, err := obj.Get(r, runtime.StringKey(runtime.NumberToString(float64(i))), this)
			if err != nil {
				return nil, err
			}
			if runtime.IsConcrete(v) && runtime.StrictEquals(v, needle) {
				return runtime.NumberValue(float64(i)), nil
			}
		}
		return runtime.NumberValue(-1), nil
	})

	defineMethod(r, proto, "join", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		obj, length, err := arrayAndLength(r, this)
		if err != nil {
			return nil, err
		}
		sep := ","
		if len(args) > 0 {
			s, ok, err := concreteString(r, args[0])
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, r.NewTypeError("join with abstract separator")
			}
			sep = s
		}
		parts := make([]string, 0, length)
		for i := 0; i < length; i++ {
			v, err := obj.Get(r, runtime.StringKey(runtime.NumberToString(float64(i))), this)
			if err != nil {
				return nil, err
			}
			switch v.(type) {
			case runtime.UndefinedValue, runtime.NullValue:
				parts = append(parts, "")
				continue
			}
			s, ok, err := concreteString(r, v)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, r.NewTypeError("join over abstract elements")
			}
			parts = append(parts, s)
		}
		return runtime.StringValue(strings.Join(parts, sep)), nil
	})

	defineMethod(r, proto, "slice", 2, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		obj, length, err := arrayAndLength(r, this)
		if err != nil {
			return nil, err
		}
		start, end := sliceBounds(r, args, length)
		var out []runtime.Value
		for i := start; i < end; i++ {
			v, err := obj.Get(r, runtime.StringKey(runtime.NumberToString(float64(i))), this)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return r.NewArrayObject(out), nil
	})

	defineMethod(r, proto, "forEach", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		obj, length, err := arrayAndLength(r, this)
		if err != nil {
			return nil, err
		}
		fn, ok := runtime.AsFunction(arg(args, 0))
		if !ok {
			return nil, r.NewTypeError("forEach callback is not a function")
		}
		for i := 0; i < length; i++ {
			v, err := obj.Get(r, runtime.StringKey(runtime.NumberToString(float64(i))), this)
			if err != nil {
				return nil, err
			}
			if _, err := r.CallFunction(fn, runtime.Undefined, []runtime.Value{v, runtime.NumberValue(float64(i)), this}); err != nil {
				return nil, err
			}
		}
		return runtime.Undefined, nil
	})

	defineGlobal(r, "Array", ctor)
	return nil
}

func arrayAndLength(r *runtime.Realm, this runtime.Value) (*runtime.ObjectValue, int, error) {
	obj, ok := runtime.AsObject(this)
	if !ok {
		return nil, 0, r.NewTypeError("Array method called on non-object")
	}
	d := obj.GetOwnProperty(runtime.StringKey("length"))
	if d == nil || !d.IsData() {
		return obj, 0, nil
	}
	if n, ok := d.Value.(runtime.NumberValue); ok {
		return obj, int(n), nil
	}
	return nil, 0, r.NewTypeError("array length is not known at build time")
}

func setArrayLength(obj *runtime.ObjectValue, n runtime.NumberValue) {
	obj.DefineOwnProperty(runtime.StringKey("length"), runtime.NewDataDescriptor(n, true, false, false))
}

func sliceBounds(r *runtime.Realm, args []runtime.Value, length int) (int, int) {
	clamp := func(v int) int {
		if v < 0 {
			v += length
		}
		if v < 0 {
			return 0
		}
		if v > length {
			return length
		}
		return v
	}
	start, end := 0, length
	if len(args) > 0 {
		if f, ok, _ := concreteNumber(r, args[0]); ok {
			start = clamp(int(f))
		}
	}
	if len(args) > 1 {
		if _, isUndef := args[1].(runtime.UndefinedValue); !isUndef {
			if f, ok, _ := concreteNumber(r, args[1]); ok {
				end = clamp(int(f))
			}
		}
	}
	if start > end {
		return start, start
	}
	return start, end
}
