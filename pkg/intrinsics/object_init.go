package intrinsics

import (
	"prebake/pkg/runtime"
)

// ObjectInitializer installs the Object constructor and Object.prototype.
type ObjectInitializer struct{}

func (o *ObjectInitializer) Name() string  { return "Object" }
func (o *ObjectInitializer) Priority() int { return PriorityObject }

func (o *ObjectInitializer) Init(r *runtime.Realm) error {
	proto := r.Intrinsics.ObjectPrototype

	ctor := r.NewNativeFunction("Object", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		v := arg(args, 0)
		switch v.(type) {
		case runtime.UndefinedValue, runtime.NullValue:
			return r.NewPlainObject(), nil
		}
		if _, ok := runtime.AsObject(v); ok {
			return v, nil
		}
		// Primitive boxing is not modeled; the value passes through.
		return v, nil
	})
	ctor.Ctor = true
	ctor.OriginalName = "Object"
	defineValue(r, &ctor.ObjectValue, "prototype", proto)
	defineValue(r, proto, "constructor", ctor)

	defineMethod(r, &ctor.ObjectValue, "keys", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		obj, ok := runtime.AsObject(arg(args, 0))
		if !ok {
			return nil, r.NewTypeError("Object.keys called on non-object")
		}
		keys := obj.OwnEnumerableStringKeys()
		elements := make([]runtime.Value, len(keys))
		for i, k := range keys {
			elements[i] = runtime.StringValue(k)
		}
		return r.NewArrayObject(elements), nil
	})

	defineMethod(r, &ctor.ObjectValue, "getPrototypeOf", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		obj, ok := runtime.AsObject(arg(args, 0))
		if !ok {
			return nil, r.NewTypeError("Object.getPrototypeOf called on non-object")
		}
		return obj.Prototype, nil
	})

	defineMethod(r, &ctor.ObjectValue, "defineProperty", 3, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		obj, ok := runtime.AsObject(arg(args, 0))
		if !ok {
			return nil, r.NewTypeError("Object.defineProperty called on non-object")
		}
		key, err := runtime.ToPropertyKey(r, arg(args, 1))
		if err != nil {
			return nil, err
		}
		attrs, ok := runtime.AsObject(arg(args, 2))
		if !ok {
			return nil, r.NewTypeError("Property description must be an object")
		}
		desc, err := descriptorFromObject(r, attrs)
		if err != nil {
			return nil, err
		}
		obj.DefineOwnProperty(key, desc)
		return arg(args, 0), nil
	})

	defineMethod(r, &ctor.ObjectValue, "assign", 2, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		target, ok := runtime.AsObject(arg(args, 0))
		if !ok {
			return nil, r.NewTypeError("Object.assign target must be an object")
		}
		for _, src := range args[1:] {
			srcObj, ok := runtime.AsObject(src)
			if !ok {
				continue
			}
			for _, key := range srcObj.OwnEnumerableStringKeys() {
				k := runtime.StringKey(key)
				v, err := srcObj.Get(r, k, src)
				if err != nil {
					return nil, err
				}
				if _, err := target.Set(r, k, v, target.SelfValue()); err != nil {
					return nil, err
				}
			}
		}
		return target.SelfValue(), nil
	})

	defineMethod(r, &ctor.ObjectValue, "freeze", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		obj, ok := runtime.AsObject(arg(args, 0))
		if !ok {
			return arg(args, 0), nil
		}
		for _, key := range obj.OwnKeys() {
			d := obj.GetOwnProperty(key).Clone()
			if d.IsData() {
				d.Writable = false
			}
			d.Configurable = false
			obj.DefineOwnProperty(key, d)
		}
		obj.Extensible = false
		return arg(args, 0), nil
	})

	defineMethod(r, proto, "hasOwnProperty", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		obj, ok := runtime.AsObject(this)
		if !ok {
			return runtime.False, nil
		}
		key, err := runtime.ToPropertyKey(r, arg(args, 0))
		if err != nil {
			return nil, err
		}
		return runtime.NewBoolean(obj.HasOwn(key)), nil
	})

	defineMethod(r, proto, "toString", 0, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		return runtime.StringValue("[object Object]"), nil
	})

	defineMethod(r, proto, "valueOf", 0, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		return this, nil
	})

	defineGlobal(r, "Object", ctor)
	return nil
}

// descriptorFromObject converts a property-descriptor object into the
// internal form.
func descriptorFromObject(r *runtime.Realm, attrs *runtime.ObjectValue) (*runtime.Descriptor, error) {
	read := func(name string) (runtime.Value, bool, error) {
		if !attrs.HasProperty(runtime.StringKey(name)) {
			return nil, false, nil
		}
		v, err := attrs.Get(r, runtime.StringKey(name), attrs.SelfValue())
		return v, true, err
	}
	boolOf := func(v runtime.Value) bool {
		return runtime.IsConcrete(v) && runtime.ToBooleanConcrete(v)
	}

	get, hasGet, err := read("get")
	if err != nil {
		return nil, err
	}
	set, hasSet, err := read("set")
	if err != nil {
		return nil, err
	}
	enumerable, _, err := read("enumerable")
	if err != nil {
		return nil, err
	}
	configurable, _, err := read("configurable")
	if err != nil {
		return nil, err
	}

	if hasGet || hasSet {
		if get == nil {
			get = runtime.Undefined
		}
		if set == nil {
			set = runtime.Undefined
		}
		return runtime.NewAccessorDescriptor(get, set, boolOf(orUndefined(enumerable)), boolOf(orUndefined(configurable))), nil
	}

	value, _, err := read("value")
	if err != nil {
		return nil, err
	}
	writable, _, err := read("writable")
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = runtime.Undefined
	}
	return runtime.NewDataDescriptor(value, boolOf(orUndefined(writable)), boolOf(orUndefined(enumerable)), boolOf(orUndefined(configurable))), nil
}

func orUndefined(v runtime.Value) runtime.Value {
	if v == nil {
		return runtime.Undefined
	}
	return v
}
