package intrinsics

import (
	"math"
	"strconv"

	"prebake/pkg/runtime"
)

// NumberInitializer installs Number.prototype and the Number constants.
type NumberInitializer struct{}

func (n *NumberInitializer) Name() string  { return "Number" }
func (n *NumberInitializer) Priority() int { return PriorityNumber }

func (n *NumberInitializer) Init(r *runtime.Realm) error {
	proto := r.NewObject(r.Intrinsics.ObjectPrototype)
	proto.OriginalName = "Number.prototype"
	r.Intrinsics.NumberPrototype = proto

	defineMethod(r, proto, "toString", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		f, ok, err := concreteNumber(r, this)
		if err != nil {
			return nil, err
		}
		if !ok {
			return deriveMethodCall(r, this, "toString", runtime.FlagString, args), nil
		}
		radix := 10
		if len(args) > 0 {
			rf, okNum, err := concreteNumber(r, args[0])
			if err != nil {
				return nil, err
			}
			if okNum && rf != 0 {
				radix = int(rf)
			}
		}
		if radix == 10 {
			return runtime.StringValue(runtime.NumberToString(f)), nil
		}
		if radix < 2 || radix > 36 {
			return nil, r.NewRangeError("toString() radix must be between 2 and 36")
		}
		return runtime.StringValue(strconv.FormatInt(int64(f), radix)), nil
	})

	defineMethod(r, proto, "toFixed", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		f, ok, err := concreteNumber(r, this)
		if err != nil {
			return nil, err
		}
		if !ok {
			return deriveMethodCall(r, this, "toFixed", runtime.FlagString, args), nil
		}
		digits := 0
		if len(args) > 0 {
			df, okNum, err := concreteNumber(r, args[0])
			if err != nil {
				return nil, err
			}
			if okNum {
				digits = int(df)
			}
		}
		if digits < 0 || digits > 100 {
			return nil, r.NewRangeError("toFixed() digits argument must be between 0 and 100")
		}
		return runtime.StringValue(strconv.FormatFloat(f, 'f', digits, 64)), nil
	})

	defineMethod(r, proto, "valueOf", 0, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		return this, nil
	})

	if ctor, ok := runtime.AsFunction(mustGlobalFunction(r, "Number")); ok {
		co := &ctor.ObjectValue
		defineValue(r, co, "prototype", proto)
		defineValue(r, proto, "constructor", ctor)
		defineValue(r, co, "MAX_SAFE_INTEGER", runtime.NumberValue(9007199254740991))
		defineValue(r, co, "MIN_SAFE_INTEGER", runtime.NumberValue(-9007199254740991))
		defineValue(r, co, "POSITIVE_INFINITY", runtime.NumberValue(math.Inf(1)))
		defineValue(r, co, "NEGATIVE_INFINITY", runtime.NumberValue(math.Inf(-1)))
		defineValue(r, co, "NaN", runtime.NaN)
		defineValue(r, co, "EPSILON", runtime.NumberValue(2.220446049250313e-16))
		defineMethod(r, co, "isNaN", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
			if nv, ok := arg(args, 0).(runtime.NumberValue); ok {
				return runtime.NewBoolean(math.IsNaN(float64(nv))), nil
			}
			return runtime.False, nil
		})
		defineMethod(r, co, "isInteger", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
			if nv, ok := arg(args, 0).(runtime.NumberValue); ok {
				f := float64(nv)
				return runtime.NewBoolean(!math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f)), nil
			}
			return runtime.False, nil
		})
	}
	return nil
}

// BooleanInitializer installs Boolean.prototype.
type BooleanInitializer struct{}

func (b *BooleanInitializer) Name() string  { return "Boolean" }
func (b *BooleanInitializer) Priority() int { return PriorityBoolean }

func (b *BooleanInitializer) Init(r *runtime.Realm) error {
	proto := r.NewObject(r.Intrinsics.ObjectPrototype)
	proto.OriginalName = "Boolean.prototype"
	r.Intrinsics.BooleanPrototype = proto

	defineMethod(r, proto, "toString", 0, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if bv, ok := this.(runtime.BooleanValue); ok {
			if bv {
				return runtime.StringValue("true"), nil
			}
			return runtime.StringValue("false"), nil
		}
		return nil, r.NewTypeError("Boolean.prototype.toString called on non-boolean")
	})
	defineMethod(r, proto, "valueOf", 0, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		return this, nil
	})

	if ctor, ok := runtime.AsFunction(mustGlobalFunction(r, "Boolean")); ok {
		defineValue(r, &ctor.ObjectValue, "prototype", proto)
		defineValue(r, proto, "constructor", ctor)
	}
	return nil
}

// RegExpInitializer installs the RegExp constructor and prototype.
type RegExpInitializer struct{}

func (re *RegExpInitializer) Name() string  { return "RegExp" }
func (re *RegExpInitializer) Priority() int { return PriorityRegExp }

func (re *RegExpInitializer) Init(r *runtime.Realm) error {
	proto := r.NewObject(r.Intrinsics.ObjectPrototype)
	proto.OriginalName = "RegExp.prototype"
	r.Intrinsics.RegExpPrototype = proto

	ctor := r.NewNativeFunction("RegExp", 2, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		pattern, ok, err := concreteString(r, arg(args, 0))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, r.NewTypeError("RegExp with abstract pattern")
		}
		flags := ""
		if len(args) > 1 {
			f, okF, err := concreteString(r, args[1])
			if err != nil {
				return nil, err
			}
			if okF {
				flags = f
			}
		}
		obj := r.NewObject(proto)
		obj.SetSlot("RegExpSource", runtime.StringValue(pattern))
		obj.SetSlot("RegExpFlags", runtime.StringValue(flags))
		obj.DefineOwnProperty(runtime.StringKey("lastIndex"),
			runtime.NewDataDescriptor(runtime.NumberValue(0), true, false, false))
		return obj, nil
	})
	ctor.Ctor = true
	ctor.OriginalName = "RegExp"
	defineValue(r, &ctor.ObjectValue, "prototype", proto)
	defineValue(r, proto, "constructor", ctor)

	defineMethod(r, proto, "test", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		rx, err := regexFromValue(r, this)
		if err != nil {
			return nil, err
		}
		s, ok, err := concreteString(r, arg(args, 0))
		if err != nil {
			return nil, err
		}
		if !ok {
			return deriveMethodCall(r, this, "test", runtime.FlagBoolean, args), nil
		}
		matched, matchErr := rx.MatchString(s)
		if matchErr != nil {
			return runtime.False, nil
		}
		return runtime.NewBoolean(matched), nil
	})

	defineMethod(r, proto, "source", 0, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		obj, ok := runtime.AsObject(this)
		if !ok {
			return nil, r.NewTypeError("RegExp method called on non-object")
		}
		if src, hasSrc := obj.Slot("RegExpSource"); hasSrc {
			return src, nil
		}
		return runtime.StringValue("(?:)"), nil
	})

	defineGlobal(r, "RegExp", ctor)
	return nil
}
