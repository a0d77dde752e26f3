package intrinsics

import (
	"math"
	"strconv"
	"strings"

	"prebake/pkg/runtime"
)

// GlobalInitializer installs the global value properties and functions.
type GlobalInitializer struct{}

func (g *GlobalInitializer) Name() string  { return "global" }
func (g *GlobalInitializer) Priority() int { return PriorityGlobal }

func (g *GlobalInitializer) Init(r *runtime.Realm) error {
	global := r.GlobalObject

	global.DefineOwnProperty(runtime.StringKey("undefined"),
		runtime.NewDataDescriptor(runtime.Undefined, false, false, false))
	global.DefineOwnProperty(runtime.StringKey("NaN"),
		runtime.NewDataDescriptor(runtime.NaN, false, false, false))
	global.DefineOwnProperty(runtime.StringKey("Infinity"),
		runtime.NewDataDescriptor(runtime.NumberValue(math.Inf(1)), false, false, false))
	global.DefineOwnProperty(runtime.StringKey("globalThis"),
		runtime.NewDataDescriptor(global.SelfValue(), true, false, true))

	installGlobalFn := func(name string, length int, handler runtime.NativeHandler) {
		fn := r.NewNativeFunction(name, length, handler)
		fn.Pure = true
		fn.OriginalName = name
		defineGlobal(r, name, fn)
	}

	installGlobalFn("isNaN", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		f, ok, err := concreteNumber(r, arg(args, 0))
		if err != nil {
			return nil, err
		}
		if !ok {
			return deriveCall(r, "isNaN", runtime.FlagBoolean, args), nil
		}
		return runtime.NewBoolean(math.IsNaN(f)), nil
	})

	installGlobalFn("isFinite", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		f, ok, err := concreteNumber(r, arg(args, 0))
		if err != nil {
			return nil, err
		}
		if !ok {
			return deriveCall(r, "isFinite", runtime.FlagBoolean, args), nil
		}
		return runtime.NewBoolean(!math.IsNaN(f) && !math.IsInf(f, 0)), nil
	})

	installGlobalFn("parseInt", 2, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		s, ok, err := concreteString(r, arg(args, 0))
		if err != nil {
			return nil, err
		}
		if !ok {
			return deriveCall(r, "parseInt", runtime.FlagNumber, args), nil
		}
		radix := 10
		if len(args) > 1 {
			f, okNum, err := concreteNumber(r, args[1])
			if err != nil {
				return nil, err
			}
			if !okNum {
				return deriveCall(r, "parseInt", runtime.FlagNumber, args), nil
			}
			if f != 0 {
				radix = int(f)
			}
		}
		return runtime.NumberValue(parseIntJS(s, radix)), nil
	})

	installGlobalFn("parseFloat", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		s, ok, err := concreteString(r, arg(args, 0))
		if err != nil {
			return nil, err
		}
		if !ok {
			return deriveCall(r, "parseFloat", runtime.FlagNumber, args), nil
		}
		return runtime.NumberValue(parseFloatJS(s)), nil
	})

	installGlobalFn("String", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if len(args) == 0 {
			return runtime.StringValue(""), nil
		}
		s, ok, err := concreteString(r, args[0])
		if err != nil {
			return nil, err
		}
		if !ok {
			return deriveCall(r, "String", runtime.FlagString, args), nil
		}
		return runtime.StringValue(s), nil
	})

	installGlobalFn("Number", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if len(args) == 0 {
			return runtime.NumberValue(0), nil
		}
		f, ok, err := concreteNumber(r, args[0])
		if err != nil {
			return nil, err
		}
		if !ok {
			return deriveCall(r, "Number", runtime.FlagNumber, args), nil
		}
		return runtime.NumberValue(f), nil
	})

	installGlobalFn("Boolean", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		v := arg(args, 0)
		if !runtime.IsConcrete(v) {
			return deriveCall(r, "Boolean", runtime.FlagBoolean, args), nil
		}
		return runtime.NewBoolean(runtime.ToBooleanConcrete(v)), nil
	})

	return nil
}

// deriveCall mints the abstract result of a pure global function applied to
// abstract arguments; the residual program re-evaluates the call.
func deriveCall(r *runtime.Realm, name string, resultTypes runtime.TypeFlag, args []runtime.Value) runtime.Value {
	callee := r.CreateAbstract(runtime.FlagFunction, runtime.ValuesTop, nil, runtime.IdentTemplate(name), runtime.KindNone)
	return r.Generator.Derive(resultTypes, runtime.ValuesTop,
		append([]runtime.Value{callee}, args...), runtime.CallTemplate(),
		runtime.DeriveOptions{IsPure: true})
}

// parseIntJS implements the Standard's parseInt on a concrete string.
func parseIntJS(s string, radix int) float64 {
	t := strings.TrimSpace(s)
	sign := 1.0
	if strings.HasPrefix(t, "-") {
		sign = -1
		t = t[1:]
	} else if strings.HasPrefix(t, "+") {
		t = t[1:]
	}
	if (radix == 16 || radix == 0) && (strings.HasPrefix(t, "0x") || strings.HasPrefix(t, "0X")) {
		t = t[2:]
		radix = 16
	}
	if radix == 0 {
		radix = 10
	}
	if radix < 2 || radix > 36 {
		return math.NaN()
	}
	end := 0
	for end < len(t) {
		if digitValue(t[end]) < 0 || digitValue(t[end]) >= radix {
			break
		}
		end++
	}
	if end == 0 {
		return math.NaN()
	}
	n, err := strconv.ParseInt(t[:end], radix, 64)
	if err != nil {
		// Overflow: fall back to float accumulation.
		acc := 0.0
		for i := 0; i < end; i++ {
			acc = acc*float64(radix) + float64(digitValue(t[i]))
		}
		return sign * acc
	}
	return sign * float64(n)
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return -1
}

// parseFloatJS implements the Standard's parseFloat on a concrete string.
func parseFloatJS(s string) float64 {
	t := strings.TrimSpace(s)
	end := len(t)
	for end > 0 {
		if _, err := strconv.ParseFloat(t[:end], 64); err == nil {
			break
		}
		end--
	}
	if end == 0 {
		return math.NaN()
	}
	f, _ := strconv.ParseFloat(t[:end], 64)
	return f
}
