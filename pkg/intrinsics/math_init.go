package intrinsics

import (
	"encoding/json"
	"math"
	"sort"

	"prebake/pkg/runtime"
)

// MathInitializer installs the Math namespace. Every method is pure and
// foldable when its arguments are concrete.
type MathInitializer struct{}

func (m *MathInitializer) Name() string  { return "Math" }
func (m *MathInitializer) Priority() int { return PriorityMath }

func (m *MathInitializer) Init(r *runtime.Realm) error {
	mathObj := r.NewObject(r.Intrinsics.ObjectPrototype)
	mathObj.OriginalName = "Math"

	defineValue(r, mathObj, "PI", runtime.NumberValue(math.Pi))
	defineValue(r, mathObj, "E", runtime.NumberValue(math.E))
	defineValue(r, mathObj, "LN2", runtime.NumberValue(math.Ln2))
	defineValue(r, mathObj, "SQRT2", runtime.NumberValue(math.Sqrt2))

	unary := func(name string, f func(float64) float64) {
		fn := defineMethod(r, mathObj, name, 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
			x, ok, err := concreteNumber(r, arg(args, 0))
			if err != nil {
				return nil, err
			}
			if !ok {
				return deriveMethodCall(r, mathObj.SelfValue(), name, runtime.FlagNumber, args), nil
			}
			return runtime.NumberValue(f(x)), nil
		})
		fn.Pure = true
	}

	unary("abs", math.Abs)
	unary("floor", math.Floor)
	unary("ceil", math.Ceil)
	unary("round", func(x float64) float64 { return math.Floor(x + 0.5) })
	unary("trunc", math.Trunc)
	unary("sqrt", math.Sqrt)
	unary("log", math.Log)
	unary("exp", math.Exp)
	unary("sin", math.Sin)
	unary("cos", math.Cos)
	unary("tan", math.Tan)

	nary := func(name string, pick func([]float64) float64, empty float64) {
		fn := defineMethod(r, mathObj, name, 2, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
			if len(args) == 0 {
				return runtime.NumberValue(empty), nil
			}
			xs := make([]float64, len(args))
			for i, a := range args {
				x, ok, err := concreteNumber(r, a)
				if err != nil {
					return nil, err
				}
				if !ok {
					return deriveMethodCall(r, mathObj.SelfValue(), name, runtime.FlagNumber, args), nil
				}
				xs[i] = x
			}
			return runtime.NumberValue(pick(xs)), nil
		})
		fn.Pure = true
	}

	nary("max", func(xs []float64) float64 {
		out := math.Inf(-1)
		for _, x := range xs {
			if math.IsNaN(x) {
				return math.NaN()
			}
			out = math.Max(out, x)
		}
		return out
	}, math.Inf(-1))
	nary("min", func(xs []float64) float64 {
		out := math.Inf(1)
		for _, x := range xs {
			if math.IsNaN(x) {
				return math.NaN()
			}
			out = math.Min(out, x)
		}
		return out
	}, math.Inf(1))
	nary("pow", func(xs []float64) float64 {
		if len(xs) < 2 {
			return math.NaN()
		}
		return math.Pow(xs[0], xs[1])
	}, math.NaN())

	defineGlobal(r, "Math", mathObj)
	return nil
}

// JSONInitializer installs JSON.stringify and JSON.parse over fully
// concrete data.
type JSONInitializer struct{}

func (j *JSONInitializer) Name() string  { return "JSON" }
func (j *JSONInitializer) Priority() int { return PriorityJSON }

func (j *JSONInitializer) Init(r *runtime.Realm) error {
	jsonObj := r.NewObject(r.Intrinsics.ObjectPrototype)
	jsonObj.OriginalName = "JSON"

	defineMethod(r, jsonObj, "stringify", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		goVal, err := valueToGo(r, arg(args, 0), map[*runtime.ObjectValue]bool{})
		if err != nil {
			return nil, err
		}
		if goVal == skipMarker {
			return runtime.Undefined, nil
		}
		data, jerr := json.Marshal(goVal)
		if jerr != nil {
			return nil, r.NewTypeError("Converting circular structure to JSON")
		}
		return runtime.StringValue(string(data)), nil
	})

	defineMethod(r, jsonObj, "parse", 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		s, ok, err := concreteString(r, arg(args, 0))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, r.NewTypeError("JSON.parse with abstract input")
		}
		var decoded interface{}
		if jerr := json.Unmarshal([]byte(s), &decoded); jerr != nil {
			return nil, r.NewSyntaxError("Unexpected token in JSON")
		}
		return goToValue(r, decoded), nil
	})

	defineGlobal(r, "JSON", jsonObj)
	return nil
}

type skipMarkerType struct{}

var skipMarker = skipMarkerType{}

// valueToGo lowers a concrete value graph to Go data for JSON encoding.
func valueToGo(r *runtime.Realm, v runtime.Value, seen map[*runtime.ObjectValue]bool) (interface{}, error) {
	switch x := v.(type) {
	case runtime.UndefinedValue:
		return skipMarker, nil
	case runtime.NullValue:
		return nil, nil
	case runtime.BooleanValue:
		return bool(x), nil
	case runtime.NumberValue:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil, nil
		}
		return float64(x), nil
	case runtime.StringValue:
		return string(x), nil
	case *runtime.FunctionValue:
		return skipMarker, nil
	case *runtime.ObjectValue:
		if seen[x] {
			return nil, r.NewTypeError("Converting circular structure to JSON")
		}
		seen[x] = true
		defer delete(seen, x)
		if _, isArr := x.Slot("Array"); isArr {
			length := 0
			if d := x.GetOwnProperty(runtime.StringKey("length")); d != nil && d.IsData() {
				if n, ok := d.Value.(runtime.NumberValue); ok {
					length = int(n)
				}
			}
			out := make([]interface{}, length)
			for i := 0; i < length; i++ {
				el, err := x.Get(r, runtime.StringKey(runtime.NumberToString(float64(i))), v)
				if err != nil {
					return nil, err
				}
				lowered, err := valueToGo(r, el, seen)
				if err != nil {
					return nil, err
				}
				if lowered == skipMarker {
					lowered = nil
				}
				out[i] = lowered
			}
			return out, nil
		}
		out := map[string]interface{}{}
		for _, key := range x.OwnEnumerableStringKeys() {
			pv, err := x.Get(r, runtime.StringKey(key), v)
			if err != nil {
				return nil, err
			}
			lowered, err := valueToGo(r, pv, seen)
			if err != nil {
				return nil, err
			}
			if lowered == skipMarker {
				continue
			}
			out[key] = lowered
		}
		return out, nil
	default:
		return nil, r.NewTypeError("JSON.stringify over a value not known at build time")
	}
}

// goToValue lifts decoded JSON into the value model.
func goToValue(r *runtime.Realm, v interface{}) runtime.Value {
	switch x := v.(type) {
	case nil:
		return runtime.Null
	case bool:
		return runtime.NewBoolean(x)
	case float64:
		return runtime.NumberValue(x)
	case string:
		return runtime.StringValue(x)
	case []interface{}:
		elements := make([]runtime.Value, len(x))
		for i, el := range x {
			elements[i] = goToValue(r, el)
		}
		return r.NewArrayObject(elements)
	case map[string]interface{}:
		obj := r.NewPlainObject()
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			obj.DefineOwnProperty(runtime.StringKey(k), runtime.DefaultDataDescriptor(goToValue(r, x[k])))
		}
		return obj
	default:
		return runtime.Undefined
	}
}
