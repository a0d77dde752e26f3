package runtime

import (
	"math"
)

// Coercions over concrete values that may touch the object graph
// (ToPrimitive and everything built on it). Callers guarantee the input is
// concrete; abstract operands are residualized by the dispatcher before
// these run.

// ToPrimitive converts an object to a primitive with the given hint
// ("number", "string" or ""), via valueOf/toString in the Standard's order.
func ToPrimitive(r *Realm, v Value, hint string) (Value, error) {
	obj, ok := AsObject(v)
	if !ok {
		return v, nil
	}
	methods := []string{"valueOf", "toString"}
	if hint == "string" {
		methods = []string{"toString", "valueOf"}
	}
	for _, name := range methods {
		m, err := obj.Get(r, StringKey(name), v)
		if err != nil {
			return nil, err
		}
		if fn, ok := AsFunction(m); ok {
			res, err := r.CallFunction(fn, v, nil)
			if err != nil {
				return nil, err
			}
			if _, isObj := AsObject(res); !isObj {
				return res, nil
			}
		}
	}
	return nil, r.NewTypeError("Cannot convert object to primitive value")
}

// ToNumber implements the Standard's ToNumber on concrete values.
func ToNumber(r *Realm, v Value) (float64, error) {
	switch x := v.(type) {
	case UndefinedValue:
		return math.NaN(), nil
	case NullValue:
		return 0, nil
	case BooleanValue:
		if x {
			return 1, nil
		}
		return 0, nil
	case NumberValue:
		return float64(x), nil
	case StringValue:
		return StringToNumber(string(x)), nil
	case *SymbolValue:
		return 0, r.NewTypeError("Cannot convert a Symbol value to a number")
	default:
		prim, err := ToPrimitive(r, v, "number")
		if err != nil {
			return 0, err
		}
		return ToNumber(r, prim)
	}
}

// ToStringValue implements the Standard's ToString on concrete values.
func ToStringValue(r *Realm, v Value) (string, error) {
	switch x := v.(type) {
	case UndefinedValue:
		return "undefined", nil
	case NullValue:
		return "null", nil
	case BooleanValue:
		if x {
			return "true", nil
		}
		return "false", nil
	case NumberValue:
		return NumberToString(float64(x)), nil
	case StringValue:
		return string(x), nil
	case *SymbolValue:
		return "", r.NewTypeError("Cannot convert a Symbol value to a string")
	default:
		prim, err := ToPrimitive(r, v, "string")
		if err != nil {
			return "", err
		}
		return ToStringValue(r, prim)
	}
}

// ToPropertyKey converts a concrete value to a property key.
func ToPropertyKey(r *Realm, v Value) (PropertyKey, error) {
	if sym, ok := v.(*SymbolValue); ok {
		return SymbolKey(sym), nil
	}
	s, err := ToStringValue(r, v)
	if err != nil {
		return PropertyKey{}, err
	}
	return StringKey(s), nil
}

// ToInt32 implements the Standard's ToInt32.
func ToInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(uint32(int64(f)))
}

// ToUint32 implements the Standard's ToUint32.
func ToUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return uint32(int64(f))
}

// AbstractEquals implements == on concrete values.
func AbstractEquals(r *Realm, a, b Value) (bool, error) {
	if a.Types() == b.Types() ||
		(a.Types()&FlagNumber != 0 && b.Types()&FlagNumber != 0) {
		return StrictEquals(a, b), nil
	}
	switch {
	case isNullish(a) && isNullish(b):
		return true, nil
	case isNullish(a) || isNullish(b):
		return false, nil
	}
	an, aNum := a.(NumberValue)
	bs, bStr := b.(StringValue)
	if aNum && bStr {
		return float64(an) == StringToNumber(string(bs)), nil
	}
	as, aStr := a.(StringValue)
	bn, bNum := b.(NumberValue)
	if aStr && bNum {
		return StringToNumber(string(as)) == float64(bn), nil
	}
	if ab, ok := a.(BooleanValue); ok {
		n := 0.0
		if ab {
			n = 1.0
		}
		return AbstractEquals(r, NumberValue(n), b)
	}
	if bb, ok := b.(BooleanValue); ok {
		n := 0.0
		if bb {
			n = 1.0
		}
		return AbstractEquals(r, a, NumberValue(n))
	}
	if _, ok := AsObject(b); ok {
		prim, err := ToPrimitive(r, b, "")
		if err != nil {
			return false, err
		}
		return AbstractEquals(r, a, prim)
	}
	if _, ok := AsObject(a); ok {
		prim, err := ToPrimitive(r, a, "")
		if err != nil {
			return false, err
		}
		return AbstractEquals(r, prim, b)
	}
	return false, nil
}

func isNullish(v Value) bool {
	switch v.(type) {
	case UndefinedValue, NullValue:
		return true
	}
	return false
}
