package runtime

import (
	"prebake/pkg/errors"
)

// ThrowError carries a model error (a thrown language value) across Go
// return paths. The interpreter converts it into a throw completion at the
// nearest dispatch boundary.
type ThrowError struct {
	Value Value
	Loc   errors.Position
}

func (e *ThrowError) Error() string {
	if obj, ok := AsObject(e.Value); ok {
		name, _ := obj.Get(obj.realm, StringKey("name"), e.Value)
		msg, _ := obj.Get(obj.realm, StringKey("message"), e.Value)
		if name != nil && msg != nil {
			return "uncaught " + displayOrEmpty(name) + ": " + displayOrEmpty(msg)
		}
	}
	return "uncaught exception: " + e.Value.Display()
}

func displayOrEmpty(v Value) string {
	if s, ok := v.(StringValue); ok {
		return string(s)
	}
	return v.Display()
}

// Reference is the Standard's Reference specification type: a base, a
// referenced name, and a strict flag. The base is one of: nothing
// (unresolvable), an environment record, or a value (object, primitive
// wrapper candidate, or abstract).
type Reference struct {
	Base    Value
	BaseEnv EnvironmentRecord
	// Name is a string, symbol, or abstract string.
	Name   Value
	Strict bool
	// This is the this-value for super references.
	This Value
}

// IsUnresolvable reports whether the reference has no base.
func (ref Reference) IsUnresolvable() bool {
	return ref.Base == nil && ref.BaseEnv == nil
}

// IsPropertyReference reports whether the base is a value.
func (ref Reference) IsPropertyReference() bool { return ref.Base != nil }

// NameString returns the referenced name when concrete.
func (ref Reference) NameString() (string, bool) {
	switch n := ref.Name.(type) {
	case StringValue:
		return string(n), true
	default:
		return "", false
	}
}

// Key converts a concrete reference name to a property key.
func (ref Reference) Key() (PropertyKey, bool) {
	switch n := ref.Name.(type) {
	case StringValue:
		return StringKey(string(n)), true
	case *SymbolValue:
		return SymbolKey(n), true
	default:
		return PropertyKey{}, false
	}
}

// GetValue dereferences a reference per the Standard.
func GetValue(r *Realm, ref Reference) (Value, error) {
	if ref.IsUnresolvable() {
		name, _ := ref.NameString()
		return nil, r.NewReferenceError(name + " is not defined")
	}
	if ref.BaseEnv != nil {
		name, ok := ref.NameString()
		if !ok {
			errors.InvariantFailed("environment reference with non-string name")
		}
		return ref.BaseEnv.GetBindingValue(r, name, ref.Strict)
	}

	key, ok := ref.Key()
	if !ok {
		errors.InvariantFailed("GetValue on reference with abstract name; the dispatcher derives these")
	}

	switch base := ref.Base.(type) {
	case *ObjectValue:
		return base.Get(r, key, base.SelfValue())
	case *FunctionValue:
		return base.ObjectValue.Get(r, key, base)
	case StringValue:
		return stringPropertyGet(r, base, key)
	case NumberValue, BooleanValue, *SymbolValue:
		return wrapperPrototypeGet(r, base, key)
	case UndefinedValue, NullValue:
		return nil, r.NewTypeError("Cannot read properties of " + base.Display() + " (reading '" + key.String() + "')")
	default:
		errors.InvariantFailed("GetValue on reference with abstract base")
		return nil, nil
	}
}

// PutValue writes through a reference per the Standard, including the
// sloppy-mode creation of missing globals.
func PutValue(r *Realm, ref Reference, v Value) error {
	if ref.IsUnresolvable() {
		name, _ := ref.NameString()
		if ref.Strict {
			return r.NewReferenceError(name + " is not defined")
		}
		// Sloppy assignment to an undeclared name creates a global. The
		// write is folded into the heap; the residualizer re-materializes
		// the final state.
		_, err := r.GlobalObject.Set(r, StringKey(name), v, r.GlobalObject.SelfValue())
		return err
	}
	if ref.BaseEnv != nil {
		name, ok := ref.NameString()
		if !ok {
			errors.InvariantFailed("environment reference with non-string name")
		}
		return ref.BaseEnv.SetMutableBinding(r, name, v, ref.Strict)
	}

	key, ok := ref.Key()
	if !ok {
		errors.InvariantFailed("PutValue on reference with abstract name; the dispatcher residualizes these")
	}

	switch base := ref.Base.(type) {
	case *ObjectValue:
		okSet, err := base.Set(r, key, v, base.SelfValue())
		if err != nil {
			return err
		}
		if !okSet && ref.Strict {
			return r.NewTypeError("Cannot assign to read only property '" + key.String() + "'")
		}
		return nil
	case *FunctionValue:
		okSet, err := base.ObjectValue.Set(r, key, v, base)
		if err != nil {
			return err
		}
		if !okSet && ref.Strict {
			return r.NewTypeError("Cannot assign to read only property '" + key.String() + "'")
		}
		return nil
	case UndefinedValue, NullValue:
		return r.NewTypeError("Cannot set properties of " + base.Display())
	default:
		// Writes to primitive wrappers are no-ops in sloppy mode.
		if ref.Strict {
			return r.NewTypeError("Cannot create property '" + key.String() + "' on " + TypeOfString(ref.Base))
		}
		return nil
	}
}

// stringPropertyGet models property reads on string primitives: length,
// index access, and String.prototype methods.
func stringPropertyGet(r *Realm, s StringValue, key PropertyKey) (Value, error) {
	if !key.IsSymbol() {
		if key.Str == "length" {
			return NumberValue(len(s)), nil
		}
		if idx, ok := key.ArrayIndex(); ok {
			if idx < len(s) {
				return StringValue(s[idx : idx+1]), nil
			}
			return Undefined, nil
		}
	}
	return wrapperPrototypeGet(r, s, key)
}

// wrapperPrototypeGet reads a property from the wrapper prototype that
// corresponds to the primitive's type.
func wrapperPrototypeGet(r *Realm, base Value, key PropertyKey) (Value, error) {
	var proto *ObjectValue
	switch base.(type) {
	case StringValue:
		proto = r.Intrinsics.StringPrototype
	case NumberValue:
		proto = r.Intrinsics.NumberPrototype
	case BooleanValue:
		proto = r.Intrinsics.BooleanPrototype
	case *SymbolValue:
		proto = r.Intrinsics.SymbolPrototype
	}
	if proto == nil {
		return Undefined, nil
	}
	return proto.Get(r, key, base)
}
