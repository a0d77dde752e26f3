package intrinsics

import (
	"prebake/pkg/runtime"
)

// ErrorInitializer installs Error and its subtypes. The interpreter's model
// errors are instances of these prototypes, so this group runs early.
type ErrorInitializer struct{}

func (e *ErrorInitializer) Name() string  { return "Error" }
func (e *ErrorInitializer) Priority() int { return PriorityError }

func (e *ErrorInitializer) Init(r *runtime.Realm) error {
	base := e.installErrorKind(r, "Error", r.Intrinsics.ObjectPrototype)
	r.Intrinsics.ErrorPrototype = base
	r.Intrinsics.TypeErrorPrototype = e.installErrorKind(r, "TypeError", base)
	r.Intrinsics.ReferenceErrorPrototype = e.installErrorKind(r, "ReferenceError", base)
	r.Intrinsics.RangeErrorPrototype = e.installErrorKind(r, "RangeError", base)
	r.Intrinsics.SyntaxErrorPrototype = e.installErrorKind(r, "SyntaxError", base)

	defineMethod(r, base, "toString", 0, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		obj, ok := runtime.AsObject(this)
		if !ok {
			return nil, r.NewTypeError("Error.prototype.toString called on non-object")
		}
		name, err := obj.Get(r, runtime.StringKey("name"), this)
		if err != nil {
			return nil, err
		}
		msg, err := obj.Get(r, runtime.StringKey("message"), this)
		if err != nil {
			return nil, err
		}
		nameStr, _, err := concreteString(r, name)
		if err != nil {
			return nil, err
		}
		msgStr, _, err := concreteString(r, msg)
		if err != nil {
			return nil, err
		}
		if msgStr == "" {
			return runtime.StringValue(nameStr), nil
		}
		return runtime.StringValue(nameStr + ": " + msgStr), nil
	})
	return nil
}

// installErrorKind creates one error constructor/prototype pair.
func (e *ErrorInitializer) installErrorKind(r *runtime.Realm, kind string, parentProto *runtime.ObjectValue) *runtime.ObjectValue {
	proto := r.NewObject(parentProto)
	proto.OriginalName = kind + ".prototype"
	defineValue(r, proto, "name", runtime.StringValue(kind))
	defineValue(r, proto, "message", runtime.StringValue(""))

	ctor := r.NewNativeFunction(kind, 1, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
		obj := r.NewObject(proto)
		obj.SetSlot("ErrorData", runtime.StringValue(kind))
		if msg := arg(args, 0); !runtime.MightBeUndefinedOrNull(msg) || !runtime.IsConcrete(msg) {
			obj.DefineOwnProperty(runtime.StringKey("message"), runtime.NewDataDescriptor(msg, true, false, true))
		}
		return obj, nil
	})
	ctor.Ctor = true
	ctor.OriginalName = kind
	defineValue(r, &ctor.ObjectValue, "prototype", proto)
	defineValue(r, proto, "constructor", ctor)

	if r.Intrinsics.ErrorConstructors == nil {
		r.Intrinsics.ErrorConstructors = make(map[string]*runtime.FunctionValue)
	}
	r.Intrinsics.ErrorConstructors[kind] = ctor
	defineGlobal(r, kind, ctor)
	return proto
}
