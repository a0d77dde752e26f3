package intrinsics

import (
	"strings"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"

	"prebake/pkg/runtime"
)

// StringInitializer installs String.prototype. Regex-coupled methods are
// backed by regexp2, which speaks the Standard's regex dialect;
// normalization uses x/text.
type StringInitializer struct{}

func (s *StringInitializer) Name() string  { return "String" }
func (s *StringInitializer) Priority() int { return PriorityString }

func (s *StringInitializer) Init(r *runtime.Realm) error {
	proto := r.NewObject(r.Intrinsics.ObjectPrototype)
	proto.OriginalName = "String.prototype"
	r.Intrinsics.StringPrototype = proto

	// thisString coerces the receiver, reporting abstract receivers.
	thisString := func(r *runtime.Realm, this runtime.Value) (string, bool, error) {
		return concreteString(r, this)
	}

	stringMethod := func(name string, length int, impl func(r *runtime.Realm, recv string, args []runtime.Value) (runtime.Value, error)) {
		fn := defineMethod(r, proto, name, length, func(r *runtime.Realm, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
			recv, ok, err := thisString(r, this)
			if err != nil {
				return nil, err
			}
			if !ok {
				return deriveMethodCall(r, this, name, runtime.FlagString|runtime.FlagNumber|runtime.FlagObject|runtime.FlagNull, args), nil
			}
			return impl(r, recv, args)
		})
		fn.Pure = true
	}

	stringMethod("charAt", 1, func(r *runtime.Realm, recv string, args []runtime.Value) (runtime.Value, error) {
		f, ok, err := concreteNumber(r, arg(args, 0))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, r.NewTypeError("charAt with abstract index")
		}
		i := int(f)
		if i < 0 || i >= len(recv) {
			return runtime.StringValue(""), nil
		}
		return runtime.StringValue(recv[i : i+1]), nil
	})

	stringMethod("indexOf", 1, func(r *runtime.Realm, recv string, args []runtime.Value) (runtime.Value, error) {
		needle, ok, err := concreteString(r, arg(args, 0))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, r.NewTypeError("indexOf with abstract needle")
		}
		return runtime.NumberValue(float64(strings.Index(recv, needle))), nil
	})

	stringMethod("slice", 2, func(r *runtime.Realm, recv string, args []runtime.Value) (runtime.Value, error) {
		start, end := sliceBounds(r, args, len(recv))
		return runtime.StringValue(recv[start:end]), nil
	})

	stringMethod("substring", 2, func(r *runtime.Realm, recv string, args []runtime.Value) (runtime.Value, error) {
		start, end := sliceBounds(r, args, len(recv))
		return runtime.StringValue(recv[start:end]), nil
	})

	stringMethod("toUpperCase", 0, func(r *runtime.Realm, recv string, args []runtime.Value) (runtime.Value, error) {
		return runtime.StringValue(strings.ToUpper(recv)), nil
	})

	stringMethod("toLowerCase", 0, func(r *runtime.Realm, recv string, args []runtime.Value) (runtime.Value, error) {
		return runtime.StringValue(strings.ToLower(recv)), nil
	})

	stringMethod("trim", 0, func(r *runtime.Realm, recv string, args []runtime.Value) (runtime.Value, error) {
		return runtime.StringValue(strings.TrimSpace(recv)), nil
	})

	stringMethod("split", 2, func(r *runtime.Realm, recv string, args []runtime.Value) (runtime.Value, error) {
		sep, ok, err := concreteString(r, arg(args, 0))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, r.NewTypeError("split with abstract separator")
		}
		parts := strings.Split(recv, sep)
		elements := make([]runtime.Value, len(parts))
		for i, p := range parts {
			elements[i] = runtime.StringValue(p)
		}
		return r.NewArrayObject(elements), nil
	})

	stringMethod("normalize", 1, func(r *runtime.Realm, recv string, args []runtime.Value) (runtime.Value, error) {
		form := "NFC"
		if len(args) > 0 {
			f, ok, err := concreteString(r, args[0])
			if err != nil {
				return nil, err
			}
			if ok {
				form = f
			}
		}
		var n norm.Form
		switch form {
		case "NFC":
			n = norm.NFC
		case "NFD":
			n = norm.NFD
		case "NFKC":
			n = norm.NFKC
		case "NFKD":
			n = norm.NFKD
		default:
			return nil, r.NewRangeError("The normalization form should be one of NFC, NFD, NFKC, NFKD.")
		}
		return runtime.StringValue(n.String(recv)), nil
	})

	stringMethod("match", 1, func(r *runtime.Realm, recv string, args []runtime.Value) (runtime.Value, error) {
		re, err := regexFromValue(r, arg(args, 0))
		if err != nil {
			return nil, err
		}
		m, matchErr := re.FindStringMatch(recv)
		if matchErr != nil || m == nil {
			return runtime.Null, nil
		}
		groups := m.Groups()
		elements := make([]runtime.Value, len(groups))
		for i, g := range groups {
			elements[i] = runtime.StringValue(g.String())
		}
		arr := r.NewArrayObject(elements)
		arr.DefineOwnProperty(runtime.StringKey("index"),
			runtime.DefaultDataDescriptor(runtime.NumberValue(float64(m.Index))))
		arr.DefineOwnProperty(runtime.StringKey("input"),
			runtime.DefaultDataDescriptor(runtime.StringValue(recv)))
		return arr, nil
	})

	stringMethod("replace", 2, func(r *runtime.Realm, recv string, args []runtime.Value) (runtime.Value, error) {
		repl, ok, err := concreteString(r, arg(args, 1))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, r.NewTypeError("replace with abstract replacement")
		}
		if pattern, isStr := arg(args, 0).(runtime.StringValue); isStr {
			return runtime.StringValue(strings.Replace(recv, string(pattern), repl, 1)), nil
		}
		re, err := regexFromValue(r, arg(args, 0))
		if err != nil {
			return nil, err
		}
		out, replErr := re.Replace(recv, repl, -1, 1)
		if replErr != nil {
			return nil, r.NewSyntaxError("Invalid regular expression replacement")
		}
		return runtime.StringValue(out), nil
	})

	// The String global function doubles as the constructor object.
	if ctor, ok := runtime.AsFunction(mustGlobalFunction(r, "String")); ok {
		defineValue(r, &ctor.ObjectValue, "prototype", proto)
		defineValue(r, proto, "constructor", ctor)
	}
	return nil
}

// regexFromValue compiles a regex object's source and flags with regexp2.
func regexFromValue(r *runtime.Realm, v runtime.Value) (*regexp2.Regexp, error) {
	obj, ok := runtime.AsObject(v)
	if !ok {
		return nil, r.NewTypeError("expected a RegExp")
	}
	src, hasSrc := obj.Slot("RegExpSource")
	if !hasSrc {
		return nil, r.NewTypeError("expected a RegExp")
	}
	pattern := string(src.(runtime.StringValue))
	flags := ""
	if f, ok := obj.Slot("RegExpFlags"); ok {
		flags = string(f.(runtime.StringValue))
	}
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	if strings.Contains(flags, "i") {
		opts |= regexp2.IgnoreCase
	}
	if strings.Contains(flags, "m") {
		opts |= regexp2.Multiline
	}
	if strings.Contains(flags, "s") {
		opts |= regexp2.Singleline
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, r.NewSyntaxError("Invalid regular expression: " + err.Error())
	}
	return re, nil
}

// deriveMethodCall mints the abstract result of a method call on an
// abstract receiver; the residual program re-dispatches the call.
func deriveMethodCall(r *runtime.Realm, this runtime.Value, method string, resultTypes runtime.TypeFlag, args []runtime.Value) runtime.Value {
	callee := r.CreateAbstract(runtime.FlagFunction, runtime.ValuesTop,
		[]runtime.Value{this}, runtime.MemberTemplate(method, false), runtime.KindNone)
	return r.Generator.Derive(resultTypes, runtime.ValuesTop,
		append([]runtime.Value{callee}, args...), runtime.CallTemplate(),
		runtime.DeriveOptions{IsPure: true})
}

// mustGlobalFunction reads back a previously installed global function, for
// groups that share a constructor with the global initializer.
func mustGlobalFunction(r *runtime.Realm, name string) runtime.Value {
	d := r.GlobalObject.GetOwnProperty(runtime.StringKey(name))
	if d != nil && d.IsData() {
		return d.Value
	}
	return runtime.Undefined
}
