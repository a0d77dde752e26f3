package intrinsics

import (
	"testing"

	"github.com/rs/zerolog"

	"prebake/pkg/runtime"
)

func initRealm(t *testing.T) *runtime.Realm {
	t.Helper()
	r := runtime.NewRealm(zerolog.Nop())
	if err := InitializeRealm(r); err != nil {
		t.Fatalf("InitializeRealm: %v", err)
	}
	return r
}

func globalFn(t *testing.T, r *runtime.Realm, name string) *runtime.FunctionValue {
	t.Helper()
	d := r.GlobalObject.GetOwnProperty(runtime.StringKey(name))
	if d == nil || !d.IsData() {
		t.Fatalf("global %q missing", name)
	}
	fn, ok := runtime.AsFunction(d.Value)
	if !ok {
		t.Fatalf("global %q is not a function", name)
	}
	return fn
}

func TestGlobalsInstalled(t *testing.T) {
	r := initRealm(t)
	for _, name := range []string{
		"Object", "Array", "Error", "TypeError", "ReferenceError", "RangeError",
		"SyntaxError", "RegExp", "Math", "JSON", "console",
		"parseInt", "parseFloat", "isNaN", "String", "Number", "Boolean",
		"__abstract", "__abstract_simple_partial", "__makeSimple", "__makePartial",
	} {
		if !r.GlobalObject.HasOwn(runtime.StringKey(name)) {
			t.Errorf("global %q not installed", name)
		}
	}
}

func TestErrorConstructorTagsInstances(t *testing.T) {
	r := initRealm(t)
	ctor := globalFn(t, r, "TypeError")
	v, err := r.CallFunction(ctor, runtime.Undefined, []runtime.Value{runtime.StringValue("bad")})
	if err != nil {
		t.Fatalf("TypeError ctor: %v", err)
	}
	obj, _ := runtime.AsObject(v)
	kind, _ := obj.Slot("ErrorData")
	if kind != runtime.Value(runtime.StringValue("TypeError")) {
		t.Errorf("ErrorData slot: %v", kind)
	}
	msg, gerr := obj.Get(r, runtime.StringKey("message"), v)
	if gerr != nil || msg != runtime.Value(runtime.StringValue("bad")) {
		t.Errorf("message: %v (%v)", msg, gerr)
	}
	name, _ := obj.Get(r, runtime.StringKey("name"), v)
	if name != runtime.Value(runtime.StringValue("TypeError")) {
		t.Errorf("name through prototype chain: %v", name)
	}
}

func TestConsoleRecordsGeneratorEntry(t *testing.T) {
	r := initRealm(t)
	consoleDesc := r.GlobalObject.GetOwnProperty(runtime.StringKey("console"))
	consoleObj, _ := runtime.AsObject(consoleDesc.Value)
	logDesc := consoleObj.GetOwnProperty(runtime.StringKey("log"))
	logFn, _ := runtime.AsFunction(logDesc.Value)

	before := len(r.RootGenerator.Entries)
	if _, err := r.CallFunction(logFn, consoleDesc.Value, []runtime.Value{runtime.StringValue("hi")}); err != nil {
		t.Fatalf("console.log: %v", err)
	}
	if got := len(r.RootGenerator.Entries); got != before+1 {
		t.Errorf("console.log must append exactly one generator entry, got %d new", got-before)
	}
}

func TestAbstractHelpers(t *testing.T) {
	r := initRealm(t)

	abs := globalFn(t, r, "__abstract")
	v, err := r.CallFunction(abs, runtime.Undefined, []runtime.Value{
		runtime.StringValue("number"), runtime.StringValue("n"),
	})
	if err != nil {
		t.Fatalf("__abstract: %v", err)
	}
	av, ok := v.(*runtime.AbstractValue)
	if !ok || av.Types() != runtime.FlagNumber {
		t.Fatalf("expected abstract number, got %v", v)
	}

	sp := globalFn(t, r, "__abstract_simple_partial")
	v, err = r.CallFunction(sp, runtime.Undefined, []runtime.Value{runtime.StringValue("src")})
	if err != nil {
		t.Fatalf("__abstract_simple_partial: %v", err)
	}
	ao, ok := v.(*runtime.AbstractObjectValue)
	if !ok || !ao.IsSimple() || !ao.IsPartial() {
		t.Fatalf("expected simple partial abstract object, got %v", v)
	}

	obj := r.NewPlainObject()
	mp := globalFn(t, r, "__makePartial")
	if _, err := r.CallFunction(mp, runtime.Undefined, []runtime.Value{obj}); err != nil {
		t.Fatalf("__makePartial: %v", err)
	}
	if !obj.Partial {
		t.Errorf("__makePartial must set the partial bit")
	}
}

func TestMathFoldsConcrete(t *testing.T) {
	r := initRealm(t)
	mathDesc := r.GlobalObject.GetOwnProperty(runtime.StringKey("Math"))
	mathObj, _ := runtime.AsObject(mathDesc.Value)
	absDesc := mathObj.GetOwnProperty(runtime.StringKey("abs"))
	absFn, _ := runtime.AsFunction(absDesc.Value)

	v, err := r.CallFunction(absFn, mathDesc.Value, []runtime.Value{runtime.NumberValue(-3)})
	if err != nil {
		t.Fatalf("Math.abs: %v", err)
	}
	if v != runtime.Value(runtime.NumberValue(3)) {
		t.Errorf("Math.abs(-3) = %v", v)
	}
	if len(r.RootGenerator.Entries) != 0 {
		t.Errorf("a folded pure call must not touch the generator")
	}
}
