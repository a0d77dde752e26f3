package runtime

import (
	"strings"
	"testing"
)

func TestUninitializedBindingRead(t *testing.T) {
	r := newTestRealm()
	rec := NewDeclarativeRecord()
	rec.CreateMutableBinding(r, "x", false)

	_, err := rec.GetBindingValue(r, "x", false)
	if err == nil {
		t.Fatalf("reading an uninitialized binding must fail")
	}
	te, ok := err.(*ThrowError)
	if !ok {
		t.Fatalf("expected model error, got %T", err)
	}
	if kind := errorKind(te.Value); kind != "ReferenceError" {
		t.Errorf("expected ReferenceError, got %s", kind)
	}
}

func TestStrictAssignmentToMissingBindingFails(t *testing.T) {
	r := newTestRealm()
	rec := NewDeclarativeRecord()
	err := rec.SetMutableBinding(r, "nope", NumberValue(1), true)
	if err == nil {
		t.Fatalf("strict assignment to a missing binding must fail")
	}
	if rec.HasBinding("nope") {
		t.Errorf("failed strict assignment must not create the binding")
	}
}

func TestSloppyAssignmentCreatesBinding(t *testing.T) {
	r := newTestRealm()
	rec := NewDeclarativeRecord()
	if err := rec.SetMutableBinding(r, "lazy", NumberValue(2), false); err != nil {
		t.Fatalf("sloppy assignment should create and set: %v", err)
	}
	v, err := rec.GetBindingValue(r, "lazy", false)
	if err != nil || !SameValue(v, NumberValue(2)) {
		t.Errorf("expected lazy=2, got %v (%v)", v, err)
	}
}

func TestImmutableBindingAssignment(t *testing.T) {
	r := newTestRealm()
	rec := NewDeclarativeRecord()
	rec.CreateImmutableBinding(r, "k", true)
	rec.InitializeBinding(r, "k", StringValue("v"))

	err := rec.SetMutableBinding(r, "k", StringValue("w"), true)
	if err == nil {
		t.Fatalf("assignment to an immutable binding must fail in strict mode")
	}
	te := err.(*ThrowError)
	if kind := errorKind(te.Value); kind != "TypeError" {
		t.Errorf("expected TypeError, got %s", kind)
	}
}

func TestGlobalRecordComposition(t *testing.T) {
	r := newTestRealm()
	global := r.NewObject(Null)
	rec := NewGlobalRecord(global, global)

	rec.CreateGlobalVarBinding(r, "v")
	if !rec.HasVarDeclaration("v") {
		t.Errorf("var name list should record v")
	}
	if !global.HasOwn(StringKey("v")) {
		t.Errorf("var binding should live on the global object")
	}

	// Lexical declarations shadow object-backed ones.
	rec.CreateMutableBinding(r, "x", false)
	rec.InitializeBinding(r, "x", NumberValue(1))
	if err := rec.SetMutableBinding(r, "x", NumberValue(2), false); err != nil {
		t.Fatalf("set lexical global: %v", err)
	}
	if global.HasOwn(StringKey("x")) {
		t.Errorf("lexical global must not appear on the global object")
	}
	v, err := rec.GetBindingValue(r, "x", false)
	if err != nil || !SameValue(v, NumberValue(2)) {
		t.Errorf("expected x=2, got %v (%v)", v, err)
	}

	this, err := rec.GetThisBinding(r)
	if err != nil || this != Value(global) {
		t.Errorf("global this should be the global object")
	}
}

func TestResolveBindingWalksParents(t *testing.T) {
	r := newTestRealm()
	outer := NewDeclarativeEnvironment(nil)
	outer.Record.CreateMutableBinding(r, "a", false)
	outer.Record.InitializeBinding(r, "a", NumberValue(10))
	inner := NewDeclarativeEnvironment(outer)

	ref := inner.ResolveBinding("a", false)
	if ref.IsUnresolvable() {
		t.Fatalf("expected a to resolve through the parent link")
	}
	v, err := GetValue(r, ref)
	if err != nil || !SameValue(v, NumberValue(10)) {
		t.Errorf("expected 10, got %v (%v)", v, err)
	}

	missing := inner.ResolveBinding("zzz", false)
	if !missing.IsUnresolvable() {
		t.Errorf("unknown names must resolve to an unresolvable reference")
	}
}

// errorKind extracts the ErrorData slot of a thrown model error.
func errorKind(v Value) string {
	obj, ok := AsObject(v)
	if !ok {
		return ""
	}
	if kind, ok := obj.Slot("ErrorData"); ok {
		if s, isStr := kind.(StringValue); isStr {
			return string(s)
		}
	}
	return ""
}

func TestSimpleBitIsMonotone(t *testing.T) {
	r := newTestRealm()
	obj := r.NewObject(Null)
	if !obj.IsSimple() {
		t.Fatalf("fresh objects start simple")
	}
	obj.MakeNotSimple()
	if obj.IsSimple() {
		t.Fatalf("simple bit did not clear")
	}
	// Defining an accessor on a simple object clears the bit instead of
	// crashing.
	obj2 := r.NewObject(Null)
	getter := r.NewNativeFunction("get", 0, func(r *Realm, this Value, args []Value) (Value, error) {
		return Undefined, nil
	})
	obj2.DefineOwnProperty(StringKey("p"), NewAccessorDescriptor(getter, Undefined, true, true))
	if obj2.IsSimple() {
		t.Errorf("accessor definition must clear the simple bit")
	}
}

func TestPropertyKeyArrayIndex(t *testing.T) {
	cases := []struct {
		key  string
		idx  int
		isIx bool
	}{
		{"0", 0, true},
		{"42", 42, true},
		{"007", 0, false},
		{"-1", 0, false},
		{"length", 0, false},
	}
	for _, c := range cases {
		idx, ok := StringKey(c.key).ArrayIndex()
		if ok != c.isIx || (ok && idx != c.idx) {
			t.Errorf("ArrayIndex(%q) = (%d, %v), want (%d, %v)", c.key, idx, ok, c.idx, c.isIx)
		}
	}
}

func TestNumberToString(t *testing.T) {
	cases := map[float64]string{
		3:       "3",
		3.5:     "3.5",
		-0.5:    "-0.5",
		1e21:    "1e+21",
		1e-7:    "1e-7",
	}
	for in, want := range cases {
		if got := NumberToString(in); got != want {
			t.Errorf("NumberToString(%v) = %q, want %q", in, got, want)
		}
	}
	if !strings.Contains(NumberToString(0.1+0.2), "0.30000000000000004") {
		t.Errorf("float printing must match the Standard's shortest form")
	}
}
