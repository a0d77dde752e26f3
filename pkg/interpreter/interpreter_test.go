package interpreter

import (
	"testing"

	"github.com/rs/zerolog"

	"prebake/pkg/intrinsics"
	"prebake/pkg/parser"
	"prebake/pkg/runtime"
	"prebake/pkg/source"
)

// evalSource builds a fresh realm, interprets src, and returns the realm
// and final completion.
func evalSource(t *testing.T, src string) (*runtime.Realm, *runtime.Completion) {
	t.Helper()
	realm := runtime.NewRealm(zerolog.Nop())
	if err := intrinsics.InitializeRealm(realm); err != nil {
		t.Fatalf("intrinsics: %v", err)
	}
	Register(realm)

	prog, errs := parser.Parse(source.NewEvalSource(src))
	if len(errs) > 0 {
		t.Fatalf("parse: %v", errs[0])
	}

	realm.EnterContext(&runtime.ExecutionContext{
		LexicalEnv:  realm.GlobalEnv,
		VariableEnv: realm.GlobalEnv,
		ThisValue:   realm.GlobalObject.SelfValue(),
	})
	defer realm.LeaveContext()

	return realm, realm.EvaluateNode(prog, prog.Strict, realm.GlobalEnv)
}

// expectNumber asserts the completion is a normal number.
func expectNumber(t *testing.T, src string, want float64) {
	t.Helper()
	_, c := evalSource(t, src)
	if c.Type != runtime.NormalCompletion {
		t.Fatalf("%q: expected normal completion, got %s (%v)", src, c.Type, c.Value)
	}
	n, ok := c.Value.(runtime.NumberValue)
	if !ok || float64(n) != want {
		t.Errorf("%q = %v, want %v", src, c.Value, want)
	}
}

func expectString(t *testing.T, src string, want string) {
	t.Helper()
	_, c := evalSource(t, src)
	s, ok := c.Value.(runtime.StringValue)
	if c.Type != runtime.NormalCompletion || !ok || string(s) != want {
		t.Errorf("%q = %v (%s), want %q", src, c.Value, c.Type, want)
	}
}

func TestArithmetic(t *testing.T) {
	expectNumber(t, "1 + 2 * 3;", 7)
	expectNumber(t, "(1 + 2) * 3;", 9)
	expectNumber(t, "10 % 4;", 2)
	expectNumber(t, "7 >> 1;", 3)
	expectNumber(t, "-5 >>> 28;", 15)
	expectNumber(t, "~0;", -1)
	expectString(t, `"a" + 1;`, "a1")
	expectNumber(t, `"3" * "4";`, 12)
}

func TestVariablesAndScope(t *testing.T) {
	expectNumber(t, "var x = 1; x = x + 2; x;", 3)
	expectNumber(t, "let a = 1; { let a = 2; } a;", 1)
	expectNumber(t, "var s = 0; for (var i = 0; i < 5; i++) { s += i; } s;", 10)
}

func TestFunctionsAndClosures(t *testing.T) {
	expectNumber(t, "function add(a, b) { return a + b; } add(2, 3);", 5)
	expectNumber(t, `
var counter = (function () {
  var n = 0;
  return function () { n = n + 1; return n; };
})();
counter(); counter();`, 2)
	expectNumber(t, "function f() { return; } f() === undefined ? 1 : 0;", 1)
}

func TestThisAndNew(t *testing.T) {
	expectNumber(t, `
function Point(x) { this.x = x; }
var p = new Point(4);
p.x;`, 4)
	expectNumber(t, `
var o = { n: 7, get2: function () { return this.n; } };
o.get2();`, 7)
}

func TestObjectsAndPrototypes(t *testing.T) {
	expectNumber(t, `
function A() {}
A.prototype.v = 41;
var a = new A();
a.v + 1;`, 42)
	expectNumber(t, "var o = { a: 1 }; o.hasOwnProperty('a') ? 1 : 0;", 1)
	expectNumber(t, "var o = {}; o.x = 1; delete o.x; o.x === undefined ? 1 : 0;", 1)
}

func TestAccessors(t *testing.T) {
	expectNumber(t, `
var o = { _v: 1, get v() { return this._v + 1; }, set v(x) { this._v = x; } };
o.v = 10;
o.v;`, 11)
}

func TestControlFlow(t *testing.T) {
	expectNumber(t, "var x = 0; if (true) { x = 1; } else { x = 2; } x;", 1)
	expectNumber(t, "var x = 0; do { x++; } while (x < 3); x;", 3)
	expectNumber(t, `
var s = 0;
outer: for (var i = 0; i < 3; i++) {
  for (var j = 0; j < 3; j++) {
    if (j === 1) { continue outer; }
    s += 1;
  }
}
s;`, 3)
	expectNumber(t, `
switch (2) {
  case 1: 10;
  case 2: 20;
  case 3: 30; break;
  default: 40;
}`, 30)
}

func TestExceptions(t *testing.T) {
	expectString(t, `
var m;
try { throw new Error("boom"); } catch (e) { m = e.message; }
m;`, "boom")

	expectNumber(t, `
var x = 0;
try { x = 1; } finally { x = x + 10; }
x;`, 11)

	// A normal finalizer re-raises the incoming throw.
	_, c := evalSource(t, `try { throw new Error("inner"); } finally { 1; }`)
	if c.Type != runtime.ThrowCompletion {
		t.Errorf("finally must re-raise, got %s", c.Type)
	}

	// An abrupt finalizer wins.
	expectNumber(t, `
function f() {
  try { throw new Error("x"); } finally { return 5; }
}
f();`, 5)
}

func TestTypeofAndEquality(t *testing.T) {
	expectString(t, "typeof 1;", "number")
	expectString(t, "typeof undefinedName;", "undefined")
	expectString(t, "typeof null;", "object")
	expectString(t, "typeof function () {};", "function")
	expectNumber(t, "1 == '1' ? 1 : 0;", 1)
	expectNumber(t, "1 === '1' ? 1 : 0;", 0)
	expectNumber(t, "null == undefined ? 1 : 0;", 1)
	expectNumber(t, "NaN === NaN ? 1 : 0;", 0)
}

func TestStrictModeAssignment(t *testing.T) {
	_, c := evalSource(t, `"use strict"; undeclared = 1;`)
	if c.Type != runtime.ThrowCompletion {
		t.Fatalf("strict assignment to an undeclared name must throw, got %s", c.Type)
	}
	obj, _ := runtime.AsObject(c.Value)
	if kind, _ := obj.Slot("ErrorData"); kind != runtime.Value(runtime.StringValue("ReferenceError")) {
		t.Errorf("expected ReferenceError, got %v", kind)
	}

	realm, c := evalSource(t, `undeclared = 1;`)
	if c.Type != runtime.NormalCompletion {
		t.Fatalf("sloppy assignment should create a global, got %s", c.Type)
	}
	if !realm.GlobalObject.HasOwn(runtime.StringKey("undeclared")) {
		t.Errorf("sloppy assignment must create the global binding")
	}
}

func TestConstReassignmentThrows(t *testing.T) {
	_, c := evalSource(t, "const k = 1; k = 2;")
	if c.Type != runtime.ThrowCompletion {
		t.Errorf("const reassignment must throw, got %s", c.Type)
	}
}

func TestIntrinsicFolding(t *testing.T) {
	expectNumber(t, "Math.max(1, 9, 4);", 9)
	expectNumber(t, "Math.floor(3.7);", 3)
	expectString(t, `"aBc".toUpperCase();`, "ABC")
	expectString(t, `JSON.stringify({ a: [1, 2] });`, `{"a":[1,2]}`)
	expectNumber(t, `JSON.parse("[1,2,3]")[2];`, 3)
	expectNumber(t, `parseInt("ff", 16);`, 255)
	expectNumber(t, `"a,b,c".split(",").length;`, 3)
	expectNumber(t, "/a+b/.test('caab') ? 1 : 0;", 1)
	expectNumber(t, "[1, 2, 3].indexOf(3);", 2)
}

func TestForOfOverArray(t *testing.T) {
	expectNumber(t, "var s = 0; for (var v of [1, 2, 3]) { s += v; } s;", 6)
}

func TestAbstractBranchJoin(t *testing.T) {
	realm, c := evalSource(t, `
var cond = __abstract("boolean", "c");
var x = cond ? 1 : 2;
x;`)
	if c.Type != runtime.NormalCompletion {
		t.Fatalf("expected normal completion, got %s", c.Type)
	}
	av, ok := c.Value.(*runtime.AbstractValue)
	if !ok {
		t.Fatalf("branch join over an abstract guard must produce an abstract value, got %v", c.Value)
	}
	if av.Types() != runtime.FlagNumber {
		t.Errorf("joined types domain should be number, got %s", av.Types())
	}
	_ = realm
}

func TestAbstractIfStatementJoinsHeap(t *testing.T) {
	realm, c := evalSource(t, `
var cond = __abstract("boolean", "c");
var o = { p: 0 };
if (cond) { o.p = 1; } else { o.p = 2; }
o.p;`)
	if c.Type != runtime.NormalCompletion {
		t.Fatalf("expected normal completion, got %s", c.Type)
	}
	if _, ok := c.Value.(*runtime.AbstractValue); !ok {
		t.Fatalf("joined property read should be abstract, got %v", c.Value)
	}
	if realm.RootGenerator.Empty() {
		t.Errorf("the join must record a conditional generator entry")
	}
}

func TestAbstractArithmeticDerives(t *testing.T) {
	_, c := evalSource(t, `__abstract("number", "n") + 1;`)
	av, ok := c.Value.(*runtime.AbstractValue)
	if !ok {
		t.Fatalf("expected derived abstract value, got %v", c.Value)
	}
	if av.Types() != runtime.FlagNumber {
		t.Errorf("number + 1 should stay number, got %s", av.Types())
	}
}

func TestResidualCallThroughAbstractCallee(t *testing.T) {
	realm, c := evalSource(t, `
var f = __abstract("function", "extern");
var r = f(1, 2);
r;`)
	if c.Type != runtime.NormalCompletion {
		t.Fatalf("expected normal completion, got %s", c.Type)
	}
	if _, ok := c.Value.(*runtime.AbstractValue); !ok {
		t.Fatalf("call through an abstract callee must derive, got %v", c.Value)
	}
	if realm.RootGenerator.Empty() {
		t.Errorf("the residual call must be recorded on the generator")
	}
}

func TestConcreteForInOrder(t *testing.T) {
	expectString(t, `
var o = { b: 1, a: 2, c: 3 };
var ks = "";
for (var k in o) { ks += k; }
ks;`, "bac")
}
