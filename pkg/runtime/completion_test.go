package runtime

import (
	"testing"
)

func TestUpdateEmpty(t *testing.T) {
	c := Empty()
	c = c.UpdateEmpty(NumberValue(5))
	if !SameValue(c.Value, NumberValue(5)) {
		t.Errorf("expected empty completion filled with 5, got %v", c.Value)
	}

	c = Normal(NumberValue(1)).UpdateEmpty(NumberValue(9))
	if !SameValue(c.Value, NumberValue(1)) {
		t.Errorf("UpdateEmpty must not overwrite an existing value")
	}

	ret := &Completion{Type: ReturnCompletion, Value: nil}
	ret = ret.UpdateEmpty(NumberValue(3))
	if ret.Value != nil {
		t.Errorf("return completions keep their value through UpdateEmpty")
	}
}

func abstractBool(r *Realm) *AbstractValue {
	return r.CreateAbstract(FlagBoolean, ValuesTop, nil, IdentTemplate("c"), KindNone)
}

func TestJoinNormalNormal(t *testing.T) {
	r := newTestRealm()
	cond := abstractBool(r)
	joined, diag := JoinCompletions(cond, Normal(NumberValue(1)), Normal(NumberValue(2)), func(a, b Value) Value {
		return r.JoinValues(cond, a, b)
	})
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}
	if joined.Type != NormalCompletion {
		t.Fatalf("expected normal completion, got %s", joined.Type)
	}
	av, ok := joined.Value.(*AbstractValue)
	if !ok {
		t.Fatalf("expected abstract joined value, got %v", joined.Value)
	}
	if av.Types() != FlagNumber {
		t.Errorf("joined types domain should be number, got %s", av.Types())
	}
}

func TestJoinNormalAbrupt(t *testing.T) {
	r := newTestRealm()
	cond := abstractBool(r)
	thrown := Throw(StringValue("boom"), r.CurrentLocation)
	joined, diag := JoinCompletions(cond, thrown, Normal(NumberValue(1)), func(a, b Value) Value { return a })
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}
	if joined.Type != PossiblyNormalCompletion {
		t.Fatalf("expected possibly-normal, got %s", joined.Type)
	}
	if joined.NormalIsConsequent {
		t.Errorf("normal branch is the alternate here")
	}
}

func TestJoinIncompatibleAbrupt(t *testing.T) {
	r := newTestRealm()
	cond := abstractBool(r)
	brk := &Completion{Type: BreakCompletion}
	thrown := Throw(StringValue("boom"), r.CurrentLocation)
	_, diag := JoinCompletions(cond, brk, thrown, func(a, b Value) Value { return a })
	if diag == nil {
		t.Fatalf("expected introspection diagnostic for break vs throw")
	}
}

func TestJoinThrowsSameKind(t *testing.T) {
	r := newTestRealm()
	cond := abstractBool(r)
	t1 := Throw(r.NewErrorObject("TypeError", "a"), r.CurrentLocation)
	t2 := Throw(r.NewErrorObject("TypeError", "b"), r.CurrentLocation)
	joined, diag := JoinCompletions(cond, t1, t2, func(a, b Value) Value { return a })
	if diag != nil {
		t.Fatalf("same-kind throws must join: %v", diag)
	}
	if joined.Type != JoinedAbruptCompletions {
		t.Errorf("expected joined abrupt completion, got %s", joined.Type)
	}
}

func TestJoinThrowsDifferentKind(t *testing.T) {
	r := newTestRealm()
	cond := abstractBool(r)
	t1 := Throw(r.NewErrorObject("TypeError", "a"), r.CurrentLocation)
	t2 := Throw(r.NewErrorObject("RangeError", "b"), r.CurrentLocation)
	if _, diag := JoinCompletions(cond, t1, t2, func(a, b Value) Value { return a }); diag == nil {
		t.Fatalf("throws of different error kinds must not join")
	}
}

func TestJoinBreakSameLabel(t *testing.T) {
	r := newTestRealm()
	cond := abstractBool(r)
	b1 := &Completion{Type: BreakCompletion, Target: "outer"}
	b2 := &Completion{Type: BreakCompletion, Target: "outer"}
	joined, diag := JoinCompletions(cond, b1, b2, func(a, b Value) Value { return a })
	if diag != nil {
		t.Fatalf("same-label breaks must join: %v", diag)
	}
	if joined.Type != JoinedAbruptCompletions {
		t.Errorf("expected joined abrupt completion, got %s", joined.Type)
	}
}

func TestJoinValuesCollapsesEqualConcretes(t *testing.T) {
	r := newTestRealm()
	cond := abstractBool(r)
	v := r.JoinValues(cond, NumberValue(4), NumberValue(4))
	if !SameValue(v, NumberValue(4)) {
		t.Errorf("equal concrete branch values must collapse, got %v", v)
	}
}
