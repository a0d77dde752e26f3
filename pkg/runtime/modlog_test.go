package runtime

import (
	"testing"

	"github.com/rs/zerolog"
)

func newTestRealm() *Realm {
	return NewRealm(zerolog.Nop())
}

func TestRollbackRestoresProperties(t *testing.T) {
	r := newTestRealm()
	obj := r.NewObject(Null)
	obj.DefineOwnProperty(StringKey("a"), DefaultDataDescriptor(NumberValue(1)))

	mark := r.ModLog.Mark()
	obj.DefineOwnProperty(StringKey("a"), DefaultDataDescriptor(NumberValue(2)))
	obj.DefineOwnProperty(StringKey("b"), DefaultDataDescriptor(NumberValue(3)))
	if v := obj.GetOwnProperty(StringKey("a")).Value; !SameValue(v, NumberValue(2)) {
		t.Fatalf("expected a=2 before rollback, got %v", v)
	}

	r.ModLog.RollbackTo(mark)

	if v := obj.GetOwnProperty(StringKey("a")).Value; !SameValue(v, NumberValue(1)) {
		t.Errorf("expected a=1 after rollback, got %v", v)
	}
	if obj.HasOwn(StringKey("b")) {
		t.Errorf("expected b to vanish on rollback")
	}
	if keys := obj.OwnEnumerableStringKeys(); len(keys) != 1 || keys[0] != "a" {
		t.Errorf("key order after rollback: %v", keys)
	}
}

func TestRollbackRestoresDeletedProperty(t *testing.T) {
	r := newTestRealm()
	obj := r.NewObject(Null)
	obj.DefineOwnProperty(StringKey("x"), DefaultDataDescriptor(StringValue("keep")))

	mark := r.ModLog.Mark()
	if !obj.DeleteOwnProperty(StringKey("x")) {
		t.Fatalf("delete failed")
	}
	r.ModLog.RollbackTo(mark)

	d := obj.GetOwnProperty(StringKey("x"))
	if d == nil || !SameValue(d.Value, StringValue("keep")) {
		t.Errorf("deleted property not restored: %v", d)
	}
}

func TestRollbackKillsCreatedObjects(t *testing.T) {
	r := newTestRealm()
	before := r.Heap.Size()

	mark := r.ModLog.Mark()
	obj := r.NewObject(Null)
	id := obj.ID()
	r.ModLog.RollbackTo(mark)

	if got := r.Heap.Get(id); got != nil {
		t.Errorf("expected heap slot %d dead after rollback", id)
	}
	if live := len(r.Heap.Live()); live != before {
		t.Errorf("expected %d live objects, got %d", before, live)
	}
}

func TestRollbackRestoresBindings(t *testing.T) {
	r := newTestRealm()
	rec := NewDeclarativeRecord()
	rec.CreateMutableBinding(r, "v", false)
	rec.InitializeBinding(r, "v", NumberValue(1))

	mark := r.ModLog.Mark()
	if err := rec.SetMutableBinding(r, "v", NumberValue(99), false); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	rec.CreateMutableBinding(r, "w", false)
	rec.InitializeBinding(r, "w", True)

	r.ModLog.RollbackTo(mark)

	v, err := rec.GetBindingValue(r, "v", false)
	if err != nil || !SameValue(v, NumberValue(1)) {
		t.Errorf("expected v=1 after rollback, got %v (%v)", v, err)
	}
	if rec.HasBinding("w") {
		t.Errorf("expected w to vanish on rollback")
	}
}

func TestEffectsApplyReimposesFinalState(t *testing.T) {
	r := newTestRealm()
	obj := r.NewObject(Null)
	obj.DefineOwnProperty(StringKey("n"), DefaultDataDescriptor(NumberValue(0)))

	mark := r.ModLog.Mark()
	obj.DefineOwnProperty(StringKey("n"), DefaultDataDescriptor(NumberValue(7)))
	created := r.NewObject(Null)
	created.DefineOwnProperty(StringKey("inner"), DefaultDataDescriptor(True))

	effects := r.captureEffectsForTest(mark)
	r.ModLog.RollbackTo(mark)

	if v := obj.GetOwnProperty(StringKey("n")).Value; !SameValue(v, NumberValue(0)) {
		t.Fatalf("rollback did not restore n, got %v", v)
	}
	if r.Heap.Get(created.ID()) != nil {
		t.Fatalf("rollback did not kill created object")
	}

	effects.ApplyState(r)

	if v := obj.GetOwnProperty(StringKey("n")).Value; !SameValue(v, NumberValue(7)) {
		t.Errorf("apply did not re-impose n=7, got %v", v)
	}
	if r.Heap.Get(created.ID()) != created {
		t.Errorf("apply did not revive created object")
	}
	if d := created.GetOwnProperty(StringKey("inner")); d == nil || !SameValue(d.Value, True) {
		t.Errorf("apply did not restore created object's property")
	}
}

// captureEffectsForTest exposes the capture half of EvaluateNodeForEffects
// without needing an evaluator.
func (r *Realm) captureEffectsForTest(mark int) *Effects {
	e := r.captureEffects(mark)
	e.Fragment = NewGenerator(r, "test")
	return e
}
