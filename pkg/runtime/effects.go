package runtime

import (
	"prebake/pkg/ast"
)

// EffectItem is one replayable piece of captured state: applying it
// re-imposes the final state observed at capture time, routed through the
// modification log so an enclosing speculative frame can still roll back.
type EffectItem interface {
	Apply(r *Realm)
}

// BindingEffect re-imposes the final state of an updated binding.
type BindingEffect struct {
	Binding *Binding
	Final   Binding
}

func (e *BindingEffect) Apply(r *Realm) {
	r.RecordModifiedBinding(e.Binding)
	*e.Binding = e.Final
}

// BindingCreationEffect re-creates a binding in a declarative record.
type BindingCreationEffect struct {
	Record *DeclarativeRecord
	Name   string
	Final  Binding
}

func (e *BindingCreationEffect) Apply(r *Realm) {
	b := e.Final
	e.Record.restore(e.Name, &b)
	r.ModLog.recordBindingCreation(e.Record, e.Name)
}

// BindingDeletionEffect re-deletes a binding.
type BindingDeletionEffect struct {
	Record *DeclarativeRecord
	Name   string
}

func (e *BindingDeletionEffect) Apply(r *Realm) {
	if b, ok := e.Record.lookup(e.Name); ok {
		r.ModLog.recordBindingDeletion(e.Record, e.Name, b)
		e.Record.restore(e.Name, nil)
	}
}

// PropertyEffect re-imposes the final descriptor of a property; a nil
// Final deletes the property.
type PropertyEffect struct {
	Object *ObjectValue
	Key    PropertyKey
	Final  *Descriptor
}

func (e *PropertyEffect) Apply(r *Realm) {
	e.Object.restoreProperty(e.Key, e.Final)
}

// ObjectFlagsEffect re-imposes the object-mode bits and prototype.
type ObjectFlagsEffect struct {
	Object     *ObjectValue
	Simple     bool
	Partial    bool
	Extensible bool
	Prototype  Value
}

func (e *ObjectFlagsEffect) Apply(r *Realm) {
	r.ModLog.recordObjectFlags(e.Object)
	e.Object.simple = e.Simple
	e.Object.Partial = e.Partial
	e.Object.Extensible = e.Extensible
	e.Object.Prototype = e.Prototype
}

// CreationEffect revives a speculatively created object in its heap slot.
// Its property state is restored by the PropertyEffects that follow it.
type CreationEffect struct {
	Object *ObjectValue
}

func (e *CreationEffect) Apply(r *Realm) {
	r.Heap.revive(e.Object)
	r.ModLog.recordCreation(r.Heap, e.Object)
}

// Effects is the captured outcome of an isolated speculative evaluation:
// the completion, the generator fragment of would-be residual statements,
// and the would-be state changes. The caller either applies it (commit) or
// drops it (the heap was already rolled back).
type Effects struct {
	Completion *Completion
	Fragment   *Generator
	Items      []EffectItem

	createdSet map[*ObjectValue]bool
}

// CreatedObjects returns the objects minted during the speculation.
func (e *Effects) CreatedObjects() []*ObjectValue {
	var out []*ObjectValue
	for _, item := range e.Items {
		if c, ok := item.(*CreationEffect); ok {
			out = append(out, c.Object)
		}
	}
	return out
}

// Created reports whether obj was minted inside this speculation.
func (e *Effects) Created(obj *ObjectValue) bool {
	return e.createdSet[obj]
}

// Apply replays the captured final states onto the live heap and merges
// the generator fragment into the active generator.
func (e *Effects) Apply(r *Realm) {
	for _, item := range e.Items {
		item.Apply(r)
	}
	r.Generator.AppendFragment(e.Fragment)
}

// ApplyState replays only the state changes, leaving the fragment to the
// caller (used by joins, which nest fragments under a conditional entry).
func (e *Effects) ApplyState(r *Realm) {
	for _, item := range e.Items {
		item.Apply(r)
	}
}

// EvaluateNodeForEffects executes a subtree in a fresh, isolated
// effect-capture frame, returning what would have been done without
// committing it. The heap and environments are left exactly as before the
// call; the caller may Apply the result to commit.
func (r *Realm) EvaluateNodeForEffects(n ast.Node, strict bool, env *LexicalEnvironment) *Effects {
	parentGen := r.Generator
	frag := NewGenerator(r, "speculative")
	r.Generator = frag
	mark := r.ModLog.Mark()

	var completion *Completion
	func() {
		defer func() { r.Generator = parentGen }()
		completion = r.EvaluateNode(n, strict, env)
	}()

	effects := r.captureEffects(mark)
	effects.Completion = completion
	effects.Fragment = frag
	r.ModLog.RollbackTo(mark)
	return effects
}

// captureEffects reads the deltas recorded since mark and converts them to
// replayable items carrying the current (final) state. Must run before the
// rollback.
func (r *Realm) captureEffects(mark int) *Effects {
	e := &Effects{createdSet: make(map[*ObjectValue]bool)}
	for _, d := range r.ModLog.deltasSince(mark) {
		switch dd := d.(type) {
		case *bindingDelta:
			e.Items = append(e.Items, &BindingEffect{Binding: dd.binding, Final: *dd.binding})
		case *bindingCreationDelta:
			if b, ok := dd.record.lookup(dd.name); ok {
				e.Items = append(e.Items, &BindingCreationEffect{Record: dd.record, Name: dd.name, Final: *b})
			}
		case *bindingDeletionDelta:
			e.Items = append(e.Items, &BindingDeletionEffect{Record: dd.record, Name: dd.name})
		case *propertyDelta:
			e.Items = append(e.Items, &PropertyEffect{
				Object: dd.object,
				Key:    dd.key,
				Final:  dd.object.GetOwnProperty(dd.key),
			})
		case *objectFlagsDelta:
			o := dd.object
			e.Items = append(e.Items, &ObjectFlagsEffect{
				Object:     o,
				Simple:     o.simple,
				Partial:    o.Partial,
				Extensible: o.Extensible,
				Prototype:  o.Prototype,
			})
		case *creationDelta:
			e.Items = append(e.Items, &CreationEffect{Object: dd.object})
			e.createdSet[dd.object] = true
		}
	}
	return e
}
