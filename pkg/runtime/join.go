package runtime

import (
	"prebake/pkg/errors"
)

// JoinValues folds the outcomes of two branches under an abstract condition
// into one value: equal concrete values collapse, anything else becomes a
// conditional abstract value whose domains are the lattice join.
func (r *Realm) JoinValues(cond, a, b Value) Value {
	if a == nil {
		a = Undefined
	}
	if b == nil {
		b = Undefined
	}
	if IsConcrete(a) && IsConcrete(b) && StrictEquals(a, b) {
		return a
	}
	values := domainOf(a).Join(domainOf(b))
	return r.CreateAbstract(a.Types()|b.Types(), values, []Value{cond, a, b}, ConditionalTemplate(), KindConditional)
}

// domainOf returns the values domain of any value: a singleton for
// concrete values.
func domainOf(v Value) ValuesDomain {
	switch x := v.(type) {
	case *AbstractValue:
		return x.Values()
	case *AbstractObjectValue:
		return x.Values()
	default:
		return NewValuesDomain([]Value{v})
	}
}

// JoinEffects merges the captured effects of two speculatively evaluated
// branches under an abstract condition, building the joined object graph by
// per-property descriptor merging, and applies the result to the live heap.
// The generator fragments are NOT applied here; the caller nests them under
// a conditional generator entry. Returns a diagnostic when the join is not
// soundly expressible.
func (r *Realm) JoinEffects(cond Value, e1, e2 *Effects) *errors.CompilerDiagnostic {
	// Objects created inside a branch exist only on that branch's paths;
	// their state is applied verbatim. Effects against pre-existing state
	// are joined pairwise.
	type propTarget struct {
		obj *ObjectValue
		key PropertyKey
	}
	props1 := map[propTarget]*Descriptor{}
	props2 := map[propTarget]*Descriptor{}
	bind1 := map[*Binding]Binding{}
	bind2 := map[*Binding]Binding{}
	var order []propTarget
	var bindOrder []*Binding

	collect := func(e *Effects, props map[propTarget]*Descriptor, binds map[*Binding]Binding, recordOrder bool) *errors.CompilerDiagnostic {
		for _, item := range e.Items {
			switch it := item.(type) {
			case *CreationEffect:
				it.Apply(r)
			case *ObjectFlagsEffect:
				// Mode bits on created objects apply directly; on shared
				// objects join conservatively below via direct apply too:
				// simple only clears, partial only sets.
				it.Apply(r)
			case *PropertyEffect:
				if e.Created(it.Object) {
					it.Apply(r)
					continue
				}
				t := propTarget{it.Object, it.Key}
				_, seen := props[t]
				_, inFirst := props1[t]
				if !seen && (recordOrder || !inFirst) {
					order = append(order, t)
				}
				props[t] = it.Final
			case *BindingEffect:
				_, seen := binds[it.Binding]
				_, inFirst := bind1[it.Binding]
				if !seen && (recordOrder || !inFirst) {
					bindOrder = append(bindOrder, it.Binding)
				}
				binds[it.Binding] = it.Final
			case *BindingCreationEffect, *BindingDeletionEffect:
				// Scope-local lifetimes of branch bodies; the bindings are
				// unreachable after the join.
			}
		}
		return nil
	}
	if d := collect(e1, props1, bind1, true); d != nil {
		return d
	}
	if d := collect(e2, props2, bind2, false); d != nil {
		return d
	}

	// Join properties.
	for _, t := range order {
		d1, in1 := props1[t]
		d2, in2 := props2[t]
		current := t.obj.GetOwnProperty(t.key)
		if !in1 {
			d1 = current
		}
		if !in2 {
			d2 = current
		}
		joined, diag := r.joinDescriptors(cond, d1, d2)
		if diag != nil {
			return diag
		}
		t.obj.restoreProperty(t.key, joined)
	}

	// Join bindings.
	for _, b := range bindOrder {
		f1, in1 := bind1[b]
		f2, in2 := bind2[b]
		if !in1 {
			f1 = *b
		}
		if !in2 {
			f2 = *b
		}
		r.RecordModifiedBinding(b)
		b.Value = r.JoinValues(cond, f1.Value, f2.Value)
		b.Initialized = f1.Initialized || f2.Initialized
	}
	return nil
}

// joinDescriptors merges two property descriptors under a condition.
// data ⋈ data joins the values and ANDs the flags. Two accessors with the
// same getter and setter join to that accessor with ANDed flags; any other
// join involving an accessor yields an introspection error. A side that is
// absent contributes undefined.
func (r *Realm) joinDescriptors(cond Value, d1, d2 *Descriptor) (*Descriptor, *errors.CompilerDiagnostic) {
	if d1 == nil && d2 == nil {
		return nil, nil
	}
	if (d1 != nil && d1.IsAccessor()) || (d2 != nil && d2.IsAccessor()) {
		if d1 != nil && d2 != nil && d1.IsAccessor() && d2.IsAccessor() &&
			d1.Get == d2.Get && d1.Set == d2.Set {
			joined := d1.Clone()
			joined.Enumerable = d1.Enumerable && d2.Enumerable
			joined.Configurable = d1.Configurable && d2.Configurable
			return joined, nil
		}
		return nil, errors.NewDiagnostic(errors.CodeIncompatibleJoin, errors.FatalError, r.CurrentLocation,
			"cannot join accessor property descriptors under an abstract condition")
	}
	v1, v2 := Value(Undefined), Value(Undefined)
	w1, w2 := true, true
	en1, en2 := true, true
	c1, c2 := true, true
	if d1 != nil {
		v1, w1, en1, c1 = d1.Value, d1.Writable, d1.Enumerable, d1.Configurable
	}
	if d2 != nil {
		v2, w2, en2, c2 = d2.Value, d2.Writable, d2.Enumerable, d2.Configurable
	}
	return NewDataDescriptor(r.JoinValues(cond, v1, v2), w1 && w2, en1 && en2, c1 && c2), nil
}
