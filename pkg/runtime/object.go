package runtime

import (
	"prebake/pkg/errors"
)

// ObjectValue is a mutable record with identity, held in the realm's heap
// arena and referenced by stable index. Properties keep insertion order.
type ObjectValue struct {
	id    int
	realm *Realm
	// self holds the Value identity of this record; for the object embedded
	// in a FunctionValue it points at the function.
	self Value

	properties map[PropertyKey]*Descriptor
	order      []PropertyKey

	Prototype  Value // *ObjectValue or Null
	Extensible bool

	// Partial means reads of keys not known present may yield abstract
	// values rather than undefined.
	Partial bool
	// simple means reads, writes and enumeration have no observable side
	// effects: no getters, setters or proxies anywhere relevant. The bit is
	// monotone; once cleared it never returns.
	simple bool

	// InternalSlots are keyed by the Standard's symbolic slot names, e.g.
	// "ErrorData", "RegExpMatcher".
	InternalSlots map[string]Value

	// OriginalName records the intrinsic path for prelude memoization
	// ("Object.prototype") when this object is an intrinsic singleton.
	OriginalName string
}

func (o *ObjectValue) valueNode()      {}
func (o *ObjectValue) Types() TypeFlag { return FlagObject }
func (o *ObjectValue) Display() string {
	if o.OriginalName != "" {
		return o.OriginalName
	}
	return "[object]"
}

// ID returns the object's stable heap index.
func (o *ObjectValue) ID() int { return o.id }

// Realm returns the owning realm.
func (o *ObjectValue) Realm() *Realm { return o.realm }

// IsSimple reports the simple bit.
func (o *ObjectValue) IsSimple() bool { return o.simple }

// MakeSimple sets the simple bit on a fresh object. It crashes if the
// object already has accessor properties.
func (o *ObjectValue) MakeSimple() {
	for _, k := range o.order {
		if o.properties[k].IsAccessor() {
			errors.InvariantFailed("object with accessor property %s marked simple", k)
		}
	}
	o.simple = true
}

// MakeNotSimple clears the simple bit. Monotone: there is no way back.
func (o *ObjectValue) MakeNotSimple() {
	if o.simple {
		o.realm.ModLog.recordObjectFlags(o)
		o.simple = false
	}
}

// MakePartial marks the object partial.
func (o *ObjectValue) MakePartial() {
	if !o.Partial {
		o.realm.ModLog.recordObjectFlags(o)
		o.Partial = true
	}
}

// --- Own property operations ---

// GetOwnProperty returns the own descriptor for key, or nil.
func (o *ObjectValue) GetOwnProperty(key PropertyKey) *Descriptor {
	return o.properties[key]
}

// HasOwn reports whether the object has an own property key.
func (o *ObjectValue) HasOwn(key PropertyKey) bool {
	_, ok := o.properties[key]
	return ok
}

// OwnKeys returns the own property keys in insertion order.
func (o *ObjectValue) OwnKeys() []PropertyKey {
	keys := make([]PropertyKey, len(o.order))
	copy(keys, o.order)
	return keys
}

// OwnEnumerableStringKeys returns the own enumerable string keys in
// insertion order, as used by for-in and Object.keys.
func (o *ObjectValue) OwnEnumerableStringKeys() []string {
	var keys []string
	for _, k := range o.order {
		if k.IsSymbol() {
			continue
		}
		if d := o.properties[k]; d != nil && d.Enumerable {
			keys = append(keys, k.Str)
		}
	}
	return keys
}

// DefineOwnProperty installs or replaces an own property, recording the
// prior state in the modification log. It does not run setters.
func (o *ObjectValue) DefineOwnProperty(key PropertyKey, desc *Descriptor) {
	desc.Check()
	if desc.IsAccessor() && o.simple {
		// Accessors break the no-side-effect guarantee; the bit is monotone.
		o.MakeNotSimple()
	}
	prior, existed := o.properties[key]
	o.realm.ModLog.recordProperty(o, key, prior, existed)
	if o.properties == nil {
		o.properties = make(map[PropertyKey]*Descriptor)
	}
	o.properties[key] = desc
	if !existed {
		o.order = append(o.order, key)
	}
}

// DeleteOwnProperty removes an own property, recording the prior state.
// Returns false when the property exists and is non-configurable.
func (o *ObjectValue) DeleteOwnProperty(key PropertyKey) bool {
	prior, existed := o.properties[key]
	if !existed {
		return true
	}
	if !prior.Configurable {
		return false
	}
	o.realm.ModLog.recordProperty(o, key, prior, true)
	delete(o.properties, key)
	for i, k := range o.order {
		if k == key {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return true
}

// restoreProperty forces a property slot to a captured state, bypassing
// configurability checks. Used by the effects machinery only.
func (o *ObjectValue) restoreProperty(key PropertyKey, desc *Descriptor) {
	prior, existed := o.properties[key]
	o.realm.ModLog.recordProperty(o, key, prior, existed)
	if desc == nil {
		delete(o.properties, key)
		for i, k := range o.order {
			if k == key {
				o.order = append(o.order[:i], o.order[i+1:]...)
				break
			}
		}
		return
	}
	if o.properties == nil {
		o.properties = make(map[PropertyKey]*Descriptor)
	}
	o.properties[key] = desc
	if !existed {
		o.order = append(o.order, key)
	}
}

// SetSlot installs an internal slot value. Slots are not logged; they are
// only written during object construction.
func (o *ObjectValue) SetSlot(name string, v Value) {
	if o.InternalSlots == nil {
		o.InternalSlots = make(map[string]Value)
	}
	o.InternalSlots[name] = v
}

// Slot reads an internal slot.
func (o *ObjectValue) Slot(name string) (Value, bool) {
	v, ok := o.InternalSlots[name]
	return v, ok
}

// --- Prototype-chain operations ---

// GetProperty walks the prototype chain and returns the first descriptor
// for key, together with the object that owns it.
func (o *ObjectValue) GetProperty(key PropertyKey) (*Descriptor, *ObjectValue) {
	cur := o
	for {
		if d := cur.GetOwnProperty(key); d != nil {
			return d, cur
		}
		proto, ok := cur.Prototype.(*ObjectValue)
		if !ok {
			if fn, ok := cur.Prototype.(*FunctionValue); ok {
				cur = &fn.ObjectValue
				continue
			}
			return nil, nil
		}
		cur = proto
	}
}

// Get reads a property value along the prototype chain. Getters run through
// the realm so call effects are tracked; reading through a getter on a
// simple object is an invariant violation.
func (o *ObjectValue) Get(r *Realm, key PropertyKey, receiver Value) (Value, error) {
	desc, _ := o.GetProperty(key)
	if desc == nil {
		if o.Partial {
			// Unknown key on a partial object: the read is abstract.
			return r.deriveUnknownPropertyRead(receiver, key), nil
		}
		return Undefined, nil
	}
	if desc.IsData() {
		return desc.Value, nil
	}
	if o.simple {
		errors.InvariantFailed("getter found on simple object for key %s", key)
	}
	getter, ok := AsFunction(desc.Get)
	if !ok {
		return Undefined, nil
	}
	return r.CallFunction(getter, receiver, nil)
}

// Set writes a property value, honoring setters and writability along the
// prototype chain. Returns a boolean success per the Standard; strict-mode
// callers convert failure into a TypeError.
func (o *ObjectValue) Set(r *Realm, key PropertyKey, value Value, receiver Value) (bool, error) {
	desc, owner := o.GetProperty(key)
	if desc != nil && desc.IsAccessor() {
		setter, ok := AsFunction(desc.Set)
		if !ok {
			return false, nil
		}
		if _, err := r.CallFunction(setter, receiver, []Value{value}); err != nil {
			return false, err
		}
		return true, nil
	}
	if desc != nil && owner == o {
		if !desc.Writable {
			return false, nil
		}
		next := desc.Clone()
		next.Value = value
		o.DefineOwnProperty(key, next)
		return true, nil
	}
	if desc != nil && !desc.Writable {
		return false, nil
	}
	if !o.Extensible {
		return false, nil
	}
	o.DefineOwnProperty(key, DefaultDataDescriptor(value))
	return true, nil
}

// HasProperty reports whether key is present along the prototype chain.
func (o *ObjectValue) HasProperty(key PropertyKey) bool {
	d, _ := o.GetProperty(key)
	return d != nil
}
