package runtime

import "prebake/pkg/errors"

// Descriptor is the attribute record of a single property. Exactly one of
// the data and accessor forms is populated; the two sets of attributes are
// mutually exclusive per the Standard.
type Descriptor struct {
	// Data form
	Value    Value // may be abstract
	Writable bool

	// Accessor form
	Get Value // function or undefined
	Set Value

	Enumerable   bool
	Configurable bool

	accessor bool
}

// NewDataDescriptor returns a data descriptor with the given attributes.
func NewDataDescriptor(value Value, writable, enumerable, configurable bool) *Descriptor {
	return &Descriptor{
		Value:        value,
		Writable:     writable,
		Enumerable:   enumerable,
		Configurable: configurable,
	}
}

// DefaultDataDescriptor returns the descriptor of an ordinary assignment:
// writable, enumerable, configurable.
func DefaultDataDescriptor(value Value) *Descriptor {
	return NewDataDescriptor(value, true, true, true)
}

// NewAccessorDescriptor returns an accessor descriptor. get and set may be
// Undefined but not nil.
func NewAccessorDescriptor(get, set Value, enumerable, configurable bool) *Descriptor {
	return &Descriptor{
		Get:          get,
		Set:          set,
		Enumerable:   enumerable,
		Configurable: configurable,
		accessor:     true,
	}
}

// IsData reports whether this is a data descriptor.
func (d *Descriptor) IsData() bool { return !d.accessor }

// IsAccessor reports whether this is an accessor descriptor.
func (d *Descriptor) IsAccessor() bool { return d.accessor }

// Clone returns a shallow copy. Descriptor values are shared; the attribute
// record itself is copied so snapshots in the modification log stay stable.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	cp := *d
	return &cp
}

// Check validates the mutual-exclusion invariant; it crashes on violation.
func (d *Descriptor) Check() {
	if d.accessor && d.Value != nil {
		errors.InvariantFailed("descriptor carries both accessor and data attributes")
	}
	if !d.accessor && (d.Get != nil || d.Set != nil) {
		errors.InvariantFailed("data descriptor carries accessor attributes")
	}
}
