package runtime

import "prebake/pkg/errors"

// Heap is the realm's object arena. Objects are referenced by stable index;
// rollback of speculative work marks slots dead without reusing them, so an
// index identifies the same object for the life of the realm.
type Heap struct {
	objects []*ObjectValue
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{}
}

// add appends an object and assigns its stable index.
func (h *Heap) add(o *ObjectValue) {
	o.id = len(h.objects)
	h.objects = append(h.objects, o)
}

// Get returns the object at index, or nil for dead or out-of-range slots.
func (h *Heap) Get(index int) *ObjectValue {
	if index < 0 || index >= len(h.objects) {
		return nil
	}
	return h.objects[index]
}

// kill marks a slot dead during rollback.
func (h *Heap) kill(index int) {
	if index < 0 || index >= len(h.objects) {
		errors.InvariantFailed("heap kill of out-of-range index %d", index)
	}
	h.objects[index] = nil
}

// revive restores a rolled-back object into its original slot.
func (h *Heap) revive(o *ObjectValue) {
	if o.id < 0 || o.id >= len(h.objects) {
		errors.InvariantFailed("heap revive of out-of-range index %d", o.id)
	}
	if h.objects[o.id] != nil && h.objects[o.id] != o {
		errors.InvariantFailed("heap slot %d already occupied", o.id)
	}
	h.objects[o.id] = o
}

// Size returns the number of slots ever allocated, dead or alive.
func (h *Heap) Size() int { return len(h.objects) }

// Live returns all live objects in allocation order.
func (h *Heap) Live() []*ObjectValue {
	var out []*ObjectValue
	for _, o := range h.objects {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}
