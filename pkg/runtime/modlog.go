package runtime

// The modification log records every mutation of bindings, properties and
// object identity so a speculative evaluation can be rolled back wholesale.
// It is a stack of deltas replayed in reverse; no locks are needed because
// the realm is single-threaded.

type delta interface {
	revert()
}

// bindingDelta snapshots a binding before an in-place update.
type bindingDelta struct {
	binding *Binding
	old     Binding
}

func (d *bindingDelta) revert() { *d.binding = d.old }

// bindingCreationDelta undoes the creation of a declarative binding.
type bindingCreationDelta struct {
	record *DeclarativeRecord
	name   string
}

func (d *bindingCreationDelta) revert() { d.record.restore(d.name, nil) }

// bindingDeletionDelta restores a deleted declarative binding.
type bindingDeletionDelta struct {
	record *DeclarativeRecord
	name   string
	old    *Binding
}

func (d *bindingDeletionDelta) revert() { d.record.restore(d.name, d.old) }

// propertyDelta snapshots a property slot before define or delete.
type propertyDelta struct {
	object  *ObjectValue
	key     PropertyKey
	old     *Descriptor
	existed bool
}

func (d *propertyDelta) revert() {
	o := d.object
	if d.existed {
		o.properties[d.key] = d.old
		// A define on an existing key did not move it; a delete removed it
		// from the order, so put it back if missing.
		found := false
		for _, k := range o.order {
			if k == d.key {
				found = true
				break
			}
		}
		if !found {
			o.order = append(o.order, d.key)
		}
		return
	}
	delete(o.properties, d.key)
	for i, k := range o.order {
		if k == d.key {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

// objectFlagsDelta snapshots the object-mode bits and prototype.
type objectFlagsDelta struct {
	object     *ObjectValue
	simple     bool
	partial    bool
	extensible bool
	prototype  Value
}

func (d *objectFlagsDelta) revert() {
	d.object.simple = d.simple
	d.object.Partial = d.partial
	d.object.Extensible = d.extensible
	d.object.Prototype = d.prototype
}

// creationDelta kills a speculatively created object on rollback.
type creationDelta struct {
	heap   *Heap
	object *ObjectValue
}

func (d *creationDelta) revert() { d.heap.kill(d.object.id) }

// ModificationLog is the realm's delta stack.
type ModificationLog struct {
	deltas []delta
}

func NewModificationLog() *ModificationLog {
	return &ModificationLog{}
}

// Mark returns the current log position for a later rollback or commit.
func (l *ModificationLog) Mark() int { return len(l.deltas) }

// RollbackTo replays deltas in reverse down to mark, restoring heap and
// environment state bit-identically.
func (l *ModificationLog) RollbackTo(mark int) {
	for i := len(l.deltas) - 1; i >= mark; i-- {
		l.deltas[i].revert()
	}
	l.deltas = l.deltas[:mark]
}

// CommitTo makes the changes above mark permanent relative to that frame.
// The deltas are kept in the log rather than dropped, so an outer
// speculative frame can still roll back.
func (l *ModificationLog) CommitTo(mark int) {
	// Nothing to do: deltas above the outer frame's own mark keep their
	// revert information. Committing is the absence of rollback.
	_ = mark
}

func (l *ModificationLog) push(d delta) { l.deltas = append(l.deltas, d) }

func (l *ModificationLog) recordBinding(b *Binding) {
	l.push(&bindingDelta{binding: b, old: *b})
}

func (l *ModificationLog) recordBindingCreation(rec *DeclarativeRecord, name string) {
	l.push(&bindingCreationDelta{record: rec, name: name})
}

func (l *ModificationLog) recordBindingDeletion(rec *DeclarativeRecord, name string, old *Binding) {
	l.push(&bindingDeletionDelta{record: rec, name: name, old: old})
}

func (l *ModificationLog) recordProperty(o *ObjectValue, key PropertyKey, old *Descriptor, existed bool) {
	l.push(&propertyDelta{object: o, key: key, old: old, existed: existed})
}

func (l *ModificationLog) recordObjectFlags(o *ObjectValue) {
	l.push(&objectFlagsDelta{
		object:     o,
		simple:     o.simple,
		partial:    o.Partial,
		extensible: o.Extensible,
		prototype:  o.Prototype,
	})
}

func (l *ModificationLog) recordCreation(h *Heap, o *ObjectValue) {
	l.push(&creationDelta{heap: h, object: o})
}

// deltasSince returns the deltas recorded since mark, oldest first. The
// effects machinery uses this to compute final states before rollback.
func (l *ModificationLog) deltasSince(mark int) []delta {
	return l.deltas[mark:]
}
