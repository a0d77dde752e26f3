package residualizer

import (
	"prebake/pkg/runtime"
)

// visitPass walks every root of the output — generator entries, the global
// diff, and the completion value — marking which pure declared entries are
// required. A pure entry whose declared value is never demanded stays
// delayed and is dropped at emit time.
func (res *Residualizer) visitPass(root *runtime.Generator, completion *runtime.Completion) {
	seen := make(map[runtime.Value]bool)

	var visitValue func(v runtime.Value)
	var visitGenerator func(g *runtime.Generator)

	visitValue = func(v runtime.Value) {
		if v == nil || seen[v] {
			return
		}
		seen[v] = true
		switch x := v.(type) {
		case *runtime.AbstractValue:
			if entry, ok := res.declaredBy[x]; ok && !res.required[entry] {
				// Revoke the delay: the declared value is demanded.
				res.required[entry] = true
				for _, a := range entry.Args {
					visitValue(a)
				}
			}
			for _, a := range x.Args {
				visitValue(a)
			}
		case *runtime.AbstractObjectValue:
			for _, a := range x.Args {
				visitValue(a)
			}
			for _, cand := range x.ObjectCandidates {
				visitValue(cand)
			}
		case *runtime.ObjectValue:
			res.visitObject(x, visitValue)
		case *runtime.FunctionValue:
			res.visitObject(&x.ObjectValue, visitValue)
		}
	}

	visitGenerator = func(g *runtime.Generator) {
		for _, entry := range g.Entries {
			if entry.Pure && !res.required[entry] {
				// Delayed: pure entries (derived declarations and their
				// invariant guards) are visited only if a later root
				// demands the declared value.
				continue
			}
			for _, a := range entry.Args {
				visitValue(a)
			}
			for _, child := range entry.Children {
				visitGenerator(child)
			}
		}
	}

	visitGenerator(root)

	// The final heap: new and changed state relative to the baseline.
	for _, obj := range res.realm.Heap.Live() {
		if res.isBaselineObject(obj) {
			for _, key := range res.changedKeys(obj) {
				d := obj.GetOwnProperty(key)
				if d != nil {
					res.visitDescriptor(d, visitValue)
				}
			}
		}
	}
	// Reachable created objects are visited through the globals that hold
	// them; unreachable ones die here.
	for _, key := range res.changedKeys(res.realm.GlobalObject) {
		if d := res.realm.GlobalObject.GetOwnProperty(key); d != nil {
			res.visitDescriptor(d, visitValue)
		}
	}

	if completion != nil && completion.Value != nil {
		visitValue(completion.Value)
	}
}

func (res *Residualizer) visitObject(obj *runtime.ObjectValue, visitValue func(runtime.Value)) {
	if obj.OriginalName != "" {
		// Intrinsic singletons are referenced through the prelude, not
		// serialized structurally.
		return
	}
	visitValue(obj.Prototype)
	for _, key := range obj.OwnKeys() {
		res.visitDescriptor(obj.GetOwnProperty(key), visitValue)
	}
	for _, slot := range obj.InternalSlots {
		visitValue(slot)
	}
}

func (res *Residualizer) visitDescriptor(d *runtime.Descriptor, visitValue func(runtime.Value)) {
	if d == nil {
		return
	}
	if d.IsData() {
		visitValue(d.Value)
		return
	}
	visitValue(d.Get)
	visitValue(d.Set)
}

// assignPreferredNames claims global binding names for fresh objects held
// by fresh globals, so their shells declare the user-visible name directly.
func (res *Residualizer) assignPreferredNames() {
	global := res.realm.GlobalObject
	snap := res.baseline[global]
	claimed := map[string]bool{}
	for _, key := range res.changedKeys(global) {
		if key.IsSymbol() || !isIdentifierName(key.Str) || claimed[key.Str] {
			continue
		}
		if _, existed := snap[key]; existed {
			continue
		}
		d := global.GetOwnProperty(key)
		if d == nil || !d.IsData() {
			continue
		}
		obj, isObj := runtime.AsObject(d.Value)
		if !isObj || obj.OriginalName != "" || res.isBaselineObject(obj) {
			continue
		}
		if _, taken := res.preferredNames[obj]; taken {
			continue
		}
		res.preferredNames[obj] = key.Str
		claimed[key.Str] = true
	}
}

// isBaselineObject reports whether obj existed before user code ran.
func (res *Residualizer) isBaselineObject(obj *runtime.ObjectValue) bool {
	_, ok := res.baseline[obj]
	return ok
}

// changedKeys returns the keys of obj whose descriptors differ from the
// baseline, in insertion order; for non-baseline objects it returns nil.
func (res *Residualizer) changedKeys(obj *runtime.ObjectValue) []runtime.PropertyKey {
	snap, ok := res.baseline[obj]
	if !ok {
		return nil
	}
	var keys []runtime.PropertyKey
	for _, key := range obj.OwnKeys() {
		cur := obj.GetOwnProperty(key)
		old, existed := snap[key]
		if !existed || !descriptorsEqual(cur, old) {
			keys = append(keys, key)
		}
	}
	return keys
}

func descriptorsEqual(a, b *runtime.Descriptor) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.IsData() != b.IsData() {
		return false
	}
	if a.Enumerable != b.Enumerable || a.Configurable != b.Configurable {
		return false
	}
	if a.IsData() {
		return a.Writable == b.Writable && valuesIdentical(a.Value, b.Value)
	}
	return valuesIdentical(a.Get, b.Get) && valuesIdentical(a.Set, b.Set)
}

func valuesIdentical(a, b runtime.Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if runtime.IsConcrete(a) && runtime.IsConcrete(b) {
		return runtime.SameValue(a, b)
	}
	return a == b
}
