// Package residualizer decides what survives into the output program,
// allocates identifiers, orders declarations by dependency, and builds the
// final AST. Two passes: a visit pass computing reachability and pure-entry
// delays, and an emit pass serializing values and generator entries.
package residualizer

import (
	"prebake/pkg/ast"
	"prebake/pkg/errors"
	"prebake/pkg/runtime"
)

// Options tune residualization.
type Options struct {
	// BuildSuffix is appended to every generated identifier; empty for
	// deterministic output.
	BuildSuffix string
	// DebugNames adds provenance hints to generated identifiers.
	DebugNames bool
}

// Residualizer carries the state of one residualization.
type Residualizer struct {
	realm   *runtime.Realm
	nameGen *runtime.NameGenerator
	prelude *runtime.PreludeGenerator
	ctx     *runtime.EmitContext

	// baseline is the property state of every object alive before user
	// code ran; only differences survive into the output. baselineOrder
	// keeps key order so emission is deterministic.
	baseline      map[*runtime.ObjectValue]map[runtime.PropertyKey]*runtime.Descriptor
	baselineOrder map[*runtime.ObjectValue][]runtime.PropertyKey

	// declaredBy maps generator-declared abstract values to their entries.
	declaredBy map[*runtime.AbstractValue]*runtime.GeneratorEntry
	// required marks pure entries whose declared value is needed.
	required map[*runtime.GeneratorEntry]bool

	// objNames maps serialized heap objects to their output identifiers;
	// preferredNames pre-claims the global binding name for objects held
	// only by a fresh global, so `var t = {}` beats `var _0 = {}`.
	objNames       map[*runtime.ObjectValue]string
	preferredNames map[*runtime.ObjectValue]string

	body []ast.Statement
}

// New captures the pre-interpretation baseline of the realm. Call it after
// intrinsics are installed and before any user code runs.
func New(r *runtime.Realm, opts Options) *Residualizer {
	nameGen := runtime.NewNameGenerator("", opts.BuildSuffix)
	nameGen.SetDebugNames(opts.DebugNames)
	prelude := runtime.NewPreludeGenerator(nameGen)
	// The realm's prelude is the one the residualizer drives.
	r.Prelude = prelude

	res := &Residualizer{
		realm:      r,
		nameGen:    nameGen,
		prelude:    prelude,
		ctx:        &runtime.EmitContext{Prelude: prelude},
		baseline:   make(map[*runtime.ObjectValue]map[runtime.PropertyKey]*runtime.Descriptor),
		declaredBy: make(map[*runtime.AbstractValue]*runtime.GeneratorEntry),
		required:   make(map[*runtime.GeneratorEntry]bool),
		objNames:       make(map[*runtime.ObjectValue]string),
		preferredNames: make(map[*runtime.ObjectValue]string),
	}
	res.baselineOrder = make(map[*runtime.ObjectValue][]runtime.PropertyKey)
	for _, obj := range r.Heap.Live() {
		snap := make(map[runtime.PropertyKey]*runtime.Descriptor)
		keys := obj.OwnKeys()
		for _, key := range keys {
			snap[key] = obj.GetOwnProperty(key).Clone()
		}
		res.baseline[obj] = snap
		res.baselineOrder[obj] = keys
	}
	// Generated names must not shadow globals the residual program reads.
	for _, key := range r.GlobalObject.OwnKeys() {
		if !key.IsSymbol() {
			nameGen.Forbid(key.Str)
		}
	}
	return res
}

// Residualize builds the output program for the realm's root generator,
// final heap, and top-level completion.
func (res *Residualizer) Residualize(completion *runtime.Completion) *ast.Program {
	root := res.realm.RootGenerator

	// Pass 1 — visit: reachability and pure-entry delay/revocation.
	res.indexGenerator(root)
	res.visitPass(root, completion)
	res.assignPreferredNames()

	// Pass 2 — emit.
	res.emitGenerator(root, &res.body)
	res.emitHeapDiff()
	res.emitCompletion(completion)

	stmts := append(res.prelude.Statements(), res.body...)
	return &ast.Program{Statements: stmts}
}

// indexGenerator records which entries declare which abstract values.
func (res *Residualizer) indexGenerator(g *runtime.Generator) {
	for _, entry := range g.Entries {
		if entry.Declared != nil {
			res.declaredBy[entry.Declared] = entry
		}
		for _, child := range entry.Children {
			res.indexGenerator(child)
		}
	}
}

// fatal reports an impossible residualization state.
func fatal(format string, args ...interface{}) {
	errors.InvariantFailed(format, args...)
}
