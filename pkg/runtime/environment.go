package runtime

import (
	"prebake/pkg/errors"
)

// Binding is one name slot of an environment record.
type Binding struct {
	Value       Value
	Initialized bool
	Mutable     bool
	Strict      bool
	Deletable   bool
}

// EnvironmentRecord is the common surface of the four record variants. The
// operation set and semantics follow the Standard; all writes go through
// the realm's modification log so speculative evaluation can roll back.
type EnvironmentRecord interface {
	HasBinding(name string) bool
	CreateMutableBinding(r *Realm, name string, deletable bool)
	CreateImmutableBinding(r *Realm, name string, strict bool)
	InitializeBinding(r *Realm, name string, v Value)
	SetMutableBinding(r *Realm, name string, v Value, strict bool) error
	GetBindingValue(r *Realm, name string, strict bool) (Value, error)
	DeleteBinding(r *Realm, name string) bool
	HasThisBinding() bool
	GetThisBinding(r *Realm) (Value, error)
	WithBaseObject() Value
}

// LexicalEnvironment pairs a record with its parent scope. Parent links are
// non-owning; ownership flows down from the execution-context stack.
type LexicalEnvironment struct {
	Record EnvironmentRecord
	Parent *LexicalEnvironment
}

// NewDeclarativeEnvironment chains a fresh declarative record onto parent.
func NewDeclarativeEnvironment(parent *LexicalEnvironment) *LexicalEnvironment {
	return &LexicalEnvironment{Record: NewDeclarativeRecord(), Parent: parent}
}

// ResolveBinding walks the scope chain for name and returns a reference.
func (e *LexicalEnvironment) ResolveBinding(name string, strict bool) Reference {
	for env := e; env != nil; env = env.Parent {
		if env.Record.HasBinding(name) {
			return Reference{BaseEnv: env.Record, Name: StringValue(name), Strict: strict}
		}
	}
	// Unresolvable: base is undefined.
	return Reference{Name: StringValue(name), Strict: strict}
}

// --- Declarative record ---

// DeclarativeRecord holds name → binding slots.
type DeclarativeRecord struct {
	bindings map[string]*Binding
}

func NewDeclarativeRecord() *DeclarativeRecord {
	return &DeclarativeRecord{bindings: make(map[string]*Binding)}
}

func (d *DeclarativeRecord) HasBinding(name string) bool {
	_, ok := d.bindings[name]
	return ok
}

func (d *DeclarativeRecord) CreateMutableBinding(r *Realm, name string, deletable bool) {
	if _, ok := d.bindings[name]; ok {
		errors.InvariantFailed("binding %q created twice", name)
	}
	b := &Binding{Mutable: true, Deletable: deletable}
	d.bindings[name] = b
	r.ModLog.recordBindingCreation(d, name)
}

func (d *DeclarativeRecord) CreateImmutableBinding(r *Realm, name string, strict bool) {
	if _, ok := d.bindings[name]; ok {
		errors.InvariantFailed("binding %q created twice", name)
	}
	b := &Binding{Strict: strict}
	d.bindings[name] = b
	r.ModLog.recordBindingCreation(d, name)
}

func (d *DeclarativeRecord) InitializeBinding(r *Realm, name string, v Value) {
	b, ok := d.bindings[name]
	if !ok {
		errors.InvariantFailed("initialize of missing binding %q", name)
	}
	r.RecordModifiedBinding(b)
	b.Value = v
	b.Initialized = true
}

func (d *DeclarativeRecord) SetMutableBinding(r *Realm, name string, v Value, strict bool) error {
	b, ok := d.bindings[name]
	if !ok {
		if strict {
			return r.NewReferenceError(name + " is not defined")
		}
		// Sloppy-mode fallthrough: create, initialize, set.
		d.CreateMutableBinding(r, name, true)
		d.InitializeBinding(r, name, v)
		return nil
	}
	if !b.Initialized {
		return r.NewReferenceError("Cannot access '" + name + "' before initialization")
	}
	if !b.Mutable {
		if b.Strict || strict {
			return r.NewTypeError("Assignment to constant variable.")
		}
		return nil
	}
	r.RecordModifiedBinding(b)
	b.Value = v
	return nil
}

func (d *DeclarativeRecord) GetBindingValue(r *Realm, name string, strict bool) (Value, error) {
	b, ok := d.bindings[name]
	if !ok {
		return nil, r.NewReferenceError(name + " is not defined")
	}
	if !b.Initialized {
		return nil, r.NewReferenceError("Cannot access '" + name + "' before initialization")
	}
	return b.Value, nil
}

func (d *DeclarativeRecord) DeleteBinding(r *Realm, name string) bool {
	b, ok := d.bindings[name]
	if !ok {
		return true
	}
	if !b.Deletable {
		return false
	}
	r.ModLog.recordBindingDeletion(d, name, b)
	delete(d.bindings, name)
	return true
}

func (d *DeclarativeRecord) HasThisBinding() bool { return false }
func (d *DeclarativeRecord) GetThisBinding(r *Realm) (Value, error) {
	errors.InvariantFailed("GetThisBinding on declarative record")
	return nil, nil
}
func (d *DeclarativeRecord) WithBaseObject() Value { return Undefined }

// lookup is used by the modification log to undo creations and deletions.
func (d *DeclarativeRecord) lookup(name string) (*Binding, bool) {
	b, ok := d.bindings[name]
	return b, ok
}

func (d *DeclarativeRecord) restore(name string, b *Binding) {
	if b == nil {
		delete(d.bindings, name)
	} else {
		d.bindings[name] = b
	}
}

// --- Object-backed record ---

// ObjectRecord delegates bindings to the properties of an object; used for
// `with` scopes and as half of the global record.
type ObjectRecord struct {
	Object *ObjectValue
	// IsWith marks records created by `with`, which honor @@unscopables.
	IsWith bool
}

func NewObjectRecord(obj *ObjectValue, isWith bool) *ObjectRecord {
	return &ObjectRecord{Object: obj, IsWith: isWith}
}

func (o *ObjectRecord) HasBinding(name string) bool {
	if !o.Object.HasProperty(StringKey(name)) {
		return false
	}
	if o.IsWith {
		if unscopables, ok := o.Object.Slot("Unscopables"); ok {
			if uo, ok := AsObject(unscopables); ok {
				if d := uo.GetOwnProperty(StringKey(name)); d != nil && d.IsData() {
					if ToBooleanConcrete(d.Value) {
						return false
					}
				}
			}
		}
	}
	return true
}

func (o *ObjectRecord) CreateMutableBinding(r *Realm, name string, deletable bool) {
	o.Object.DefineOwnProperty(StringKey(name), NewDataDescriptor(Undefined, true, true, deletable))
}

func (o *ObjectRecord) CreateImmutableBinding(r *Realm, name string, strict bool) {
	errors.InvariantFailed("immutable binding %q on object record", name)
}

func (o *ObjectRecord) InitializeBinding(r *Realm, name string, v Value) {
	// Property was created by CreateMutableBinding; initialization is a set.
	_ = o.SetMutableBinding(r, name, v, false)
}

func (o *ObjectRecord) SetMutableBinding(r *Realm, name string, v Value, strict bool) error {
	key := StringKey(name)
	if strict && !o.Object.HasProperty(key) {
		return r.NewReferenceError(name + " is not defined")
	}
	ok, err := o.Object.Set(r, key, v, o.Object.SelfValue())
	if err != nil {
		return err
	}
	if !ok && strict {
		return r.NewTypeError("Cannot assign to read only property '" + name + "'")
	}
	return nil
}

func (o *ObjectRecord) GetBindingValue(r *Realm, name string, strict bool) (Value, error) {
	key := StringKey(name)
	if !o.Object.HasProperty(key) {
		if strict {
			return nil, r.NewReferenceError(name + " is not defined")
		}
		return Undefined, nil
	}
	return o.Object.Get(r, key, o.Object.SelfValue())
}

func (o *ObjectRecord) DeleteBinding(r *Realm, name string) bool {
	return o.Object.DeleteOwnProperty(StringKey(name))
}

func (o *ObjectRecord) HasThisBinding() bool { return false }
func (o *ObjectRecord) GetThisBinding(r *Realm) (Value, error) {
	errors.InvariantFailed("GetThisBinding on object record")
	return nil, nil
}

func (o *ObjectRecord) WithBaseObject() Value {
	if o.IsWith {
		return o.Object.SelfValue()
	}
	return Undefined
}

// --- Function record ---

// ThisBindingState tracks the function record's this slot.
type ThisBindingState int

const (
	ThisLexical ThisBindingState = iota
	ThisUninitialized
	ThisInitialized
)

// FunctionRecord is a declarative record plus this-binding state.
type FunctionRecord struct {
	DeclarativeRecord
	ThisState      ThisBindingState
	ThisValue      Value
	HomeObject     Value
	FunctionObject *FunctionValue
}

func NewFunctionRecord(fn *FunctionValue, thisState ThisBindingState) *FunctionRecord {
	return &FunctionRecord{
		DeclarativeRecord: *NewDeclarativeRecord(),
		ThisState:         thisState,
		FunctionObject:    fn,
	}
}

func (f *FunctionRecord) HasThisBinding() bool { return f.ThisState != ThisLexical }

func (f *FunctionRecord) BindThisValue(r *Realm, v Value) error {
	if f.ThisState == ThisInitialized {
		return r.NewReferenceError("this already initialized")
	}
	f.ThisValue = v
	f.ThisState = ThisInitialized
	return nil
}

func (f *FunctionRecord) GetThisBinding(r *Realm) (Value, error) {
	if f.ThisState == ThisUninitialized {
		return nil, r.NewReferenceError("must call super before accessing this")
	}
	return f.ThisValue, nil
}

// HasSuperBinding reports whether the function carries a home object.
func (f *FunctionRecord) HasSuperBinding() bool {
	return f.ThisState != ThisLexical && f.HomeObject != nil
}

// --- Global record ---

// GlobalRecord composes a declarative record (for lexical declarations) and
// an object record over the global object (for everything else), plus the
// list of var names and the global this.
type GlobalRecord struct {
	Declarative *DeclarativeRecord
	ObjectRec   *ObjectRecord
	VarNames    map[string]bool
	GlobalThis  Value
}

func NewGlobalRecord(globalObject *ObjectValue, globalThis Value) *GlobalRecord {
	return &GlobalRecord{
		Declarative: NewDeclarativeRecord(),
		ObjectRec:   NewObjectRecord(globalObject, false),
		VarNames:    make(map[string]bool),
		GlobalThis:  globalThis,
	}
}

func (g *GlobalRecord) HasBinding(name string) bool {
	return g.Declarative.HasBinding(name) || g.ObjectRec.HasBinding(name)
}

func (g *GlobalRecord) CreateMutableBinding(r *Realm, name string, deletable bool) {
	if g.Declarative.HasBinding(name) {
		errors.InvariantFailed("global lexical binding %q created twice", name)
	}
	g.Declarative.CreateMutableBinding(r, name, deletable)
}

func (g *GlobalRecord) CreateImmutableBinding(r *Realm, name string, strict bool) {
	g.Declarative.CreateImmutableBinding(r, name, strict)
}

func (g *GlobalRecord) InitializeBinding(r *Realm, name string, v Value) {
	if g.Declarative.HasBinding(name) {
		g.Declarative.InitializeBinding(r, name, v)
		return
	}
	g.ObjectRec.InitializeBinding(r, name, v)
}

func (g *GlobalRecord) SetMutableBinding(r *Realm, name string, v Value, strict bool) error {
	if g.Declarative.HasBinding(name) {
		return g.Declarative.SetMutableBinding(r, name, v, strict)
	}
	return g.ObjectRec.SetMutableBinding(r, name, v, strict)
}

func (g *GlobalRecord) GetBindingValue(r *Realm, name string, strict bool) (Value, error) {
	if g.Declarative.HasBinding(name) {
		return g.Declarative.GetBindingValue(r, name, strict)
	}
	return g.ObjectRec.GetBindingValue(r, name, strict)
}

func (g *GlobalRecord) DeleteBinding(r *Realm, name string) bool {
	if g.Declarative.HasBinding(name) {
		return g.Declarative.DeleteBinding(r, name)
	}
	if g.ObjectRec.Object.HasOwn(StringKey(name)) {
		ok := g.ObjectRec.DeleteBinding(r, name)
		if ok {
			delete(g.VarNames, name)
		}
		return ok
	}
	return true
}

func (g *GlobalRecord) HasThisBinding() bool { return true }

func (g *GlobalRecord) GetThisBinding(r *Realm) (Value, error) {
	return g.GlobalThis, nil
}

func (g *GlobalRecord) WithBaseObject() Value { return Undefined }

// HasVarDeclaration reports whether name was declared with var.
func (g *GlobalRecord) HasVarDeclaration(name string) bool { return g.VarNames[name] }

// CreateGlobalVarBinding declares a var on the global object.
func (g *GlobalRecord) CreateGlobalVarBinding(r *Realm, name string) {
	if !g.ObjectRec.Object.HasOwn(StringKey(name)) {
		g.ObjectRec.CreateMutableBinding(r, name, false)
		g.ObjectRec.InitializeBinding(r, name, Undefined)
	}
	g.VarNames[name] = true
}

// CreateGlobalFunctionBinding declares a hoisted function on the global
// object with its value.
func (g *GlobalRecord) CreateGlobalFunctionBinding(r *Realm, name string, fn Value) {
	g.ObjectRec.Object.DefineOwnProperty(StringKey(name), NewDataDescriptor(fn, true, true, false))
	g.VarNames[name] = true
}
