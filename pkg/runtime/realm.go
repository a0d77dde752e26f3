package runtime

import (
	"time"

	"github.com/rs/zerolog"

	"prebake/pkg/ast"
	"prebake/pkg/errors"
)

// Evaluator executes one AST node kind under an environment and returns its
// completion. The realm holds a total map from node kind to evaluator.
type Evaluator func(n ast.Node, strict bool, env *LexicalEnvironment, r *Realm) *Completion

// CallHook invokes a user-defined function body. The interpreter package
// installs it when it registers the evaluators, which keeps the core free
// of a dependency cycle.
type CallHook func(r *Realm, fn *FunctionValue, this Value, args []Value) (Value, error)

// ConstructHook invokes a function as a constructor.
type ConstructHook func(r *Realm, fn *FunctionValue, args []Value) (Value, error)

// Intrinsics holds the realm's built-in singletons.
type Intrinsics struct {
	ObjectPrototype   *ObjectValue
	FunctionPrototype *ObjectValue
	ArrayPrototype    *ObjectValue
	StringPrototype   *ObjectValue
	NumberPrototype   *ObjectValue
	BooleanPrototype  *ObjectValue
	SymbolPrototype   *ObjectValue
	RegExpPrototype   *ObjectValue

	ErrorPrototype          *ObjectValue
	TypeErrorPrototype      *ObjectValue
	ReferenceErrorPrototype *ObjectValue
	RangeErrorPrototype     *ObjectValue
	SyntaxErrorPrototype    *ObjectValue

	// ErrorConstructors maps "TypeError" etc. to the constructor function.
	ErrorConstructors map[string]*FunctionValue
}

// ExecutionContext is one frame of the realm's context stack.
type ExecutionContext struct {
	Function    *FunctionValue // nil for the top-level script context
	LexicalEnv  *LexicalEnvironment
	VariableEnv *LexicalEnvironment
	ThisValue   Value
	Strict      bool
}

// Realm is the root container of all interpreter state. It is an explicit
// parameter to every operation; there are no ambient singletons. The realm
// is single-threaded and not reentrant: one execution-context stack,
// enter/leave strictly paired.
type Realm struct {
	Heap   *Heap
	ModLog *ModificationLog

	GlobalObject *ObjectValue
	GlobalEnv    *LexicalEnvironment
	Intrinsics   Intrinsics

	// Generator is the active effect generator; RootGenerator is where
	// committed top-level effects accumulate.
	Generator     *Generator
	RootGenerator *Generator
	Prelude       *PreludeGenerator

	Evaluators        map[ast.NodeKind]Evaluator
	PartialEvaluators map[ast.NodeKind]Evaluator

	Handler errors.DiagnosticHandler

	// Deadline bounds interpretation; it is polled at statement boundaries.
	// The zero time disables the check.
	Deadline time.Time

	// AbstractInterpretation enables speculative evaluation of branches on
	// abstract guards; when false any abstract guard is a fatal diagnostic.
	AbstractInterpretation bool

	Logger zerolog.Logger

	// CurrentLocation tracks the node being evaluated, for diagnostics and
	// throw completions.
	CurrentLocation errors.Position

	callHook      CallHook
	constructHook ConstructHook

	contextStack []*ExecutionContext
}

// NewRealm creates an empty realm with a fresh heap, log and generators.
// Intrinsics and the global object are installed by the intrinsics package.
func NewRealm(logger zerolog.Logger) *Realm {
	r := &Realm{
		Heap:                   NewHeap(),
		ModLog:                 NewModificationLog(),
		Evaluators:             make(map[ast.NodeKind]Evaluator),
		PartialEvaluators:      make(map[ast.NodeKind]Evaluator),
		Logger:                 logger,
		AbstractInterpretation: true,
		Handler:                func(*errors.CompilerDiagnostic) {},
	}
	r.RootGenerator = NewGenerator(r, "root")
	r.Generator = r.RootGenerator
	r.Prelude = NewPreludeGenerator(NewNameGenerator("$", ""))
	return r
}

// SetCallHooks installs the user-function call paths.
func (r *Realm) SetCallHooks(call CallHook, construct ConstructHook) {
	r.callHook = call
	r.constructHook = construct
}

// --- Object construction ---

// NewObject mints an ordinary object with the given prototype, logging its
// creation for rollback.
func (r *Realm) NewObject(proto Value) *ObjectValue {
	if proto == nil {
		proto = Null
	}
	o := &ObjectValue{
		realm:      r,
		Prototype:  proto,
		Extensible: true,
		simple:     true,
	}
	o.self = o
	r.Heap.add(o)
	r.ModLog.recordCreation(r.Heap, o)
	return o
}

// NewPlainObject mints an object with Object.prototype.
func (r *Realm) NewPlainObject() *ObjectValue {
	var proto Value = Null
	if r.Intrinsics.ObjectPrototype != nil {
		proto = r.Intrinsics.ObjectPrototype
	}
	return r.NewObject(proto)
}

// NewArrayObject mints an array: a plain object with the Array internal
// slot, the array prototype, and a length property.
func (r *Realm) NewArrayObject(elements []Value) *ObjectValue {
	var proto Value = Null
	if r.Intrinsics.ArrayPrototype != nil {
		proto = r.Intrinsics.ArrayPrototype
	}
	o := r.NewObject(proto)
	o.SetSlot("Array", True)
	for i, el := range elements {
		if el == nil {
			continue // elision
		}
		o.DefineOwnProperty(StringKey(NumberToString(float64(i))), DefaultDataDescriptor(el))
	}
	o.DefineOwnProperty(StringKey("length"), NewDataDescriptor(NumberValue(float64(len(elements))), true, false, false))
	return o
}

// NewFunctionObject mints a user-defined function closing over env.
func (r *Realm) NewFunctionObject(name string, params []string, body *ast.BlockStatement, env *LexicalEnvironment, strict bool) *FunctionValue {
	f := &FunctionValue{
		Name:   name,
		Params: params,
		Body:   body,
		Env:    env,
		Strict: strict,
	}
	r.initFunctionObject(f)
	return f
}

// NewNativeFunction mints an intrinsic function.
func (r *Realm) NewNativeFunction(name string, length int, handler NativeHandler) *FunctionValue {
	f := &FunctionValue{
		Name:   name,
		Native: handler,
	}
	r.initFunctionObject(f)
	f.DefineOwnProperty(StringKey("length"), NewDataDescriptor(NumberValue(float64(length)), false, false, true))
	f.DefineOwnProperty(StringKey("name"), NewDataDescriptor(StringValue(name), false, false, true))
	return f
}

func (r *Realm) initFunctionObject(f *FunctionValue) {
	f.realm = r
	f.self = f
	f.Extensible = true
	if r.Intrinsics.FunctionPrototype != nil {
		f.Prototype = r.Intrinsics.FunctionPrototype
	} else {
		f.Prototype = Null
	}
	r.Heap.add(&f.ObjectValue)
	r.ModLog.recordCreation(r.Heap, &f.ObjectValue)
}

// --- Abstract value construction ---

// CreateAbstract mints a fresh abstract value. The args are snapshot; the
// origin template is opaque to the interpreter and consumed only by the
// residualizer.
func (r *Realm) CreateAbstract(types TypeFlag, values ValuesDomain, args []Value, template OriginTemplate, kind AbstractKind) *AbstractValue {
	if types == 0 {
		errors.InvariantFailed("abstract value with empty types domain")
	}
	snapshot := make([]Value, len(args))
	copy(snapshot, args)
	return &AbstractValue{
		types:    types,
		values:   values,
		Args:     snapshot,
		Template: template,
		Kind:     kind,
	}
}

// CreateAbstractObject mints an abstract value known to be an object.
func (r *Realm) CreateAbstractObject(args []Value, template OriginTemplate, candidates []*ObjectValue) *AbstractObjectValue {
	snapshot := make([]Value, len(args))
	copy(snapshot, args)
	return &AbstractObjectValue{
		AbstractValue: AbstractValue{
			types:    FlagObject,
			values:   ValuesTop,
			Args:     snapshot,
			Template: template,
		},
		ObjectCandidates: candidates,
	}
}

// deriveUnknownPropertyRead models the read of an unknown key on a partial
// object: an abstract value of unknown type whose origin is the member
// expression.
func (r *Realm) deriveUnknownPropertyRead(receiver Value, key PropertyKey) Value {
	if key.IsSymbol() {
		return Undefined
	}
	return r.CreateAbstract(TypesTop, ValuesTop, []Value{receiver}, MemberTemplate(key.Str, !isIdentifierName(key.Str)), KindSentinelMember)
}

// RecordModifiedBinding appends the binding's prior state to the
// modification log so it can be restored on rollback, and returns it.
func (r *Realm) RecordModifiedBinding(b *Binding) *Binding {
	r.ModLog.recordBinding(b)
	return b
}

// --- Calls ---

// CallFunction invokes any function value: native handlers directly, user
// functions through the interpreter hook.
func (r *Realm) CallFunction(fn *FunctionValue, this Value, args []Value) (Value, error) {
	if fn.Native != nil {
		return fn.Native(r, this, args)
	}
	if r.callHook == nil {
		errors.InvariantFailed("user function call with no interpreter installed")
	}
	return r.callHook(r, fn, this, args)
}

// Construct invokes fn as a constructor.
func (r *Realm) Construct(fn *FunctionValue, args []Value) (Value, error) {
	if r.constructHook == nil {
		errors.InvariantFailed("construct with no interpreter installed")
	}
	return r.constructHook(r, fn, args)
}

// --- Execution contexts ---

// EnterContext pushes a context. Every EnterContext must be paired with
// LeaveContext.
func (r *Realm) EnterContext(ctx *ExecutionContext) {
	r.contextStack = append(r.contextStack, ctx)
}

// LeaveContext pops the current context.
func (r *Realm) LeaveContext() {
	if len(r.contextStack) == 0 {
		errors.InvariantFailed("LeaveContext with empty context stack")
	}
	r.contextStack = r.contextStack[:len(r.contextStack)-1]
}

// CurrentContext returns the active context, or nil outside evaluation.
func (r *Realm) CurrentContext() *ExecutionContext {
	if len(r.contextStack) == 0 {
		return nil
	}
	return r.contextStack[len(r.contextStack)-1]
}

// --- Deadline and diagnostics ---

// CheckDeadline polls the wall-clock deadline; on exceedance it reports a
// fatal diagnostic, which unwinds via the FatalAbort sentinel.
func (r *Realm) CheckDeadline() {
	if r.Deadline.IsZero() {
		return
	}
	if time.Now().After(r.Deadline) {
		r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeDeadlineExceeded, errors.FatalError,
			r.CurrentLocation, "interpretation deadline exceeded"))
	}
}

// ReportDiagnostic delivers a diagnostic to the handler. Fatal diagnostics
// then unwind interpretation by panicking with the FatalAbort sentinel; the
// top-level driver intercepts it.
func (r *Realm) ReportDiagnostic(d *errors.CompilerDiagnostic) {
	if !d.Position.IsValid() {
		d.Position = r.CurrentLocation
	}
	r.Logger.Debug().Str("code", d.Code).Str("severity", d.Severity.String()).Msg(d.Msg)
	r.Handler(d)
	if d.Severity == errors.FatalError {
		panic(&errors.FatalAbort{Diagnostic: d})
	}
}

// --- Model error constructors (teacher-style) ---

// NewErrorObject builds an error instance of the named kind.
func (r *Realm) NewErrorObject(kind, message string) Value {
	var proto *ObjectValue
	switch kind {
	case "TypeError":
		proto = r.Intrinsics.TypeErrorPrototype
	case "ReferenceError":
		proto = r.Intrinsics.ReferenceErrorPrototype
	case "RangeError":
		proto = r.Intrinsics.RangeErrorPrototype
	case "SyntaxError":
		proto = r.Intrinsics.SyntaxErrorPrototype
	default:
		proto = r.Intrinsics.ErrorPrototype
	}
	var protoVal Value = Null
	if proto != nil {
		protoVal = proto
	}
	obj := r.NewObject(protoVal)
	obj.SetSlot("ErrorData", StringValue(kind))
	obj.DefineOwnProperty(StringKey("message"), NewDataDescriptor(StringValue(message), true, false, true))
	if proto == nil {
		// Fallback when intrinsics are not installed (unit tests).
		obj.DefineOwnProperty(StringKey("name"), DefaultDataDescriptor(StringValue(kind)))
	}
	return obj
}

// NewTypeError constructs a TypeError model error for helpers to return.
func (r *Realm) NewTypeError(message string) error {
	return &ThrowError{Value: r.NewErrorObject("TypeError", message), Loc: r.CurrentLocation}
}

// NewReferenceError constructs a ReferenceError model error.
func (r *Realm) NewReferenceError(message string) error {
	return &ThrowError{Value: r.NewErrorObject("ReferenceError", message), Loc: r.CurrentLocation}
}

// NewRangeError constructs a RangeError model error.
func (r *Realm) NewRangeError(message string) error {
	return &ThrowError{Value: r.NewErrorObject("RangeError", message), Loc: r.CurrentLocation}
}

// NewSyntaxError constructs a SyntaxError model error.
func (r *Realm) NewSyntaxError(message string) error {
	return &ThrowError{Value: r.NewErrorObject("SyntaxError", message), Loc: r.CurrentLocation}
}

// CompletionFromError converts an error from a helper into a completion:
// ThrowError becomes a throw completion, anything else is an invariant
// violation (non-model errors travel on the exceptional channel).
func (r *Realm) CompletionFromError(err error) *Completion {
	if te, ok := err.(*ThrowError); ok {
		loc := te.Loc
		if !loc.IsValid() {
			loc = r.CurrentLocation
		}
		return Throw(te.Value, loc)
	}
	errors.InvariantFailed("non-model error on completion channel: %v", err)
	return nil
}

// isIdentifierName reports whether s can be written as a dotted member name
// in output. Conservative ASCII per the residualizer's identifier policy.
func isIdentifierName(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		letter := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' || c == '$'
		if i == 0 && !letter {
			return false
		}
		if !letter && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
