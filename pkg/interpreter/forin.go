package interpreter

import (
	"prebake/pkg/ast"
	"prebake/pkg/errors"
	"prebake/pkg/runtime"
)

func (in *Interp) evalForInStatement(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	stmt := n.(*ast.ForInStatement)
	label := in.takeLabel()

	rc := r.EvaluateNode(stmt.Right, strict, env)
	if rc.IsAbrupt() {
		return rc
	}
	right := rc.Value

	switch iterated := right.(type) {
	case runtime.UndefinedValue, runtime.NullValue:
		// for-in over nullish iterates nothing.
		return runtime.Normal(runtime.Undefined)

	case *runtime.ObjectValue, *runtime.FunctionValue:
		obj, _ := runtime.AsObject(right)
		if obj.Partial {
			r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeUnsupportedForIn, errors.FatalError,
				stmt.Right.Pos(), "for-in over a partial object cannot enumerate all keys at build time"))
		}
		return in.concreteForIn(stmt, obj, label, strict, env, r)

	case *runtime.AbstractObjectValue:
		if !iterated.IsSimple() || !iterated.IsPartial() {
			r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeUnsupportedForIn, errors.FatalError,
				stmt.Right.Pos(), "for-in over an abstract object that is not simple and partial"))
		}
		return in.residualForIn(stmt, iterated, strict, env, r)

	default:
		r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeUnsupportedForIn, errors.FatalError,
			stmt.Right.Pos(), "for-in over a value that is not an object"))
		return nil
	}
}

// concreteForIn enumerates each own enumerable string key exactly once, in
// insertion order.
func (in *Interp) concreteForIn(stmt *ast.ForInStatement, obj *runtime.ObjectValue, label string, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	var lastValue runtime.Value = runtime.Undefined
	for _, key := range obj.OwnEnumerableStringKeys() {
		// A body may delete not-yet-visited keys; skip those.
		if !obj.HasOwn(runtime.StringKey(key)) {
			continue
		}
		if c := in.bindForLeft(stmt.Left, runtime.StringValue(key), strict, env, r); c != nil {
			return c
		}
		c := r.EvaluateNode(stmt.Body, strict, env)
		if done, out := loopStep(c, label, &lastValue); done {
			return out
		}
	}
	return runtime.Normal(lastValue)
}

// bindForLeft assigns the current key to the loop's left-hand side.
func (in *Interp) bindForLeft(left ast.Node, key runtime.Value, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	switch l := left.(type) {
	case *ast.VariableDeclaration:
		name := l.Declarators[0].Name.Name
		ref := env.ResolveBinding(name, strict)
		if l.DeclKind == "var" {
			if err := runtime.PutValue(r, ref, key); err != nil {
				return r.CompletionFromError(err)
			}
			return nil
		}
		// let/const loop variables get a fresh binding per iteration.
		if ref.BaseEnv != nil && ref.BaseEnv.HasBinding(name) {
			if err := ref.BaseEnv.SetMutableBinding(r, name, key, strict); err != nil {
				return r.CompletionFromError(err)
			}
			return nil
		}
		env.Record.CreateMutableBinding(r, name, false)
		env.Record.InitializeBinding(r, name, key)
		return nil
	case ast.Expression:
		ref, c := in.evalReference(l, strict, env, r)
		if c != nil {
			return c
		}
		return in.putReference(ref, key, r)
	default:
		errors.InvariantFailed("for-in left of kind %s", left.Kind())
		return nil
	}
}

// residualForIn handles enumeration of a simple, partial abstract object.
// The body must be the single copy `target[k] = source[k]`; the engine then
// replays the copy for keys known at build time and emits a residual for-in
// loop so keys discovered only at runtime are still copied.
func (in *Interp) residualForIn(stmt *ast.ForInStatement, source *runtime.AbstractObjectValue, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	// Fresh abstract string binding for the loop variable.
	keyVar := r.CreateAbstract(runtime.FlagString, runtime.ValuesTop, nil, nil, runtime.KindEnumeratedKey)

	loopEnv := runtime.NewDeclarativeEnvironment(env)
	varName, ok := forInLoopVarName(stmt.Left)
	if !ok {
		r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeUnsupportedForIn, errors.FatalError,
			stmt.Pos(), "for-in over an abstract object requires a simple loop variable"))
	}
	loopEnv.Record.CreateMutableBinding(r, varName, false)
	loopEnv.Record.InitializeBinding(r, varName, keyVar)

	target, diag := in.matchCopyBody(stmt, source, keyVar, strict, loopEnv, r)
	if diag != nil {
		r.ReportDiagnostic(diag)
	}

	// Replay the copy onto the heap for keys known at build time.
	for _, candidate := range source.ObjectCandidates {
		for _, key := range candidate.OwnEnumerableStringKeys() {
			k := runtime.StringKey(key)
			v, err := candidate.Get(r, k, candidate.SelfValue())
			if err != nil {
				return r.CompletionFromError(err)
			}
			if _, setErr := target.Set(r, k, v, target.SelfValue()); setErr != nil {
				return r.CompletionFromError(setErr)
			}
		}
	}

	// Keys discovered only at runtime flow through the residual loop.
	target.MakePartial()
	r.Generator.EmitResidualForIn(target.SelfValue(), source, keyVar)
	return runtime.Normal(runtime.Undefined)
}

// forInLoopVarName extracts the loop variable of a for-in left-hand side.
func forInLoopVarName(left ast.Node) (string, bool) {
	switch l := left.(type) {
	case *ast.VariableDeclaration:
		return l.Declarators[0].Name.Name, true
	case *ast.Identifier:
		return l.Name, true
	default:
		return "", false
	}
}

// matchCopyBody accepts only a body of the shape `target[k] = source[k]`
// where k is the loop variable, source is the iterated object and target is
// a concrete object that is fresh or simple. Returns the target object.
func (in *Interp) matchCopyBody(stmt *ast.ForInStatement, source *runtime.AbstractObjectValue, keyVar *runtime.AbstractValue, strict bool, loopEnv *runtime.LexicalEnvironment, r *runtime.Realm) (*runtime.ObjectValue, *errors.CompilerDiagnostic) {
	unsupported := func(format string, args ...interface{}) (*runtime.ObjectValue, *errors.CompilerDiagnostic) {
		return nil, errors.NewDiagnostic(errors.CodeUnsupportedForIn, errors.FatalError, stmt.Pos(), format, args...)
	}

	body := stmt.Body
	if block, ok := body.(*ast.BlockStatement); ok {
		if len(block.Statements) != 1 {
			return unsupported("for-in body over an abstract object must be a single assignment")
		}
		body = block.Statements[0]
	}
	es, ok := body.(*ast.ExpressionStatement)
	if !ok {
		return unsupported("for-in body over an abstract object must be a single assignment")
	}
	assign, ok := es.Expression.(*ast.AssignmentExpression)
	if !ok || assign.Operator != "=" {
		return unsupported("for-in body over an abstract object must be a plain assignment")
	}

	tm, ok := assign.Target.(*ast.MemberExpression)
	if !ok || !tm.Computed {
		return unsupported("for-in body must assign through target[key]")
	}
	sm, ok := assign.Value.(*ast.MemberExpression)
	if !ok || !sm.Computed {
		return unsupported("for-in body must copy from source[key]")
	}

	if !isLoopVarRef(tm.Property, keyVar, strict, loopEnv, r) || !isLoopVarRef(sm.Property, keyVar, strict, loopEnv, r) {
		return unsupported("for-in body must index both sides with the loop variable")
	}

	sc := r.EvaluateNode(sm.Object, strict, loopEnv)
	if sc.IsAbrupt() || sc.Value != runtime.Value(source) {
		return unsupported("for-in body must copy from the iterated object")
	}

	tc := r.EvaluateNode(tm.Object, strict, loopEnv)
	if tc.IsAbrupt() {
		return unsupported("for-in target is not a known object")
	}
	target, ok := runtime.AsObject(tc.Value)
	if !ok || !target.IsSimple() {
		return unsupported("for-in target must be a fresh or simple object")
	}
	return target, nil
}

// isLoopVarRef reports whether expr evaluates to the loop's key variable.
func isLoopVarRef(expr ast.Expression, keyVar *runtime.AbstractValue, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) bool {
	ident, ok := expr.(*ast.Identifier)
	if !ok {
		return false
	}
	ref := env.ResolveBinding(ident.Name, strict)
	if ref.IsUnresolvable() {
		return false
	}
	v, err := runtime.GetValue(r, ref)
	return err == nil && v == runtime.Value(keyVar)
}

// evalForOfStatement iterates concrete arrays element by element. Anything
// else is not soundly iterable at build time.
func (in *Interp) evalForOfStatement(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	stmt := n.(*ast.ForOfStatement)
	label := in.takeLabel()

	rc := r.EvaluateNode(stmt.Right, strict, env)
	if rc.IsAbrupt() {
		return rc
	}
	obj, ok := runtime.AsObject(rc.Value)
	if !ok || !isArrayObject(obj) {
		r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeUnsupportedIteration, errors.FatalError,
			stmt.Right.Pos(), "for-of is supported only over arrays known at build time"))
	}

	length := arrayLength(obj)
	var lastValue runtime.Value = runtime.Undefined
	for i := 0; i < length; i++ {
		el, err := obj.Get(r, runtime.StringKey(runtime.NumberToString(float64(i))), obj.SelfValue())
		if err != nil {
			return r.CompletionFromError(err)
		}
		if c := in.bindForLeft(stmt.Left, el, strict, env, r); c != nil {
			return c
		}
		c := r.EvaluateNode(stmt.Body, strict, env)
		if done, out := loopStep(c, label, &lastValue); done {
			return out
		}
	}
	return runtime.Normal(lastValue)
}

func isArrayObject(obj *runtime.ObjectValue) bool {
	_, ok := obj.Slot("Array")
	return ok
}

func arrayLength(obj *runtime.ObjectValue) int {
	d := obj.GetOwnProperty(runtime.StringKey("length"))
	if d == nil || !d.IsData() {
		return 0
	}
	if n, ok := d.Value.(runtime.NumberValue); ok {
		return int(n)
	}
	return 0
}
