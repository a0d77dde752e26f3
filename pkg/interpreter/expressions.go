package interpreter

import (
	"prebake/pkg/ast"
	"prebake/pkg/errors"
	"prebake/pkg/runtime"
)

func (in *Interp) evalIdentifier(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	ident := n.(*ast.Identifier)
	ref := env.ResolveBinding(ident.Name, strict)
	v, err := runtime.GetValue(r, ref)
	if err != nil {
		return r.CompletionFromError(err)
	}
	return runtime.Normal(v)
}

func (in *Interp) evalNumberLiteral(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	return runtime.Normal(runtime.NumberValue(n.(*ast.NumberLiteral).Value))
}

func (in *Interp) evalStringLiteral(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	return runtime.Normal(runtime.StringValue(n.(*ast.StringLiteral).Value))
}

func (in *Interp) evalBooleanLiteral(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	return runtime.Normal(runtime.NewBoolean(n.(*ast.BooleanLiteral).Value))
}

func (in *Interp) evalNullLiteral(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	return runtime.Normal(runtime.Null)
}

func (in *Interp) evalRegExpLiteral(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	lit := n.(*ast.RegExpLiteral)
	var proto runtime.Value = runtime.Null
	if r.Intrinsics.RegExpPrototype != nil {
		proto = r.Intrinsics.RegExpPrototype
	}
	obj := r.NewObject(proto)
	obj.SetSlot("RegExpSource", runtime.StringValue(lit.Pattern))
	obj.SetSlot("RegExpFlags", runtime.StringValue(lit.Flags))
	obj.DefineOwnProperty(runtime.StringKey("lastIndex"),
		runtime.NewDataDescriptor(runtime.NumberValue(0), true, false, false))
	return runtime.Normal(obj)
}

func (in *Interp) evalThisExpression(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	for e := env; e != nil; e = e.Parent {
		if e.Record.HasThisBinding() {
			v, err := e.Record.GetThisBinding(r)
			if err != nil {
				return r.CompletionFromError(err)
			}
			return runtime.Normal(v)
		}
	}
	return runtime.Normal(runtime.Undefined)
}

func (in *Interp) evalArrayLiteral(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	lit := n.(*ast.ArrayLiteral)
	elements := make([]runtime.Value, len(lit.Elements))
	for i, el := range lit.Elements {
		if el == nil {
			continue
		}
		c := r.EvaluateNode(el, strict, env)
		if c.IsAbrupt() {
			return c
		}
		elements[i] = c.Value
	}
	return runtime.Normal(r.NewArrayObject(elements))
}

func (in *Interp) evalObjectLiteral(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	lit := n.(*ast.ObjectLiteral)
	obj := r.NewPlainObject()
	for _, prop := range lit.Properties {
		key, c := in.propertyKeyOf(prop, strict, env, r)
		if c != nil {
			return c
		}
		vc := r.EvaluateNode(prop.Value, strict, env)
		if vc.IsAbrupt() {
			return vc
		}
		switch prop.Kind {
		case ast.PropertyInit:
			obj.DefineOwnProperty(key, runtime.DefaultDataDescriptor(vc.Value))
		case ast.PropertyGet, ast.PropertySet:
			get, set := runtime.Value(runtime.Undefined), runtime.Value(runtime.Undefined)
			if existing := obj.GetOwnProperty(key); existing != nil && existing.IsAccessor() {
				get, set = existing.Get, existing.Set
			}
			if prop.Kind == ast.PropertyGet {
				get = vc.Value
			} else {
				set = vc.Value
			}
			obj.DefineOwnProperty(key, runtime.NewAccessorDescriptor(get, set, true, true))
		}
	}
	return runtime.Normal(obj)
}

// propertyKeyOf resolves an object-literal property key. The returned
// completion is non-nil on abrupt exit.
func (in *Interp) propertyKeyOf(prop *ast.ObjectProperty, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) (runtime.PropertyKey, *runtime.Completion) {
	if prop.Computed {
		c := r.EvaluateNode(prop.Key, strict, env)
		if c.IsAbrupt() {
			return runtime.PropertyKey{}, c
		}
		if !runtime.IsConcrete(c.Value) {
			r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeNotSimpleAccess, errors.FatalError,
				prop.Key.Pos(), "computed property key in object literal is not concrete"))
		}
		key, err := runtime.ToPropertyKey(r, c.Value)
		if err != nil {
			return runtime.PropertyKey{}, r.CompletionFromError(err)
		}
		return key, nil
	}
	switch k := prop.Key.(type) {
	case *ast.Identifier:
		return runtime.StringKey(k.Name), nil
	case *ast.StringLiteral:
		return runtime.StringKey(k.Value), nil
	case *ast.NumberLiteral:
		return runtime.StringKey(runtime.NumberToString(k.Value)), nil
	default:
		errors.InvariantFailed("object literal key of kind %s", prop.Key.Kind())
		return runtime.PropertyKey{}, nil
	}
}

func (in *Interp) evalFunctionLiteral(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	lit := n.(*ast.FunctionLiteral)
	fnEnv := env
	// A named function expression can refer to itself; give it a scope with
	// an immutable self binding.
	if lit.Name != nil {
		fnEnv = runtime.NewDeclarativeEnvironment(env)
	}
	fn := in.instantiateFunction(lit, fnEnv, strict)
	if lit.Name != nil {
		fnEnv.Record.CreateImmutableBinding(r, lit.Name.Name, false)
		fnEnv.Record.InitializeBinding(r, lit.Name.Name, fn)
	}
	return runtime.Normal(fn)
}

func (in *Interp) evalSequence(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	seq := n.(*ast.SequenceExpression)
	var last runtime.Value = runtime.Undefined
	for _, e := range seq.Expressions {
		c := r.EvaluateNode(e, strict, env)
		if c.IsAbrupt() {
			return c
		}
		last = c.Value
	}
	return runtime.Normal(last)
}

// --- References ---

// evalReference resolves an expression in reference position (assignment
// targets, delete, update, callee this-binding). The returned completion is
// non-nil on abrupt exit.
func (in *Interp) evalReference(expr ast.Expression, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) (runtime.Reference, *runtime.Completion) {
	switch e := expr.(type) {
	case *ast.Identifier:
		return env.ResolveBinding(e.Name, strict), nil
	case *ast.MemberExpression:
		oc := r.EvaluateNode(e.Object, strict, env)
		if oc.IsAbrupt() {
			return runtime.Reference{}, oc
		}
		base := oc.Value
		var nameVal runtime.Value
		if e.Computed {
			pc := r.EvaluateNode(e.Property, strict, env)
			if pc.IsAbrupt() {
				return runtime.Reference{}, pc
			}
			if runtime.IsConcrete(pc.Value) {
				key, err := runtime.ToPropertyKey(r, pc.Value)
				if err != nil {
					return runtime.Reference{}, r.CompletionFromError(err)
				}
				nameVal = key.KeyValue()
			} else {
				nameVal = pc.Value
			}
		} else {
			nameVal = runtime.StringValue(e.Property.(*ast.Identifier).Name)
		}
		return runtime.Reference{Base: base, Name: nameVal, Strict: strict}, nil
	default:
		return runtime.Reference{}, r.CompletionFromError(
			r.NewReferenceError("Invalid left-hand side expression"))
	}
}

// --- Assignment ---

func (in *Interp) evalAssignment(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	a := n.(*ast.AssignmentExpression)
	ref, c := in.evalReference(a.Target, strict, env, r)
	if c != nil {
		return c
	}

	var value runtime.Value
	if a.Operator == "=" {
		vc := r.EvaluateNode(a.Value, strict, env)
		if vc.IsAbrupt() {
			return vc
		}
		value = vc.Value
	} else {
		// Compound assignment: read, compute, write.
		old, err := in.refGetForCompound(ref, r)
		if err != nil {
			return r.CompletionFromError(err)
		}
		vc := r.EvaluateNode(a.Value, strict, env)
		if vc.IsAbrupt() {
			return vc
		}
		op := a.Operator[:len(a.Operator)-1]
		value, err = in.applyBinary(op, old, vc.Value, r)
		if err != nil {
			return r.CompletionFromError(err)
		}
	}

	if c := in.putReference(ref, value, r); c != nil {
		return c
	}
	return runtime.Normal(value)
}

// refGetForCompound reads through a reference for compound assignment,
// tolerating abstract bases by deriving the read.
func (in *Interp) refGetForCompound(ref runtime.Reference, r *runtime.Realm) (runtime.Value, error) {
	if ref.IsPropertyReference() && !runtime.IsConcrete(ref.Base) {
		return in.deriveMemberRead(ref.Base, ref.Name, r), nil
	}
	return runtime.GetValue(r, ref)
}

// putReference writes a value through a reference, residualizing writes
// whose base or key is abstract. Returns a completion on abrupt exit.
func (in *Interp) putReference(ref runtime.Reference, value runtime.Value, r *runtime.Realm) *runtime.Completion {
	if ref.IsPropertyReference() {
		base := ref.Base
		if !runtime.IsConcrete(base) {
			// Write through an unknown base is a residual effect.
			if key, ok := ref.Key(); ok {
				r.Generator.EmitPropertyAssignment(base, key, value)
			} else {
				r.Generator.EmitComputedPropertyAssignment(base, ref.Name, value)
			}
			return nil
		}
		if _, ok := ref.Key(); !ok {
			// Concrete base, abstract key: the object's future state is
			// unknowable, so it becomes partial and the write residual.
			obj, isObj := runtime.AsObject(base)
			if !isObj {
				return r.CompletionFromError(r.NewTypeError("Cannot set property on primitive with abstract key"))
			}
			obj.MakePartial()
			r.Generator.EmitComputedPropertyAssignment(base, ref.Name, value)
			return nil
		}
	}
	if err := runtime.PutValue(r, ref, value); err != nil {
		return r.CompletionFromError(err)
	}
	return nil
}

// --- Update expressions ---

func (in *Interp) evalUpdate(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	u := n.(*ast.UpdateExpression)
	ref, c := in.evalReference(u.Argument, strict, env, r)
	if c != nil {
		return c
	}
	old, err := in.refGetForCompound(ref, r)
	if err != nil {
		return r.CompletionFromError(err)
	}

	op := "+"
	if u.Operator == "--" {
		op = "-"
	}

	var oldNum, newVal runtime.Value
	if runtime.IsConcrete(old) {
		f, err := runtime.ToNumber(r, old)
		if err != nil {
			return r.CompletionFromError(err)
		}
		oldNum = runtime.NumberValue(f)
		if op == "+" {
			newVal = runtime.NumberValue(f + 1)
		} else {
			newVal = runtime.NumberValue(f - 1)
		}
	} else {
		oldNum = old
		newVal = r.CreateAbstract(runtime.FlagNumber, runtime.ValuesTop,
			[]runtime.Value{old, runtime.NumberValue(1)}, runtime.BinaryTemplate(op), runtime.KindNone)
	}

	if c := in.putReference(ref, newVal, r); c != nil {
		return c
	}
	if u.Prefix {
		return runtime.Normal(newVal)
	}
	return runtime.Normal(oldNum)
}

// --- Member access ---

func (in *Interp) evalMember(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	m := n.(*ast.MemberExpression)
	ref, c := in.evalReference(m, strict, env, r)
	if c != nil {
		return c
	}
	v, comp := in.memberGet(ref, m, r)
	if comp != nil {
		return comp
	}
	return runtime.Normal(v)
}

// memberGet dereferences a property reference, deriving abstract reads
// where the base or key is not concrete.
func (in *Interp) memberGet(ref runtime.Reference, node ast.Node, r *runtime.Realm) (runtime.Value, *runtime.Completion) {
	base := ref.Base
	if !runtime.IsConcrete(base) {
		ao, isAbstractObj := base.(*runtime.AbstractObjectValue)
		if !isAbstractObj {
			av := base.(*runtime.AbstractValue)
			if av.Types()&(runtime.FlagUndefined|runtime.FlagNull) != 0 {
				r.ReportDiagnostic(errors.NewDiagnostic(errors.CodePossiblyNullAccess, errors.FatalError,
					node.Pos(), "member access on a value that may be undefined or null"))
			}
			return in.deriveMemberRead(base, ref.Name, r), nil
		}
		if !ao.IsSimple() {
			r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeNotSimpleAccess, errors.FatalError,
				node.Pos(), "property access on an abstract object that is not simple"))
		}
		return in.deriveMemberRead(base, ref.Name, r), nil
	}
	if _, ok := ref.Key(); !ok {
		// Concrete base, abstract key.
		obj, isObj := runtime.AsObject(base)
		if !isObj {
			return in.deriveMemberRead(base, ref.Name, r), nil
		}
		if !obj.IsSimple() {
			r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeNotSimpleAccess, errors.FatalError,
				node.Pos(), "computed access with an abstract key on an object that is not simple"))
		}
		return in.deriveMemberRead(base, ref.Name, r), nil
	}
	v, err := runtime.GetValue(r, ref)
	if err != nil {
		return nil, r.CompletionFromError(err)
	}
	return v, nil
}

// deriveMemberRead mints the abstract value for a property read that cannot
// be resolved at build time. Pure: no generator entry is appended.
func (in *Interp) deriveMemberRead(base, name runtime.Value, r *runtime.Realm) runtime.Value {
	if s, ok := name.(runtime.StringValue); ok {
		return r.CreateAbstract(runtime.TypesTop, runtime.ValuesTop,
			[]runtime.Value{base}, runtime.MemberTemplate(string(s), false), runtime.KindSentinelMember)
	}
	return r.CreateAbstract(runtime.TypesTop, runtime.ValuesTop,
		[]runtime.Value{base, name}, runtime.ComputedMemberTemplate(), runtime.KindSentinelMember)
}

// --- Calls ---

func (in *Interp) evalCall(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	call := n.(*ast.CallExpression)

	var this runtime.Value = runtime.Undefined
	var callee runtime.Value

	if member, ok := call.Callee.(*ast.MemberExpression); ok {
		ref, c := in.evalReference(member, strict, env, r)
		if c != nil {
			return c
		}
		this = ref.Base
		v, comp := in.memberGet(ref, member, r)
		if comp != nil {
			return comp
		}
		callee = v
	} else {
		c := r.EvaluateNode(call.Callee, strict, env)
		if c.IsAbrupt() {
			return c
		}
		callee = c.Value
	}

	args := make([]runtime.Value, len(call.Arguments))
	for i, a := range call.Arguments {
		c := r.EvaluateNode(a, strict, env)
		if c.IsAbrupt() {
			return c
		}
		args[i] = c.Value
	}

	if fn, ok := runtime.AsFunction(callee); ok {
		result, err := r.CallFunction(fn, this, args)
		if err != nil {
			return r.CompletionFromError(err)
		}
		return runtime.Normal(result)
	}

	if !runtime.IsConcrete(callee) {
		if !runtime.MightBeFunction(callee) && callee.Types() != runtime.TypesTop &&
			callee.Types()&(runtime.FlagObject|runtime.FlagFunction) == 0 {
			return r.CompletionFromError(r.NewTypeError("callee is not a function"))
		}
		// Residual call through an unknown function.
		derived := r.Generator.Derive(runtime.TypesTop, runtime.ValuesTop,
			append([]runtime.Value{callee}, args...), runtime.CallTemplate(),
			runtime.DeriveOptions{Kind: runtime.KindResidualCall, SkipInvariant: true})
		return runtime.Normal(derived)
	}

	return r.CompletionFromError(r.NewTypeError(callee.Display() + " is not a function"))
}

func (in *Interp) evalNew(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	ne := n.(*ast.NewExpression)
	c := r.EvaluateNode(ne.Callee, strict, env)
	if c.IsAbrupt() {
		return c
	}
	callee := c.Value

	args := make([]runtime.Value, len(ne.Arguments))
	for i, a := range ne.Arguments {
		ac := r.EvaluateNode(a, strict, env)
		if ac.IsAbrupt() {
			return ac
		}
		args[i] = ac.Value
	}

	if fn, ok := runtime.AsFunction(callee); ok {
		result, err := r.Construct(fn, args)
		if err != nil {
			return r.CompletionFromError(err)
		}
		return runtime.Normal(result)
	}
	if !runtime.IsConcrete(callee) {
		template := func(argExprs []ast.Expression) ast.Expression {
			return &ast.NewExpression{Callee: argExprs[0], Arguments: argExprs[1:]}
		}
		derived := r.Generator.Derive(runtime.FlagObject, runtime.ValuesTop,
			append([]runtime.Value{callee}, args...), template,
			runtime.DeriveOptions{Kind: runtime.KindResidualCall, SkipInvariant: true})
		return runtime.Normal(derived)
	}
	return r.CompletionFromError(r.NewTypeError(callee.Display() + " is not a constructor"))
}
