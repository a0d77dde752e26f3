package interpreter

import (
	"math"
	"strings"

	"prebake/pkg/ast"
	"prebake/pkg/runtime"
)

func (in *Interp) evalUnary(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	u := n.(*ast.UnaryExpression)

	switch u.Operator {
	case "typeof":
		return in.evalTypeof(u, strict, env, r)
	case "delete":
		return in.evalDelete(u, strict, env, r)
	}

	c := r.EvaluateNode(u.Argument, strict, env)
	if c.IsAbrupt() {
		return c
	}
	v := c.Value

	if !runtime.IsConcrete(v) {
		return runtime.Normal(in.deriveUnary(u.Operator, v, r))
	}

	switch u.Operator {
	case "void":
		return runtime.Normal(runtime.Undefined)
	case "!":
		return runtime.Normal(runtime.NewBoolean(!runtime.ToBooleanConcrete(v)))
	case "-":
		f, err := runtime.ToNumber(r, v)
		if err != nil {
			return r.CompletionFromError(err)
		}
		return runtime.Normal(runtime.NumberValue(-f))
	case "+":
		f, err := runtime.ToNumber(r, v)
		if err != nil {
			return r.CompletionFromError(err)
		}
		return runtime.Normal(runtime.NumberValue(f))
	case "~":
		f, err := runtime.ToNumber(r, v)
		if err != nil {
			return r.CompletionFromError(err)
		}
		return runtime.Normal(runtime.NumberValue(float64(^runtime.ToInt32(f))))
	}
	return r.CompletionFromError(r.NewSyntaxError("unsupported unary operator " + u.Operator))
}

// deriveUnary mints the abstract result of a unary operator applied to an
// abstract operand, with the tightest types domain the operator admits.
func (in *Interp) deriveUnary(op string, v runtime.Value, r *runtime.Realm) runtime.Value {
	types := runtime.TypesTop
	switch op {
	case "!":
		types = runtime.FlagBoolean
	case "-", "+", "~":
		types = runtime.FlagNumber
	case "void":
		return runtime.Undefined
	}
	return r.CreateAbstract(types, runtime.ValuesTop, []runtime.Value{v}, runtime.UnaryTemplate(op), runtime.KindNone)
}

func (in *Interp) evalTypeof(u *ast.UnaryExpression, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	// typeof of an unresolvable identifier is "undefined", not an error.
	if ident, ok := u.Argument.(*ast.Identifier); ok {
		ref := env.ResolveBinding(ident.Name, strict)
		if ref.IsUnresolvable() {
			return runtime.Normal(runtime.StringValue("undefined"))
		}
	}
	c := r.EvaluateNode(u.Argument, strict, env)
	if c.IsAbrupt() {
		return c
	}
	v := c.Value
	if runtime.IsConcrete(v) {
		return runtime.Normal(runtime.StringValue(runtime.TypeOfString(v)))
	}
	if v.Types().IsSingleType() && v.Types() != runtime.FlagObject {
		// The abstract value's type is pinned; typeof folds.
		switch v.Types() {
		case runtime.FlagUndefined:
			return runtime.Normal(runtime.StringValue("undefined"))
		case runtime.FlagNull:
			return runtime.Normal(runtime.StringValue("object"))
		case runtime.FlagBoolean:
			return runtime.Normal(runtime.StringValue("boolean"))
		case runtime.FlagNumber:
			return runtime.Normal(runtime.StringValue("number"))
		case runtime.FlagString:
			return runtime.Normal(runtime.StringValue("string"))
		case runtime.FlagSymbol:
			return runtime.Normal(runtime.StringValue("symbol"))
		case runtime.FlagFunction:
			return runtime.Normal(runtime.StringValue("function"))
		}
	}
	if v.Types() == runtime.FlagObject {
		return runtime.Normal(runtime.StringValue("object"))
	}
	derived := r.CreateAbstract(runtime.FlagString, runtime.ValuesTop,
		[]runtime.Value{v}, runtime.UnaryTemplate("typeof"), runtime.KindTypeofCheck)
	return runtime.Normal(derived)
}

func (in *Interp) evalDelete(u *ast.UnaryExpression, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	member, ok := u.Argument.(*ast.MemberExpression)
	if !ok {
		if ident, isIdent := u.Argument.(*ast.Identifier); isIdent {
			if strict {
				return r.CompletionFromError(r.NewSyntaxError("Delete of an unqualified identifier in strict mode."))
			}
			ref := env.ResolveBinding(ident.Name, strict)
			if ref.IsUnresolvable() {
				return runtime.Normal(runtime.True)
			}
			// The deletion folds into the heap; the residualizer emits a
			// delete statement if a baseline global went away.
			deleted := ref.BaseEnv.DeleteBinding(r, ident.Name)
			return runtime.Normal(runtime.NewBoolean(deleted))
		}
		// delete of a non-reference is true.
		c := r.EvaluateNode(u.Argument, strict, env)
		if c.IsAbrupt() {
			return c
		}
		return runtime.Normal(runtime.True)
	}

	ref, c := in.evalReference(member, strict, env, r)
	if c != nil {
		return c
	}
	if !runtime.IsConcrete(ref.Base) {
		if key, ok := ref.Key(); ok {
			r.Generator.EmitPropertyDelete(ref.Base, key)
			return runtime.Normal(runtime.True)
		}
	}
	obj, isObj := runtime.AsObject(ref.Base)
	if !isObj {
		return runtime.Normal(runtime.True)
	}
	key, ok := ref.Key()
	if !ok {
		obj.MakePartial()
		r.Generator.EmitComputedPropertyAssignment(ref.Base, ref.Name, runtime.Undefined)
		return runtime.Normal(runtime.True)
	}
	deleted := obj.DeleteOwnProperty(key)
	if !deleted && strict {
		return r.CompletionFromError(r.NewTypeError("Cannot delete property '" + key.String() + "'"))
	}
	return runtime.Normal(runtime.NewBoolean(deleted))
}

// --- Binary operators ---

func (in *Interp) evalBinary(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	b := n.(*ast.BinaryExpression)
	lc := r.EvaluateNode(b.Left, strict, env)
	if lc.IsAbrupt() {
		return lc
	}
	rc := r.EvaluateNode(b.Right, strict, env)
	if rc.IsAbrupt() {
		return rc
	}
	v, err := in.applyBinary(b.Operator, lc.Value, rc.Value, r)
	if err != nil {
		return r.CompletionFromError(err)
	}
	return runtime.Normal(v)
}

// applyBinary computes a binary operator. Abstract operands yield a derived
// abstract value with the operator's result type.
func (in *Interp) applyBinary(op string, left, right runtime.Value, r *runtime.Realm) (runtime.Value, error) {
	if !runtime.IsConcrete(left) || !runtime.IsConcrete(right) {
		return r.CreateAbstract(binaryResultTypes(op, left, right), runtime.ValuesTop,
			[]runtime.Value{left, right}, runtime.BinaryTemplate(op), runtime.KindNone), nil
	}

	switch op {
	case "+":
		lp, err := runtime.ToPrimitive(r, left, "")
		if err != nil {
			return nil, err
		}
		rp, err := runtime.ToPrimitive(r, right, "")
		if err != nil {
			return nil, err
		}
		_, lStr := lp.(runtime.StringValue)
		_, rStr := rp.(runtime.StringValue)
		if lStr || rStr {
			ls, err := runtime.ToStringValue(r, lp)
			if err != nil {
				return nil, err
			}
			rs, err := runtime.ToStringValue(r, rp)
			if err != nil {
				return nil, err
			}
			return runtime.StringValue(ls + rs), nil
		}
		ln, err := runtime.ToNumber(r, lp)
		if err != nil {
			return nil, err
		}
		rn, err := runtime.ToNumber(r, rp)
		if err != nil {
			return nil, err
		}
		return runtime.NumberValue(ln + rn), nil

	case "-", "*", "/", "%":
		ln, err := runtime.ToNumber(r, left)
		if err != nil {
			return nil, err
		}
		rn, err := runtime.ToNumber(r, right)
		if err != nil {
			return nil, err
		}
		switch op {
		case "-":
			return runtime.NumberValue(ln - rn), nil
		case "*":
			return runtime.NumberValue(ln * rn), nil
		case "/":
			return runtime.NumberValue(ln / rn), nil
		default:
			return runtime.NumberValue(math.Mod(ln, rn)), nil
		}

	case "&", "|", "^", "<<", ">>", ">>>":
		ln, err := runtime.ToNumber(r, left)
		if err != nil {
			return nil, err
		}
		rn, err := runtime.ToNumber(r, right)
		if err != nil {
			return nil, err
		}
		li := runtime.ToInt32(ln)
		shift := uint32(runtime.ToUint32(rn)) & 31
		switch op {
		case "&":
			return runtime.NumberValue(float64(li & runtime.ToInt32(rn))), nil
		case "|":
			return runtime.NumberValue(float64(li | runtime.ToInt32(rn))), nil
		case "^":
			return runtime.NumberValue(float64(li ^ runtime.ToInt32(rn))), nil
		case "<<":
			return runtime.NumberValue(float64(li << shift)), nil
		case ">>":
			return runtime.NumberValue(float64(li >> shift)), nil
		default:
			return runtime.NumberValue(float64(runtime.ToUint32(ln) >> shift)), nil
		}

	case "<", ">", "<=", ">=":
		return in.applyRelational(op, left, right, r)

	case "==":
		eq, err := runtime.AbstractEquals(r, left, right)
		if err != nil {
			return nil, err
		}
		return runtime.NewBoolean(eq), nil
	case "!=":
		eq, err := runtime.AbstractEquals(r, left, right)
		if err != nil {
			return nil, err
		}
		return runtime.NewBoolean(!eq), nil
	case "===":
		return runtime.NewBoolean(runtime.StrictEquals(left, right)), nil
	case "!==":
		return runtime.NewBoolean(!runtime.StrictEquals(left, right)), nil

	case "in":
		obj, ok := runtime.AsObject(right)
		if !ok {
			return nil, r.NewTypeError("Cannot use 'in' operator to search in non-object")
		}
		key, err := runtime.ToPropertyKey(r, left)
		if err != nil {
			return nil, err
		}
		return runtime.NewBoolean(obj.HasProperty(key)), nil

	case "instanceof":
		fn, ok := runtime.AsFunction(right)
		if !ok {
			return nil, r.NewTypeError("Right-hand side of 'instanceof' is not callable")
		}
		protoDesc := fn.GetOwnProperty(runtime.StringKey("prototype"))
		if protoDesc == nil || !protoDesc.IsData() {
			return runtime.False, nil
		}
		obj, ok := runtime.AsObject(left)
		if !ok {
			return runtime.False, nil
		}
		for {
			proto, ok := runtime.AsObject(obj.Prototype)
			if !ok {
				return runtime.False, nil
			}
			if protoObj, isObj := runtime.AsObject(protoDesc.Value); isObj && proto == protoObj {
				return runtime.True, nil
			}
			obj = proto
		}
	}
	return nil, r.NewSyntaxError("unsupported binary operator " + op)
}

func (in *Interp) applyRelational(op string, left, right runtime.Value, r *runtime.Realm) (runtime.Value, error) {
	lp, err := runtime.ToPrimitive(r, left, "number")
	if err != nil {
		return nil, err
	}
	rp, err := runtime.ToPrimitive(r, right, "number")
	if err != nil {
		return nil, err
	}
	ls, lStr := lp.(runtime.StringValue)
	rs, rStr := rp.(runtime.StringValue)
	if lStr && rStr {
		cmp := strings.Compare(string(ls), string(rs))
		switch op {
		case "<":
			return runtime.NewBoolean(cmp < 0), nil
		case ">":
			return runtime.NewBoolean(cmp > 0), nil
		case "<=":
			return runtime.NewBoolean(cmp <= 0), nil
		default:
			return runtime.NewBoolean(cmp >= 0), nil
		}
	}
	ln, err := runtime.ToNumber(r, lp)
	if err != nil {
		return nil, err
	}
	rn, err := runtime.ToNumber(r, rp)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(ln) || math.IsNaN(rn) {
		return runtime.False, nil
	}
	switch op {
	case "<":
		return runtime.NewBoolean(ln < rn), nil
	case ">":
		return runtime.NewBoolean(ln > rn), nil
	case "<=":
		return runtime.NewBoolean(ln <= rn), nil
	default:
		return runtime.NewBoolean(ln >= rn), nil
	}
}

// binaryResultTypes returns the result types domain for an operator over
// possibly-abstract operands.
func binaryResultTypes(op string, left, right runtime.Value) runtime.TypeFlag {
	switch op {
	case "+":
		lt, rt := left.Types(), right.Types()
		if lt == runtime.FlagString || rt == runtime.FlagString {
			return runtime.FlagString
		}
		if lt&runtime.FlagString == 0 && rt&runtime.FlagString == 0 &&
			lt&(runtime.FlagObject|runtime.FlagFunction) == 0 && rt&(runtime.FlagObject|runtime.FlagFunction) == 0 {
			return runtime.FlagNumber
		}
		return runtime.FlagString | runtime.FlagNumber
	case "-", "*", "/", "%", "&", "|", "^", "<<", ">>", ">>>":
		return runtime.FlagNumber
	case "<", ">", "<=", ">=", "==", "!=", "===", "!==", "in", "instanceof":
		return runtime.FlagBoolean
	default:
		return runtime.TypesTop
	}
}

// --- Logical and conditional expressions ---

func (in *Interp) evalLogical(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	l := n.(*ast.LogicalExpression)
	lc := r.EvaluateNode(l.Left, strict, env)
	if lc.IsAbrupt() {
		return lc
	}
	left := lc.Value

	if runtime.IsConcrete(left) {
		takeRight := false
		switch l.Operator {
		case "&&":
			takeRight = runtime.ToBooleanConcrete(left)
		case "||":
			takeRight = !runtime.ToBooleanConcrete(left)
		case "??":
			switch left.(type) {
			case runtime.UndefinedValue, runtime.NullValue:
				takeRight = true
			}
		}
		if !takeRight {
			return runtime.Normal(left)
		}
		return r.EvaluateNode(l.Right, strict, env)
	}

	// Abstract guard: speculate the right side.
	effects := r.EvaluateNodeForEffects(l.Right, strict, env)
	if effects.Completion.IsAbrupt() {
		return in.materializeGuardedAbrupt(left, effects, l.Operator, r)
	}
	rightVal := effects.Completion.Value
	if rightVal == nil {
		rightVal = runtime.Undefined
	}

	if len(effects.Items) == 0 && effects.Fragment.Empty() {
		// Pure right side: fold into one abstract logical expression.
		return runtime.Normal(r.CreateAbstract(left.Types()|rightVal.Types(), runtime.ValuesTop,
			[]runtime.Value{left, rightVal}, runtime.LogicalTemplate(l.Operator), runtime.KindNone))
	}

	// Effectful right side: join against an empty branch under the guard.
	cond := in.logicalGuard(l.Operator, left, r)
	empty := &runtime.Effects{Completion: runtime.Empty(), Fragment: runtime.NewGenerator(r, "empty")}
	if diag := r.JoinEffects(cond, effects, empty); diag != nil {
		r.ReportDiagnostic(diag)
	}
	r.Generator.EmitConditional(cond, effects.Fragment, empty.Fragment)
	return runtime.Normal(r.JoinValues(cond, rightVal, left))
}

// logicalGuard returns the condition under which the right side of a
// logical operator runs.
func (in *Interp) logicalGuard(op string, left runtime.Value, r *runtime.Realm) runtime.Value {
	switch op {
	case "&&":
		return left
	case "||":
		return r.CreateAbstract(runtime.FlagBoolean, runtime.ValuesTop,
			[]runtime.Value{left}, runtime.UnaryTemplate("!"), runtime.KindNone)
	default: // ??
		return r.CreateAbstract(runtime.FlagBoolean, runtime.ValuesTop,
			[]runtime.Value{left, runtime.Null}, runtime.BinaryTemplate("=="), runtime.KindNone)
	}
}

// materializeGuardedAbrupt handles an abrupt speculative right side of a
// logical operator: a throw is residualized under the guard; anything else
// cannot be soundly joined.
func (in *Interp) materializeGuardedAbrupt(left runtime.Value, effects *runtime.Effects, op string, r *runtime.Realm) *runtime.Completion {
	return in.materializeConditionalAbrupt(in.logicalGuard(op, left, r), effects, left, r)
}

func (in *Interp) evalConditional(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	ce := n.(*ast.ConditionalExpression)
	tc := r.EvaluateNode(ce.Test, strict, env)
	if tc.IsAbrupt() {
		return tc
	}
	test := tc.Value

	if runtime.IsConcrete(test) {
		if runtime.ToBooleanConcrete(test) {
			return r.EvaluateNode(ce.Consequent, strict, env)
		}
		return r.EvaluateNode(ce.Alternate, strict, env)
	}

	return in.joinBranches(test, ce.Consequent, ce.Alternate, strict, env, r)
}
