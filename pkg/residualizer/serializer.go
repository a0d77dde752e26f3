package residualizer

import (
	"prebake/pkg/ast"
	"prebake/pkg/runtime"
)

// emitGenerator renders a generator's entries, in recorded order, into
// body. Object declarations demanded by argument serialization always land
// in the top-level body, so identifiers are declared before use even when
// the demanding entry sits inside a conditional child.
func (res *Residualizer) emitGenerator(g *runtime.Generator, body *[]ast.Statement) {
	for _, entry := range g.Entries {
		if entry.Pure && !res.emitPureEntry(entry) {
			continue
		}
		if entry.Declared != nil && entry.Declared.BoundName == "" {
			entry.Declared.BoundName = res.nameGen.Generate(string(entry.Declared.Kind))
		}

		argExprs := make([]ast.Expression, len(entry.Args))
		for i, a := range entry.Args {
			argExprs[i] = res.serializeValue(a)
		}

		var childBodies [][]ast.Statement
		for _, child := range entry.Children {
			var childBody []ast.Statement
			res.emitGenerator(child, &childBody)
			childBodies = append(childBodies, childBody)
		}

		stmt := entry.BuildNode(argExprs, res.ctx, childBodies)
		*body = append(*body, stmt)
	}
}

// emitPureEntry decides whether a delayed pure entry survives: declared
// entries only when demanded, invariant guards only when every declared
// value they reference survived.
func (res *Residualizer) emitPureEntry(entry *runtime.GeneratorEntry) bool {
	if entry.Declared != nil {
		return res.required[entry]
	}
	for _, a := range entry.Args {
		if av, ok := a.(*runtime.AbstractValue); ok {
			if declEntry, declared := res.declaredBy[av]; declared && !res.required[declEntry] {
				return false
			}
		}
	}
	return true
}

// --- Value serialization ---

// serializeValue renders a value as a source expression: literals for
// primitives, identifiers for declared abstracts and already-serialized
// objects, recursive shells for freshly reached objects.
func (res *Residualizer) serializeValue(v runtime.Value) ast.Expression {
	switch x := v.(type) {
	case nil:
		return &ast.Identifier{Name: "undefined"}
	case runtime.UndefinedValue:
		return &ast.Identifier{Name: "undefined"}
	case runtime.NullValue:
		return &ast.NullLiteral{}
	case runtime.BooleanValue:
		return &ast.BooleanLiteral{Value: bool(x)}
	case runtime.NumberValue:
		return numberExpr(float64(x))
	case runtime.StringValue:
		return &ast.StringLiteral{Value: string(x)}
	case *runtime.SymbolValue:
		return &ast.CallExpression{
			Callee:    &ast.Identifier{Name: "Symbol"},
			Arguments: []ast.Expression{&ast.StringLiteral{Value: x.Description}},
		}
	case *runtime.AbstractValue:
		return res.serializeAbstract(x)
	case *runtime.AbstractObjectValue:
		return res.serializeAbstract(&x.AbstractValue)
	case *runtime.FunctionValue:
		return res.serializeFunction(x)
	case *runtime.ObjectValue:
		return res.serializeObject(x, "")
	default:
		fatal("cannot serialize value %s", v.Display())
		return nil
	}
}

func (res *Residualizer) serializeAbstract(av *runtime.AbstractValue) ast.Expression {
	if av.BoundName != "" {
		return &ast.Identifier{Name: av.BoundName}
	}
	if av.Template == nil {
		fatal("abstract value %s has neither a bound name nor an origin template", av.Display())
	}
	argExprs := make([]ast.Expression, len(av.Args))
	for i, a := range av.Args {
		argExprs[i] = res.serializeValue(a)
	}
	return av.Template(argExprs)
}

func (res *Residualizer) serializeFunction(fn *runtime.FunctionValue) ast.Expression {
	if name, ok := res.objNames[&fn.ObjectValue]; ok {
		return &ast.Identifier{Name: name}
	}
	if fn.OriginalName != "" {
		return res.prelude.MemoizedRef(fn.OriginalName)
	}
	if fn.IsIntrinsic() {
		fatal("intrinsic function %q has no recorded path", fn.Name)
	}

	name := res.preferredNames[&fn.ObjectValue]
	if name == "" {
		name = res.nameGen.Generate(fn.Name)
	}
	res.objNames[&fn.ObjectValue] = name

	params := make([]*ast.Identifier, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = &ast.Identifier{Name: p}
	}
	res.body = append(res.body, &ast.VariableDeclaration{
		DeclKind: "var",
		Declarators: []*ast.VariableDeclarator{{
			Name: &ast.Identifier{Name: name},
			Init: &ast.FunctionLiteral{Params: params, Body: fn.Body},
		}},
	})
	return &ast.Identifier{Name: name}
}

// serializeObject declares a fresh object as a constructor-free shell
// followed by property assignments, so cycles need no forward references.
// preferredName, when valid, becomes the object's identifier.
func (res *Residualizer) serializeObject(obj *runtime.ObjectValue, preferredName string) ast.Expression {
	if fn, ok := obj.SelfValue().(*runtime.FunctionValue); ok {
		return res.serializeFunction(fn)
	}
	if name, ok := res.objNames[obj]; ok {
		return &ast.Identifier{Name: name}
	}
	if obj.OriginalName != "" {
		return res.prelude.MemoizedRef(obj.OriginalName)
	}
	if expr, ok := res.errorConstruction(obj); ok {
		return expr
	}

	name := preferredName
	if name == "" {
		name = res.preferredNames[obj]
	}
	if name == "" {
		name = res.nameGen.Generate("")
	}
	res.objNames[obj] = name

	res.body = append(res.body, &ast.VariableDeclaration{
		DeclKind: "var",
		Declarators: []*ast.VariableDeclarator{{
			Name: &ast.Identifier{Name: name},
			Init: res.objectShell(obj),
		}},
	})
	res.emitOwnProperties(obj, name)
	return &ast.Identifier{Name: name}
}

// objectShell picks the empty initializer for an object.
func (res *Residualizer) objectShell(obj *runtime.ObjectValue) ast.Expression {
	if _, isArr := obj.Slot("Array"); isArr {
		return &ast.ArrayLiteral{}
	}
	if src, isRegExp := obj.Slot("RegExpSource"); isRegExp {
		flags := ""
		if f, ok := obj.Slot("RegExpFlags"); ok {
			flags = string(f.(runtime.StringValue))
		}
		return &ast.RegExpLiteral{Pattern: string(src.(runtime.StringValue)), Flags: flags}
	}
	proto := obj.Prototype
	if protoObj, ok := runtime.AsObject(proto); ok && protoObj == res.realm.Intrinsics.ObjectPrototype {
		return &ast.ObjectLiteral{}
	}
	if _, isNull := proto.(runtime.NullValue); isNull {
		return &ast.CallExpression{
			Callee:    res.prelude.MemoizedRef("Object.create"),
			Arguments: []ast.Expression{&ast.NullLiteral{}},
		}
	}
	return &ast.CallExpression{
		Callee:    res.prelude.MemoizedRef("Object.create"),
		Arguments: []ast.Expression{res.serializeValue(proto)},
	}
}

// emitOwnProperties emits the post-shell property statements of an object.
func (res *Residualizer) emitOwnProperties(obj *runtime.ObjectValue, name string) {
	_, isArr := obj.Slot("Array")
	ref := func() ast.Expression { return &ast.Identifier{Name: name} }

	for _, key := range obj.OwnKeys() {
		d := obj.GetOwnProperty(key)
		if isArr && !key.IsSymbol() && key.Str == "length" {
			// Array length follows from the highest index assignment.
			continue
		}
		if key.IsSymbol() {
			// Symbol-keyed properties of fresh objects are not expressible
			// without shared symbol registries; skip them.
			continue
		}
		if d.IsAccessor() || !d.Writable || !d.Enumerable || !d.Configurable {
			res.emitDefinePropertyStmt(ref(), key, d)
			continue
		}
		res.body = append(res.body, &ast.ExpressionStatement{
			Expression: &ast.AssignmentExpression{
				Operator: "=",
				Target:   memberRef(ref(), key),
				Value:    res.serializeValue(d.Value),
			},
		})
	}
}

// emitDefinePropertyStmt reproduces a non-default descriptor with
// Object.defineProperty.
func (res *Residualizer) emitDefinePropertyStmt(target ast.Expression, key runtime.PropertyKey, d *runtime.Descriptor) {
	props := []*ast.ObjectProperty{}
	addFlag := func(name string, v bool) {
		props = append(props, &ast.ObjectProperty{
			Key:   &ast.Identifier{Name: name},
			Value: &ast.BooleanLiteral{Value: v},
		})
	}
	if d.IsData() {
		props = append(props, &ast.ObjectProperty{
			Key:   &ast.Identifier{Name: "value"},
			Value: res.serializeValue(d.Value),
		})
		addFlag("writable", d.Writable)
	} else {
		props = append(props, &ast.ObjectProperty{Key: &ast.Identifier{Name: "get"}, Value: res.serializeValue(d.Get)})
		props = append(props, &ast.ObjectProperty{Key: &ast.Identifier{Name: "set"}, Value: res.serializeValue(d.Set)})
	}
	addFlag("enumerable", d.Enumerable)
	addFlag("configurable", d.Configurable)

	res.body = append(res.body, &ast.ExpressionStatement{
		Expression: &ast.CallExpression{
			Callee: res.prelude.MemoizedRef("Object.defineProperty"),
			Arguments: []ast.Expression{
				target,
				&ast.StringLiteral{Value: key.Str},
				&ast.ObjectLiteral{Properties: props},
			},
		},
	})
}

// errorConstruction reconstructs a thrown error object as `new Kind(msg)`.
func (res *Residualizer) errorConstruction(obj *runtime.ObjectValue) (ast.Expression, bool) {
	kindVal, ok := obj.Slot("ErrorData")
	if !ok || res.isBaselineObject(obj) {
		return nil, false
	}
	kind := string(kindVal.(runtime.StringValue))
	var args []ast.Expression
	if d := obj.GetOwnProperty(runtime.StringKey("message")); d != nil && d.IsData() {
		args = append(args, res.serializeValue(d.Value))
	}
	return &ast.NewExpression{Callee: &ast.Identifier{Name: kind}, Arguments: args}, true
}

// --- Final heap and completion ---

// emitHeapDiff re-materializes the final heap: new globals become var
// declarations, changed intrinsic state becomes assignments, deletions
// become delete statements.
func (res *Residualizer) emitHeapDiff() {
	global := res.realm.GlobalObject
	snap := res.baseline[global]

	for _, key := range res.changedKeys(global) {
		d := global.GetOwnProperty(key)
		_, existed := snap[key]
		if key.IsSymbol() {
			continue
		}
		if !existed && isIdentifierName(key.Str) && d.IsData() {
			// Fresh global: declare it, naming any fresh object after it.
			if obj, isObj := runtime.AsObject(d.Value); isObj {
				if name, named := res.objNames[obj]; named && name == key.Str {
					continue // the shell declaration already carries the name
				}
				if _, named := res.objNames[obj]; !named && obj.OriginalName == "" && !res.isBaselineObject(obj) {
					res.serializeObject(obj, key.Str)
					continue
				}
			}
			init := res.serializeValue(d.Value)
			res.body = append(res.body, &ast.VariableDeclaration{
				DeclKind:    "var",
				Declarators: []*ast.VariableDeclarator{{Name: &ast.Identifier{Name: key.Str}, Init: init}},
			})
			continue
		}
		if d.IsData() && d.Writable && d.Enumerable {
			res.body = append(res.body, &ast.ExpressionStatement{
				Expression: &ast.AssignmentExpression{
					Operator: "=",
					Target:   res.prelude.GlobalPropertyRef(key.Str),
					Value:    res.serializeValue(d.Value),
				},
			})
			continue
		}
		res.emitDefinePropertyStmt(res.prelude.MemoizedRef("global"), key, d)
	}

	// Deleted globals, in baseline key order.
	for _, key := range res.baselineOrder[global] {
		if _, existed := snap[key]; !existed {
			continue
		}
		if !key.IsSymbol() && !global.HasOwn(key) {
			res.body = append(res.body, &ast.ExpressionStatement{
				Expression: &ast.UnaryExpression{Operator: "delete", Argument: res.prelude.GlobalPropertyRef(key.Str)},
			})
		}
	}

	// Mutated intrinsic singletons (Object.prototype and friends).
	for _, obj := range res.realm.Heap.Live() {
		if obj == global || !res.isBaselineObject(obj) || obj.OriginalName == "" {
			continue
		}
		for _, key := range res.changedKeys(obj) {
			d := obj.GetOwnProperty(key)
			if key.IsSymbol() {
				continue
			}
			target := res.prelude.MemoizedRef(obj.OriginalName)
			if d.IsData() && d.Writable && d.Configurable {
				res.body = append(res.body, &ast.ExpressionStatement{
					Expression: &ast.AssignmentExpression{
						Operator: "=",
						Target:   memberRef(target, key),
						Value:    res.serializeValue(d.Value),
					},
				})
			} else {
				res.emitDefinePropertyStmt(target, key, d)
			}
		}
	}
}

// emitCompletion re-materializes the program's completion: the completion
// value as a final expression statement, or a top-level throw.
func (res *Residualizer) emitCompletion(completion *runtime.Completion) {
	if completion == nil {
		return
	}
	switch completion.Type {
	case runtime.ThrowCompletion:
		res.body = append(res.body, &ast.ThrowStatement{Argument: res.serializeValue(completion.Value)})
	case runtime.NormalCompletion:
		if completion.Value == nil {
			return
		}
		if _, isUndef := completion.Value.(runtime.UndefinedValue); isUndef {
			return
		}
		res.body = append(res.body, &ast.ExpressionStatement{Expression: res.serializeValue(completion.Value)})
	}
}

// --- shared helpers ---

func memberRef(obj ast.Expression, key runtime.PropertyKey) ast.Expression {
	if isIdentifierName(key.Str) {
		return &ast.MemberExpression{Object: obj, Property: &ast.Identifier{Name: key.Str}}
	}
	if idx, ok := key.ArrayIndex(); ok {
		return &ast.MemberExpression{
			Object:   obj,
			Property: &ast.NumberLiteral{Value: float64(idx), Raw: key.Str},
			Computed: true,
		}
	}
	return &ast.MemberExpression{Object: obj, Property: &ast.StringLiteral{Value: key.Str}, Computed: true}
}

func numberExpr(f float64) ast.Expression {
	s := runtime.NumberToString(f)
	if len(s) > 0 && s[0] == '-' {
		return &ast.UnaryExpression{
			Operator: "-",
			Argument: &ast.NumberLiteral{Value: -f, Raw: s[1:]},
		}
	}
	return &ast.NumberLiteral{Value: f, Raw: s}
}

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
