// Package interpreter implements the per-node-kind evaluation routines of
// the abstract interpreter. It registers one evaluator per supported
// syntactic form on the realm and installs the user-function call paths.
package interpreter

import (
	"prebake/pkg/ast"
	"prebake/pkg/errors"
	"prebake/pkg/runtime"
)

// Interp binds the evaluator set to a realm.
type Interp struct {
	realm *runtime.Realm

	// pendingLabel carries the label of an enclosing labeled statement into
	// the next loop or switch evaluator.
	pendingLabel string
}

// Register installs the evaluator map and call hooks on the realm.
func Register(r *runtime.Realm) *Interp {
	in := &Interp{realm: r}

	evs := map[ast.NodeKind]runtime.Evaluator{
		ast.KindProgram:               in.evalProgram,
		ast.KindIdentifier:            in.evalIdentifier,
		ast.KindNumberLiteral:         in.evalNumberLiteral,
		ast.KindStringLiteral:         in.evalStringLiteral,
		ast.KindBooleanLiteral:        in.evalBooleanLiteral,
		ast.KindNullLiteral:           in.evalNullLiteral,
		ast.KindRegExpLiteral:         in.evalRegExpLiteral,
		ast.KindThisExpression:        in.evalThisExpression,
		ast.KindArrayLiteral:          in.evalArrayLiteral,
		ast.KindObjectLiteral:         in.evalObjectLiteral,
		ast.KindFunctionLiteral:       in.evalFunctionLiteral,
		ast.KindAssignmentExpression:  in.evalAssignment,
		ast.KindUpdateExpression:      in.evalUpdate,
		ast.KindUnaryExpression:       in.evalUnary,
		ast.KindBinaryExpression:      in.evalBinary,
		ast.KindLogicalExpression:     in.evalLogical,
		ast.KindConditionalExpression: in.evalConditional,
		ast.KindCallExpression:        in.evalCall,
		ast.KindNewExpression:         in.evalNew,
		ast.KindMemberExpression:      in.evalMember,
		ast.KindSequenceExpression:    in.evalSequence,

		ast.KindVariableDeclaration: in.evalVariableDeclaration,
		ast.KindFunctionDeclaration: in.evalFunctionDeclaration,
		ast.KindExpressionStatement: in.evalExpressionStatement,
		ast.KindBlockStatement:      in.evalBlockStatement,
		ast.KindIfStatement:         in.evalIfStatement,
		ast.KindWhileStatement:      in.evalWhileStatement,
		ast.KindDoWhileStatement:    in.evalDoWhileStatement,
		ast.KindForStatement:        in.evalForStatement,
		ast.KindForInStatement:      in.evalForInStatement,
		ast.KindForOfStatement:      in.evalForOfStatement,
		ast.KindSwitchStatement:     in.evalSwitchStatement,
		ast.KindBreakStatement:      in.evalBreakStatement,
		ast.KindContinueStatement:   in.evalContinueStatement,
		ast.KindReturnStatement:     in.evalReturnStatement,
		ast.KindThrowStatement:      in.evalThrowStatement,
		ast.KindTryStatement:        in.evalTryStatement,
		ast.KindLabeledStatement:    in.evalLabeledStatement,
		ast.KindEmptyStatement:      in.evalEmptyStatement,
	}
	for kind, ev := range evs {
		r.Evaluators[kind] = ev
	}

	r.SetCallHooks(in.callUserFunction, in.construct)
	return in
}

// --- Program evaluation ---

// evalProgram performs global declaration instantiation (function and var
// hoisting) and then evaluates the statement list.
func (in *Interp) evalProgram(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	prog := n.(*ast.Program)
	strict = strict || prog.Strict

	global, ok := env.Record.(*runtime.GlobalRecord)
	if !ok {
		errors.InvariantFailed("program evaluated outside the global environment")
	}

	for _, name := range collectVarNames(prog.Statements) {
		global.CreateGlobalVarBinding(r, name)
	}
	for _, fd := range collectFunctionDecls(prog.Statements) {
		fn := in.instantiateFunction(fd.Function, env, strict)
		global.CreateGlobalFunctionBinding(r, fd.Function.Name.Name, fn)
	}
	in.instantiateLexicalDeclarations(prog.Statements, env, r, strict)

	return in.evalStatementList(prog.Statements, strict, env, r)
}

// evalStatementList runs statements in order, threading completion values
// per the Standard's UpdateEmpty chain.
func (in *Interp) evalStatementList(stmts []ast.Statement, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	var lastValue runtime.Value = runtime.Undefined
	for _, stmt := range stmts {
		c := r.EvaluateNode(stmt, strict, env)
		if c.IsAbrupt() {
			return c.UpdateEmpty(lastValue)
		}
		if c.Value != nil {
			lastValue = c.Value
		}
	}
	return runtime.Normal(lastValue)
}

// --- Declaration instantiation helpers ---

// collectVarNames gathers var-declared names in statement order, descending
// into blocks and control flow but not into nested functions.
func collectVarNames(stmts []ast.Statement) []string {
	var names []string
	seen := map[string]bool{}
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	var walkStmt func(s ast.Statement)
	walkStmt = func(s ast.Statement) {
		switch st := s.(type) {
		case *ast.VariableDeclaration:
			if st.DeclKind == "var" {
				for _, d := range st.Declarators {
					add(d.Name.Name)
				}
			}
		case *ast.BlockStatement:
			for _, inner := range st.Statements {
				walkStmt(inner)
			}
		case *ast.IfStatement:
			walkStmt(st.Consequent)
			if st.Alternate != nil {
				walkStmt(st.Alternate)
			}
		case *ast.WhileStatement:
			walkStmt(st.Body)
		case *ast.DoWhileStatement:
			walkStmt(st.Body)
		case *ast.ForStatement:
			if st.Init != nil {
				walkStmt(st.Init)
			}
			walkStmt(st.Body)
		case *ast.ForInStatement:
			if decl, ok := st.Left.(*ast.VariableDeclaration); ok {
				walkStmt(decl)
			}
			walkStmt(st.Body)
		case *ast.ForOfStatement:
			if decl, ok := st.Left.(*ast.VariableDeclaration); ok {
				walkStmt(decl)
			}
			walkStmt(st.Body)
		case *ast.SwitchStatement:
			for _, c := range st.Cases {
				for _, inner := range c.Body {
					walkStmt(inner)
				}
			}
		case *ast.TryStatement:
			walkStmt(st.Block)
			if st.Handler != nil {
				walkStmt(st.Handler)
			}
			if st.Finalizer != nil {
				walkStmt(st.Finalizer)
			}
		case *ast.LabeledStatement:
			walkStmt(st.Body)
		}
	}
	for _, s := range stmts {
		walkStmt(s)
	}
	return names
}

// collectFunctionDecls returns the top-level function declarations.
func collectFunctionDecls(stmts []ast.Statement) []*ast.FunctionDeclaration {
	var decls []*ast.FunctionDeclaration
	for _, s := range stmts {
		if fd, ok := s.(*ast.FunctionDeclaration); ok {
			decls = append(decls, fd)
		}
	}
	return decls
}

// instantiateLexicalDeclarations creates the let/const bindings of a
// statement list: uninitialized, so reads before initialization fail.
func (in *Interp) instantiateLexicalDeclarations(stmts []ast.Statement, env *runtime.LexicalEnvironment, r *runtime.Realm, strict bool) {
	for _, s := range stmts {
		decl, ok := s.(*ast.VariableDeclaration)
		if !ok {
			continue
		}
		switch decl.DeclKind {
		case "let":
			for _, d := range decl.Declarators {
				env.Record.CreateMutableBinding(r, d.Name.Name, false)
			}
		case "const":
			for _, d := range decl.Declarators {
				// const bindings throw on assignment in any mode.
				env.Record.CreateImmutableBinding(r, d.Name.Name, true)
			}
		}
	}
}

// instantiateFunction builds the function object for a literal, including
// its prototype property.
func (in *Interp) instantiateFunction(lit *ast.FunctionLiteral, env *runtime.LexicalEnvironment, strict bool) *runtime.FunctionValue {
	r := in.realm
	name := ""
	if lit.Name != nil {
		name = lit.Name.Name
	}
	params := make([]string, len(lit.Params))
	for i, p := range lit.Params {
		params[i] = p.Name
	}
	fn := r.NewFunctionObject(name, params, lit.Body, env, strict || lit.Strict)
	fn.DefineOwnProperty(runtime.StringKey("length"),
		runtime.NewDataDescriptor(runtime.NumberValue(float64(len(params))), false, false, true))
	fn.DefineOwnProperty(runtime.StringKey("name"),
		runtime.NewDataDescriptor(runtime.StringValue(name), false, false, true))

	proto := r.NewPlainObject()
	proto.DefineOwnProperty(runtime.StringKey("constructor"),
		runtime.NewDataDescriptor(fn, true, false, true))
	fn.DefineOwnProperty(runtime.StringKey("prototype"),
		runtime.NewDataDescriptor(proto, true, false, false))
	return fn
}

// --- User function calls ---

// callUserFunction is installed as the realm's call hook. It builds the
// function environment, binds parameters, hoists body declarations, enters
// an execution context and drives the body.
func (in *Interp) callUserFunction(r *runtime.Realm, fn *runtime.FunctionValue, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
	c := in.invoke(fn, this, args)
	switch c.Type {
	case runtime.ReturnCompletion, runtime.NormalCompletion:
		if c.Value == nil {
			return runtime.Undefined, nil
		}
		return c.Value, nil
	case runtime.ThrowCompletion:
		return nil, &runtime.ThrowError{Value: c.Value, Loc: c.Loc}
	default:
		errors.InvariantFailed("function body completed with %s", c.Type)
		return nil, nil
	}
}

// invoke runs fn's body and returns the raw completion.
func (in *Interp) invoke(fn *runtime.FunctionValue, this runtime.Value, args []runtime.Value) *runtime.Completion {
	r := in.realm
	strict := fn.Strict

	// In sloppy mode, a nullish this becomes the global this; a primitive
	// this is passed through unboxed.
	if !strict {
		if this == nil || runtime.MightBeUndefinedOrNull(this) && runtime.IsConcrete(this) {
			if _, isNullish := this.(runtime.UndefinedValue); isNullish || this == nil {
				this = r.GlobalObject.SelfValue()
			} else if _, isNull := this.(runtime.NullValue); isNull {
				this = r.GlobalObject.SelfValue()
			}
		}
	}
	if this == nil {
		this = runtime.Undefined
	}

	funcRec := runtime.NewFunctionRecord(fn, runtime.ThisUninitialized)
	_ = funcRec.BindThisValue(r, this)
	funcEnv := &runtime.LexicalEnvironment{Record: funcRec, Parent: fn.Env}

	for i, p := range fn.Params {
		funcRec.CreateMutableBinding(r, p, false)
		if i < len(args) {
			funcRec.InitializeBinding(r, p, args[i])
		} else {
			funcRec.InitializeBinding(r, p, runtime.Undefined)
		}
	}

	if fn.Body == nil {
		errors.InvariantFailed("user function %q has no body", fn.Name)
	}

	// Hoist body declarations.
	for _, name := range collectVarNames(fn.Body.Statements) {
		if !funcRec.HasBinding(name) {
			funcRec.CreateMutableBinding(r, name, false)
			funcRec.InitializeBinding(r, name, runtime.Undefined)
		}
	}
	for _, fd := range collectFunctionDecls(fn.Body.Statements) {
		inner := in.instantiateFunction(fd.Function, funcEnv, strict)
		name := fd.Function.Name.Name
		if !funcRec.HasBinding(name) {
			funcRec.CreateMutableBinding(r, name, false)
		}
		funcRec.InitializeBinding(r, name, inner)
	}
	in.instantiateLexicalDeclarations(fn.Body.Statements, funcEnv, r, strict)

	ctx := &runtime.ExecutionContext{
		Function:    fn,
		LexicalEnv:  funcEnv,
		VariableEnv: funcEnv,
		ThisValue:   this,
		Strict:      strict,
	}
	r.EnterContext(ctx)
	defer r.LeaveContext()

	return in.evalStatementList(fn.Body.Statements, strict, funcEnv, r)
}

// construct implements `new fn(args)` for user functions.
func (in *Interp) construct(r *runtime.Realm, fn *runtime.FunctionValue, args []runtime.Value) (runtime.Value, error) {
	var protoVal runtime.Value = runtime.Null
	if d := fn.GetOwnProperty(runtime.StringKey("prototype")); d != nil && d.IsData() {
		if _, ok := runtime.AsObject(d.Value); ok {
			protoVal = d.Value
		}
	}
	if protoVal == runtime.Value(runtime.Null) && r.Intrinsics.ObjectPrototype != nil {
		protoVal = r.Intrinsics.ObjectPrototype
	}
	obj := r.NewObject(protoVal)

	var result runtime.Value
	var err error
	if fn.Native != nil {
		result, err = fn.Native(r, obj, args)
	} else {
		result, err = in.callUserFunction(r, fn, obj, args)
	}
	if err != nil {
		return nil, err
	}
	if _, ok := runtime.AsObject(result); ok {
		return result, nil
	}
	if _, ok := result.(*runtime.AbstractObjectValue); ok {
		return result, nil
	}
	return obj, nil
}
