package interpreter

import (
	"prebake/pkg/ast"
	"prebake/pkg/errors"
	"prebake/pkg/runtime"
)

func (in *Interp) evalEmptyStatement(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	return runtime.Empty()
}

func (in *Interp) evalExpressionStatement(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	es := n.(*ast.ExpressionStatement)
	c := r.EvaluateNode(es.Expression, strict, env)
	if c.IsAbrupt() {
		return c
	}
	return runtime.Normal(c.Value)
}

func (in *Interp) evalVariableDeclaration(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	decl := n.(*ast.VariableDeclaration)
	for _, d := range decl.Declarators {
		if d.Init == nil {
			if decl.DeclKind == "let" {
				env.Record.InitializeBinding(r, d.Name.Name, runtime.Undefined)
			}
			continue
		}
		c := r.EvaluateNode(d.Init, strict, env)
		if c.IsAbrupt() {
			return c
		}
		switch decl.DeclKind {
		case "var":
			ref := env.ResolveBinding(d.Name.Name, strict)
			if err := runtime.PutValue(r, ref, c.Value); err != nil {
				return r.CompletionFromError(err)
			}
		default: // let, const
			env.Record.InitializeBinding(r, d.Name.Name, c.Value)
		}
	}
	return runtime.Empty()
}

func (in *Interp) evalFunctionDeclaration(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	// Instantiated during declaration hoisting.
	return runtime.Empty()
}

func (in *Interp) evalBlockStatement(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	block := n.(*ast.BlockStatement)
	blockEnv := runtime.NewDeclarativeEnvironment(env)
	in.instantiateLexicalDeclarations(block.Statements, blockEnv, r, strict)
	for _, fd := range collectFunctionDecls(block.Statements) {
		fn := in.instantiateFunction(fd.Function, blockEnv, strict)
		name := fd.Function.Name.Name
		if !blockEnv.Record.HasBinding(name) {
			blockEnv.Record.CreateMutableBinding(r, name, false)
		}
		blockEnv.Record.InitializeBinding(r, name, fn)
	}
	return in.evalStatementList(block.Statements, strict, blockEnv, r)
}

// --- Branch joining ---

func (in *Interp) evalIfStatement(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	stmt := n.(*ast.IfStatement)
	tc := r.EvaluateNode(stmt.Test, strict, env)
	if tc.IsAbrupt() {
		return tc
	}
	test := tc.Value

	if runtime.IsConcrete(test) {
		if runtime.ToBooleanConcrete(test) {
			return r.EvaluateNode(stmt.Consequent, strict, env).UpdateEmpty(runtime.Undefined)
		}
		if stmt.Alternate != nil {
			return r.EvaluateNode(stmt.Alternate, strict, env).UpdateEmpty(runtime.Undefined)
		}
		return runtime.Normal(runtime.Undefined)
	}
	return in.joinBranches(test, stmt.Consequent, stmt.Alternate, strict, env, r)
}

// joinBranches speculatively interprets both branches of an abstract guard,
// joins the resulting object graphs by per-property descriptor merging,
// emits a conditional generator entry with the two fragments, and folds the
// branch values into one abstract value.
func (in *Interp) joinBranches(cond runtime.Value, consNode, altNode ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	if !r.AbstractInterpretation {
		r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeIncompatibleJoin, errors.FatalError,
			r.CurrentLocation, "abstract branch condition with abstract interpretation disabled"))
	}

	e1 := r.EvaluateNodeForEffects(consNode, strict, env)
	var e2 *runtime.Effects
	if altNode != nil {
		e2 = r.EvaluateNodeForEffects(altNode, strict, env)
	} else {
		e2 = &runtime.Effects{Completion: runtime.Empty(), Fragment: runtime.NewGenerator(r, "empty")}
	}

	// The completion join algebra classifies the branch outcomes; it also
	// rejects joins of incompatible abrupt arms (different kinds, labels,
	// or thrown error kinds).
	joined, diag := runtime.JoinCompletions(cond, e1.Completion, e2.Completion,
		func(a, b runtime.Value) runtime.Value { return r.JoinValues(cond, a, b) })
	if diag != nil {
		r.ReportDiagnostic(diag)
	}

	switch joined.Type {
	case runtime.NormalCompletion:
		if diag := r.JoinEffects(cond, e1, e2); diag != nil {
			r.ReportDiagnostic(diag)
		}
		r.Generator.EmitConditional(cond, e1.Fragment, e2.Fragment)
		return joined

	case runtime.JoinedAbruptCompletions:
		if joined.Consequent.Type != runtime.ThrowCompletion || joined.Alternate.Type != runtime.ThrowCompletion {
			r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeIncompatibleJoin, errors.FatalError,
				r.CurrentLocation, "cannot residualize joined %s and %s completions under an abstract condition",
				joined.Consequent.Type, joined.Alternate.Type))
		}
		// Both sides throw the same error kind: the statement always
		// throws. The branch effects still run first at runtime.
		if diag := r.JoinEffects(cond, e1, e2); diag != nil {
			r.ReportDiagnostic(diag)
		}
		r.Generator.EmitConditional(cond, e1.Fragment, e2.Fragment)
		return runtime.Throw(r.JoinValues(cond, joined.Consequent.Value, joined.Alternate.Value), joined.Consequent.Loc)

	default: // PossiblyNormalCompletion
		if joined.NormalIsConsequent {
			return in.materializeConditionalAbruptPair(cond, e2, e1, false, r)
		}
		return in.materializeConditionalAbruptPair(cond, e1, e2, true, r)
	}
}

// materializeConditionalAbruptPair handles one abrupt and one normal
// branch: a throw on the abrupt side is re-emitted as a residual throw in
// its fragment, and interpretation continues on the normal path. Other
// abrupt kinds cannot be soundly residualized under an abstract guard.
func (in *Interp) materializeConditionalAbruptPair(cond runtime.Value, abrupt, normal *runtime.Effects, abruptIsConsequent bool, r *runtime.Realm) *runtime.Completion {
	if abrupt.Completion.Type != runtime.ThrowCompletion {
		r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeIncompatibleJoin, errors.FatalError,
			r.CurrentLocation, "cannot join a %s completion with a normal branch under an abstract condition",
			abrupt.Completion.Type))
	}
	abrupt.Fragment.EmitThrow(abrupt.Completion.Value)
	if diag := r.JoinEffects(cond, abrupt, normal); diag != nil {
		r.ReportDiagnostic(diag)
	}
	if abruptIsConsequent {
		r.Generator.EmitConditional(cond, abrupt.Fragment, normal.Fragment)
	} else {
		r.Generator.EmitConditional(cond, normal.Fragment, abrupt.Fragment)
	}
	return runtime.Normal(completionVal(normal.Completion))
}

// materializeConditionalAbrupt is the single-branch variant used by the
// logical operators.
func (in *Interp) materializeConditionalAbrupt(cond runtime.Value, abrupt *runtime.Effects, normalValue runtime.Value, r *runtime.Realm) *runtime.Completion {
	empty := &runtime.Effects{Completion: runtime.Empty(), Fragment: runtime.NewGenerator(r, "empty")}
	c := in.materializeConditionalAbruptPair(cond, abrupt, empty, true, r)
	if c.IsAbrupt() {
		return c
	}
	return runtime.Normal(normalValue)
}

func completionVal(c *runtime.Completion) runtime.Value {
	if c.Value == nil {
		return runtime.Undefined
	}
	return c.Value
}

// --- Loops ---

// takeLabel consumes the label attached by an enclosing labeled statement.
func (in *Interp) takeLabel() string {
	l := in.pendingLabel
	in.pendingLabel = ""
	return l
}

func (in *Interp) evalLabeledStatement(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	ls := n.(*ast.LabeledStatement)
	in.pendingLabel = ls.Label.Name
	c := r.EvaluateNode(ls.Body, strict, env)
	in.pendingLabel = ""
	if c.Type == runtime.BreakCompletion && c.Target == ls.Label.Name {
		return runtime.Normal(completionVal(c))
	}
	return c
}

func (in *Interp) evalWhileStatement(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	stmt := n.(*ast.WhileStatement)
	label := in.takeLabel()
	var lastValue runtime.Value = runtime.Undefined
	for {
		tc := r.EvaluateNode(stmt.Test, strict, env)
		if tc.IsAbrupt() {
			return tc
		}
		if !runtime.IsConcrete(tc.Value) {
			r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeUnsupportedIteration, errors.FatalError,
				stmt.Test.Pos(), "loop condition is not known at build time"))
		}
		if !runtime.ToBooleanConcrete(tc.Value) {
			return runtime.Normal(lastValue)
		}
		c := r.EvaluateNode(stmt.Body, strict, env)
		if done, out := loopStep(c, label, &lastValue); done {
			return out
		}
	}
}

func (in *Interp) evalDoWhileStatement(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	stmt := n.(*ast.DoWhileStatement)
	label := in.takeLabel()
	var lastValue runtime.Value = runtime.Undefined
	for {
		c := r.EvaluateNode(stmt.Body, strict, env)
		if done, out := loopStep(c, label, &lastValue); done {
			return out
		}
		tc := r.EvaluateNode(stmt.Test, strict, env)
		if tc.IsAbrupt() {
			return tc
		}
		if !runtime.IsConcrete(tc.Value) {
			r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeUnsupportedIteration, errors.FatalError,
				stmt.Test.Pos(), "loop condition is not known at build time"))
		}
		if !runtime.ToBooleanConcrete(tc.Value) {
			return runtime.Normal(lastValue)
		}
	}
}

func (in *Interp) evalForStatement(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	stmt := n.(*ast.ForStatement)
	label := in.takeLabel()

	loopEnv := env
	if decl, ok := stmt.Init.(*ast.VariableDeclaration); ok && decl.DeclKind != "var" {
		loopEnv = runtime.NewDeclarativeEnvironment(env)
		in.instantiateLexicalDeclarations([]ast.Statement{decl}, loopEnv, r, strict)
	}
	if stmt.Init != nil {
		c := r.EvaluateNode(stmt.Init, strict, loopEnv)
		if c.IsAbrupt() {
			return c
		}
	}

	var lastValue runtime.Value = runtime.Undefined
	for {
		if stmt.Test != nil {
			tc := r.EvaluateNode(stmt.Test, strict, loopEnv)
			if tc.IsAbrupt() {
				return tc
			}
			if !runtime.IsConcrete(tc.Value) {
				r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeUnsupportedIteration, errors.FatalError,
					stmt.Test.Pos(), "loop condition is not known at build time"))
			}
			if !runtime.ToBooleanConcrete(tc.Value) {
				return runtime.Normal(lastValue)
			}
		}
		c := r.EvaluateNode(stmt.Body, strict, loopEnv)
		if done, out := loopStep(c, label, &lastValue); done {
			return out
		}
		if stmt.Update != nil {
			uc := r.EvaluateNode(stmt.Update, strict, loopEnv)
			if uc.IsAbrupt() {
				return uc
			}
		}
	}
}

// loopStep folds one body completion into the loop state machine:
// Running -> (BreakPending | ContinuePending | abrupt exit | Normal).
func loopStep(c *runtime.Completion, label string, lastValue *runtime.Value) (bool, *runtime.Completion) {
	switch c.Type {
	case runtime.BreakCompletion:
		if c.Target == "" || c.Target == label {
			return true, runtime.Normal(*lastValue)
		}
		return true, c
	case runtime.ContinueCompletion:
		if c.Target == "" || c.Target == label {
			return false, nil
		}
		return true, c
	case runtime.NormalCompletion, runtime.PossiblyNormalCompletion:
		if c.Value != nil {
			*lastValue = c.Value
		}
		return false, nil
	default:
		return true, c
	}
}

// --- Switch ---

func (in *Interp) evalSwitchStatement(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	stmt := n.(*ast.SwitchStatement)
	label := in.takeLabel()

	dc := r.EvaluateNode(stmt.Discriminant, strict, env)
	if dc.IsAbrupt() {
		return dc
	}
	if !runtime.IsConcrete(dc.Value) {
		// A switch over an unknown discriminant would need a join per case
		// with fallthrough tracking; the engine stays conservative.
		r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeIncompatibleJoin, errors.FatalError,
			stmt.Discriminant.Pos(), "switch discriminant is not known at build time"))
	}

	matched := -1
	for i, c := range stmt.Cases {
		if c.Test == nil {
			continue
		}
		tc := r.EvaluateNode(c.Test, strict, env)
		if tc.IsAbrupt() {
			return tc
		}
		if !runtime.IsConcrete(tc.Value) {
			r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeIncompatibleJoin, errors.FatalError,
				c.Test.Pos(), "switch case guard is not known at build time"))
		}
		if runtime.StrictEquals(dc.Value, tc.Value) {
			matched = i
			break
		}
	}
	if matched == -1 {
		for i, c := range stmt.Cases {
			if c.Test == nil {
				matched = i
				break
			}
		}
	}
	if matched == -1 {
		return runtime.Normal(runtime.Undefined)
	}

	var lastValue runtime.Value = runtime.Undefined
	for _, c := range stmt.Cases[matched:] {
		for _, s := range c.Body {
			sc := r.EvaluateNode(s, strict, env)
			if sc.Type == runtime.BreakCompletion && (sc.Target == "" || sc.Target == label) {
				return runtime.Normal(lastValue)
			}
			if sc.IsAbrupt() {
				return sc.UpdateEmpty(lastValue)
			}
			if sc.Value != nil {
				lastValue = sc.Value
			}
		}
	}
	return runtime.Normal(lastValue)
}

// --- Abrupt statements ---

func (in *Interp) evalBreakStatement(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	b := n.(*ast.BreakStatement)
	target := ""
	if b.Label != nil {
		target = b.Label.Name
	}
	return &runtime.Completion{Type: runtime.BreakCompletion, Target: target}
}

func (in *Interp) evalContinueStatement(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	c := n.(*ast.ContinueStatement)
	target := ""
	if c.Label != nil {
		target = c.Label.Name
	}
	return &runtime.Completion{Type: runtime.ContinueCompletion, Target: target}
}

func (in *Interp) evalReturnStatement(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	ret := n.(*ast.ReturnStatement)
	var v runtime.Value = runtime.Undefined
	if ret.Argument != nil {
		c := r.EvaluateNode(ret.Argument, strict, env)
		if c.IsAbrupt() {
			return c
		}
		v = c.Value
	}
	return &runtime.Completion{Type: runtime.ReturnCompletion, Value: v}
}

func (in *Interp) evalThrowStatement(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	ts := n.(*ast.ThrowStatement)
	c := r.EvaluateNode(ts.Argument, strict, env)
	if c.IsAbrupt() {
		return c
	}
	return runtime.Throw(c.Value, n.Pos())
}

func (in *Interp) evalTryStatement(n ast.Node, strict bool, env *runtime.LexicalEnvironment, r *runtime.Realm) *runtime.Completion {
	ts := n.(*ast.TryStatement)
	result := r.EvaluateNode(ts.Block, strict, env)

	if result.Type == runtime.ThrowCompletion && ts.Handler != nil {
		catchEnv := runtime.NewDeclarativeEnvironment(env)
		if ts.CatchParam != nil {
			catchEnv.Record.CreateMutableBinding(r, ts.CatchParam.Name, false)
			catchEnv.Record.InitializeBinding(r, ts.CatchParam.Name, result.Value)
		}
		result = r.EvaluateNode(ts.Handler, strict, catchEnv)
	}

	if ts.Finalizer != nil {
		fc := r.EvaluateNode(ts.Finalizer, strict, env)
		if fc.IsAbrupt() {
			// The finalizer's own abrupt completion wins.
			return fc
		}
		// Normal finalizer: the incoming completion is re-raised.
	}
	return result.UpdateEmpty(runtime.Undefined)
}
