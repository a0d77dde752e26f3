package runtime

import (
	"prebake/pkg/ast"
	"prebake/pkg/errors"
)

// EvaluateNode is the dispatcher: it records the node's source location on
// the realm, polls the deadline, looks up the evaluator for the node kind,
// and invokes it. Possibly-normal outcomes of branch joins are materialized
// at the join site itself (the abrupt side becomes a residual statement in
// its branch fragment), so no completion state survives across dispatches.
func (r *Realm) EvaluateNode(n ast.Node, strict bool, env *LexicalEnvironment) *Completion {
	if n == nil {
		errors.InvariantFailed("EvaluateNode on nil node")
	}
	r.CurrentLocation = n.Pos()
	r.CheckDeadline()

	ev := r.Evaluators[n.Kind()]
	if ev == nil {
		r.ReportDiagnostic(errors.NewDiagnostic(errors.CodeUnsupportedNode, errors.FatalError,
			n.Pos(), "unsupported syntax kind %s", n.Kind()))
	}
	r.Logger.Trace().Str("kind", string(n.Kind())).Int("line", n.Pos().Line).Msg("evaluate")

	return ev(n, strict, env, r)
}
