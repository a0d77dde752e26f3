package runtime

import (
	"testing"
	"time"

	"prebake/pkg/ast"
	"prebake/pkg/errors"
)

// registerStub installs an evaluator returning a fixed completion and
// returns a node that dispatches to it.
func registerStub(r *Realm, result *Completion) ast.Node {
	n := &ast.EmptyStatement{}
	r.Evaluators[ast.KindEmptyStatement] = func(ast.Node, bool, *LexicalEnvironment, *Realm) *Completion {
		return result
	}
	return n
}

func TestDispatcherInvokesEvaluator(t *testing.T) {
	r := newTestRealm()
	n := registerStub(r, Normal(NumberValue(7)))
	out := r.EvaluateNode(n, false, nil)
	if out.Type != NormalCompletion || !SameValue(out.Value, NumberValue(7)) {
		t.Fatalf("dispatch result mismatch: %s %v", out.Type, out.Value)
	}
}

func TestDeadlinePoll(t *testing.T) {
	r := newTestRealm()
	var got *errors.CompilerDiagnostic
	r.Handler = func(d *errors.CompilerDiagnostic) { got = d }
	r.Deadline = time.Now().Add(-time.Second)

	n := registerStub(r, Normal(Undefined))
	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatalf("deadline exceedance must unwind with the fatal sentinel")
		}
		if _, ok := rec.(*errors.FatalAbort); !ok {
			t.Fatalf("expected FatalAbort, got %T", rec)
		}
		if got == nil || got.Code != errors.CodeDeadlineExceeded {
			t.Errorf("expected %s diagnostic, got %v", errors.CodeDeadlineExceeded, got)
		}
	}()
	r.EvaluateNode(n, false, nil)
}

func TestUnsupportedNodeKindDiagnostic(t *testing.T) {
	r := newTestRealm()
	var got *errors.CompilerDiagnostic
	r.Handler = func(d *errors.CompilerDiagnostic) { got = d }

	defer func() {
		if rec := recover(); rec == nil {
			t.Fatalf("missing evaluator must be fatal")
		}
		if got == nil || got.Code != errors.CodeUnsupportedNode {
			t.Errorf("expected %s, got %v", errors.CodeUnsupportedNode, got)
		}
	}()
	r.EvaluateNode(&ast.EmptyStatement{}, false, nil)
}
