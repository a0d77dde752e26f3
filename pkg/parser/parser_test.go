package parser

import (
	"testing"

	"prebake/pkg/ast"
	"prebake/pkg/errors"
	"prebake/pkg/source"
)

func parseOne(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, errs := Parse(source.NewEvalSource(src))
	if len(errs) > 0 {
		t.Fatalf("parse errors for %q: %v", src, errs[0])
	}
	return prog
}

func TestVariableDeclarations(t *testing.T) {
	prog := parseOne(t, "var a = 1, b; let c = 2; const d = 3;")
	if len(prog.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(prog.Statements))
	}
	v := prog.Statements[0].(*ast.VariableDeclaration)
	if v.DeclKind != "var" || len(v.Declarators) != 2 {
		t.Errorf("var declaration mismatch: %s", v.String())
	}
	if v.Declarators[1].Init != nil {
		t.Errorf("b should have no initializer")
	}
	if prog.Statements[1].(*ast.VariableDeclaration).DeclKind != "let" {
		t.Errorf("expected let")
	}
	if prog.Statements[2].(*ast.VariableDeclaration).DeclKind != "const" {
		t.Errorf("expected const")
	}
}

func TestOperatorPrecedence(t *testing.T) {
	prog := parseOne(t, "1 + 2 * 3;")
	expr := prog.Statements[0].(*ast.ExpressionStatement).Expression
	add := expr.(*ast.BinaryExpression)
	if add.Operator != "+" {
		t.Fatalf("expected + at the top, got %s", add.Operator)
	}
	mul, ok := add.Right.(*ast.BinaryExpression)
	if !ok || mul.Operator != "*" {
		t.Fatalf("expected * nested on the right: %s", expr.String())
	}
}

func TestAssignmentRightAssociative(t *testing.T) {
	prog := parseOne(t, "a = b = 1;")
	outer := prog.Statements[0].(*ast.ExpressionStatement).Expression.(*ast.AssignmentExpression)
	if _, ok := outer.Value.(*ast.AssignmentExpression); !ok {
		t.Fatalf("expected nested assignment on the right: %s", outer.String())
	}
}

func TestInvalidAssignmentTargetIsReferenceError(t *testing.T) {
	_, errs := Parse(source.NewEvalSource("1 = 2;"))
	if len(errs) == 0 {
		t.Fatalf("expected a parse error")
	}
	if _, ok := errs[0].(*errors.ReferenceError); !ok {
		t.Errorf("invalid assignment target must classify as a reference error, got %T", errs[0])
	}
}

func TestMemberAndCallChains(t *testing.T) {
	prog := parseOne(t, "a.b.c(1)[d](2);")
	expr := prog.Statements[0].(*ast.ExpressionStatement).Expression
	call, ok := expr.(*ast.CallExpression)
	if !ok || len(call.Arguments) != 1 {
		t.Fatalf("outer call mismatch: %s", expr.String())
	}
	if _, ok := call.Callee.(*ast.MemberExpression); !ok {
		t.Fatalf("expected computed member callee: %s", expr.String())
	}
}

func TestNewBindsTighterThanCall(t *testing.T) {
	prog := parseOne(t, "new a.B(1);")
	ne := prog.Statements[0].(*ast.ExpressionStatement).Expression.(*ast.NewExpression)
	if len(ne.Arguments) != 1 {
		t.Fatalf("new arguments should bind to the constructor: %s", ne.String())
	}
}

func TestForVariants(t *testing.T) {
	prog := parseOne(t, "for (var i = 0; i < 3; i++) {} for (var k in o) {} for (var v of xs) {}")
	if _, ok := prog.Statements[0].(*ast.ForStatement); !ok {
		t.Errorf("expected classic for, got %T", prog.Statements[0])
	}
	if _, ok := prog.Statements[1].(*ast.ForInStatement); !ok {
		t.Errorf("expected for-in, got %T", prog.Statements[1])
	}
	if _, ok := prog.Statements[2].(*ast.ForOfStatement); !ok {
		t.Errorf("expected for-of, got %T", prog.Statements[2])
	}
}

func TestObjectLiteralForms(t *testing.T) {
	prog := parseOne(t, `var o = { a: 1, "b c": 2, 3: true, get x() { return 1; }, set x(v) {}, shorthand };`)
	decl := prog.Statements[0].(*ast.VariableDeclaration)
	obj := decl.Declarators[0].Init.(*ast.ObjectLiteral)
	if len(obj.Properties) != 6 {
		t.Fatalf("expected 6 properties, got %d", len(obj.Properties))
	}
	if obj.Properties[3].Kind != ast.PropertyGet {
		t.Errorf("expected getter at index 3")
	}
	if obj.Properties[4].Kind != ast.PropertySet {
		t.Errorf("expected setter at index 4")
	}
	sh := obj.Properties[5]
	if sh.Kind != ast.PropertyInit || sh.Value.(*ast.Identifier).Name != "shorthand" {
		t.Errorf("shorthand property mismatch")
	}
}

func TestTryCatchFinally(t *testing.T) {
	prog := parseOne(t, "try { a(); } catch (e) { b(); } finally { c(); }")
	ts := prog.Statements[0].(*ast.TryStatement)
	if ts.CatchParam == nil || ts.CatchParam.Name != "e" {
		t.Errorf("catch parameter mismatch")
	}
	if ts.Finalizer == nil {
		t.Errorf("finalizer missing")
	}
}

func TestLabeledBreak(t *testing.T) {
	prog := parseOne(t, "outer: while (true) { break outer; }")
	ls := prog.Statements[0].(*ast.LabeledStatement)
	if ls.Label.Name != "outer" {
		t.Fatalf("label mismatch")
	}
	body := ls.Body.(*ast.WhileStatement).Body.(*ast.BlockStatement)
	brk := body.Statements[0].(*ast.BreakStatement)
	if brk.Label == nil || brk.Label.Name != "outer" {
		t.Errorf("break label mismatch")
	}
}

func TestAutomaticSemicolonInsertion(t *testing.T) {
	prog := parseOne(t, "var a = 1\nvar b = 2")
	if len(prog.Statements) != 2 {
		t.Fatalf("ASI should yield 2 statements, got %d", len(prog.Statements))
	}
	// return across a newline takes no argument.
	prog = parseOne(t, "function f() { return\n1; }")
	fd := prog.Statements[0].(*ast.FunctionDeclaration)
	ret := fd.Function.Body.Statements[0].(*ast.ReturnStatement)
	if ret.Argument != nil {
		t.Errorf("return across a newline must not take an argument")
	}
}

func TestDirectivePrologue(t *testing.T) {
	prog := parseOne(t, `"use strict"; var x = 1;`)
	if !prog.Strict {
		t.Errorf("use strict prologue should mark the program strict")
	}
	prog = parseOne(t, `function f() { "use strict"; }`)
	fd := prog.Statements[0].(*ast.FunctionDeclaration)
	if !fd.Function.Strict {
		t.Errorf("function body prologue should mark the function strict")
	}
}

func TestRegexLiteral(t *testing.T) {
	prog := parseOne(t, "var re = /a[/b]+c/gi;")
	decl := prog.Statements[0].(*ast.VariableDeclaration)
	re := decl.Declarators[0].Init.(*ast.RegExpLiteral)
	if re.Pattern != "a[/b]+c" || re.Flags != "gi" {
		t.Errorf("regex literal mismatch: /%s/%s", re.Pattern, re.Flags)
	}
}

func TestInOperatorOutsideForInit(t *testing.T) {
	prog := parseOne(t, `if ("a" in o) {}`)
	test := prog.Statements[0].(*ast.IfStatement).Test.(*ast.BinaryExpression)
	if test.Operator != "in" {
		t.Fatalf("expected in operator, got %s", test.Operator)
	}
	// Inside a for init clause the same operator is reserved for for-in.
	if _, errs := Parse(source.NewEvalSource(`for (var x = "a" in o; false; ) {}`)); len(errs) == 0 {
		t.Errorf("`in` inside a for init clause must not parse")
	}
}

func TestSwitchParsing(t *testing.T) {
	prog := parseOne(t, "switch (x) { case 1: a(); break; default: b(); }")
	sw := prog.Statements[0].(*ast.SwitchStatement)
	if len(sw.Cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(sw.Cases))
	}
	if sw.Cases[1].Test != nil {
		t.Errorf("default case must have a nil test")
	}
}
