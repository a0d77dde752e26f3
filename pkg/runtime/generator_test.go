package runtime

import (
	"strings"
	"testing"

	"prebake/pkg/ast"
)

func renderEntry(t *testing.T, g *Generator, idx int, argExprs []ast.Expression) ast.Statement {
	t.Helper()
	if idx >= len(g.Entries) {
		t.Fatalf("generator has %d entries, want index %d", len(g.Entries), idx)
	}
	ctx := &EmitContext{Prelude: NewPreludeGenerator(NewNameGenerator("", ""))}
	return g.Entries[idx].BuildNode(argExprs, ctx, nil)
}

func TestEmitGlobalAssignment(t *testing.T) {
	r := newTestRealm()
	g := NewGenerator(r, "t")
	g.EmitGlobalAssignment("flag", True)

	stmt := renderEntry(t, g, 0, []ast.Expression{&ast.BooleanLiteral{Value: true}})
	es, ok := stmt.(*ast.ExpressionStatement)
	if !ok {
		t.Fatalf("expected expression statement, got %T", stmt)
	}
	assign, ok := es.Expression.(*ast.AssignmentExpression)
	if !ok || assign.Operator != "=" {
		t.Fatalf("expected assignment, got %s", es.Expression.String())
	}
	if !strings.Contains(assign.Target.String(), "flag") {
		t.Errorf("target should address the global: %s", assign.Target.String())
	}
}

func TestEmitGlobalDelete(t *testing.T) {
	r := newTestRealm()
	g := NewGenerator(r, "t")
	g.EmitGlobalDelete("gone")

	stmt := renderEntry(t, g, 0, nil)
	es := stmt.(*ast.ExpressionStatement)
	un, ok := es.Expression.(*ast.UnaryExpression)
	if !ok || un.Operator != "delete" {
		t.Fatalf("expected delete expression, got %s", es.Expression.String())
	}
}

func TestEmitPropertyAssignmentKeys(t *testing.T) {
	r := newTestRealm()
	obj := r.NewObject(Null)
	g := NewGenerator(r, "t")
	g.EmitPropertyAssignment(obj, StringKey("plain"), NumberValue(1))
	g.EmitPropertyAssignment(obj, StringKey("0"), NumberValue(2))
	g.EmitPropertyAssignment(obj, StringKey("a b"), NumberValue(3))

	target := func(idx int) string {
		stmt := renderEntry(t, g, idx, []ast.Expression{
			&ast.Identifier{Name: "o"}, &ast.NumberLiteral{Value: 1, Raw: "1"},
		})
		return stmt.(*ast.ExpressionStatement).Expression.(*ast.AssignmentExpression).Target.String()
	}
	if got := target(0); got != "o.plain" {
		t.Errorf("dotted member expected, got %s", got)
	}
	if got := target(1); got != "o[0]" {
		t.Errorf("index member expected, got %s", got)
	}
	if got := target(2); got != `o["a b"]` {
		t.Errorf("quoted member expected, got %s", got)
	}
}

func TestDeriveDeclaresAndGuards(t *testing.T) {
	r := newTestRealm()
	g := NewGenerator(r, "t")
	leaf := r.CreateAbstract(FlagNumber, ValuesTop, nil, IdentTemplate("n"), KindNone)

	derived := g.Derive(FlagNumber, ValuesTop, []Value{leaf, NumberValue(1)}, BinaryTemplate("+"), DeriveOptions{IsPure: true})
	if derived.Types() != FlagNumber {
		t.Errorf("derived types domain mismatch: %s", derived.Types())
	}
	// One declaration entry plus one typeof invariant guard.
	if len(g.Entries) != 2 {
		t.Fatalf("expected 2 entries (declaration + invariant), got %d", len(g.Entries))
	}
	if g.Entries[0].Declared != derived {
		t.Errorf("first entry must declare the derived value")
	}
	if !g.Entries[0].Pure || !g.Entries[1].Pure {
		t.Errorf("derived declarations and guards are pure (droppable)")
	}

	derived.BoundName = "_d"
	stmt := renderEntry(t, g, 0, []ast.Expression{&ast.Identifier{Name: "n"}, &ast.NumberLiteral{Value: 1, Raw: "1"}})
	decl, ok := stmt.(*ast.VariableDeclaration)
	if !ok || decl.Declarators[0].Name.Name != "_d" {
		t.Fatalf("expected var _d declaration, got %s", stmt.String())
	}

	guard := renderEntry(t, g, 1, []ast.Expression{&ast.Identifier{Name: "_d"}})
	ifStmt, ok := guard.(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected if guard, got %T", guard)
	}
	if !strings.Contains(ifStmt.Test.String(), "typeof") {
		t.Errorf("guard should test typeof: %s", ifStmt.Test.String())
	}
}

func TestDeriveSkipInvariant(t *testing.T) {
	r := newTestRealm()
	g := NewGenerator(r, "t")
	g.Derive(FlagNumber, ValuesTop, nil, IdentTemplate("x"), DeriveOptions{SkipInvariant: true})
	if len(g.Entries) != 1 {
		t.Errorf("SkipInvariant must suppress the guard, got %d entries", len(g.Entries))
	}
}

func TestConditionalEntryChildren(t *testing.T) {
	r := newTestRealm()
	g := NewGenerator(r, "t")
	cons := NewGenerator(r, "cons")
	cons.EmitThrow(StringValue("boom"))
	alt := NewGenerator(r, "alt")
	cond := r.CreateAbstract(FlagBoolean, ValuesTop, nil, IdentTemplate("c"), KindNone)

	g.EmitConditional(cond, cons, alt)
	entry := g.Entries[0]
	if len(entry.Children) != 2 {
		t.Fatalf("conditional entry must own two child generators")
	}

	ctx := &EmitContext{Prelude: NewPreludeGenerator(NewNameGenerator("", ""))}
	stmt := entry.BuildNode(
		[]ast.Expression{&ast.Identifier{Name: "c"}},
		ctx,
		[][]ast.Statement{
			{&ast.ThrowStatement{Argument: &ast.StringLiteral{Value: "boom"}}},
			{},
		},
	)
	ifStmt, ok := stmt.(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected if statement, got %T", stmt)
	}
	if ifStmt.Alternate != nil {
		t.Errorf("an empty alternate child must not produce an else block")
	}
}
