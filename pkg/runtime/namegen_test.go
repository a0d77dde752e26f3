package runtime

import (
	"testing"
)

func TestNameGeneratorMonotone(t *testing.T) {
	g := NewNameGenerator("", "")
	first := g.Generate("")
	second := g.Generate("")
	if first == second {
		t.Fatalf("generated names must be unique, got %q twice", first)
	}
	if first != "_0" || second != "_1" {
		t.Errorf("expected _0, _1; got %q, %q", first, second)
	}
}

func TestNameGeneratorBase62(t *testing.T) {
	g := NewNameGenerator("", "")
	var last string
	for i := 0; i < 62; i++ {
		last = g.Generate("")
	}
	if last != "_Z" {
		t.Errorf("expected 62nd name _Z, got %q", last)
	}
	if next := g.Generate(""); next != "_10" {
		t.Errorf("expected 63rd name _10, got %q", next)
	}
}

func TestNameGeneratorForbidden(t *testing.T) {
	g := NewNameGenerator("", "")
	g.Forbid("_0", "_1")
	if name := g.Generate(""); name != "_2" {
		t.Errorf("forbidden names must be skipped, got %q", name)
	}
}

func TestNameGeneratorSuffix(t *testing.T) {
	g := NewNameGenerator("", "$ab")
	if name := g.Generate(""); name != "_0$ab" {
		t.Errorf("expected per-build suffix, got %q", name)
	}
}

func TestPreludeMemoization(t *testing.T) {
	p := NewPreludeGenerator(NewNameGenerator("$", ""))
	a := p.MemoizedRef("Object.defineProperty")
	b := p.MemoizedRef("Object.defineProperty")
	if a.String() != b.String() {
		t.Errorf("memoized refs must be stable: %s vs %s", a.String(), b.String())
	}
	// One declaration for the global ref and one for the path.
	if got := len(p.Statements()); got != 2 {
		t.Errorf("expected 2 prelude declarations, got %d", got)
	}
}
