package printer

import (
	"strings"
	"testing"

	"prebake/pkg/parser"
	"prebake/pkg/source"
)

// reprint parses src and prints it back.
func reprint(t *testing.T, src string) string {
	t.Helper()
	prog, errs := parser.Parse(source.NewEvalSource(src))
	if len(errs) > 0 {
		t.Fatalf("parse %q: %v", src, errs[0])
	}
	return Print(prog)
}

func TestPrintBasics(t *testing.T) {
	cases := map[string]string{
		"var x = 1 + 2;":        "var x = 1 + 2;\n",
		"x = a * (b + c);":      "x = a * (b + c);\n",
		`var s = "he\"y";`:      "var s = \"he\\\"y\";\n",
		"throw new Error();":    "throw new Error();\n",
		"delete a.b;":           "delete a.b;\n",
		"a = b ? c : d;":        "a = b ? c : d;\n",
		"f(1, 2);":              "f(1, 2);\n",
		"a[0] = b.c;":           "a[0] = b.c;\n",
	}
	for input, want := range cases {
		if got := reprint(t, input); got != want {
			t.Errorf("print(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestPrintPreservesPrecedence(t *testing.T) {
	// (1 + 2) * 3 must keep its parentheses or change meaning.
	out := reprint(t, "x = (1 + 2) * 3;")
	if !strings.Contains(out, "(1 + 2) * 3") {
		t.Errorf("precedence lost: %q", out)
	}
}

func TestPrintStatements(t *testing.T) {
	out := reprint(t, "if (a) { b(); } else { c(); }")
	want := "if (a) {\n  b();\n} else {\n  c();\n}\n"
	if out != want {
		t.Errorf("if/else layout: got %q, want %q", out, want)
	}

	out = reprint(t, "for (var i = 0; i < 3; i++) { f(i); }")
	if !strings.Contains(out, "for (var i = 0; i < 3; i++) {") {
		t.Errorf("for header mismatch: %q", out)
	}

	out = reprint(t, "for (var k in o) { t[k] = o[k]; }")
	if !strings.Contains(out, "for (var k in o) {") || !strings.Contains(out, "t[k] = o[k];") {
		t.Errorf("for-in layout mismatch: %q", out)
	}
}

func TestPrintFunctions(t *testing.T) {
	out := reprint(t, "function add(a, b) { return a + b; }")
	if !strings.Contains(out, "function add(a, b) {") || !strings.Contains(out, "return a + b;") {
		t.Errorf("function layout mismatch: %q", out)
	}
}

func TestPrintObjectAndArrayLiterals(t *testing.T) {
	out := reprint(t, `var o = { a: 1, "b c": 2 };`)
	if !strings.Contains(out, `{ a: 1, "b c": 2 }`) {
		t.Errorf("object literal mismatch: %q", out)
	}
	out = reprint(t, "var a = [1, , 3];")
	if !strings.Contains(out, "[1, , 3]") {
		t.Errorf("array elision mismatch: %q", out)
	}
}

func TestLeadingObjectLiteralIsParenthesized(t *testing.T) {
	// An expression statement must not begin with `{`.
	prog, errs := parser.Parse(source.NewEvalSource("x = 1;"))
	if len(errs) > 0 {
		t.Fatal(errs[0])
	}
	_ = prog
	out := reprint(t, "(function () { return 1; });")
	if !strings.HasPrefix(out, "(function") {
		t.Errorf("leading function expression must stay parenthesized: %q", out)
	}
}

func TestRoundTripStability(t *testing.T) {
	src := "var x = 1;\nfunction f(a) {\n  return a + x;\n}\nf(2);\n"
	once := reprint(t, src)
	twice := reprint(t, once)
	if once != twice {
		t.Errorf("printing is not stable:\nfirst:  %q\nsecond: %q", once, twice)
	}
}
