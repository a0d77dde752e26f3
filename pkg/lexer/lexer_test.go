package lexer

import (
	"testing"
)

func TestNextTokenBasics(t *testing.T) {
	input := `var five = 5;
var str = "hi";
if (five <= 10) { five++; }`

	expected := []struct {
		typ     TokenType
		literal string
	}{
		{VAR, "var"},
		{IDENT, "five"},
		{ASSIGN, "="},
		{NUMBER, "5"},
		{SEMICOLON, ";"},
		{VAR, "var"},
		{IDENT, "str"},
		{ASSIGN, "="},
		{STRING, "hi"},
		{SEMICOLON, ";"},
		{IF, "if"},
		{LPAREN, "("},
		{IDENT, "five"},
		{LE, "<="},
		{NUMBER, "10"},
		{RPAREN, ")"},
		{LBRACE, "{"},
		{IDENT, "five"},
		{INC, "++"},
		{SEMICOLON, ";"},
		{RBRACE, "}"},
		{EOF, ""},
	}

	l := NewLexer(input, 1)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want.typ {
			t.Fatalf("token %d: expected type %s, got %s (%q)", i, want.typ, tok.Type, tok.Literal)
		}
		if tok.Literal != want.literal {
			t.Fatalf("token %d: expected literal %q, got %q", i, want.literal, tok.Literal)
		}
	}
}

func TestOperatorsAndCompounds(t *testing.T) {
	input := `=== !== >>> >>>= ?? && || ** % &= ~`
	l := NewLexer(input, 1)
	want := []TokenType{STRICT_EQ, STRICT_NOT_EQ, USHR, USHR_ASSIGN, COALESCE,
		LOGICAL_AND, LOGICAL_OR, ASTERISK, ASTERISK, PERCENT, AND_ASSIGN, TILDE, EOF}
	for i, typ := range want {
		tok := l.NextToken()
		if tok.Type != typ {
			t.Fatalf("token %d: expected %s, got %s", i, typ, tok.Type)
		}
	}
}

func TestNumberFormats(t *testing.T) {
	cases := map[string]string{
		"123":    "123",
		"1.5":    "1.5",
		"0x1f":   "0x1f",
		"0b101":  "0b101",
		"0o777":  "0o777",
		"1e10":   "1e10",
		"2.5e-3": "2.5e-3",
		".5":     ".5",
	}
	for input, wantLit := range cases {
		l := NewLexer(input, 1)
		tok := l.NextToken()
		if tok.Type != NUMBER || tok.Literal != wantLit {
			t.Errorf("lexing %q: got (%s, %q)", input, tok.Type, tok.Literal)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	l := NewLexer(`"a\nb\t\"cA"`, 1)
	tok := l.NextToken()
	if tok.Type != STRING {
		t.Fatalf("expected string, got %s", tok.Type)
	}
	if tok.Literal != "a\nb\t\"cA" {
		t.Errorf("unescaped literal mismatch: %q", tok.Literal)
	}
}

func TestLineColumnTracking(t *testing.T) {
	l := NewLexer("a\n  b", 1)
	a := l.NextToken()
	b := l.NextToken()
	if a.Line != 1 || a.Column != 1 {
		t.Errorf("a at %d:%d, want 1:1", a.Line, a.Column)
	}
	if b.Line != 2 || b.Column != 3 {
		t.Errorf("b at %d:%d, want 2:3", b.Line, b.Column)
	}
	if !b.NewlineBefore {
		t.Errorf("b should carry NewlineBefore for semicolon insertion")
	}
}

func TestStartLineOffset(t *testing.T) {
	l := NewLexer("x", 7)
	tok := l.NextToken()
	if tok.Line != 7 {
		t.Errorf("expected start line 7, got %d", tok.Line)
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	l := NewLexer("a // comment\n/* block\ncomment */ b", 1)
	a := l.NextToken()
	b := l.NextToken()
	if a.Literal != "a" || b.Literal != "b" {
		t.Fatalf("comments should vanish, got %q then %q", a.Literal, b.Literal)
	}
	if !b.NewlineBefore {
		t.Errorf("newline inside block comment should still set NewlineBefore")
	}
}

func TestRegexRescan(t *testing.T) {
	l := NewLexer(`/ab+c/gi`, 1)
	slash := l.NextToken()
	if slash.Type != SLASH {
		t.Fatalf("expected slash first, got %s", slash.Type)
	}
	tok, ok := l.ScanRegexBody(slash)
	if !ok {
		t.Fatalf("regex rescan failed")
	}
	if tok.Type != REGEX || tok.Literal != "/ab+c/gi" {
		t.Errorf("regex literal mismatch: (%s, %q)", tok.Type, tok.Literal)
	}
}
