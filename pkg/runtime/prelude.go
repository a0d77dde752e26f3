package runtime

import (
	"strings"

	"prebake/pkg/ast"
)

// PreludeGenerator owns a cache of memoized references to built-in objects.
// The first use of a path such as "Object.prototype" emits a top-level var
// declaration binding it; later uses reuse the cached identifier.
type PreludeGenerator struct {
	NameGen  *NameGenerator
	prelude  []ast.Statement
	memoized map[string]string // path -> identifier
}

// NewPreludeGenerator creates an empty prelude.
func NewPreludeGenerator(nameGen *NameGenerator) *PreludeGenerator {
	return &PreludeGenerator{
		NameGen:  nameGen,
		memoized: make(map[string]string),
	}
}

// Statements returns the accumulated prelude declarations in order.
func (p *PreludeGenerator) Statements() []ast.Statement {
	return p.prelude
}

// MemoizedRef returns an expression referring to the built-in at path
// ("global", "console", "Object.defineProperty"), memoizing a prelude var
// on first use.
func (p *PreludeGenerator) MemoizedRef(path string) ast.Expression {
	if id, ok := p.memoized[path]; ok {
		return &ast.Identifier{Name: id}
	}

	var init ast.Expression
	if path == "global" {
		init = &ast.Identifier{Name: "globalThis"}
	} else {
		init = p.pathExpression(path)
	}

	id := p.NameGen.Generate(strings.ReplaceAll(path, ".", "_"))
	p.memoized[path] = id
	p.prelude = append(p.prelude, &ast.VariableDeclaration{
		DeclKind: "var",
		Declarators: []*ast.VariableDeclarator{{
			Name: &ast.Identifier{Name: id},
			Init: init,
		}},
	})
	return &ast.Identifier{Name: id}
}

// GlobalPropertyRef returns `<globalRef>.name` for a global binding.
func (p *PreludeGenerator) GlobalPropertyRef(name string) ast.Expression {
	globalRef := p.MemoizedRef("global")
	if isIdentifierName(name) {
		return &ast.MemberExpression{Object: globalRef, Property: &ast.Identifier{Name: name}}
	}
	return &ast.MemberExpression{Object: globalRef, Property: &ast.StringLiteral{Value: name}, Computed: true}
}

// pathExpression renders a dotted path as member accesses off the global
// reference.
func (p *PreludeGenerator) pathExpression(path string) ast.Expression {
	parts := strings.Split(path, ".")
	var expr ast.Expression = p.MemoizedRef("global")
	for _, part := range parts {
		expr = &ast.MemberExpression{Object: expr, Property: &ast.Identifier{Name: part}}
	}
	return expr
}
