package runtime

import (
	"prebake/pkg/ast"
	"prebake/pkg/errors"
)

// EmitContext is handed to build-node closures at residualization time. It
// resolves memoized intrinsic references through the prelude.
type EmitContext struct {
	Prelude *PreludeGenerator
}

// BuildNodeFunc renders a generator entry into a statement, given the
// already-serialized argument expressions and the rendered bodies of any
// child generators.
type BuildNodeFunc func(argExprs []ast.Expression, ctx *EmitContext, childBodies [][]ast.Statement) ast.Statement

// GeneratorEntry is one recorded effect. Args are the data dependencies;
// Declared, when set, is a fresh abstract value the entry binds (the
// identifier is chosen at residualization). Pure entries may be dropped
// when their declared value is never needed.
type GeneratorEntry struct {
	Args      []Value
	BuildNode BuildNodeFunc
	Declared  *AbstractValue
	Children  []*Generator
	Pure      bool
}

// Generator is a tree-shaped log of externally observable operations.
// Each realm has a root generator; a speculative frame gets a child whose
// entries can be discarded wholesale. Entries are never reordered.
type Generator struct {
	realm   *Realm
	Name    string
	Entries []*GeneratorEntry
}

// NewGenerator creates an empty generator.
func NewGenerator(r *Realm, name string) *Generator {
	return &Generator{realm: r, Name: name}
}

// Empty reports whether no entries were recorded.
func (g *Generator) Empty() bool { return len(g.Entries) == 0 }

func (g *Generator) push(e *GeneratorEntry) {
	g.Entries = append(g.Entries, e)
}

// AppendFragment moves another generator's entries onto this one, in order.
func (g *Generator) AppendFragment(frag *Generator) {
	g.Entries = append(g.Entries, frag.Entries...)
}

// --- Side-effect records ---

// EmitGlobalAssignment records `name = value;` on the global object.
func (g *Generator) EmitGlobalAssignment(name string, value Value) {
	g.push(&GeneratorEntry{
		Args: []Value{value},
		BuildNode: func(argExprs []ast.Expression, ctx *EmitContext, _ [][]ast.Statement) ast.Statement {
			return exprStatement(&ast.AssignmentExpression{
				Operator: "=",
				Target:   ctx.Prelude.GlobalPropertyRef(name),
				Value:    argExprs[0],
			})
		},
	})
}

// EmitGlobalDelete records `delete global.name;`.
func (g *Generator) EmitGlobalDelete(name string) {
	g.push(&GeneratorEntry{
		BuildNode: func(argExprs []ast.Expression, ctx *EmitContext, _ [][]ast.Statement) ast.Statement {
			return exprStatement(&ast.UnaryExpression{
				Operator: "delete",
				Argument: ctx.Prelude.GlobalPropertyRef(name),
			})
		},
	})
}

// EmitPropertyAssignment records `obj.key = value;`.
func (g *Generator) EmitPropertyAssignment(obj Value, key PropertyKey, value Value) {
	g.push(&GeneratorEntry{
		Args: []Value{obj, value},
		BuildNode: func(argExprs []ast.Expression, ctx *EmitContext, _ [][]ast.Statement) ast.Statement {
			return exprStatement(&ast.AssignmentExpression{
				Operator: "=",
				Target:   memberExpr(argExprs[0], key),
				Value:    argExprs[1],
			})
		},
	})
}

// EmitComputedPropertyAssignment records `obj[key] = value;` with an
// arbitrary (possibly abstract) key value.
func (g *Generator) EmitComputedPropertyAssignment(obj, key, value Value) {
	g.push(&GeneratorEntry{
		Args: []Value{obj, key, value},
		BuildNode: func(argExprs []ast.Expression, ctx *EmitContext, _ [][]ast.Statement) ast.Statement {
			return exprStatement(&ast.AssignmentExpression{
				Operator: "=",
				Target:   &ast.MemberExpression{Object: argExprs[0], Property: argExprs[1], Computed: true},
				Value:    argExprs[2],
			})
		},
	})
}

// EmitDefineProperty records an Object.defineProperty call reproducing desc.
func (g *Generator) EmitDefineProperty(obj Value, key PropertyKey, desc *Descriptor) {
	args := []Value{obj}
	// Argument layout: obj, then value or get/set.
	dataIdx, getIdx, setIdx := -1, -1, -1
	if desc.IsData() {
		dataIdx = len(args)
		args = append(args, desc.Value)
	} else {
		if desc.Get != nil {
			getIdx = len(args)
			args = append(args, desc.Get)
		}
		if desc.Set != nil {
			setIdx = len(args)
			args = append(args, desc.Set)
		}
	}
	writable, enumerable, configurable := desc.Writable, desc.Enumerable, desc.Configurable
	isData := desc.IsData()
	g.push(&GeneratorEntry{
		Args: args,
		BuildNode: func(argExprs []ast.Expression, ctx *EmitContext, _ [][]ast.Statement) ast.Statement {
			props := []*ast.ObjectProperty{}
			addFlag := func(name string, v bool) {
				props = append(props, &ast.ObjectProperty{
					Key:   &ast.Identifier{Name: name},
					Value: &ast.BooleanLiteral{Value: v},
				})
			}
			if isData {
				props = append(props, &ast.ObjectProperty{
					Key:   &ast.Identifier{Name: "value"},
					Value: argExprs[dataIdx],
				})
				addFlag("writable", writable)
			} else {
				if getIdx >= 0 {
					props = append(props, &ast.ObjectProperty{Key: &ast.Identifier{Name: "get"}, Value: argExprs[getIdx]})
				}
				if setIdx >= 0 {
					props = append(props, &ast.ObjectProperty{Key: &ast.Identifier{Name: "set"}, Value: argExprs[setIdx]})
				}
			}
			addFlag("enumerable", enumerable)
			addFlag("configurable", configurable)
			return exprStatement(&ast.CallExpression{
				Callee:    ctx.Prelude.MemoizedRef("Object.defineProperty"),
				Arguments: []ast.Expression{argExprs[0], keyLiteral(key), &ast.ObjectLiteral{Properties: props}},
			})
		},
	})
}

// EmitPropertyDelete records `delete obj.key;`.
func (g *Generator) EmitPropertyDelete(obj Value, key PropertyKey) {
	g.push(&GeneratorEntry{
		Args: []Value{obj},
		BuildNode: func(argExprs []ast.Expression, ctx *EmitContext, _ [][]ast.Statement) ast.Statement {
			return exprStatement(&ast.UnaryExpression{
				Operator: "delete",
				Argument: memberExpr(argExprs[0], key),
			})
		},
	})
}

// EmitCall records a call whose return value is unused: `callee(args...);`.
func (g *Generator) EmitCall(callee Value, args []Value) {
	all := append([]Value{callee}, args...)
	g.push(&GeneratorEntry{
		Args: all,
		BuildNode: func(argExprs []ast.Expression, ctx *EmitContext, _ [][]ast.Statement) ast.Statement {
			return exprStatement(&ast.CallExpression{Callee: argExprs[0], Arguments: argExprs[1:]})
		},
	})
}

// EmitVoidExpression records the evaluation of value for effect only.
func (g *Generator) EmitVoidExpression(value Value) {
	g.push(&GeneratorEntry{
		Args: []Value{value},
		BuildNode: func(argExprs []ast.Expression, ctx *EmitContext, _ [][]ast.Statement) ast.Statement {
			return exprStatement(argExprs[0])
		},
	})
}

// EmitConsoleLog records `console.<method>(args...);`.
func (g *Generator) EmitConsoleLog(method string, args []Value) {
	g.push(&GeneratorEntry{
		Args: args,
		BuildNode: func(argExprs []ast.Expression, ctx *EmitContext, _ [][]ast.Statement) ast.Statement {
			return exprStatement(&ast.CallExpression{
				Callee: &ast.MemberExpression{
					Object:   ctx.Prelude.MemoizedRef("console"),
					Property: &ast.Identifier{Name: method},
				},
				Arguments: argExprs,
			})
		},
	})
}

// EmitThrow records `throw value;`, re-raising at runtime a throw the
// interpreter observed on a speculative path.
func (g *Generator) EmitThrow(value Value) {
	g.push(&GeneratorEntry{
		Args: []Value{value},
		BuildNode: func(argExprs []ast.Expression, ctx *EmitContext, _ [][]ast.Statement) ast.Statement {
			return &ast.ThrowStatement{Argument: argExprs[0]}
		},
	})
}

// EmitConditional records a two-armed conditional whose guard is abstract;
// the children are the speculative fragments of the branches.
func (g *Generator) EmitConditional(cond Value, consequent, alternate *Generator) {
	g.push(&GeneratorEntry{
		Args:     []Value{cond},
		Children: []*Generator{consequent, alternate},
		BuildNode: func(argExprs []ast.Expression, ctx *EmitContext, childBodies [][]ast.Statement) ast.Statement {
			consBody := &ast.BlockStatement{Statements: childBodies[0]}
			altBody := &ast.BlockStatement{Statements: childBodies[1]}
			stmt := &ast.IfStatement{Test: argExprs[0], Consequent: consBody}
			if len(childBodies[1]) > 0 {
				stmt.Alternate = altBody
			}
			return stmt
		},
	})
}

// EmitResidualForIn records `for (var k in source) { target[k] = source[k]; }`
// with key as the fresh loop binding.
func (g *Generator) EmitResidualForIn(target, sourceObj Value, key *AbstractValue) {
	g.push(&GeneratorEntry{
		Args:     []Value{target, sourceObj},
		Declared: key,
		BuildNode: func(argExprs []ast.Expression, ctx *EmitContext, _ [][]ast.Statement) ast.Statement {
			keyIdent := key.BoundName
			if keyIdent == "" {
				errors.InvariantFailed("residual for-in key has no assigned identifier")
			}
			keyRef := func() ast.Expression { return &ast.Identifier{Name: keyIdent} }
			left := &ast.VariableDeclaration{
				DeclKind:    "var",
				Declarators: []*ast.VariableDeclarator{{Name: &ast.Identifier{Name: keyIdent}}},
			}
			body := &ast.BlockStatement{Statements: []ast.Statement{
				exprStatement(&ast.AssignmentExpression{
					Operator: "=",
					Target:   &ast.MemberExpression{Object: argExprs[0], Property: keyRef(), Computed: true},
					Value:    &ast.MemberExpression{Object: argExprs[1], Property: keyRef(), Computed: true},
				}),
			}}
			return &ast.ForInStatement{Left: left, Right: argExprs[1], Body: body}
		},
	})
}

// --- Value production ---

// DeriveOptions tune Derive.
type DeriveOptions struct {
	Kind          AbstractKind
	IsPure        bool
	SkipInvariant bool
}

// Derive appends a variable-declaration entry and returns a fresh abstract
// value bound to it. The declaration's identifier is allocated at
// residualization time. Unless skipped, and when types is a single
// non-object type with a typeof tag, a runtime typeof invariant guard is
// emitted too, so that a mis-modeled intrinsic is caught in the produced
// program instead of silently misbehaving.
func (g *Generator) Derive(types TypeFlag, values ValuesDomain, args []Value, template OriginTemplate, opts DeriveOptions) *AbstractValue {
	av := g.realm.CreateAbstract(types, values, args, template, opts.Kind)
	g.push(&GeneratorEntry{
		Args:     args,
		Declared: av,
		Pure:     opts.IsPure,
		BuildNode: func(argExprs []ast.Expression, ctx *EmitContext, _ [][]ast.Statement) ast.Statement {
			if av.BoundName == "" {
				errors.InvariantFailed("derived value emitted before identifier assignment")
			}
			return &ast.VariableDeclaration{
				DeclKind: "var",
				Declarators: []*ast.VariableDeclarator{{
					Name: &ast.Identifier{Name: av.BoundName},
					Init: template(argExprs),
				}},
			}
		},
	})

	if !opts.SkipInvariant && types.IsSingleType() && types != FlagObject {
		expected := typeofForFlag(types)
		if expected != "" {
			g.EmitInvariant([]Value{av}, func(argExprs []ast.Expression) ast.Expression {
				return &ast.BinaryExpression{
					Operator: "!==",
					Left:     &ast.UnaryExpression{Operator: "typeof", Argument: argExprs[0]},
					Right:    &ast.StringLiteral{Value: expected},
				}
			})
		}
	}
	return av
}

// EmitInvariant records `if (<condition>) throw new Error(...)` over the
// argument expressions.
func (g *Generator) EmitInvariant(args []Value, condition func(argExprs []ast.Expression) ast.Expression) {
	g.push(&GeneratorEntry{
		Args: args,
		Pure: true,
		BuildNode: func(argExprs []ast.Expression, ctx *EmitContext, _ [][]ast.Statement) ast.Statement {
			return &ast.IfStatement{
				Test: condition(argExprs),
				Consequent: &ast.BlockStatement{Statements: []ast.Statement{
					&ast.ThrowStatement{Argument: &ast.NewExpression{
						Callee:    &ast.Identifier{Name: "Error"},
						Arguments: []ast.Expression{&ast.StringLiteral{Value: "Prebake model invariant violation"}},
					}},
				}},
			}
		},
	})
}

// --- helpers ---

func exprStatement(e ast.Expression) ast.Statement {
	return &ast.ExpressionStatement{Expression: e}
}

func memberExpr(obj ast.Expression, key PropertyKey) ast.Expression {
	if !key.IsSymbol() && isIdentifierName(key.Str) {
		return &ast.MemberExpression{Object: obj, Property: &ast.Identifier{Name: key.Str}}
	}
	if idx, ok := key.ArrayIndex(); ok {
		return &ast.MemberExpression{
			Object:   obj,
			Property: &ast.NumberLiteral{Value: float64(idx), Raw: key.Str},
			Computed: true,
		}
	}
	return &ast.MemberExpression{Object: obj, Property: keyLiteral(key), Computed: true}
}

func keyLiteral(key PropertyKey) ast.Expression {
	if key.IsSymbol() {
		errors.InvariantFailed("symbol key cannot be rendered as a literal")
	}
	return &ast.StringLiteral{Value: key.Str}
}

func typeofForFlag(f TypeFlag) string {
	switch f {
	case FlagUndefined:
		return "undefined"
	case FlagBoolean:
		return "boolean"
	case FlagNumber:
		return "number"
	case FlagString:
		return "string"
	case FlagSymbol:
		return "symbol"
	case FlagFunction:
		return "function"
	default:
		return ""
	}
}
