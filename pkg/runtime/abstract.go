package runtime

import (
	"strings"

	"prebake/pkg/ast"
	"prebake/pkg/errors"
)

// AbstractKind tags abstract values so the interpreter can recognize and
// simplify patterns it minted itself.
type AbstractKind string

const (
	KindNone                  AbstractKind = ""
	KindPropertyNameCondition AbstractKind = "template for property name condition"
	KindSentinelMember        AbstractKind = "sentinel member expression"
	KindCheckKnownProperty    AbstractKind = "check for known property"
	KindConditional           AbstractKind = "conditional"
	KindResidualCall          AbstractKind = "residual call"
	KindTypeofCheck           AbstractKind = "typeof check"
	KindEnumeratedKey         AbstractKind = "enumerated key"
)

// OriginTemplate renders the source expression an abstract value stands for,
// given the rendered argument expressions. Templates are opaque to the
// interpreter and consumed only by the residualizer.
type OriginTemplate func(argExprs []ast.Expression) ast.Expression

// ValuesDomain is the finite set of concrete candidate values an abstract
// value may take, or ⊤ when unbounded.
type ValuesDomain struct {
	top        bool
	candidates []Value
}

// ValuesTop is the unbounded values domain.
var ValuesTop = ValuesDomain{top: true}

// NewValuesDomain builds a finite values domain.
func NewValuesDomain(candidates []Value) ValuesDomain {
	return ValuesDomain{candidates: candidates}
}

// IsTop reports whether the domain is unbounded.
func (d ValuesDomain) IsTop() bool { return d.top }

// Candidates returns the finite candidate set (nil when top).
func (d ValuesDomain) Candidates() []Value { return d.candidates }

// Join returns the lattice join of two values domains.
func (d ValuesDomain) Join(other ValuesDomain) ValuesDomain {
	if d.top || other.top {
		return ValuesTop
	}
	joined := make([]Value, len(d.candidates))
	copy(joined, d.candidates)
	for _, v := range other.candidates {
		dup := false
		for _, u := range joined {
			if SameValue(u, v) {
				dup = true
				break
			}
		}
		if !dup {
			joined = append(joined, v)
		}
	}
	return ValuesDomain{candidates: joined}
}

// AbstractValue stands for a value not known at build time. It is immutable
// after construction; Args form an acyclic dependency DAG.
type AbstractValue struct {
	types    TypeFlag
	values   ValuesDomain
	Args     []Value
	Template OriginTemplate
	Kind     AbstractKind

	// Intrinsic name for prelude-memoized references ("global.Object").
	IntrinsicName string

	// BoundName is the output identifier allocated by the residualizer for
	// generator-declared values. Empty until then.
	BoundName string
}

func (a *AbstractValue) valueNode()      {}
func (a *AbstractValue) Types() TypeFlag { return a.types }
func (a *AbstractValue) Display() string {
	var sb strings.Builder
	sb.WriteString("abstract(")
	sb.WriteString(a.types.String())
	if a.Kind != KindNone {
		sb.WriteString(", ")
		sb.WriteString(string(a.Kind))
	}
	sb.WriteString(")")
	return sb.String()
}

// Values returns the values domain.
func (a *AbstractValue) Values() ValuesDomain { return a.values }

// MightBeTruthy and MightBeFalsy inspect the domains conservatively.
func (a *AbstractValue) MightBeTruthy() bool {
	if a.values.IsTop() {
		return true
	}
	for _, c := range a.values.Candidates() {
		if ToBooleanConcrete(c) {
			return true
		}
	}
	return false
}

func (a *AbstractValue) MightBeFalsy() bool {
	if a.values.IsTop() {
		// A domain of only object types can never be falsy.
		return a.types&^(FlagObject|FlagFunction) != 0
	}
	for _, c := range a.values.Candidates() {
		if !ToBooleanConcrete(c) {
			return true
		}
	}
	return false
}

// AbstractObjectValue is an abstract value whose types domain is exactly
// Object, optionally with a finite set of concrete object candidates.
type AbstractObjectValue struct {
	AbstractValue
	// ObjectCandidates is the finite value-set of concrete candidates, nil
	// when unknown.
	ObjectCandidates []*ObjectValue

	// simplePartial caches the object-mode bits asserted for the unknown
	// object (set by __abstract_simple_partial and friends).
	simple  bool
	partial bool
}

func (a *AbstractObjectValue) valueNode()      {}
func (a *AbstractObjectValue) Types() TypeFlag { return FlagObject }

// IsSimple reports whether every candidate (or the asserted mode) is simple.
func (a *AbstractObjectValue) IsSimple() bool {
	if len(a.ObjectCandidates) == 0 {
		return a.simple
	}
	for _, o := range a.ObjectCandidates {
		if !o.IsSimple() {
			return false
		}
	}
	return true
}

// IsPartial reports whether the abstract object is partial.
func (a *AbstractObjectValue) IsPartial() bool {
	if len(a.ObjectCandidates) == 0 {
		return a.partial
	}
	for _, o := range a.ObjectCandidates {
		if !o.Partial {
			return false
		}
	}
	return true
}

// AssertModes fixes the simple/partial bits of a candidate-less abstract
// object; used by the annotation intrinsics.
func (a *AbstractObjectValue) AssertModes(simple, partial bool) {
	if len(a.ObjectCandidates) != 0 {
		errors.InvariantFailed("mode assertion on abstract object with candidates")
	}
	a.simple = simple
	a.partial = partial
}

// --- Template helpers ---

// IdentTemplate renders a fixed identifier, ignoring arguments.
func IdentTemplate(name string) OriginTemplate {
	return func([]ast.Expression) ast.Expression {
		return &ast.Identifier{Name: name}
	}
}

// MemberTemplate renders `args[0].prop` (or args[0][prop] when computed).
func MemberTemplate(prop string, computed bool) OriginTemplate {
	return func(argExprs []ast.Expression) ast.Expression {
		var p ast.Expression
		if computed {
			p = &ast.StringLiteral{Value: prop}
		} else {
			p = &ast.Identifier{Name: prop}
		}
		return &ast.MemberExpression{Object: argExprs[0], Property: p, Computed: computed}
	}
}

// ComputedMemberTemplate renders `args[0][args[1]]`.
func ComputedMemberTemplate() OriginTemplate {
	return func(argExprs []ast.Expression) ast.Expression {
		return &ast.MemberExpression{Object: argExprs[0], Property: argExprs[1], Computed: true}
	}
}

// CallTemplate renders `args[0](args[1:]...)`.
func CallTemplate() OriginTemplate {
	return func(argExprs []ast.Expression) ast.Expression {
		return &ast.CallExpression{Callee: argExprs[0], Arguments: argExprs[1:]}
	}
}

// BinaryTemplate renders `args[0] <op> args[1]`.
func BinaryTemplate(op string) OriginTemplate {
	return func(argExprs []ast.Expression) ast.Expression {
		return &ast.BinaryExpression{Operator: op, Left: argExprs[0], Right: argExprs[1]}
	}
}

// LogicalTemplate renders `args[0] <op> args[1]` for && || ??.
func LogicalTemplate(op string) OriginTemplate {
	return func(argExprs []ast.Expression) ast.Expression {
		return &ast.LogicalExpression{Operator: op, Left: argExprs[0], Right: argExprs[1]}
	}
}

// UnaryTemplate renders `<op> args[0]`.
func UnaryTemplate(op string) OriginTemplate {
	return func(argExprs []ast.Expression) ast.Expression {
		return &ast.UnaryExpression{Operator: op, Argument: argExprs[0]}
	}
}

// ConditionalTemplate renders `args[0] ? args[1] : args[2]`.
func ConditionalTemplate() OriginTemplate {
	return func(argExprs []ast.Expression) ast.Expression {
		return &ast.ConditionalExpression{Test: argExprs[0], Consequent: argExprs[1], Alternate: argExprs[2]}
	}
}
