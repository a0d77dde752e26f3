package runtime

import (
	"prebake/pkg/errors"
)

// CompletionType enumerates the arms of the completion sum type.
type CompletionType int

const (
	NormalCompletion CompletionType = iota
	BreakCompletion
	ContinueCompletion
	ReturnCompletion
	ThrowCompletion
	// JoinedAbruptCompletions joins two abrupt branches under an abstract
	// condition.
	JoinedAbruptCompletions
	// PossiblyNormalCompletion joins one normal branch and one abrupt
	// branch under an abstract condition.
	PossiblyNormalCompletion
)

func (t CompletionType) String() string {
	switch t {
	case NormalCompletion:
		return "normal"
	case BreakCompletion:
		return "break"
	case ContinueCompletion:
		return "continue"
	case ReturnCompletion:
		return "return"
	case ThrowCompletion:
		return "throw"
	case JoinedAbruptCompletions:
		return "joined"
	case PossiblyNormalCompletion:
		return "possibly-normal"
	default:
		return "unknown"
	}
}

// Completion is the structured outcome of evaluating a node. Value may be
// nil for empty completions (the Standard's ~empty~), which UpdateEmpty
// fills in.
type Completion struct {
	Type   CompletionType
	Value  Value
	Target string           // label for break/continue; "" when unlabeled
	Loc    errors.Position  // throw site for throw completions

	// Join arms. For JoinedAbruptCompletions both branches are abrupt; for
	// PossiblyNormalCompletion, Consequent or Alternate is normal as told
	// by NormalIsConsequent.
	Condition          Value
	Consequent         *Completion
	Alternate          *Completion
	NormalIsConsequent bool
}

// Normal wraps a value in a normal completion.
func Normal(v Value) *Completion {
	return &Completion{Type: NormalCompletion, Value: v}
}

// Empty is a normal completion with no value.
func Empty() *Completion {
	return &Completion{Type: NormalCompletion}
}

// Throw builds a throw completion carrying the thrown value and location.
func Throw(v Value, loc errors.Position) *Completion {
	return &Completion{Type: ThrowCompletion, Value: v, Loc: loc}
}

// IsAbrupt reports whether the completion is not normal. Possibly-normal
// completions count as normal for control flow; their abrupt side is
// materialized by the join site that produced them.
func (c *Completion) IsAbrupt() bool {
	return c.Type != NormalCompletion && c.Type != PossiblyNormalCompletion
}

// UpdateEmpty fills an empty completion value with v, recursing into joins,
// per the Standard's UpdateEmpty.
func (c *Completion) UpdateEmpty(v Value) *Completion {
	switch c.Type {
	case JoinedAbruptCompletions, PossiblyNormalCompletion:
		c.Consequent = c.Consequent.UpdateEmpty(v)
		c.Alternate = c.Alternate.UpdateEmpty(v)
		return c
	case ReturnCompletion, ThrowCompletion:
		return c
	default:
		if c.Value == nil {
			c.Value = v
		}
		return c
	}
}

// matchesLabel reports whether a break/continue targets the given label set.
func (c *Completion) matchesLabel(label string) bool {
	return c.Target == "" || c.Target == label
}

// JoinCompletions merges the outcomes of two speculatively evaluated
// branches under an abstract condition. Two normal branches fold into one
// normal completion whose value is joined by the caller; one abrupt side
// produces a possibly-normal completion; two abrupt sides join only when
// structurally compatible, otherwise the engine cannot soundly residualize
// and reports an introspection error via diag.
func JoinCompletions(cond Value, consequent, alternate *Completion, joinValues func(a, b Value) Value) (*Completion, *errors.CompilerDiagnostic) {
	consAbrupt := consequent.IsAbrupt()
	altAbrupt := alternate.IsAbrupt()

	switch {
	case !consAbrupt && !altAbrupt:
		return Normal(joinValues(completionValue(consequent), completionValue(alternate))), nil
	case consAbrupt && altAbrupt:
		if !compatibleAbrupt(consequent, alternate) {
			return nil, errors.NewDiagnostic(errors.CodeIncompatibleJoin, errors.FatalError, consequent.Loc,
				"cannot join %s and %s completions under an abstract condition", consequent.Type, alternate.Type)
		}
		return &Completion{
			Type:       JoinedAbruptCompletions,
			Condition:  cond,
			Consequent: consequent,
			Alternate:  alternate,
		}, nil
	case consAbrupt:
		return &Completion{
			Type:               PossiblyNormalCompletion,
			Condition:          cond,
			Consequent:         consequent,
			Alternate:          alternate,
			NormalIsConsequent: false,
			Value:              completionValue(alternate),
		}, nil
	default:
		return &Completion{
			Type:               PossiblyNormalCompletion,
			Condition:          cond,
			Consequent:         consequent,
			Alternate:          alternate,
			NormalIsConsequent: true,
			Value:              completionValue(consequent),
		}, nil
	}
}

// compatibleAbrupt reports whether two abrupt completions can be merged
// into one joined completion: same arm, same target label for loop
// completions, and same error kind for throws.
func compatibleAbrupt(a, b *Completion) bool {
	if a.Type == JoinedAbruptCompletions || b.Type == JoinedAbruptCompletions {
		// Nested joins are compatible; the condition tree keeps them apart.
		return true
	}
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case BreakCompletion, ContinueCompletion:
		return a.Target == b.Target
	case ThrowCompletion:
		return thrownErrorKind(a.Value) == thrownErrorKind(b.Value)
	default:
		return true
	}
}

// thrownErrorKind returns the error kind recorded on a thrown error object,
// or "" when the value is not a known error instance.
func thrownErrorKind(v Value) string {
	obj, ok := AsObject(v)
	if !ok {
		return ""
	}
	if kind, ok := obj.Slot("ErrorData"); ok {
		if s, isStr := kind.(StringValue); isStr {
			return string(s)
		}
	}
	return ""
}

func completionValue(c *Completion) Value {
	if c.Value == nil {
		return Undefined
	}
	return c.Value
}
