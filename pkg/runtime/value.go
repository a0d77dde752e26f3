package runtime

import (
	"math"
	"strconv"
	"strings"
)

// TypeFlag is a bit in the types domain of a value. A concrete value has
// exactly one flag set; an abstract value may have any non-empty subset.
type TypeFlag uint16

const (
	FlagUndefined TypeFlag = 1 << iota
	FlagNull
	FlagBoolean
	FlagNumber
	FlagString
	FlagSymbol
	FlagObject
	FlagFunction

	// TypesTop is the full lattice: nothing is known about the type.
	TypesTop = FlagUndefined | FlagNull | FlagBoolean | FlagNumber |
		FlagString | FlagSymbol | FlagObject | FlagFunction
)

// FlagPrimitive covers every non-object arm.
const FlagPrimitive = FlagUndefined | FlagNull | FlagBoolean | FlagNumber | FlagString | FlagSymbol

func (f TypeFlag) String() string {
	var parts []string
	add := func(bit TypeFlag, name string) {
		if f&bit != 0 {
			parts = append(parts, name)
		}
	}
	add(FlagUndefined, "undefined")
	add(FlagNull, "null")
	add(FlagBoolean, "boolean")
	add(FlagNumber, "number")
	add(FlagString, "string")
	add(FlagSymbol, "symbol")
	add(FlagObject, "object")
	add(FlagFunction, "function")
	return strings.Join(parts, "|")
}

// Value is the closed variant of every runtime value the interpreter touches:
// concrete primitives, objects, functions, and abstract values standing for
// data not known at build time.
type Value interface {
	valueNode()
	// Types returns the types domain: a single flag for concrete values.
	Types() TypeFlag
	// Display returns a debugging representation.
	Display() string
}

// --- Concrete primitives ---

type UndefinedValue struct{}
type NullValue struct{}
type BooleanValue bool
type NumberValue float64
type StringValue string

// SymbolValue has identity; two symbols with the same description are
// distinct unless they are the same pointer.
type SymbolValue struct {
	Description string
}

var (
	Undefined = UndefinedValue{}
	Null      = NullValue{}
	True      = BooleanValue(true)
	False     = BooleanValue(false)
	NaN       = NumberValue(math.NaN())
)

func (UndefinedValue) valueNode()  {}
func (NullValue) valueNode()       {}
func (BooleanValue) valueNode()    {}
func (NumberValue) valueNode()     {}
func (StringValue) valueNode()     {}
func (*SymbolValue) valueNode()    {}

func (UndefinedValue) Types() TypeFlag { return FlagUndefined }
func (NullValue) Types() TypeFlag      { return FlagNull }
func (BooleanValue) Types() TypeFlag   { return FlagBoolean }
func (NumberValue) Types() TypeFlag    { return FlagNumber }
func (StringValue) Types() TypeFlag    { return FlagString }
func (*SymbolValue) Types() TypeFlag   { return FlagSymbol }

func (UndefinedValue) Display() string { return "undefined" }
func (NullValue) Display() string      { return "null" }
func (b BooleanValue) Display() string {
	if b {
		return "true"
	}
	return "false"
}
func (n NumberValue) Display() string { return NumberToString(float64(n)) }
func (s StringValue) Display() string { return strconv.Quote(string(s)) }
func (s *SymbolValue) Display() string {
	return "Symbol(" + s.Description + ")"
}

// NewBoolean returns the shared boolean value.
func NewBoolean(b bool) BooleanValue {
	if b {
		return True
	}
	return False
}

// --- Derived predicates ---

// IsConcrete reports whether v is fully known at build time.
func IsConcrete(v Value) bool {
	switch v.(type) {
	case *AbstractValue, *AbstractObjectValue:
		return false
	}
	return true
}

// MightBeObject reports whether v's types domain admits an object.
func MightBeObject(v Value) bool {
	return v.Types()&(FlagObject|FlagFunction) != 0
}

// MightBeFunction reports whether v's types domain admits a callable.
func MightBeFunction(v Value) bool {
	return v.Types()&FlagFunction != 0
}

// MightBeUndefinedOrNull reports whether v's types domain admits
// undefined or null.
func MightBeUndefinedOrNull(v Value) bool {
	return v.Types()&(FlagUndefined|FlagNull) != 0
}

// --- Number formatting ---

// cleanExponentialFormat removes leading zeros from an exponent to match the
// ECMAScript format, e.g. "1e-07" -> "1e-7".
func cleanExponentialFormat(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == 'e' || s[i] == 'E' {
			if i+1 < len(s) && (s[i+1] == '+' || s[i+1] == '-') {
				sign := s[i+1]
				expStart := i + 2
				j := expStart
				for j < len(s) && s[j] == '0' {
					j++
				}
				if j >= len(s) {
					return s[:i+2] + "0"
				}
				return s[:i+1] + string(sign) + s[j:]
			}
			break
		}
	}
	return s
}

// NumberToString implements the Standard's ToString on numbers.
func NumberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "0"
		}
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || (abs < 1e-6 && abs > 0) {
		return cleanExponentialFormat(strconv.FormatFloat(f, 'e', -1, 64))
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// StringToNumber implements the Standard's ToNumber on strings.
func StringToNumber(s string) float64 {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0
	}
	if strings.HasPrefix(t, "0x") || strings.HasPrefix(t, "0X") {
		n, err := strconv.ParseUint(t[2:], 16, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	if t == "Infinity" || t == "+Infinity" {
		return math.Inf(1)
	}
	if t == "-Infinity" {
		return math.Inf(-1)
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// --- Coercions over concrete values ---

// ToBooleanConcrete applies the Standard's ToBoolean to a concrete value.
func ToBooleanConcrete(v Value) bool {
	switch x := v.(type) {
	case UndefinedValue, NullValue:
		return false
	case BooleanValue:
		return bool(x)
	case NumberValue:
		f := float64(x)
		return f != 0 && !math.IsNaN(f)
	case StringValue:
		return len(x) != 0
	default:
		// symbols, objects, functions
		return true
	}
}

// TypeOfString returns the typeof result for a concrete value.
func TypeOfString(v Value) string {
	switch v.(type) {
	case UndefinedValue:
		return "undefined"
	case NullValue:
		return "object"
	case BooleanValue:
		return "boolean"
	case NumberValue:
		return "number"
	case StringValue:
		return "string"
	case *SymbolValue:
		return "symbol"
	case *FunctionValue:
		return "function"
	case *ObjectValue:
		return "object"
	default:
		return ""
	}
}

// SameValue implements the Standard's SameValue on concrete values:
// identity for objects and symbols, structural for primitives, with
// NaN equal to itself and +0 distinguished from -0 not required here.
func SameValue(a, b Value) bool {
	switch x := a.(type) {
	case UndefinedValue:
		_, ok := b.(UndefinedValue)
		return ok
	case NullValue:
		_, ok := b.(NullValue)
		return ok
	case BooleanValue:
		y, ok := b.(BooleanValue)
		return ok && x == y
	case NumberValue:
		y, ok := b.(NumberValue)
		if !ok {
			return false
		}
		if math.IsNaN(float64(x)) && math.IsNaN(float64(y)) {
			return true
		}
		return x == y
	case StringValue:
		y, ok := b.(StringValue)
		return ok && x == y
	case *SymbolValue:
		return a == b
	default:
		return a == b
	}
}

// StrictEquals implements === on concrete values.
func StrictEquals(a, b Value) bool {
	an, aIsNum := a.(NumberValue)
	bn, bIsNum := b.(NumberValue)
	if aIsNum && bIsNum {
		if math.IsNaN(float64(an)) || math.IsNaN(float64(bn)) {
			return false
		}
		return an == bn
	}
	return SameValue(a, b)
}

// --- Property keys ---

// PropertyKey identifies a property: a string or a symbol. The zero Sym
// means a string key. PropertyKey is comparable and used as a map key.
type PropertyKey struct {
	Str string
	Sym *SymbolValue
}

func StringKey(s string) PropertyKey      { return PropertyKey{Str: s} }
func SymbolKey(s *SymbolValue) PropertyKey { return PropertyKey{Sym: s} }

func (k PropertyKey) IsSymbol() bool { return k.Sym != nil }

func (k PropertyKey) String() string {
	if k.Sym != nil {
		return k.Sym.Display()
	}
	return k.Str
}

// KeyValue returns the key as a runtime value.
func (k PropertyKey) KeyValue() Value {
	if k.Sym != nil {
		return k.Sym
	}
	return StringValue(k.Str)
}

// ArrayIndex reports whether the key is a canonical array index and its value.
func (k PropertyKey) ArrayIndex() (int, bool) {
	if k.Sym != nil || k.Str == "" {
		return 0, false
	}
	n, err := strconv.Atoi(k.Str)
	if err != nil || n < 0 {
		return 0, false
	}
	if strconv.Itoa(n) != k.Str {
		return 0, false
	}
	return n, true
}

func (f TypeFlag) count() int {
	n := 0
	for v := f; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// IsSingleType reports whether exactly one type arm is possible.
func (f TypeFlag) IsSingleType() bool { return f.count() == 1 }
