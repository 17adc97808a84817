// Package spec models the parameter space of an optimization run as an
// immutable tree of typed nodes. A spec tree is parsed once from its YAML
// description and is read-only afterwards; every other component (value
// trees, mutation, crossover, wire encoding) dispatches on its node kinds.
package spec

// Kind identifies the concrete type of a Node.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindReal
	KindEnum
	KindConst
	KindOptional
	KindVariant
	KindList
	KindStruct
)

// String returns the kind's type tag as used in the YAML format.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindEnum:
		return "enum"
	case KindConst:
		return "const"
	case KindOptional:
		return "optional"
	case KindVariant:
		return "variant"
	case KindList:
		return "list"
	case KindStruct:
		return "sub"
	default:
		return "unknown"
	}
}

// Node describes one position in the parameter space. The set of
// implementations is closed: Bool, Int, Real, Enum, Const, Optional,
// Variant, List and Struct.
type Node interface {
	Kind() Kind
}

// Bool is a single flag.
type Bool struct {
	Init bool
}

func (*Bool) Kind() Kind { return KindBool }

// Int is an integer parameter. Min and Max are optional bounds (inclusive);
// Scale is the base spread of mutation perturbations.
type Int struct {
	Min   *int64
	Max   *int64
	Init  int64
	Scale float64
}

func (*Int) Kind() Kind { return KindInt }

// Real is a floating-point parameter. Min and Max are optional bounds
// (inclusive); Scale is the base spread of mutation perturbations.
type Real struct {
	Min   *float64
	Max   *float64
	Init  float64
	Scale float64
}

func (*Real) Kind() Kind { return KindReal }

// Enum is a choice among a fixed, non-empty set of labels.
type Enum struct {
	Variants []string
	Init     string
}

func (*Enum) Kind() Kind { return KindEnum }

// VariantIndex returns the position of the given label, or -1.
func (e *Enum) VariantIndex(label string) int {
	for i, v := range e.Variants {
		if v == label {
			return i
		}
	}
	return -1
}

// Const is a payload-less marker, useful as a variant alternative that
// carries no parameters.
type Const struct{}

func (*Const) Kind() Kind { return KindConst }

// Optional wraps a node whose value may be absent.
type Optional struct {
	Elem        Node
	InitPresent bool
}

func (*Optional) Kind() Kind { return KindOptional }

// Alternative is one labeled alternative of a Variant.
type Alternative struct {
	Label string
	Node  Node
}

// Variant selects exactly one of an ordered, non-empty set of labeled
// alternatives. Init names the alternative used for initial values.
type Variant struct {
	Alternatives []Alternative
	Init         string
}

func (*Variant) Kind() Kind { return KindVariant }

// Alternative returns the node for the given label, or nil.
func (v *Variant) Alternative(label string) Node {
	for _, alt := range v.Alternatives {
		if alt.Label == label {
			return alt.Node
		}
	}
	return nil
}

// AlternativeIndex returns the position of the given label, or -1.
func (v *Variant) AlternativeIndex(label string) int {
	for i, alt := range v.Alternatives {
		if alt.Label == label {
			return i
		}
	}
	return -1
}

// List is a variable-length sequence of elements sharing one spec.
// MinLen and MaxLen are optional length bounds (inclusive).
type List struct {
	Elem    Node
	MinLen  *int
	MaxLen  *int
	InitLen int
}

func (*List) Kind() Kind { return KindList }

// Struct is a fixed set of named fields. Field iteration order is
// irrelevant; the wire encoding sorts keys.
type Struct struct {
	Fields map[string]Node
}

func (*Struct) Kind() Kind { return KindStruct }
