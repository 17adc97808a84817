// Package value models candidate parameter assignments as trees that mirror
// the shape of a spec tree node for node. Trees are treated as immutable:
// the evolutionary operators return fresh trees and may share unchanged
// subtrees, so a tree handed out in a population snapshot never changes.
package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/evotune/evotune/pkg/errors"
	"github.com/evotune/evotune/pkg/spec"
)

// Tree is one node of a candidate value. The set of implementations is
// closed and mirrors the spec node kinds: Bool, Int, Real, Enum, Const,
// Optional, Variant, List and Struct.
type Tree interface {
	tree()
}

// Bool holds a flag value.
type Bool struct {
	V bool
}

func (*Bool) tree() {}

// Int holds an integer parameter value.
type Int struct {
	V int64
}

func (*Int) tree() {}

// Real holds a floating-point parameter value.
type Real struct {
	V float64
}

func (*Real) tree() {}

// Enum holds the selected label of an enum parameter.
type Enum struct {
	Label string
}

func (*Enum) tree() {}

// Const is the payload-less value of a const spec node.
type Const struct{}

func (*Const) tree() {}

// Optional holds the value of an optional parameter. A nil Elem means the
// value is absent.
type Optional struct {
	Elem Tree
}

func (*Optional) tree() {}

// Present reports whether the optional holds a value.
func (o *Optional) Present() bool { return o.Elem != nil }

// Variant holds the selected alternative of a variant parameter and its
// payload.
type Variant struct {
	Label string
	Elem  Tree
}

func (*Variant) tree() {}

// List holds the elements of a list parameter.
type List struct {
	Elems []Tree
}

func (*List) tree() {}

// Struct holds the field values of a sub parameter.
type Struct struct {
	Fields map[string]Tree
}

func (*Struct) tree() {}

// Initial builds the seed value tree for a spec tree: every node takes its
// init value, a list gets initLen copies of the element's initial value, an
// optional is present iff initPresent, a variant selects its init
// alternative.
func Initial(sp spec.Node) Tree {
	switch s := sp.(type) {
	case *spec.Bool:
		return &Bool{V: s.Init}
	case *spec.Int:
		return &Int{V: s.Init}
	case *spec.Real:
		return &Real{V: s.Init}
	case *spec.Enum:
		return &Enum{Label: s.Init}
	case *spec.Const:
		return &Const{}
	case *spec.Optional:
		if s.InitPresent {
			return &Optional{Elem: Initial(s.Elem)}
		}
		return &Optional{}
	case *spec.Variant:
		return &Variant{Label: s.Init, Elem: Initial(s.Alternative(s.Init))}
	case *spec.List:
		elems := make([]Tree, s.InitLen)
		for i := range elems {
			elems[i] = Initial(s.Elem)
		}
		return &List{Elems: elems}
	case *spec.Struct:
		fields := make(map[string]Tree, len(s.Fields))
		for name, fs := range s.Fields {
			fields[name] = Initial(fs)
		}
		return &Struct{Fields: fields}
	default:
		panic(fmt.Sprintf("value: unknown spec node %T", sp))
	}
}

func pathHint(path []string) string {
	if len(path) == 0 {
		return "(root)"
	}
	return strconv.Quote(strings.Join(path, "."))
}

func valueErrorf(path []string, format string, args ...interface{}) error {
	return errors.New(errors.ValueInvalid,
		fmt.Sprintf("at path %s: %s", pathHint(path), fmt.Sprintf(format, args...)))
}

// Validate checks that the tree conforms to the spec tree: matching kinds at
// every position, numeric values within bounds, list lengths within their
// length bounds, enum labels and variant alternatives known, struct fields
// exactly the declared set.
func Validate(sp spec.Node, t Tree) error {
	return validate(sp, t, nil)
}

func validate(sp spec.Node, t Tree, path []string) error {
	switch s := sp.(type) {
	case *spec.Bool:
		if _, ok := t.(*Bool); !ok {
			return valueErrorf(path, "expected a bool value, got %s", describe(t))
		}
		return nil
	case *spec.Int:
		v, ok := t.(*Int)
		if !ok {
			return valueErrorf(path, "expected an int value, got %s", describe(t))
		}
		if (s.Min != nil && v.V < *s.Min) || (s.Max != nil && v.V > *s.Max) {
			return valueErrorf(path, "value %d is out of bounds", v.V)
		}
		return nil
	case *spec.Real:
		v, ok := t.(*Real)
		if !ok {
			return valueErrorf(path, "expected a real value, got %s", describe(t))
		}
		if (s.Min != nil && v.V < *s.Min) || (s.Max != nil && v.V > *s.Max) {
			return valueErrorf(path, "value %v is out of bounds", v.V)
		}
		return nil
	case *spec.Enum:
		v, ok := t.(*Enum)
		if !ok {
			return valueErrorf(path, "expected an enum value, got %s", describe(t))
		}
		if s.VariantIndex(v.Label) < 0 {
			return valueErrorf(path, "unknown enum variant %q", v.Label)
		}
		return nil
	case *spec.Const:
		if _, ok := t.(*Const); !ok {
			return valueErrorf(path, "expected a const value, got %s", describe(t))
		}
		return nil
	case *spec.Optional:
		v, ok := t.(*Optional)
		if !ok {
			return valueErrorf(path, "expected an optional value, got %s", describe(t))
		}
		if v.Elem == nil {
			return nil
		}
		return validate(s.Elem, v.Elem, path)
	case *spec.Variant:
		v, ok := t.(*Variant)
		if !ok {
			return valueErrorf(path, "expected a variant value, got %s", describe(t))
		}
		alt := s.Alternative(v.Label)
		if alt == nil {
			return valueErrorf(path, "unknown variant alternative %q", v.Label)
		}
		return validate(alt, v.Elem, append(path, v.Label))
	case *spec.List:
		v, ok := t.(*List)
		if !ok {
			return valueErrorf(path, "expected a list value, got %s", describe(t))
		}
		if s.MinLen != nil && len(v.Elems) < *s.MinLen {
			return valueErrorf(path, "length %d is below minLen %d", len(v.Elems), *s.MinLen)
		}
		if s.MaxLen != nil && len(v.Elems) > *s.MaxLen {
			return valueErrorf(path, "length %d exceeds maxLen %d", len(v.Elems), *s.MaxLen)
		}
		for i, elem := range v.Elems {
			if err := validate(s.Elem, elem, append(path, strconv.Itoa(i))); err != nil {
				return err
			}
		}
		return nil
	case *spec.Struct:
		v, ok := t.(*Struct)
		if !ok {
			return valueErrorf(path, "expected a sub value, got %s", describe(t))
		}
		for name := range v.Fields {
			if _, ok := s.Fields[name]; !ok {
				return valueErrorf(path, "unknown field %q", name)
			}
		}
		for name, fs := range s.Fields {
			fv, ok := v.Fields[name]
			if !ok {
				return valueErrorf(path, "missing field %q", name)
			}
			if err := validate(fs, fv, append(path, name)); err != nil {
				return err
			}
		}
		return nil
	default:
		return valueErrorf(path, "unknown spec node %T", sp)
	}
}

func describe(t Tree) string {
	switch t.(type) {
	case *Bool:
		return "bool"
	case *Int:
		return "int"
	case *Real:
		return "real"
	case *Enum:
		return "enum"
	case *Const:
		return "const"
	case *Optional:
		return "optional"
	case *Variant:
		return "variant"
	case *List:
		return "list"
	case *Struct:
		return "sub"
	default:
		return fmt.Sprintf("%T", t)
	}
}

// Equal reports structural equality of two trees.
func Equal(a, b Tree) bool {
	switch av := a.(type) {
	case *Bool:
		bv, ok := b.(*Bool)
		return ok && av.V == bv.V
	case *Int:
		bv, ok := b.(*Int)
		return ok && av.V == bv.V
	case *Real:
		bv, ok := b.(*Real)
		return ok && av.V == bv.V
	case *Enum:
		bv, ok := b.(*Enum)
		return ok && av.Label == bv.Label
	case *Const:
		_, ok := b.(*Const)
		return ok
	case *Optional:
		bv, ok := b.(*Optional)
		if !ok {
			return false
		}
		if av.Elem == nil || bv.Elem == nil {
			return av.Elem == nil && bv.Elem == nil
		}
		return Equal(av.Elem, bv.Elem)
	case *Variant:
		bv, ok := b.(*Variant)
		return ok && av.Label == bv.Label && Equal(av.Elem, bv.Elem)
	case *List:
		bv, ok := b.(*List)
		if !ok || len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !Equal(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case *Struct:
		bv, ok := b.(*Struct)
		if !ok || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for name, ae := range av.Fields {
			be, ok := bv.Fields[name]
			if !ok || !Equal(ae, be) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
