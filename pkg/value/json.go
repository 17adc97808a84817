package value

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/evotune/evotune/pkg/errors"
	"github.com/evotune/evotune/pkg/spec"
)

// Encode serializes a value tree to its single-line wire JSON form: bools
// and numbers as themselves, enum labels as strings, const as null, structs
// as objects with sorted keys, lists as arrays, a variant as a single-key
// object mapping its label to the payload. A present optional encodes as its
// inner value; an absent one is omitted when it is a struct field and null
// everywhere else.
func Encode(t Tree) ([]byte, error) {
	data, err := json.Marshal(encodeAny(t))
	if err != nil {
		return nil, errors.Wrap(err, errors.ValueInvalid, "cannot encode value tree")
	}
	return data, nil
}

func encodeAny(t Tree) interface{} {
	switch v := t.(type) {
	case *Bool:
		return v.V
	case *Int:
		return v.V
	case *Real:
		return v.V
	case *Enum:
		return v.Label
	case *Const:
		return nil
	case *Optional:
		if v.Elem == nil {
			return nil
		}
		return encodeAny(v.Elem)
	case *Variant:
		return map[string]interface{}{v.Label: encodeAny(v.Elem)}
	case *List:
		out := make([]interface{}, len(v.Elems))
		for i, elem := range v.Elems {
			out[i] = encodeAny(elem)
		}
		return out
	case *Struct:
		out := make(map[string]interface{}, len(v.Fields))
		for name, field := range v.Fields {
			if opt, ok := field.(*Optional); ok && opt.Elem == nil {
				continue
			}
			out[name] = encodeAny(field)
		}
		return out
	default:
		return nil
	}
}

// Decode parses wire JSON into a value tree conforming to the spec tree.
// Errors carry the path of the offending node. Both absent-optional forms
// (omitted struct key, explicit null) are accepted.
func Decode(sp spec.Node, data []byte) (Tree, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, errors.ValueInvalid, "candidate is not valid JSON")
	}
	if dec.More() {
		return nil, errors.New(errors.ValueInvalid, "candidate has trailing JSON content")
	}
	return decodeAny(sp, raw, nil)
}

func decodeAny(sp spec.Node, raw interface{}, path []string) (Tree, error) {
	switch s := sp.(type) {
	case *spec.Bool:
		b, ok := raw.(bool)
		if !ok {
			return nil, valueErrorf(path, "expected a boolean")
		}
		return &Bool{V: b}, nil
	case *spec.Int:
		num, ok := raw.(json.Number)
		if !ok {
			return nil, valueErrorf(path, "expected an integer")
		}
		i, err := num.Int64()
		if err != nil {
			return nil, valueErrorf(path, "expected an integer, got %s", num.String())
		}
		v := &Int{V: i}
		if err := validate(sp, v, path); err != nil {
			return nil, err
		}
		return v, nil
	case *spec.Real:
		num, ok := raw.(json.Number)
		if !ok {
			return nil, valueErrorf(path, "expected a number")
		}
		f, err := num.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, valueErrorf(path, "expected a finite number, got %s", num.String())
		}
		v := &Real{V: f}
		if err := validate(sp, v, path); err != nil {
			return nil, err
		}
		return v, nil
	case *spec.Enum:
		label, ok := raw.(string)
		if !ok {
			return nil, valueErrorf(path, "expected an enum label string")
		}
		if s.VariantIndex(label) < 0 {
			return nil, valueErrorf(path, "unknown enum variant %q", label)
		}
		return &Enum{Label: label}, nil
	case *spec.Const:
		if raw != nil {
			return nil, valueErrorf(path, "expected null for a const node")
		}
		return &Const{}, nil
	case *spec.Optional:
		if raw == nil {
			return &Optional{}, nil
		}
		elem, err := decodeAny(s.Elem, raw, path)
		if err != nil {
			return nil, err
		}
		return &Optional{Elem: elem}, nil
	case *spec.Variant:
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return nil, valueErrorf(path, "expected a single-key variant object")
		}
		if len(obj) != 1 {
			return nil, valueErrorf(path, "variant object must have exactly one key, got %d", len(obj))
		}
		for label, payload := range obj {
			alt := s.Alternative(label)
			if alt == nil {
				return nil, valueErrorf(path, "unknown variant alternative %q", label)
			}
			elem, err := decodeAny(alt, payload, append(path, label))
			if err != nil {
				return nil, err
			}
			return &Variant{Label: label, Elem: elem}, nil
		}
		return nil, valueErrorf(path, "variant object must have exactly one key")
	case *spec.List:
		seq, ok := raw.([]interface{})
		if !ok {
			return nil, valueErrorf(path, "expected an array")
		}
		elems := make([]Tree, len(seq))
		for i, item := range seq {
			elem, err := decodeAny(s.Elem, item, append(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			elems[i] = elem
		}
		v := &List{Elems: elems}
		if err := validate(sp, v, path); err != nil {
			return nil, err
		}
		return v, nil
	case *spec.Struct:
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return nil, valueErrorf(path, "expected an object")
		}
		for name := range obj {
			if _, ok := s.Fields[name]; !ok {
				return nil, valueErrorf(path, "unknown field %q", name)
			}
		}
		fields := make(map[string]Tree, len(s.Fields))
		for name, fs := range s.Fields {
			item, ok := obj[name]
			if !ok {
				if _, isOpt := fs.(*spec.Optional); isOpt {
					fields[name] = &Optional{}
					continue
				}
				return nil, valueErrorf(path, "missing field %q", name)
			}
			field, err := decodeAny(fs, item, append(path, name))
			if err != nil {
				return nil, err
			}
			fields[name] = field
		}
		return &Struct{Fields: fields}, nil
	default:
		return nil, valueErrorf(path, "unknown spec node %T", sp)
	}
}
