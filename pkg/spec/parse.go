package spec

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/evotune/evotune/pkg/errors"
)

// Parse builds a spec tree from its YAML description. The returned error
// identifies the offending node path ("(root)" for the top level) when the
// description is malformed.
func Parse(data []byte) (Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.SpecInvalid, "parameter space is not valid YAML")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New(errors.SpecInvalid, "parameter space document is empty")
	}
	return buildNode(doc.Content[0], nil)
}

// ParseFile reads and parses the parameter-space YAML at the given path.
func ParseFile(path string) (Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.SpecInvalid, "cannot read parameter space file")
	}
	return Parse(data)
}

func pathHint(path []string) string {
	if len(path) == 0 {
		return "(root)"
	}
	return strconv.Quote(strings.Join(path, "."))
}

func specErrorf(path []string, format string, args ...interface{}) error {
	return errors.New(errors.SpecInvalid,
		fmt.Sprintf("at path %s: %s", pathHint(path), fmt.Sprintf(format, args...)))
}

// attrMap holds one YAML mapping's entries in document order.
type attrMap struct {
	keys []string
	vals map[string]*yaml.Node
}

func deref(n *yaml.Node) *yaml.Node {
	if n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		return n.Alias
	}
	return n
}

func mappingAttrs(n *yaml.Node, path []string) (*attrMap, error) {
	n = deref(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, specErrorf(path, "must be a mapping")
	}

	m := &attrMap{vals: make(map[string]*yaml.Node, len(n.Content)/2)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode := deref(n.Content[i])
		if keyNode.Kind != yaml.ScalarNode {
			return nil, specErrorf(path, "invalid attribute key")
		}
		var key string
		if err := keyNode.Decode(&key); err != nil {
			return nil, specErrorf(path, "invalid attribute key")
		}
		if _, dup := m.vals[key]; dup {
			return nil, specErrorf(path, "duplicate key %q", key)
		}
		m.keys = append(m.keys, key)
		m.vals[key] = deref(n.Content[i+1])
	}
	return m, nil
}

func (m *attrMap) checkUnexpected(path []string, allowed ...string) error {
	for _, key := range m.keys {
		ok := false
		for _, a := range allowed {
			if key == a {
				ok = true
				break
			}
		}
		if !ok {
			return specErrorf(path, "unexpected attribute %q", key)
		}
	}
	return nil
}

func (m *attrMap) string(name string, path []string) (*string, error) {
	n, ok := m.vals[name]
	if !ok {
		return nil, nil
	}
	var s string
	if n.Kind != yaml.ScalarNode || n.Decode(&s) != nil {
		return nil, specErrorf(path, "attribute %q must be a string", name)
	}
	return &s, nil
}

func (m *attrMap) float(name string, path []string) (*float64, error) {
	n, ok := m.vals[name]
	if !ok {
		return nil, nil
	}
	var f float64
	if n.Kind != yaml.ScalarNode || n.Decode(&f) != nil {
		return nil, specErrorf(path, "attribute %q must be a number", name)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, specErrorf(path, "number for attribute %q must be finite", name)
	}
	return &f, nil
}

func (m *attrMap) int(name string, path []string) (*int64, error) {
	n, ok := m.vals[name]
	if !ok {
		return nil, nil
	}
	var i int64
	if n.Kind != yaml.ScalarNode || n.Decode(&i) != nil {
		return nil, specErrorf(path, "attribute %q must be an integer", name)
	}
	return &i, nil
}

func (m *attrMap) boolean(name string, path []string) (*bool, error) {
	n, ok := m.vals[name]
	if !ok {
		return nil, nil
	}
	var b bool
	if n.Kind != yaml.ScalarNode || n.Decode(&b) != nil {
		return nil, specErrorf(path, "attribute %q must be a boolean", name)
	}
	return &b, nil
}

func (m *attrMap) length(name string, path []string) (*int, error) {
	i, err := m.int(name, path)
	if err != nil {
		return nil, err
	}
	if i == nil {
		return nil, nil
	}
	if *i < 0 {
		return nil, specErrorf(path, "attribute %q must be a non-negative integer", name)
	}
	l := int(*i)
	return &l, nil
}

func (m *attrMap) stringSeq(name string, path []string) ([]string, error) {
	n, ok := m.vals[name]
	if !ok {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, specErrorf(path, "attribute %q must be a sequence of strings", name)
	}
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		item = deref(item)
		var s string
		if item.Kind != yaml.ScalarNode || item.Decode(&s) != nil {
			return nil, specErrorf(path, "attribute %q must be a sequence of strings", name)
		}
		out = append(out, s)
	}
	return out, nil
}

func buildNode(n *yaml.Node, path []string) (Node, error) {
	attrs, err := mappingAttrs(n, path)
	if err != nil {
		return nil, err
	}

	typeName := "sub"
	if s, err := attrs.string("type", path); err != nil {
		return nil, err
	} else if s != nil {
		typeName = *s
	}

	switch typeName {
	case "real":
		return buildReal(attrs, path)
	case "int":
		return buildInt(attrs, path)
	case "bool":
		return buildBool(attrs, path)
	case "enum":
		return buildEnum(attrs, path)
	case "const":
		return buildConst(attrs, path)
	case "optional":
		return buildOptional(attrs, path)
	case "variant":
		return buildVariant(attrs, path)
	case "list":
		return buildList(attrs, path)
	case "sub":
		return buildStruct(attrs, path)
	default:
		return nil, specErrorf(path, "unknown type name %q", typeName)
	}
}

func buildReal(attrs *attrMap, path []string) (Node, error) {
	if err := attrs.checkUnexpected(path, "type", "min", "max", "scale", "init"); err != nil {
		return nil, err
	}

	min, err := attrs.float("min", path)
	if err != nil {
		return nil, err
	}
	max, err := attrs.float("max", path)
	if err != nil {
		return nil, err
	}
	if min != nil && max != nil && *min > *max {
		return nil, specErrorf(path, "min must not be greater than max")
	}

	initAttr, err := attrs.float("init", path)
	if err != nil {
		return nil, err
	}
	init := 0.0
	if min != nil && init < *min {
		init = *min
	}
	if max != nil && init > *max {
		init = *max
	}
	if initAttr != nil {
		init = *initAttr
		if (min != nil && init < *min) || (max != nil && init > *max) {
			return nil, specErrorf(path, "init is not within bounds")
		}
	}

	scale := 1.0
	if s, err := attrs.float("scale", path); err != nil {
		return nil, err
	} else if s != nil {
		scale = *s
	}
	if scale <= 0 {
		return nil, specErrorf(path, "scale must be strictly positive")
	}

	return &Real{Min: min, Max: max, Init: init, Scale: scale}, nil
}

func buildInt(attrs *attrMap, path []string) (Node, error) {
	if err := attrs.checkUnexpected(path, "type", "min", "max", "scale", "init"); err != nil {
		return nil, err
	}

	min, err := attrs.int("min", path)
	if err != nil {
		return nil, err
	}
	max, err := attrs.int("max", path)
	if err != nil {
		return nil, err
	}
	if min != nil && max != nil && *min > *max {
		return nil, specErrorf(path, "min must not be greater than max")
	}

	initAttr, err := attrs.int("init", path)
	if err != nil {
		return nil, err
	}
	init := int64(0)
	if min != nil && init < *min {
		init = *min
	}
	if max != nil && init > *max {
		init = *max
	}
	if initAttr != nil {
		init = *initAttr
		if (min != nil && init < *min) || (max != nil && init > *max) {
			return nil, specErrorf(path, "init is not within bounds")
		}
	}

	scale := 1.0
	if s, err := attrs.float("scale", path); err != nil {
		return nil, err
	} else if s != nil {
		scale = *s
	}
	if scale <= 0 {
		return nil, specErrorf(path, "scale must be strictly positive")
	}

	return &Int{Min: min, Max: max, Init: init, Scale: scale}, nil
}

func buildBool(attrs *attrMap, path []string) (Node, error) {
	if err := attrs.checkUnexpected(path, "type", "init"); err != nil {
		return nil, err
	}

	init := false
	if b, err := attrs.boolean("init", path); err != nil {
		return nil, err
	} else if b != nil {
		init = *b
	}
	return &Bool{Init: init}, nil
}

func buildEnum(attrs *attrMap, path []string) (Node, error) {
	if err := attrs.checkUnexpected(path, "type", "variants", "init"); err != nil {
		return nil, err
	}

	variants, err := attrs.stringSeq("variants", path)
	if err != nil {
		return nil, err
	}
	if _, ok := attrs.vals["variants"]; !ok {
		return nil, specErrorf(path, "mandatory attribute %q is missing", "variants")
	}
	if len(variants) == 0 {
		return nil, specErrorf(path, "enum must have at least one variant")
	}
	seen := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		if _, dup := seen[v]; dup {
			return nil, specErrorf(path, "duplicate enum variant %q", v)
		}
		seen[v] = struct{}{}
	}

	init := variants[0]
	if s, err := attrs.string("init", path); err != nil {
		return nil, err
	} else if s != nil {
		init = *s
		if _, ok := seen[init]; !ok {
			return nil, specErrorf(path, "init %q is not one of the enum variants", init)
		}
	}

	return &Enum{Variants: variants, Init: init}, nil
}

func buildConst(attrs *attrMap, path []string) (Node, error) {
	if err := attrs.checkUnexpected(path, "type"); err != nil {
		return nil, err
	}
	return &Const{}, nil
}

func buildOptional(attrs *attrMap, path []string) (Node, error) {
	if err := attrs.checkUnexpected(path, "type", "valueType", "initPresent"); err != nil {
		return nil, err
	}

	elemNode, ok := attrs.vals["valueType"]
	if !ok {
		return nil, specErrorf(path, "mandatory attribute %q is missing", "valueType")
	}
	elem, err := buildNode(elemNode, append(path, "(value)"))
	if err != nil {
		return nil, err
	}

	initPresent := false
	if b, err := attrs.boolean("initPresent", path); err != nil {
		return nil, err
	} else if b != nil {
		initPresent = *b
	}

	return &Optional{Elem: elem, InitPresent: initPresent}, nil
}

func buildVariant(attrs *attrMap, path []string) (Node, error) {
	var alts []Alternative
	for _, key := range attrs.keys {
		if key == "type" || key == "init" {
			continue
		}
		node, err := buildNode(attrs.vals[key], append(path, key))
		if err != nil {
			return nil, err
		}
		alts = append(alts, Alternative{Label: key, Node: node})
	}
	if len(alts) == 0 {
		return nil, specErrorf(path, "variant must have at least one alternative")
	}

	v := &Variant{Alternatives: alts, Init: alts[0].Label}
	if s, err := attrs.string("init", path); err != nil {
		return nil, err
	} else if s != nil {
		if v.AlternativeIndex(*s) < 0 {
			return nil, specErrorf(path, "init %q is not one of the variant alternatives", *s)
		}
		v.Init = *s
	}
	return v, nil
}

func buildList(attrs *attrMap, path []string) (Node, error) {
	if err := attrs.checkUnexpected(path, "type", "valueType", "initLen", "minLen", "maxLen"); err != nil {
		return nil, err
	}

	elemNode, ok := attrs.vals["valueType"]
	if !ok {
		return nil, specErrorf(path, "mandatory attribute %q is missing", "valueType")
	}
	elem, err := buildNode(elemNode, append(path, "(element)"))
	if err != nil {
		return nil, err
	}

	minLen, err := attrs.length("minLen", path)
	if err != nil {
		return nil, err
	}
	maxLen, err := attrs.length("maxLen", path)
	if err != nil {
		return nil, err
	}
	if minLen != nil && maxLen != nil && *minLen > *maxLen {
		return nil, specErrorf(path, "minLen must not be greater than maxLen")
	}

	initLen := 0
	if minLen != nil {
		initLen = *minLen
	}
	if l, err := attrs.length("initLen", path); err != nil {
		return nil, err
	} else if l != nil {
		initLen = *l
		if (minLen != nil && initLen < *minLen) || (maxLen != nil && initLen > *maxLen) {
			return nil, specErrorf(path, "initLen is not within length bounds")
		}
	}

	return &List{Elem: elem, MinLen: minLen, MaxLen: maxLen, InitLen: initLen}, nil
}

func buildStruct(attrs *attrMap, path []string) (Node, error) {
	fields := make(map[string]Node)
	for _, key := range attrs.keys {
		if key == "type" {
			continue
		}
		node, err := buildNode(attrs.vals[key], append(path, key))
		if err != nil {
			return nil, err
		}
		fields[key] = node
	}
	if len(fields) == 0 {
		return nil, specErrorf(path, "a sub spec must have at least one field")
	}
	return &Struct{Fields: fields}, nil
}
