package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// FailureSpec is a named failure predicate of a sequence.
type FailureSpec struct {
	Name   string
	Filter FilterSpec
}

// Failures is the ordered failure map of a sequence. Documents write it as
// an object from name to filter; the key order of that object is kept
// because predicates are evaluated in declaration order and only the first
// match is recorded.
type Failures []FailureSpec

// Lookup returns the filter of the failure called name.
func (f Failures) Lookup(name string) (FilterSpec, bool) {
	for _, fs := range f {
		if fs.Name == name {
			return fs.Filter, true
		}
	}
	return FilterSpec{}, false
}

// Names returns the failure names in declaration order.
func (f Failures) Names() []string {
	names := make([]string, len(f))
	for i, fs := range f {
		names[i] = fs.Name
	}
	return names
}

func (f *Failures) add(name string, spec FilterSpec) error {
	if _, ok := f.Lookup(name); ok {
		return fmt.Errorf("duplicate failure %q", name)
	}
	*f = append(*f, FailureSpec{Name: name, Filter: spec})
	return nil
}

// MarshalJSON writes the failures as an object in declaration order.
func (f Failures) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fs := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(fs.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(fs.Filter)
		if err != nil {
			return nil, fmt.Errorf("failure %q: %w", fs.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of filters, keeping its key order.
func (f *Failures) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*f = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("failures must map names to filters")
	}

	dec.DisallowUnknownFields()
	var out Failures
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var spec FilterSpec
		if err := dec.Decode(&spec); err != nil {
			return fmt.Errorf("failure %q: %w", name, err)
		}
		if err := out.add(name, spec); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}

// MarshalYAML writes the failures as a mapping in declaration order.
func (f Failures) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, fs := range f {
		var val yaml.Node
		if err := val.Encode(fs.Filter); err != nil {
			return nil, fmt.Errorf("failure %q: %w", fs.Name, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fs.Name}, &val)
	}
	return node, nil
}

// UnmarshalYAML reads a mapping of filters, keeping its key order.
// Unknown filter fields are rejected.
func (f *Failures) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: failures must map names to filters", value.Line)
	}

	var out Failures
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		var spec FilterSpec
		if err := decodeYAMLStrict(val, &spec); err != nil {
			return fmt.Errorf("line %d: failure %q: %w", key.Line, key.Value, err)
		}
		if err := out.add(key.Value, spec); err != nil {
			return fmt.Errorf("line %d: %w", key.Line, err)
		}
	}
	*f = out
	return nil
}

// decodeYAMLStrict decodes node into v with KnownFields set, which
// yaml.Node.Decode does not apply.
func decodeYAMLStrict(node *yaml.Node, v any) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(v)
}
