package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/mend/pkg/core"
)

// Serializer defines how to read and write a specific file format.
type Serializer interface {
	// Parse reads one document from r.
	Parse(r io.Reader) (core.Mapping, error)
	// Serialize converts the document to bytes.
	Serialize(doc core.Mapping) ([]byte, error)
}

// DefaultSerializers returns the standard set of serializers.
func DefaultSerializers() map[string]Serializer {
	return map[string]Serializer{
		".json": JSONSerializer{},
		".yaml": YAMLSerializer{},
		".yml":  YAMLSerializer{},
	}
}

// --- JSON Serializer ---

// JSONSerializer handles JSON files. Numbers keep their textual form.
type JSONSerializer struct{}

func (JSONSerializer) Parse(r io.Reader) (core.Mapping, error) {
	return core.DecodeMapping(r)
}

func (JSONSerializer) Serialize(doc core.Mapping) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// --- YAML Serializer ---

// YAMLSerializer handles YAML files.
type YAMLSerializer struct{}

func (YAMLSerializer) Parse(r io.Reader) (core.Mapping, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if payload == nil {
		return core.Mapping{}, nil
	}
	return core.FromAny(payload).(core.Mapping), nil
}

func (YAMLSerializer) Serialize(doc core.Mapping) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	node, err := yamlNode(doc)
	if err != nil {
		return nil, err
	}
	if err := enc.Encode(node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// yamlNode builds the YAML tree of v. Numbers are emitted with their
// stored text so that "1.0" stays a float and large integers stay exact.
// Mapping keys are sorted.
func yamlNode(v core.Value) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil, core.Null:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case core.Bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(bool(t))}, nil
	case core.Number:
		tag := "!!int"
		if t.IsFloat() {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: string(t)}, nil
	case core.String:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(t)}, nil
	case core.Sequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range t {
			child, err := yamlNode(e)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case core.Mapping:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range keys {
			child, err := yamlNode(t[k])
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, child)
		}
		return n, nil
	case core.Opaque:
		var n yaml.Node
		if err := n.Encode(t.V); err != nil {
			return nil, fmt.Errorf("failed to encode %T: %w", t.V, err)
		}
		return &n, nil
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}
