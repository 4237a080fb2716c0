package output

import (
	"fmt"
	"os"

	"github.com/iwvelando/keplerfit/pkg/params"
	"gopkg.in/yaml.v3"
)

// ParamsDocument is the exported form of a parameter set. The params block
// has the same shape as the configuration file's, so an export can be pasted
// back into a configuration together with its basis.
type ParamsDocument struct {
	Basis  string                      `yaml:"basis"`
	Params map[string]params.Parameter `yaml:"params"`
}

// MarshalParams encodes set as YAML with parameters in canonical order.
func MarshalParams(set *params.Set) ([]byte, error) {
	items := make([]orderedItem, 0)
	for _, name := range set.Names() {
		p, _ := set.Get(name)
		items = append(items, orderedItem{key: name, value: p})
	}
	doc := struct {
		Basis  string        `yaml:"basis"`
		Params orderedParams `yaml:"params"`
	}{
		Basis:  set.Basis().Name(),
		Params: orderedParams{items: items},
	}
	return yaml.Marshal(doc)
}

// ExportParams writes set to path as YAML.
func ExportParams(path string, set *params.Set) error {
	data, err := MarshalParams(set)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write parameters to %s: %w", path, err)
	}
	return nil
}

// ReadParams decodes a document written by ExportParams.
func ReadParams(path string) (*ParamsDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc := &ParamsDocument{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return doc, nil
}

type orderedParams struct {
	items []orderedItem
}

type orderedItem struct {
	key   string
	value interface{}
}

func (o orderedParams) MarshalYAML() (interface{}, error) {
	mapNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	for _, item := range o.items {
		keyNode := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: item.key,
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(item.value); err != nil {
			return nil, err
		}
		valueNode.Style = yaml.FlowStyle
		mapNode.Content = append(mapNode.Content, keyNode, valueNode)
	}

	return mapNode, nil
}
