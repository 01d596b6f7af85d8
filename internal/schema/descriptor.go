package schema

import (
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Descriptor declares a field explicitly. When its Name matches a data key,
// its Type replaces the inferred one and its other properties are merged
// onto the produced field; the value still comes from the data.
type Descriptor struct {
	Name        string         `json:"name" yaml:"name"`
	Type        Type           `json:"type" yaml:"type"`
	Label       string         `json:"label,omitempty" yaml:"label,omitempty"`
	Options     []Option       `json:"options,omitempty" yaml:"options,omitempty"`
	Required    bool           `json:"required,omitempty" yaml:"required,omitempty"`
	Placeholder string         `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Fields      []Descriptor   `json:"fields,omitempty" yaml:"fields,omitempty"`
	Extra       map[string]any `json:"-" yaml:",inline"`
}

// Validate checks the descriptor and its nested descriptors.
func (d Descriptor) Validate() error {
	allowed := make([]any, len(Types))
	for i, t := range Types {
		allowed[i] = t
	}
	if err := validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required),
		validation.Field(&d.Type, validation.Required, validation.In(allowed...)),
		validation.Field(&d.Options, validation.When(d.Type != TypeSelect, validation.Empty)),
	); err != nil {
		return fmt.Errorf("field %q: %w", d.Name, err)
	}
	for _, child := range d.Fields {
		if err := child.Validate(); err != nil {
			return fmt.Errorf("field %q: %w", d.Name, err)
		}
	}
	return nil
}

// LoadDescriptors reads a YAML (or JSON) list of descriptors from path.
func LoadDescriptors(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read descriptors %s: %w", path, err)
	}
	return ParseDescriptors(data)
}

// ParseDescriptors decodes and validates a YAML (or JSON) list of descriptors.
// A top-level "fields" key wrapping the list is accepted too.
func ParseDescriptors(data []byte) ([]Descriptor, error) {
	var list []Descriptor
	if err := yaml.Unmarshal(data, &list); err != nil {
		var wrapped struct {
			Fields []Descriptor `yaml:"fields"`
		}
		if werr := yaml.Unmarshal(data, &wrapped); werr != nil {
			return nil, fmt.Errorf("schema: parse descriptors: %w", err)
		}
		list = wrapped.Fields
	}
	for _, d := range list {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("schema: invalid descriptor: %w", err)
		}
	}
	return list, nil
}

func indexDescriptors(list []Descriptor) map[string]Descriptor {
	if len(list) == 0 {
		return nil
	}
	m := make(map[string]Descriptor, len(list))
	for _, d := range list {
		if _, dup := m[d.Name]; !dup {
			m[d.Name] = d
		}
	}
	return m
}
