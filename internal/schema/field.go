// Package schema defines the editable field tree and infers it from decoded
// frontmatter or JSON data.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/starford/frontedit/internal/value"
)

// Type is the form control type of a Field.
type Type string

// Field types.
const (
	TypeText     Type = "text"
	TypeTextarea Type = "textarea"
	TypeNumber   Type = "number"
	TypeCheckbox Type = "checkbox"
	TypeDate     Type = "date"
	TypeSelect   Type = "select"
	TypeURL      Type = "url"
	TypeList     Type = "list"
	TypeArray    Type = "array"
	TypeObject   Type = "object"
)

// Types lists every valid field type.
var Types = []Type{
	TypeText, TypeTextarea, TypeNumber, TypeCheckbox, TypeDate,
	TypeSelect, TypeURL, TypeList, TypeArray, TypeObject,
}

// Markdown body field identity.
const (
	ContentsID   = "markdown-contents"
	ContentsName = "contents"
)

// Option is one choice of a select field.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value any    `json:"value" yaml:"value"`
}

// Field is a node of the field tree.
type Field struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Type         Type           `json:"type"`
	Label        string         `json:"label"`
	DisplayLabel string         `json:"_displayLabel,omitempty"`
	Value        any            `json:"value,omitempty"`
	Fields       []*Field       `json:"fields,omitempty"`
	Items        []Item         `json:"items,omitempty"`
	Options      []Option       `json:"options,omitempty"`
	Required     bool           `json:"required,omitempty"`
	Placeholder  string         `json:"placeholder,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`

	NoDuplication bool `json:"noDuplication,omitempty"`
	NoDeletion    bool `json:"noDeletion,omitempty"`
}

// IsContainer reports whether f holds child nodes.
func (f *Field) IsContainer() bool {
	return f.Type == TypeObject || f.Type == TypeArray
}

// IsContents reports whether f is the markdown body field.
func (f *Field) IsContents() bool {
	return f.ID == ContentsID || f.Name == ContentsName
}

// Clone deep-copies f.
func (f *Field) Clone() *Field {
	if f == nil {
		return nil
	}
	c := *f
	c.Value = value.Clone(f.Value)
	c.Fields = CloneFields(f.Fields)
	if f.Items != nil {
		c.Items = make([]Item, len(f.Items))
		for i, it := range f.Items {
			c.Items[i] = it.Clone()
		}
	}
	if f.Options != nil {
		c.Options = append([]Option(nil), f.Options...)
	}
	if f.Extra != nil {
		c.Extra = make(map[string]any, len(f.Extra))
		for k, v := range f.Extra {
			c.Extra[k] = value.Clone(v)
		}
	}
	return &c
}

// CloneFields deep-copies a field sequence.
func CloneFields(fields []*Field) []*Field {
	if fields == nil {
		return nil
	}
	out := make([]*Field, len(fields))
	for i, f := range fields {
		out[i] = f.Clone()
	}
	return out
}

// Item is one element of an array field: either a nested Field (for object
// elements) or a raw scalar.
type Item struct {
	Field  *Field
	Scalar any
}

// IsField reports whether the item wraps a Field.
func (it Item) IsField() bool { return it.Field != nil }

// Clone deep-copies the item.
func (it Item) Clone() Item {
	if it.Field != nil {
		return Item{Field: it.Field.Clone()}
	}
	return Item{Scalar: value.Clone(it.Scalar)}
}

// MarshalJSON encodes the item as the field object or as the raw scalar.
func (it Item) MarshalJSON() ([]byte, error) {
	if it.Field != nil {
		return json.Marshal(it.Field)
	}
	return json.Marshal(it.Scalar)
}

// UnmarshalJSON decodes JSON objects as fields and anything else as a scalar.
func (it *Item) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var f Field
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return fmt.Errorf("schema: decode array item: %w", err)
		}
		*it = Item{Field: &f}
		return nil
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return fmt.Errorf("schema: decode array item: %w", err)
	}
	*it = Item{Scalar: v}
	return nil
}

// Marshal serializes a field tree into the string form kept in history.
func Marshal(tree []*Field) (string, error) {
	if tree == nil {
		tree = []*Field{}
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return "", fmt.Errorf("schema: marshal tree: %w", err)
	}
	return string(data), nil
}

// Unmarshal parses a tree serialized by Marshal.
func Unmarshal(state string) ([]*Field, error) {
	var tree []*Field
	if err := json.Unmarshal([]byte(state), &tree); err != nil {
		return nil, fmt.Errorf("schema: unmarshal tree: %w", err)
	}
	return tree, nil
}
