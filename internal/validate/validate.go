// Package validate checks reconstructed form data against a declarative
// schema before it is written back.
package validate

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/frontedit/internal/fieldtype"
	"github.com/starford/frontedit/internal/value"
)

// Declared property types.
const (
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeDate    = "date"
	TypeArray   = "array"
	TypeObject  = "object"
)

// MissingFormData is the sole error reported for absent form data.
const MissingFormData = "Missing form data"

// Schema is the declarative validation format:
// {properties: {name: {type, properties, items}}}.
type Schema struct {
	Properties map[string]*Property `json:"properties" yaml:"properties"`
}

// Property declares the expected shape of one value. A property with nested
// properties and no type describes an object.
type Property struct {
	Type       string               `json:"type,omitempty" yaml:"type,omitempty"`
	Properties map[string]*Property `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items      *Property            `json:"items,omitempty" yaml:"items,omitempty"`
}

// Load reads a schema from a YAML or JSON file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("validate: read schema: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON schema document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("validate: parse schema: %w", err)
	}
	return &s, nil
}

// Validate returns every violation of s found in data, each naming the
// offending path. An empty result means data is valid. Values that are
// absent, null or empty strings are not type checked.
func Validate(data any, s *Schema) []string {
	return validateWith(data, s, value.Get)
}

func validateWith(data any, s *Schema, get func(any, string) (any, bool)) (errs []string) {
	if data == nil {
		return []string{MissingFormData}
	}
	if o, ok := data.(*value.Object); ok && o == nil {
		return []string{MissingFormData}
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("validate: unexpected form structure", slog.Any("panic", r))
			errs = []string{fmt.Sprintf("Invalid form structure: %v", r)}
		}
	}()
	if s == nil {
		return nil
	}
	w := walker{get: get}
	w.object(s.Properties, data, "")
	return w.errs
}

type walker struct {
	get  func(any, string) (any, bool)
	errs []string
}

func (w *walker) fail(path, format string, args ...any) {
	w.errs = append(w.errs, path+" "+fmt.Sprintf(format, args...))
}

func (w *walker) object(props map[string]*Property, data any, prefix string) {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := props[name]
		if p == nil {
			continue
		}
		v, _ := w.get(data, name)
		w.property(p, v, join(prefix, name))
	}
}

func (w *walker) property(p *Property, v any, path string) {
	if absent(v) {
		return
	}
	switch strings.ToLower(p.Type) {
	case TypeNumber:
		if !fieldtype.IsNumber(v) {
			w.fail(path, "must be a number, got %s", describe(v))
		}
	case TypeBoolean:
		if !fieldtype.IsBoolean(v) {
			w.fail(path, "must be a boolean, got %s", describe(v))
		}
	case TypeDate:
		if !isDate(v) {
			w.fail(path, "must be a valid date, got %s", describe(v))
		}
	case TypeArray:
		elems, ok := value.AsSlice(v)
		if !ok {
			w.fail(path, "must be an array, got %s", describe(v))
			return
		}
		if p.Items == nil || p.Items.Properties == nil {
			return
		}
		for i, elem := range elems {
			at := fmt.Sprintf("%s[%d]", path, i)
			if !value.IsObject(elem) {
				w.fail(at, "must be an object, got %s", describe(elem))
				continue
			}
			w.object(p.Items.Properties, elem, at)
		}
	case TypeObject, "":
		if p.Properties == nil {
			return
		}
		if !value.IsObject(v) {
			w.fail(path, "must be an object, got %s", describe(v))
			return
		}
		w.object(p.Properties, v, path)
	}
}

func isDate(v any) bool {
	if s, ok := v.(string); ok {
		return fieldtype.ParseDate(s) != nil
	}
	return fieldtype.IsDateObject(v) && fieldtype.IsValidDate(v)
}

func absent(v any) bool {
	switch t := v.(type) {
	case nil, value.Undefined:
		return true
	case string:
		return t == ""
	}
	return false
}

func describe(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return string(fieldtype.Of(v))
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
