// Package formdata rebuilds plain objects from the DOM-ordered sequence of
// form element markers produced by the editor, and produces that sequence
// from a field tree.
package formdata

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Flag is a set of structural classes carried by an Element.
type Flag uint16

// Element classes.
const (
	ObjectOpen Flag = 1 << iota // opens a nested object
	ArrayOpen                   // opens an array
	List                        // a simple list with list items
	Last                        // closes the innermost object
	ArrayLast                   // closes the innermost array
	Numeric                     // value belongs to a numeric control
	Date                        // value belongs to a date control
)

var classNames = []struct {
	flag Flag
	name string
}{
	{ObjectOpen, "is-object-open"},
	{ArrayOpen, "is-array-open"},
	{List, "is-list"},
	{Last, "is-last"},
	{ArrayLast, "array-last"},
	{Numeric, "is-number"},
	{Date, "is-date"},
}

// Has reports whether all bits of g are set.
func (f Flag) Has(g Flag) bool { return f&g == g }

// Classes returns the class names of the set flags.
func (f Flag) Classes() []string {
	out := []string{}
	for _, c := range classNames {
		if f.Has(c.flag) {
			out = append(out, c.name)
		}
	}
	return out
}

// ParseClasses converts class names into flags. Unknown classes are ignored.
func ParseClasses(classes []string) Flag {
	var f Flag
	for _, cls := range classes {
		cls = strings.TrimSpace(cls)
		for _, c := range classNames {
			if c.name == cls {
				f |= c.flag
			}
		}
	}
	return f
}

// MarshalJSON encodes flags as a list of class names.
func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Classes())
}

// UnmarshalJSON accepts a list of class names or a space-separated class attribute.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = ParseClasses(list)
		return nil
	}
	var attr string
	if err := json.Unmarshal(data, &attr); err != nil {
		return fmt.Errorf("formdata: classes must be a list or a string: %w", err)
	}
	*f = ParseClasses(strings.Fields(attr))
	return nil
}

// ListItem is one entry of a List element. DataType is "number",
// "boolean" or anything else for strings.
type ListItem struct {
	Value    string `json:"value"`
	DataType string `json:"dataType,omitempty"`
}

// Element is one marker of the flattened form.
type Element struct {
	Flags     Flag       `json:"classes"`
	Label     string     `json:"label,omitempty"`
	Name      string     `json:"name,omitempty"`
	Value     string     `json:"value,omitempty"`
	InputType string     `json:"type,omitempty"`
	Checked   bool       `json:"checked,omitempty"`
	Items     []ListItem `json:"items,omitempty"`
}

// structural reports whether the element opens, lists or closes something.
func (e Element) structural() bool {
	return e.Flags&(ObjectOpen|ArrayOpen|List|Last|ArrayLast) != 0
}

func (e Element) isEnd() bool {
	return e.Flags&(Last|ArrayLast) != 0
}
