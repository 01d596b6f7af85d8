package formdata

import (
	"fmt"
	"strconv"
	"time"

	"github.com/starford/frontedit/internal/fieldtype"
	"github.com/starford/frontedit/internal/schema"
	"github.com/starford/frontedit/internal/value"
)

// Flatten renders a field tree into the element sequence the editor form
// would produce when read in document order.
func Flatten(fields []*schema.Field) []Element {
	var out []Element
	for _, f := range fields {
		out = appendField(out, f)
	}
	return out
}

func appendField(out []Element, f *schema.Field) []Element {
	if f == nil {
		return out
	}
	switch f.Type {
	case schema.TypeObject:
		out = append(out, Element{Flags: ObjectOpen, Label: f.Name})
		for _, child := range f.Fields {
			out = appendField(out, child)
		}
		return append(out, Element{Flags: Last})

	case schema.TypeArray:
		out = append(out, Element{Flags: ArrayOpen, Label: f.Name})
		for i, it := range f.Items {
			if it.Field != nil {
				out = appendField(out, it.Field)
				continue
			}
			out = appendValue(out, strconv.Itoa(i), it.Scalar)
		}
		return append(out, Element{Flags: ArrayLast})

	case schema.TypeList:
		return append(out, listElement(f.Name, f.Value))

	case schema.TypeCheckbox:
		checked, _ := f.Value.(bool)
		return append(out, Element{Name: f.Name, InputType: "checkbox", Checked: checked})

	case schema.TypeNumber:
		return append(out, Element{Flags: Numeric, Name: f.Name, InputType: "number", Value: stringify(f.Value)})

	case schema.TypeDate:
		return append(out, Element{Flags: Date, Name: f.Name, InputType: "date", Value: stringify(f.Value)})
	}
	if value.IsObject(f.Value) || isSlice(f.Value) {
		return appendValue(out, f.Name, f.Value)
	}
	return append(out, Element{Name: f.Name, InputType: string(f.Type), Value: stringify(f.Value)})
}

// appendValue renders a raw value that has no field of its own. Containers
// become nested open/end sequences so they rebuild into the same shape.
func appendValue(out []Element, name string, v any) []Element {
	switch {
	case value.IsObject(v):
		out = append(out, Element{Flags: ObjectOpen, Label: name})
		value.Each(v, func(k string, e any) bool {
			out = appendValue(out, k, e)
			return true
		})
		return append(out, Element{Flags: Last})
	case fieldtype.IsSimpleList(v):
		return append(out, listElement(name, v))
	}
	if elems, ok := value.AsSlice(v); ok {
		out = append(out, Element{Flags: ArrayOpen, Label: name})
		for i, e := range elems {
			out = appendValue(out, strconv.Itoa(i), e)
		}
		return append(out, Element{Flags: ArrayLast})
	}
	return append(out, scalarElement(name, v))
}

func listElement(name string, v any) Element {
	el := Element{Flags: List, Name: name}
	items, _ := value.AsSlice(v)
	for _, it := range items {
		el.Items = append(el.Items, ListItem{Value: stringify(it), DataType: dataType(it)})
	}
	return el
}

func isSlice(v any) bool {
	_, ok := value.AsSlice(v)
	return ok
}

func scalarElement(name string, v any) Element {
	switch fieldtype.Of(v) {
	case fieldtype.KindNumber:
		return Element{Flags: Numeric, Name: name, InputType: "number", Value: stringify(v)}
	case fieldtype.KindBoolean:
		b, _ := v.(bool)
		return Element{Name: name, InputType: "checkbox", Checked: b}
	}
	return Element{Name: name, InputType: "text", Value: stringify(v)}
}

func dataType(v any) string {
	switch fieldtype.Of(v) {
	case fieldtype.KindNumber:
		return "number"
	case fieldtype.KindBoolean:
		return "boolean"
	}
	return "string"
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339)
	case *time.Time:
		if t == nil {
			return ""
		}
		return stringify(*t)
	}
	if f, ok := fieldtype.ToFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
