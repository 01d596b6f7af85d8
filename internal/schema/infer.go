package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/starford/frontedit/internal/apperr"
	"github.com/starford/frontedit/internal/fieldtype"
	"github.com/starford/frontedit/internal/value"
)

// Result is the output of Infer.
type Result struct {
	Fields       []*Field `json:"fields"`
	OriginalData any      `json:"-"`
}

// Infer builds a field tree from data, which must be an object. Each key of
// data becomes a field, in key order. Explicit descriptors override the
// inferred type of matching keys. Infer fails with an error wrapping
// apperr.ErrCircularReference when data contains itself.
func Infer(data any, explicit []Descriptor) (*Result, error) {
	if !value.IsObject(data) {
		return nil, fmt.Errorf("schema: top-level value must be an object, got %s", fieldtype.Of(data))
	}
	in := &inferrer{
		visiting: make(map[identity]struct{}),
		ids:      map[string]struct{}{ContentsID: {}},
	}
	fields, err := in.object(data, "", indexDescriptors(explicit))
	if err != nil {
		return nil, err
	}
	return &Result{Fields: fields, OriginalData: data}, nil
}

// ContentsField returns the protected field holding a markdown body.
func ContentsField(body string) *Field {
	return &Field{
		ID:            ContentsID,
		Name:          ContentsName,
		Type:          TypeTextarea,
		Label:         "Contents",
		Value:         body,
		NoDuplication: true,
		NoDeletion:    true,
	}
}

type identity struct {
	ptr  uintptr
	kind reflect.Kind
}

type inferrer struct {
	visiting map[identity]struct{}
	ids      map[string]struct{}
}

// claim reserves id, or the first free "id~n" when a key containing the
// separators already produced it.
func (in *inferrer) claim(id string) string {
	unique := id
	for n := 2; ; n++ {
		if _, taken := in.ids[unique]; !taken {
			break
		}
		unique = fmt.Sprintf("%s~%d", id, n)
	}
	in.ids[unique] = struct{}{}
	return unique
}

// enter marks v as being visited. The returned func must be called once the
// subtree is done.
func (in *inferrer) enter(v any) (func(), error) {
	id, ok := identityOf(v)
	if !ok {
		return func() {}, nil
	}
	if _, seen := in.visiting[id]; seen {
		return nil, fmt.Errorf("schema: %w: value contains itself", apperr.ErrCircularReference)
	}
	in.visiting[id] = struct{}{}
	return func() { delete(in.visiting, id) }, nil
}

func (in *inferrer) object(obj any, parentID string, explicit map[string]Descriptor) ([]*Field, error) {
	leave, err := in.enter(obj)
	if err != nil {
		return nil, err
	}
	defer leave()

	fields := make([]*Field, 0, value.Len(obj))
	var walkErr error
	value.Each(obj, func(key string, val any) bool {
		d, declared := explicit[key]
		f, err := in.field(key, in.claim(joinID(parentID, key)), val, d, declared)
		if err != nil {
			walkErr = err
			return false
		}
		fields = append(fields, f)
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return fields, nil
}

func (in *inferrer) field(key, id string, val any, d Descriptor, declared bool) (*Field, error) {
	f := &Field{
		ID:    id,
		Name:  key,
		Label: value.Humanize(key),
	}
	if declared {
		f.Type = d.Type
		mergeDescriptor(f, d)
	} else {
		f.Type = inferType(val)
	}

	switch {
	case f.Type == TypeObject && value.IsObject(val):
		children, err := in.object(val, id, indexDescriptors(d.Fields))
		if err != nil {
			return nil, err
		}
		f.Fields = children
	case f.Type == TypeArray && isSlice(val):
		items, err := in.array(val, id)
		if err != nil {
			return nil, err
		}
		f.Items = items
	default:
		v, err := in.copy(val)
		if err != nil {
			return nil, err
		}
		f.Value = v
	}
	return f, nil
}

func (in *inferrer) array(val any, id string) ([]Item, error) {
	elems, _ := value.AsSlice(val)
	leave, err := in.enter(val)
	if err != nil {
		return nil, err
	}
	defer leave()

	items := make([]Item, 0, len(elems))
	for i, elem := range elems {
		if value.IsObject(elem) {
			itemID := in.claim(fmt.Sprintf("%s[%d]", id, i))
			children, err := in.object(elem, itemID, nil)
			if err != nil {
				return nil, err
			}
			items = append(items, Item{Field: &Field{
				ID:     itemID,
				Name:   fmt.Sprintf("item%d", i),
				Type:   TypeObject,
				Label:  fmt.Sprintf("Item %d", i+1),
				Fields: children,
			}})
			continue
		}
		v, err := in.copy(elem)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Scalar: v})
	}
	return items, nil
}

// copy deep-copies a leaf value, rejecting cycles.
func (in *inferrer) copy(v any) (any, error) {
	switch {
	case value.IsObject(v):
		leave, err := in.enter(v)
		if err != nil {
			return nil, err
		}
		defer leave()
		out := value.NewObject()
		var walkErr error
		value.Each(v, func(k string, e any) bool {
			c, err := in.copy(e)
			if err != nil {
				walkErr = err
				return false
			}
			out.Set(k, c)
			return true
		})
		return out, walkErr
	}
	if elems, ok := value.AsSlice(v); ok {
		leave, err := in.enter(v)
		if err != nil {
			return nil, err
		}
		defer leave()
		out := make([]any, len(elems))
		for i, e := range elems {
			c, err := in.copy(e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	return v, nil
}

// inferType maps a value to a field type. Order matters: lists and dates are
// recognized before generic arrays and strings.
func inferType(v any) Type {
	switch {
	case fieldtype.IsSimpleList(v):
		return TypeList
	case fieldtype.IsDateObject(v):
		return TypeDate
	}
	if _, ok := value.AsSlice(v); ok {
		return TypeArray
	}
	switch t := v.(type) {
	case nil, value.Undefined:
		return TypeText
	case string:
		if strings.Contains(t, "\n") {
			return TypeTextarea
		}
		return TypeText
	case bool:
		return TypeCheckbox
	}
	if value.IsObject(v) {
		return TypeObject
	}
	if fieldtype.Of(v) == fieldtype.KindNumber {
		return TypeNumber
	}
	return TypeText
}

func mergeDescriptor(f *Field, d Descriptor) {
	if d.Label != "" {
		f.Label = d.Label
	}
	if len(d.Options) > 0 {
		f.Options = append([]Option(nil), d.Options...)
	}
	f.Required = d.Required
	f.Placeholder = d.Placeholder
	if len(d.Extra) > 0 {
		f.Extra = make(map[string]any, len(d.Extra))
		for k, v := range d.Extra {
			f.Extra[k] = v
		}
	}
}

func isSlice(v any) bool {
	_, ok := value.AsSlice(v)
	return ok
}

func joinID(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func identityOf(v any) (identity, bool) {
	if v == nil {
		return identity{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map:
		if rv.IsNil() {
			return identity{}, false
		}
		return identity{ptr: rv.Pointer(), kind: rv.Kind()}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return identity{}, false
		}
		return identity{ptr: rv.Pointer(), kind: reflect.Slice}, true
	}
	return identity{}, false
}
