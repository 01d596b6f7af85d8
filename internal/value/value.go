// Package value models the JSON-compatible values that flow between the
// document decoders, schema inference and the form transformer. Objects keep
// their key insertion order.
package value

import (
	"reflect"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is an insertion-ordered string-keyed map.
type Object = orderedmap.OrderedMap[string, any]

// Undefined marks a value that is declared but carries nothing, as opposed to nil (null).
type Undefined struct{}

// NewObject returns an empty Object.
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// ObjectOf builds an Object from alternating key/value arguments. It panics on
// an odd argument count or a non-string key; it is meant for literals in code
// and tests.
func ObjectOf(kv ...any) *Object {
	if len(kv)%2 != 0 {
		panic("value: ObjectOf needs key/value pairs")
	}
	o := NewObject()
	for i := 0; i < len(kv); i += 2 {
		o.Set(kv[i].(string), kv[i+1])
	}
	return o
}

// IsObject reports whether v is an Object or a plain string-keyed map.
func IsObject(v any) bool {
	switch v.(type) {
	case *Object, map[string]any:
		return v != nil && !isNilPointer(v)
	}
	return false
}

// Len returns the number of keys of an object value, or -1 when v is not one.
func Len(v any) int {
	switch o := v.(type) {
	case *Object:
		if o == nil {
			return -1
		}
		return o.Len()
	case map[string]any:
		return len(o)
	}
	return -1
}

// Get looks up key on an object value.
func Get(v any, key string) (any, bool) {
	switch o := v.(type) {
	case *Object:
		if o == nil {
			return nil, false
		}
		return o.Get(key)
	case map[string]any:
		val, ok := o[key]
		return val, ok
	}
	return nil, false
}

// Each calls fn for every key of an object value. Objects are walked in
// insertion order, plain maps in sorted key order. Each stops early when fn
// returns false.
func Each(v any, fn func(key string, val any) bool) {
	switch o := v.(type) {
	case *Object:
		if o == nil {
			return
		}
		for pair := o.Oldest(); pair != nil; pair = pair.Next() {
			if !fn(pair.Key, pair.Value) {
				return
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(o))
		for k := range o {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !fn(k, o[k]) {
				return
			}
		}
	}
}

// Keys returns the keys of an object value in iteration order.
func Keys(v any) []string {
	var out []string
	Each(v, func(k string, _ any) bool {
		out = append(out, k)
		return true
	})
	return out
}

// AsSlice returns v as []any when it is any kind of slice or array.
func AsSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	if v == nil {
		return nil, false
	}
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// ToPlain converts v into the shapes produced by encoding/json decoding:
// objects become map[string]any and slices become []any.
func ToPlain(v any) any {
	if IsObject(v) {
		m := make(map[string]any, Len(v))
		Each(v, func(k string, val any) bool {
			m[k] = ToPlain(val)
			return true
		})
		return m
	}
	if s, ok := AsSlice(v); ok {
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = ToPlain(e)
		}
		return out
	}
	return v
}

// Clone deep-copies objects and slices. Scalars are returned as is.
func Clone(v any) any {
	switch o := v.(type) {
	case *Object:
		if o == nil {
			return o
		}
		c := NewObject()
		for pair := o.Oldest(); pair != nil; pair = pair.Next() {
			c.Set(pair.Key, Clone(pair.Value))
		}
		return c
	case map[string]any:
		c := make(map[string]any, len(o))
		for k, val := range o {
			c[k] = Clone(val)
		}
		return c
	case []any:
		c := make([]any, len(o))
		for i, e := range o {
			c[i] = Clone(e)
		}
		return c
	}
	return v
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Map) && rv.IsNil()
}
