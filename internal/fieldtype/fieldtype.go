// Package fieldtype classifies decoded frontmatter and JSON values into the
// coarse kinds used for form inference. Every function is total: it accepts
// any value and never panics.
package fieldtype

import (
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/starford/frontedit/internal/value"
)

// Kind is the tag returned by Of.
type Kind string

// Kinds, in the order Of tests for them.
const (
	KindList      Kind = "list"
	KindDate      Kind = "date"
	KindArray     Kind = "array"
	KindNull      Kind = "null"
	KindNumber    Kind = "number"
	KindString    Kind = "string"
	KindBoolean   Kind = "boolean"
	KindObject    Kind = "object"
	KindUndefined Kind = "undefined"
	KindSymbol    Kind = "symbol"
	KindFunction  Kind = "function"
)

// IsSimpleList reports whether v is a non-empty slice whose elements are all
// strings or all numbers.
func IsSimpleList(v any) bool {
	items, ok := value.AsSlice(v)
	if !ok || len(items) == 0 {
		return false
	}
	first := primitiveOf(items[0])
	if first != KindString && first != KindNumber {
		return false
	}
	for _, it := range items[1:] {
		if primitiveOf(it) != first {
			return false
		}
	}
	return true
}

// IsDateObject reports whether v is a time value or a string that parses as a date.
func IsDateObject(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return true
	case *time.Time:
		return t != nil
	case string:
		return ParseDate(t) != nil
	}
	return false
}

// IsValidDate reports whether v is an actual, non-zero time value.
func IsValidDate(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return !t.IsZero()
	case *time.Time:
		return t != nil && !t.IsZero()
	}
	return false
}

// ParseDate parses s with the lenient layouts of spf13/cast. It returns nil
// when s is not a date.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := cast.StringToDate(s)
	// Clock-only layouts (Kitchen, Stamp) parse into year zero.
	if err != nil || t.Year() == 0 {
		return nil
	}
	return &t
}

// IsComplexObject reports whether v is a non-empty object with at least one
// date, slice or nested object value.
func IsComplexObject(v any) bool {
	if !value.IsObject(v) || value.Len(v) == 0 {
		return false
	}
	found := false
	value.Each(v, func(_ string, val any) bool {
		if IsDateObject(val) || isSlice(val) || value.IsObject(val) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Of classifies v. The first matching kind wins: list, date, array, null, then
// the runtime kind of v.
func Of(v any) Kind {
	switch {
	case IsSimpleList(v):
		return KindList
	case IsDateObject(v):
		return KindDate
	case isSlice(v):
		return KindArray
	case v == nil:
		return KindNull
	}
	return primitiveOf(v)
}

// IsEmpty reports whether v is null, undefined, a blank string, an empty
// slice or an object without keys. Zero numbers and false are not empty.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil, value.Undefined:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	if value.IsObject(v) {
		return value.Len(v) == 0
	}
	if items, ok := value.AsSlice(v); ok {
		return len(items) == 0
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Map {
		return rv.IsNil()
	}
	return false
}

// IsNumber reports whether v is a numeric value other than NaN.
func IsNumber(v any) bool {
	if primitiveOf(v) != KindNumber {
		return false
	}
	f, ok := ToFloat(v)
	return ok && !math.IsNaN(f)
}

// ToFloat converts any numeric kind to float64.
func ToFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// IsBoolean reports whether v is a bool.
func IsBoolean(v any) bool {
	_, ok := v.(bool)
	return ok
}

func isSlice(v any) bool {
	_, ok := value.AsSlice(v)
	return ok
}

func primitiveOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case value.Undefined:
		return KindUndefined
	case string:
		return KindString
	case bool:
		return KindBoolean
	}
	if value.IsObject(v) {
		return KindObject
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.Func:
		return KindFunction
	case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array, reflect.Pointer, reflect.Interface:
		return KindObject
	case reflect.String:
		return KindString
	case reflect.Bool:
		return KindBoolean
	}
	return KindSymbol
}
