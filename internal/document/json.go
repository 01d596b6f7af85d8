package document

import (
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"

	"github.com/starford/frontedit/internal/value"
)

// decodeJSON decodes data keeping object key order.
func decodeJSON(data []byte) (any, error) {
	raw, vt, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return fromJSON(raw, vt)
}

func fromJSON(raw []byte, vt jsonparser.ValueType) (any, error) {
	switch vt {
	case jsonparser.Object:
		obj := value.NewObject()
		err := jsonparser.ObjectEach(raw, func(key, val []byte, vt jsonparser.ValueType, _ int) error {
			k, err := jsonparser.ParseString(key)
			if err != nil {
				return err
			}
			v, err := fromJSON(val, vt)
			if err != nil {
				return err
			}
			obj.Set(k, v)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("decode json object: %w", err)
		}
		return obj, nil
	case jsonparser.Array:
		out := []any{}
		var inner error
		_, err := jsonparser.ArrayEach(raw, func(val []byte, vt jsonparser.ValueType, _ int, err error) {
			if inner != nil {
				return
			}
			if err != nil {
				inner = err
				return
			}
			v, err := fromJSON(val, vt)
			if err != nil {
				inner = err
				return
			}
			out = append(out, v)
		})
		if err == nil {
			err = inner
		}
		if err != nil {
			return nil, fmt.Errorf("decode json array: %w", err)
		}
		return out, nil
	case jsonparser.String:
		return jsonparser.ParseString(raw)
	case jsonparser.Number:
		return jsonparser.ParseFloat(raw)
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(raw)
	case jsonparser.Null:
		return nil, nil
	}
	return nil, fmt.Errorf("decode json: unexpected value %q", raw)
}

// encodeJSON writes v as indented JSON. Ordered objects keep their key order.
func encodeJSON(v any) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("document: encode json: %w", err)
	}
	return append(out, '\n'), nil
}
