package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/starford/frontedit/internal/value"
)

// Strict validates data against a compiled JSON Schema document.
type Strict struct {
	schema *jsonschema.Schema
}

// CompileStrict compiles the JSON Schema file at path.
func CompileStrict(path string) (*Strict, error) {
	sch, err := jsonschema.NewCompiler().Compile(path)
	if err != nil {
		return nil, fmt.Errorf("validate: compile %s: %w", path, err)
	}
	return &Strict{schema: sch}, nil
}

// CompileStrictBytes compiles an in-memory JSON Schema document registered
// under name.
func CompileStrictBytes(name string, data []byte) (*Strict, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("validate: add schema %s: %w", name, err)
	}
	sch, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("validate: compile %s: %w", name, err)
	}
	return &Strict{schema: sch}, nil
}

// Validate returns one "<path>: <message>" entry per schema violation.
func (s *Strict) Validate(data any) []string {
	doc, err := normalize(data)
	if err != nil {
		return []string{fmt.Sprintf("Invalid form structure: %v", err)}
	}
	err = s.schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	var out []string
	collect(ve, &out)
	return out
}

// normalize turns data into the values jsonschema expects from a JSON
// decoder, numbers included.
func normalize(data any) (any, error) {
	raw, err := json.Marshal(value.ToPlain(data))
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// collect keeps the leaf causes, which carry the specific messages.
func collect(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		*out = append(*out, pointerPath(ve.InstanceLocation)+": "+ve.Message)
		return
	}
	for _, c := range ve.Causes {
		collect(c, out)
	}
}

// pointerPath renders a JSON pointer such as /sections/0/title as
// sections[0].title.
func pointerPath(ptr string) string {
	if ptr == "" || ptr == "/" {
		return "(root)"
	}
	var b strings.Builder
	for _, seg := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		seg = strings.NewReplacer("~1", "/", "~0", "~").Replace(seg)
		if isIndex(seg) {
			fmt.Fprintf(&b, "[%s]", seg)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

func isIndex(seg string) bool {
	if seg == "" {
		return false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
