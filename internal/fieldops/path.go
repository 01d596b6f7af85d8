package fieldops

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/frontedit/internal/apperr"
	"github.com/starford/frontedit/internal/schema"
)

// Into names the child sequence a Step descends into.
type Into string

const (
	Root   Into = "root"
	Fields Into = "fields"
	Items  Into = "items"
)

// Step selects one element of a sequence by index.
type Step struct {
	In    Into `json:"in"`
	Index int  `json:"index"`
}

// Path addresses a node of a field tree. The first step indexes the
// top-level sequence; later steps descend into an object's fields or an
// array's items.
type Path []Step

// String renders the path as e.g. "2.fields[0].items[3]".
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		if i == 0 {
			b.WriteString(strconv.Itoa(s.Index))
			continue
		}
		fmt.Fprintf(&b, ".%s[%d]", s.In, s.Index)
	}
	return b.String()
}

func (p Path) validate() error {
	for i, s := range p {
		switch {
		case i == 0 && (s.In == "" || s.In == Root || s.In == Fields):
		case i > 0 && (s.In == Fields || s.In == Items):
		default:
			return fmt.Errorf("fieldops: step %d of %s: %w", i, p, apperr.ErrInvalidPath)
		}
	}
	return nil
}

// rewriteFields returns a copy of seq in which the node addressed by path has
// been passed to fn. Only the nodes on the path are copied; every other node
// is shared with seq.
func rewriteFields(seq []*schema.Field, path Path, fn func(*schema.Field) error) ([]*schema.Field, error) {
	step := path[0]
	if step.Index < 0 || step.Index >= len(seq) {
		return nil, fmt.Errorf("fieldops: index %d of %d fields: %w", step.Index, len(seq), apperr.ErrIndexOutOfRange)
	}
	node := shallow(seq[step.Index])
	if err := visit(node, path[1:], fn); err != nil {
		return nil, err
	}
	out := append([]*schema.Field(nil), seq...)
	out[step.Index] = node
	return out, nil
}

func rewriteItems(seq []schema.Item, path Path, fn func(*schema.Field) error) ([]schema.Item, error) {
	step := path[0]
	if step.Index < 0 || step.Index >= len(seq) {
		return nil, fmt.Errorf("fieldops: index %d of %d items: %w", step.Index, len(seq), apperr.ErrIndexOutOfRange)
	}
	out := append([]schema.Item(nil), seq...)
	it := seq[step.Index]
	if !it.IsField() {
		if len(path) > 1 {
			return nil, fmt.Errorf("fieldops: item %d is a scalar: %w", step.Index, apperr.ErrInvalidPath)
		}
		// Scalars are edited through a transient leaf.
		leaf := &schema.Field{Value: it.Scalar}
		if err := fn(leaf); err != nil {
			return nil, err
		}
		out[step.Index] = schema.Item{Scalar: leaf.Value}
		return out, nil
	}
	node := shallow(it.Field)
	if err := visit(node, path[1:], fn); err != nil {
		return nil, err
	}
	out[step.Index] = schema.Item{Field: node}
	return out, nil
}

func visit(node *schema.Field, rest Path, fn func(*schema.Field) error) error {
	if len(rest) == 0 {
		return fn(node)
	}
	var err error
	switch rest[0].In {
	case Fields:
		node.Fields, err = rewriteFields(node.Fields, rest, fn)
	case Items:
		node.Items, err = rewriteItems(node.Items, rest, fn)
	default:
		err = fmt.Errorf("fieldops: cannot descend into %q: %w", rest[0].In, apperr.ErrInvalidPath)
	}
	return err
}

func shallow(f *schema.Field) *schema.Field {
	c := *f
	return &c
}
