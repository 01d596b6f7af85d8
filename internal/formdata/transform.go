package formdata

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/starford/frontedit/internal/fieldtype"
	"github.com/starford/frontedit/internal/value"
)

// ISOLayout matches the millisecond UTC form used for serialized dates.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// blockSuffix marks content-block entries that keep their key when an array
// is rebuilt.
const blockSuffix = "block"

var errUnbalanced = errors.New("formdata: container end without matching open")

// Transformer rebuilds objects from flattened form elements.
type Transformer struct {
	logger *slog.Logger
}

// NewTransformer returns a Transformer logging to logger (slog.Default when nil).
func NewTransformer(logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{logger: logger}
}

// Transform rebuilds the object described by elements. It returns nil when
// the sequence cannot be turned into an object; the cause is logged.
func (t *Transformer) Transform(elements []Element) *value.Object {
	obj, err := Build(elements)
	if err != nil {
		t.logger.Error("form transform failed",
			slog.Int("elements", len(elements)),
			slog.String("error", err.Error()))
		return nil
	}
	return obj
}

// Transform is Transformer.Transform with the default logger.
func Transform(elements []Element) *value.Object {
	return NewTransformer(nil).Transform(elements)
}

type frame struct {
	key string
	obj *value.Object
}

type builder struct {
	stack []*frame
}

// Build rebuilds the object described by elements, reporting why it could not.
func Build(elements []Element) (obj *value.Object, err error) {
	defer func() {
		if r := recover(); r != nil {
			obj, err = nil, fmt.Errorf("formdata: %v", r)
		}
	}()

	b := &builder{stack: []*frame{{obj: value.NewObject()}}}
	for i, el := range elements {
		if err := b.step(el); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return b.stack[0].obj, nil
}

func (b *builder) top() *frame { return b.stack[len(b.stack)-1] }

func (b *builder) step(el Element) error {
	switch {
	case len(b.stack) == 1 && !el.structural():
		b.setValue(el)
	case el.Flags&(ObjectOpen|ArrayOpen) != 0:
		b.push(el)
	case el.Flags.Has(List):
		b.setList(el)
	case !el.isEnd():
		b.setValue(el)
	case el.Flags.Has(ArrayLast):
		return b.closeArray()
	default:
		return b.pop()
	}
	return nil
}

func (b *builder) setValue(el Element) {
	key := keyOf(el)
	if key == "" {
		return
	}
	b.top().obj.Set(key, coerce(el))
}

func (b *builder) push(el Element) {
	parent := b.top().obj
	name := value.CamelCase(strings.TrimSpace(el.Label))
	if name == "" {
		name = value.CamelCase(strings.TrimSpace(el.Name))
	}
	if name == "" {
		name = "item" + strconv.Itoa(parent.Len())
	}
	existing, _ := parent.Get(name)
	child, ok := existing.(*value.Object)
	if !ok {
		child = value.NewObject()
		parent.Set(name, child)
	}
	b.stack = append(b.stack, &frame{key: name, obj: child})
}

func (b *builder) setList(el Element) {
	items := make([]any, len(el.Items))
	for i, it := range el.Items {
		items[i] = coerceListItem(it)
	}
	cur := b.top().obj
	if key := keyOf(el); key != "" {
		cur.Set(key, items)
		return
	}
	cur.Set("isList", true)
	cur.Set("items", items)
}

func (b *builder) pop() error {
	if len(b.stack) == 1 {
		return errUnbalanced
	}
	b.stack = b.stack[:len(b.stack)-1]
	return nil
}

func (b *builder) closeArray() error {
	if len(b.stack) == 1 {
		return errUnbalanced
	}
	closed := b.top()
	arr := entriesToArray(closed.obj)
	b.stack = b.stack[:len(b.stack)-1]
	b.top().obj.Set(closed.key, arr)
	return nil
}

// entriesToArray turns the entries accumulated for an array container into
// the array itself.
func entriesToArray(obj *value.Object) []any {
	flag, _ := obj.Get("isList")
	if isList, _ := flag.(bool); isList {
		raw, _ := obj.Get("items")
		if items, ok := value.AsSlice(raw); ok {
			return items
		}
	}
	out := make([]any, 0, obj.Len())
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		if strings.HasSuffix(pair.Key, blockSuffix) {
			out = append(out, value.ObjectOf(pair.Key, pair.Value))
			continue
		}
		out = append(out, pair.Value)
	}
	return out
}

func keyOf(el Element) string {
	name := strings.TrimSpace(el.Name)
	if name == "" {
		name = strings.TrimSpace(el.Label)
	}
	return value.CamelCase(name)
}

// coerce converts the raw control value of a leaf element.
func coerce(el Element) any {
	switch {
	case el.InputType == "checkbox":
		return el.Checked
	case el.Flags.Has(Numeric) || el.InputType == "number":
		return toNumber(el.Value)
	case el.Flags.Has(Date) || el.InputType == "date":
		return toISODate(el.Value)
	}
	return strings.TrimSpace(el.Value)
}

func coerceListItem(it ListItem) any {
	switch it.DataType {
	case "number":
		return toNumber(it.Value)
	case "boolean":
		return strings.EqualFold(strings.TrimSpace(it.Value), "true")
	}
	return strings.TrimSpace(it.Value)
}

// toNumber parses s as a float. Blank input stays an empty string and
// unparsable or non-finite input is kept as its trimmed text so validation
// can report it.
func toNumber(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return s
	}
	return f
}

func toISODate(s string) string {
	t := fieldtype.ParseDate(s)
	if t == nil {
		return ""
	}
	return FormatISO(*t)
}

// FormatISO renders t in ISOLayout.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}
