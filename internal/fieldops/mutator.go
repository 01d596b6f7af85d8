// Package fieldops implements the edit operations on a field tree: value
// updates, duplication, deletion and reordering. Every operation returns a new
// tree and leaves its input untouched; failed operations return the input tree
// as is together with the reason.
package fieldops

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/frontedit/internal/apperr"
	"github.com/starford/frontedit/internal/schema"
	"github.com/starford/frontedit/internal/value"
)

// CopyMarker joins a duplicated field's id or name and its unique suffix.
const CopyMarker = "_copy_"

// Mutator applies edit operations and reports every resulting tree to its
// record func.
type Mutator struct {
	record func([]*schema.Field)
	notify func(msg string)
	logger *slog.Logger
	suffix func() string
}

// Option configures a Mutator.
type Option func(*Mutator)

// WithLogger sets the logger used for rejected operations.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mutator) { m.logger = l }
}

// WithNotify sets the func receiving user-facing rejection messages.
func WithNotify(fn func(msg string)) Option {
	return func(m *Mutator) { m.notify = fn }
}

// WithSuffix overrides the generator of duplicate suffixes.
func WithSuffix(fn func() string) Option {
	return func(m *Mutator) { m.suffix = fn }
}

// New returns a Mutator reporting successful edits to record.
func New(record func([]*schema.Field), opts ...Option) *Mutator {
	m := &Mutator{
		record: record,
		notify: func(string) {},
		logger: slog.Default(),
		suffix: UniqueSuffix,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.record == nil {
		m.record = func([]*schema.Field) {}
	}
	return m
}

// UniqueSuffix returns a time-ordered random identifier.
func UniqueSuffix() string {
	id, err := uuid.NewV7()
	if err != nil {
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return strings.ReplaceAll(id.String(), "-", "")
}

// Update copies the value and display label of req onto the field addressed
// by path. With an empty path the target is the top-level field whose id, or
// failing that name, equals req's. The target keeps every other property.
// Updates whose type differs from the target's are refused, except for
// select fields.
func (m *Mutator) Update(req *schema.Field, path Path, tree []*schema.Field) ([]*schema.Field, error) {
	if req == nil || (req.ID == "" && req.Name == "") {
		return m.fail("update", tree, fmt.Errorf("fieldops: update: %w", apperr.ErrMissingIdentifier))
	}
	if len(path) == 0 {
		idx := locate(tree, req)
		if idx < 0 {
			return m.fail("update", tree, fmt.Errorf("fieldops: update %s: %w", ident(req), apperr.ErrFieldNotFound))
		}
		path = Path{{In: Root, Index: idx}}
	} else if err := path.validate(); err != nil {
		return m.fail("update", tree, err)
	}

	out, err := rewriteFields(tree, path, func(target *schema.Field) error {
		if !typesMatch(target.Type, req.Type) {
			return fmt.Errorf("fieldops: update %s: %s value into %s field: %w",
				ident(req), req.Type, target.Type, apperr.ErrTypeMismatch)
		}
		target.Value = value.Clone(req.Value)
		if req.DisplayLabel != "" {
			target.DisplayLabel = req.DisplayLabel
		}
		return nil
	})
	if err != nil {
		return m.fail("update", tree, err)
	}
	m.record(out)
	return out, nil
}

// Duplicate inserts a copy of field right after index in the top-level
// sequence. A nil field duplicates the element at index.
func (m *Mutator) Duplicate(field *schema.Field, index int, tree []*schema.Field) ([]*schema.Field, error) {
	if field == nil && index >= 0 && index < len(tree) {
		field = tree[index]
	}
	if field != nil {
		if err := protect(opDuplicate, field); err != nil {
			return m.fail("duplicate", tree, err)
		}
	}
	if index < 0 || index >= len(tree) {
		return m.fail("duplicate", tree, outOfRange(index, len(tree)))
	}
	out := slices.Insert(slices.Clone(tree), index+1, m.copyOf(field))
	m.record(out)
	return out, nil
}

// Delete removes the element at index of the top-level sequence. field is
// only consulted for protection; the index alone selects what is removed.
func (m *Mutator) Delete(field *schema.Field, index int, tree []*schema.Field) ([]*schema.Field, error) {
	if field == nil && index >= 0 && index < len(tree) {
		field = tree[index]
	}
	if field != nil {
		if err := protect(opDelete, field); err != nil {
			return m.fail("delete", tree, err)
		}
	}
	if index < 0 || index >= len(tree) {
		return m.fail("delete", tree, outOfRange(index, len(tree)))
	}
	out := slices.Delete(slices.Clone(tree), index, index+1)
	m.record(out)
	return out, nil
}

// DuplicateIn duplicates the element at index of the container addressed by
// parent: an object's fields or an array's items. An empty parent means the
// top-level sequence.
func (m *Mutator) DuplicateIn(parent Path, index int, tree []*schema.Field) ([]*schema.Field, error) {
	if len(parent) == 0 {
		return m.Duplicate(nil, index, tree)
	}
	return m.inContainer("duplicate", parent, tree, func(c *schema.Field) error {
		switch c.Type {
		case schema.TypeArray:
			if index < 0 || index >= len(c.Items) {
				return outOfRange(index, len(c.Items))
			}
			it := c.Items[index]
			dup := schema.Item{Scalar: value.Clone(it.Scalar)}
			if it.IsField() {
				if err := protect(opDuplicate, it.Field); err != nil {
					return err
				}
				dup = schema.Item{Field: m.copyOf(it.Field)}
			}
			c.Items = slices.Insert(slices.Clone(c.Items), index+1, dup)
		case schema.TypeObject:
			if index < 0 || index >= len(c.Fields) {
				return outOfRange(index, len(c.Fields))
			}
			if err := protect(opDuplicate, c.Fields[index]); err != nil {
				return err
			}
			c.Fields = slices.Insert(slices.Clone(c.Fields), index+1, m.copyOf(c.Fields[index]))
		default:
			return notContainer(c)
		}
		return nil
	})
}

// DeleteIn removes the element at index of the container addressed by parent.
func (m *Mutator) DeleteIn(parent Path, index int, tree []*schema.Field) ([]*schema.Field, error) {
	if len(parent) == 0 {
		return m.Delete(nil, index, tree)
	}
	return m.inContainer("delete", parent, tree, func(c *schema.Field) error {
		switch c.Type {
		case schema.TypeArray:
			if index < 0 || index >= len(c.Items) {
				return outOfRange(index, len(c.Items))
			}
			if it := c.Items[index]; it.IsField() {
				if err := protect(opDelete, it.Field); err != nil {
					return err
				}
			}
			c.Items = slices.Delete(slices.Clone(c.Items), index, index+1)
		case schema.TypeObject:
			if index < 0 || index >= len(c.Fields) {
				return outOfRange(index, len(c.Fields))
			}
			if err := protect(opDelete, c.Fields[index]); err != nil {
				return err
			}
			c.Fields = slices.Delete(slices.Clone(c.Fields), index, index+1)
		default:
			return notContainer(c)
		}
		return nil
	})
}

// Move reorders the sequence addressed by parent so that the element at from
// ends up at to. Moving an element onto itself changes nothing and records
// nothing.
func (m *Mutator) Move(parent Path, from, to int, tree []*schema.Field) ([]*schema.Field, error) {
	if len(parent) == 0 {
		if err := checkMove(from, to, len(tree)); err != nil {
			return m.fail("move", tree, err)
		}
		if from == to {
			return tree, nil
		}
		out := moveTo(tree, from, to)
		m.record(out)
		return out, nil
	}
	if err := parent.validate(); err != nil {
		return m.fail("move", tree, err)
	}
	unchanged := false
	out, err := rewriteFields(tree, parent, func(c *schema.Field) error {
		switch c.Type {
		case schema.TypeArray:
			if err := checkMove(from, to, len(c.Items)); err != nil {
				return err
			}
			unchanged = from == to
			c.Items = moveTo(c.Items, from, to)
		case schema.TypeObject:
			if err := checkMove(from, to, len(c.Fields)); err != nil {
				return err
			}
			unchanged = from == to
			c.Fields = moveTo(c.Fields, from, to)
		default:
			return notContainer(c)
		}
		return nil
	})
	if err != nil {
		return m.fail("move", tree, err)
	}
	if unchanged {
		return tree, nil
	}
	m.record(out)
	return out, nil
}

func (m *Mutator) inContainer(op string, parent Path, tree []*schema.Field, fn func(*schema.Field) error) ([]*schema.Field, error) {
	if err := parent.validate(); err != nil {
		return m.fail(op, tree, err)
	}
	out, err := rewriteFields(tree, parent, fn)
	if err != nil {
		return m.fail(op, tree, err)
	}
	m.record(out)
	return out, nil
}

// fail logs err and hands back the untouched tree. Protection refusals are
// expected and only produce a notice.
func (m *Mutator) fail(op string, tree []*schema.Field, err error) ([]*schema.Field, error) {
	if errors.Is(err, apperr.ErrProtected) {
		m.logger.Info("field operation refused", slog.String("op", op), slog.Any("error", err))
		m.notify(fmt.Sprintf("This field cannot be %s.", pastTense(op)))
		return tree, err
	}
	m.logger.Error("field operation failed", slog.String("op", op), slog.Any("error", err))
	return tree, err
}

// copyOf clones f under a fresh id and name. The copy has no label so the
// editor treats it as unnamed; its display label marks it as a copy.
func (m *Mutator) copyOf(f *schema.Field) *schema.Field {
	c := f.Clone()
	sfx := m.suffix()
	c.Name = f.Name + CopyMarker + sfx
	if f.ID != "" {
		c.ID = f.ID + CopyMarker + sfx
		reID(c, f.ID, c.ID)
	} else {
		c.ID = c.Name
	}
	base := f.Label
	if base == "" {
		base = f.DisplayLabel
	}
	if base == "" {
		base = value.Humanize(f.Name)
	}
	c.Label = ""
	c.DisplayLabel = base + " (Copy)"
	return c
}

// reID rewrites descendant ids derived from oldID so ids stay unique.
func reID(f *schema.Field, oldID, newID string) {
	rename := func(child *schema.Field) {
		if rest, ok := strings.CutPrefix(child.ID, oldID); ok && (strings.HasPrefix(rest, ".") || strings.HasPrefix(rest, "[")) {
			child.ID = newID + rest
		}
		reID(child, oldID, newID)
	}
	for _, child := range f.Fields {
		rename(child)
	}
	for _, it := range f.Items {
		if it.IsField() {
			rename(it.Field)
		}
	}
}

type opKind int

const (
	opDuplicate opKind = iota
	opDelete
)

func protect(op opKind, f *schema.Field) error {
	switch {
	case op == opDuplicate && (f.NoDuplication || f.IsContents()):
		return fmt.Errorf("fieldops: duplicate %s: %w", ident(f), apperr.ErrProtected)
	case op == opDelete && (f.NoDeletion || f.IsContents()):
		return fmt.Errorf("fieldops: delete %s: %w", ident(f), apperr.ErrProtected)
	}
	return nil
}

func typesMatch(target, incoming schema.Type) bool {
	if incoming == schema.TypeSelect || target == "" || incoming == "" {
		return true
	}
	return strings.EqualFold(string(target), string(incoming))
}

func locate(tree []*schema.Field, req *schema.Field) int {
	if req.ID != "" {
		if i := slices.IndexFunc(tree, func(f *schema.Field) bool { return f.ID == req.ID }); i >= 0 {
			return i
		}
	}
	if req.Name != "" {
		return slices.IndexFunc(tree, func(f *schema.Field) bool { return f.Name == req.Name })
	}
	return -1
}

func moveTo[T any](s []T, from, to int) []T {
	v := s[from]
	out := slices.Delete(slices.Clone(s), from, from+1)
	return slices.Insert(out, to, v)
}

func checkMove(from, to, n int) error {
	if from < 0 || from >= n {
		return outOfRange(from, n)
	}
	if to < 0 || to >= n {
		return outOfRange(to, n)
	}
	return nil
}

func outOfRange(index, n int) error {
	return fmt.Errorf("fieldops: index %d of %d: %w", index, n, apperr.ErrIndexOutOfRange)
}

func notContainer(f *schema.Field) error {
	return fmt.Errorf("fieldops: %s field %s has no children: %w", f.Type, ident(f), apperr.ErrInvalidPath)
}

func ident(f *schema.Field) string {
	if f.ID != "" {
		return fmt.Sprintf("%q", f.ID)
	}
	return fmt.Sprintf("%q", f.Name)
}

func pastTense(op string) string {
	switch op {
	case "duplicate":
		return "duplicated"
	case "delete":
		return "deleted"
	}
	return op + "d"
}
