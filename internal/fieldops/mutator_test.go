package fieldops

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/frontedit/internal/apperr"
	"github.com/starford/frontedit/internal/schema"
)

type recorder struct {
	trees [][]*schema.Field
	notes []string
}

func newMutator(rec *recorder) *Mutator {
	return New(
		func(tree []*schema.Field) { rec.trees = append(rec.trees, tree) },
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithNotify(func(msg string) { rec.notes = append(rec.notes, msg) }),
		WithSuffix(func() string { return "abc" }),
	)
}

func sampleTree() []*schema.Field {
	return []*schema.Field{
		{ID: "title", Name: "title", Type: schema.TypeText, Label: "Title", Value: "Hello"},
		{ID: "meta", Name: "meta", Type: schema.TypeObject, Label: "Meta", Fields: []*schema.Field{
			{ID: "meta.count", Name: "count", Type: schema.TypeNumber, Label: "Count", Value: 1.0},
			{ID: "meta.kind", Name: "kind", Type: schema.TypeSelect, Label: "Kind", Value: "a"},
		}},
		{ID: "sections", Name: "sections", Type: schema.TypeArray, Label: "Sections", Items: []schema.Item{
			{Scalar: "intro"},
			{Field: &schema.Field{ID: "sections[1]", Name: "item1", Type: schema.TypeObject, Label: "Item 2", Fields: []*schema.Field{
				{ID: "sections[1].heading", Name: "heading", Type: schema.TypeText, Label: "Heading", Value: "Part"},
			}}},
		}},
		schema.ContentsField("body"),
	}
}

func TestDuplicate_ProducesCopy(t *testing.T) {
	rec := &recorder{}
	m := newMutator(rec)
	tree := []*schema.Field{
		{ID: "field0", Name: "other", Type: schema.TypeText, Label: "Other"},
		{ID: "field1", Name: "title", Type: schema.TypeText, Label: "Title", Value: "Original"},
	}
	out, err := m.Duplicate(tree[1], 1, tree)
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	c := out[2]
	if !strings.Contains(c.ID, "field1_copy") || !strings.Contains(c.Name, "title_copy") {
		t.Errorf("id/name = %q/%q", c.ID, c.Name)
	}
	if c.Value != "Original" || c.Label != "" || !strings.Contains(c.DisplayLabel, "Title (Copy)") {
		t.Errorf("copy = %+v", c)
	}
	if len(tree) != 2 || tree[1].Label != "Title" {
		t.Errorf("input tree mutated")
	}
	if len(rec.trees) != 1 {
		t.Errorf("records = %d, want 1", len(rec.trees))
	}
}

func TestDuplicate_RenamesNestedIDs(t *testing.T) {
	rec := &recorder{}
	m := newMutator(rec)
	out, err := m.DuplicateIn(Path{{In: Root, Index: 2}}, 1, sampleTree())
	if err != nil {
		t.Fatalf("DuplicateIn: %v", err)
	}
	items := out[2].Items
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	dup := items[2].Field
	if dup.ID != "sections[1]_copy_abc" || dup.Fields[0].ID != "sections[1]_copy_abc.heading" {
		t.Errorf("ids = %q, %q", dup.ID, dup.Fields[0].ID)
	}
	if dup.Fields[0].Name != "heading" {
		t.Errorf("child name changed to %q", dup.Fields[0].Name)
	}
}

func TestDuplicateIn_Scalar(t *testing.T) {
	rec := &recorder{}
	m := newMutator(rec)
	out, err := m.DuplicateIn(Path{{Index: 2}}, 0, sampleTree())
	if err != nil {
		t.Fatalf("DuplicateIn: %v", err)
	}
	if got := out[2].Items[1].Scalar; got != "intro" {
		t.Errorf("duplicated scalar = %v", got)
	}
}

func TestDelete_RemovesExactlyOne(t *testing.T) {
	rec := &recorder{}
	m := newMutator(rec)
	f0 := &schema.Field{ID: "f0", Name: "f0", Type: schema.TypeText}
	f1 := &schema.Field{ID: "f1", Name: "f1", Type: schema.TypeText}
	f2 := &schema.Field{ID: "f2", Name: "f2", Type: schema.TypeText}
	tree := []*schema.Field{f0, f1, f2}
	out, err := m.Delete(f1, 1, tree)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(out) != 2 || out[0] != f0 || out[1] != f2 {
		t.Errorf("out = %v", out)
	}
	if len(tree) != 3 || tree[1] != f1 {
		t.Errorf("input tree mutated")
	}
	if len(rec.trees) != 1 {
		t.Errorf("records = %d, want 1", len(rec.trees))
	}
}

func TestProtectedFieldRejected(t *testing.T) {
	tree := sampleTree()
	contents := tree[3]
	for name, op := range map[string]func(*Mutator) ([]*schema.Field, error){
		"duplicate": func(m *Mutator) ([]*schema.Field, error) { return m.Duplicate(contents, 3, tree) },
		"delete":    func(m *Mutator) ([]*schema.Field, error) { return m.Delete(contents, 3, tree) },
		"flag only": func(m *Mutator) ([]*schema.Field, error) {
			return m.Delete(&schema.Field{ID: "x", NoDeletion: true}, 0, tree)
		},
	} {
		t.Run(name, func(t *testing.T) {
			rec := &recorder{}
			out, err := op(newMutator(rec))
			if !errors.Is(err, apperr.ErrProtected) {
				t.Fatalf("err = %v, want ErrProtected", err)
			}
			if &out[0] != &tree[0] {
				t.Error("tree reference changed")
			}
			if len(rec.trees) != 0 {
				t.Errorf("records = %d, want 0", len(rec.trees))
			}
			if len(rec.notes) != 1 {
				t.Errorf("notes = %v", rec.notes)
			}
		})
	}
}

func TestOutOfRange(t *testing.T) {
	rec := &recorder{}
	m := newMutator(rec)
	tree := sampleTree()
	cases := map[string]func() ([]*schema.Field, error){
		"duplicate":    func() ([]*schema.Field, error) { return m.Duplicate(nil, 9, tree) },
		"delete":       func() ([]*schema.Field, error) { return m.Delete(nil, -1, tree) },
		"delete in":    func() ([]*schema.Field, error) { return m.DeleteIn(Path{{Index: 1}}, 5, tree) },
		"move":         func() ([]*schema.Field, error) { return m.Move(nil, 0, 4, tree) },
		"update path":  func() ([]*schema.Field, error) { return m.Update(&schema.Field{ID: "x"}, Path{{Index: 7}}, tree) },
		"nested items": func() ([]*schema.Field, error) { return m.DuplicateIn(Path{{Index: 2}}, 2, tree) },
	}
	for name, op := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := op()
			if !errors.Is(err, apperr.ErrIndexOutOfRange) {
				t.Fatalf("err = %v, want ErrIndexOutOfRange", err)
			}
			if len(out) != len(tree) || out[0] != tree[0] {
				t.Error("tree changed")
			}
		})
	}
	if len(rec.trees) != 0 {
		t.Errorf("records = %d, want 0", len(rec.trees))
	}
}

func TestUpdate_ByIDAndName(t *testing.T) {
	rec := &recorder{}
	m := newMutator(rec)
	tree := sampleTree()

	out, err := m.Update(&schema.Field{ID: "title", Type: "TEXT", Value: "Bye", Label: "ignored"}, nil, tree)
	if err != nil {
		t.Fatalf("Update by id: %v", err)
	}
	if out[0].Value != "Bye" || out[0].Label != "Title" {
		t.Errorf("updated = %+v", out[0])
	}
	if tree[0].Value != "Hello" {
		t.Error("input tree mutated")
	}
	if out[1] != tree[1] || out[2] != tree[2] {
		t.Error("untouched subtrees should be shared")
	}

	out, err = m.Update(&schema.Field{Name: "title", Value: "Again", DisplayLabel: "Heading"}, nil, out)
	if err != nil {
		t.Fatalf("Update by name: %v", err)
	}
	if out[0].Value != "Again" || out[0].DisplayLabel != "Heading" {
		t.Errorf("updated = %+v", out[0])
	}
	if len(rec.trees) != 2 {
		t.Errorf("records = %d, want 2", len(rec.trees))
	}
}

func TestUpdate_Path(t *testing.T) {
	rec := &recorder{}
	m := newMutator(rec)
	tree := sampleTree()

	out, err := m.Update(&schema.Field{ID: "sections[1].heading", Type: schema.TypeText, Value: "New"},
		Path{{In: Root, Index: 2}, {In: Items, Index: 1}, {In: Fields, Index: 0}}, tree)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := out[2].Items[1].Field.Fields[0].Value; got != "New" {
		t.Errorf("nested value = %v", got)
	}
	if got := tree[2].Items[1].Field.Fields[0].Value; got != "Part" {
		t.Errorf("input mutated: %v", got)
	}
	if out[1] != tree[1] {
		t.Error("sibling subtree should be shared")
	}

	out, err = m.Update(&schema.Field{ID: "sections[0]", Value: "opening"},
		Path{{Index: 2}, {In: Items, Index: 0}}, out)
	if err != nil {
		t.Fatalf("Update scalar: %v", err)
	}
	if got := out[2].Items[0].Scalar; got != "opening" {
		t.Errorf("scalar = %v", got)
	}
}

func TestUpdate_Rejections(t *testing.T) {
	tree := sampleTree()
	cases := []struct {
		name string
		req  *schema.Field
		path Path
		want error
	}{
		{"no identifier", &schema.Field{Value: "x"}, nil, apperr.ErrMissingIdentifier},
		{"type mismatch", &schema.Field{ID: "title", Type: schema.TypeNumber, Value: 3.0}, nil, apperr.ErrTypeMismatch},
		{"unknown", &schema.Field{ID: "nope"}, nil, apperr.ErrFieldNotFound},
		{"bad step", &schema.Field{ID: "x"}, Path{{Index: 1}, {In: Root, Index: 0}}, apperr.ErrInvalidPath},
		{"into leaf", &schema.Field{ID: "x"}, Path{{Index: 0}, {In: Fields, Index: 0}}, apperr.ErrIndexOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			out, err := newMutator(rec).Update(tc.req, tc.path, tree)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if out[0] != tree[0] || len(rec.trees) != 0 {
				t.Error("rejected update changed state")
			}
		})
	}
}

func TestUpdate_SelectAcceptsAnyType(t *testing.T) {
	rec := &recorder{}
	out, err := newMutator(rec).Update(&schema.Field{ID: "title", Type: schema.TypeSelect, Value: "b"}, nil, sampleTree())
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if out[0].Value != "b" {
		t.Errorf("value = %v", out[0].Value)
	}
}

func TestMove(t *testing.T) {
	rec := &recorder{}
	m := newMutator(rec)
	tree := sampleTree()

	out, err := m.Move(nil, 0, 2, tree)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	names := func(fs []*schema.Field) []string {
		var s []string
		for _, f := range fs {
			s = append(s, f.Name)
		}
		return s
	}
	if diff := cmp.Diff([]string{"meta", "sections", "title", "contents"}, names(out)); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}

	out, err = m.Move(Path{{Index: 1}}, 1, 0, tree)
	if err != nil {
		t.Fatalf("Move nested: %v", err)
	}
	if diff := cmp.Diff([]string{"kind", "count"}, names(out[1].Fields)); diff != "" {
		t.Errorf("nested order (-want +got):\n%s", diff)
	}

	same, err := m.Move(nil, 1, 1, tree)
	if err != nil || &same[0] != &tree[0] {
		t.Errorf("self move should return the input tree, err=%v", err)
	}
	if len(rec.trees) != 2 {
		t.Errorf("records = %d, want 2", len(rec.trees))
	}
}

func TestContainerOpsOnLeaf(t *testing.T) {
	rec := &recorder{}
	_, err := newMutator(rec).DeleteIn(Path{{Index: 0}}, 0, sampleTree())
	if !errors.Is(err, apperr.ErrInvalidPath) {
		t.Errorf("err = %v, want ErrInvalidPath", err)
	}
}

func TestPathString(t *testing.T) {
	p := Path{{In: Root, Index: 2}, {In: Items, Index: 1}, {In: Fields, Index: 0}}
	if got := p.String(); got != "2.items[1].fields[0]" {
		t.Errorf("String() = %q", got)
	}
}

func TestUniqueSuffix(t *testing.T) {
	a, b := UniqueSuffix(), UniqueSuffix()
	if a == b || len(a) != 32 {
		t.Errorf("suffixes %q %q", a, b)
	}
}
