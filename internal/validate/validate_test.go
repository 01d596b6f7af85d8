package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/frontedit/internal/value"
)

func TestValidate_MissingFormData(t *testing.T) {
	if diff := cmp.Diff([]string{MissingFormData}, Validate(nil, nil)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	var o *value.Object
	if got := Validate(o, &Schema{}); len(got) != 1 || got[0] != MissingFormData {
		t.Errorf("typed nil = %v", got)
	}
}

func TestValidate_NestedNumber(t *testing.T) {
	data := value.ObjectOf(
		"title", "Test",
		"metadata", value.ObjectOf("count", "not-a-number"),
	)
	s := &Schema{Properties: map[string]*Property{
		"metadata": {Properties: map[string]*Property{
			"count": {Type: TypeNumber},
		}},
	}}
	errs := Validate(data, s)
	if len(errs) != 1 || !strings.Contains(errs[0], "metadata.count") {
		t.Errorf("errs = %v", errs)
	}
}

func TestValidate_Types(t *testing.T) {
	s := &Schema{Properties: map[string]*Property{
		"count":     {Type: TypeNumber},
		"draft":     {Type: TypeBoolean},
		"published": {Type: TypeDate},
		"updated":   {Type: TypeDate},
		"tags":      {Type: TypeArray},
		"skipped":   {Type: TypeNumber},
	}}
	good := value.ObjectOf(
		"count", 3.0,
		"draft", false,
		"published", "2024-03-01T00:00:00.000Z",
		"updated", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		"tags", []any{"a"},
		"skipped", "",
	)
	if errs := Validate(good, s); len(errs) != 0 {
		t.Errorf("valid data reported %v", errs)
	}

	bad := map[string]any{
		"count":     "3",
		"draft":     "yes",
		"published": "someday",
		"updated":   time.Time{},
		"tags":      "a,b",
	}
	errs := Validate(bad, s)
	want := []string{"count", "draft", "published", "tags", "updated"}
	if len(errs) != len(want) {
		t.Fatalf("errs = %v", errs)
	}
	for i, path := range want {
		if !strings.HasPrefix(errs[i], path+" ") {
			t.Errorf("errs[%d] = %q, want path %s", i, errs[i], path)
		}
	}
}

func TestValidate_ArrayItems(t *testing.T) {
	s := &Schema{Properties: map[string]*Property{
		"sections": {Type: TypeArray, Items: &Property{Properties: map[string]*Property{
			"weight": {Type: TypeNumber},
		}}},
	}}
	data := value.ObjectOf("sections", []any{
		value.ObjectOf("weight", 1.0),
		value.ObjectOf("weight", "heavy"),
		"loose",
	})
	errs := Validate(data, s)
	if len(errs) != 2 {
		t.Fatalf("errs = %v", errs)
	}
	if !strings.HasPrefix(errs[0], "sections[1].weight ") || !strings.HasPrefix(errs[1], "sections[2] ") {
		t.Errorf("errs = %v", errs)
	}
}

func TestValidate_ObjectExpected(t *testing.T) {
	s := &Schema{Properties: map[string]*Property{
		"meta": {Properties: map[string]*Property{"n": {Type: TypeNumber}}},
	}}
	errs := Validate(value.ObjectOf("meta", "flat"), s)
	if len(errs) != 1 || !strings.Contains(errs[0], "must be an object") {
		t.Errorf("errs = %v", errs)
	}
}

func TestValidate_NoSchema(t *testing.T) {
	if errs := Validate(value.ObjectOf("a", 1), nil); len(errs) != 0 {
		t.Errorf("errs = %v", errs)
	}
}

func TestValidate_PanicBecomesSingleError(t *testing.T) {
	s := &Schema{Properties: map[string]*Property{"n": {Type: TypeNumber}}}
	get := func(any, string) (any, bool) { panic("property access failed") }
	errs := validateWith(value.ObjectOf("n", 1.0), s, get)
	if diff := cmp.Diff([]string{"Invalid form structure: property access failed"}, errs); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte(`
properties:
  metadata:
    properties:
      count: {type: number}
  sections:
    type: array
    items:
      properties:
        title: {type: date}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Properties["metadata"].Properties["count"].Type != TypeNumber {
		t.Errorf("metadata = %+v", s.Properties["metadata"])
	}
	if s.Properties["sections"].Items.Properties["title"].Type != TypeDate {
		t.Errorf("sections = %+v", s.Properties["sections"])
	}

	js, err := Parse([]byte(`{"properties": {"draft": {"type": "boolean"}}}`))
	if err != nil || js.Properties["draft"].Type != TypeBoolean {
		t.Errorf("json schema = %+v, %v", js, err)
	}
}

func TestStrict(t *testing.T) {
	st, err := CompileStrictBytes("post.json", []byte(`{
		"type": "object",
		"required": ["title"],
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"sections": {"type": "array", "items": {"type": "object", "properties": {"weight": {"type": "number"}}}}
		}
	}`))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if errs := st.Validate(value.ObjectOf("title", "ok", "sections", []any{value.ObjectOf("weight", 2.0)})); len(errs) != 0 {
		t.Errorf("valid doc reported %v", errs)
	}
	errs := st.Validate(value.ObjectOf("sections", []any{value.ObjectOf("weight", "x")}))
	if len(errs) != 2 {
		t.Fatalf("errs = %v", errs)
	}
	joined := strings.Join(errs, "\n")
	if !strings.Contains(joined, "sections[0].weight: ") || !strings.Contains(joined, "(root): ") {
		t.Errorf("errs = %v", errs)
	}
}

func TestPointerPath(t *testing.T) {
	cases := map[string]string{
		"":                  "(root)",
		"/title":            "title",
		"/sections/0/title": "sections[0].title",
		"/a~1b/2":           "a/b[2]",
	}
	for in, want := range cases {
		if got := pointerPath(in); got != want {
			t.Errorf("pointerPath(%q) = %q, want %q", in, got, want)
		}
	}
}
