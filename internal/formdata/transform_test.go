package formdata

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/frontedit/internal/document"
	"github.com/starford/frontedit/internal/schema"
	"github.com/starford/frontedit/internal/validate"
	"github.com/starford/frontedit/internal/value"
)

// plain converts a rebuilt object into map form for comparisons.
func plain(t *testing.T, obj *value.Object) any {
	t.Helper()
	if obj == nil {
		t.Fatal("transform returned nil")
	}
	return value.ToPlain(obj)
}

func TestTransform_RootValues(t *testing.T) {
	got := Transform([]Element{
		{Name: "Title", Value: "  Hello  "},
		{Name: "", Value: "skipped"},
		{Name: "Page Count", InputType: "number", Value: "12"},
		{Name: "draft", InputType: "checkbox", Checked: true},
	})
	want := map[string]any{"title": "Hello", "pageCount": 12.0, "draft": true}
	if diff := cmp.Diff(want, plain(t, got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestTransform_NestedObjects(t *testing.T) {
	got := Transform([]Element{
		{Name: "title", Value: "Post"},
		{Flags: ObjectOpen, Label: "Author Info"},
		{Name: "name", Value: "Ann"},
		{Flags: ObjectOpen, Label: "social"},
		{Name: "handle", Value: "@ann"},
		{Flags: Last},
		{Flags: Last},
		{Name: "footer", Value: "bye"},
	})
	want := map[string]any{
		"title": "Post",
		"authorInfo": map[string]any{
			"name":   "Ann",
			"social": map[string]any{"handle": "@ann"},
		},
		"footer": "bye",
	}
	if diff := cmp.Diff(want, plain(t, got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if keys := value.Keys(got); len(keys) != 3 || keys[0] != "title" || keys[2] != "footer" {
		t.Errorf("key order = %v", keys)
	}
}

func TestTransform_ArrayConversion(t *testing.T) {
	got := Transform([]Element{
		{Flags: ArrayOpen, Label: "sections"},
		{Name: "0", Value: "intro"},
		{Flags: ObjectOpen, Label: "item1"},
		{Name: "heading", Value: "Part"},
		{Flags: Last},
		{Flags: ObjectOpen, Label: "heroblock"},
		{Name: "image", Value: "a.png"},
		{Flags: Last},
		{Flags: ArrayLast},
	})
	want := map[string]any{
		"sections": []any{
			"intro",
			map[string]any{"heading": "Part"},
			map[string]any{"heroblock": map[string]any{"image": "a.png"}},
		},
	}
	if diff := cmp.Diff(want, plain(t, got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestTransform_ListsAndCoercion(t *testing.T) {
	got := Transform([]Element{
		{Flags: List, Name: "tags", Items: []ListItem{{Value: " go "}, {Value: "yaml"}}},
		{Flags: List, Name: "scores", Items: []ListItem{{Value: "1", DataType: "number"}, {Value: "2.5", DataType: "number"}}},
		{Flags: List, Name: "flags", Items: []ListItem{{Value: "TRUE", DataType: "boolean"}, {Value: "no", DataType: "boolean"}}},
		{Flags: ObjectOpen, Label: "meta"},
		{Flags: Numeric, Name: "weight", Value: ""},
		{Flags: Numeric, Name: "bad", Value: "abc"},
		{Flags: Date, Name: "published", Value: "2024-03-01"},
		{InputType: "date", Name: "updated", Value: ""},
		{Flags: Last},
	})
	want := map[string]any{
		"tags":   []any{"go", "yaml"},
		"scores": []any{1.0, 2.5},
		"flags":  []any{true, false},
		"meta": map[string]any{
			"weight":    "",
			"bad":       "abc",
			"published": "2024-03-01T00:00:00.000Z",
			"updated":   "",
		},
	}
	if diff := cmp.Diff(want, plain(t, got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestTransform_ListLikeArrayUnwraps(t *testing.T) {
	got := Transform([]Element{
		{Flags: ArrayOpen, Label: "keywords"},
		{Flags: List, Items: []ListItem{{Value: "a"}, {Value: "b"}}},
		{Flags: ArrayLast},
	})
	want := map[string]any{"keywords": []any{"a", "b"}}
	if diff := cmp.Diff(want, plain(t, got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestTransform_UnbalancedReturnsNil(t *testing.T) {
	if got := Transform([]Element{{Name: "a", Value: "x"}, {Flags: Last}}); got != nil {
		t.Errorf("expected nil for unbalanced end, got %v", value.ToPlain(got))
	}
	if _, err := Build([]Element{{Flags: ArrayLast}}); err == nil {
		t.Error("Build should report unbalanced array end")
	}
}

func TestTransform_Empty(t *testing.T) {
	got := Transform(nil)
	if got == nil || got.Len() != 0 {
		t.Errorf("empty input should give empty object")
	}
}

func TestElementJSONClasses(t *testing.T) {
	var els []Element
	src := `[{"classes":["is-object-open"],"label":"Meta"},{"classes":"is-number","name":"n","value":"3"},{"classes":["is-last"]}]`
	if err := json.Unmarshal([]byte(src), &els); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !els[0].Flags.Has(ObjectOpen) || !els[1].Flags.Has(Numeric) || !els[2].Flags.Has(Last) {
		t.Errorf("flags = %v %v %v", els[0].Flags, els[1].Flags, els[2].Flags)
	}
	out, err := json.Marshal(Element{Flags: ArrayOpen | Numeric})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"classes":["is-array-open","is-number"]}` {
		t.Errorf("marshal = %s", out)
	}
	got := plain(t, Transform(els))
	if diff := cmp.Diff(map[string]any{"meta": map[string]any{"n": 3.0}}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip_InferFlattenTransform(t *testing.T) {
	data := value.ObjectOf(
		"title", "Hello",
		"summary", "two\nlines",
		"count", 3.0,
		"draft", true,
		"tags", []any{"a", "b"},
		"scores", []any{1.0, 2.0},
		"author", value.ObjectOf(
			"name", "Ann",
			"links", value.ObjectOf("site", "https://example.com"),
		),
		"sections", []any{
			"intro",
			value.ObjectOf("heading", "Part 1", "weight", 2.0),
			value.ObjectOf("heading", "Part 2", "weight", 4.0),
		},
	)
	res, err := schema.Infer(data, nil)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	got := Transform(Flatten(res.Fields))
	if diff := cmp.Diff(value.ToPlain(data), plain(t, got)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(value.Keys(data), value.Keys(got)); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatten_ContentsField(t *testing.T) {
	els := Flatten([]*schema.Field{schema.ContentsField("# Body\n")})
	if len(els) != 1 || els[0].Name != "contents" || els[0].Value != "# Body\n" {
		t.Fatalf("elements = %+v", els)
	}
	got := plain(t, Transform(els))
	if diff := cmp.Diff(map[string]any{"contents": "# Body"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip_NestedArrays(t *testing.T) {
	data := value.ObjectOf(
		"matrix", []any{[]any{1.0, 2.0}, []any{3.0, 4.0}},
		"mixed", []any{[]any{1.0, "a", true}, []any{}},
		"deep", []any{[]any{[]any{"x", "y"}}},
		"records", []any{[]any{value.ObjectOf("k", "v", "n", 2.0)}},
	)
	res, err := schema.Infer(data, nil)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	got := Transform(Flatten(res.Fields))
	if diff := cmp.Diff(value.ToPlain(data), plain(t, got)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip_JSONDocumentUnchanged(t *testing.T) {
	src := `{"matrix": [[1, 2], [3, 4]], "name": "grid", "rows": [["a", "b"], [true, false]]}`
	doc, err := document.Parse("d.json", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	res, err := schema.Infer(doc.Data(), nil)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	out, err := document.Render(doc, Transform(Flatten(res.Fields)))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	var want, got any
	if err := json.Unmarshal([]byte(src), &want); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("rendered invalid JSON %s: %v", out, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("saved document changed (-want +got):\n%s", diff)
	}
}

func TestTransform_NonFiniteNumbersKeepText(t *testing.T) {
	got := Transform([]Element{
		{Flags: Numeric, Name: "count", Value: "NaN"},
		{InputType: "number", Name: "ratio", Value: " Inf "},
		{Flags: Numeric, Name: "huge", Value: "-Infinity"},
		{Flags: List, Name: "scores", Items: []ListItem{{Value: "nan", DataType: "number"}, {Value: "2", DataType: "number"}}},
	})
	want := map[string]any{
		"count":  "NaN",
		"ratio":  "Inf",
		"huge":   "-Infinity",
		"scores": []any{"nan", 2.0},
	}
	if diff := cmp.Diff(want, plain(t, got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	errs := validate.Validate(got, &validate.Schema{Properties: map[string]*validate.Property{
		"count": {Type: validate.TypeNumber},
	}})
	if len(errs) != 1 || !strings.HasPrefix(errs[0], "count must be a number") {
		t.Errorf("validation errors = %v", errs)
	}
	doc, err := document.Parse("d.json", []byte(`{"count": 1}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := document.Render(doc, got); err != nil {
		t.Errorf("Render: %v", err)
	}
}
