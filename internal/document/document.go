// Package document reads and writes the content files edited through forms:
// Markdown with YAML frontmatter and JSON data files.
package document

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/frontedit/internal/value"
)

// Kind is the on-disk format of a document.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindJSON     Kind = "json"
)

// ContentsKey is the form key carrying a Markdown body. It is never written
// to frontmatter.
const ContentsKey = "contents"

// RootArrayKey holds the elements of a JSON document whose root is an array.
const RootArrayKey = "items"

// KindOf maps a file extension to a document kind.
func KindOf(path string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return KindMarkdown, true
	case ".json":
		return KindJSON, true
	}
	return "", false
}

// Document is a parsed content file.
type Document struct {
	Path  string
	Kind  Kind
	Title string

	// Markdown only.
	Frontmatter *value.Object
	Body        string

	// JSON only: the decoded root, an object or an array.
	Root any
}

// Data returns the object whose keys become form fields.
func (d *Document) Data() *value.Object {
	switch d.Kind {
	case KindMarkdown:
		if d.Frontmatter == nil {
			return value.NewObject()
		}
		return d.Frontmatter
	default:
		if obj, ok := d.Root.(*value.Object); ok {
			return obj
		}
		elems, _ := value.AsSlice(d.Root)
		if elems == nil {
			elems = []any{}
		}
		return value.ObjectOf(RootArrayKey, elems)
	}
}

// Parse decodes the content of the file at path.
func Parse(path string, data []byte) (*Document, error) {
	kind, ok := KindOf(path)
	if !ok {
		return nil, fmt.Errorf("document: unsupported file type %q", filepath.Ext(path))
	}
	doc := &Document{Path: path, Kind: kind}
	switch kind {
	case KindMarkdown:
		doc.Frontmatter, doc.Body = splitFrontmatter(data)
	case KindJSON:
		root, err := decodeJSON(data)
		if err != nil {
			return nil, fmt.Errorf("document: %s: %w", path, err)
		}
		if !value.IsObject(root) {
			if _, ok := value.AsSlice(root); !ok {
				return nil, fmt.Errorf("document: %s: root must be an object or an array", path)
			}
		}
		doc.Root = root
	}
	doc.Title = deriveTitle(doc)
	return doc, nil
}

// Render encodes obj, usually rebuilt from a submitted form, in the format of
// doc. For Markdown, the contents key becomes the body; without it the
// original body is kept.
func Render(doc *Document, obj *value.Object) ([]byte, error) {
	if obj == nil {
		return nil, fmt.Errorf("document: render %s: nil data", doc.Path)
	}
	switch doc.Kind {
	case KindMarkdown:
		return renderMarkdown(doc, obj)
	case KindJSON:
		var root any = restoreDates(doc.Root, obj)
		if _, isObj := doc.Root.(*value.Object); !isObj {
			items, _ := obj.Get(RootArrayKey)
			if items == nil {
				items = []any{}
			}
			root = restoreDates(doc.Root, items)
		}
		return encodeJSON(root)
	}
	return nil, fmt.Errorf("document: render %s: unknown kind %q", doc.Path, doc.Kind)
}

func renderMarkdown(doc *Document, obj *value.Object) ([]byte, error) {
	body := doc.Body
	fm := value.NewObject()
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == ContentsKey {
			if s, ok := pair.Value.(string); ok {
				body = s
			}
			continue
		}
		fm.Set(pair.Key, pair.Value)
	}
	fm = restoreDates(doc.Frontmatter, fm).(*value.Object)

	var buf bytes.Buffer
	if fm.Len() > 0 || doc.Frontmatter != nil {
		block, err := encodeYAML(fm)
		if err != nil {
			return nil, fmt.Errorf("document: render %s: %w", doc.Path, err)
		}
		buf.WriteString("---\n")
		buf.Write(block)
		buf.WriteString("---\n")
	}
	buf.WriteString(body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// deriveTitle returns the "title" value if present, otherwise the first H1
// heading of a Markdown body, otherwise the file name.
func deriveTitle(doc *Document) string {
	if t, ok := value.Get(doc.Data(), "title"); ok {
		if s, ok := t.(string); ok && s != "" {
			return s
		}
	}
	for _, line := range strings.Split(doc.Body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	base := filepath.Base(doc.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
