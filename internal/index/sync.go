package index

import (
	"errors"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/frontedit/internal/apperr"
	"github.com/starford/frontedit/internal/document"
	"github.com/starford/frontedit/internal/storage"
	"github.com/starford/frontedit/internal/value"
)

// Scope lists the project directories whose files are indexed. An empty
// Scope, or an empty entry, covers the whole project.
type Scope []string

// Contains reports whether the provider path rel lies inside the scope.
func (s Scope) Contains(rel string) bool {
	if len(s) == 0 {
		return true
	}
	rel = path.Clean(rel)
	for _, dir := range s {
		dir = strings.Trim(path.Clean("/"+dir), "/")
		if dir == "" || rel == dir || strings.HasPrefix(rel, dir+"/") {
			return true
		}
	}
	return false
}

func (s Scope) dirs() []string {
	if len(s) == 0 {
		return []string{""}
	}
	seen := make(map[string]struct{}, len(s))
	var out []string
	for _, d := range s {
		d = strings.Trim(path.Clean("/"+d), "/")
		if d == "" {
			return []string{""}
		}
		if _, dup := seen[d]; !dup {
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

// Sync walks the scoped directories and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, scope Scope, logger *slog.Logger) error {
	var metas []storage.FileMeta
	for _, dir := range scope.dirs() {
		m, err := store.List(dir)
		if errors.Is(err, apperr.ErrNotFound) {
			logger.Warn("sync: directory missing", slog.String("dir", dir))
			continue
		}
		if err != nil {
			return err
		}
		metas = append(metas, m...)
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteFile(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile parses data and upserts it into the DB.
func indexFile(db *DB, rel string, data []byte) error {
	doc, err := document.Parse(rel, data)
	if err != nil {
		return err
	}
	obj := doc.Data()
	row := FileRow{
		Path:      rel,
		Kind:      string(doc.Kind),
		Title:     doc.Title,
		Checksum:  storage.Checksum(data),
		Fields:    value.Keys(obj),
		UpdatedAt: time.Now().UTC(),
	}
	return db.UpsertFile(row, searchText(doc.Body, obj))
}

// searchText joins the body and every string leaf of obj.
func searchText(body string, obj any) string {
	var b strings.Builder
	b.WriteString(body)
	var walk func(v any)
	walk = func(v any) {
		switch {
		case value.IsObject(v):
			value.Each(v, func(_ string, e any) bool {
				walk(e)
				return true
			})
		default:
			if elems, ok := value.AsSlice(v); ok {
				for _, e := range elems {
					walk(e)
				}
				return
			}
			if s, ok := v.(string); ok && s != "" {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(s)
			}
		}
	}
	walk(obj)
	return b.String()
}
