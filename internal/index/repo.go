package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/frontedit/internal/apperr"
)

// FileRow represents a row in the files table.
type FileRow struct {
	Path      string    `json:"path"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Fields    []string  `json:"fields"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertFile inserts or replaces a file row and its search entry within a
// transaction. body is the searchable text of the file.
func (db *DB) UpsertFile(f FileRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if f.Fields == nil {
		f.Fields = []string{}
	}
	fieldsJSON, _ := json.Marshal(f.Fields)

	_, err = tx.Exec(`
		INSERT INTO files (path, kind, title, checksum, fields, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			kind       = excluded.kind,
			title      = excluded.title,
			checksum   = excluded.checksum,
			fields     = excluded.fields,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, f.Path, f.Kind, f.Title, f.Checksum, string(fieldsJSON), body, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(tx, f.Path, f.Title, body, f.Fields); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteFile removes a file and its search entry.
func (db *DB) DeleteFile(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete file: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a file, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM files WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetFile returns one indexed file.
func (db *DB) GetFile(path string) (*FileRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, kind, title, checksum, fields, updated_at FROM files WHERE path = ?
	`, path)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: file %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListFiles returns indexed files ordered by path, optionally restricted to
// one kind, together with the total number of matches.
func (db *DB) ListFiles(kind string, limit, offset int) ([]FileRow, int, error) {
	if limit <= 0 {
		limit = 100
	}
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM files WHERE ? = '' OR kind = ?`, kind, kind).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count files: %w", err)
	}
	rows, err := db.conn.Query(`
		SELECT path, kind, title, checksum, fields, updated_at
		FROM files
		WHERE ? = '' OR kind = ?
		ORDER BY path
		LIMIT ? OFFSET ?
	`, kind, kind, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list files: %w", err)
	}
	defer rows.Close()

	var out []FileRow
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *f)
	}
	return out, total, rows.Err()
}

// AllChecksums returns the stored checksum of every indexed file.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM files`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*FileRow, error) {
	var (
		f      FileRow
		fields string
	)
	if err := s.Scan(&f.Path, &f.Kind, &f.Title, &f.Checksum, &fields, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fields), &f.Fields); err != nil {
		return nil, fmt.Errorf("index: decode fields of %s: %w", f.Path, err)
	}
	return &f, nil
}
