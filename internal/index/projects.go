package index

import (
	"fmt"
	"time"
)

// MaxRecentProjects bounds the recently opened project list.
const MaxRecentProjects = 5

// Project is a recently opened project.
type Project struct {
	Root       string    `json:"root"`
	ContentDir string    `json:"content_dir"`
	DataDir    string    `json:"data_dir"`
	OpenedAt   time.Time `json:"opened_at"`
}

// TouchProject moves p to the front of the recent list, dropping the oldest
// entries beyond MaxRecentProjects.
func (db *DB) TouchProject(p Project) error {
	if p.OpenedAt.IsZero() {
		p.OpenedAt = time.Now().UTC()
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO projects (root, content_dir, data_dir, opened_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(root) DO UPDATE SET
			content_dir = excluded.content_dir,
			data_dir    = excluded.data_dir,
			opened_at   = excluded.opened_at
	`, p.Root, p.ContentDir, p.DataDir, p.OpenedAt)
	if err != nil {
		return fmt.Errorf("index: touch project: %w", err)
	}
	_, err = tx.Exec(`
		DELETE FROM projects WHERE root NOT IN (
			SELECT root FROM projects ORDER BY opened_at DESC LIMIT ?
		)
	`, MaxRecentProjects)
	if err != nil {
		return fmt.Errorf("index: trim projects: %w", err)
	}
	return tx.Commit()
}

// RecentProjects returns the recent list, most recent first.
func (db *DB) RecentProjects() ([]Project, error) {
	rows, err := db.conn.Query(`
		SELECT root, content_dir, data_dir, opened_at FROM projects ORDER BY opened_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("index: recent projects: %w", err)
	}
	defer rows.Close()

	out := []Project{}
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.Root, &p.ContentDir, &p.DataDir, &p.OpenedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
