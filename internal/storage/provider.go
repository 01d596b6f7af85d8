// Package storage defines the project file-system abstraction.
package storage

import (
	"time"

	"github.com/starford/frontedit/internal/document"
)

// FileMeta describes one editable content file.
type FileMeta struct {
	Path      string        `json:"path"`
	Kind      document.Kind `json:"kind"`
	Checksum  string        `json:"checksum"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Provider is the interface for project file operations. Paths are relative
// to the project root.
type Provider interface {
	// List returns metadata for every Markdown and JSON file under dir.
	List(dir string) ([]FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
}
