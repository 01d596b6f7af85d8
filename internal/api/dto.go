package api

import (
	"time"

	"github.com/starford/frontedit/internal/fieldops"
	"github.com/starford/frontedit/internal/formdata"
	"github.com/starford/frontedit/internal/index"
	"github.com/starford/frontedit/internal/schema"
	"github.com/starford/frontedit/internal/session"
)

// FileItem is one indexed content file in a list response.
type FileItem struct {
	Path      string    `json:"path" example:"posts/hello.md" validate:"required"`
	Kind      string    `json:"kind" example:"markdown" validate:"required"`
	Title     string    `json:"title" example:"Hello"`
	Checksum  string    `json:"checksum,omitempty" example:"abc123..."`
	Fields    []string  `json:"fields,omitempty" example:"title,date"`
	Snippet   string    `json:"snippet,omitempty" example:"...matched text..."`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// FileListResponse wraps file listings.
type FileListResponse struct {
	Files []FileItem `json:"files" validate:"required"`
	Total int        `json:"total" example:"42" validate:"required"`
}

// ProjectListResponse wraps the recent projects list.
type ProjectListResponse struct {
	Projects []index.Project `json:"projects" validate:"required"`
}

// OpenSessionRequest is the request body for opening a file.
type OpenSessionRequest struct {
	Path string `json:"path" example:"posts/hello.md" validate:"required"`
}

// UpdateFieldRequest replaces the value of one field. Path addresses a
// nested field; without it Field is matched against the top level by id,
// then by name.
type UpdateFieldRequest struct {
	Field schema.Field  `json:"field" validate:"required"`
	Path  fieldops.Path `json:"path,omitempty"`
}

// ElementRequest addresses one element of a container: the fields of an
// object, the items of an array, or the top level when Parent is empty.
type ElementRequest struct {
	Parent fieldops.Path `json:"parent,omitempty"`
	Index  int           `json:"index" example:"0"`
}

// MoveRequest reorders a container.
type MoveRequest struct {
	Parent fieldops.Path `json:"parent,omitempty"`
	From   int           `json:"from" example:"0"`
	To     int           `json:"to" example:"2"`
}

// SubmitRequest carries the form elements in document order. Without
// elements the session's current tree is submitted.
type SubmitRequest struct {
	Elements []formdata.Element `json:"elements,omitempty"`
}

// SessionView is the state of an editing session (aliased from the domain layer).
type SessionView = session.View

// SnapshotInfo describes one snapshot (aliased from the domain layer).
type SnapshotInfo = session.SnapshotInfo

// SnapshotListResponse wraps a session's snapshots.
type SnapshotListResponse struct {
	Snapshots []SnapshotInfo `json:"snapshots" validate:"required"`
}

// ValidationErrorResponse lists the problems that blocked a submit.
type ValidationErrorResponse struct {
	Error  string   `json:"error" example:"validation failed" validate:"required"`
	Errors []string `json:"errors" example:"metadata.count must be a number, got string" validate:"required"`
}
