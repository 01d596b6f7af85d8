package api

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/frontedit/internal/index"
	"github.com/starford/frontedit/internal/session"
)

// Service coordinates the file index, the recent-projects list and the
// editing sessions for the API layer.
type Service struct {
	db       index.FileIndex
	sessions *session.Manager
	project  index.Project
}

// NewService creates a new API service. project describes the project the
// server was started on; it is recorded in the recent list on request.
func NewService(db index.FileIndex, sessions *session.Manager, project index.Project) *Service {
	return &Service{db: db, sessions: sessions, project: project}
}

// ListFiles returns indexed files, filtered by a search query when q is set.
func (s *Service) ListFiles(_ context.Context, q, kind string, limit, offset int) ([]FileItem, int, error) {
	if q != "" {
		hits, err := s.db.Search(q, limit)
		if err != nil {
			return nil, 0, err
		}
		items := make([]FileItem, 0, len(hits))
		for _, h := range hits {
			if kind != "" && h.Kind != kind {
				continue
			}
			items = append(items, FileItem{Path: h.Path, Kind: h.Kind, Title: h.Title, Snippet: h.Snippet})
		}
		return items, len(items), nil
	}
	rows, total, err := s.db.ListFiles(kind, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]FileItem, len(rows))
	for i, r := range rows {
		items[i] = FileItem{
			Path:      r.Path,
			Kind:      r.Kind,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Fields:    nonNilSlice(r.Fields),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// RecentProjects returns the most recently opened projects.
func (s *Service) RecentProjects(_ context.Context) ([]index.Project, error) {
	list, err := s.db.RecentProjects()
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []index.Project{}
	}
	return list, nil
}

// TouchProject records p, or the served project when p has no root, as
// opened now.
func (s *Service) TouchProject(_ context.Context, p index.Project) (index.Project, error) {
	if p.Root == "" {
		p = s.project
	}
	if p.Root == "" {
		return index.Project{}, fmt.Errorf("api: project root is required")
	}
	p.OpenedAt = time.Now().UTC()
	if err := s.db.TouchProject(p); err != nil {
		return index.Project{}, err
	}
	return p, nil
}

// Sessions returns the session manager.
func (s *Service) Sessions() *session.Manager { return s.sessions }

// Ready reports whether the index is reachable.
func (s *Service) Ready(_ context.Context) error {
	return s.db.Ping()
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
