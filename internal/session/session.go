package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/frontedit/internal/apperr"
	"github.com/starford/frontedit/internal/document"
	"github.com/starford/frontedit/internal/fieldops"
	"github.com/starford/frontedit/internal/formdata"
	"github.com/starford/frontedit/internal/history"
	"github.com/starford/frontedit/internal/notice"
	"github.com/starford/frontedit/internal/schema"
	"github.com/starford/frontedit/internal/validate"
)

// Session is the editing state of one open file. All methods are safe for
// concurrent use.
type Session struct {
	id       string
	path     string
	openedAt time.Time
	m        *Manager
	rules    Rules

	mu        sync.Mutex
	doc       *document.Document
	tree      []*schema.Field
	history   *history.History
	commits   *history.Coalescer
	mutator   *fieldops.Mutator
	transform *formdata.Transformer
}

// View is the client-facing state of a session.
type View struct {
	ID        string          `json:"id"`
	Path      string          `json:"path"`
	Kind      document.Kind   `json:"kind"`
	Title     string          `json:"title"`
	Fields    []*schema.Field `json:"fields"`
	CanUndo   bool            `json:"can_undo"`
	CanRedo   bool            `json:"can_redo"`
	Position  int             `json:"position"`
	Entries   int             `json:"entries"`
	RedoLevel int             `json:"redo_level"`
	Snapshots []SnapshotInfo  `json:"snapshots"`
}

// SnapshotInfo describes a snapshot without its serialized state.
type SnapshotInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
}

// SubmitResult is the outcome of Submit.
type SubmitResult struct {
	Saved  bool     `json:"saved"`
	Errors []string `json:"errors,omitempty"`
}

func newSession(m *Manager, id string, doc *document.Document, rules Rules, tree []*schema.Field) (*Session, error) {
	logger := m.logger.With(slog.String("session", id))
	s := &Session{
		id:        id,
		path:      doc.Path,
		openedAt:  m.now(),
		m:         m,
		rules:     rules,
		doc:       doc,
		tree:      tree,
		history:   history.New(history.WithLogger(logger), history.WithMaxSnapshots(m.maxSnapshots)),
		transform: formdata.NewTransformer(logger),
	}
	s.commits = history.NewCoalescer(s.history.Push)
	s.mutator = fieldops.New(s.commits.Schedule,
		fieldops.WithLogger(logger),
		fieldops.WithNotify(func(msg string) { m.notices.Show(notice.KindWarning, msg) }),
	)
	if err := s.history.Load(tree); err != nil {
		return nil, fmt.Errorf("session: load history: %w", err)
	}
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Path returns the provider path of the edited file.
func (s *Session) Path() string { return s.path }

// View returns the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (s *Session) view() View {
	return View{
		ID:        s.id,
		Path:      s.path,
		Kind:      s.doc.Kind,
		Title:     s.doc.Title,
		Fields:    s.tree,
		CanUndo:   s.history.CanUndo(),
		CanRedo:   s.history.CanRedo(),
		Position:  s.history.Position(),
		Entries:   s.history.Len(),
		RedoLevel: s.history.RedoLevel(),
		Snapshots: s.snapshots(),
	}
}

// Tree returns the current field tree. The tree must not be modified.
func (s *Session) Tree() []*schema.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree
}

// Update replaces the value of the field addressed by path, or of the
// top-level field matching req when path is empty.
func (s *Session) Update(req *schema.Field, path fieldops.Path) (View, error) {
	return s.edit(func(tree []*schema.Field) ([]*schema.Field, error) {
		return s.mutator.Update(req, path, tree)
	})
}

// Duplicate inserts a copy of element index of the container at parent,
// or of the top-level field index when parent is empty.
func (s *Session) Duplicate(parent fieldops.Path, index int) (View, error) {
	return s.edit(func(tree []*schema.Field) ([]*schema.Field, error) {
		return s.mutator.DuplicateIn(parent, index, tree)
	})
}

// Delete removes element index of the container at parent.
func (s *Session) Delete(parent fieldops.Path, index int) (View, error) {
	return s.edit(func(tree []*schema.Field) ([]*schema.Field, error) {
		return s.mutator.DeleteIn(parent, index, tree)
	})
}

// Move reorders the container at parent.
func (s *Session) Move(parent fieldops.Path, from, to int) (View, error) {
	return s.edit(func(tree []*schema.Field) ([]*schema.Field, error) {
		return s.mutator.Move(parent, from, to, tree)
	})
}

// edit applies op and commits the result as one history entry.
func (s *Session) edit(op func([]*schema.Field) ([]*schema.Field, error)) (View, error) {
	s.mu.Lock()
	tree, err := op(s.tree)
	if err != nil {
		s.commits.Discard()
		v := s.view()
		s.mu.Unlock()
		return v, err
	}
	s.tree = tree
	committed, err := s.commits.Settle()
	v := s.view()
	s.mu.Unlock()
	if err != nil {
		return v, fmt.Errorf("session: commit: %w", err)
	}
	if committed {
		s.changed(v)
	}
	return v, nil
}

// Undo steps back one history entry.
func (s *Session) Undo() (View, error) {
	return s.travel(s.history.Undo)
}

// Redo steps forward one history entry.
func (s *Session) Redo() (View, error) {
	return s.travel(s.history.Redo)
}

func (s *Session) travel(step func() ([]*schema.Field, error)) (View, error) {
	s.mu.Lock()
	tree, err := step()
	if err != nil {
		v := s.view()
		s.mu.Unlock()
		return v, err
	}
	s.tree = tree
	v := s.view()
	s.mu.Unlock()
	s.changed(v)
	return v, nil
}

// CreateSnapshot bookmarks the current tree.
func (s *Session) CreateSnapshot() (SnapshotInfo, error) {
	s.mu.Lock()
	snap, err := s.history.CreateSnapshot(s.tree, s.m.now())
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, apperr.ErrConflict) {
			s.m.notices.Show(notice.KindWarning, "Snapshot limit reached.")
		}
		return SnapshotInfo{}, err
	}
	info := SnapshotInfo{Index: len(s.history.Snapshots()) - 1, Name: snap.Name, Timestamp: snap.Timestamp}
	v := s.view()
	s.mu.Unlock()

	s.m.notices.Show(notice.KindSuccess, snap.Name+" created.")
	s.changed(v)
	return info, nil
}

// Snapshots lists the snapshots in creation order.
func (s *Session) Snapshots() []SnapshotInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots()
}

func (s *Session) snapshots() []SnapshotInfo {
	snaps := s.history.Snapshots()
	out := make([]SnapshotInfo, len(snaps))
	for i, sn := range snaps {
		out[i] = SnapshotInfo{Index: i, Name: sn.Name, Timestamp: sn.Timestamp}
	}
	return out
}

// RestoreSnapshot replaces the tree with snapshot index. It reports false
// when there is no such snapshot.
func (s *Session) RestoreSnapshot(index int) (View, bool, error) {
	s.mu.Lock()
	ok, err := s.history.RestoreSnapshot(index, func(tree []*schema.Field) {
		s.tree = tree
	})
	v := s.view()
	s.mu.Unlock()
	if err != nil || !ok {
		return v, false, err
	}
	s.changed(v)
	return v, true, nil
}

// Submit rebuilds the document object from elements, validates it and
// writes the file. When elements is empty the current tree is submitted.
// Validation failures are returned in the result together with an error
// wrapping apperr.ErrValidation.
func (s *Session) Submit(elements []formdata.Element) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(elements) == 0 {
		elements = formdata.Flatten(s.tree)
	}
	obj := s.transform.Transform(elements)
	if obj == nil {
		return SubmitResult{}, fmt.Errorf("session: submit %s: %w", s.path, apperr.ErrInvalidDocument)
	}

	errs := validate.Validate(obj, s.rules.Validation)
	if s.rules.Strict != nil {
		errs = append(errs, s.rules.Strict.Validate(obj)...)
	}
	if len(errs) > 0 {
		s.m.notices.Show(notice.KindError, "Validation failed. Please check your input.")
		return SubmitResult{Errors: errs}, fmt.Errorf("session: submit %s: %d problems: %w", s.path, len(errs), apperr.ErrValidation)
	}

	out, err := document.Render(s.doc, obj)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("session: render %s: %w", s.path, err)
	}
	if err := s.m.store.Write(s.path, out); err != nil {
		return SubmitResult{}, fmt.Errorf("session: write %s: %w", s.path, err)
	}
	if doc, err := document.Parse(s.path, out); err == nil {
		s.doc = doc
	} else {
		s.m.logger.Warn("session: reparse after save", slog.String("path", s.path), slog.Any("error", err))
	}

	s.m.logger.Info("session: saved", slog.String("id", s.id), slog.String("path", s.path))
	s.m.notices.Show(notice.KindSuccess, "Saved.")
	if s.m.onSaved != nil {
		s.m.onSaved(s.path)
	}
	return SubmitResult{Saved: true}, nil
}

func (s *Session) changed(v View) {
	if s.m.onChange != nil {
		s.m.onChange(v)
	}
}
