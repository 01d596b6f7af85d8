// Package session keeps the editing sessions of open documents. A session
// owns the field tree of one file together with its undo history and
// snapshots, and writes the file back on submit.
package session

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/frontedit/internal/apperr"
	"github.com/starford/frontedit/internal/document"
	"github.com/starford/frontedit/internal/notice"
	"github.com/starford/frontedit/internal/schema"
	"github.com/starford/frontedit/internal/storage"
)

// Manager opens and tracks sessions. A file has at most one session;
// opening it again replaces the previous one.
type Manager struct {
	store    storage.Provider
	rules    Resolver
	notices  *notice.Notifier
	logger   *slog.Logger
	now      func() time.Time
	onChange func(View)
	onSaved  func(path string)

	maxSnapshots int

	mu       sync.Mutex
	sessions map[string]*Session
	byPath   map[string]string
}

// Option configures a Manager.
type Option func(*Manager)

// WithRules sets the per-file schema rules.
func WithRules(r Resolver) Option {
	return func(m *Manager) { m.rules = r }
}

// WithNotifier sets the notifier receiving user-facing messages.
func WithNotifier(n *notice.Notifier) Option {
	return func(m *Manager) { m.notices = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMaxSnapshots caps the snapshots of each session. Zero means unlimited.
func WithMaxSnapshots(n int) Option {
	return func(m *Manager) { m.maxSnapshots = n }
}

// WithOnChange registers a func called with the new view after every
// operation that changed a session.
func WithOnChange(fn func(View)) Option {
	return func(m *Manager) { m.onChange = fn }
}

// WithOnSaved registers a func called after a submit wrote its file.
func WithOnSaved(fn func(path string)) Option {
	return func(m *Manager) { m.onSaved = fn }
}

// WithClock overrides the clock used for snapshot names.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a Manager reading and writing files through store.
func NewManager(store storage.Provider, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		logger:   slog.Default(),
		now:      time.Now,
		sessions: make(map[string]*Session),
		byPath:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.notices == nil {
		m.notices = notice.New()
	}
	return m
}

// ReservedKeyNotice warns that a front matter "contents" key holds the place
// of the Markdown body and is not written back.
const ReservedKeyNotice = `Front matter key "contents" is reserved for the body and will not be saved.`

// Open loads path into a new session.
func (m *Manager) Open(path string) (*Session, error) {
	data, err := m.store.Read(path)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", path, err)
	}
	doc, err := document.Parse(path, data)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", path, err)
	}
	if doc.Kind == document.KindMarkdown && doc.Frontmatter != nil {
		if _, clash := doc.Frontmatter.Get(document.ContentsKey); clash {
			m.logger.Warn("session: reserved front matter key",
				slog.String("path", doc.Path),
				slog.String("key", document.ContentsKey))
			m.notices.Show(notice.KindWarning, ReservedKeyNotice)
		}
	}
	rules := m.rules.Resolve(path)
	tree, err := Fields(doc, rules.Fields)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", path, err)
	}

	s, err := newSession(m, uuid.NewString(), doc, rules, tree)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if old, ok := m.byPath[doc.Path]; ok {
		delete(m.sessions, old)
	}
	m.sessions[s.id] = s
	m.byPath[doc.Path] = s.id
	m.mu.Unlock()

	m.logger.Info("session: opened",
		slog.String("id", s.id),
		slog.String("path", doc.Path),
		slog.Int("fields", len(tree)))
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session: %s: %w", id, apperr.ErrNotFound)
	}
	return s, nil
}

// Close forgets the session with the given id.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session: %s: %w", id, apperr.ErrNotFound)
	}
	delete(m.sessions, id)
	if m.byPath[s.path] == id {
		delete(m.byPath, s.path)
	}
	return nil
}

// List returns the open sessions ordered by path.
func (m *Manager) List() []Summary {
	m.mu.Lock()
	out := make([]Summary, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, Summary{ID: s.id, Path: s.path, OpenedAt: s.openedAt})
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Notices returns the notifier shared by all sessions.
func (m *Manager) Notices() *notice.Notifier { return m.notices }

// Fields builds the form tree of doc. Markdown documents get a trailing
// protected field holding the body.
func Fields(doc *document.Document, explicit []schema.Descriptor) ([]*schema.Field, error) {
	res, err := schema.Infer(doc.Data(), explicit)
	if err != nil {
		return nil, err
	}
	tree := res.Fields
	if doc.Kind == document.KindMarkdown {
		tree = append(tree, schema.ContentsField(doc.Body))
	}
	return tree, nil
}

// Summary identifies an open session.
type Summary struct {
	ID       string    `json:"id"`
	Path     string    `json:"path"`
	OpenedAt time.Time `json:"opened_at"`
}
