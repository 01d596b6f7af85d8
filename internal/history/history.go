// Package history keeps the linear undo/redo history of a field tree and the
// user's named snapshots.
package history

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/frontedit/internal/apperr"
	"github.com/starford/frontedit/internal/schema"
)

const (
	snapshotClock   = "15:04:05"
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// Snapshot is a named bookmark of a serialized tree.
type Snapshot struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Timestamp string `json:"timestamp"`
}

// History is a linear sequence of serialized trees with a cursor. It is not
// safe for concurrent use.
type History struct {
	entries   []string
	position  int
	redoLevel int
	snapshots []Snapshot

	maxSnapshots int
	logger       *slog.Logger
}

// Option configures a History.
type Option func(*History)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *History) { h.logger = l }
}

// WithMaxSnapshots caps the snapshot list. Zero means unlimited.
func WithMaxSnapshots(n int) Option {
	return func(h *History) { h.maxSnapshots = n }
}

// New returns an empty, unloaded History.
func New(opts ...Option) *History {
	h := &History{position: -1, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Load discards all history and snapshots and starts over from tree.
func (h *History) Load(tree []*schema.Field) error {
	h.entries = nil
	h.position = -1
	h.redoLevel = 0
	h.snapshots = nil
	return h.Push(tree)
}

// Push records tree as the newest entry. Entries after the cursor are
// discarded first.
func (h *History) Push(tree []*schema.Field) error {
	state, err := schema.Marshal(tree)
	if err != nil {
		return fmt.Errorf("history: push: %w", err)
	}
	h.append(state)
	return nil
}

func (h *History) append(state string) {
	if h.position+1 < len(h.entries) {
		h.entries = h.entries[:h.position+1]
		h.redoLevel++
	}
	h.entries = append(h.entries, state)
	h.position++
}

// Undo moves the cursor back one entry and returns the tree there.
func (h *History) Undo() ([]*schema.Field, error) {
	if !h.CanUndo() {
		return nil, fmt.Errorf("history: undo: %w", apperr.ErrNoHistory)
	}
	h.position--
	return h.Current()
}

// Redo moves the cursor forward one entry and returns the tree there.
func (h *History) Redo() ([]*schema.Field, error) {
	if !h.CanRedo() {
		return nil, fmt.Errorf("history: redo: %w", apperr.ErrNoHistory)
	}
	h.position++
	return h.Current()
}

func (h *History) CanUndo() bool { return h.position > 0 }
func (h *History) CanRedo() bool { return h.position >= 0 && h.position < len(h.entries)-1 }

// Position is the cursor, -1 before Load.
func (h *History) Position() int { return h.position }

// Len is the number of entries.
func (h *History) Len() int { return len(h.entries) }

// RedoLevel only ever grows. It signals that forward history has existed,
// not how many redo steps remain.
func (h *History) RedoLevel() int { return h.redoLevel }

// Current returns the tree at the cursor, nil before Load.
func (h *History) Current() ([]*schema.Field, error) {
	if h.position < 0 {
		return nil, nil
	}
	tree, err := schema.Unmarshal(h.entries[h.position])
	if err != nil {
		return nil, fmt.Errorf("history: entry %d: %w", h.position, err)
	}
	return tree, nil
}

// Entries returns a copy of the serialized entries.
func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}

// Snapshots returns a copy of the snapshot list.
func (h *History) Snapshots() []Snapshot {
	return append([]Snapshot(nil), h.snapshots...)
}

// CreateSnapshot appends a snapshot of tree named after its position in the
// list and the local clock time of now.
func (h *History) CreateSnapshot(tree []*schema.Field, now time.Time) (Snapshot, error) {
	if h.maxSnapshots > 0 && len(h.snapshots) >= h.maxSnapshots {
		return Snapshot{}, fmt.Errorf("history: %d snapshots already taken: %w", len(h.snapshots), apperr.ErrConflict)
	}
	state, err := schema.Marshal(tree)
	if err != nil {
		return Snapshot{}, fmt.Errorf("history: snapshot: %w", err)
	}
	s := Snapshot{
		Name:      fmt.Sprintf("Snapshot %d (%s)", len(h.snapshots)+1, now.Format(snapshotClock)),
		State:     state,
		Timestamp: now.UTC().Format(timestampLayout),
	}
	h.snapshots = append(h.snapshots, s)
	return s, nil
}

// RestoreSnapshot hands the tree of snapshot index to reset and records it as
// a new entry after the cursor, dropping any forward history. It reports
// false without changing anything when index is out of range or the
// snapshot cannot be parsed.
func (h *History) RestoreSnapshot(index int, reset func([]*schema.Field)) (bool, error) {
	if index < 0 || index >= len(h.snapshots) {
		return false, nil
	}
	s := h.snapshots[index]
	tree, err := schema.Unmarshal(s.State)
	if err != nil {
		h.logger.Error("restore snapshot", slog.String("snapshot", s.Name), slog.Any("error", err))
		return false, fmt.Errorf("history: restore %q: %w", s.Name, err)
	}
	if reset != nil {
		reset(tree)
	}
	if h.position+1 < len(h.entries) {
		h.entries = h.entries[:h.position+1]
	}
	h.entries = append(h.entries, s.State)
	h.position++
	h.redoLevel++
	return true, nil
}
