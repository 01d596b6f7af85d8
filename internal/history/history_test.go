package history

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/frontedit/internal/apperr"
	"github.com/starford/frontedit/internal/schema"
)

func tree(v string) []*schema.Field {
	return []*schema.Field{{ID: "title", Name: "title", Type: schema.TypeText, Label: "Title", Value: v}}
}

func valueOf(t *testing.T, fields []*schema.Field) any {
	t.Helper()
	if len(fields) != 1 {
		t.Fatalf("tree = %v", fields)
	}
	return fields[0].Value
}

func TestLoadResets(t *testing.T) {
	h := New()
	if h.Position() != -1 {
		t.Fatalf("position = %d, want -1", h.Position())
	}
	if cur, err := h.Current(); err != nil || cur != nil {
		t.Fatalf("Current before load = %v, %v", cur, err)
	}
	_ = h.Load(tree("a"))
	_ = h.Push(tree("b"))
	_, _ = h.CreateSnapshot(tree("b"), time.Now())

	if err := h.Load(tree("z")); err != nil {
		t.Fatal(err)
	}
	if h.Position() != 0 || h.Len() != 1 || h.RedoLevel() != 0 || len(h.Snapshots()) != 0 {
		t.Errorf("after load: pos=%d len=%d redo=%d snaps=%d", h.Position(), h.Len(), h.RedoLevel(), len(h.Snapshots()))
	}
}

func TestUndoRedo(t *testing.T) {
	h := New()
	_ = h.Load(tree("a"))
	_ = h.Push(tree("b"))
	_ = h.Push(tree("c"))

	got, err := h.Undo()
	if err != nil || valueOf(t, got) != "b" {
		t.Fatalf("undo = %v, %v", got, err)
	}
	got, _ = h.Undo()
	if valueOf(t, got) != "a" || h.CanUndo() {
		t.Errorf("second undo = %v, canUndo=%v", got, h.CanUndo())
	}
	if _, err := h.Undo(); !errors.Is(err, apperr.ErrNoHistory) {
		t.Errorf("undo at start err = %v", err)
	}
	got, _ = h.Redo()
	if valueOf(t, got) != "b" || !h.CanRedo() {
		t.Errorf("redo = %v", got)
	}
	if h.RedoLevel() != 0 {
		t.Errorf("undo/redo must not touch redo level, got %d", h.RedoLevel())
	}

	// Editing from the middle discards "c".
	_ = h.Push(tree("d"))
	if h.Len() != 3 || h.CanRedo() || h.RedoLevel() != 1 {
		t.Errorf("len=%d canRedo=%v redo=%d", h.Len(), h.CanRedo(), h.RedoLevel())
	}
	if _, err := h.Redo(); !errors.Is(err, apperr.ErrNoHistory) {
		t.Errorf("redo at end err = %v", err)
	}
}

func TestSnapshotNumbering(t *testing.T) {
	h := New()
	_ = h.Load(tree("a"))
	now := time.Date(2024, 5, 6, 14, 3, 9, 0, time.Local)
	for i := 0; i < 2; i++ {
		if _, err := h.CreateSnapshot(tree("a"), now); err != nil {
			t.Fatal(err)
		}
	}
	s, err := h.CreateSnapshot(tree("a"), now)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "Snapshot 3 (14:03:09)" {
		t.Errorf("name = %q", s.Name)
	}
	if !strings.HasSuffix(s.Timestamp, "Z") {
		t.Errorf("timestamp = %q", s.Timestamp)
	}
	if len(h.Snapshots()) != 3 {
		t.Errorf("snapshots = %d", len(h.Snapshots()))
	}
}

func TestSnapshotLimit(t *testing.T) {
	h := New(WithMaxSnapshots(1))
	_, _ = h.CreateSnapshot(tree("a"), time.Now())
	if _, err := h.CreateSnapshot(tree("a"), time.Now()); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestRestoreSnapshotTruncatesForwardHistory(t *testing.T) {
	h := New()
	_ = h.Load(tree("a"))
	_ = h.Push(tree("b"))
	_ = h.Push(tree("c"))
	snap, _ := h.CreateSnapshot(tree("snap"), time.Now())
	_, _ = h.Undo()
	_, _ = h.Undo()
	pos := h.Position()

	var reset []*schema.Field
	ok, err := h.RestoreSnapshot(0, func(restored []*schema.Field) { reset = restored })
	if !ok || err != nil {
		t.Fatalf("restore = %v, %v", ok, err)
	}
	if valueOf(t, reset) != "snap" {
		t.Errorf("reset tree = %v", reset)
	}
	entries := h.Entries()
	if len(entries) != pos+2 {
		t.Fatalf("entries = %d, want %d", len(entries), pos+2)
	}
	if diff := cmp.Diff(snap.State, entries[len(entries)-1]); diff != "" {
		t.Errorf("last entry (-want +got):\n%s", diff)
	}
	if h.Position() != pos+1 || h.RedoLevel() != 1 || h.CanRedo() {
		t.Errorf("pos=%d redo=%d canRedo=%v", h.Position(), h.RedoLevel(), h.CanRedo())
	}
}

func TestRestoreSnapshotOutOfRange(t *testing.T) {
	h := New()
	_ = h.Load(tree("a"))
	called := false
	ok, err := h.RestoreSnapshot(3, func([]*schema.Field) { called = true })
	if ok || err != nil || called {
		t.Errorf("restore = %v, %v, called=%v", ok, err, called)
	}
	if h.Len() != 1 || h.RedoLevel() != 0 {
		t.Error("state changed")
	}
}

func TestRestoreSnapshotCorrupt(t *testing.T) {
	h := New()
	_ = h.Load(tree("a"))
	h.snapshots = append(h.snapshots, Snapshot{Name: "bad", State: "{not json"})
	ok, err := h.RestoreSnapshot(0, nil)
	if ok || err == nil {
		t.Errorf("restore = %v, %v", ok, err)
	}
	if h.Len() != 1 || h.Position() != 0 || h.RedoLevel() != 0 {
		t.Error("state changed")
	}
}

func TestCoalescer(t *testing.T) {
	h := New()
	_ = h.Load(tree("a"))
	c := NewCoalescer(h.Push)

	if ok, _ := c.Settle(); ok {
		t.Error("settle with nothing pending committed")
	}
	c.Schedule(tree("b"))
	c.Schedule(tree("c"))
	if !c.Pending() {
		t.Error("expected pending")
	}
	ok, err := c.Settle()
	if !ok || err != nil {
		t.Fatalf("settle = %v, %v", ok, err)
	}
	if h.Len() != 2 {
		t.Errorf("entries = %d, want 2", h.Len())
	}
	cur, _ := h.Current()
	if valueOf(t, cur) != "c" {
		t.Errorf("current = %v", cur)
	}

	c.Schedule(tree("d"))
	c.Discard()
	if ok, _ := c.Settle(); ok || h.Len() != 2 {
		t.Error("discarded tree was committed")
	}
}
