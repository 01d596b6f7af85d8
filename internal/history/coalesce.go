package history

import (
	"sync"

	"github.com/starford/frontedit/internal/schema"
)

// Coalescer defers history commits until a batch of edits has settled, so
// that several updates issued together produce a single entry.
type Coalescer struct {
	mu      sync.Mutex
	pending []*schema.Field
	armed   bool
	commit  func([]*schema.Field) error
}

// NewCoalescer returns a Coalescer committing through commit, usually
// History.Push.
func NewCoalescer(commit func([]*schema.Field) error) *Coalescer {
	return &Coalescer{commit: commit}
}

// Schedule replaces the pending tree with tree.
func (c *Coalescer) Schedule(tree []*schema.Field) {
	c.mu.Lock()
	c.pending = tree
	c.armed = true
	c.mu.Unlock()
}

// Pending reports whether a commit is waiting.
func (c *Coalescer) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Settle commits the pending tree, if any. It reports whether a commit
// happened.
func (c *Coalescer) Settle() (bool, error) {
	c.mu.Lock()
	tree, armed := c.pending, c.armed
	c.pending, c.armed = nil, false
	c.mu.Unlock()
	if !armed {
		return false, nil
	}
	return true, c.commit(tree)
}

// Discard drops the pending tree without committing it.
func (c *Coalescer) Discard() {
	c.mu.Lock()
	c.pending, c.armed = nil, false
	c.mu.Unlock()
}
