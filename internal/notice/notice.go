// Package notice keeps short-lived user-facing notifications that dismiss
// themselves after a fixed delay.
package notice

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a notice stays visible.
const DefaultTTL = 3 * time.Second

// Kind classifies a notice.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Notice is one notification.
type Notice struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Dismissed bool      `json:"dismissed,omitempty"`
}

// Notifier holds the visible notices. Show appends synchronously; removal
// happens on a timer.
type Notifier struct {
	ttl     time.Duration
	publish func(Notice)
	now     func() time.Time

	mu      sync.Mutex
	notices []Notice
	timers  map[string]*time.Timer
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.ttl = d
		}
	}
}

// WithPublish sets a func called when a notice appears and when it is
// dismissed.
func WithPublish(fn func(Notice)) Option {
	return func(n *Notifier) { n.publish = fn }
}

// New returns an empty Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		ttl:     DefaultTTL,
		publish: func(Notice) {},
		now:     time.Now,
		timers:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Show adds a notice and schedules its removal.
func (n *Notifier) Show(kind Kind, message string) Notice {
	nt := Notice{ID: uuid.NewString(), Kind: kind, Message: message, CreatedAt: n.now()}

	n.mu.Lock()
	n.notices = append(n.notices, nt)
	n.timers[nt.ID] = time.AfterFunc(n.ttl, func() { n.Dismiss(nt.ID) })
	n.mu.Unlock()

	n.publish(nt)
	return nt
}

// Info shows an informational notice.
func (n *Notifier) Info(message string) Notice { return n.Show(KindInfo, message) }

// Dismiss removes a notice early. Unknown ids are ignored.
func (n *Notifier) Dismiss(id string) {
	n.mu.Lock()
	var removed *Notice
	for i, nt := range n.notices {
		if nt.ID == id {
			nt.Dismissed = true
			removed = &nt
			n.notices = append(n.notices[:i:i], n.notices[i+1:]...)
			break
		}
	}
	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	n.mu.Unlock()

	if removed != nil {
		n.publish(*removed)
	}
}

// List returns the visible notices, oldest first.
func (n *Notifier) List() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice{}, n.notices...)
}

// Close stops all pending timers.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
}
