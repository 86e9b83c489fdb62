package objcontext

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/objgraph/internal/object"
)

// EventKind names a context lifecycle event.
type EventKind int

const (
	EventCommitted EventKind = iota
	EventRolledBack
)

func (k EventKind) String() string {
	switch k {
	case EventCommitted:
		return "committed"
	case EventRolledBack:
		return "rolled-back"
	}
	return "unknown"
}

// Event is delivered to listeners after a commit or rollback.
type Event struct {
	Kind    EventKind
	Context *Context

	// Objects are the objects the commit or rollback changed state of.
	Objects []object.Persistent
}

// Listener handles an event. A returned error is logged and counts as
// "did not fire"; it does not stop delivery to other listeners.
type Listener func(ctx context.Context, e Event) error

// Subscription identifies a registered listener.
type Subscription uint64

// Listeners is an explicit listener registry. Listeners stay registered
// until Unsubscribe.
type Listeners struct {
	mu      sync.Mutex
	next    Subscription
	entries []listenerEntry
}

type listenerEntry struct {
	id Subscription
	fn Listener
}

// Subscribe registers fn and returns its handle.
func (l *Listeners) Subscribe(fn Listener) Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	l.entries = append(l.entries, listenerEntry{id: l.next, fn: fn})
	return l.next
}

// Unsubscribe removes a listener and reports whether it was registered.
func (l *Listeners) Unsubscribe(s Subscription) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.id == s {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered listeners.
func (l *Listeners) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Fire delivers e to every listener in subscription order and returns how
// many fired. A panicking listener is not recovered.
func (l *Listeners) Fire(ctx context.Context, e Event) int {
	l.mu.Lock()
	entries := append([]listenerEntry(nil), l.entries...)
	l.mu.Unlock()

	fired := 0
	for _, entry := range entries {
		if invoke(ctx, entry, e) {
			fired++
		}
	}
	return fired
}

func invoke(ctx context.Context, entry listenerEntry, e Event) bool {
	if err := entry.fn(ctx, e); err != nil {
		slog.Warn("listener failed",
			"subscription", uint64(entry.id),
			"event", e.Kind.String(),
			"error", err,
		)
		return false
	}
	return true
}
