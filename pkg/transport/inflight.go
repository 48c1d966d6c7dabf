package transport

import (
	"context"
	"sync"
)

// InFlightRegistry tracks running streaming sessions so they can be
// cancelled by ID or all at once on shutdown. All methods are safe for
// concurrent use, and a nil registry is a no-op.
type InFlightRegistry struct {
	mu      sync.Mutex
	entries map[string]context.CancelCauseFunc
}

// NewInFlightRegistry creates an empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{entries: make(map[string]context.CancelCauseFunc)}
}

// Register records a running session and the function that cancels it.
func (r *InFlightRegistry) Register(id string, cancel context.CancelCauseFunc) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = cancel
}

// Cancel stops the session with the given cause. It reports false when
// the session is not running.
func (r *InFlightRegistry) Cancel(id string, cause error) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	cancel, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	cancel(cause)
	return true
}

// CancelAll stops every running session and returns how many there were.
func (r *InFlightRegistry) CancelAll(cause error) int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]context.CancelCauseFunc)
	r.mu.Unlock()
	for _, cancel := range entries {
		cancel(cause)
	}
	return len(entries)
}

// Remove forgets a session that finished on its own.
func (r *InFlightRegistry) Remove(id string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Len returns the number of running sessions.
func (r *InFlightRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
