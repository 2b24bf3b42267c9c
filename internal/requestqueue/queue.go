package requestqueue

import (
	"log/slog"
	"reflect"
	"sync"
)

// Queue is the ordered registry of outstanding requests.
type Queue struct {
	mu      sync.Mutex
	handles []Handle

	uniqueIDs bool
	logger    *slog.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithUniqueIDs makes Set ignore a handle whose id is already registered.
// Without it the queue keeps duplicates in insertion order.
func WithUniqueIDs() Option {
	return func(q *Queue) {
		q.uniqueIDs = true
	}
}

// WithLogger sets the logger used for queue events. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// New creates an empty Queue.
func New(opts ...Option) *Queue {
	q := &Queue{logger: slog.Default()}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// UniqueIDs reports whether the queue rejects duplicate ids.
func (q *Queue) UniqueIDs() bool {
	return q.uniqueIDs
}

// All returns a snapshot of every handle in insertion order.
func (q *Queue) All() []Handle {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Handle, len(q.handles))
	copy(out, q.handles)
	return out
}

// Get returns the handles registered under id, in insertion order. The result
// is empty when nothing matches.
func (q *Queue) Get(id string) []Handle {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.match(id)
}

// match must be called with q.mu held.
func (q *Queue) match(id string) []Handle {
	var out []Handle
	for _, h := range q.handles {
		if h.RequestID() == id {
			out = append(out, h)
		}
	}
	return out
}

// Len returns the number of registered handles.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.handles)
}

// Set appends h to the end of the queue.
func (q *Queue) Set(h Handle) {
	if h == nil {
		return
	}
	id := h.RequestID()

	q.mu.Lock()
	if q.uniqueIDs && len(q.match(id)) > 0 {
		q.mu.Unlock()
		q.logger.Debug("Request already registered, ignoring.", "request_id", id)
		return
	}
	q.handles = append(q.handles, h)
	size := len(q.handles)
	q.mu.Unlock()

	q.logger.Debug("Request registered.", "request_id", id, "in_flight", size)
}

// Delete removes every handle registered under id. The remaining handles keep
// their relative order. Deleting an unknown id is a no-op.
func (q *Queue) Delete(id string) {
	q.mu.Lock()
	kept := make([]Handle, 0, len(q.handles))
	for _, h := range q.handles {
		if h.RequestID() != id {
			kept = append(kept, h)
		}
	}
	removed := len(q.handles) - len(kept)
	q.handles = kept
	q.mu.Unlock()

	if removed > 0 {
		q.logger.Debug("Request removed.", "request_id", id, "removed", removed, "in_flight", len(kept))
	}
}

// Remove deletes exactly h, leaving other handles that share its id in place.
// Handles are compared with ==; a handle whose dynamic type is not comparable
// is never found. It reports whether h was found.
func (q *Queue) Remove(h Handle) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if h == nil || !reflect.TypeOf(h).Comparable() {
		return false
	}
	for i, cur := range q.handles {
		if reflect.TypeOf(cur) == reflect.TypeOf(h) && cur == h {
			q.handles = append(q.handles[:i:i], q.handles[i+1:]...)
			return true
		}
	}
	return false
}
