package requestqueue

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects the reasons each executor was called with.
type recorder struct {
	mu    sync.Mutex
	calls map[string][]Reason
	order []string
}

func newRecorder() *recorder {
	return &recorder{calls: make(map[string][]Reason)}
}

func (r *recorder) request(id string) *Request {
	return &Request{
		ID: id,
		Executor: func(reason Reason) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.calls[id] = append(r.calls[id], reason)
			r.order = append(r.order, id)
			return nil
		},
	}
}

func ids(handles []Handle) []string {
	out := make([]string, 0, len(handles))
	for _, h := range handles {
		out = append(out, h.RequestID())
	}
	return out
}

func TestQueue_AllPreservesInsertionOrder(t *testing.T) {
	t.Parallel()
	q := New()
	rec := newRecorder()

	for _, id := range []string{"c", "a", "b", "a"} {
		q.Set(rec.request(id))
	}

	assert.Equal(t, []string{"c", "a", "b", "a"}, ids(q.All()))
	assert.Equal(t, 4, q.Len())
}

func TestQueue_AllReturnsSnapshot(t *testing.T) {
	t.Parallel()
	q := New()
	q.Set(&Request{ID: "a"})

	snapshot := q.All()
	q.Set(&Request{ID: "b"})

	assert.Len(t, snapshot, 1)
	assert.Len(t, q.All(), 2)
}

func TestQueue_GetReturnsEveryMatch(t *testing.T) {
	t.Parallel()
	q := New()
	first := &Request{ID: "dup", Attrs: map[string]any{"n": 1}}
	second := &Request{ID: "dup", Attrs: map[string]any{"n": 2}}
	q.Set(first)
	q.Set(&Request{ID: "other"})
	q.Set(second)

	got := q.Get("dup")
	require.Len(t, got, 2)
	assert.Same(t, first, got[0])
	assert.Same(t, second, got[1])

	assert.Empty(t, q.Get("missing"))
}

func TestQueue_SetNilIsIgnored(t *testing.T) {
	t.Parallel()
	q := New()
	q.Set(nil)
	assert.Zero(t, q.Len())
}

func TestQueue_UniqueIDsIgnoresDuplicates(t *testing.T) {
	t.Parallel()
	q := New(WithUniqueIDs())
	first := &Request{ID: "a"}
	q.Set(first)
	q.Set(&Request{ID: "a"})
	q.Set(&Request{ID: "b"})

	require.True(t, q.UniqueIDs())
	assert.Equal(t, []string{"a", "b"}, ids(q.All()))
	assert.Same(t, first, q.Get("a")[0])
}

func TestQueue_DeleteRemovesAllMatchesAndKeepsOrder(t *testing.T) {
	t.Parallel()
	q := New()
	for _, id := range []string{"a", "x", "b", "x", "c"} {
		q.Set(&Request{ID: id})
	}

	q.Delete("x")

	assert.Empty(t, q.Get("x"))
	assert.Equal(t, []string{"a", "b", "c"}, ids(q.All()))
}

func TestQueue_DeleteUnknownIsNoop(t *testing.T) {
	t.Parallel()
	q := New()
	q.Set(&Request{ID: "a"})
	q.Set(&Request{ID: "b"})
	before := q.All()

	q.Delete("nope")

	assert.Equal(t, before, q.All())
}

// TestQueue_ConcurrentAccess verifies that the queue can be used from many
// goroutines at once without losing registrations.
func TestQueue_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	q := New()
	numGoroutines := 100
	var wg sync.WaitGroup

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			q.Set(&Request{ID: fmt.Sprintf("req-%d", i)})
			q.Get(fmt.Sprintf("req-%d", i))
		}(i)
	}
	wg.Wait()
	require.Equal(t, numGoroutines, q.Len())

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				q.Delete(fmt.Sprintf("req-%d", i))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, numGoroutines/2, q.Len())
}

func TestQueue_RemoveDeletesOnlyThatHandle(t *testing.T) {
	t.Parallel()
	q := New()
	first := &Request{ID: "dup"}
	second := &Request{ID: "dup"}
	q.Set(first)
	q.Set(&Request{ID: "other"})
	q.Set(second)

	require.True(t, q.Remove(first))
	assert.False(t, q.Remove(first))

	got := q.Get("dup")
	require.Len(t, got, 1)
	assert.Same(t, second, got[0])
	assert.Equal(t, []string{"other", "dup"}, ids(q.All()))
}

// valueHandle is a handle whose dynamic type cannot be compared with ==.
type valueHandle struct {
	id    string
	attrs map[string]string
}

func (v valueHandle) RequestID() string { return v.id }
func (v valueHandle) Cancel(reason Reason) error { return nil }

func TestQueue_RemoveNonComparableHandle(t *testing.T) {
	t.Parallel()
	q := New()
	q.Set(valueHandle{id: "v", attrs: map[string]string{"k": "v"}})
	q.Set(&Request{ID: "p"})

	var removed bool
	require.NotPanics(t, func() {
		removed = q.Remove(valueHandle{id: "v", attrs: map[string]string{}})
	})

	assert.False(t, removed)
	assert.Equal(t, []string{"v", "p"}, ids(q.All()))

	q.Delete("v")
	assert.Equal(t, []string{"p"}, ids(q.All()))
}

func TestQueue_RemovePointerAmongValueHandles(t *testing.T) {
	t.Parallel()
	q := New()
	target := &Request{ID: "p"}
	q.Set(valueHandle{id: "v", attrs: map[string]string{}})
	q.Set(target)

	require.NotPanics(t, func() {
		assert.True(t, q.Remove(target))
	})
	assert.Equal(t, []string{"v"}, ids(q.All()))
}
