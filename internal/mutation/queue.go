package mutation

import (
	"context"
	"sync"
)

// writeQueue orders remote writes per task and remembers, for each task,
// the last value the store confirmed and the latest value written locally.
type writeQueue[V any] struct {
	mu   sync.Mutex
	keys map[string]*queueState[V]
}

type queueState[V any] struct {
	tail      chan struct{}
	pending   int
	confirmed V
	latest    V
}

// ticket is one write's place in its task's queue.
type ticket struct {
	key  string
	prev chan struct{}
	self chan struct{}
}

func newWriteQueue[V any]() *writeQueue[V] {
	return &writeQueue[V]{keys: make(map[string]*queueState[V])}
}

// join appends a write of next for key. current is the value held before
// this write and is taken as confirmed when no other write is pending.
// Callers hold the cache lock so queue order matches local apply order.
func (q *writeQueue[V]) join(key string, current, next V) *ticket {
	q.mu.Lock()
	defer q.mu.Unlock()

	st, ok := q.keys[key]
	if !ok {
		st = &queueState[V]{confirmed: current}
		q.keys[key] = st
	}
	st.latest = next
	t := &ticket{key: key, prev: st.tail, self: make(chan struct{})}
	st.tail = t.self
	st.pending++
	return t
}

// wait blocks until every earlier write for the ticket's key has settled
// or ctx is done.
func (t *ticket) wait(ctx context.Context) error {
	if t.prev == nil {
		return nil
	}
	select {
	case <-t.prev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settle records the outcome of t. It reports whether t was the last
// pending write for its key and the value the store now holds.
//
// A ticket abandoned before its write settles its successor early. The
// successor's write may then reach the store before the earlier one has
// finished.
func (q *writeQueue[V]) settle(t *ticket, ok bool, written V) (last bool, confirmed V) {
	q.mu.Lock()
	defer q.mu.Unlock()
	defer close(t.self)

	st := q.keys[t.key]
	if ok {
		st.confirmed = written
	}
	st.pending--
	if st.pending == 0 {
		delete(q.keys, t.key)
		return true, st.confirmed
	}
	return false, st.confirmed
}

// latest returns the newest locally written value while writes for key
// are pending.
func (q *writeQueue[V]) latest(key string) (V, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if st, ok := q.keys[key]; ok {
		return st.latest, true
	}
	var zero V
	return zero, false
}

// confirm records v as held by the store for a key with pending writes.
// Keys without pending writes are left alone.
func (q *writeQueue[V]) confirm(key string, v V) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if st, ok := q.keys[key]; ok {
		st.confirmed = v
		st.latest = v
	}
}

// pending returns the number of unsettled writes for key.
func (q *writeQueue[V]) pending(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if st, ok := q.keys[key]; ok {
		return st.pending
	}
	return 0
}
