package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewTestGateway wraps a fresh in-memory store in a Gateway.
func NewTestGateway(t *testing.T) *store.Gateway {
	t.Helper()
	return store.NewGateway(NewTestStore(t), 5*time.Second)
}

// ErrInjected is returned by FlakyWriter when a write is set to fail.
var ErrInjected = errors.New("injected failure")

// FlakyWriter records task updates and fails them on demand. Writes can
// be held until released to simulate slow round trips.
type FlakyWriter struct {
	mu      sync.Mutex
	calls   []Update
	fail    map[int]bool
	failAll bool
	gates   map[int]chan struct{}
	inner   interface {
		UpdateTask(ctx context.Context, id string, patch model.TaskPatch) error
	}
}

// Update is one recorded UpdateTask call.
type Update struct {
	ID    string
	Patch model.TaskPatch
}

// NewFlakyWriter returns a writer that forwards successful writes to
// inner. A nil inner accepts every write without storing it.
func NewFlakyWriter(inner interface {
	UpdateTask(ctx context.Context, id string, patch model.TaskPatch) error
}) *FlakyWriter {
	return &FlakyWriter{
		fail:  make(map[int]bool),
		gates: make(map[int]chan struct{}),
		inner: inner,
	}
}

// FailCall makes the n-th call (counting from 0) fail.
func (w *FlakyWriter) FailCall(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fail[n] = true
}

// FailAll makes every call fail.
func (w *FlakyWriter) FailAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failAll = true
}

// Hold blocks the n-th call until the returned release is called.
func (w *FlakyWriter) Hold(n int) (release func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan struct{})
	w.gates[n] = ch
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// UpdateTask implements mutation.TaskWriter.
func (w *FlakyWriter) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) error {
	w.mu.Lock()
	n := len(w.calls)
	w.calls = append(w.calls, Update{ID: id, Patch: patch})
	gate := w.gates[n]
	fail := w.failAll || w.fail[n]
	w.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return ErrInjected
	}
	if w.inner != nil {
		return w.inner.UpdateTask(ctx, id, patch)
	}
	return nil
}

// Calls returns the recorded calls.
func (w *FlakyWriter) Calls() []Update {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Update(nil), w.calls...)
}
