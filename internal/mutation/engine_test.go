package mutation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/kanban/internal/board"
	"github.com/nhle/kanban/internal/cache"
	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/mutation"
	"github.com/nhle/kanban/internal/store"
	"github.com/nhle/kanban/tests/testutil"
)

type fixture struct {
	tasks  *cache.TaskCache
	writer *testutil.FlakyWriter
	rec    *testutil.Recorder
	engine *mutation.Engine
}

func newFixture(t *testing.T, opts ...mutation.Option) *fixture {
	t.Helper()
	rec := testutil.NewRecorder(true)
	tasks := cache.NewTaskCache(testutil.NewTestGateway(t), nil, rec)
	tasks.Upsert(model.Task{
		ID:       "t1",
		Title:    "Write docs",
		Status:   model.StatusTodo,
		Subtasks: []model.Subtask{{Title: "draft"}, {Title: "review"}},
	})
	w := testutil.NewFlakyWriter(nil)
	return &fixture{
		tasks:  tasks,
		writer: w,
		rec:    rec,
		engine: mutation.New(tasks, w, rec, opts...),
	}
}

func (f *fixture) status(t *testing.T) model.Status {
	t.Helper()
	task, ok := f.tasks.Get("t1")
	require.True(t, ok)
	return task.Status
}

func TestMoveStatusAppliesAndPersists(t *testing.T) {
	f := newFixture(t)

	var published []model.Status
	cancel := f.tasks.Subscribe(func(ts []model.Task) {
		if len(ts) > 0 {
			published = append(published, ts[0].Status)
		}
	})
	defer cancel()

	require.NoError(t, f.engine.MoveStatus(context.Background(), "t1", model.StatusInProgress))

	assert.Equal(t, model.StatusInProgress, f.status(t))
	calls := f.writer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "t1", calls[0].ID)
	assert.Equal(t, model.StatusInProgress, *calls[0].Patch.Status)
	assert.Nil(t, calls[0].Patch.Subtasks)
	assert.Equal(t, []model.Status{model.StatusTodo, model.StatusInProgress}, published)
	assert.Empty(t, f.rec.Successes())
	assert.Empty(t, f.rec.Errors())
}

func TestMoveStatusSameLaneIsNoop(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.MoveStatus(context.Background(), "t1", model.StatusTodo))
	assert.Empty(t, f.writer.Calls())
	assert.Empty(t, f.rec.Errors())
}

func TestMoveStatusRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	f.writer.FailAll()

	err := f.engine.MoveStatus(context.Background(), "t1", model.StatusDone)

	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.Equal(t, model.StatusTodo, f.status(t))
	assert.Len(t, f.rec.Errors(), 1)
	assert.Equal(t, 0, f.engine.Pending("t1"))
}

func TestMoveStatusRequiresPersistedTask(t *testing.T) {
	f := newFixture(t)

	err := f.engine.MoveStatus(context.Background(), "", model.StatusDone)
	assert.ErrorIs(t, err, mutation.ErrNotPersisted)
	assert.Empty(t, f.writer.Calls())
	assert.Empty(t, f.rec.Errors())

	err = f.engine.MoveStatus(context.Background(), "nope", model.StatusDone)
	assert.ErrorIs(t, err, mutation.ErrUnknownTask)
}

func TestMoveStatusSuccessNotification(t *testing.T) {
	f := newFixture(t, mutation.WithSuccessNotifications(true))

	require.NoError(t, f.engine.MoveStatus(context.Background(), "t1", model.StatusDone))
	assert.Equal(t, []string{`Moved "Write docs" to Done`}, f.rec.Successes())
}

// startMove runs a move in the background once the previous writes are
// queued, and waits until its local change is visible.
func startMove(t *testing.T, f *fixture, wg *sync.WaitGroup, status model.Status, errs chan<- error) {
	t.Helper()
	pending := f.engine.Pending("t1")
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- f.engine.MoveStatus(context.Background(), "t1", status)
	}()
	require.Eventually(t, func() bool {
		return f.engine.Pending("t1") == pending+1
	}, time.Second, time.Millisecond)
}

func TestConcurrentMovesAreWrittenInOrder(t *testing.T) {
	f := newFixture(t)
	release := f.writer.Hold(0)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	startMove(t, f, &wg, model.StatusInProgress, errs)
	startMove(t, f, &wg, model.StatusDone, errs)

	assert.Equal(t, model.StatusDone, f.status(t))
	require.Eventually(t, func() bool {
		return len(f.writer.Calls()) == 1
	}, time.Second, time.Millisecond)

	release()
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	calls := f.writer.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, model.StatusInProgress, *calls[0].Patch.Status)
	assert.Equal(t, model.StatusDone, *calls[1].Patch.Status)
	assert.Equal(t, model.StatusDone, f.status(t))
}

func TestFailedLastMoveRevertsToConfirmedValue(t *testing.T) {
	f := newFixture(t)
	release := f.writer.Hold(0)
	f.writer.FailCall(1)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	startMove(t, f, &wg, model.StatusInProgress, errs)
	startMove(t, f, &wg, model.StatusDone, errs)

	release()
	wg.Wait()

	assert.Equal(t, model.StatusInProgress, f.status(t))
	assert.Len(t, f.rec.Errors(), 1)
}

func TestFailedEarlierMoveKeepsLaterValue(t *testing.T) {
	f := newFixture(t)
	release := f.writer.Hold(0)
	f.writer.FailCall(0)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	startMove(t, f, &wg, model.StatusInProgress, errs)
	startMove(t, f, &wg, model.StatusDone, errs)

	release()
	wg.Wait()

	assert.Equal(t, model.StatusDone, f.status(t))
	assert.Len(t, f.rec.Errors(), 1)
}

func TestToggleSubtask(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.ToggleSubtask(context.Background(), "t1", 1))

	task, _ := f.tasks.Get("t1")
	assert.False(t, task.Subtasks[0].Completed)
	assert.True(t, task.Subtasks[1].Completed)

	calls := f.writer.Calls()
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0].Patch.Status)
	assert.Equal(t, task.Subtasks, calls[0].Patch.Subtasks)
}

func TestToggleSubtaskRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	f.writer.FailAll()

	err := f.engine.ToggleSubtask(context.Background(), "t1", 0)

	assert.ErrorIs(t, err, testutil.ErrInjected)
	task, _ := f.tasks.Get("t1")
	assert.False(t, task.Subtasks[0].Completed)
	assert.Equal(t, []string{"Could not update the subtask. The change was undone."}, f.rec.Errors())
}

func TestToggleSubtaskIndexOutOfRange(t *testing.T) {
	f := newFixture(t)

	err := f.engine.ToggleSubtask(context.Background(), "t1", 5)
	assert.ErrorIs(t, err, mutation.ErrSubtaskIndex)
	assert.Empty(t, f.writer.Calls())
}

func TestMoveStatusPersistsThroughGateway(t *testing.T) {
	ctx := context.Background()
	gw := testutil.NewTestGateway(t)
	rec := testutil.NewRecorder(true)
	tasks := cache.NewTaskCache(gw, nil, rec)
	created, err := tasks.Create(ctx, model.Task{Title: "x"})
	require.NoError(t, err)

	engine := mutation.New(tasks, gw, rec)
	require.NoError(t, engine.MoveStatus(ctx, created.ID, model.StatusAwaitFeedback))

	stored, err := gw.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAwaitFeedback, stored.Status)
}

func TestMoveStatusRejectsInvalidLane(t *testing.T) {
	f := newFixture(t)

	err := f.engine.MoveStatus(context.Background(), "t1", model.Status("archived"))
	assert.ErrorIs(t, err, mutation.ErrInvalidStatus)
	assert.Equal(t, model.StatusTodo, f.status(t))
	assert.Empty(t, f.writer.Calls())
	assert.Empty(t, f.rec.Errors())
}

func TestDropOnInvalidLaneLeavesTask(t *testing.T) {
	f := newFixture(t)
	drag := board.NewDrag(f.engine)
	task, _ := f.tasks.Get("t1")
	drag.Start(&task)

	err := drag.Drop(context.Background(), model.Status("bogus"))
	assert.ErrorIs(t, err, mutation.ErrInvalidStatus)
	assert.Nil(t, drag.Dragged())
	assert.Equal(t, model.StatusTodo, f.status(t))
	assert.Empty(t, f.writer.Calls())
}

// storedFixture is a fixture whose writes reach a real gateway.
type storedFixture struct {
	*fixture
	gw *store.Gateway
	id string
}

func newStoredFixture(t *testing.T) *storedFixture {
	t.Helper()
	gw := testutil.NewTestGateway(t)
	rec := testutil.NewRecorder(true)
	tasks := cache.NewTaskCache(gw, nil, rec)
	created, err := tasks.Create(context.Background(), model.Task{Title: "Write docs", Status: model.StatusTodo})
	require.NoError(t, err)
	w := testutil.NewFlakyWriter(gw)
	return &storedFixture{
		fixture: &fixture{tasks: tasks, writer: w, rec: rec, engine: mutation.New(tasks, w, rec)},
		gw:      gw,
		id:      created.ID,
	}
}

func (f *storedFixture) states(t *testing.T) (stored, cached model.Status) {
	t.Helper()
	s, err := f.gw.GetTask(context.Background(), f.id)
	require.NoError(t, err)
	c, ok := f.tasks.Get(f.id)
	require.True(t, ok)
	return s.Status, c.Status
}

func (f *storedFixture) startMove(t *testing.T, wg *sync.WaitGroup, status model.Status, errs chan<- error) {
	t.Helper()
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- f.engine.MoveStatus(context.Background(), f.id, status)
	}()
	require.Eventually(t, func() bool {
		return len(f.writer.Calls()) == 1
	}, time.Second, time.Millisecond)
}

func TestRefreshDuringMoveKeepsMovedStatus(t *testing.T) {
	f := newStoredFixture(t)
	release := f.writer.Hold(0)

	var wg sync.WaitGroup
	errs := make(chan error, 1)
	f.startMove(t, &wg, model.StatusDone, errs)

	_, err := f.tasks.FetchAll(context.Background())
	require.NoError(t, err)
	stored, cached := f.states(t)
	assert.Equal(t, model.StatusTodo, stored)
	assert.Equal(t, model.StatusDone, cached)

	release()
	wg.Wait()
	require.NoError(t, <-errs)

	stored, cached = f.states(t)
	assert.Equal(t, model.StatusDone, stored)
	assert.Equal(t, model.StatusDone, cached)
	assert.Equal(t, 0, f.engine.Pending(f.id))
}

func TestRefreshDuringFailedMoveRestoresStoredStatus(t *testing.T) {
	f := newStoredFixture(t)
	release := f.writer.Hold(0)
	f.writer.FailCall(0)

	var wg sync.WaitGroup
	errs := make(chan error, 1)
	f.startMove(t, &wg, model.StatusDone, errs)

	_, err := f.tasks.FetchAll(context.Background())
	require.NoError(t, err)

	release()
	wg.Wait()
	assert.ErrorIs(t, <-errs, testutil.ErrInjected)

	stored, cached := f.states(t)
	assert.Equal(t, model.StatusTodo, stored)
	assert.Equal(t, model.StatusTodo, cached)
	assert.Equal(t, []string{`Could not move "Write docs" to Done. The change was undone.`}, f.rec.Errors())
}

func TestSavedEditDuringFailedMoveKeepsSavedStatus(t *testing.T) {
	f := newStoredFixture(t)
	release := f.writer.Hold(0)
	f.writer.FailCall(0)

	var wg sync.WaitGroup
	errs := make(chan error, 1)
	f.startMove(t, &wg, model.StatusDone, errs)

	edited, ok := f.tasks.Get(f.id)
	require.True(t, ok)
	require.Equal(t, model.StatusDone, edited.Status)
	edited.Title = "Write the docs"
	require.NoError(t, f.tasks.Update(context.Background(), edited))

	release()
	wg.Wait()
	assert.ErrorIs(t, <-errs, testutil.ErrInjected)

	stored, cached := f.states(t)
	assert.Equal(t, model.StatusDone, stored)
	assert.Equal(t, model.StatusDone, cached)
	assert.Equal(t, []string{`Could not move "Write docs" to Done.`}, f.rec.Errors())
}

func TestCancelledMoveDoesNotWaitForEarlierWrite(t *testing.T) {
	f := newFixture(t)
	release := f.writer.Hold(0)
	defer release()

	var wg sync.WaitGroup
	errs := make(chan error, 1)
	startMove(t, f, &wg, model.StatusInProgress, errs)
	require.Eventually(t, func() bool {
		return len(f.writer.Calls()) == 1
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		cancelled <- f.engine.MoveStatus(ctx, "t1", model.StatusDone)
	}()
	require.Eventually(t, func() bool {
		return f.engine.Pending("t1") == 2
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-cancelled:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled move still waiting for the earlier write")
	}
	assert.Equal(t, 1, f.engine.Pending("t1"))

	release()
	wg.Wait()
	require.NoError(t, <-errs)

	assert.Len(t, f.writer.Calls(), 1)
	assert.Equal(t, model.StatusInProgress, f.status(t))
	assert.Equal(t, 0, f.engine.Pending("t1"))
}

func TestOverlappingTogglesReportOnlyActualUndo(t *testing.T) {
	f := newFixture(t)
	release := f.writer.Hold(0)
	f.writer.FailCall(0)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.engine.ToggleSubtask(context.Background(), "t1", i)
		}()
		require.Eventually(t, func() bool {
			return f.engine.Pending("t1") == i+1
		}, time.Second, time.Millisecond)
	}

	release()
	wg.Wait()
	close(errs)
	var failed int
	for err := range errs {
		if err != nil {
			failed++
			assert.ErrorIs(t, err, testutil.ErrInjected)
		}
	}
	assert.Equal(t, 1, failed)

	task, _ := f.tasks.Get("t1")
	assert.True(t, task.Subtasks[0].Completed)
	assert.True(t, task.Subtasks[1].Completed)
	assert.Equal(t, []string{"Could not update the subtask."}, f.rec.Errors())
	calls := f.writer.Calls()
	require.Len(t, calls, 2)
	assert.True(t, calls[1].Patch.Subtasks[0].Completed)
}
