package board

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/kanban/internal/model"
)

type move struct {
	id     string
	status model.Status
}

type fakeMover struct {
	moves []move
	err   error
}

func (f *fakeMover) MoveStatus(_ context.Context, id string, status model.Status) error {
	f.moves = append(f.moves, move{id, status})
	return f.err
}

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: "1", Title: "Write docs", Status: model.StatusTodo},
		{ID: "2", Title: "Fix login", Description: "Guest DOCS link broken", Status: model.StatusInProgress},
		{ID: "3", Title: "Release", Status: model.StatusDone},
		{ID: "4", Title: "Legacy", Status: model.Status("archived")},
		{ID: "5", Title: "Review docs", Status: model.StatusTodo},
	}
}

func ids(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestPartitionKeepsCacheOrder(t *testing.T) {
	lanes := Partition(sampleTasks(), "")

	require.Len(t, lanes, 4)
	assert.Equal(t, []string{"1", "4", "5"}, ids(lanes[model.StatusTodo]))
	assert.Equal(t, []string{"2"}, ids(lanes[model.StatusInProgress]))
	assert.Empty(t, lanes[model.StatusAwaitFeedback])
	assert.Equal(t, []string{"3"}, ids(lanes[model.StatusDone]))
}

func TestSearchMatchesTitleOrDescription(t *testing.T) {
	got := Search(sampleTasks(), "  Docs ")
	assert.Equal(t, []string{"1", "2", "5"}, ids(got))

	assert.Len(t, Search(sampleTasks(), ""), 5)
	assert.Empty(t, Search(sampleTasks(), "nothing"))
}

func TestLaneFiltersByQuery(t *testing.T) {
	assert.Equal(t, []string{"1", "5"}, ids(Lane(sampleTasks(), model.StatusTodo, "docs")))
	assert.Empty(t, Lane(sampleTasks(), model.StatusDone, "docs"))
}

func TestNeighborClamps(t *testing.T) {
	assert.Equal(t, model.StatusInProgress, Neighbor(model.StatusTodo, 1))
	assert.Equal(t, model.StatusTodo, Neighbor(model.StatusTodo, -1))
	assert.Equal(t, model.StatusDone, Neighbor(model.StatusAwaitFeedback, 5))
}

func TestDragDropMovesAndResets(t *testing.T) {
	m := &fakeMover{}
	d := NewDrag(m)
	task := &model.Task{ID: "1", Status: model.StatusTodo}

	d.Enter(model.StatusDone)
	assert.False(t, d.Highlighted(model.StatusDone), "no drag in progress")

	d.Start(task)
	d.Enter(model.StatusInProgress)
	d.Enter(model.StatusDone)
	d.Leave(model.StatusInProgress)
	assert.False(t, d.Highlighted(model.StatusInProgress))
	assert.True(t, d.Highlighted(model.StatusDone))

	require.NoError(t, d.Drop(context.Background(), model.StatusDone))
	assert.Equal(t, []move{{"1", model.StatusDone}}, m.moves)
	assert.Nil(t, d.Dragged())
	assert.False(t, d.Highlighted(model.StatusDone))
}

func TestDragDropFailureStillResets(t *testing.T) {
	boom := errors.New("boom")
	d := NewDrag(&fakeMover{err: boom})
	d.Start(&model.Task{ID: "1"})
	d.Enter(model.StatusDone)

	assert.ErrorIs(t, d.Drop(context.Background(), model.StatusDone), boom)
	assert.Nil(t, d.Dragged())
	assert.False(t, d.Highlighted(model.StatusDone))
}

func TestDropWithoutDragIsNoop(t *testing.T) {
	m := &fakeMover{}
	d := NewDrag(m)

	require.NoError(t, d.Drop(context.Background(), model.StatusDone))
	assert.Empty(t, m.moves)
}

func TestCancelClearsDrag(t *testing.T) {
	m := &fakeMover{}
	d := NewDrag(m)
	d.Start(&model.Task{ID: "1"})
	d.Enter(model.StatusDone)

	d.Cancel()
	assert.Nil(t, d.Dragged())
	assert.False(t, d.Highlighted(model.StatusDone))
	assert.Empty(t, m.moves)
}

var laneQueries = []string{"", "   ", "\t", "docs", "  DOCS  ", "legacy", "guest", "e", "no match"}

func TestLaneAndSearchCommute(t *testing.T) {
	tasks := sampleTasks()
	for _, q := range laneQueries {
		for _, lane := range model.Lanes() {
			searchFirst := Lane(Search(tasks, q), lane, "")
			laneFirst := Search(Lane(tasks, lane, ""), q)
			assert.Equal(t, ids(searchFirst), ids(laneFirst), "query %q lane %s", q, lane)
			assert.Equal(t, ids(searchFirst), ids(Lane(tasks, lane, q)), "query %q lane %s", q, lane)
		}
	}
}

func TestLanesPartitionFilteredTasks(t *testing.T) {
	tasks := sampleTasks()
	for _, q := range laneQueries {
		lanes := Partition(tasks, q)
		require.Len(t, lanes, 4, "query %q", q)

		seen := make(map[string]model.Status)
		total := 0
		for _, lane := range model.Lanes() {
			for _, task := range lanes[lane] {
				prev, dup := seen[task.ID]
				assert.False(t, dup, "query %q: task %s in %s and %s", q, task.ID, prev, lane)
				seen[task.ID] = lane
				total++
			}
			assert.Equal(t, ids(Lane(tasks, lane, q)), ids(lanes[lane]), "query %q lane %s", q, lane)
		}

		filtered := Search(tasks, q)
		assert.Equal(t, len(filtered), total, "query %q", q)
		for _, task := range filtered {
			assert.Contains(t, seen, task.ID, "query %q", q)
		}
	}
}
