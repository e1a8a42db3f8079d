package store_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/store"
	"github.com/nhle/kanban/tests/testutil"
)

func newRedisStore(t *testing.T) *store.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := store.NewRedisStore(rc, "test")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// backends runs fn against every DocumentStore implementation.
func backends(t *testing.T, fn func(t *testing.T, s store.DocumentStore)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, testutil.NewTestStore(t)) })
	t.Run("redis", func(t *testing.T) { fn(t, newRedisStore(t)) })
}

func TestCreateGetRecord(t *testing.T) {
	backends(t, func(t *testing.T, s store.DocumentStore) {
		ctx := context.Background()
		id, err := s.CreateRecord(ctx, "tasks", []byte(`{"title":"a"}`))
		require.NoError(t, err)
		require.NotEmpty(t, id)

		data, err := s.GetRecord(ctx, "tasks", id)
		require.NoError(t, err)
		assert.JSONEq(t, `{"title":"a"}`, string(data))

		_, err = s.GetRecord(ctx, "users", id)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestListRecordsKeepsInsertionOrder(t *testing.T) {
	backends(t, func(t *testing.T, s store.DocumentStore) {
		ctx := context.Background()
		var ids []string
		for _, title := range []string{"c", "a", "b"} {
			id, err := s.CreateRecord(ctx, "tasks", []byte(`{"title":"`+title+`"}`))
			require.NoError(t, err)
			ids = append(ids, id)
		}
		_, err := s.CreateRecord(ctx, "users", []byte(`{"name":"x"}`))
		require.NoError(t, err)

		docs, err := s.ListRecords(ctx, "tasks")
		require.NoError(t, err)
		require.Len(t, docs, 3)
		for i, d := range docs {
			assert.Equal(t, ids[i], d.ID)
		}
	})
}

func TestUpdateRecordMergesTopLevelFields(t *testing.T) {
	backends(t, func(t *testing.T, s store.DocumentStore) {
		ctx := context.Background()
		id, err := s.CreateRecord(ctx, "tasks", []byte(`{"title":"a","status":"todo","subtasks":[{"title":"x","completed":false}]}`))
		require.NoError(t, err)

		err = s.UpdateRecord(ctx, "tasks", id, map[string]any{"status": "done"})
		require.NoError(t, err)

		data, err := s.GetRecord(ctx, "tasks", id)
		require.NoError(t, err)
		assert.JSONEq(t, `{"title":"a","status":"done","subtasks":[{"title":"x","completed":false}]}`, string(data))

		err = s.UpdateRecord(ctx, "tasks", "missing", map[string]any{"status": "done"})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestDeleteRecord(t *testing.T) {
	backends(t, func(t *testing.T, s store.DocumentStore) {
		ctx := context.Background()
		id, err := s.CreateRecord(ctx, "users", []byte(`{"name":"x"}`))
		require.NoError(t, err)

		require.NoError(t, s.DeleteRecord(ctx, "users", id))
		assert.ErrorIs(t, s.DeleteRecord(ctx, "users", id), store.ErrNotFound)

		docs, err := s.ListRecords(ctx, "users")
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}

func TestGatewayTaskRoundTrip(t *testing.T) {
	ctx := context.Background()
	gw := testutil.NewTestGateway(t)

	task := model.NewTask()
	task.Title = "Ship it"
	task.AssignedTo = []string{"u1"}
	task.Subtasks = []model.Subtask{{Title: "one"}}
	task.CreatedAt = 42

	id, err := gw.CreateTask(ctx, task)
	require.NoError(t, err)

	got, err := gw.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Ship it", got.Title)
	assert.Equal(t, []string{"u1"}, got.AssignedTo)
	assert.Equal(t, int64(42), got.CreatedAt)

	status := model.StatusDone
	require.NoError(t, gw.UpdateTask(ctx, id, model.TaskPatch{Status: &status}))
	got, err = gw.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, got.Status)
	assert.Equal(t, "Ship it", got.Title)

	require.NoError(t, gw.DeleteTask(ctx, id))
	_, err = gw.GetTask(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGatewaySkipsMalformedRecords(t *testing.T) {
	ctx := context.Background()
	docs := testutil.NewTestStore(t)
	gw := store.NewGateway(docs, time.Second)

	_, err := docs.CreateRecord(ctx, model.CollectionTasks, []byte(`{"description":"no title"}`))
	require.NoError(t, err)
	_, err = docs.CreateRecord(ctx, model.CollectionTasks, []byte(`not json`))
	require.NoError(t, err)
	good, err := gw.CreateTask(ctx, model.Task{Title: "ok"})
	require.NoError(t, err)

	tasks, err := gw.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, good, tasks[0].ID)
}

func TestGatewayRequiresID(t *testing.T) {
	ctx := context.Background()
	gw := testutil.NewTestGateway(t)

	_, err := gw.GetTask(ctx, "")
	assert.ErrorIs(t, err, store.ErrNoID)
	assert.ErrorIs(t, gw.UpdateTask(ctx, "", model.TaskPatch{}), store.ErrNoID)
	assert.ErrorIs(t, gw.DeleteContact(ctx, ""), store.ErrNoID)
}

func TestGatewayContactPatch(t *testing.T) {
	ctx := context.Background()
	gw := testutil.NewTestGateway(t)

	id, err := gw.CreateContact(ctx, model.Contact{Name: "Eva", Email: "eva@example.com", IconColor: "#FF7A00"})
	require.NoError(t, err)

	name := "Eva Fischer"
	require.NoError(t, gw.UpdateContact(ctx, id, model.ContactPatch{Name: &name}))

	got, err := gw.GetContact(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Eva Fischer", got.Name)
	assert.Equal(t, "eva@example.com", got.Email)
	assert.Equal(t, "#FF7A00", got.IconColor)
}

func TestTaskRecordWireFormat(t *testing.T) {
	ctx := context.Background()
	docs := testutil.NewTestStore(t)
	gw := store.NewGateway(docs, 0)

	id, err := gw.CreateTask(ctx, model.Task{Title: "x", Status: model.StatusInProgress})
	require.NoError(t, err)

	data, err := docs.GetRecord(ctx, model.CollectionTasks, id)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "inProgress", fields["status"])
	assert.Equal(t, []any{}, fields["assignedTo"])
	assert.NotContains(t, fields, "id")
}
