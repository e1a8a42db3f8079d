package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/notify"
	"github.com/nhle/kanban/tests/testutil"
)

func TestPrintBoard(t *testing.T) {
	tasks := []model.Task{
		{
			ID: "t1", Title: "Write docs", Priority: model.PriorityLow, Status: model.StatusTodo,
			Subtasks:  []model.Subtask{{Completed: true}, {}},
			Assignees: []model.Contact{{Name: "Eva Fischer"}},
		},
		{ID: "t2", Title: "Release", Priority: model.PriorityUrgent, Status: model.StatusDone},
	}

	var buf bytes.Buffer
	printBoard(&buf, tasks, "")
	out := buf.String()

	assert.Contains(t, out, "To do (1)")
	assert.Contains(t, out, "t1  Write docs [low] 1/2 EF")
	assert.Contains(t, out, "In progress (0)")
	assert.Contains(t, out, "Done (1)")

	buf.Reset()
	printBoard(&buf, tasks, "release")
	assert.Contains(t, buf.String(), "To do (0)")
}

func TestWireRefreshLoadsBoth(t *testing.T) {
	ctx := context.Background()
	cfg := model.DefaultConfig()
	docs := testutil.NewTestStore(t)
	svc := wire(cfg, docs, notify.LogNotifier{}, nil)

	_, err := svc.contacts.Create(ctx, model.Contact{Name: "Eva"})
	require.NoError(t, err)
	_, err = svc.tasks.Create(ctx, model.Task{Title: "x"})
	require.NoError(t, err)

	res := svc.refresher.RefreshNow(ctx)
	require.NoError(t, res.Error)
	assert.Equal(t, 1, res.Contacts)
	assert.Equal(t, 1, res.Tasks)
}

func TestMoveCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "board.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := model.DefaultConfig()
	cfg.Store.Path = dbPath
	cfg.Log.File = ""
	require.NoError(t, model.SaveConfig(cfgPath, cfg))

	ctx := context.Background()
	flags := globalFlags{configPath: cfgPath}
	svc, closeFn, err := headless(ctx, &flags, false)
	require.NoError(t, err)
	created, err := svc.tasks.Create(ctx, model.Task{Title: "x"})
	require.NoError(t, err)
	closeFn()

	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--config", cfgPath, "move", created.ID, "done"})
	require.NoError(t, root.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "moved "+created.ID+" to Done")

	root = rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--config", cfgPath, "move", created.ID, "archived"})
	assert.ErrorContains(t, root.ExecuteContext(ctx), `unknown status "archived"`)
}
