// Package mutation applies task changes to the cache before the store
// confirms them and reverts them when the store write fails.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"slices"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/kanban/internal/cache"
	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/notify"
)

var (
	// ErrNotPersisted is returned for tasks without a store id. No store
	// call is made and nothing is reported to the user.
	ErrNotPersisted = errors.New("task is not persisted")

	// ErrUnknownTask is returned when the task is not in the cache.
	ErrUnknownTask = errors.New("task is not cached")

	// ErrSubtaskIndex is returned for a subtask index outside the list.
	ErrSubtaskIndex = errors.New("subtask index out of range")

	// ErrInvalidStatus is returned for a target that is not a board lane.
	ErrInvalidStatus = errors.New("status is not a board lane")
)

// TaskWriter persists partial task updates.
type TaskWriter interface {
	UpdateTask(ctx context.Context, id string, patch model.TaskPatch) error
}

// Engine performs optimistic task mutations.
//
// Local changes apply immediately. Remote writes for one task run in the
// order their local changes were applied. When a write fails and no later
// write for the same field is pending, the cached field is restored to the
// last value the store confirmed. Once the last pending write for a field
// settles, the cached field is set to the confirmed value whatever a
// refresh or save put there meanwhile.
type Engine struct {
	tasks         *cache.TaskCache
	store         TaskWriter
	notifier      notify.Notifier
	notifySuccess bool

	status   *writeQueue[model.Status]
	subtasks *writeQueue[[]model.Subtask]
}

// Option configures an Engine.
type Option func(*Engine)

// WithSuccessNotifications makes the engine report confirmed writes.
func WithSuccessNotifications(on bool) Option {
	return func(e *Engine) { e.notifySuccess = on }
}

// New builds an engine over the task cache.
func New(tasks *cache.TaskCache, w TaskWriter, n notify.Notifier, opts ...Option) *Engine {
	e := &Engine{
		tasks:    tasks,
		store:    w,
		notifier: n,
		status:   newWriteQueue[model.Status](),
		subtasks: newWriteQueue[[]model.Subtask](),
	}
	for _, opt := range opts {
		opt(e)
	}
	tasks.Track(e)
	return e
}

// Overlay keeps the values of in-flight writes on a freshly fetched task.
func (e *Engine) Overlay(t *model.Task) {
	if v, ok := e.status.latest(t.ID); ok {
		t.Status = v
	}
	if v, ok := e.subtasks.latest(t.ID); ok {
		t.Subtasks = slices.Clone(v)
	}
}

// Confirmed records a task saved in full as the value later rollbacks
// restore.
func (e *Engine) Confirmed(t model.Task) {
	e.status.confirm(t.ID, t.Status)
	e.subtasks.confirm(t.ID, slices.Clone(t.Subtasks))
}

// MoveStatus moves a task to another lane. Moving a task to the lane it
// is already in does nothing.
func (e *Engine) MoveStatus(ctx context.Context, taskID string, status model.Status) error {
	if taskID == "" {
		return ErrNotPersisted
	}
	if !status.Valid() {
		return fmt.Errorf("moving task %s to %q: %w", taskID, status, ErrInvalidStatus)
	}

	var (
		seen  bool
		title string
		tk    *ticket
	)
	e.tasks.Mutate(taskID, func(t *model.Task) bool {
		seen = true
		if t.Status == status {
			return false
		}
		title = t.Title
		tk = e.status.join(taskID, t.Status, status)
		t.Status = status
		return true
	})
	if !seen {
		return fmt.Errorf("moving task %s: %w", taskID, ErrUnknownTask)
	}
	if tk == nil {
		return nil
	}

	err := tk.wait(ctx)
	if err == nil {
		err = e.store.UpdateTask(ctx, taskID, model.TaskPatch{Status: &status})
	}

	settled, reverted := false, false
	e.tasks.Mutate(taskID, func(t *model.Task) bool {
		settled = true
		last, confirmed := e.status.settle(tk, err == nil, status)
		if !last || t.Status == confirmed {
			return false
		}
		reverted = err != nil
		t.Status = confirmed
		return true
	})
	if !settled {
		e.status.settle(tk, err == nil, status)
	}

	if err != nil {
		log.WithFields(log.Fields{
			"task_id":  taskID,
			"status":   status,
			"reverted": reverted,
		}).WithError(err).Warn("status move failed")
		msg := fmt.Sprintf("Could not move %q to %s.", title, status.Label())
		if reverted {
			msg += " The change was undone."
		}
		e.notifier.Error(msg)
		return fmt.Errorf("moving task %s: %w", taskID, err)
	}
	if e.notifySuccess {
		e.notifier.Success(fmt.Sprintf("Moved %q to %s", title, status.Label()))
	}
	return nil
}

// ToggleSubtask flips the completed flag of one subtask and persists the
// whole subtask list.
func (e *Engine) ToggleSubtask(ctx context.Context, taskID string, index int) error {
	if taskID == "" {
		return ErrNotPersisted
	}

	var (
		seen       bool
		outOfRange bool
		written    []model.Subtask
		tk         *ticket
	)
	e.tasks.Mutate(taskID, func(t *model.Task) bool {
		seen = true
		if index < 0 || index >= len(t.Subtasks) {
			outOfRange = true
			return false
		}
		before := slices.Clone(t.Subtasks)
		t.Subtasks[index].Completed = !t.Subtasks[index].Completed
		written = slices.Clone(t.Subtasks)
		tk = e.subtasks.join(taskID, before, written)
		return true
	})
	switch {
	case !seen:
		return fmt.Errorf("toggling subtask of %s: %w", taskID, ErrUnknownTask)
	case outOfRange:
		return fmt.Errorf("toggling subtask %d of %s: %w", index, taskID, ErrSubtaskIndex)
	}

	err := tk.wait(ctx)
	if err == nil {
		err = e.store.UpdateTask(ctx, taskID, model.TaskPatch{Subtasks: written})
	}

	settled, reverted := false, false
	e.tasks.Mutate(taskID, func(t *model.Task) bool {
		settled = true
		last, confirmed := e.subtasks.settle(tk, err == nil, written)
		if !last || slices.Equal(t.Subtasks, confirmed) {
			return false
		}
		reverted = err != nil
		t.Subtasks = slices.Clone(confirmed)
		return true
	})
	if !settled {
		e.subtasks.settle(tk, err == nil, written)
	}

	if err != nil {
		log.WithFields(log.Fields{
			"task_id":  taskID,
			"index":    index,
			"reverted": reverted,
		}).WithError(err).Warn("subtask toggle failed")
		msg := "Could not update the subtask."
		if reverted {
			msg += " The change was undone."
		}
		e.notifier.Error(msg)
		return fmt.Errorf("toggling subtask %d of %s: %w", index, taskID, err)
	}
	return nil
}

// Pending reports how many remote writes are in flight for a task.
func (e *Engine) Pending(taskID string) int {
	return e.status.pending(taskID) + e.subtasks.pending(taskID)
}
