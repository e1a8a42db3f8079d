package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/notify"
	"github.com/nhle/kanban/internal/observable"
	"github.com/nhle/kanban/internal/store"
)

// TaskCache mirrors the tasks collection.
type TaskCache struct {
	store    TaskStore
	contacts ContactResolver
	notifier notify.Notifier
	now      func() time.Time

	mu      sync.Mutex
	tasks   []model.Task
	pending PendingWrites
	subject *observable.Subject[[]model.Task]
}

// NewTaskCache builds an empty cache. Assignees are resolved through
// contacts when tasks are fetched or created.
func NewTaskCache(s TaskStore, contacts ContactResolver, n notify.Notifier) *TaskCache {
	return &TaskCache{
		store:    s,
		contacts: contacts,
		notifier: n,
		now:      time.Now,
		subject:  observable.NewSubject([]model.Task{}),
	}
}

// Subscribe delivers the current task list now and after every change.
// Received slices must not be modified.
func (c *TaskCache) Subscribe(fn func([]model.Task)) (cancel func()) {
	return c.subject.Subscribe(fn)
}

// Track registers the tracker of in-flight writes. Fetched tasks keep
// their pending values and full saves update its confirmed values.
func (c *TaskCache) Track(p PendingWrites) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = p
}

// Snapshot returns a copy of the current task list.
func (c *TaskCache) Snapshot() []model.Task {
	return cloneTasks(c.subject.Value())
}

// Get returns a copy of the cached task with the given id.
func (c *TaskCache) Get(id string) (model.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return model.Task{}, false
}

// FetchAll replaces the cache with the tasks in the store.
func (c *TaskCache) FetchAll(ctx context.Context) ([]model.Task, error) {
	tasks, err := c.store.ListTasks(ctx)
	if err != nil {
		c.notifier.Error("Tasks could not be loaded.")
		return nil, fmt.Errorf("fetching tasks: %w", err)
	}

	for i := range tasks {
		tasks[i].Assignees = c.resolveAssignees(ctx, tasks[i].AssignedTo)
	}

	c.mu.Lock()
	if c.pending != nil {
		for i := range tasks {
			c.pending.Overlay(&tasks[i])
		}
	}
	c.tasks = tasks
	c.publishLocked()
	c.mu.Unlock()

	return cloneTasks(tasks), nil
}

// Mutate applies fn to the cached task with the given id and republishes
// the collection. fn receives a copy; returning false discards it. Mutate
// reports whether the change was applied.
func (c *TaskCache) Mutate(id string, fn func(t *model.Task) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.tasks {
		if c.tasks[i].ID != id {
			continue
		}
		next := c.tasks[i].Clone()
		if !fn(&next) {
			return false
		}
		next.Normalize()
		c.tasks[i] = next
		c.publishLocked()
		return true
	}
	return false
}

// SetStatus writes status into the cached task and returns the status it
// replaced.
func (c *TaskCache) SetStatus(id string, status model.Status) (prev model.Status, ok bool) {
	ok = c.Mutate(id, func(t *model.Task) bool {
		prev = t.Status
		t.Status = status
		return true
	})
	return prev, ok
}

// SetSubtasks replaces the subtask list of the cached task and returns
// the list it replaced.
func (c *TaskCache) SetSubtasks(id string, subtasks []model.Subtask) (prev []model.Subtask, ok bool) {
	ok = c.Mutate(id, func(t *model.Task) bool {
		prev = t.Subtasks
		t.Subtasks = append([]model.Subtask{}, subtasks...)
		return true
	})
	return prev, ok
}

// Upsert replaces the cached task with the same id or appends t.
func (c *TaskCache) Upsert(t model.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsertLocked(t)
}

func (c *TaskCache) upsertLocked(t model.Task) {
	t = t.Clone()
	t.Normalize()
	for i := range c.tasks {
		if c.tasks[i].ID == t.ID {
			c.tasks[i] = t
			c.publishLocked()
			return
		}
	}
	c.tasks = append(c.tasks, t)
	c.publishLocked()
}

// Remove drops the cached task with the given id.
func (c *TaskCache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			c.tasks = append(c.tasks[:i:i], c.tasks[i+1:]...)
			c.publishLocked()
			return true
		}
	}
	return false
}

// Create persists a new task and appends it to the board.
func (c *TaskCache) Create(ctx context.Context, t model.Task) (model.Task, error) {
	t.Normalize()
	t.ID = ""
	if t.CreatedAt == 0 {
		t.CreatedAt = c.now().UnixMilli()
	}
	if t.Status == "" {
		t.Status = model.StatusTodo
	}

	id, err := c.store.CreateTask(ctx, t)
	if err != nil {
		c.notifier.Error("Task could not be created.")
		return model.Task{}, fmt.Errorf("creating task: %w", err)
	}
	t.ID = id
	t.Assignees = c.resolveAssignees(ctx, t.AssignedTo)

	c.Upsert(t)
	c.notifier.Success("Task added to board")
	return t.Clone(), nil
}

// Update persists every editable field of t and replaces the cached entry.
func (c *TaskCache) Update(ctx context.Context, t model.Task) error {
	if !t.IsPersisted() {
		return fmt.Errorf("updating task: %w", store.ErrNoID)
	}
	if err := c.store.UpdateTask(ctx, t.ID, model.FullTaskPatch(t)); err != nil {
		c.notifier.Error("Task could not be saved.")
		return fmt.Errorf("updating task %s: %w", t.ID, err)
	}
	t.Assignees = c.resolveAssignees(ctx, t.AssignedTo)

	c.mu.Lock()
	if c.pending != nil {
		c.pending.Confirmed(t.Clone())
	}
	c.upsertLocked(t)
	c.mu.Unlock()

	c.notifier.Success("Task saved")
	return nil
}

// Delete removes the task from the store and the board.
func (c *TaskCache) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("deleting task: %w", store.ErrNoID)
	}
	if err := c.store.DeleteTask(ctx, id); err != nil {
		c.notifier.Error("Task could not be deleted.")
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	c.Remove(id)
	c.notifier.Success("Task deleted")
	return nil
}

func (c *TaskCache) resolveAssignees(ctx context.Context, ids []string) []model.Contact {
	out := make([]model.Contact, 0, len(ids))
	if c.contacts == nil {
		return out
	}
	for _, id := range ids {
		if ct, ok := c.contacts.Resolve(ctx, id); ok {
			out = append(out, ct)
		}
	}
	return out
}

func (c *TaskCache) publishLocked() {
	c.subject.Publish(cloneTasks(c.tasks))
}
