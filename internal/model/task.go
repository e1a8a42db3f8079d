package model

import "time"

// Status is the board lane a task belongs to.
type Status string

// Task status constants. These are the only lanes the board renders.
const (
	StatusTodo          Status = "todo"
	StatusInProgress    Status = "inProgress"
	StatusAwaitFeedback Status = "awaitFeedback"
	StatusDone          Status = "done"
)

// Lanes returns the four board lanes in display order.
func Lanes() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusAwaitFeedback, StatusDone}
}

// Valid reports whether s names one of the four lanes.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusAwaitFeedback, StatusDone:
		return true
	}
	return false
}

// Label returns the human-readable lane title.
func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "To do"
	case StatusInProgress:
		return "In progress"
	case StatusAwaitFeedback:
		return "Await feedback"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// Priority is the urgency of a task.
type Priority string

// Priority constants.
const (
	PriorityUrgent Priority = "urgent"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityUrgent || p == PriorityMedium || p == PriorityLow
}

// Subtask is a checklist entry owned by its task.
type Subtask struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Attachment is a file stored inline with a task. Data holds the
// base64 encoded payload.
type Attachment struct {
	Name string `json:"name"`
	Data string `json:"data"`
	Type string `json:"type"`
}

// Task is a card on the board.
type Task struct {
	// ID is the store-assigned key. Empty until the task is persisted.
	ID string

	Title       string
	Description string

	// AssignedTo holds contact ids in assignment order.
	AssignedTo []string

	// Assignees is resolved from AssignedTo when the task list is fetched.
	// Ids that no longer resolve are left out. Never persisted.
	Assignees []Contact

	Files []Attachment

	// DueDate is epoch milliseconds, 0 when unset.
	DueDate int64

	Priority Priority
	Category string
	Subtasks []Subtask
	Status   Status

	// CreatedAt is epoch milliseconds.
	CreatedAt int64
}

// NewTask returns a task with the defaults the create form starts from.
func NewTask() Task {
	return Task{
		AssignedTo: []string{},
		Files:      []Attachment{},
		Priority:   PriorityMedium,
		Subtasks:   []Subtask{},
		Status:     StatusTodo,
	}
}

// IsPersisted reports whether the task has a store id.
func (t Task) IsPersisted() bool {
	return t.ID != ""
}

// Normalize replaces nil sequences with empty ones.
func (t *Task) Normalize() {
	if t.AssignedTo == nil {
		t.AssignedTo = []string{}
	}
	if t.Files == nil {
		t.Files = []Attachment{}
	}
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
	}
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	c.AssignedTo = append([]string{}, t.AssignedTo...)
	c.Files = append([]Attachment{}, t.Files...)
	c.Subtasks = append([]Subtask{}, t.Subtasks...)
	if t.Assignees != nil {
		c.Assignees = append([]Contact{}, t.Assignees...)
	}
	return c
}

// Due returns the due date as a time, and false when unset.
func (t Task) Due() (time.Time, bool) {
	if t.DueDate == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(t.DueDate), true
}

// Overdue reports whether the task is past its due date and not done.
func (t Task) Overdue(now time.Time) bool {
	due, ok := t.Due()
	return ok && due.Before(now) && t.Status != StatusDone
}

// SubtaskProgress returns the number of completed subtasks and the total.
func (t Task) SubtaskProgress() (done, total int) {
	for _, s := range t.Subtasks {
		if s.Completed {
			done++
		}
	}
	return done, len(t.Subtasks)
}
