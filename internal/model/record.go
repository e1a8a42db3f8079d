package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Collection names in the document store.
const (
	CollectionTasks = "tasks"
	CollectionUsers = "users"
)

// ErrMalformedRecord is returned when a stored payload does not match
// the record schema of its collection.
var ErrMalformedRecord = errors.New("malformed record")

// TaskRecord is the persisted shape of a task. The id is the store key
// and is never part of the document.
type TaskRecord struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	AssignedTo  []string     `json:"assignedTo"`
	DueDate     int64        `json:"dueDate"`
	Priority    Priority     `json:"priority"`
	Category    string       `json:"category"`
	Subtasks    []Subtask    `json:"subtasks"`
	Status      Status       `json:"status"`
	CreatedAt   int64        `json:"createdAt"`
	Files       []Attachment `json:"files"`
}

// ContactRecord is the persisted shape of a contact.
type ContactRecord struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	IconColor      string `json:"iconColor"`
	IsGuest        bool   `json:"isGuest,omitempty"`
}

// TaskToRecord converts a task to its persisted shape.
func TaskToRecord(t Task) TaskRecord {
	t.Normalize()
	return TaskRecord{
		Title:       t.Title,
		Description: t.Description,
		AssignedTo:  append([]string{}, t.AssignedTo...),
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		Category:    t.Category,
		Subtasks:    append([]Subtask{}, t.Subtasks...),
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		Files:       append([]Attachment{}, t.Files...),
	}
}

// Task converts the record back into a task with the given id.
func (r TaskRecord) Task(id string) Task {
	t := Task{
		ID:          id,
		Title:       r.Title,
		Description: r.Description,
		AssignedTo:  r.AssignedTo,
		DueDate:     r.DueDate,
		Priority:    r.Priority,
		Category:    r.Category,
		Subtasks:    r.Subtasks,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		Files:       r.Files,
	}
	t.Normalize()
	return t
}

// ContactToRecord converts a contact to its persisted shape.
func ContactToRecord(c Contact) ContactRecord {
	return ContactRecord{
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		ProfilePicture: c.ProfilePicture,
		IconColor:      c.IconColor,
		IsGuest:        c.IsGuest,
	}
}

// Contact converts the record back into a contact with the given id.
func (r ContactRecord) Contact(id string) Contact {
	return Contact{
		ID:             id,
		Name:           r.Name,
		Email:          r.Email,
		Phone:          r.Phone,
		ProfilePicture: r.ProfilePicture,
		IconColor:      r.IconColor,
		IsGuest:        r.IsGuest,
	}
}

// DecodeTask parses and validates a task document.
func DecodeTask(id string, data []byte) (Task, error) {
	var r TaskRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return Task{}, fmt.Errorf("%w: task %s: %v", ErrMalformedRecord, id, err)
	}
	if strings.TrimSpace(r.Title) == "" {
		return Task{}, fmt.Errorf("%w: task %s: missing title", ErrMalformedRecord, id)
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if !r.Priority.Valid() {
		return Task{}, fmt.Errorf("%w: task %s: unknown priority %q", ErrMalformedRecord, id, r.Priority)
	}
	if r.Status == "" {
		r.Status = StatusTodo
	}
	return r.Task(id), nil
}

// DecodeContact parses and validates a contact document.
func DecodeContact(id string, data []byte) (Contact, error) {
	var r ContactRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return Contact{}, fmt.Errorf("%w: user %s: %v", ErrMalformedRecord, id, err)
	}
	if strings.TrimSpace(r.Name) == "" {
		return Contact{}, fmt.Errorf("%w: user %s: missing name", ErrMalformedRecord, id)
	}
	return r.Contact(id), nil
}

// TaskPatch is a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	AssignedTo  []string
	DueDate     *int64
	Priority    *Priority
	Category    *string
	Subtasks    []Subtask
	Status      *Status
	Files       []Attachment
}

// Fields renders the patch as the partial document sent to the store.
// Slice fields are included when non-nil.
func (p TaskPatch) Fields() map[string]any {
	f := make(map[string]any)
	if p.Title != nil {
		f["title"] = *p.Title
	}
	if p.Description != nil {
		f["description"] = *p.Description
	}
	if p.AssignedTo != nil {
		f["assignedTo"] = p.AssignedTo
	}
	if p.DueDate != nil {
		f["dueDate"] = *p.DueDate
	}
	if p.Priority != nil {
		f["priority"] = *p.Priority
	}
	if p.Category != nil {
		f["category"] = *p.Category
	}
	if p.Subtasks != nil {
		f["subtasks"] = p.Subtasks
	}
	if p.Status != nil {
		f["status"] = *p.Status
	}
	if p.Files != nil {
		f["files"] = p.Files
	}
	return f
}

// FullTaskPatch builds a patch that overwrites every editable field of t.
func FullTaskPatch(t Task) TaskPatch {
	t.Normalize()
	return TaskPatch{
		Title:       &t.Title,
		Description: &t.Description,
		AssignedTo:  t.AssignedTo,
		DueDate:     &t.DueDate,
		Priority:    &t.Priority,
		Category:    &t.Category,
		Subtasks:    t.Subtasks,
		Status:      &t.Status,
		Files:       t.Files,
	}
}

// ContactPatch is a partial contact update. Nil fields are left untouched.
type ContactPatch struct {
	Name           *string
	Email          *string
	Phone          *string
	ProfilePicture *string
}

// Fields renders the patch as a partial document.
func (p ContactPatch) Fields() map[string]any {
	f := make(map[string]any)
	if p.Name != nil {
		f["name"] = *p.Name
	}
	if p.Email != nil {
		f["email"] = *p.Email
	}
	if p.Phone != nil {
		f["phone"] = *p.Phone
	}
	if p.ProfilePicture != nil {
		f["profilePicture"] = *p.ProfilePicture
	}
	return f
}
