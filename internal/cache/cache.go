// Package cache holds the in-memory task and contact collections that
// mirror the document store. Each cache is the only mutator of its
// collection and publishes a fresh copy of the whole collection after
// every change.
package cache

import (
	"context"

	"github.com/nhle/kanban/internal/model"
)

// TaskStore is the subset of the gateway the task cache needs.
type TaskStore interface {
	CreateTask(ctx context.Context, t model.Task) (string, error)
	ListTasks(ctx context.Context) ([]model.Task, error)
	UpdateTask(ctx context.Context, id string, patch model.TaskPatch) error
	DeleteTask(ctx context.Context, id string) error
}

// ContactStore is the subset of the gateway the contact cache needs.
type ContactStore interface {
	CreateContact(ctx context.Context, c model.Contact) (string, error)
	GetContact(ctx context.Context, id string) (model.Contact, error)
	ListContacts(ctx context.Context) ([]model.Contact, error)
	UpdateContact(ctx context.Context, id string, patch model.ContactPatch) error
	DeleteContact(ctx context.Context, id string) error
}

// Identity reports the id of the signed-in contact, or "" when logged out.
type Identity interface {
	Current() string
}

// PendingWrites tracks task writes that the store has not confirmed yet.
// Both methods are called with the task cache locked.
type PendingWrites interface {
	// Overlay replaces fields of a freshly fetched task with the values
	// of writes still in flight.
	Overlay(t *model.Task)

	// Confirmed records the status and subtasks of a task the store has
	// just saved in full.
	Confirmed(t model.Task)
}

// ContactResolver looks up a contact by id.
type ContactResolver interface {
	Resolve(ctx context.Context, id string) (model.Contact, bool)
}

func cloneTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

func cloneContacts(contacts []model.Contact) []model.Contact {
	return append([]model.Contact{}, contacts...)
}
