package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/kanban/internal/model"
)

// Gateway is the typed schema boundary over a DocumentStore. Payloads are
// decoded into model types here; malformed records never leave it.
type Gateway struct {
	docs    DocumentStore
	timeout time.Duration
}

// NewGateway wraps docs. A positive timeout bounds every store call.
func NewGateway(docs DocumentStore, timeout time.Duration) *Gateway {
	if docs == nil {
		panic("store.NewGateway: document store is nil")
	}
	return &Gateway{docs: docs, timeout: timeout}
}

// Close closes the underlying document store.
func (g *Gateway) Close() error {
	return g.docs.Close()
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

// CreateTask persists t and returns the store-assigned id.
func (g *Gateway) CreateTask(ctx context.Context, t model.Task) (string, error) {
	data, err := json.Marshal(model.TaskToRecord(t))
	if err != nil {
		return "", fmt.Errorf("encoding task: %w", err)
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.docs.CreateRecord(ctx, model.CollectionTasks, data)
}

// GetTask loads a single task.
func (g *Gateway) GetTask(ctx context.Context, id string) (model.Task, error) {
	if id == "" {
		return model.Task{}, ErrNoID
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	data, err := g.docs.GetRecord(ctx, model.CollectionTasks, id)
	if err != nil {
		return model.Task{}, err
	}
	return model.DecodeTask(id, data)
}

// ListTasks returns all well-formed tasks in store order.
func (g *Gateway) ListTasks(ctx context.Context) ([]model.Task, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	docs, err := g.docs.ListRecords(ctx, model.CollectionTasks)
	if err != nil {
		return nil, err
	}

	tasks := make([]model.Task, 0, len(docs))
	for _, d := range docs {
		t, err := model.DecodeTask(d.ID, d.Data)
		if err != nil {
			logMalformed(model.CollectionTasks, d.ID, err)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// UpdateTask applies a partial update.
func (g *Gateway) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) error {
	if id == "" {
		return ErrNoID
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.docs.UpdateRecord(ctx, model.CollectionTasks, id, patch.Fields())
}

// DeleteTask removes a task.
func (g *Gateway) DeleteTask(ctx context.Context, id string) error {
	if id == "" {
		return ErrNoID
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.docs.DeleteRecord(ctx, model.CollectionTasks, id)
}

// CreateContact persists c and returns the store-assigned id.
func (g *Gateway) CreateContact(ctx context.Context, c model.Contact) (string, error) {
	data, err := json.Marshal(model.ContactToRecord(c))
	if err != nil {
		return "", fmt.Errorf("encoding contact: %w", err)
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.docs.CreateRecord(ctx, model.CollectionUsers, data)
}

// GetContact loads a single contact.
func (g *Gateway) GetContact(ctx context.Context, id string) (model.Contact, error) {
	if id == "" {
		return model.Contact{}, ErrNoID
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	data, err := g.docs.GetRecord(ctx, model.CollectionUsers, id)
	if err != nil {
		return model.Contact{}, err
	}
	return model.DecodeContact(id, data)
}

// ListContacts returns all well-formed contacts in store order.
func (g *Gateway) ListContacts(ctx context.Context) ([]model.Contact, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	docs, err := g.docs.ListRecords(ctx, model.CollectionUsers)
	if err != nil {
		return nil, err
	}

	contacts := make([]model.Contact, 0, len(docs))
	for _, d := range docs {
		c, err := model.DecodeContact(d.ID, d.Data)
		if err != nil {
			logMalformed(model.CollectionUsers, d.ID, err)
			continue
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

// UpdateContact applies a partial update.
func (g *Gateway) UpdateContact(ctx context.Context, id string, patch model.ContactPatch) error {
	if id == "" {
		return ErrNoID
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.docs.UpdateRecord(ctx, model.CollectionUsers, id, patch.Fields())
}

// DeleteContact removes a contact.
func (g *Gateway) DeleteContact(ctx context.Context, id string) error {
	if id == "" {
		return ErrNoID
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.docs.DeleteRecord(ctx, model.CollectionUsers, id)
}

func logMalformed(collection, id string, err error) {
	log.WithFields(log.Fields{
		"collection": collection,
		"id":         id,
	}).WithError(err).Warn("skipping malformed record")
}
