package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record does not exist in its collection.
var ErrNotFound = errors.New("record not found")

// ErrNoID is returned when an operation needs a store key and none was given.
var ErrNoID = errors.New("record has no id")

// Document is a stored record together with its key.
type Document struct {
	ID   string `db:"id"`
	Data []byte `db:"data"`
}

// DocumentStore is the remote CRUD boundary. Records are JSON documents
// grouped into collections; ids are assigned by the store.
type DocumentStore interface {
	// CreateRecord stores data and returns the new record id.
	CreateRecord(ctx context.Context, collection string, data []byte) (string, error)

	// GetRecord returns the record data, or ErrNotFound.
	GetRecord(ctx context.Context, collection, id string) ([]byte, error)

	// ListRecords returns all records of a collection in insertion order.
	ListRecords(ctx context.Context, collection string) ([]Document, error)

	// UpdateRecord shallow-merges the given top-level fields into the record.
	UpdateRecord(ctx context.Context, collection, id string, partial map[string]any) error

	// DeleteRecord removes the record, or returns ErrNotFound.
	DeleteRecord(ctx context.Context, collection, id string) error

	Close() error
}
