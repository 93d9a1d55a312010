// Package store is the document database the storefront reads and writes:
// collection-scoped equality queries, keyed writes, partial updates,
// transactions and live queries.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("store: document not found")
	ErrAlreadyExists = errors.New("store: document already exists")
	ErrWatchStopped  = errors.New("store: watch stopped")
)

// Document is one stored record. Data never contains the ID.
type Document struct {
	ID   string
	Data map[string]any
}

// Filter is an equality condition on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Where builds an equality filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

type Store interface {
	List(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	Set(ctx context.Context, collection, id string, data map[string]any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
	Watch(ctx context.Context, collection string, filters ...Filter) (Watcher, error)
}

// Tx is the view of the store inside RunTransaction. All reads must happen
// before the first write.
type Tx interface {
	Get(collection, id string) (Document, error)
	Create(collection, id string, data map[string]any) error
	Update(collection, id string, fields map[string]any) error
}

// Watcher yields full query results each time they change.
type Watcher interface {
	// Next blocks until the next result set. The first call returns the
	// current state. After Stop it returns ErrWatchStopped.
	Next() ([]Document, error)
	Stop()
}
