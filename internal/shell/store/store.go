package store

import (
	"context"
	"time"
)

// =============================================================================
// Store Interface
// =============================================================================

// DocumentStore is a keyed document store addressed by collection and ID.
// Document bodies are JSON objects; the store does not interpret them beyond
// merging partial updates.
type DocumentStore interface {
	// Create inserts a new document. Returns ErrDuplicateID if the key exists.
	Create(ctx context.Context, collection string, doc *Document) error

	// Get returns one document. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// UpdateFields merges fields into the stored body. Keys not present in
	// fields are left untouched. Returns ErrNotFound if the document does not exist.
	UpdateFields(ctx context.Context, collection, id string, fields map[string]any) error

	// List returns documents in a collection ordered by creation time.
	List(ctx context.Context, collection string, opts ListOptions) ([]Document, error)

	// Transaction support
	WithTx(ctx context.Context, fn func(DocumentStore) error) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// Document is one stored record.
type Document struct {
	ID        string
	Data      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines pagination options.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  100,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
