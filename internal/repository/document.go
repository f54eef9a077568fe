package repository

import (
	"context"
	"errors"

	"docvault/internal/model"
)

// ErrNotFound is returned when no record matches the lookup.
var ErrNotFound = errors.New("document record not found")

// DocumentRepository defines durable storage of document metadata.
// Persistence only; callers own the business rules.
type DocumentRepository interface {
	// Insert stores a new record. The store assigns the ID; the returned record
	// carries it along with every persisted field.
	Insert(ctx context.Context, rec *model.DocumentRecord) (*model.DocumentRecord, error)

	// FindByID returns the record with the given ID or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.DocumentRecord, error)

	// FindAll returns every record, newest first (created_at DESC, id DESC).
	FindAll(ctx context.Context) ([]model.DocumentRecord, error)

	// FindByBlobKey returns the record referencing key or ErrNotFound.
	FindByBlobKey(ctx context.Context, key string) (*model.DocumentRecord, error)
}
