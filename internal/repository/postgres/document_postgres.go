package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, owner_name, owner_email, display_file_name, blob_key, content_type, size, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*model.DocumentRecord, error) {
	var d model.DocumentRecord
	if err := s.Scan(
		&d.ID,
		&d.OwnerName,
		&d.OwnerEmail,
		&d.DisplayFileName,
		&d.BlobKey,
		&d.ContentType,
		&d.Size,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Insert adds a document row; the id comes from the column default.
func (r *DocumentPostgres) Insert(ctx context.Context, rec *model.DocumentRecord) (*model.DocumentRecord, error) {
	const q = `
		INSERT INTO documents (owner_name, owner_email, display_file_name, blob_key, content_type, size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		rec.OwnerName,
		rec.OwnerEmail,
		rec.DisplayFileName,
		rec.BlobKey,
		rec.ContentType,
		rec.Size,
		rec.CreatedAt,
	)
	out, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return out, nil
}

// FindByID fetches a single document by its ID. Ids that are not UUIDs cannot exist.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.DocumentRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return r.findOne(ctx, q, id)
}

// FindByBlobKey fetches the document that references key.
func (r *DocumentPostgres) FindByBlobKey(ctx context.Context, key string) (*model.DocumentRecord, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE blob_key = $1`
	return r.findOne(ctx, q, key)
}

func (r *DocumentPostgres) findOne(ctx context.Context, q string, arg any) (*model.DocumentRecord, error) {
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// FindAll streams every row newest first.
func (r *DocumentPostgres) FindAll(ctx context.Context) ([]model.DocumentRecord, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.DocumentRecord, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
