package service

import (
	"context"
	"errors"
	"strings"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// ListAll returns every record, newest first. An empty store yields an empty, non-nil slice.
func (s *documentService) ListAll(ctx context.Context) (docs []model.DocumentRecord, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.ListAll")
	defer func() { endSpan(span, err) }()

	opCtx, cancel := s.withOpTimeout(ctx)
	defer cancel()

	docs, err = s.repo.FindAll(opCtx)
	if err != nil {
		return nil, &Error{Kind: KindMetadataRead, Op: "list", Message: "list documents", Err: err}
	}
	if docs == nil {
		docs = []model.DocumentRecord{}
	}
	return docs, nil
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (rec *model.DocumentRecord, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Get")
	defer func() { endSpan(span, err) }()

	return s.find(ctx, "get", id)
}

func (s *documentService) find(ctx context.Context, op, id string) (*model.DocumentRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, validationError(op, "id is required")
	}

	opCtx, cancel := s.withOpTimeout(ctx)
	defer cancel()

	rec, err := s.repo.FindByID(opCtx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &Error{Kind: KindNotFound, Op: op, Message: "document not found", Err: err}
		}
		return nil, &Error{Kind: KindMetadataRead, Op: op, Message: "find document", Err: err}
	}
	return rec, nil
}
