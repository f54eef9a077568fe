package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"docvault/internal/storage"
)

func (s *documentService) IssueViewURL(ctx context.Context, id string, ttl time.Duration) (signed *SignedURL, err error) {
	const op = "issue_view_url"

	ctx, span := tracer.Start(ctx, "DocumentService.IssueViewURL")
	defer func() {
		s.metrics.observeViewURL(err)
		endSpan(span, err)
	}()

	ttl, err = s.resolveTTL(ttl)
	if err != nil {
		return nil, err
	}

	rec, err := s.find(ctx, op, id)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("docvault.blob_key", rec.BlobKey), attribute.Int64("docvault.ttl_seconds", int64(ttl/time.Second)))

	opCtx, cancel := s.withOpTimeout(ctx)
	defer cancel()

	if _, err := s.store.Stat(opCtx, rec.BlobKey); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.log.Error("blob_missing", zap.String("id", rec.ID), zap.String("blob_key", rec.BlobKey))
			return nil, &Error{Kind: KindBlobMissing, Op: op, Message: fmt.Sprintf("blob for document %s is missing", rec.ID), Err: err}
		}
		return nil, &Error{Kind: KindSigning, Op: op, Message: "check blob", Err: err}
	}

	issuedAt := s.now()
	url, err := s.store.PresignGet(opCtx, rec.BlobKey, ttl)
	if err != nil {
		return nil, &Error{Kind: KindSigning, Op: op, Message: "presign url", Err: err}
	}

	return &SignedURL{URL: url, ExpiresAt: issuedAt.Add(ttl).UTC()}, nil
}

// resolveTTL applies the default for a non-positive ttl and rejects anything
// longer than the configured maximum.
func (s *documentService) resolveTTL(ttl time.Duration) (time.Duration, error) {
	if ttl <= 0 {
		return s.opts.DefaultURLTTL, nil
	}
	if ttl < time.Second {
		return 0, validationError("issue_view_url", "ttl must be at least one second")
	}
	if ttl > s.opts.MaxURLTTL {
		return 0, validationError("issue_view_url", fmt.Sprintf("ttl must not exceed %s", s.opts.MaxURLTTL))
	}
	return ttl, nil
}
