package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"regexp"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

const (
	blobKeyPrefix   = "documents"
	maxStoredName   = 128
	fallbackName    = "upload"
	originalNameKey = "original-filename"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	unsafeKeyChar = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// stagingPool recycles the buffers that hold an upload between the request
// body and the blob store.
var stagingPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func acquireStaging() *bytes.Buffer {
	buf := stagingPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func releaseStaging(buf *bytes.Buffer) {
	// Oversized buffers are dropped so one large upload does not pin memory.
	if buf.Cap() > 4*DefaultMaxUpload {
		return
	}
	buf.Reset()
	stagingPool.Put(buf)
}

func (s *documentService) Commit(ctx context.Context, in CommitInput) (rec *model.DocumentRecord, err error) {
	const op = "commit"

	ctx, span := tracer.Start(ctx, "DocumentService.Commit")
	defer func() {
		s.metrics.observeCommit(err)
		endSpan(span, err)
	}()

	if err := s.validateCommit(in); err != nil {
		return nil, err
	}

	buf := acquireStaging()
	defer releaseStaging(buf)

	n, readErr := buf.ReadFrom(io.LimitReader(in.Body, s.opts.MaxUploadBytes+1))
	if readErr != nil {
		return nil, &Error{Kind: KindValidation, Op: op, Message: "could not read upload body", Err: readErr}
	}
	switch {
	case n == 0:
		return nil, validationError(op, "file is empty")
	case n > s.opts.MaxUploadBytes:
		return nil, validationError(op, fmt.Sprintf("file exceeds %d bytes", s.opts.MaxUploadBytes))
	}
	if !mimetype.Detect(buf.Bytes()).Is(s.opts.AcceptedContentType) {
		return nil, validationError(op, fmt.Sprintf("file content is not %s", s.opts.AcceptedContentType))
	}

	key := newBlobKey(in.DisplayFileName)
	span.SetAttributes(attribute.String("docvault.blob_key", key), attribute.Int64("docvault.size", n))

	putCtx, cancel := s.withOpTimeout(ctx)
	_, err = s.store.Put(putCtx, key, bytes.NewReader(buf.Bytes()), storage.PutObjectOptions{
		Size:        n,
		ContentType: s.opts.AcceptedContentType,
		Metadata:    map[string]string{originalNameKey: in.DisplayFileName},
	})
	cancel()
	if err != nil {
		return nil, &Error{Kind: KindStorageWrite, Op: op, Message: "upload to storage", Err: err}
	}

	// From here on the blob exists. The record write must not be abandoned
	// because the caller went away, or the blob would be orphaned.
	insCtx, cancel := s.withOpTimeout(context.WithoutCancel(ctx))
	defer cancel()

	stored, err := s.repo.Insert(insCtx, &model.DocumentRecord{
		OwnerName:       strings.TrimSpace(in.OwnerName),
		OwnerEmail:      strings.TrimSpace(in.OwnerEmail),
		DisplayFileName: strings.TrimSpace(in.DisplayFileName),
		BlobKey:         key,
		ContentType:     s.opts.AcceptedContentType,
		Size:            n,
		CreatedAt:       s.clock.Next(),
	})
	if err == nil && (stored == nil || stored.ID == "") {
		err = fmt.Errorf("store returned no id")
	}
	if err != nil {
		return s.settle(ctx, op, key, err)
	}

	s.log.Info("document_committed",
		zap.String("id", stored.ID),
		zap.String("blob_key", key),
		zap.Int64("size", n),
	)
	return stored, nil
}

func (s *documentService) validateCommit(in CommitInput) error {
	const op = "commit"

	if in.Body == nil {
		return validationError(op, "file is required")
	}
	if strings.TrimSpace(in.OwnerName) == "" {
		return validationError(op, "owner name is required")
	}
	if !emailPattern.MatchString(strings.TrimSpace(in.OwnerEmail)) {
		return validationError(op, "owner email is invalid")
	}
	if strings.TrimSpace(in.DisplayFileName) == "" {
		return validationError(op, "file name is required")
	}
	mediaType, _, err := mime.ParseMediaType(in.ContentType)
	if err != nil || !strings.EqualFold(mediaType, s.opts.AcceptedContentType) {
		return validationError(op, fmt.Sprintf("content type must be %s", s.opts.AcceptedContentType))
	}
	return nil
}

// settle resolves a failed record write. The error may be ambiguous (a
// timeout after the row was committed), so the blob is only removed once the
// store confirms no record references it.
func (s *documentService) settle(ctx context.Context, op, key string, cause error) (*model.DocumentRecord, error) {
	e := &Error{Kind: KindMetadataWrite, Op: op, Message: "save document record", Err: cause}

	checkCtx, cancel := s.withOpTimeout(context.WithoutCancel(ctx))
	defer cancel()

	rec, err := s.repo.FindByBlobKey(checkCtx, key)
	switch {
	case err == nil && rec != nil && rec.ID != "":
		s.log.Warn("commit_confirmed_after_error",
			zap.String("id", rec.ID),
			zap.String("blob_key", key),
			zap.NamedError("insert_error", cause),
		)
		return rec, nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, s.leaveOrphan(e, key, fmt.Errorf("verify record: %w", err))
	}

	delCtx, cancelDel := s.withOpTimeout(context.WithoutCancel(ctx))
	defer cancelDel()

	if delErr := s.store.Delete(delCtx, key); delErr != nil {
		return nil, s.leaveOrphan(e, key, delErr)
	}

	s.log.Warn("commit_rolled_back", zap.String("blob_key", key), zap.Error(cause))
	return nil, e
}

// leaveOrphan marks e with a blob that could not be settled; the reconciler
// picks it up later.
func (s *documentService) leaveOrphan(e *Error, key string, why error) *Error {
	e.OrphanBlobKey = key
	e.CompensationErr = why
	s.log.Error("orphan_blob",
		zap.String("blob_key", key),
		zap.NamedError("insert_error", e.Err),
		zap.NamedError("compensation_error", why),
	)
	return e
}

// newBlobKey namespaces every upload under a fresh UUID so two uploads with
// the same display name never collide.
func newBlobKey(displayName string) string {
	return path.Join(blobKeyPrefix, uuid.NewString(), sanitizeName(displayName))
}

func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	name = unsafeKeyChar.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return fallbackName
	}
	if len(name) > maxStoredName {
		ext := path.Ext(name)
		if len(ext) >= maxStoredName {
			ext = ""
		}
		name = name[:maxStoredName-len(ext)] + ext
	}
	return name
}
