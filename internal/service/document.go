package service

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

const (
	DefaultContentType = "application/pdf"
	DefaultMaxUpload   = 10 << 20
	DefaultURLTTL      = 5 * time.Minute
	// MaxURLTTL is the longest lifetime a SigV4 pre-signed URL may carry.
	MaxURLTTL        = 7 * 24 * time.Hour
	DefaultOpTimeout = 15 * time.Second
)

var tracer = otel.Tracer("docvault/internal/service")

// CommitInput is one upload as handed over by the request boundary.
type CommitInput struct {
	Body            io.Reader
	ContentType     string
	OwnerName       string
	OwnerEmail      string
	DisplayFileName string
}

// SignedURL is a read-only, time-limited URL for one stored document.
type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DocumentService defines the use cases for handling documents.
// Every returned error is a *Error; use KindOf to branch on it.
type DocumentService interface {
	// Commit validates the upload, writes the blob, then writes the record.
	// A record is never created without its blob. After a failed record write
	// the blob is deleted only once no record for it is confirmed.
	Commit(ctx context.Context, in CommitInput) (*model.DocumentRecord, error)

	// ListAll returns every record, newest first.
	ListAll(ctx context.Context) ([]model.DocumentRecord, error)

	// Get returns a single record by its ID.
	Get(ctx context.Context, id string) (*model.DocumentRecord, error)

	// IssueViewURL returns a pre-signed GET URL valid for ttl (zero means the default).
	IssueViewURL(ctx context.Context, id string, ttl time.Duration) (*SignedURL, error)
}

// Options tunes the service. Zero values fall back to the package defaults.
type Options struct {
	AcceptedContentType string
	MaxUploadBytes      int64
	DefaultURLTTL       time.Duration
	MaxURLTTL           time.Duration
	OpTimeout           time.Duration
	Logger              *zap.Logger
	Metrics             *Metrics
}

func (o Options) withDefaults() Options {
	if o.AcceptedContentType == "" {
		o.AcceptedContentType = DefaultContentType
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = DefaultMaxUpload
	}
	if o.MaxURLTTL <= 0 || o.MaxURLTTL > MaxURLTTL {
		o.MaxURLTTL = MaxURLTTL
	}
	if o.DefaultURLTTL <= 0 || o.DefaultURLTTL > o.MaxURLTTL {
		o.DefaultURLTTL = min(DefaultURLTTL, o.MaxURLTTL)
	}
	if o.OpTimeout <= 0 {
		o.OpTimeout = DefaultOpTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store   storage.Storage
	repo    repository.DocumentRepository
	opts    Options
	log     *zap.Logger
	metrics *Metrics
	clock   *monotonicClock
	now     func() time.Time
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, opts Options) DocumentService {
	opts = opts.withDefaults()
	return &documentService{
		store:   store,
		repo:    repo,
		opts:    opts,
		log:     opts.Logger.With(zap.String("component", "document_service")),
		metrics: opts.Metrics,
		clock:   newMonotonicClock(time.Now),
		now:     time.Now,
	}
}

// withOpTimeout bounds a single store call.
func (s *documentService) withOpTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.OpTimeout)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
	}
	span.End()
}
