// Package bootstrap builds the configured blob and metadata backends.
// Both the API server and the reconcile tool start from here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	"docvault/internal/repository"
	"docvault/internal/repository/mongodb"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
	"docvault/internal/storage"
)

// Backends holds the opened stores. Close releases them.
type Backends struct {
	Store  storage.Storage
	Repo   repository.DocumentRepository
	Pinger database.Pinger

	closers []func(context.Context) error
}

// Open connects the metadata store (running migrations or index creation)
// and the blob store selected by cfg.
func Open(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*Backends, error) {
	b := &Backends{}

	if err := b.openMetadata(ctx, cfg, log); err != nil {
		return nil, err
	}

	store, err := NewBlobStore(cfg)
	if err != nil {
		_ = b.Close(context.Background())
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	b.Store = store

	log.Info("backends_ready",
		zap.String("metadata_backend", cfg.MetadataBackend),
		zap.String("blob_backend", cfg.BlobBackend),
	)
	return b, nil
}

func (b *Backends) openMetadata(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) error {
	switch cfg.MetadataBackend {
	case config.MetadataBackendPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		b.closers = append(b.closers, func(context.Context) error { return db.Close() })

		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			_ = b.Close(context.Background())
			return err
		}
		b.Repo = postgres.NewDocumentPostgres(db)
		b.Pinger = db

	case config.MetadataBackendMongo:
		client, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return fmt.Errorf("failed to connect to mongo: %w", err)
		}
		b.closers = append(b.closers, client.Disconnect)

		repo := mongodb.NewDocumentMongo(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))
		idxCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := repo.EnsureIndexes(idxCtx); err != nil {
			_ = b.Close(context.Background())
			return fmt.Errorf("mongo indexes: %w", err)
		}
		b.Repo = repo
		b.Pinger = database.MongoPinger{Client: client}

	default:
		return fmt.Errorf("unsupported metadata backend %q", cfg.MetadataBackend)
	}
	return nil
}

// NewBlobStore constructs the blob store named by cfg.BlobBackend.
func NewBlobStore(cfg *config.AppConfig) (storage.Storage, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendMinIO:
		return storage.NewMinIO(cfg.MinIO)
	case config.BlobBackendS3:
		return storage.NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported blob backend %q", cfg.BlobBackend)
	}
}

// Close releases every opened backend in reverse order.
func (b *Backends) Close(ctx context.Context) error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// ServiceOptions maps configuration onto document service options.
func ServiceOptions(cfg *config.AppConfig, log *zap.Logger, m *service.Metrics) service.Options {
	return service.Options{
		AcceptedContentType: cfg.Upload.AcceptedContentType,
		MaxUploadBytes:      cfg.Upload.MaxBytes,
		DefaultURLTTL:       time.Duration(cfg.Access.DefaultTTLSec) * time.Second,
		MaxURLTTL:           time.Duration(cfg.Access.MaxTTLSec) * time.Second,
		OpTimeout:           cfg.StoreOpTimeout(),
		Logger:              log,
		Metrics:             m,
	}
}
