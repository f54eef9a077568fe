package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"docvault/internal/repository"
	"docvault/internal/storage"
)

// ReconcileOptions controls an orphan sweep.
type ReconcileOptions struct {
	// Prefix limits the sweep to keys under it. Defaults to "documents/".
	Prefix string
	// MinAge skips blobs newer than this so in-flight commits are left alone.
	MinAge time.Duration
	// Delete removes orphans instead of only reporting them.
	Delete bool
}

// ReconcileReport summarises one sweep.
type ReconcileReport struct {
	Scanned int      `json:"scanned"`
	Skipped int      `json:"skipped"`
	Orphans []string `json:"orphans"`
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed"`
}

// Reconciler finds blobs that no record references. These are left behind
// when a failed commit cannot remove its blob.
type Reconciler struct {
	store storage.Storage
	repo  repository.DocumentRepository
	log   *zap.Logger
	now   func() time.Time
}

func NewReconciler(store storage.Storage, repo repository.DocumentRepository, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{store: store, repo: repo, log: log.With(zap.String("component", "reconciler")), now: time.Now}
}

// Run lists the blobs under opts.Prefix and checks each against the metadata store.
// A metadata lookup error other than not-found aborts the sweep, since guessing
// could delete a referenced blob.
func (r *Reconciler) Run(ctx context.Context, opts ReconcileOptions) (report *ReconcileReport, err error) {
	ctx, span := tracer.Start(ctx, "Reconciler.Run")
	defer func() { endSpan(span, err) }()

	if opts.Prefix == "" {
		opts.Prefix = blobKeyPrefix + "/"
	}

	objects, err := r.store.List(ctx, opts.Prefix)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}

	report = &ReconcileReport{Orphans: []string{}, Deleted: []string{}, Failed: []string{}}
	cutoff := r.now().Add(-opts.MinAge)

	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		if opts.MinAge > 0 && obj.LastModified.After(cutoff) {
			report.Skipped++
			continue
		}

		_, err := r.repo.FindByBlobKey(ctx, obj.Key)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return report, fmt.Errorf("lookup %q: %w", obj.Key, err)
		}

		report.Orphans = append(report.Orphans, obj.Key)
		r.log.Warn("orphan_found", zap.String("blob_key", obj.Key), zap.Time("last_modified", obj.LastModified))

		if !opts.Delete {
			continue
		}
		if err := r.store.Delete(ctx, obj.Key); err != nil {
			report.Failed = append(report.Failed, obj.Key)
			r.log.Error("orphan_delete_failed", zap.String("blob_key", obj.Key), zap.Error(err))
			continue
		}
		report.Deleted = append(report.Deleted, obj.Key)
	}

	r.log.Info("reconcile_done",
		zap.Int("scanned", report.Scanned),
		zap.Int("orphans", len(report.Orphans)),
		zap.Int("deleted", len(report.Deleted)),
	)
	return report, nil
}
