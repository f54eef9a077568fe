// Command reconcile finds blobs that no document record references and
// optionally deletes them. Run it after an "orphan_blob" log entry or on a schedule.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"docvault/internal/bootstrap"
	"docvault/internal/config"
	"docvault/internal/logger"
	"docvault/internal/service"
)

type options struct {
	prefix string
	minAge time.Duration
	delete bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	fs.StringVar(&o.prefix, "prefix", "documents/", "only consider blob keys under this prefix")
	fs.DurationVar(&o.minAge, "min-age", time.Hour, "skip blobs modified more recently than this")
	fs.BoolVar(&o.delete, "delete", false, "delete orphans instead of only reporting them")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.minAge < 0 {
		return o, fmt.Errorf("--min-age must not be negative")
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := bootstrap.Open(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("backends_open_failed", zap.Error(err))
	}
	defer backends.Close(context.Background())

	report, err := service.NewReconciler(backends.Store, backends.Repo, zl).Run(ctx, service.ReconcileOptions{
		Prefix: opts.prefix,
		MinAge: opts.minAge,
		Delete: opts.delete,
	})
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	}
	if err != nil {
		zl.Error("reconcile_failed", zap.Error(err))
		stop()
		_ = backends.Close(context.Background())
		os.Exit(1)
	}
}
