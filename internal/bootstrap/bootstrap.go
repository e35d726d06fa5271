// Package bootstrap holds infrastructure setup shared by the api and scheduler
// entrypoints.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invoicing_backend/internal/adapters/storage"
	"invoicing_backend/internal/pdf"
	"invoicing_backend/platform/cache"
	"invoicing_backend/platform/config"
	"invoicing_backend/platform/db"
	"invoicing_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	retryAttempts  = 5
	retryBaseDelay = 2 * time.Second
)

// WithRetry runs fn until it succeeds, backing off quadratically between attempts.
func WithRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

// Migrate applies the embedded migrations.
func Migrate(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) error {
	return WithRetry(ctx, log, "database migrations", retryAttempts, retryBaseDelay, func() error {
		return db.RunMigrations(ctx, cfg)
	})
}

// OpenDatabase connects the pgx pool.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	err := WithRetry(ctx, log, "database connection", retryAttempts, retryBaseDelay, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	})
	return pool, err
}

// OpenRedis returns a redis client, or nil when REDIS_URL is not set.
func OpenRedis(ctx context.Context, cfg config.SchedulerConfig, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; catalog cache and notification outbox disabled")
		return nil
	}

	rdb, err := cache.NewRedisClient(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		return nil
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis ping failed; continuing without redis", "error", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// PDFConfig is the configuration read by NewPDFSource.
type PDFConfig interface {
	config.GotenbergConfig
	config.MinIOConfig
	config.PortalConfig
	GetDefaultCurrency() string
}

// PDFSource is a rendered PDF source with an optional storage cache.
type PDFSource struct {
	pdf.Source
	// Cache is nil when MinIO is not configured.
	Cache *pdf.CachedRenderer
}

// NewPDFSource builds the Gotenberg renderer, cached in MinIO when configured.
// It returns nil when Gotenberg is not configured.
func NewPDFSource(ctx context.Context, cfg PDFConfig, log *logger.Logger) *PDFSource {
	if !cfg.IsGotenbergEnabled() {
		log.Warn("GOTENBERG_URL not configured; pdf downloads disabled")
		return nil
	}

	gotenberg := pdf.NewGotenbergClient(cfg.GetGotenbergURL(), cfg.GetGotenbergUsername(), cfg.GetGotenbergPassword())
	renderer := pdf.NewRenderer(gotenberg, cfg.GetAppBaseURL(), cfg.GetDefaultCurrency())
	log.Info("gotenberg PDF renderer initialized", "url", cfg.GetGotenbergURL())

	if !cfg.IsMinIOEnabled() {
		return &PDFSource{Source: renderer}
	}

	store, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service; pdf cache disabled", "error", err)
		return &PDFSource{Source: renderer}
	}

	bucket := cfg.GetMinioBucketInvoicePDFs()
	if err := WithRetry(ctx, log, "ensure invoice-pdfs bucket", retryAttempts, retryBaseDelay, func() error {
		return store.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists; pdf cache disabled", "error", err, "bucket", bucket)
		return &PDFSource{Source: renderer}
	}

	cached := pdf.NewCachedRenderer(renderer, store, bucket, log)
	log.Info("pdf cache initialized", "bucket", bucket)
	return &PDFSource{Source: cached, Cache: cached}
}
