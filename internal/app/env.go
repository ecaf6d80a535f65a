package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/deephash/internal/config"
	"github.com/xxxsen/deephash/internal/db"
	"github.com/xxxsen/deephash/internal/storage"
)

var (
	// ErrAuditFailed is returned by the audit command when the audit does not pass.
	ErrAuditFailed = errors.New("audit failed")
	// ErrNoKnownHashes is returned when a mode needs known hashes and none loaded.
	ErrNoKnownHashes = errors.New("unable to load any known hashes")
)

var currentConfig = config.Default()

// SetConfig sets the configuration used by runners.
func SetConfig(cfg *config.Config) {
	if cfg == nil {
		cfg = config.Default()
	}
	currentConfig = cfg
}

// CurrentConfig returns the configuration used by runners.
func CurrentConfig() *config.Config {
	return currentConfig
}

// openCache opens the digest cache database and installs it as the default.
func openCache(ctx context.Context, cfg config.CacheConfig) (*sql.DB, error) {
	sqlDB, err := db.Open(ctx, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open digest cache: %w", err)
	}
	db.SetDefault(sqlDB)
	logutil.GetLogger(ctx).Debug("digest cache opened", zap.String("path", cfg.Path))
	return sqlDB, nil
}

func closeCache(ctx context.Context, sqlDB *sql.DB) {
	if sqlDB == nil {
		return
	}
	db.SetDefault(nil)
	if err := sqlDB.Close(); err != nil {
		logutil.GetLogger(ctx).Error("close digest cache failed", zap.Error(err))
	}
}

// ensureStorage builds the default object store client unless one is installed.
func ensureStorage(ctx context.Context, cfg config.S3Config) (storage.Client, error) {
	if c := storage.DefaultClient(); c != nil {
		return c, nil
	}
	c, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	storage.SetDefaultClient(c)
	return c, nil
}
