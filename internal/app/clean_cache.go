package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appdb "github.com/xxxsen/deephash/internal/db"
)

const cleanChunkSize = 200

type cacheStore interface {
	ListAll(ctx context.Context) ([]appdb.DigestCacheEntry, error)
	DeleteByLocations(ctx context.Context, locations []string) error
}

type CleanCacheCommand struct {
	dryRun bool
	store  cacheStore
	sqlDB  *sql.DB
}

func NewCleanCacheCommand() *CleanCacheCommand {
	return &CleanCacheCommand{
		dryRun: true,
	}
}

func (c *CleanCacheCommand) Name() string { return "clean-cache" }

func (c *CleanCacheCommand) Desc() string {
	return "Remove digest cache entries whose files no longer exist"
}

func (c *CleanCacheCommand) Init(f *pflag.FlagSet) {
	f.BoolVar(&c.dryRun, "dryrun", true, "only report stale entries (default true)")
}

func (c *CleanCacheCommand) PreRun(ctx context.Context) error {
	if c.store != nil {
		return nil
	}
	cfg := CurrentConfig()
	if cfg.Cache.Path == "" {
		return errors.New("config.cache.path is not set")
	}
	sqlDB, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	c.sqlDB = sqlDB
	c.store = appdb.DigestCacheDao
	return nil
}

func (c *CleanCacheCommand) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	entries, err := c.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list digest cache: %w", err)
	}

	seen := make(map[string]bool)
	missing := make([]string, 0)
	for _, entry := range entries {
		location := strings.TrimSpace(entry.Location)
		if location == "" || seen[location] {
			continue
		}
		seen[location] = true
		if _, err := os.Stat(location); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logger.Warn("digest cache target missing", zap.String("location", location))
				missing = append(missing, location)
			} else {
				logger.Warn("digest cache stat failed", zap.String("location", location), zap.Error(err))
			}
		}
	}

	if len(missing) > 0 && !c.dryRun {
		for start := 0; start < len(missing); start += cleanChunkSize {
			end := start + cleanChunkSize
			if end > len(missing) {
				end = len(missing)
			}
			if err := c.store.DeleteByLocations(ctx, missing[start:end]); err != nil {
				return err
			}
		}
		logger.Info("digest cache entries deleted", zap.Int("count", len(missing)))
	}

	logger.Info("clean-cache completed",
		zap.Int("entries", len(entries)),
		zap.Int("missing", len(missing)),
		zap.Bool("dry_run", c.dryRun),
	)
	return nil
}

func (c *CleanCacheCommand) PostRun(ctx context.Context) error {
	closeCache(ctx, c.sqlDB)
	c.sqlDB = nil
	return nil
}

func init() {
	RegisterRunner("clean-cache", func() IRunner { return NewCleanCacheCommand() })
}
