package cli

import (
	"context"
	"errors"
	"os"

	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/deephash/internal/config"
)

const (
	dotEnvFile = ".env"

	logMaxRotate = 5
	logMaxSize   = 100 << 20
	logKeepDays  = 7
)

// LoadConfig resolves the run configuration: .env, then the first config file
// found (defaults when none exists), then DEEPHASH_* environment overrides.
func LoadConfig(ctx context.Context, explicit string) (*config.Config, error) {
	if err := config.LoadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}
	cfg, err := loadConfigFile(explicit)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Debug("config loaded",
		zap.String("algorithms", cfg.AlgorithmList()),
		zap.Int("workers", cfg.Workers),
		zap.Bool("cache", cfg.Cache.Enabled),
	)
	return cfg, nil
}

func loadConfigFile(explicit string) (*config.Config, error) {
	if explicit != "" {
		return config.Load(explicit)
	}
	cfg, err := config.LoadFirst(config.DefaultPaths()...)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

func initLogger(cfg *config.Config) {
	level := cfg.Log.Level
	if level == "" {
		level = "info"
	}
	logger.Init(cfg.Log.File, level, logMaxRotate, logMaxSize, logKeepDays, cfg.Log.Console || cfg.Log.File == "")
}
