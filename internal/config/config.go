package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	env "github.com/netflix/go-env"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWorkers = 4
	MaxWorkers     = 32
)

// Config describes the application level configuration loaded from json or yaml.
type Config struct {
	Algorithms []string    `json:"algorithms" yaml:"algorithms"`
	Workers    int         `json:"workers" yaml:"workers"`
	Log        LogConfig   `json:"log" yaml:"log"`
	Cache      CacheConfig `json:"cache" yaml:"cache"`
	S3         S3Config    `json:"s3" yaml:"s3"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	File    string `json:"file" yaml:"file"`
	Level   string `json:"level" yaml:"level"`
	Console bool   `json:"console" yaml:"console"`
}

// CacheConfig configures the sqlite digest cache.
type CacheConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// S3Config holds the options for accessing the object store.
type S3Config struct {
	Host            string `json:"host" yaml:"host"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
	ForcePathStyle  bool   `json:"force_path_style" yaml:"force_path_style"`
}

// Enabled reports whether enough is configured to build a client.
func (c S3Config) Enabled() bool {
	return c.Host != "" || c.AccessKeyID != ""
}

type envOverrides struct {
	Algorithms     string `env:"DEEPHASH_ALGORITHMS"`
	Workers        int    `env:"DEEPHASH_WORKERS"`
	LogFile        string `env:"DEEPHASH_LOG_FILE"`
	LogLevel       string `env:"DEEPHASH_LOG_LEVEL"`
	CachePath      string `env:"DEEPHASH_CACHE_PATH"`
	S3Host         string `env:"DEEPHASH_S3_HOST"`
	S3Region       string `env:"DEEPHASH_S3_REGION"`
	S3AccessKey    string `env:"DEEPHASH_S3_ACCESS_KEY_ID"`
	S3SecretKey    string `env:"DEEPHASH_S3_SECRET_ACCESS_KEY"`
	S3SessionToken string `env:"DEEPHASH_S3_SESSION_TOKEN"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Algorithms: []string{"md5", "sha256"},
		Workers:    DefaultWorkers,
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
		Cache: CacheConfig{
			Path: defaultCachePath(),
		},
	}
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		return "deephash.db"
	}
	return filepath.Join(dir, "deephash", "digest.db")
}

// DefaultPaths lists the locations searched when no config path is given.
func DefaultPaths() []string {
	return []string{"./deephash.json", "./deephash.yaml", "/etc/deephash.json"}
}

// LoadFirst tries to load configuration from the given paths, returning the
// first successfully decoded configuration. If none of the paths contain a
// readable config, an error wrapping os.ErrNotExist is returned.
func LoadFirst(paths ...string) (*Config, error) {
	var lastErr error
	for _, path := range paths {
		if path == "" {
			continue
		}
		cfg, err := Load(path)
		if errors.Is(err, os.ErrNotExist) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("config not found in paths %v: %w", paths, os.ErrNotExist)
	}
	return nil, lastErr
}

// Load reads configuration from a single json or yaml file path. Keys absent
// from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides configuration values from DEEPHASH_* environment variables.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if _, err := env.UnmarshalFromEnviron(&o); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	if o.Algorithms != "" {
		c.Algorithms = splitList(o.Algorithms)
	}
	if o.Workers != 0 {
		c.Workers = o.Workers
	}
	if o.LogFile != "" {
		c.Log.File = o.LogFile
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	if o.CachePath != "" {
		c.Cache.Path = o.CachePath
		c.Cache.Enabled = true
	}
	if o.S3Host != "" {
		c.S3.Host = o.S3Host
	}
	if o.S3Region != "" {
		c.S3.Region = o.S3Region
	}
	if o.S3AccessKey != "" {
		c.S3.AccessKeyID = o.S3AccessKey
	}
	if o.S3SecretKey != "" {
		c.S3.SecretAccessKey = o.S3SecretKey
	}
	if o.S3SessionToken != "" {
		c.S3.SessionToken = o.S3SessionToken
	}
	return c.Validate()
}

// Validate performs basic validation of the configuration and clamps the
// worker count into range.
func (c *Config) Validate() error {
	if len(c.Algorithms) == 0 {
		return errors.New("config.algorithms must not be empty")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return errors.New("config.cache.path must be set when the cache is enabled")
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Workers > MaxWorkers {
		c.Workers = MaxWorkers
	}
	return nil
}

// AlgorithmList returns the configured algorithms as a comma separated list.
func (c *Config) AlgorithmList() string {
	return strings.Join(c.Algorithms, ",")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
