package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "deephash.json", `{
		"algorithms": ["md5", "sha1"],
		"workers": 64,
		"log": {"level": "debug"},
		"s3": {"host": "minio:9000", "force_path_style": true}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"md5", "sha1"}, cfg.Algorithms)
	assert.Equal(t, MaxWorkers, cfg.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Console)
	assert.True(t, cfg.S3.ForcePathStyle)
	assert.True(t, cfg.S3.Enabled())
	assert.NotEmpty(t, cfg.Cache.Path)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "deephash.yaml", `
algorithms: [sha256]
workers: 0
cache:
  enabled: true
  path: /tmp/digest.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"sha256"}, cfg.Algorithms)
	assert.Equal(t, 1, cfg.Workers)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "/tmp/digest.db", cfg.Cache.Path)
	assert.False(t, cfg.S3.Enabled())
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(writeFile(t, dir, "bad.json", `{"algorithms": []}`))
	assert.Error(t, err)

	_, err = Load(writeFile(t, dir, "level.json", `{"log": {"level": "loud"}}`))
	assert.Error(t, err)

	_, err = Load(writeFile(t, dir, "broken.json", `{`))
	assert.Error(t, err)
}

func TestLoadFirst(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.json")
	found := writeFile(t, dir, "found.json", `{"workers": 2}`)

	cfg, err := LoadFirst("", missing, found)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)

	_, err = LoadFirst(missing)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadFirst()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DEEPHASH_ALGORITHMS", "sha1, whirlpool")
	t.Setenv("DEEPHASH_WORKERS", "8")
	t.Setenv("DEEPHASH_LOG_LEVEL", "warn")
	t.Setenv("DEEPHASH_CACHE_PATH", "/var/cache/deephash.db")
	t.Setenv("DEEPHASH_S3_HOST", "s3.local")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, []string{"sha1", "whirlpool"}, cfg.Algorithms)
	assert.Equal(t, "sha1,whirlpool", cfg.AlgorithmList())
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "/var/cache/deephash.db", cfg.Cache.Path)
	assert.Equal(t, "s3.local", cfg.S3.Host)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadDotEnv(filepath.Join(dir, ".env")))

	// godotenv never overrides a variable that is already set
	t.Setenv("DEEPHASH_S3_REGION", "")
	require.NoError(t, os.Unsetenv("DEEPHASH_S3_REGION"))
	path := writeFile(t, dir, ".env", "DEEPHASH_S3_REGION=eu-west-1\n")
	require.NoError(t, LoadDotEnv(path))

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "eu-west-1", cfg.S3.Region)
}
