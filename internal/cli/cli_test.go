package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"

	"github.com/xxxsen/deephash/internal/config"
)

func TestMain(m *testing.M) {
	logger.Init("", "error", 0, 0, 0, true)
	os.Exit(m.Run())
}

func TestLoadConfigExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deephash.yaml")
	require.NoError(t, os.WriteFile(path, []byte("algorithms: [sha1]\nworkers: 2\n"), 0o644))
	t.Setenv("DEEPHASH_WORKERS", "3")

	cfg, err := LoadConfig(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"sha1"}, cfg.Algorithms)
	assert.Equal(t, 3, cfg.Workers)
}

func TestLoadConfigMissingExplicit(t *testing.T) {
	_, err := LoadConfig(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"compute", "match", "audit", "clean-cache"} {
		assert.True(t, names[want], want)
	}
	match, _, err := rootCmd.Find([]string{"match"})
	require.NoError(t, err)
	assert.NotNil(t, match.Flags().Lookup("negative"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestInitLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deephash.log")
	cfg := config.Default()
	cfg.Log.File = path
	cfg.Log.Console = false
	initLogger(cfg)
	t.Cleanup(func() { logger.Init("", "error", 0, 0, 0, true) })

	logutil.GetLogger(context.Background()).Info("log file ready")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "log file ready")
}

func TestExecuteComputeWritesToCommandOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))
	t.Cleanup(func() { logger.Init("", "error", 0, 0, 0, true) })

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"compute", "-b", "-c", "md5", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, ExecuteContext(context.Background()))
	assert.Contains(t, buf.String(), "\n1,0cc175b9c0f1b6a831c399e269772661,a.txt\n")
}
