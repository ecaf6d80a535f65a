package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appdb "github.com/xxxsen/deephash/internal/db"
)

type fakeCacheStore struct {
	entries []appdb.DigestCacheEntry
	deleted [][]string
}

func (f *fakeCacheStore) ListAll(ctx context.Context) ([]appdb.DigestCacheEntry, error) {
	return f.entries, nil
}

func (f *fakeCacheStore) DeleteByLocations(ctx context.Context, locations []string) error {
	f.deleted = append(f.deleted, append([]string(nil), locations...))
	return nil
}

func cacheEntries(t *testing.T) (string, string, []appdb.DigestCacheEntry) {
	t.Helper()
	dir := t.TempDir()
	present := filepath.Join(dir, "present")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0o644))
	missing := filepath.Join(dir, "missing")
	return present, missing, []appdb.DigestCacheEntry{
		{Location: present, Algorithms: "md5"},
		{Location: missing, Algorithms: "md5"},
		{Location: missing, Algorithms: "md5,sha256"},
	}
}

func TestCleanCacheDryRun(t *testing.T) {
	_, _, entries := cacheEntries(t)
	store := &fakeCacheStore{entries: entries}
	cmd := NewCleanCacheCommand()
	cmd.store = store

	require.NoError(t, cmd.PreRun(context.Background()))
	require.NoError(t, cmd.Run(context.Background()))
	require.NoError(t, cmd.PostRun(context.Background()))
	assert.Empty(t, store.deleted)
}

func TestCleanCacheDeletesMissing(t *testing.T) {
	_, missing, entries := cacheEntries(t)
	store := &fakeCacheStore{entries: entries}
	cmd := NewCleanCacheCommand()
	cmd.store = store
	cmd.dryRun = false

	require.NoError(t, cmd.Run(context.Background()))
	assert.Equal(t, [][]string{{missing}}, store.deleted)
}

func TestCleanCacheChunks(t *testing.T) {
	store := &fakeCacheStore{}
	dir := t.TempDir()
	for i := 0; i < cleanChunkSize+5; i++ {
		store.entries = append(store.entries, appdb.DigestCacheEntry{
			Location:   filepath.Join(dir, fmt.Sprintf("gone-%d", i)),
			Algorithms: "md5",
		})
	}
	cmd := NewCleanCacheCommand()
	cmd.store = store
	cmd.dryRun = false

	require.NoError(t, cmd.Run(context.Background()))
	require.Len(t, store.deleted, 2)
	assert.Len(t, store.deleted[0], cleanChunkSize)
	assert.Len(t, store.deleted[1], 5)
}
