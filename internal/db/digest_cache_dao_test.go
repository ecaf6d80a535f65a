package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := Open(context.Background(), filepath.Join(t.TempDir(), "cache", "digest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestDigestCacheLookupUpsert(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestDB(t)
	dao := newDigestCacheDao(func() Database { return sqlDB })

	_, ok, err := dao.Lookup(ctx, "/data/a.bin", "md5,sha256", 10, 100)
	require.NoError(t, err)
	assert.False(t, ok)

	digests := map[string]string{"md5": "0cc175b9c0f1b6a831c399e269772661"}
	require.NoError(t, dao.Upsert(ctx, "/data/a.bin", "md5,sha256", 10, 100, digests))

	got, ok, err := dao.Lookup(ctx, "/data/a.bin", "md5,sha256", 10, 100)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, digests, got)

	// stale on modtime, size or algorithm set
	_, ok, err = dao.Lookup(ctx, "/data/a.bin", "md5,sha256", 10, 101)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = dao.Lookup(ctx, "/data/a.bin", "md5,sha256", 11, 100)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = dao.Lookup(ctx, "/data/a.bin", "md5", 10, 100)
	require.NoError(t, err)
	assert.False(t, ok)

	updated := map[string]string{"md5": "92eb5ffee6ae2fec3ad71c777531578f"}
	require.NoError(t, dao.Upsert(ctx, "/data/a.bin", "md5,sha256", 12, 200, updated))
	got, ok, err = dao.Lookup(ctx, "/data/a.bin", "md5,sha256", 12, 200)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, updated, got)

	entries, err := dao.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, DigestCacheEntry{Location: "/data/a.bin", Algorithms: "md5,sha256", Size: 12, ModTime: 200}, entries[0])
}

func TestDigestCacheDelete(t *testing.T) {
	ctx := context.Background()
	sqlDB := openTestDB(t)
	dao := newDigestCacheDao(func() Database { return sqlDB })

	for _, loc := range []string{"/a", "/b", "/c"} {
		require.NoError(t, dao.Upsert(ctx, loc, "md5", 1, 1, map[string]string{"md5": "x"}))
	}
	require.NoError(t, dao.DeleteByLocations(ctx, []string{"/a", "/c"}))
	require.NoError(t, dao.DeleteByLocations(ctx, nil))

	entries, err := dao.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/b", entries[0].Location)
}

func TestDigestCacheWithoutDatabase(t *testing.T) {
	ctx := context.Background()
	dao := newDigestCacheDao(func() Database { return nil })

	_, ok, err := dao.Lookup(ctx, "/a", "md5", 1, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Error(t, dao.Upsert(ctx, "/a", "md5", 1, 1, nil))
	_, err = dao.ListAll(ctx)
	assert.Error(t, err)
}

func TestIsUniqueConstraintError(t *testing.T) {
	assert.False(t, isUniqueConstraintError(nil))
	assert.True(t, isUniqueConstraintError(errors.New("constraint failed: UNIQUE constraint failed: digest_cache_tab.location (2067)")))
	assert.False(t, isUniqueConstraintError(errors.New("database is locked")))
}
