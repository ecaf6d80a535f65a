package hasher

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/deephash/internal/algo"
)

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestSumWholeFile(t *testing.T) {
	reg := algo.NewDefaultRegistry()
	h, err := New(reg)
	require.NoError(t, err)
	assert.Equal(t, []algo.ID{algo.MD5, algo.SHA256}, h.Algorithms())

	recs, err := h.Sum(context.Background(), strings.NewReader("a"), "a.txt")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(1), recs[0].Size)
	assert.Equal(t, "a.txt", recs[0].Name)
	assert.Equal(t, "0cc175b9c0f1b6a831c399e269772661", recs[0].HexDigest(algo.MD5))
	assert.Equal(t, "ca978112ca1bbdcafac231b39a23dc4da786eff8147c4e72b9807785afee48bb", recs[0].HexDigest(algo.SHA256))
}

func TestSumEmptyInput(t *testing.T) {
	h, err := New(algo.NewDefaultRegistry())
	require.NoError(t, err)
	recs, err := h.Sum(context.Background(), strings.NewReader(""), "empty")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", recs[0].HexDigest(algo.MD5))

	h, err = New(algo.NewDefaultRegistry(), WithPiecewise(4))
	require.NoError(t, err)
	recs, err = h.Sum(context.Background(), strings.NewReader(""), "empty")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "empty offset 0-0", recs[0].Name)
}

func TestSumPiecewise(t *testing.T) {
	h, err := New(algo.NewDefaultRegistry(), WithPiecewise(4))
	require.NoError(t, err)
	// buffer smaller than a block
	h.bufSize = 3

	recs, err := h.Sum(context.Background(), strings.NewReader("abcdefghij"), "f")
	require.NoError(t, err)
	require.Len(t, recs, 3)

	names := []string{"f offset 0-4", "f offset 4-8", "f offset 8-10"}
	blocks := []string{"abcd", "efgh", "ij"}
	for i, rec := range recs {
		assert.Equal(t, names[i], rec.Name)
		assert.Equal(t, int64(len(blocks[i])), rec.Size)
		assert.Equal(t, md5Hex(blocks[i]), rec.HexDigest(algo.MD5))
		assert.Equal(t, sha256Hex(blocks[i]), rec.HexDigest(algo.SHA256))
	}
}

func TestSumPiecewiseExactMultiple(t *testing.T) {
	h, err := New(algo.NewDefaultRegistry(), WithPiecewise(4))
	require.NoError(t, err)
	recs, err := h.Sum(context.Background(), strings.NewReader("abcdefgh"), "f")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "f offset 4-8", recs[1].Name)
}

func TestExtraAlgorithms(t *testing.T) {
	reg := algo.NewDefaultRegistry()
	ids, err := reg.ParseList("sha1,whirlpool,sha3")
	require.NoError(t, err)
	reg.EnableOnly(ids)

	h, err := New(reg)
	require.NoError(t, err)
	recs, err := h.Sum(context.Background(), strings.NewReader("abc"), "abc")
	require.NoError(t, err)
	rec := recs[0]
	assert.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", rec.HexDigest(algo.SHA1))
	assert.Equal(t, "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532", rec.HexDigest(algo.SHA3))
	assert.True(t, reg.IsValidHex(algo.Whirlpool, rec.HexDigest(algo.Whirlpool)))
}

func TestTigerHasNoImplementation(t *testing.T) {
	reg := algo.NewDefaultRegistry()
	reg.SetEnabled(algo.Tiger, true)
	_, err := New(reg)
	assert.ErrorIs(t, err, ErrNoImplementation)
	assert.False(t, Supported(algo.Tiger))
}

func TestNoAlgorithmEnabled(t *testing.T) {
	reg := algo.NewDefaultRegistry()
	reg.ClearAllEnabled()
	_, err := New(reg)
	assert.Error(t, err)
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	h, err := New(algo.NewDefaultRegistry())
	require.NoError(t, err)
	recs, err := h.HashFile(context.Background(), path, "data.bin")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, md5Hex("hello"), recs[0].HexDigest(algo.MD5))
	assert.Equal(t, int64(5), recs[0].Size)

	_, err = h.HashFile(context.Background(), filepath.Join(dir, "missing"), "missing")
	assert.Error(t, err)
}

func TestSumCancelled(t *testing.T) {
	h, err := New(algo.NewDefaultRegistry())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Sum(ctx, strings.NewReader("abc"), "abc")
	assert.ErrorIs(t, err, context.Canceled)
}
