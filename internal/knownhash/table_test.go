package knownhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/deephash/internal/algo"
)

type testRecord struct {
	digests map[algo.ID]string
	size    int64
	name    string
}

func (r *testRecord) HexDigest(id algo.ID) string { return r.digests[id] }
func (r *testRecord) Identity() (int64, string)   { return r.size, r.name }

func newRecord(md5 string, size int64, name string) *testRecord {
	return &testRecord{digests: map[algo.ID]string{algo.MD5: md5}, size: size, name: name}
}

func TestTranslate(t *testing.T) {
	assert.Equal(t, uint32(0), Translate("00000abc"))
	assert.Equal(t, uint32(0xfffff), Translate("fffff0"))
	assert.Equal(t, uint32(0xabcde), Translate("ABCDE123"))
	assert.Equal(t, uint32(0x12345), Translate("12345"))
	// non-hex characters fail open to 0
	assert.Equal(t, uint32(0x10203), Translate("1z2x3"))
	assert.Equal(t, uint32(0xab000), Translate("ab"))
	assert.Less(t, Translate("fffffffff"), uint32(BucketCount))
}

func TestAddAndLookup(t *testing.T) {
	table := NewTable(algo.MD5)
	a := newRecord("d41d8cd98f00b204e9800998ecf8427e", 0, "empty")
	b := newRecord("d41d8cd98f00b204e9800998ecf84200", 10, "prefix-twin")

	require.True(t, table.Add(a))
	require.True(t, table.Add(b))
	assert.Equal(t, 2, table.Len())

	hits := table.Lookup("D41D8CD98F00B204E9800998ECF8427E")
	require.Len(t, hits, 1)
	assert.Same(t, a, hits[0])

	assert.Empty(t, table.Lookup("d41d8cd98f00b204e9800998ecf84299"))
	assert.Empty(t, table.Lookup("ffffffffffffffffffffffffffffffff"))
	assert.Empty(t, table.Lookup(""))
}

func TestAddIgnoresMissingDigest(t *testing.T) {
	table := NewTable(algo.SHA1)
	assert.False(t, table.Add(newRecord("d41d8cd98f00b204e9800998ecf8427e", 0, "x")))
	assert.False(t, table.Add(nil))
	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.Lookup("da39a3ee5e6b4b0d3255bfef95601890afd80709"))
}

func TestAddDeduplicatesChain(t *testing.T) {
	table := NewTable(algo.MD5)
	digest := "0123456789abcdef0123456789abcdef"

	assert.True(t, table.Add(newRecord(digest, 5, "a")))
	assert.False(t, table.Add(newRecord(digest, 5, "a")))
	assert.True(t, table.Add(newRecord(digest, 5, "b")))
	assert.Equal(t, 2, table.Len())

	hits := table.Lookup(digest)
	assert.Len(t, hits, 2)
}
