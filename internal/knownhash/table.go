package knownhash

import (
	"strings"

	"github.com/xxxsen/deephash/internal/algo"
)

const (
	// SigFigs is the number of leading hex characters used as the bucket key.
	SigFigs = 5
	// BucketCount must be at least 16^SigFigs.
	BucketCount = 1 << (4 * SigFigs)
)

// Record is a known file that can be placed in a Table.
type Record interface {
	HexDigest(id algo.ID) string
	Identity() (size int64, name string)
}

type chain struct {
	records []Record
}

// Table is the known-hash lookup structure for one algorithm: a fixed bucket
// array addressed by the digest prefix, each bucket holding a chain of records.
// A Table must not be mutated while it is being searched from several goroutines.
type Table struct {
	alg     algo.ID
	buckets []*chain
	count   int
}

// NewTable returns an empty table for alg. Buckets are allocated on first Add.
func NewTable(alg algo.ID) *Table {
	return &Table{alg: alg}
}

// Len returns the number of chained records.
func (t *Table) Len() int {
	return t.count
}

// Add chains rec under its digest. Records without a digest for the table's
// algorithm are ignored, as are exact duplicates (same digest, size and name)
// already present in the addressed chain.
func (t *Table) Add(rec Record) bool {
	if rec == nil {
		return false
	}
	digest := rec.HexDigest(t.alg)
	if digest == "" {
		return false
	}
	if t.buckets == nil {
		t.buckets = make([]*chain, BucketCount)
	}
	key := Translate(digest)
	c := t.buckets[key]
	if c == nil {
		c = &chain{}
		t.buckets[key] = c
	}
	size, name := rec.Identity()
	for _, existing := range c.records {
		if !strings.EqualFold(existing.HexDigest(t.alg), digest) {
			continue
		}
		if s, n := existing.Identity(); s == size && n == name {
			return false
		}
	}
	c.records = append(c.records, rec)
	t.count++
	return true
}

// Lookup returns every chained record whose digest equals digest. It does not
// mark anything: the caller marks the one record it settles on.
func (t *Table) Lookup(digest string) []Record {
	if digest == "" || t.buckets == nil {
		return nil
	}
	c := t.buckets[Translate(digest)]
	if c == nil {
		return nil
	}
	var hits []Record
	for _, rec := range c.records {
		if strings.EqualFold(rec.HexDigest(t.alg), digest) {
			hits = append(hits, rec)
		}
	}
	return hits
}

// Translate converts the first SigFigs hex characters of digest into a bucket
// index. Characters that are not hex digits, and missing characters of a short
// digest, count as 0; callers validate digests before adding them.
func Translate(digest string) uint32 {
	var key uint32
	for i := 0; i < SigFigs; i++ {
		var v uint32
		if i < len(digest) {
			v = hexValue(digest[i])
		}
		key = key<<4 | v
	}
	return key
}

func hexValue(c byte) uint32 {
	switch {
	case c >= '0' && c <= '9':
		return uint32(c - '0')
	case c >= 'a' && c <= 'f':
		return uint32(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return uint32(c-'A') + 10
	}
	return 0
}
