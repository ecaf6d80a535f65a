package hashlist

import (
	"strings"
	"sync/atomic"

	"github.com/xxxsen/deephash/internal/algo"
)

// FileRecord describes one file, either a known file loaded from a hash list
// or a candidate produced by hashing an input file.
type FileRecord struct {
	Size    int64
	Name    string
	Digests map[algo.ID]string
	// Number identifies a candidate within a run. Numbers start at 1.
	Number uint64
	// TrailingPath marks a known name that is the tail of a full path, such
	// as a DAT "set/rom" entry, rather than the path itself.
	TrailingPath bool

	matchedBy atomic.Uint64
}

// NewFileRecord returns a record with no digests.
func NewFileRecord(size int64, name string) *FileRecord {
	if size < 0 {
		size = 0
	}
	return &FileRecord{
		Size:    size,
		Name:    name,
		Digests: make(map[algo.ID]string),
	}
}

// SetDigest stores hex for id in lower case. An empty value removes it.
func (r *FileRecord) SetDigest(id algo.ID, hex string) {
	if r.Digests == nil {
		r.Digests = make(map[algo.ID]string)
	}
	if hex == "" {
		delete(r.Digests, id)
		return
	}
	r.Digests[id] = strings.ToLower(hex)
}

// HexDigest returns the digest for id or "" when it was not computed.
func (r *FileRecord) HexDigest(id algo.ID) string {
	return r.Digests[id]
}

// Identity returns size and name.
func (r *FileRecord) Identity() (int64, string) {
	return r.Size, r.Name
}

// MarkMatched records which candidate matched this known record.
func (r *FileRecord) MarkMatched(fileNumber uint64) {
	r.matchedBy.Store(fileNumber)
}

// Matched reports whether any candidate matched this record.
func (r *FileRecord) Matched() bool {
	return r.matchedBy.Load() != 0
}
