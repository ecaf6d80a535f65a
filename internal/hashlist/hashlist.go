package hashlist

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/xxxsen/deephash/internal/algo"
	"github.com/xxxsen/deephash/internal/knownhash"
)

// anonymousCandidate marks known records matched by a candidate without a number.
const anonymousCandidate = ^uint64(0)

// HashList is the ordered set of known files plus one lookup table per algorithm.
type HashList struct {
	reg     *algo.Registry
	records []*FileRecord
	tables  map[algo.ID]*knownhash.Table

	// column layout of the most recently identified hash list file
	columns        []algo.ID
	lastAlgorithms string
}

// New returns an empty hash list bound to reg.
func New(reg *algo.Registry) *HashList {
	return &HashList{
		reg:    reg,
		tables: make(map[algo.ID]*knownhash.Table),
	}
}

// Registry returns the algorithm registry the list matches with.
func (l *HashList) Registry() *algo.Registry {
	return l.reg
}

// Add indexes every digest rec carries and appends it. A record every table
// already holds (same digest, size and name) is dropped and Add returns false.
func (l *HashList) Add(rec *FileRecord) bool {
	if rec == nil {
		return false
	}
	added := false
	for id, digest := range rec.Digests {
		if digest == "" {
			continue
		}
		t, ok := l.tables[id]
		if !ok {
			t = knownhash.NewTable(id)
			l.tables[id] = t
		}
		if t.Add(rec) {
			added = true
		}
	}
	if added {
		l.records = append(l.records, rec)
	}
	return added
}

// Len returns the number of known records.
func (l *HashList) Len() int {
	return len(l.records)
}

// Records returns the known records in load order.
func (l *HashList) Records() []*FileRecord {
	return l.records
}

// Unused returns the known records that no candidate has matched.
func (l *HashList) Unused() []*FileRecord {
	var unused []*FileRecord
	for _, rec := range l.records {
		if !rec.Matched() {
			unused = append(unused, rec)
		}
	}
	return unused
}

// Search classifies candidate against the known records. The first in-use
// algorithm whose digest hits a known record decides which record is compared;
// only that record is marked as matched by candidate.Number.
func (l *HashList) Search(candidate *FileRecord) (Verdict, *FileRecord) {
	if candidate == nil || len(l.records) == 0 {
		return NoMatch, nil
	}
	number := candidate.Number
	if number == 0 {
		number = anonymousCandidate
	}
	inUse := l.reg.InUse()
	for _, id := range inUse {
		digest := candidate.HexDigest(id)
		if digest == "" {
			continue
		}
		t, ok := l.tables[id]
		if !ok {
			continue
		}
		hits := t.Lookup(digest)
		if len(hits) == 0 {
			continue
		}
		known := l.pick(hits, candidate, id, inUse)
		known.MarkMatched(number)

		if !digestsAgree(candidate, known, id, inUse) {
			return PartialMatch, known
		}
		if candidate.Size != known.Size {
			return FileSizeMismatch, known
		}
		if !namesAgree(candidate, known) {
			return FileNameMismatch, known
		}
		return Match, known
	}
	return NoMatch, nil
}

// pick chooses among records sharing a digest, preferring one that agrees with
// the candidate on every digest, then on size, then on name, then one no
// candidate has matched yet so duplicates are consumed one by one.
func (l *HashList) pick(hits []knownhash.Record, candidate *FileRecord, hit algo.ID, inUse []algo.ID) *FileRecord {
	var best *FileRecord
	bestScore := -1
	for _, h := range hits {
		rec, ok := h.(*FileRecord)
		if !ok {
			continue
		}
		score := 0
		if digestsAgree(candidate, rec, hit, inUse) {
			score += 8
		}
		if rec.Size == candidate.Size {
			score += 4
		}
		if namesAgree(candidate, rec) {
			score += 2
		}
		if !rec.Matched() {
			score++
		}
		if score > bestScore {
			best, bestScore = rec, score
		}
	}
	return best
}

// namesAgree compares names exactly, or for a known record with a trailing
// path name, by path suffix or base name.
func namesAgree(candidate, known *FileRecord) bool {
	if candidate.Name == known.Name {
		return true
	}
	if !known.TrailingPath {
		return false
	}
	name := filepath.ToSlash(candidate.Name)
	return strings.HasSuffix(name, "/"+known.Name) || path.Base(name) == path.Base(known.Name)
}

// digestsAgree checks every in-use algorithm other than skip for which both
// records carry a digest.
func digestsAgree(a, b *FileRecord, skip algo.ID, inUse []algo.ID) bool {
	for _, id := range inUse {
		if id == skip {
			continue
		}
		x, y := a.HexDigest(id), b.HexDigest(id)
		if x == "" || y == "" {
			continue
		}
		if !strings.EqualFold(x, y) {
			return false
		}
	}
	return true
}
