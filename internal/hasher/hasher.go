package hasher

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/jzelinskie/whirlpool"
	"golang.org/x/crypto/sha3"

	"github.com/xxxsen/deephash/internal/algo"
	"github.com/xxxsen/deephash/internal/hashlist"
)

// ErrNoImplementation is returned when an enabled algorithm cannot be computed.
var ErrNoImplementation = errors.New("no digest implementation")

const defaultBufferSize = 1 << 20

var factories = map[algo.ID]func() hash.Hash{
	algo.MD5:       md5.New,
	algo.SHA1:      sha1.New,
	algo.SHA256:    sha256.New,
	algo.Whirlpool: whirlpool.New,
	algo.SHA3:      func() hash.Hash { return sha3.New256() },
}

// Supported reports whether digests for id can be computed.
func Supported(id algo.ID) bool {
	_, ok := factories[id]
	return ok
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithPiecewise splits input into blocks of size bytes, one record per block.
func WithPiecewise(size int64) Option {
	return func(h *Hasher) {
		h.piecewise = size
	}
}

// Hasher produces candidate records for the algorithms in use.
type Hasher struct {
	ids       []algo.ID
	piecewise int64
	bufSize   int
}

// New binds a hasher to the algorithms currently in use in reg.
func New(reg *algo.Registry, opts ...Option) (*Hasher, error) {
	h := &Hasher{
		ids:     reg.InUse(),
		bufSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	if len(h.ids) == 0 {
		return nil, fmt.Errorf("no algorithm enabled")
	}
	for _, id := range h.ids {
		if !Supported(id) {
			return nil, fmt.Errorf("algorithm %s: %w", reg.Name(id), ErrNoImplementation)
		}
	}
	return h, nil
}

// Algorithms returns the algorithm columns the hasher fills, in id order.
func (h *Hasher) Algorithms() []algo.ID {
	return h.ids
}

// HashFile digests the file at path and names the records display.
func (h *Hasher) HashFile(ctx context.Context, path, display string) ([]*hashlist.FileRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file for hash %s: %w", path, err)
	}
	defer f.Close()
	recs, err := h.Sum(ctx, f, display)
	if err != nil {
		return nil, fmt.Errorf("hash file %s: %w", path, err)
	}
	return recs, nil
}

// Sum digests r. Whole-file hashing returns a single record whose size is the
// number of bytes read; piecewise hashing returns one record per block named
// "<name> offset <start>-<end>".
func (h *Hasher) Sum(ctx context.Context, r io.Reader, name string) ([]*hashlist.FileRecord, error) {
	src := &ctxReader{ctx: ctx, r: r}
	buf := make([]byte, h.bufSize)
	if h.piecewise <= 0 {
		rec, _, err := h.block(src, buf, name, -1)
		if err != nil {
			return nil, err
		}
		return []*hashlist.FileRecord{rec}, nil
	}

	var recs []*hashlist.FileRecord
	var offset int64
	for {
		rec, n, err := h.block(src, buf, name, h.piecewise)
		if err != nil {
			return nil, err
		}
		if n == 0 && offset > 0 {
			break
		}
		rec.Name = fmt.Sprintf("%s offset %d-%d", name, offset, offset+n)
		recs = append(recs, rec)
		offset += n
		if n < h.piecewise {
			break
		}
	}
	return recs, nil
}

// block reads up to limit bytes (all of r when limit < 0) into fresh digests.
func (h *Hasher) block(r io.Reader, buf []byte, name string, limit int64) (*hashlist.FileRecord, int64, error) {
	sums := make([]hash.Hash, len(h.ids))
	writers := make([]io.Writer, len(h.ids))
	for i, id := range h.ids {
		sums[i] = factories[id]()
		writers[i] = sums[i]
	}
	w := io.MultiWriter(writers...)
	if limit >= 0 {
		r = io.LimitReader(r, limit)
	}
	n, err := io.CopyBuffer(w, r, buf)
	if err != nil {
		return nil, n, err
	}
	rec := hashlist.NewFileRecord(n, name)
	for i, id := range h.ids {
		rec.SetDigest(id, hex.EncodeToString(sums[i].Sum(nil)))
	}
	return rec, n, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
