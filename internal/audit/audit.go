package audit

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/deephash/internal/hashlist"
)

// Stats holds the audit counters of one run.
type Stats struct {
	Exact        uint64 `json:"exact"`
	Partial      uint64 `json:"partial"`
	Moved        uint64 `json:"moved"`
	Unused       uint64 `json:"unused"`
	Unknown      uint64 `json:"unknown"`
	Total        uint64 `json:"total"`
	SizeMismatch uint64 `json:"size_mismatch"`
}

// Passed reports whether every input file was known and every known file was seen.
func (s Stats) Passed() bool {
	return s.Unused == 0 && s.Unknown == 0 && s.Moved == 0
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithVerbose sets the verbosity used for per-file messages.
func WithVerbose(level int) Option {
	return func(r *Reconciler) {
		r.verbose = level
	}
}

// Reconciler folds match verdicts into Stats. It is not safe for concurrent use.
type Reconciler struct {
	stats   Stats
	verbose int
}

// NewReconciler returns a reconciler for a run against known records.
func NewReconciler(known int, opts ...Option) *Reconciler {
	r := &Reconciler{}
	if known > 0 {
		r.stats.Unused = uint64(known)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Update accounts one processed file. known is the record the verdict refers
// to and may be nil for a no match.
func (r *Reconciler) Update(ctx context.Context, v hashlist.Verdict, candidate, known *hashlist.FileRecord) error {
	logger := logutil.GetLogger(ctx)
	r.stats.Total++

	switch v {
	case hashlist.Match:
		r.stats.Exact++
	case hashlist.NoMatch:
		r.stats.Unknown++
		if r.verbose >= 2 && candidate != nil {
			logger.Info("did not match", zap.String("file", candidate.Name))
		}
	case hashlist.FileNameMismatch:
		r.stats.Moved++
		if r.verbose >= 2 && candidate != nil && known != nil {
			logger.Info("moved",
				zap.String("from", known.Name),
				zap.String("to", candidate.Name),
			)
		}
	case hashlist.PartialMatch:
		r.stats.Partial++
		if r.verbose >= 2 && candidate != nil && known != nil {
			logger.Info("partial match",
				zap.String("file", candidate.Name),
				zap.String("known", known.Name),
			)
		}
	case hashlist.FileSizeMismatch:
		r.stats.SizeMismatch++
		fields := []zap.Field{}
		if candidate != nil {
			fields = append(fields, zap.String("file", candidate.Name), zap.Int64("size", candidate.Size))
		}
		if known != nil {
			fields = append(fields, zap.String("known", known.Name), zap.Int64("known_size", known.Size))
		}
		logger.Error("hashes match but file size differs", fields...)
	default:
		return fmt.Errorf("unexpected verdict %d", int(v))
	}
	return nil
}

// Stats returns the counters accumulated so far. Unused still holds the
// initial known count until Finalize runs.
func (r *Reconciler) Stats() Stats {
	return r.stats
}

// Finalize recomputes Unused from the known records' matched markers and
// returns the final counters.
func (r *Reconciler) Finalize(list *hashlist.HashList) Stats {
	if list != nil {
		r.stats.Unused = uint64(len(list.Unused()))
	}
	return r.stats
}
