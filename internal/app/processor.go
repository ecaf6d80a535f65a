package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/deephash/internal/algo"
	"github.com/xxxsen/deephash/internal/audit"
	"github.com/xxxsen/deephash/internal/config"
	"github.com/xxxsen/deephash/internal/db"
	"github.com/xxxsen/deephash/internal/hasher"
	"github.com/xxxsen/deephash/internal/hashlist"
)

// DigestCache stores whole-file digests keyed by location.
type DigestCache interface {
	Lookup(ctx context.Context, location, algorithms string, size, modTime int64) (map[string]string, bool, error)
	Upsert(ctx context.Context, location, algorithms string, size, modTime int64, digests map[string]string) error
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithOutput sets where results are written. Defaults to stdout.
func WithOutput(w io.Writer) ProcessorOption {
	return func(p *Processor) {
		p.w = w
	}
}

// WithStdin sets the reader hashed when no input files are given.
func WithStdin(r io.Reader) ProcessorOption {
	return func(p *Processor) {
		p.stdin = r
	}
}

// Processor runs one hashing pass in a given mode: it loads the known hashes,
// digests the inputs in parallel and folds every candidate into the mode's
// output on a single goroutine.
type Processor struct {
	mode Mode
	opts *Options
	set  settings
	cfg  *config.Config

	reg    *algo.Registry
	list   *hashlist.HashList
	hasher *hasher.Hasher
	recon  *audit.Reconciler
	cache  DigestCache
	algKey string

	cacheDB *sql.DB
	w       io.Writer
	stdin   io.Reader
	argv    []string
	cwd     string
	out     *display

	bytesRead uint64
	entries   []reportEntry
	started   time.Time
	stats     audit.Stats
}

type result struct {
	job  job
	recs []*hashlist.FileRecord
	err  error
}

// NewProcessor prepares a run. Errors returned here are fatal for the run.
func NewProcessor(ctx context.Context, mode Mode, opts *Options, cfg *config.Config, popts ...ProcessorOption) (*Processor, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if opts == nil {
		opts = &Options{}
	}
	set, err := opts.resolve(cfg)
	if err != nil {
		return nil, err
	}

	reg := algo.NewDefaultRegistry()
	requested, err := reg.ParseList(set.algorithms)
	if err != nil {
		return nil, err
	}
	reg.EnableOnly(requested)

	p := &Processor{
		mode:  mode,
		opts:  opts,
		set:   set,
		cfg:   cfg,
		reg:   reg,
		list:  hashlist.New(reg),
		w:     os.Stdout,
		stdin: os.Stdin,
		argv:  os.Args,
	}
	if wd, err := os.Getwd(); err == nil {
		p.cwd = wd
	}
	for _, opt := range popts {
		opt(p)
	}

	if mode.NeedsKnown() {
		if len(opts.Known) == 0 {
			return nil, fmt.Errorf("%s mode: %w: no known hashes file given", mode, ErrNoKnownHashes)
		}
		if err := p.loadKnown(ctx, opts.Known); err != nil {
			return nil, err
		}
		if p.list.Len() == 0 {
			return nil, ErrNoKnownHashes
		}
	}
	if err := p.pruneUnsupported(ctx, requested); err != nil {
		return nil, err
	}

	p.hasher, err = hasher.New(reg, hasher.WithPiecewise(set.piecewise))
	if err != nil {
		return nil, err
	}
	p.algKey = strings.Join(reg.Names(p.hasher.Algorithms()), ",")
	p.out = &display{w: p.w, reg: reg, ids: p.hasher.Algorithms(), opts: opts}
	if mode == ModeAudit {
		p.recon = audit.NewReconciler(p.list.Len(), audit.WithVerbose(opts.Verbose))
	}

	if p.cache == nil && cfg.Cache.Enabled && !opts.NoCache {
		sqlDB, err := openCache(ctx, cfg.Cache)
		if err != nil {
			logutil.GetLogger(ctx).Warn("digest cache unavailable, hashing without it", zap.Error(err))
		} else {
			p.cacheDB = sqlDB
			p.cache = db.DigestCacheDao
		}
	}
	if set.piecewise > 0 {
		p.cache = nil
	}
	return p, nil
}

// pruneUnsupported disables algorithms enabled by a known file that cannot be
// computed. Requested algorithms without an implementation are fatal.
func (p *Processor) pruneUnsupported(ctx context.Context, requested []algo.ID) error {
	wanted := make(map[algo.ID]bool, len(requested))
	for _, id := range requested {
		wanted[id] = true
	}
	for _, id := range p.reg.InUse() {
		if hasher.Supported(id) {
			continue
		}
		if wanted[id] {
			return fmt.Errorf("algorithm %s: %w", p.reg.Name(id), hasher.ErrNoImplementation)
		}
		p.reg.SetEnabled(id, false)
		logutil.GetLogger(ctx).Warn("known hashes use an algorithm that cannot be computed, ignoring it",
			zap.String("algorithm", p.reg.Name(id)),
		)
	}
	return nil
}

// List returns the known hashes.
func (p *Processor) List() *hashlist.HashList {
	return p.list
}

// Stats returns the audit counters after Run in audit mode.
func (p *Processor) Stats() audit.Stats {
	return p.stats
}

// Close releases the digest cache.
func (p *Processor) Close(ctx context.Context) {
	closeCache(ctx, p.cacheDB)
	p.cacheDB = nil
}

// Run digests args (stdin when empty) and produces the mode's output.
func (p *Processor) Run(ctx context.Context, args []string) error {
	p.started = time.Now()
	if p.mode == ModeCompute {
		p.out.banner(p.argv, p.cwd, os.Geteuid() == 0)
	}

	var err error
	if len(args) == 0 {
		err = p.runStdin(ctx)
	} else {
		err = p.runFiles(ctx, args)
	}
	if err != nil {
		return err
	}
	return p.finish(ctx)
}

func (p *Processor) runStdin(ctx context.Context) error {
	recs, err := p.hasher.Sum(ctx, p.stdin, "stdin")
	if err != nil {
		return fmt.Errorf("hash stdin: %w", err)
	}
	for _, rec := range recs {
		rec.Number = 1
	}
	return p.consume(ctx, result{job: job{number: 1, path: "stdin", display: "stdin"}, recs: recs})
}

func (p *Processor) runFiles(ctx context.Context, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	jobs := make(chan job, p.set.workers)
	results := make(chan result, p.set.workers)

	g.Go(func() error {
		defer close(jobs)
		return p.enumerate(gctx, args, func(j job) error {
			select {
			case jobs <- j:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	var wg sync.WaitGroup
	for i := 0; i < p.set.workers; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for j := range jobs {
				recs, err := p.digest(gctx, j)
				select {
				case results <- result{job: j, recs: recs, err: err}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var consumeErr error
	for res := range results {
		if consumeErr != nil {
			continue
		}
		if err := p.consume(gctx, res); err != nil {
			consumeErr = err
			cancel()
		}
	}
	if err := g.Wait(); err != nil && consumeErr == nil {
		return err
	}
	return consumeErr
}

// digest runs on a worker goroutine.
func (p *Processor) digest(ctx context.Context, j job) ([]*hashlist.FileRecord, error) {
	if p.cache != nil {
		if rec, ok := p.cached(ctx, j); ok {
			return []*hashlist.FileRecord{rec}, nil
		}
	}
	recs, err := p.hasher.HashFile(ctx, j.path, j.display)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		rec.Number = j.number
	}
	if p.cache != nil && len(recs) == 1 {
		p.store(ctx, j, recs[0])
	}
	return recs, nil
}

func cacheLocation(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func (p *Processor) cached(ctx context.Context, j job) (*hashlist.FileRecord, bool) {
	digests, ok, err := p.cache.Lookup(ctx, cacheLocation(j.path), p.algKey, j.size, j.modTime)
	if err != nil {
		logutil.GetLogger(ctx).Warn("digest cache lookup failed", zap.String("file", j.path), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	rec := hashlist.NewFileRecord(j.size, j.display)
	for _, id := range p.hasher.Algorithms() {
		hex := digests[p.reg.Name(id)]
		if !p.reg.IsValidHex(id, hex) {
			return nil, false
		}
		rec.SetDigest(id, hex)
	}
	rec.Number = j.number
	return rec, true
}

func (p *Processor) store(ctx context.Context, j job, rec *hashlist.FileRecord) {
	digests := make(map[string]string, len(rec.Digests))
	for id, hex := range rec.Digests {
		digests[p.reg.Name(id)] = hex
	}
	if err := p.cache.Upsert(ctx, cacheLocation(j.path), p.algKey, rec.Size, j.modTime, digests); err != nil {
		logutil.GetLogger(ctx).Warn("digest cache update failed", zap.String("file", j.path), zap.Error(err))
	}
}

// consume runs on the consumer goroutine only.
func (p *Processor) consume(ctx context.Context, res result) error {
	if res.err != nil {
		p.fileError(ctx, res.job.path, res.err)
		return nil
	}
	for _, rec := range res.recs {
		p.bytesRead += uint64(rec.Size)
		if err := p.handle(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) handle(ctx context.Context, rec *hashlist.FileRecord) error {
	switch p.mode {
	case ModeCompute:
		p.out.record(rec)
	case ModeMatch:
		v, known := p.list.Search(rec)
		if v == hashlist.NoMatch {
			return nil
		}
		p.out.match(rec, known)
		p.collect(rec, v, known)
	case ModeMatchNegative:
		v, _ := p.list.Search(rec)
		if v != hashlist.NoMatch {
			return nil
		}
		p.out.match(rec, nil)
		p.collect(rec, v, nil)
	case ModeAudit:
		v, known := p.list.Search(rec)
		if err := p.recon.Update(ctx, v, rec, known); err != nil {
			return err
		}
		if v != hashlist.Match {
			p.collect(rec, v, known)
		}
	default:
		return fmt.Errorf("unsupported mode %s", p.mode)
	}
	return nil
}

func (p *Processor) finish(ctx context.Context) error {
	switch p.mode {
	case ModeAudit:
		p.stats = p.recon.Finalize(p.list)
		unused := p.list.Unused()
		p.out.audit(p.stats, unused)
		if p.opts.Output != "" {
			if err := writeReport(ctx, p.cfg, p.opts.Output, p.auditReport(unused)); err != nil {
				return err
			}
		}
		if !p.stats.Passed() {
			return ErrAuditFailed
		}
	case ModeMatch, ModeMatchNegative:
		if p.opts.Output != "" {
			if err := writeReport(ctx, p.cfg, p.opts.Output, p.matchReport()); err != nil {
				return err
			}
		}
	}
	return nil
}

// fileError reports a recoverable per-file problem unless silenced.
func (p *Processor) fileError(ctx context.Context, path string, err error) {
	if p.opts.Silent {
		return
	}
	logutil.GetLogger(ctx).Error("file skipped", zap.String("file", path), zap.Error(err))
}
