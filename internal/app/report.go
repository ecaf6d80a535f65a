package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/deephash/internal/config"
	"github.com/xxxsen/deephash/internal/hashlist"
	"github.com/xxxsen/deephash/internal/model"
	"github.com/xxxsen/deephash/internal/storage"
)

type reportEntry struct {
	rec     *hashlist.FileRecord
	verdict hashlist.Verdict
	known   *hashlist.FileRecord
}

// collect keeps an entry for the JSON report when one was requested.
func (p *Processor) collect(rec *hashlist.FileRecord, v hashlist.Verdict, known *hashlist.FileRecord) {
	if p.opts.Output == "" {
		return
	}
	p.entries = append(p.entries, reportEntry{rec: rec, verdict: v, known: known})
}

func (p *Processor) fileEntry(rec *hashlist.FileRecord) model.FileEntry {
	digests := make(map[string]string, len(rec.Digests))
	for id, hex := range rec.Digests {
		digests[p.reg.Name(id)] = hex
	}
	return model.FileEntry{Name: rec.Name, Size: rec.Size, Digests: digests}
}

func (p *Processor) matchEntries() []model.MatchEntry {
	out := make([]model.MatchEntry, 0, len(p.entries))
	for _, e := range p.entries {
		entry := model.MatchEntry{File: p.fileEntry(e.rec), Verdict: e.verdict.String()}
		if e.known != nil {
			known := p.fileEntry(e.known)
			entry.Known = &known
		}
		out = append(out, entry)
	}
	return out
}

func (p *Processor) auditReport(unused []*hashlist.FileRecord) *model.AuditReport {
	st := p.stats
	report := &model.AuditReport{
		RunID:      uuid.NewString(),
		StartedAt:  p.started.Unix(),
		FinishedAt: time.Now().Unix(),
		Algorithms: p.reg.Names(p.hasher.Algorithms()),
		KnownFiles: p.opts.Known,
		KnownCount: p.list.Len(),
		Passed:     st.Passed(),
		Counters: model.AuditCounters{
			Exact:        st.Exact,
			Partial:      st.Partial,
			Moved:        st.Moved,
			Unused:       st.Unused,
			Unknown:      st.Unknown,
			Total:        st.Total,
			SizeMismatch: st.SizeMismatch,
		},
		Unmatched: p.matchEntries(),
		BytesRead: humanize.Bytes(p.bytesRead),
	}
	for _, rec := range unused {
		report.Unused = append(report.Unused, p.fileEntry(rec))
	}
	return report
}

func (p *Processor) matchReport() *model.MatchReport {
	files := p.matchEntries()
	return &model.MatchReport{
		RunID:      uuid.NewString(),
		Negative:   p.mode == ModeMatchNegative,
		Algorithms: p.reg.Names(p.hasher.Algorithms()),
		KnownFiles: p.opts.Known,
		Count:      len(files),
		Files:      files,
	}
}

// writeReport stores v as indented JSON at a local path or s3:// location.
func writeReport(ctx context.Context, cfg *config.Config, location string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if storage.IsRemote(location) {
		client, err := ensureStorage(ctx, cfg.S3)
		if err != nil {
			return err
		}
		if err := client.Put(ctx, location, bytes.NewReader(raw), int64(len(raw)), "application/json"); err != nil {
			return fmt.Errorf("upload report: %w", err)
		}
	} else if err := os.WriteFile(location, raw, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", location, err)
	}
	logutil.GetLogger(ctx).Info("report written",
		zap.String("location", location),
		zap.String("size", humanize.Bytes(uint64(len(raw)))),
	)
	return nil
}
