package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/deephash/internal/algo"
	"github.com/xxxsen/deephash/internal/dat"
	"github.com/xxxsen/deephash/internal/hashlist"
	"github.com/xxxsen/deephash/internal/storage"
)

// loadKnown loads every known hashes file into the list in order. An unknown
// algorithm aborts the run; unreadable or unrecognised files are reported and
// skipped.
func (p *Processor) loadKnown(ctx context.Context, paths []string) error {
	logger := logutil.GetLogger(ctx)
	for _, path := range paths {
		status, err := p.loadKnownFile(ctx, path)
		if errors.Is(err, algo.ErrUnknownAlgorithm) {
			return err
		}
		switch status {
		case hashlist.LoadOK:
		case hashlist.LoadContainsBadHashes:
			p.fileError(ctx, path, errors.New("file contains some bad hashes, using the valid ones"))
		case hashlist.LoadUnknownFiletype:
			p.fileError(ctx, path, errors.New("unable to identify file format"))
		default:
			if err == nil {
				err = errors.New(status.String())
			}
			p.fileError(ctx, path, err)
		}
		logger.Debug("known file processed",
			zap.String("file", path),
			zap.String("status", status.String()),
			zap.Int("known", p.list.Len()),
		)
	}
	return nil
}

func (p *Processor) loadKnownFile(ctx context.Context, path string) (hashlist.LoadStatus, error) {
	rc, err := p.openKnown(ctx, path)
	if err != nil {
		return hashlist.LoadFileError, err
	}
	defer rc.Close()

	br := bufio.NewReader(rc)
	if dat.Sniff(br) {
		return p.loadDAT(ctx, path, br)
	}
	return p.list.Load(ctx, path, br, hashlist.WithBadLineHandler(p.badLine))
}

func (p *Processor) badLine(ctx context.Context, name string, line int, err error) {
	p.fileError(ctx, fmt.Sprintf("%s:%d", name, line), fmt.Errorf("invalid known hash line: %w", err))
}

func (p *Processor) openKnown(ctx context.Context, path string) (io.ReadCloser, error) {
	if storage.IsRemote(path) {
		client, err := ensureStorage(ctx, p.cfg.S3)
		if err != nil {
			return nil, err
		}
		return client.Open(ctx, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open known hashes %s: %w", path, err)
	}
	return f, nil
}

func (p *Processor) loadDAT(ctx context.Context, path string, r io.Reader) (hashlist.LoadStatus, error) {
	df, err := dat.NewParser().Parse(r)
	if err != nil {
		return hashlist.LoadUnknownFiletype, fmt.Errorf("%s: %w", path, err)
	}
	reg := p.list.Registry()
	recs, ids, skipped := df.Records(reg)
	for _, id := range ids {
		reg.SetEnabled(id, true)
	}
	for _, rec := range recs {
		p.list.Add(rec)
	}
	logutil.GetLogger(ctx).Debug("dat loaded",
		zap.String("file", path),
		zap.String("name", df.Header.Name),
		zap.Int("records", len(recs)),
		zap.Int("skipped", skipped),
	)
	return hashlist.LoadOK, nil
}
