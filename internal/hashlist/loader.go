package hashlist

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/deephash/internal/algo"
)

const (
	HeaderPrefix = "%%%% "
	HeaderMagic  = HeaderPrefix + "HASHDEEP-1.0"

	sizeColumn     = "size,"
	filenameColumn = "filename"
	commentPrefix  = "#"
)

// ErrUnknownFiletype is returned when a stream lacks the hash list header.
var ErrUnknownFiletype = errors.New("unable to identify file format")

// Format identifies the layout of a known-hash file.
type Format int

const (
	FormatUnknown Format = iota
	FormatHashdeep10
)

// LoadStatus summarises a load.
type LoadStatus int

const (
	LoadOK LoadStatus = iota
	LoadContainsBadHashes
	LoadUnknownFiletype
	LoadFileError
)

func (s LoadStatus) String() string {
	switch s {
	case LoadOK:
		return "ok"
	case LoadContainsBadHashes:
		return "contains bad hashes"
	case LoadUnknownFiletype:
		return "unknown filetype"
	case LoadFileError:
		return "file error"
	}
	return "unknown"
}

// BadLineFunc receives a rejected data line of a known-hash file.
type BadLineFunc func(ctx context.Context, name string, line int, err error)

type loadConfig struct {
	onBadLine BadLineFunc
}

// LoadOption configures Load.
type LoadOption func(*loadConfig)

// WithBadLineHandler replaces the default Error log for rejected lines.
func WithBadLineHandler(fn BadLineFunc) LoadOption {
	return func(c *loadConfig) {
		if fn != nil {
			c.onBadLine = fn
		}
	}
}

func logBadLine(ctx context.Context, name string, line int, err error) {
	logutil.GetLogger(ctx).Error("invalid known hash line",
		zap.String("file", name),
		zap.Int("line", line),
		zap.Error(err),
	)
}

// Load reads a known-hash file from r. name is used in diagnostics only.
// Malformed data lines are reported and skipped; an unknown algorithm in the
// header aborts the load with an error wrapping algo.ErrUnknownAlgorithm.
func (l *HashList) Load(ctx context.Context, name string, r io.Reader, opts ...LoadOption) (LoadStatus, error) {
	cfg := &loadConfig{onBadLine: logBadLine}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := logutil.GetLogger(ctx)
	br := bufio.NewReader(r)

	format, err := l.IdentifyFormat(ctx, name, br)
	if err != nil {
		if errors.Is(err, ErrUnknownFiletype) {
			return LoadUnknownFiletype, err
		}
		return LoadFileError, err
	}
	if format == FormatUnknown {
		return LoadUnknownFiletype, fmt.Errorf("%s: %w", name, ErrUnknownFiletype)
	}

	status := LoadOK
	loaded := 0
	// the two header lines are already consumed
	lineNumber := 2
	for {
		line, readErr := readLine(br)
		if readErr != nil && readErr != io.EOF {
			return LoadFileError, fmt.Errorf("read known hashes %s: %w", name, readErr)
		}
		if readErr == io.EOF && line == "" {
			break
		}
		lineNumber++

		if line != "" && !strings.HasPrefix(line, commentPrefix) {
			rec, err := l.parseLine(line)
			if err != nil {
				cfg.onBadLine(ctx, name, lineNumber, err)
				status = LoadContainsBadHashes
			} else if l.Add(rec) {
				loaded++
			}
		}
		if readErr == io.EOF {
			break
		}
	}

	logger.Debug("known hashes loaded",
		zap.String("file", name),
		zap.Int("records", loaded),
		zap.String("status", status.String()),
	)
	return status, nil
}

// IdentifyFormat consumes the two header lines of a hash list file and, when
// they are recognised, enables the listed algorithms and fixes the column order.
func (l *HashList) IdentifyFormat(ctx context.Context, name string, br *bufio.Reader) (Format, error) {
	first, err := readLine(br)
	if err != nil && (err != io.EOF || first == "") {
		if err == io.EOF {
			return FormatUnknown, fmt.Errorf("%s: %w", name, ErrUnknownFiletype)
		}
		return FormatUnknown, fmt.Errorf("read header of %s: %w", name, err)
	}
	if first != HeaderMagic {
		return FormatUnknown, fmt.Errorf("%s: %w", name, ErrUnknownFiletype)
	}

	second, err := readLine(br)
	if err != nil && (err != io.EOF || second == "") {
		if err == io.EOF {
			return FormatUnknown, fmt.Errorf("%s: %w", name, ErrUnknownFiletype)
		}
		return FormatUnknown, fmt.Errorf("read header of %s: %w", name, err)
	}
	second = strings.TrimPrefix(second, HeaderPrefix)
	if len(second) < len(sizeColumn) || !strings.EqualFold(second[:len(sizeColumn)], sizeColumn) {
		return FormatUnknown, fmt.Errorf("%s: %w", name, ErrUnknownFiletype)
	}

	previous := l.lastAlgorithms
	if err := l.enableFromHeader(name, second[len(sizeColumn):]); err != nil {
		return FormatUnknown, err
	}
	if previous != "" && previous != l.lastAlgorithms {
		logutil.GetLogger(ctx).Warn("hashes not in same format as previously loaded",
			zap.String("file", name),
			zap.String("previous", previous),
			zap.String("current", l.lastAlgorithms),
		)
	}
	return FormatHashdeep10, nil
}

// enableFromHeader maps the algorithm names in the header to columns 1..n.
func (l *HashList) enableFromHeader(name, list string) error {
	var columns []algo.ID
	for _, field := range strings.Split(list, ",") {
		field = strings.ToLower(strings.TrimSpace(field))
		if field == filenameColumn {
			continue
		}
		id := l.reg.IDForName(field)
		if id == algo.Unknown {
			return fmt.Errorf("%s: badly formatted file: %w: %q", name, algo.ErrUnknownAlgorithm, field)
		}
		columns = append(columns, id)
	}
	for _, id := range columns {
		l.reg.SetEnabled(id, true)
	}
	l.columns = columns
	l.lastAlgorithms = strings.Join(l.reg.Names(columns), ",")
	return nil
}

// parseLine turns one data line into a record using the current column layout.
func (l *HashList) parseLine(line string) (*FileRecord, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 3 {
		return nil, fmt.Errorf("expected size, hashes and filename, got %d field(s)", len(fields))
	}
	if len(fields)-2 > len(l.columns) {
		return nil, fmt.Errorf("%d hash column(s) but header declares %d", len(fields)-2, len(l.columns))
	}

	rec := NewFileRecord(parseSize(fields[0]), fields[len(fields)-1])
	for i, word := range fields[1 : len(fields)-1] {
		id := l.columns[i]
		if !l.reg.IsValidHex(id, word) {
			return nil, fmt.Errorf("invalid %s hash %q", l.reg.Name(id), word)
		}
		rec.SetDigest(id, word)
	}
	return rec, nil
}

// parseSize reads the leading decimal digits of s; anything else yields 0.
func parseSize(s string) int64 {
	s = strings.TrimSpace(s)
	var n int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		if n > (math.MaxInt64-9)/10 {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	return n
}

// readLine returns the next line without its line terminator.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}
