package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/xxxsen/deephash/internal/config"
)

// Options are the flags shared by the hashing commands.
type Options struct {
	Algorithms string
	Known      []string
	Recursive  bool
	Piecewise  string
	SizeLimit  string
	Bare       bool
	Relative   bool
	Silent     bool
	Verbose    int
	Workers    int
	ShowKnown  bool
	FullLine   bool
	Output     string
	NoCache    bool
}

func (o *Options) initHashing(f *pflag.FlagSet) {
	f.StringVarP(&o.Algorithms, "compute", "c", "", "comma separated algorithms to compute (default from config)")
	f.BoolVarP(&o.Recursive, "recursive", "r", false, "recurse into directories")
	f.StringVarP(&o.Piecewise, "piecewise", "p", "", "hash files in blocks of this size, e.g. 1M")
	f.StringVarP(&o.SizeLimit, "size-limit", "i", "", "only process files no larger than this size, e.g. 100M")
	f.BoolVarP(&o.Bare, "bare", "b", false, "display bare file names")
	f.BoolVarP(&o.Relative, "relative", "l", false, "display relative file paths")
	f.BoolVarP(&o.Silent, "silent", "s", false, "suppress per-file error messages")
	f.IntVarP(&o.Workers, "workers", "j", 0, "number of hashing workers (default from config)")
	f.BoolVar(&o.NoCache, "no-cache", false, "do not use the digest cache")
}

func (o *Options) initKnown(f *pflag.FlagSet) {
	f.StringArrayVarP(&o.Known, "known", "k", nil, "known hashes file (hash list, DAT or s3://bucket/key), repeatable")
	f.CountVarP(&o.Verbose, "verbose", "v", "increase verbosity, repeatable")
	f.StringVar(&o.Output, "output", "", "write a JSON report to this path or s3://bucket/key")
}

func (o *Options) initMatchDisplay(f *pflag.FlagSet) {
	f.BoolVarP(&o.ShowKnown, "which", "w", false, "display which known file was matched")
	f.BoolVarP(&o.FullLine, "full", "M", false, "display the full hash line for matching files")
}

// settings are Options resolved against the configuration.
type settings struct {
	algorithms string
	explicit   bool
	piecewise  int64
	sizeLimit  int64
	workers    int
	nameStyle  nameStyle
}

func (o *Options) resolve(cfg *config.Config) (settings, error) {
	var s settings
	if o.Bare && o.Relative {
		return s, errors.New("bare and relative paths are mutually exclusive")
	}
	switch {
	case o.Bare:
		s.nameStyle = nameBare
	case o.Relative:
		s.nameStyle = nameRelative
	default:
		s.nameStyle = nameAbsolute
	}

	s.algorithms = strings.TrimSpace(o.Algorithms)
	s.explicit = s.algorithms != ""
	if !s.explicit {
		s.algorithms = cfg.AlgorithmList()
	}

	var err error
	if s.piecewise, err = parseSize("piecewise", o.Piecewise); err != nil {
		return s, err
	}
	if s.sizeLimit, err = parseSize("size limit", o.SizeLimit); err != nil {
		return s, err
	}

	s.workers = o.Workers
	if s.workers <= 0 {
		s.workers = cfg.Workers
	}
	if s.workers <= 0 {
		s.workers = config.DefaultWorkers
	}
	if s.workers > config.MaxWorkers {
		s.workers = config.MaxWorkers
	}
	return s, nil
}

func parseSize(what, value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", what, value, err)
	}
	if n == 0 || n > 1<<62 {
		return 0, fmt.Errorf("invalid %s %q", what, value)
	}
	return int64(n), nil
}
