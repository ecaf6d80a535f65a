package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type nameStyle int

const (
	nameAbsolute nameStyle = iota
	nameRelative
	nameBare
)

func displayName(style nameStyle, path string) string {
	switch style {
	case nameBare:
		return filepath.Base(path)
	case nameRelative:
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// job is one input file to digest.
type job struct {
	number  uint64
	path    string
	display string
	size    int64
	modTime int64
}

// enumerate walks the inputs in argument order and emits one job per regular
// file. Per-file problems are reported through p.fileError.
func (p *Processor) enumerate(ctx context.Context, args []string, emit func(job) error) error {
	var number uint64
	visit := func(path string, info os.FileInfo) error {
		if !info.Mode().IsRegular() {
			return nil
		}
		if p.set.sizeLimit > 0 && info.Size() > p.set.sizeLimit {
			return nil
		}
		number++
		return emit(job{
			number:  number,
			path:    path,
			display: displayName(p.set.nameStyle, path),
			size:    info.Size(),
			modTime: info.ModTime().UnixNano(),
		})
	}

	for _, arg := range args {
		if err := ctx.Err(); err != nil {
			return err
		}
		info, err := os.Stat(arg)
		if err != nil {
			p.fileError(ctx, arg, err)
			continue
		}
		if !info.IsDir() {
			if !info.Mode().IsRegular() {
				p.fileError(ctx, arg, errors.New("not a regular file"))
				continue
			}
			if err := visit(arg, info); err != nil {
				return err
			}
			continue
		}
		if !p.opts.Recursive {
			p.fileError(ctx, arg, errors.New("is a directory"))
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				p.fileError(ctx, path, walkErr)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				p.fileError(ctx, path, err)
				return nil
			}
			return visit(path, fi)
		})
		if err != nil {
			return fmt.Errorf("walk %s: %w", arg, err)
		}
	}
	return nil
}
