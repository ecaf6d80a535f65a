package app

import (
	"context"
	"io"

	"github.com/spf13/pflag"
)

// IRunner represents a runnable command in the application layer.
type IRunner interface {
	Name() string
	Desc() string
	Init(f *pflag.FlagSet)
	PreRun(ctx context.Context) error
	Run(ctx context.Context) error
	PostRun(ctx context.Context) error
}

// IArgsRunner is implemented by runners that consume positional arguments.
type IArgsRunner interface {
	SetArgs(args []string)
}

// IStreamRunner is implemented by runners that read input or print results.
type IStreamRunner interface {
	SetStreams(in io.Reader, out io.Writer)
}
