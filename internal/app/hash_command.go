package app

import (
	"context"
	"io"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// HashCommand runs one of the hashing modes over its positional arguments.
type HashCommand struct {
	name     string
	desc     string
	mode     Mode
	negative bool
	opts     Options
	args     []string
	in       io.Reader
	out      io.Writer
	proc     *Processor
}

func NewComputeCommand() *HashCommand {
	return &HashCommand{
		name: "compute",
		desc: "Compute digests of files and print them as a hash list",
		mode: ModeCompute,
	}
}

func NewMatchCommand() *HashCommand {
	return &HashCommand{
		name: "match",
		desc: "Print input files that match (or with -x do not match) known hashes",
		mode: ModeMatch,
	}
}

func NewAuditCommand() *HashCommand {
	return &HashCommand{
		name: "audit",
		desc: "Reconcile input files against known hashes and report pass or fail",
		mode: ModeAudit,
	}
}

func (c *HashCommand) Name() string { return c.name }

func (c *HashCommand) Desc() string { return c.desc }

func (c *HashCommand) Init(f *pflag.FlagSet) {
	c.opts.initHashing(f)
	if c.mode == ModeCompute {
		return
	}
	c.opts.initKnown(f)
	if c.mode == ModeMatch {
		c.opts.initMatchDisplay(f)
		f.BoolVarP(&c.negative, "negative", "x", false, "print files that do not match any known hash")
	}
}

func (c *HashCommand) SetArgs(args []string) {
	c.args = args
}

func (c *HashCommand) SetStreams(in io.Reader, out io.Writer) {
	c.in = in
	c.out = out
}

func (c *HashCommand) PreRun(ctx context.Context) error {
	if c.mode == ModeMatch && c.negative {
		c.mode = ModeMatchNegative
	}
	var popts []ProcessorOption
	if c.in != nil {
		popts = append(popts, WithStdin(c.in))
	}
	if c.out != nil {
		popts = append(popts, WithOutput(c.out))
	}
	proc, err := NewProcessor(ctx, c.mode, &c.opts, CurrentConfig(), popts...)
	if err != nil {
		return err
	}
	c.proc = proc
	logutil.GetLogger(ctx).Debug("run prepared",
		zap.String("mode", c.mode.String()),
		zap.Int("known", proc.List().Len()),
		zap.Int("inputs", len(c.args)),
	)
	return nil
}

func (c *HashCommand) Run(ctx context.Context) error {
	return c.proc.Run(ctx, c.args)
}

func (c *HashCommand) PostRun(ctx context.Context) error {
	if c.proc != nil {
		c.proc.Close(ctx)
	}
	return nil
}

func init() {
	RegisterRunner("compute", func() IRunner { return NewComputeCommand() })
	RegisterRunner("match", func() IRunner { return NewMatchCommand() })
	RegisterRunner("audit", func() IRunner { return NewAuditCommand() })
}
