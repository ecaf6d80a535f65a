package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/deephash/internal/app"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "deephash",
	Short:         "Compute, match and audit file digests against known hash sets",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(commandContext(cmd), configPath)
		if err != nil {
			return err
		}
		initLogger(cfg)
		app.SetConfig(cfg)
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the CLI with ctx as the command context.
func ExecuteContext(ctx context.Context) error {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, app.ErrAuditFailed) {
			logutil.GetLogger(ctx).Error("exec cmd failed", zap.Error(err))
		}
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a json or yaml config file")
	for _, r := range app.RunnerList() {
		rootCmd.AddCommand(newRunnerCommand(app.MustResolveRunner(r)))
	}
}

func newRunnerCommand(runner app.IRunner) *cobra.Command {
	subcmd := &cobra.Command{
		Use:   runner.Name(),
		Short: runner.Desc(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if ar, ok := runner.(app.IArgsRunner); ok {
				ar.SetArgs(args)
			}
			if sr, ok := runner.(app.IStreamRunner); ok {
				sr.SetStreams(cmd.InOrStdin(), cmd.OutOrStdout())
			}
			if err := runner.PreRun(ctx); err != nil {
				return err
			}
			runErr := runner.Run(ctx)
			if err := runner.PostRun(ctx); err != nil && runErr == nil {
				return err
			}
			return runErr
		},
	}
	if _, ok := runner.(app.IArgsRunner); ok {
		subcmd.Use += " [FILE...]"
	} else {
		subcmd.Args = cobra.NoArgs
	}
	runner.Init(subcmd.Flags())
	return subcmd
}
