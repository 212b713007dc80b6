package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/chemkit/dragonctl/internal/dragon"
)

// NewRunCmd builds a script and runs the Dragon shell against it, blocking
// until the process exits or the timeout fires.
func NewRunCmd() *cobra.Command {
	flags := &scriptFlags{}
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build a Dragon script and run the Dragon shell to completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			opts, outputDir := flags.options(cliCtx)

			w := dragon.New(opts, cliCtx.Logger)
			if err := w.Build(outputDir); err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			runner := dragon.NewRunner(cliCtx.Config.Dragon.ShellPattern, cliCtx.Logger)
			if err := runner.Run(ctx, w); err != nil {
				return err
			}
			return printResult(cmd, cliCtx.OutputFormat, summarize(w))
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the Dragon run after this duration (0 = no limit)")
	return cmd
}
