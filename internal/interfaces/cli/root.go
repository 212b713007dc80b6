// Package cli implements the dragonctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chemkit/dragonctl/internal/config"
	"github.com/chemkit/dragonctl/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
}

// NewRootCommand creates the root command with global flags and subcommands.
func NewRootCommand(deps CommandDependencies) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dragonctl",
		Short: "dragonctl — build, validate, and run Dragon descriptor-calculation scripts",
		Long: "dragonctl generates configuration scripts for the Dragon molecular-descriptor\n" +
			"software (versions 6 and 7), launches the Dragon shell against them, and\n" +
			"tracks descriptor jobs from submission to collection.",
		Version:           fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return persistentPreRun(cmd, opts) },
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: environment only)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json)")

	cmd.AddCommand(
		NewScriptCmd(),
		NewRunCmd(),
		NewJobCmd(deps.JobService),
		NewDatasetCmd(),
	)

	return cmd
}

// CommandDependencies aggregates injected dependencies for CLI commands.
// Heavy backends (Redis, object storage) are dialed lazily via the factory so
// that purely local commands never touch them.
type CommandDependencies struct {
	JobService JobServiceFactory
}

// persistentPreRun loads configuration and initializes logging, then stores
// the CLIContext on the command's context.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	logger, err := logging.NewLogger(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
	})
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	logging.SetDefault(logger)

	switch opts.OutputFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid output format %q; expected text or json", opts.OutputFormat)
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: opts.OutputFormat,
	}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// GetCLIContext extracts the CLIContext stored by persistentPreRun.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	cliCtx, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, fmt.Errorf("CLI context not initialized")
	}
	return cliCtx, nil
}

// printResult renders v on the command's stdout in the selected format.
// Text mode expects v to implement fmt.Stringer; otherwise JSON is used.
func printResult(cmd *cobra.Command, format string, v interface{}) error {
	if format == "text" {
		if s, ok := v.(fmt.Stringer); ok {
			fmt.Fprintln(cmd.OutOrStdout(), s.String())
			return nil
		}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the root command and exits non-zero on error.
func Execute(deps CommandDependencies) {
	cmd := NewRootCommand(deps)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
