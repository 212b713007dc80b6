package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chemkit/dragonctl/internal/dragon"
)

// scriptFlags collects the tunables shared by commands that build a script.
type scriptFlags struct {
	version   int
	outputDir string
	weights   []string
	blocks    []int
	molInput  string
	molFormat string
	molFile   string
	saveType  string
	logMode   string
	knime     bool
}

// register binds the script flags to cmd.  Defaults mirror DefaultOptions;
// zero values mean "keep the default for the selected version".
func (f *scriptFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.IntVar(&f.version, "dragon-version", 0, "Dragon major version, 6 or 7 (default: from config)")
	fl.StringVar(&f.outputDir, "output-dir", "", "directory for the script and results (default: from config)")
	fl.StringSliceVar(&f.weights, "weights", nil, "descriptor weighting schemes")
	fl.IntSliceVar(&f.blocks, "blocks", nil, "descriptor block IDs to compute")
	fl.StringVar(&f.molInput, "mol-input", "", "molecule source: stdin or file")
	fl.StringVar(&f.molFormat, "mol-format", "", "molecule format for stdin input (e.g. SMILES, MDL)")
	fl.StringVar(&f.molFile, "mol-file", "", "molecule file path for file input")
	fl.StringVar(&f.saveType, "save-type", "", "output layout: singlefile, block, or subblock")
	fl.StringVar(&f.logMode, "log-mode", "", "Dragon log destination: none, stderr, or file")
	fl.BoolVar(&f.knime, "knime", false, "enable KNIME workflow mode (Dragon 7 only)")
}

// options materializes a dragon.Options from the flags, falling back to the
// configured version and output directory.
func (f *scriptFlags) options(cliCtx *CLIContext) (dragon.Options, string) {
	version := f.version
	if version == 0 {
		version = cliCtx.Config.Dragon.Version
	}
	opts := dragon.DefaultOptions(dragon.Version(version))

	if len(f.weights) > 0 {
		opts.Weights = f.weights
	}
	if len(f.blocks) > 0 {
		opts.Blocks = f.blocks
	}
	if f.molInput != "" {
		opts.MolInput = f.molInput
	}
	if f.molFormat != "" {
		opts.MolInputFormat = f.molFormat
	}
	if f.molFile != "" {
		opts.MolInput = dragon.MolInputFile
		opts.MolFile = f.molFile
	}
	if f.saveType != "" {
		opts.SaveType = f.saveType
	}
	if f.logMode != "" {
		opts.LogMode = f.logMode
	}
	if f.knime {
		opts.KnimeMode = true
	}

	outputDir := f.outputDir
	if outputDir == "" {
		outputDir = cliCtx.Config.Dragon.OutputDir
	}
	return opts, outputDir
}

// scriptSummary is the printable result of a build or inspect.
type scriptSummary struct {
	Version    int    `json:"version"`
	ScriptPath string `json:"script_path"`
	DataPath   string `json:"data_path,omitempty"`
	OutputDir  string `json:"output_dir"`
}

func (s scriptSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "version:     %d\n", s.Version)
	fmt.Fprintf(&b, "script path: %s\n", s.ScriptPath)
	fmt.Fprintf(&b, "output dir:  %s\n", s.OutputDir)
	if s.DataPath != "" {
		fmt.Fprintf(&b, "data path:   %s", s.DataPath)
	} else {
		fmt.Fprintf(&b, "data path:   (file output disabled)")
	}
	return b.String()
}

func summarize(w *dragon.Wizard) scriptSummary {
	return scriptSummary{
		Version:    int(w.Options().Version),
		ScriptPath: w.ScriptPath(),
		DataPath:   w.DataPath(),
		OutputDir:  w.OutputDir(),
	}
}

// NewScriptCmd groups the script-file subcommands.
func NewScriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Build and inspect Dragon script files",
	}
	cmd.AddCommand(newScriptBuildCmd(), newScriptInspectCmd())
	return cmd
}

func newScriptBuildCmd() *cobra.Command {
	flags := &scriptFlags{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Validate options and write a Dragon script file",
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
			return printResult(cmd, cliCtx.OutputFormat, summarize(w))
		},
	}
	flags.register(cmd)
	return cmd
}

func newScriptInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <script-file>",
		Short: "Parse an existing Dragon script and report its output paths",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			w := dragon.New(dragon.Options{}, cliCtx.Logger)
			if err := w.Load(args[0]); err != nil {
				return err
			}
			if cliCtx.OutputFormat == "text" {
				fmt.Fprintf(cmd.OutOrStdout(), "script path: %s\ndata path:   %s\n",
					w.ScriptPath(), w.DataPath())
				return nil
			}
			summary := summarize(w)
			summary.Version = 0 // the options are not recoverable from a loaded script
			return printResult(cmd, cliCtx.OutputFormat, summary)
		},
	}
	return cmd
}
