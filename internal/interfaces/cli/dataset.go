package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chemkit/dragonctl/internal/dataset"
)

// datasetFlags are shared by the dataset subcommands.
type datasetFlags struct {
	delimiter string
	header    bool
}

func (f *datasetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "\t", "column delimiter")
	cmd.Flags().BoolVar(&f.header, "header", true, "the first row is a header")
}

func (f *datasetFlags) parseDelimiter() (rune, error) {
	runes := []rune(f.delimiter)
	if len(runes) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", f.delimiter)
	}
	return runes[0], nil
}

// NewDatasetCmd groups the descriptor-table manipulation subcommands.
func NewDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Merge and split descriptor data tables",
	}
	cmd.AddCommand(newDatasetMergeCmd(), newDatasetSplitCmd())
	return cmd
}

func newDatasetMergeCmd() *cobra.Command {
	flags := &datasetFlags{}
	cmd := &cobra.Command{
		Use:   "merge <left> <right> <out>",
		Short: "Concatenate two tables column-wise into one",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := GetCLIContext(cmd); err != nil {
				return err
			}
			delim, err := flags.parseDelimiter()
			if err != nil {
				return err
			}

			left, err := dataset.ReadTable(args[0], delim, flags.header)
			if err != nil {
				return err
			}
			right, err := dataset.ReadTable(args[1], delim, flags.header)
			if err != nil {
				return err
			}
			merged, err := dataset.Merge(left, right)
			if err != nil {
				return err
			}
			if err := merged.Save(args[2], delim); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "merged %d + %d columns into %s\n",
				left.NumCols(), right.NumCols(), args[2])
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newDatasetSplitCmd() *cobra.Command {
	flags := &datasetFlags{}
	var at int
	cmd := &cobra.Command{
		Use:   "split <in> <left-out> <right-out>",
		Short: "Split a table column-wise at a given column index",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := GetCLIContext(cmd); err != nil {
				return err
			}
			delim, err := flags.parseDelimiter()
			if err != nil {
				return err
			}

			table, err := dataset.ReadTable(args[0], delim, flags.header)
			if err != nil {
				return err
			}
			left, right, err := dataset.Split(table, at)
			if err != nil {
				return err
			}
			if err := left.Save(args[1], delim); err != nil {
				return err
			}
			if err := right.Save(args[2], delim); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "split %s at column %d into %s and %s\n",
				args[0], at, args[1], args[2])
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&at, "at", 1, "number of columns in the left output")
	return cmd
}
