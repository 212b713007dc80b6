package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chemkit/dragonctl/internal/application/descriptor"
	"github.com/chemkit/dragonctl/internal/infrastructure/jobstore"
	"github.com/chemkit/dragonctl/pkg/errors"
)

// JobServiceFactory builds the descriptor job service on demand, so that
// Redis and object storage are only dialed by the job subcommands.
type JobServiceFactory func(cliCtx *CLIContext) (*descriptor.Service, error)

// jobView is the printable projection of a job record.
type jobView struct {
	ID           string   `json:"id"`
	State        string   `json:"state"`
	Version      int      `json:"version"`
	PID          int      `json:"pid"`
	ScriptPath   string   `json:"script_path"`
	DataPath     string   `json:"data_path"`
	SubmittedAt  string   `json:"submitted_at"`
	CollectedAt  string   `json:"collected_at,omitempty"`
	ArtifactKeys []string `json:"artifact_keys,omitempty"`
	Error        string   `json:"error,omitempty"`
}

func (v jobView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "job:       %s\n", v.ID)
	fmt.Fprintf(&b, "state:     %s\n", v.State)
	fmt.Fprintf(&b, "version:   %d\n", v.Version)
	fmt.Fprintf(&b, "pid:       %d\n", v.PID)
	fmt.Fprintf(&b, "script:    %s\n", v.ScriptPath)
	fmt.Fprintf(&b, "data:      %s\n", v.DataPath)
	fmt.Fprintf(&b, "submitted: %s", v.SubmittedAt)
	if v.CollectedAt != "" {
		fmt.Fprintf(&b, "\ncollected: %s", v.CollectedAt)
	}
	for _, key := range v.ArtifactKeys {
		fmt.Fprintf(&b, "\nartifact:  %s", key)
	}
	if v.Error != "" {
		fmt.Fprintf(&b, "\nerror:     %s", v.Error)
	}
	return b.String()
}

func viewOf(rec *jobstore.JobRecord) jobView {
	v := jobView{
		ID:           rec.ID,
		State:        string(rec.State),
		Version:      rec.Version,
		PID:          rec.PID,
		ScriptPath:   rec.ScriptPath,
		DataPath:     rec.DataPath,
		SubmittedAt:  rec.SubmittedAt.Format(time.RFC3339),
		ArtifactKeys: rec.ArtifactKeys,
		Error:        rec.Error,
	}
	if !rec.CollectedAt.IsZero() {
		v.CollectedAt = rec.CollectedAt.Format(time.RFC3339)
	}
	return v
}

// NewJobCmd groups the descriptor-job subcommands.
func NewJobCmd(factory JobServiceFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Submit, track, and collect descriptor-calculation jobs",
	}
	cmd.AddCommand(
		newJobSubmitCmd(factory),
		newJobCollectCmd(factory),
		newJobStatusCmd(factory),
		newJobListCmd(factory),
	)
	return cmd
}

// service resolves the shared CLI context and the job service in one step.
func service(cmd *cobra.Command, factory JobServiceFactory) (*CLIContext, *descriptor.Service, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	if factory == nil {
		return nil, nil, errors.New(errors.ErrCodeNotImplemented, "job commands are not wired")
	}
	svc, err := factory(cliCtx)
	if err != nil {
		return nil, nil, err
	}
	return cliCtx, svc, nil
}

func newJobSubmitCmd(factory JobServiceFactory) *cobra.Command {
	flags := &scriptFlags{}
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Build a script, launch Dragon detached, and record the job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, svc, err := service(cmd, factory)
			if err != nil {
				return err
			}
			opts, _ := flags.options(cliCtx)
			rec, err := svc.Submit(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printResult(cmd, cliCtx.OutputFormat, viewOf(rec))
		},
	}
	flags.register(cmd)
	return cmd
}

func newJobCollectCmd(factory JobServiceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "collect <job-id>",
		Short: "Archive a finished job's script and output table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, svc, err := service(cmd, factory)
			if err != nil {
				return err
			}
			rec, err := svc.Collect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, cliCtx.OutputFormat, viewOf(rec))
		},
	}
}

func newJobStatusCmd(factory JobServiceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the stored record of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, svc, err := service(cmd, factory)
			if err != nil {
				return err
			}
			rec, err := svc.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, cliCtx.OutputFormat, viewOf(rec))
		},
	}
}

func newJobListCmd(factory JobServiceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the IDs of all known jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, svc, err := service(cmd, factory)
			if err != nil {
				return err
			}
			ids, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == "text" {
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			}
			return printResult(cmd, cliCtx.OutputFormat, ids)
		},
	}
}
