package dragon

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/chemkit/dragonctl/internal/infrastructure/monitoring/logging"
	"github.com/chemkit/dragonctl/pkg/errors"
)

// DefaultShellPattern composes the Dragon shell binary name from the major
// version, e.g. "dragon7shell".
const DefaultShellPattern = "dragon%dshell"

// LaunchResult describes a successfully started Dragon process.  The process
// runs detached; its exit status is never observed.
type LaunchResult struct {
	PID       int
	Command   string
	StartedAt time.Time
}

// Runner invokes the external Dragon shell against a built script.
type Runner struct {
	shellPattern string
	logger       logging.Logger
}

// NewRunner returns a Runner using the given shell binary name pattern.
// An empty pattern selects DefaultShellPattern; a nil logger falls back to
// the process default.
func NewRunner(shellPattern string, logger logging.Logger) *Runner {
	if shellPattern == "" {
		shellPattern = DefaultShellPattern
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{
		shellPattern: shellPattern,
		logger:       logger.Named("runner"),
	}
}

// shellName renders the Dragon shell binary name for a version.
func (r *Runner) shellName(v Version) string {
	return fmt.Sprintf(r.shellPattern, int(v))
}

// Launch starts the Dragon shell detached and returns immediately.  Each call
// launches a new process; calling it repeatedly on the same Wizard is valid.
// Launch failures (binary missing, permission denied) are reported as errors;
// anything that happens after the process has started is invisible to this
// layer.
func (r *Runner) Launch(w *Wizard) (*LaunchResult, error) {
	if !w.Built() {
		return nil, errors.New(errors.ErrCodeScriptNotBuilt,
			"call Build or Load before launching Dragon")
	}

	shell := r.shellName(w.Options().Version)
	r.logger.Info("running Dragon",
		logging.String("shell", shell),
		logging.String("script", w.ScriptPath()))

	cmd := exec.Command(shell, "-s", w.ScriptPath())
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProcessLaunchFailed,
			"failed to launch Dragon shell").WithDetail(shell)
	}

	res := &LaunchResult{
		PID:       cmd.Process.Pid,
		Command:   fmt.Sprintf("%s -s %s", shell, w.ScriptPath()),
		StartedAt: time.Now(),
	}
	// Detach: the child keeps running after dragonctl exits and is never
	// reaped by this process.
	if err := cmd.Process.Release(); err != nil {
		r.logger.Warn("failed to release Dragon process handle", logging.Err(err))
	}

	r.logger.Info("Dragon job launched",
		logging.Int("pid", res.PID),
		logging.String("command", res.Command))
	return res, nil
}

// Run starts the Dragon shell and blocks until it exits or ctx is done.  It
// exists for callers that need deterministic completion (tests, batch
// pipelines); the classic orchestration path uses Launch.
func (r *Runner) Run(ctx context.Context, w *Wizard) error {
	if !w.Built() {
		return errors.New(errors.ErrCodeScriptNotBuilt,
			"call Build or Load before running Dragon")
	}

	shell := r.shellName(w.Options().Version)
	r.logger.Info("running Dragon (blocking)",
		logging.String("shell", shell),
		logging.String("script", w.ScriptPath()))

	cmd := exec.CommandContext(ctx, shell, "-s", w.ScriptPath())
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), errors.ErrCodeTimeout,
				"Dragon run cancelled").WithDetail(shell)
		}
		return errors.Wrap(err, errors.ErrCodeProcessWaitFailed,
			"Dragon shell did not complete").WithDetail(shell)
	}

	r.logger.Info("Dragon job completed", logging.String("shell", shell))
	return nil
}
