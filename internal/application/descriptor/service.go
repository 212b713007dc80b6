// Package descriptor coordinates descriptor-calculation jobs: building the
// Dragon script, launching the external process, tracking the job record, and
// collecting the output once Dragon has written it.
package descriptor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/chemkit/dragonctl/internal/dragon"
	"github.com/chemkit/dragonctl/internal/infrastructure/jobstore"
	"github.com/chemkit/dragonctl/internal/infrastructure/monitoring/logging"
	"github.com/chemkit/dragonctl/internal/infrastructure/monitoring/metrics"
	"github.com/chemkit/dragonctl/pkg/errors"
)

// Launcher starts the Dragon process for a built script.
type Launcher interface {
	Launch(w *dragon.Wizard) (*dragon.LaunchResult, error)
}

// JobStore persists job records between invocations.
type JobStore interface {
	Save(ctx context.Context, rec *jobstore.JobRecord) error
	Get(ctx context.Context, id string) (*jobstore.JobRecord, error)
	Transition(ctx context.Context, id string, next jobstore.JobState, mutate func(*jobstore.JobRecord)) (*jobstore.JobRecord, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// Archiver uploads job artifacts to durable storage.
type Archiver interface {
	ArchiveFile(ctx context.Context, jobID, localPath string) (string, error)
}

// Service runs the submit/collect lifecycle.
type Service struct {
	launcher Launcher
	jobs     JobStore
	archive  Archiver
	metrics  *metrics.Metrics
	logger   logging.Logger

	// outputRoot is the directory under which each job gets its own
	// working directory, named by job ID.
	outputRoot string

	now func() time.Time
}

// NewService wires the service.  A nil metrics or logger falls back to
// no-op instances.
func NewService(launcher Launcher, jobs JobStore, archive Archiver, m *metrics.Metrics, outputRoot string, log logging.Logger) *Service {
	if m == nil {
		m = metrics.NewNop()
	}
	if log == nil {
		log = logging.Default()
	}
	return &Service{
		launcher:   launcher,
		jobs:       jobs,
		archive:    archive,
		metrics:    m,
		logger:     log.Named("descriptor"),
		outputRoot: outputRoot,
		now:        time.Now,
	}
}

// Submit builds a Dragon script for opts in a fresh job directory, launches
// the Dragon shell detached, and records the job.  The returned record is in
// state "launched".
//
// Collection polls the output file, so submissions with file saving disabled
// are rejected up front.
func (s *Service) Submit(ctx context.Context, opts dragon.Options) (*jobstore.JobRecord, error) {
	if !opts.SaveFile {
		return nil, errors.New(errors.ErrCodeValidation,
			"descriptor jobs require file output to be enabled")
	}

	jobID := uuid.NewString()
	outputDir := filepath.Join(s.outputRoot, jobID)

	w := dragon.New(opts, s.logger)
	if err := w.Build(outputDir); err != nil {
		s.metrics.BuildFailures.WithLabelValues(string(errors.GetCode(err))).Inc()
		return nil, err
	}
	s.metrics.ScriptsBuilt.WithLabelValues(fmt.Sprintf("%d", opts.Version)).Inc()

	res, err := s.launcher.Launch(w)
	if err != nil {
		s.metrics.LaunchFailures.WithLabelValues(fmt.Sprintf("%d", opts.Version)).Inc()
		return nil, err
	}
	s.metrics.LaunchesTotal.WithLabelValues(fmt.Sprintf("%d", opts.Version)).Inc()

	rec := &jobstore.JobRecord{
		ID:          jobID,
		Version:     int(opts.Version),
		ScriptPath:  w.ScriptPath(),
		DataPath:    w.DataPath(),
		OutputDir:   w.OutputDir(),
		PID:         res.PID,
		State:       jobstore.StateLaunched,
		SubmittedAt: s.now(),
	}
	if err := s.jobs.Save(ctx, rec); err != nil {
		return nil, err
	}
	s.metrics.JobsSubmitted.Inc()

	s.logger.Info("descriptor job submitted",
		logging.String("job_id", jobID),
		logging.Int("pid", res.PID),
		logging.String("data_path", rec.DataPath))
	return rec, nil
}

// Collect checks whether the job's output table exists yet.  If it does, the
// script and the output are archived and the job moves to "collected"; if not,
// ErrCodeJobNotReady is returned and the job stays launched.  Collecting an
// already-collected job returns its record unchanged.
func (s *Service) Collect(ctx context.Context, jobID string) (*jobstore.JobRecord, error) {
	rec, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if rec.State == jobstore.StateCollected {
		return rec, nil
	}
	if rec.State == jobstore.StateFailed {
		return nil, errors.New(errors.ErrCodeJobInvalidState,
			fmt.Sprintf("job %s has failed and cannot be collected", jobID))
	}

	if _, err := os.Stat(rec.DataPath); err != nil {
		s.metrics.CollectsNotReady.Inc()
		return nil, errors.New(errors.ErrCodeJobNotReady,
			fmt.Sprintf("output for job %s not written yet", jobID))
	}

	scriptKey, err := s.archive.ArchiveFile(ctx, jobID, rec.ScriptPath)
	if err != nil {
		return nil, err
	}
	dataKey, err := s.archive.ArchiveFile(ctx, jobID, rec.DataPath)
	if err != nil {
		return nil, err
	}

	collected, err := s.jobs.Transition(ctx, jobID, jobstore.StateCollected, func(r *jobstore.JobRecord) {
		r.CollectedAt = s.now()
		r.ArtifactKeys = []string{scriptKey, dataKey}
	})
	if err != nil {
		return nil, err
	}
	s.metrics.JobsCollected.Inc()

	s.logger.Info("descriptor job collected",
		logging.String("job_id", jobID),
		logging.String("data_key", dataKey))
	return collected, nil
}

// Fail marks the job as failed with a reason, for jobs whose Dragon process
// died without producing output.
func (s *Service) Fail(ctx context.Context, jobID, reason string) (*jobstore.JobRecord, error) {
	return s.jobs.Transition(ctx, jobID, jobstore.StateFailed, func(r *jobstore.JobRecord) {
		r.Error = reason
	})
}

// Status returns the stored record for jobID.
func (s *Service) Status(ctx context.Context, jobID string) (*jobstore.JobRecord, error) {
	return s.jobs.Get(ctx, jobID)
}

// List returns the IDs of all known jobs.
func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.jobs.ListIDs(ctx)
}
