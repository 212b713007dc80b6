package descriptor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chemkit/dragonctl/internal/dragon"
	"github.com/chemkit/dragonctl/internal/infrastructure/jobstore"
	"github.com/chemkit/dragonctl/internal/infrastructure/monitoring/logging"
	"github.com/chemkit/dragonctl/pkg/errors"
)

type mockLauncher struct {
	mock.Mock
}

func (m *mockLauncher) Launch(w *dragon.Wizard) (*dragon.LaunchResult, error) {
	args := m.Called(w)
	res, _ := args.Get(0).(*dragon.LaunchResult)
	return res, args.Error(1)
}

type mockArchiver struct {
	mock.Mock
}

func (m *mockArchiver) ArchiveFile(ctx context.Context, jobID, localPath string) (string, error) {
	args := m.Called(ctx, jobID, localPath)
	return args.String(0), args.Error(1)
}

// memStore is an in-memory JobStore; the redis-backed implementation is
// covered by its own package tests.
type memStore struct {
	records map[string]*jobstore.JobRecord
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*jobstore.JobRecord)}
}

func (s *memStore) Save(_ context.Context, rec *jobstore.JobRecord) error {
	clone := *rec
	s.records[rec.ID] = &clone
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*jobstore.JobRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeJobNotFound, "job "+id+" not found")
	}
	clone := *rec
	return &clone, nil
}

func (s *memStore) Transition(ctx context.Context, id string, next jobstore.JobState, mutate func(*jobstore.JobRecord)) (*jobstore.JobRecord, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.State.CanTransition(next) {
		return nil, errors.New(errors.ErrCodeJobInvalidState, "bad transition")
	}
	if mutate != nil {
		mutate(rec)
	}
	rec.State = next
	return rec, s.Save(ctx, rec)
}

func (s *memStore) ListIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func submitOptions() dragon.Options {
	opts := dragon.DefaultOptions(dragon.Version7)
	opts.MolFile = "molecules.smi"
	return opts
}

func newTestService(t *testing.T, launcher Launcher, store JobStore, archive Archiver) *Service {
	t.Helper()
	return NewService(launcher, store, archive, nil, t.TempDir(), logging.NewNopLogger())
}

func TestSubmit_BuildsLaunchesAndRecords(t *testing.T) {
	t.Parallel()

	launcher := &mockLauncher{}
	launcher.On("Launch", mock.AnythingOfType("*dragon.Wizard")).
		Return(&dragon.LaunchResult{PID: 1234, Command: "dragon7shell -s x", StartedAt: time.Now()}, nil)
	store := newMemStore()

	svc := newTestService(t, launcher, store, &mockArchiver{})
	rec, err := svc.Submit(context.Background(), submitOptions())
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 7, rec.Version)
	assert.Equal(t, 1234, rec.PID)
	assert.Equal(t, jobstore.StateLaunched, rec.State)
	assert.FileExists(t, rec.ScriptPath)
	assert.Equal(t, filepath.Dir(rec.ScriptPath)+string(filepath.Separator), rec.OutputDir)
	assert.NotEmpty(t, rec.DataPath)

	stored, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, stored.ID)
}

func TestSubmit_RejectsDisabledFileOutput(t *testing.T) {
	t.Parallel()

	opts := submitOptions()
	opts.SaveFile = false

	svc := newTestService(t, &mockLauncher{}, newMemStore(), &mockArchiver{})
	_, err := svc.Submit(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestSubmit_BuildFailureIsReported(t *testing.T) {
	t.Parallel()

	opts := submitOptions()
	opts.Weights = []string{"Charge"}

	launcher := &mockLauncher{}
	svc := newTestService(t, launcher, newMemStore(), &mockArchiver{})
	_, err := svc.Submit(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScriptInvalidWeight))
	launcher.AssertNotCalled(t, "Launch")
}

func TestSubmit_LaunchFailureIsReported(t *testing.T) {
	t.Parallel()

	launcher := &mockLauncher{}
	launcher.On("Launch", mock.Anything).Return(nil, errors.New(errors.ErrCodeProcessLaunchFailed, "no shell"))
	store := newMemStore()

	svc := newTestService(t, launcher, store, &mockArchiver{})
	_, err := svc.Submit(context.Background(), submitOptions())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeProcessLaunchFailed))
	assert.Empty(t, store.records)
}

// launchAndStore submits one job and returns its record.
func launchAndStore(t *testing.T, store JobStore, archive Archiver) (*Service, *jobstore.JobRecord) {
	t.Helper()
	launcher := &mockLauncher{}
	launcher.On("Launch", mock.Anything).
		Return(&dragon.LaunchResult{PID: 99, StartedAt: time.Now()}, nil)
	svc := newTestService(t, launcher, store, archive)
	rec, err := svc.Submit(context.Background(), submitOptions())
	require.NoError(t, err)
	return svc, rec
}

func TestCollect_NotReadyWhileOutputAbsent(t *testing.T) {
	t.Parallel()

	svc, rec := launchAndStore(t, newMemStore(), &mockArchiver{})
	_, err := svc.Collect(context.Background(), rec.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeJobNotReady))
}

func TestCollect_ArchivesAndMarksCollected(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	archive := &mockArchiver{}
	svc, rec := launchAndStore(t, store, archive)

	// Simulate Dragon finishing.
	require.NoError(t, os.WriteFile(rec.DataPath, []byte("NO.\tMW\n1\t46.07\n"), 0o600))

	archive.On("ArchiveFile", mock.Anything, rec.ID, rec.ScriptPath).
		Return("jobs/"+rec.ID+"/Dragon_script.drs", nil)
	archive.On("ArchiveFile", mock.Anything, rec.ID, rec.DataPath).
		Return("jobs/"+rec.ID+"/output.txt", nil)

	collected, err := svc.Collect(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, jobstore.StateCollected, collected.State)
	assert.Len(t, collected.ArtifactKeys, 2)
	assert.False(t, collected.CollectedAt.IsZero())
	archive.AssertExpectations(t)
}

func TestCollect_IsIdempotentOnceCollected(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	archive := &mockArchiver{}
	svc, rec := launchAndStore(t, store, archive)

	require.NoError(t, os.WriteFile(rec.DataPath, []byte("data"), 0o600))
	archive.On("ArchiveFile", mock.Anything, rec.ID, mock.Anything).Return("key", nil)

	_, err := svc.Collect(context.Background(), rec.ID)
	require.NoError(t, err)

	again, err := svc.Collect(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, jobstore.StateCollected, again.State)
	archive.AssertNumberOfCalls(t, "ArchiveFile", 2)
}

func TestCollect_ArchiveFailureLeavesJobLaunched(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	archive := &mockArchiver{}
	svc, rec := launchAndStore(t, store, archive)

	require.NoError(t, os.WriteFile(rec.DataPath, []byte("data"), 0o600))
	archive.On("ArchiveFile", mock.Anything, rec.ID, mock.Anything).
		Return("", errors.New(errors.ErrCodeJobArchiveFailed, "upload refused"))

	_, err := svc.Collect(context.Background(), rec.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeJobArchiveFailed))

	stored, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, jobstore.StateLaunched, stored.State)
}

func TestCollect_UnknownJob(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &mockLauncher{}, newMemStore(), &mockArchiver{})
	_, err := svc.Collect(context.Background(), "no-such-job")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeJobNotFound))
}

func TestFail_MarksJobFailed(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc, rec := launchAndStore(t, store, &mockArchiver{})

	failed, err := svc.Fail(context.Background(), rec.ID, "process exited early")
	require.NoError(t, err)
	assert.Equal(t, jobstore.StateFailed, failed.State)
	assert.Equal(t, "process exited early", failed.Error)

	_, err = svc.Collect(context.Background(), rec.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeJobInvalidState))
}

func TestStatusAndList(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc, rec := launchAndStore(t, store, &mockArchiver{})

	got, err := svc.Status(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	ids, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, ids)
}
