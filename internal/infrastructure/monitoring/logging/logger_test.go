package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chemkit/dragonctl/internal/infrastructure/monitoring/logging"
)

func newObserved(level zapcore.Level) (logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return logging.NewLoggerFromCore(core), logs
}

func TestLogger_EmitsAtConfiguredLevel(t *testing.T) {
	t.Parallel()

	log, logs := newObserved(zapcore.InfoLevel)

	log.Debug("invisible")
	log.Info("visible", logging.String("job_id", "abc"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "visible", entries[0].Message)
	assert.Equal(t, "abc", entries[0].ContextMap()["job_id"])
}

func TestLogger_With_AttachesFieldsToChildOnly(t *testing.T) {
	t.Parallel()

	log, logs := newObserved(zapcore.DebugLevel)
	child := log.With(logging.String("component", "runner"))

	child.Info("from child")
	log.Info("from parent")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "runner", entries[0].ContextMap()["component"])
	assert.NotContains(t, entries[1].ContextMap(), "component")
}

func TestLogger_Named(t *testing.T) {
	t.Parallel()

	log, logs := newObserved(zapcore.DebugLevel)
	log.Named("wizard").Warn("version mismatch")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "wizard", entries[0].LoggerName)
}

func TestErr_NilErrorIsSafe(t *testing.T) {
	t.Parallel()

	f := logging.Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestNewLogger_DefaultsApply(t *testing.T) {
	t.Parallel()

	log, err := logging.NewLogger(logging.Config{})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNopLogger_DiscardsEverything(t *testing.T) {
	t.Parallel()

	log := logging.NewNopLogger()
	// None of these may panic.
	log.Debug("a")
	log.Info("b")
	log.Warn("c")
	log.Error("d")
	log.With(logging.Int("n", 1)).Named("x").Info("e")
}

func TestSetDefault_IgnoresNil(t *testing.T) {
	logging.SetDefault(nil)
	assert.NotNil(t, logging.Default())
}
