// Package jobstore persists descriptor-job records in Redis so that a job
// launched by one dragonctl invocation can be collected by a later one.
package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chemkit/dragonctl/internal/config"
	"github.com/chemkit/dragonctl/internal/infrastructure/monitoring/logging"
	"github.com/chemkit/dragonctl/pkg/errors"
)

// JobState tracks a descriptor job through its lifecycle.
type JobState string

const (
	// StateLaunched means the Dragon process was started and is presumed
	// running; its output has not been collected yet.
	StateLaunched JobState = "launched"
	// StateCollected means the output table was found and archived.
	StateCollected JobState = "collected"
	// StateFailed means the job can no longer produce output.
	StateFailed JobState = "failed"
)

// validTransitions maps each state to the states it may move to.
var validTransitions = map[JobState][]JobState{
	StateLaunched:  {StateCollected, StateFailed},
	StateCollected: {},
	StateFailed:    {},
}

// CanTransition reports whether a job may move from s to next.
func (s JobState) CanTransition(next JobState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// JobRecord is the persisted description of one descriptor job.
type JobRecord struct {
	ID           string    `json:"id"`
	Version      int       `json:"version"`
	ScriptPath   string    `json:"script_path"`
	DataPath     string    `json:"data_path"`
	OutputDir    string    `json:"output_dir"`
	PID          int       `json:"pid"`
	State        JobState  `json:"state"`
	SubmittedAt  time.Time `json:"submitted_at"`
	CollectedAt  time.Time `json:"collected_at,omitempty"`
	ArtifactKeys []string  `json:"artifact_keys,omitempty"`
	Error        string    `json:"error,omitempty"`
}

const keyPrefix = "dragonctl:jobs:"

func jobKey(id string) string { return keyPrefix + id }

// redisAPI is the subset of go-redis commands the store issues.
type redisAPI interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// Store reads and writes job records.
type Store struct {
	rdb    redisAPI
	ttl    time.Duration
	logger logging.Logger
}

// New dials Redis per cfg and verifies the connection.
func New(ctx context.Context, cfg config.RedisConfig, log logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Default()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to connect to redis")
	}

	log.Info("job store connected", logging.String("addr", cfg.Addr), logging.Int("db", cfg.DB))
	return &Store{rdb: rdb, ttl: cfg.JobTTL, logger: log.Named("jobstore")}, nil
}

// NewWithClient wires an existing client, for tests.
func NewWithClient(rdb redisAPI, ttl time.Duration, log logging.Logger) *Store {
	if log == nil {
		log = logging.Default()
	}
	return &Store{rdb: rdb, ttl: ttl, logger: log.Named("jobstore")}
}

// Save writes rec, overwriting any previous record with the same ID.
func (s *Store) Save(ctx context.Context, rec *JobRecord) error {
	if rec.ID == "" {
		return errors.New(errors.ErrCodeValidation, "job record has no ID")
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode job record")
	}
	if err := s.rdb.Set(ctx, jobKey(rec.ID), raw, s.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeJobStoreFailed,
			fmt.Sprintf("failed to store job %s", rec.ID))
	}
	return nil
}

// Get loads the record for id, or ErrCodeJobNotFound.
func (s *Store) Get(ctx context.Context, id string) (*JobRecord, error) {
	raw, err := s.rdb.Get(ctx, jobKey(id)).Bytes()
	if err == redis.Nil {
		return nil, errors.New(errors.ErrCodeJobNotFound,
			fmt.Sprintf("job %s not found", id))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeJobStoreFailed,
			fmt.Sprintf("failed to load job %s", id))
	}
	rec := &JobRecord{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization,
			fmt.Sprintf("failed to decode job %s", id))
	}
	return rec, nil
}

// Transition moves the job to next, applying mutate to the record first.
// The stored state must permit the transition.
func (s *Store) Transition(ctx context.Context, id string, next JobState, mutate func(*JobRecord)) (*JobRecord, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.State.CanTransition(next) {
		return nil, errors.New(errors.ErrCodeJobInvalidState,
			fmt.Sprintf("job %s cannot move from %s to %s", id, rec.State, next))
	}
	if mutate != nil {
		mutate(rec)
	}
	rec.State = next
	if err := s.Save(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("job state changed",
		logging.String("job_id", id), logging.String("state", string(next)))
	return rec, nil
}

// Delete removes the record for id.  Deleting an absent job is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, jobKey(id)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeJobStoreFailed,
			fmt.Sprintf("failed to delete job %s", id))
	}
	return nil
}

// ListIDs returns the IDs of all stored jobs.
func (s *Store) ListIDs(ctx context.Context) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeJobStoreFailed, "failed to scan jobs")
		}
		for _, key := range keys {
			ids = append(ids, key[len(keyPrefix):])
		}
		cursor = next
		if cursor == 0 {
			return ids, nil
		}
	}
}
