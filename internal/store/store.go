package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tuan6100/audio-pipeline/internal/logger"
	"github.com/tuan6100/audio-pipeline/internal/pipeline"
)

// ErrJobNotFound is returned when a job key has expired or never existed.
var ErrJobNotFound = errors.New("store: job not found")

// jobTTL is the idle lifetime of every per-job key family. It is refreshed
// on each write (not just set once at InitJob), so a key expires one hour
// after its last write, not one hour after job creation.
const jobTTL = time.Hour

// Store is the job state store: per-job hash, step-completion set, segment
// counters and records, and a progress pub/sub channel. One Store per process.
type Store struct {
	redis *RedisClient
}

// New wraps an already-connected RedisClient as a Store.
func New(redis *RedisClient) *Store {
	return &Store{redis: redis}
}

func jobKey(jobID string) string            { return fmt.Sprintf("job:%s", jobID) }
func stepsKey(jobID string) string          { return fmt.Sprintf("job:%s:steps", jobID) }
func segmentsKey(jobID string) string       { return fmt.Sprintf("job_segments:%s", jobID) }
func segmentRecordsKey(jobID string) string { return fmt.Sprintf("job_segment_records:%s", jobID) }
func progressChannel(jobID string) string {
	return fmt.Sprintf("job_progress:%s", jobID)
}

// InitJob creates the job hash in QUEUED status with a 1-hour TTL, mirroring
// the original orchestrator's init_job.
func (s *Store) InitJob(ctx context.Context, jobID, userID string) error {
	key := jobKey(jobID)
	if err := s.redis.HSet(ctx, key,
		"user_id", userID,
		"status", string(pipeline.StatusQueued),
		"progress", 0,
		"message", "Starting...",
	); err != nil {
		return err
	}
	return s.redis.Expire(ctx, key, jobTTL)
}

// GetJob reads the current job record. Returns ErrJobNotFound if the hash is empty.
func (s *Store) GetJob(ctx context.Context, jobID string) (*pipeline.Job, error) {
	fields, err := s.redis.HGetAll(ctx, jobKey(jobID))
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrJobNotFound
	}

	progress, _ := strconv.Atoi(fields["progress"])
	return &pipeline.Job{
		ID:       jobID,
		UserID:   fields["user_id"],
		Status:   pipeline.Status(fields["status"]),
		Progress: progress,
		Message:  fields["message"],
	}, nil
}

// UpdateProgress writes the job's status/progress/message and publishes the
// same frame on job_progress:<id> so SSE subscribers observe it immediately.
// Resolves the "publish on every update" design choice: every status
// transition (not just segment fan-in ticks) is broadcast.
func (s *Store) UpdateProgress(ctx context.Context, jobID string, status pipeline.Status, progress int, message string) error {
	key := jobKey(jobID)
	if err := s.redis.HSet(ctx, key,
		"status", string(status),
		"progress", progress,
		"message", message,
	); err != nil {
		return err
	}
	if err := s.redis.Expire(ctx, key, jobTTL); err != nil {
		return err
	}

	frame := pipeline.ProgressFrame{JobID: jobID, Status: status, Progress: progress, Message: message}
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if err := s.redis.Publish(ctx, progressChannel(jobID), payload); err != nil {
		logger.Log.Warn("failed to publish progress frame", logger.WithJobID(jobID))
	}
	return nil
}

// MarkStepDone records a step as complete. Safe to call more than once.
func (s *Store) MarkStepDone(ctx context.Context, jobID string, step pipeline.StepKey) error {
	key := stepsKey(jobID)
	if err := s.redis.HSet(ctx, key, string(step), 1); err != nil {
		return err
	}
	return s.redis.Expire(ctx, key, jobTTL)
}

// IsStepDone reports whether a step has already been recorded for this job.
// Handlers call this first to guard against duplicate delivery.
func (s *Store) IsStepDone(ctx context.Context, jobID string, step pipeline.StepKey) (bool, error) {
	val, err := s.redis.HGet(ctx, stepsKey(jobID), string(step))
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return val == "1", nil
}

// CompareAndSetStep atomically claims a step, returning true only for the
// caller that wins the race. Backs the single postprocess_triggered guard
// so fan-in from segment/diarization completion fires the terminal step exactly once.
func (s *Store) CompareAndSetStep(ctx context.Context, jobID string, step pipeline.StepKey) (bool, error) {
	key := stepsKey(jobID)
	claimed, err := s.redis.HSetNX(ctx, key, string(step), 1)
	if err != nil {
		return false, err
	}
	return claimed, s.redis.Expire(ctx, key, jobTTL)
}

// SetSegmentTotal records how many segments a job was split into.
func (s *Store) SetSegmentTotal(ctx context.Context, jobID string, total int) error {
	key := segmentsKey(jobID)
	if err := s.redis.HSet(ctx, key, "total", total, "done", 0); err != nil {
		return err
	}
	return s.redis.Expire(ctx, key, jobTTL)
}

// IncrementSegmentDone atomically increments the done counter, returning the
// new count. Callers append the segment record before incrementing so that a
// reader observing done==total is guaranteed the full record list is present.
func (s *Store) IncrementSegmentDone(ctx context.Context, jobID string) (int, error) {
	key := segmentsKey(jobID)
	n, err := s.redis.HIncrBy(ctx, key, "done", 1)
	if err != nil {
		return 0, err
	}
	return int(n), s.redis.Expire(ctx, key, jobTTL)
}

// SegmentCounters reads the current total/done pair.
func (s *Store) SegmentCounters(ctx context.Context, jobID string) (pipeline.SegmentCounters, error) {
	fields, err := s.redis.HGetAll(ctx, segmentsKey(jobID))
	if err != nil {
		return pipeline.SegmentCounters{}, err
	}
	total, _ := strconv.Atoi(fields["total"])
	done, _ := strconv.Atoi(fields["done"])
	return pipeline.SegmentCounters{Total: total, Done: done}, nil
}

// AppendSegmentRecord appends a completed segment's artifact pointer to the
// job's ordered segment list.
func (s *Store) AppendSegmentRecord(ctx context.Context, jobID string, rec pipeline.SegmentRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := segmentRecordsKey(jobID)
	if err := s.redis.RPush(ctx, key, payload); err != nil {
		return err
	}
	return s.redis.Expire(ctx, key, jobTTL)
}

// ListSegmentRecords returns every segment record appended for the job, in append order.
func (s *Store) ListSegmentRecords(ctx context.Context, jobID string) ([]pipeline.SegmentRecord, error) {
	raw, err := s.redis.LRange(ctx, segmentRecordsKey(jobID), 0, -1)
	if err != nil {
		return nil, err
	}
	records := make([]pipeline.SegmentRecord, 0, len(raw))
	for _, entry := range raw {
		var rec pipeline.SegmentRecord
		if err := json.Unmarshal([]byte(entry), &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Subscribe returns a PubSub handle streaming progress frames for a job.
// Callers must Close it when done.
func (s *Store) Subscribe(ctx context.Context, jobID string) *redis.PubSub {
	return s.redis.Subscribe(ctx, progressChannel(jobID))
}
