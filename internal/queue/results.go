package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errs "github.com/adverant/nexus/diktim-ocr/internal/errors"
	"github.com/adverant/nexus/diktim-ocr/internal/logging"
)

// DefaultResultTTL bounds how long job records are kept.
const DefaultResultTTL = 24 * time.Hour

// ResultStore persists job records. Create fails with JOB_EXISTS when a
// record for the id is already stored.
type ResultStore interface {
	Create(ctx context.Context, rec *JobRecord) error
	Save(ctx context.Context, rec *JobRecord) error
	Get(ctx context.Context, jobID string) (*JobRecord, error)
}

// RedisResultStore keeps one JSON record per job and publishes every status
// change on <prefix>:events.
type RedisResultStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisResultStore creates a store. prefix is usually the queue name.
func NewRedisResultStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisResultStore {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &RedisResultStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logging.NewLogger("ResultStore"),
	}
}

func (s *RedisResultStore) key(jobID string) string {
	return fmt.Sprintf("%s:jobs:%s", s.prefix, jobID)
}

// EventsChannel is where status changes are published.
func (s *RedisResultStore) EventsChannel() string {
	return s.prefix + ":events"
}

// Create writes the first record of a job only if none exists yet.
func (s *RedisResultStore) Create(ctx context.Context, rec *JobRecord) error {
	now := s.stamp(rec)
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.NewStorageFailedError(rec.JobID, err)
	}
	created, err := s.client.SetNX(ctx, s.key(rec.JobID), data, s.ttl).Result()
	if err != nil {
		return errs.NewStorageFailedError(rec.JobID, err)
	}
	if !created {
		return errs.NewJobExistsError(rec.JobID)
	}
	s.publish(ctx, rec, now)
	return nil
}

// Save writes rec and publishes a job:<status> event.
func (s *RedisResultStore) Save(ctx context.Context, rec *JobRecord) error {
	now := s.stamp(rec)
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.NewStorageFailedError(rec.JobID, err)
	}
	if err := s.client.Set(ctx, s.key(rec.JobID), data, s.ttl).Err(); err != nil {
		return errs.NewStorageFailedError(rec.JobID, err)
	}
	s.publish(ctx, rec, now)
	return nil
}

func (s *RedisResultStore) stamp(rec *JobRecord) time.Time {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return now
}

func (s *RedisResultStore) publish(ctx context.Context, rec *JobRecord, now time.Time) {
	event, _ := json.Marshal(map[string]interface{}{
		"event":     fmt.Sprintf("job:%s", rec.Status),
		"jobId":     rec.JobID,
		"timestamp": now.Format(time.RFC3339),
	})
	if err := s.client.Publish(ctx, s.EventsChannel(), event).Err(); err != nil {
		s.logger.Warn("Failed to publish job event", "jobId", rec.JobID, "error", err)
	}
}

// Get reads a job record.
func (s *RedisResultStore) Get(ctx context.Context, jobID string) (*JobRecord, error) {
	data, err := s.client.Get(ctx, s.key(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errs.NewJobNotFoundError(jobID)
	}
	if err != nil {
		return nil, errs.NewStorageFailedError(jobID, err)
	}
	var rec JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errs.NewStorageFailedError(jobID, err)
	}
	return &rec, nil
}
