package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	errs "github.com/adverant/nexus/diktim-ocr/internal/errors"
	"github.com/adverant/nexus/diktim-ocr/internal/logging"
	"github.com/adverant/nexus/diktim-ocr/internal/metrics"
)

// DefaultMaxRetry is how often a retryable failure is re-run.
const DefaultMaxRetry = 3

// TaskClient is the part of asynq.Client the enqueuer needs.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Enqueuer submits analysis jobs
type Enqueuer struct {
	client   TaskClient
	queue    string
	results  ResultStore
	maxRetry int
	timeout  time.Duration
	logger   *logging.Logger
}

// EnqueuerConfig holds enqueuer configuration
type EnqueuerConfig struct {
	QueueName         string
	Results           ResultStore
	MaxRetry          int
	ProcessingTimeout int64 // milliseconds, 0 leaves the asynq default
}

// NewEnqueuer connects to Redis at redisURL.
func NewEnqueuer(redisURL string, cfg EnqueuerConfig) (*Enqueuer, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return NewEnqueuerWithClient(asynq.NewClient(redisOpt), cfg)
}

// NewEnqueuerWithClient uses an existing task client.
func NewEnqueuerWithClient(client TaskClient, cfg EnqueuerConfig) (*Enqueuer, error) {
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if cfg.Results == nil {
		return nil, fmt.Errorf("Results is required")
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = DefaultMaxRetry
	}
	return &Enqueuer{
		client:   client,
		queue:    cfg.QueueName,
		results:  cfg.Results,
		maxRetry: cfg.MaxRetry,
		timeout:  time.Duration(cfg.ProcessingTimeout) * time.Millisecond,
		logger:   logging.NewLogger("Enqueuer"),
	}, nil
}

// Enqueue records the job as queued and submits it. A missing job ID is
// generated. An ID that already has a record, or a task still held by asynq,
// is rejected with JOB_EXISTS and the existing job is left untouched.
func (e *Enqueuer) Enqueue(ctx context.Context, p AnalyzePayload) (*JobRecord, error) {
	if p.JobID == "" {
		p.JobID = uuid.New().String()
	}
	if len(p.Image) == 0 {
		return nil, errs.NewInvalidRequestError(p.JobID, "image is required")
	}

	task, err := NewAnalyzeTask(p)
	if err != nil {
		return nil, errs.NewQueueFailedError(p.JobID, err)
	}

	rec := &JobRecord{JobID: p.JobID, Status: StatusQueued}
	if err := e.results.Create(ctx, rec); err != nil {
		return nil, err
	}

	opts := []asynq.Option{
		asynq.Queue(e.queue),
		asynq.TaskID(p.JobID),
		asynq.MaxRetry(e.maxRetry),
	}
	if e.timeout > 0 {
		opts = append(opts, asynq.Timeout(e.timeout))
	}

	info, err := e.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		e.logger.Warn("Task id already held by the queue", "jobId", p.JobID)
		return nil, errs.NewJobExistsError(p.JobID)
	}
	if err != nil {
		qErr := errs.NewQueueFailedError(p.JobID, err)
		rec.Status = StatusFailed
		rec.Error = qErr.ToMap()
		if saveErr := e.results.Save(ctx, rec); saveErr != nil {
			e.logger.Warn("Failed to record enqueue failure", "jobId", p.JobID, "error", saveErr)
		}
		metrics.JobsTotal.WithLabelValues(string(StatusFailed)).Inc()
		return nil, qErr
	}

	metrics.JobsTotal.WithLabelValues(string(StatusQueued)).Inc()
	e.logger.Info("Job enqueued", "jobId", p.JobID, "queue", info.Queue, "bytes", len(p.Image))
	return rec, nil
}

// Close closes the task client.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}
