/**
 * Queue Consumer for the dictation analysis worker
 *
 * Consumes analysis jobs from Redis through asynq and records their
 * outcome in the result store.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/diktim-ocr/internal/analysis"
	errs "github.com/adverant/nexus/diktim-ocr/internal/errors"
	"github.com/adverant/nexus/diktim-ocr/internal/logging"
	"github.com/adverant/nexus/diktim-ocr/internal/metrics"
)

// DefaultProcessingTimeout applies when ConsumerConfig leaves it unset.
const DefaultProcessingTimeout = 120 * time.Second

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Report, error)
}

// Handler processes analyze tasks. It implements asynq.Handler.
type Handler struct {
	analyzer Analyzer
	results  ResultStore
	timeout  time.Duration
	logger   *logging.Logger
}

// NewHandler creates a task handler. A zero timeout uses DefaultProcessingTimeout.
func NewHandler(analyzer Analyzer, results ResultStore, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = DefaultProcessingTimeout
	}
	return &Handler{
		analyzer: analyzer,
		results:  results,
		timeout:  timeout,
		logger:   logging.NewLogger("QueueHandler"),
	}
}

// ProcessTask runs one analyze task. Input errors are wrapped in
// asynq.SkipRetry; other failures are returned for asynq to retry.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	startTime := time.Now()

	var p AnalyzePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal job data: %v: %w", err, asynq.SkipRetry)
	}
	if p.JobID == "" {
		return fmt.Errorf("job data without jobId: %w", asynq.SkipRetry)
	}

	log := h.logger.With("jobId", p.JobID)
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, inQueue := asynq.GetMaxRetry(ctx)
	attempt := retried + 1

	rec, err := h.results.Get(ctx, p.JobID)
	if err != nil {
		rec = &JobRecord{JobID: p.JobID}
	}
	rec.Status = StatusProcessing
	rec.Attempts = attempt
	if err := h.results.Save(ctx, rec); err != nil {
		log.Warn("Failed to update status to processing", "error", err)
	}
	log.Info("Processing job", "attempt", attempt, "bytes", len(p.Image), "timeout", h.timeout)

	processCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	report, err := h.analyzer.Analyze(processCtx, analysis.Request{
		Image:        p.Image,
		ExpectedText: p.ExpectedText,
		UseLLM:       p.UseLLM,
		RequestID:    p.JobID,
	})
	duration := time.Since(startTime)

	if err != nil {
		if processCtx.Err() == context.DeadlineExceeded && errs.CodeOf(err) != errs.ErrorProcessingTimeout {
			err = errs.NewProcessingTimeoutError(p.JobID, h.timeout, err)
		}

		final := !errs.Retryable(err) || !inQueue || retried >= maxRetry
		rec.Error = errorMap(err)
		if final {
			rec.Status = StatusFailed
			metrics.JobsTotal.WithLabelValues(string(StatusFailed)).Inc()
		} else {
			rec.Status = StatusQueued
		}
		if updateErr := h.results.Save(ctx, rec); updateErr != nil {
			log.Warn("Failed to record job failure", "error", updateErr)
		}
		log.Error("Job failed", "error", err, "durationMs", duration.Milliseconds(), "final", final)

		if !errs.Retryable(err) {
			return fmt.Errorf("analysis failed: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	rec.Status = StatusCompleted
	rec.Report = report
	rec.Error = nil
	if err := h.results.Save(ctx, rec); err != nil {
		log.Error("Failed to store job result", "error", err)
		return err
	}
	metrics.JobsTotal.WithLabelValues(string(StatusCompleted)).Inc()
	log.Info("Job completed",
		"durationMs", duration.Milliseconds(),
		"issues", report.Meta.IssuesFound,
		"engine", report.Meta.OCREngine)
	return nil
}

// RetryDelay is exponential backoff from 5s, capped at 60s.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	if n > 4 {
		return 60 * time.Second
	}
	delay := time.Duration(5*(1<<uint(n))) * time.Second
	if delay > 60*time.Second {
		delay = 60 * time.Second
	}
	return delay
}

// taskServer is the part of asynq.Server the consumer drives.
type taskServer interface {
	Start(handler asynq.Handler) error
	Shutdown()
}

// Consumer handles job consumption from Redis queue
type Consumer struct {
	server  taskServer
	mux     *asynq.ServeMux
	handler *Handler
	config  *ConsumerConfig
	logger  *logging.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Analyzer          Analyzer
	Results           ResultStore
	ProcessingTimeout int64 // milliseconds
	// ShutdownTimeout is how long in-flight tasks may finish on Stop; zero
	// keeps the asynq default.
	ShutdownTimeout time.Duration
}

// NewConsumer creates a new queue consumer
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("Analyzer is required")
	}
	if cfg.Results == nil {
		return nil, fmt.Errorf("Results is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := logging.NewLogger("QueueConsumer")
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			RetryDelayFunc:  RetryDelay,
			ShutdownTimeout: cfg.ShutdownTimeout,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task processing error", "type", task.Type(), "bytes", len(task.Payload()), "error", err)
			}),
		},
	)

	handler := NewHandler(cfg.Analyzer, cfg.Results, time.Duration(cfg.ProcessingTimeout)*time.Millisecond)
	mux := asynq.NewServeMux()
	mux.Handle(TaskTypeAnalyze, handler)

	return &Consumer{
		server:  server,
		mux:     mux,
		handler: handler,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Start starts the queue consumer. It does not start once ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errs.NewQueueFailedError("", err)
	}
	c.logger.Info("Starting queue consumer", "concurrency", c.config.Concurrency, "queue", c.config.QueueName)
	if err := c.server.Start(c.mux); err != nil {
		return errs.NewQueueFailedError("", err)
	}
	return nil
}

// Stop shuts the consumer down and waits until in-flight tasks finish or ctx
// is done, whichever comes first. Tasks still running when ctx expires are
// left to asynq's own shutdown timeout and recovered as retries.
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.Info("Stopping queue consumer")
	done := make(chan struct{})
	go func() {
		c.server.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Queue consumer stopped")
		return nil
	case <-ctx.Done():
		c.logger.Warn("Queue consumer shutdown interrupted", "error", ctx.Err())
		return ctx.Err()
	}
}

// GetStatistics returns consumer statistics
func (c *Consumer) GetStatistics() map[string]interface{} {
	return map[string]interface{}{
		"concurrency":     c.config.Concurrency,
		"queue":           c.config.QueueName,
		"shutdownTimeout": c.config.ShutdownTimeout.String(),
	}
}
