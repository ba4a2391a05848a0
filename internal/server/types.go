package server

import (
	"context"
	"time"

	"github.com/adverant/nexus/diktim-ocr/internal/analysis"
	"github.com/adverant/nexus/diktim-ocr/internal/logging"
	"github.com/adverant/nexus/diktim-ocr/internal/queue"
)

// Analyzer defines what the server needs from the analysis pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Report, error)
}

// JobQueue submits asynchronous analyses.
type JobQueue interface {
	Enqueue(ctx context.Context, p queue.AnalyzePayload) (*queue.JobRecord, error)
}

// JobReader reads job records back.
type JobReader interface {
	Get(ctx context.Context, jobID string) (*queue.JobRecord, error)
}

// Pinger checks a backing store, such as the corpus database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	analyzer    Analyzer
	jobs        JobQueue
	results     JobReader
	corpus      Pinger
	maxUploadMB int64
	timeout     time.Duration
	version     string
	logger      *logging.Logger
}

// Config holds server configuration.
type Config struct {
	MaxUploadMB int64
	// Timeout bounds one synchronous analysis; zero means no bound.
	Timeout time.Duration
	Version string
	// Jobs and Results enable the /ocr/jobs endpoints when both are set.
	Jobs    JobQueue
	Results JobReader
	// Corpus, when set, is pinged by GET /health.
	Corpus Pinger
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Time     string `json:"time"`
	Jobs     bool   `json:"jobs"`
	Database string `json:"database,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
