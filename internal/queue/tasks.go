package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/diktim-ocr/internal/analysis"
	errs "github.com/adverant/nexus/diktim-ocr/internal/errors"
)

// TaskTypeAnalyze is the asynq task type for one analysis job.
const TaskTypeAnalyze = "ocr:analyze"

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// AnalyzePayload is the task body.
type AnalyzePayload struct {
	JobID        string `json:"jobId"`
	Image        []byte `json:"image"`
	ExpectedText string `json:"expectedText,omitempty"`
	UseLLM       bool   `json:"useLlm"`
}

// NewAnalyzeTask encodes p as an asynq task.
func NewAnalyzeTask(p AnalyzePayload) (*asynq.Task, error) {
	if p.JobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TaskTypeAnalyze, data), nil
}

// JobRecord is what clients read back for a job.
type JobRecord struct {
	JobID     string                 `json:"jobId"`
	Status    Status                 `json:"status"`
	Report    *analysis.Report       `json:"report,omitempty"`
	Error     map[string]interface{} `json:"error,omitempty"`
	Attempts  int                    `json:"attempts"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

func errorMap(err error) map[string]interface{} {
	if ae, ok := errs.As(err); ok {
		return ae.ToMap()
	}
	return map[string]interface{}{
		"error_code": "",
		"message":    err.Error(),
	}
}
