package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adverant/nexus/diktim-ocr/internal/analysis"
	errs "github.com/adverant/nexus/diktim-ocr/internal/errors"
	"github.com/adverant/nexus/diktim-ocr/internal/metrics"
	"github.com/adverant/nexus/diktim-ocr/internal/queue"
)

// upload is a parsed analysis form.
type upload struct {
	image        []byte
	expectedText string
	useLLM       bool
}

const healthPingTimeout = 2 * time.Second

// healthHandler returns server health status. An unreachable corpus database
// reports 503 with status "degraded".
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Jobs:    s.jobsEnabled(),
	}
	status := http.StatusOK
	if s.corpus != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		resp.Database = "ok"
		if err := s.corpus.Ping(ctx); err != nil {
			s.logger.Warn("Corpus database unreachable", "error", err)
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	s.writeJSON(w, status, resp)
}

// analyzeHandler runs one synchronous analysis.
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	up, err := s.parseUpload(w, r, requestID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.analyzer.Analyze(ctx, analysis.Request{
		Image:        up.image,
		ExpectedText: up.expectedText,
		UseLLM:       up.useLLM,
		RequestID:    requestID,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("X-Request-ID", requestID)
	s.writeJSON(w, http.StatusOK, report)
}

// createJobHandler queues an asynchronous analysis. Job ids are always minted
// here; X-Request-ID only tags the request.
func (s *Server) createJobHandler(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	if !s.jobsEnabled() {
		s.writeError(w, errs.NewQueueFailedError(requestID, errors.New("job queue is not configured")))
		return
	}
	up, err := s.parseUpload(w, r, requestID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rec, err := s.jobs.Enqueue(r.Context(), queue.AnalyzePayload{
		JobID:        uuid.New().String(),
		Image:        up.image,
		ExpectedText: up.expectedText,
		UseLLM:       up.useLLM,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/ocr/jobs/"+rec.JobID)
	s.writeJSON(w, http.StatusAccepted, rec)
}

// getJobHandler returns the record of one job.
func (s *Server) getJobHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.jobsEnabled() {
		s.writeError(w, errs.NewJobNotFoundError(id))
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		s.writeError(w, errs.NewJobNotFoundError(id))
		return
	}
	rec, err := s.results.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request, requestID string) (*upload, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errs.NewInvalidRequestError(requestID, "image exceeds the upload limit")
		}
		return nil, errs.NewInvalidRequestError(requestID, "failed to parse form data")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, errs.NewInvalidRequestError(requestID, "no image file provided")
	}
	defer func() { _ = file.Close() }()

	metrics.UploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errs.NewInvalidRequestError(requestID, "failed to read image data")
	}
	if len(data) == 0 {
		return nil, errs.NewInvalidImageError(requestID, analysis.ErrNoImage)
	}

	useLLM := true
	if v := strings.TrimSpace(r.FormValue("use_llm")); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errs.NewInvalidRequestError(requestID, "use_llm must be a boolean")
		}
		useLLM = parsed
	}

	return &upload{
		image:        data,
		expectedText: r.FormValue("expected_text"),
		useLLM:       useLLM,
	}, nil
}

func requestIDFrom(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}
	return uuid.New().String()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

// writeError writes the JSON error body with the status for err's code.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errs.HTTPStatus(err)
	code := string(errs.CodeOf(err))
	message := err.Error()
	if ae, ok := errs.As(err); ok {
		message = ae.Message
	}
	if code == "" {
		code = "INTERNAL"
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "status", status, "code", code, "error", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
