package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/diktim-ocr/internal/analysis"
	errs "github.com/adverant/nexus/diktim-ocr/internal/errors"
	"github.com/adverant/nexus/diktim-ocr/internal/queue"
)

type fakeAnalyzer struct {
	got    analysis.Request
	report *analysis.Report
	err    error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req analysis.Request) (*analysis.Report, error) {
	f.got = req
	return f.report, f.err
}

type memoryJobs struct {
	records map[string]*queue.JobRecord
	err     error
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{records: map[string]*queue.JobRecord{}}
}

func (m *memoryJobs) Enqueue(_ context.Context, p queue.AnalyzePayload) (*queue.JobRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	rec := &queue.JobRecord{JobID: p.JobID, Status: queue.StatusQueued}
	m.records[p.JobID] = rec
	return rec, nil
}

func (m *memoryJobs) Get(_ context.Context, id string) (*queue.JobRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, errs.NewJobNotFoundError(id)
	}
	return rec, nil
}

func multipartBody(t *testing.T, image []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if image != nil {
		fw, err := mw.CreateFormFile("image", "diktim.png")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newTestServer(t *testing.T, an Analyzer, cfg Config) http.Handler {
	t.Helper()
	s, err := NewServer(an, cfg)
	require.NoError(t, err)
	return s.Handler()
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthHandler(t *testing.T) {
	h := newTestServer(t, &fakeAnalyzer{}, Config{Version: "test"})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.False(t, resp.Jobs)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthReportsCorpusDatabase(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     int
		status   string
		database string
	}{
		{"reachable", nil, http.StatusOK, "healthy", "ok"},
		{"unreachable", errors.New("connection refused"), http.StatusServiceUnavailable, "degraded", "unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeAnalyzer{}, Config{Corpus: fakePinger{err: tt.err}})
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.code, w.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.database, resp.Database)
		})
	}
}

func TestAnalyzeHandler(t *testing.T) {
	an := &fakeAnalyzer{report: &analysis.Report{
		ExtractedText: "Unë shkoj",
		Issues:        []analysis.Issue{},
		Meta:          analysis.Meta{Language: "sqi", LLMModel: "none"},
	}}
	h := newTestServer(t, an, Config{Timeout: time.Second})

	body, ct := multipartBody(t, []byte("png-bytes"), map[string]string{"expected_text": "Unë shkoj", "use_llm": "false"})
	req := httptest.NewRequest(http.MethodPost, "/ocr/analyze", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []byte("png-bytes"), an.got.Image)
	assert.Equal(t, "Unë shkoj", an.got.ExpectedText)
	assert.False(t, an.got.UseLLM)
	_, err := uuid.Parse(an.got.RequestID)
	assert.NoError(t, err)
	assert.Equal(t, an.got.RequestID, w.Header().Get("X-Request-ID"))

	var report analysis.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "Unë shkoj", report.ExtractedText)
	assert.Nil(t, report.RefinedText)
}

func TestAnalyzeHandlerDefaultsToLLM(t *testing.T) {
	an := &fakeAnalyzer{report: &analysis.Report{}}
	h := newTestServer(t, an, Config{})

	body, ct := multipartBody(t, []byte("png"), nil)
	req := httptest.NewRequest(http.MethodPost, "/ocr/analyze", body)
	req.Header.Set("Content-Type", ct)
	id := uuid.New().String()
	req.Header.Set("X-Request-ID", id)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, an.got.UseLLM)
	assert.Equal(t, id, an.got.RequestID)
}

func TestAnalyzeHandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		image      []byte
		fields     map[string]string
		analyzeErr error
		status     int
		code       string
	}{
		{"missing image", nil, nil, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"empty image", []byte{}, nil, nil, http.StatusBadRequest, "INVALID_IMAGE"},
		{"bad use_llm", []byte("x"), map[string]string{"use_llm": "maybe"}, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"undecodable", []byte("x"), nil, errs.NewInvalidImageError("r", errors.New("bad")), http.StatusBadRequest, "INVALID_IMAGE"},
		{"no ocr", []byte("x"), nil, errs.NewOCRUnavailableError("r"), http.StatusNotImplemented, "OCR_UNAVAILABLE"},
		{"exhausted", []byte("x"), nil, errs.NewExtractionExhaustedError("r", 10, errors.New("empty")), http.StatusInternalServerError, "EXTRACTION_EXHAUSTED"},
		{"timeout", []byte("x"), nil, errs.NewProcessingTimeoutError("r", time.Second, context.DeadlineExceeded), http.StatusGatewayTimeout, "PROCESSING_TIMEOUT"},
		{"unstructured", []byte("x"), nil, errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeAnalyzer{err: tt.analyzeErr, report: &analysis.Report{}}, Config{})
			body, ct := multipartBody(t, tt.image, tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/ocr/analyze", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestAnalyzeHandlerEnforcesUploadLimit(t *testing.T) {
	h := newTestServer(t, &fakeAnalyzer{report: &analysis.Report{}}, Config{MaxUploadMB: 1})

	body, ct := multipartBody(t, bytes.Repeat([]byte("a"), 2*1024*1024), nil)
	req := httptest.NewRequest(http.MethodPost, "/ocr/analyze", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Code)
}

func TestJobEndpoints(t *testing.T) {
	jobs := newMemoryJobs()
	h := newTestServer(t, &fakeAnalyzer{}, Config{Jobs: jobs, Results: jobs})

	body, ct := multipartBody(t, []byte("png"), map[string]string{"expected_text": "një"})
	req := httptest.NewRequest(http.MethodPost, "/ocr/jobs", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var rec queue.JobRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, queue.StatusQueued, rec.Status)
	assert.Equal(t, "/ocr/jobs/"+rec.JobID, w.Header().Get("Location"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ocr/jobs/"+rec.JobID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got queue.JobRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, rec.JobID, got.JobID)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ocr/jobs/"+uuid.New().String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "JOB_NOT_FOUND", decodeError(t, w).Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ocr/jobs/not-a-uuid", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobIDsIgnoreRequestHeader(t *testing.T) {
	jobs := newMemoryJobs()
	h := newTestServer(t, &fakeAnalyzer{}, Config{Jobs: jobs, Results: jobs})
	replayed := uuid.New().String()

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		body, ct := multipartBody(t, []byte("png"), nil)
		req := httptest.NewRequest(http.MethodPost, "/ocr/jobs", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("X-Request-ID", replayed)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		var rec queue.JobRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
		assert.NotEqual(t, replayed, rec.JobID)
		_, err := uuid.Parse(rec.JobID)
		assert.NoError(t, err)
		seen[rec.JobID] = true
	}
	assert.Len(t, seen, 2)
}

func TestJobEndpointsWithoutQueue(t *testing.T) {
	h := newTestServer(t, &fakeAnalyzer{}, Config{})

	body, ct := multipartBody(t, []byte("png"), nil)
	req := httptest.NewRequest(http.MethodPost, "/ocr/jobs", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "QUEUE_FAILED", decodeError(t, w).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, &fakeAnalyzer{}, Config{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "diktim_http_requests_total"))
}

func TestNewServerRequiresAnalyzer(t *testing.T) {
	_, err := NewServer(nil, Config{})
	assert.Error(t, err)
}
