package server

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adverant/nexus/diktim-ocr/internal/logging"
)

const defaultMaxUploadMB = 10

// NewServer creates the HTTP surface for analyzer.
func NewServer(analyzer Analyzer, cfg Config) (*Server, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = defaultMaxUploadMB
	}
	return &Server{
		analyzer:    analyzer,
		jobs:        cfg.Jobs,
		results:     cfg.Results,
		corpus:      cfg.Corpus,
		maxUploadMB: cfg.MaxUploadMB,
		timeout:     cfg.Timeout,
		version:     cfg.Version,
		logger:      logging.NewLogger("HTTPServer"),
	}, nil
}

// SetupRoutes registers all endpoints on mux.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.metricsMiddleware(s.healthHandler))
	mux.HandleFunc("POST /ocr/analyze", s.metricsMiddleware(s.analyzeHandler))
	mux.HandleFunc("POST /ocr/jobs", s.metricsMiddleware(s.createJobHandler))
	mux.HandleFunc("GET /ocr/jobs/{id}", s.metricsMiddleware(s.getJobHandler))
	mux.Handle("GET /metrics", promhttp.Handler())
}

// Handler returns a mux with all routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

func (s *Server) jobsEnabled() bool {
	return s.jobs != nil && s.results != nil
}
