package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diktim_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diktim_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Pipeline metrics
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diktim_analyses_total",
			Help: "Total number of analyses by outcome",
		},
		[]string{"mode", "outcome"}, // mode: reference, heuristic; outcome: ok or error code
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "diktim_analysis_duration_seconds",
			Help:    "End-to-end analysis duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100},
		},
	)

	ExtractionCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "diktim_extraction_candidates",
			Help:    "Number of successful extraction candidates per request",
			Buckets: []float64{0, 1, 2, 4, 6, 8, 12},
		},
	)

	ExtractionAttemptFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diktim_extraction_attempt_failures_total",
			Help: "OCR attempts that failed or returned empty text",
		},
		[]string{"engine", "profile"},
	)

	SelectedEngine = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diktim_selected_engine_total",
			Help: "Engine that produced the selected transcription",
		},
		[]string{"engine"},
	)

	RefinementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diktim_refinements_total",
			Help: "Refinement outcomes by model used",
		},
		[]string{"model_used"},
	)

	DeskewDetectionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "diktim_deskew_detection_failures_total",
			Help: "Orientation estimates that failed and left the image unrotated",
		},
	)

	EnhancementFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "diktim_enhancement_fallbacks_total",
			Help: "Images binarized by the plain threshold fallback",
		},
	)

	// Lexicon metrics
	LexiconRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diktim_lexicon_rebuilds_total",
			Help: "Lexicon rebuild attempts by outcome",
		},
		[]string{"outcome"}, // ok, stale, empty
	)

	LexiconEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "diktim_lexicon_entries",
			Help: "Entries in the current lexicon snapshot",
		},
	)

	IssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diktim_issues_total",
			Help: "Issues reported by type",
		},
		[]string{"type"},
	)

	// Job metrics
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diktim_jobs_total",
			Help: "Asynchronous analysis jobs by status",
		},
		[]string{"status"},
	)

	UploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "diktim_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 5 * 1024 * 1024, 10 * 1024 * 1024},
		},
	)
)
