/**
 * Analysis service
 *
 * Runs one dictation photo through normalization, extraction, optional
 * refinement and the spelling heuristics, and assembles the report.
 */

package analysis

import (
	"context"
	"errors"
	"image"
	"time"

	errs "github.com/adverant/nexus/diktim-ocr/internal/errors"
	"github.com/adverant/nexus/diktim-ocr/internal/lexicon"
	"github.com/adverant/nexus/diktim-ocr/internal/logging"
	"github.com/adverant/nexus/diktim-ocr/internal/metrics"
	"github.com/adverant/nexus/diktim-ocr/internal/ocr"
	"github.com/adverant/nexus/diktim-ocr/internal/preprocess"
	"github.com/adverant/nexus/diktim-ocr/internal/refine"
	"github.com/adverant/nexus/diktim-ocr/internal/spelling"
	"github.com/adverant/nexus/diktim-ocr/internal/tokenize"
	"github.com/google/uuid"
)

// DefaultLowConfidence is the OCR confidence below which a token is flagged.
const DefaultLowConfidence = 60.0

// Normalizer prepares a decoded image.
type Normalizer interface {
	Normalize(ctx context.Context, img image.Image) (*preprocess.Normalized, error)
}

// Extractor turns a prepared image into text candidates.
type Extractor interface {
	Extract(ctx context.Context, img *preprocess.Normalized, requestID string) (*ocr.Extraction, error)
}

// Refiner optionally corrects extracted text.
type Refiner interface {
	Refine(ctx context.Context, raw string, enabled bool) refine.Result
}

// LexiconProvider returns the current lexicon snapshot.
type LexiconProvider interface {
	Get(ctx context.Context) (*lexicon.Snapshot, error)
}

// Service runs analyses. It is safe for concurrent use.
type Service struct {
	normalizer    Normalizer
	extractor     Extractor
	refiner       Refiner
	lexicon       LexiconProvider
	lowConfidence float64
	logger        *logging.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLowConfidenceThreshold overrides DefaultLowConfidence.
func WithLowConfidenceThreshold(threshold float64) Option {
	return func(s *Service) { s.lowConfidence = threshold }
}

// NewService wires the pipeline. A nil refiner disables refinement.
func NewService(n Normalizer, e Extractor, r Refiner, lex LexiconProvider, opts ...Option) *Service {
	s := &Service{
		normalizer:    n,
		extractor:     e,
		refiner:       r,
		lexicon:       lex,
		lowConfidence: DefaultLowConfidence,
		logger:        logging.NewLogger("Analysis"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze processes one request.
func (s *Service) Analyze(ctx context.Context, req Request) (*Report, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	start := time.Now()
	expected := tokenize.Normalize(req.ExpectedText)
	mode := "heuristic"
	if expected != "" {
		mode = "reference"
	}
	log := s.logger.With("requestId", req.RequestID, "mode", mode)

	report, err := s.run(ctx, req, expected, start, log)
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues(mode, string(errs.CodeOf(err))).Inc()
		log.Error("Analysis failed", "error", err, "durationMs", time.Since(start).Milliseconds())
		return nil, err
	}
	metrics.AnalysesTotal.WithLabelValues(mode, "ok").Inc()
	for _, is := range report.Issues {
		metrics.IssuesTotal.WithLabelValues(string(is.Type)).Inc()
	}
	log.Info("Analysis completed",
		"tokens", report.Meta.TokensExtracted,
		"issues", report.Meta.IssuesFound,
		"engine", report.Meta.OCREngine,
		"llmModel", report.Meta.LLMModel,
		"durationMs", time.Since(start).Milliseconds())
	return report, nil
}

func (s *Service) run(ctx context.Context, req Request, expected string, start time.Time, log *logging.Logger) (*Report, error) {
	st := newTracker()
	fail := func(err error) (*Report, error) {
		if advErr := st.advance(StageFailed); advErr != nil {
			log.Warn("Stage transition rejected", "error", advErr)
		}
		return nil, err
	}

	img, format, err := DecodeImage(req.Image)
	if err != nil {
		return fail(errs.NewInvalidImageError(req.RequestID, err))
	}
	normalized, err := s.normalizer.Normalize(ctx, img)
	if err != nil {
		return fail(errs.NewInvalidImageError(req.RequestID, err))
	}
	if err := st.advance(StageNormalized); err != nil {
		return nil, err
	}
	log.Debug("Image normalized", "format", format, "rotation", normalized.Rotation, "enhancer", normalized.Enhancer)

	extraction, err := s.extractor.Extract(ctx, normalized, req.RequestID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errs.NewProcessingTimeoutError(req.RequestID, time.Since(start), err)
		}
		return fail(err)
	}
	if err := st.advance(StageExtracted); err != nil {
		return nil, err
	}

	raw := tokenize.Normalize(extraction.Best.Text)
	var refined refine.Result
	if s.refiner != nil {
		refined = s.refiner.Refine(ctx, raw, req.UseLLM)
	} else {
		refined = refine.Result{RefinedText: raw, Corrections: []refine.Correction{}, ModelUsed: refine.ModelNone}
	}
	if err := st.advance(StageRefined); err != nil {
		return nil, err
	}

	report := &Report{
		ExtractedText:  raw,
		Errors:         []PositionError{},
		Suggestions:    []string{},
		Issues:         []Issue{},
		LLMCorrections: []refine.Correction{},
	}
	text := raw
	if refined.Applied() {
		text = tokenize.Normalize(refined.RefinedText)
		report.RefinedText = &text
		if refined.Corrections != nil {
			report.LLMCorrections = refined.Corrections
		}
	}

	tokens := tokenize.Words(text)
	confidences := positionalConfidences(extraction.Tokens, len(tokens))
	lexiconEntries := 0
	if expected != "" {
		s.compareReference(report, tokens, tokenize.Words(expected), confidences)
	} else {
		snap, err := s.lexicon.Get(ctx)
		if err != nil {
			log.Warn("Lexicon unavailable, continuing with available snapshot", "error", err)
		}
		if snap == nil {
			snap = lexicon.Empty(time.Now())
		}
		lexiconEntries = snap.Len()
		s.diagnoseTokens(report, tokens, confidences, snap)
	}
	if err := st.advance(StageAnalyzed); err != nil {
		return nil, err
	}

	report.Meta = Meta{
		Language:            Language,
		ExpectedProvided:    expected != "",
		TokensExtracted:     len(tokens),
		IssuesFound:         len(report.Issues),
		OCRConfidenceAvg:    extraction.AverageConfidence,
		OCREngine:           string(extraction.Best.Engine),
		LLMEnabled:          req.UseLLM,
		LLMModel:            refined.ModelUsed,
		LLMConfidence:       refined.Confidence,
		LLMProcessingTimeMs: refined.ProcessingTimeMs,
		PipelineVersion:     PipelineVersion,
		RequestID:           req.RequestID,
		OCRProfile:          extraction.Best.Profile,
		OCRCandidates:       len(extraction.Candidates),
		DeskewRotation:      normalized.Rotation,
		LexiconEntries:      lexiconEntries,
		Enhancer:            normalized.Enhancer,
	}
	if err := st.advance(StageReported); err != nil {
		return nil, err
	}
	return report, nil
}

// compareReference aligns recognized and expected tokens by position.
func (s *Service) compareReference(r *Report, recognized, expected []string, conf []*float64) {
	n := max(len(recognized), len(expected))
	for i := 0; i < n; i++ {
		rec, exp := at(recognized, i), at(expected, i)
		if tokenize.Lower(rec) == tokenize.Lower(exp) {
			continue
		}
		token := rec
		if token == "" {
			token = exp
		}
		var suggestions []string
		if exp != "" {
			suggestions = []string{exp}
			r.Suggestions = append(r.Suggestions, exp)
		}
		var c *float64
		if i < len(conf) {
			c = conf[i]
		}
		issue := newIssue(IssueMismatchExpected, i+1, token, suggestions, c)
		expCopy := exp
		issue.Expected = &expCopy
		issue.Recognized = rec
		r.Issues = append(r.Issues, issue)
		r.Errors = append(r.Errors, PositionError{Position: i + 1, Expected: exp, Recognized: rec})
	}
}

// diagnoseTokens runs the confidence check and the spelling heuristics.
func (s *Service) diagnoseTokens(r *Report, tokens []string, conf []*float64, dict spelling.Dictionary) {
	for i, tok := range tokens {
		w := tokenize.Lower(tok)
		if tokenize.Len(w) < 2 {
			continue
		}
		c := conf[i]
		if c != nil && *c >= 0 && *c < s.lowConfidence {
			r.Issues = append(r.Issues, newIssue(IssueLowConfidence, i+1, tok, nil, c))
		}
		finding, ok := spelling.Diagnose(w, dict)
		if !ok {
			continue
		}
		r.Issues = append(r.Issues, newIssue(IssueType(finding.Kind), i+1, tok, finding.Suggestions, c))
	}
}

// positionalConfidences pairs the i-th analyzed token with the i-th token of
// the confidence pass.
func positionalConfidences(tokens []ocr.TokenConfidence, n int) []*float64 {
	out := make([]*float64, n)
	for i := 0; i < n && i < len(tokens); i++ {
		c := tokens[i].Confidence
		out[i] = &c
	}
	return out
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}
