package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	apperrors "github.com/adverant/nexus/diktim-ocr/internal/errors"
	"github.com/adverant/nexus/diktim-ocr/internal/logging"
	"github.com/adverant/nexus/diktim-ocr/internal/metrics"
	"github.com/adverant/nexus/diktim-ocr/internal/preprocess"
	"github.com/adverant/nexus/diktim-ocr/internal/tokenize"
)

// Extractor runs every configured backend and profile over one image.
// Calls are sequential and each failure is contained to its own attempt.
type Extractor struct {
	primary   Engine
	secondary Engine
	language  string
	logger    *logging.Logger
}

// NewExtractor builds an extractor. secondary may be nil.
func NewExtractor(primary, secondary Engine, language string) *Extractor {
	return &Extractor{
		primary:   primary,
		secondary: secondary,
		language:  language,
		logger:    logging.NewLogger("Extractor"),
	}
}

// Available reports whether a primary backend is configured.
func (e *Extractor) Available() bool {
	return e.primary != nil
}

// Extract produces the best transcription of img.
func (e *Extractor) Extract(ctx context.Context, img *preprocess.Normalized, requestID string) (*Extraction, error) {
	if e.primary == nil {
		return nil, apperrors.NewOCRUnavailableError(requestID)
	}
	log := e.logger.With("requestId", requestID)

	if img == nil {
		return nil, apperrors.NewInvalidImageError(requestID, preprocess.ErrEmptyImage)
	}
	binarized := binarizedOf(img)

	out := &Extraction{}
	out.Tokens, out.AverageConfidence = e.confidencePass(ctx, binarized, log)

	var lastErr error
	for _, p := range CandidateProfiles(e.language) {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.NewExtractionExhaustedError(requestID, out.Attempts, err)
		}
		cand, err := e.attempt(ctx, e.primary, RolePrimary, binarized, p, &out.Attempts)
		if err != nil && p.Language != "" {
			log.Debug("Profile failed, retrying without language", "profile", p.Name, "error", err)
			cand, err = e.attempt(ctx, e.primary, RolePrimary, binarized, p.WithoutLanguage(), &out.Attempts)
		}
		if err != nil {
			lastErr = err
			continue
		}
		out.Candidates = append(out.Candidates, cand)
	}

	if e.secondary != nil && ctx.Err() == nil {
		cand, err := e.attempt(ctx, e.secondary, RoleSecondary, img.Deskewed, SecondaryProfile(e.language), &out.Attempts)
		if err != nil {
			lastErr = err
		} else {
			out.Candidates = append(out.Candidates, cand)
		}
	}

	metrics.ExtractionCandidates.Observe(float64(len(out.Candidates)))

	best, ok := SelectBest(out.Candidates)
	if !ok {
		log.Error("No OCR candidate succeeded", "attempts", out.Attempts, "error", lastErr)
		return nil, apperrors.NewExtractionExhaustedError(requestID, out.Attempts, lastErr)
	}
	out.Best = best
	metrics.SelectedEngine.WithLabelValues(best.Backend).Inc()

	log.Info("Extraction complete",
		"candidates", len(out.Candidates),
		"attempts", out.Attempts,
		"backend", best.Backend,
		"profile", best.Profile,
		"avgConfidence", out.AverageConfidence)

	return out, nil
}

// attempt runs one backend call and turns empty output into an error.
func (e *Extractor) attempt(ctx context.Context, eng Engine, role Role, img image.Image, p Profile, attempts *int) (Candidate, error) {
	*attempts++
	if img == nil {
		return Candidate{}, fmt.Errorf("%s/%s: no image", eng.Name(), p.Name)
	}

	rec, err := eng.Recognize(ctx, img, p)
	if err == nil && (rec == nil || strings.TrimSpace(rec.Text) == "") {
		err = fmt.Errorf("%s/%s: empty transcription", eng.Name(), p.Name)
	}
	if err != nil {
		metrics.ExtractionAttemptFailures.WithLabelValues(string(role), p.Name).Inc()
		return Candidate{}, err
	}

	return Candidate{
		Text:    strings.TrimSpace(rec.Text),
		Engine:  role,
		Backend: eng.Name(),
		Profile: p.Name,
	}, nil
}

// confidencePass keeps the first letter run of every reported word and
// averages the non-negative confidences. Failure yields no tokens and 0.
func (e *Extractor) confidencePass(ctx context.Context, img image.Image, log *logging.Logger) ([]TokenConfidence, float64) {
	if img == nil {
		return nil, 0
	}
	rec, err := e.primary.Recognize(ctx, img, ConfidenceProfile(e.language))
	if err != nil || rec == nil {
		log.Warn("Confidence pass failed", "error", err)
		return nil, 0
	}

	var tokens []TokenConfidence
	var sum float64
	n := 0
	for _, w := range rec.Words {
		raw := strings.TrimSpace(w.Text)
		run, ok := tokenize.FirstRun(raw)
		if !ok {
			continue
		}
		conf := w.Confidence
		if conf < 0 {
			conf = -1
		} else {
			sum += conf
			n++
		}
		tokens = append(tokens, TokenConfidence{Token: run, Raw: raw, Confidence: conf})
	}

	if n == 0 {
		return tokens, 0
	}
	return tokens, sum / float64(n)
}

func binarizedOf(n *preprocess.Normalized) image.Image {
	if n.Binarized == nil {
		return nil
	}
	return n.Binarized
}
