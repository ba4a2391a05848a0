// Package refine asks a language model to clean up Albanian OCR output.
// The pass is advisory: every failure degrades to returning the input.
package refine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	apperrors "github.com/adverant/nexus/diktim-ocr/internal/errors"
	"github.com/adverant/nexus/diktim-ocr/internal/logging"
	"github.com/adverant/nexus/diktim-ocr/internal/metrics"
)

const (
	// ModelNone marks a pass that was not attempted.
	ModelNone = "none"
	// ModelFallback marks a pass that failed and returned the input.
	ModelFallback = "fallback"

	defaultConfidence = 0.5
)

const systemPrompt = `Ti je ekspert i gjuhës shqipe dhe i korrigjimit të tekstit të nxjerrë me OCR.

Për tekstin që të jepet:
1. Korrigjo gabimet tipike të OCR-së: "rn" në vend të "m", "l" në vend të "i", "0" në vend të "o", shkronja të dyfishuara pa nevojë dhe simbole të huaja.
2. Rikthe shkronjat ë dhe ç kur mungojnë (p.sh. "shtepi" → "shtëpi", "eshte" → "është", "caj" → "çaj").
3. Rregullo gabimet e dukshme gramatikore dhe sintaksore.
4. Ruaj kuptimin origjinal dhe mos ndrysho fjalët që janë të sakta.

Përgjigju vetëm me JSON në këtë formë:
{
  "refined_text": "teksti i korrigjuar",
  "corrections": [
    {"original": "fjala origjinale", "corrected": "fjala e korrigjuar", "reason": "arsyeja"}
  ],
  "confidence": 0.85
}

"confidence" është nga 0.0 deri në 1.0 sipas sigurisë që ke për korrigjimet.`

const userPromptTemplate = `Analizo dhe korrigjo këtë tekst të nxjerrë nga OCR:

---
%s
---

Kthe rezultatin në formatin JSON të mësipërm.`

// Generator is the subset of llms.Model the refiner needs.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Correction is one change reported by the model.
type Correction struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Reason    string `json:"reason"`
}

// Result is the outcome of one refinement pass.
type Result struct {
	RefinedText      string       `json:"refined_text"`
	Corrections      []Correction `json:"corrections"`
	Confidence       float64      `json:"confidence"`
	ModelUsed        string       `json:"model_used"`
	ProcessingTimeMs int64        `json:"processing_time_ms"`
}

// Applied reports whether the model's text should replace the input.
func (r Result) Applied() bool {
	return r.ModelUsed != ModelNone
}

// Options tune generation.
type Options struct {
	Temperature float64
	MaxTokens   int
	// Timeout bounds one call; zero means only the caller's context applies.
	Timeout time.Duration
}

// DefaultOptions are a low temperature and a bounded reply, with no deadline.
func DefaultOptions() Options {
	return Options{Temperature: 0.3, MaxTokens: 1500}
}

// LLMRefiner refines text with a langchaingo model.
type LLMRefiner struct {
	gen    Generator
	model  string
	opts   Options
	logger *logging.Logger
}

// NewLLMRefiner wraps gen. A nil gen makes every call a passthrough with ModelNone.
func NewLLMRefiner(gen Generator, model string, opts Options) *LLMRefiner {
	return &LLMRefiner{
		gen:    gen,
		model:  model,
		opts:   opts,
		logger: logging.NewLogger("Refiner"),
	}
}

// Refine never fails; problems are reported through ModelUsed.
func (r *LLMRefiner) Refine(ctx context.Context, raw string, enabled bool) Result {
	if !enabled || r == nil || r.gen == nil || strings.TrimSpace(raw) == "" {
		return passthrough(raw, ModelNone, 0)
	}

	start := time.Now()
	res, err := r.call(ctx, raw)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		metrics.RefinementsTotal.WithLabelValues(ModelFallback).Inc()
		r.logger.Warn("Refinement failed, using extracted text",
			"error", apperrors.NewRefinementFailedError("", r.model, err), "durationMs", elapsed)
		return passthrough(raw, ModelFallback, elapsed)
	}

	res.ProcessingTimeMs = elapsed
	metrics.RefinementsTotal.WithLabelValues(res.ModelUsed).Inc()
	return res
}

func (r *LLMRefiner) call(ctx context.Context, raw string) (Result, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	var callOpts []llms.CallOption
	if r.opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(r.opts.MaxTokens))
	}
	callOpts = append(callOpts, llms.WithTemperature(r.opts.Temperature))

	resp, err := r.gen.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(userPromptTemplate, raw)),
	}, callOpts...)
	if err != nil {
		return Result{}, fmt.Errorf("error getting response from LLM: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return Result{}, errors.New("LLM returned no choices")
	}

	res, err := ParseReply(resp.Choices[0].Content)
	if err != nil {
		return Result{}, err
	}
	res.ModelUsed = r.model
	if res.ModelUsed == "" {
		res.ModelUsed = "llm"
	}
	return res, nil
}

type reply struct {
	RefinedText *string      `json:"refined_text"`
	Corrections []Correction `json:"corrections"`
	Confidence  *flexFloat   `json:"confidence"`
}

// ParseReply decodes the first JSON object in a model reply. refined_text is
// required; a missing confidence counts as 0.5.
func ParseReply(content string) (Result, error) {
	obj, ok := ExtractJSONObject(content)
	if !ok {
		return Result{}, errors.New("no JSON object in reply")
	}

	var rep reply
	if err := json.Unmarshal([]byte(obj), &rep); err != nil {
		return Result{}, fmt.Errorf("failed to parse reply: %w", err)
	}
	if rep.RefinedText == nil {
		return Result{}, errors.New("reply has no refined_text")
	}

	res := Result{
		RefinedText: *rep.RefinedText,
		Corrections: rep.Corrections,
		Confidence:  defaultConfidence,
	}
	if res.Corrections == nil {
		res.Corrections = []Correction{}
	}
	if rep.Confidence != nil {
		res.Confidence = min(max(float64(*rep.Confidence), 0), 1)
	}
	return res, nil
}

// ExtractJSONObject returns the first balanced {...} span of s, skipping
// braces inside JSON strings.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		if end, ok := matchBrace(s, start); ok {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func passthrough(raw, model string, elapsedMs int64) Result {
	return Result{
		RefinedText:      raw,
		Corrections:      []Correction{},
		Confidence:       0,
		ModelUsed:        model,
		ProcessingTimeMs: elapsedMs,
	}
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("confidence %s is not a number", string(b))
	}
	*f = flexFloat(v)
	return nil
}
