package analysis

import (
	"github.com/adverant/nexus/diktim-ocr/internal/refine"
	"github.com/adverant/nexus/diktim-ocr/internal/spelling"
)

// PipelineVersion is reported in every report's meta.
const PipelineVersion = "2.1-go"

// Language is the ISO 639-2 code of the analyzed language.
const Language = "sqi"

// IssueType names what was found wrong with a token.
type IssueType string

const (
	IssueLowConfidence    IssueType = "low_confidence"
	IssueMismatchExpected IssueType = "mismatch_expected"

	IssueEndingE         = IssueType(spelling.KindEndingE)
	IssueCedilla         = IssueType(spelling.KindCedilla)
	IssueDoubleConsonant = IssueType(spelling.KindDoubleConsonant)
	IssueDiacritics      = IssueType(spelling.KindDiacritics)
	IssueUnknownWord     = IssueType(spelling.KindUnknownWord)
)

// Source says which stage is blamed for an issue.
type Source string

const (
	SourceOCR         Source = "ocr"
	SourceOrthography Source = "orthography"
)

// Severity grades an issue for display.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one flagged token.
type Issue struct {
	Position      int       `json:"position"`
	Token         string    `json:"token"`
	Type          IssueType `json:"type"`
	Message       string    `json:"message"`
	Expected      *string   `json:"expected"`
	Recognized    string    `json:"recognized"`
	Suggestions   []string  `json:"suggestions"`
	OCRConfidence *float64  `json:"ocr_confidence"`
	Source        Source    `json:"source"`
	Severity      Severity  `json:"severity"`
	Likelihood    float64   `json:"likelihood"`
}

// PositionError is a reference-mode mismatch.
type PositionError struct {
	Position   int    `json:"position"`
	Expected   string `json:"expected"`
	Recognized string `json:"recognized"`
}

// Meta summarizes how a report was produced.
type Meta struct {
	Language            string  `json:"language"`
	ExpectedProvided    bool    `json:"expected_provided"`
	TokensExtracted     int     `json:"tokens_extracted"`
	IssuesFound         int     `json:"issues_found"`
	OCRConfidenceAvg    float64 `json:"ocr_confidence_avg"`
	OCREngine           string  `json:"ocr_engine"`
	LLMEnabled          bool    `json:"llm_enabled"`
	LLMModel            string  `json:"llm_model"`
	LLMConfidence       float64 `json:"llm_confidence"`
	LLMProcessingTimeMs int64   `json:"llm_processing_time_ms"`
	PipelineVersion     string  `json:"pipeline_version"`

	RequestID      string `json:"request_id"`
	OCRProfile     string `json:"ocr_profile"`
	OCRCandidates  int    `json:"ocr_candidates"`
	DeskewRotation int    `json:"deskew_rotation"`
	LexiconEntries int    `json:"lexicon_entries"`
	Enhancer       string `json:"enhancer"`
}

// Report is the response to one analysis.
type Report struct {
	ExtractedText  string              `json:"extracted_text"`
	RefinedText    *string             `json:"refined_text"`
	Errors         []PositionError     `json:"errors"`
	Suggestions    []string            `json:"suggestions"`
	Issues         []Issue             `json:"issues"`
	LLMCorrections []refine.Correction `json:"llm_corrections"`
	Meta           Meta                `json:"meta"`
}

// Request is one analysis input.
type Request struct {
	Image []byte
	// ExpectedText switches to reference comparison when non-blank.
	ExpectedText string
	UseLLM       bool
	RequestID    string
}
