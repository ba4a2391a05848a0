/**
 * OCR backends and extraction results
 *
 * A backend recognizes one image under one profile. The extractor runs the
 * primary backend under every profile and the secondary backend once, then
 * keeps the most legible transcription.
 */

package ocr

import (
	"context"
	"image"
)

// Role distinguishes the primary backend from the optional secondary one.
type Role string

const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
)

// SegMode is a page segmentation strategy.
type SegMode int

const (
	SegAuto SegMode = iota
	SegBlock
	SegColumn
	SegSingleLine
	SegSparse
	SegRawLine
)

func (m SegMode) String() string {
	switch m {
	case SegBlock:
		return "block"
	case SegColumn:
		return "column"
	case SegSingleLine:
		return "single_line"
	case SegSparse:
		return "sparse"
	case SegRawLine:
		return "raw_line"
	default:
		return "auto"
	}
}

// Profile is one backend configuration.
type Profile struct {
	Name     string
	Mode     SegMode
	Language string // empty means the backend default
	// Whitelist restricts recognized characters; empty allows all.
	Whitelist string
	// WithWords asks for word boxes and confidences.
	WithWords bool
}

// WithoutLanguage returns a copy of p with no language hint.
func (p Profile) WithoutLanguage() Profile {
	p.Language = ""
	p.Name += "_nolang"
	return p
}

// Word is one recognized word fragment.
type Word struct {
	Text       string
	Confidence float64 // 0..100, or -1 when the backend reports none
	Box        image.Rectangle
}

// Recognition is the output of one backend call.
type Recognition struct {
	Text  string
	Words []Word
}

// Engine is an OCR backend.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image, p Profile) (*Recognition, error)
}

// Candidate is one successful transcription.
type Candidate struct {
	Text    string `json:"text"`
	Engine  Role   `json:"engine"`
	Backend string `json:"backend"`
	Profile string `json:"profile"`
}

// TokenConfidence is a letter run from the confidence pass.
type TokenConfidence struct {
	Token      string  `json:"token"`
	Raw        string  `json:"raw"`
	Confidence float64 `json:"confidence"`
}

// Extraction is the reduced result of all backend calls for one image.
type Extraction struct {
	Best       Candidate
	Candidates []Candidate
	// Tokens come from the confidence pass, in reading order.
	Tokens            []TokenConfidence
	AverageConfidence float64
	Attempts          int
}
