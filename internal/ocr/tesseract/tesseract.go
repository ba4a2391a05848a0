// Package tesseract implements the primary OCR backend with gosseract.
package tesseract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/adverant/nexus/diktim-ocr/internal/ocr"
)

// maxOrientationSide bounds the image used for orientation scoring.
const maxOrientationSide = 1200

// Engine is the Tesseract backend. Every call gets its own client, so an
// Engine is safe for concurrent use.
type Engine struct {
	clientFactory func() *gosseract.Client
	language      string
}

// New returns an engine whose orientation estimate uses language.
func New(language string) *Engine {
	return &Engine{clientFactory: gosseract.NewClient, language: language}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize runs one Tesseract pass under p.
func (e *Engine) Recognize(ctx context.Context, img image.Image, p ocr.Profile) (*ocr.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if p.Language != "" {
		if err := c.SetLanguage(p.Language); err != nil {
			return nil, fmt.Errorf("set language %s: %w", p.Language, err)
		}
	}
	if err := c.SetPageSegMode(pageSegMode(p.Mode)); err != nil {
		return nil, fmt.Errorf("set page seg mode: %w", err)
	}
	if p.Whitelist != "" {
		if err := c.SetWhitelist(p.Whitelist); err != nil {
			return nil, fmt.Errorf("set whitelist: %w", err)
		}
	}
	if err := c.SetVariable(gosseract.SettableVariable("preserve_interword_spaces"), "1"); err != nil {
		return nil, fmt.Errorf("set variable preserve_interword_spaces: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}
	rec := &ocr.Recognition{Text: text}

	if p.WithWords {
		boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
		if err != nil {
			return nil, fmt.Errorf("word boxes: %w", err)
		}
		rec.Words = make([]ocr.Word, 0, len(boxes))
		for _, b := range boxes {
			rec.Words = append(rec.Words, ocr.Word{Text: b.Word, Confidence: b.Confidence, Box: b.Box})
		}
	}
	return rec, nil
}

// DetectRotation recognizes the page in each quarter turn and returns the
// correction whose words Tesseract is most confident about. gosseract does not
// expose Tesseract's OSD call, so each turn is a full recognition pass on a
// downscaled copy.
func (e *Engine) DetectRotation(ctx context.Context, img image.Image) (int, error) {
	b := img.Bounds()
	if b.Dx() > maxOrientationSide || b.Dy() > maxOrientationSide {
		img = imaging.Fit(img, maxOrientationSide, maxOrientationSide, imaging.Linear)
	}

	profile := ocr.ConfidenceProfile(e.language)
	scores := make(map[int]float64, len(ocr.QuarterTurns))
	var lastErr error
	for _, turn := range ocr.QuarterTurns {
		candidate := img
		if turn != 0 {
			candidate = imaging.Rotate(img, float64(-turn), color.White)
		}
		rec, err := e.Recognize(ctx, candidate, profile)
		if err != nil {
			lastErr = err
			continue
		}
		scores[turn] = ocr.OrientationScore(rec.Words)
	}
	best, ok := ocr.BestTurn(scores)
	if !ok {
		if lastErr == nil {
			lastErr = errors.New("no orientation could be scored")
		}
		return 0, lastErr
	}
	return best, nil
}

func pageSegMode(m ocr.SegMode) gosseract.PageSegMode {
	return gosseract.PageSegMode(m.PSM())
}
