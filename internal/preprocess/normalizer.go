/**
 * Image normalization ahead of OCR
 *
 * Deskews by the backend's orientation estimate, then enhances and binarizes.
 * Neither step can fail the request: a failed estimate leaves the image
 * unrotated and a failed enhancement falls back to plain thresholding.
 */

package preprocess

import (
	"context"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/adverant/nexus/diktim-ocr/internal/logging"
	"github.com/adverant/nexus/diktim-ocr/internal/metrics"
)

// RotationDetector estimates the clockwise rotation in degrees that would
// bring the page upright.
type RotationDetector interface {
	DetectRotation(ctx context.Context, img image.Image) (int, error)
}

// Normalized carries both forms of a prepared page.
type Normalized struct {
	// Deskewed is the rotated but otherwise untouched image.
	Deskewed image.Image
	// Binarized is the enhanced black and white image.
	Binarized *image.Gray
	// Rotation is the correction applied, one of 0, 90, 180 or 270.
	Rotation int
	// Enhancer names the pipeline that produced Binarized.
	Enhancer string
}

// Normalizer prepares decoded images for extraction.
type Normalizer struct {
	detector RotationDetector
	enhancer Enhancer
	fallback Enhancer
	logger   *logging.Logger
}

// NewNormalizer builds a normalizer. A nil detector disables deskew and a nil
// enhancer means plain thresholding only.
func NewNormalizer(detector RotationDetector, enhancer Enhancer) *Normalizer {
	fallback := ThresholdEnhancer{Level: FallbackThreshold}
	if enhancer == nil {
		enhancer = fallback
	}
	return &Normalizer{
		detector: detector,
		enhancer: enhancer,
		fallback: fallback,
		logger:   logging.NewLogger("Normalizer"),
	}
}

// Normalize deskews and binarizes img. It fails only for an image without pixels.
func (n *Normalizer) Normalize(ctx context.Context, img image.Image) (*Normalized, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	rotation := n.detectRotation(ctx, img)
	deskewed := img
	if rotation != 0 {
		deskewed = imaging.Rotate(img, float64(-rotation), color.White)
	}

	out := &Normalized{Deskewed: deskewed, Rotation: rotation}

	bin, err := n.enhancer.Enhance(deskewed)
	if err == nil {
		out.Binarized = bin
		out.Enhancer = n.enhancer.Name()
		return out, nil
	}

	metrics.EnhancementFallbacks.Inc()
	n.logger.Warn("Enhancement failed, using threshold fallback",
		"enhancer", n.enhancer.Name(), "error", err)

	bin, err = n.fallback.Enhance(deskewed)
	if err != nil {
		return nil, err
	}
	out.Binarized = bin
	out.Enhancer = n.fallback.Name()
	return out, nil
}

func (n *Normalizer) detectRotation(ctx context.Context, img image.Image) int {
	if n.detector == nil {
		return 0
	}
	angle, err := n.detector.DetectRotation(ctx, img)
	if err != nil {
		metrics.DeskewDetectionFailures.Inc()
		n.logger.Warn("Orientation estimate failed, leaving image unrotated", "error", err)
		return 0
	}
	angle %= 360
	if angle < 0 {
		angle += 360
	}
	switch angle {
	case 90, 180, 270:
		return angle
	default:
		return 0
	}
}
