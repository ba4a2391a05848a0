package preprocess

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// EnhancedThreshold binarizes the output of the full pipeline.
	EnhancedThreshold = 135
	// FallbackThreshold binarizes a plain grayscale image.
	FallbackThreshold = 140

	upscaleFactor   = 1.5
	contrastFactor  = 2.0
	unsharpRadius   = 2.0
	unsharpAmount   = 1.5
	unsharpMinDelta = 3

	// maxEnhancedPixels bounds the upscaled canvas; larger inputs take the fallback path.
	maxEnhancedPixels = 60_000_000
)

var (
	ErrEmptyImage    = errors.New("image has no pixels")
	ErrImageTooLarge = errors.New("image too large for enhancement")
)

// Enhancer turns a deskewed image into a binarized grayscale image.
type Enhancer interface {
	Name() string
	Enhance(img image.Image) (*image.Gray, error)
}

// EnhancedPipeline upscales, stretches contrast, removes speckle, sharpens
// and then thresholds.
type EnhancedPipeline struct{}

func (EnhancedPipeline) Name() string { return "enhanced" }

func (EnhancedPipeline) Enhance(img image.Image) (*image.Gray, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmptyImage
	}
	w := int(math.Round(float64(b.Dx()) * upscaleFactor))
	h := int(math.Round(float64(b.Dy()) * upscaleFactor))
	if w*h > maxEnhancedPixels {
		return nil, ErrImageTooLarge
	}

	gray := imaging.Grayscale(img)
	resized := imaging.Resize(gray, w, h, imaging.CatmullRom)

	boosted := toGray(adjustContrast(resized, contrastFactor))
	autoContrast(boosted)

	denoised := Median3(boosted)
	sharpened := unsharpMask(denoised)

	Threshold(sharpened, EnhancedThreshold)
	return sharpened, nil
}

// ThresholdEnhancer only converts to grayscale and binarizes.
type ThresholdEnhancer struct {
	Level uint8
}

func (ThresholdEnhancer) Name() string { return "threshold" }

func (t ThresholdEnhancer) Enhance(img image.Image) (*image.Gray, error) {
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	level := t.Level
	if level == 0 {
		level = FallbackThreshold
	}
	g := toGray(imaging.Grayscale(img))
	Threshold(g, level)
	return g, nil
}

// Threshold sets pixels above level to white and the rest to black, in place.
func Threshold(g *image.Gray, level uint8) {
	for i, v := range g.Pix {
		if v > level {
			g.Pix[i] = 255
		} else {
			g.Pix[i] = 0
		}
	}
}

// adjustContrast scales every pixel's distance from the mean luminance.
func adjustContrast(img *image.NRGBA, factor float64) *image.NRGBA {
	var sum float64
	n := 0
	for i := 0; i < len(img.Pix); i += 4 {
		sum += float64(img.Pix[i])
		n++
	}
	if n == 0 {
		return img
	}
	mean := sum / float64(n)

	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := clamp8(mean + (float64(c.R)-mean)*factor)
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

// autoContrast stretches the luminance range to 0..255 in place.
func autoContrast(g *image.Gray) {
	lo, hi := uint8(255), uint8(0)
	for _, v := range g.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		return
	}
	scale := 255.0 / float64(hi-lo)
	for i, v := range g.Pix {
		g.Pix[i] = clamp8(float64(v-lo) * scale)
	}
}

// Median3 applies a 3x3 median filter; border pixels use the clamped neighborhood.
func Median3(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	var window [9]uint8
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			k := 0
			for dy := -1; dy <= 1; dy++ {
				yy := clampInt(y+dy, b.Min.Y, b.Max.Y-1)
				for dx := -1; dx <= 1; dx++ {
					xx := clampInt(x+dx, b.Min.X, b.Max.X-1)
					window[k] = src.Pix[src.PixOffset(xx, yy)]
					k++
				}
			}
			dst.Pix[dst.PixOffset(x, y)] = median9(window)
		}
	}
	return dst
}

func median9(w [9]uint8) uint8 {
	// insertion sort; nine elements
	for i := 1; i < len(w); i++ {
		for j := i; j > 0 && w[j-1] > w[j]; j-- {
			w[j-1], w[j] = w[j], w[j-1]
		}
	}
	return w[4]
}

// unsharpMask adds amount times the high-pass detail where it is at least
// unsharpMinDelta.
func unsharpMask(src *image.Gray) *image.Gray {
	blurred := imaging.Blur(src, unsharpRadius)
	b := src.Bounds()
	dst := image.NewGray(b)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			orig := float64(src.Pix[src.PixOffset(b.Min.X+x, b.Min.Y+y)])
			blur := float64(blurred.Pix[y*blurred.Stride+x*4])
			diff := orig - blur
			out := orig
			if math.Abs(diff) >= unsharpMinDelta {
				out = orig + diff*unsharpAmount
			}
			dst.Pix[dst.PixOffset(b.Min.X+x, b.Min.Y+y)] = clamp8(out)
		}
	}
	return dst
}

func toGray(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			g.Pix[y*g.Stride+x] = row[x*4]
		}
	}
	return g
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
