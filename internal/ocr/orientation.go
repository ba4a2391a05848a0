package ocr

import "github.com/adverant/nexus/diktim-ocr/internal/tokenize"

// QuarterTurns are the corrections tried when estimating page orientation.
var QuarterTurns = []int{0, 90, 180, 270}

// PSM returns the Tesseract page segmentation mode number for m.
func (m SegMode) PSM() int {
	switch m {
	case SegBlock:
		return 6
	case SegColumn:
		return 4
	case SegSingleLine:
		return 7
	case SegSparse:
		return 11
	case SegRawLine:
		return 13
	default:
		return 3
	}
}

// OrientationScore sums confidences of words that contain a letter run of
// at least two characters.
func OrientationScore(words []Word) float64 {
	var s float64
	for _, w := range words {
		run, ok := tokenize.FirstRun(w.Text)
		if ok && tokenize.Len(run) >= 2 && w.Confidence > 0 {
			s += w.Confidence
		}
	}
	return s
}

// BestTurn picks the quarter turn with the highest score. Unscored turns are
// absent from scores; ties keep the turn listed first in QuarterTurns.
func BestTurn(scores map[int]float64) (int, bool) {
	best, bestScore, found := 0, 0.0, false
	for _, turn := range QuarterTurns {
		s, ok := scores[turn]
		if !ok {
			continue
		}
		if !found || s > bestScore {
			best, bestScore, found = turn, s, true
		}
	}
	return best, found
}
