package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegModePSM(t *testing.T) {
	cases := map[SegMode]int{
		SegAuto:       3,
		SegBlock:      6,
		SegColumn:     4,
		SegSingleLine: 7,
		SegSparse:     11,
		SegRawLine:    13,
	}
	for mode, want := range cases {
		assert.Equal(t, want, mode.PSM(), mode.String())
	}
}

func TestOrientationScore(t *testing.T) {
	words := []Word{
		{Text: "shtëpi", Confidence: 90},
		{Text: "në", Confidence: 80},
		{Text: "a", Confidence: 99},
		{Text: "~|", Confidence: 95},
		{Text: "mirë", Confidence: -1},
	}
	assert.Equal(t, 170.0, OrientationScore(words))
	assert.Zero(t, OrientationScore(nil))
}

func TestBestTurn(t *testing.T) {
	turn, ok := BestTurn(map[int]float64{0: 120, 90: 40, 180: 310, 270: 15})
	assert.True(t, ok)
	assert.Equal(t, 180, turn)

	turn, ok = BestTurn(map[int]float64{90: 0, 270: 0})
	assert.True(t, ok)
	assert.Equal(t, 90, turn, "ties keep the earlier turn")

	_, ok = BestTurn(map[int]float64{})
	assert.False(t, ok)
}
