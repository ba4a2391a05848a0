package spelling

import (
	"testing"
	"time"

	"github.com/adverant/nexus/diktim-ocr/internal/lexicon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dict(words ...string) *lexicon.Snapshot {
	return lexicon.FromWords(words, time.Unix(0, 0))
}

func TestBoundedDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"shtepi", "shtëpi", 1},
		{"kitten", "sitting", 3},
		{"mire", "mirë", 1},
		{"abc", "abc", 0},
		{"ab", "abcde", 3},
		{"", "ab", 2},
		{"çaj", "caj", 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BoundedDistance(tc.a, tc.b, 2), "%s/%s", tc.a, tc.b)
	}
}

func TestSuggestOrdersByDistanceThenWord(t *testing.T) {
	d := dict("shtëpi", "shtëpia", "shtypi", "shpia", "zhtëpi", "shtëpinë")
	got := Suggest("shtepi", d, 5)
	// y sorts before ë
	assert.Equal(t, []string{"shtypi", "shtëpi", "shtëpia"}, got)
}

func TestSuggestRequiresSameFirstLetter(t *testing.T) {
	d := dict("zhtëpi")
	assert.Empty(t, Suggest("shtëpi", d, 5))
}

func TestSuggestCapsResults(t *testing.T) {
	d := dict("mira", "mire", "mirë", "mika", "mina", "miza", "mila")
	got := Suggest("mirx", d, 5)
	require.Len(t, got, 5)
	assert.Equal(t, []string{"mira", "mire", "mirë", "mika", "mila"}, got)
}

func TestRuleCandidatesEnding(t *testing.T) {
	d := dict("shkojë")
	assert.Equal(t, []string{"shkojë"}, RuleCandidates("shkoje", d))

	f, ok := Diagnose("shkoje", d)
	require.True(t, ok)
	assert.Equal(t, KindEndingE, f.Kind)
	assert.Equal(t, []string{"shkojë"}, f.Suggestions)
	assert.True(t, f.FromRules)
}

func TestRuleCandidatesAppendedEnding(t *testing.T) {
	d := dict("mirë", "bukë")
	assert.Equal(t, []string{"mirë"}, RuleCandidates("mir", d))
}

func TestRuleCandidatesCedilla(t *testing.T) {
	d := dict("çaj")
	assert.Equal(t, []string{"çaj"}, RuleCandidates("caj", d))

	f, ok := Diagnose("caj", d)
	require.True(t, ok)
	assert.Equal(t, KindCedilla, f.Kind)
	assert.Equal(t, []string{"çaj"}, f.Suggestions)
}

func TestRuleCandidatesEachPositionSeparately(t *testing.T) {
	d := dict("çec", "ceç", "çeç")
	assert.Equal(t, []string{"çec", "ceç"}, RuleCandidates("cec", d))
}

func TestRuleCandidatesDoubleConsonant(t *testing.T) {
	d := dict("mali")
	f, ok := Diagnose("malli", d)
	require.True(t, ok)
	assert.Equal(t, KindDoubleConsonant, f.Kind)
	assert.Equal(t, []string{"mali"}, f.Suggestions)
	assert.Equal(t, "mali", CollapseRepeats("maaalli"))
}

func TestDiagnoseFallsBackToFuzzyDiacritics(t *testing.T) {
	d := dict("shtëpi")
	assert.Empty(t, RuleCandidates("shtepi", d), "no rule covers an inner ë")

	f, ok := Diagnose("shtepi", d)
	require.True(t, ok)
	assert.Equal(t, KindDiacritics, f.Kind)
	assert.Equal(t, []string{"shtëpi"}, f.Suggestions)
	assert.False(t, f.FromRules)
}

func TestDiagnoseUnknownWord(t *testing.T) {
	d := dict("libër")
	f, ok := Diagnose("lapsi", d)
	require.True(t, ok)
	assert.Equal(t, KindUnknownWord, f.Kind)
	assert.Empty(t, f.Suggestions)

	f, ok = Diagnose("libri", d)
	require.True(t, ok)
	assert.Equal(t, KindUnknownWord, f.Kind)
	assert.Equal(t, []string{"libër"}, f.Suggestions)
}

func TestDiagnoseKnownWord(t *testing.T) {
	d := dict("mire", "mirë")
	_, ok := Diagnose("mire", d)
	assert.False(t, ok)
	assert.Empty(t, RuleCandidates("mire", d))
}

func TestIsDiacriticVariant(t *testing.T) {
	assert.True(t, IsDiacriticVariant("shtepi", "shtëpi"))
	assert.True(t, IsDiacriticVariant("caj", "çaj"))
	assert.False(t, IsDiacriticVariant("çaj", "çaj"))
	assert.False(t, IsDiacriticVariant("shtepi", "shtypi"))
}
