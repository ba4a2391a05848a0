package ocr

import (
	"unicode"
)

// AlbanianWhitelist is the Latin alphabet with ë and ç plus basic punctuation.
const AlbanianWhitelist = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZëËçÇ?.,' -"

// ConfidenceProfile yields word boxes with confidences.
func ConfidenceProfile(language string) Profile {
	return Profile{Name: "confidence", Mode: SegBlock, Language: language, WithWords: true}
}

// CandidateProfiles returns the recall-oriented passes, in generation order.
func CandidateProfiles(language string) []Profile {
	modes := []SegMode{SegBlock, SegColumn, SegSingleLine, SegSparse, SegRawLine}
	out := make([]Profile, 0, len(modes))
	for _, m := range modes {
		out = append(out, Profile{
			Name:      m.String(),
			Mode:      m,
			Language:  language,
			Whitelist: AlbanianWhitelist,
		})
	}
	return out
}

// SecondaryProfile is used for the secondary backend on the deskewed image.
func SecondaryProfile(language string) Profile {
	return Profile{Name: "secondary", Mode: SegAuto, Language: language}
}

// Score rates a transcription by its letter count plus its length.
func Score(text string) int {
	score := 0
	for _, r := range text {
		score++
		if unicode.IsLetter(r) {
			score++
		}
	}
	return score
}

// SelectBest returns the highest scoring candidate. The earliest candidate
// wins ties. ok is false for an empty slice.
func SelectBest(cands []Candidate) (best Candidate, ok bool) {
	bestScore := -1
	for _, c := range cands {
		if s := Score(c.Text); s > bestScore {
			best, bestScore, ok = c, s, true
		}
	}
	return best, ok
}
