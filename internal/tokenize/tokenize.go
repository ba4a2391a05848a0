// Package tokenize splits Albanian text into letter runs.
package tokenize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// letterRun matches a maximal run of Albanian letters. Other Latin letters
// with diacritics are token boundaries.
var letterRun = regexp.MustCompile(`[A-Za-zËÇëç]+`)

// Normalize applies NFKC, collapses whitespace runs to one space and trims.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// Words returns the letter runs of s in order of appearance.
func Words(s string) []string {
	return letterRun.FindAllString(s, -1)
}

// FirstRun returns the first letter run in s and whether one exists.
func FirstRun(s string) (string, bool) {
	run := letterRun.FindString(s)
	return run, run != ""
}

// Lower lowercases s with Albanian casing rules.
func Lower(s string) string {
	// A Caser keeps state and must not be shared between goroutines.
	return cases.Lower(language.Albanian).String(s)
}

// LowerWords tokenizes s and lowercases each token.
func LowerWords(s string) []string {
	words := Words(s)
	caser := cases.Lower(language.Albanian)
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return words
}

// Len is the length of s in characters.
func Len(s string) int {
	return len([]rune(s))
}
