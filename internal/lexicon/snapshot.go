package lexicon

import (
	"sort"
	"time"
	"unicode/utf8"

	"github.com/adverant/nexus/diktim-ocr/internal/tokenize"
)

// MinEntryLength is the shortest word-form kept in the lexicon.
const MinEntryLength = 2

// ExerciseText is the prompt and answer of one enabled exercise.
type ExerciseText struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

// BucketKey indexes entries by first character and length in characters.
type BucketKey struct {
	First  rune
	Length int
}

// Snapshot is an immutable lexicon built from one corpus read.
type Snapshot struct {
	BuiltAt time.Time

	entries map[string]struct{}
	buckets map[BucketKey][]string
}

// Build tokenizes every text and indexes the lowercase word-forms.
func Build(texts []ExerciseText, builtAt time.Time) *Snapshot {
	s := &Snapshot{
		BuiltAt: builtAt,
		entries: make(map[string]struct{}),
		buckets: make(map[BucketKey][]string),
	}

	for _, t := range texts {
		for _, field := range [2]string{t.Prompt, t.Answer} {
			if field == "" {
				continue
			}
			for _, w := range tokenize.LowerWords(tokenize.Normalize(field)) {
				s.add(w)
			}
		}
	}

	for _, bucket := range s.buckets {
		sort.Strings(bucket)
	}
	return s
}

// FromWords builds a snapshot from word-forms that are already tokens.
func FromWords(words []string, builtAt time.Time) *Snapshot {
	texts := make([]ExerciseText, 0, len(words))
	for _, w := range words {
		texts = append(texts, ExerciseText{Prompt: w})
	}
	return Build(texts, builtAt)
}

// Empty returns a snapshot with no entries.
func Empty(builtAt time.Time) *Snapshot {
	return Build(nil, builtAt)
}

func (s *Snapshot) add(w string) {
	n := utf8.RuneCountInString(w)
	if n < MinEntryLength {
		return
	}
	if _, ok := s.entries[w]; ok {
		return
	}
	s.entries[w] = struct{}{}
	first, _ := utf8.DecodeRuneInString(w)
	key := BucketKey{First: first, Length: n}
	s.buckets[key] = append(s.buckets[key], w)
}

// Contains reports whether w is a known word-form.
func (s *Snapshot) Contains(w string) bool {
	_, ok := s.entries[w]
	return ok
}

// Bucket returns the entries starting with first that are length characters
// long, in lexical order. The slice must not be modified.
func (s *Snapshot) Bucket(first rune, length int) []string {
	return s.buckets[BucketKey{First: first, Length: length}]
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Words returns all entries in lexical order.
func (s *Snapshot) Words() []string {
	out := make([]string, 0, len(s.entries))
	for w := range s.entries {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
