// Package spelling suggests corrections for Albanian word-forms against a lexicon.
package spelling

import (
	"sort"
	"unicode/utf8"
)

const (
	// MaxDistance is the largest edit distance a suggestion may have.
	MaxDistance = 2
	// MaxSuggestions caps every suggestion list.
	MaxSuggestions = 5
)

// Index is a lexicon bucketed by first character and length.
type Index interface {
	Bucket(first rune, length int) []string
}

// Lexicon answers membership questions.
type Lexicon interface {
	Contains(word string) bool
}

// Dictionary is a lexicon that also exposes its bucket index.
type Dictionary interface {
	Index
	Lexicon
}

// BoundedDistance returns the Levenshtein distance between a and b, or
// bound+1 as soon as it is known to exceed bound.
func BoundedDistance(a, b string, bound int) int {
	ra, rb := []rune(a), []rune(b)
	if abs(len(ra)-len(rb)) > bound {
		return bound + 1
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			if cur[j] < rowMin {
				rowMin = cur[j]
			}
		}
		if rowMin > bound {
			return bound + 1
		}
		prev, cur = cur, prev
	}

	if d := prev[len(rb)]; d <= bound {
		return d
	}
	return bound + 1
}

type scored struct {
	word     string
	distance int
}

// Suggest returns up to limit entries within MaxDistance of token, ordered by
// distance and then lexically. Only entries sharing token's first character
// and within two characters of its length are considered.
func Suggest(token string, idx Index, limit int) []string {
	if token == "" || limit <= 0 {
		return nil
	}
	first, _ := utf8.DecodeRuneInString(token)
	n := utf8.RuneCountInString(token)

	var pool []scored
	for length := max(2, n-MaxDistance); length <= n+MaxDistance; length++ {
		for _, w := range idx.Bucket(first, length) {
			if d := BoundedDistance(token, w, MaxDistance); d <= MaxDistance {
				pool = append(pool, scored{word: w, distance: d})
			}
		}
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].distance != pool[j].distance {
			return pool[i].distance < pool[j].distance
		}
		return pool[i].word < pool[j].word
	})

	out := make([]string, 0, min(limit, len(pool)))
	for _, s := range pool {
		if len(out) > 0 && out[len(out)-1] == s.word {
			continue
		}
		out = append(out, s.word)
		if len(out) == limit {
			break
		}
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
