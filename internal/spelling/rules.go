package spelling

import (
	"strings"
)

// Kind names the suspected error behind a finding.
type Kind string

const (
	KindUnknownWord     Kind = "unknown_word"
	KindEndingE         Kind = "ending_ë_suspected"
	KindCedilla         Kind = "ç_suspected"
	KindDoubleConsonant Kind = "double_consonant_suspected"
	KindDiacritics      Kind = "diacritics_suspected"
)

// Finding is the diagnosis of a token missing from the lexicon.
type Finding struct {
	Kind        Kind
	Suggestions []string
	// FromRules is set when the suggestions came from the orthography rules
	// rather than the fuzzy matcher.
	FromRules bool
}

// RuleCandidates returns lexicon words produced from token by the Albanian
// orthography rules, in the order generated: final e to ë, appended ë, single
// c to ç substitutions, then the repeated-letter collapse. A token that is
// already in the lexicon yields nothing.
func RuleCandidates(token string, lex Lexicon) []string {
	w := strings.TrimSpace(token)
	if w == "" || lex.Contains(w) {
		return nil
	}

	var cands []string
	if strings.HasSuffix(w, "e") {
		cands = append(cands, strings.TrimSuffix(w, "e")+"ë")
	}
	if !strings.HasSuffix(w, "ë") {
		cands = append(cands, w+"ë")
	}
	for i := 0; i < len(w); i++ {
		if w[i] == 'c' {
			cands = append(cands, w[:i]+"ç"+w[i+1:])
		}
	}
	cands = append(cands, CollapseRepeats(w))

	out := make([]string, 0, MaxSuggestions)
	seen := make(map[string]bool, len(cands))
	for _, c := range cands {
		if c == "" || c == w || seen[c] || !lex.Contains(c) {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if len(out) == MaxSuggestions {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// CollapseRepeats reduces every run of one repeated letter to a single letter.
func CollapseRepeats(w string) string {
	var b strings.Builder
	b.Grow(len(w))
	var last rune = -1
	for _, r := range w {
		if r == last && isLetter(r) {
			continue
		}
		b.WriteRune(r)
		last = r
	}
	return b.String()
}

// StripDiacritics folds ë to e and ç to c.
func StripDiacritics(w string) string {
	return diacriticFolder.Replace(w)
}

var diacriticFolder = strings.NewReplacer("ë", "e", "ç", "c")

// IsDiacriticVariant reports whether a and b differ only in ë/e or ç/c.
func IsDiacriticVariant(a, b string) bool {
	return a != b && StripDiacritics(a) == StripDiacritics(b)
}

// Diagnose classifies a lowercase token. ok is false when the token is a
// known word-form and needs no finding.
func Diagnose(token string, dict Dictionary) (finding Finding, ok bool) {
	if dict.Contains(token) {
		return Finding{}, false
	}

	if rule := RuleCandidates(token, dict); len(rule) > 0 {
		return Finding{Kind: classifyRules(token, rule, dict), Suggestions: rule, FromRules: true}, true
	}

	fuzzy := Suggest(token, dict, MaxSuggestions)
	kind := KindUnknownWord
	if len(fuzzy) > 0 && IsDiacriticVariant(token, fuzzy[0]) {
		kind = KindDiacritics
	}
	return Finding{Kind: kind, Suggestions: fuzzy}, true
}

func classifyRules(token string, cands []string, lex Lexicon) Kind {
	if !strings.HasSuffix(token, "ë") {
		for _, c := range cands {
			if strings.HasSuffix(c, "ë") {
				return KindEndingE
			}
		}
	}
	if strings.Contains(token, "c") {
		for _, c := range cands {
			if strings.Contains(c, "ç") {
				return KindCedilla
			}
		}
	}
	if collapsed := CollapseRepeats(token); collapsed != token && lex.Contains(collapsed) {
		return KindDoubleConsonant
	}
	return KindUnknownWord
}

func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == 'ë' || r == 'ç' || r == 'Ë' || r == 'Ç'
}
