package usecase

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// tokenSeparators are the characters that split words in addition to whitespace.
// Hyphen, en dash and em dash all count, so "Le Bijou - 1922" and "Le Bijou—1922" agree.
const tokenSeparators = "-–—/.,;:()!?\"“”"

// noiseWords carry no weight when comparing tokens: articles, prepositions and
// vitola names that appear in nearly every catalog entry.
var noiseWords = map[string]bool{
	// Articles and prepositions (English and Spanish)
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "with": true, "by": true, "from": true, "is": true,
	"de": true, "del": true, "la": true, "el": true, "los": true,
	"las": true, "y": true, "it": true, "this": true, "that": true,
	// Generic product words
	"cigar": true, "cigars": true, "stick": true, "sticks": true,
	"box": true, "single": true,
	// Vitolas
	"robusto": true, "robustos": true, "toro": true, "toros": true,
	"corona": true, "coronas": true, "churchill": true, "torpedo": true,
	"belicoso": true, "gordo": true, "lancero": true, "lonsdale": true,
	"panatela": true, "perfecto": true, "figurado": true, "petit": true,
	"double": true,
}

// foldAccents strips combining marks so "Padrón" and "Padron" tokenize alike.
// A transform.Chain holds state, so each call builds its own.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// Tokenize splits free text into lowercase word tokens.
// Apostrophes are removed rather than split on, so "Romeo's" becomes "romeos".
func Tokenize(text string) []string {
	if text == "" {
		return []string{}
	}

	lower := strings.ToLower(foldAccents(text))
	lower = strings.NewReplacer("'", "", "’", "", "‘", "").Replace(lower)

	return strings.FieldsFunc(lower, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(tokenSeparators, r)
	})
}

// IsNoiseWord reports whether a token is excluded from match weight
func IsNoiseWord(token string) bool {
	return noiseWords[token]
}

// meaningfulTokens filters out noise words
func meaningfulTokens(tokens []string) []string {
	kept := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !noiseWords[t] {
			kept = append(kept, t)
		}
	}
	return kept
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// tokenSet builds a lookup set from tokens
func tokenSet(tokens ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, group := range tokens {
		for _, t := range group {
			set[t] = true
		}
	}
	return set
}
