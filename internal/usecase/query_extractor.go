package usecase

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/humidor/backend/internal/domain"
	"github.com/rs/zerolog"
)

// Minimum token count for a whole user message to be treated as a cigar query.
// Keeps one-word messages like "hi" or "thanks" out of the matcher.
const minMessageTokens = 2

// maxQueryWords bounds how much of a captured phrase is sent to the matcher
const maxQueryWords = 8

// userIntentPatterns are tried in order against the customer's latest message.
// The first capture group is the cigar being asked about.
var userIntentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)tell me (?:more |a bit |a little )?about (?:the |a |an |your )?(.+)`),
	regexp.MustCompile(`(?i)what(?:'s|’s| is| are) (?:the |a |an )?(.+?) like\b`),
	regexp.MustCompile(`(?i)(?:do|does) (?:you|the store|y'all) (?:guys )?(?:have|carry|stock|sell) (?:any |the |a |an )?(.+)`),
	regexp.MustCompile(`(?i)show me (?:the |a |an |some )?(.+)`),
	regexp.MustCompile(`(?i)(?:how|what) about (?:the |a |an )?(.+)`),
	regexp.MustCompile(`(?i)\b(?:is|are) (?:the |a |an )?(.+?) (?:any good|good|in stock|available)\b`),
	regexp.MustCompile(`(?i)(?:i'd like|i’d like|i would like|i want|can i get|can i try|i'll take|i’ll take) (?:to try )?(?:the |a |an |some )?(.+)`),
	regexp.MustCompile(`(?i)(?:info|information|details) (?:on|about) (?:the |a |an )?(.+)`),
	regexp.MustCompile(`(?i)(?:have you got|got any) (?:the |a |an )?(.+)`),
}

// identificationPatterns recognize a vision model naming the cigar in prose
var identificationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)i can see (?:that )?(?:this|it) is (?:an? |the )?([^!?,;\n]+)`),
	regexp.MustCompile(`(?i)i recogni[sz]e (?:this|it) as (?:an? |the )?([^!?,;\n]+)`),
	regexp.MustCompile(`(?i)identified (?:this|it) as (?:an? |the )?([^!?,;\n]+)`),
	regexp.MustCompile(`(?i)\b(?:this|it) (?:is|appears to be|looks like|seems to be) (?:an? |the )?([^!?,;\n]+)`),
	regexp.MustCompile(`(?i)\bthat(?:'s|’s| is) (?:an? |the )?([^!?,;\n]+)`),
}

// hedgePattern marks prose where the model is not actually committing to an identification
var hedgePattern = regexp.MustCompile(`(?i)\b(?:not sure|can't|can’t|cannot|unable|unclear|hard to (?:tell|read|see)|difficult to|might be|could be|maybe)\b`)

// trailingNoise is stripped from the end of a captured phrase
var trailingNoise = regexp.MustCompile(`(?i)(?:[\s,]+(?:please|in stock|today|right now|for me|at all|here|there|cigars?|band))+[\s?!.,]*$|[\s?!.,]+$`)

// ExtractedQuery is a cigar name pulled out of a sentence
type ExtractedQuery struct {
	Name    string
	Brand   string
	Pattern string // the pattern that matched, empty when the whole message was used
}

// QueryExtractor recognizes phrasing that names a cigar and resolves it against the catalog
type QueryExtractor struct {
	matcher            *MatchingService
	enableDebugLogging bool
	logger             zerolog.Logger
}

// NewQueryExtractor creates a new query extractor
func NewQueryExtractor(matcher *MatchingService, enableDebugLogging bool, logger zerolog.Logger) *QueryExtractor {
	return &QueryExtractor{
		matcher:            matcher,
		enableDebugLogging: enableDebugLogging,
		logger:             logger.With().Str("component", "extractor").Logger(),
	}
}

// ExtractRequestedCigar pulls the cigar a customer asked about out of their message.
// Falls back to the whole message when no phrase pattern matches.
func (p *QueryExtractor) ExtractRequestedCigar(text string) (ExtractedQuery, bool) {
	text = strings.TrimSpace(text)
	if len(Tokenize(text)) < minMessageTokens {
		return ExtractedQuery{}, false
	}

	query := ExtractedQuery{Name: text}
	for _, pattern := range userIntentPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			query = ExtractedQuery{Name: m[1], Pattern: pattern.String()}
			break
		}
	}

	query.Name = cleanCapturedName(query.Name)
	if len(meaningfulTokens(Tokenize(query.Name))) == 0 {
		return ExtractedQuery{}, false
	}

	if p.enableDebugLogging {
		p.logger.Debug().Str("input", text).Str("query", query.Name).Msg("extracted requested cigar")
	}
	return query, true
}

// ExtractIdentifiedCigar pulls a cigar name out of a vision model's prose,
// e.g. "I can see this is a Padron 1964 Anniversary!".
func (p *QueryExtractor) ExtractIdentifiedCigar(text string) (ExtractedQuery, bool) {
	for _, sentence := range splitSentences(text) {
		if hedgePattern.MatchString(sentence) {
			continue
		}
		for _, pattern := range identificationPatterns {
			m := pattern.FindStringSubmatch(sentence)
			if m == nil {
				continue
			}
			name := cleanCapturedName(m[1])
			// "a Padron or an Oliva" is a guess, not an identification
			if strings.Contains(" "+strings.ToLower(name)+" ", " or ") {
				continue
			}
			if len(meaningfulTokens(Tokenize(name))) == 0 {
				continue
			}
			if p.enableDebugLogging {
				p.logger.Debug().Str("sentence", sentence).Str("query", name).Msg("extracted identified cigar")
			}
			return ExtractedQuery{Name: name, Pattern: pattern.String()}, true
		}
	}
	return ExtractedQuery{}, false
}

// ResolveRequestedCigar extracts the cigar a customer asked about and resolves it to inventory
func (p *QueryExtractor) ResolveRequestedCigar(text string, catalog []domain.CatalogEntry) (*domain.MatchResult, bool) {
	query, ok := p.ExtractRequestedCigar(text)
	if !ok {
		return nil, false
	}
	return p.matcher.FindMatch(query.Name, query.Brand, catalog)
}

// ResolveIdentifiedCigar extracts a cigar named in model prose and resolves it to inventory
func (p *QueryExtractor) ResolveIdentifiedCigar(text string, catalog []domain.CatalogEntry) (*domain.MatchResult, bool) {
	query, ok := p.ExtractIdentifiedCigar(text)
	if !ok {
		return nil, false
	}
	return p.matcher.FindMatch(query.Name, query.Brand, catalog)
}

// cleanCapturedName trims punctuation and filler from a captured phrase
func cleanCapturedName(s string) string {
	s = strings.TrimSpace(s)
	for {
		trimmed := strings.TrimSpace(trailingNoise.ReplaceAllString(s, ""))
		if trimmed == s {
			break
		}
		s = trimmed
	}
	s = strings.Trim(s, `"'“”‘’`)

	words := strings.Fields(s)
	if len(words) > maxQueryWords {
		words = words[:maxQueryWords]
	}
	return strings.Join(words, " ")
}

// splitSentences breaks prose into sentences. A period only ends a sentence when
// whitespace and an uppercase letter follow, so "Montecristo No. 2" stays whole.
func splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0

	flush := func(end int) {
		if part := strings.TrimSpace(string(runes[start:end])); part != "" {
			sentences = append(sentences, part)
		}
		start = end + 1
	}

	for i, r := range runes {
		switch r {
		case '!', '?', '\n':
			flush(i)
		case '.':
			j := i + 1
			for j < len(runes) && unicode.IsSpace(runes[j]) {
				j++
			}
			if j > i+1 && j < len(runes) && unicode.IsUpper(runes[j]) {
				flush(i)
			}
		}
	}
	if start < len(runes) {
		flush(len(runes))
	}
	return sentences
}
