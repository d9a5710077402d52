package usecase

import (
	"strings"

	"github.com/humidor/backend/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultAcceptanceFloor is the lowest score accepted as a confident match
const DefaultAcceptanceFloor = 25

// Short-circuit scores
const (
	scoreExact       = 100 // Composite or bare name equality
	scoreContainment = 98  // One composite contains the other on word boundaries
)

// Token weight tiers for scoring
const (
	weightNumeric          = 30 // Model years and numbered lines ("1964", "9")
	weightDistinctive      = 20 // Long words ("anniversary", "melanio")
	weightDefault          = 10 // Everything else
	distinctiveTokenLength = 6
)

// Scoring bases and bonuses
const (
	brandMatchBase          = 20 // Brand overlaps and at least one line token matched
	lineOnlyBase            = 10 // No brand overlap but several line tokens matched
	minLineOnlyHits         = 2
	nameSubstringBonus      = 15 // Query name and catalog name contain one another
	compositeSubstringBonus = 10 // Brand+name strings contain one another
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	AcceptanceFloor    int
	EnableDebugLogging bool
	Logger             zerolog.Logger
}

// MatchingService resolves free-text cigar names against the inventory catalog
type MatchingService struct {
	acceptanceFloor    int
	enableDebugLogging bool
	logger             zerolog.Logger
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig) *MatchingService {
	floor := config.AcceptanceFloor
	if floor <= 0 {
		floor = DefaultAcceptanceFloor
	}

	return &MatchingService{
		acceptanceFloor:    floor,
		enableDebugLogging: config.EnableDebugLogging,
		logger:             config.Logger.With().Str("component", "matcher").Logger(),
	}
}

// AcceptanceFloor returns the configured minimum match score
func (s *MatchingService) AcceptanceFloor() int {
	return s.acceptanceFloor
}

// matchQuery is the normalized form of a name/brand pair
type matchQuery struct {
	rawName     string
	brandTokens []string
	nameTokens  []string // name tokens with brand duplicates removed
	tokens      []string // brand tokens first, then name tokens
	composite   string
	bareName    string
}

func newMatchQuery(name, brand string) matchQuery {
	brandTokens := Tokenize(brand)
	brandSet := tokenSet(brandTokens)

	allNameTokens := Tokenize(name)
	nameTokens := make([]string, 0, len(allNameTokens))
	for _, t := range allNameTokens {
		if !brandSet[t] {
			nameTokens = append(nameTokens, t)
		}
	}

	tokens := make([]string, 0, len(brandTokens)+len(nameTokens))
	tokens = append(tokens, brandTokens...)
	tokens = append(tokens, nameTokens...)

	return matchQuery{
		rawName:     strings.ToLower(strings.TrimSpace(foldAccents(name))),
		brandTokens: brandTokens,
		nameTokens:  nameTokens,
		tokens:      tokens,
		composite:   strings.Join(tokens, " "),
		bareName:    strings.Join(allNameTokens, " "),
	}
}

// FindMatch returns the highest scoring catalog entry for a name and optional brand.
// The second return value is false when nothing reaches the acceptance floor.
//
// Ties go to an exact composite match first, then the larger inventory count, then
// the lowest id, so the outcome never depends on catalog order.
func (s *MatchingService) FindMatch(name, brand string, catalog []domain.CatalogEntry) (*domain.MatchResult, bool) {
	query := newMatchQuery(name, brand)
	if len(query.tokens) == 0 || len(catalog) == 0 {
		matchOutcomes.WithLabelValues("miss").Inc()
		return nil, false
	}

	var best *domain.MatchResult
	for _, entry := range catalog {
		score, matched, exact := s.score(query, entry)
		if score == 0 {
			continue
		}

		if s.enableDebugLogging {
			s.logger.Debug().
				Str("query", query.composite).
				Str("entry", entry.Brand+" "+entry.Name).
				Int("score", score).
				Strs("matched", matched).
				Msg("scored catalog entry")
		}

		candidate := &domain.MatchResult{Entry: entry, Score: score, MatchedTokens: matched, Exact: exact}
		if best == nil || outranks(candidate, best) {
			best = candidate
		}
	}

	if best == nil || best.Score < s.acceptanceFloor {
		if s.enableDebugLogging {
			s.logger.Debug().Str("query", query.composite).Msg("no confident match")
		}
		matchOutcomes.WithLabelValues("miss").Inc()
		return nil, false
	}

	if s.enableDebugLogging {
		s.logger.Debug().
			Str("query", query.composite).
			Str("id", best.Entry.ID).
			Int("score", best.Score).
			Msg("best match")
	}
	matchOutcomes.WithLabelValues("hit").Inc()
	return best, true
}

// Score computes the match score of one catalog entry without applying the floor
func (s *MatchingService) Score(name, brand string, entry domain.CatalogEntry) int {
	score, _, _ := s.score(newMatchQuery(name, brand), entry)
	return score
}

// outranks reports whether a should replace b as the best match
func outranks(a, b *domain.MatchResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Exact != b.Exact {
		return a.Exact
	}
	if a.Entry.InventoryCount != b.Entry.InventoryCount {
		return a.Entry.InventoryCount > b.Entry.InventoryCount
	}
	return a.Entry.ID < b.Entry.ID
}

// score computes similarity between a query and one catalog entry.
// Returns the score, the matched tokens, and whether the composites were equal.
func (s *MatchingService) score(query matchQuery, entry domain.CatalogEntry) (int, []string, bool) {
	entryQuery := newMatchQuery(entry.Name, entry.Brand)
	if len(entryQuery.tokens) == 0 {
		return 0, nil, false
	}

	entryBrandSet := tokenSet(entryQuery.brandTokens)
	entryNameSet := tokenSet(Tokenize(entry.Name))

	// Exact composite equality
	if query.composite == entryQuery.composite {
		return scoreExact, query.tokens, true
	}

	// Noise words alone only ever match exactly, e.g. an entry "La" / "Corona"
	if len(meaningfulTokens(query.tokens)) == 0 || len(meaningfulTokens(entryQuery.tokens)) == 0 {
		return 0, nil, false
	}

	// Bare name equality, unless the query names a different brand
	if query.bareName != "" && query.bareName == entryQuery.bareName &&
		(len(query.brandTokens) == 0 || overlaps(query.brandTokens, entryBrandSet)) {
		return scoreExact, query.tokens, false
	}

	// Containment on word boundaries, either direction
	if containsWords(entryQuery.composite, query.composite) || containsWords(query.composite, entryQuery.composite) {
		return scoreContainment, query.tokens, false
	}

	weight := 0
	lineHits := 0
	var matched []string
	seen := make(map[string]bool)
	for _, token := range meaningfulTokens(query.tokens) {
		if seen[token] {
			continue
		}
		seen[token] = true

		if !entryBrandSet[token] && !entryNameSet[token] {
			continue
		}
		matched = append(matched, token)
		weight += tokenWeight(token)
		if !entryBrandSet[token] {
			lineHits++
		}
	}

	// The model often leaves brand empty and puts it in the name instead
	brandSource := query.brandTokens
	if len(brandSource) == 0 {
		brandSource = query.nameTokens
	}
	brandMatch := overlaps(meaningfulTokens(brandSource), entryBrandSet)

	var score int
	switch {
	case brandMatch && lineHits >= 1:
		score = brandMatchBase + weight
	case lineHits >= minLineOnlyHits:
		score = lineOnlyBase + weight
	default:
		return 0, nil, false
	}

	entryName := strings.ToLower(strings.TrimSpace(foldAccents(entry.Name)))
	if substringEitherWay(query.rawName, entryName) {
		score += nameSubstringBonus
	}
	if substringEitherWay(query.composite, entryQuery.composite) {
		score += compositeSubstringBonus
	}

	return score, matched, false
}

// tokenWeight returns how much a matched token says about identity
func tokenWeight(token string) int {
	switch {
	case isNumeric(token):
		return weightNumeric
	case len([]rune(token)) >= distinctiveTokenLength:
		return weightDistinctive
	default:
		return weightDefault
	}
}

// overlaps reports whether any token is in the set
func overlaps(tokens []string, set map[string]bool) bool {
	for _, t := range tokens {
		if set[t] {
			return true
		}
	}
	return false
}

// containsWords reports whether needle appears in haystack as whole words
func containsWords(haystack, needle string) bool {
	if needle == "" || haystack == "" {
		return false
	}
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}

// substringEitherWay reports whether either string contains the other.
// Very short strings are ignored so "no" never matches "maduro".
func substringEitherWay(a, b string) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
