package usecase

import (
	"strings"

	"github.com/humidor/backend/internal/domain"
)

// Enricher replaces model-guessed cigar attributes with authoritative catalog data
type Enricher struct {
	matcher        *MatchingService
	productURLBase string
}

// NewEnricher creates an enricher. When productURLBase is set, catalog entries without
// their own product page link to productURLBase + "/" + id.
func NewEnricher(matcher *MatchingService, productURLBase string) *Enricher {
	return &Enricher{
		matcher:        matcher,
		productURLBase: strings.TrimRight(productURLBase, "/"),
	}
}

// Enrich resolves each candidate against the catalog by its own name and brand.
// Resolved candidates take every display field from the catalog entry, keeping the
// model's value only where the catalog field is empty, and gain catalog media.
// Unresolved candidates pass through without media.
func (e *Enricher) Enrich(candidates []domain.Candidate, catalog []domain.CatalogEntry) []domain.DisplayCigar {
	enriched := make([]domain.DisplayCigar, 0, len(candidates))
	for _, candidate := range candidates {
		match, ok := e.matcher.FindMatch(candidate.Name, candidate.Brand, catalog)
		if !ok {
			enriched = append(enriched, displayFromCandidate(candidate))
			continue
		}
		enriched = append(enriched, e.merge(candidate, match.Entry))
	}
	return enriched
}

// Display converts a catalog entry straight into a display card
func (e *Enricher) Display(entry domain.CatalogEntry) domain.DisplayCigar {
	return e.merge(domain.Candidate{}, entry)
}

// FilterToInventory drops cigars that did not resolve to the catalog.
// An empty result means nothing in inventory matched.
func FilterToInventory(enriched []domain.DisplayCigar) []domain.DisplayCigar {
	kept := make([]domain.DisplayCigar, 0, len(enriched))
	for _, cigar := range enriched {
		if !cigar.InInventory() {
			droppedCigars.WithLabelValues("not_in_inventory").Inc()
			continue
		}
		kept = append(kept, cigar)
	}
	return kept
}

// CandidateFromDisplay turns a display card back into a candidate, so an
// already-enriched cigar can be enriched again.
func CandidateFromDisplay(d domain.DisplayCigar) domain.Candidate {
	return domain.Candidate{
		Name:         d.Name,
		Brand:        d.Brand,
		Origin:       d.Origin,
		Wrapper:      d.Wrapper,
		Body:         d.Body,
		Strength:     d.Strength,
		Price:        d.Price,
		Time:         d.Time,
		Description:  d.Description,
		TastingNotes: d.TastingNotes,
		Pairings:     d.Pairings,
		ImageURL:     d.ImageURL,
		ProductURL:   d.ProductURL,
	}
}

// CandidateFromEntry builds the candidate a model would produce if it described
// the catalog entry perfectly
func CandidateFromEntry(entry domain.CatalogEntry) domain.Candidate {
	return domain.Candidate{
		Name:         entry.Name,
		Brand:        entry.Brand,
		Origin:       entry.Origin,
		Wrapper:      entry.Wrapper,
		Body:         entry.Body,
		Strength:     entry.Strength,
		Price:        entry.PriceRange,
		Time:         entry.SmokingTime,
		Description:  entry.Description,
		TastingNotes: entry.TastingNotes,
		Pairings:     entry.Pairings,
		Barcode:      entry.Barcode,
	}
}

// merge overlays catalog values on a candidate
func (e *Enricher) merge(candidate domain.Candidate, entry domain.CatalogEntry) domain.DisplayCigar {
	productURL := entry.ProductURL
	if productURL == "" && e.productURLBase != "" && entry.ID != "" {
		productURL = e.productURLBase + "/" + entry.ID
	}

	return domain.DisplayCigar{
		ID:           entry.ID,
		Name:         prefer(entry.Name, candidate.Name),
		Brand:        prefer(entry.Brand, candidate.Brand),
		Origin:       prefer(entry.Origin, candidate.Origin),
		Wrapper:      prefer(entry.Wrapper, candidate.Wrapper),
		Body:         prefer(entry.Body, candidate.Body),
		Strength:     prefer(entry.Strength, candidate.Strength),
		Price:        prefer(entry.PriceRange, candidate.Price),
		Time:         prefer(entry.SmokingTime, candidate.Time),
		Description:  prefer(entry.Description, candidate.Description),
		TastingNotes: preferList(entry.TastingNotes, candidate.TastingNotes),
		Pairings: domain.Pairings{
			Alcoholic:    preferList(entry.Pairings.Alcoholic, candidate.Pairings.Alcoholic),
			NonAlcoholic: preferList(entry.Pairings.NonAlcoholic, candidate.Pairings.NonAlcoholic),
		},
		ImageURL:   entry.ImageURL,
		ProductURL: productURL,
	}
}

// displayFromCandidate renders an unresolved candidate. Media are never carried
// over from the model: only the catalog may supply them.
func displayFromCandidate(c domain.Candidate) domain.DisplayCigar {
	return domain.DisplayCigar{
		Name:         c.Name,
		Brand:        c.Brand,
		Origin:       c.Origin,
		Wrapper:      c.Wrapper,
		Body:         c.Body,
		Strength:     c.Strength,
		Price:        c.Price,
		Time:         c.Time,
		Description:  c.Description,
		TastingNotes: c.TastingNotes,
		Pairings:     c.Pairings,
	}
}

func prefer(authoritative, fallback string) string {
	if strings.TrimSpace(authoritative) != "" {
		return authoritative
	}
	return fallback
}

func preferList(authoritative, fallback []string) []string {
	if len(authoritative) > 0 {
		return authoritative
	}
	return fallback
}
