package domain

import (
	"fmt"
	"strings"
)

// Pairings lists drinks that go well with a cigar
type Pairings struct {
	Alcoholic    []string `json:"alcoholic" yaml:"alcoholic"`
	NonAlcoholic []string `json:"nonAlcoholic" yaml:"nonAlcoholic"`
}

// CatalogEntry is the authoritative, admin-managed inventory record for one cigar
type CatalogEntry struct {
	ID             string   `json:"id" yaml:"id"`
	Brand          string   `json:"brand" yaml:"brand"`
	Name           string   `json:"name" yaml:"name"`
	Origin         string   `json:"origin" yaml:"origin"`
	Wrapper        string   `json:"wrapper" yaml:"wrapper"`
	Body           string   `json:"body" yaml:"body"`
	Strength       string   `json:"strength" yaml:"strength"`
	PriceRange     string   `json:"priceRange" yaml:"priceRange"`
	SmokingTime    string   `json:"smokingTime" yaml:"smokingTime"`
	Description    string   `json:"description" yaml:"description"`
	TastingNotes   []string `json:"tastingNotes" yaml:"tastingNotes"`
	Pairings       Pairings `json:"pairings" yaml:"pairings"`
	InventoryCount int      `json:"inventoryCount" yaml:"inventoryCount"`
	ImageURL       string   `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	ProductURL     string   `json:"productUrl,omitempty" yaml:"productUrl,omitempty"`
	Barcode        string   `json:"barcode,omitempty" yaml:"barcode,omitempty"`
}

// InStock reports whether the store has at least one of this cigar
func (e CatalogEntry) InStock() bool {
	return e.InventoryCount > 0
}

// Candidate is a cigar description proposed by the model, unverified against inventory
type Candidate struct {
	Name         string   `json:"name"`
	Brand        string   `json:"brand"`
	Origin       string   `json:"origin"`
	Wrapper      string   `json:"wrapper"`
	Body         string   `json:"body"`
	Strength     string   `json:"strength"`
	Price        string   `json:"price"`
	Time         string   `json:"time"`
	Description  string   `json:"description"`
	TastingNotes []string `json:"tastingNotes"`
	Pairings     Pairings `json:"pairings"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	ProductURL   string   `json:"productUrl,omitempty"`
	Barcode      string   `json:"barcode,omitempty"`
}

// DisplayCigar is what the client renders as a cigar card.
// ID, ImageURL and ProductURL are only set when the cigar resolved to a catalog entry.
type DisplayCigar struct {
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name"`
	Brand        string   `json:"brand"`
	Origin       string   `json:"origin"`
	Wrapper      string   `json:"wrapper"`
	Body         string   `json:"body"`
	Strength     string   `json:"strength"`
	Price        string   `json:"price"`
	Time         string   `json:"time"`
	Description  string   `json:"description"`
	TastingNotes []string `json:"tastingNotes"`
	Pairings     Pairings `json:"pairings"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	ProductURL   string   `json:"productUrl,omitempty"`
}

// InInventory reports whether the cigar carries catalog media
func (d DisplayCigar) InInventory() bool {
	return d.ImageURL != "" || d.ProductURL != ""
}

// MatchResult is the outcome of resolving a free-text name against the catalog
type MatchResult struct {
	Entry         CatalogEntry `json:"entry"`
	Score         int          `json:"score"`
	MatchedTokens []string     `json:"matchedTokens,omitempty"`
	Exact         bool         `json:"exact"`
}

// Validate checks the invariants a catalog write must satisfy
func (e CatalogEntry) Validate() error {
	if strings.TrimSpace(e.Brand) == "" || strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: brand and name are required", ErrInvalidCatalogEntry)
	}
	if e.InventoryCount < 0 {
		return fmt.Errorf("%w: inventoryCount must be >= 0, got %d", ErrInvalidCatalogEntry, e.InventoryCount)
	}
	return nil
}
