package usecase

import (
	"testing"

	"github.com/rs/zerolog"
)

func newTestExtractor() *QueryExtractor {
	return NewQueryExtractor(NewMatchingService(MatchConfig{}), false, zerolog.Nop())
}

func TestExtractRequestedCigar(t *testing.T) {
	extractor := newTestExtractor()

	tests := []struct {
		name    string
		input   string
		want    string
		wantOK  bool
		pattern bool
	}{
		{"tell me about", "Tell me about the Padron 1964 Anniversary", "Padron 1964 Anniversary", true, true},
		{"tell me more about", "tell me more about Opus X please", "Opus X", true, true},
		{"do you have in stock", "Do you have any Oliva Serie V Melanio in stock?", "Oliva Serie V Melanio", true, true},
		{"what is it like", "What's the Hemingway Short Story like?", "Hemingway Short Story", true, true},
		{"show me", "Show me the Le Bijou 1922", "Le Bijou 1922", true, true},
		{"how about", "How about a Montecristo No. 2?", "Montecristo No. 2", true, true},
		{"is it good", "Is the Opus X any good?", "Opus X", true, true},
		{"i'd like", "I'd like to try the Padron 1926 Serie No. 9", "Padron 1926 Serie No. 9", true, true},
		{"whole message fallback", "Padron 1964 Anniversary", "Padron 1964 Anniversary", true, false},
		{"single word is not a query", "hi", "", false, false},
		{"empty message", "", "", false, false},
		{"only noise words", "the cigar", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractor.ExtractRequestedCigar(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ExtractRequestedCigar(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got.Name != tt.want {
				t.Errorf("ExtractRequestedCigar(%q) = %q, want %q", tt.input, got.Name, tt.want)
			}
			if ok && (got.Pattern != "") != tt.pattern {
				t.Errorf("ExtractRequestedCigar(%q) pattern = %q, want pattern match %v", tt.input, got.Pattern, tt.pattern)
			}
		})
	}
}

func TestExtractRequestedCigarBoundsLength(t *testing.T) {
	extractor := newTestExtractor()
	got, ok := extractor.ExtractRequestedCigar("tell me about one two three four five six seven eight nine ten")
	if !ok {
		t.Fatal("ExtractRequestedCigar() found nothing")
	}
	if got.Name != "one two three four five six seven eight" {
		t.Errorf("ExtractRequestedCigar() = %q, want the first %d words", got.Name, maxQueryWords)
	}
}

func TestExtractIdentifiedCigar(t *testing.T) {
	extractor := newTestExtractor()

	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"i can see this is", "I can see this is a Padron 1964 Anniversary!", "Padron 1964 Anniversary", true},
		{"recognize as", "I recognize this as a Montecristo No. 2.", "Montecristo No. 2", true},
		{"looks like in second sentence", "Nice photo. This looks like the Oliva Serie V Melanio.", "Oliva Serie V Melanio", true},
		{"that's", "That's an Arturo Fuente Opus X, great choice", "Arturo Fuente Opus X", true},
		{"identified as", "I identified it as the Hemingway Short Story band", "Hemingway Short Story", true},
		{"hedged", "It might be a Padron, hard to tell from this angle.", "", false},
		{"cannot read", "I can't read the band clearly.", "", false},
		{"alternatives are not an identification", "This is either a Padron 1964 or a Padron 1926.", "", false},
		{"no identification phrase", "Great lighting in this shot!", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractor.ExtractIdentifiedCigar(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ExtractIdentifiedCigar(%q) ok = %v, want %v (got %q)", tt.input, ok, tt.wantOK, got.Name)
			}
			if got.Name != tt.want {
				t.Errorf("ExtractIdentifiedCigar(%q) = %q, want %q", tt.input, got.Name, tt.want)
			}
		})
	}
}

func TestResolveRequestedCigar(t *testing.T) {
	extractor := newTestExtractor()
	catalog := testCatalog()

	t.Run("resolves phrase to inventory", func(t *testing.T) {
		result, ok := extractor.ResolveRequestedCigar("Tell me about the Opus X", catalog)
		if !ok {
			t.Fatal("ResolveRequestedCigar() found nothing")
		}
		if result.Entry.ID != "arturo-fuente-opus-x" {
			t.Errorf("Entry.ID = %q, want arturo-fuente-opus-x", result.Entry.ID)
		}
	})

	t.Run("small talk resolves to nothing", func(t *testing.T) {
		if result, ok := extractor.ResolveRequestedCigar("thanks so much", catalog); ok {
			t.Errorf("ResolveRequestedCigar() = %q, want nothing", result.Entry.ID)
		}
	})

	t.Run("unknown cigar resolves to nothing", func(t *testing.T) {
		if _, ok := extractor.ResolveRequestedCigar("Do you have the Cohiba Behike?", catalog); ok {
			t.Error("ResolveRequestedCigar() matched a cigar we do not carry")
		}
	})
}

func TestResolveIdentifiedCigar(t *testing.T) {
	extractor := newTestExtractor()
	catalog := testCatalog()

	result, ok := extractor.ResolveIdentifiedCigar("I can see this is a Padron 1964 Anniversary!", catalog)
	if !ok {
		t.Fatal("ResolveIdentifiedCigar() found nothing")
	}
	if result.Entry.ID != "padron-1964-anniversary" {
		t.Errorf("Entry.ID = %q, want padron-1964-anniversary", result.Entry.ID)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("Nice shot! This is a Montecristo No. 2. Enjoy it")
	want := []string{"Nice shot", "This is a Montecristo No. 2", "Enjoy it"}
	if len(got) != len(want) {
		t.Fatalf("splitSentences() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}
