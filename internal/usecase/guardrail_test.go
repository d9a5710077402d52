package usecase

import (
	"testing"

	"github.com/humidor/backend/internal/domain"
)

func intPtr(v int) *int { return &v }

func TestNewConfidenceGuardrail(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		g := NewConfidenceGuardrail(GuardrailConfig{})
		if g.Threshold() != DefaultConfidenceThreshold {
			t.Errorf("Threshold() = %d, want %d", g.Threshold(), DefaultConfidenceThreshold)
		}
		if g.assumedConfidence != DefaultAssumedConfidence {
			t.Errorf("assumedConfidence = %d, want %d", g.assumedConfidence, DefaultAssumedConfidence)
		}
		if g.backfillConfidence != DefaultBackfillConfidence {
			t.Errorf("backfillConfidence = %d, want %d", g.backfillConfidence, DefaultBackfillConfidence)
		}
	})

	t.Run("backfill never below threshold", func(t *testing.T) {
		g := NewConfidenceGuardrail(GuardrailConfig{ConfidenceThreshold: 90, BackfillConfidence: 80})
		if g.backfillConfidence != 90 {
			t.Errorf("backfillConfidence = %d, want 90", g.backfillConfidence)
		}
	})
}

func TestGuardrailEvaluate(t *testing.T) {
	padron := domain.DisplayCigar{ID: "padron-1964-anniversary", Name: "1964 Anniversary", Brand: "Padron", ImageURL: "https://img.example.com/padron-1964.jpg"}
	cigars := []domain.DisplayCigar{padron}

	tests := []struct {
		name           string
		config         GuardrailConfig
		input          GuardrailInput
		wantState      GuardrailState
		wantConfidence int
		wantCigars     int
	}{
		{
			name:           "confident identification is confirmed",
			input:          GuardrailInput{Confidence: intPtr(82), Cigars: cigars},
			wantState:      StateConfirmed,
			wantConfidence: 82,
			wantCigars:     1,
		},
		{
			name:           "exactly at threshold is confirmed",
			input:          GuardrailInput{Confidence: intPtr(75), Cigars: cigars},
			wantState:      StateConfirmed,
			wantConfidence: 75,
			wantCigars:     1,
		},
		{
			name:           "below threshold needs clarification",
			input:          GuardrailInput{Confidence: intPtr(74), Cigars: cigars},
			wantState:      StateNeedsClarification,
			wantConfidence: 74,
		},
		{
			name:           "missing confidence is assumed low",
			input:          GuardrailInput{Cigars: cigars},
			wantState:      StateNeedsClarification,
			wantConfidence: DefaultAssumedConfidence,
		},
		{
			name:           "confident but nothing in inventory",
			input:          GuardrailInput{Confidence: intPtr(95)},
			wantState:      StateNeedsClarification,
			wantConfidence: 95,
		},
		{
			name:           "prose backfill raises confidence",
			input:          GuardrailInput{Confidence: intPtr(40), Cigars: cigars, Backfilled: true},
			wantState:      StateConfirmed,
			wantConfidence: DefaultBackfillConfidence,
			wantCigars:     1,
		},
		{
			name:           "prose backfill keeps a higher reported confidence",
			input:          GuardrailInput{Confidence: intPtr(93), Cigars: cigars, Backfilled: true},
			wantState:      StateConfirmed,
			wantConfidence: 93,
			wantCigars:     1,
		},
		{
			name:           "backfill without cigars is not confirmed",
			input:          GuardrailInput{Backfilled: true},
			wantState:      StateNeedsClarification,
			wantConfidence: DefaultAssumedConfidence,
		},
		{
			name:           "out of range confidence is clamped",
			input:          GuardrailInput{Confidence: intPtr(140), Cigars: cigars},
			wantState:      StateConfirmed,
			wantConfidence: 100,
			wantCigars:     1,
		},
		{
			name:           "legacy threshold",
			config:         GuardrailConfig{ConfidenceThreshold: 60},
			input:          GuardrailInput{Confidence: intPtr(65), Cigars: cigars},
			wantState:      StateConfirmed,
			wantConfidence: 65,
			wantCigars:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewConfidenceGuardrail(tt.config).Evaluate(tt.input)
			if got.State != tt.wantState {
				t.Errorf("State = %q, want %q", got.State, tt.wantState)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("Confidence = %d, want %d", got.Confidence, tt.wantConfidence)
			}
			if len(got.Cigars) != tt.wantCigars {
				t.Errorf("len(Cigars) = %d, want %d", len(got.Cigars), tt.wantCigars)
			}
			if got.State == StateNeedsClarification && got.Cigars == nil {
				t.Error("Cigars = nil, want empty slice")
			}
		})
	}
}
