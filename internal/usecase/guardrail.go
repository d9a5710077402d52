package usecase

import "github.com/humidor/backend/internal/domain"

// Image identification confidence defaults
const (
	// DefaultConfidenceThreshold is the lowest confidence at which an identification is shown.
	// Older behavior used 60; both are tunable through GuardrailConfig.
	DefaultConfidenceThreshold = 75

	// DefaultAssumedConfidence stands in when the model reports no confidence
	DefaultAssumedConfidence = 50

	// DefaultBackfillConfidence is the confidence given to an identification recovered
	// from prose and confirmed by a catalog match
	DefaultBackfillConfidence = 80
)

// GuardrailState is the state of one image identification
type GuardrailState string

// Guardrail states
const (
	StateAwaitingResult     GuardrailState = "AWAITING_RESULT"
	StateConfirmed          GuardrailState = "CONFIRMED"
	StateNeedsClarification GuardrailState = "NEEDS_CLARIFICATION"
)

// GuardrailConfig holds the confidence thresholds for image identification
type GuardrailConfig struct {
	ConfidenceThreshold int
	AssumedConfidence   int
	BackfillConfidence  int
}

// GuardrailInput is the evidence available once the model has answered
type GuardrailInput struct {
	Confidence *int                  // as reported by the model, nil when absent
	Cigars     []domain.DisplayCigar // already resolved and filtered to inventory
	Backfilled bool                  // Cigars came from a prose match, not the model's list
}

// GuardrailOutcome is the final state of an identification
type GuardrailOutcome struct {
	State      GuardrailState
	Confidence int
	Cigars     []domain.DisplayCigar
}

// ConfidenceGuardrail decides whether an image identification may be shown.
// It keeps no state between calls: each evaluation starts at AWAITING_RESULT.
type ConfidenceGuardrail struct {
	threshold          int
	assumedConfidence  int
	backfillConfidence int
}

// NewConfidenceGuardrail creates a guardrail, applying defaults for unset values
func NewConfidenceGuardrail(config GuardrailConfig) *ConfidenceGuardrail {
	threshold := config.ConfidenceThreshold
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}

	assumed := config.AssumedConfidence
	if assumed <= 0 {
		assumed = DefaultAssumedConfidence
	}

	backfill := config.BackfillConfidence
	if backfill <= 0 {
		backfill = DefaultBackfillConfidence
	}
	// A backfill must always be enough to confirm
	if backfill < threshold {
		backfill = threshold
	}

	return &ConfidenceGuardrail{
		threshold:          threshold,
		assumedConfidence:  assumed,
		backfillConfidence: backfill,
	}
}

// Threshold returns the confidence needed to confirm
func (g *ConfidenceGuardrail) Threshold() int {
	return g.threshold
}

// Evaluate moves an identification from AWAITING_RESULT to CONFIRMED or
// NEEDS_CLARIFICATION. A clarification never carries cigars.
func (g *ConfidenceGuardrail) Evaluate(input GuardrailInput) GuardrailOutcome {
	outcome := GuardrailOutcome{State: StateAwaitingResult, Confidence: g.assumedConfidence}
	if input.Confidence != nil {
		outcome.Confidence = clampConfidence(*input.Confidence)
	}

	if input.Backfilled && len(input.Cigars) > 0 && outcome.Confidence < g.threshold {
		outcome.Confidence = g.backfillConfidence
	}

	if len(input.Cigars) > 0 && outcome.Confidence >= g.threshold {
		outcome.State = StateConfirmed
		outcome.Cigars = input.Cigars
	} else {
		outcome.State = StateNeedsClarification
		outcome.Cigars = []domain.DisplayCigar{}
	}

	guardrailStates.WithLabelValues(string(outcome.State)).Inc()
	return outcome
}
