package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "humidor",
		Name:      "catalog_match_total",
		Help:      "Catalog resolutions by outcome (hit, miss).",
	}, []string{"outcome"})

	parseModes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "humidor",
		Name:      "model_response_parse_total",
		Help:      "Model responses by parse mode (strict, recovered, prose, empty).",
	}, []string{"mode"})

	guardrailStates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "humidor",
		Name:      "scan_guardrail_total",
		Help:      "Image identifications by final guardrail state.",
	}, []string{"state"})

	droppedCigars = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "humidor",
		Name:      "dropped_cigars_total",
		Help:      "Cigars removed from responses by reason (not_in_inventory, previously_shown, over_limit).",
	}, []string{"reason"})

	modelFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "humidor",
		Name:      "model_unavailable_total",
		Help:      "Requests where every model provider failed.",
	})
)
