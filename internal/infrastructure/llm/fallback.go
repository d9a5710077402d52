package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/humidor/backend/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var providerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "humidor",
	Name:      "model_provider_failures_total",
	Help:      "Failed model calls by provider.",
}, []string{"provider"})

// Provider is a named model client
type Provider interface {
	domain.ModelClient
	Name() string
}

// FallbackClient tries providers in order until one returns text
type FallbackClient struct {
	providers []Provider
	logger    zerolog.Logger
}

// NewFallbackClient creates a client over one or more providers
func NewFallbackClient(logger zerolog.Logger, providers ...Provider) *FallbackClient {
	return &FallbackClient{
		providers: providers,
		logger:    logger.With().Str("component", "llm").Logger(),
	}
}

// Generate returns the first non-empty reply. When every provider fails
// the error wraps domain.ErrModelUnavailable.
func (c *FallbackClient) Generate(ctx context.Context, req domain.ModelRequest) (string, error) {
	var errs []error
	for _, p := range c.providers {
		text, err := p.Generate(ctx, req)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err == nil {
			err = fmt.Errorf("%w: empty response", domain.ErrModelRequestFailed)
		}

		providerFailures.WithLabelValues(p.Name()).Inc()
		c.logger.Warn().Err(err).Str("provider", p.Name()).Msg("model provider failed")
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %w", domain.ErrModelUnavailable, errors.Join(errs...))
}

// NewProvider builds a provider from config
func NewProvider(cfg Config, logger zerolog.Logger) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		return NewAnthropicClient(cfg, logger), nil
	case "openai":
		return NewOpenAIClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}
