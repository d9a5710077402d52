// Package llm implements domain.ModelClient for hosted language/vision models.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/humidor/backend/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Defaults shared by every provider
const (
	DefaultTimeout           = 60 * time.Second
	DefaultMaxTokens         = 1024
	DefaultRequestsPerMinute = 60
	DefaultMaxAttempts       = 3
)

// maxErrorBody bounds how much of an error response is kept for logs
const maxErrorBody = 512

// Config configures one provider
type Config struct {
	Provider          string
	APIKey            string
	Model             string
	BaseURL           string
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerMinute int
	MaxAttempts       int
}

// withDefaults fills unset values
func (c Config) withDefaults(baseURL string) Config {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// transport posts JSON to a provider with rate limiting and bounded retry
type transport struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	maxAttempts int
	backoff     func(attempt int) time.Duration
	logger      zerolog.Logger
}

func newTransport(cfg Config, logger zerolog.Logger) *transport {
	perSecond := rate.Limit(float64(cfg.RequestsPerMinute) / 60)
	burst := cfg.RequestsPerMinute / 6
	if burst < 1 {
		burst = 1
	}

	return &transport{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: rate.NewLimiter(perSecond, burst),
		maxAttempts: cfg.MaxAttempts,
		backoff:     exponentialBackoff,
		logger:      logger,
	}
}

// exponentialBackoff returns the wait before retrying after the given attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// postJSON sends payload and decodes a 200 response into out.
// Network errors, 429 and 5xx are retried; any other status fails at once.
func (t *transport) postJSON(ctx context.Context, url string, headers map[string]string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= t.maxAttempts; attempt++ {
		if err := t.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %v", domain.ErrRateLimited, err)
		}

		retry, err := t.do(ctx, url, headers, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == t.maxAttempts {
			break
		}

		t.logger.Warn().Err(err).Int("attempt", attempt).Msg("model request failed, retrying")
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", domain.ErrModelRequestFailed, ctx.Err())
		case <-time.After(t.backoff(attempt)):
		}
	}
	return lastErr
}

// do performs one attempt and reports whether a failure is worth retrying
func (t *transport) do(ctx context.Context, url string, headers map[string]string, body []byte, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Humidor/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("%w: %v", domain.ErrModelRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return retry, fmt.Errorf("%w: status %d: %s", domain.ErrModelRequestFailed, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("%w: failed to decode response: %v", domain.ErrModelRequestFailed, err)
	}
	return false, nil
}
