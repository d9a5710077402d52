package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/humidor/backend/internal/domain"
	"github.com/rs/zerolog"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// AnthropicClient calls the Anthropic Messages API
type AnthropicClient struct {
	cfg       Config
	transport *transport
}

// NewAnthropicClient creates a new Anthropic client
func NewAnthropicClient(cfg Config, logger zerolog.Logger) *AnthropicClient {
	cfg = cfg.withDefaults(anthropicBaseURL)
	return &AnthropicClient{
		cfg:       cfg,
		transport: newTransport(cfg, logger.With().Str("provider", "anthropic").Logger()),
	}
}

// Name identifies the provider
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Generate sends the request and returns the concatenated text blocks.
// Images are attached to the final user turn, ahead of its text.
func (c *AnthropicClient) Generate(ctx context.Context, req domain.ModelRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}

	payload := anthropicRequest{
		Model:     c.cfg.Model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  make([]anthropicMessage, 0, len(req.Messages)),
	}

	last := lastUserTurn(req.Messages)
	for i, turn := range req.Messages {
		msg := anthropicMessage{Role: turn.Role}
		if i == last {
			for _, img := range req.Images {
				msg.Content = append(msg.Content, anthropicContent{
					Type:   "image",
					Source: &anthropicSource{Type: "base64", MediaType: img.MimeType, Data: img.Data},
				})
			}
		}
		msg.Content = append(msg.Content, anthropicContent{Type: "text", Text: turn.Content})
		payload.Messages = append(payload.Messages, msg)
	}

	var resp anthropicResponse
	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": anthropicVersion,
	}
	if err := c.transport.postJSON(ctx, strings.TrimRight(c.cfg.BaseURL, "/")+"/v1/messages", headers, payload, &resp); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if resp.StopReason == "max_tokens" {
		c.transport.logger.Warn().Msg("response truncated at max_tokens")
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrModelRequestFailed)
	}
	return text.String(), nil
}

// lastUserTurn returns the index of the final user message, or -1
func lastUserTurn(turns []domain.Turn) int {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == domain.RoleUser {
			return i
		}
	}
	return -1
}
