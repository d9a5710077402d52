package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/humidor/backend/internal/domain"
	"github.com/rs/zerolog"
)

const openAIBaseURL = "https://api.openai.com"

// OpenAIClient calls the OpenAI Chat Completions API
type OpenAIClient struct {
	cfg       Config
	transport *transport
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(cfg Config, logger zerolog.Logger) *OpenAIClient {
	cfg = cfg.withDefaults(openAIBaseURL)
	return &OpenAIClient{
		cfg:       cfg,
		transport: newTransport(cfg, logger.With().Str("provider", "openai").Logger()),
	}
}

// Name identifies the provider
func (c *OpenAIClient) Name() string {
	return "openai"
}

type openAIRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []openAIMessage `json:"messages"`
}

// openAIMessage content is either a string or a list of parts
type openAIMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type openAIPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate sends the request and returns the first choice's text.
// Images go inline as data URLs on the final user turn.
func (c *OpenAIClient) Generate(ctx context.Context, req domain.ModelRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}

	payload := openAIRequest{
		Model:     c.cfg.Model,
		MaxTokens: maxTokens,
		Messages:  make([]openAIMessage, 0, len(req.Messages)+1),
	}
	if req.System != "" {
		payload.Messages = append(payload.Messages, openAIMessage{Role: "system", Content: req.System})
	}

	last := lastUserTurn(req.Messages)
	for i, turn := range req.Messages {
		if i != last || len(req.Images) == 0 {
			payload.Messages = append(payload.Messages, openAIMessage{Role: turn.Role, Content: turn.Content})
			continue
		}
		parts := []openAIPart{{Type: "text", Text: turn.Content}}
		for _, img := range req.Images {
			parts = append(parts, openAIPart{
				Type:     "image_url",
				ImageURL: &openAIImageURL{URL: "data:" + img.MimeType + ";base64," + img.Data},
			})
		}
		payload.Messages = append(payload.Messages, openAIMessage{Role: turn.Role, Content: parts})
	}

	var resp openAIResponse
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	if err := c.transport.postJSON(ctx, strings.TrimRight(c.cfg.BaseURL, "/")+"/v1/chat/completions", headers, payload, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrModelRequestFailed)
	}
	if resp.Choices[0].FinishReason == "length" {
		c.transport.logger.Warn().Msg("response truncated at max_tokens")
	}
	return resp.Choices[0].Message.Content, nil
}
