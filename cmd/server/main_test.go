package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/humidor/backend/config"
	"github.com/humidor/backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssistantConfig(t *testing.T) {
	cfg := &config.Config{
		LLM: config.LLMConfig{Primary: config.ProviderConfig{MaxTokens: 2048}},
		Matching: config.MatchingConfig{
			AcceptanceFloor:     30,
			ConfidenceThreshold: 70,
			MaxRecommendations:  2,
			StrictChatInventory: true,
		},
		Catalog: config.CatalogConfig{ProductURLBase: "https://shop.test/cigars"},
	}

	got := assistantConfig(cfg)
	assert.Zero(t, got.MaxTokens)
	assert.Equal(t, 30, got.AcceptanceFloor)
	assert.Equal(t, 70, got.ConfidenceThreshold)
	assert.Equal(t, "https://shop.test/cigars", got.ProductURLBase)
	assert.True(t, got.StrictChatInventory)
}

func TestNewModelClient_ProviderMaxTokens(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer primary.Close()

	var body map[string]interface{}
	secondary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"from the secondary"}}]}`))
	}))
	defer secondary.Close()

	cfg := &config.Config{LLM: config.LLMConfig{
		Primary: config.ProviderConfig{
			Provider: "anthropic", APIKey: "a", Model: "claude", BaseURL: primary.URL, MaxTokens: 2048,
		},
		Secondary: config.ProviderConfig{
			Provider: "openai", APIKey: "b", Model: "gpt", BaseURL: secondary.URL, MaxTokens: 512,
		},
		Timeout:           5 * time.Second,
		RequestsPerMinute: 6000,
	}}

	client, err := newModelClient(cfg, zerolog.Nop())
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), domain.ModelRequest{
		Messages:  []domain.Turn{{Role: domain.RoleUser, Content: "hello"}},
		MaxTokens: assistantConfig(cfg).MaxTokens,
	})
	require.NoError(t, err)
	assert.Equal(t, "from the secondary", text)
	assert.EqualValues(t, 512, body["max_tokens"])
}
