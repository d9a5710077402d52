package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/humidor/backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		APIKey:            "test-key",
		Model:             "test-model",
		BaseURL:           baseURL,
		RequestsPerMinute: 6000,
	}
}

func fastRetry(t *transport) {
	t.backoff = func(int) time.Duration { return time.Millisecond }
}

func scanRequest() domain.ModelRequest {
	return domain.ModelRequest{
		System: "You are a tobacconist.",
		Messages: []domain.Turn{
			{Role: domain.RoleUser, Content: "earlier question"},
			{Role: domain.RoleAssistant, Content: "earlier answer"},
			{Role: domain.RoleUser, Content: "What cigar is this?"},
		},
		Images:    []domain.Image{{MimeType: "image/png", Data: "aGVsbG8="}},
		MaxTokens: 300,
	}
}

func TestExponentialBackoff(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, exponentialBackoff(1))
	assert.Equal(t, time.Second, exponentialBackoff(2))
	assert.Equal(t, 2*time.Second, exponentialBackoff(3))
}

func TestAnthropicClient_Generate(t *testing.T) {
	var got anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"message\":"},{"type":"text","text":"\"hi\"}"}],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(testConfig(server.URL), zerolog.Nop())
	text, err := client.Generate(context.Background(), scanRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"message":"hi"}`, text)

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 300, got.MaxTokens)
	assert.Equal(t, "You are a tobacconist.", got.System)
	require.Len(t, got.Messages, 3)

	assert.Len(t, got.Messages[0].Content, 1)
	last := got.Messages[2]
	require.Len(t, last.Content, 2)
	assert.Equal(t, "image", last.Content[0].Type)
	assert.Equal(t, "image/png", last.Content[0].Source.MediaType)
	assert.Equal(t, "aGVsbG8=", last.Content[0].Source.Data)
	assert.Equal(t, "text", last.Content[1].Type)
	assert.Equal(t, "What cigar is this?", last.Content[1].Text)
}

func TestAnthropicClient_DefaultMaxTokens(t *testing.T) {
	var got anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(testConfig(server.URL), zerolog.Nop())
	_, err := client.Generate(context.Background(), domain.ModelRequest{
		Messages: []domain.Turn{{Role: domain.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
}

func TestOpenAIClient_Generate(t *testing.T) {
	var raw map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Try the Padron."},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(testConfig(server.URL), zerolog.Nop())
	text, err := client.Generate(context.Background(), scanRequest())
	require.NoError(t, err)
	assert.Equal(t, "Try the Padron.", text)

	messages := raw["messages"].([]interface{})
	require.Len(t, messages, 4)

	system := messages[0].(map[string]interface{})
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, "You are a tobacconist.", system["content"])

	earlier := messages[1].(map[string]interface{})
	assert.Equal(t, "earlier question", earlier["content"])

	parts := messages[3].(map[string]interface{})["content"].([]interface{})
	require.Len(t, parts, 2)
	assert.Equal(t, "What cigar is this?", parts[0].(map[string]interface{})["text"])
	image := parts[1].(map[string]interface{})["image_url"].(map[string]interface{})
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", image["url"])
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(testConfig(server.URL), zerolog.Nop())
	_, err := client.Generate(context.Background(), scanRequest())
	assert.ErrorIs(t, err, domain.ErrModelRequestFailed)
}

func TestTransport_Retry(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		wantErr   bool
	}{
		{name: "server error then success", statuses: []int{500, 200}, wantCalls: 2},
		{name: "rate limited then success", statuses: []int{429, 429, 200}, wantCalls: 3},
		{name: "server errors exhaust attempts", statuses: []int{503, 503, 503, 503}, wantCalls: 3, wantErr: true},
		{name: "client error is not retried", statuses: []int{400, 200}, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				status := tt.statuses[n-1]
				w.WriteHeader(status)
				if status == http.StatusOK {
					_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
					return
				}
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer server.Close()

			client := NewAnthropicClient(testConfig(server.URL), zerolog.Nop())
			fastRetry(client.transport)

			text, err := client.Generate(context.Background(), scanRequest())
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrModelRequestFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", text)
		})
	}
}

func TestTransport_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewOpenAIClient(testConfig(server.URL), zerolog.Nop())
	client.transport.backoff = func(int) time.Duration { return time.Minute }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Generate(ctx, scanRequest())
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

type stubProvider struct {
	name  string
	text  string
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(ctx context.Context, req domain.ModelRequest) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestFallbackClient(t *testing.T) {
	boom := errors.New("boom")

	t.Run("primary answers", func(t *testing.T) {
		primary := &stubProvider{name: "a", text: "primary"}
		secondary := &stubProvider{name: "b", text: "secondary"}

		text, err := NewFallbackClient(zerolog.Nop(), primary, secondary).Generate(context.Background(), scanRequest())
		require.NoError(t, err)
		assert.Equal(t, "primary", text)
		assert.Equal(t, 0, secondary.calls)
	})

	t.Run("error falls through", func(t *testing.T) {
		primary := &stubProvider{name: "a", err: boom}
		secondary := &stubProvider{name: "b", text: "secondary"}

		text, err := NewFallbackClient(zerolog.Nop(), primary, secondary).Generate(context.Background(), scanRequest())
		require.NoError(t, err)
		assert.Equal(t, "secondary", text)
	})

	t.Run("blank text falls through", func(t *testing.T) {
		primary := &stubProvider{name: "a", text: "  \n"}
		secondary := &stubProvider{name: "b", text: "secondary"}

		text, err := NewFallbackClient(zerolog.Nop(), primary, secondary).Generate(context.Background(), scanRequest())
		require.NoError(t, err)
		assert.Equal(t, "secondary", text)
	})

	t.Run("all fail", func(t *testing.T) {
		primary := &stubProvider{name: "a", err: boom}
		secondary := &stubProvider{name: "b"}

		_, err := NewFallbackClient(zerolog.Nop(), primary, secondary).Generate(context.Background(), scanRequest())
		assert.ErrorIs(t, err, domain.ErrModelUnavailable)
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, domain.ErrModelRequestFailed)
	})

	t.Run("no providers", func(t *testing.T) {
		_, err := NewFallbackClient(zerolog.Nop()).Generate(context.Background(), scanRequest())
		assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	})
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{Provider: "Anthropic"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	p, err = NewProvider(Config{Provider: "openai"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = NewProvider(Config{Provider: "llama"}, zerolog.Nop())
	assert.Error(t, err)
}
