package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/honeypot/internal/config"
	"github.com/soyeahso/honeypot/internal/logging"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func TestOpenAIClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))

		var body openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama-test", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, RoleSystem, body.Messages[0].Role)
		assert.Equal(t, 65, body.MaxTokens)

		_, _ = w.Write([]byte(`{"model":"llama-test","choices":[{"message":{"role":"assistant","content":"Haan ji?"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":3}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(srv.URL+"/", "gsk-test", "llama-test")
	resp, err := c.Complete(context.Background(), CompletionRequest{
		System:    "persona",
		Messages:  []Message{{Role: RoleUser, Content: "hello"}},
		MaxTokens: 65,
	})
	require.NoError(t, err)
	assert.Equal(t, "Haan ji?", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 3, resp.Usage.OutputTokens)
}

func TestClaudeAPIClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		_, _ = w.Write([]byte(`{"model":"claude-test","content":[{"type":"text","text":"Which "},{"type":"text","text":"bank?"}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	resp, err := NewClaudeAPIClient(srv.URL, "sk-ant", "claude-test").
		Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "Which bank?", resp.Content)
}

func TestOllamaAPIClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var body ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.False(t, body.Stream)
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"Kaun?"},"done_reason":"stop","eval_count":2}`))
	}))
	defer srv.Close()

	resp, err := NewOllamaAPIClient(srv.URL, "llama3").
		Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "Kaun?", resp.Content)
	assert.Equal(t, 2, resp.Usage.OutputTokens)
}

func TestProviderErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(srv.URL, "k", "m").Complete(context.Background(), CompletionRequest{})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusTooManyRequests, pe.Code)
	assert.Equal(t, "openai", pe.Provider)
	assert.True(t, isRetryable(err))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", &ProviderError{Provider: "x", Code: 429}, true},
		{"503", &ProviderError{Provider: "x", Code: 503}, true},
		{"transport", &ProviderError{Provider: "x", Message: "request failed"}, true},
		{"400", &ProviderError{Provider: "x", Code: 400, Message: "bad request"}, false},
		{"timeout text", errors.New("context deadline: Timeout"), true},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestFailoverClient(t *testing.T) {
	reg := NewRegistry(silentLog())
	var calls []string
	reg.Register("openai", &MockClient{ProviderName: "openai", CompleteFunc: func(context.Context, CompletionRequest) (*CompletionResponse, error) {
		calls = append(calls, "openai")
		return nil, &ProviderError{Provider: "openai", Code: 503}
	}})
	reg.Register("ollama", &MockClient{ProviderName: "ollama", CompleteFunc: func(context.Context, CompletionRequest) (*CompletionResponse, error) {
		calls = append(calls, "ollama")
		return &CompletionResponse{Content: "from ollama"}, nil
	}})

	f := NewFailoverClient(reg, "openai", []string{"missing", "ollama"}, silentLog())
	resp, err := f.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from ollama", resp.Content)
	assert.Equal(t, []string{"openai", "ollama"}, calls)
	assert.Equal(t, "openai", f.Name())
}

func TestFailoverStopsOnNonRetryable(t *testing.T) {
	reg := NewRegistry(silentLog())
	reg.Register("openai", &MockClient{ProviderName: "openai", CompleteFunc: func(context.Context, CompletionRequest) (*CompletionResponse, error) {
		return nil, &ProviderError{Provider: "openai", Code: 400}
	}})
	reg.Register("mock", NewCannedClient())

	_, err := NewFailoverClient(reg, "openai", []string{"mock"}, silentLog()).
		Complete(context.Background(), CompletionRequest{})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 400, pe.Code)
}

func TestNewRegistryFromConfig(t *testing.T) {
	reg, err := NewRegistryFromConfig(config.GeneratorConfig{
		Provider:  "openai",
		APIKey:    "k",
		Model:     "m",
		Fallbacks: []string{"ollama", "mock", "openai"},
	}, silentLog())
	require.NoError(t, err)
	assert.Equal(t, []string{"mock", "ollama", "openai"}, reg.List())

	_, err = NewRegistryFromConfig(config.GeneratorConfig{Provider: "gemini"}, silentLog())
	assert.Error(t, err)
}

func TestCannedClientCycles(t *testing.T) {
	c := NewCannedClient()
	first, err := c.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	second, _ := c.Complete(context.Background(), CompletionRequest{})
	assert.NotEqual(t, first.Content, second.Content)
}
