package ollama

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrangers/ranger/pkg/providers"
)

func TestCompleteParsesMessageAndTokenCounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, false, req["stream"])

		messages, ok := req["messages"].([]any)
		require.True(t, ok)
		first, ok := messages[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "system", first["role"])

		_, _ = w.Write([]byte(`{
			"message": {"role": "assistant", "content": "local answer"},
			"prompt_eval_count": 20,
			"eval_count": 7
		}`))
	}))
	defer server.Close()

	p := NewProvider(providers.Config{BaseURL: server.URL, Model: "llama3.1"}, slog.Default())

	resp, err := p.Complete(context.Background(), "system prompt",
		[]providers.Message{{Role: providers.RoleUser, Content: "hello"}})

	require.NoError(t, err)
	assert.Equal(t, "local answer", resp.Content)
	assert.Equal(t, 27, resp.TokensUsed)
}

func TestCompleteServerDownIsBackendUnavailable(t *testing.T) {
	p := NewProvider(providers.Config{BaseURL: "http://127.0.0.1:1", Model: "m"}, slog.Default())

	_, err := p.Complete(context.Background(), "", nil)

	require.ErrorIs(t, err, providers.ErrBackendUnavailable)
}

func TestHealthCheckVerifiesModelInTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models": [{"name": "llama3.1:latest"}, {"name": "mistral:7b"}]}`))
	}))
	defer server.Close()

	present := NewProvider(providers.Config{BaseURL: server.URL, Model: "llama3.1"}, slog.Default())
	absent := NewProvider(providers.Config{BaseURL: server.URL, Model: "qwen"}, slog.Default())

	health := present.HealthCheck(context.Background())
	assert.True(t, health.OK)
	assert.True(t, health.Details["reachable"])

	health = absent.HealthCheck(context.Background())
	assert.False(t, health.OK)
	assert.True(t, health.Details["reachable"])
	assert.False(t, health.Details["model_present"])
}

func TestHealthCheckUnreachable(t *testing.T) {
	p := NewProvider(providers.Config{BaseURL: "http://127.0.0.1:1", Model: "m"}, slog.Default())

	health := p.HealthCheck(context.Background())

	assert.False(t, health.OK)
	assert.False(t, health.Details["reachable"])
}
