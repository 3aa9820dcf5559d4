// Package ollama implements the local model backend over the Ollama HTTP
// API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/agentrangers/ranger/pkg/providers"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.1"
	defaultTimeout = 10 * time.Minute
)

type Provider struct {
	config providers.Config
	client *http.Client
	logger *slog.Logger
}

func NewProvider(config providers.Config, logger *slog.Logger) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}

	if config.Model == "" {
		config.Model = defaultModel
	}

	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Provider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With("module", "providers.ollama"),
	}
}

func (p *Provider) Kind() providers.Kind {
	return providers.KindOllama
}

type chatRequest struct {
	Model    string              `json:"model"`
	Messages []providers.Message `json:"messages"`
	Stream   bool                `json:"stream"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error"`
}

func (p *Provider) Complete(ctx context.Context, system string, messages []providers.Message) (*providers.CompletionResponse, error) {
	chat := make([]providers.Message, 0, len(messages)+1)
	if system != "" {
		chat = append(chat, providers.Message{Role: providers.RoleSystem, Content: system})
	}

	chat = append(chat, messages...)

	body, err := json.Marshal(chatRequest{
		Model:    p.config.Model,
		Messages: chat,
		Stream:   false,
	})
	if err != nil {
		return nil, providers.NewProviderError(providers.KindOllama, "complete", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, providers.NewProviderError(providers.KindOllama, "complete", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, providers.NewProviderError(providers.KindOllama, "complete",
			fmt.Errorf("%w: %w", providers.ErrBackendUnavailable, err))
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.NewProviderError(providers.KindOllama, "complete", err)
	}

	var decoded chatResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, providers.NewProviderError(providers.KindOllama, "complete",
			fmt.Errorf("decode response: %w", err))
	}

	if resp.StatusCode != http.StatusOK || decoded.Error != "" {
		message := decoded.Error
		if message == "" {
			message = resp.Status
		}

		return nil, providers.NewProviderError(providers.KindOllama, "complete",
			fmt.Errorf("%w: %s", providers.ErrBackendUnavailable, message))
	}

	if decoded.Message.Content == "" {
		return nil, providers.NewProviderError(providers.KindOllama, "complete",
			providers.ErrEmptyResponse)
	}

	return &providers.CompletionResponse{
		Content:    decoded.Message.Content,
		Model:      p.config.Model,
		TokensUsed: decoded.PromptEvalCount + decoded.EvalCount,
	}, nil
}

func (p *Provider) Stream(ctx context.Context, system string, messages []providers.Message) (<-chan providers.StreamEvent, error) {
	out := make(chan providers.StreamEvent)

	go func() {
		defer close(out)

		response, err := p.Complete(ctx, system, messages)
		if err != nil {
			out <- providers.StreamEvent{Err: err}

			return
		}

		for _, chunk := range providers.ChunkContent(response.Content, 256) {
			select {
			case out <- providers.StreamEvent{Delta: chunk}:
			case <-ctx.Done():
				return
			}
		}

		out <- providers.StreamEvent{Done: true}
	}()

	return out, nil
}

// HealthCheck hits /api/tags and verifies the configured model is served.
func (p *Provider) HealthCheck(ctx context.Context) providers.Health {
	health := providers.Health{
		Details: map[string]bool{
			"reachable":     false,
			"model_present": false,
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return health
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return health
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return health
	}

	health.Details["reachable"] = true

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return health
	}

	for _, model := range tags.Models {
		// Tags carry a variant suffix, e.g. "llama3.1:latest".
		if model.Name == p.config.Model ||
			strings.SplitN(model.Name, ":", 2)[0] == p.config.Model {
			health.Details["model_present"] = true

			break
		}
	}

	health.OK = health.Details["model_present"]

	return health
}
