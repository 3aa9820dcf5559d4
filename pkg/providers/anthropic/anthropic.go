// Package anthropic implements the metered HTTP API backend against the
// /v1/messages endpoint.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/agentrangers/ranger/pkg/providers"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultModel   = "claude-sonnet-4-20250514"
	defaultTimeout = 5 * time.Minute
	apiVersion     = "2023-06-01"
	maxTokens      = 8192
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
		logger: logger.With("module", "providers.anthropic"),
	}
}

func (p *Provider) Kind() providers.Kind {
	return providers.KindAnthropic
}

type messagesRequest struct {
	Model     string              `json:"model"`
	MaxTokens int                 `json:"max_tokens"`
	System    string              `json:"system,omitempty"`
	Messages  []providers.Message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) Complete(ctx context.Context, system string, messages []providers.Message) (*providers.CompletionResponse, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     p.config.Model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
	})
	if err != nil {
		return nil, providers.NewProviderError(providers.KindAnthropic, "complete", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, providers.NewProviderError(providers.KindAnthropic, "complete", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.config.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, providers.NewProviderError(providers.KindAnthropic, "complete",
			fmt.Errorf("%w: %w", providers.ErrBackendUnavailable, err))
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.NewProviderError(providers.KindAnthropic, "complete", err)
	}

	var decoded messagesResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, providers.NewProviderError(providers.KindAnthropic, "complete",
			fmt.Errorf("decode response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		message := resp.Status
		if decoded.Error != nil {
			message = decoded.Error.Message
		}

		return nil, providers.NewProviderError(providers.KindAnthropic, "complete",
			fmt.Errorf("%w: %s", providers.ErrBackendUnavailable, message))
	}

	var content string

	for _, block := range decoded.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	if content == "" {
		return nil, providers.NewProviderError(providers.KindAnthropic, "complete",
			providers.ErrEmptyResponse)
	}

	return &providers.CompletionResponse{
		Content:    content,
		Model:      p.config.Model,
		TokensUsed: decoded.Usage.InputTokens + decoded.Usage.OutputTokens,
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

// HealthCheck does not spend tokens: it only verifies an API key is
// configured.
func (p *Provider) HealthCheck(_ context.Context) providers.Health {
	keyPresent := p.config.APIKey != ""

	return providers.Health{
		OK: keyPresent,
		Details: map[string]bool{
			"api_key_present": keyPresent,
		},
	}
}
