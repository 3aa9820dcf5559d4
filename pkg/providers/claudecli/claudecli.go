// Package claudecli implements the subscription CLI backend. It shells out
// to the claude binary under a pseudo-terminal and decodes its streaming
// JSON output.
package claudecli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentrangers/ranger/pkg/providers"
	"github.com/agentrangers/ranger/pkg/ptyexec"
)

const (
	defaultBinary  = "claude"
	defaultTimeout = 20 * time.Minute
)

type Provider struct {
	config providers.Config
	driver ptyexec.Driver
	logger *slog.Logger
}

func NewProvider(config providers.Config, driver ptyexec.Driver, logger *slog.Logger) *Provider {
	if config.BinaryPath == "" {
		config.BinaryPath = defaultBinary
	}

	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Provider{
		config: config,
		driver: driver,
		logger: logger.With("module", "providers.claudecli"),
	}
}

func (p *Provider) Kind() providers.Kind {
	return providers.KindClaudeCLI
}

func (p *Provider) Complete(ctx context.Context, system string, messages []providers.Message) (*providers.CompletionResponse, error) {
	prompt := providers.BuildPrompt(system, messages)

	args := []string{
		"--dangerously-skip-permissions",
		"--print",
		"--output-format", "stream-json",
		"--verbose",
	}

	if p.config.Model != "" {
		args = append(args, "--model", p.config.Model)
	}

	if len(p.config.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(p.config.AllowedTools, ","))
	}

	args = append(args, prompt)

	result, err := p.driver.Run(ctx, ptyexec.Options{
		Command:     p.config.BinaryPath,
		Args:        args,
		Timeout:     p.config.Timeout,
		OnMilestone: providers.MilestonesFrom(ctx),
	})
	if err != nil {
		// A timeout is a phase failure, not an unavailable backend; it
		// must not trigger the simulated fallback.
		if errors.Is(err, ptyexec.ErrTimeout) {
			return nil, providers.NewProviderError(providers.KindClaudeCLI, "complete", err)
		}

		return nil, providers.NewProviderError(providers.KindClaudeCLI, "complete",
			fmt.Errorf("%w: %w", providers.ErrBackendUnavailable, err))
	}

	if result.Content == "" && result.Transcript == "" {
		return nil, providers.NewProviderError(providers.KindClaudeCLI, "complete",
			providers.ErrEmptyResponse)
	}

	content := result.Content
	if content == "" {
		content = result.Transcript
	}

	return &providers.CompletionResponse{
		Content:    content,
		Model:      p.config.Model,
		TokensUsed: tokensFromRecords(result.Records),
	}, nil
}

// Stream runs the completion to the end and emits the content in chunks.
// The CLI's own stream is consumed internally for milestone extraction.
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

// HealthCheck reports binary presence and credential presence as separate
// details so operators can tell which one is missing.
func (p *Provider) HealthCheck(_ context.Context) providers.Health {
	binaryPresent := true

	if _, err := exec.LookPath(p.config.BinaryPath); err != nil {
		binaryPresent = false
	}

	credentialsPresent := hasOAuthCredentials()

	return providers.Health{
		OK: binaryPresent && credentialsPresent,
		Details: map[string]bool{
			"binary_present":      binaryPresent,
			"credentials_present": credentialsPresent,
		},
	}
}

func hasOAuthCredentials() bool {
	configDir := os.Getenv("CLAUDE_CONFIG_DIR")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return false
		}

		configDir = filepath.Join(home, ".claude")
	}

	data, err := os.ReadFile(filepath.Join(configDir, ".credentials.json"))
	if err != nil {
		return false
	}

	var credentials struct {
		ClaudeAiOauth struct {
			AccessToken string `json:"accessToken"`
		} `json:"claudeAiOauth"`
	}

	if err := json.Unmarshal(data, &credentials); err != nil {
		return false
	}

	return credentials.ClaudeAiOauth.AccessToken != ""
}

func tokensFromRecords(records []ptyexec.Record) int {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Type != ptyexec.RecordResult {
			continue
		}

		var envelope struct {
			Usage struct {
				InputTokens  int `json:"input_tokens"`
				OutputTokens int `json:"output_tokens"`
			} `json:"usage"`
		}

		if err := json.Unmarshal(records[i].Raw, &envelope); err != nil {
			continue
		}

		return envelope.Usage.InputTokens + envelope.Usage.OutputTokens
	}

	return 0
}
