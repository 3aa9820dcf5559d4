// Package providers defines the model backend abstraction used by the
// workflow engine to run agent phases against different AI backends.
package providers

import (
	"context"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse is the normalized result of a completion call,
// regardless of which backend produced it.
type CompletionResponse struct {
	Content    string `json:"content"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
	Simulated  bool   `json:"simulated,omitempty"`
}

// StreamEvent is one chunk of a streamed completion. The stream is finite:
// after Done or Err the channel is closed and must not be read again.
type StreamEvent struct {
	Delta string
	Done  bool
	Err   error
}

// Health reports backend availability. Details carries per-check results so
// callers can distinguish, for example, a missing binary from missing
// credentials.
type Health struct {
	OK      bool            `json:"ok"`
	Details map[string]bool `json:"details,omitempty"`
}

type Provider interface {
	// Complete runs a blocking completion and returns the full response.
	Complete(ctx context.Context, system string, messages []Message) (*CompletionResponse, error)
	// Stream runs a completion and emits chunks on the returned channel.
	// The channel is closed when the completion finishes or fails.
	Stream(ctx context.Context, system string, messages []Message) (<-chan StreamEvent, error)
	// HealthCheck probes the backend without running a completion.
	HealthCheck(ctx context.Context) Health
	Kind() Kind
}

// Config holds the backend settings resolved for an agent role.
type Config struct {
	Kind         Kind          `json:"kind"          koanf:"kind"`
	Model        string        `json:"model"         koanf:"model"`
	APIKey       string        `json:"api_key"       koanf:"api_key"`
	BaseURL      string        `json:"base_url"      koanf:"base_url"`
	BinaryPath   string        `json:"binary_path"   koanf:"binary_path"`
	Timeout      time.Duration `json:"timeout"       koanf:"timeout"`
	AllowedTools []string      `json:"allowed_tools" koanf:"allowed_tools"`
}
