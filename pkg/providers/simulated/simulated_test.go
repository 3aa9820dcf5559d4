package simulated

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrangers/ranger/pkg/models"
	"github.com/agentrangers/ranger/pkg/providers"
)

func TestCompleteIsDeterministicPerPhase(t *testing.T) {
	p := NewProvider(providers.Config{}, slog.Default())

	first, err := p.Complete(context.Background(), "you are a software architect", nil)
	require.NoError(t, err)

	second, err := p.Complete(context.Background(), "you are a software architect",
		[]providers.Message{{Role: providers.RoleUser, Content: "different task"}})
	require.NoError(t, err)

	assert.Equal(t, first.Content, second.Content)
	assert.True(t, first.Simulated)
}

func TestArchitectureOutputParses(t *testing.T) {
	p := NewProvider(providers.Config{}, slog.Default())

	resp, err := p.Complete(context.Background(), "you are a software architect", nil)
	require.NoError(t, err)

	result, err := models.ParseArchitectureResult(json.RawMessage(resp.Content))
	require.NoError(t, err)

	assert.True(t, result.Simulated)
	assert.True(t, strings.HasPrefix(result.Overview, Marker))
}

func TestReviewOutputApproves(t *testing.T) {
	p := NewProvider(providers.Config{}, slog.Default())

	resp, err := p.Complete(context.Background(), "you are a code reviewer", nil)
	require.NoError(t, err)

	result, err := models.ParseReviewResult(json.RawMessage(resp.Content))
	require.NoError(t, err)

	assert.Equal(t, models.ReviewApproved, result.Status)
	assert.True(t, result.Simulated)
}

func TestDevelopmentIsTheDefault(t *testing.T) {
	p := NewProvider(providers.Config{}, slog.Default())

	resp, err := p.Complete(context.Background(), "anything else", nil)
	require.NoError(t, err)

	result, err := models.ParseDevelopmentResult(json.RawMessage(resp.Content))
	require.NoError(t, err)

	assert.True(t, result.Simulated)
	assert.Contains(t, result.Summary, Marker)
}

func TestHealthAlwaysOK(t *testing.T) {
	p := NewProvider(providers.Config{}, slog.Default())

	assert.True(t, p.HealthCheck(context.Background()).OK)
}
