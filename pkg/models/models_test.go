package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionStatusTerminal(t *testing.T) {
	terminal := []ExecutionStatus{ExecutionCompleted, ExecutionFailed, ExecutionCancelled}
	for _, status := range terminal {
		assert.True(t, status.Terminal(), "expected %s to be terminal", status)
	}

	open := []ExecutionStatus{ExecutionPending, ExecutionRunning, ExecutionAwaitingClarification}
	for _, status := range open {
		assert.False(t, status.Terminal(), "expected %s to be non-terminal", status)
	}
}

func TestWorkflowPhases(t *testing.T) {
	tests := []struct {
		workflowType WorkflowType
		expected     []Phase
	}{
		{WorkflowDevelopment, []Phase{PhaseArchitecture, PhaseDevelopment, PhaseReview}},
		{WorkflowQuickDevelopment, []Phase{PhaseDevelopment, PhaseReview}},
		{WorkflowArchitectureOnly, []Phase{PhaseArchitecture}},
		{WorkflowReviewOnly, []Phase{PhaseReview}},
		{WorkflowType("something_else"), []Phase{PhaseDevelopment, PhaseReview}},
	}

	for _, tt := range tests {
		t.Run(string(tt.workflowType), func(t *testing.T) {
			assert.Equal(t, tt.expected, WorkflowPhases(tt.workflowType))
		})
	}
}

func TestAgentForPhase(t *testing.T) {
	assert.Equal(t, "software-architect", AgentForPhase(PhaseArchitecture))
	assert.Equal(t, "software-developer", AgentForPhase(PhaseDevelopment))
	assert.Equal(t, "code-reviewer", AgentForPhase(PhaseReview))
	assert.Equal(t, "software-developer", AgentForPhase(Phase("unknown")))
}

func TestExtractJSONDocument(t *testing.T) {
	t.Run("bare object", func(t *testing.T) {
		raw, ok := ExtractJSONDocument(`{"status":"APPROVED"}`)
		require.True(t, ok)
		assert.JSONEq(t, `{"status":"APPROVED"}`, string(raw))
	})

	t.Run("wrapped in prose and fences", func(t *testing.T) {
		content := "Here is my review:\n```json\n{\"status\":\"APPROVED\",\"summary\":{\"critical_count\":0,\"major_count\":0,\"minor_count\":1}}\n```\nDone."
		raw, ok := ExtractJSONDocument(content)
		require.True(t, ok)

		result, err := ParseReviewResult(raw)
		require.NoError(t, err)
		assert.Equal(t, ReviewApproved, result.Status)
		assert.Equal(t, 1, result.Summary.MinorCount)
	})

	t.Run("no object", func(t *testing.T) {
		_, ok := ExtractJSONDocument("plain prose without any document")
		assert.False(t, ok)
	})

	t.Run("unbalanced braces", func(t *testing.T) {
		_, ok := ExtractJSONDocument(`{"status":"APPROVED"`)
		assert.False(t, ok)
	})

	t.Run("invalid json between braces", func(t *testing.T) {
		_, ok := ExtractJSONDocument(`{not valid}`)
		assert.False(t, ok)
	})
}

func TestParseResultsRequireDocument(t *testing.T) {
	_, err := ParseArchitectureResult(nil)
	assert.ErrorIs(t, err, ErrNoStructuredResult)

	_, err = ParseDevelopmentResult(nil)
	assert.ErrorIs(t, err, ErrNoStructuredResult)

	_, err = ParseReviewResult(nil)
	assert.ErrorIs(t, err, ErrNoStructuredResult)
}

func TestDevelopmentResultRoundTrip(t *testing.T) {
	result := &DevelopmentResult{
		Summary: "added retry handling",
		Files: []FileChange{
			{Path: "pkg/client/retry.go", Action: "create"},
			{Path: "pkg/client/client.go", Action: "modify"},
		},
		Git: &GitOutcome{
			Branch:     "feature/retries",
			Committed:  true,
			CommitHash: "abc123",
			Created:    []string{"pkg/client/retry.go"},
		},
	}

	raw, err := MarshalStructured(result)
	require.NoError(t, err)

	parsed, err := ParseDevelopmentResult(raw)
	require.NoError(t, err)
	assert.Equal(t, result, parsed)
}
