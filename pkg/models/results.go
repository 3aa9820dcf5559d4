package models

import (
	"encoding/json"
	"errors"
)

// Structured phase results. Storage keeps them as generic JSON documents
// (Output.OutputStructured); the orchestrator works with these typed forms.

// ReviewStatus is the reviewer's verdict.
type ReviewStatus string

const (
	ReviewApproved         ReviewStatus = "APPROVED"
	ReviewChangesRequested ReviewStatus = "CHANGES_REQUESTED"
)

// ArchitectureResult is the structured output of the architecture phase.
type ArchitectureResult struct {
	Overview           string               `json:"architecture_overview"`
	Components         []Component          `json:"components,omitempty"`
	ImplementationPlan []PlanStep           `json:"implementation_plan,omitempty"`
	Clarification      *ClarificationRequest `json:"clarification,omitempty"`
	Simulated          bool                 `json:"simulated,omitempty"`
}

type Component struct {
	Name           string `json:"name"`
	Responsibility string `json:"responsibility"`
}

type PlanStep struct {
	Step        int      `json:"step"`
	Description string   `json:"description"`
	Files       []string `json:"files,omitempty"`
}

// ClarificationRequest is produced when the architect cannot plan with
// confidence and needs answers before proceeding.
type ClarificationRequest struct {
	Questions  []string `json:"questions"`
	Summary    string   `json:"summary,omitempty"`
	Confidence float64  `json:"confidence"`
}

// DevelopmentResult is the structured output of the development phase.
type DevelopmentResult struct {
	Summary             string       `json:"implementation_summary"`
	TestingInstructions string       `json:"testing_instructions,omitempty"`
	Files               []FileChange `json:"files,omitempty"`

	// Git holds the reconciliation outcome. Commit failures land here
	// as a non-fatal sub-status rather than failing the phase.
	Git       *GitOutcome `json:"git,omitempty"`
	Simulated bool        `json:"simulated,omitempty"`
}

// GitOutcome summarizes the repository reconciliation around a development
// phase.
type GitOutcome struct {
	Branch       string   `json:"branch,omitempty"`
	BranchSource string   `json:"branch_source,omitempty"`
	Committed    bool     `json:"committed"`
	CommitHash   string   `json:"commit_hash,omitempty"`
	Reason       string   `json:"reason,omitempty"`
	Created      []string `json:"created,omitempty"`
	Modified     []string `json:"modified,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// ReviewResult is the structured output of the review phase.
type ReviewResult struct {
	Status          ReviewStatus  `json:"status"`
	Summary         ReviewCounts  `json:"summary"`
	CriticalIssues  []ReviewIssue `json:"critical_issues,omitempty"`
	MajorIssues     []ReviewIssue `json:"major_issues,omitempty"`
	MinorIssues     []ReviewIssue `json:"minor_issues,omitempty"`
	Recommendations []string      `json:"recommendations,omitempty"`
	Simulated       bool          `json:"simulated,omitempty"`
}

type ReviewCounts struct {
	CriticalCount int `json:"critical_count"`
	MajorCount    int `json:"major_count"`
	MinorCount    int `json:"minor_count"`
}

// ReviewIssue is one finding, optionally with a targeted fix the
// orchestrator can apply before the next development iteration.
type ReviewIssue struct {
	Issue        string `json:"issue"`
	File         string `json:"file,omitempty"`
	Line         int    `json:"line,omitempty"`
	SuggestedFix string `json:"suggested_fix,omitempty"`
}

var ErrNoStructuredResult = errors.New("output has no structured result")

// MarshalStructured encodes a typed result into the storage form.
func MarshalStructured(v any) (json.RawMessage, error) {
	return json.Marshal(v)
}

// ParseArchitectureResult decodes an architecture output's structured
// document.
func ParseArchitectureResult(raw json.RawMessage) (*ArchitectureResult, error) {
	if len(raw) == 0 {
		return nil, ErrNoStructuredResult
	}

	var r ArchitectureResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}

	return &r, nil
}

// ParseDevelopmentResult decodes a development output's structured document.
func ParseDevelopmentResult(raw json.RawMessage) (*DevelopmentResult, error) {
	if len(raw) == 0 {
		return nil, ErrNoStructuredResult
	}

	var r DevelopmentResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}

	return &r, nil
}

// ParseReviewResult decodes a review output's structured document.
func ParseReviewResult(raw json.RawMessage) (*ReviewResult, error) {
	if len(raw) == 0 {
		return nil, ErrNoStructuredResult
	}

	var r ReviewResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}

	return &r, nil
}
