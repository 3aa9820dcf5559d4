package orchestrator

import (
	"github.com/agentrangers/ranger/pkg/gitops"
	"github.com/agentrangers/ranger/pkg/models"
	"github.com/agentrangers/ranger/pkg/providers"
)

const summaryFallbackLimit = 500

// prepareWorkdir snapshots the repository and checks out the target branch
// before a development phase. Git failures are folded into the outcome, not
// surfaced as phase failures.
func (s *Service) prepareWorkdir(execution *models.Execution, workdir string) (*gitops.Snapshot, *models.GitOutcome) {
	outcome := &models.GitOutcome{}

	pre, err := s.git.Snapshot(workdir)
	if err != nil {
		outcome.Error = err.Error()

		s.logger.Warn("Could not snapshot workdir",
			"execution_id", execution.ID, "dir", workdir, "error", err)

		return nil, outcome
	}

	if !pre.IsRepo {
		return pre, outcome
	}

	explicit, _ := execution.Context["branch"].(string)
	hint, _ := execution.Context["branch_hint"].(string)

	plan, err := s.git.ResolveBranch(workdir, explicit, hint)
	if err != nil {
		outcome.Error = err.Error()

		return pre, outcome
	}

	outcome.Branch = plan.Name
	outcome.BranchSource = string(plan.Source)

	if err := s.git.Checkout(workdir, plan); err != nil {
		// Development proceeds on the current branch; the worktree is
		// unchanged by a failed checkout.
		outcome.Error = err.Error()

		s.logger.Warn("Branch checkout failed",
			"execution_id", execution.ID, "branch", plan.Name, "error", err)

		return pre, outcome
	}

	// Checkout may have changed the worktree; re-snapshot so the delta
	// baseline matches what the agent actually sees.
	if fresh, snapErr := s.git.Snapshot(workdir); snapErr == nil {
		pre = fresh
	}

	return pre, outcome
}

func (s *Service) finishArchitecture(output *models.Output, response *providers.CompletionResponse) (*phaseOutcome, error) {
	outcome := &phaseOutcome{}

	raw, ok := models.ExtractJSONDocument(response.Content)
	if !ok {
		// Malformed structured output degrades to raw text only.
		return outcome, nil
	}

	result, err := models.ParseArchitectureResult(raw)
	if err != nil {
		return outcome, nil
	}

	if response.Simulated {
		result.Simulated = true
	}

	structured, err := models.MarshalStructured(result)
	if err != nil {
		return nil, err
	}

	output.OutputStructured = structured
	outcome.clarification = result.Clarification

	return outcome, nil
}

func (s *Service) finishDevelopment(execution *models.Execution, output *models.Output, response *providers.CompletionResponse, workdir string, pre *gitops.Snapshot, gitOutcome *models.GitOutcome) (*phaseOutcome, error) {
	delta := s.reconcileWorkdir(execution, workdir, pre, gitOutcome)

	files := make([]models.FileChange, 0, len(delta.Created)+len(delta.Modified))
	for _, path := range delta.Created {
		files = append(files, models.FileChange{Path: path, Action: "create"})
	}

	for _, path := range delta.Modified {
		files = append(files, models.FileChange{Path: path, Action: "modify"})
	}

	output.FilesCreated = files

	result := &models.DevelopmentResult{}

	if raw, ok := models.ExtractJSONDocument(response.Content); ok {
		if parsed, err := models.ParseDevelopmentResult(raw); err == nil {
			result = parsed
		}
	}

	if result.Summary == "" {
		result.Summary = truncate(response.Content, summaryFallbackLimit)
	}

	if response.Simulated {
		result.Simulated = true
	}

	// The git delta is authoritative over agent self-reports.
	result.Files = files
	result.Git = gitOutcome

	structured, err := models.MarshalStructured(result)
	if err != nil {
		return nil, err
	}

	output.OutputStructured = structured

	return &phaseOutcome{}, nil
}

// reconcileWorkdir computes the post-phase delta and auto-commits it.
func (s *Service) reconcileWorkdir(execution *models.Execution, workdir string, pre *gitops.Snapshot, gitOutcome *models.GitOutcome) gitops.Delta {
	if pre == nil {
		return gitops.Delta{}
	}

	post, err := s.git.Snapshot(workdir)
	if err != nil {
		gitOutcome.Error = err.Error()

		return gitops.Delta{}
	}

	delta := gitops.ComputeDelta(pre, post)
	gitOutcome.Created = delta.Created
	gitOutcome.Modified = delta.Modified

	if !pre.IsRepo {
		gitOutcome.Reason = "not a git repository"

		return delta
	}

	commit, err := s.git.AutoCommit(workdir, delta, execution.TaskID, execution.ID)
	if err != nil {
		// Losing the commit must not discard the generated code.
		gitOutcome.Error = err.Error()

		s.logger.Warn("Auto-commit failed",
			"execution_id", execution.ID, "error", err)

		return delta
	}

	gitOutcome.Committed = commit.Committed
	gitOutcome.CommitHash = commit.CommitHash
	gitOutcome.Reason = commit.Reason

	return delta
}

func (s *Service) finishReview(output *models.Output, response *providers.CompletionResponse) (*phaseOutcome, error) {
	outcome := &phaseOutcome{}

	raw, ok := models.ExtractJSONDocument(response.Content)
	if !ok {
		return outcome, nil
	}

	result, err := models.ParseReviewResult(raw)
	if err != nil {
		return outcome, nil
	}

	if response.Simulated {
		result.Simulated = true
	}

	structured, err := models.MarshalStructured(result)
	if err != nil {
		return nil, err
	}

	output.OutputStructured = structured
	outcome.reviewStatus = result.Status

	return outcome, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	return s[:limit]
}
