// Package agentctx builds the input context for each agent phase from the
// execution's history. Building is a pure function with no side effects, so
// it is safe to call speculatively or for status display.
package agentctx

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentrangers/ranger/pkg/models"
)

// Build assembles the input context for running phase. history is the
// execution's outputs in any order; only completed outputs are folded in.
//
// Folding rules per phase:
//   - architecture: task metadata plus caller context only.
//   - development: latest architecture plan, and on iterations after the
//     first, the previous iteration's review as corrective feedback.
//   - review: the architecture plan, the current iteration's development
//     output, and the previous iteration's review for continuity.
func Build(task *models.Task, execution *models.Execution, phase models.Phase, history []*models.Output) map[string]any {
	ctx := map[string]any{
		"task_id":          task.ID,
		"board_id":         task.BoardID,
		"task_title":       task.Title,
		"task_description": task.Description,
		"workflow_type":    string(execution.WorkflowType),
		"iteration":        execution.Iteration,
	}

	for key, value := range execution.Context {
		ctx[key] = value
	}

	if len(execution.ClarificationAnswers) > 0 {
		ctx["clarification_answers"] = execution.ClarificationAnswers
	}

	switch phase {
	case models.PhaseArchitecture:
		// Nothing beyond the base context.
	case models.PhaseDevelopment:
		foldOutput(ctx, "architecture", latest(history, models.PhaseArchitecture, 0))

		if execution.Iteration > 1 {
			foldOutput(ctx, "review_feedback",
				latest(history, models.PhaseReview, execution.Iteration-1))
		}
	case models.PhaseReview:
		foldOutput(ctx, "architecture", latest(history, models.PhaseArchitecture, 0))
		foldOutput(ctx, "implementation",
			latest(history, models.PhaseDevelopment, execution.Iteration))
		foldOutput(ctx, "previous_review",
			latest(history, models.PhaseReview, execution.Iteration-1))
	}

	return ctx
}

// UserPrompt renders the context map into the user message handed to the
// backend. Keys are rendered in a stable order so identical contexts yield
// identical prompts.
func UserPrompt(ctx map[string]any) string {
	var b strings.Builder

	writeSection := func(title string, value any) {
		if value == nil {
			return
		}

		if s, ok := value.(string); ok && s == "" {
			return
		}

		fmt.Fprintf(&b, "## %s\n%v\n\n", title, value)
	}

	writeSection("Task", ctx["task_title"])
	writeSection("Description", ctx["task_description"])
	writeSection("Architecture Plan", ctx["architecture"])
	writeSection("Implementation", ctx["implementation"])
	writeSection("Review Feedback", ctx["review_feedback"])
	writeSection("Previous Review", ctx["previous_review"])
	writeSection("Clarification Answers", ctx["clarification_answers"])

	rendered := []string{
		"task_id", "board_id", "task_title", "task_description",
		"workflow_type", "iteration", "architecture", "implementation",
		"review_feedback", "previous_review", "clarification_answers",
	}

	extra := make(map[string]any, len(ctx))
	for key, value := range ctx {
		extra[key] = value
	}

	for _, key := range rendered {
		delete(extra, key)
	}

	if len(extra) > 0 {
		b.WriteString("## Additional Context\n")

		for _, key := range sortedKeys(extra) {
			fmt.Fprintf(&b, "%s: %v\n", key, extra[key])
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// latest returns the completed output for phase with the highest
// (iteration, created_at). A non-zero iteration restricts the match to that
// exact iteration.
func latest(history []*models.Output, phase models.Phase, iteration int) *models.Output {
	var best *models.Output

	for _, output := range history {
		if output.Phase != phase || output.Status != models.OutputCompleted {
			continue
		}

		if iteration > 0 && output.Iteration != iteration {
			continue
		}

		if best == nil ||
			output.Iteration > best.Iteration ||
			(output.Iteration == best.Iteration && output.CreatedAt.After(best.CreatedAt)) {
			best = output
		}
	}

	return best
}

func foldOutput(ctx map[string]any, key string, output *models.Output) {
	if output == nil {
		return
	}

	ctx[key] = output.OutputContent

	if len(output.OutputStructured) > 0 {
		ctx[key+"_structured"] = string(output.OutputStructured)
	}
}
