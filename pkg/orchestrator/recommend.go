package orchestrator

import (
	"strings"

	"github.com/agentrangers/ranger/pkg/models"
)

// Keyword tables for workflow recommendation. Scores are additive; the
// highest-scoring workflow wins, with quick_development as the tie-break
// default.
var (
	architectureSignals = []string{
		"design", "architect", "refactor", "migrate", "restructure",
		"new service", "new feature", "integration", "schema",
	}
	quickSignals = []string{
		"fix", "typo", "bump", "rename", "tweak", "adjust", "small",
		"minor", "copy change",
	}
	reviewSignals = []string{
		"review", "audit", "check the", "look over",
	}
	planSignals = []string{
		"plan only", "proposal", "rfc", "spike", "investigate",
	}
)

// longDescriptionThreshold is where a task starts looking complex enough
// for a full architecture pass.
const longDescriptionThreshold = 400

// RecommendWorkflow picks a workflow type from the task text with a simple
// keyword scorer. It is a hint for callers, never enforced.
func RecommendWorkflow(title, description string) models.WorkflowType {
	text := strings.ToLower(title + " " + description)

	scores := map[models.WorkflowType]int{
		models.WorkflowDevelopment:      score(text, architectureSignals) * 2,
		models.WorkflowQuickDevelopment: score(text, quickSignals),
		models.WorkflowReviewOnly:       score(text, reviewSignals) * 2,
		models.WorkflowArchitectureOnly: score(text, planSignals) * 3,
	}

	if len(description) > longDescriptionThreshold {
		scores[models.WorkflowDevelopment]++
	}

	best := models.WorkflowQuickDevelopment
	bestScore := scores[models.WorkflowQuickDevelopment]

	for _, candidate := range []models.WorkflowType{
		models.WorkflowDevelopment,
		models.WorkflowReviewOnly,
		models.WorkflowArchitectureOnly,
	} {
		if scores[candidate] > bestScore {
			best = candidate
			bestScore = scores[candidate]
		}
	}

	return best
}

func score(text string, signals []string) int {
	total := 0

	for _, signal := range signals {
		if strings.Contains(text, signal) {
			total++
		}
	}

	return total
}
