// Package simulated implements the deterministic fallback backend. It is
// used when no real backend is available so the pipeline still produces
// well-formed, clearly marked output.
package simulated

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/agentrangers/ranger/pkg/models"
	"github.com/agentrangers/ranger/pkg/providers"
)

// Marker prefixes every simulated summary so simulated content is obvious
// even when only the text survives.
const Marker = "[simulated]"

type Provider struct {
	config providers.Config
	logger *slog.Logger
}

func NewProvider(config providers.Config, logger *slog.Logger) *Provider {
	return &Provider{
		config: config,
		logger: logger.With("module", "providers.simulated"),
	}
}

func (p *Provider) Kind() providers.Kind {
	return providers.KindSimulated
}

// Complete produces deterministic output keyed only on the phase implied by
// the system prompt. No randomness, no external calls.
func (p *Provider) Complete(_ context.Context, system string, _ []providers.Message) (*providers.CompletionResponse, error) {
	var document any

	switch phaseFromSystem(system) {
	case models.PhaseArchitecture:
		document = models.ArchitectureResult{
			Overview: Marker + " simulated architecture: single-component change, no real analysis performed",
			Components: []models.Component{
				{Name: "main", Responsibility: "carries the requested change"},
			},
			ImplementationPlan: []models.PlanStep{
				{Step: 1, Description: "implement the requested change"},
			},
			Simulated: true,
		}
	case models.PhaseReview:
		document = models.ReviewResult{
			Status:    models.ReviewApproved,
			Summary:   models.ReviewCounts{},
			Simulated: true,
			Recommendations: []string{
				Marker + " simulated review: no issues found because no real review ran",
			},
		}
	default:
		document = models.DevelopmentResult{
			Summary:   Marker + " simulated development: no code was changed",
			Simulated: true,
		}
	}

	content, err := json.Marshal(document)
	if err != nil {
		return nil, providers.NewProviderError(providers.KindSimulated, "complete", err)
	}

	return &providers.CompletionResponse{
		Content:   string(content),
		Model:     "simulated",
		Simulated: true,
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

		out <- providers.StreamEvent{Delta: response.Content}
		out <- providers.StreamEvent{Done: true}
	}()

	return out, nil
}

func (p *Provider) HealthCheck(_ context.Context) providers.Health {
	return providers.Health{OK: true}
}

func phaseFromSystem(system string) models.Phase {
	lowered := strings.ToLower(system)

	switch {
	case strings.Contains(lowered, "architect"):
		return models.PhaseArchitecture
	case strings.Contains(lowered, "review"):
		return models.PhaseReview
	default:
		return models.PhaseDevelopment
	}
}
