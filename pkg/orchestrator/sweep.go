package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/agentrangers/ranger/pkg/models"
)

// SweepStale fails running executions that have not made progress within
// the configured window. This is the safety net for PTY subprocesses that
// outlive a cancelled or crashed run.
func (s *Service) SweepStale(ctx context.Context) (int, error) {
	running, err := s.persistence.ExecutionRepository().ListByStatus(ctx, models.ExecutionRunning)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-s.cfg.StaleAfter)
	swept := 0

	for _, execution := range running {
		if execution.UpdatedAt.After(cutoff) {
			continue
		}

		cause := fmt.Errorf("execution stale: no progress since %s",
			execution.UpdatedAt.Format(time.RFC3339))

		// failExecution returns the cause; sweeping moves on regardless.
		_ = s.failExecution(ctx, execution, cause)

		swept++
	}

	if swept > 0 {
		s.logger.Info("Swept stale executions", "count", swept)
	}

	return swept, nil
}
