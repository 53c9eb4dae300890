// Package job orchestrates discovery runs: it walks candidate pages through
// fetch, extraction, and scoring with a bounded worker pool, and drives the
// job record through its status lifecycle.
package job

import (
	"fmt"

	"github.com/jonesrussell/incidentwatch/internal/domain"
)

// ValidateTransition checks if a status transition is valid.
// Returns an error if the transition is not allowed.
func ValidateTransition(from, to string) error {
	validTransitions := map[string][]string{
		domain.JobStatusPending: {
			domain.JobStatusRunning,  // Runner picked the job up
			domain.JobStatusFailed,   // Setup failure before discovery started
			domain.JobStatusCanceled, // Manual cancellation before start
		},
		domain.JobStatusRunning: {
			domain.JobStatusFinalizing, // Discovery loop done, report pending
			domain.JobStatusFailed,     // Unrecoverable error during the run
			domain.JobStatusCanceled,   // Manual cancellation during execution
		},
		domain.JobStatusFinalizing: {
			domain.JobStatusFinalized, // Report persisted and linked
			domain.JobStatusFailed,    // Report persistence failed
			domain.JobStatusCanceled,  // Manual cancellation while assembling
		},
		// Terminal states (no transitions out)
		domain.JobStatusFinalized: {},
		domain.JobStatusFailed:    {},
		domain.JobStatusCanceled:  {},
	}

	allowedStates, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source status: %s", from)
	}

	for _, allowed := range allowedStates {
		if allowed == to {
			return nil
		}
	}

	return fmt.Errorf("invalid status transition from %s to %s", from, to)
}

// CanCancel checks if a job can be canceled in its current status.
func CanCancel(status string) bool {
	return status == domain.JobStatusPending ||
		status == domain.JobStatusRunning ||
		status == domain.JobStatusFinalizing
}

// IsTerminal checks if a status is terminal (no further transitions).
func IsTerminal(status string) bool {
	return status == domain.JobStatusFinalized ||
		status == domain.JobStatusFailed ||
		status == domain.JobStatusCanceled
}
