package job_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/incidentwatch/internal/domain"
	"github.com/jonesrussell/incidentwatch/internal/job"
)

func TestValidateTransitionAllowed(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to string }{
		{domain.JobStatusPending, domain.JobStatusRunning},
		{domain.JobStatusPending, domain.JobStatusFailed},
		{domain.JobStatusPending, domain.JobStatusCanceled},
		{domain.JobStatusRunning, domain.JobStatusFinalizing},
		{domain.JobStatusRunning, domain.JobStatusFailed},
		{domain.JobStatusRunning, domain.JobStatusCanceled},
		{domain.JobStatusFinalizing, domain.JobStatusFinalized},
		{domain.JobStatusFinalizing, domain.JobStatusFailed},
		{domain.JobStatusFinalizing, domain.JobStatusCanceled},
	}

	for _, tc := range allowed {
		assert.NoError(t, job.ValidateTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestValidateTransitionRejected(t *testing.T) {
	t.Parallel()

	rejected := []struct{ from, to string }{
		{domain.JobStatusPending, domain.JobStatusFinalizing},
		{domain.JobStatusPending, domain.JobStatusFinalized},
		{domain.JobStatusRunning, domain.JobStatusFinalized},
		{domain.JobStatusRunning, domain.JobStatusPending},
		{domain.JobStatusFinalized, domain.JobStatusRunning},
		{domain.JobStatusFailed, domain.JobStatusRunning},
		{domain.JobStatusCanceled, domain.JobStatusRunning},
		{domain.JobStatusCanceled, domain.JobStatusFinalizing},
	}

	for _, tc := range rejected {
		assert.Error(t, job.ValidateTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestValidateTransitionUnknownSource(t *testing.T) {
	t.Parallel()

	err := job.ValidateTransition("bogus", domain.JobStatusRunning)
	assert.ErrorContains(t, err, "unknown source status")
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, job.IsTerminal(domain.JobStatusFinalized))
	assert.True(t, job.IsTerminal(domain.JobStatusFailed))
	assert.True(t, job.IsTerminal(domain.JobStatusCanceled))
	assert.False(t, job.IsTerminal(domain.JobStatusPending))
	assert.False(t, job.IsTerminal(domain.JobStatusRunning))
	assert.False(t, job.IsTerminal(domain.JobStatusFinalizing))
}

func TestCanCancel(t *testing.T) {
	t.Parallel()

	assert.True(t, job.CanCancel(domain.JobStatusPending))
	assert.True(t, job.CanCancel(domain.JobStatusRunning))
	assert.True(t, job.CanCancel(domain.JobStatusFinalizing))
	assert.False(t, job.CanCancel(domain.JobStatusFinalized))
	assert.False(t, job.CanCancel(domain.JobStatusFailed))
	assert.False(t, job.CanCancel(domain.JobStatusCanceled))
}
