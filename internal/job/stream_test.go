package job_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/incidentwatch/internal/job"
)

func TestStreamRegistryPublishAndRecent(t *testing.T) {
	t.Parallel()

	reg := job.NewStreamRegistry(8)
	reg.Register("job-1")

	reg.Publish("job-1", job.Event{Level: "info", Message: "first"})
	reg.Publish("job-1", job.Event{Level: "warn", Message: "second"})

	recent := reg.Recent("job-1")
	require.Len(t, recent, 2)
	assert.Equal(t, "first", recent[0].Message)
	assert.Equal(t, "second", recent[1].Message)
	assert.Equal(t, "job-1", recent[0].JobID)
	assert.False(t, recent[0].Timestamp.IsZero())
}

func TestStreamRegistryRingOverwritesOldest(t *testing.T) {
	t.Parallel()

	reg := job.NewStreamRegistry(3)
	reg.Register("job-1")

	for i := range 5 {
		reg.Publish("job-1", job.Event{Message: fmt.Sprintf("line-%d", i)})
	}

	recent := reg.Recent("job-1")
	require.Len(t, recent, 3)
	assert.Equal(t, "line-2", recent[0].Message)
	assert.Equal(t, "line-4", recent[2].Message)
}

func TestStreamRegistrySubscribeReceivesLiveEvents(t *testing.T) {
	t.Parallel()

	reg := job.NewStreamRegistry(8)
	reg.Register("job-1")

	ch, cancel := reg.Subscribe("job-1")
	defer cancel()

	reg.Publish("job-1", job.Event{Message: "live"})

	event := <-ch
	assert.Equal(t, "live", event.Message)
	assert.Equal(t, "job-1", event.JobID)
}

func TestStreamRegistryPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	t.Parallel()

	reg := job.NewStreamRegistry(8)
	reg.Register("job-1")

	_, cancel := reg.Subscribe("job-1")
	defer cancel()

	// Far more events than the subscriber channel buffers. Publish must
	// drop instead of stalling.
	for i := range 500 {
		reg.Publish("job-1", job.Event{Message: fmt.Sprintf("line-%d", i)})
	}

	recent := reg.Recent("job-1")
	assert.Len(t, recent, 8)
}

func TestStreamRegistryUnknownJob(t *testing.T) {
	t.Parallel()

	reg := job.NewStreamRegistry(8)

	// Publish to an unregistered job is a no-op.
	reg.Publish("missing", job.Event{Message: "dropped"})
	assert.Nil(t, reg.Recent("missing"))

	// Subscribe to an unregistered job yields a closed channel.
	ch, cancel := reg.Subscribe("missing")
	defer cancel()

	_, open := <-ch
	assert.False(t, open)
}

func TestStreamRegistryDeregisterClosesSubscribers(t *testing.T) {
	t.Parallel()

	reg := job.NewStreamRegistry(8)
	reg.Register("job-1")

	ch, cancel := reg.Subscribe("job-1")
	defer cancel()

	reg.Deregister("job-1")

	_, open := <-ch
	assert.False(t, open)
	assert.Nil(t, reg.Recent("job-1"))
}
