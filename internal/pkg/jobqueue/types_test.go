package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	job := &Job{ID: "j1", Status: JobStatusPending, MaxRetries: 2}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("boom")
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsFailed("boom again")
	assert.False(t, job.IsRetryable())

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.ErrorMsg)
	assert.NotNil(t, job.CompletedAt)
}

func TestArchivePayloadFromMap(t *testing.T) {
	received := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	in := ArchiveWebhookEventPayload{EventID: "evt_1", EventType: "checkout.session.completed", Payload: `{"id":"evt_1"}`, ReceivedAt: received}

	out, err := ArchiveWebhookEventPayloadFromMap(in.ToMap())
	require.NoError(t, err)
	assert.Equal(t, in.EventID, out.EventID)
	assert.Equal(t, in.Payload, out.Payload)
	assert.True(t, received.Equal(out.ReceivedAt))
}

func TestArchiveObjectKey(t *testing.T) {
	at := time.Date(2026, 1, 2, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "webhooks/2026/01/02/evt_123.json", ArchiveObjectKey("evt_123", at))
	assert.Equal(t, "webhooks/2026/01/02/evil___x.json", ArchiveObjectKey("evil/../x", at))
}
