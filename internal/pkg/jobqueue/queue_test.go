package jobqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/MoviAPI/internal/pkg/cache/cachetest"
)

const isolatedJobQueueTestRedisDB = 14

func TestNewQueue(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, 2},
		{"Negative workers", -1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueue(nil, tt.workers)

			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.Equal(t, tt.expectedWorkers, cap(queue.workerPool))
			assert.False(t, queue.IsRunning())
		})
	}
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failN   int
}

func (s *memoryStore) PutObject(_ context.Context, key string, body []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failN > 0 {
		s.failN--
		return errors.New("bucket unavailable")
	}
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = body
	return nil
}

func (s *memoryStore) get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return b, ok
}

func TestQueueRunsArchiveJobs(t *testing.T) {
	client := cachetest.NewIsolatedClient(t, isolatedJobQueueTestRedisDB)
	store := &memoryStore{}

	q := NewQueue(client, 1)
	q.Register(JobTypeArchiveWebhookEvent, NewArchiveHandler(store))
	q.Start()
	defer q.Stop()

	received := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	_, err := q.EnqueueJob(context.Background(), JobTypeArchiveWebhookEvent, ArchiveWebhookEventPayload{
		EventID:    "evt_archive",
		EventType:  "checkout.session.completed",
		Payload:    `{"id":"evt_archive"}`,
		ReceivedAt: received,
	}.ToMap())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := store.get("webhooks/2026/10/18/evt_archive.json")
		return ok
	}, 5*time.Second, 50*time.Millisecond)

	body, _ := store.get("webhooks/2026/10/18/evt_archive.json")
	assert.JSONEq(t, `{"id":"evt_archive"}`, string(body))

	require.Eventually(t, func() bool {
		stats, err := q.GetJobStats(context.Background())
		return err == nil && stats[JobStatusCompleted] == 1
	}, 2*time.Second, 50*time.Millisecond)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	client := cachetest.NewIsolatedClient(t, isolatedJobQueueTestRedisDB)
	store := &memoryStore{failN: 1}

	q := NewQueue(client, 1)
	q.retryDelay = 10 * time.Millisecond
	q.Register(JobTypeArchiveWebhookEvent, NewArchiveHandler(store))
	q.Start()
	defer q.Stop()

	_, err := q.EnqueueJob(context.Background(), JobTypeArchiveWebhookEvent, ArchiveWebhookEventPayload{
		EventID:    "evt_retry",
		Payload:    `{}`,
		ReceivedAt: time.Now(),
	}.ToMap())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.objects) == 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestUnknownJobTypeFails(t *testing.T) {
	client := cachetest.NewIsolatedClient(t, isolatedJobQueueTestRedisDB)
	q := NewQueue(client, 1)
	ctx := context.Background()

	job, err := q.EnqueueJob(ctx, JobType("mystery"), nil)
	require.NoError(t, err)
	job.MaxRetries = 0

	q.processJob(ctx, job)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Contains(t, stored.ErrorMsg, "unknown job type")
}

func TestManagerRunsTasks(t *testing.T) {
	var mu sync.Mutex
	runs := 0
	m := NewManager(nil, Task{
		Name:     "tick",
		Interval: 10 * time.Millisecond,
		Run: func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			runs++
			return nil
		},
	})

	m.Start()
	assert.True(t, m.IsRunning())
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs >= 2
	}, time.Second, 5*time.Millisecond)
	m.Stop()
	assert.False(t, m.IsRunning())
}
