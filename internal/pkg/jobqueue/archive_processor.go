package jobqueue

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// ObjectStore is the storage backend of the webhook archive.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// ArchiveObjectKey partitions archived events by day:
// webhooks/2026/10/18/evt_123.json
func ArchiveObjectKey(eventID string, receivedAt time.Time) string {
	safeID := strings.NewReplacer("/", "_", "..", "_").Replace(eventID)
	return path.Join("webhooks", receivedAt.UTC().Format("2006/01/02"), safeID+".json")
}

// NewArchiveHandler returns the handler for JobTypeArchiveWebhookEvent.
func NewArchiveHandler(store ObjectStore) Handler {
	return func(ctx context.Context, job *Job) error {
		payload, err := ArchiveWebhookEventPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid archive payload: %w", err)
		}
		if payload.EventID == "" {
			return fmt.Errorf("archive payload without event id")
		}

		key := ArchiveObjectKey(payload.EventID, payload.ReceivedAt)
		if err := store.PutObject(ctx, key, []byte(payload.Payload), "application/json"); err != nil {
			return fmt.Errorf("archive %s: %w", payload.EventID, err)
		}
		log.Debugf("[JobQueue] Archived webhook event %s to %s", payload.EventID, key)
		return nil
	}
}
