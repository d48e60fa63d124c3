package models

import "time"

// Outcomes recorded on BillingWebhookEvent.Outcome.
const (
	WebhookOutcomePending      = "pending"
	WebhookOutcomeProcessed    = "processed"
	WebhookOutcomeDuplicate    = "duplicate"
	WebhookOutcomeIgnored      = "ignored"
	WebhookOutcomeUnattributed = "unattributed"
	WebhookOutcomeFailed       = "failed"
)

// BillingWebhookEvent is the audit trail of verified processor events. It is
// written best effort and is not the deduplication gate for credit grants;
// stripe_orders is.
type BillingWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	ObjectID        string     `gorm:"type:varchar(191);default:'';index" json:"object_id"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"-"`
	Outcome         string     `gorm:"type:varchar(32);not null;default:'pending';index" json:"outcome"`
	Deliveries      int        `gorm:"not null;default:1" json:"deliveries"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (BillingWebhookEvent) TableName() string {
	return "billing_webhook_events"
}

func (e *BillingWebhookEvent) Failed() bool {
	return e.Outcome == WebhookOutcomeFailed
}
