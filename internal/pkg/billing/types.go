package billing

import (
	"context"
	"time"
)

// BalanceCache is a read-through cache in front of users.credits.
type BalanceCache interface {
	Get(ctx context.Context, userID string) (int64, bool)
	Set(ctx context.Context, userID string, credits int64)
	Invalidate(ctx context.Context, userID string)
}

// Locker guards against duplicate checkout sessions from double clicks.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// CheckoutRequest is an authenticated purchase intent.
type CheckoutRequest struct {
	UserID string
	Email  string
	SKU    string
}

type CheckoutResult struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	SKU       string `json:"sku"`
	Credits   int64  `json:"credits"`
}

// Outcome is the terminal classification of a processed webhook event.
// Every outcome is acknowledged with a 2xx; only errors trigger redelivery.
type Outcome string

const (
	OutcomeProcessed    Outcome = "processed"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeUnattributed Outcome = "unattributed"
)

type FulfillmentResult struct {
	Outcome      Outcome
	UserID       string
	SessionID    string
	Credits      int64
	CatalogDrift bool
	Detail       string
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	ProviderEventID string
	EventType       string
	ObjectID        string
	PayloadJSON     string
}

type noopBalanceCache struct{}

func (noopBalanceCache) Get(context.Context, string) (int64, bool) { return 0, false }
func (noopBalanceCache) Set(context.Context, string, int64)        {}
func (noopBalanceCache) Invalidate(context.Context, string)        {}

type noopLocker struct{}

func (noopLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}
