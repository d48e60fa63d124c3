package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ManuelReschke/MoviAPI/app/models"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/config"
)

// Options wires the optional collaborators of a Service. Nil caches and
// lockers fall back to no-ops; a nil Processor means checkout is reported as
// not configured.
type Options struct {
	Processor  Processor
	Catalog    *Catalog
	Balances   BalanceCache
	Locker     Locker
	Billing    config.BillingConfig
	SuccessURL string
	CancelURL  string
}

// Service owns the credit ledger: checkout initiation, webhook fulfillment
// and balance reads.
type Service struct {
	repo       Repository
	processor  Processor
	catalog    *Catalog
	balances   BalanceCache
	locker     Locker
	cfg        config.BillingConfig
	successURL string
	cancelURL  string
}

func NewService(repo Repository, opts Options) *Service {
	s := &Service{
		repo:       repo,
		processor:  opts.Processor,
		catalog:    opts.Catalog,
		balances:   opts.Balances,
		locker:     opts.Locker,
		cfg:        opts.Billing,
		successURL: opts.SuccessURL,
		cancelURL:  opts.CancelURL,
	}
	if s.balances == nil {
		s.balances = noopBalanceCache{}
	}
	if s.locker == nil {
		s.locker = noopLocker{}
	}
	if s.cfg.LookupTimeout <= 0 {
		s.cfg.LookupTimeout = config.DefaultLookupTimeout
	}
	if s.cfg.CheckoutLockTTL <= 0 {
		s.cfg.CheckoutLockTTL = config.DefaultCheckoutLockTTL
	}
	return s
}

func NewServiceFromDB(db *gorm.DB, opts Options) *Service {
	return NewService(NewRepository(db), opts)
}

func (s *Service) Catalog() *Catalog {
	return s.catalog
}

func (s *Service) CheckoutConfigured() bool {
	return s.processor != nil
}

// GetBalance returns the stored balance, served from the cache when fresh.
func (s *Service) GetBalance(ctx context.Context, userID string) (int64, error) {
	if credits, ok := s.balances.Get(ctx, userID); ok {
		return credits, nil
	}
	credits, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return 0, ErrUserNotFound
		}
		return 0, classify(KindTransient, "get balance", err)
	}
	s.balances.Set(ctx, userID, credits)
	return credits, nil
}

func (s *Service) ListOrders(ctx context.Context, userID string, limit int) ([]models.StripeOrder, error) {
	return s.repo.ListOrdersByUser(ctx, userID, clampLimit(limit))
}

func (s *Service) ListRecentOrders(ctx context.Context, limit int) ([]models.StripeOrder, error) {
	return s.repo.ListOrders(ctx, clampLimit(limit))
}

func (s *Service) ListWebhookEvents(ctx context.Context, limit int, failedOnly bool) ([]models.BillingWebhookEvent, error) {
	return s.repo.ListWebhookEvents(ctx, clampLimit(limit), failedOnly)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// RecordWebhookEvent persists a verified payload for auditing. created is
// false when the event ID was seen before.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		ObjectID:        strings.TrimSpace(in.ObjectID),
		PayloadJSON:     in.PayloadJSON,
		Outcome:         models.WebhookOutcomePending,
		Deliveries:      1,
	}
	return s.repo.CreateWebhookEventIfNotExists(ctx, event)
}

// MarkWebhookProcessed stores the terminal outcome of an audited event.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, outcome string, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(ctx, webhookEventID, outcome, errMsg)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > 100:
		return 100
	}
	return limit
}
