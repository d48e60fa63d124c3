package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/MoviAPI/app/models"
)

const compensationTimeout = 10 * time.Second

func checkoutLockKey(userID string) string {
	return "billing:checkout:" + userID
}

// CreateCheckoutSession starts a hosted checkout for one catalog pack. It
// never touches the balance; credits arrive only through the webhook.
func (s *Service) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	const op = "create checkout session"

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, newError(KindAuthentication, op, ErrUnauthenticated)
	}
	product, ok := s.catalog.BySKU(req.SKU)
	if !ok {
		return nil, newError(KindInvalidInput, op, fmt.Errorf("%w: %q", ErrUnknownSKU, req.SKU))
	}
	if s.processor == nil {
		return nil, newError(KindConfiguration, op, ErrStripeNotConfigured)
	}

	release, acquired, err := s.locker.TryLock(ctx, checkoutLockKey(userID), s.cfg.CheckoutLockTTL)
	switch {
	case err != nil:
		log.Warnf("[Billing] checkout lock unavailable for user %s, continuing without it: %v", userID, err)
	case !acquired:
		return nil, newError(KindInvalidInput, op, ErrCheckoutInProgress)
	}
	defer release()

	customerID, err := s.ensureCustomer(ctx, userID, strings.TrimSpace(req.Email))
	if err != nil {
		return nil, err
	}

	sess, err := s.processor.CreateCheckoutSession(ctx, CheckoutSessionInput{
		CustomerID: customerID,
		PriceID:    product.PriceID,
		Mode:       product.Mode,
		UserID:     userID,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
	})
	if err != nil {
		return nil, classify(KindUnknown, op, err)
	}

	log.Infof("[Billing] checkout session %s created for user %s (sku=%s)", sess.ID, userID, product.SKU)
	return &CheckoutResult{SessionID: sess.ID, URL: sess.URL, SKU: product.SKU, Credits: product.Credits}, nil
}

// ensureCustomer returns the user's processor customer, creating it on first
// purchase. A customer created here that cannot be mapped locally is deleted
// again so no orphan stays behind.
func (s *Service) ensureCustomer(ctx context.Context, userID, email string) (string, error) {
	const op = "ensure customer"

	existing, err := s.repo.FindCustomerByUser(ctx, userID)
	if err == nil {
		return existing.CustomerID, nil
	}
	if !isNotFound(err) {
		return "", classify(KindTransient, op, err)
	}

	customerID, err := s.processor.CreateCustomer(ctx, email, userID)
	if err != nil {
		return "", classify(KindUnknown, op, err)
	}

	created, stored, err := s.repo.CreateCustomerMapping(ctx, &models.StripeCustomer{
		UserID:     userID,
		CustomerID: customerID,
		Email:      email,
	})
	if err != nil {
		s.compensateCustomer(ctx, customerID)
		return "", classify(KindTransient, op, fmt.Errorf("store customer mapping: %w", err))
	}
	if !created {
		// a concurrent request won the insert; use its customer
		log.Warnf("[Billing] %v for user %s, discarding %s", ErrCustomerMappingConflict, userID, customerID)
		s.compensateCustomer(ctx, customerID)
		return stored.CustomerID, nil
	}
	return customerID, nil
}

func (s *Service) compensateCustomer(ctx context.Context, customerID string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if err := s.processor.DeleteCustomer(cctx, customerID); err != nil {
		log.Errorf("[Billing] failed to delete orphaned customer %s: %v", customerID, err)
	}
}
