package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/MoviAPI/app/models"
)

// ProcessEvent applies a verified event to the ledger. A returned error means
// the delivery should be retried; every other case yields a terminal
// FulfillmentResult.
func (s *Service) ProcessEvent(ctx context.Context, ev Event) (FulfillmentResult, error) {
	switch e := ev.(type) {
	case CheckoutSessionCompleted:
		return s.fulfillCheckout(ctx, e)
	case PaymentIntentSucceeded:
		return s.confirmPaymentIntent(ctx, e)
	default:
		return FulfillmentResult{Outcome: OutcomeIgnored, Detail: "unhandled event type " + ev.EventType()}, nil
	}
}

func (s *Service) fulfillCheckout(ctx context.Context, ev CheckoutSessionCompleted) (FulfillmentResult, error) {
	const op = "fulfill checkout"
	res := FulfillmentResult{SessionID: ev.SessionID, UserID: ev.UserID}

	if ev.AwaitingPayment() {
		res.Outcome = OutcomeIgnored
		res.Detail = "payment not settled yet"
		return res, nil
	}

	switch {
	case ev.UserID == "":
		log.Errorf("[Billing] checkout session %s paid without user attribution: %v", ev.SessionID, ErrMissingUserID)
		res.Outcome = OutcomeUnattributed
		res.Detail = ErrMissingUserID.Error()
		return res, nil
	case !models.IsValidUserID(ev.UserID):
		log.Errorf("[Billing] checkout session %s paid with malformed user_id %q", ev.SessionID, ev.UserID)
		res.Outcome = OutcomeUnattributed
		res.Detail = ErrInvalidUserID.Error()
		return res, nil
	}

	// cheap early exit for redeliveries; the claim below stays the real gate
	if _, err := s.repo.FindOrderBySession(ctx, ev.SessionID); err == nil {
		res.Outcome = OutcomeDuplicate
		return res, nil
	} else if !isNotFound(err) {
		return res, classify(KindTransient, op, err)
	}

	priceID, err := s.resolvePriceID(ctx, ev)
	if err != nil {
		return res, err
	}

	credits, known := s.catalog.CreditsForPrice(priceID)
	if !known {
		log.Errorf("[Billing] catalog drift: session %s paid unknown price %q, granting fallback %d credits", ev.SessionID, priceID, credits)
	}

	currency := ev.Currency
	if currency == "" {
		currency = models.DefaultOrderCurrency
	}
	order := &models.StripeOrder{
		CheckoutSessionID: ev.SessionID,
		PaymentIntentID:   ev.PaymentIntentID,
		CustomerID:        ev.CustomerID,
		UserID:            ev.UserID,
		PriceID:           priceID,
		AmountSubtotal:    ev.AmountSubtotal,
		AmountTotal:       ev.AmountTotal,
		Currency:          currency,
		PaymentStatus:     ev.PaymentStatus,
		Status:            models.OrderStatusCompleted,
		CreditsGranted:    credits,
		CatalogDrift:      !known,
	}

	err = s.repo.ClaimOrderAndGrant(ctx, order)
	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		res.Outcome = OutcomeDuplicate
		return res, nil
	case errors.Is(err, ErrUserNotFound):
		log.Errorf("[Billing] checkout session %s paid for unknown user %s", ev.SessionID, ev.UserID)
		res.Outcome = OutcomeUnattributed
		res.Detail = ErrUserNotFound.Error()
		return res, nil
	case err != nil:
		return res, classify(KindTransient, op, err)
	}

	s.balances.Invalidate(ctx, ev.UserID)
	log.Infof("[Billing] granted %d credits to user %s for session %s", credits, ev.UserID, ev.SessionID)

	res.Outcome = OutcomeProcessed
	res.Credits = credits
	res.CatalogDrift = !known
	return res, nil
}

// resolvePriceID prefers line items embedded in the payload and otherwise
// asks the processor, bounded by the lookup timeout. A failed lookup is
// retried through redelivery rather than guessed.
func (s *Service) resolvePriceID(ctx context.Context, ev CheckoutSessionCompleted) (string, error) {
	if len(ev.PriceIDs) > 0 {
		return ev.PriceIDs[0], nil
	}
	if s.processor == nil {
		return "", newError(KindConfiguration, "resolve price", ErrStripeNotConfigured)
	}

	lctx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()
	ids, err := s.processor.ListLineItemPriceIDs(lctx, ev.SessionID)
	if err != nil {
		return "", classify(KindTransient, "resolve price", fmt.Errorf("session %s: %w", ev.SessionID, err))
	}
	if len(ids) == 0 {
		log.Warnf("[Billing] checkout session %s has no priced line items", ev.SessionID)
		return "", nil
	}
	return ids[0], nil
}

func (s *Service) confirmPaymentIntent(ctx context.Context, ev PaymentIntentSucceeded) (FulfillmentResult, error) {
	res := FulfillmentResult{Outcome: OutcomeIgnored}
	if ev.PaymentIntentID == "" {
		return res, nil
	}
	order, err := s.repo.FindOrderByPaymentIntent(ctx, ev.PaymentIntentID)
	switch {
	case err == nil:
		res.SessionID = order.CheckoutSessionID
		res.UserID = order.UserID
		res.Detail = "order already fulfilled"
	case isNotFound(err):
		log.Infof("[Billing] payment intent %s succeeded before its checkout session was fulfilled", ev.PaymentIntentID)
		res.Detail = "awaiting checkout.session.completed"
	default:
		log.Warnf("[Billing] payment intent %s lookup failed: %v", ev.PaymentIntentID, err)
	}
	return res, nil
}
