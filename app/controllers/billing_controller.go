package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/MoviAPI/app/models"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/billing"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/jobqueue"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/usercontext"
)

// JobEnqueuer schedules background work; *jobqueue.Queue satisfies it.
type JobEnqueuer interface {
	EnqueueJob(ctx context.Context, jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error)
}

// BillingDeps are the collaborators of the billing endpoints. Counter, Jobs
// and Cache are optional.
type BillingDeps struct {
	Service  *billing.Service
	Verifier *billing.SignatureVerifier
	Counter  *counter.Counter
	Jobs     JobEnqueuer
	Cache    *redis.Client
}

type BillingController struct {
	svc      *billing.Service
	verifier *billing.SignatureVerifier
	counter  *counter.Counter
	jobs     JobEnqueuer
	cache    *redis.Client
}

func NewBillingController(deps BillingDeps) *BillingController {
	return &BillingController{
		svc:      deps.Service,
		verifier: deps.Verifier,
		counter:  deps.Counter,
		jobs:     deps.Jobs,
		cache:    deps.Cache,
	}
}

type checkoutSessionRequest struct {
	SKU string `json:"sku" validate:"required,max=64"`
}

// HandleCreateCheckoutSession opens a hosted checkout for the caller.
func (bc *BillingController) HandleCreateCheckoutSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	var req checkoutSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Request body must be JSON with a sku")
	}
	req.SKU = strings.TrimSpace(req.SKU)
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "sku is required")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	result, err := bc.svc.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		UserID: userCtx.UserID,
		Email:  userCtx.Email,
		SKU:    req.SKU,
	})
	if err != nil {
		status, code := checkoutErrorStatus(err)
		if status >= fiber.StatusInternalServerError {
			log.Errorf("[Checkout] user %s sku %s: %v", userCtx.UserID, req.SKU, err)
			bc.countCheckout(ctx, "failed")
		} else {
			log.Infof("[Checkout] rejected for user %s sku %s: %v", userCtx.UserID, req.SKU, err)
			bc.countCheckout(ctx, "rejected")
		}
		return c.Status(status).JSON(fiber.Map{
			"error":     code,
			"message":   err.Error(),
			"retryable": billing.IsRetryable(err),
		})
	}

	bc.countCheckout(ctx, "created")
	return c.Status(fiber.StatusOK).JSON(result)
}

// HandleStripeWebhook verifies and applies one processor delivery. Any
// non-2xx answer makes the processor redeliver later.
func (bc *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if !bc.verifier.Configured() {
		log.Errorf("[Webhook] signing secret is not configured, refusing delivery")
		return jsonError(c, fiber.StatusServiceUnavailable, "webhook_not_configured", "Webhook endpoint is not configured")
	}

	stripeEvent, err := bc.verifier.Verify(rawBody, signature)
	if err != nil {
		log.Warnf("[Webhook] rejected delivery from %s (signature present=%t): %v", c.IP(), signature != "", err)
		bc.countWebhook(ctx, "rejected")
		return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "Webhook signature verification failed")
	}

	event, err := billing.ParseEvent(stripeEvent)
	if err != nil {
		log.Warnf("[Webhook] verified event %s could not be decoded: %v", stripeEvent.ID, err)
		bc.countWebhook(ctx, "rejected")
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "Webhook payload could not be decoded")
	}

	created, stored, err := bc.svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		ProviderEventID: event.EventID(),
		EventType:       event.EventType(),
		ObjectID:        billing.ObjectID(event),
		PayloadJSON:     string(rawBody),
	})
	if err != nil {
		log.Warnf("[Webhook] audit record for %s failed, processing anyway: %v", event.EventID(), err)
		stored = nil
	}
	if !created && stored != nil && webhookSettled(stored.Outcome) {
		bc.countWebhook(ctx, string(billing.OutcomeDuplicate))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "status": billing.OutcomeDuplicate})
	}
	if created {
		bc.archive(ctx, event, rawBody)
	}

	result, procErr := bc.svc.ProcessEvent(ctx, event)
	if procErr != nil {
		log.Errorf("[Webhook] event %s (%s) failed, asking for redelivery: %v", event.EventID(), event.EventType(), procErr)
		bc.markWebhook(ctx, stored, models.WebhookOutcomeFailed, procErr)
		bc.countWebhook(ctx, models.WebhookOutcomeFailed)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":     "processing_failed",
			"retryable": true,
		})
	}

	bc.markWebhook(ctx, stored, string(result.Outcome), nil)
	bc.countWebhook(ctx, string(result.Outcome))
	if result.CatalogDrift {
		bc.countWebhook(ctx, "drift")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "status": result.Outcome})
}

// HandleWebhookProbe is the GET diagnostic on the webhook path.
func (bc *BillingController) HandleWebhookProbe(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	if err := bc.svc.Ping(ctx); err != nil {
		log.Errorf("[Webhook] probe: database unreachable: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "database": "disconnected"})
	}
	resp := fiber.Map{
		"status":             "success",
		"database":           "connected",
		"webhook_configured": bc.verifier.Configured(),
	}
	if bc.cache != nil {
		if err := bc.cache.Ping(ctx).Err(); err != nil {
			log.Errorf("[Webhook] probe: cache unreachable: %v", err)
			resp["status"] = "error"
			resp["cache"] = "disconnected"
			return c.Status(fiber.StatusInternalServerError).JSON(resp)
		}
		resp["cache"] = "connected"
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// HandleGetCatalog lists the purchasable credit packs.
func (bc *BillingController) HandleGetCatalog(c *fiber.Ctx) error {
	catalog := bc.svc.Catalog()
	products := catalog.Products()
	items := make([]fiber.Map, 0, len(products))
	for _, p := range products {
		items = append(items, fiber.Map{
			"sku":              p.SKU,
			"name":             p.Name,
			"description":      p.Description,
			"credits":          p.Credits,
			"price":            p.TotalPrice.StringFixed(2),
			"price_per_minute": p.PricePerUnit.StringFixed(2),
			"category":         p.Category,
		})
	}
	return c.JSON(fiber.Map{
		"products":         items,
		"checkout_enabled": bc.svc.CheckoutConfigured(),
	})
}

// HandleBillingMetrics exposes the outcome counters.
func (bc *BillingController) HandleBillingMetrics(c *fiber.Ctx) error {
	samples, err := bc.counter.Snapshot(c.UserContext())
	if err != nil {
		log.Errorf("[Billing] metrics snapshot failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to read counters")
	}
	if samples == nil {
		samples = []counter.Sample{}
	}
	return c.JSON(fiber.Map{"counters": samples})
}

func (bc *BillingController) archive(ctx context.Context, event billing.Event, rawBody []byte) {
	if bc.jobs == nil {
		return
	}
	payload := jobqueue.ArchiveWebhookEventPayload{
		EventID:    event.EventID(),
		EventType:  event.EventType(),
		Payload:    string(rawBody),
		ReceivedAt: time.Now(),
	}
	if _, err := bc.jobs.EnqueueJob(ctx, jobqueue.JobTypeArchiveWebhookEvent, payload.ToMap()); err != nil {
		log.Warnf("[Webhook] failed to enqueue archive of %s: %v", event.EventID(), err)
	}
}

func (bc *BillingController) markWebhook(ctx context.Context, stored *models.BillingWebhookEvent, outcome string, procErr error) {
	if stored == nil || stored.ID == 0 {
		return
	}
	if err := bc.svc.MarkWebhookProcessed(ctx, stored.ID, outcome, procErr); err != nil {
		log.Warnf("[Webhook] failed to store outcome of %s: %v", stored.ProviderEventID, err)
	}
}

func (bc *BillingController) countWebhook(ctx context.Context, outcome string) {
	if err := bc.counter.AddWebhookOutcome(ctx, outcome); err != nil && !errors.Is(err, context.Canceled) {
		log.Debugf("[Billing] counter update failed: %v", err)
	}
}

func (bc *BillingController) countCheckout(ctx context.Context, result string) {
	if err := bc.counter.AddCheckout(ctx, result); err != nil && !errors.Is(err, context.Canceled) {
		log.Debugf("[Billing] counter update failed: %v", err)
	}
}

// webhookSettled reports whether an earlier delivery reached a terminal,
// successful outcome. Pending and failed events are processed again.
func webhookSettled(outcome string) bool {
	switch outcome {
	case models.WebhookOutcomeProcessed, models.WebhookOutcomeDuplicate,
		models.WebhookOutcomeIgnored, models.WebhookOutcomeUnattributed:
		return true
	}
	return false
}
