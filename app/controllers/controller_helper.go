package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/MoviAPI/internal/pkg/billing"
)

const requestTimeout = 15 * time.Second

var validate = validator.New()

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// checkoutErrorStatus maps a checkout failure to an HTTP status and a stable
// error code. Configuration problems are kept apart from caller mistakes so
// operators can tell a broken deployment from a bad request.
func checkoutErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, billing.ErrCheckoutInProgress):
		return fiber.StatusConflict, "checkout_in_progress"
	case errors.Is(err, billing.ErrUnknownSKU):
		return fiber.StatusBadRequest, "unknown_sku"
	case errors.Is(err, billing.ErrStripeNotConfigured):
		return fiber.StatusServiceUnavailable, "payments_not_configured"
	}

	switch billing.KindOf(err) {
	case billing.KindAuthentication:
		return fiber.StatusUnauthorized, "unauthorized"
	case billing.KindConfiguration:
		return fiber.StatusInternalServerError, "payment_configuration_error"
	case billing.KindPermission:
		return fiber.StatusForbidden, "payment_permission_denied"
	case billing.KindInvalidInput:
		return fiber.StatusBadRequest, "invalid_request"
	case billing.KindTransient:
		return fiber.StatusServiceUnavailable, "payment_provider_unavailable"
	default:
		return fiber.StatusInternalServerError, "checkout_failed"
	}
}

func queryLimit(c *fiber.Ctx, def int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
