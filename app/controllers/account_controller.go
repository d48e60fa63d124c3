package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/MoviAPI/app/models"
	"github.com/ManuelReschke/MoviAPI/app/repository"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/billing"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/usercontext"
)

type AccountController struct {
	users repository.UserRepository
	keys  repository.APIKeyRepository
	svc   *billing.Service
}

func NewAccountController(repos *repository.Repositories, svc *billing.Service) *AccountController {
	return &AccountController{users: repos.User, keys: repos.APIKey, svc: svc}
}

// HandleGetAccount returns the caller's profile and authoritative credit
// balance. Clients poll this after returning from checkout.
func (ac *AccountController) HandleGetAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	account, err := ac.users.GetByID(ctx, userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		log.Errorf("[Account] load user %s: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	credits, err := ac.svc.GetBalance(ctx, account.ID)
	if err != nil {
		log.Errorf("[Account] load balance for %s: %v", account.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load balance")
	}

	return c.JSON(fiber.Map{
		"id":            account.ID,
		"name":          account.Name,
		"email":         account.Email,
		"credits":       credits,
		"created_at":    account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(account.LastLoginAt),
	})
}

// HandleCreateAPIKey rotates the caller's API key. The raw key is only ever
// returned here.
func (ac *AccountController) HandleCreateAPIKey(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == "" {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	key, err := ac.keys.GetByUserID(ctx, userID)
	if err != nil {
		log.Errorf("[Account] load api key for %s: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load API key")
	}
	raw, err := key.Issue()
	if err != nil {
		log.Errorf("[Account] generate api key for %s: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to generate API key")
	}
	if err := ac.keys.Save(ctx, key); err != nil {
		log.Errorf("[Account] save api key for %s: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save API key")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"api_key":    raw,
		"key_prefix": key.KeyPrefix,
	})
}

// HandleListOrders returns the caller's purchase history, newest first.
func (ac *AccountController) HandleListOrders(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	if userID == "" {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	orders, err := ac.svc.ListOrders(c.UserContext(), userID, queryLimit(c, 20))
	if err != nil {
		log.Errorf("[Account] list orders for %s: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load orders")
	}
	if orders == nil {
		orders = []models.StripeOrder{}
	}
	return c.JSON(fiber.Map{"orders": orders})
}
