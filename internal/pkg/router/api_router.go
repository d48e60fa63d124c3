package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/MoviAPI/app/controllers"
	"github.com/ManuelReschke/MoviAPI/app/repository"
	apiv1 "github.com/ManuelReschke/MoviAPI/internal/api/v1"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/constants"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/middleware"
)

// Clients poll /account every few seconds after a checkout.
const (
	apiRateLimit       = 120
	apiRateLimitWindow = time.Minute
)

type ApiRouter struct {
	repos   *repository.Repositories
	billing *controllers.BillingController
	account *controllers.AccountController
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{
		Max:        apiRateLimit,
		Expiration: apiRateLimitWindow,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group(constants.APIV1Route)
	apiServer := apiv1.NewAPIServer(h.billing, h.account)
	apiv1.RegisterHandlers(v1, apiServer, apiv1.Security{
		RequireAPIAuth: middleware.APIKeyAuthMiddleware(h.repos.APIKey),
		RequireSession: middleware.RequireSession,
	})
}

func NewApiRouter(repos *repository.Repositories, billing *controllers.BillingController, account *controllers.AccountController) *ApiRouter {
	return &ApiRouter{repos: repos, billing: billing, account: account}
}
