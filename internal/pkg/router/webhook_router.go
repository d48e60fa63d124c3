package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/ManuelReschke/MoviAPI/app/controllers"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/constants"
)

const StripeWebhookPath = constants.WebhooksRoute + "/stripe"

type WebhookRouter struct {
	billing *controllers.BillingController
}

func (w WebhookRouter) InstallRouter(app *fiber.App) {
	hooks := app.Group(constants.WebhooksRoute, cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "POST, OPTIONS, GET",
		AllowHeaders: "stripe-signature, content-type, authorization, apikey",
	}))
	hooks.Post("/stripe", w.billing.HandleStripeWebhook)
	hooks.Get("/stripe", w.billing.HandleWebhookProbe)
}

func NewWebhookRouter(billing *controllers.BillingController) *WebhookRouter {
	return &WebhookRouter{billing: billing}
}
