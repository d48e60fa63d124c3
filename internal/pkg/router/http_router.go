package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/ManuelReschke/MoviAPI/app/controllers"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/config"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/constants"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/middleware"
)

type HttpRouter struct {
	app      config.AppConfig
	sessions *session.Store
	auth     *controllers.AuthController
	billing  *controllers.BillingController
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware(h.sessions))

	auth := app.Group(constants.AuthRoute)
	auth.Post("/signup", h.auth.HandleSignUp)
	auth.Post("/signin", h.auth.HandleSignIn)
	auth.Post("/signout", h.auth.HandleSignOut)
	auth.Get("/session", h.auth.HandleGetSession)

	h.registerMetricsRoutes(app)
}

func (h HttpRouter) registerMetricsRoutes(app *fiber.App) {
	if h.app.MetricsPassword == "" {
		log.Warn("[Router] METRICS_PASSWORD is empty, /metrics routes are disabled")
		return
	}
	user := h.app.MetricsUser
	if user == "" {
		user = "admin"
	}
	protect := basicauth.New(basicauth.Config{
		Users: map[string]string{user: h.app.MetricsPassword},
	})
	app.Get(constants.MetricsRoute, protect, monitor.New())
	app.Get(constants.MetricsRoute+"/billing", protect, h.billing.HandleBillingMetrics)
}

func NewHttpRouter(app config.AppConfig, sessions *session.Store, auth *controllers.AuthController, billing *controllers.BillingController) *HttpRouter {
	return &HttpRouter{app: app, sessions: sessions, auth: auth, billing: billing}
}
