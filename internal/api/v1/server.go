package apiv1

import (
	"github.com/gofiber/fiber/v2"
)

// ServerInterface lists the operations of public/docs/v1/openapi.yml.
type ServerInterface interface {
	// (GET /ping)
	GetPing(c *fiber.Ctx) error
	// (GET /catalog)
	GetCatalog(c *fiber.Ctx) error
	// (GET /account)
	GetAccount(c *fiber.Ctx) error
	// (POST /account/api-key)
	PostAccountAPIKey(c *fiber.Ctx) error
	// (GET /orders)
	GetOrders(c *fiber.Ctx) error
	// (POST /checkout/sessions)
	PostCheckoutSession(c *fiber.Ctx) error
}

// Security holds the authentication middlewares for protected operations.
// RequireAPIAuth accepts a session or an API key, RequireSession only a
// browser session.
type Security struct {
	RequireAPIAuth fiber.Handler
	RequireSession fiber.Handler
}

func passThrough(c *fiber.Ctx) error {
	return c.Next()
}

// RegisterHandlers mounts every operation on router.
func RegisterHandlers(router fiber.Router, si ServerInterface, sec Security) {
	if sec.RequireAPIAuth == nil {
		sec.RequireAPIAuth = passThrough
	}
	if sec.RequireSession == nil {
		sec.RequireSession = passThrough
	}

	router.Get("/ping", si.GetPing)
	router.Get("/catalog", si.GetCatalog)
	router.Get("/account", sec.RequireAPIAuth, si.GetAccount)
	router.Post("/account/api-key", sec.RequireSession, si.PostAccountAPIKey)
	router.Get("/orders", sec.RequireAPIAuth, si.GetOrders)
	router.Post("/checkout/sessions", sec.RequireAPIAuth, si.PostCheckoutSession)
}
