package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/ManuelReschke/MoviAPI/app/controllers"
)

// Pong is the response of GET /ping.
type Pong struct {
	Ping string `json:"ping"`
}

// APIServer implements the ServerInterface
type APIServer struct {
	billing *controllers.BillingController
	account *controllers.AccountController
}

// NewAPIServer creates a new API server instance
func NewAPIServer(billing *controllers.BillingController, account *controllers.AccountController) *APIServer {
	return &APIServer{billing: billing, account: account}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetCatalog lists the credit packs. Public.
func (s *APIServer) GetCatalog(c *fiber.Ctx) error {
	return s.billing.HandleGetCatalog(c)
}

// GetAccount returns profile and balance of the authenticated user (API key or session).
// Security is enforced via API key middleware attached in the router.
func (s *APIServer) GetAccount(c *fiber.Ctx) error {
	return s.account.HandleGetAccount(c)
}

// PostAccountAPIKey rotates the caller's API key. Session only.
func (s *APIServer) PostAccountAPIKey(c *fiber.Ctx) error {
	return s.account.HandleCreateAPIKey(c)
}

func (s *APIServer) GetOrders(c *fiber.Ctx) error {
	return s.account.HandleListOrders(c)
}

// PostCheckoutSession opens a hosted checkout for one catalog SKU.
func (s *APIServer) PostCheckoutSession(c *fiber.Ctx) error {
	return s.billing.HandleCreateCheckoutSession(c)
}
