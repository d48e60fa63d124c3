package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/MoviAPI/internal/pkg/usercontext"
)

// RequireSession ensures a logged-in web session and answers JSON 401
// otherwise.
func RequireSession(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return unauthorized(c, "login required")
	}
	return c.Next()
}
