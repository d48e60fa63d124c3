package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/ManuelReschke/MoviAPI/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session cookie into a UserContext for
// every request. Session errors degrade to an anonymous user.
func UserContextMiddleware(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		userID, _ := sess.Get(usercontext.KeyUserID).(string)
		if userID == "" {
			usercontext.SetUserContext(c, usercontext.UserContext{})
			return c.Next()
		}

		email, _ := sess.Get(usercontext.KeyEmail).(string)
		username, _ := sess.Get(usercontext.KeyUsername).(string)
		usercontext.SetUserContext(c, usercontext.UserContext{
			UserID:     userID,
			Email:      email,
			Username:   username,
			IsLoggedIn: true,
			AuthMethod: usercontext.AuthMethodSession,
		})
		return c.Next()
	}
}
