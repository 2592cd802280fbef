package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vladyslav-onipko/space-server/internal/httperr"
	"github.com/vladyslav-onipko/space-server/internal/services"
)

// UserIDKey is the locals key carrying the acting user's id once the token
// has been verified.
const UserIDKey = "userID"

// Auth validates the bearer token and attaches the acting user's id to the
// request. Preflight requests pass through unauthenticated.
func Auth(tokens *services.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return httperr.Unauthorized("Authentication failed")
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == "" || tokenString == header {
			return httperr.Unauthorized("Authentication failed")
		}

		userID, err := tokens.Verify(tokenString)
		if err != nil {
			return httperr.Unauthorized("Authentication failed")
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}
