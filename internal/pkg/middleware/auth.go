package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/buddydiary/buddy-api/internal/pkg/result"
	"github.com/buddydiary/buddy-api/internal/pkg/token"
	"github.com/buddydiary/buddy-api/internal/pkg/usercontext"
)

// RequireJWT authenticates requests carrying a bearer access token. Routes
// outside the group it is attached to (signup, login, refresh, provider
// callbacks) are the public allow-list. On success the user id is attached
// to the request context; on any failure the request is rejected before
// reaching business logic.
func RequireJWT(tokens *token.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := extractBearerToken(c)
		if raw == "" {
			return result.NewError(result.Unauthorized)
		}

		userID, err := tokens.Validate(raw)
		if err != nil {
			// Expired is recoverable by a silent refresh, anything else
			// forces re-login; the client needs to tell them apart.
			if errors.Is(err, token.ErrExpired) {
				return result.NewError(result.ExpiredToken)
			}
			return result.WrapError(result.InvalidToken, err)
		}

		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
			UserID:     userID,
			IsLoggedIn: true,
		})
		c.Locals(usercontext.KeyUserID, userID)

		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
