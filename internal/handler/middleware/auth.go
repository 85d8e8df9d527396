package middleware

import (
	"context"
	"strings"

	"github.com/andressep95/session-service/internal/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Locals keys set by AuthMiddleware.
const (
	LocalUserID = "user_id"
	LocalClaims = "claims"
)

// Authenticator resolves a bearer token to its claims.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Claims, error)
}

// AuthMiddleware validates the bearer token and stores the caller for downstream handlers
func AuthMiddleware(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(c, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return unauthorized(c, "invalid authorization header format")
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			return unauthorized(c, "missing token")
		}

		claims, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			if domain.KindOf(err) == domain.KindStore {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"success": false,
					"message": "failed to verify token status",
				})
			}
			return unauthorized(c, "invalid or expired token")
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalClaims, claims)

		return c.Next()
	}
}

// UserID returns the caller stored by AuthMiddleware.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(LocalUserID).(uuid.UUID)
	return id, ok
}

// Claims returns the validated token claims stored by AuthMiddleware.
func Claims(c *fiber.Ctx) (*domain.Claims, bool) {
	claims, ok := c.Locals(LocalClaims).(*domain.Claims)
	return claims, ok
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
