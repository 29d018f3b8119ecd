package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/GudaSiva/Bank-App-Transactions/internal/core/security"
)

// KeyResolver maps a hashed API key to the verified user id. This is the
// whole identity boundary: everything behind Protected trusts the resolved
// id and nothing else.
type KeyResolver interface {
	ResolveAPIKey(ctx context.Context, keyHash string) (uuid.UUID, error)
}

const userIDKey = "user_id"

func Protected(keys KeyResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"status": "failed", "data": nil, "error": "Unauthorized"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"status": "failed", "data": nil, "error": "Unauthorized"})
		}

		userID, err := keys.ResolveAPIKey(c.Context(), security.HashKey(parts[1]))
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"status": "failed", "data": nil, "error": "Unauthorized"})
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// UserID returns the verified caller id set by Protected.
func UserID(c *fiber.Ctx) uuid.UUID {
	if id, ok := c.Locals(userIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
