package middleware

import (
	"strings"

	"github.com/Calstins/teensha/shared"
	"github.com/gofiber/fiber/v2"
)

// TokenVerifier resolves a bearer token to a user id and role.
type TokenVerifier interface {
	ExtractTokenFromHeader(authHeader string) (string, error)
	VerifyToken(token string) (userID, role string, err error)
}

// RequiredAuth rejects requests without a valid bearer token and stores the caller
// in c.Locals under shared.UserID and shared.UserRole.
func RequiredAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := verifier.ExtractTokenFromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			// Browsers cannot set headers on websocket upgrades.
			token = c.Query("token")
			if token == "" || !isUpgrade(c) {
				return shared.ResponseJSON(c, fiber.StatusUnauthorized, "Unauthorized", err.Error())
			}
		}

		userID, role, err := verifier.VerifyToken(token)
		if err != nil {
			return shared.ResponseJSON(c, fiber.StatusUnauthorized, "Unauthorized", "Invalid JWT token")
		}

		c.Locals(shared.UserID, userID)
		c.Locals(shared.UserRole, role)
		return c.Next()
	}
}

// RequireRole allows the request when the caller holds one of roles. It must run
// after RequiredAuth.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := Role(c)
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}
		return shared.ResponseJSON(c, fiber.StatusForbidden, "Forbidden", nil)
	}
}

func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(shared.UserID).(string)
	return id
}

func Role(c *fiber.Ctx) string {
	role, _ := c.Locals(shared.UserRole).(string)
	return role
}

func IsStaff(c *fiber.Ctx) bool {
	role := Role(c)
	return role == shared.RoleStaff || role == shared.RoleAdmin
}

func isUpgrade(c *fiber.Ctx) bool {
	return strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket")
}
