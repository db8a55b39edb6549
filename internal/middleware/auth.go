package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ozidan13/codehub/pkg/utils"
)

func abort(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{"code": code, "message": message},
	})
}

// AuthRequired validates the bearer token and stores user_id and role in
// the request locals.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return abort(c, fiber.StatusUnauthorized, "Unauthorized", "Missing authorization header")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return abort(c, fiber.StatusUnauthorized, "Unauthorized", "Invalid authorization header format")
		}

		claims, err := utils.ValidateToken(parts[1], secret)
		if err != nil {
			return abort(c, fiber.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
		}

		role := strings.ToUpper(claims.Role)
		if role != utils.RoleStudent && role != utils.RoleAdmin {
			return abort(c, fiber.StatusForbidden, "Forbidden", "Unknown role")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", role)

		return c.Next()
	}
}

// RequireRole must run after AuthRequired.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}
		return abort(c, fiber.StatusForbidden, "Forbidden", "Forbidden")
	}
}
