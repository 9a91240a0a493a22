package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"riseagain/config"
	"riseagain/models"
	"riseagain/utils"
)

func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Try to get token from Authorization header first
		var token string
		authHeader := c.Get("Authorization")
		if authHeader != "" {
			// Check if it's a Bearer token
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid authorization format",
				})
			}
			token = tokenParts[1]
		} else {
			// Fall back to cookie if header not present
			token = c.Cookies("access_token")
			if token == "" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Authorization required",
				})
			}
		}

		// Parse and validate JWT
		claims, err := utils.ParseJWTToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		// Find the admin account
		var admin models.AdminUser
		if err := config.DB.First(&admin, claims.AdminID).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Admin not found",
			})
		}

		if !admin.IsActive {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Account is not active",
			})
		}

		// Add admin identity to context
		c.Locals("admin", &admin)
		c.Locals("adminID", admin.ID)

		return c.Next()
	}
}

// RequireSuperAdmin limits a route to super_admin accounts. Must run
// after Protected.
func RequireSuperAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, ok := c.Locals("admin").(*models.AdminUser)
		if !ok || admin.Role != models.RoleSuperAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Super admin access required",
			})
		}
		return c.Next()
	}
}
