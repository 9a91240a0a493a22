package controller

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"riseagain/config"
	"riseagain/models"
	"riseagain/utils"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreateAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=admin super_admin"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	Admin        *models.AdminUser `json:"admin"`
	Permissions  []string          `json:"permissions"`
}

// Login verifies admin credentials and issues a token pair.
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))

	// Don't leak whether the email exists
	var admin models.AdminUser
	if err := config.DB.Where("email = ?", email).First(&admin).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid email or password",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid email or password",
		})
	}

	if !admin.IsActive {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Account is not active",
		})
	}

	// Best-effort; login must not fail on this
	config.DB.Model(&admin).Update("last_login_at", time.Now())

	accessToken, refreshToken, err := utils.GenerateJWTToken(&admin)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate tokens", err)
	}

	return c.JSON(AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Admin:        &admin,
		Permissions:  models.PermissionsForRole(admin.Role),
	})
}

// RefreshToken re-issues a token pair from a valid refresh token.
func RefreshToken(c *fiber.Ctx) error {
	var req RefreshTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	accessToken, refreshToken, err := utils.RefreshTokens(req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired refresh token",
		})
	}

	return c.JSON(fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// GetCurrentAdmin returns the authenticated admin's profile.
func GetCurrentAdmin(c *fiber.Ctx) error {
	admin := c.Locals("admin").(*models.AdminUser)
	return c.JSON(fiber.Map{
		"admin":       admin,
		"permissions": models.PermissionsForRole(admin.Role),
	})
}

func bootstrapKeyValid(c *fiber.Ctx) bool {
	got := c.Get("X-Admin-Bootstrap-Key")
	return subtle.ConstantTimeCompare([]byte(got), []byte(config.AppConfig.AdminBootstrapKey)) == 1
}

// CreateAdmin provisions an admin account. Guarded by the bootstrap key
// header rather than a session so the first account can be created.
func CreateAdmin(c *fiber.Ctx) error {
	if !bootstrapKeyValid(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	}

	var req CreateAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	role := req.Role
	if role == "" {
		role = models.RoleAdmin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to hash password", err)
	}

	admin := models.AdminUser{
		Email:        strings.TrimSpace(strings.ToLower(req.Email)),
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	if err := config.DB.Create(&admin).Error; err != nil {
		// Likely unique violation on email
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "email already exists",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    admin.ID,
		"email": admin.Email,
		"role":  admin.Role,
	})
}

// ResetAdminPassword replaces an admin's password. Bootstrap-key guarded.
func ResetAdminPassword(c *fiber.Ctx) error {
	if !bootstrapKeyValid(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "unauthorized",
		})
	}

	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to hash password", err)
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	result := config.DB.Model(&models.AdminUser{}).Where("email = ?", email).Update("password_hash", string(hash))
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to reset password", result.Error)
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not found",
		})
	}

	return c.JSON(fiber.Map{"ok": true})
}
