package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin roles
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// AdminUser is a dashboard operator account
type AdminUser struct {
	gorm.Model
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Role         string     `gorm:"default:admin" json:"role"`
	// No column default: GORM skips zero-value fields that carry one, which
	// would make Create unable to persist an inactive account.
	IsActive bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// PermissionsForRole maps a role to its permission strings.
func PermissionsForRole(role string) []string {
	switch role {
	case RoleSuperAdmin:
		return []string{"admin:access", "admin:users:write", "admin:settings:write", "admin:all"}
	case RoleAdmin:
		return []string{"admin:access", "admin:listings:write", "admin:users:read"}
	default:
		return []string{"admin:access"}
	}
}
