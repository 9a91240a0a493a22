package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionsForRole(t *testing.T) {
	super := PermissionsForRole(RoleSuperAdmin)
	assert.Contains(t, super, "admin:all")
	assert.Contains(t, super, "admin:users:write")

	admin := PermissionsForRole(RoleAdmin)
	assert.Contains(t, admin, "admin:listings:write")
	assert.NotContains(t, admin, "admin:all")

	unknown := PermissionsForRole("viewer")
	assert.Equal(t, []string{"admin:access"}, unknown)
}

func TestCreateAdminPersistsInactiveFlag(t *testing.T) {
	db := ingestTestDB(t)

	retired := AdminUser{Email: "retired@riseagain.test", PasswordHash: "x", Role: RoleAdmin, IsActive: false}
	require.NoError(t, db.Create(&retired).Error)

	var loaded AdminUser
	require.NoError(t, db.First(&loaded, retired.ID).Error)
	assert.False(t, loaded.IsActive, "an inactive account must stay inactive after Create")

	active := AdminUser{Email: "active@riseagain.test", PasswordHash: "x", Role: RoleAdmin, IsActive: true}
	require.NoError(t, db.Create(&active).Error)
	// Reset: GORM adds a reused dest struct's primary key as a query condition.
	loaded = AdminUser{}
	require.NoError(t, db.First(&loaded, active.ID).Error)
	assert.True(t, loaded.IsActive)
}

func TestIsValidListingStatus(t *testing.T) {
	for _, s := range ValidListingStatuses {
		assert.True(t, IsValidListingStatus(s))
	}
	assert.False(t, IsValidListingStatus("archived"))
	assert.False(t, IsValidListingStatus(""))
}
