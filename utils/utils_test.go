package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"riseagain/config"
	"riseagain/models"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Karen Villa", "karen-villa"},
		{"4-Bedroom Maisonette, Syokimau!", "4-bedroom-maisonette-syokimau"},
		{"  Spaced   Out  ", "spaced-out"},
		{"ALL CAPS", "all-caps"},
		{"***", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeFileName(t *testing.T) {
	assert.Equal(t, "front_view.jpg", NormalizeFileName("front view.jpg"))
	assert.Equal(t, "plan-v2.pdf", NormalizeFileName("plan-v2.pdf"))
	assert.Equal(t, "houseplan.png", NormalizeFileName("house(plan).png"))
	assert.Equal(t, "file", NormalizeFileName("???"))
}

func TestParseUint(t *testing.T) {
	assert.Equal(t, uint(42), ParseUint("42"))
	assert.Equal(t, uint(0), ParseUint("nope"))
	assert.Equal(t, uint(0), ParseUint("-1"))
}

func TestJWTRoundTrip(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	admin := models.AdminUser{
		Model: gorm.Model{ID: 9},
		Email: "admin@riseagain.test",
		Role:  models.RoleSuperAdmin,
	}
	access, refresh, err := GenerateJWTToken(&admin)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	claims, err := ParseJWTToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(9), claims.AdminID)
	assert.Equal(t, models.RoleSuperAdmin, claims.Role)
}

func TestParseJWTTokenRejectsGarbage(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"
	_, err := ParseJWTToken("not.a.token")
	assert.Error(t, err)
}
