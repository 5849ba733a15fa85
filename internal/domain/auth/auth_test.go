package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"konditer/internal/core/clock"
	"konditer/internal/core/security"
	"konditer/internal/domain/auth"
)

func TestJWT_RoundTrip(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC))
	svc := auth.NewJWTService(auth.DefaultJWTConfig("secret"), clk)

	token, expires, err := svc.GenerateAccessToken("u-1", "baker@example.com", []string{security.RoleProduction})
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(15*time.Minute), expires)

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.UserID)
	assert.True(t, user.Capabilities.Has(security.CapProductionOperate))
	assert.False(t, user.Capabilities.Has(security.CapProductionRevert))
}

func TestJWT_Rejects(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC))
	svc := auth.NewJWTService(auth.DefaultJWTConfig("secret"), clk)
	token, _, err := svc.GenerateAccessToken("u-1", "", []string{security.RoleViewer})
	require.NoError(t, err)

	other := auth.NewJWTService(auth.DefaultJWTConfig("another"), clk)
	_, err = other.ValidateToken(token)
	assert.Error(t, err)

	clk.Advance(16 * time.Minute)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestMaintenanceKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	require.NoError(t, err)

	key, err := auth.NewMaintenanceKey(string(hash))
	require.NoError(t, err)
	assert.True(t, key.Enabled())
	assert.True(t, key.Verify("open-sesame"))
	assert.False(t, key.Verify("guess"))

	disabled, err := auth.NewMaintenanceKey("")
	require.NoError(t, err)
	assert.False(t, disabled.Enabled())

	_, err = auth.NewMaintenanceKey("plain-text")
	assert.Error(t, err)
}
