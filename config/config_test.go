package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaults(t *testing.T) {
	c := New()
	assert.Equal(t, StorageSession, c.Storage)
	assert.True(t, c.ForceLogoutOnRenewFail)
	assert.Equal(t, 2*time.Second, c.LoginCooldown)
	assert.Equal(t, 200*time.Millisecond, c.NetworkDebounce)
	assert.Equal(t, 60*time.Second, c.ExpiringThreshold)
	assert.Equal(t, 5*time.Second, c.FetchTimeout)
	assert.Equal(t, 10*time.Second, c.ClientTimeout)
	assert.Equal(t, "/login", c.LoginPath)
	assert.Equal(t, "/callback", c.CallbackPath)
	assert.Equal(t, "/exception/401", c.UnauthorizedPath)
	assert.Equal(t, "openid profile offline_access", c.Scope())
}

func TestFromEnv(t *testing.T) {
	t.Setenv("AUTHGATE_AUTHORITY", "https://id.example.com")
	t.Setenv("AUTHGATE_SCOPES", "openid email")
	t.Setenv("AUTHGATE_STORAGE", "persistent")
	t.Setenv("AUTHGATE_STATE_URL", "mem://localhost/state")
	t.Setenv("AUTHGATE_LOGIN_COOLDOWN_MS", "3000")
	t.Setenv("AUTHGATE_FORCE_LOGOUT_ON_RENEW_FAIL", "false")

	c := FromEnv()
	assert.Equal(t, "https://id.example.com", c.Authority)
	assert.Equal(t, []string{"openid", "email"}, c.Scopes)
	assert.Equal(t, StoragePersistent, c.Storage)
	assert.Equal(t, "mem://localhost/state", c.StateURL)
	assert.Equal(t, 3*time.Second, c.LoginCooldown)
	assert.False(t, c.ForceLogoutOnRenewFail)
}

func TestFromEnvClampsTimeouts(t *testing.T) {
	t.Setenv("AUTHGATE_FETCH_TIMEOUT_MS", "1")
	t.Setenv("AUTHGATE_CLIENT_TIMEOUT_MS", "600000")
	c := FromEnv()
	assert.Equal(t, 3*time.Second, c.FetchTimeout)
	assert.Equal(t, time.Minute, c.ClientTimeout)
}

func TestValidateDevelopment(t *testing.T) {
	assert.NoError(t, New().Validate(false))
}

func TestValidateProduction(t *testing.T) {
	c := New()
	err := c.Validate(true)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "AUTHGATE_AUTHORITY")

	c.Authority = "https://id.example.com"
	c.ClientID = "prod-client"
	c.RedirectURI = "https://app.example.com/callback"
	c.PostLogoutRedirectURI = "https://app.example.com/"
	c.SilentRedirectURI = "https://app.example.com/silent-renew"
	assert.NoError(t, c.Validate(true))

	c.Storage = StoragePersistent
	err = c.Validate(true)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "AUTHGATE_STATE_URL")
}
