package config

import (
	"fmt"
	"strings"
	"time"
)

// Storage selects where credentials and trace state live.
type Storage string

const (
	// StorageSession keeps state in memory only, scoped to the process.
	StorageSession Storage = "session"
	// StoragePersistent keeps state on the configured storage URL so it
	// survives restarts.
	StoragePersistent Storage = "persistent"
)

// Config is the environment configuration surface of the module. All
// fields have safe development defaults; Validate enforces that
// security-critical values are provided explicitly in production.
type Config struct {
	Authority             string
	ClientID              string
	RedirectURI           string
	PostLogoutRedirectURI string
	SilentRedirectURI     string
	Scopes                []string

	APIBaseURL string

	Storage    Storage
	StateURL   string // afs URL backing persistent storage, e.g. file:///home/user/.authgate
	LoadedOnce bool   `json:"-"`

	ForceLogoutOnRenewFail bool

	LoginCooldown     time.Duration
	NetworkDebounce   time.Duration
	ExpiringThreshold time.Duration
	FetchTimeout      time.Duration
	ClientTimeout     time.Duration
	RecoveryConfirm   time.Duration

	LoginPath        string
	CallbackPath     string
	UnauthorizedPath string

	LogLevel             string
	PersistentLogURL     string
	PersistentLogSample  float64
	PersistentLogEnabled bool
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Authority:              "http://localhost:9000",
		ClientID:               "spa-client",
		RedirectURI:            "http://localhost:5173/callback",
		PostLogoutRedirectURI:  "http://localhost:5173/",
		SilentRedirectURI:      "http://localhost:5173/silent-renew",
		Scopes:                 []string{"openid", "profile", "offline_access"},
		APIBaseURL:             "http://localhost:9000/",
		Storage:                StorageSession,
		ForceLogoutOnRenewFail: true,
		LoginCooldown:          2 * time.Second,
		NetworkDebounce:        200 * time.Millisecond,
		ExpiringThreshold:      60 * time.Second,
		FetchTimeout:           5 * time.Second,
		ClientTimeout:          10 * time.Second,
		RecoveryConfirm:        5 * time.Second,
		LoginPath:              "/login",
		CallbackPath:           "/callback",
		UnauthorizedPath:       "/exception/401",
		LogLevel:               "info",
		PersistentLogURL:       "mem://localhost/authgate/diagnostic.log",
		PersistentLogSample:    1.0,
		PersistentLogEnabled:   true,
	}
}

// FromEnv resolves a Config from AUTHGATE_* environment variables on top
// of the defaults.
func FromEnv() *Config {
	c := New()
	c.Authority = envString("AUTHGATE_AUTHORITY", c.Authority)
	c.ClientID = envString("AUTHGATE_CLIENT_ID", c.ClientID)
	c.RedirectURI = envString("AUTHGATE_REDIRECT_URI", c.RedirectURI)
	c.PostLogoutRedirectURI = envString("AUTHGATE_POST_LOGOUT_REDIRECT_URI", c.PostLogoutRedirectURI)
	c.SilentRedirectURI = envString("AUTHGATE_SILENT_REDIRECT_URI", c.SilentRedirectURI)
	if scopes := envString("AUTHGATE_SCOPES", ""); scopes != "" {
		c.Scopes = strings.Fields(scopes)
	}
	c.APIBaseURL = envString("AUTHGATE_API_BASE_URL", c.APIBaseURL)
	if storage := envString("AUTHGATE_STORAGE", ""); storage == string(StoragePersistent) {
		c.Storage = StoragePersistent
	}
	c.StateURL = envString("AUTHGATE_STATE_URL", c.StateURL)
	c.ForceLogoutOnRenewFail = envBool("AUTHGATE_FORCE_LOGOUT_ON_RENEW_FAIL", c.ForceLogoutOnRenewFail)
	c.LoginCooldown = envDuration("AUTHGATE_LOGIN_COOLDOWN_MS", c.LoginCooldown, 0, time.Minute)
	c.NetworkDebounce = envDuration("AUTHGATE_NETWORK_DEBOUNCE_MS", c.NetworkDebounce, 0, 5*time.Second)
	c.ExpiringThreshold = envDuration("AUTHGATE_EXPIRING_THRESHOLD_MS", c.ExpiringThreshold, time.Second, 10*time.Minute)
	c.FetchTimeout = envDuration("AUTHGATE_FETCH_TIMEOUT_MS", c.FetchTimeout, 3*time.Second, time.Minute)
	c.ClientTimeout = envDuration("AUTHGATE_CLIENT_TIMEOUT_MS", c.ClientTimeout, 3*time.Second, time.Minute)
	c.LogLevel = envString("AUTHGATE_LOG_LEVEL", c.LogLevel)
	c.PersistentLogURL = envString("AUTHGATE_PERSISTENT_LOG_URL", c.PersistentLogURL)
	c.PersistentLogSample = envFloat("AUTHGATE_PERSISTENT_LOG_SAMPLE_RATE", c.PersistentLogSample, 0, 1)
	c.PersistentLogEnabled = envBool("AUTHGATE_ENABLE_PERSISTENT_LOG", c.PersistentLogEnabled)
	return c
}

// Validate checks the configuration. In production mode any
// security-critical value left at its default is a hard failure.
func (c *Config) Validate(production bool) error {
	if !production {
		return nil
	}
	defaults := New()
	critical := []struct {
		key      string
		value    string
		fallback string
	}{
		{"AUTHGATE_AUTHORITY", c.Authority, defaults.Authority},
		{"AUTHGATE_CLIENT_ID", c.ClientID, defaults.ClientID},
		{"AUTHGATE_REDIRECT_URI", c.RedirectURI, defaults.RedirectURI},
		{"AUTHGATE_POST_LOGOUT_REDIRECT_URI", c.PostLogoutRedirectURI, defaults.PostLogoutRedirectURI},
		{"AUTHGATE_SILENT_REDIRECT_URI", c.SilentRedirectURI, defaults.SilentRedirectURI},
	}
	for _, item := range critical {
		if item.value == "" || item.value == item.fallback {
			return fmt.Errorf("config: %v must be set explicitly in production", item.key)
		}
	}
	if c.Storage == StoragePersistent && c.StateURL == "" {
		return fmt.Errorf("config: AUTHGATE_STATE_URL is required with persistent storage")
	}
	return nil
}

// Scope returns the configured scopes as a single space separated value.
func (c *Config) Scope() string {
	return strings.Join(c.Scopes, " ")
}
