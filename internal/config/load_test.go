package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_CLIENT_ID", "client-123.apps.googleusercontent.com")
	t.Setenv("TEST_CLIENT_SECRET", `"GOCSPX-secret"`)
	t.Setenv("TEST_STATE_SECRET", strings.Repeat("k", 32))

	path := writeConfig(t, `{
		"version": "v0.1",
		"server": {
			"addr": ":9090",
			"exchangeTimeout": "5s",
			"verifyState": true,
			"stateSecret": {"$env": "TEST_STATE_SECRET"}
		},
		"google": {
			"clientId": {"$env": "TEST_CLIENT_ID"},
			"clientSecret": {"$env": "TEST_CLIENT_SECRET"},
			"redirectUri": "https://tokens.example.com/auth/callback"
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, DefaultAppName, cfg.Server.AppName)
	assert.Equal(t, 5*time.Second, cfg.Server.ExchangeTimeout)
	assert.True(t, cfg.Server.VerifyState)
	assert.False(t, cfg.Server.VerifyDrive)
	assert.Equal(t, Secret(strings.Repeat("k", 32)), cfg.Server.StateSecret)
	assert.Equal(t, "client-123.apps.googleusercontent.com", cfg.Google.ClientID)
	assert.Equal(t, Secret("GOCSPX-secret"), cfg.Google.ClientSecret, "matching quotes are stripped")
	assert.Equal(t, "https://tokens.example.com/auth/callback", cfg.Google.RedirectURI)
	assert.Equal(t, []string{DriveFileScope}, cfg.Google.Scopes)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("TEST_CLIENT_SECRET", "GOCSPX-secret")

	tests := []struct {
		name        string
		config      string
		expectError string
		missing     bool
	}{
		{
			name:        "invalid_json",
			config:      `{`,
			expectError: "parsing config JSON",
		},
		{
			name:        "missing_version",
			config:      `{"google": {}}`,
			expectError: "config version is required",
		},
		{
			name:        "unsupported_version",
			config:      `{"version": "v2"}`,
			expectError: "unsupported config version: v2",
		},
		{
			name: "inline_client_secret",
			config: `{"version": "v0.1", "google": {
				"clientId": "id", "clientSecret": "plain", "redirectUri": "https://x.example.com/auth/callback"}}`,
			expectError: "google.clientSecret must use environment variable reference",
		},
		{
			name: "unset_env_reference",
			config: `{"version": "v0.1", "google": {
				"clientId": {"$env": "TEST_UNSET_CLIENT_ID"},
				"clientSecret": {"$env": "TEST_CLIENT_SECRET"},
				"redirectUri": "https://x.example.com/auth/callback"}}`,
			expectError: "environment variable TEST_UNSET_CLIENT_ID not set",
			missing:     true,
		},
		{
			name: "missing_redirect_uri",
			config: `{"version": "v0.1", "google": {
				"clientId": "id",
				"clientSecret": {"$env": "TEST_CLIENT_SECRET"}}}`,
			expectError: "google.redirectUri",
			missing:     true,
		},
		{
			name: "relative_redirect_uri",
			config: `{"version": "v0.1", "google": {
				"clientId": "id",
				"clientSecret": {"$env": "TEST_CLIENT_SECRET"},
				"redirectUri": "/auth/callback"}}`,
			expectError: "google.redirectUri must be an absolute URL",
		},
		{
			name: "bad_timeout",
			config: `{"version": "v0.1", "server": {"exchangeTimeout": "soon"}, "google": {
				"clientId": "id",
				"clientSecret": {"$env": "TEST_CLIENT_SECRET"},
				"redirectUri": "https://x.example.com/auth/callback"}}`,
			expectError: "parsing exchangeTimeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.config))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
			if tt.missing {
				assert.ErrorIs(t, err, ErrMissingValue)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Addr: ":8080", ExchangeTimeout: time.Second},
			Google: GoogleConfig{
				ClientID:     "id",
				ClientSecret: "secret",
				RedirectURI:  "https://x.example.com/auth/callback",
			},
		}
	}

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing_client_id", mutate: func(c *Config) { c.Google.ClientID = "" }, expectError: "google.clientId"},
		{name: "missing_client_secret", mutate: func(c *Config) { c.Google.ClientSecret = "" }, expectError: "google.clientSecret"},
		{name: "bad_token_url", mutate: func(c *Config) { c.Google.TokenURL = "not a url" }, expectError: "google.tokenUrl"},
		{name: "negative_timeout", mutate: func(c *Config) { c.Server.ExchangeTimeout = -time.Second }, expectError: "exchangeTimeout cannot be negative"},
		{
			name: "short_state_secret",
			mutate: func(c *Config) {
				c.Server.VerifyState = true
				c.Server.StateSecret = "short"
			},
			expectError: "stateSecret must be at least 32 characters",
		},
		{
			name:   "state_without_secret_uses_client_secret",
			mutate: func(c *Config) { c.Server.VerifyState = true },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if tt.expectError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultAppName, cfg.Server.AppName)
	assert.Equal(t, DefaultExchangeTimeout, cfg.Server.ExchangeTimeout)
	assert.Equal(t, []string{DriveFileScope}, cfg.Google.Scopes)

	cfg.Google.Scopes = []string{"openid"}
	ApplyDefaults(&cfg)
	assert.Equal(t, []string{"openid"}, cfg.Google.Scopes, "explicit scopes are kept")
}
