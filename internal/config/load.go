package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/dgellow/token-page/internal/log"
)

// SupportedVersionPrefix is the config file version this build understands
const SupportedVersionPrefix = "v0.1"

// secretFields must be given as {"$env": ...} references, never inline
var secretFields = []struct {
	section string
	name    string
}{
	{"google", "clientSecret"},
	{"server", "stateSecret"},
}

// Load loads and processes the config with immediate env var resolution
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	version, ok := rawConfig["version"].(string)
	if !ok {
		return Config{}, fmt.Errorf("config version is required")
	}
	if !strings.HasPrefix(version, SupportedVersionPrefix) {
		return Config{}, fmt.Errorf("unsupported config version: %s", version)
	}

	if err := validateRawConfig(rawConfig); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	// The custom UnmarshalJSON methods resolve env vars immediately
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	ApplyDefaults(&config)

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validateRawConfig rejects inline secrets before environment resolution
func validateRawConfig(rawConfig map[string]any) error {
	for _, field := range secretFields {
		section, ok := rawConfig[field.section].(map[string]any)
		if !ok {
			continue
		}
		value, exists := section[field.name]
		if !exists {
			continue
		}
		if _, isString := value.(string); isString {
			return fmt.Errorf("%s.%s must use environment variable reference for security", field.section, field.name)
		}
		if refMap, isMap := value.(map[string]any); isMap {
			if _, hasEnv := refMap["$env"]; !hasEnv {
				return fmt.Errorf("%s.%s must use {\"$env\": \"VAR_NAME\"} format", field.section, field.name)
			}
		}
	}
	return nil
}

// ApplyDefaults fills optional settings left empty
func ApplyDefaults(config *Config) {
	if config.Server.Addr == "" {
		config.Server.Addr = DefaultAddr
	}
	if config.Server.AppName == "" {
		config.Server.AppName = DefaultAppName
	}
	if config.Server.ExchangeTimeout == 0 {
		config.Server.ExchangeTimeout = DefaultExchangeTimeout
	}
	if len(config.Google.Scopes) == 0 {
		config.Google.Scopes = []string{DriveFileScope}
	}
}

// ValidateConfig validates the resolved configuration
func ValidateConfig(config *Config) error {
	if config.Google.ClientID == "" {
		return fmt.Errorf("%w: google.clientId", ErrMissingValue)
	}
	if config.Google.ClientSecret == "" {
		return fmt.Errorf("%w: google.clientSecret", ErrMissingValue)
	}
	if config.Google.RedirectURI == "" {
		return fmt.Errorf("%w: google.redirectUri", ErrMissingValue)
	}

	redirect, err := url.Parse(config.Google.RedirectURI)
	if err != nil || redirect.Scheme == "" || redirect.Host == "" {
		return fmt.Errorf("google.redirectUri must be an absolute URL, got %q", config.Google.RedirectURI)
	}
	if redirect.Path != "/auth/callback" {
		log.LogWarnWithFields("config", "Redirect URI does not point at /auth/callback", map[string]any{
			"redirectUri": config.Google.RedirectURI,
		})
	}

	for _, endpoint := range []struct{ name, value string }{
		{"google.authUrl", config.Google.AuthURL},
		{"google.tokenUrl", config.Google.TokenURL},
		{"google.driveEndpoint", config.Google.DriveEndpoint},
	} {
		if endpoint.value == "" {
			continue
		}
		if u, err := url.Parse(endpoint.value); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", endpoint.name, endpoint.value)
		}
	}

	if config.Server.ExchangeTimeout < 0 {
		return fmt.Errorf("server.exchangeTimeout cannot be negative")
	}
	if config.Server.VerifyState && config.Server.StateSecret != "" && len(config.Server.StateSecret) < 32 {
		return fmt.Errorf("server.stateSecret must be at least 32 characters (got %d). Generate with: openssl rand -base64 32", len(config.Server.StateSecret))
	}

	return nil
}
