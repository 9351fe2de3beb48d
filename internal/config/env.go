package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig holds raw environment values when no config file is given
type envConfig struct {
	ClientID        string        `env:"GOOGLE_CLIENT_ID"`
	ClientSecret    string        `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURI     string        `env:"GOOGLE_REDIRECT_URI"`
	Scopes          []string      `env:"GOOGLE_SCOPES"                envSeparator:","`
	AuthURL         string        `env:"GOOGLE_OAUTH_AUTH_URL"`
	TokenURL        string        `env:"GOOGLE_OAUTH_TOKEN_URL"`
	DriveEndpoint   string        `env:"GOOGLE_DRIVE_ENDPOINT"`
	Addr            string        `env:"TOKEN_PAGE_ADDR"             envDefault:":8080"`
	AppName         string        `env:"TOKEN_PAGE_APP_NAME"`
	ExchangeTimeout time.Duration `env:"TOKEN_PAGE_EXCHANGE_TIMEOUT" envDefault:"10s"`
	VerifyState     bool          `env:"TOKEN_PAGE_VERIFY_STATE"`
	StateSecret     string        `env:"TOKEN_PAGE_STATE_SECRET"`
	VerifyDrive     bool          `env:"TOKEN_PAGE_VERIFY_DRIVE"`
}

// LoadFromEnv builds the configuration from environment variables alone.
// The Google client id, secret and redirect URI are required.
func LoadFromEnv() (Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	config := Config{
		Server: ServerConfig{
			Addr:            raw.Addr,
			AppName:         raw.AppName,
			ExchangeTimeout: raw.ExchangeTimeout,
			VerifyState:     raw.VerifyState,
			StateSecret:     Secret(raw.StateSecret),
			VerifyDrive:     raw.VerifyDrive,
		},
		Google: GoogleConfig{
			ClientID:      raw.ClientID,
			ClientSecret:  Secret(raw.ClientSecret),
			RedirectURI:   raw.RedirectURI,
			Scopes:        raw.Scopes,
			AuthURL:       raw.AuthURL,
			TokenURL:      raw.TokenURL,
			DriveEndpoint: raw.DriveEndpoint,
		},
	}

	ApplyDefaults(&config)

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}
