package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// DriveFileScope lets the downstream backup manager create and manage the
// files it uploads, nothing else in the user's Drive.
const DriveFileScope = "https://www.googleapis.com/auth/drive.file"

const (
	DefaultAddr            = ":8080"
	DefaultAppName         = "Frigate Backup Manager"
	DefaultExchangeTimeout = 10 * time.Second
)

// ErrMissingValue marks configuration that must be present before any
// request is served.
var ErrMissingValue = errors.New("missing required configuration")

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// ServerConfig holds the HTTP side of the service
type ServerConfig struct {
	Addr            string        `json:"addr"`
	AppName         string        `json:"appName"`
	ExchangeTimeout time.Duration `json:"exchangeTimeout"`

	// VerifyState binds the callback to the browser that started the flow
	// through a signed state cookie. Off by default: the callback then
	// accepts any request that carries a code.
	VerifyState bool   `json:"verifyState"`
	StateSecret Secret `json:"stateSecret,omitempty"`

	// VerifyDrive looks up the authorized Drive account after the exchange
	// and shows it on the token page.
	VerifyDrive bool `json:"verifyDrive"`
}

// GoogleConfig is the OAuth client registered with Google
type GoogleConfig struct {
	ClientID     string   `json:"clientId"`
	ClientSecret Secret   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectUri"`
	Scopes       []string `json:"scopes"`

	// Endpoint overrides, for tests and emulators
	AuthURL       string `json:"authUrl,omitempty"`
	TokenURL      string `json:"tokenUrl,omitempty"`
	DriveEndpoint string `json:"driveEndpoint,omitempty"`
}

// Config represents the config structure with resolved values
type Config struct {
	Server ServerConfig `json:"server"`
	Google GoogleConfig `json:"google"`
}

// ParseConfigValue parses a JSON value that is either a plain string or an
// {"$env": "VAR_NAME"} reference resolved immediately.
func ParseConfigValue(raw json.RawMessage) (string, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, nil
	}

	var ref map[string]string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", fmt.Errorf("config value must be string or reference object")
	}

	envVar, ok := ref["$env"]
	if !ok {
		return "", fmt.Errorf("unknown reference type in config value")
	}

	value := os.Getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("%w: environment variable %s not set", ErrMissingValue, envVar)
	}
	// Strip surrounding quotes if present (only matching pairs)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return value, nil
}
