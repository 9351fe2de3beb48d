package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// UnmarshalJSON implements custom unmarshaling for ServerConfig
func (s *ServerConfig) UnmarshalJSON(data []byte) error {
	type rawServer struct {
		Addr            string          `json:"addr"`
		AppName         string          `json:"appName"`
		ExchangeTimeout string          `json:"exchangeTimeout"`
		VerifyState     bool            `json:"verifyState"`
		StateSecret     json.RawMessage `json:"stateSecret,omitempty"`
		VerifyDrive     bool            `json:"verifyDrive"`
	}

	var raw rawServer
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Addr = raw.Addr
	s.AppName = raw.AppName
	s.VerifyState = raw.VerifyState
	s.VerifyDrive = raw.VerifyDrive

	if raw.ExchangeTimeout != "" {
		timeout, err := time.ParseDuration(raw.ExchangeTimeout)
		if err != nil {
			return fmt.Errorf("parsing exchangeTimeout: %w", err)
		}
		s.ExchangeTimeout = timeout
	}

	if raw.StateSecret != nil {
		secret, err := ParseConfigValue(raw.StateSecret)
		if err != nil {
			return fmt.Errorf("parsing stateSecret: %w", err)
		}
		s.StateSecret = Secret(secret)
	}

	return nil
}

// UnmarshalJSON implements custom unmarshaling for GoogleConfig
func (g *GoogleConfig) UnmarshalJSON(data []byte) error {
	type rawGoogle struct {
		ClientID      json.RawMessage `json:"clientId"`
		ClientSecret  json.RawMessage `json:"clientSecret"`
		RedirectURI   json.RawMessage `json:"redirectUri"`
		Scopes        []string        `json:"scopes"`
		AuthURL       string          `json:"authUrl,omitempty"`
		TokenURL      string          `json:"tokenUrl,omitempty"`
		DriveEndpoint string          `json:"driveEndpoint,omitempty"`
	}

	var raw rawGoogle
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	g.Scopes = raw.Scopes
	g.AuthURL = raw.AuthURL
	g.TokenURL = raw.TokenURL
	g.DriveEndpoint = raw.DriveEndpoint

	fields := []struct {
		name string
		raw  json.RawMessage
		dst  *string
	}{
		{"clientId", raw.ClientID, &g.ClientID},
		{"redirectUri", raw.RedirectURI, &g.RedirectURI},
	}
	for _, f := range fields {
		if f.raw == nil {
			continue
		}
		value, err := ParseConfigValue(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", f.name, err)
		}
		*f.dst = value
	}

	if raw.ClientSecret != nil {
		secret, err := ParseConfigValue(raw.ClientSecret)
		if err != nil {
			return fmt.Errorf("parsing clientSecret: %w", err)
		}
		g.ClientSecret = Secret(secret)
	}

	return nil
}
