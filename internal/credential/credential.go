// Package credential defines the token.json document handed to the
// downstream application. Its field names, order and the "type" literal
// match the stored-credential format of Google's "authorized_user"
// credentials and must not change.
package credential

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// AuthorizedUserType is the fixed value of the "type" field
const AuthorizedUserType = "authorized_user"

// Bundle is the credential produced by one successful code exchange. It is
// rendered into the response and never stored.
type Bundle struct {
	Token        string   `json:"token"`
	RefreshToken *string  `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Type         string   `json:"type"`
}

// Client identifies the OAuth client that performed the exchange
type Client struct {
	ID       string
	Secret   string
	TokenURI string
}

// FromToken builds a Bundle from an exchanged token. Granted scopes come
// from the token response's "scope" field; requested is used when the
// provider did not report them.
func FromToken(token *oauth2.Token, client Client, requested []string) (Bundle, error) {
	if token == nil || token.AccessToken == "" {
		return Bundle{}, fmt.Errorf("token response has no access token")
	}

	b := Bundle{
		Token:        token.AccessToken,
		TokenURI:     client.TokenURI,
		ClientID:     client.ID,
		ClientSecret: client.Secret,
		Scopes:       GrantedScopes(token, requested),
		Type:         AuthorizedUserType,
	}
	if token.RefreshToken != "" {
		refresh := token.RefreshToken
		b.RefreshToken = &refresh
	}
	return b, nil
}

// GrantedScopes returns the scopes listed in the token response, falling
// back to requested. The result is never nil so it encodes as [].
func GrantedScopes(token *oauth2.Token, requested []string) []string {
	if token != nil {
		if raw, ok := token.Extra("scope").(string); ok {
			if granted := strings.Fields(raw); len(granted) > 0 {
				return granted
			}
		}
	}
	scopes := make([]string, len(requested))
	copy(scopes, requested)
	return scopes
}

// HasRefreshToken reports whether the provider issued a refresh token.
// Without one the downstream application stops working once the access
// token expires.
func (b Bundle) HasRefreshToken() bool {
	return b.RefreshToken != nil && *b.RefreshToken != ""
}

// MarshalIndent renders the bundle as two-space indented JSON. HTML
// characters are left as-is; callers embed the result through html/template.
func (b Bundle) MarshalIndent() ([]byte, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("failed to encode credential: %w", err)
	}
	return []byte(strings.TrimSuffix(sb.String(), "\n")), nil
}

// DataURL returns the indented JSON as a data: URL for the download link
func (b Bundle) DataURL() (string, error) {
	data, err := b.MarshalIndent()
	if err != nil {
		return "", err
	}
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString(data), nil
}
