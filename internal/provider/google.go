package provider

import (
	"context"

	"github.com/dgellow/token-page/internal/config"
	"github.com/dgellow/token-page/internal/credential"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Google implements Exchanger for Google OAuth.
// Google only returns a refresh token on repeat consents when the request
// asks for offline access and forces the consent prompt.
type Google struct {
	config oauth2.Config
}

var _ Exchanger = (*Google)(nil)

// NewGoogle creates a Google exchanger from the configured OAuth client.
func NewGoogle(cfg config.GoogleConfig) *Google {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	return &Google{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: string(cfg.ClientSecret),
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
	}
}

// AuthURL generates the authorization URL.
func (p *Google) AuthURL(state string) string {
	return p.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// Exchange exchanges an authorization code for a credential bundle.
func (p *Google) Exchange(ctx context.Context, code string) (credential.Bundle, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return credential.Bundle{}, classifyExchangeError(err)
	}

	return credential.FromToken(token, credential.Client{
		ID:       p.config.ClientID,
		Secret:   p.config.ClientSecret,
		TokenURI: p.config.Endpoint.TokenURL,
	}, p.config.Scopes)
}
