package provider

import (
	"context"
	"errors"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dgellow/token-page/internal/config"
	"github.com/dgellow/token-page/internal/credential"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGoogleConfig(tokenURL string) config.GoogleConfig {
	return config.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: config.Secret("client-secret"),
		RedirectURI:  "https://tokens.example.com/auth/callback",
		Scopes:       []string{config.DriveFileScope},
		TokenURL:     tokenURL,
	}
}

func TestGoogle_AuthURL(t *testing.T) {
	p := NewGoogle(testGoogleConfig(""))

	authURL := p.AuthURL("test-state")

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "/o/oauth2/auth", u.Path)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "https://tokens.example.com/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, config.DriveFileScope, q.Get("scope"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "true", q.Get("include_granted_scopes"))
	assert.Equal(t, "test-state", q.Get("state"))

	assert.Contains(t, authURL, "redirect_uri=https%3A%2F%2Ftokens.example.com%2Fauth%2Fcallback")
}

func TestGoogle_AuthURLOverride(t *testing.T) {
	cfg := testGoogleConfig("")
	cfg.AuthURL = "http://127.0.0.1:9000/authorize"

	authURL := NewGoogle(cfg).AuthURL("s")
	assert.Contains(t, authURL, "http://127.0.0.1:9000/authorize?")
}

func TestGoogle_Exchange(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/token", r.URL.Path)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "test-code", r.FormValue("code"))
		assert.Equal(t, "client-id", r.FormValue("client_id"))
		assert.Equal(t, "client-secret", r.FormValue("client_secret"))
		assert.Equal(t, "https://tokens.example.com/auth/callback", r.FormValue("redirect_uri"))
		assert.Equal(t, "authorization_code", r.FormValue("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "mock-access-token",
			"refresh_token": "mock-refresh-token",
			"token_type":    "Bearer",
			"expires_in":    3599,
			"scope":         config.DriveFileScope,
		})
	}))
	defer tokenServer.Close()

	p := NewGoogle(testGoogleConfig(tokenServer.URL + "/token"))

	bundle, err := p.Exchange(context.Background(), "test-code")
	require.NoError(t, err)

	assert.Equal(t, "mock-access-token", bundle.Token)
	require.NotNil(t, bundle.RefreshToken)
	assert.Equal(t, "mock-refresh-token", *bundle.RefreshToken)
	assert.Equal(t, tokenServer.URL+"/token", bundle.TokenURI)
	assert.Equal(t, "client-id", bundle.ClientID)
	assert.Equal(t, "client-secret", bundle.ClientSecret)
	assert.Equal(t, []string{config.DriveFileScope}, bundle.Scopes)
	assert.Equal(t, credential.AuthorizedUserType, bundle.Type)
}

func TestGoogle_ExchangeDefaultTokenURI(t *testing.T) {
	p := NewGoogle(testGoogleConfig(""))
	assert.Equal(t, "https://oauth2.googleapis.com/token", p.config.Endpoint.TokenURL)
}

func TestGoogle_ExchangeErrors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantRejected bool
	}{
		{
			name:         "reused code",
			status:       http.StatusBadRequest,
			body:         `{"error":"invalid_grant","error_description":"Bad Request"}`,
			wantRejected: true,
		},
		{
			name:         "wrong client",
			status:       http.StatusUnauthorized,
			body:         `{"error":"invalid_client"}`,
			wantRejected: true,
		},
		{
			name:         "provider outage",
			status:       http.StatusServiceUnavailable,
			body:         `{"error":"temporarily_unavailable"}`,
			wantRejected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer tokenServer.Close()

			p := NewGoogle(testGoogleConfig(tokenServer.URL))

			_, err := p.Exchange(context.Background(), "used-code")
			require.Error(t, err)
			assert.Equal(t, tt.wantRejected, errorIsRejected(err))
		})
	}
}

func TestGoogle_ExchangeTimeout(t *testing.T) {
	release := make(chan struct{})
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer tokenServer.Close()
	defer close(release)

	p := NewGoogle(testGoogleConfig(tokenServer.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Exchange(ctx, "slow-code")
	require.Error(t, err)
	assert.False(t, errorIsRejected(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGoogle_ExchangeMissingAccessToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer tokenServer.Close()

	_, err := NewGoogle(testGoogleConfig(tokenServer.URL)).Exchange(context.Background(), "code")
	require.Error(t, err)
}

func errorIsRejected(err error) bool {
	return errors.Is(err, ErrCodeRejected)
}
