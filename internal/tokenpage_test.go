package internal

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgellow/token-page/internal/config"
	"github.com/dgellow/token-page/internal/credential"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExchanger struct{}

func (fakeExchanger) AuthURL(state string) string {
	return "https://auth.example.com/authorize?state=" + state
}

func (fakeExchanger) Exchange(ctx context.Context, code string) (credential.Bundle, error) {
	if code == "panic" {
		panic("exchanger exploded")
	}
	return credential.Bundle{
		Token:    "A",
		TokenURI: "https://x/token",
		ClientID: "C",
		Scopes:   []string{"scope1"},
		Type:     credential.AuthorizedUserType,
	}, nil
}

func testConfig() config.Config {
	cfg := config.Config{
		Google: config.GoogleConfig{
			ClientID:     "client-id",
			ClientSecret: config.Secret("client-secret"),
			RedirectURI:  "https://tokens.example.com/auth/callback",
		},
	}
	config.ApplyDefaults(&cfg)
	return cfg
}

func TestBuildHTTPHandler_Routes(t *testing.T) {
	handler := buildHTTPHandler(testConfig(), fakeExchanger{}, nil, nil)

	tests := []struct {
		name     string
		method   string
		path     string
		status   int
		location string
	}{
		{name: "health", method: http.MethodGet, path: "/health", status: http.StatusOK},
		{name: "start", method: http.MethodGet, path: "/auth/start", status: http.StatusFound, location: "https://auth.example.com/authorize?state="},
		{name: "callback without code", method: http.MethodGet, path: "/auth/callback", status: http.StatusBadRequest},
		{name: "callback", method: http.MethodGet, path: "/auth/callback?code=ok", status: http.StatusOK},
		{name: "root", method: http.MethodGet, path: "/", status: http.StatusFound, location: "/auth/start"},
		{name: "unknown path", method: http.MethodGet, path: "/nope", status: http.StatusNotFound},
		{name: "post start", method: http.MethodPost, path: "/auth/start", status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
			if tt.location != "" {
				assert.True(t, strings.HasPrefix(rr.Header().Get("Location"), tt.location), rr.Header().Get("Location"))
			}
		})
	}
}

func TestBuildHTTPHandler_RecoversPanics(t *testing.T) {
	handler := buildHTTPHandler(testConfig(), fakeExchanger{}, nil, nil)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/callback?code=panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), config.DefaultAppName)
}

func TestSetupStateSigner(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		signer, err := setupStateSigner(testConfig())
		require.NoError(t, err)
		assert.Nil(t, signer)
	})

	t.Run("keyed from client secret", func(t *testing.T) {
		cfg := testConfig()
		cfg.Server.VerifyState = true

		signer, err := setupStateSigner(cfg)
		require.NoError(t, err)
		require.NotNil(t, signer)
		assert.Equal(t, stateTTL, signer.TTL())

		state, err := signer.Generate()
		require.NoError(t, err)

		again, err := setupStateSigner(cfg)
		require.NoError(t, err)
		assert.NoError(t, again.Validate(state), "same secret must derive the same key")
	})

	t.Run("explicit secret wins", func(t *testing.T) {
		cfg := testConfig()
		cfg.Server.VerifyState = true
		fromClient, err := setupStateSigner(cfg)
		require.NoError(t, err)

		cfg.Server.StateSecret = config.Secret(strings.Repeat("s", 32))
		fromState, err := setupStateSigner(cfg)
		require.NoError(t, err)

		state, err := fromState.Generate()
		require.NoError(t, err)
		assert.Error(t, fromClient.Validate(state))
	})
}

func TestNewTokenPage(t *testing.T) {
	cfg := testConfig()
	cfg.Server.VerifyState = true
	cfg.Server.VerifyDrive = true

	tp, err := NewTokenPage(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, tp.httpServer)
}

func TestTokenPage_ServeStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	cfg := testConfig()
	cfg.Server.Addr = addr
	tp, err := NewTokenPage(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tp.serve(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestTokenPage_ServeReportsListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	cfg := testConfig()
	cfg.Server.Addr = l.Addr().String()
	tp, err := NewTokenPage(context.Background(), cfg)
	require.NoError(t, err)

	err = tp.serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP server error")
}
