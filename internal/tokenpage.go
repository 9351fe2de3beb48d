package internal

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgellow/token-page/internal/config"
	"github.com/dgellow/token-page/internal/crypto"
	"github.com/dgellow/token-page/internal/drive"
	"github.com/dgellow/token-page/internal/log"
	"github.com/dgellow/token-page/internal/provider"
	"github.com/dgellow/token-page/internal/server"
	"golang.org/x/sync/errgroup"
)

const (
	// stateTTL bounds how long a user may sit on the consent screen
	stateTTL = 10 * time.Minute

	shutdownTimeout = 10 * time.Second
)

// TokenPage represents the complete token issuing application
type TokenPage struct {
	config     config.Config
	httpServer *server.HTTPServer
}

// NewTokenPage creates the application with all dependencies built
func NewTokenPage(ctx context.Context, cfg config.Config) (*TokenPage, error) {
	log.LogInfoWithFields("tokenpage", "Building token page application", map[string]any{
		"addr":        cfg.Server.Addr,
		"redirectUri": cfg.Google.RedirectURI,
		"scopes":      cfg.Google.Scopes,
	})

	exchanger := provider.NewGoogle(cfg.Google)

	stateSigner, err := setupStateSigner(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup state verification: %w", err)
	}

	var accounts server.AccountLookup
	if cfg.Server.VerifyDrive {
		accounts = drive.NewAccountChecker(cfg.Google.DriveEndpoint)
	}

	handler := buildHTTPHandler(cfg, exchanger, accounts, stateSigner)

	return &TokenPage{
		config:     cfg,
		httpServer: server.NewHTTPServer(handler, cfg.Server.Addr),
	}, nil
}

// setupStateSigner returns nil when state verification is off
func setupStateSigner(cfg config.Config) (*crypto.StateSigner, error) {
	if !cfg.Server.VerifyState {
		log.LogWarnWithFields("tokenpage", "OAuth state is not verified on callback", map[string]any{
			"hint": "set server.verifyState to bind callbacks to the browser that started them",
		})
		return nil, nil
	}

	secret := cfg.Server.StateSecret
	if secret == "" {
		secret = cfg.Google.ClientSecret
	}
	key, err := crypto.DeriveKey([]byte(secret), "oauth-state")
	if err != nil {
		return nil, err
	}
	return crypto.NewStateSigner(key, stateTTL), nil
}

// buildHTTPHandler wires routes and middleware
func buildHTTPHandler(
	cfg config.Config,
	exchanger provider.Exchanger,
	accounts server.AccountLookup,
	stateSigner *crypto.StateSigner,
) http.Handler {
	authHandlers := server.NewAuthHandlers(exchanger, accounts, stateSigner, cfg.Server)

	mux := http.NewServeMux()
	mux.Handle("GET /health", server.NewHealthHandler())
	mux.HandleFunc("GET /auth/start", authHandlers.StartHandler)
	mux.HandleFunc("GET /auth/callback", authHandlers.CallbackHandler)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/auth/start", http.StatusFound)
	})

	return server.ChainMiddleware(mux,
		server.NewSecurityHeadersMiddleware(),
		server.NewLoggerMiddleware("http"),
		server.NewRecoverMiddleware("http", cfg.Server.AppName),
	)
}

// Run serves until the server fails or SIGINT/SIGTERM arrives
func (t *TokenPage) Run() error {
	log.LogInfoWithFields("tokenpage", "Starting token page application", map[string]any{
		"addr": t.config.Server.Addr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return t.serve(ctx)
}

func (t *TokenPage) serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := t.httpServer.Start(); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		reason := "server stopped"
		if ctx.Err() != nil {
			reason = "shutdown requested"
		}
		log.LogInfoWithFields("tokenpage", "Shutting down", map[string]any{
			"reason": reason,
		})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := t.httpServer.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.LogInfoWithFields("tokenpage", "Token page application stopped", nil)
	return nil
}
