package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/dgellow/token-page/internal/config"
	"github.com/dgellow/token-page/internal/cookie"
	"github.com/dgellow/token-page/internal/crypto"
	"github.com/dgellow/token-page/internal/drive"
	"github.com/dgellow/token-page/internal/log"
	"github.com/dgellow/token-page/internal/provider"
)

var (
	errMissingStateCookie = errors.New("state cookie missing")
	errStateMismatch      = errors.New("state parameter does not match cookie")
)

// AccountLookup resolves which account an access token belongs to
type AccountLookup interface {
	Lookup(ctx context.Context, accessToken string) (drive.Account, error)
}

// AuthHandlers serves the two halves of the authorization code flow.
// Nothing is shared between requests: the credential only lives for the
// duration of the callback response.
type AuthHandlers struct {
	exchanger       provider.Exchanger
	accounts        AccountLookup       // nil disables the account line
	stateSigner     *crypto.StateSigner // nil disables state verification
	appName         string
	exchangeTimeout time.Duration
}

// NewAuthHandlers creates new auth handlers with dependency injection
func NewAuthHandlers(
	exchanger provider.Exchanger,
	accounts AccountLookup,
	stateSigner *crypto.StateSigner,
	serverConfig config.ServerConfig,
) *AuthHandlers {
	timeout := serverConfig.ExchangeTimeout
	if timeout <= 0 {
		timeout = config.DefaultExchangeTimeout
	}
	appName := serverConfig.AppName
	if appName == "" {
		appName = config.DefaultAppName
	}

	return &AuthHandlers{
		exchanger:       exchanger,
		accounts:        accounts,
		stateSigner:     stateSigner,
		appName:         appName,
		exchangeTimeout: timeout,
	}
}

// StartHandler redirects the browser to the provider's consent page.
// A fresh state is generated on every call.
func (h *AuthHandlers) StartHandler(w http.ResponseWriter, r *http.Request) {
	var (
		state string
		err   error
	)
	if h.stateSigner != nil {
		state, err = h.stateSigner.Generate()
	} else {
		state, err = crypto.GenerateSecureToken()
	}
	if err != nil {
		log.LogErrorWithFields("auth", "Failed to generate state", map[string]any{
			"error": err.Error(),
		})
		renderError(w, h.appName, http.StatusInternalServerError,
			"Could not start authorization",
			"The server could not generate a state parameter. Please try again.")
		return
	}

	if h.stateSigner != nil {
		cookie.SetState(w, state, h.stateSigner.TTL())
	}

	log.LogDebugWithFields("auth", "Redirecting to provider consent page", map[string]any{
		"stateVerified": h.stateSigner != nil,
	})
	http.Redirect(w, r, h.exchanger.AuthURL(state), http.StatusFound)
}

// CallbackHandler handles the redirect back from the provider
func (h *AuthHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")

	if code == "" {
		if errCode := query.Get("error"); errCode != "" {
			log.LogWarnWithFields("auth", "Provider returned an error", map[string]any{
				"error":             errCode,
				"error_description": query.Get("error_description"),
			})
			renderError(w, h.appName, http.StatusBadRequest,
				"Missing authorization code.",
				fmt.Sprintf("Google did not grant access (%s).", errCode))
			return
		}
		log.LogWarnWithFields("auth", "Callback without authorization code", nil)
		renderError(w, h.appName, http.StatusBadRequest,
			"Missing authorization code.",
			"This page must be opened through the Google consent screen.")
		return
	}

	if h.stateSigner != nil {
		err := h.verifyState(r, query.Get("state"))
		cookie.ClearState(w)
		if err != nil {
			log.LogWarnWithFields("auth", "State verification failed", map[string]any{
				"error": err.Error(),
			})
			renderError(w, h.appName, http.StatusBadRequest,
				"Invalid or expired authorization request.",
				"The request did not come from an authorization started in this browser, or it took too long.")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.exchangeTimeout)
	defer cancel()

	bundle, err := h.exchanger.Exchange(ctx, code)
	if err != nil {
		if errors.Is(err, provider.ErrCodeRejected) {
			log.LogWarnWithFields("auth", "Authorization code rejected", map[string]any{
				"error": err.Error(),
			})
			renderError(w, h.appName, http.StatusBadRequest,
				"Authorization code rejected.",
				"Google rejected the authorization code. Codes expire quickly and can only be used once.")
			return
		}
		log.LogErrorWithFields("auth", "Token exchange failed", map[string]any{
			"error": err.Error(),
		})
		renderError(w, h.appName, http.StatusBadGateway,
			"Could not reach Google.",
			"Exchanging the authorization code with Google failed. Please try again in a moment.")
		return
	}

	tokenJSON, err := bundle.MarshalIndent()
	if err != nil {
		log.LogErrorWithFields("auth", "Failed to encode credential", map[string]any{
			"error": err.Error(),
		})
		renderError(w, h.appName, http.StatusInternalServerError,
			"Could not build token.json",
			"The credential could not be encoded. Please try again.")
		return
	}
	downloadURL, err := bundle.DataURL()
	if err != nil {
		log.LogErrorWithFields("auth", "Failed to encode credential", map[string]any{
			"error": err.Error(),
		})
		renderError(w, h.appName, http.StatusInternalServerError,
			"Could not build token.json",
			"The credential could not be encoded. Please try again.")
		return
	}

	if !bundle.HasRefreshToken() {
		log.LogWarnWithFields("auth", "Provider issued no refresh token", map[string]any{
			"scopes": bundle.Scopes,
		})
	}

	data := TokenPageData{
		AppName:         h.appName,
		TokenJSON:       string(tokenJSON),
		DownloadURL:     template.URL(downloadURL),
		HasRefreshToken: bundle.HasRefreshToken(),
		Account:         h.lookupAccount(ctx, bundle.Token),
	}

	log.LogInfoWithFields("auth", "Credential issued", map[string]any{
		"scopes":          bundle.Scopes,
		"hasRefreshToken": data.HasRefreshToken,
	})
	renderPage(w, tokenPageTemplate, http.StatusOK, data)
}

// verifyState checks that the echoed state matches the signed cookie set
// by StartHandler in this browser.
func (h *AuthHandlers) verifyState(r *http.Request, state string) error {
	cookieState, err := cookie.GetState(r)
	if err != nil || cookieState == "" {
		return errMissingStateCookie
	}
	if subtle.ConstantTimeCompare([]byte(cookieState), []byte(state)) != 1 {
		return errStateMismatch
	}
	return h.stateSigner.Validate(state)
}

// lookupAccount is best effort: the credential is shown even if the
// account cannot be resolved.
func (h *AuthHandlers) lookupAccount(ctx context.Context, accessToken string) *drive.Account {
	if h.accounts == nil {
		return nil
	}
	account, err := h.accounts.Lookup(ctx, accessToken)
	if err != nil {
		log.LogWarnWithFields("auth", "Drive account lookup failed", map[string]any{
			"error": err.Error(),
		})
		return nil
	}
	return &account
}
