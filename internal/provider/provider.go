package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dgellow/token-page/internal/credential"
	"golang.org/x/oauth2"
)

// ErrCodeRejected means the provider refused the authorization code
// (expired, already used, or issued to another client). Retrying with the
// same code cannot succeed; the user has to start the flow again.
var ErrCodeRejected = errors.New("authorization code rejected")

// Exchanger abstracts the provider side of the authorization code flow.
type Exchanger interface {
	// AuthURL returns the consent URL the browser is redirected to.
	AuthURL(state string) string

	// Exchange trades an authorization code for a credential bundle.
	Exchange(ctx context.Context, code string) (credential.Bundle, error)
}

// classifyExchangeError wraps err with ErrCodeRejected when the token
// endpoint answered with a client error.
func classifyExchangeError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		rejected := re.ErrorCode == "invalid_grant"
		if re.Response != nil {
			switch re.Response.StatusCode {
			case http.StatusBadRequest, http.StatusUnauthorized:
				rejected = true
			}
		}
		if rejected {
			return fmt.Errorf("%w: %w", ErrCodeRejected, err)
		}
	}
	return fmt.Errorf("token exchange failed: %w", err)
}
