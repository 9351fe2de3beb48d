package cookie

import (
	"net/http"
	"time"

	"github.com/dgellow/token-page/internal/envutil"
	"github.com/dgellow/token-page/internal/log"
)

// StateCookie carries the signed OAuth state between /auth/start and
// /auth/callback when state verification is enabled.
const StateCookie = "oauth_state"

// stateCookiePath limits the cookie to the auth endpoints.
const stateCookiePath = "/auth/"

// SetState sets the state cookie. SameSite=Lax is required so the cookie
// survives the top-level redirect back from the provider.
func SetState(w http.ResponseWriter, value string, maxAge time.Duration) {
	secure := !envutil.IsDev()
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    value,
		Path:     stateCookiePath,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})

	log.LogTraceWithFields("cookie", "State cookie set", map[string]any{
		"maxAge": maxAge.String(),
		"secure": secure,
	})
}

// ClearState removes the state cookie
func ClearState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    "",
		Path:     stateCookiePath,
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// GetState retrieves the state cookie value
func GetState(r *http.Request) (string, error) {
	c, err := r.Cookie(StateCookie)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}
