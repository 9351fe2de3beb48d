package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// FakeGoogleServer stands in for Google's consent page, token endpoint and
// Drive about endpoint. Each authorization code can be redeemed once.
type FakeGoogleServer struct {
	server *http.Server
	port   string

	mu       sync.Mutex
	redeemed map[string]bool
	issued   int
}

// NewFakeGoogleServer creates a new fake Google server
func NewFakeGoogleServer(port string) *FakeGoogleServer {
	f := &FakeGoogleServer{
		port:     port,
		redeemed: map[string]bool{},
	}

	mux := http.NewServeMux()

	// The consent screen approves immediately with a fresh code
	mux.HandleFunc("/o/oauth2/auth", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f.mu.Lock()
		f.issued++
		code := fmt.Sprintf("test-auth-code-%d", f.issued)
		f.mu.Unlock()

		target := q.Get("redirect_uri") + "?" + url.Values{
			"code":  {code},
			"state": {q.Get("state")},
			"scope": {q.Get("scope")},
		}.Encode()
		http.Redirect(w, r, target, http.StatusFound)
	})

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		code := r.FormValue("code")
		f.mu.Lock()
		valid := strings.HasPrefix(code, "test-auth-code-") && !f.redeemed[code]
		f.redeemed[code] = true
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if !valid {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":             "invalid_grant",
				"error_description": "Bad Request",
			})
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "test-access-token",
			"refresh_token": "test-refresh-token",
			"token_type":    "Bearer",
			"expires_in":    3599,
			"scope":         "https://www.googleapis.com/auth/drive.file",
		})
	})

	mux.HandleFunc("/drive/v3/about", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{
				"displayName":  "Test User",
				"emailAddress": "test@test.com",
			},
		})
	})

	f.server = &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}
	return f
}

// BaseURL returns the root URL of the fake
func (f *FakeGoogleServer) BaseURL() string {
	return "http://localhost:" + f.port
}

// Start starts the fake Google server
func (f *FakeGoogleServer) Start() error {
	go func() {
		if err := f.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	time.Sleep(100 * time.Millisecond)
	return nil
}

// Stop stops the fake Google server
func (f *FakeGoogleServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return f.server.Shutdown(ctx)
}
