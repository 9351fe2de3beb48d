package integration

import (
	"encoding/json"
	"net/http"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"
)

const (
	tokenPageURL   = "http://localhost:8080"
	testConfigVers = "v0.1.0"
)

// testGoogleConfig points the Google section at the fake server
func testGoogleConfig() map[string]any {
	return map[string]any{
		"clientId":      map[string]string{"$env": "GOOGLE_CLIENT_ID"},
		"clientSecret":  map[string]string{"$env": "GOOGLE_CLIENT_SECRET"},
		"redirectUri":   tokenPageURL + "/auth/callback",
		"authUrl":       fakeGoogle.BaseURL() + "/o/oauth2/auth",
		"tokenUrl":      fakeGoogle.BaseURL() + "/token",
		"driveEndpoint": fakeGoogle.BaseURL() + "/drive/v3/",
	}
}

// buildTestConfig builds a complete config map. server may be nil.
func buildTestConfig(server map[string]any) map[string]any {
	if server == nil {
		server = map[string]any{}
	}
	server["addr"] = ":8080"
	return map[string]any{
		"version": testConfigVers,
		"server":  server,
		"google":  testGoogleConfig(),
	}
}

// writeTestConfig writes a config map to a temporary JSON file and returns its path.
// The file is automatically cleaned up when the test finishes.
func writeTestConfig(t *testing.T, cfg map[string]any) string {
	t.Helper()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal test config: %v", err)
	}
	f, err := os.CreateTemp(t.TempDir(), "config-*.json")
	if err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close temp config: %v", err)
	}
	return f.Name()
}

// trace logs a message if TRACE environment variable is set
func trace(t *testing.T, format string, args ...any) {
	if os.Getenv("TRACE") == "1" {
		t.Logf("TRACE: "+format, args...)
	}
}

// startTokenPage starts the server with the given config. An empty
// configPath makes it read its settings from the environment.
func startTokenPage(t *testing.T, configPath string, extraEnv ...string) {
	t.Helper()

	var args []string
	if configPath != "" {
		args = append(args, "-config", configPath)
	}
	cmd := exec.Command("../cmd/token-page/token-page", args...)

	cmd.Env = append(os.Environ(),
		"GOOGLE_CLIENT_ID=test-client-id",
		"GOOGLE_CLIENT_SECRET=test-client-secret",
		"TOKEN_PAGE_ENV=development",
	)
	cmd.Env = append(cmd.Env, extraEnv...)

	if logFile := os.Getenv("TOKEN_PAGE_LOG_FILE"); logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			cmd.Stderr = f
			cmd.Stdout = f
			t.Cleanup(func() { f.Close() })
		}
	}

	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start token-page: %v", err)
	}
	trace(t, "started token-page pid=%d args=%v", cmd.Process.Pid, args)

	t.Cleanup(func() {
		stopTokenPage(cmd)
	})

	waitForTokenPage(t)
}

// stopTokenPage stops the server gracefully
func stopTokenPage(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}

	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-done:
		return
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
}

// waitForTokenPage waits for the server to be ready
func waitForTokenPage(t *testing.T) {
	t.Helper()
	for range 20 {
		resp, err := http.Get(tokenPageURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("token-page failed to become ready at %s", tokenPageURL)
}
