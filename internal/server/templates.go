package server

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"github.com/dgellow/token-page/internal/drive"
	"github.com/dgellow/token-page/internal/log"
)

//go:embed templates/token.html
var tokenPageTemplateHTML string

//go:embed templates/error.html
var errorPageTemplateHTML string

var tokenPageTemplate = template.Must(template.New("token").Parse(tokenPageTemplateHTML))
var errorPageTemplate = template.Must(template.New("error").Parse(errorPageTemplateHTML))

// TokenPageData represents the data for the credential page
type TokenPageData struct {
	AppName         string
	TokenJSON       string
	DownloadURL     template.URL // data: URL built from TokenJSON
	HasRefreshToken bool
	Account         *drive.Account
}

// ErrorPageData represents the data for an error page
type ErrorPageData struct {
	AppName    string
	Status     int
	Title      string
	Message    string
	RestartURL string
}

// renderPage executes tmpl into a buffer first so a template failure can
// still produce a clean 500.
func renderPage(w http.ResponseWriter, tmpl *template.Template, status int, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.LogErrorWithFields("render", "Failed to render page", map[string]any{
			"template": tmpl.Name(),
			"error":    err.Error(),
		})
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func renderError(w http.ResponseWriter, appName string, status int, title, message string) {
	renderPage(w, errorPageTemplate, status, ErrorPageData{
		AppName:    appName,
		Status:     status,
		Title:      title,
		Message:    message,
		RestartURL: "/auth/start",
	})
}
