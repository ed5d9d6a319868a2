// Package views renderiza las páginas HTML de login y consentimiento.
package views

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

//go:embed *.html
var files embed.FS

var pages = template.Must(template.ParseFS(files, "*.html"))

// LoginPage son los datos del formulario de login.
type LoginPage struct {
	Next     string
	Username string
	Error    string
}

// ConsentPage son los datos del formulario de consentimiento.
type ConsentPage struct {
	Token      string
	ClientName string
	ClientURL  string
	Scopes     []string
}

// Login renderiza login.html con status.
func Login(w http.ResponseWriter, status int, p LoginPage) { render(w, status, "login.html", p) }

// Consent renderiza consent.html.
func Consent(w http.ResponseWriter, p ConsentPage) { render(w, http.StatusOK, "consent.html", p) }

func render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Options", "DENY")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		logger.L().Error("template render failed", logger.Component("views"), logger.String("template", name), logger.Err(err))
	}
}
