package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"go.uber.org/zap"
)

// CookieConfig son los flags de la cookie de sesión.
type CookieConfig struct {
	Name     string
	Domain   string
	SameSite string // "", "lax", "strict", "none"
	Secure   bool
}

// DefaultCookieName si la config no trae uno.
const DefaultCookieName = "oidc_session"

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

// parseSameSite convierte el string de config a http.SameSite. Default: Lax.
func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		logger.L().Warn("cookie: SameSite desconocido, usando Lax", zap.String("same_site", s))
		return http.SameSiteLaxMode
	}
}

// Cookie arma la cookie de sesión para sid.
func (c CookieConfig) Cookie(sid string, ttl time.Duration) *http.Cookie {
	ss := parseSameSite(c.SameSite)
	if ss == http.SameSiteNoneMode && !c.Secure {
		logger.L().Warn("cookie: SameSite=None sin Secure", zap.String("domain", c.Domain))
	}
	return &http.Cookie{
		Name:     c.name(),
		Value:    sid,
		Path:     "/",
		Domain:   c.Domain,
		Expires:  time.Now().UTC().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: ss,
	}
}

// Deletion devuelve la cookie que borra la sesión del browser.
func (c CookieConfig) Deletion() *http.Cookie {
	return &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: parseSameSite(c.SameSite),
	}
}

// SID lee el sid de la request ("" si no hay cookie).
func (c CookieConfig) SID(r *http.Request) string {
	ck, err := r.Cookie(c.name())
	if err != nil {
		return ""
	}
	return ck.Value
}
