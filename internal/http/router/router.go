// Package router arma el árbol de rutas chi del provider.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/hellojohn-oidc/internal/http"
	"github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/oauth"
	oidcctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/oidc"
	sessionctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/session"
	httperrors "github.com/dropDatabas3/hellojohn-oidc/internal/http/errors"
	mw "github.com/dropDatabas3/hellojohn-oidc/internal/http/middlewares"
	oidcsvc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oidc"
	"github.com/dropDatabas3/hellojohn-oidc/internal/rate"
	"github.com/dropDatabas3/hellojohn-oidc/internal/session"
)

// Deps contiene controllers y middlewares para el router.
type Deps struct {
	OAuth   *oauthctrl.Controllers
	OIDC    *oidcctrl.Controllers
	Login   *sessionctrl.LoginController
	Health  *health.Controller
	Metrics http.Handler // nil = sin /metrics

	Sessions *session.Store
	Cookie   session.CookieConfig

	// Limiters opcionales (nil = sin límite).
	TokenLimiter  rate.Limiter
	LoginLimiter  rate.Limiter
	RateWhitelist []string
}

// New arma el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSession(d.Sessions, d.Cookie),
		mw.WithLogging(),
		httpx.WithMetrics,
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	if d.Health != nil {
		r.Get("/healthz", d.Health.Healthz)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	r.Get(oidcsvc.PathDiscovery, d.OIDC.Discovery.Discovery)

	tokenRate := mw.WithRateLimit(mw.RateLimitConfig{Limiter: d.TokenLimiter, Whitelist: d.RateWhitelist})
	loginRate := mw.WithRateLimit(mw.RateLimitConfig{Limiter: d.LoginLimiter, Whitelist: d.RateWhitelist})

	r.Get(oidcsvc.PathAuthorize, d.OAuth.Authorize.Authorize)
	r.Post(oidcsvc.PathConfirm, d.OAuth.Authorize.Confirm)
	r.With(mw.WithNoStore(), tokenRate).Post(oidcsvc.PathToken, d.OAuth.Token.Token)
	r.Get(oidcsvc.PathUserInfo, d.OIDC.UserInfo.UserInfo)

	r.Get(oidcsvc.PathLogin, d.Login.Form)
	r.With(loginRate).Post(oidcsvc.PathLogin, d.Login.Login)
	r.Post(oidcsvc.PathLogout, d.Login.Logout)

	return r
}
