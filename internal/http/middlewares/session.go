package middlewares

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/session"
)

// WithSession carga la sesión de la cookie si existe. No exige login: los
// controllers deciden con GetSession. Una cookie vencida se borra.
func WithSession(store *session.Store, cookie session.CookieConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := cookie.SID(r)
			if sid == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			s, err := store.Get(r.Context(), sid)
			switch {
			case err == nil:
				r = r.WithContext(WithSessionContext(r.Context(), s))
			case errors.Is(err, session.ErrNotFound):
				http.SetCookie(w, cookie.Deletion())
			default:
				logger.From(r.Context()).Warn("session lookup failed", logger.Component("session"), logger.Err(err))
			}
			next.ServeHTTP(w, r)
		})
	}
}
