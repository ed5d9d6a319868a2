// Package session contiene los controllers de login y logout del browser.
package session

import (
	"errors"
	"net/http"

	httperrors "github.com/dropDatabas3/hellojohn-oidc/internal/http/errors"
	"github.com/dropDatabas3/hellojohn-oidc/internal/http/helpers"
	mw "github.com/dropDatabas3/hellojohn-oidc/internal/http/middlewares"
	svc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/session"
	"github.com/dropDatabas3/hellojohn-oidc/internal/http/views"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/session"
)

// LoginController maneja /oauth2/login y /oauth2/logout.
type LoginController struct {
	service svc.LoginService
	cookie  session.CookieConfig
}

// NewLoginController crea el controller.
func NewLoginController(s svc.LoginService, cookie session.CookieConfig) *LoginController {
	return &LoginController{service: s, cookie: cookie}
}

// Form maneja GET /oauth2/login. Con sesión abierta va directo a next.
func (c *LoginController) Form(w http.ResponseWriter, r *http.Request) {
	next := helpers.SafeNext(r.URL.Query().Get("next"))
	if mw.GetSession(r.Context()) != nil {
		http.Redirect(w, r, next, http.StatusFound)
		return
	}
	views.Login(w, http.StatusOK, views.LoginPage{Next: next})
}

// Login maneja POST /oauth2/login (username o email + password).
func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := helpers.ParseForm(w, r); err != nil {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid form"))
		return
	}
	username := r.PostFormValue("username")
	next := helpers.SafeNext(r.PostFormValue("next"))

	sess, err := c.service.Login(ctx, username, r.PostFormValue("password"))
	if err != nil {
		page := views.LoginPage{Next: next, Username: username}
		switch {
		case errors.Is(err, svc.ErrMissingCredentials):
			page.Error = "Please enter your username and password."
			views.Login(w, http.StatusBadRequest, page)
		case errors.Is(err, svc.ErrInvalidCredentials), errors.Is(err, svc.ErrInactiveUser):
			page.Error = "Invalid username or password."
			views.Login(w, http.StatusUnauthorized, page)
		default:
			logger.From(ctx).Error("login failed", logger.Layer("controller"), logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		}
		return
	}

	http.SetCookie(w, c.cookie.Cookie(sess.ID, c.service.TTL()))
	http.Redirect(w, r, next, http.StatusFound)
}

// Logout maneja POST /oauth2/logout: cierra la sesión y borra la cookie.
func (c *LoginController) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := c.service.Logout(ctx, c.cookie.SID(r)); err != nil {
		logger.From(ctx).Warn("logout failed", logger.Layer("controller"), logger.Err(err))
	}
	http.SetCookie(w, c.cookie.Deletion())
	http.Redirect(w, r, helpers.SafeNext(r.URL.Query().Get("next")), http.StatusFound)
}
