package oauth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/hellojohn-oidc/internal/http/helpers"
	mw "github.com/dropDatabas3/hellojohn-oidc/internal/http/middlewares"
	svc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oauth"
	oidcsvc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oidc"
	"github.com/dropDatabas3/hellojohn-oidc/internal/http/views"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oauth/engine"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

// AuthorizeController maneja GET /oauth2/authorize y el POST del consentimiento.
type AuthorizeController struct {
	service svc.AuthorizeService
}

// NewAuthorizeController crea el controller.
func NewAuthorizeController(s svc.AuthorizeService) *AuthorizeController {
	return &AuthorizeController{service: s}
}

// Authorize maneja GET /oauth2/authorize.
func (c *AuthorizeController) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Add("Vary", "Cookie")

	sess := mw.GetSession(ctx)
	if sess == nil {
		redirectToLogin(w, r, r.URL.RequestURI())
		return
	}

	q := r.URL.Query()
	req := engine.AuthorizeRequest{
		ClientID:     strings.TrimSpace(q.Get("client_id")),
		RedirectURI:  strings.TrimSpace(q.Get("redirect_uri")),
		ResponseType: strings.TrimSpace(q.Get("response_type")),
		Scope:        q.Get("scope"),
		State:        q.Get("state"),
		Nonce:        q.Get("nonce"),
	}
	logger.From(ctx).Debug("authorize request",
		logger.Layer("controller"),
		logger.ClientID(req.ClientID),
		logger.String("scope", req.Scope),
	)

	res, err := c.service.Authorize(ctx, sess, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if res.Redirect != "" {
		http.Redirect(w, r, res.Redirect, http.StatusFound)
		return
	}
	views.Consent(w, views.ConsentPage{
		Token:      res.Consent.Token,
		ClientName: res.Consent.ClientName,
		ClientURL:  res.Consent.ClientURL,
		Scopes:     res.Consent.Scopes,
	})
}

// Confirm maneja POST /oauth2/authorize/confirm. Solo authorize=Authorize aprueba.
func (c *AuthorizeController) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess := mw.GetSession(ctx)
	if sess == nil {
		redirectToLogin(w, r, "/")
		return
	}
	if err := helpers.ParseForm(w, r); err != nil {
		helpers.WriteErrorJSON(w, http.StatusBadRequest, engine.ErrInvalidRequest.Error())
		return
	}

	approved := r.PostFormValue("authorize") == "Authorize"
	redirect, err := c.service.Confirm(ctx, sess, r.PostFormValue("consent"), approved)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, next string) {
	http.Redirect(w, r, oidcsvc.PathLogin+"?next="+url.QueryEscape(next), http.StatusFound)
}
