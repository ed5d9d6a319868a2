package oauth

import (
	"errors"
	"net/http"

	httperrors "github.com/dropDatabas3/hellojohn-oidc/internal/http/errors"
	"github.com/dropDatabas3/hellojohn-oidc/internal/http/helpers"
	svc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oauth/engine"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/claims"
)

// TokenController maneja POST /oauth2/access_token.
type TokenController struct {
	service svc.TokenService
}

// NewTokenController crea el controller.
func NewTokenController(s svc.TokenService) *TokenController {
	return &TokenController{service: s}
}

// Token maneja POST /oauth2/access_token (form urlencoded).
func (c *TokenController) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	helpers.NoStore(w)

	if err := helpers.ParseForm(w, r); err != nil {
		helpers.WriteErrorJSON(w, http.StatusBadRequest, engine.ErrInvalidRequest.Error())
		return
	}
	clientID, secret, basic := helpers.ClientCredentials(r)
	req := engine.TokenRequest{
		GrantType:    r.PostFormValue("grant_type"),
		ClientID:     clientID,
		ClientSecret: secret,
		Code:         r.PostFormValue("code"),
		RedirectURI:  r.PostFormValue("redirect_uri"),
		Username:     r.PostFormValue("username"),
		Password:     r.PostFormValue("password"),
		RefreshToken: r.PostFormValue("refresh_token"),
		Scope:        r.PostFormValue("scope"),
		Nonce:        r.PostFormValue("nonce"),
		Claims:       r.PostFormValue("claims"),
	}

	resp, err := c.service.Exchange(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, claims.ErrInvalidClaim):
			helpers.WriteErrorJSON(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, engine.ErrInvalidClient) && basic:
			w.Header().Set("WWW-Authenticate", `Basic realm="oauth2"`)
			helpers.WriteErrorJSON(w, http.StatusUnauthorized, engine.ErrInvalidClient.Error())
		case svc.ErrorCode(err) != "":
			helpers.WriteErrorJSON(w, http.StatusBadRequest, svc.ErrorCode(err))
		default:
			logger.From(ctx).Error("token exchange failed", logger.Layer("controller"), logger.GrantType(req.GrantType), logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		}
		return
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}
