// Package oidc contiene los controllers de UserInfo y discovery.
package oidc

import (
	"errors"
	"net/http"

	httpx "github.com/dropDatabas3/hellojohn-oidc/internal/http"
	httperrors "github.com/dropDatabas3/hellojohn-oidc/internal/http/errors"
	"github.com/dropDatabas3/hellojohn-oidc/internal/http/helpers"
	svc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oidc"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oauth/gate"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/claims"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/issuer"
)

// Controllers agrupa los controllers OIDC.
type Controllers struct {
	UserInfo  *UserInfoController
	Discovery *DiscoveryController
}

// NewControllers crea el agregador.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		UserInfo:  &UserInfoController{service: s.UserInfo},
		Discovery: &DiscoveryController{service: s.Discovery},
	}
}

// UserInfoController maneja GET /oauth2/user_info.
type UserInfoController struct {
	service svc.UserInfoService
}

// UserInfo responde el mapa de claims, o:
//
//	401 {"error":"access_denied"}   sin bearer
//	401 {"error":"invalid_token"}   token desconocido o vencido
//	400 {"error":"<mensaje>"}       sin openid o claims mal formado
func (c *UserInfoController) UserInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	helpers.NoStore(w)
	w.Header().Add("Vary", "Authorization")

	q := r.URL.Query()
	data, err := c.service.UserInfo(ctx, svc.UserInfoRequest{
		Bearer: gate.ParseBearer(r.Header.Get("Authorization")),
		Scope:  q.Get("scope"),
		Claims: q.Get("claims"),
	})
	switch {
	case err == nil:
		httpx.RecordUserInfo("ok")
		helpers.WriteJSON(w, http.StatusOK, data)
	case errors.Is(err, gate.ErrAccessDenied):
		httpx.RecordUserInfo("access_denied")
		w.Header().Set("WWW-Authenticate", `Bearer realm="user_info"`)
		helpers.WriteErrorJSON(w, http.StatusUnauthorized, gate.ErrAccessDenied.Error())
	case errors.Is(err, gate.ErrInvalidToken):
		httpx.RecordUserInfo("invalid_token")
		w.Header().Set("WWW-Authenticate", `Bearer realm="user_info", error="invalid_token"`)
		helpers.WriteErrorJSON(w, http.StatusUnauthorized, gate.ErrInvalidToken.Error())
	case errors.Is(err, issuer.ErrMissingScope), errors.Is(err, claims.ErrInvalidClaim):
		httpx.RecordUserInfo("invalid_request")
		helpers.WriteErrorJSON(w, http.StatusBadRequest, err.Error())
	default:
		httpx.RecordUserInfo("error")
		logger.From(ctx).Error("userinfo failed", logger.Layer("controller"), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}

// DiscoveryController maneja GET /.well-known/openid-configuration.
type DiscoveryController struct {
	service svc.DiscoveryService
}

func (c *DiscoveryController) Discovery(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	helpers.WriteJSON(w, http.StatusOK, c.service.Document())
}
