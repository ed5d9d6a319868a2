// Package oauth contiene los controllers de /oauth2/authorize y /oauth2/access_token.
package oauth

import (
	"net/http"

	httperrors "github.com/dropDatabas3/hellojohn-oidc/internal/http/errors"
	"github.com/dropDatabas3/hellojohn-oidc/internal/http/helpers"
	svc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oauth"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

// Controllers agrupa todos los controllers del dominio OAuth.
type Controllers struct {
	Authorize *AuthorizeController
	Token     *TokenController
}

// NewControllers crea el agregador.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Authorize: NewAuthorizeController(s.Authorize),
		Token:     NewTokenController(s.Token),
	}
}

// writeServiceError: errores del protocolo → 400 {"error": code}; el resto → 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if code := svc.ErrorCode(err); code != "" {
		helpers.WriteErrorJSON(w, http.StatusBadRequest, code)
		return
	}
	logger.From(r.Context()).Error("oauth request failed", logger.Layer("controller"), logger.Err(err))
	httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
}
