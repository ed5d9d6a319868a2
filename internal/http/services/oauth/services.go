// Package oauth contiene los services del dominio OAuth2: /authorize con su
// consentimiento y el token endpoint.
package oauth

import (
	"errors"

	"github.com/dropDatabas3/hellojohn-oidc/internal/oauth/engine"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oauth/gate"
)

// Deps contiene las dependencias para crear los services OAuth.
type Deps struct {
	Engine *engine.Engine
	Gate   *gate.Gate
}

// Services agrupa todos los services del dominio OAuth.
type Services struct {
	Authorize AuthorizeService
	Token     TokenService
}

// NewServices crea el agregador de services OAuth.
func NewServices(d Deps) Services {
	return Services{
		Authorize: NewAuthorizeService(d.Engine, d.Gate),
		Token:     NewTokenService(d.Engine),
	}
}

var protocolErrors = []error{
	engine.ErrInvalidRequest,
	engine.ErrInvalidClient,
	engine.ErrInvalidGrant,
	engine.ErrUnsupportedGrantType,
	engine.ErrUnsupportedResponseType,
	engine.ErrInvalidScope,
}

// ErrorCode devuelve el código OAuth2 de err, o "" si no es un error del protocolo.
func ErrorCode(err error) string {
	for _, pe := range protocolErrors {
		if errors.Is(err, pe) {
			return pe.Error()
		}
	}
	return ""
}
