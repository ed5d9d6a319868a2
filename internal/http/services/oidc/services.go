// Package oidc contiene los services de UserInfo y discovery.
package oidc

import (
	"github.com/dropDatabas3/hellojohn-oidc/internal/oauth/gate"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/issuer"
)

// Deps contiene las dependencias de los services OIDC.
type Deps struct {
	Issuer    *issuer.Issuer
	Gate      *gate.Gate
	IssuerURL string
}

// Services agrupa los services OIDC.
type Services struct {
	UserInfo  UserInfoService
	Discovery DiscoveryService
}

// NewServices crea el agregador.
func NewServices(d Deps) Services {
	return Services{
		UserInfo:  NewUserInfoService(d.Issuer, d.Gate),
		Discovery: NewDiscoveryService(d.Issuer, d.IssuerURL),
	}
}
