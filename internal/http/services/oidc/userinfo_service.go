package oidc

import (
	"context"

	"github.com/dropDatabas3/hellojohn-oidc/internal/oauth/gate"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/claims"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/issuer"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/scope"
)

// UserInfoRequest son los parámetros de GET /oauth2/user_info.
type UserInfoRequest struct {
	Bearer string
	Scope  string // opcional, separado por espacios
	Claims string // opcional, JSON
}

// UserInfoService resuelve los claims de UserInfo.
type UserInfoService interface {
	// UserInfo devuelve gate.ErrAccessDenied, gate.ErrInvalidToken,
	// issuer.ErrMissingScope o claims.ErrInvalidClaim según el caso.
	UserInfo(ctx context.Context, req UserInfoRequest) (map[string]any, error)
}

type userInfoService struct {
	issuer *issuer.Issuer
	gate   *gate.Gate
}

// NewUserInfoService crea el service.
func NewUserInfoService(i *issuer.Issuer, g *gate.Gate) UserInfoService {
	return &userInfoService{issuer: i, gate: g}
}

func (s *userInfoService) UserInfo(ctx context.Context, req UserInfoRequest) (map[string]any, error) {
	t, err := s.gate.AuthenticateBearer(ctx, req.Bearer)
	if err != nil {
		return nil, err
	}
	if !scope.Has(t.Scope, scope.OpenID) {
		return nil, issuer.ErrMissingScope
	}
	param, err := claims.ParseParameter(req.Claims)
	if err != nil {
		return nil, err
	}

	var scopeRequest []string
	if req.Scope != "" {
		scopeRequest = scope.Parse(req.Scope)
	}
	tok, err := s.issuer.BuildUserInfo(ctx, t, scopeRequest, param)
	if err != nil {
		return nil, err
	}
	logger.From(ctx).Debug("userinfo served",
		logger.ClientID(t.Client.ClientID),
		logger.Scopes(tok.Scopes),
	)
	return tok.Claims, nil
}
