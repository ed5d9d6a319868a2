package oauth

import (
	"context"

	httpx "github.com/dropDatabas3/hellojohn-oidc/internal/http"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oauth/engine"
)

// TokenService atiende POST /oauth2/access_token.
type TokenService interface {
	Exchange(ctx context.Context, req engine.TokenRequest) (*engine.TokenResponse, error)
}

type tokenService struct {
	engine *engine.Engine
}

// NewTokenService crea el service.
func NewTokenService(e *engine.Engine) TokenService {
	return &tokenService{engine: e}
}

func (s *tokenService) Exchange(ctx context.Context, req engine.TokenRequest) (*engine.TokenResponse, error) {
	resp, err := s.engine.Token(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.IDToken != "" {
		httpx.RecordIDTokenIssued(req.GrantType)
	}
	return resp, nil
}
