// Package engine implementa el flujo OAuth2 del provider: validación de
// /authorize, authorization codes, consentimientos pendientes y los grants
// del token endpoint (authorization_code, password, refresh_token).
package engine

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/cache"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/claims"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/scope"
	tokens "github.com/dropDatabas3/hellojohn-oidc/internal/security/token"
)

// Errores OAuth2. El texto es el código de error del protocolo.
var (
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrInvalidScope            = errors.New("invalid_scope")
)

// Defaults de vida útil.
const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
	DefaultCodeTTL    = 10 * time.Minute
	DefaultConsentTTL = 10 * time.Minute
)

// ResponseExtender angosta el scope de los tokens nuevos y agrega campos a la
// respuesta del token endpoint (id_token, scope). *issuer.Issuer lo implementa.
type ResponseExtender interface {
	IssueAccessTokenScope(ctx context.Context, requested scope.Bits, u *repository.User, c *repository.Client) (scope.Bits, error)
	ResponseData(ctx context.Context, t *repository.AccessToken, nonce string, param claims.Parameter) (map[string]any, error)
}

// Config de TTLs.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	CodeTTL    time.Duration
	ConsentTTL time.Duration
}

// Deps del engine.
type Deps struct {
	Store    repository.Store
	Cache    cache.Cache
	Registry *scope.Registry
	Extender ResponseExtender
	Config   Config
	Now      func() time.Time
}

// Engine coordina storage, cache y el issuer OIDC.
type Engine struct {
	store repository.Store
	cache cache.Cache
	reg   *scope.Registry
	ext   ResponseExtender
	cfg   Config
	now   func() time.Time
}

func New(d Deps) *Engine {
	cfg := d.Config
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = DefaultCodeTTL
	}
	if cfg.ConsentTTL <= 0 {
		cfg.ConsentTTL = DefaultConsentTTL
	}
	if d.Registry == nil {
		d.Registry = scope.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Engine{store: d.Store, cache: d.Cache, reg: d.Registry, ext: d.Extender, cfg: cfg, now: d.Now}
}

// Registry usado para parsear scopes.
func (e *Engine) Registry() *scope.Registry { return e.reg }

// AuthenticateClient valida client_id/secret. Los clients públicos pueden omitir
// el secret solo en el password grant.
func (e *Engine) AuthenticateClient(ctx context.Context, clientID, secret, grantType string) (*repository.Client, error) {
	if clientID == "" {
		return nil, ErrInvalidClient
	}
	c, err := e.store.Clients().Get(ctx, clientID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}
	if secret != "" && subtle.ConstantTimeCompare([]byte(secret), []byte(c.ClientSecret)) == 1 {
		return c, nil
	}
	if grantType == GrantPassword && c.IsPublic() {
		return c, nil
	}
	return nil, ErrInvalidClient
}

// parseScope valida y convierte el parámetro scope.
func (e *Engine) parseScope(raw string) (scope.Bits, error) {
	names := scope.Parse(raw)
	if err := e.reg.Validate(names); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidScope, err)
	}
	return e.reg.NamesToBits(names...), nil
}

// newAccessToken arma el access token sin persistirlo.
func (e *Engine) newAccessToken(u *repository.User, c *repository.Client, bits scope.Bits) (*repository.AccessToken, error) {
	raw, err := tokens.GenerateOpaqueToken(tokens.AccessTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("engine: generate access token: %w", err)
	}
	return &repository.AccessToken{
		Token:     raw,
		User:      u,
		Client:    c,
		Scope:     bits,
		ExpiresAt: e.now().Add(e.cfg.AccessTTL).UTC(),
	}, nil
}

// persistTokens guarda at y, si el client es confidencial, un refresh token
// con el mismo scope. Devuelve el refresh en claro.
func (e *Engine) persistTokens(ctx context.Context, at *repository.AccessToken) (string, error) {
	if err := e.store.AccessTokens().Create(ctx, at); err != nil {
		return "", fmt.Errorf("engine: store access token: %w", err)
	}
	if at.Client.IsPublic() {
		return "", nil
	}

	rawRT, err := tokens.GenerateOpaqueToken(tokens.RefreshTokenBytes)
	if err != nil {
		return "", fmt.Errorf("engine: generate refresh token: %w", err)
	}
	rt := &repository.RefreshToken{
		Token:         rawRT,
		AccessTokenID: at.ID,
		UserID:        at.User.ID,
		ClientID:      at.Client.ClientID,
		Scope:         at.Scope,
	}
	if err := e.store.RefreshTokens().Create(ctx, rt); err != nil {
		return "", fmt.Errorf("engine: store refresh token: %w", err)
	}
	return rawRT, nil
}
