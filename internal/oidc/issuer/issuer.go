// Package issuer arma los ID Tokens y las respuestas UserInfo a partir de un
// access token, usando un claims.Collector por cada cadena de handlers.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/claims"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/scope"
)

// ErrMissingScope: el token no tiene openid. El mensaje viaja tal cual al cliente.
var ErrMissingScope = errors.New("Missing openid scope.")

// IDToken es el resultado de una colección: sirve para ID Token y para UserInfo.
type IDToken struct {
	AccessToken *repository.AccessToken
	Scopes      []string
	Claims      map[string]any
}

// Encode firma los claims con el client_secret del client del token.
func (t *IDToken) Encode(s jwt.Signer, alg string) (string, error) {
	if t.AccessToken == nil || t.AccessToken.Client == nil {
		return "", fmt.Errorf("%w: id token without client", jwt.ErrSigning)
	}
	return s.Encode(t.Claims, t.AccessToken.Client.ClientSecret, alg)
}

// Config del issuer.
type Config struct {
	Registry   *scope.Registry
	Issuer     string
	IDTokenTTL time.Duration

	IDTokenHandlers  []claims.HandlerFactory
	UserInfoHandlers []claims.HandlerFactory

	Signer jwt.Signer
	Alg    string

	// CollectorOptions se aplican a ambos collectors (reloj, concurrencia, métricas).
	CollectorOptions []claims.Option
}

// Issuer construye ID Tokens y UserInfo.
type Issuer struct {
	reg      *scope.Registry
	idToken  *claims.Collector
	userInfo *claims.Collector
	signer   jwt.Signer
	alg      string
}

// New arma el issuer. Sin cadenas configuradas usa las del catálogo por defecto.
func New(cfg Config) (*Issuer, error) {
	if cfg.Registry == nil {
		cfg.Registry = scope.Default()
	}
	if cfg.Signer == nil {
		cfg.Signer = jwt.HMAC{}
	}
	if cfg.Alg == "" {
		cfg.Alg = jwt.DefaultAlg
	}
	cat := claims.DefaultCatalog()
	if cfg.IDTokenHandlers == nil {
		fs, err := cat.Resolve(claims.DefaultIDTokenHandlers...)
		if err != nil {
			return nil, err
		}
		cfg.IDTokenHandlers = fs
	}
	if cfg.UserInfoHandlers == nil {
		fs, err := cat.Resolve(claims.DefaultUserInfoHandlers...)
		if err != nil {
			return nil, err
		}
		cfg.UserInfoHandlers = fs
	}

	env := claims.Env{Issuer: cfg.Issuer, IDTokenTTL: cfg.IDTokenTTL}
	return &Issuer{
		reg:      cfg.Registry,
		idToken:  claims.NewCollector(cfg.Registry, env, cfg.IDTokenHandlers, cfg.CollectorOptions...),
		userInfo: claims.NewCollector(cfg.Registry, env, cfg.UserInfoHandlers, cfg.CollectorOptions...),
		signer:   cfg.Signer,
		alg:      cfg.Alg,
	}, nil
}

// Registry usado por el issuer.
func (i *Issuer) Registry() *scope.Registry { return i.reg }

// Alg de firma configurado.
func (i *Issuer) Alg() string { return i.alg }

// SupportedClaims une los claims de ambas cadenas (discovery).
func (i *Issuer) SupportedClaims() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, list := range [][]string{i.idToken.SupportedClaims(), i.userInfo.SupportedClaims()} {
		for _, n := range list {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				out = append(out, n)
			}
		}
	}
	return out
}

// IssueAccessTokenScope calcula el scope a persistir en un token nuevo.
// Con openid devuelve solo los bits autorizados; sin openid no toca requested.
func (i *Issuer) IssueAccessTokenScope(ctx context.Context, requested scope.Bits, u *repository.User, c *repository.Client) (scope.Bits, error) {
	if !scope.Has(requested, scope.OpenID) {
		return requested, nil
	}
	res, err := i.idToken.Collect(ctx, claims.Input{
		Subject:    claims.Subject{User: u, Client: c},
		TokenScope: requested,
		Inclusive:  true,
	})
	if err != nil {
		return 0, err
	}
	return i.reg.NamesToBits(res.Scopes...), nil
}

// BuildIDToken colecta los claims del ID Token (modo inclusivo).
func (i *Issuer) BuildIDToken(ctx context.Context, t *repository.AccessToken, nonce string, param claims.Parameter) (*IDToken, error) {
	section, err := param.Section(claims.SectionIDToken)
	if err != nil {
		return nil, err
	}
	if nonce != "" {
		if section == nil {
			section = map[string]any{}
		}
		section["nonce"] = map[string]any{"value": nonce}
	}
	res, err := i.idToken.Collect(ctx, claims.Input{
		Subject:    claims.Subject{User: t.User, Client: t.Client},
		TokenScope: t.Scope,
		Inclusive:  true,
		Claims:     section,
	})
	if err != nil {
		return nil, err
	}
	return &IDToken{AccessToken: t, Scopes: res.Scopes, Claims: res.Claims}, nil
}

// BuildUserInfo colecta los claims de UserInfo. Sin scope pedido ni sección
// userinfo devuelve todo lo que el token autoriza.
func (i *Issuer) BuildUserInfo(ctx context.Context, t *repository.AccessToken, scopeRequest []string, param claims.Parameter) (*IDToken, error) {
	section, err := param.Section(claims.SectionUserInfo)
	if err != nil {
		return nil, err
	}
	in := claims.Input{
		Subject:      claims.Subject{User: t.User, Client: t.Client},
		TokenScope:   t.Scope,
		ScopeRequest: scopeRequest,
		Claims:       section,
	}
	if len(scopeRequest) == 0 && len(section) == 0 {
		in.Inclusive = true
	}
	res, err := i.userInfo.Collect(ctx, in)
	if err != nil {
		return nil, err
	}
	return &IDToken{AccessToken: t, Scopes: res.Scopes, Claims: res.Claims}, nil
}

// Encode firma claims con secret usando el signer y alg configurados.
func (i *Issuer) Encode(c map[string]any, secret string) (string, error) {
	return i.signer.Encode(c, secret, i.alg)
}

// ResponseData completa la respuesta del token endpoint: con openid agrega
// id_token y scope; sin openid no agrega nada. No persiste: t.Scope ya debe
// venir angostado por IssueAccessTokenScope.
func (i *Issuer) ResponseData(ctx context.Context, t *repository.AccessToken, nonce string, param claims.Parameter) (map[string]any, error) {
	out := map[string]any{}
	if !scope.Has(t.Scope, scope.OpenID) {
		return out, nil
	}

	idt, err := i.BuildIDToken(ctx, t, nonce, param)
	if err != nil {
		return nil, err
	}
	signed, err := idt.Encode(i.signer, i.alg)
	if err != nil {
		logger.From(ctx).Error("id_token signing failed", logger.ClientID(t.Client.ClientID), logger.Err(err))
		return nil, err
	}
	t.Scope = i.reg.NamesToBits(idt.Scopes...)

	out["id_token"] = signed
	out["scope"] = scope.Join(idt.Scopes)
	return out, nil
}
