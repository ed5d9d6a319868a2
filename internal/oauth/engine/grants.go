package engine

import (
	"context"
	"strconv"
	"strings"

	"github.com/dropDatabas3/hellojohn-oidc/internal/cache"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/claims"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/scope"
	"github.com/dropDatabas3/hellojohn-oidc/internal/security/password"
	tokens "github.com/dropDatabas3/hellojohn-oidc/internal/security/token"
)

// Grant types soportados.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantPassword          = "password"
	GrantRefreshToken      = "refresh_token"
)

// TokenRequest son los parámetros de POST /access_token.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string

	Code        string
	RedirectURI string

	Username string
	Password string

	RefreshToken string

	Scope  string
	Nonce  string
	Claims string // parámetro claims (JSON)
}

// TokenResponse es la respuesta estándar del token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// Token atiende el token endpoint.
func (e *Engine) Token(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	log := logger.From(ctx).With(logger.Layer("engine"), logger.Op("oauth.token"), logger.GrantType(req.GrantType))

	switch req.GrantType {
	case GrantAuthorizationCode, GrantPassword, GrantRefreshToken:
	case "":
		return nil, ErrInvalidRequest
	default:
		return nil, ErrUnsupportedGrantType
	}

	// claims inválido no debe consumir el code.
	param, err := claims.ParseParameter(req.Claims)
	if err != nil {
		return nil, err
	}

	client, err := e.AuthenticateClient(ctx, req.ClientID, req.ClientSecret, req.GrantType)
	if err != nil {
		log.Warn("client authentication failed", logger.ClientID(req.ClientID), logger.Err(err))
		return nil, err
	}

	var (
		user  *repository.User
		bits  scope.Bits
		nonce = req.Nonce
	)
	switch req.GrantType {
	case GrantAuthorizationCode:
		var codeNonce string
		user, bits, codeNonce, err = e.authorizationCodeGrant(ctx, client, req)
		if codeNonce != "" {
			nonce = codeNonce
		}
	case GrantPassword:
		user, bits, err = e.passwordGrant(ctx, req)
	case GrantRefreshToken:
		user, bits, err = e.refreshTokenGrant(ctx, client, req)
	}
	if err != nil {
		log.Info("grant rejected", logger.ClientID(client.ClientID), logger.Err(err))
		return nil, err
	}

	// El scope se angosta antes de crear los tokens: access y refresh quedan
	// con los mismos bits.
	if e.ext != nil {
		if bits, err = e.ext.IssueAccessTokenScope(ctx, bits, user, client); err != nil {
			return nil, err
		}
	}
	at, err := e.newAccessToken(user, client, bits)
	if err != nil {
		return nil, err
	}

	resp := &TokenResponse{TokenType: "Bearer"}
	// id_token se firma antes de persistir: un error de firma no deja tokens.
	if e.ext != nil {
		extra, err := e.ext.ResponseData(ctx, at, nonce, param)
		if err != nil {
			return nil, err
		}
		if v, ok := extra["id_token"].(string); ok {
			resp.IDToken = v
		}
	}

	rawRT, err := e.persistTokens(ctx, at)
	if err != nil {
		return nil, err
	}
	resp.AccessToken = at.Token
	resp.RefreshToken = rawRT
	resp.Scope = scope.Join(e.reg.BitsToNames(at.Scope))
	resp.ExpiresIn = at.ExpireDelta(e.now())

	log.Info("token issued",
		logger.ClientID(client.ClientID),
		logger.UserID(strconv.FormatInt(user.ID, 10)),
		logger.Scopes(e.reg.BitsToNames(at.Scope)),
	)
	return resp, nil
}

func (e *Engine) authorizationCodeGrant(ctx context.Context, c *repository.Client, req TokenRequest) (*repository.User, scope.Bits, string, error) {
	if req.Code == "" {
		return nil, 0, "", ErrInvalidRequest
	}
	var ac authCode
	if err := cache.TakeJSON(ctx, e.cache, codeKeyPrefix+tokens.SHA256Base64URL(req.Code), &ac); err != nil {
		if cache.IsNotFound(err) {
			return nil, 0, "", ErrInvalidGrant
		}
		return nil, 0, "", err
	}
	if !e.now().Before(ac.ExpiresAt) || ac.ClientID != c.ClientID {
		return nil, 0, "", ErrInvalidGrant
	}
	if req.RedirectURI != "" && req.RedirectURI != ac.RedirectURI {
		return nil, 0, "", ErrInvalidGrant
	}

	bits := ac.Scope
	if strings.TrimSpace(req.Scope) != "" {
		want, err := e.narrow(req.Scope, ac.Scope)
		if err != nil {
			return nil, 0, "", err
		}
		bits = want
	}

	u, err := e.store.Users().GetByID(ctx, ac.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, 0, "", ErrInvalidGrant
		}
		return nil, 0, "", err
	}
	return u, bits, ac.Nonce, nil
}

// passwordGrant busca por username y, si no existe, usa username como email.
// El error nunca distingue usuario inexistente de password incorrecta.
func (e *Engine) passwordGrant(ctx context.Context, req TokenRequest) (*repository.User, scope.Bits, error) {
	if req.Username == "" || req.Password == "" {
		return nil, 0, ErrInvalidRequest
	}
	bits, err := e.parseScope(req.Scope)
	if err != nil {
		return nil, 0, err
	}
	u, err := e.CheckCredentials(ctx, req.Username, req.Password)
	if err != nil {
		return nil, 0, err
	}
	return u, bits, nil
}

// CheckCredentials valida username (o email) y password. Lo usa también el login.
func (e *Engine) CheckCredentials(ctx context.Context, username, plain string) (*repository.User, error) {
	users := e.store.Users()
	u, err := users.GetByUsername(ctx, username)
	if err == nil && password.Verify(plain, u.PasswordHash) {
		return u, nil
	}
	if err != nil && !repository.IsNotFound(err) {
		return nil, err
	}

	byEmail, err := users.GetByEmail(ctx, username)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}
	if !password.Verify(plain, byEmail.PasswordHash) {
		return nil, ErrInvalidGrant
	}
	return byEmail, nil
}

func (e *Engine) refreshTokenGrant(ctx context.Context, c *repository.Client, req TokenRequest) (*repository.User, scope.Bits, error) {
	if req.RefreshToken == "" {
		return nil, 0, ErrInvalidRequest
	}
	rt, err := e.store.RefreshTokens().GetByToken(ctx, req.RefreshToken)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, 0, ErrInvalidGrant
		}
		return nil, 0, err
	}
	if rt.Expired || rt.ClientID != c.ClientID {
		return nil, 0, ErrInvalidGrant
	}

	bits := rt.Scope
	if strings.TrimSpace(req.Scope) != "" {
		if bits, err = e.narrow(req.Scope, rt.Scope); err != nil {
			return nil, 0, err
		}
	}

	u, err := e.store.Users().GetByID(ctx, rt.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, 0, ErrInvalidGrant
		}
		return nil, 0, err
	}
	if err := e.store.RefreshTokens().MarkExpired(ctx, rt.ID); err != nil {
		if repository.IsConflict(err) || repository.IsNotFound(err) {
			return nil, 0, ErrInvalidGrant
		}
		return nil, 0, err
	}
	return u, bits, nil
}

// narrow valida raw y exige que sea subconjunto de limit.
func (e *Engine) narrow(raw string, limit scope.Bits) (scope.Bits, error) {
	want, err := e.parseScope(raw)
	if err != nil {
		return 0, err
	}
	if !scope.Has(limit, want) {
		return 0, ErrInvalidScope
	}
	return want, nil
}
