package engine

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/cache"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/scope"
	tokens "github.com/dropDatabas3/hellojohn-oidc/internal/security/token"
)

const (
	codeKeyPrefix    = "code:"
	consentKeyPrefix = "consent:"
)

// AuthorizeRequest son los parámetros de GET /authorize.
type AuthorizeRequest struct {
	ClientID     string
	RedirectURI  string
	ResponseType string
	Scope        string
	State        string
	Nonce        string
}

// Pending es un pedido de autorización validado, esperando consentimiento o code.
type Pending struct {
	UserID      int64     `json:"user_id"`
	ClientID    string    `json:"client_id"`
	RedirectURI string    `json:"redirect_uri"`
	Scopes      []string  `json:"scopes"`
	State       string    `json:"state,omitempty"`
	Nonce       string    `json:"nonce,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`

	Client *repository.Client `json:"-"`
}

// authCode es el payload de un authorization code en el cache.
type authCode struct {
	UserID      int64      `json:"user_id"`
	ClientID    string     `json:"client_id"`
	RedirectURI string     `json:"redirect_uri"`
	Scope       scope.Bits `json:"scope"`
	Nonce       string     `json:"nonce,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// ValidateAuthorize chequea client, redirect_uri, response_type y scopes.
// Errores de client o redirect_uri no deben redirigirse al cliente.
func (e *Engine) ValidateAuthorize(ctx context.Context, req AuthorizeRequest) (*Pending, error) {
	if strings.TrimSpace(req.ClientID) == "" {
		return nil, ErrInvalidRequest
	}
	c, err := e.store.Clients().Get(ctx, req.ClientID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}

	redirect := req.RedirectURI
	if redirect == "" {
		redirect = c.RedirectURI
	} else if redirect != c.RedirectURI {
		return nil, fmt.Errorf("%w: redirect_uri mismatch", ErrInvalidRequest)
	}

	p := &Pending{
		ClientID:    c.ClientID,
		RedirectURI: redirect,
		State:       req.State,
		Nonce:       req.Nonce,
		Client:      c,
	}
	if req.ResponseType != "code" {
		return p, ErrUnsupportedResponseType
	}
	names := scope.Parse(req.Scope)
	if err := e.reg.Validate(names); err != nil {
		return p, fmt.Errorf("%w: %w", ErrInvalidScope, err)
	}
	p.Scopes = e.reg.Order(names)
	return p, nil
}

// IssueCode genera un code de un solo uso para p y devuelve la URL de redirect.
func (e *Engine) IssueCode(ctx context.Context, p *Pending, userID int64) (string, error) {
	code, err := tokens.GenerateOpaqueToken(tokens.CodeBytes)
	if err != nil {
		return "", fmt.Errorf("engine: generate code: %w", err)
	}
	payload := authCode{
		UserID:      userID,
		ClientID:    p.ClientID,
		RedirectURI: p.RedirectURI,
		Scope:       e.reg.NamesToBits(p.Scopes...),
		Nonce:       p.Nonce,
		ExpiresAt:   e.now().Add(e.cfg.CodeTTL).UTC(),
	}
	if err := cache.SetJSON(ctx, e.cache, codeKeyPrefix+tokens.SHA256Base64URL(code), payload, e.cfg.CodeTTL); err != nil {
		return "", err
	}
	logger.From(ctx).Debug("authorization code issued",
		logger.ClientID(p.ClientID),
		logger.Scopes(p.Scopes),
	)
	return BuildRedirect(p.RedirectURI, map[string]string{"code": code, "state": p.State}), nil
}

// DenyRedirect arma el redirect de error para un pedido válido.
func DenyRedirect(p *Pending, code string) string {
	return BuildRedirect(p.RedirectURI, map[string]string{"error": code, "state": p.State})
}

// StartConsent guarda p hasta que el usuario confirme; devuelve el token del formulario.
func (e *Engine) StartConsent(ctx context.Context, p *Pending, userID int64) (string, error) {
	tok, err := tokens.GenerateOpaqueToken(tokens.CodeBytes)
	if err != nil {
		return "", fmt.Errorf("engine: generate consent token: %w", err)
	}
	stored := *p
	stored.UserID = userID
	stored.ExpiresAt = e.now().Add(e.cfg.ConsentTTL).UTC()
	if err := cache.SetJSON(ctx, e.cache, consentKeyPrefix+tokens.SHA256Base64URL(tok), stored, e.cfg.ConsentTTL); err != nil {
		return "", err
	}
	return tok, nil
}

// TakeConsent consume el pedido pendiente (un solo uso). userID debe coincidir.
func (e *Engine) TakeConsent(ctx context.Context, token string, userID int64) (*Pending, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidRequest
	}
	var p Pending
	if err := cache.TakeJSON(ctx, e.cache, consentKeyPrefix+tokens.SHA256Base64URL(token), &p); err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrInvalidRequest
		}
		return nil, err
	}
	if p.UserID != userID || !e.now().Before(p.ExpiresAt) {
		return nil, ErrInvalidRequest
	}
	c, err := e.store.Clients().Get(ctx, p.ClientID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}
	p.Client = c
	return &p, nil
}

// BuildRedirect agrega params a la query de base; los vacíos se omiten.
func BuildRedirect(base string, params map[string]string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
