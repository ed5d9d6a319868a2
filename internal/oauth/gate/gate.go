// Package gate decide el consentimiento en /authorize y autentica los
// bearer tokens de los recursos protegidos (user_info).
package gate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/scope"
	"github.com/dropDatabas3/hellojohn-oidc/internal/session"
)

var (
	ErrAccessDenied = errors.New("access_denied")
	ErrInvalidToken = errors.New("invalid_token")
)

// Decision es el resultado de DecideConsent.
type Decision struct {
	// AutoApprove: client trusted, se emite el code sin mostrar el formulario.
	AutoApprove bool
	// Scopes pedidos, validados y en el orden del registro.
	Scopes []string
}

// Deps del gate.
type Deps struct {
	Registry *scope.Registry
	Trusted  repository.TrustedClientRepository
	Tokens   repository.AccessTokenRepository
	Sessions *session.Store
	Now      func() time.Time
}

// Gate aplica las reglas de acceso.
type Gate struct {
	reg      *scope.Registry
	trusted  repository.TrustedClientRepository
	tokens   repository.AccessTokenRepository
	sessions *session.Store
	now      func() time.Time
}

func New(d Deps) *Gate {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Registry == nil {
		d.Registry = scope.Default()
	}
	return &Gate{reg: d.Registry, trusted: d.Trusted, tokens: d.Tokens, sessions: d.Sessions, now: d.Now}
}

// IsTrusted indica si el client saltea el consentimiento.
func (g *Gate) IsTrusted(ctx context.Context, c *repository.Client) (bool, error) {
	if c == nil {
		return false, nil
	}
	return g.trusted.IsTrusted(ctx, c.ClientID)
}

// DecideConsent valida los scopes pedidos y decide si se aprueba solo.
func (g *Gate) DecideConsent(ctx context.Context, c *repository.Client, scopeNames []string) (Decision, error) {
	if err := g.reg.Validate(scopeNames); err != nil {
		return Decision{}, err
	}
	ok, err := g.IsTrusted(ctx, c)
	if err != nil {
		return Decision{}, err
	}
	return Decision{AutoApprove: ok, Scopes: g.reg.Order(scopeNames)}, nil
}

// AuthenticateBearer resuelve el access token presentado.
func (g *Gate) AuthenticateBearer(ctx context.Context, raw string) (*repository.AccessToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrAccessDenied
	}
	t, err := g.tokens.GetByToken(ctx, raw)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if t.ExpireDelta(g.now()) <= 0 {
		logger.From(ctx).Debug("bearer expirado", logger.ClientID(t.Client.ClientID))
		return nil, ErrInvalidToken
	}
	return t, nil
}

// RememberAuthorizedClient agrega el client a la sesión del browser.
// Sin sesión no hay nada que recordar.
func (g *Gate) RememberAuthorizedClient(ctx context.Context, sid, clientID string) error {
	if g.sessions == nil || sid == "" {
		return nil
	}
	err := g.sessions.AddAuthorizedClient(ctx, sid, clientID)
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	return err
}

// ParseBearer extrae el token de "Authorization: Bearer <t>". Sin header
// devuelve "" (access_denied); otro esquema se devuelve entero para que el
// lookup falle con invalid_token.
func ParseBearer(header string) string {
	h := strings.TrimSpace(header)
	const prefix = "bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		if strings.EqualFold(h, "bearer") {
			return ""
		}
		return h
	}
	return strings.TrimSpace(h[len(prefix):])
}
