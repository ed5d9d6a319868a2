package oauth

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/hellojohn-oidc/internal/audit"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oauth/engine"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oauth/gate"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/session"
)

// ConsentPrompt son los datos que necesita la pantalla de consentimiento.
type ConsentPrompt struct {
	Token      string
	ClientName string
	ClientURL  string
	Scopes     []string
}

// AuthorizeResult: exactamente uno de Redirect o Consent.
type AuthorizeResult struct {
	Redirect string
	Consent  *ConsentPrompt
}

// AuthorizeService resuelve /authorize para un usuario con sesión.
type AuthorizeService interface {
	// Authorize valida el pedido y decide: redirect con code (client trusted),
	// redirect con error, o pantalla de consentimiento. Un error devuelto
	// no debe redirigirse (client o redirect_uri inválidos).
	Authorize(ctx context.Context, sess *session.Session, req engine.AuthorizeRequest) (*AuthorizeResult, error)

	// Confirm procesa el formulario de consentimiento y devuelve el redirect.
	Confirm(ctx context.Context, sess *session.Session, consentToken string, approved bool) (string, error)
}

type authorizeService struct {
	engine *engine.Engine
	gate   *gate.Gate
}

// NewAuthorizeService crea el service.
func NewAuthorizeService(e *engine.Engine, g *gate.Gate) AuthorizeService {
	return &authorizeService{engine: e, gate: g}
}

func (s *authorizeService) Authorize(ctx context.Context, sess *session.Session, req engine.AuthorizeRequest) (*AuthorizeResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("AuthorizeService.Authorize"))

	p, err := s.engine.ValidateAuthorize(ctx, req)
	if err != nil {
		if p == nil {
			return nil, err
		}
		log.Info("authorize rejected", logger.ClientID(p.ClientID), logger.Err(err))
		return &AuthorizeResult{Redirect: engine.DenyRedirect(p, ErrorCode(err))}, nil
	}

	dec, err := s.gate.DecideConsent(ctx, p.Client, p.Scopes)
	if err != nil {
		return nil, err
	}
	p.Scopes = dec.Scopes

	if dec.AutoApprove {
		audit.Log(ctx, audit.EventAutoApproved, auditFields(sess, p)...)
		redirect, err := s.approve(ctx, sess, p)
		if err != nil {
			return nil, err
		}
		return &AuthorizeResult{Redirect: redirect}, nil
	}

	tok, err := s.engine.StartConsent(ctx, p, sess.UserID)
	if err != nil {
		return nil, err
	}
	return &AuthorizeResult{Consent: &ConsentPrompt{
		Token:      tok,
		ClientName: displayName(p),
		ClientURL:  p.Client.URL,
		Scopes:     p.Scopes,
	}}, nil
}

func (s *authorizeService) Confirm(ctx context.Context, sess *session.Session, consentToken string, approved bool) (string, error) {
	p, err := s.engine.TakeConsent(ctx, consentToken, sess.UserID)
	if err != nil {
		return "", err
	}
	if !approved {
		audit.Log(ctx, audit.EventConsentDenied, auditFields(sess, p)...)
		return engine.DenyRedirect(p, "access_denied"), nil
	}
	audit.Log(ctx, audit.EventConsentGranted, auditFields(sess, p)...)
	return s.approve(ctx, sess, p)
}

func (s *authorizeService) approve(ctx context.Context, sess *session.Session, p *engine.Pending) (string, error) {
	redirect, err := s.engine.IssueCode(ctx, p, sess.UserID)
	if err != nil {
		return "", err
	}
	// El code ya salió: un fallo al recordar el client no corta el flujo.
	if err := s.gate.RememberAuthorizedClient(ctx, sess.ID, p.ClientID); err != nil {
		logger.From(ctx).Warn("remember authorized client failed", logger.ClientID(p.ClientID), logger.Err(err))
	}
	return redirect, nil
}

func auditFields(sess *session.Session, p *engine.Pending) []zap.Field {
	return []zap.Field{
		logger.UserID(strconv.FormatInt(sess.UserID, 10)),
		logger.ClientID(p.ClientID),
		logger.Scopes(p.Scopes),
	}
}

func displayName(p *engine.Pending) string {
	if p.Client != nil && strings.TrimSpace(p.Client.Name) != "" {
		return p.Client.Name
	}
	return p.ClientID
}
