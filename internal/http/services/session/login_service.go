// Package session contiene el login por formulario y el logout del browser.
package session

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/audit"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oauth/engine"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/session"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("inactive user")
)

// LoginService autentica usuarios y abre sesiones de browser.
type LoginService interface {
	Login(ctx context.Context, username, password string) (*session.Session, error)
	Logout(ctx context.Context, sid string) error
	TTL() time.Duration
}

type loginService struct {
	engine   *engine.Engine
	sessions *session.Store
}

// NewLoginService crea el service.
func NewLoginService(e *engine.Engine, s *session.Store) LoginService {
	return &loginService{engine: e, sessions: s}
}

func (s *loginService) Login(ctx context.Context, username, password string) (*session.Session, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("LoginService.Login"))

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	u, err := s.engine.CheckCredentials(ctx, username, password)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidGrant) {
			audit.Log(ctx, audit.EventLoginFailed, logger.String("reason", "invalid_credentials"))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	// El form de login sí exige cuenta activa (el password grant no).
	if !u.IsActive {
		audit.Log(ctx, audit.EventLoginFailed, logger.UserID(strconv.FormatInt(u.ID, 10)), logger.String("reason", "inactive"))
		return nil, ErrInactiveUser
	}

	sess, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	log.Debug("session created", logger.UserID(strconv.FormatInt(u.ID, 10)))
	audit.Log(ctx, audit.EventLoginSucceeded, logger.UserID(strconv.FormatInt(u.ID, 10)))
	return sess, nil
}

func (s *loginService) Logout(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sid); err != nil {
		return err
	}
	audit.Log(ctx, audit.EventLogout)
	return nil
}

func (s *loginService) TTL() time.Duration { return s.sessions.TTL() }
