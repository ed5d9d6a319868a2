package middlewares

import (
	"context"

	"github.com/dropDatabas3/hellojohn-oidc/internal/session"
)

type ctxKey string

const (
	ctxRequestIDKey ctxKey = "request_id"
	ctxSessionKey   ctxKey = "session"
)

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// WithSessionContext inyecta la sesión (ya validada) en el contexto.
func WithSessionContext(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, ctxSessionKey, s)
}

// GetRequestID obtiene el request ID del contexto ("" si no hay).
func GetRequestID(ctx context.Context) string {
	if s, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return s
	}
	return ""
}

// GetSession devuelve la sesión del usuario o nil si no hay login.
func GetSession(ctx context.Context) *session.Session {
	if s, ok := ctx.Value(ctxSessionKey).(*session.Session); ok {
		return s
	}
	return nil
}
