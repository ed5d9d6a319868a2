// Package audit registra eventos de seguridad (login, consentimiento,
// provisioning) en el logger "audit".
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

// Eventos conocidos.
const (
	EventLoginSucceeded    = "login.succeeded"
	EventLoginFailed       = "login.failed"
	EventLogout            = "logout"
	EventConsentGranted    = "consent.granted"
	EventConsentDenied     = "consent.denied"
	EventAutoApproved      = "consent.auto_approved"
	EventClientProvisioned = "client.provisioned"
	EventUserProvisioned   = "user.provisioned"
)

// Log escribe el evento con el logger del contexto (request_id incluido).
func Log(ctx context.Context, event string, fields ...zap.Field) {
	logger.From(ctx).Named("audit").Info(event, append([]zap.Field{zap.String("event", event)}, fields...)...)
}
