package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

func TestLog_UsesContextLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core).With(logger.RequestID("req-1")))

	Log(ctx, EventConsentGranted, logger.ClientID("rp"))

	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	assert.Equal(t, "audit", e.LoggerName)
	assert.Equal(t, EventConsentGranted, e.Message)
	fields := e.ContextMap()
	assert.Equal(t, "consent.granted", fields["event"])
	assert.Equal(t, "rp", fields["client_id"])
	assert.Equal(t, "req-1", fields["request_id"])
}
