package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(" warning "))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestBuild_LevelAndEnv(t *testing.T) {
	for _, env := range []string{"dev", "prod"} {
		l := build(Config{Env: env, Level: "warn", ServiceName: "svc", Version: "1.0"})
		assert.NotNil(t, l)
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel), env)
		assert.True(t, l.Core().Enabled(zapcore.WarnLevel), env)
	}
}

func TestFrom_FallsBackToSingleton(t *testing.T) {
	assert.Same(t, L(), From(context.Background()))
	//nolint:staticcheck // nil ctx es un caso soportado
	assert.Same(t, L(), From(nil))

	core, logs := observer.New(zap.DebugLevel)
	scoped := zap.New(core)
	ctx := ToContext(context.Background(), scoped)
	From(ctx).Info("hola", ClientID("rp"), Scopes([]string{"openid"}), Handlers("userinfo", []string{"email"}))

	assert.Equal(t, 1, logs.Len())
	m := logs.All()[0].ContextMap()
	assert.Equal(t, "rp", m["client_id"])
	assert.Equal(t, []any{"email"}, m["userinfo_handlers"])
}
