package logger

import (
	"go.uber.org/zap"
)

// ─── HTTP ───

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }

// ─── OAuth2 / OIDC ───

func UserID(v string) zap.Field   { return zap.String("user_id", v) }
func ClientID(v string) zap.Field { return zap.String("client_id", v) }

// Email: pasar ya enmascarado (util.MaskEmail).
func Email(v string) zap.Field { return zap.String("email", v) }

// Scopes son nombres de scope, pedidos o concedidos.
func Scopes(v []string) zap.Field { return zap.Strings("scopes", v) }

// ClaimNames lleva solo nombres. Los valores de claims no se loguean.
func ClaimNames(v []string) zap.Field { return zap.Strings("claims", v) }

func GrantType(v string) zap.Field { return zap.String("grant_type", v) }

// Handlers son los nombres de claim handlers de la cadena chain ("id_token", "userinfo").
func Handlers(chain string, v []string) zap.Field { return zap.Strings(chain+"_handlers", v) }

// ─── Sistema ───

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }

// Layer: controller, service, engine, store.
func Layer(v string) zap.Field { return zap.String("layer", v) }

func Err(err error) zap.Field { return zap.Error(err) }

// ─── Genéricos ───

func String(key, v string) zap.Field    { return zap.String(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field   { return zap.Any(key, v) }
