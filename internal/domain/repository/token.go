package repository

import (
	"context"
	"math"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/scope"
)

// AccessToken es un token opaco emitido por el token endpoint.
// Token solo viaja en claro al emitirse; los stores guardan su hash.
type AccessToken struct {
	ID        int64
	Token     string
	User      *User
	Client    *Client
	Scope     scope.Bits
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ExpireDelta devuelve los segundos que le quedan al token (puede ser <= 0).
func (t *AccessToken) ExpireDelta(now time.Time) int64 {
	return int64(math.Ceil(t.ExpiresAt.Sub(now).Seconds()))
}

// AccessTokenRepository define operaciones sobre access tokens.
type AccessTokenRepository interface {
	// Create persiste el token (t.User y t.Client requeridos) y completa ID.
	Create(ctx context.Context, t *AccessToken) error

	// GetByToken busca por el valor opaco, con User y Client cargados.
	// Retorna ErrNotFound si no existe (expirados incluidos: lo decide el caller).
	GetByToken(ctx context.Context, token string) (*AccessToken, error)
}

// RefreshToken permite obtener un nuevo access token sin el usuario presente.
type RefreshToken struct {
	ID            int64
	Token         string
	AccessTokenID int64
	UserID        int64
	ClientID      string
	Scope         scope.Bits // scope máximo de los access tokens derivados
	Expired       bool
	CreatedAt     time.Time
}

// RefreshTokenRepository define operaciones sobre refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, t *RefreshToken) error

	// GetByToken retorna ErrNotFound si no existe.
	GetByToken(ctx context.Context, token string) (*RefreshToken, error)

	// MarkExpired invalida el token (rotación). Es un check-and-set: si ya
	// estaba expirado retorna ErrConflict, así solo un canje concurrente gana.
	MarkExpired(ctx context.Context, id int64) error
}

// Store agrupa todos los repositorios de un backend.
type Store interface {
	Users() UserRepository
	Clients() ClientRepository
	TrustedClients() TrustedClientRepository
	AccessTokens() AccessTokenRepository
	RefreshTokens() RefreshTokenRepository

	Ping(ctx context.Context) error
	Close()
}
