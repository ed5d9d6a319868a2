package repository

import (
	"context"
	"strings"
	"time"
)

// User representa al resource owner.
// ID es estable y su forma decimal es el claim "sub".
type User struct {
	ID           int64
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string // PHC argon2id
	IsActive     bool
	CreatedAt    time.Time
}

// FullName devuelve "first last" sin espacios sobrantes.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserRepository define operaciones sobre usuarios.
type UserRepository interface {
	// GetByID retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByUsername busca por username exacto.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByEmail busca por email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Create persiste el usuario y completa ID/CreatedAt.
	// Retorna ErrConflict si el username ya existe.
	Create(ctx context.Context, u *User) error
}
