// Package session guarda las sesiones de login del browser en el cache.
//
// La cookie lleva el sid en claro; la key del cache es "sid:" + sha256(sid).
// Cada sesión recuerda los clients que el usuario autorizó (orden de alta, sin
// duplicados).
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/cache"
	tokens "github.com/dropDatabas3/hellojohn-oidc/internal/security/token"
)

const keyPrefix = "sid:"

// ErrNotFound: sid vacío, inexistente o vencido.
var ErrNotFound = errors.New("session: not found")

// Session es el payload serializado en el cache.
type Session struct {
	ID                string    `json:"-"`
	UserID            int64     `json:"user_id"`
	AuthorizedClients []string  `json:"authorized_clients,omitempty"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// Store maneja sesiones sobre un cache.Cache.
type Store struct {
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewStore crea el store. ttl <= 0 usa 24h.
func NewStore(c cache.Cache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{cache: c, ttl: ttl, now: time.Now}
}

// TTL de las sesiones nuevas (para la cookie).
func (s *Store) TTL() time.Duration { return s.ttl }

func key(sid string) string { return keyPrefix + tokens.SHA256Base64URL(sid) }

// Create abre una sesión para userID y devuelve el sid para la cookie.
func (s *Store) Create(ctx context.Context, userID int64) (*Session, error) {
	sid, err := tokens.GenerateOpaqueToken(tokens.SessionBytes)
	if err != nil {
		return nil, fmt.Errorf("session: generate sid: %w", err)
	}
	sess := &Session{ID: sid, UserID: userID, ExpiresAt: s.now().Add(s.ttl).UTC()}
	if err := cache.SetJSON(ctx, s.cache, key(sid), sess, s.ttl); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get carga la sesión de un sid.
func (s *Store) Get(ctx context.Context, sid string) (*Session, error) {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return nil, ErrNotFound
	}
	var sess Session
	if err := cache.GetJSON(ctx, s.cache, key(sid), &sess); err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !sess.ExpiresAt.IsZero() && !s.now().Before(sess.ExpiresAt) {
		_ = s.cache.Delete(ctx, key(sid))
		return nil, ErrNotFound
	}
	sess.ID = sid
	return &sess, nil
}

// Delete cierra la sesión.
func (s *Store) Delete(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return nil
	}
	return s.cache.Delete(ctx, key(sid))
}

// AddAuthorizedClient agrega clientID a la lista de la sesión si no estaba.
// Conserva el vencimiento original.
func (s *Store) AddAuthorizedClient(ctx context.Context, sid, clientID string) error {
	sess, err := s.Get(ctx, sid)
	if err != nil {
		return err
	}
	for _, c := range sess.AuthorizedClients {
		if c == clientID {
			return nil
		}
	}
	sess.AuthorizedClients = append(sess.AuthorizedClients, clientID)

	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return ErrNotFound
	}
	return cache.SetJSON(ctx, s.cache, key(sid), sess, ttl)
}
