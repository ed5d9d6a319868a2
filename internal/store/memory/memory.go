// Package memory implementa repository.Store en memoria, para tests y desarrollo.
// Los tokens se indexan por hash igual que en Postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/scope"
	tokens "github.com/dropDatabas3/hellojohn-oidc/internal/security/token"
)

type accessRow struct {
	id        int64
	hash      string
	userID    int64
	clientID  string
	scope     scope.Bits
	expiresAt time.Time
	createdAt time.Time
}

// Store guarda todo en mapas protegidos por un único RWMutex.
type Store struct {
	mu sync.RWMutex

	seq int64

	users       map[int64]repository.User
	clients     map[string]repository.Client
	trusted     map[string]struct{}
	access      map[string]*accessRow              // por hash
	refresh     map[string]repository.RefreshToken // por hash
	refreshByID map[int64]string
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		users:       map[int64]repository.User{},
		clients:     map[string]repository.Client{},
		trusted:     map[string]struct{}{},
		access:      map[string]*accessRow{},
		refresh:     map[string]repository.RefreshToken{},
		refreshByID: map[int64]string{},
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) Users() repository.UserRepository                   { return (*userRepo)(s) }
func (s *Store) Clients() repository.ClientRepository               { return (*clientRepo)(s) }
func (s *Store) TrustedClients() repository.TrustedClientRepository { return (*trustedRepo)(s) }
func (s *Store) AccessTokens() repository.AccessTokenRepository     { return (*accessRepo)(s) }
func (s *Store) RefreshTokens() repository.RefreshTokenRepository   { return (*refreshRepo)(s) }

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

// ─── Users ───

type userRepo Store

func (r *userRepo) GetByID(_ context.Context, id int64) (*repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetByEmail devuelve el de menor ID si hay varios con el mismo email.
func (r *userRepo) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var match []repository.User
	for _, u := range r.users {
		if email != "" && strings.EqualFold(u.Email, email) {
			match = append(match, u)
		}
	}
	if len(match) == 0 {
		return nil, repository.ErrNotFound
	}
	sort.Slice(match, func(i, j int) bool { return match[i].ID < match[j].ID })
	return &match[0], nil
}

func (r *userRepo) Create(_ context.Context, u *repository.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return repository.ErrConflict
		}
	}
	u.ID = (*Store)(r).nextID()
	u.CreatedAt = time.Now().UTC()
	r.users[u.ID] = *u
	return nil
}

// ─── Clients ───

type clientRepo Store

func (r *clientRepo) Get(_ context.Context, clientID string) (*repository.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[clientID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *clientRepo) Create(_ context.Context, c *repository.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c.ClientID]; ok {
		return repository.ErrConflict
	}
	c.ID = (*Store)(r).nextID()
	c.CreatedAt = time.Now().UTC()
	r.clients[c.ClientID] = *c
	return nil
}

func (r *clientRepo) Update(_ context.Context, c *repository.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.clients[c.ClientID]
	if !ok {
		return repository.ErrNotFound
	}
	c.ID = prev.ID
	c.CreatedAt = prev.CreatedAt
	r.clients[c.ClientID] = *c
	return nil
}

// ─── Trusted clients ───

type trustedRepo Store

func (r *trustedRepo) IsTrusted(_ context.Context, clientID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.trusted[clientID]
	return ok, nil
}

func (r *trustedRepo) Trust(_ context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[clientID]; !ok {
		return repository.ErrNotFound
	}
	r.trusted[clientID] = struct{}{}
	return nil
}

func (r *trustedRepo) Untrust(_ context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trusted, clientID)
	return nil
}

// ─── Access tokens ───

type accessRepo Store

func (r *accessRepo) Create(_ context.Context, t *repository.AccessToken) error {
	if t.User == nil || t.Client == nil {
		return repository.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h := tokens.SHA256Base64URL(t.Token)
	if _, ok := r.access[h]; ok {
		return repository.ErrConflict
	}
	t.ID = (*Store)(r).nextID()
	t.CreatedAt = time.Now().UTC()
	row := &accessRow{
		id:        t.ID,
		hash:      h,
		userID:    t.User.ID,
		clientID:  t.Client.ClientID,
		scope:     t.Scope,
		expiresAt: t.ExpiresAt,
		createdAt: t.CreatedAt,
	}
	r.access[h] = row
	return nil
}

func (r *accessRepo) GetByToken(_ context.Context, token string) (*repository.AccessToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.access[tokens.SHA256Base64URL(token)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u, ok := r.users[row.userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c, ok := r.clients[row.clientID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &repository.AccessToken{
		ID:        row.id,
		Token:     token,
		User:      &u,
		Client:    &c,
		Scope:     row.scope,
		ExpiresAt: row.expiresAt,
		CreatedAt: row.createdAt,
	}, nil
}

// ─── Refresh tokens ───

type refreshRepo Store

func (r *refreshRepo) Create(_ context.Context, t *repository.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := tokens.SHA256Base64URL(t.Token)
	if _, ok := r.refresh[h]; ok {
		return repository.ErrConflict
	}
	t.ID = (*Store)(r).nextID()
	t.CreatedAt = time.Now().UTC()
	stored := *t
	stored.Token = ""
	r.refresh[h] = stored
	r.refreshByID[t.ID] = h
	return nil
}

func (r *refreshRepo) GetByToken(_ context.Context, token string) (*repository.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.refresh[tokens.SHA256Base64URL(token)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t.Token = token
	return &t, nil
}

func (r *refreshRepo) MarkExpired(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.refreshByID[id]
	if !ok {
		return repository.ErrNotFound
	}
	t := r.refresh[h]
	if t.Expired {
		return repository.ErrConflict
	}
	t.Expired = true
	r.refresh[h] = t
	return nil
}

var _ repository.Store = (*Store)(nil)
