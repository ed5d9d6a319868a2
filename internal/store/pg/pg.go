// Package pg implementa repository.Store sobre PostgreSQL con pgxpool.
package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/scope"
	tokens "github.com/dropDatabas3/hellojohn-oidc/internal/security/token"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config de conexión.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store es la conexión activa a PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Open crea el pool y verifica la conexión.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Pool expone el pool (migraciones, métricas).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }
func (s *Store) Close()                         { s.pool.Close() }

// ─── Repositorios ───

func (s *Store) Users() repository.UserRepository     { return &userRepo{pool: s.pool} }
func (s *Store) Clients() repository.ClientRepository { return &clientRepo{pool: s.pool} }
func (s *Store) TrustedClients() repository.TrustedClientRepository {
	return &trustedRepo{pool: s.pool}
}
func (s *Store) AccessTokens() repository.AccessTokenRepository   { return &accessRepo{pool: s.pool} }
func (s *Store) RefreshTokens() repository.RefreshTokenRepository { return &refreshRepo{pool: s.pool} }

// mapErr traduce errores de pgx a errores de dominio.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("pg: %s: %w", op, repository.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("pg: %s: %w", op, repository.ErrNotFound)
		}
	}
	return fmt.Errorf("pg: %s: %w", op, err)
}

// ─── UserRepository ───

type userRepo struct{ pool *pgxpool.Pool }

const userColumns = `id, username, email, first_name, last_name, password_hash, is_active, created_at`

func scanUser(row pgx.Row) (*repository.User, error) {
	var u repository.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*repository.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM app_user WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("get user by id", err)
	}
	return u, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM app_user WHERE username = $1`, username))
	if err != nil {
		return nil, mapErr("get user by username", err)
	}
	return u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, repository.ErrNotFound
	}
	const query = `SELECT ` + userColumns + ` FROM app_user WHERE LOWER(email) = LOWER($1) ORDER BY id LIMIT 1`
	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, mapErr("get user by email", err)
	}
	return u, nil
}

func (r *userRepo) Create(ctx context.Context, u *repository.User) error {
	const query = `
		INSERT INTO app_user (username, email, first_name, last_name, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt)
	return mapErr("create user", err)
}

// ─── ClientRepository ───

type clientRepo struct{ pool *pgxpool.Pool }

func (r *clientRepo) Get(ctx context.Context, clientID string) (*repository.Client, error) {
	const query = `
		SELECT id, client_id, client_secret, name, url, redirect_uri, logout_uri, client_type, user_id, created_at
		FROM oauth_client WHERE client_id = $1
	`
	var c repository.Client
	err := r.pool.QueryRow(ctx, query, clientID).Scan(
		&c.ID, &c.ClientID, &c.ClientSecret, &c.Name, &c.URL,
		&c.RedirectURI, &c.LogoutURI, &c.Type, &c.UserID, &c.CreatedAt,
	)
	if err != nil {
		return nil, mapErr("get client", err)
	}
	return &c, nil
}

func (r *clientRepo) Create(ctx context.Context, c *repository.Client) error {
	const query = `
		INSERT INTO oauth_client (client_id, client_secret, name, url, redirect_uri, logout_uri, client_type, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		c.ClientID, c.ClientSecret, c.Name, c.URL, c.RedirectURI, c.LogoutURI, c.Type, c.UserID,
	).Scan(&c.ID, &c.CreatedAt)
	return mapErr("create client", err)
}

func (r *clientRepo) Update(ctx context.Context, c *repository.Client) error {
	const query = `
		UPDATE oauth_client
		SET client_secret = $2, name = $3, url = $4, redirect_uri = $5, logout_uri = $6, client_type = $7, user_id = $8
		WHERE client_id = $1
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		c.ClientID, c.ClientSecret, c.Name, c.URL, c.RedirectURI, c.LogoutURI, c.Type, c.UserID,
	).Scan(&c.ID, &c.CreatedAt)
	return mapErr("update client", err)
}

// ─── TrustedClientRepository ───

type trustedRepo struct{ pool *pgxpool.Pool }

func (r *trustedRepo) IsTrusted(ctx context.Context, clientID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM trusted_client WHERE client_id = $1)`, clientID).Scan(&ok)
	if err != nil {
		return false, mapErr("is trusted", err)
	}
	return ok, nil
}

func (r *trustedRepo) Trust(ctx context.Context, clientID string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO trusted_client (client_id) VALUES ($1) ON CONFLICT DO NOTHING`, clientID)
	return mapErr("trust client", err)
}

func (r *trustedRepo) Untrust(ctx context.Context, clientID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM trusted_client WHERE client_id = $1`, clientID)
	return mapErr("untrust client", err)
}

// ─── AccessTokenRepository ───

type accessRepo struct{ pool *pgxpool.Pool }

func (r *accessRepo) Create(ctx context.Context, t *repository.AccessToken) error {
	if t.User == nil || t.Client == nil {
		return repository.ErrInvalidInput
	}
	const query = `
		INSERT INTO access_token (token_hash, user_id, client_id, scope, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		tokens.SHA256Base64URL(t.Token), t.User.ID, t.Client.ClientID, int64(t.Scope), t.ExpiresAt,
	).Scan(&t.ID, &t.CreatedAt)
	return mapErr("create access token", err)
}

func (r *accessRepo) GetByToken(ctx context.Context, token string) (*repository.AccessToken, error) {
	const query = `
		SELECT t.id, t.scope, t.expires_at, t.created_at,
		       u.id, u.username, u.email, u.first_name, u.last_name, u.password_hash, u.is_active, u.created_at,
		       c.id, c.client_id, c.client_secret, c.name, c.url, c.redirect_uri, c.logout_uri, c.client_type, c.user_id, c.created_at
		FROM access_token t
		JOIN app_user u ON u.id = t.user_id
		JOIN oauth_client c ON c.client_id = t.client_id
		WHERE t.token_hash = $1
	`
	var (
		at  repository.AccessToken
		u   repository.User
		c   repository.Client
		raw int64
	)
	err := r.pool.QueryRow(ctx, query, tokens.SHA256Base64URL(token)).Scan(
		&at.ID, &raw, &at.ExpiresAt, &at.CreatedAt,
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.IsActive, &u.CreatedAt,
		&c.ID, &c.ClientID, &c.ClientSecret, &c.Name, &c.URL, &c.RedirectURI, &c.LogoutURI, &c.Type, &c.UserID, &c.CreatedAt,
	)
	if err != nil {
		return nil, mapErr("get access token", err)
	}
	at.Token = token
	at.Scope = scope.Bits(raw)
	at.User = &u
	at.Client = &c
	return &at, nil
}

// ─── RefreshTokenRepository ───

type refreshRepo struct{ pool *pgxpool.Pool }

func (r *refreshRepo) Create(ctx context.Context, t *repository.RefreshToken) error {
	const query = `
		INSERT INTO refresh_token (token_hash, access_token_id, user_id, client_id, scope)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		tokens.SHA256Base64URL(t.Token), t.AccessTokenID, t.UserID, t.ClientID, int64(t.Scope),
	).Scan(&t.ID, &t.CreatedAt)
	return mapErr("create refresh token", err)
}

func (r *refreshRepo) GetByToken(ctx context.Context, token string) (*repository.RefreshToken, error) {
	const query = `
		SELECT id, access_token_id, user_id, client_id, scope, expired, created_at
		FROM refresh_token WHERE token_hash = $1
	`
	var (
		t   repository.RefreshToken
		raw int64
	)
	err := r.pool.QueryRow(ctx, query, tokens.SHA256Base64URL(token)).Scan(
		&t.ID, &t.AccessTokenID, &t.UserID, &t.ClientID, &raw, &t.Expired, &t.CreatedAt,
	)
	if err != nil {
		return nil, mapErr("get refresh token", err)
	}
	t.Token = token
	t.Scope = scope.Bits(raw)
	return &t, nil
}

func (r *refreshRepo) MarkExpired(ctx context.Context, id int64) error {
	// FOR UPDATE serializa canjes concurrentes; prev.expired es el valor anterior.
	const query = `
		WITH prev AS (
			SELECT id, expired FROM refresh_token WHERE id = $1 FOR UPDATE
		)
		UPDATE refresh_token r SET expired = TRUE
		FROM prev WHERE r.id = prev.id
		RETURNING prev.expired
	`
	var wasExpired bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&wasExpired); err != nil {
		return mapErr("expire refresh token", err)
	}
	if wasExpired {
		return repository.ErrConflict
	}
	return nil
}

var _ repository.Store = (*Store)(nil)
