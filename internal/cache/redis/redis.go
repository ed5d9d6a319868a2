package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/cache"
	rdb "github.com/redis/go-redis/v9"
)

// Config de conexión.
type Config struct {
	Addr       string
	Password   string
	DB         int
	Prefix     string
	DefaultTTL time.Duration
}

// Cache implementa cache.Cache sobre Redis.
type Cache struct {
	c          *rdb.Client
	prefix     string
	defaultTTL time.Duration
}

// New conecta y verifica con PING.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	client := rdb.NewClient(&rdb.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}
	return NewWithClient(client, cfg.Prefix, cfg.DefaultTTL), nil
}

// NewWithClient reutiliza un cliente existente (compartido con el rate limiter).
func NewWithClient(client *rdb.Client, prefix string, defaultTTL time.Duration) *Cache {
	return &Cache{c: client, prefix: prefix, defaultTTL: defaultTTL}
}

// Client expone el cliente subyacente.
func (r *Cache) Client() *rdb.Client { return r.c }

func (r *Cache) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *Cache) Get(ctx context.Context, k string) ([]byte, error) {
	b, err := r.c.Get(ctx, r.key(k)).Bytes()
	if errors.Is(err, rdb.Nil) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Cache) Set(ctx context.Context, k string, v []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	return r.c.Set(ctx, r.key(k), v, ttl).Err()
}

// Take usa GETDEL (Redis >= 6.2).
func (r *Cache) Take(ctx context.Context, k string) ([]byte, error) {
	b, err := r.c.GetDel(ctx, r.key(k)).Bytes()
	if errors.Is(err, rdb.Nil) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Cache) Delete(ctx context.Context, k string) error {
	return r.c.Del(ctx, r.key(k)).Err()
}

func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Cache) Close() error { return r.c.Close() }
