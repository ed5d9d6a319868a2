package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/cache"
	gocache "github.com/patrickmn/go-cache"
)

// Mem es un cache in-process sobre go-cache.
type Mem struct {
	c      *gocache.Cache
	prefix string

	// takeMu serializa Take: go-cache no tiene get+delete atómico.
	takeMu sync.Mutex
}

// New crea un cache en memoria. defaultTTL se usa cuando Set recibe ttl 0.
func New(defaultTTL time.Duration, prefix string) *Mem {
	return &Mem{c: gocache.New(defaultTTL, time.Minute), prefix: prefix}
}

func (m *Mem) key(k string) string {
	if m.prefix == "" {
		return k
	}
	return m.prefix + ":" + k
}

func (m *Mem) Get(_ context.Context, k string) ([]byte, error) {
	v, ok := m.c.Get(m.key(k))
	if !ok {
		return nil, cache.ErrNotFound
	}
	b, _ := v.([]byte)
	return b, nil
}

func (m *Mem) Set(_ context.Context, k string, v []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(m.key(k), v, ttl)
	return nil
}

func (m *Mem) Take(_ context.Context, k string) ([]byte, error) {
	m.takeMu.Lock()
	defer m.takeMu.Unlock()
	key := m.key(k)
	v, ok := m.c.Get(key)
	if !ok {
		return nil, cache.ErrNotFound
	}
	m.c.Delete(key)
	b, _ := v.([]byte)
	return b, nil
}

func (m *Mem) Delete(_ context.Context, k string) error {
	m.c.Delete(m.key(k))
	return nil
}

func (m *Mem) Ping(context.Context) error { return nil }

func (m *Mem) Close() error {
	m.c.Flush()
	return nil
}

// Count devuelve la cantidad de items (incluye expirados aún no purgados).
func (m *Mem) Count() int { return m.c.ItemCount() }
