// Package store abre el backend de persistencia configurado.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/store/memory"
	"github.com/dropDatabas3/hellojohn-oidc/internal/store/pg"
	migrations "github.com/dropDatabas3/hellojohn-oidc/migrations/postgres"
)

// Drivers soportados.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config selecciona y configura el driver.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// Open devuelve el Store para cfg.Driver.
func Open(ctx context.Context, cfg Config) (repository.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverMemory, "":
		return memory.New(), nil
	case DriverPostgres, "pg":
		s, err := pg.Open(ctx, pg.Config{
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if _, err := pg.Migrate(ctx, s.Pool(), migrations.FS, migrations.Dir); err != nil {
				s.Close()
				return nil, err
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}
