// Package health expone /healthz.
package health

import (
	"context"
	"net/http"
	"time"

	httperrors "github.com/dropDatabas3/hellojohn-oidc/internal/http/errors"
	"github.com/dropDatabas3/hellojohn-oidc/internal/http/helpers"
)

// Pinger es cualquier dependencia que se puede chequear (store, cache).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller chequea las dependencias con un timeout corto.
type Controller struct {
	checks  map[string]Pinger
	timeout time.Duration
}

// NewController crea el controller; checks: nombre → dependencia.
func NewController(checks map[string]Pinger) *Controller {
	return &Controller{checks: checks, timeout: 2 * time.Second}
}

// Healthz devuelve 200 {"status":"ok"} o 503 con la dependencia caída.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	for name, p := range c.checks {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithDetail(name+" unavailable").WithCause(err))
			return
		}
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
