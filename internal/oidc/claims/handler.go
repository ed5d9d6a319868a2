// Package claims resuelve qué scopes OIDC están autorizados para un access token
// y qué claims (con sus valores) implican.
//
// Un Handler declara, por nombre de scope, la lista de claims que aporta y, por
// nombre de claim, la función que calcula su valor. Los handlers se instancian
// una vez por llamada a Collect con un instante congelado (Env.Now), así que
// pueden guardar estado entre sus funciones sin preocuparse por concurrencia.
package claims

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
)

// DefaultIDTokenTTL es la vida del ID Token cuando no se configura otra.
const DefaultIDTokenTTL = 30 * time.Second

// Subject es el par (usuario, cliente) para el que se resuelven claims.
type Subject struct {
	User   *repository.User
	Client *repository.Client
}

// Env es el entorno congelado de una colección.
type Env struct {
	Now        time.Time
	Issuer     string
	IDTokenTTL time.Duration
}

// ScopeFunc devuelve los nombres de claims que aporta el scope.
// ok=false significa que el scope no está autorizado para este subject;
// ok=true con lista vacía significa autorizado sin claims.
type ScopeFunc func(ctx context.Context, s Subject) (names []string, ok bool)

// ClaimFunc calcula el valor de un claim. req es la restricción pedida por el
// cliente para ese claim (nil si no hubo). Un valor nil omite el claim.
type ClaimFunc func(ctx context.Context, s Subject, req *ClaimRequest) (any, error)

// Handler es una tabla explícita scope -> ScopeFunc y claim -> ClaimFunc.
type Handler struct {
	Name   string
	Scopes map[string]ScopeFunc
	Claims map[string]ClaimFunc
}

// HandlerFactory construye una instancia nueva de Handler para una colección.
type HandlerFactory func(env Env) *Handler

// ScopeNames lista los scopes que el handler conoce, ordenados.
func (h *Handler) ScopeNames() []string {
	out := make([]string, 0, len(h.Scopes))
	for k := range h.Scopes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ClaimNames lista los claims que el handler sabe calcular, ordenados.
func (h *Handler) ClaimNames() []string {
	out := make([]string, 0, len(h.Claims))
	for k := range h.Claims {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Static arma una ScopeFunc que siempre autoriza con la lista dada.
func Static(names ...string) ScopeFunc {
	return func(context.Context, Subject) ([]string, bool) {
		out := make([]string, len(names))
		copy(out, names)
		return out, true
	}
}

// ─── Catálogo ───

// Catalog asocia nombres configurables con factories de handlers.
// Las cadenas de handlers de id_token y userinfo se arman por nombre desde config.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]HandlerFactory
}

// NewCatalog devuelve un catálogo vacío.
func NewCatalog() *Catalog {
	return &Catalog{factories: map[string]HandlerFactory{}}
}

// DefaultCatalog incluye los handlers estándar del provider.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.Register(HandlerBasicIDToken, BasicIDTokenHandler)
	c.Register(HandlerBasicUserInfo, BasicUserInfoHandler)
	c.Register(HandlerProfile, ProfileHandler)
	c.Register(HandlerEmail, EmailHandler)
	return c
}

// Register agrega o reemplaza una factory.
func (c *Catalog) Register(name string, f HandlerFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = f
}

// Resolve devuelve las factories en el orden pedido.
func (c *Catalog) Resolve(names ...string) ([]HandlerFactory, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]HandlerFactory, 0, len(names))
	for _, n := range names {
		f, ok := c.factories[n]
		if !ok {
			return nil, fmt.Errorf("claims: unknown handler %q", n)
		}
		out = append(out, f)
	}
	return out, nil
}

// Names lista los handlers registrados, ordenados.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.factories))
	for k := range c.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
