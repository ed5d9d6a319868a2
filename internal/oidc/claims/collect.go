package claims

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/scope"
	"golang.org/x/sync/errgroup"
)

// ErrHandler envuelve errores devueltos por una ClaimFunc.
var ErrHandler = errors.New("claim handler failed")

// Input es lo que se resuelve en una colección.
type Input struct {
	Subject    Subject
	TokenScope scope.Bits

	// Inclusive devuelve todos los scopes autorizados (ID Token).
	// Si es false solo se seleccionan openid + los de ScopeRequest (UserInfo).
	Inclusive    bool
	ScopeRequest []string

	// Claims es la sección (id_token o userinfo) del parámetro claims, sin validar.
	Claims map[string]any
}

// Result son los scopes seleccionados (orden del registro) y los claims resueltos.
type Result struct {
	Scopes []string
	Claims map[string]any
}

// ClaimNames lista los claims del resultado, ordenados (útil para logs).
func (r Result) ClaimNames() []string {
	out := make([]string, 0, len(r.Claims))
	for k := range r.Claims {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Collector ejecuta una cadena de handlers sobre un access token.
type Collector struct {
	registry    *scope.Registry
	factories   []HandlerFactory
	env         Env
	now         func() time.Time
	concurrency int
	observe     func(time.Duration)
}

// Option configura un Collector.
type Option func(*Collector)

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// WithConcurrency evalúa hasta n handlers en paralelo. El merge sigue siendo en orden.
func WithConcurrency(n int) Option {
	return func(c *Collector) { c.concurrency = n }
}

// WithObserver recibe la duración de cada Collect exitoso (métricas).
func WithObserver(fn func(time.Duration)) Option {
	return func(c *Collector) { c.observe = fn }
}

// NewCollector arma un collector. env.Now se ignora: se congela en cada Collect.
func NewCollector(reg *scope.Registry, env Env, factories []HandlerFactory, opts ...Option) *Collector {
	c := &Collector{
		registry:  reg,
		factories: factories,
		env:       env,
		now:       time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type scopeAnswer struct {
	names []string
	ok    bool
}

// Collect resuelve scopes y claims para in.
func (c *Collector) Collect(ctx context.Context, in Input) (Result, error) {
	start := time.Now()
	log := logger.From(ctx).With(logger.Component("claims"), logger.Op("Collector.Collect"))

	request, err := ValidateRequest(in.Claims, false)
	if err != nil {
		return Result{}, err
	}

	env := c.env
	env.Now = c.now()
	handlers := make([]*Handler, len(c.factories))
	for i, f := range c.factories {
		handlers[i] = f(env)
	}

	// Candidatos: openid siempre, más los scopes del token.
	candidates := []string{scope.NameOpenID}
	for _, n := range c.registry.BitsToNames(in.TokenScope) {
		if n != scope.NameOpenID {
			candidates = append(candidates, n)
		}
	}

	// Cada ScopeFunc se evalúa una sola vez por llamada.
	answers := make([]map[string]scopeAnswer, len(handlers))
	err = c.each(ctx, len(handlers), func(ctx context.Context, i int) error {
		h := handlers[i]
		m := make(map[string]scopeAnswer, len(candidates))
		for _, name := range candidates {
			fn, ok := h.Scopes[name]
			if !ok {
				continue
			}
			names, authorized := fn(ctx, in.Subject)
			m[name] = scopeAnswer{names: names, ok: authorized}
		}
		answers[i] = m
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	authorized := make([]string, 0, len(candidates))
	for _, name := range candidates {
		for i := range handlers {
			if a, ok := answers[i][name]; ok && a.ok {
				authorized = append(authorized, name)
				break
			}
		}
	}

	selected := authorized
	if !in.Inclusive {
		want := make(map[string]struct{}, len(in.ScopeRequest))
		for _, s := range in.ScopeRequest {
			want[s] = struct{}{}
		}
		selected = []string{scope.NameOpenID}
		for _, name := range authorized {
			if name == scope.NameOpenID {
				continue
			}
			if _, ok := want[name]; ok {
				selected = append(selected, name)
			}
		}
	}

	names := claimNamesFor(answers, selected)
	allowed := claimNamesFor(answers, authorized)
	for name := range request {
		if _, ok := allowed[name]; ok {
			names[name] = struct{}{}
		}
	}

	ordered := make([]string, 0, len(names))
	for n := range names {
		ordered = append(ordered, n)
	}
	sort.Strings(ordered)

	partials := make([]map[string]any, len(handlers))
	err = c.each(ctx, len(handlers), func(ctx context.Context, i int) error {
		h := handlers[i]
		out := map[string]any{}
		for _, name := range ordered {
			fn, ok := h.Claims[name]
			if !ok {
				continue
			}
			v, err := fn(ctx, in.Subject, request[name])
			if err != nil {
				return fmt.Errorf("%w: %s.%s: %w", ErrHandler, h.Name, name, err)
			}
			if v != nil {
				out[name] = v
			}
		}
		partials[i] = out
		return nil
	})
	if err != nil {
		log.Warn("claim collection failed", logger.Err(err))
		return Result{}, err
	}

	// Último valor no-nil gana, en el orden configurado de handlers.
	values := map[string]any{}
	for _, p := range partials {
		for k, v := range p {
			values[k] = v
		}
	}

	res := Result{Scopes: selected, Claims: values}
	if c.observe != nil {
		c.observe(time.Since(start))
	}
	log.Debug("claims collected",
		logger.Scopes(res.Scopes),
		logger.ClaimNames(res.ClaimNames()),
		logger.Bool("inclusive", in.Inclusive),
	)
	return res, nil
}

// SupportedClaims lista los claims que la cadena puede producir (discovery).
func (c *Collector) SupportedClaims() []string {
	env := c.env
	env.Now = c.now()
	set := map[string]struct{}{}
	for _, f := range c.factories {
		for name := range f(env).Claims {
			set[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func claimNamesFor(answers []map[string]scopeAnswer, scopes []string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, name := range scopes {
		for _, m := range answers {
			a, ok := m[name]
			if !ok || !a.ok {
				continue
			}
			for _, n := range a.names {
				out[n] = struct{}{}
			}
		}
	}
	return out
}

// each ejecuta fn para cada handler, en paralelo si concurrency > 1.
func (c *Collector) each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if c.concurrency <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error { return fn(gctx, i) })
	}
	return g.Wait()
}
