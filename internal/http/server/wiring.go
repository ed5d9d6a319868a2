// Package server arma las dependencias del provider a partir de la config y
// levanta el servidor HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/hellojohn-oidc/internal/cache"
	cachemem "github.com/dropDatabas3/hellojohn-oidc/internal/cache/memory"
	cacheredis "github.com/dropDatabas3/hellojohn-oidc/internal/cache/redis"
	"github.com/dropDatabas3/hellojohn-oidc/internal/config"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	httpx "github.com/dropDatabas3/hellojohn-oidc/internal/http"
	"github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/oauth"
	oidcctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/oidc"
	sessionctrl "github.com/dropDatabas3/hellojohn-oidc/internal/http/controllers/session"
	"github.com/dropDatabas3/hellojohn-oidc/internal/http/router"
	oauthsvc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oauth"
	oidcsvc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/oidc"
	sessionsvc "github.com/dropDatabas3/hellojohn-oidc/internal/http/services/session"
	"github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oauth/engine"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oauth/gate"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/claims"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/issuer"
	"github.com/dropDatabas3/hellojohn-oidc/internal/oidc/scope"
	"github.com/dropDatabas3/hellojohn-oidc/internal/rate"
	"github.com/dropDatabas3/hellojohn-oidc/internal/session"
	"github.com/dropDatabas3/hellojohn-oidc/internal/store"
)

// App es el provider armado: handler + recursos a cerrar.
type App struct {
	Handler  http.Handler
	Store    repository.Store
	Cache    cache.Cache
	Issuer   *issuer.Issuer
	Engine   *engine.Engine
	Sessions *session.Store
}

// Options para Build. Registry nil = prometheus.DefaultRegisterer.
type Options struct {
	Registry prometheus.Registerer
	Gatherer prometheus.Gatherer
}

// Build arma store, cache, limiters, issuer, engine, gate, services y router.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := logger.From(ctx).With(logger.Component("server"), logger.Op("Build"))

	st, err := store.Open(ctx, store.Config{
		Driver:          cfg.Storage.Driver,
		DSN:             cfg.Storage.DSN,
		MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
		ConnMaxLifetime: config.Dur(cfg.Storage.Postgres.ConnMaxLifetime),
		AutoMigrate:     cfg.Storage.AutoMigrate,
	})
	if err != nil {
		return nil, fmt.Errorf("server: open store: %w", err)
	}

	c, tokenLimiter, loginLimiter, err := buildCache(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	reg := scope.Default()
	iss, err := buildIssuer(cfg, reg)
	if err != nil {
		st.Close()
		_ = c.Close()
		return nil, err
	}

	sessions := session.NewStore(c, config.Dur(cfg.Session.TTL))
	cookie := session.CookieConfig{
		Name:     cfg.Session.CookieName,
		Domain:   cfg.Session.Domain,
		SameSite: cfg.Session.SameSite,
		Secure:   cfg.Session.Secure,
	}

	eng := engine.New(engine.Deps{
		Store:    st,
		Cache:    c,
		Registry: reg,
		Extender: iss,
		Config: engine.Config{
			AccessTTL:  config.Dur(cfg.OAuth.AccessTTL),
			RefreshTTL: config.Dur(cfg.OAuth.RefreshTTL),
			CodeTTL:    config.Dur(cfg.OAuth.CodeTTL),
			ConsentTTL: config.Dur(cfg.OAuth.ConsentTTL),
		},
	})
	g := gate.New(gate.Deps{
		Registry: reg,
		Trusted:  st.TrustedClients(),
		Tokens:   st.AccessTokens(),
		Sessions: sessions,
	})

	metricsCfg := httpx.MetricsConfig{Registry: opts.Registry, Gatherer: opts.Gatherer}
	if p, ok := st.(interface{ Pool() *pgxpool.Pool }); ok {
		metricsCfg.GlobalPool = p.Pool
	}
	metricsHandler, err := httpx.RegisterMetrics(metricsCfg)
	if err != nil {
		st.Close()
		_ = c.Close()
		return nil, fmt.Errorf("server: metrics: %w", err)
	}

	oauthServices := oauthsvc.NewServices(oauthsvc.Deps{Engine: eng, Gate: g})
	oidcServices := oidcsvc.NewServices(oidcsvc.Deps{Issuer: iss, Gate: g, IssuerURL: cfg.OIDC.Issuer})

	deps := router.Deps{
		OAuth:    oauthctrl.NewControllers(oauthServices),
		OIDC:     oidcctrl.NewControllers(oidcServices),
		Login:    sessionctrl.NewLoginController(sessionsvc.NewLoginService(eng, sessions), cookie),
		Health:   health.NewController(map[string]health.Pinger{"store": st, "cache": c}),
		Metrics:  metricsHandler,
		Sessions: sessions,
		Cookie:   cookie,
	}
	if cfg.Rate.Enabled {
		deps.TokenLimiter = tokenLimiter
		deps.LoginLimiter = loginLimiter
		deps.RateWhitelist = cfg.Rate.Whitelist
	}

	log.Info("provider ready",
		logger.String("issuer", cfg.OIDC.Issuer),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind),
		logger.Bool("rate_limit", cfg.Rate.Enabled),
		logger.Handlers("id_token", cfg.OIDC.IDTokenHandlers),
		logger.Handlers("userinfo", cfg.OIDC.UserInfoHandlers),
	)
	return &App{Handler: router.New(deps), Store: st, Cache: c, Issuer: iss, Engine: eng, Sessions: sessions}, nil
}

// buildCache elige el backend. Con Redis los limiters comparten el cliente.
func buildCache(ctx context.Context, cfg *config.Config) (cache.Cache, rate.Limiter, rate.Limiter, error) {
	tokenWindow := config.Dur(cfg.Rate.Token.Window)
	loginWindow := config.Dur(cfg.Rate.Login.Window)

	if strings.EqualFold(cfg.Cache.Kind, "redis") {
		rc, err := cacheredis.New(ctx, cacheredis.Config{
			Addr:       cfg.Cache.Redis.Addr,
			Password:   cfg.Cache.Redis.Password,
			DB:         cfg.Cache.Redis.DB,
			Prefix:     cfg.Cache.Redis.Prefix,
			DefaultTTL: config.Dur(cfg.Cache.Memory.DefaultTTL),
		})
		if err != nil {
			return nil, nil, nil, err
		}
		prefix := cfg.Cache.Redis.Prefix + ":rl:"
		return rc,
			rate.NewRedisLimiter(rc.Client(), prefix+"token:", cfg.Rate.Token.Limit, tokenWindow),
			rate.NewRedisLimiter(rc.Client(), prefix+"login:", cfg.Rate.Login.Limit, loginWindow),
			nil
	}

	return cachemem.New(config.Dur(cfg.Cache.Memory.DefaultTTL), ""),
		rate.NewMemoryLimiter(cfg.Rate.Token.Limit, tokenWindow),
		rate.NewMemoryLimiter(cfg.Rate.Login.Limit, loginWindow),
		nil
}

func buildIssuer(cfg *config.Config, reg *scope.Registry) (*issuer.Issuer, error) {
	cat := claims.DefaultCatalog()
	var idChain, uiChain []claims.HandlerFactory
	var err error
	if len(cfg.OIDC.IDTokenHandlers) > 0 {
		if idChain, err = cat.Resolve(cfg.OIDC.IDTokenHandlers...); err != nil {
			return nil, fmt.Errorf("server: oidc.id_token_handlers: %w", err)
		}
	}
	if len(cfg.OIDC.UserInfoHandlers) > 0 {
		if uiChain, err = cat.Resolve(cfg.OIDC.UserInfoHandlers...); err != nil {
			return nil, fmt.Errorf("server: oidc.userinfo_handlers: %w", err)
		}
	}

	opts := []claims.Option{claims.WithObserver(httpx.ObserveClaimCollect)}
	if cfg.OIDC.CollectConcurrency > 0 {
		opts = append(opts, claims.WithConcurrency(cfg.OIDC.CollectConcurrency))
	}

	return issuer.New(issuer.Config{
		Registry:         reg,
		Issuer:           cfg.OIDC.Issuer,
		IDTokenTTL:       time.Duration(cfg.OIDC.IDTokenTTL) * time.Second,
		IDTokenHandlers:  idChain,
		UserInfoHandlers: uiChain,
		Signer:           jwt.HMAC{},
		Alg:              cfg.OIDC.SigningAlg,
		CollectorOptions: opts,
	})
}

// Close libera store y cache.
func (a *App) Close() error {
	a.Store.Close()
	return a.Cache.Close()
}

// Run sirve a.Handler hasta que ctx se cancela y luego apaga con gracia.
func Run(ctx context.Context, cfg *config.Config, h http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h,
		ReadTimeout:       config.Dur(cfg.Server.ReadTimeout),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      config.Dur(cfg.Server.WriteTimeout),
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("http listening", logger.String("addr", cfg.Server.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Dur(cfg.Server.ShutdownTimeout))
	defer cancel()
	logger.L().Info("http shutting down")
	return srv.Shutdown(shutdownCtx)
}
