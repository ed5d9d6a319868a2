package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/hellojohn-oidc/internal/config"
	"github.com/dropDatabas3/hellojohn-oidc/internal/http/server"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
)

func main() {
	// .env opcional; .env.dev pisa a .env
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.dev")

	configPath := flag.String("config", strings.TrimSpace(os.Getenv("CONFIG_PATH")), "Path to YAML config (vacío = solo env)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	})
	defer func() { _ = logger.Sync() }()
	lg := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.Build(logger.ToContext(ctx, lg), cfg, server.Options{})
	if err != nil {
		lg.Fatal("build failed", logger.Err(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			lg.Warn("close failed", logger.Err(err))
		}
	}()

	if err := server.Run(ctx, cfg, app.Handler); err != nil {
		lg.Error("server stopped", logger.Err(err))
		return
	}
	lg.Info("bye")
}
