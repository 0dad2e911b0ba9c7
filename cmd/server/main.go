package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/mailguard/internal/api"
	"github.com/ignite/mailguard/internal/app"
	"github.com/ignite/mailguard/internal/config"
	"github.com/ignite/mailguard/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("MAILGUARD_CONFIG"), "path to config.yaml")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	app.ConfigureLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	deps := api.Deps{
		Verifier: a.Verifier,
		Records:  a.Leads,
		Guard:    a.Guard,
		Limiter:  a.Limiter,
		Renderer: a.Renderer,
	}
	if a.Gate != nil {
		deps.Gate = a.Gate
	}
	hc := api.NewHealthChecker(a.DB, a.Redis).WithLimiter(a.Limiter)
	srv := api.NewServer(cfg.Server, api.NewHandlers(deps), hc)

	go func() {
		logger.Info("api listening", "addr", cfg.Server.Addr(), "ses", a.Gate != nil, "redis", a.Redis != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
