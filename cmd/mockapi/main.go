package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/chi-demo/app"

	"github.com/tendant/rbac-console/pkg/backend"
	"github.com/tendant/rbac-console/pkg/config"
	"github.com/tendant/rbac-console/pkg/router"
)

func main() {
	if err := Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cfg, err := config.LoadBackendConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	b, closeStore, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.SeedFile != "" {
		seed, err := backend.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		roles, users, err := seed.Apply(ctx, b)
		if err != nil {
			return err
		}
		slog.Info("Seeded backend", "file", cfg.SeedFile, "roles", roles, "users", users)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	app.RegisterHealthzRoutes(r)
	if err := router.SetupRoutes(ctx, r, router.Config{Backend: &b, Logger: logger}); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		slog.Info("Listening and serving", "addr", server.Addr, "store", cfg.Store)
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("Shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return err
		}
		slog.Info("Shutdown completed")
	}
	return nil
}

func openBackend(ctx context.Context, cfg config.BackendConfig) (backend.Backend, func(), error) {
	switch cfg.Store {
	case config.StoreFile:
		b, err := backend.NewFile(cfg.DataDir)
		return b, func() {}, err
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL())
		if err != nil {
			return backend.Backend{}, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return backend.Backend{}, nil, fmt.Errorf("failed to reach database: %w", err)
		}
		b, err := backend.NewPostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return backend.Backend{}, nil, err
		}
		return b, pool.Close, nil
	default:
		return backend.NewInMemory(), func() {}, nil
	}
}
