package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/tendant/chi-demo/app"

	"github.com/tendant/rbac-console/pkg/backend"
	"github.com/tendant/rbac-console/pkg/config"
	"github.com/tendant/rbac-console/pkg/console"
	"github.com/tendant/rbac-console/pkg/resource"
	"github.com/tendant/rbac-console/pkg/role"
	"github.com/tendant/rbac-console/pkg/router"
	"github.com/tendant/rbac-console/pkg/user"
)

func main() {
	cfg, err := config.LoadConsoleConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     config.ParseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx := context.Background()
	backendURL := cfg.ResolvedBackendURL()

	c, err := console.New(console.Config{
		Roles:      resource.NewClient[role.Role](backendURL, "roles", resource.WithTimeout(cfg.RequestTimeout)),
		Users:      resource.NewClient[user.User](backendURL, "users", resource.WithTimeout(cfg.RequestTimeout)),
		Vocabulary: cfg.PermissionVocabulary(),
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	})
	if err != nil {
		slog.Error("Failed to create console", "error", err)
		os.Exit(1)
	}
	go c.Sessions().RunSweeper(ctx, time.Minute)

	routes := router.Config{Console: c, Logger: logger}
	if cfg.EmbedBackend {
		b := backend.NewInMemory()
		routes.Backend = &b
		routes.BackendPrefix = config.EmbeddedBackendPrefix
	}

	server := app.NewApp(app.WithPort(cfg.Port))
	app.RegisterHealthzRoutes(server.R)

	if err := router.SetupRoutes(ctx, server.R, routes); err != nil {
		slog.Error("Failed to set up routes", "error", err)
		os.Exit(1)
	}

	slog.Info("RBAC console ready", "port", cfg.Port, "backend", backendURL, "embedded_backend", cfg.EmbedBackend)
	server.Run()
}
