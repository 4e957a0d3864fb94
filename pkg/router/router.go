package router

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/rbac-console/pkg/backend"
	"github.com/tendant/rbac-console/pkg/console"
	"github.com/tendant/rbac-console/pkg/errors"
)

// Config holds what SetupRoutes mounts. Either part may be nil.
type Config struct {
	Console *console.Console

	// Backend serves the REST collections under BackendPrefix.
	// BackendPrefix may be empty only when no console is mounted.
	Backend       *backend.Backend
	BackendPrefix string

	Logger *slog.Logger
}

// SetupRoutes mounts the console pages and the REST backend on the provided router
func SetupRoutes(ctx context.Context, router chi.Router, cfg Config) error {
	if cfg.Backend != nil {
		if cfg.BackendPrefix == "" {
			if cfg.Console != nil {
				return errors.New(errors.ErrCodeInvalidInput, "backend prefix is required when the console is mounted")
			}
			if err := cfg.Backend.Routes(ctx, router, cfg.Logger); err != nil {
				return err
			}
		} else {
			var routeErr error
			router.Route(cfg.BackendPrefix, func(r chi.Router) {
				routeErr = cfg.Backend.Routes(ctx, r, cfg.Logger)
			})
			if routeErr != nil {
				return routeErr
			}
		}
	}

	if cfg.Console != nil {
		cfg.Console.Routes(router)
	}
	return nil
}
