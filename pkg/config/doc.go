// Package config loads runtime configuration for the rbac-console binaries.
//
// Configuration comes from environment variables, optionally primed from a .env file
// (RBAC_ENV_FILE, default ".env"). Structs are populated with cleanenv using `env` and
// `env-default` tags:
//
//	cfg, err := config.LoadConsoleConfig()
//	if err != nil {
//		slog.Error("Failed to read configuration", "error", err)
//		os.Exit(1)
//	}
//
// Console variables:
//
//	CONSOLE_PORT=4000
//	BACKEND_URL=http://localhost:3001
//	CONSOLE_REQUEST_TIMEOUT=10s
//	CONSOLE_SESSION_TTL=12h
//	CONSOLE_PERMISSIONS=Read,Write,Delete
//	LOG_LEVEL=info
//	CONSOLE_EMBED_BACKEND=false   serve an in-memory backend under /api instead of BACKEND_URL
//
// Development backend variables:
//
//	MOCKAPI_PORT=3001
//	MOCKAPI_STORE=memory|file|postgres
//	MOCKAPI_DATA_DIR=./data
//	MOCKAPI_SEED=./db.json
//	RBAC_PG_HOST / RBAC_PG_PORT / RBAC_PG_DATABASE / RBAC_PG_USER / RBAC_PG_PASSWORD
package config
