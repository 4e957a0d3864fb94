package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Store kinds accepted by MOCKAPI_STORE
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// ConsoleConfig configures the server-rendered console.
type ConsoleConfig struct {
	Port           int           `env:"CONSOLE_PORT" env-default:"4000"`
	BackendURL     string        `env:"BACKEND_URL" env-default:"http://localhost:3001"`
	RequestTimeout time.Duration `env:"CONSOLE_REQUEST_TIMEOUT" env-default:"10s"`
	SessionTTL     time.Duration `env:"CONSOLE_SESSION_TTL" env-default:"12h"`
	Permissions    string        `env:"CONSOLE_PERMISSIONS" env-default:"Read,Write,Delete"`
	LogLevel       string        `env:"LOG_LEVEL" env-default:"info"`

	// EmbedBackend serves the REST backend from the console process under /api
	// and points BackendURL at it.
	EmbedBackend bool `env:"CONSOLE_EMBED_BACKEND" env-default:"false"`
}

// EmbeddedBackendPrefix is where the console mounts its own backend.
const EmbeddedBackendPrefix = "/api"

// ResolvedBackendURL is BackendURL, or the embedded backend's URL when EmbedBackend is set.
func (c ConsoleConfig) ResolvedBackendURL() string {
	if c.EmbedBackend {
		return fmt.Sprintf("http://localhost:%d%s", c.Port, EmbeddedBackendPrefix)
	}
	return c.BackendURL
}

// PermissionVocabulary returns the checkbox vocabulary offered by the role dialogs.
func (c ConsoleConfig) PermissionVocabulary() []string {
	return splitAndTrim(c.Permissions, ",")
}

// BackendConfig configures the development REST backend.
type BackendConfig struct {
	Port     int    `env:"MOCKAPI_PORT" env-default:"3001"`
	Store    string `env:"MOCKAPI_STORE" env-default:"memory"`
	DataDir  string `env:"MOCKAPI_DATA_DIR" env-default:"./data"`
	SeedFile string `env:"MOCKAPI_SEED" env-default:""`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	// Database
	DBHost     string `env:"RBAC_PG_HOST" env-default:"localhost"`
	DBPort     uint16 `env:"RBAC_PG_PORT" env-default:"5432"`
	DBDatabase string `env:"RBAC_PG_DATABASE" env-default:"rbac_db"`
	DBUser     string `env:"RBAC_PG_USER" env-default:"rbac"`
	DBPassword string `env:"RBAC_PG_PASSWORD" env-default:"pwd"`
}

// DatabaseURL builds the pgx connection string.
func (c BackendConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBDatabase)
}

// Validate checks values cleanenv cannot express.
func (c BackendConfig) Validate() error {
	switch c.Store {
	case StoreMemory, StoreFile, StorePostgres:
	default:
		return fmt.Errorf("unsupported MOCKAPI_STORE %q", c.Store)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid MOCKAPI_PORT %d", c.Port)
	}
	return nil
}

// LoadConsoleConfig reads the console configuration from the environment.
func LoadConsoleConfig() (ConsoleConfig, error) {
	loadEnvFile()

	var cfg ConsoleConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return ConsoleConfig{}, fmt.Errorf("read console config: %w", err)
	}
	if len(cfg.PermissionVocabulary()) == 0 {
		return ConsoleConfig{}, errors.New("CONSOLE_PERMISSIONS must name at least one permission")
	}
	return cfg, nil
}

// LoadBackendConfig reads the development backend configuration from the environment.
func LoadBackendConfig() (BackendConfig, error) {
	loadEnvFile()

	var cfg BackendConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return BackendConfig{}, fmt.Errorf("read backend config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return BackendConfig{}, err
	}
	return cfg, nil
}

func loadEnvFile() {
	path := GetEnvOrDefault("RBAC_ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		slog.Warn("Failed to load env file", "path", path, "error", err)
	}
}
