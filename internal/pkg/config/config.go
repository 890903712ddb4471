// Package config loads process configuration from the environment, after
// an optional .env file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	SessionFile   = "file"
	SessionSQLite = "sqlite"
	SessionRedis  = "redis"
	SessionMemory = "memory"

	RejectDelete = "delete"
	RejectStatus = "status"

	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Storefront configures the CLI client. Variables carry the STOREFRONT_ prefix.
type Storefront struct {
	APIURL     string        `env:"API_URL, default=http://localhost:8080"`
	Timeout    time.Duration `env:"TIMEOUT, default=10s"`
	RejectMode string        `env:"REJECT_MODE, default=delete"`
	LogLevel   string        `env:"LOG_LEVEL, default=warn"`
	LogPretty  bool          `env:"LOG_PRETTY, default=true"`

	Session SessionConfig
}

type SessionConfig struct {
	Backend string `env:"SESSION_BACKEND, default=file"`
	// Path is the JSON file or SQLite database; empty means the user config dir.
	Path      string `env:"SESSION_PATH"`
	RedisAddr     string `env:"SESSION_REDIS_ADDR, default=localhost:6379"`
	RedisPassword string `env:"SESSION_REDIS_PASSWORD"`
	RedisDB       int    `env:"SESSION_REDIS_DB, default=0"`
}

// Server configures the reference marketplace backend.
type Server struct {
	Port      string        `env:"PORT, default=8080"`
	Env       string        `env:"ENV, default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`
	Store     string        `env:"STORE, default=memory"`
	Workers   int           `env:"AUDIT_WORKERS, default=4"`

	Mongo MongoConfig
	Redis RedisConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB, default=marketplace"`
}

// RedisConfig backs idempotency keys; an empty Addr keeps them in memory.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

// LoadStorefront reads the client configuration. envFile may be empty.
func LoadStorefront(ctx context.Context, envFile string) (*Storefront, error) {
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}
	return processStorefront(ctx, envconfig.PrefixLookuper("STOREFRONT_", envconfig.OsLookuper()))
}

func processStorefront(ctx context.Context, l envconfig.Lookuper) (*Storefront, error) {
	var cfg Storefront
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Storefront) validate() error {
	switch c.Session.Backend {
	case SessionFile, SessionSQLite, SessionRedis, SessionMemory:
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	switch c.RejectMode {
	case RejectDelete, RejectStatus:
	default:
		return fmt.Errorf("unknown reject mode %q", c.RejectMode)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

// SessionPath resolves the session file or database location.
func (c *Storefront) SessionPath() (string, error) {
	if c.Session.Path != "" {
		return c.Session.Path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: locate session: %w", err)
	}
	name := "session.json"
	if c.Session.Backend == SessionSQLite {
		name = "session.db"
	}
	return filepath.Join(dir, "storefront", name), nil
}

// LoadServer reads the backend configuration. envFile may be empty.
func LoadServer(ctx context.Context, envFile string) (*Server, error) {
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}
	return processServer(ctx, envconfig.OsLookuper())
}

func processServer(ctx context.Context, l envconfig.Lookuper) (*Server, error) {
	var cfg Server
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET is required")
	}
	switch cfg.Store {
	case StoreMongo, StoreMemory:
	default:
		return nil, fmt.Errorf("config: unknown store %q", cfg.Store)
	}
	if cfg.Workers <= 0 {
		return nil, errors.New("config: AUDIT_WORKERS must be positive")
	}
	return &cfg, nil
}

// loadDotEnv never overrides variables already set in the environment.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}
