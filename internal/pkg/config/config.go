package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is the API server configuration.
type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`

	// DirectoryWorkers is the number of directory dispatcher shards.
	DirectoryWorkers int `env:"DIRECTORY_WORKERS, default=8"`

	Mongo MongoConfig
	Redis RedisConfig
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,      default=client_portal"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,       default=0"`
	Timeout  time.Duration `env:"REDIS_TIMEOUT,  default=5s"`
}

// Production reports whether the server runs with ENV=production.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Backends of the portal CLI.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Stores of the portal CLI.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// PortalConfig is the portal CLI configuration.
type PortalConfig struct {
	Backend   string        `env:"PORTAL_BACKEND,    default=local"`
	APIURL    string        `env:"PORTAL_API_URL,    default=http://localhost:8080/api"`
	Timeout   time.Duration `env:"PORTAL_TIMEOUT,    default=10s"`
	Store     string        `env:"PORTAL_STORE,      default=sqlite"`
	StatePath string        `env:"PORTAL_STATE_PATH, default=portal.db"`
	LogLevel  string        `env:"PORTAL_LOG_LEVEL,  default=warn"`

	// Secret signs tokens issued by the local backend.
	Secret string `env:"PORTAL_SECRET, default=local-portal-secret"`
	// Latency is waited before every local backend call.
	Latency time.Duration `env:"PORTAL_LATENCY, default=0s"`

	Redis PortalRedisConfig
}

type PortalRedisConfig struct {
	Addr     string `env:"PORTAL_REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"PORTAL_REDIS_PASSWORD"`
	DB       int    `env:"PORTAL_REDIS_DB,       default=0"`
	Prefix   string `env:"PORTAL_REDIS_PREFIX,   default=portal:"`
}

// Load reads the server configuration from environment variables using
// go-envconfig. It panics on malformed values or a missing JWT secret.
func Load() *Config {
	cfg, err := load(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return &cfg, nil
}

// LoadPortal reads the portal CLI configuration from environment variables.
func LoadPortal(ctx context.Context) (*PortalConfig, error) {
	return loadPortal(ctx, envconfig.OsLookuper())
}

func loadPortal(ctx context.Context, lookuper envconfig.Lookuper) (*PortalConfig, error) {
	var cfg PortalConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	switch cfg.Backend {
	case BackendLocal, BackendRemote:
	default:
		return nil, fmt.Errorf("config: unknown PORTAL_BACKEND %q", cfg.Backend)
	}
	switch cfg.Store {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return nil, fmt.Errorf("config: unknown PORTAL_STORE %q", cfg.Store)
	}
	return &cfg, nil
}
