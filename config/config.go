// Package config reads the service settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

const (
	EnvLocal = "local"
	EnvDev   = "development"
	EnvProd  = "production"

	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type (
	Config struct {
		Env         string `env:"APP_ENV" envDefault:"local"`
		FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`

		Auth   AuthConfig
		Store  StoreConfig
		Server HTTPServerConfig
	}

	AuthConfig struct {
		JWTSecret string        `env:"JWT_SECRET"`
		TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"2h"`
	}

	StoreConfig struct {
		Driver            string `env:"STORE_DRIVER" envDefault:"mongo"`
		MongoURI          string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
		MongoDatabase     string `env:"MONGO_DATABASE" envDefault:"eventmanager"`
		MongoTransactions bool   `env:"MONGO_TRANSACTIONS" envDefault:"true"`
		PostgresURL       string `env:"DB_CONNECTION_STRING" envDefault:"user=postgres password=password dbname=eventhub host=localhost port=5432 sslmode=disable"`
	}

	HTTPServerConfig struct {
		Port            string        `env:"PORT" envDefault:"5000"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
		RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	}
)

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is Load for process start-up; it panics on a bad environment.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("config: unknown APP_ENV %q", c.Env)
	}

	switch c.Store.Driver {
	case DriverMongo, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("config: TOKEN_TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.Server.Port
}
