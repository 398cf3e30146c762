package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, DriverMongo, cfg.Store.Driver)
	assert.Equal(t, "eventmanager", cfg.Store.MongoDatabase)
	assert.True(t, cfg.Store.MongoTransactions)
	assert.Equal(t, "http://localhost:5173", cfg.FrontendURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("PORT", "8080")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("STORE_DRIVER", DriverPostgres)
	t.Setenv("MONGO_TRANSACTIONS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvProd, cfg.Env)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.False(t, cfg.Store.MongoTransactions)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{}},
		{name: "unknown driver", env: map[string]string{"JWT_SECRET": "x", "STORE_DRIVER": "sqlite"}},
		{name: "unknown env", env: map[string]string{"JWT_SECRET": "x", "APP_ENV": "staging"}},
		{name: "bad ttl", env: map[string]string{"JWT_SECRET": "x", "TOKEN_TTL": "soon"}},
		{name: "negative ttl", env: map[string]string{"JWT_SECRET": "x", "TOKEN_TTL": "-1h"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestMustLoad_Panics(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	assert.Panics(t, func() { MustLoad() })
}
