package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 8, cfg.DirectoryWorkers)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "client_portal", cfg.Mongo.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.False(t, cfg.Production())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":        "s3cret",
		"ENV":               "production",
		"TOKEN_TTL":         "90m",
		"DIRECTORY_WORKERS": "2",
		"REDIS_DB":          "3",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.Equal(t, 90*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 2, cfg.DirectoryWorkers)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestLoad_RequiresSecret(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	assert.Error(t, err)
}

func TestLoad_MalformedDuration(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
		"TOKEN_TTL":  "forever",
	}))
	assert.Error(t, err)
}

func TestLoadPortal(t *testing.T) {
	cfg, err := loadPortal(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, cfg.Backend)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "portal:", cfg.Redis.Prefix)

	cfg, err = loadPortal(context.Background(), envconfig.MapLookuper(map[string]string{
		"PORTAL_BACKEND": "remote",
		"PORTAL_STORE":   "redis",
		"PORTAL_API_URL": "https://portal.example.com/api",
	}))
	require.NoError(t, err)
	assert.Equal(t, BackendRemote, cfg.Backend)
	assert.Equal(t, "https://portal.example.com/api", cfg.APIURL)

	_, err = loadPortal(context.Background(), envconfig.MapLookuper(map[string]string{"PORTAL_BACKEND": "ftp"}))
	assert.Error(t, err)
	_, err = loadPortal(context.Background(), envconfig.MapLookuper(map[string]string{"PORTAL_STORE": "s3"}))
	assert.Error(t, err)
}
