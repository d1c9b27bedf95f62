package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "file", cfg.Store.Backend)
	require.Equal(t, "local", cfg.Lock.Backend)
	require.Equal(t, 5*time.Second, cfg.Lock.Timeout)
	require.Equal(t, "*// ", cfg.Auth.Marker)
	require.Equal(t, "database/.user", cfg.Files.AccountDir)
	require.Equal(t, "api/rest", cfg.Files.RequestPath)
	require.Equal(t, "none", cfg.Events.Backend)
	require.Equal(t, 8, cfg.Worker.Concurrency)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("LOCK_TIMEOUT", "250ms")
	t.Setenv("AUTH_MARKER", "sig:")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "redis", cfg.Store.Backend)
	require.Equal(t, 250*time.Millisecond, cfg.Lock.Timeout)
	require.Equal(t, "sig:", cfg.Auth.Marker)
	require.Equal(t, 3, cfg.Redis.Db)
}

func TestLoadConfig_InvalidLockTimeout(t *testing.T) {
	t.Setenv("LOCK_TIMEOUT", "0s")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	t.Setenv("LOCK_TIMEOUT", "soon")

	_, err := LoadConfig()
	require.Error(t, err)
}
