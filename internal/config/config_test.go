package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, ":8000", cfg.Addr)
	require.Equal(t, 30*time.Minute, cfg.AccessTTL)
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.CORSOrigins)
	require.Equal(t, uint32(65536), cfg.Argon2Memory)

	require.True(t, cfg.InsecureSecrets())
	require.Equal(t, InsecureAccessSecret, cfg.JWTSecret)
	require.Equal(t, InsecureRefreshSecret, cfg.JWTRefreshSecret)
}

func TestLoad_EnvThenFlags(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-access")
	t.Setenv("JWT_REFRESH_SECRET", "env-refresh")
	t.Setenv("BUDGET_ADDR", ":9000")
	t.Setenv("ACCESS_TOKEN_TTL", "10m")

	cfg, err := Load([]string{"-addr", ":9100", "-cors-origins", "https://a.example, https://b.example"})
	require.NoError(t, err)
	require.False(t, cfg.InsecureSecrets())
	require.Equal(t, "env-access", cfg.JWTSecret)
	require.Equal(t, ":9100", cfg.Addr, "flag overrides env")
	require.Equal(t, 10*time.Minute, cfg.AccessTTL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoad_SameSecretsRejected(t *testing.T) {
	t.Setenv("JWT_SECRET", "same")
	t.Setenv("JWT_REFRESH_SECRET", "same")

	_, err := Load(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must differ")
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "soon")

	_, err := Load(nil)
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "parse env:"))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	ok := Config{Addr: ":1", DatabaseDSN: "postgres://x", JWTSecret: "a", JWTRefreshSecret: "b", AccessTTL: time.Minute, RefreshTTL: time.Hour}
	require.NoError(t, ok.Validate())

	bad := ok
	bad.AccessTTL = 2 * time.Hour
	require.Error(t, bad.Validate())

	bad = ok
	bad.RefreshTTL = 0
	require.Error(t, bad.Validate())

	bad = ok
	bad.Addr = ""
	require.Error(t, bad.Validate())

	bad = ok
	bad.DatabaseDSN = ""
	require.Error(t, bad.Validate())
}

func TestLoad_AdminEmailsAndMemoryStore(t *testing.T) {
	t.Setenv("JWT_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "b")
	t.Setenv("ADMIN_EMAILS", "root@example.com")

	cfg, err := Load([]string{"-dsn", "memory://"})
	require.NoError(t, err)
	require.True(t, cfg.InMemory())
	require.Equal(t, []string{"root@example.com"}, cfg.AdminEmails)

	cfg, err = Load([]string{"-admin-emails", "a@example.com,,b@example.com", "-metrics=false"})
	require.NoError(t, err)
	require.False(t, cfg.InMemory())
	require.False(t, cfg.Metrics)
	require.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.AdminEmails)
}
