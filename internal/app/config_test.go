package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 1440*time.Hour, cfg.Auth.Session.RefreshTTL)
	require.Equal(t, 64, cfg.Auth.Session.RefreshLength)
	require.Equal(t, 7, cfg.Auth.Local.LockoutThreshold)
	require.Equal(t, 20*time.Minute, cfg.Auth.Local.LockoutDuration)

	require.Equal(t, "/var/lib/portfolio/uploads", cfg.Uploads.Dir)

	require.False(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@every 2h", cfg.Maintenance.SessionSchedule)
	require.Equal(t, "@weekly", cfg.Maintenance.PhotoSchedule)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 720*time.Hour, cfg.Auth.Session.RefreshTTL)
	require.Equal(t, 48, cfg.Auth.Session.RefreshLength)
	require.Equal(t, "./data/uploads", cfg.Uploads.Dir)
	require.True(t, cfg.Maintenance.Enabled)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := Config{
		Auth: AuthConfig{
			JWT: JWTSettings{
				Secret: "adapter-secret",
				Issuer: "adapter",
				TTL:    time.Hour,
			},
			Session: SessionSettings{
				RefreshTTL:    48 * time.Hour,
				RefreshLength: 64,
			},
			Local: LocalAuthSettings{
				LockoutThreshold: 9,
				LockoutDuration:  45 * time.Minute,
			},
		},
	}

	jwtCfg := cfg.Auth.JWTServiceConfig()
	require.Equal(t, "adapter-secret", jwtCfg.Secret)
	require.Equal(t, "adapter", jwtCfg.Issuer)
	require.Equal(t, time.Hour, jwtCfg.AccessTokenTTL)

	sessionCfg := cfg.Auth.SessionServiceConfig()
	require.Equal(t, 48*time.Hour, sessionCfg.RefreshTokenTTL)
	require.Equal(t, 64, sessionCfg.RefreshLength)

	localCfg := cfg.Auth.LocalProviderConfig()
	require.Equal(t, 9, localCfg.LockoutThreshold)
	require.Equal(t, 45*time.Minute, localCfg.LockoutDuration)
}

func TestAuthConfigAdapterDefaults(t *testing.T) {
	var cfg AuthConfig

	cfg.JWT.Secret = "x"
	jwtCfg := cfg.JWTServiceConfig()
	require.Equal(t, 15*time.Minute, jwtCfg.AccessTokenTTL)

	sessionCfg := cfg.SessionServiceConfig()
	require.Equal(t, 30*24*time.Hour, sessionCfg.RefreshTokenTTL)
	require.Equal(t, 48, sessionCfg.RefreshLength)

	localCfg := cfg.LocalProviderConfig()
	require.Equal(t, 5, localCfg.LockoutThreshold)
	require.Equal(t, 15*time.Minute, localCfg.LockoutDuration)
}

func TestDatabaseConnectionConfig(t *testing.T) {
	cfg := DatabaseConfig{
		Driver: "postgres",
		Postgres: DBAuthConfig{
			Host:     "db.example.com",
			Port:     5433,
			Database: "portfolio",
			Username: "svc",
			Password: "secret",
		},
	}

	conn := cfg.ConnectionConfig()
	require.Equal(t, "postgres", conn.Driver)
	require.Equal(t, "db.example.com", conn.Host)
	require.Equal(t, 5433, conn.Port)
	require.Equal(t, "portfolio", conn.Name)
	require.Equal(t, "svc", conn.User)
	require.Equal(t, "secret", conn.Password)

	sqlite := DatabaseConfig{Driver: "sqlite", Path: "./x.sqlite"}.ConnectionConfig()
	require.Equal(t, "./x.sqlite", sqlite.Path)
	require.Empty(t, sqlite.Host)
}
