package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/wavtrack/internal/auth"
)

const sampleConfig = `
server:
  port: 9090
  log_level: debug
  allowed_origins: "https://app.wavtrack.io,http://localhost:3000"
remote:
  driver: postgres
  host: db.example.com
  port: 6543
  name: wavtrack
  user: producer
  password: secret
  options:
    sslmode: require
cache:
  default_ttl: 90s
sync:
  drain_schedule: "@every 30s"
  max_attempts: 8
  replay_rate: 5
auth:
  jwt:
    secret: jwt-secret
    access_token_ttl: 30m
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, []string{"https://app.wavtrack.io", "http://localhost:3000"}, cfg.Server.AllowedOrigins)

	require.Equal(t, "postgres", cfg.Remote.Driver)
	require.Equal(t, "db.example.com", cfg.Remote.Host)
	require.Equal(t, 6543, cfg.Remote.Port)
	require.Equal(t, "require", cfg.Remote.Options["sslmode"])
	require.Equal(t, 30*time.Minute, cfg.Remote.ConnMaxLifetime)

	require.Equal(t, 90*time.Second, cfg.Cache.DefaultTTL)
	require.Equal(t, "@every 30s", cfg.Sync.DrainSchedule)
	require.Equal(t, 8, cfg.Sync.MaxAttempts)
	require.Equal(t, 5.0, cfg.Sync.ReplayRate)
	require.Equal(t, "@every 15s", cfg.Sync.ProbeSchedule)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Remote.Driver)
	require.Equal(t, "./data/local.sqlite", cfg.Local.Path)
	require.Equal(t, 5*time.Minute, cfg.Cache.DefaultTTL)
	require.Zero(t, cfg.Sync.MaxAttempts)
	require.Equal(t, "@every 1m", cfg.Sync.DrainSchedule)
	require.Equal(t, 720*time.Hour, cfg.Maintenance.DeadLetterRetention)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("WAVTRACK_SYNC_FORCE_OFFLINE", "true")
	t.Setenv("WAVTRACK_CACHE_DEFAULT_TTL", "10s")
	t.Setenv("WAVTRACK_SERVER_PORT", "7000")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	require.True(t, cfg.Sync.ForceOffline)
	require.Equal(t, 10*time.Second, cfg.Cache.DefaultTTL)
	require.Equal(t, 7000, cfg.Server.Port)
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "server: [unterminated"))
	require.Error(t, err)
}

func TestDatabaseConfigAdapters(t *testing.T) {
	remote := DatabaseConfig{Driver: " postgres ", Host: "db", Name: "wavtrack", User: "u", MaxOpenConns: 4}
	dbCfg := remote.DatabaseConfig()
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, 4, dbCfg.MaxOpenConns)

	local := LocalConfig{Path: "/var/lib/wavtrack/local.db"}.DatabaseConfig()
	require.Equal(t, "sqlite", local.Driver)
	require.Equal(t, "/var/lib/wavtrack/local.db", local.Path)
}

func TestJWTServiceConfigDefaultsTTL(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{Secret: "s", Issuer: "wavtrack"}}.JWTServiceConfig()
	require.Equal(t, auth.DefaultAccessTokenTTL, cfg.AccessTokenTTL)
	require.Equal(t, "wavtrack", cfg.Issuer)
}

func TestJWTServiceConfigTrimsAndDefaultsAudience(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{Secret: " s ", Audience: "  "}}.JWTServiceConfig()
	require.Equal(t, "s", cfg.Secret)
	require.Equal(t, auth.DefaultAudience, cfg.Audience)

	cfg = AuthConfig{JWT: JWTSettings{Secret: "s", Audience: "studio"}}.JWTServiceConfig()
	require.Equal(t, "studio", cfg.Audience)
}
