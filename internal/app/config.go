package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the WavTrack sync service.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Remote      DatabaseConfig    `mapstructure:"remote"`
	Local       LocalConfig       `mapstructure:"local"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	LogLevel       string          `mapstructure:"log_level"`
	LogFormat      string          `mapstructure:"log_format"`
	AllowedOrigins []string        `mapstructure:"allowed_origins"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds requests per client address.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes the authoritative remote store connection.
type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver"`
	Path            string            `mapstructure:"path"`
	DSN             string            `mapstructure:"dsn"`
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Name            string            `mapstructure:"name"`
	User            string            `mapstructure:"user"`
	Password        string            `mapstructure:"password"`
	Options         map[string]string `mapstructure:"options"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration     `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool              `mapstructure:"auto_migrate"`
}

// LocalConfig locates the durable local store.
type LocalConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig tunes the in-memory TTL cache.
type CacheConfig struct {
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

// SyncConfig controls connectivity probing and outbox replay.
type SyncConfig struct {
	ForceOffline  bool          `mapstructure:"force_offline"`
	ProbeSchedule string        `mapstructure:"probe_schedule"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	DrainSchedule string        `mapstructure:"drain_schedule"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	ReplayRate    float64       `mapstructure:"replay_rate"`
	ReplayBurst   int           `mapstructure:"replay_burst"`
	BatchSize     int           `mapstructure:"batch_size"`
}

// AuthConfig captures authentication settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures validation of bearer tokens.
type JWTSettings struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TTL      time.Duration `mapstructure:"access_token_ttl"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles the metrics endpoint.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// MaintenanceConfig schedules housekeeping jobs.
type MaintenanceConfig struct {
	CacheSweepSchedule  string        `mapstructure:"cache_sweep_schedule"`
	DeadLetterSchedule  string        `mapstructure:"dead_letter_schedule"`
	DeadLetterRetention time.Duration `mapstructure:"dead_letter_retention"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("WAVTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.rate_limit.requests", 300)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("remote.driver", "sqlite")
	v.SetDefault("remote.path", "./data/remote.sqlite")
	v.SetDefault("remote.max_open_conns", 10)
	v.SetDefault("remote.max_idle_conns", 5)
	v.SetDefault("remote.conn_max_lifetime", "30m")
	v.SetDefault("remote.auto_migrate", true)

	v.SetDefault("local.path", "./data/local.sqlite")

	v.SetDefault("cache.default_ttl", "5m")

	v.SetDefault("sync.force_offline", false)
	v.SetDefault("sync.probe_schedule", "@every 15s")
	v.SetDefault("sync.probe_timeout", "3s")
	v.SetDefault("sync.drain_schedule", "@every 1m")
	v.SetDefault("sync.max_attempts", 0) // retry forever
	v.SetDefault("sync.replay_rate", 20)
	v.SetDefault("sync.replay_burst", 5)
	v.SetDefault("sync.batch_size", 0)

	v.SetDefault("auth.jwt.issuer", "wavtrack")
	v.SetDefault("auth.jwt.audience", "authenticated")
	v.SetDefault("auth.jwt.access_token_ttl", "1h")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")

	v.SetDefault("maintenance.cache_sweep_schedule", "@every 5m")
	v.SetDefault("maintenance.dead_letter_schedule", "@daily")
	v.SetDefault("maintenance.dead_letter_retention", "720h") // 30 days
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
