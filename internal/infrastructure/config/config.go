// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/alchemorsel/recipemod/internal/infrastructure/ai"
	gormstore "github.com/alchemorsel/recipemod/internal/infrastructure/persistence/gorm"
	redisstore "github.com/alchemorsel/recipemod/internal/infrastructure/persistence/redis"
)

// Store backends for cache.backend and quota.backend
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendDatabase = "database"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig         `mapstructure:"app"`
	Server    ServerConfig      `mapstructure:"server"`
	Database  gormstore.Config  `mapstructure:"database"`
	Redis     redisstore.Config `mapstructure:"redis"`
	AI        ai.Config         `mapstructure:"ai"`
	Cache     CacheConfig       `mapstructure:"cache"`
	Quota     QuotaConfig       `mapstructure:"quota"`
	Auth      AuthConfig        `mapstructure:"auth"`
	RateLimit RateLimitConfig   `mapstructure:"rate_limit"`
	Telemetry TelemetryConfig   `mapstructure:"telemetry"`

	v *viper.Viper
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// Address returns host:port for the listener
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CacheConfig configures the modification response cache
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	Shards        int           `mapstructure:"shards"`
	Compression   string        `mapstructure:"compression"`
}

// QuotaConfig configures the per-user daily modification quota
type QuotaConfig struct {
	Backend    string `mapstructure:"backend"`
	DailyLimit int    `mapstructure:"daily_limit"`
}

// AuthConfig contains authentication configuration. Without a JWT secret the
// caller is identified by the X-User-ID header.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enable          bool          `mapstructure:"enable"`
	RequestsPerMin  int           `mapstructure:"requests_per_min"`
	BurstSize       int           `mapstructure:"burst_size"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	ServiceName  string  `mapstructure:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
	MetricsPath  string  `mapstructure:"metrics_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/recipemod")
	}

	v.SetEnvPrefix("RECIPEMOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Defaults cover a missing file
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.v = v
	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "recipemod")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.request_timeout", "75s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_body_bytes", 1<<20) // 1MB

	v.SetDefault("database.driver", gormstore.DriverSQLite)
	v.SetDefault("database.dsn", "file:recipemod.db?cache=shared&_busy_timeout=5000")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.slow_query_threshold", "200ms")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.migrate", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.key_prefix", redisstore.DefaultKeyPrefix)

	v.SetDefault("ai.provider", ai.ProviderOllama)
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("ai.max_tokens", 2048)
	v.SetDefault("ai.json_mode", true)

	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.ttl", "168h") // 7 days
	v.SetDefault("cache.sweep_interval", "10m")
	v.SetDefault("cache.shards", 32)
	v.SetDefault("cache.compression", redisstore.CompressionNone)

	v.SetDefault("quota.backend", BackendMemory)
	v.SetDefault("quota.daily_limit", 10)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "")

	v.SetDefault("rate_limit.enable", true)
	v.SetDefault("rate_limit.requests_per_min", 60)
	v.SetDefault("rate_limit.burst_size", 10)
	v.SetDefault("rate_limit.cleanup_interval", "5m")

	v.SetDefault("telemetry.service_name", "recipemod")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", true)
	v.SetDefault("telemetry.sampling_rate", 1.0)
	v.SetDefault("telemetry.metrics_path", "/metrics")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if err := validBackend("cache.backend", c.Cache.Backend); err != nil {
		return err
	}
	if err := validBackend("quota.backend", c.Quota.Backend); err != nil {
		return err
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Quota.DailyLimit < 0 {
		return fmt.Errorf("quota.daily_limit must not be negative")
	}

	if c.UsesRedis() && c.Redis.Addr == "" && len(c.Redis.ClusterAddrs) == 0 {
		return fmt.Errorf("redis.addr is required when a redis backend is selected")
	}

	switch c.AI.Provider {
	case ai.ProviderOpenAI:
		if c.AI.Model == "" {
			return fmt.Errorf("ai.model is required for the openai provider")
		}
	case ai.ProviderOllama:
	default:
		return fmt.Errorf("ai.provider must be %q or %q, got %q", ai.ProviderOpenAI, ai.ProviderOllama, c.AI.Provider)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("ai.timeout must be positive")
	}

	if c.Auth.JWTSecret == "" && c.IsProduction() {
		return fmt.Errorf("auth.jwt_secret is required in production")
	}

	if c.RateLimit.Enable && c.RateLimit.RequestsPerMin <= 0 {
		return fmt.Errorf("rate_limit.requests_per_min must be positive when rate limiting is enabled")
	}

	return nil
}

func validBackend(key, backend string) error {
	switch backend {
	case BackendMemory, BackendRedis, BackendDatabase:
		return nil
	default:
		return fmt.Errorf("%s must be one of memory, redis, database, got %q", key, backend)
	}
}

// UsesRedis reports whether any store is backed by Redis
func (c *Config) UsesRedis() bool {
	return c.Cache.Backend == BackendRedis || c.Quota.Backend == BackendRedis
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// DailyLimit holds the live quota limit. It is read on every request and
// replaced when the config file changes.
type DailyLimit struct {
	value atomic.Int64
}

// NewDailyLimit creates a limit holding n
func NewDailyLimit(n int) *DailyLimit {
	l := &DailyLimit{}
	l.Set(n)
	return l
}

// DailyLimit returns the current limit
func (l *DailyLimit) DailyLimit() int {
	return int(l.value.Load())
}

// Set replaces the limit
func (l *DailyLimit) Set(n int) {
	l.value.Store(int64(n))
}

// WatchQuota re-reads quota.daily_limit into limit whenever the config file
// changes. Other settings need a restart. It returns false when no config
// file was loaded.
func (c *Config) WatchQuota(limit *DailyLimit, logger *zap.Logger) bool {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return false
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next := c.v.GetInt("quota.daily_limit")
		if next < 0 {
			logger.Warn("Ignoring negative quota.daily_limit", zap.Int("value", next))
			return
		}
		prev := limit.DailyLimit()
		if prev == next {
			return
		}
		limit.Set(next)
		logger.Info("Daily quota limit reloaded",
			zap.String("file", e.Name),
			zap.Int("previous", prev),
			zap.Int("current", next))
	})
	c.v.WatchConfig()

	logger.Info("Watching config file for quota changes", zap.String("file", c.v.ConfigFileUsed()))
	return true
}
