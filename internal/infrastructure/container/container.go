// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	modapp "github.com/alchemorsel/recipemod/internal/application/modification"
	recipeapp "github.com/alchemorsel/recipemod/internal/application/recipe"
	"github.com/alchemorsel/recipemod/internal/infrastructure/ai"
	"github.com/alchemorsel/recipemod/internal/infrastructure/ai/ollama"
	"github.com/alchemorsel/recipemod/internal/infrastructure/ai/openai"
	"github.com/alchemorsel/recipemod/internal/infrastructure/config"
	"github.com/alchemorsel/recipemod/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/recipemod/internal/infrastructure/http/server"
	"github.com/alchemorsel/recipemod/internal/infrastructure/monitoring"
	gormstore "github.com/alchemorsel/recipemod/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/recipemod/internal/infrastructure/persistence/memory"
	redisstore "github.com/alchemorsel/recipemod/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/recipemod/internal/ports/inbound"
	"github.com/alchemorsel/recipemod/internal/ports/outbound"
	"github.com/alchemorsel/recipemod/pkg/healthcheck"
	"github.com/alchemorsel/recipemod/pkg/logger"
)

// ConfigPath is the config file to load. Empty searches the default locations.
type ConfigPath string

// Module provides all dependency injection modules
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	TelemetryModule,
	DatabaseModule,
	RedisModule,
	StoreModule,
	GatewayModule,
	ServiceModule,
	HTTPModule,
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Load(string(path))
	},
	func(cfg *config.Config) *config.DailyLimit {
		return config.NewDailyLimit(cfg.Quota.DailyLimit)
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.IsDevelopment(),
			Service:     cfg.Telemetry.ServiceName,
			Version:     cfg.App.Version,
			Sample:      true,
		})
	},
)

// TelemetryModule provides Prometheus metrics and OpenTelemetry providers
var TelemetryModule = fx.Provide(
	monitoring.NewMetricsCollector,
	func(m *monitoring.MetricsCollector) modapp.Recorder { return m },
	func(lc fx.Lifecycle, cfg *config.Config, metrics *monitoring.MetricsCollector, log *zap.Logger) (*monitoring.Telemetry, error) {
		tel, err := monitoring.NewTelemetry(context.Background(), monitoring.TelemetryConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.App.Version,
			Environment:    cfg.App.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
			OTLPInsecure:   cfg.Telemetry.OTLPInsecure,
			SamplingRate:   cfg.Telemetry.SamplingRate,
		}, metrics.Registry(), log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		lc.Append(fx.Hook{OnStop: tel.Shutdown})
		return tel, nil
	},
)

// DatabaseModule provides the GORM connection used for recipes and, when
// selected, the database-backed stores
var DatabaseModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
		db, err := gormstore.Open(context.Background(), cfg.Database, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return gormstore.Close(db)
			},
		})
		return db, nil
	},
)

// RedisModule provides a Redis client when a redis backend is selected, and nil otherwise
var RedisModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (redis.UniversalClient, error) {
		if !cfg.UsesRedis() {
			return nil, nil
		}
		client, err := redisstore.NewClient(context.Background(), cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
		return client, nil
	},
)

// StoreModule selects the cache and quota backends
var StoreModule = fx.Provide(
	fx.Annotate(
		gormstore.NewRecipeRepository,
		fx.As(new(outbound.RecipeRepository)),
	),
	NewEntryStore,
	NewUsageStore,
)

// NewEntryStore builds the cache store named by cache.backend
func NewEntryStore(cfg *config.Config, db *gorm.DB, client redis.UniversalClient, log *zap.Logger) (outbound.EntryStore, error) {
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		return redisstore.NewEntryStore(client, cfg.Redis.KeyPrefix, cfg.Cache.Compression, log)
	case config.BackendDatabase:
		return gormstore.NewEntryStore(db), nil
	default:
		return memory.NewEntryStore(cfg.Cache.Shards), nil
	}
}

// NewUsageStore builds the quota store named by quota.backend
func NewUsageStore(cfg *config.Config, db *gorm.DB, client redis.UniversalClient) outbound.UsageStore {
	switch cfg.Quota.Backend {
	case config.BackendRedis:
		return redisstore.NewUsageStore(client, cfg.Redis.KeyPrefix)
	case config.BackendDatabase:
		return gormstore.NewUsageStore(db)
	default:
		return memory.NewUsageStore()
	}
}

// ModelClient is a gateway that can also be health checked
type ModelClient interface {
	outbound.ModelGateway
	ai.Pinger
}

// GatewayModule provides the model gateway named by ai.provider
var GatewayModule = fx.Provide(
	NewModelClient,
	func(c ModelClient) outbound.ModelGateway { return c },
)

// NewModelClient builds the client for the configured provider
func NewModelClient(cfg *config.Config, log *zap.Logger) (ModelClient, error) {
	switch cfg.AI.Provider {
	case ai.ProviderOpenAI:
		return openai.NewClient(cfg.AI, log), nil
	case ai.ProviderOllama:
		return ollama.NewClient(cfg.AI, log), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.AI.Provider)
	}
}

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	func(store outbound.EntryStore, cfg *config.Config, log *zap.Logger, rec modapp.Recorder) *modapp.ResponseCache {
		return modapp.NewResponseCache(store, cfg.Cache.TTL, log, rec)
	},
	modapp.NewQuotaGuard,
	func(limit *config.DailyLimit) modapp.LimitProvider { return limit },
	fx.Annotate(
		modapp.NewService,
		fx.As(new(inbound.ModificationService)),
	),
	fx.Annotate(
		recipeapp.NewCatalogService,
		fx.As(new(inbound.RecipeCatalog)),
	),
)

// HTTPModule provides the HTTP server and its collaborators
var HTTPModule = fx.Provide(
	NewHealthCheck,
	func(cfg *config.Config, log *zap.Logger) *middleware.Authenticator {
		return middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, log)
	},
	func(cfg *config.Config, log *zap.Logger) *middleware.RateLimiter {
		if !cfg.RateLimit.Enable {
			return nil
		}
		rl := cfg.RateLimit
		return middleware.NewRateLimiter(rl.RequestsPerMin, rl.BurstSize, rl.CleanupInterval, log)
	},
	func(
		cfg *config.Config,
		log *zap.Logger,
		mods inbound.ModificationService,
		catalog inbound.RecipeCatalog,
		health *healthcheck.HealthCheck,
		metrics *monitoring.MetricsCollector,
		auth *middleware.Authenticator,
		limiter *middleware.RateLimiter,
	) *server.Server {
		return server.NewServer(cfg, log, server.Dependencies{
			Modifications: mods,
			Catalog:       catalog,
			Health:        health,
			Metrics:       metrics,
			Auth:          auth,
			Limiter:       limiter,
		})
	},
)

// NewHealthCheck registers the database, Redis and model endpoint checks.
// An unreachable model endpoint degrades the service without failing
// readiness since cached modifications can still be served.
func NewHealthCheck(cfg *config.Config, db *gorm.DB, client redis.UniversalClient, model ModelClient, log *zap.Logger) (*healthcheck.HealthCheck, error) {
	health := healthcheck.New(cfg.App.Version, log)

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	health.Register("database", healthcheck.NewDatabaseChecker(sqlDB))

	if client != nil {
		health.Register("redis", healthcheck.NewRedisChecker(client))
	}

	checker := ai.NewHealthChecker(model, log)
	health.Register(checker.Name(), healthcheck.ErrorChecker(checker.Name(), healthcheck.StatusDegraded, checker.Check))

	return health, nil
}

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks starts the server and background workers and stops
// them in reverse order. Telemetry is requested so the global providers are
// installed before the first request.
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	_ *monitoring.Telemetry,
	cfg *config.Config,
	log *zap.Logger,
	limit *config.DailyLimit,
	cache *modapp.ResponseCache,
	limiter *middleware.RateLimiter,
	srv *server.Server,
) {
	workers := newBackground()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting recipemod",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("ai_provider", cfg.AI.Provider),
				zap.String("cache_backend", cfg.Cache.Backend),
				zap.String("quota_backend", cfg.Quota.Backend),
			)

			if cfg.WatchQuota(limit, log) {
				log.Info("Watching config file for quota changes")
			}

			workers.Go(func(ctx context.Context) {
				cache.RunJanitor(ctx, cfg.Cache.SweepInterval)
			})
			if limiter != nil {
				workers.Go(func(ctx context.Context) {
					limiter.Run(ctx, cfg.RateLimit.CleanupInterval)
				})
			}

			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down recipemod")

			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			workers.Stop()
			_ = log.Sync()
			return nil
		},
	})
}

// background runs goroutines that stop together
type background struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newBackground() *background {
	ctx, cancel := context.WithCancel(context.Background())
	return &background{ctx: ctx, cancel: cancel}
}

func (b *background) Go(fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn(b.ctx)
	}()
}

func (b *background) Stop() {
	b.cancel()
	b.wg.Wait()
}
