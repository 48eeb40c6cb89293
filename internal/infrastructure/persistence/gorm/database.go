package gorm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/alchemorsel/recipemod/internal/infrastructure/persistence/migrations"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds database connection settings
type Config struct {
	Driver             string        `mapstructure:"driver"`
	DSN                string        `mapstructure:"dsn"`
	ReadReplicas       []string      `mapstructure:"read_replicas"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	LogLevel           string        `mapstructure:"log_level"`
	Migrate            bool          `mapstructure:"migrate"`
}

// Open connects, configures the pool, registers read replicas and migrates
// the schema when cfg.Migrate is set.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newGORMLogger(cfg, log),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if len(cfg.ReadReplicas) > 0 {
		if err := registerReplicas(db, cfg); err != nil {
			return nil, err
		}
		log.Info("Read replicas configured", zap.Int("replica_count", len(cfg.ReadReplicas)))
	}

	if cfg.Migrate {
		if err := migrate(db, cfg.Driver, log); err != nil {
			return nil, err
		}
	}

	log.Info("Database connection established",
		zap.String("driver", cfg.Driver),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Bool("migrated", cfg.Migrate))

	return db, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite, "":
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		return sqlite.Open(dsn), nil
	case DriverPostgres:
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// registerReplicas routes reads of every model to the replicas.
func registerReplicas(db *gorm.DB, cfg Config) error {
	replicas := make([]gorm.Dialector, 0, len(cfg.ReadReplicas))
	for _, dsn := range cfg.ReadReplicas {
		d, err := dialectorFor(cfg.Driver, dsn)
		if err != nil {
			return err
		}
		replicas = append(replicas, d)
	}

	err := db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RandomPolicy{},
	}))
	if err != nil {
		return fmt.Errorf("failed to register read replicas: %w", err)
	}
	return nil
}

// migrate uses versioned SQL on PostgreSQL and AutoMigrate on SQLite.
func migrate(db *gorm.DB, driver string, log *zap.Logger) error {
	if strings.ToLower(driver) != DriverPostgres {
		if err := db.AutoMigrate(AllModels()...); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	m, err := migrations.New(sqlDB, log)
	if err != nil {
		return err
	}
	return m.Up()
}

// Ping checks the primary connection
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GORMLogWriter sends GORM's log lines to zap
type GORMLogWriter struct {
	logger *zap.Logger
}

// Printf implements logger.Writer
func (w *GORMLogWriter) Printf(format string, args ...interface{}) {
	w.logger.Sugar().Infof(format, args...)
}

func newGORMLogger(cfg Config, log *zap.Logger) logger.Interface {
	level := logger.Silent
	switch cfg.LogLevel {
	case "debug":
		level = logger.Info
	case "info", "warn":
		level = logger.Warn
	case "error":
		level = logger.Error
	}

	threshold := cfg.SlowQueryThreshold
	if threshold <= 0 {
		threshold = 200 * time.Millisecond
	}

	return logger.New(
		&GORMLogWriter{logger: log.Named("gorm")},
		logger.Config{
			SlowThreshold:             threshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
