// Package redis provides Redis-backed stores for cache entries and daily
// usage, shared by every API instance.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultKeyPrefix namespaces every key this service writes.
const DefaultKeyPrefix = "recipemod:"

// Config holds Redis connection settings
type Config struct {
	Addr         string        `mapstructure:"addr"`
	ClusterAddrs []string      `mapstructure:"cluster_addrs"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// NewClient connects to Redis, or to a cluster when ClusterAddrs is set, and
// verifies the connection with a PING.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (redis.UniversalClient, error) {
	addrs := []string{cfg.Addr}
	if len(cfg.ClusterAddrs) > 0 {
		addrs = cfg.ClusterAddrs
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        addrs,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis client initialized",
		zap.Strings("addrs", addrs),
		zap.Int("db", cfg.DB),
		zap.Bool("cluster", len(cfg.ClusterAddrs) > 0))

	return client, nil
}

func prefixOrDefault(prefix string) string {
	if prefix == "" {
		return DefaultKeyPrefix
	}
	return prefix
}
