package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
	"github.com/alchemorsel/recipemod/internal/ports/outbound"
)

// EntryStore keeps cache entries as Redis strings that expire on their own
// at the entry's ExpiresAt.
type EntryStore struct {
	client redis.UniversalClient
	prefix string
	codec  entryCodec
	logger *zap.Logger
}

var _ outbound.EntryStore = (*EntryStore)(nil)

// NewEntryStore creates a store; compression is "none" or "brotli".
func NewEntryStore(client redis.UniversalClient, keyPrefix, compression string, logger *zap.Logger) (*EntryStore, error) {
	codec, err := newEntryCodec(compression)
	if err != nil {
		return nil, err
	}
	return &EntryStore{
		client: client,
		prefix: prefixOrDefault(keyPrefix) + "mod:",
		codec:  codec,
		logger: logger.Named("redis-entry-store"),
	}, nil
}

func (s *EntryStore) key(k modification.CacheKey) string {
	return s.prefix + k.String()
}

// Get loads and decodes an entry
func (s *EntryStore) Get(ctx context.Context, key modification.CacheKey) (*modification.CacheEntry, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, outbound.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	entry, err := s.codec.decode(data)
	if err != nil {
		s.logger.Warn("Discarding undecodable cache entry", zap.String("key", key.String()), zap.Error(err))
		return nil, outbound.ErrEntryNotFound
	}
	return entry, nil
}

// Put writes the entry with an absolute expiry
func (s *EntryStore) Put(ctx context.Context, entry *modification.CacheEntry) error {
	data, err := s.codec.encode(entry)
	if err != nil {
		return err
	}
	err = s.client.SetArgs(ctx, s.key(entry.Key), data, redis.SetArgs{ExpireAt: entry.ExpiresAt}).Err()
	if err != nil {
		return fmt.Errorf("redis set %s: %w", entry.Key, err)
	}
	return nil
}

// Sweep is a no-op: Redis evicts expired keys itself.
func (s *EntryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
