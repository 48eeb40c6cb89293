// Package memory provides in-process stores for single-instance deployments
// and tests.
package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
	"github.com/alchemorsel/recipemod/internal/ports/outbound"
)

// DefaultShards is the shard count used when none is configured.
const DefaultShards = 32

type shard struct {
	mu      sync.RWMutex
	entries map[modification.CacheKey]*modification.CacheEntry
}

// EntryStore keeps cache entries in memory, sharded by key so unrelated keys
// never contend on the same lock.
type EntryStore struct {
	shards []*shard
}

var _ outbound.EntryStore = (*EntryStore)(nil)

// NewEntryStore creates a store with n shards
func NewEntryStore(n int) *EntryStore {
	if n <= 0 {
		n = DefaultShards
	}
	s := &EntryStore{shards: make([]*shard, n)}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[modification.CacheKey]*modification.CacheEntry)}
	}
	return s
}

func (s *EntryStore) shardFor(key modification.CacheKey) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Get returns the stored entry, expired or not. Expiry is judged by the caller.
func (s *EntryStore) Get(ctx context.Context, key modification.CacheKey) (*modification.CacheEntry, error) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	entry, ok := sh.entries[key]
	if !ok {
		return nil, outbound.ErrEntryNotFound
	}
	return entry, nil
}

// Put stores or replaces an entry
func (s *EntryStore) Put(ctx context.Context, entry *modification.CacheEntry) error {
	sh := s.shardFor(entry.Key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.entries[entry.Key] = entry
	return nil
}

// Sweep drops every entry expired at now, one shard at a time.
func (s *EntryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	for _, sh := range s.shards {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		sh.mu.Lock()
		for key, entry := range sh.entries {
			if entry.Expired(now) {
				delete(sh.entries, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

// Len reports the number of stored entries
func (s *EntryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}
