package modification

import (
	"context"
	"sync"
	"time"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
	"github.com/alchemorsel/recipemod/internal/ports/outbound"
)

type fakeEntryStore struct {
	mu      sync.Mutex
	entries map[modification.CacheKey]*modification.CacheEntry
	puts    int
	getErr  error
	putErr  error
}

func newFakeEntryStore() *fakeEntryStore {
	return &fakeEntryStore{entries: make(map[modification.CacheKey]*modification.CacheEntry)}
}

func (s *fakeEntryStore) Get(_ context.Context, key modification.CacheKey) (*modification.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	entry, ok := s.entries[key]
	if !ok {
		return nil, outbound.ErrEntryNotFound
	}
	return entry, nil
}

func (s *fakeEntryStore) Put(_ context.Context, entry *modification.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	s.entries[entry.Key] = entry
	return nil
}

func (s *fakeEntryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

func (s *fakeEntryStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type fakeUsageStore struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{counts: make(map[string]int)}
}

func (s *fakeUsageStore) Reserve(_ context.Context, userID, day string, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userID + "|" + day
	if s.counts[key] >= limit {
		return s.counts[key], false, nil
	}
	s.counts[key]++
	return s.counts[key], true, nil
}

func (s *fakeUsageStore) Count(_ context.Context, userID, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[userID+"|"+day], nil
}

// manualClock is a settable time source.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(t time.Time) *manualClock { return &manualClock{now: t} }

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
