package memory

import (
	"context"
	"sync"

	"github.com/alchemorsel/recipemod/internal/ports/outbound"
)

type counter struct {
	mu    sync.Mutex
	day   string
	count int
}

// UsageStore counts daily modifications per user. Each user has their own
// lock; a counter only remembers its latest day, so older days reset lazily.
type UsageStore struct {
	users sync.Map // userID -> *counter
}

var _ outbound.UsageStore = (*UsageStore)(nil)

// NewUsageStore creates an empty store
func NewUsageStore() *UsageStore {
	return &UsageStore{}
}

func (s *UsageStore) counter(userID string) *counter {
	if c, ok := s.users.Load(userID); ok {
		return c.(*counter)
	}
	c, _ := s.users.LoadOrStore(userID, &counter{})
	return c.(*counter)
}

// Reserve increments the user's count for day unless it already reached limit.
func (s *UsageStore) Reserve(ctx context.Context, userID, day string, limit int) (int, bool, error) {
	c := s.counter(userID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.day != day {
		c.day = day
		c.count = 0
	}
	if c.count >= limit {
		return c.count, false, nil
	}
	c.count++
	return c.count, true, nil
}

// Count reports the user's count for day
func (s *UsageStore) Count(ctx context.Context, userID, day string) (int, error) {
	v, ok := s.users.Load(userID)
	if !ok {
		return 0, nil
	}
	c := v.(*counter)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.day != day {
		return 0, nil
	}
	return c.count, nil
}
