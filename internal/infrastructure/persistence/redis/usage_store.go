package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alchemorsel/recipemod/internal/ports/outbound"
)

// usageTTL keeps a day's counter around long enough to cover every timezone
// reading it, then lets Redis drop it.
const usageTTL = 48 * time.Hour

// reserveScript increments KEYS[1] unless it already reached ARGV[1].
// Returns {count, allowed}.
var reserveScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if current >= limit then
  return {current, 0}
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('EXPIRE', KEYS[1], ARGV[2])
end
return {current, 1}
`)

// UsageStore counts daily modifications per user in Redis
type UsageStore struct {
	client redis.UniversalClient
	prefix string
}

var _ outbound.UsageStore = (*UsageStore)(nil)

// NewUsageStore creates a store writing keys under keyPrefix
func NewUsageStore(client redis.UniversalClient, keyPrefix string) *UsageStore {
	return &UsageStore{
		client: client,
		prefix: prefixOrDefault(keyPrefix) + "usage:",
	}
}

func (s *UsageStore) key(userID, day string) string {
	return s.prefix + "{" + userID + "}:" + day
}

// Reserve runs the reservation atomically on the server
func (s *UsageStore) Reserve(ctx context.Context, userID, day string, limit int) (int, bool, error) {
	res, err := reserveScript.Run(ctx, s.client, []string{s.key(userID, day)},
		limit, int(usageTTL.Seconds())).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("redis reserve %s: %w", userID, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("redis reserve %s: unexpected reply %v", userID, res)
	}
	return int(res[0]), res[1] == 1, nil
}

// Count reads the counter without changing it
func (s *UsageStore) Count(ctx context.Context, userID, day string) (int, error) {
	n, err := s.client.Get(ctx, s.key(userID, day)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis count %s: %w", userID, err)
	}
	return n, nil
}
