package modification

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
	"github.com/alchemorsel/recipemod/internal/ports/outbound"
	apperrors "github.com/alchemorsel/recipemod/pkg/errors"
)

// DefaultCacheTTL is how long a modification stays servable from the cache.
const DefaultCacheTTL = 7 * 24 * time.Hour

// ComputeFunc produces a modification on a cache miss.
type ComputeFunc func(ctx context.Context) (*modification.ModifiedRecipe, error)

// ResponseCache is a content-addressed cache with at most one computation in
// flight per key. Failed or cancelled computations are never stored.
type ResponseCache struct {
	store    outbound.EntryStore
	ttl      time.Duration
	group    singleflight.Group
	now      func() time.Time
	logger   *zap.Logger
	recorder Recorder
}

type flightResult struct {
	recipe *modification.ModifiedRecipe
	hit    bool
}

// NewResponseCache creates a cache over store. A non-positive ttl selects DefaultCacheTTL.
func NewResponseCache(store outbound.EntryStore, ttl time.Duration, logger *zap.Logger, recorder Recorder) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &ResponseCache{
		store:    store,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.Named("response-cache"),
		recorder: recorder,
	}
}

// TTL returns the lifetime given to new entries.
func (c *ResponseCache) TTL() time.Duration {
	return c.ttl
}

// GetOrCompute returns the cached modification for key or computes it. The
// boolean reports whether the value came from the cache.
//
// Concurrent callers for the same key share one computation, which runs with
// the context of the caller that started it. A caller whose own context ends
// while waiting gets a Cancelled error; the computation is left to finish for
// the others.
func (c *ResponseCache) GetOrCompute(ctx context.Context, key modification.CacheKey, compute ComputeFunc) (*modification.ModifiedRecipe, bool, error) {
	if cached, ok := c.lookup(ctx, key); ok {
		c.recorder.CacheLookup(true)
		return cached, true, nil
	}
	c.recorder.CacheLookup(false)

	ch := c.group.DoChan(key.String(), func() (interface{}, error) {
		// An earlier flight may have stored the value after our first lookup.
		if cached, ok := c.lookup(ctx, key); ok {
			return flightResult{recipe: cached, hit: true}, nil
		}

		computed, err := compute(ctx)
		if err != nil {
			return nil, c.classify(ctx, err)
		}
		if computed == nil {
			return nil, apperrors.NewInternalError("modification computed no result")
		}

		entry := modification.NewCacheEntry(key, computed, c.now(), c.ttl)
		// The entry is valid even if the leading caller has gone away.
		if err := c.store.Put(context.WithoutCancel(ctx), entry); err != nil {
			c.logger.Warn("Failed to store modification",
				zap.String("key", key.String()),
				zap.Error(err),
			)
		}
		return flightResult{recipe: computed}, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, apperrors.NewCancelledError(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		fr := res.Val.(flightResult)
		return fr.recipe, fr.hit, nil
	}
}

// Sweep removes expired entries from the store.
func (c *ResponseCache) Sweep(ctx context.Context) (int, error) {
	removed, err := c.store.Sweep(ctx, c.now())
	if err != nil {
		return 0, err
	}
	c.recorder.CacheSwept(removed)
	if removed > 0 {
		c.logger.Debug("Swept expired modifications", zap.Int("removed", removed))
	}
	return removed, nil
}

// RunJanitor sweeps every interval until ctx is done.
func (c *ResponseCache) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Sweep(ctx); err != nil && ctx.Err() == nil {
				c.logger.Warn("Cache sweep failed", zap.Error(err))
			}
		}
	}
}

// lookup treats store failures as misses so a broken cache never blocks
// modifications.
func (c *ResponseCache) lookup(ctx context.Context, key modification.CacheKey) (*modification.ModifiedRecipe, bool) {
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, outbound.ErrEntryNotFound) {
			c.logger.Warn("Cache read failed, treating as miss",
				zap.String("key", key.String()),
				zap.Error(err),
			)
		}
		return nil, false
	}
	if entry == nil || entry.ModifiedRecipe == nil || entry.Expired(c.now()) {
		return nil, false
	}
	return entry.ModifiedRecipe, true
}

func (c *ResponseCache) classify(ctx context.Context, err error) error {
	if apperrors.Is(err, apperrors.CodeCancelled) {
		return err
	}
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return apperrors.NewCancelledError(err)
	}
	return err
}
