// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application needs from infrastructure
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
	"github.com/alchemorsel/recipemod/internal/domain/recipe"
)

// ErrEntryNotFound is returned by an EntryStore when no entry is stored under a key.
var ErrEntryNotFound = errors.New("cache entry not found")

// RecipeRepository looks up recipes. FindByID returns recipe.ErrRecipeNotFound on a miss.
type RecipeRepository interface {
	FindByID(ctx context.Context, id string) (*recipe.Recipe, error)
	Save(ctx context.Context, r *recipe.Recipe) error
}

// ModelGateway sends one prompt to a language model and returns the raw completion.
// Implementations make exactly one attempt and honour ctx cancellation.
type ModelGateway interface {
	Invoke(ctx context.Context, prompt string) (string, error)
	Name() string
}

// EntryStore persists cache entries. Stores may drop expired entries on their
// own; callers still check expiry on every read.
type EntryStore interface {
	Get(ctx context.Context, key modification.CacheKey) (*modification.CacheEntry, error)
	Put(ctx context.Context, entry *modification.CacheEntry) error
	// Sweep deletes entries expired at now and reports how many were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// UsageStore keeps per-user per-day counters. Reserve must be atomic per
// (userID, day): it increments the counter only while it is below limit and
// returns the counter value after the call.
type UsageStore interface {
	Reserve(ctx context.Context, userID, day string, limit int) (count int, allowed bool, err error)
	Count(ctx context.Context, userID, day string) (int, error)
}
