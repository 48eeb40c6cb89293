package modification

import "time"

// CacheKey is the hex BLAKE2b-256 digest identifying a (recipe, preferences) pair.
type CacheKey string

func (k CacheKey) String() string { return string(k) }

// CacheEntry is an immutable stored modification.
type CacheEntry struct {
	Key            CacheKey        `json:"key"`
	ModifiedRecipe *ModifiedRecipe `json:"modifiedRecipe"`
	CreatedAt      time.Time       `json:"createdAt"`
	ExpiresAt      time.Time       `json:"expiresAt"`
}

// NewCacheEntry stamps an entry created at now that lives for ttl.
func NewCacheEntry(key CacheKey, recipe *ModifiedRecipe, now time.Time, ttl time.Duration) *CacheEntry {
	return &CacheEntry{
		Key:            key,
		ModifiedRecipe: recipe,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
}

// Expired reports whether the entry is logically deleted at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
