package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
	"github.com/alchemorsel/recipemod/internal/ports/outbound"
)

// EntryStore persists cached modifications in the modification_cache table
type EntryStore struct {
	db *gorm.DB
}

var _ outbound.EntryStore = (*EntryStore)(nil)

// NewEntryStore creates a new entry store
func NewEntryStore(db *gorm.DB) *EntryStore {
	return &EntryStore{db: db}
}

// Get loads an entry by key
func (s *EntryStore) Get(ctx context.Context, key modification.CacheKey) (*modification.CacheEntry, error) {
	var model CacheEntryModel
	err := s.db.WithContext(ctx).First(&model, "cache_key = ?", key.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, outbound.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load cache entry %s: %w", key, err)
	}
	return ModelToEntry(&model), nil
}

// Put inserts or replaces an entry
func (s *EntryStore) Put(ctx context.Context, entry *modification.CacheEntry) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cache_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "created_at", "expires_at"}),
		}).
		Create(EntryToModel(entry)).Error
	if err != nil {
		return fmt.Errorf("store cache entry %s: %w", entry.Key, err)
	}
	return nil
}

// Sweep deletes every row expired at now
func (s *EntryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&CacheEntryModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("sweep cache entries: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
