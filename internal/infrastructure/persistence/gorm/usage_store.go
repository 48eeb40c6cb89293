package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alchemorsel/recipemod/internal/ports/outbound"
)

// UsageStore keeps daily counters in the usage_records table
type UsageStore struct {
	db *gorm.DB
}

var _ outbound.UsageStore = (*UsageStore)(nil)

// NewUsageStore creates a new usage store
func NewUsageStore(db *gorm.DB) *UsageStore {
	return &UsageStore{db: db}
}

// Reserve makes sure the day's row exists, then increments it only while it
// is below limit. The guarded UPDATE is what keeps concurrent reservations
// from overshooting.
func (s *UsageStore) Reserve(ctx context.Context, userID, day string, limit int) (int, bool, error) {
	var (
		count   int
		allowed bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := UsageRecordModel{UserID: userID, Day: day}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		res := tx.Model(&UsageRecordModel{}).
			Where("user_id = ? AND day = ? AND used < ?", userID, day, limit).
			UpdateColumn("used", gorm.Expr("used + 1"))
		if res.Error != nil {
			return res.Error
		}
		allowed = res.RowsAffected == 1

		var rec UsageRecordModel
		if err := tx.First(&rec, "user_id = ? AND day = ?", userID, day).Error; err != nil {
			return err
		}
		count = rec.Used
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("reserve usage for %s: %w", userID, err)
	}
	return count, allowed, nil
}

// Count reads the counter without changing it
func (s *UsageStore) Count(ctx context.Context, userID, day string) (int, error) {
	var rec UsageRecordModel
	err := s.db.WithContext(ctx).First(&rec, "user_id = ? AND day = ?", userID, day).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count usage for %s: %w", userID, err)
	}
	return rec.Used, nil
}
