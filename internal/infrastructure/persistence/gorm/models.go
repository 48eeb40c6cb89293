// Package gorm provides GORM-backed persistence: recipes, daily usage
// counters and cached modifications on SQLite or PostgreSQL.
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
	"github.com/alchemorsel/recipemod/internal/domain/recipe"
)

// JSON stores any value as a JSON text column
type JSON[T any] struct {
	Data T
}

// Scan implements the sql.Scanner interface
func (j *JSON[T]) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		var zero T
		j.Data = zero
		return nil
	case []byte:
		return json.Unmarshal(v, &j.Data)
	case string:
		return json.Unmarshal([]byte(v), &j.Data)
	default:
		return fmt.Errorf("cannot scan %T into JSON column", value)
	}
}

// Value implements the driver.Valuer interface
func (j JSON[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// RecipeModel represents the GORM model for recipes
type RecipeModel struct {
	ID          string                         `gorm:"type:varchar(64);primaryKey"`
	Title       string                         `gorm:"type:varchar(255);not null"`
	Description string                         `gorm:"type:text"`
	Servings    int                            `gorm:"default:0"`
	Ingredients JSON[[]recipe.Ingredient]      `gorm:"type:text;not null"`
	Steps       JSON[[]recipe.Step]            `gorm:"type:text;not null"`
	Nutrition   JSON[recipe.NutritionalValues] `gorm:"type:text;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides the table name
func (RecipeModel) TableName() string { return "recipes" }

// UsageRecordModel is one user's modification count for one UTC day
type UsageRecordModel struct {
	UserID    string `gorm:"column:user_id;type:varchar(128);primaryKey"`
	Day       string `gorm:"column:day;type:char(10);primaryKey"`
	Used      int    `gorm:"column:used;not null;default:0"`
	UpdatedAt time.Time
}

// TableName overrides the table name
func (UsageRecordModel) TableName() string { return "usage_records" }

// CacheEntryModel is a stored modification result
type CacheEntryModel struct {
	Key       string                             `gorm:"column:cache_key;type:char(64);primaryKey"`
	Payload   JSON[*modification.ModifiedRecipe] `gorm:"type:text;not null"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName overrides the table name
func (CacheEntryModel) TableName() string { return "modification_cache" }

// AllModels lists the models AutoMigrate manages
func AllModels() []interface{} {
	return []interface{}{&RecipeModel{}, &UsageRecordModel{}, &CacheEntryModel{}}
}
