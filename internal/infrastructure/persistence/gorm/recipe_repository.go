package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alchemorsel/recipemod/internal/domain/recipe"
	"github.com/alchemorsel/recipemod/internal/ports/outbound"
)

// RecipeRepository implements the recipe repository interface using GORM
type RecipeRepository struct {
	db *gorm.DB
}

var _ outbound.RecipeRepository = (*RecipeRepository)(nil)

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// FindByID finds a recipe by ID
func (r *RecipeRepository) FindByID(ctx context.Context, id string) (*recipe.Recipe, error) {
	var model RecipeModel

	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, recipe.ErrRecipeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find recipe %s: %w", id, err)
	}

	return ModelToRecipe(&model), nil
}

// Save inserts the recipe or replaces the stored one with the same ID
func (r *RecipeRepository) Save(ctx context.Context, rec *recipe.Recipe) error {
	model := RecipeToModel(rec)

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description", "servings", "ingredients", "steps", "nutrition", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("save recipe %s: %w", rec.ID, err)
	}
	return nil
}
