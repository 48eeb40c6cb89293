package gorm

import (
	"github.com/alchemorsel/recipemod/internal/domain/modification"
	"github.com/alchemorsel/recipemod/internal/domain/recipe"
)

// RecipeToModel converts a domain recipe to its row
func RecipeToModel(r *recipe.Recipe) *RecipeModel {
	return &RecipeModel{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Servings:    r.Servings,
		Ingredients: JSON[[]recipe.Ingredient]{Data: r.Ingredients},
		Steps:       JSON[[]recipe.Step]{Data: r.Steps},
		Nutrition:   JSON[recipe.NutritionalValues]{Data: r.NutritionalValues},
	}
}

// ModelToRecipe converts a row to a domain recipe
func ModelToRecipe(m *RecipeModel) *recipe.Recipe {
	return &recipe.Recipe{
		ID:                m.ID,
		Title:             m.Title,
		Description:       m.Description,
		Servings:          m.Servings,
		Ingredients:       m.Ingredients.Data,
		Steps:             m.Steps.Data,
		NutritionalValues: m.Nutrition.Data,
	}
}

// EntryToModel converts a cache entry to its row
func EntryToModel(e *modification.CacheEntry) *CacheEntryModel {
	return &CacheEntryModel{
		Key:       e.Key.String(),
		Payload:   JSON[*modification.ModifiedRecipe]{Data: e.ModifiedRecipe},
		CreatedAt: e.CreatedAt.UTC(),
		ExpiresAt: e.ExpiresAt.UTC(),
	}
}

// ModelToEntry converts a row to a cache entry
func ModelToEntry(m *CacheEntryModel) *modification.CacheEntry {
	return &modification.CacheEntry{
		Key:            modification.CacheKey(m.Key),
		ModifiedRecipe: m.Payload.Data,
		CreatedAt:      m.CreatedAt,
		ExpiresAt:      m.ExpiresAt,
	}
}
