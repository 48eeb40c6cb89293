// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
	"github.com/alchemorsel/recipemod/internal/domain/recipe"
)

// ModificationService is the single use case of the engine: adapt a stored
// recipe to a user's dietary preferences, bounded by a daily quota.
type ModificationService interface {
	ModifyRecipe(ctx context.Context, recipeID, userID string, prefs modification.Preferences) (*ModificationResult, error)
	GetUsage(ctx context.Context, userID string) (*UsageStatus, error)
}

// RecipeCatalog lets driving adapters read and seed the recipes modifications run against.
type RecipeCatalog interface {
	GetRecipe(ctx context.Context, recipeID string) (*recipe.Recipe, error)
	SaveRecipe(ctx context.Context, r *recipe.Recipe) error
}

// ModificationResult is returned for every successful modification.
type ModificationResult struct {
	ModifiedRecipe *modification.ModifiedRecipe `json:"modifiedRecipe"`
	Usage          modification.Usage           `json:"usage"`
	Cached         bool                         `json:"cached"`
}

// UsageStatus reports today's quota consumption without charging it.
type UsageStatus struct {
	modification.Usage
	ResetsAt string `json:"resetsAt"`
}
