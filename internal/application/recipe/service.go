// Package recipe provides the application layer for the recipe catalog that
// modifications are computed against.
package recipe

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/alchemorsel/recipemod/internal/domain/recipe"
	"github.com/alchemorsel/recipemod/internal/ports/inbound"
	"github.com/alchemorsel/recipemod/internal/ports/outbound"
	apperrors "github.com/alchemorsel/recipemod/pkg/errors"
)

// CatalogService implements inbound.RecipeCatalog
type CatalogService struct {
	recipeRepo outbound.RecipeRepository
	logger     *zap.Logger
}

var _ inbound.RecipeCatalog = (*CatalogService)(nil)

// NewCatalogService creates a new catalog service
func NewCatalogService(recipeRepo outbound.RecipeRepository, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		recipeRepo: recipeRepo,
		logger:     logger.Named("recipe-catalog"),
	}
}

// GetRecipe loads a recipe by ID
func (s *CatalogService) GetRecipe(ctx context.Context, recipeID string) (*recipe.Recipe, error) {
	r, err := s.recipeRepo.FindByID(ctx, recipeID)
	if errors.Is(err, recipe.ErrRecipeNotFound) {
		return nil, apperrors.NewRecipeNotFoundError(recipeID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("load recipe", err)
	}
	return r, nil
}

// SaveRecipe validates and stores a recipe, replacing any recipe with the same ID
func (s *CatalogService) SaveRecipe(ctx context.Context, r *recipe.Recipe) error {
	if err := r.Validate(); err != nil {
		return apperrors.NewInvalidInputError(err.Error()).WithCause(err)
	}

	if err := s.recipeRepo.Save(ctx, r); err != nil {
		return apperrors.NewDatabaseError("save recipe", err)
	}

	s.logger.Info("Recipe saved",
		zap.String("recipe_id", r.ID),
		zap.Int("ingredients", len(r.Ingredients)),
	)
	return nil
}
