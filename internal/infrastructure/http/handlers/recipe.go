package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/alchemorsel/recipemod/internal/domain/recipe"
	"github.com/alchemorsel/recipemod/internal/infrastructure/http/response"
	"github.com/alchemorsel/recipemod/internal/ports/inbound"
	apperrors "github.com/alchemorsel/recipemod/pkg/errors"
)

// RecipeHandlers serves the recipe catalog
type RecipeHandlers struct {
	catalog inbound.RecipeCatalog
	logger  *zap.Logger
}

// NewRecipeHandlers creates new recipe handlers
func NewRecipeHandlers(catalog inbound.RecipeCatalog, logger *zap.Logger) *RecipeHandlers {
	return &RecipeHandlers{
		catalog: catalog,
		logger:  logger.Named("recipe-api"),
	}
}

// GetRecipe handles GET /api/v1/recipes/{id}
func (h *RecipeHandlers) GetRecipe(w http.ResponseWriter, r *http.Request) {
	found, err := h.catalog.GetRecipe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.JSON(w, h.logger, http.StatusOK, found)
}

// PutRecipe handles PUT /api/v1/recipes/{id}. The body's id may be omitted
// but must match the path when present.
func (h *RecipeHandlers) PutRecipe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body recipe.Recipe
	if err := decodeBody(r, &body); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	if body.ID == "" {
		body.ID = id
	}
	if body.ID != id {
		response.Error(w, r, h.logger, apperrors.NewInvalidInputError("recipe id in body does not match path"))
		return
	}

	if err := h.catalog.SaveRecipe(r.Context(), &body); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.JSON(w, h.logger, http.StatusOK, &body)
}
