package recipe

import "errors"

// Domain errors for recipe validation
var (
	ErrMissingID      = errors.New("recipe id is required")
	ErrTitleRequired  = errors.New("recipe title is required")
	ErrNoIngredients  = errors.New("recipe must have at least one ingredient")
	ErrRecipeNotFound = errors.New("recipe not found")
)
