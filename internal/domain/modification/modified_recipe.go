package modification

import "github.com/alchemorsel/recipemod/internal/domain/recipe"

// ModifiedRecipe is the validated model output plus derived nutrition deltas.
type ModifiedRecipe struct {
	Title              string                    `json:"title"`
	Ingredients        []ModifiedIngredient      `json:"ingredients"`
	Steps              []ModifiedStep            `json:"steps"`
	NutritionalValues  ModifiedNutritionalValues `json:"nutritionalValues"`
	ChangesDescription string                    `json:"changesDescription,omitempty"`
}

type ModifiedIngredient struct {
	Ingredient         string  `json:"ingredient"`
	Quantity           float64 `json:"quantity"`
	Unit               string  `json:"unit"`
	IsOptional         bool    `json:"isOptional,omitempty"`
	IsModified         bool    `json:"isModified"`
	SubstitutionReason string  `json:"substitutionReason,omitempty"`
}

type ModifiedStep struct {
	Number             int    `json:"number"`
	Description        string `json:"description"`
	EstimatedTime      *int   `json:"estimatedTime,omitempty"`
	IsModified         bool   `json:"isModified"`
	ModificationReason string `json:"modificationReason,omitempty"`
}

// ModifiedNutritionalValues carries reductions as whole percentages relative to
// the original recipe. A negative reduction means the modification increased
// the value.
type ModifiedNutritionalValues struct {
	recipe.NutritionalValues
	CarbsReduction    int `json:"carbsReduction"`
	CaloriesReduction int `json:"caloriesReduction"`
}
