// Package recipe holds the recipe value objects the modification engine reads.
// A Recipe handed to the engine is treated as immutable.
package recipe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Recipe is the read-only input of a modification request.
type Recipe struct {
	ID                string            `json:"id" validate:"required"`
	Title             string            `json:"title" validate:"required,max=200"`
	Description       string            `json:"description,omitempty" validate:"max=2000"`
	Servings          int               `json:"servings,omitempty" validate:"gte=0"`
	Ingredients       []Ingredient      `json:"ingredients" validate:"required,min=1,dive"`
	Steps             []Step            `json:"steps" validate:"dive"`
	NutritionalValues NutritionalValues `json:"nutritionalValues"`
}

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Name     string  `json:"name" validate:"required"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
	Unit     string  `json:"unit"`
}

// Step is one cooking instruction. EstimatedTime is in minutes.
type Step struct {
	Number        int    `json:"number" validate:"gte=1"`
	Description   string `json:"description" validate:"required"`
	EstimatedTime *int   `json:"estimatedTime,omitempty" validate:"omitempty,gte=0"`
}

// NutritionalValues are recipe totals and per-serving figures.
type NutritionalValues struct {
	TotalCalories      float64 `json:"totalCalories" validate:"gte=0"`
	TotalCarbs         float64 `json:"totalCarbs" validate:"gte=0"`
	TotalProtein       float64 `json:"totalProtein" validate:"gte=0"`
	TotalFat           float64 `json:"totalFat" validate:"gte=0"`
	TotalFiber         float64 `json:"totalFiber" validate:"gte=0"`
	CaloriesPerServing float64 `json:"caloriesPerServing" validate:"gte=0"`
	CarbsPerServing    float64 `json:"carbsPerServing" validate:"gte=0"`
}

// Validate reports the first structural problem with the recipe.
func (r *Recipe) Validate() error {
	if r == nil {
		return fmt.Errorf("recipe is required")
	}
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(r.Title) == "" {
		return ErrTitleRequired
	}
	if len(r.Ingredients) == 0 {
		return ErrNoIngredients
	}
	if err := validate.Struct(r); err != nil {
		return describe(err)
	}
	return nil
}

func describe(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return fmt.Errorf("field %s failed %q validation", fe.Namespace(), fe.Tag())
}
