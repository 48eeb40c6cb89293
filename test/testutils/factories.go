// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"encoding/json"
	"fmt"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
	"github.com/alchemorsel/recipemod/internal/domain/recipe"
)

// RecipeFactory provides methods to create test recipes
type RecipeFactory struct {
	faker *gofakeit.Faker
}

// NewRecipeFactory creates a new recipe factory with seeded faker
func NewRecipeFactory(seed int64) *RecipeFactory {
	return &RecipeFactory{
		faker: gofakeit.New(seed),
	}
}

// Recipe creates a valid recipe with a handful of ingredients and steps
func (f *RecipeFactory) Recipe() *recipe.Recipe {
	ingredientCount := f.faker.Number(2, 6)
	ingredients := make([]recipe.Ingredient, 0, ingredientCount)
	for i := 0; i < ingredientCount; i++ {
		ingredients = append(ingredients, recipe.Ingredient{
			Name:     f.ingredientName(i),
			Quantity: float64(f.faker.Number(1, 500)),
			Unit:     f.faker.RandomString([]string{"g", "ml", "tbsp", "tsp", "pcs"}),
		})
	}

	stepCount := f.faker.Number(1, 4)
	steps := make([]recipe.Step, 0, stepCount)
	for i := 0; i < stepCount; i++ {
		minutes := f.faker.Number(1, 45)
		steps = append(steps, recipe.Step{
			Number:        i + 1,
			Description:   f.faker.Sentence(8),
			EstimatedTime: &minutes,
		})
	}

	servings := f.faker.Number(1, 6)
	calories := float64(f.faker.Number(200, 2000))
	carbs := float64(f.faker.Number(10, 200))

	return &recipe.Recipe{
		ID:          f.faker.UUID(),
		Title:       f.faker.Dinner(),
		Description: f.faker.Sentence(12),
		Servings:    servings,
		Ingredients: ingredients,
		Steps:       steps,
		NutritionalValues: recipe.NutritionalValues{
			TotalCalories:      calories,
			TotalCarbs:         carbs,
			TotalProtein:       float64(f.faker.Number(5, 80)),
			TotalFat:           float64(f.faker.Number(5, 90)),
			TotalFiber:         float64(f.faker.Number(0, 30)),
			CaloriesPerServing: calories / float64(servings),
			CarbsPerServing:    carbs / float64(servings),
		},
	}
}

// Preferences creates random but valid preferences
func (f *RecipeFactory) Preferences() modification.Preferences {
	maxCarbs := float64(f.faker.Number(10, 100))
	return modification.Preferences{
		DietType:         f.faker.RandomString([]string{"normal", "vegan", "keto", "lowCarb", "paleo"}),
		MaxCarbs:         &maxCarbs,
		ExcludedProducts: []string{f.faker.Vegetable()},
		Allergens:        []string{f.faker.RandomString([]string{"nuts", "gluten", "soy", "eggs"})},
	}
}

// ModelResponse renders a completion the response parser accepts, with the
// given totals.
func (f *RecipeFactory) ModelResponse(title string, totalCarbs, totalCalories float64) string {
	return ModelResponseJSON(title, totalCarbs, totalCalories)
}

func (f *RecipeFactory) ingredientName(i int) string {
	if i%2 == 0 {
		return f.faker.Vegetable()
	}
	return f.faker.Fruit()
}

// ModelResponseJSON renders a minimal valid completion.
func ModelResponseJSON(title string, totalCarbs, totalCalories float64) string {
	body := map[string]interface{}{
		"title": title,
		"ingredients": []map[string]interface{}{
			{"ingredient": "almond flour", "quantity": 150, "unit": "g", "isModified": true, "substitutionReason": "lower carbs"},
			{"ingredient": "eggs", "quantity": 2, "unit": "pcs", "isModified": false},
		},
		"steps": []map[string]interface{}{
			{"number": 1, "description": "Mix everything", "estimatedTime": 5, "isModified": false},
		},
		"nutritionalValues": map[string]interface{}{
			"totalCalories": totalCalories,
			"totalCarbs":    totalCarbs,
			"totalProtein":  30,
			"totalFat":      40,
			"totalFiber":    8,
		},
		"changesDescription": fmt.Sprintf("Adapted %s", title),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return string(raw)
}
