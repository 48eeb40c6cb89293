package modification

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
	"github.com/alchemorsel/recipemod/internal/domain/recipe"
	apperrors "github.com/alchemorsel/recipemod/pkg/errors"
)

const promptPreamble = "You are a professional chef and nutritionist. Modify the recipe below so that it " +
	"meets the requirements. Keep the dish recognisable and change only what the requirements demand."

// responseInstructions pins the JSON shape ParseResponse accepts.
const responseInstructions = `Respond with a single JSON object and nothing else. Use exactly these fields:
{
  "title": string,
  "ingredients": [{"ingredient": string, "quantity": number, "unit": string, "isOptional": boolean, "isModified": boolean, "substitutionReason": string}],
  "steps": [{"number": integer, "description": string, "estimatedTime": integer minutes, "isModified": boolean, "modificationReason": string}],
  "nutritionalValues": {"totalCalories": number, "totalCarbs": number, "totalProtein": number, "totalFat": number, "totalFiber": number, "caloriesPerServing": number, "carbsPerServing": number},
  "changesDescription": string
}
Mark every changed ingredient and step with "isModified": true and explain the change in the reason field.`

// BuildPrompt renders the model instruction for modifying r under prefs.
// Output depends only on the recipe and the normalized preferences.
func BuildPrompt(r *recipe.Recipe, prefs *modification.Preferences) (string, error) {
	if r == nil {
		return "", apperrors.NewInvalidInputError("recipe is required")
	}
	if prefs == nil {
		return "", apperrors.NewInvalidInputError("preferences are required")
	}
	if err := r.Validate(); err != nil {
		return "", apperrors.NewInvalidInputError(err.Error()).WithCause(err)
	}
	if err := prefs.Validate(); err != nil {
		return "", apperrors.NewInvalidInputError(err.Error()).WithCause(err)
	}

	n := prefs.Normalize()

	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Recipe: %s\n", r.Title)
	if r.Servings > 0 {
		fmt.Fprintf(&b, "Servings: %d\n", r.Servings)
	}

	b.WriteString("\nIngredients:\n")
	for i, ing := range r.Ingredients {
		fmt.Fprintf(&b, "%d. %s\n", i+1, formatIngredient(ing))
	}

	if len(r.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, step := range r.Steps {
			fmt.Fprintf(&b, "%d. %s", step.Number, step.Description)
			if step.EstimatedTime != nil {
				fmt.Fprintf(&b, " (%d min)", *step.EstimatedTime)
			}
			b.WriteString("\n")
		}
	}

	nv := r.NutritionalValues
	fmt.Fprintf(&b, "\nOriginal nutrition (whole recipe): %s kcal, %s g carbs, %s g protein, %s g fat, %s g fiber\n",
		formatNumber(nv.TotalCalories), formatNumber(nv.TotalCarbs), formatNumber(nv.TotalProtein),
		formatNumber(nv.TotalFat), formatNumber(nv.TotalFiber))

	b.WriteString("\nRequirements:\n")
	fmt.Fprintf(&b, "- Diet: %s, %s\n", n.DietType, n.DietType.Goal())
	if n.MaxCarbs > 0 {
		fmt.Fprintf(&b, "- Maximum total carbohydrates: %s g\n", formatNumber(n.MaxCarbs))
	}
	if len(n.ExcludedProducts) > 0 {
		fmt.Fprintf(&b, "- Do not use these products: %s\n", strings.Join(n.ExcludedProducts, ", "))
	}
	if len(n.Allergens) > 0 {
		fmt.Fprintf(&b, "- Avoid these allergens completely: %s\n", strings.Join(n.Allergens, ", "))
	}

	b.WriteString("\n")
	b.WriteString(responseInstructions)

	return b.String(), nil
}

func formatIngredient(ing recipe.Ingredient) string {
	parts := make([]string, 0, 3)
	if ing.Quantity > 0 {
		parts = append(parts, formatNumber(ing.Quantity))
	}
	if ing.Unit != "" {
		parts = append(parts, ing.Unit)
	}
	parts = append(parts, ing.Name)
	return strings.Join(parts, " ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
