package modification

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
	"github.com/alchemorsel/recipemod/internal/domain/recipe"
	apperrors "github.com/alchemorsel/recipemod/pkg/errors"
)

var schema = validator.New()

// completion is the only shape accepted from the model. Pointers mark fields
// whose absence must be detected.
type completion struct {
	Title              string                 `json:"title" validate:"required"`
	Ingredients        []completionIngredient `json:"ingredients" validate:"required,min=1,dive"`
	Steps              []completionStep       `json:"steps" validate:"required,min=1,dive"`
	NutritionalValues  *completionNutrition   `json:"nutritionalValues" validate:"required"`
	ChangesDescription string                 `json:"changesDescription"`
}

type completionIngredient struct {
	Ingredient         string  `json:"ingredient" validate:"required"`
	Quantity           float64 `json:"quantity"`
	Unit               string  `json:"unit"`
	IsOptional         bool    `json:"isOptional"`
	IsModified         bool    `json:"isModified"`
	SubstitutionReason string  `json:"substitutionReason"`
}

type completionStep struct {
	Number             int    `json:"number"`
	Description        string `json:"description" validate:"required"`
	EstimatedTime      *int   `json:"estimatedTime"`
	IsModified         bool   `json:"isModified"`
	ModificationReason string `json:"modificationReason"`
}

type completionNutrition struct {
	TotalCalories      *float64 `json:"totalCalories" validate:"omitempty,gte=0"`
	TotalCarbs         *float64 `json:"totalCarbs" validate:"required,gte=0"`
	TotalProtein       *float64 `json:"totalProtein" validate:"omitempty,gte=0"`
	TotalFat           *float64 `json:"totalFat" validate:"omitempty,gte=0"`
	TotalFiber         *float64 `json:"totalFiber" validate:"omitempty,gte=0"`
	CaloriesPerServing *float64 `json:"caloriesPerServing" validate:"omitempty,gte=0"`
	CarbsPerServing    *float64 `json:"carbsPerServing" validate:"omitempty,gte=0"`
}

// ParseResponse decodes a raw completion against the strict schema and derives
// the nutrition reductions relative to original.
func ParseResponse(raw string, original *recipe.Recipe) (*modification.ModifiedRecipe, error) {
	if original == nil {
		return nil, apperrors.NewInvalidInputError("original recipe is required")
	}

	body := stripCodeFence(raw)
	if body == "" {
		return nil, apperrors.NewMalformedResponseError("empty completion", nil)
	}

	var c completion
	if err := decodeStrict([]byte(body), &c); err != nil {
		return nil, apperrors.NewMalformedResponseError("completion is not valid JSON for the expected schema", err)
	}
	if err := schema.Struct(&c); err != nil {
		return nil, apperrors.NewMalformedResponseError(missingFields(err), err)
	}

	out := &modification.ModifiedRecipe{
		Title:              c.Title,
		Ingredients:        make([]modification.ModifiedIngredient, 0, len(c.Ingredients)),
		Steps:              make([]modification.ModifiedStep, 0, len(c.Steps)),
		ChangesDescription: c.ChangesDescription,
	}
	for _, ing := range c.Ingredients {
		out.Ingredients = append(out.Ingredients, modification.ModifiedIngredient{
			Ingredient:         ing.Ingredient,
			Quantity:           ing.Quantity,
			Unit:               ing.Unit,
			IsOptional:         ing.IsOptional,
			IsModified:         ing.IsModified,
			SubstitutionReason: ing.SubstitutionReason,
		})
	}
	for i, step := range c.Steps {
		number := step.Number
		if number <= 0 {
			number = i + 1
		}
		out.Steps = append(out.Steps, modification.ModifiedStep{
			Number:             number,
			Description:        step.Description,
			EstimatedTime:      step.EstimatedTime,
			IsModified:         step.IsModified,
			ModificationReason: step.ModificationReason,
		})
	}

	nv := c.NutritionalValues
	out.NutritionalValues = modification.ModifiedNutritionalValues{
		NutritionalValues: recipe.NutritionalValues{
			TotalCalories:      valueOf(nv.TotalCalories),
			TotalCarbs:         *nv.TotalCarbs,
			TotalProtein:       valueOf(nv.TotalProtein),
			TotalFat:           valueOf(nv.TotalFat),
			TotalFiber:         valueOf(nv.TotalFiber),
			CaloriesPerServing: valueOf(nv.CaloriesPerServing),
			CarbsPerServing:    valueOf(nv.CarbsPerServing),
		},
		CarbsReduction: Reduction(original.NutritionalValues.TotalCarbs, *nv.TotalCarbs),
	}
	if nv.TotalCalories != nil {
		out.NutritionalValues.CaloriesReduction = Reduction(original.NutritionalValues.TotalCalories, *nv.TotalCalories)
	}

	return out, nil
}

// Reduction is the whole-percent decrease from original to modified. It is 0
// when original is not positive and negative when modified exceeds original.
func Reduction(original, modified float64) int {
	if original <= 0 {
		return 0
	}
	return int(math.Round((original - modified) / original * 100))
}

func decodeStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

// stripCodeFence removes a surrounding markdown fence such as ```json ... ```.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func missingFields(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "completion failed schema validation"
	}
	var missing, invalid []string
	for _, fe := range fieldErrs {
		name := strings.TrimPrefix(fe.Namespace(), "completion.")
		if fe.Tag() == "required" || fe.Tag() == "min" {
			missing = append(missing, name)
		} else {
			invalid = append(invalid, name)
		}
	}
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "out of range fields: "+strings.Join(invalid, ", "))
	}
	return "completion has " + strings.Join(parts, "; ")
}

func valueOf(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
