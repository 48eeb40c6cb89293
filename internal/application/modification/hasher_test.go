package modification

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
)

func TestComputeKey(t *testing.T) {
	t.Run("NormalizedPreferences_ShouldShareKey", func(t *testing.T) {
		a := modification.Preferences{DietType: "KETO", Allergens: []string{"Gluten", "Nuts"}}
		b := modification.Preferences{DietType: "keto", Allergens: []string{"nuts", "gluten"}}

		assert.Equal(t, ComputeKey("r-1", a), ComputeKey("r-1", b))
	})

	t.Run("RepeatedCalls_ShouldBeDeterministic", func(t *testing.T) {
		carbs := 30.0
		p := modification.Preferences{DietType: "lowCarb", MaxCarbs: &carbs, ExcludedProducts: []string{"sugar"}}

		first := ComputeKey("r-1", p)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, ComputeKey("r-1", p))
		}
		assert.Len(t, first.String(), 64, "256-bit hex digest")
	})

	t.Run("AbsentMaxCarbs_ShouldEqualZero", func(t *testing.T) {
		zero := 0.0
		assert.Equal(t,
			ComputeKey("r-1", modification.Preferences{DietType: "vegan"}),
			ComputeKey("r-1", modification.Preferences{DietType: "vegan", MaxCarbs: &zero}),
		)
	})

	t.Run("AnySemanticDifference_ShouldChangeKey", func(t *testing.T) {
		twenty, thirty := 20.0, 30.0
		base := modification.Preferences{DietType: "keto", MaxCarbs: &twenty, Allergens: []string{"nuts"}}

		variants := []struct {
			name     string
			recipeID string
			prefs    modification.Preferences
		}{
			{"recipe", "r-2", base},
			{"diet", "r-1", modification.Preferences{DietType: "paleo", MaxCarbs: &twenty, Allergens: []string{"nuts"}}},
			{"maxCarbs", "r-1", modification.Preferences{DietType: "keto", MaxCarbs: &thirty, Allergens: []string{"nuts"}}},
			{"allergens", "r-1", modification.Preferences{DietType: "keto", MaxCarbs: &twenty, Allergens: []string{"nuts", "soy"}}},
			{"excluded vs allergen", "r-1", modification.Preferences{DietType: "keto", MaxCarbs: &twenty, ExcludedProducts: []string{"nuts"}}},
		}

		baseKey := ComputeKey("r-1", base)
		for _, v := range variants {
			assert.NotEqual(t, baseKey, ComputeKey(v.recipeID, v.prefs), v.name)
		}
	})

	t.Run("NonFiniteMaxCarbs_ShouldStillSeparateKeys", func(t *testing.T) {
		nan, inf, negInf := math.NaN(), math.Inf(1), math.Inf(-1)

		keys := map[modification.CacheKey]string{}
		inputs := []struct {
			name     string
			recipeID string
			prefs    modification.Preferences
		}{
			{"nan recipe-A", "recipe-A", modification.Preferences{DietType: "keto", MaxCarbs: &nan}},
			{"inf recipe-B", "recipe-B", modification.Preferences{DietType: "vegan", MaxCarbs: &inf, Allergens: []string{"nuts"}}},
			{"nan recipe-B", "recipe-B", modification.Preferences{DietType: "vegan", MaxCarbs: &nan, Allergens: []string{"nuts"}}},
			{"-inf recipe-B", "recipe-B", modification.Preferences{DietType: "vegan", MaxCarbs: &negInf, Allergens: []string{"nuts"}}},
			{"absent recipe-B", "recipe-B", modification.Preferences{DietType: "vegan", Allergens: []string{"nuts"}}},
		}
		for _, in := range inputs {
			key := ComputeKey(in.recipeID, in.prefs)
			if other, dup := keys[key]; dup {
				t.Fatalf("%s and %s share key %s", in.name, other, key)
			}
			keys[key] = in.name
		}
	})

	t.Run("NegativeZero_ShouldEqualZero", func(t *testing.T) {
		zero, negZero := 0.0, math.Copysign(0, -1)
		assert.Equal(t,
			ComputeKey("r-1", modification.Preferences{DietType: "keto", MaxCarbs: &zero}),
			ComputeKey("r-1", modification.Preferences{DietType: "keto", MaxCarbs: &negZero}),
		)
	})
}
