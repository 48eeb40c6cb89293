// Package modification contains the value objects of AI recipe modification:
// dietary preferences, the modified recipe returned by the model, cache
// entries and per-user usage records.
package modification

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// DietType is the dietary goal a modification aims for.
type DietType string

const (
	DietNormal     DietType = "normal"
	DietVegetarian DietType = "vegetarian"
	DietVegan      DietType = "vegan"
	DietLowCarb    DietType = "lowCarb"
	DietKeto       DietType = "keto"
	DietPaleo      DietType = "paleo"
	DietGlutenFree DietType = "glutenFree"
	DietDairyFree  DietType = "dairyFree"
)

var dietTypes = map[string]DietType{
	"normal":     DietNormal,
	"vegetarian": DietVegetarian,
	"vegan":      DietVegan,
	"lowcarb":    DietLowCarb,
	"keto":       DietKeto,
	"paleo":      DietPaleo,
	"glutenfree": DietGlutenFree,
	"dairyfree":  DietDairyFree,
}

var dietGoals = map[DietType]string{
	DietNormal:     "keep the dish balanced while respecting the constraints below",
	DietVegetarian: "make the recipe vegetarian (no meat, poultry or fish)",
	DietVegan:      "make the recipe vegan (no animal products at all)",
	DietLowCarb:    "lower the carbohydrate content as much as reasonably possible",
	DietKeto:       "make the recipe ketogenic (very low carbohydrate, high fat)",
	DietPaleo:      "make the recipe paleo (no grains, legumes, dairy or refined sugar)",
	DietGlutenFree: "make the recipe gluten-free",
	DietDairyFree:  "make the recipe dairy-free",
}

var ErrUnknownDietType = errors.New("unknown diet type")

// ParseDietType resolves a diet type case-insensitively. An empty value means normal.
func ParseDietType(s string) (DietType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return DietNormal, nil
	}
	dt, ok := dietTypes[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDietType, s)
	}
	return dt, nil
}

// Goal is the instruction sentence used when prompting for this diet.
func (d DietType) Goal() string {
	if goal, ok := dietGoals[d]; ok {
		return goal
	}
	return dietGoals[DietNormal]
}

// Preferences are the user's dietary constraints for one modification.
type Preferences struct {
	DietType         string   `json:"dietType"`
	MaxCarbs         *float64 `json:"maxCarbs,omitempty"`
	ExcludedProducts []string `json:"excludedProducts,omitempty"`
	Allergens        []string `json:"allergens,omitempty"`
}

// NormalizedPreferences is the canonical form used for cache keys and prompts.
// Two Preferences are equal for caching iff their normalized forms are equal.
type NormalizedPreferences struct {
	DietType         DietType
	MaxCarbs         float64
	ExcludedProducts []string
	Allergens        []string
}

// Validate checks the diet type and carbs limit.
func (p *Preferences) Validate() error {
	if p == nil {
		return errors.New("preferences are required")
	}
	if _, err := ParseDietType(p.DietType); err != nil {
		return err
	}
	if p.MaxCarbs != nil {
		if math.IsNaN(*p.MaxCarbs) || math.IsInf(*p.MaxCarbs, 0) {
			return errors.New("maxCarbs must be a finite number")
		}
		if *p.MaxCarbs < 0 {
			return errors.New("maxCarbs must not be negative")
		}
	}
	return nil
}

// Normalize lower-cases and sorts every set, drops blanks and duplicates, and
// treats an absent maxCarbs as 0. Unknown diet types are kept lower-cased so
// they still hash distinctly; Validate rejects them.
func (p Preferences) Normalize() NormalizedPreferences {
	dt, err := ParseDietType(p.DietType)
	if err != nil {
		dt = DietType(strings.ToLower(strings.TrimSpace(p.DietType)))
	}

	var maxCarbs float64
	if p.MaxCarbs != nil {
		maxCarbs = *p.MaxCarbs
	}

	return NormalizedPreferences{
		DietType:         dt,
		MaxCarbs:         maxCarbs,
		ExcludedProducts: normalizeSet(p.ExcludedProducts),
		Allergens:        normalizeSet(p.Allergens),
	}
}

func normalizeSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
