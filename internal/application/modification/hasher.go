package modification

import (
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
)

// keyVersion changes whenever the canonical form below changes, so old
// entries stop matching instead of being misread.
const keyVersion = 2

type canonicalKey struct {
	Version          int      `json:"v"`
	RecipeID         string   `json:"recipe"`
	DietType         string   `json:"diet"`
	MaxCarbs         string   `json:"maxCarbs"`
	ExcludedProducts []string `json:"excluded"`
	Allergens        []string `json:"allergens"`
}

// ComputeKey derives the cache key of a (recipe, preferences) pair. Preferences
// that differ only in case, ordering or duplicates produce the same key.
func ComputeKey(recipeID string, prefs modification.Preferences) modification.CacheKey {
	n := prefs.Normalize()

	payload, err := json.Marshal(canonicalKey{
		Version:          keyVersion,
		RecipeID:         recipeID,
		DietType:         strings.ToLower(string(n.DietType)),
		MaxCarbs:         formatCarbs(n.MaxCarbs),
		ExcludedProducts: n.ExcludedProducts,
		Allergens:        n.Allergens,
	})
	if err != nil {
		// Only strings are encoded, so this is unreachable.
		panic("modification: encoding cache key: " + err.Error())
	}

	sum := blake2b.Sum256(payload)
	return modification.CacheKey(hex.EncodeToString(sum[:]))
}

// formatCarbs renders every float, NaN and the infinities included, as a
// distinct string. Negative zero folds into zero.
func formatCarbs(v float64) string {
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
