// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/alchemorsel/recipemod/internal/domain/recipe"
)

// MockModelGateway provides a mock implementation of outbound.ModelGateway
type MockModelGateway struct {
	mock.Mock
}

// Invoke records the call and returns the configured completion
func (m *MockModelGateway) Invoke(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// Name identifies the mock provider
func (m *MockModelGateway) Name() string {
	return "mock"
}

// StaticRecipeRepository serves a fixed set of recipes
type StaticRecipeRepository struct {
	mu      sync.RWMutex
	recipes map[string]*recipe.Recipe
}

// NewStaticRecipeRepository creates a repository holding recipes
func NewStaticRecipeRepository(recipes ...*recipe.Recipe) *StaticRecipeRepository {
	repo := &StaticRecipeRepository{recipes: make(map[string]*recipe.Recipe)}
	for _, r := range recipes {
		repo.recipes[r.ID] = r
	}
	return repo
}

// FindByID returns recipe.ErrRecipeNotFound for unknown IDs
func (r *StaticRecipeRepository) FindByID(ctx context.Context, id string) (*recipe.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found, ok := r.recipes[id]
	if !ok {
		return nil, recipe.ErrRecipeNotFound
	}
	return found, nil
}

// Save stores or replaces a recipe
func (r *StaticRecipeRepository) Save(ctx context.Context, rec *recipe.Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipes[rec.ID] = rec
	return nil
}
