package recipe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/alchemorsel/recipemod/internal/domain/recipe"
	apperrors "github.com/alchemorsel/recipemod/pkg/errors"
	"github.com/alchemorsel/recipemod/test/testutils"
)

type mockRecipeRepository struct {
	mock.Mock
}

func (m *mockRecipeRepository) FindByID(ctx context.Context, id string) (*recipe.Recipe, error) {
	args := m.Called(ctx, id)
	found, _ := args.Get(0).(*recipe.Recipe)
	return found, args.Error(1)
}

func (m *mockRecipeRepository) Save(ctx context.Context, r *recipe.Recipe) error {
	return m.Called(ctx, r).Error(0)
}

type CatalogServiceTestSuite struct {
	suite.Suite
	repo    *mockRecipeRepository
	service *CatalogService
	factory *testutils.RecipeFactory
}

func (s *CatalogServiceTestSuite) SetupTest() {
	s.repo = new(mockRecipeRepository)
	s.service = NewCatalogService(s.repo, zaptest.NewLogger(s.T()))
	s.factory = testutils.NewRecipeFactory(42)
}

func (s *CatalogServiceTestSuite) TestGetRecipe_Found() {
	// Arrange
	want := s.factory.Recipe()
	s.repo.On("FindByID", mock.Anything, want.ID).Return(want, nil).Once()

	// Act
	got, err := s.service.GetRecipe(context.Background(), want.ID)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), want, got)
	s.repo.AssertExpectations(s.T())
}

func (s *CatalogServiceTestSuite) TestGetRecipe_NotFound() {
	s.repo.On("FindByID", mock.Anything, "missing").Return(nil, recipe.ErrRecipeNotFound).Once()

	_, err := s.service.GetRecipe(context.Background(), "missing")

	assert.True(s.T(), apperrors.Is(err, apperrors.CodeRecipeNotFound))
}

func (s *CatalogServiceTestSuite) TestGetRecipe_StoreFailure() {
	s.repo.On("FindByID", mock.Anything, "r-1").Return(nil, errors.New("connection reset")).Once()

	_, err := s.service.GetRecipe(context.Background(), "r-1")

	assert.True(s.T(), apperrors.Is(err, apperrors.CodeDatabaseError))
}

func (s *CatalogServiceTestSuite) TestSaveRecipe_Valid() {
	r := s.factory.Recipe()
	s.repo.On("Save", mock.Anything, r).Return(nil).Once()

	require.NoError(s.T(), s.service.SaveRecipe(context.Background(), r))
	s.repo.AssertExpectations(s.T())
}

func (s *CatalogServiceTestSuite) TestSaveRecipe_InvalidIsNotStored() {
	r := s.factory.Recipe()
	r.Ingredients = nil

	err := s.service.SaveRecipe(context.Background(), r)

	assert.True(s.T(), apperrors.Is(err, apperrors.CodeInvalidInput))
	s.repo.AssertNotCalled(s.T(), "Save", mock.Anything, mock.Anything)
}

func (s *CatalogServiceTestSuite) TestSaveRecipe_StoreFailure() {
	r := s.factory.Recipe()
	s.repo.On("Save", mock.Anything, r).Return(errors.New("disk full")).Once()

	err := s.service.SaveRecipe(context.Background(), r)

	assert.True(s.T(), apperrors.Is(err, apperrors.CodeDatabaseError))
}

func TestCatalogServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogServiceTestSuite))
}
