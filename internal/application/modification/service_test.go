package modification

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
	"github.com/alchemorsel/recipemod/internal/domain/recipe"
	apperrors "github.com/alchemorsel/recipemod/pkg/errors"
	"github.com/alchemorsel/recipemod/test/testutils"
)

type mutableLimit struct {
	mu    sync.Mutex
	value int
}

func (l *mutableLimit) DailyLimit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

func (l *mutableLimit) set(v int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = v
}

// ServiceTestSuite exercises the full pipeline against in-memory fakes and a mocked model.
type ServiceTestSuite struct {
	suite.Suite
	gateway *testutils.MockModelGateway
	recipes *testutils.StaticRecipeRepository
	entries *fakeEntryStore
	usage   *fakeUsageStore
	clock   *manualClock
	limit   *mutableLimit
	service *Service
	recipe  *recipe.Recipe
	prefs   modification.Preferences
}

func (s *ServiceTestSuite) SetupTest() {
	logger := zaptest.NewLogger(s.T())

	s.recipe = originalWith(50, 1200)
	s.prefs = modification.Preferences{DietType: "keto", Allergens: []string{"nuts"}}
	s.gateway = new(testutils.MockModelGateway)
	s.recipes = testutils.NewStaticRecipeRepository(s.recipe)
	s.entries = newFakeEntryStore()
	s.usage = newFakeUsageStore()
	s.clock = newManualClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	s.limit = &mutableLimit{value: 5}

	cache := NewResponseCache(s.entries, DefaultCacheTTL, logger, nil)
	cache.now = s.clock.Now
	quota := NewQuotaGuard(s.usage, logger, nil)
	quota.now = s.clock.Now

	s.service = NewService(s.recipes, s.gateway, cache, quota, s.limit, logger, nil)
}

func (s *ServiceTestSuite) usedToday(userID string) int {
	count, _ := s.usage.Count(context.Background(), userID, modification.Day(s.clock.Now()))
	return count
}

func (s *ServiceTestSuite) TestModifyRecipe_Success() {
	// Arrange
	prompt, err := BuildPrompt(s.recipe, &s.prefs)
	require.NoError(s.T(), err)
	s.gateway.On("Invoke", mock.Anything, prompt).
		Return(testutils.ModelResponseJSON("Keto Pancakes", 10, 900), nil).Once()

	// Act
	result, err := s.service.ModifyRecipe(context.Background(), s.recipe.ID, "u-1", s.prefs)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Keto Pancakes", result.ModifiedRecipe.Title)
	assert.Equal(s.T(), 80, result.ModifiedRecipe.NutritionalValues.CarbsReduction)
	assert.Equal(s.T(), modification.Usage{Used: 1, Limit: 5, Remaining: 4}, result.Usage)
	assert.False(s.T(), result.Cached)
	assert.Equal(s.T(), 1, s.entries.len())
	s.gateway.AssertExpectations(s.T())
}

func (s *ServiceTestSuite) TestModifyRecipe_CacheIdempotence() {
	s.gateway.On("Invoke", mock.Anything, mock.AnythingOfType("string")).
		Return(testutils.ModelResponseJSON("Keto Pancakes", 10, 900), nil).Once()
	ctx := context.Background()

	first, err := s.service.ModifyRecipe(ctx, s.recipe.ID, "u-1", s.prefs)
	require.NoError(s.T(), err)

	equivalent := modification.Preferences{DietType: "KETO", Allergens: []string{"Nuts"}}
	second, err := s.service.ModifyRecipe(ctx, s.recipe.ID, "u-1", equivalent)
	require.NoError(s.T(), err)

	assert.True(s.T(), second.Cached)
	assert.Equal(s.T(), first.ModifiedRecipe, second.ModifiedRecipe)
	s.gateway.AssertNumberOfCalls(s.T(), "Invoke", 1)

	// Attempts are charged even when served from the cache.
	assert.Equal(s.T(), 2, second.Usage.Used)
}

func (s *ServiceTestSuite) TestModifyRecipe_SingleFlight() {
	s.limit.set(100)
	s.gateway.On("Invoke", mock.Anything, mock.AnythingOfType("string")).
		After(100*time.Millisecond).
		Return(testutils.ModelResponseJSON("Shared", 10, 900), nil)

	const callers = 20
	var wg sync.WaitGroup
	titles := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.service.ModifyRecipe(context.Background(), s.recipe.ID, "u-1", s.prefs)
			errs[i] = err
			if err == nil {
				titles[i] = res.ModifiedRecipe.Title
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(s.T(), errs[i])
		assert.Equal(s.T(), "Shared", titles[i])
	}
	s.gateway.AssertNumberOfCalls(s.T(), "Invoke", 1)
	assert.Equal(s.T(), callers, s.usedToday("u-1"))
}

func (s *ServiceTestSuite) TestModifyRecipe_TTLExpiry() {
	s.gateway.On("Invoke", mock.Anything, mock.AnythingOfType("string")).
		Return(testutils.ModelResponseJSON("Keto Pancakes", 10, 900), nil)
	ctx := context.Background()

	_, err := s.service.ModifyRecipe(ctx, s.recipe.ID, "u-1", s.prefs)
	require.NoError(s.T(), err)

	s.clock.Advance(DefaultCacheTTL + time.Second)
	result, err := s.service.ModifyRecipe(ctx, s.recipe.ID, "u-1", s.prefs)
	require.NoError(s.T(), err)

	assert.False(s.T(), result.Cached)
	s.gateway.AssertNumberOfCalls(s.T(), "Invoke", 2)
}

func (s *ServiceTestSuite) TestModifyRecipe_QuotaBoundary() {
	s.limit.set(2)
	s.gateway.On("Invoke", mock.Anything, mock.AnythingOfType("string")).
		Return(testutils.ModelResponseJSON("Keto Pancakes", 10, 900), nil)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		result, err := s.service.ModifyRecipe(ctx, s.recipe.ID, "u-1", s.prefs)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), i, result.Usage.Used)
	}

	_, err := s.service.ModifyRecipe(ctx, s.recipe.ID, "u-1", s.prefs)
	assert.True(s.T(), apperrors.Is(err, apperrors.CodeQuotaExceeded))

	s.clock.Advance(24 * time.Hour)
	result, err := s.service.ModifyRecipe(ctx, s.recipe.ID, "u-1", s.prefs)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), modification.Usage{Used: 1, Limit: 2, Remaining: 1}, result.Usage)
}

func (s *ServiceTestSuite) TestModifyRecipe_QuotaDenialSkipsModel() {
	s.limit.set(0)

	_, err := s.service.ModifyRecipe(context.Background(), s.recipe.ID, "u-1", s.prefs)

	assert.True(s.T(), apperrors.Is(err, apperrors.CodeQuotaExceeded))
	s.gateway.AssertNotCalled(s.T(), "Invoke", mock.Anything, mock.Anything)
	assert.Equal(s.T(), 0, s.entries.len())
}

func (s *ServiceTestSuite) TestModifyRecipe_LimitChangesAtRuntime() {
	s.limit.set(1)
	s.gateway.On("Invoke", mock.Anything, mock.AnythingOfType("string")).
		Return(testutils.ModelResponseJSON("Keto Pancakes", 10, 900), nil)
	ctx := context.Background()

	_, err := s.service.ModifyRecipe(ctx, s.recipe.ID, "u-1", s.prefs)
	require.NoError(s.T(), err)
	_, err = s.service.ModifyRecipe(ctx, s.recipe.ID, "u-1", s.prefs)
	require.Error(s.T(), err)

	s.limit.set(3)
	result, err := s.service.ModifyRecipe(ctx, s.recipe.ID, "u-1", s.prefs)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), modification.Usage{Used: 2, Limit: 3, Remaining: 1}, result.Usage)
}

func (s *ServiceTestSuite) TestModifyRecipe_MalformedResponse() {
	s.gateway.On("Invoke", mock.Anything, mock.AnythingOfType("string")).
		Return("I'm sorry, I can't help with that.", nil).Once()

	_, err := s.service.ModifyRecipe(context.Background(), s.recipe.ID, "u-1", s.prefs)

	assert.True(s.T(), apperrors.Is(err, apperrors.CodeMalformedResponse))
	assert.Equal(s.T(), 0, s.entries.len(), "malformed output is never cached")
	assert.Equal(s.T(), 1, s.usedToday("u-1"), "the attempt is still charged")
}

func (s *ServiceTestSuite) TestModifyRecipe_UpstreamFailures() {
	s.Run("PlainError_ShouldBecomeUpstream", func() {
		s.SetupTest()
		s.gateway.On("Invoke", mock.Anything, mock.AnythingOfType("string")).
			Return("", errors.New("connection refused")).Once()

		_, err := s.service.ModifyRecipe(context.Background(), s.recipe.ID, "u-1", s.prefs)

		assert.True(s.T(), apperrors.Is(err, apperrors.CodeUpstream))
		assert.Equal(s.T(), 0, s.entries.len())
	})

	s.Run("TypedTimeout_ShouldPassThrough", func() {
		s.SetupTest()
		s.gateway.On("Invoke", mock.Anything, mock.AnythingOfType("string")).
			Return("", apperrors.NewUpstreamTimeoutError("mock", time.Second, context.DeadlineExceeded)).Once()

		_, err := s.service.ModifyRecipe(context.Background(), s.recipe.ID, "u-1", s.prefs)

		assert.True(s.T(), apperrors.Is(err, apperrors.CodeUpstreamTimeout))
	})

	s.Run("FailureThenSuccess_ShouldNotRetryInternally", func() {
		s.SetupTest()
		s.gateway.On("Invoke", mock.Anything, mock.AnythingOfType("string")).
			Return("", errors.New("503")).Once()
		s.gateway.On("Invoke", mock.Anything, mock.AnythingOfType("string")).
			Return(testutils.ModelResponseJSON("Later", 10, 900), nil).Once()

		_, err := s.service.ModifyRecipe(context.Background(), s.recipe.ID, "u-1", s.prefs)
		require.Error(s.T(), err)
		s.gateway.AssertNumberOfCalls(s.T(), "Invoke", 1)

		result, err := s.service.ModifyRecipe(context.Background(), s.recipe.ID, "u-1", s.prefs)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), "Later", result.ModifiedRecipe.Title)
	})
}

func (s *ServiceTestSuite) TestModifyRecipe_Cancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	s.gateway.On("Invoke", mock.Anything, mock.AnythingOfType("string")).
		Run(func(mock.Arguments) { cancel() }).
		Return("", context.Canceled).Once()

	_, err := s.service.ModifyRecipe(ctx, s.recipe.ID, "u-1", s.prefs)

	assert.True(s.T(), apperrors.Is(err, apperrors.CodeCancelled), "got %v", err)
	assert.Equal(s.T(), 0, s.entries.len())
}

func (s *ServiceTestSuite) TestModifyRecipe_RejectedBeforeCharging() {
	s.Run("UnknownRecipe_ShouldReturnNotFound", func() {
		_, err := s.service.ModifyRecipe(context.Background(), "missing", "u-1", s.prefs)
		assert.True(s.T(), apperrors.Is(err, apperrors.CodeRecipeNotFound))
	})

	s.Run("UnknownDiet_ShouldReturnInvalidInput", func() {
		_, err := s.service.ModifyRecipe(context.Background(), s.recipe.ID, "u-1", modification.Preferences{DietType: "sunlight"})
		assert.True(s.T(), apperrors.Is(err, apperrors.CodeInvalidInput))
	})

	s.Run("NonFiniteMaxCarbs_ShouldReturnInvalidInput", func() {
		for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			carbs := v
			prefs := modification.Preferences{DietType: "keto", MaxCarbs: &carbs}
			_, err := s.service.ModifyRecipe(context.Background(), s.recipe.ID, "u-1", prefs)
			assert.True(s.T(), apperrors.Is(err, apperrors.CodeInvalidInput), "maxCarbs %v", v)
		}
	})

	s.Run("MissingUser_ShouldReturnInvalidInput", func() {
		_, err := s.service.ModifyRecipe(context.Background(), s.recipe.ID, "", s.prefs)
		assert.True(s.T(), apperrors.Is(err, apperrors.CodeInvalidInput))
	})

	assert.Equal(s.T(), 0, s.usedToday("u-1"))
	s.gateway.AssertNotCalled(s.T(), "Invoke", mock.Anything, mock.Anything)
}

func (s *ServiceTestSuite) TestModifyRecipe_RecipeWithoutIngredients() {
	broken := &recipe.Recipe{ID: "empty", Title: "Air"}
	require.NoError(s.T(), s.recipes.Save(context.Background(), broken))

	_, err := s.service.ModifyRecipe(context.Background(), "empty", "u-1", s.prefs)

	assert.True(s.T(), apperrors.Is(err, apperrors.CodeInvalidInput))
	assert.Equal(s.T(), 0, s.usedToday("u-1"), "an unusable recipe is not charged")
	s.gateway.AssertNotCalled(s.T(), "Invoke", mock.Anything, mock.Anything)
}

func (s *ServiceTestSuite) TestGetUsage() {
	s.gateway.On("Invoke", mock.Anything, mock.AnythingOfType("string")).
		Return(testutils.ModelResponseJSON("Keto Pancakes", 10, 900), nil)
	_, err := s.service.ModifyRecipe(context.Background(), s.recipe.ID, "u-1", s.prefs)
	require.NoError(s.T(), err)

	status, err := s.service.GetUsage(context.Background(), "u-1")

	require.NoError(s.T(), err)
	assert.Equal(s.T(), modification.Usage{Used: 1, Limit: 5, Remaining: 4}, status.Usage)
	assert.Equal(s.T(), "2024-05-02T00:00:00Z", status.ResetsAt)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
