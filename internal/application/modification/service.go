// Package modification implements AI recipe modification: cache key
// derivation, prompt rendering, strict parsing of model output, a
// single-flight response cache and a per-user daily quota, composed by Service.
package modification

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
	"github.com/alchemorsel/recipemod/internal/domain/recipe"
	"github.com/alchemorsel/recipemod/internal/ports/inbound"
	"github.com/alchemorsel/recipemod/internal/ports/outbound"
	apperrors "github.com/alchemorsel/recipemod/pkg/errors"
)

// LimitProvider supplies the current daily quota. It is read on every request
// so the limit can change at runtime.
type LimitProvider interface {
	DailyLimit() int
}

// FixedLimit is a LimitProvider that never changes.
type FixedLimit int

func (l FixedLimit) DailyLimit() int { return int(l) }

// Service implements inbound.ModificationService.
type Service struct {
	recipes  outbound.RecipeRepository
	gateway  outbound.ModelGateway
	cache    *ResponseCache
	quota    *QuotaGuard
	limits   LimitProvider
	logger   *zap.Logger
	recorder Recorder
	tracer   trace.Tracer
}

var _ inbound.ModificationService = (*Service)(nil)

// NewService wires the modification pipeline.
func NewService(
	recipes outbound.RecipeRepository,
	gateway outbound.ModelGateway,
	cache *ResponseCache,
	quota *QuotaGuard,
	limits LimitProvider,
	logger *zap.Logger,
	recorder Recorder,
) *Service {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Service{
		recipes:  recipes,
		gateway:  gateway,
		cache:    cache,
		quota:    quota,
		limits:   limits,
		logger:   logger.Named("modification-service"),
		recorder: recorder,
		tracer:   otel.Tracer("github.com/alchemorsel/recipemod/modification"),
	}
}

// ModifyRecipe adapts a stored recipe to prefs on behalf of userID.
//
// The daily quota is charged when the attempt is admitted, before the cache
// is consulted, and is not refunded if the model call or parsing later fails.
// Requests rejected as invalid input or for an unknown recipe are not charged.
// Nothing is retried here.
func (s *Service) ModifyRecipe(ctx context.Context, recipeID, userID string, prefs modification.Preferences) (*inbound.ModificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "ModificationService.ModifyRecipe",
		trace.WithAttributes(
			attribute.String("recipe.id", recipeID),
			attribute.String("diet.type", prefs.DietType),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := s.modify(ctx, recipeID, userID, prefs)
	duration := time.Since(start)

	if err != nil {
		code := apperrors.GetCode(err)
		s.recorder.ModificationFinished(string(code), duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(code))
		s.logFailure(recipeID, userID, code, duration, err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("cache.hit", result.Cached))
	s.recorder.ModificationFinished("success", duration)
	s.logger.Info("Recipe modified",
		zap.String("recipe_id", recipeID),
		zap.String("user_id", userID),
		zap.Bool("cached", result.Cached),
		zap.Int("used", result.Usage.Used),
		zap.Int("limit", result.Usage.Limit),
		zap.Duration("duration", duration),
	)
	return result, nil
}

func (s *Service) modify(ctx context.Context, recipeID, userID string, prefs modification.Preferences) (*inbound.ModificationResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.NewInvalidInputError("user id is required")
	}
	if strings.TrimSpace(recipeID) == "" {
		return nil, apperrors.NewInvalidInputError("recipe id is required")
	}
	if err := prefs.Validate(); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error()).WithCause(err)
	}

	original, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if err := original.Validate(); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error()).WithCause(err)
	}

	limit := s.limits.DailyLimit()
	outcome, err := s.quota.CheckAndReserve(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	key := ComputeKey(original.ID, prefs)
	modified, hit, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*modification.ModifiedRecipe, error) {
		return s.compute(ctx, original, prefs)
	})
	if err != nil {
		return nil, err
	}

	return &inbound.ModificationResult{
		ModifiedRecipe: modified,
		Usage:          modification.NewUsage(outcome.Used, limit),
		Cached:         hit,
	}, nil
}

// GetUsage reports today's quota consumption for userID.
func (s *Service) GetUsage(ctx context.Context, userID string) (*inbound.UsageStatus, error) {
	outcome, err := s.quota.Current(ctx, userID, s.limits.DailyLimit())
	if err != nil {
		return nil, err
	}
	return &inbound.UsageStatus{
		Usage:    modification.NewUsage(outcome.Used, outcome.Limit),
		ResetsAt: outcome.ResetAt.Format(time.RFC3339),
	}, nil
}

func (s *Service) compute(ctx context.Context, original *recipe.Recipe, prefs modification.Preferences) (*modification.ModifiedRecipe, error) {
	prompt, err := BuildPrompt(original, &prefs)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "ModelGateway.Invoke",
		trace.WithAttributes(attribute.String("ai.provider", s.gateway.Name())),
	)
	started := time.Now()
	raw, err := s.gateway.Invoke(ctx, prompt)
	span.End()
	if err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			if ctx.Err() != nil {
				appErr = apperrors.NewCancelledError(err)
			} else {
				appErr = apperrors.NewUpstreamError(s.gateway.Name(), err)
			}
		}
		s.recorder.ModelInvoked(s.gateway.Name(), string(appErr.Code), time.Since(started))
		return nil, appErr
	}
	s.recorder.ModelInvoked(s.gateway.Name(), "success", time.Since(started))

	return ParseResponse(raw, original)
}

func (s *Service) findRecipe(ctx context.Context, recipeID string) (*recipe.Recipe, error) {
	found, err := s.recipes.FindByID(ctx, recipeID)
	switch {
	case errors.Is(err, recipe.ErrRecipeNotFound):
		return nil, apperrors.NewRecipeNotFoundError(recipeID)
	case err != nil:
		if ctx.Err() != nil {
			return nil, apperrors.NewCancelledError(ctx.Err())
		}
		return nil, apperrors.NewDatabaseError("load recipe", err)
	case found == nil:
		return nil, apperrors.NewRecipeNotFoundError(recipeID)
	}
	return found, nil
}

func (s *Service) logFailure(recipeID, userID string, code apperrors.ErrorCode, duration time.Duration, err error) {
	fields := []zap.Field{
		zap.String("recipe_id", recipeID),
		zap.String("user_id", userID),
		zap.String("code", string(code)),
		zap.Duration("duration", duration),
		zap.Error(err),
	}
	switch code {
	case apperrors.CodeQuotaExceeded, apperrors.CodeInvalidInput, apperrors.CodeRecipeNotFound, apperrors.CodeCancelled:
		s.logger.Info("Recipe modification rejected", fields...)
	default:
		s.logger.Error("Recipe modification failed", fields...)
	}
}
