package modification

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
	"github.com/alchemorsel/recipemod/internal/ports/outbound"
	apperrors "github.com/alchemorsel/recipemod/pkg/errors"
)

const quotaType = "daily modification"

// Outcome is the result of a quota check.
type Outcome struct {
	Allowed   bool
	Used      int
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// QuotaGuard enforces a per-user limit of modifications per UTC calendar day.
// Atomicity per user is delegated to the UsageStore.
type QuotaGuard struct {
	store        outbound.UsageStore
	now          func() time.Time
	logger       *zap.Logger
	recorder     Recorder
	reservations metric.Int64Counter
}

// NewQuotaGuard creates a guard over store.
func NewQuotaGuard(store outbound.UsageStore, logger *zap.Logger, recorder Recorder) *QuotaGuard {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	namedLogger := logger.Named("quota-guard")

	counter, err := otel.Meter("github.com/alchemorsel/recipemod/quota").Int64Counter(
		"recipemod.quota.reservations",
		metric.WithDescription("Quota reservations by outcome"),
	)
	if err != nil {
		namedLogger.Warn("Failed to create reservation counter", zap.Error(err))
	}

	return &QuotaGuard{
		store:        store,
		now:          time.Now,
		logger:       namedLogger,
		recorder:     recorder,
		reservations: counter,
	}
}

// CheckAndReserve consumes one unit of userID's quota for today if fewer than
// limit have been used. A denial returns the outcome together with a
// QuotaExceeded error.
func (g *QuotaGuard) CheckAndReserve(ctx context.Context, userID string, limit int) (Outcome, error) {
	if strings.TrimSpace(userID) == "" {
		return Outcome{}, apperrors.NewInvalidInputError("user id is required")
	}
	if limit < 0 {
		limit = 0
	}

	now := g.now()
	count, allowed, err := g.store.Reserve(ctx, userID, modification.Day(now), limit)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, apperrors.NewCancelledError(ctx.Err())
		}
		g.logger.Error("Quota reservation failed", zap.String("user_id", userID), zap.Error(err))
		return Outcome{}, apperrors.NewAppError(apperrors.CodeServiceUnavailable, "Quota service unavailable", "").WithCause(err)
	}

	outcome := newOutcome(allowed, count, limit, now)
	g.recorder.QuotaChecked(allowed)
	if g.reservations != nil {
		g.reservations.Add(ctx, 1, metric.WithAttributes(attribute.Bool("allowed", allowed)))
	}

	if !allowed {
		g.logger.Warn("Daily modification quota exceeded",
			zap.String("user_id", userID),
			zap.Int("used", count),
			zap.Int("limit", limit),
		)
		return outcome, apperrors.NewQuotaExceededError(quotaType, count, limit, outcome.ResetAt, now)
	}

	return outcome, nil
}

// Current reports today's usage for userID without reserving anything.
func (g *QuotaGuard) Current(ctx context.Context, userID string, limit int) (Outcome, error) {
	if strings.TrimSpace(userID) == "" {
		return Outcome{}, apperrors.NewInvalidInputError("user id is required")
	}

	now := g.now()
	count, err := g.store.Count(ctx, userID, modification.Day(now))
	if err != nil {
		return Outcome{}, apperrors.NewAppError(apperrors.CodeServiceUnavailable, "Quota service unavailable", "").WithCause(err)
	}
	return newOutcome(count < limit, count, limit, now), nil
}

func newOutcome(allowed bool, used, limit int, now time.Time) Outcome {
	usage := modification.NewUsage(used, limit)
	return Outcome{
		Allowed:   allowed,
		Used:      usage.Used,
		Remaining: usage.Remaining,
		Limit:     limit,
		ResetAt:   modification.NextReset(now),
	}
}
