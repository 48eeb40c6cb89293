package ai

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pinger is implemented by gateways that can probe their endpoint without
// spending tokens.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// HealthChecker reports whether the configured model endpoint is reachable.
type HealthChecker struct {
	pinger  Pinger
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthChecker creates a checker with a short probe timeout.
func NewHealthChecker(pinger Pinger, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		pinger:  pinger,
		timeout: 3 * time.Second,
		logger:  logger.Named("ai-health"),
	}
}

// Name identifies the checker in health reports.
func (h *HealthChecker) Name() string {
	return "ai:" + h.pinger.Name()
}

// Check probes the endpoint once.
func (h *HealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		h.logger.Warn("Model endpoint health check failed",
			zap.String("provider", h.pinger.Name()),
			zap.Error(err))
		return err
	}
	return nil
}
