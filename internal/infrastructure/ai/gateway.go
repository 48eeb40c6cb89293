// Package ai holds what the model gateways share: configuration, the resty
// client they are built on and the mapping of transport failures to
// application errors.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-resty/resty/v2"

	apperrors "github.com/alchemorsel/recipemod/pkg/errors"
)

// Provider names accepted by ai.provider.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// DefaultSystemPrompt is sent ahead of every modification prompt.
const DefaultSystemPrompt = "You are a professional chef and nutritionist. You answer with a single JSON object and nothing else."

// Config configures a model gateway.
type Config struct {
	Provider     string        `mapstructure:"provider"`
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Temperature  float64       `mapstructure:"temperature"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	JSONMode     bool          `mapstructure:"json_mode"`
	SystemPrompt string        `mapstructure:"system_prompt"`
}

// NewRestyClient builds the HTTP client used by every gateway. Retries are
// disabled: one modification attempt is exactly one upstream request.
// Deadlines come from the request context, see Deadline.
func NewRestyClient(cfg Config) *resty.Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return client
}

// Deadline derives the context for a single upstream call.
func Deadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// StatusError is returned for non-2xx upstream replies.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

// NewStatusError keeps at most 512 bytes of the upstream body for logs.
func NewStatusError(status int, body []byte) *StatusError {
	const max = 512
	if len(body) > max {
		body = body[:max]
	}
	return &StatusError{Status: status, Body: string(body)}
}

// ClassifyError maps a failed call to Cancelled when the caller's context
// ended, UpstreamTimeout when the per-call deadline fired and Upstream
// otherwise. AppErrors pass through unchanged.
func ClassifyError(parent, call context.Context, provider string, timeout time.Duration, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if parent.Err() != nil {
		return apperrors.NewCancelledError(err)
	}
	if errors.Is(call.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewUpstreamTimeoutError(provider, timeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewUpstreamTimeoutError(provider, timeout, err)
	}
	return apperrors.NewUpstreamError(provider, err)
}
