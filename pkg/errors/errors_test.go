package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  *AppError
		want int
	}{
		{"invalid input", NewInvalidInputError("recipe has no ingredients"), http.StatusBadRequest},
		{"not found", NewRecipeNotFoundError("r-1"), http.StatusNotFound},
		{"upstream", NewUpstreamError("openai", fmt.Errorf("dial tcp: refused")), http.StatusBadGateway},
		{"upstream timeout", NewUpstreamTimeoutError("openai", time.Second, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"malformed", NewMalformedResponseError("missing title", nil), http.StatusBadGateway},
		{"cancelled", NewCancelledError(context.Canceled), StatusClientClosedRequest},
		{"unknown route", NewNotFoundError("route"), http.StatusNotFound},
		{"wrong method", NewMethodNotAllowedError(http.MethodDelete), http.StatusMethodNotAllowed},
		{"internal", NewInternalError(""), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.StatusCode())
		})
	}
}

func TestQuotaExceededMetadata(t *testing.T) {
	now := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)
	resetAt := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	err := NewQuotaExceededError("daily modification", 5, 5, resetAt, now)

	assert.Equal(t, http.StatusTooManyRequests, err.StatusCode())
	assert.Equal(t, 5, err.Metadata["used"])
	assert.Equal(t, 5, err.Metadata["limit"])
	assert.Equal(t, 6*60*60, err.Metadata["reset_in_seconds"])
	assert.Equal(t, "2024-03-11T00:00:00Z", err.Metadata["resets_at"])
}

func TestIsFollowsWrapping(t *testing.T) {
	base := NewUpstreamError("ollama", fmt.Errorf("connection reset"))
	wrapped := fmt.Errorf("compute modification: %w", base)

	assert.True(t, Is(wrapped, CodeUpstream))
	assert.False(t, Is(wrapped, CodeMalformedResponse))
	assert.Equal(t, CodeUpstream, GetCode(wrapped))
	assert.Equal(t, CodeInternal, GetCode(fmt.Errorf("plain")))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	appErr := NewInvalidInputError("bad")
	assert.Same(t, appErr, Wrap(fmt.Errorf("ctx: %w", appErr), "ignored"))

	wrapped := Wrap(fmt.Errorf("disk full"), "save failed")
	require.NotNil(t, wrapped)
	assert.Equal(t, CodeInternal, wrapped.Code)
	assert.EqualError(t, wrapped.Unwrap(), "disk full")
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(NewRecipeNotFoundError("r-9"), "req-1")

	assert.Equal(t, CodeRecipeNotFound, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Equal(t, "r-9", resp.Error.Metadata["recipe_id"])
	assert.NotEmpty(t, resp.Error.Timestamp)
}
