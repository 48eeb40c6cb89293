// Package response renders JSON bodies and the error envelope shared by
// handlers and middleware.
package response

import (
	"encoding/json"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/alchemorsel/recipemod/pkg/errors"
)

// JSON writes data with the given status
func JSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// Error writes err as an error envelope. Errors that are not AppErrors are
// reported as internal errors without their text.
func Error(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	appErr := apperrors.Wrap(err, "")
	requestID := chimiddleware.GetReqID(r.Context())
	status := appErr.StatusCode()

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("request_id", requestID),
			zap.String("code", string(appErr.Code)),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	if retry, ok := appErr.Metadata["reset_in_seconds"].(int); ok && status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", strconv.Itoa(retry))
	}

	JSON(w, logger, status, apperrors.ToErrorResponse(appErr, requestID))
}
