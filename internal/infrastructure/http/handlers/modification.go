// Package handlers provides the JSON API handlers
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/alchemorsel/recipemod/internal/domain/modification"
	"github.com/alchemorsel/recipemod/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/recipemod/internal/infrastructure/http/response"
	"github.com/alchemorsel/recipemod/internal/ports/inbound"
	apperrors "github.com/alchemorsel/recipemod/pkg/errors"
)

var validate = validator.New()

// ModificationRequest is the body of POST /api/v1/recipes/{id}/modifications
type ModificationRequest struct {
	DietType         string   `json:"dietType" validate:"max=32"`
	MaxCarbs         *float64 `json:"maxCarbs,omitempty" validate:"omitempty,gte=0"`
	ExcludedProducts []string `json:"excludedProducts,omitempty" validate:"max=50,dive,max=100"`
	Allergens        []string `json:"allergens,omitempty" validate:"max=50,dive,max=100"`
}

// Preferences converts the request into domain preferences
func (r ModificationRequest) Preferences() modification.Preferences {
	return modification.Preferences{
		DietType:         r.DietType,
		MaxCarbs:         r.MaxCarbs,
		ExcludedProducts: r.ExcludedProducts,
		Allergens:        r.Allergens,
	}
}

// ModificationHandlers serves modification and usage endpoints
type ModificationHandlers struct {
	service inbound.ModificationService
	logger  *zap.Logger
}

// NewModificationHandlers creates new modification handlers
func NewModificationHandlers(service inbound.ModificationService, logger *zap.Logger) *ModificationHandlers {
	return &ModificationHandlers{
		service: service,
		logger:  logger.Named("modification-api"),
	}
}

// Modify handles POST /api/v1/recipes/{id}/modifications
func (h *ModificationHandlers) Modify(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, h.logger, apperrors.NewUnauthorizedError(""))
		return
	}

	var req ModificationRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	result, err := h.service.ModifyRecipe(r.Context(), chi.URLParam(r, "id"), userID, req.Preferences())
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.JSON(w, h.logger, http.StatusOK, result)
}

// Usage handles GET /api/v1/usage
func (h *ModificationHandlers) Usage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, h.logger, apperrors.NewUnauthorizedError(""))
		return
	}

	status, err := h.service.GetUsage(r.Context(), userID)
	if err != nil {
		response.Error(w, r, h.logger, err)
		return
	}

	response.JSON(w, h.logger, http.StatusOK, status)
}

// decodeJSON decodes the body and validates it
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := decodeBody(r, dst); err != nil {
		return err
	}
	if err := validate.Struct(dst); err != nil {
		return apperrors.NewInvalidInputError(describeValidation(err)).WithCause(err)
	}
	return nil
}

// decodeBody strictly decodes a single JSON document from the body
func decodeBody(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			return apperrors.NewBadRequestError("Request body too large")
		case errors.Is(err, io.EOF):
			return apperrors.NewBadRequestError("Request body is required")
		default:
			return apperrors.NewAppError(apperrors.CodeBadRequest, "Invalid JSON body", err.Error())
		}
	}
	if decoder.More() {
		return apperrors.NewBadRequestError("Request body must contain a single JSON object")
	}
	return nil
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Namespace()+" failed "+fe.Tag())
	}
	return strings.Join(msgs, "; ")
}
