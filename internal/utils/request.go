package utils

import (
	stdErrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aaravmahajanofficial/solar-storefront/internal/errors"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

func ParseAndValidate(r *http.Request, w http.ResponseWriter, dest any, validate *validator.Validate) bool {

	logger := slog.Default().With(slog.String("endpoint", r.URL.Path))

	if err := DecodeJSONBody(r, dest); err != nil {
		logger.Warn("Invalid request", slog.String("error", err.Error()))
		response.Error(w, errors.BadRequestError("Invalid request body").WithDetail(err.Error()))
		return false
	}

	if err := ValidateStruct(validate, dest); err != nil {
		logger.Warn("Validation failed", slog.String("error", err.Error()))

		var validationErrs validator.ValidationErrors
		if stdErrors.As(err, &validationErrs) {
			response.ValidationError(w, validationErrs)
			return false
		}

		response.Error(w, errors.ValidationError("Invalid input data"))
		return false
	}

	return true

}

// ParseID reads a UUID path parameter. Failures are 400s.
func ParseID(r *http.Request, name string) (uuid.UUID, error) {

	raw := r.PathValue(name)
	if raw == "" {
		return uuid.Nil, errors.BadRequestError(fmt.Sprintf("Missing %s", name))
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.BadRequestError(fmt.Sprintf("Invalid %s", name)).WithError(err)
	}

	return id, nil
}

// ParsePage reads page and pageSize query parameters, falling back to 1 and 10.
func ParsePage(r *http.Request) (int, int) {

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	return page, pageSize
}
