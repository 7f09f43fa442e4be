package response

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/aaravmahajanofficial/solar-storefront/internal/errors"
	"github.com/go-playground/validator/v10"
)

type APIResponse struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

type ErrorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func WriteJson(w http.ResponseWriter, statusCode int, data any) {

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", slog.Int("status", statusCode), slog.String("error", err.Error()))
	}
}

func Success(w http.ResponseWriter, statusCode int, data any) {
	WriteJson(w, statusCode, APIResponse{Success: true, Data: data})
}

// Error renders AppErrors with their own status; anything else is a 500 whose
// cause stays out of the body.
func Error(w http.ResponseWriter, err error) {

	appErr, ok := errors.IsAppError(err)
	if !ok {
		WriteJson(w, http.StatusInternalServerError, APIResponse{
			Error: &ErrorResponse{Code: errors.ErrCodeInternal, Message: "An unexpected error occurred"},
		})
		return
	}

	body := &ErrorResponse{Code: appErr.Code, Message: appErr.Message}
	if appErr.Detail != "" {
		body.Details = []string{appErr.Detail}
	}

	WriteJson(w, appErr.StatusCode, APIResponse{Error: body})
}

func ValidationError(w http.ResponseWriter, errs validator.ValidationErrors) {
	WriteJson(w, http.StatusBadRequest, APIResponse{
		Error: &ErrorResponse{
			Code:    errors.ErrCodeValidation,
			Message: "Validation failed",
			Details: ValidationMessages(errs),
		},
	})
}

// ValidationMessages renders one readable line per failed field.
func ValidationMessages(errs validator.ValidationErrors) []string {

	messages := make([]string, 0, len(errs))

	for _, fe := range errs {
		messages = append(messages, fieldMessage(fe))
	}

	return messages
}

func fieldMessage(fe validator.FieldError) string {

	field, param := fe.Field(), fe.Param()

	// length rules read differently for text and for numbers
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field %s is required", field)
	case "email":
		return fmt.Sprintf("Field %s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("Field %s must be at least %s%s", field, param, unit)
	case "max":
		return fmt.Sprintf("Field %s must be at most %s%s", field, param, unit)
	case "len":
		return fmt.Sprintf("Field %s must be exactly %s%s", field, param, unit)
	case "numeric":
		return fmt.Sprintf("Field %s must contain only digits", field)
	case "gt":
		return fmt.Sprintf("Field %s must be greater than %s", field, param)
	default:
		return fmt.Sprintf("Field %s is invalid: %s=%s", field, fe.Tag(), param)
	}
}
