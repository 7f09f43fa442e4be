package utils

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes caps request bodies; checkout and admin payloads are far smaller.
const maxBodyBytes = 1 << 20

var ErrEmptyBody = stdErrors.New("request body cannot be empty")

// DecodeJSONBody reads a single JSON document from the request body into dest.
func DecodeJSONBody(r *http.Request, dest any) error {

	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))

	if err := decoder.Decode(dest); err != nil {
		if stdErrors.Is(err, io.EOF) {
			return ErrEmptyBody
		}

		return fmt.Errorf("invalid JSON format: %w", err)
	}

	return nil
}

// ValidateStruct returns validator.ValidationErrors unchanged so callers can
// render them field by field.
func ValidateStruct(validate *validator.Validate, data any) error {

	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if stdErrors.As(err, &validationErrs) {
		return validationErrs
	}

	return fmt.Errorf("unexpected validation error: %w", err)
}
