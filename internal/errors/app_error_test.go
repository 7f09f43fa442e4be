package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsCarryStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"validation", ValidationError("bad"), ErrCodeValidation, http.StatusBadRequest},
		{"not found", NotFoundError("missing"), ErrCodeNotFound, http.StatusNotFound},
		{"rate limited", TooManyRequestsError("slow down"), ErrCodeTooManyRequests, http.StatusTooManyRequests},
		{"insufficient stock", InsufficientStockError("Panel 450W", 2), ErrCodeInsufficientStock, http.StatusConflict},
		{"inactive product", ProductInactiveError("Inverter"), ErrCodeProductInactive, http.StatusConflict},
		{"empty cart", EmptyCartError("empty"), ErrCodeEmptyCart, http.StatusUnprocessableEntity},
		{"cart unavailable", CartUnavailableError("later"), ErrCodeCartUnavailable, http.StatusServiceUnavailable},
		{"mail provider", ThirdPartyError("send failed"), ErrCodeThirdPartyError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.StatusCode)
		})
	}
}

func TestStockMessages(t *testing.T) {
	assert.Equal(t, `not enough stock for "Panel 450W"; available: 2`, InsufficientStockError("Panel 450W", 2).Message)
	assert.Equal(t, `"Inverter" is not currently available`, ProductInactiveError("Inverter").Message)
}

func TestIsAppErrorThroughWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	appErr := DatabaseError("Failed to load order").WithError(cause)

	wrapped := fmt.Errorf("checkout: %w", appErr)

	got, ok := IsAppError(wrapped)
	require.True(t, ok)
	assert.Same(t, appErr, got)
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "Failed to load order: connection reset", appErr.Error())

	_, ok = IsAppError(cause)
	assert.False(t, ok)
}
