package utils_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appErrors "github.com/aaravmahajanofficial/solar-storefront/internal/errors"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quantityBody struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

func TestDecodeJSONBody(t *testing.T) {
	t.Run("Decodes a document", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":3}`))

		var body quantityBody
		err := utils.DecodeJSONBody(req, &body)

		require.NoError(t, err)
		assert.Equal(t, 3, body.Quantity)
	})

	t.Run("Empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))

		var body quantityBody
		err := utils.DecodeJSONBody(req, &body)

		assert.ErrorIs(t, err, utils.ErrEmptyBody)
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":`))

		var body quantityBody
		err := utils.DecodeJSONBody(req, &body)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid JSON format")
	})
}

func TestParseAndValidate(t *testing.T) {
	validate := validator.New()

	t.Run("Valid input", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":2}`))
		rr := httptest.NewRecorder()

		var body quantityBody
		ok := utils.ParseAndValidate(req, rr, &body, validate)

		assert.True(t, ok)
		assert.Equal(t, 2, body.Quantity)
	})

	t.Run("Rule violation renders 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":0}`))
		rr := httptest.NewRecorder()

		var body quantityBody
		ok := utils.ParseAndValidate(req, rr, &body, validate)

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Quantity")
	})
}

func TestParseID(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		value   string
		want    uuid.UUID
		wantErr bool
	}{
		{name: "Valid", value: id.String(), want: id},
		{name: "Missing", value: "", wantErr: true},
		{name: "Malformed", value: "not-a-uuid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetPathValue("id", tt.value)

			got, err := utils.ParseID(req, "id")

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}

			appErr, ok := appErrors.IsAppError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
		})
	}
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		query    string
		page     int
		pageSize int
	}{
		{query: "", page: 1, pageSize: 10},
		{query: "?page=3&pageSize=25", page: 3, pageSize: 25},
		{query: "?page=-1&pageSize=500", page: 1, pageSize: 10},
		{query: "?page=abc", page: 1, pageSize: 10},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/orders"+tt.query, nil)

			page, pageSize := utils.ParsePage(req)

			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.pageSize, pageSize)
		})
	}
}
