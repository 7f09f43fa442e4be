package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils/response"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()

	body, err := json.Marshal(v)
	require.NoError(t, err)

	return bytes.NewReader(body)
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) *response.APIResponse {
	t.Helper()

	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	return &resp
}

// decodeData re-decodes the data field into dest.
func decodeData(t *testing.T, resp *response.APIResponse, dest any) {
	t.Helper()

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dest))
}

func userIdentity(userID uuid.UUID) any {
	return mock.MatchedBy(func(i models.Identity) bool {
		return i.IsUser() && *i.UserID == userID
	})
}

func guestIdentity() any {
	return mock.MatchedBy(func(i models.Identity) bool {
		return !i.IsUser() && i.Guest != nil
	})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decimalArg(s string) any {
	want := dec(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return want.Equal(d) })
}
