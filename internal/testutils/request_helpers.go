package testutils

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/aaravmahajanofficial/solar-storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/solar-storefront/internal/guestsession"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/google/uuid"
)

// NewGuestSession returns a session kept in memory, as if the cookie jar were empty.
func NewGuestSession() *guestsession.Session {
	return guestsession.NewManager(time.Hour).For(guestsession.NewMemoryStorage())
}

// CreateTestRequestWithContext builds a request from a signed-in user who
// also carries an (empty) guest session, the way Identify attaches one.
func CreateTestRequestWithContext(method, target string, body io.Reader, userID uuid.UUID, pathParams map[string]string) *http.Request {

	identity := models.UserIdentity(userID)
	identity.Guest = NewGuestSession()

	return CreateTestRequestWithIdentity(method, target, body, identity, pathParams)
}

// CreateTestRequestWithoutContext builds a guest request.
func CreateTestRequestWithoutContext(method, target string, body io.Reader, pathParams map[string]string) *http.Request {
	return CreateTestRequestWithIdentity(method, target, body, models.GuestIdentity(NewGuestSession()), pathParams)
}

func CreateTestRequestWithIdentity(method, target string, body io.Reader, identity models.Identity, pathParams map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")

	for key, value := range pathParams {
		req.SetPathValue(key, value)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := middleware.WithLogger(req.Context(), logger)
	ctx = middleware.WithIdentity(ctx, identity)

	return req.WithContext(ctx)
}
