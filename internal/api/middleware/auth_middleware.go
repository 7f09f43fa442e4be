package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aaravmahajanofficial/solar-storefront/internal/errors"
	"github.com/aaravmahajanofficial/solar-storefront/internal/guestsession"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils/response"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	UserContextKey     = contextKey("user")
	IdentityContextKey = contextKey("identity")
)

// RoleLookup returns the role stored for a profile.
type RoleLookup func(ctx context.Context, userID uuid.UUID) (string, error)

type AuthMiddleware struct {
	jwtKey  []byte
	guests  *guestsession.Manager
	cookies guestsession.CookieOptions
}

func NewAuthMiddleware(jwtKey []byte, guests *guestsession.Manager, cookies guestsession.CookieOptions) *AuthMiddleware {

	if cookies.MaxAge == 0 {
		cookies.MaxAge = guests.TTL()
	}

	return &AuthMiddleware{jwtKey: jwtKey, guests: guests, cookies: cookies}
}

// Identify attaches the caller's identity to the request. A bearer token is
// optional; when present it must be valid. Every request also carries the
// cookie-backed guest session so sign-in can merge the guest cart.
func (m *AuthMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		logger := LoggerFromContext(r.Context())

		identity := models.Identity{
			Guest: m.guests.For(guestsession.NewCookieStorage(w, r, m.cookies)),
		}

		ctx := r.Context()

		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			claims, userID, err := m.parse(authHeader)
			if err != nil {
				logger.Warn("Rejected bearer token", slog.String("error", err.Error()))
				response.Error(w, err)
				return
			}

			identity.UserID = &userID

			ctx = context.WithValue(ctx, UserContextKey, claims)

			logger = logger.With(slog.String("userId", userID.String()))
			ctx = WithLogger(ctx, logger)
		}

		ctx = WithIdentity(ctx, identity)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) parse(authHeader string) (*models.Claims, uuid.UUID, error) {

	// Token is of format : "Bearer <token>"
	tokenParts := strings.Split(authHeader, " ")

	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return nil, uuid.Nil, errors.UnauthorizedError("Invalid authorization format")
	}

	claims := &models.Claims{}

	token, err := jwt.ParseWithClaims(tokenParts[1], claims, func(t *jwt.Token) (any, error) {
		// check the signing method
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.BadRequestError("unexpected signing method")
		}

		return m.jwtKey, nil
	})

	if err != nil || !token.Valid {
		return nil, uuid.Nil, errors.UnauthorizedError("Invalid or expired token").WithError(err)
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, uuid.Nil, errors.UnauthorizedError("Invalid token subject").WithError(err)
	}

	return claims, userID, nil
}

// RequireUser rejects guests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		if !IdentityFromContext(r.Context()).IsUser() {
			LoggerFromContext(r.Context()).Warn("Guest attempted a signed-in route", slog.String("path", r.URL.Path))
			response.Error(w, errors.UnauthorizedError("Please sign in to continue"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRole lets through signed-in users whose stored role is one of roles.
func RequireRole(lookup RoleLookup, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			logger := LoggerFromContext(r.Context())
			userID := *IdentityFromContext(r.Context()).UserID

			role, err := lookup(r.Context(), userID)
			if err != nil {
				logger.Error("Failed to look up role", slog.String("error", err.Error()))
				response.Error(w, errors.ForbiddenError("Access denied"))
				return
			}

			for _, allowed := range roles {
				if strings.EqualFold(role, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("Role not permitted", slog.String("role", role))
			response.Error(w, errors.ForbiddenError("Access denied"))
		}))
	}
}

func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

// IdentityFromContext returns the zero Identity when Identify has not run.
func IdentityFromContext(ctx context.Context) models.Identity {
	identity, _ := ctx.Value(IdentityContextKey).(models.Identity)
	return identity
}

func ClaimsFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.Claims)
	return claims, ok
}
