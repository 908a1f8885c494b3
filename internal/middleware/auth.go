package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/loyaltyhub/loyalty-api/internal/pkg/apikey"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/jwt"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/response"
)

type contextKey string

const claimsKey contextKey = "claims"

const APIKeyHeader = "X-ApiKey"

// Auth returns middleware that validates JWT
func Auth(jwtService *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := jwtService.ValidateAccessToken(token)
			if err != nil {
				if errors.Is(err, jwt.ErrExpiredToken) {
					response.Unauthorized(w, "Token expired")
				} else {
					response.Unauthorized(w, "Invalid token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims extracts the validated token claims from context
func GetClaims(ctx context.Context) *jwt.Claims {
	if c, ok := ctx.Value(claimsKey).(*jwt.Claims); ok {
		return c
	}
	return nil
}

// RequirePairAccess checks that the {restaurantId} and {customerId} route
// params match the token claims. Admin tokens may access any pair.
func RequirePairAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		if claims == nil {
			response.Unauthorized(w, "unauthorized")
			return
		}

		restaurantID, err1 := strconv.ParseInt(chi.URLParam(r, "restaurantId"), 10, 64)
		customerID, err2 := strconv.ParseInt(chi.URLParam(r, "customerId"), 10, 64)
		if err1 != nil || err2 != nil || restaurantID <= 0 || customerID <= 0 {
			response.BadRequest(w, "invalid restaurant or customer id")
			return
		}

		if !claims.IsAdmin() && (claims.RestaurantID != restaurantID || claims.CustomerID != customerID) {
			response.Forbidden(w, "Access to this customer is not allowed")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// APIKey returns middleware that admits requests carrying a valid admin key
func APIKey(verifier *apikey.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !verifier.Verify(r.Header.Get(APIKeyHeader)) {
				response.Unauthorized(w, "Invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
