package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/loyaltyhub/loyalty-api/internal/pkg/apikey"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/jwt"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func pairRouter(jwtSvc *jwt.Service) http.Handler {
	r := chi.NewRouter()
	r.With(Auth(jwtSvc), RequirePairAccess).
		Get("/restaurants/{restaurantId}/customers/{customerId}/points", okHandler)
	return r
}

func TestAuthMiddlewareAllowsValidAccessToken(t *testing.T) {
	jwtSvc := jwt.NewService("secret", time.Minute)
	token, err := jwtSvc.GenerateAccessToken(7, 3, jwt.RoleUser)
	if err != nil {
		t.Fatalf("token gen failed: %v", err)
	}

	protected := Auth(jwtSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		if claims == nil || claims.CustomerID != 7 || claims.RestaurantID != 3 {
			t.Errorf("unexpected claims: %+v", claims)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAuthMiddlewareRejectsMissingAndExpiredTokens(t *testing.T) {
	jwtSvc := jwt.NewService("secret", -time.Minute)
	expired, err := jwtSvc.GenerateAccessToken(7, 3, jwt.RoleUser)
	if err != nil {
		t.Fatalf("token gen failed: %v", err)
	}

	protected := Auth(jwtSvc)(http.HandlerFunc(okHandler))

	for name, header := range map[string]string{
		"missing": "",
		"scheme":  "Token " + expired,
		"expired": "Bearer " + expired,
	} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, w.Code)
		}
	}
}

func TestRequirePairAccess(t *testing.T) {
	jwtSvc := jwt.NewService("secret", time.Minute)
	userToken, _ := jwtSvc.GenerateAccessToken(7, 3, jwt.RoleUser)
	adminToken, _ := jwtSvc.GenerateAccessToken(0, 0, jwt.RoleAdmin)
	router := pairRouter(jwtSvc)

	tests := []struct {
		name  string
		token string
		path  string
		want  int
	}{
		{"own pair", userToken, "/restaurants/3/customers/7/points", http.StatusOK},
		{"other customer", userToken, "/restaurants/3/customers/8/points", http.StatusForbidden},
		{"other restaurant", userToken, "/restaurants/4/customers/7/points", http.StatusForbidden},
		{"admin", adminToken, "/restaurants/4/customers/8/points", http.StatusOK},
		{"bad id", userToken, "/restaurants/x/customers/7/points", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	verifier, err := apikey.NewVerifier(string(hash))
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	protected := APIKey(verifier)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(APIKeyHeader, "admin-key")
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(APIKeyHeader, "nope")
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
