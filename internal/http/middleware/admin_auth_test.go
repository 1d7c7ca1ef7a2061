package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func serveAdmin(t *testing.T, secret, token string) (*httptest.ResponseRecorder, *AdminClaims) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()

	var seen *AdminClaims
	AdminJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := AdminClaimsFromContext(r.Context()); ok {
			seen = &claims
		}
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	return rec, seen
}

func staffToken(t *testing.T, secret, role string) string {
	t.Helper()
	token, err := SignAdminToken(secret, "recepcion-1", role, 5*time.Minute, time.Now())
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestAdminJWTMissingSecret(t *testing.T) {
	rec, _ := serveAdmin(t, "", staffToken(t, "secret", "admin"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAdminJWTMissingHeader(t *testing.T) {
	rec, _ := serveAdmin(t, "secret", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAdminJWTInvalidToken(t *testing.T) {
	rec, _ := serveAdmin(t, "secret", staffToken(t, "wrong", "admin"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAdminJWTExpiredToken(t *testing.T) {
	token, err := SignAdminToken("secret", "recepcion-1", "admin", time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	rec, _ := serveAdmin(t, "secret", token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAdminJWTForeignIssuer(t *testing.T) {
	claims := AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Role: "admin",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	rec, _ := serveAdmin(t, "secret", token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAdminJWTRequiresStaffRole(t *testing.T) {
	rec, _ := serveAdmin(t, "secret", staffToken(t, "secret", "patient"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}

func TestAdminJWTValidToken(t *testing.T) {
	rec, claims := serveAdmin(t, "secret", staffToken(t, "secret", "reception"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if claims == nil {
		t.Fatalf("expected admin claims in context")
	}
	if claims.Subject != "recepcion-1" || claims.Role != "reception" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestSignAdminTokenRequiresSecret(t *testing.T) {
	if _, err := SignAdminToken("", "x", "admin", time.Minute, time.Now()); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
