package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/agendfy/agendfy-backend/pkg/auth"
	"github.com/agendfy/agendfy-backend/pkg/config"
	"github.com/agendfy/agendfy-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "agendfy",
		ExpirationMinutes: 30,
	}
}

func TestAuth_SeedsContextFromToken(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()
	token, err := pkgauth.MintAccessToken(cfg, time.Now().UTC(), pkgauth.AccessTokenPayload{
		UserID: userID,
		Email:  "pro@example.com",
		Role:   enums.RoleProfessional,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var gotUserID, gotRole, gotEmail string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		gotEmail = EmailFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Auth(cfg, nil)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if gotUserID != userID.String() {
		t.Fatalf("expected user id %s in context, got %q", userID, gotUserID)
	}
	if gotRole != string(enums.RoleProfessional) {
		t.Fatalf("expected role professional, got %q", gotRole)
	}
	if gotEmail != "pro@example.com" {
		t.Fatalf("expected email in context, got %q", gotEmail)
	}
}

func TestAuth_MissingHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me", nil)
	rec := httptest.NewRecorder()
	Auth(testJWTConfig(), nil)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuth_GarbageToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	Auth(testJWTConfig(), nil)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/billing/sync-by-email", nil)
	req = req.WithContext(WithRole(req.Context(), string(enums.RoleCEO)))
	rec := httptest.NewRecorder()
	RequireRole("ceo", nil)(next).ServeHTTP(rec, req)
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected ceo role to pass, got %d", rec.Code)
	}

	called = false
	req = httptest.NewRequest(http.MethodPost, "/api/admin/v1/billing/sync-by-email", nil)
	req = req.WithContext(WithRole(req.Context(), string(enums.RoleProfessional)))
	rec = httptest.NewRecorder()
	RequireRole("ceo", nil)(next).ServeHTTP(rec, req)
	if called {
		t.Fatalf("professional should not reach admin handler")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
