package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/agendfy/agendfy-backend/api/middleware"
	"github.com/agendfy/agendfy-backend/internal/accounts"
	"github.com/agendfy/agendfy-backend/internal/plan"
	"github.com/agendfy/agendfy-backend/pkg/db/models"
	"github.com/agendfy/agendfy-backend/pkg/enums"
	pkgerrors "github.com/agendfy/agendfy-backend/pkg/errors"
)

type fakeAccountsService struct {
	provisioned *accounts.ProvisionInput
	account     *models.ProfessionalAccount
	view        *accounts.SessionView
	err         error
}

func (f *fakeAccountsService) Provision(ctx context.Context, input accounts.ProvisionInput) (*models.ProfessionalAccount, error) {
	f.provisioned = &input
	return f.account, f.err
}

func (f *fakeAccountsService) LoadSession(ctx context.Context, professionalID uuid.UUID) (*accounts.SessionView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.view, nil
}

func authedRequest(method, target string, body []byte, userID uuid.UUID, role enums.Role, email string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	ctx = middleware.WithEmail(ctx, email)
	return req.WithContext(ctx)
}

func TestAccountProvision(t *testing.T) {
	userID := uuid.New()
	now := time.Now().UTC()
	ends := now.AddDate(0, 0, 3)
	svc := &fakeAccountsService{
		account: &models.ProfessionalAccount{
			ID:                 userID,
			Email:              "pro@example.com",
			BusinessName:       "Studio Glow",
			Role:               enums.RoleProfessional,
			SubscriptionStatus: enums.SubscriptionStatusPremiumTrial,
			TrialActive:        true,
			TrialStartedAt:     &now,
			TrialEndsAt:        &ends,
			CreatedAt:          now,
		},
	}

	body, _ := json.Marshal(map[string]string{"business_name": "Studio Glow"})
	req := authedRequest(http.MethodPost, "/api/v1/accounts", body, userID, enums.RoleProfessional, "pro@example.com")
	rec := httptest.NewRecorder()
	AccountProvision(svc, nil)(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.provisioned == nil {
		t.Fatalf("expected provision to be called")
	}
	if svc.provisioned.UserID != userID {
		t.Fatalf("expected caller id from context, got %s", svc.provisioned.UserID)
	}
	if svc.provisioned.Email != "pro@example.com" {
		t.Fatalf("expected email from context, got %q", svc.provisioned.Email)
	}
	if svc.provisioned.Role != enums.RoleProfessional {
		t.Fatalf("expected role from context, got %s", svc.provisioned.Role)
	}

	var envelope struct {
		Data accountResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.SubscriptionStatus != "premium_trial" {
		t.Fatalf("expected premium_trial status, got %s", envelope.Data.SubscriptionStatus)
	}
	if !envelope.Data.TrialActive {
		t.Fatalf("expected trial active")
	}
}

func TestAccountProvision_InvalidBody(t *testing.T) {
	svc := &fakeAccountsService{}
	req := authedRequest(http.MethodPost, "/api/v1/accounts", []byte(`{}`), uuid.New(), enums.RoleProfessional, "pro@example.com")
	rec := httptest.NewRecorder()
	AccountProvision(svc, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.provisioned != nil {
		t.Fatalf("service should not be called on validation failure")
	}
}

func TestAccountSession(t *testing.T) {
	userID := uuid.New()
	now := time.Now().UTC()
	ends := now.AddDate(0, 0, 2)
	svc := &fakeAccountsService{
		view: &accounts.SessionView{
			Account: &models.ProfessionalAccount{
				ID:                 userID,
				Email:              "pro@example.com",
				BusinessName:       "Studio Glow",
				Role:               enums.RoleProfessional,
				SubscriptionStatus: enums.SubscriptionStatusPremiumTrial,
				TrialActive:        true,
				TrialStartedAt:     &now,
				TrialEndsAt:        &ends,
			},
			HasPremiumAccess:   true,
			Limits:             plan.LimitsFor(true),
			TrialDaysRemaining: 2,
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/accounts/me", nil, userID, enums.RoleProfessional, "pro@example.com")
	rec := httptest.NewRecorder()
	AccountSession(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data sessionResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.HasPremiumAccess {
		t.Fatalf("expected premium access")
	}
	if envelope.Data.TrialDaysRemaining != 2 {
		t.Fatalf("expected 2 trial days remaining, got %d", envelope.Data.TrialDaysRemaining)
	}
	if envelope.Data.Limits.Services != plan.Unlimited {
		t.Fatalf("expected unlimited services, got %d", envelope.Data.Limits.Services)
	}
}

func TestAccountSession_NotFound(t *testing.T) {
	svc := &fakeAccountsService{err: pkgerrors.New(pkgerrors.CodeNotFound, "account not found")}
	req := authedRequest(http.MethodGet, "/api/v1/accounts/me", nil, uuid.New(), enums.RoleProfessional, "pro@example.com")
	rec := httptest.NewRecorder()
	AccountSession(svc, nil)(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAccountSession_MissingCredentials(t *testing.T) {
	svc := &fakeAccountsService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me", nil)
	rec := httptest.NewRecorder()
	AccountSession(svc, nil)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
