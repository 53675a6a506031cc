package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/agendfy/agendfy-backend/api/middleware"
	"github.com/agendfy/agendfy-backend/api/responses"
	"github.com/agendfy/agendfy-backend/api/validators"
	"github.com/agendfy/agendfy-backend/internal/accounts"
	"github.com/agendfy/agendfy-backend/pkg/db/models"
	"github.com/agendfy/agendfy-backend/pkg/enums"
	pkgerrors "github.com/agendfy/agendfy-backend/pkg/errors"
	"github.com/agendfy/agendfy-backend/pkg/logger"
)

type accountProvisionRequest struct {
	BusinessName string `json:"business_name" validate:"required,max=160"`
	Role         string `json:"role,omitempty"`
}

type accountResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	BusinessName       string     `json:"business_name"`
	Role               string     `json:"role"`
	SubscriptionStatus string     `json:"subscription_status"`
	TrialActive        bool       `json:"trial_active"`
	TrialStartedAt     *time.Time `json:"trial_started_at,omitempty"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	Plan               *string    `json:"plan,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	CreatedAt          time.Time  `json:"created_at"`
}

type sessionResponse struct {
	Account            accountResponse `json:"account"`
	HasPremiumAccess   bool            `json:"has_premium_access"`
	Limits             limitsResponse  `json:"limits"`
	TrialDaysRemaining int             `json:"trial_days_remaining"`
	TrialExpiredNow    bool            `json:"trial_expired_now"`
}

type limitsResponse struct {
	Services             int      `json:"services"`
	Clients              int      `json:"clients"`
	AppointmentsPerMonth int      `json:"appointments_per_month"`
	CalendarViews        []string `json:"calendar_views"`
}

func newAccountResponse(account *models.ProfessionalAccount) accountResponse {
	return accountResponse{
		ID:                 account.ID,
		Email:              account.Email,
		BusinessName:       account.BusinessName,
		Role:               string(account.Role),
		SubscriptionStatus: string(account.SubscriptionStatus),
		TrialActive:        account.TrialActive,
		TrialStartedAt:     account.TrialStartedAt,
		TrialEndsAt:        account.TrialEndsAt,
		Plan:               account.Plan,
		CurrentPeriodEnd:   account.CurrentPeriodEnd,
		CancelAtPeriodEnd:  account.CancelAtPeriodEnd,
		CreatedAt:          account.CreatedAt,
	}
}

func AccountProvision(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}

		callerID, err := resolveCallerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload accountProvisionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role := enums.Role(middleware.RoleFromContext(r.Context()))
		if payload.Role != "" {
			parsed, err := enums.ParseRole(payload.Role)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
				return
			}
			role = parsed
		}

		account, err := svc.Provision(r.Context(), accounts.ProvisionInput{
			UserID:       callerID,
			Email:        middleware.EmailFromContext(r.Context()),
			BusinessName: payload.BusinessName,
			Role:         role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newAccountResponse(account))
	}
}

func AccountSession(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}

		callerID, err := resolveCallerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.LoadSession(r.Context(), callerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]string, 0, len(view.Limits.CalendarViews))
		for _, v := range view.Limits.CalendarViews {
			views = append(views, string(v))
		}

		responses.WriteSuccess(w, sessionResponse{
			Account:          newAccountResponse(view.Account),
			HasPremiumAccess: view.HasPremiumAccess,
			Limits: limitsResponse{
				Services:             view.Limits.Services,
				Clients:              view.Limits.Clients,
				AppointmentsPerMonth: view.Limits.AppointmentsPerMonth,
				CalendarViews:        views,
			},
			TrialDaysRemaining: view.TrialDaysRemaining,
			TrialExpiredNow:    view.TrialExpiredNow,
		})
	}
}
