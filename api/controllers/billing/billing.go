package billing

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/agendfy/agendfy-backend/api/middleware"
	"github.com/agendfy/agendfy-backend/api/responses"
	checkoutsvc "github.com/agendfy/agendfy-backend/internal/checkout"
	"github.com/agendfy/agendfy-backend/pkg/db/models"
	pkgerrors "github.com/agendfy/agendfy-backend/pkg/errors"
	"github.com/agendfy/agendfy-backend/pkg/logger"
)

type accountLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProfessionalAccount, error)
}

// Checkout opens a subscription checkout session for the authenticated
// professional and returns the provider redirect URL.
func Checkout(svc checkoutsvc.Service, accounts accountLoader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || accounts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		callerID, err := callerUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := accounts.FindByID(r.Context(), callerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account"))
			return
		}
		if account == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "account not found"))
			return
		}

		out, err := svc.CreateSession(r.Context(), checkoutsvc.CreateSessionInput{
			UserID:       account.ID,
			Email:        account.Email,
			BusinessName: account.BusinessName,
			Role:         account.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

// Cancel asks the provider to cancel the caller's subscription. Entitlement
// state is not touched here; the deletion webhook lands it.
func Cancel(svc checkoutsvc.Service, accounts accountLoader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || accounts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		callerID, err := callerUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := accounts.FindByID(r.Context(), callerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account"))
			return
		}
		if account == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "account not found"))
			return
		}
		if account.StripeSubscriptionID == nil || *account.StripeSubscriptionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "no active subscription to cancel"))
			return
		}

		if err := svc.CancelSubscription(r.Context(), checkoutsvc.CancelInput{
			UserID:         account.ID,
			SubscriptionID: *account.StripeSubscriptionID,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

func callerUUID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}
