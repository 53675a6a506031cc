package admin

import (
	"net/http"

	"github.com/agendfy/agendfy-backend/api/responses"
	"github.com/agendfy/agendfy-backend/api/validators"
	adminsvc "github.com/agendfy/agendfy-backend/internal/admin"
	pkgerrors "github.com/agendfy/agendfy-backend/pkg/errors"
	"github.com/agendfy/agendfy-backend/pkg/logger"
)

type syncByEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type recoverRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
}

// BillingSyncByEmail replays the provider's subscription state for a tenant
// identified by the customer email. Used when webhooks were lost.
func BillingSyncByEmail(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		var payload syncByEmailRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SyncByEmail(r.Context(), payload.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// BillingRecover re-syncs a single subscription by provider id.
func BillingRecover(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		var payload recoverRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Recover(r.Context(), payload.SubscriptionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
