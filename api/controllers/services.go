package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/agendfy/agendfy-backend/api/responses"
	"github.com/agendfy/agendfy-backend/api/validators"
	"github.com/agendfy/agendfy-backend/internal/services"
	"github.com/agendfy/agendfy-backend/pkg/db/models"
	pkgerrors "github.com/agendfy/agendfy-backend/pkg/errors"
	"github.com/agendfy/agendfy-backend/pkg/logger"
)

type serviceCreateRequest struct {
	Name            string `json:"name" validate:"required,max=160"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=1"`
	PriceCents      int64  `json:"price_cents" validate:"min=0"`
}

type serviceResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int64     `json:"price_cents"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

func newServiceResponse(offering *models.ServiceOffering) serviceResponse {
	return serviceResponse{
		ID:              offering.ID,
		Name:            offering.Name,
		DurationMinutes: offering.DurationMinutes,
		PriceCents:      offering.PriceCents,
		Status:          string(offering.Status),
		CreatedAt:       offering.CreatedAt,
	}
}

func ServiceCreate(svc services.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "service catalog unavailable"))
			return
		}

		callerID, err := resolveCallerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload serviceCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offering, err := svc.Create(r.Context(), callerID, services.CreateInput{
			Name:            payload.Name,
			DurationMinutes: payload.DurationMinutes,
			PriceCents:      payload.PriceCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newServiceResponse(offering))
	}
}

func ServiceList(svc services.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "service catalog unavailable"))
			return
		}

		callerID, err := resolveCallerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offerings, err := svc.List(r.Context(), callerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]serviceResponse, 0, len(offerings))
		for i := range offerings {
			out = append(out, newServiceResponse(&offerings[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func ServiceDeactivate(svc services.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "service catalog unavailable"))
			return
		}

		callerID, err := resolveCallerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offeringID, err := uuid.Parse(chi.URLParam(r, "serviceId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid service id"))
			return
		}

		if err := svc.Deactivate(r.Context(), callerID, offeringID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}
