package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/agendfy/agendfy-backend/internal/plan"
	"github.com/agendfy/agendfy-backend/pkg/db/models"
	"github.com/agendfy/agendfy-backend/pkg/enums"
	pkgerrors "github.com/agendfy/agendfy-backend/pkg/errors"
)

// Service manages a professional's bookable offerings.
type Service interface {
	Create(ctx context.Context, professionalID uuid.UUID, input CreateInput) (*models.ServiceOffering, error)
	List(ctx context.Context, professionalID uuid.UUID) ([]models.ServiceOffering, error)
	Deactivate(ctx context.Context, professionalID, offeringID uuid.UUID) error
}

// CreateInput holds the validated payload to create an offering.
type CreateInput struct {
	Name            string
	DurationMinutes int
	PriceCents      int64
}

type accountLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProfessionalAccount, error)
}

type service struct {
	repo     Repository
	accounts accountLoader
}

// NewService returns the offering service.
func NewService(repo Repository, accounts accountLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("service offering repository required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account loader required")
	}
	return &service{repo: repo, accounts: accounts}, nil
}

// Create adds an offering after checking the caller's plan budget. Accounts
// at the active-service cap get a conflict, not a silent truncation.
func (s *service) Create(ctx context.Context, professionalID uuid.UUID, input CreateInput) (*models.ServiceOffering, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.DurationMinutes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration_minutes must be positive")
	}

	account, err := s.accounts.FindByID(ctx, professionalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}

	limits := plan.LimitsFor(plan.HasPremiumAccess(account.SubscriptionStatus, account.TrialActive))
	active, err := s.repo.CountActive(ctx, professionalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting active services")
	}
	if !limits.AllowsServices(int(active) + 1) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "active service limit reached for the current plan").
			WithDetails(map[string]any{"limit": limits.Services, "active": active})
	}

	offering := &models.ServiceOffering{
		ProfessionalID:  professionalID,
		Name:            input.Name,
		DurationMinutes: input.DurationMinutes,
		PriceCents:      input.PriceCents,
		Status:          enums.ServiceStatusActive,
	}
	if err := s.repo.Create(ctx, offering); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating service offering")
	}
	return offering, nil
}

func (s *service) List(ctx context.Context, professionalID uuid.UUID) ([]models.ServiceOffering, error) {
	offerings, err := s.repo.ListByProfessional(ctx, professionalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing service offerings")
	}
	return offerings, nil
}

// Deactivate flips a single offering to inactive. Ownership is checked so a
// professional cannot touch another tenant's catalog.
func (s *service) Deactivate(ctx context.Context, professionalID, offeringID uuid.UUID) error {
	offering, err := s.repo.FindByID(ctx, offeringID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading service offering")
	}
	if offering == nil || offering.ProfessionalID != professionalID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "service offering not found")
	}
	if offering.Status == enums.ServiceStatusInactive {
		return nil
	}
	if err := s.repo.SetStatus(ctx, []uuid.UUID{offering.ID}, enums.ServiceStatusInactive); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivating service offering")
	}
	return nil
}
