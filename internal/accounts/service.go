package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agendfy/agendfy-backend/internal/plan"
	"github.com/agendfy/agendfy-backend/internal/trial"
	"github.com/agendfy/agendfy-backend/pkg/db"
	"github.com/agendfy/agendfy-backend/pkg/db/models"
	"github.com/agendfy/agendfy-backend/pkg/enums"
	pkgerrors "github.com/agendfy/agendfy-backend/pkg/errors"
	"github.com/agendfy/agendfy-backend/pkg/logger"
)

// Service exposes account provisioning and session resolution.
type Service interface {
	Provision(ctx context.Context, input ProvisionInput) (*models.ProfessionalAccount, error)
	LoadSession(ctx context.Context, professionalID uuid.UUID) (*SessionView, error)
}

// ProvisionInput holds the validated payload to create an account.
type ProvisionInput struct {
	UserID       uuid.UUID
	Email        string
	BusinessName string
	Role         enums.Role
}

// SessionView is the entitlement snapshot handed to the UI on session load.
type SessionView struct {
	Account            *models.ProfessionalAccount
	HasPremiumAccess   bool
	Limits             plan.Limits
	TrialDaysRemaining int
	TrialExpiredNow    bool
}

type service struct {
	repo       Repository
	reconciler *Reconciler
	logg       *logger.Logger
	now        func() time.Time
}

// NewService returns the account service.
func NewService(repo Repository, reconciler *Reconciler, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("account repository required")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		reconciler: reconciler,
		logg:       logg,
		now:        time.Now,
	}, nil
}

// Provision registers an account. Professionals start on a trial with the
// full window ahead of them; any other role starts free with no trial
// fields at all.
func (s *service) Provision(ctx context.Context, input ProvisionInput) (*models.ProfessionalAccount, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	account := &models.ProfessionalAccount{
		ID:                 input.UserID,
		Email:              input.Email,
		BusinessName:       input.BusinessName,
		Role:               input.Role,
		SubscriptionStatus: enums.SubscriptionStatusFree,
	}

	if input.Role == enums.RoleProfessional {
		now := s.now().UTC()
		endsAt := trial.EndDate(now)
		account.SubscriptionStatus = enums.SubscriptionStatusPremiumTrial
		account.TrialActive = true
		account.TrialStartedAt = &now
		account.TrialEndsAt = &endsAt
	}

	if err := s.repo.Create(ctx, account); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "account already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating account")
	}

	ctx = s.logg.WithProfessionalID(ctx, account.ID.String())
	s.logg.Info(ctx, "account provisioned")
	return account, nil
}

// LoadSession resolves the account's current entitlements, expiring a
// lapsed trial on the way. The UI never sees a stale premium_trial.
func (s *service) LoadSession(ctx context.Context, professionalID uuid.UUID) (*SessionView, error) {
	account, err := s.repo.FindByID(ctx, professionalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}

	expiredNow, err := s.reconciler.Reconcile(ctx, account)
	if err != nil {
		return nil, err
	}

	hasPremium := plan.HasPremiumAccess(account.SubscriptionStatus, account.TrialActive)
	view := &SessionView{
		Account:          account,
		HasPremiumAccess: hasPremium,
		Limits:           plan.LimitsFor(hasPremium),
		TrialExpiredNow:  expiredNow,
	}
	if account.TrialActive && account.TrialEndsAt != nil {
		view.TrialDaysRemaining = trial.DaysRemaining(*account.TrialEndsAt, s.now().UTC())
	}
	return view, nil
}
