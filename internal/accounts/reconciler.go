package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agendfy/agendfy-backend/internal/downgrade"
	"github.com/agendfy/agendfy-backend/internal/trial"
	"github.com/agendfy/agendfy-backend/pkg/db/models"
	"github.com/agendfy/agendfy-backend/pkg/enums"
	pkgerrors "github.com/agendfy/agendfy-backend/pkg/errors"
	"github.com/agendfy/agendfy-backend/pkg/logger"
)

// EvaluateTrial decides whether an account's trial has lapsed and must be
// flipped to free. Pure: no clock, no I/O. Premium always wins, even when
// the trial window is long past; a paid account keeps stale trial fields
// untouched.
func EvaluateTrial(account *models.ProfessionalAccount, now time.Time) bool {
	if account == nil {
		return false
	}
	if account.Role != enums.RoleProfessional {
		return false
	}
	if !account.HasTrial() || !account.TrialActive {
		return false
	}
	if account.SubscriptionStatus == enums.SubscriptionStatusPremium {
		return false
	}
	return trial.IsExpired(*account.TrialEndsAt, now)
}

type trialMergeWriter interface {
	MergeFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

type resourceEnforcer interface {
	Enforce(ctx context.Context, account *models.ProfessionalAccount) (*downgrade.Result, error)
}

// Reconciler lazily expires trials at read time. It runs on every session
// load, so both the merge write and the downstream enforcement have to stay
// idempotent under concurrent loads of the same account.
type Reconciler struct {
	accounts trialMergeWriter
	enforcer resourceEnforcer
	logg     *logger.Logger
	now      func() time.Time
}

// NewReconciler returns a trial expiry reconciler.
func NewReconciler(accounts trialMergeWriter, enforcer resourceEnforcer, logg *logger.Logger) (*Reconciler, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account store required")
	}
	if enforcer == nil {
		return nil, fmt.Errorf("enforcer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Reconciler{
		accounts: accounts,
		enforcer: enforcer,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Reconcile flips a lapsed trial to free and applies downgrade enforcement.
// The account is mutated in place so the caller sees the post-expiry state
// without a re-read. Returns whether the trial was expired by this call.
func (r *Reconciler) Reconcile(ctx context.Context, account *models.ProfessionalAccount) (bool, error) {
	if !EvaluateTrial(account, r.now().UTC()) {
		return false, nil
	}

	ctx = r.logg.WithProfessionalID(ctx, account.ID.String())

	if err := r.accounts.MergeFields(ctx, account.ID, map[string]any{
		"subscription_status": enums.SubscriptionStatusFree,
		"trial_active":        false,
	}); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "expiring trial")
	}

	account.SubscriptionStatus = enums.SubscriptionStatusFree
	account.TrialActive = false

	r.logg.Info(ctx, "trial expired, account downgraded to free")

	if _, err := r.enforcer.Enforce(ctx, account); err != nil {
		return true, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "enforcing downgrade after trial expiry")
	}
	return true, nil
}
