package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/agendfy/agendfy-backend/pkg/db/models"
	"github.com/agendfy/agendfy-backend/pkg/logger"
	"go.uber.org/multierr"
)

// TrialExpirySweepJobName identifies the sweep in logs and metrics.
const TrialExpirySweepJobName = "trial-expiry-sweep"

const defaultSweepLimit = 500

type expiredTrialLister interface {
	ListExpiredTrials(ctx context.Context, now time.Time, limit int) ([]models.ProfessionalAccount, error)
}

type trialReconciler interface {
	Reconcile(ctx context.Context, account *models.ProfessionalAccount) (bool, error)
}

// TrialExpirySweepJob expires lapsed trials for accounts that have not
// logged in since their window closed. Session loads remain the primary
// expiry path; the sweep only catches dormant tenants so their state does
// not stay premium_trial forever.
type TrialExpirySweepJob struct {
	accounts   expiredTrialLister
	reconciler trialReconciler
	logg       *logger.Logger
	limit      int
	now        func() time.Time
}

// TrialExpirySweepParams configure the sweep job.
type TrialExpirySweepParams struct {
	Accounts   expiredTrialLister
	Reconciler trialReconciler
	Logger     *logger.Logger
	Limit      int
}

// NewTrialExpirySweepJob builds the sweep job.
func NewTrialExpirySweepJob(params TrialExpirySweepParams) (*TrialExpirySweepJob, error) {
	if params.Accounts == nil {
		return nil, fmt.Errorf("account lister required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	return &TrialExpirySweepJob{
		accounts:   params.Accounts,
		reconciler: params.Reconciler,
		logg:       params.Logger,
		limit:      limit,
		now:        time.Now,
	}, nil
}

// Name implements Job.
func (j *TrialExpirySweepJob) Name() string {
	return TrialExpirySweepJobName
}

// Run expires each lapsed trial through the same reconciler the session
// load uses. One failing account does not stop the batch.
func (j *TrialExpirySweepJob) Run(ctx context.Context) error {
	expired, err := j.accounts.ListExpiredTrials(ctx, j.now().UTC(), j.limit)
	if err != nil {
		return fmt.Errorf("listing expired trials: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	var errs error
	swept := 0
	for i := range expired {
		account := &expired[i]
		flipped, err := j.reconciler.Reconcile(ctx, account)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("account %s: %w", account.ID, err))
			continue
		}
		if flipped {
			swept++
		}
	}

	ctx = j.logg.WithFields(ctx, map[string]any{
		"candidates": len(expired),
		"swept":      swept,
	})
	j.logg.Info(ctx, "trial expiry sweep finished")
	return errs
}
