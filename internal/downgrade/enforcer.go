package downgrade

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/agendfy/agendfy-backend/internal/plan"
	"github.com/agendfy/agendfy-backend/pkg/db/models"
	"github.com/agendfy/agendfy-backend/pkg/enums"
	pkgerrors "github.com/agendfy/agendfy-backend/pkg/errors"
	"github.com/agendfy/agendfy-backend/pkg/logger"
	"github.com/agendfy/agendfy-backend/pkg/types"
)

type offeringStore interface {
	ListActiveByProfessional(ctx context.Context, professionalID uuid.UUID) ([]models.ServiceOffering, error)
	SetStatus(ctx context.Context, ids []uuid.UUID, status enums.ServiceStatus) error
}

type appointmentStore interface {
	CountByProfessional(ctx context.Context, professionalID uuid.UUID) (int64, error)
	DistinctClientPhones(ctx context.Context, professionalID uuid.UUID) ([]string, error)
}

type auditWriter interface {
	MergeFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
}

// Enforcer brings a professional's resources back inside the free plan
// budget after entitlement tightens. It disables excess services and records
// overage counts; it never deletes anything, so an upgrade restores the full
// catalog.
type Enforcer struct {
	offerings    offeringStore
	appointments appointmentStore
	accounts     auditWriter
	logg         *logger.Logger
	now          func() time.Time
}

// NewEnforcer returns a downgrade enforcer.
func NewEnforcer(offerings offeringStore, appointments appointmentStore, accounts auditWriter, logg *logger.Logger) (*Enforcer, error) {
	if offerings == nil {
		return nil, fmt.Errorf("offering store required")
	}
	if appointments == nil {
		return nil, fmt.Errorf("appointment store required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("audit writer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Enforcer{
		offerings:    offerings,
		appointments: appointments,
		accounts:     accounts,
		logg:         logg,
		now:          time.Now,
	}, nil
}

// Result summarizes what one enforcement pass changed.
type Result struct {
	ServicesDisabled  int
	TotalClients      int
	TotalAppointments int
}

// Enforce applies the free plan budget to the account's resources. Premium
// access is re-checked here so a stale caller cannot downgrade an account
// that has since paid. The audit record is only written after disabling
// succeeds; a failed listing aborts with nothing touched. Re-running at or
// under the limit refreshes the audit timestamp and nothing else.
func (e *Enforcer) Enforce(ctx context.Context, account *models.ProfessionalAccount) (*Result, error) {
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account is required")
	}
	if plan.HasPremiumAccess(account.SubscriptionStatus, account.TrialActive) {
		return &Result{}, nil
	}

	ctx = e.logg.WithProfessionalID(ctx, account.ID.String())
	limits := plan.LimitsFor(false)

	active, err := e.offerings.ListActiveByProfessional(ctx, account.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing active services")
	}

	disabled := 0
	if len(active) > limits.Services {
		// Newest offerings survive, oldest are disabled first.
		sort.SliceStable(active, func(i, j int) bool {
			return active[i].CreatedAt.After(active[j].CreatedAt)
		})
		excess := active[limits.Services:]
		ids := make([]uuid.UUID, 0, len(excess))
		for _, offering := range excess {
			ids = append(ids, offering.ID)
		}
		if err := e.offerings.SetStatus(ctx, ids, enums.ServiceStatusInactive); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "disabling excess services")
		}
		disabled = len(ids)
	}

	phones, err := e.appointments.DistinctClientPhones(ctx, account.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deriving client list")
	}
	totalAppointments, err := e.appointments.CountByProfessional(ctx, account.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting appointments")
	}

	audit := types.PlanTransition{
		LastCheck:         e.now().UTC(),
		ServicesDisabled:  disabled,
		TotalClients:      len(phones),
		TotalAppointments: int(totalAppointments),
	}
	if err := e.accounts.MergeFields(ctx, account.ID, map[string]any{
		"plan_transition": audit,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing plan transition audit")
	}

	ctx = e.logg.WithFields(ctx, map[string]any{
		"services_disabled":  disabled,
		"total_clients":      len(phones),
		"total_appointments": totalAppointments,
	})
	e.logg.Info(ctx, "downgrade enforcement applied")

	return &Result{
		ServicesDisabled:  disabled,
		TotalClients:      len(phones),
		TotalAppointments: int(totalAppointments),
	}, nil
}
