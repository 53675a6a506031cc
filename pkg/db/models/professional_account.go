package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agendfy/agendfy-backend/pkg/enums"
	"github.com/agendfy/agendfy-backend/pkg/types"
)

// ProfessionalAccount is the single source of truth for a tenant's
// entitlement state. Entitlement writers only ever touch the columns they
// own via column-scoped merge updates, so concurrent webhook and reconciler
// writes cannot clobber each other.
type ProfessionalAccount struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email        string     `gorm:"column:email;not null;uniqueIndex"`
	BusinessName string     `gorm:"column:business_name;not null"`
	Role         enums.Role `gorm:"column:role;not null;default:'professional'"`

	SubscriptionStatus enums.SubscriptionStatus `gorm:"column:subscription_status;not null;default:'free'"`

	// Trial window. StartedAt/EndsAt are written once at provisioning and
	// never mutated; only Active flips, and EndedAt records a webhook-driven
	// trial end.
	TrialActive    bool       `gorm:"column:trial_active;not null;default:false"`
	TrialStartedAt *time.Time `gorm:"column:trial_started_at"`
	TrialEndsAt    *time.Time `gorm:"column:trial_ends_at"`
	TrialEndedAt   *time.Time `gorm:"column:trial_ended_at"`

	// Provider subscription mirror, owned by the webhook sync.
	SubscriptionActive    bool       `gorm:"column:subscription_active;not null;default:false"`
	StripeCustomerID      *string    `gorm:"column:stripe_customer_id"`
	StripeSubscriptionID  *string    `gorm:"column:stripe_subscription_id;index"`
	Plan                  *string    `gorm:"column:plan"`
	SubscriptionStartedAt *time.Time `gorm:"column:subscription_started_at"`
	CurrentPeriodEnd      *time.Time `gorm:"column:current_period_end"`
	CancelAtPeriodEnd     bool       `gorm:"column:cancel_at_period_end;not null;default:false"`
	CancelAt              *time.Time `gorm:"column:cancel_at"`

	PlanTransition *types.PlanTransition `gorm:"column:plan_transition;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (a *ProfessionalAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// HasTrial reports whether trial fields were ever provisioned. Only
// professional accounts carry a trial.
func (a *ProfessionalAccount) HasTrial() bool {
	return a != nil && a.TrialStartedAt != nil && a.TrialEndsAt != nil
}
