package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agendfy/agendfy-backend/pkg/db/models"
	"github.com/agendfy/agendfy-backend/pkg/enums"
)

// Repository handles professional account persistence. Entitlement writers
// go through MergeFields so each writer only touches the columns it owns.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, account *models.ProfessionalAccount) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProfessionalAccount, error)
	FindByEmail(ctx context.Context, email string) (*models.ProfessionalAccount, error)
	FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*models.ProfessionalAccount, error)
	MergeFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	ListExpiredTrials(ctx context.Context, now time.Time, limit int) ([]models.ProfessionalAccount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an account repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, account *models.ProfessionalAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProfessionalAccount, error) {
	var account models.ProfessionalAccount
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.ProfessionalAccount, error) {
	var account models.ProfessionalAccount
	if err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*models.ProfessionalAccount, error) {
	var account models.ProfessionalAccount
	if err := r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", subscriptionID).
		First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// MergeFields applies a column-scoped update. Only the named columns change,
// so concurrent writers that own disjoint column sets never clobber each
// other's state.
func (r *repository) MergeFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.ProfessionalAccount{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// ListExpiredTrials returns accounts whose trial window has closed but whose
// stored state still says the trial is live. Premium accounts are excluded
// here so the sweep can never touch a paying tenant.
func (r *repository) ListExpiredTrials(ctx context.Context, now time.Time, limit int) ([]models.ProfessionalAccount, error) {
	if limit <= 0 {
		limit = 250
	}
	var accounts []models.ProfessionalAccount
	err := r.db.WithContext(ctx).
		Where("trial_active = ?", true).
		Where("trial_ends_at IS NOT NULL AND trial_ends_at <= ?", now).
		Where("subscription_status <> ?", enums.SubscriptionStatusPremium).
		Order("trial_ends_at ASC").
		Limit(limit).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}
