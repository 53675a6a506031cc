package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agendfy/agendfy-backend/pkg/db/models"
	"github.com/agendfy/agendfy-backend/pkg/enums"
)

// Repository handles service offering persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, offering *models.ServiceOffering) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceOffering, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]models.ServiceOffering, error)
	ListActiveByProfessional(ctx context.Context, professionalID uuid.UUID) ([]models.ServiceOffering, error)
	CountActive(ctx context.Context, professionalID uuid.UUID) (int64, error)
	SetStatus(ctx context.Context, ids []uuid.UUID, status enums.ServiceStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a service offering repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, offering *models.ServiceOffering) error {
	return r.db.WithContext(ctx).Create(offering).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceOffering, error) {
	var offering models.ServiceOffering
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&offering).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &offering, nil
}

func (r *repository) ListByProfessional(ctx context.Context, professionalID uuid.UUID) ([]models.ServiceOffering, error) {
	var offerings []models.ServiceOffering
	if err := r.db.WithContext(ctx).
		Where("professional_id = ?", professionalID).
		Order("created_at DESC").
		Find(&offerings).Error; err != nil {
		return nil, err
	}
	return offerings, nil
}

// ListActiveByProfessional returns active offerings newest-first. Downgrade
// enforcement depends on this ordering to decide which offerings survive.
func (r *repository) ListActiveByProfessional(ctx context.Context, professionalID uuid.UUID) ([]models.ServiceOffering, error) {
	var offerings []models.ServiceOffering
	if err := r.db.WithContext(ctx).
		Where("professional_id = ?", professionalID).
		Where("status = ?", enums.ServiceStatusActive).
		Order("created_at DESC").
		Find(&offerings).Error; err != nil {
		return nil, err
	}
	return offerings, nil
}

func (r *repository) CountActive(ctx context.Context, professionalID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ServiceOffering{}).
		Where("professional_id = ?", professionalID).
		Where("status = ?", enums.ServiceStatusActive).
		Count(&count).Error
	return count, err
}

func (r *repository) SetStatus(ctx context.Context, ids []uuid.UUID, status enums.ServiceStatus) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.ServiceOffering{}).
		Where("id IN ?", ids).
		Update("status", status).Error
}
