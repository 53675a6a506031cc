package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agendfy/agendfy-backend/pkg/db/models"
)

// Repository handles appointment persistence. The entitlement layer only
// ever reads from it; bookings are written by the scheduling flow.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, appointment *models.Appointment) error
	CountByProfessional(ctx context.Context, professionalID uuid.UUID) (int64, error)
	DistinctClientPhones(ctx context.Context, professionalID uuid.UUID) ([]string, error)
	CountForMonth(ctx context.Context, professionalID uuid.UUID, ref time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an appointment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, appointment *models.Appointment) error {
	return r.db.WithContext(ctx).Create(appointment).Error
}

func (r *repository) CountByProfessional(ctx context.Context, professionalID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("professional_id = ?", professionalID).
		Count(&count).Error
	return count, err
}

func (r *repository) DistinctClientPhones(ctx context.Context, professionalID uuid.UUID) ([]string, error) {
	var phones []string
	err := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("professional_id = ?", professionalID).
		Distinct("client_phone").
		Pluck("client_phone", &phones).Error
	if err != nil {
		return nil, err
	}
	return phones, nil
}

func (r *repository) CountForMonth(ctx context.Context, professionalID uuid.UUID, ref time.Time) (int64, error) {
	monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("professional_id = ?", professionalID).
		Where("starts_at >= ? AND starts_at < ?", monthStart, monthEnd).
		Count(&count).Error
	return count, err
}
