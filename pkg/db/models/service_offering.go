package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agendfy/agendfy-backend/pkg/enums"
)

// ServiceOffering is a bookable service owned by a professional. Downgrades
// flip Status to inactive but never delete rows, so an upgrade restores the
// catalog untouched.
type ServiceOffering struct {
	ID              uuid.UUID           `gorm:"type:uuid;primaryKey"`
	ProfessionalID  uuid.UUID           `gorm:"column:professional_id;type:uuid;not null;index"`
	Name            string              `gorm:"column:name;not null"`
	DurationMinutes int                 `gorm:"column:duration_minutes;not null"`
	PriceCents      int64               `gorm:"column:price_cents;not null;default:0"`
	Status          enums.ServiceStatus `gorm:"column:status;not null;default:'active'"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (s *ServiceOffering) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
