package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Appointment is a booked slot. Clients are not a first-class entity: the
// distinct set of client phone numbers across a professional's appointments
// is the canonical client list used for plan-limit accounting.
type Appointment struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProfessionalID uuid.UUID  `gorm:"column:professional_id;type:uuid;not null;index"`
	ServiceID      *uuid.UUID `gorm:"column:service_id;type:uuid"`
	ClientName     string     `gorm:"column:client_name;not null"`
	ClientPhone    string     `gorm:"column:client_phone;not null;index"`
	StartsAt       time.Time  `gorm:"column:starts_at;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
