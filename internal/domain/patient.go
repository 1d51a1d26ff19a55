package domain

import (
	"time"

	"github.com/google/uuid"
)

// Patient is the owning entity for health records. Every user gets one
// default patient on first ingestion; identity fields are filled in when a
// bundle carries a Patient resource.
type Patient struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	FHIRID *string `gorm:"column:fhir_id" json:"fhir_id,omitempty"`
	Gender *string `gorm:"column:gender" json:"gender,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Patient) TableName() string { return "patients" }
