package domain

import (
	"time"

	"github.com/google/uuid"
)

// User exists for ownership and token subjects; credential flows live in a
// separate service and never reach this backend.
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email *string   `gorm:"column:email;uniqueIndex" json:"email,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }
