package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/oguzkaan/emlak-crm/utils"
	"gorm.io/gorm"
)

// Staff represents an agency staff member responsible for demands and presentations
type Staff struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_staff_uuid" json:"uuid"`
	FirstName string     `gorm:"size:100;not null" json:"first_name"`
	LastName  string     `gorm:"size:100;not null" json:"last_name"`
	Mobile    *string    `gorm:"size:20" json:"mobile,omitempty"`
	IsActive  *bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (Staff) TableName() string {
	return "staff"
}

// BeforeCreate is called before creating a new record
func (s *Staff) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	return nil
}

// FullName returns the staff member's display name
func (s *Staff) FullName() string {
	return s.FirstName + " " + s.LastName
}

// StaffFilter represents filter criteria for staff
type StaffFilter struct {
	ID       *uint `json:"id,omitempty"`
	IsActive *bool `json:"is_active,omitempty"`
}
