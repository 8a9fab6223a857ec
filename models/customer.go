// Package models contains domain entities and business models for the portfolio CRM
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/oguzkaan/emlak-crm/utils"
	"gorm.io/gorm"
)

// Customer represents a portfolio customer who places demands
type Customer struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_customers_uuid" json:"uuid"`
	FirstName string     `gorm:"size:100;not null" json:"first_name"`
	LastName  string     `gorm:"size:100;not null" json:"last_name"`
	Mobile    string     `gorm:"size:20;not null;uniqueIndex:uk_customers_mobile" json:"mobile"`
	Email     *string    `gorm:"size:255;index:idx_customers_email" json:"email,omitempty"`
	IsActive  *bool      `gorm:"default:true;index:idx_customers_is_active" json:"is_active"`
	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_customers_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	Demands []Demand `gorm:"foreignKey:CustomerID" json:"demands,omitempty"`
}

func (Customer) TableName() string {
	return "customers"
}

// BeforeCreate is called before creating a new record
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// FullName returns the customer's display name
func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// CustomerFilter represents filter criteria for customers
type CustomerFilter struct {
	ID       *uint   `json:"id,omitempty"`
	Mobile   *string `json:"mobile,omitempty"`
	Email    *string `json:"email,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}
