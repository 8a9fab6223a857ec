package models

import (
	"encoding/json"
	"time"

	"github.com/oguzkaan/emlak-crm/utils"
	"gorm.io/gorm"
)

// DemandActivity is one immutable audit entry on a demand's activity log.
// Rows are append-only; nothing in the application ever updates them.
type DemandActivity struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	DemandID    uint            `gorm:"not null;index:idx_demand_activities_demand_id" json:"demand_id"`
	Action      string          `gorm:"size:64;not null;index:idx_demand_activities_action" json:"action"`
	OldStatus   *MatchStatus    `gorm:"type:match_status" json:"old_status,omitempty"`
	NewStatus   *MatchStatus    `gorm:"type:match_status" json:"new_status,omitempty"`
	ListingID   *uint           `json:"listing_id,omitempty"`
	ListingType *ListingType    `gorm:"type:listing_type" json:"listing_type,omitempty"`
	Note        *string         `gorm:"type:text" json:"note,omitempty"`
	ActorID     *uint           `gorm:"index:idx_demand_activities_actor_id" json:"actor_id,omitempty"`
	Metadata    json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_demand_activities_created_at" json:"created_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index:idx_demand_activities_deleted_at" json:"deleted_at,omitempty"`

	Demand *Demand `gorm:"foreignKey:DemandID;references:ID" json:"demand,omitempty"`
}

func (DemandActivity) TableName() string {
	return "demand_activities"
}

// BeforeCreate is called before creating a new record
func (a *DemandActivity) BeforeCreate(tx *gorm.DB) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	return nil
}

// Activity action constants
const (
	ActivityActionDemandCreated      = "demand_created"
	ActivityActionDemandUpdated      = "demand_updated"
	ActivityActionDemandDeleted      = "demand_deleted"
	ActivityActionMatchingRun        = "matching_run"
	ActivityActionMatchStatusChanged = "match_status_changed"
	ActivityActionMatchPresented     = "match_presented"
	ActivityActionMatchFeedback      = "match_feedback"
)

// DemandActivityFilter represents filter criteria for demand activity queries
type DemandActivityFilter struct {
	ID            *uint      `json:"id,omitempty"`
	DemandID      *uint      `json:"demand_id,omitempty"`
	Action        *string    `json:"action,omitempty"`
	ActorID       *uint      `json:"actor_id,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
