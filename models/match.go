package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oguzkaan/emlak-crm/utils"
	"gorm.io/gorm"
)

// MatchStatus represents the lifecycle status of a persisted match
type MatchStatus string

const (
	MatchStatusNew       MatchStatus = "new"
	MatchStatusReviewed  MatchStatus = "reviewed"
	MatchStatusPresented MatchStatus = "presented"
	MatchStatusAccepted  MatchStatus = "accepted"
	MatchStatusRejected  MatchStatus = "rejected"
)

// String returns the string representation of the status
func (s MatchStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusNew, MatchStatusReviewed, MatchStatusPresented,
		MatchStatusAccepted, MatchStatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status ends the match lifecycle
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusAccepted || s == MatchStatusRejected
}

// Scan implements the sql.Scanner interface for MatchStatus
func (s *MatchStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = MatchStatus(v)
	case []byte:
		*s = MatchStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into MatchStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for MatchStatus
func (s MatchStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid MatchStatus: %s", s)
	}
	return string(s), nil
}

// DimensionScore is the per-dimension slice of a score breakdown
type DimensionScore struct {
	Score     float64 `json:"score"`
	Weight    float64 `json:"weight"`
	Rationale string  `json:"rationale"`
}

// ScoreBreakdown is the structured value object persisted alongside the
// composite score. Legacy scores are distinguished by the Algorithm tag.
type ScoreBreakdown struct {
	Category   DimensionScore `json:"category"`
	Price      DimensionScore `json:"price"`
	Area       DimensionScore `json:"area"`
	Location   DimensionScore `json:"location"`
	Features   DimensionScore `json:"features"`
	Composite  float64        `json:"composite"`
	ComputedAt time.Time      `json:"computed_at"`
	Algorithm  string         `json:"algorithm"`
}

// Value implements the driver.Valuer interface for ScoreBreakdown
func (b ScoreBreakdown) Value() (driver.Value, error) {
	return json.Marshal(b)
}

// Scan implements the sql.Scanner interface for ScoreBreakdown
func (b *ScoreBreakdown) Scan(value any) error {
	if value == nil {
		*b = ScoreBreakdown{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ScoreBreakdown", value)
	}

	return json.Unmarshal(bytes, b)
}

// Match links exactly one demand to exactly one listing with a composite score.
// At most one active match exists per (demand_id, listing_id, listing_type).
type Match struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UUID             uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_matches_uuid" json:"uuid"`
	DemandID         uint           `gorm:"not null;index:idx_matches_demand_id;uniqueIndex:uk_matches_active_key,where:is_active" json:"demand_id"`
	ListingID        uint           `gorm:"not null;uniqueIndex:uk_matches_active_key,where:is_active" json:"listing_id"`
	ListingType      ListingType    `gorm:"type:listing_type;not null;uniqueIndex:uk_matches_active_key,where:is_active" json:"listing_type"`
	Score            float64        `gorm:"type:numeric(4,3);not null;index:idx_matches_score" json:"score"`
	Breakdown        ScoreBreakdown `gorm:"type:jsonb;not null" json:"breakdown"`
	Status           MatchStatus    `gorm:"type:match_status;not null;default:'new';index:idx_matches_status" json:"status"`
	StaffNotes       StringList     `gorm:"type:jsonb;not null;default:'[]'" json:"staff_notes"`
	PresentedAt      *time.Time     `json:"presented_at,omitempty"`
	PresentedBy      *uint          `json:"presented_by,omitempty"`
	CustomerFeedback *string        `gorm:"type:text" json:"customer_feedback,omitempty"`
	IsActive         *bool          `gorm:"default:true;index:idx_matches_is_active" json:"is_active"`
	CreatedBy        *uint          `json:"created_by,omitempty"`
	UpdatedBy        *uint          `json:"updated_by,omitempty"`
	CreatedAt        time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_matches_created_at" json:"created_at"`
	UpdatedAt        *time.Time     `json:"updated_at,omitempty"`
	DeletedAt        gorm.DeletedAt `gorm:"index:idx_matches_deleted_at" json:"deleted_at,omitempty"`

	// Relations
	Demand *Demand `gorm:"foreignKey:DemandID;references:ID" json:"demand,omitempty"`
}

// TableName returns the table name for the model
func (Match) TableName() string {
	return "matches"
}

// BeforeCreate is called before creating a new record
func (m *Match) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	if m.Status == "" {
		m.Status = MatchStatusNew
	}
	if m.IsActive == nil {
		m.IsActive = utils.ToPtr(true)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (m *Match) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	m.UpdatedAt = &now
	return nil
}

// ListingRef returns the tagged-union reference of the matched listing
func (m *Match) ListingRef() ListingRef {
	return ListingRef{Type: m.ListingType, ID: m.ListingID}
}

// AppendStaffNote appends a note to the match's staff note log.
// Prior notes are never overwritten.
func (m *Match) AppendStaffNote(note string) {
	if note == "" {
		return
	}
	m.StaffNotes = append(m.StaffNotes, note)
}

// CanTransitionTo reports whether newStatus follows the nominal lifecycle
// path new -> reviewed -> presented -> accepted/rejected. Status writes are
// permissive; this helper exists for callers that want the strict path.
func (m *Match) CanTransitionTo(newStatus MatchStatus) bool {
	switch m.Status {
	case MatchStatusNew:
		return newStatus == MatchStatusReviewed ||
			newStatus == MatchStatusPresented ||
			newStatus == MatchStatusRejected
	case MatchStatusReviewed:
		return newStatus == MatchStatusPresented ||
			newStatus == MatchStatusRejected
	case MatchStatusPresented:
		return newStatus == MatchStatusAccepted ||
			newStatus == MatchStatusRejected
	default:
		return false
	}
}

// GetStatusDisplayName returns a human-readable status name
func (m *Match) GetStatusDisplayName() string {
	switch m.Status {
	case MatchStatusNew:
		return "New"
	case MatchStatusReviewed:
		return "Reviewed"
	case MatchStatusPresented:
		return "Presented"
	case MatchStatusAccepted:
		return "Accepted"
	case MatchStatusRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// MatchFilter represents filter criteria for matches
type MatchFilter struct {
	ID            *uint        `json:"id,omitempty"`
	UUID          *uuid.UUID   `json:"uuid,omitempty"`
	DemandID      *uint        `json:"demand_id,omitempty"`
	ListingID     *uint        `json:"listing_id,omitempty"`
	ListingType   *ListingType `json:"listing_type,omitempty"`
	Status        *MatchStatus `json:"status,omitempty"`
	IsActive      *bool        `json:"is_active,omitempty"`
	MinScore      *float64     `json:"min_score,omitempty"`
	CreatedAfter  *time.Time   `json:"created_after,omitempty"`
	CreatedBefore *time.Time   `json:"created_before,omitempty"`
}
