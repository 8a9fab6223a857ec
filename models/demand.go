package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/oguzkaan/emlak-crm/utils"
	"gorm.io/gorm"
)

// DemandCategory represents the property category a demand targets
type DemandCategory string

const (
	DemandCategoryLand        DemandCategory = "land"
	DemandCategoryCommercial  DemandCategory = "commercial"
	DemandCategoryResidential DemandCategory = "residential"
	DemandCategoryHospitality DemandCategory = "hospitality"
)

// String returns the string representation of the category
func (c DemandCategory) String() string {
	return string(c)
}

// Valid checks if the category is valid
func (c DemandCategory) Valid() bool {
	switch c {
	case DemandCategoryLand, DemandCategoryCommercial,
		DemandCategoryResidential, DemandCategoryHospitality:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for DemandCategory
func (c *DemandCategory) Scan(value any) error {
	if value == nil {
		*c = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*c = DemandCategory(v)
	case []byte:
		*c = DemandCategory(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DemandCategory", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DemandCategory
func (c DemandCategory) Value() (driver.Value, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid DemandCategory: %s", c)
	}
	return string(c), nil
}

// DemandStatus represents the lifecycle status of a demand
type DemandStatus string

const (
	DemandStatusActive      DemandStatus = "active"
	DemandStatusNegotiating DemandStatus = "negotiating"
	DemandStatusPaused      DemandStatus = "paused"
	DemandStatusCompleted   DemandStatus = "completed"
	DemandStatusCancelled   DemandStatus = "cancelled"
)

// ActiveDemandStatuses lists the statuses in which a demand participates in matching
var ActiveDemandStatuses = []DemandStatus{
	DemandStatusActive,
	DemandStatusNegotiating,
}

// String returns the string representation of the status
func (s DemandStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s DemandStatus) Valid() bool {
	switch s {
	case DemandStatusActive, DemandStatusNegotiating, DemandStatusPaused,
		DemandStatusCompleted, DemandStatusCancelled:
		return true
	default:
		return false
	}
}

// IsMatchable reports whether a demand in this status may be matched
func (s DemandStatus) IsMatchable() bool {
	for _, a := range ActiveDemandStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the demand lifecycle
func (s DemandStatus) IsTerminal() bool {
	return s == DemandStatusCompleted || s == DemandStatusCancelled
}

// Scan implements the sql.Scanner interface for DemandStatus
func (s *DemandStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = DemandStatus(v)
	case []byte:
		*s = DemandStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DemandStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DemandStatus
func (s DemandStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid DemandStatus: %s", s)
	}
	return string(s), nil
}

// LocationPreference is one entry of a demand's ordered location wish list.
// District and subdistrict refine the city and are optional.
type LocationPreference struct {
	CityID        uint  `json:"city_id"`
	DistrictID    *uint `json:"district_id,omitempty"`
	SubdistrictID *uint `json:"subdistrict_id,omitempty"`
}

// LocationPreferences is a JSONB-backed ordered list of location preferences
type LocationPreferences []LocationPreference

// Value implements the driver.Valuer interface for LocationPreferences
func (l LocationPreferences) Value() (driver.Value, error) {
	if l == nil {
		l = LocationPreferences{}
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for LocationPreferences
func (l *LocationPreferences) Scan(value any) error {
	if value == nil {
		*l = LocationPreferences{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into LocationPreferences", value)
	}

	return json.Unmarshal(bytes, l)
}

// FeatureMap is a JSONB-backed map of feature name to desired or actual value
type FeatureMap map[string]any

// Value implements the driver.Valuer interface for FeatureMap
func (m FeatureMap) Value() (driver.Value, error) {
	if m == nil {
		m = FeatureMap{}
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for FeatureMap
func (m *FeatureMap) Scan(value any) error {
	if value == nil {
		*m = FeatureMap{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into FeatureMap", value)
	}

	return json.Unmarshal(bytes, m)
}

// StringList is a JSONB-backed append-only list of free-form notes
type StringList []string

// Value implements the driver.Valuer interface for StringList
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for StringList
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = StringList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}

	return json.Unmarshal(bytes, l)
}

// Demand represents a customer's standing purchase or rental request
type Demand struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:uk_demands_uuid" json:"uuid"`
	CustomerID     uint                `gorm:"not null;index:idx_demands_customer_id" json:"customer_id"`
	StaffID        *uint               `gorm:"index:idx_demands_staff_id" json:"staff_id,omitempty"`
	Category       DemandCategory      `gorm:"type:demand_category;not null;index:idx_demands_category" json:"category"`
	SubType        *string             `gorm:"size:100" json:"sub_type,omitempty"`
	Status         DemandStatus        `gorm:"type:demand_status;not null;default:'active';index:idx_demands_status" json:"status"`
	Priority       *int16              `json:"priority,omitempty"`
	PriceMin       *float64            `gorm:"type:numeric(15,2)" json:"price_min,omitempty"`
	PriceMax       *float64            `gorm:"type:numeric(15,2)" json:"price_max,omitempty"`
	AreaMin        *float64            `gorm:"type:numeric(12,2)" json:"area_min,omitempty"`
	AreaMax        *float64            `gorm:"type:numeric(12,2)" json:"area_max,omitempty"`
	Locations      LocationPreferences `gorm:"type:jsonb;not null;default:'[]'" json:"locations"`
	Features       FeatureMap          `gorm:"type:jsonb;not null;default:'{}'" json:"features"`
	Notes          StringList          `gorm:"type:jsonb;not null;default:'[]'" json:"notes"`
	LastActivityAt *time.Time          `gorm:"index:idx_demands_last_activity_at" json:"last_activity_at,omitempty"`
	CreatedAt      time.Time           `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_demands_created_at" json:"created_at"`
	UpdatedAt      *time.Time          `json:"updated_at,omitempty"`
	DeletedAt      gorm.DeletedAt      `gorm:"index:idx_demands_deleted_at" json:"deleted_at,omitempty"`

	// Relations
	Customer   *Customer        `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	Staff      *Staff           `gorm:"foreignKey:StaffID;references:ID" json:"staff,omitempty"`
	Matches    []Match          `gorm:"foreignKey:DemandID" json:"matches,omitempty"`
	Activities []DemandActivity `gorm:"foreignKey:DemandID" json:"activities,omitempty"`
}

// TableName returns the table name for the model
func (Demand) TableName() string {
	return "demands"
}

// BeforeCreate is called before creating a new record
func (d *Demand) BeforeCreate(tx *gorm.DB) error {
	if d.UUID == uuid.Nil {
		d.UUID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DemandStatusActive
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (d *Demand) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	d.UpdatedAt = &now
	return nil
}

// AppendNote appends a note to the demand's note log. Existing notes are never rewritten.
func (d *Demand) AppendNote(note string) {
	if note == "" {
		return
	}
	d.Notes = append(d.Notes, note)
}

// HasValidBounds checks the min <= max invariants on price and area ranges
func (d *Demand) HasValidBounds() bool {
	if d.PriceMin != nil && d.PriceMax != nil && *d.PriceMin > *d.PriceMax {
		return false
	}
	if d.AreaMin != nil && d.AreaMax != nil && *d.AreaMin > *d.AreaMax {
		return false
	}
	return true
}

// MatchingFields is a snapshot of the demand fields the matching engine depends on.
// An update that leaves this snapshot unchanged must not re-trigger matching.
type MatchingFields struct {
	Category  DemandCategory
	SubType   *string
	PriceMin  *float64
	PriceMax  *float64
	AreaMin   *float64
	AreaMax   *float64
	Locations LocationPreferences
	Features  FeatureMap
}

// MatchingFields returns the matching-relevant snapshot of the demand
func (d *Demand) MatchingFields() MatchingFields {
	return MatchingFields{
		Category:  d.Category,
		SubType:   d.SubType,
		PriceMin:  d.PriceMin,
		PriceMax:  d.PriceMax,
		AreaMin:   d.AreaMin,
		AreaMax:   d.AreaMax,
		Locations: d.Locations,
		Features:  d.Features,
	}
}

// DiffMatchingFields compares two matching snapshots and returns the names of changed fields
func DiffMatchingFields(old, updated MatchingFields) []string {
	changed := []string{}
	if old.Category != updated.Category {
		changed = append(changed, "category")
	}
	if !equalStringPtr(old.SubType, updated.SubType) {
		changed = append(changed, "sub_type")
	}
	if !equalFloatPtr(old.PriceMin, updated.PriceMin) || !equalFloatPtr(old.PriceMax, updated.PriceMax) {
		changed = append(changed, "price_range")
	}
	if !equalFloatPtr(old.AreaMin, updated.AreaMin) || !equalFloatPtr(old.AreaMax, updated.AreaMax) {
		changed = append(changed, "area_range")
	}
	if !reflect.DeepEqual(old.Locations, updated.Locations) {
		changed = append(changed, "locations")
	}
	if !reflect.DeepEqual(old.Features, updated.Features) {
		changed = append(changed, "features")
	}
	return changed
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// DemandFilter represents filter criteria for demands
type DemandFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	CustomerID    *uint           `json:"customer_id,omitempty"`
	StaffID       *uint           `json:"staff_id,omitempty"`
	Category      *DemandCategory `json:"category,omitempty"`
	Status        *DemandStatus   `json:"status,omitempty"`
	Statuses      []DemandStatus  `json:"statuses,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
}
