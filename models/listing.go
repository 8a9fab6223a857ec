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

// ListingType discriminates the concrete listing table a match points at.
// Listings are polymorphic: one table per category, referenced by (type, id).
type ListingType string

const (
	ListingTypeLand        ListingType = "land"
	ListingTypeCommercial  ListingType = "commercial"
	ListingTypeResidential ListingType = "residential"
	ListingTypeHospitality ListingType = "hospitality"
)

// String returns the string representation of the listing type
func (t ListingType) String() string {
	return string(t)
}

// Valid checks if the listing type is valid
func (t ListingType) Valid() bool {
	switch t {
	case ListingTypeLand, ListingTypeCommercial,
		ListingTypeResidential, ListingTypeHospitality:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for ListingType
func (t *ListingType) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = ListingType(v)
	case []byte:
		*t = ListingType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ListingType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ListingType
func (t ListingType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid ListingType: %s", t)
	}
	return string(t), nil
}

// ListingTypeForCategory maps a demand category to its listing type
func ListingTypeForCategory(c DemandCategory) (ListingType, bool) {
	switch c {
	case DemandCategoryLand:
		return ListingTypeLand, true
	case DemandCategoryCommercial:
		return ListingTypeCommercial, true
	case DemandCategoryResidential:
		return ListingTypeResidential, true
	case DemandCategoryHospitality:
		return ListingTypeHospitality, true
	default:
		return "", false
	}
}

// Category maps a listing type back to its demand category
func (t ListingType) Category() DemandCategory {
	return DemandCategory(t)
}

// ListingRef is the tagged-union reference to one concrete listing row
type ListingRef struct {
	Type ListingType `json:"type"`
	ID   uint        `json:"id"`
}

// String returns a stable textual form of the reference
func (r ListingRef) String() string {
	return fmt.Sprintf("%s/%d", r.Type, r.ID)
}

// ListingStatus represents the sale/rental status of a listing
type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "active"
	ListingStatusInactive ListingStatus = "inactive"
	ListingStatusSold     ListingStatus = "sold"
	ListingStatusRented   ListingStatus = "rented"
)

// String returns the string representation of the status
func (s ListingStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusActive, ListingStatusInactive,
		ListingStatusSold, ListingStatusRented:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for ListingStatus
func (s *ListingStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = ListingStatus(v)
	case []byte:
		*s = ListingStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ListingStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ListingStatus
func (s ListingStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ListingStatus: %s", s)
	}
	return string(s), nil
}

// Address is one postal location of a listing. District and subdistrict are optional.
type Address struct {
	CityID        uint  `json:"city_id"`
	DistrictID    *uint `json:"district_id,omitempty"`
	SubdistrictID *uint `json:"subdistrict_id,omitempty"`
}

// AddressList is a JSONB-backed list of listing addresses
type AddressList []Address

// Value implements the driver.Valuer interface for AddressList
func (l AddressList) Value() (driver.Value, error) {
	if l == nil {
		l = AddressList{}
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for AddressList
func (l *AddressList) Scan(value any) error {
	if value == nil {
		*l = AddressList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into AddressList", value)
	}

	return json.Unmarshal(bytes, l)
}

// ListingCore holds the columns shared by every concrete listing table
type ListingCore struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID      `gorm:"type:uuid;not null" json:"uuid"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	TypeTag   *string        `gorm:"size:100" json:"type_tag,omitempty"`
	Price     *float64       `gorm:"type:numeric(15,2)" json:"price,omitempty"`
	Area      *float64       `gorm:"type:numeric(12,2)" json:"area,omitempty"`
	Status    ListingStatus  `gorm:"type:listing_status;not null;default:'active'" json:"status"`
	Published *bool          `gorm:"default:false" json:"published"`
	Addresses AddressList    `gorm:"type:jsonb;not null;default:'[]'" json:"addresses"`
	Features  FeatureMap     `gorm:"type:jsonb;not null;default:'{}'" json:"features"`
	CreatedAt time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate is called before creating a new record
func (c *ListingCore) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = ListingStatusActive
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// IsMatchable reports whether the listing may appear as a matching candidate
func (c *ListingCore) IsMatchable() bool {
	return c.Status == ListingStatusActive && utils.IsTrue(c.Published)
}

func (c *ListingCore) snapshot(t ListingType) ListingSnapshot {
	return ListingSnapshot{
		Ref:       ListingRef{Type: t, ID: c.ID},
		TypeTag:   c.TypeTag,
		Price:     c.Price,
		Area:      c.Area,
		Addresses: c.Addresses,
		Features:  c.Features,
	}
}

// ResidentialListing is a residential property record
type ResidentialListing struct {
	ListingCore `gorm:"embedded"`
	RoomCount   *int16 `json:"room_count,omitempty"`
	FloorNo     *int16 `json:"floor_no,omitempty"`
}

func (ResidentialListing) TableName() string {
	return "residential_listings"
}

// Snapshot returns the read-only projection consumed by the matching engine
func (l *ResidentialListing) Snapshot() ListingSnapshot {
	return l.snapshot(ListingTypeResidential)
}

// CommercialListing is a shop/office property record
type CommercialListing struct {
	ListingCore  `gorm:"embedded"`
	BusinessType *string `gorm:"size:100" json:"business_type,omitempty"`
}

func (CommercialListing) TableName() string {
	return "commercial_listings"
}

// Snapshot returns the read-only projection consumed by the matching engine
func (l *CommercialListing) Snapshot() ListingSnapshot {
	return l.snapshot(ListingTypeCommercial)
}

// LandListing is a land parcel record
type LandListing struct {
	ListingCore `gorm:"embedded"`
	ParcelNo    *string `gorm:"size:50" json:"parcel_no,omitempty"`
	ZoningCode  *string `gorm:"size:50" json:"zoning_code,omitempty"`
}

func (LandListing) TableName() string {
	return "land_listings"
}

// Snapshot returns the read-only projection consumed by the matching engine
func (l *LandListing) Snapshot() ListingSnapshot {
	return l.snapshot(ListingTypeLand)
}

// HospitalityListing is a hotel/pension property record
type HospitalityListing struct {
	ListingCore `gorm:"embedded"`
	StarRating  *int16 `json:"star_rating,omitempty"`
	BedCount    *int16 `json:"bed_count,omitempty"`
}

func (HospitalityListing) TableName() string {
	return "hospitality_listings"
}

// Snapshot returns the read-only projection consumed by the matching engine
func (l *HospitalityListing) Snapshot() ListingSnapshot {
	return l.snapshot(ListingTypeHospitality)
}

// ListingSnapshot is the flattened, read-only view of one candidate listing.
// The matching engine only ever sees snapshots, never the GORM rows.
type ListingSnapshot struct {
	Ref       ListingRef  `json:"ref"`
	TypeTag   *string     `json:"type_tag,omitempty"`
	Price     *float64    `json:"price,omitempty"`
	Area      *float64    `json:"area,omitempty"`
	Addresses AddressList `json:"addresses"`
	Features  FeatureMap  `json:"features"`
}
