package dto

import (
	"time"

	"github.com/oguzkaan/emlak-crm/models"
)

// CreateDemandRequest represents the request to register a new customer demand
type CreateDemandRequest struct {
	CustomerID uint                       `json:"customer_id" validate:"required"`
	StaffID    *uint                      `json:"staff_id,omitempty"`
	Category   string                     `json:"category" validate:"required,oneof=land commercial residential hospitality"`
	SubType    *string                    `json:"sub_type,omitempty" validate:"omitempty,max=100"`
	Priority   *int16                     `json:"priority,omitempty"`
	PriceMin   *float64                   `json:"price_min,omitempty" validate:"omitempty,gte=0"`
	PriceMax   *float64                   `json:"price_max,omitempty" validate:"omitempty,gte=0"`
	AreaMin    *float64                   `json:"area_min,omitempty" validate:"omitempty,gte=0"`
	AreaMax    *float64                   `json:"area_max,omitempty" validate:"omitempty,gte=0"`
	Locations  models.LocationPreferences `json:"locations,omitempty"`
	Features   models.FeatureMap          `json:"features,omitempty"`
	Note       *string                    `json:"note,omitempty" validate:"omitempty,max=2000"`
}

// UpdateDemandRequest represents the request to update an existing demand.
// Only the provided fields change; absent fields keep their current value.
type UpdateDemandRequest struct {
	UUID      string                      `json:"-"`
	Status    *string                     `json:"status,omitempty" validate:"omitempty,oneof=active negotiating paused completed cancelled"`
	SubType   *string                     `json:"sub_type,omitempty" validate:"omitempty,max=100"`
	Priority  *int16                      `json:"priority,omitempty"`
	PriceMin  *float64                    `json:"price_min,omitempty" validate:"omitempty,gte=0"`
	PriceMax  *float64                    `json:"price_max,omitempty" validate:"omitempty,gte=0"`
	AreaMin   *float64                    `json:"area_min,omitempty" validate:"omitempty,gte=0"`
	AreaMax   *float64                    `json:"area_max,omitempty" validate:"omitempty,gte=0"`
	Locations *models.LocationPreferences `json:"locations,omitempty"`
	Features  *models.FeatureMap          `json:"features,omitempty"`
	Note      *string                     `json:"note,omitempty" validate:"omitempty,max=2000"`
}

// DemandResponse represents one demand in API responses
type DemandResponse struct {
	UUID           string                     `json:"uuid"`
	CustomerID     uint                       `json:"customer_id"`
	CustomerName   *string                    `json:"customer_name,omitempty"`
	StaffID        *uint                      `json:"staff_id,omitempty"`
	Category       string                     `json:"category"`
	SubType        *string                    `json:"sub_type,omitempty"`
	Status         string                     `json:"status"`
	Priority       *int16                     `json:"priority,omitempty"`
	PriceMin       *float64                   `json:"price_min,omitempty"`
	PriceMax       *float64                   `json:"price_max,omitempty"`
	AreaMin        *float64                   `json:"area_min,omitempty"`
	AreaMax        *float64                   `json:"area_max,omitempty"`
	Locations      models.LocationPreferences `json:"locations"`
	Features       models.FeatureMap          `json:"features"`
	Notes          []string                   `json:"notes"`
	LastActivityAt *time.Time                 `json:"last_activity_at,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      *time.Time                 `json:"updated_at,omitempty"`
}

// CreateDemandResponse represents the response to demand creation
type CreateDemandResponse struct {
	Demand       DemandResponse `json:"demand"`
	MatchesFound int            `json:"matches_found"`
}

// UpdateDemandResponse represents the response to a demand update
type UpdateDemandResponse struct {
	Demand    DemandResponse `json:"demand"`
	Rematched bool           `json:"rematched"`
}

// ListDemandsRequest represents the request to list demands
type ListDemandsRequest struct {
	CustomerID *uint   `json:"customer_id,omitempty"`
	StaffID    *uint   `json:"staff_id,omitempty"`
	Category   *string `json:"category,omitempty" validate:"omitempty,oneof=land commercial residential hospitality"`
	Status     *string `json:"status,omitempty" validate:"omitempty,oneof=active negotiating paused completed cancelled"`
	Page       int     `json:"page" validate:"omitempty,gte=1"`
	PageSize   int     `json:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// ListDemandsResponse represents a page of demands
type ListDemandsResponse struct {
	Demands []DemandResponse `json:"demands"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
}

// DemandActivityResponse represents one audit entry on a demand
type DemandActivityResponse struct {
	Action      string    `json:"action"`
	OldStatus   *string   `json:"old_status,omitempty"`
	NewStatus   *string   `json:"new_status,omitempty"`
	ListingID   *uint     `json:"listing_id,omitempty"`
	ListingType *string   `json:"listing_type,omitempty"`
	Note        *string   `json:"note,omitempty"`
	ActorID     *uint     `json:"actor_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListDemandActivitiesResponse represents a demand's activity log
type ListDemandActivitiesResponse struct {
	Activities []DemandActivityResponse `json:"activities"`
}
