// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"time"

	"github.com/oguzkaan/emlak-crm/app/dto"
	"github.com/oguzkaan/emlak-crm/models"
	"github.com/oguzkaan/emlak-crm/repository"
	"github.com/oguzkaan/emlak-crm/utils"
)

// ActorContext carries who performs an operation and when. Every mutating
// flow receives one explicitly; nothing reads the actor or the clock from
// ambient state, which keeps audit rows and tests deterministic.
type ActorContext struct {
	ActorID   *uint  `json:"actor_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	now time.Time
}

// NewActorContext creates an actor context stamped with the current UTC time
func NewActorContext(actorID *uint) *ActorContext {
	return &ActorContext{
		ActorID: actorID,
		now:     utils.UTCNow(),
	}
}

// NewActorContextAt creates an actor context with an explicit timestamp
func NewActorContextAt(actorID *uint, at time.Time) *ActorContext {
	return &ActorContext{
		ActorID: actorID,
		now:     at.UTC(),
	}
}

// Now returns the operation timestamp carried by the context
func (a *ActorContext) Now() time.Time {
	if a == nil || a.now.IsZero() {
		return utils.UTCNow()
	}
	return a.now
}

// Actor returns the acting staff ID, or nil for system-initiated operations
func (a *ActorContext) Actor() *uint {
	if a == nil {
		return nil
	}
	return a.ActorID
}

func getDemandByUUID(ctx context.Context, repo repository.DemandRepository, demandUUID string) (*models.Demand, error) {
	if demandUUID == "" {
		return nil, ErrDemandUUIDRequired
	}

	demand, err := repo.ByUUID(ctx, demandUUID)
	if err != nil {
		return nil, err
	}
	if demand == nil {
		return nil, ErrDemandNotFound
	}

	return demand, nil
}

func getMatchByUUID(ctx context.Context, repo repository.MatchRepository, matchUUID string) (*models.Match, error) {
	match, err := repo.ByUUID(ctx, matchUUID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}
	if match.IsActive != nil && !*match.IsActive {
		return nil, ErrMatchInactive
	}

	return match, nil
}

// ToDemandDTO converts a demand model to its API representation
func ToDemandDTO(demand *models.Demand) dto.DemandResponse {
	resp := dto.DemandResponse{
		UUID:           demand.UUID.String(),
		CustomerID:     demand.CustomerID,
		StaffID:        demand.StaffID,
		Category:       demand.Category.String(),
		SubType:        demand.SubType,
		Status:         demand.Status.String(),
		Priority:       demand.Priority,
		PriceMin:       demand.PriceMin,
		PriceMax:       demand.PriceMax,
		AreaMin:        demand.AreaMin,
		AreaMax:        demand.AreaMax,
		Locations:      demand.Locations,
		Features:       demand.Features,
		Notes:          demand.Notes,
		LastActivityAt: demand.LastActivityAt,
		CreatedAt:      demand.CreatedAt,
		UpdatedAt:      demand.UpdatedAt,
	}

	if demand.Customer != nil {
		name := demand.Customer.FullName()
		resp.CustomerName = &name
	}

	return resp
}

// ToDemandActivityDTO converts an activity row to its API representation
func ToDemandActivityDTO(activity *models.DemandActivity) dto.DemandActivityResponse {
	resp := dto.DemandActivityResponse{
		Action:    activity.Action,
		Note:      activity.Note,
		ActorID:   activity.ActorID,
		ListingID: activity.ListingID,
		CreatedAt: activity.CreatedAt,
	}

	if activity.OldStatus != nil {
		s := activity.OldStatus.String()
		resp.OldStatus = &s
	}
	if activity.NewStatus != nil {
		s := activity.NewStatus.String()
		resp.NewStatus = &s
	}
	if activity.ListingType != nil {
		t := activity.ListingType.String()
		resp.ListingType = &t
	}

	return resp
}
