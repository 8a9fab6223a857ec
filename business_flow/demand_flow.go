package businessflow

import (
	"context"
	"encoding/json"
	"log"

	"github.com/oguzkaan/emlak-crm/app/dto"
	"github.com/oguzkaan/emlak-crm/app/services"
	"github.com/oguzkaan/emlak-crm/models"
	"github.com/oguzkaan/emlak-crm/repository"
	"github.com/oguzkaan/emlak-crm/utils"
	"gorm.io/gorm"
)

// DemandFlow handles the demand CRUD business logic and drives the matching
// engine on criteria changes.
type DemandFlow interface {
	CreateDemand(ctx context.Context, req *dto.CreateDemandRequest, actor *ActorContext) (*dto.CreateDemandResponse, error)
	UpdateDemand(ctx context.Context, req *dto.UpdateDemandRequest, actor *ActorContext) (*dto.UpdateDemandResponse, error)
	GetDemand(ctx context.Context, demandUUID string) (*dto.DemandResponse, error)
	ListDemands(ctx context.Context, req *dto.ListDemandsRequest) (*dto.ListDemandsResponse, error)
	DeleteDemand(ctx context.Context, demandUUID string, actor *ActorContext) error
	ListActivities(ctx context.Context, demandUUID string, limit, offset int) (*dto.ListDemandActivitiesResponse, error)
}

// DemandFlowImpl implements the demand business flow
type DemandFlowImpl struct {
	demandRepo   repository.DemandRepository
	customerRepo repository.CustomerRepository
	staffRepo    repository.StaffRepository
	activityRepo repository.DemandActivityRepository
	matching     MatchingFlow
	notifier     services.NotificationService
	db           *gorm.DB
}

// NewDemandFlow creates a new demand flow instance
func NewDemandFlow(
	demandRepo repository.DemandRepository,
	customerRepo repository.CustomerRepository,
	staffRepo repository.StaffRepository,
	activityRepo repository.DemandActivityRepository,
	db *gorm.DB,
	matching MatchingFlow,
	notifier services.NotificationService,
) DemandFlow {
	return &DemandFlowImpl{
		demandRepo:   demandRepo,
		customerRepo: customerRepo,
		staffRepo:    staffRepo,
		activityRepo: activityRepo,
		matching:     matching,
		notifier:     notifier,
		db:           db,
	}
}

// CreateDemand registers a new demand and immediately runs matching for it
func (s *DemandFlowImpl) CreateDemand(ctx context.Context, req *dto.CreateDemandRequest, actor *ActorContext) (*dto.CreateDemandResponse, error) {
	category := models.DemandCategory(req.Category)
	if !category.Valid() {
		return nil, NewBusinessError("DEMAND_CATEGORY_INVALID", "Demand category is invalid", ErrDemandCategoryInvalid)
	}

	customer, err := s.customerRepo.ByID(ctx, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}
	if customer == nil {
		return nil, NewBusinessError("CUSTOMER_NOT_FOUND", "Customer not found", ErrCustomerNotFound)
	}
	if !utils.IsTrue(customer.IsActive) {
		return nil, NewBusinessError("CUSTOMER_INACTIVE", "Customer is inactive", ErrCustomerInactive)
	}

	if req.StaffID != nil {
		staff, err := s.staffRepo.ByID(ctx, *req.StaffID)
		if err != nil {
			return nil, NewBusinessError("STAFF_LOOKUP_FAILED", "Failed to lookup staff member", err)
		}
		if staff == nil {
			return nil, NewBusinessError("STAFF_NOT_FOUND", "Staff member not found", ErrStaffNotFound)
		}
	}

	now := actor.Now()
	demand := &models.Demand{
		CustomerID:     req.CustomerID,
		StaffID:        req.StaffID,
		Category:       category,
		SubType:        req.SubType,
		Status:         models.DemandStatusActive,
		Priority:       req.Priority,
		PriceMin:       req.PriceMin,
		PriceMax:       req.PriceMax,
		AreaMin:        req.AreaMin,
		AreaMax:        req.AreaMax,
		Locations:      req.Locations,
		Features:       req.Features,
		LastActivityAt: &now,
		CreatedAt:      now,
	}
	if req.Note != nil {
		demand.AppendNote(*req.Note)
	}

	if err := validateBounds(demand); err != nil {
		return nil, err
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.demandRepo.Save(txCtx, demand); err != nil {
			return err
		}

		activity := &models.DemandActivity{
			DemandID:  demand.ID,
			Action:    models.ActivityActionDemandCreated,
			ActorID:   actor.Actor(),
			CreatedAt: now,
		}
		return s.activityRepo.Save(txCtx, activity)
	})
	if err != nil {
		return nil, NewBusinessError("DEMAND_CREATION_FAILED", "Failed to create demand", err)
	}

	demand.Customer = customer

	matches, err := s.matching.RunMatchingForDemand(ctx, demand, true, actor)
	if err != nil {
		// The demand itself is committed; a failed first run is retried
		// by the next sweep.
		log.Printf("initial matching failed for demand %s: %v", demand.UUID, err)
	}

	return &dto.CreateDemandResponse{
		Demand:       ToDemandDTO(demand),
		MatchesFound: len(matches),
	}, nil
}

// UpdateDemand applies a partial update. Matching re-runs only when a field
// the engine depends on actually changed; note or priority edits do not
// re-trigger it.
func (s *DemandFlowImpl) UpdateDemand(ctx context.Context, req *dto.UpdateDemandRequest, actor *ActorContext) (*dto.UpdateDemandResponse, error) {
	hasUpdateFields := req.Status != nil || req.SubType != nil || req.Priority != nil ||
		req.PriceMin != nil || req.PriceMax != nil || req.AreaMin != nil || req.AreaMax != nil ||
		req.Locations != nil || req.Features != nil || req.Note != nil
	if !hasUpdateFields {
		return nil, NewBusinessError("DEMAND_UPDATE_EMPTY", "At least one field must be provided for update", ErrDemandUpdateRequired)
	}

	demand, err := getDemandByUUID(ctx, s.demandRepo, req.UUID)
	if err != nil {
		return nil, NewBusinessError("DEMAND_LOOKUP_FAILED", "Failed to lookup demand", err)
	}

	before := demand.MatchingFields()
	now := actor.Now()

	if req.Status != nil {
		status := models.DemandStatus(*req.Status)
		if !status.Valid() {
			return nil, NewBusinessError("DEMAND_STATUS_INVALID", "Demand status is invalid", ErrDemandStatusInvalid)
		}
		demand.Status = status
	}
	if req.SubType != nil {
		demand.SubType = req.SubType
	}
	if req.Priority != nil {
		demand.Priority = req.Priority
	}
	if req.PriceMin != nil {
		demand.PriceMin = req.PriceMin
	}
	if req.PriceMax != nil {
		demand.PriceMax = req.PriceMax
	}
	if req.AreaMin != nil {
		demand.AreaMin = req.AreaMin
	}
	if req.AreaMax != nil {
		demand.AreaMax = req.AreaMax
	}
	if req.Locations != nil {
		demand.Locations = *req.Locations
	}
	if req.Features != nil {
		demand.Features = *req.Features
	}
	if req.Note != nil {
		demand.AppendNote(*req.Note)
	}

	if err := validateBounds(demand); err != nil {
		return nil, err
	}

	changedFields := models.DiffMatchingFields(before, demand.MatchingFields())

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		demand.UpdatedAt = &now
		demand.LastActivityAt = &now
		if err := s.demandRepo.Update(txCtx, *demand); err != nil {
			return err
		}

		metadata, _ := json.Marshal(map[string]any{"changed_fields": changedFields})
		activity := &models.DemandActivity{
			DemandID:  demand.ID,
			Action:    models.ActivityActionDemandUpdated,
			ActorID:   actor.Actor(),
			Metadata:  metadata,
			CreatedAt: now,
		}
		return s.activityRepo.Save(txCtx, activity)
	})
	if err != nil {
		return nil, NewBusinessError("DEMAND_UPDATE_FAILED", "Failed to update demand", err)
	}

	rematched := false
	if len(changedFields) > 0 {
		if err := s.notifier.NotifyDemandUpdated(demand, changedFields); err != nil {
			log.Printf("demand-updated notification failed for demand %s: %v", demand.UUID, err)
		}

		if _, err := s.matching.RunMatchingForDemand(ctx, demand, true, actor); err != nil {
			log.Printf("re-matching failed for demand %s: %v", demand.UUID, err)
		} else {
			rematched = true
		}
	}

	return &dto.UpdateDemandResponse{
		Demand:    ToDemandDTO(demand),
		Rematched: rematched,
	}, nil
}

// GetDemand retrieves one demand by UUID
func (s *DemandFlowImpl) GetDemand(ctx context.Context, demandUUID string) (*dto.DemandResponse, error) {
	demand, err := getDemandByUUID(ctx, s.demandRepo, demandUUID)
	if err != nil {
		return nil, NewBusinessError("DEMAND_LOOKUP_FAILED", "Failed to lookup demand", err)
	}

	resp := ToDemandDTO(demand)
	return &resp, nil
}

// ListDemands retrieves a page of demands matching the filter
func (s *DemandFlowImpl) ListDemands(ctx context.Context, req *dto.ListDemandsRequest) (*dto.ListDemandsResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := models.DemandFilter{
		CustomerID: req.CustomerID,
		StaffID:    req.StaffID,
	}
	if req.Category != nil {
		category := models.DemandCategory(*req.Category)
		if !category.Valid() {
			return nil, NewBusinessError("DEMAND_CATEGORY_INVALID", "Demand category is invalid", ErrDemandCategoryInvalid)
		}
		filter.Category = &category
	}
	if req.Status != nil {
		status := models.DemandStatus(*req.Status)
		if !status.Valid() {
			return nil, NewBusinessError("DEMAND_STATUS_INVALID", "Demand status is invalid", ErrDemandStatusInvalid)
		}
		filter.Status = &status
	}

	total, err := s.demandRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("DEMAND_LIST_FAILED", "Failed to count demands", err)
	}

	demands, err := s.demandRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("DEMAND_LIST_FAILED", "Failed to list demands", err)
	}

	resp := &dto.ListDemandsResponse{
		Demands: make([]dto.DemandResponse, 0, len(demands)),
		Total:   total,
		Page:    page,
	}
	for _, d := range demands {
		resp.Demands = append(resp.Demands, ToDemandDTO(d))
	}

	return resp, nil
}

// DeleteDemand soft-deletes a demand together with its matches and activity log
func (s *DemandFlowImpl) DeleteDemand(ctx context.Context, demandUUID string, actor *ActorContext) error {
	demand, err := getDemandByUUID(ctx, s.demandRepo, demandUUID)
	if err != nil {
		return NewBusinessError("DEMAND_LOOKUP_FAILED", "Failed to lookup demand", err)
	}

	if err := s.demandRepo.SoftDelete(ctx, demand.ID); err != nil {
		return NewBusinessError("DEMAND_DELETE_FAILED", "Failed to delete demand", err)
	}

	return nil
}

// ListActivities returns a demand's audit log, newest first
func (s *DemandFlowImpl) ListActivities(ctx context.Context, demandUUID string, limit, offset int) (*dto.ListDemandActivitiesResponse, error) {
	demand, err := getDemandByUUID(ctx, s.demandRepo, demandUUID)
	if err != nil {
		return nil, NewBusinessError("DEMAND_LOOKUP_FAILED", "Failed to lookup demand", err)
	}

	activities, err := s.activityRepo.ListByDemand(ctx, demand.ID, limit, offset)
	if err != nil {
		return nil, NewBusinessError("ACTIVITY_LIST_FAILED", "Failed to list demand activities", err)
	}

	resp := &dto.ListDemandActivitiesResponse{
		Activities: make([]dto.DemandActivityResponse, 0, len(activities)),
	}
	for _, a := range activities {
		resp.Activities = append(resp.Activities, ToDemandActivityDTO(a))
	}

	return resp, nil
}

func validateBounds(demand *models.Demand) error {
	if demand.PriceMin != nil && demand.PriceMax != nil && *demand.PriceMin > *demand.PriceMax {
		return NewBusinessError("DEMAND_PRICE_BOUNDS_INVALID", "Price minimum exceeds price maximum", ErrInvalidPriceBounds)
	}
	if demand.AreaMin != nil && demand.AreaMax != nil && *demand.AreaMin > *demand.AreaMax {
		return NewBusinessError("DEMAND_AREA_BOUNDS_INVALID", "Area minimum exceeds area maximum", ErrInvalidAreaBounds)
	}
	return nil
}
