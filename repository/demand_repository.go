package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oguzkaan/emlak-crm/models"
	"github.com/oguzkaan/emlak-crm/utils"
	"gorm.io/gorm"
)

// DemandRepositoryImpl implements the DemandRepository interface
type DemandRepositoryImpl struct {
	*BaseRepository[models.Demand, models.DemandFilter]
}

// NewDemandRepository creates a new demand repository
func NewDemandRepository(db *gorm.DB) DemandRepository {
	return &DemandRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Demand, models.DemandFilter](db),
	}
}

// ByID retrieves a demand by ID with its customer and staff preloaded
func (r *DemandRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Demand, error) {
	db := r.getDB(ctx)

	var demand models.Demand
	err := db.Preload("Customer").
		Preload("Staff").
		Last(&demand, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &demand, nil
}

// ByUUID retrieves a demand by UUID
func (r *DemandRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Demand, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.DemandFilter{UUID: &parsedUUID}
	demands, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(demands) == 0 {
		return nil, nil
	}

	return demands[0], nil
}

// ListActiveDemands retrieves demands whose status permits matching,
// ordered by id so sweeps visit demands deterministically
func (r *DemandRepositoryImpl) ListActiveDemands(ctx context.Context, limit, offset int) ([]*models.Demand, error) {
	filter := models.DemandFilter{Statuses: models.ActiveDemandStatuses}
	return r.ByFilter(ctx, filter, "id ASC", limit, offset)
}

// CountActiveDemands counts demands whose status permits matching
func (r *DemandRepositoryImpl) CountActiveDemands(ctx context.Context) (int64, error) {
	filter := models.DemandFilter{Statuses: models.ActiveDemandStatuses}
	return r.Count(ctx, filter)
}

// Update updates a demand
func (r *DemandRepositoryImpl) Update(ctx context.Context, demand models.Demand) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	now := utils.UTCNow()
	demand.UpdatedAt = &now

	err = db.Save(&demand).Error
	if err != nil {
		return err
	}

	return nil
}

// UpdateLastActivity stamps the demand's last-activity timestamp
func (r *DemandRepositoryImpl) UpdateLastActivity(ctx context.Context, demandID uint, at time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.Demand{}).
		Where("id = ?", demandID).
		Updates(map[string]any{
			"last_activity_at": at,
			"updated_at":       utils.UTCNow(),
		}).Error
}

// SoftDelete logically deletes a demand together with its matches and
// activity log, all in one transaction
func (r *DemandRepositoryImpl) SoftDelete(ctx context.Context, demandID uint) error {
	return WithTransaction(ctx, r.DB, func(txCtx context.Context) error {
		db := r.getDB(txCtx)

		if err := db.Where("demand_id = ?", demandID).Delete(&models.Match{}).Error; err != nil {
			return err
		}
		if err := db.Where("demand_id = ?", demandID).Delete(&models.DemandActivity{}).Error; err != nil {
			return err
		}
		return db.Delete(&models.Demand{}, demandID).Error
	})
}

// ByFilter retrieves demands based on filter criteria
func (r *DemandRepositoryImpl) ByFilter(ctx context.Context, filter models.DemandFilter, orderBy string, limit, offset int) ([]*models.Demand, error) {
	db := r.getDB(ctx)

	var demands []*models.Demand
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	query = query.Preload("Customer").
		Preload("Staff")

	err := query.Find(&demands).Error
	if err != nil {
		return nil, err
	}

	return demands, nil
}

// Count returns the number of demands matching the filter
func (r *DemandRepositoryImpl) Count(ctx context.Context, filter models.DemandFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var demand models.Demand
	query := r.applyFilter(db.Model(&demand), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any demand matching the filter exists
func (r *DemandRepositoryImpl) Exists(ctx context.Context, filter models.DemandFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *DemandRepositoryImpl) applyFilter(db *gorm.DB, filter models.DemandFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.StaffID != nil {
		db = db.Where("staff_id = ?", *filter.StaffID)
	}
	if filter.Category != nil {
		db = db.Where("category = ?", *filter.Category)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
