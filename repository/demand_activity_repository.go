package repository

import (
	"context"

	"github.com/oguzkaan/emlak-crm/models"
	"gorm.io/gorm"
)

// DemandActivityRepositoryImpl implements the DemandActivityRepository interface
type DemandActivityRepositoryImpl struct {
	*BaseRepository[models.DemandActivity, models.DemandActivityFilter]
}

// NewDemandActivityRepository creates a new demand activity repository
func NewDemandActivityRepository(db *gorm.DB) DemandActivityRepository {
	return &DemandActivityRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DemandActivity, models.DemandActivityFilter](db),
	}
}

// ListByDemand retrieves a demand's activity log, newest first
func (r *DemandActivityRepositoryImpl) ListByDemand(ctx context.Context, demandID uint, limit, offset int) ([]*models.DemandActivity, error) {
	filter := models.DemandActivityFilter{DemandID: &demandID}
	return r.ByFilter(ctx, filter, "created_at DESC, id DESC", limit, offset)
}

// ByFilter retrieves activity entries based on filter criteria
func (r *DemandActivityRepositoryImpl) ByFilter(ctx context.Context, filter models.DemandActivityFilter, orderBy string, limit, offset int) ([]*models.DemandActivity, error) {
	db := r.getDB(ctx)

	var activities []*models.DemandActivity
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

	err := query.Find(&activities).Error
	if err != nil {
		return nil, err
	}

	return activities, nil
}

// Count returns the number of activity entries matching the filter
func (r *DemandActivityRepositoryImpl) Count(ctx context.Context, filter models.DemandActivityFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var activity models.DemandActivity
	query := r.applyFilter(db.Model(&activity), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any activity entry matching the filter exists
func (r *DemandActivityRepositoryImpl) Exists(ctx context.Context, filter models.DemandActivityFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *DemandActivityRepositoryImpl) applyFilter(db *gorm.DB, filter models.DemandActivityFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.DemandID != nil {
		db = db.Where("demand_id = ?", *filter.DemandID)
	}
	if filter.Action != nil {
		db = db.Where("action = ?", *filter.Action)
	}
	if filter.ActorID != nil {
		db = db.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
