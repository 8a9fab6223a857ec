package repository

import (
	"context"

	"github.com/oguzkaan/emlak-crm/models"
	"github.com/oguzkaan/emlak-crm/utils"
	"gorm.io/gorm"
)

// StaffRepositoryImpl implements the StaffRepository interface
type StaffRepositoryImpl struct {
	*BaseRepository[models.Staff, models.StaffFilter]
}

// NewStaffRepository creates a new staff repository
func NewStaffRepository(db *gorm.DB) StaffRepository {
	return &StaffRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Staff, models.StaffFilter](db),
	}
}

// ByUUID retrieves a staff member by UUID
func (r *StaffRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Staff, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	db := r.getDB(ctx)
	var staff models.Staff
	err = db.Where("uuid = ?", parsedUUID).Last(&staff).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	return &staff, nil
}

// ByFilter retrieves staff members based on filter criteria
func (r *StaffRepositoryImpl) ByFilter(ctx context.Context, filter models.StaffFilter, orderBy string, limit, offset int) ([]*models.Staff, error) {
	db := r.getDB(ctx)

	var staff []*models.Staff
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

	err := query.Find(&staff).Error
	if err != nil {
		return nil, err
	}

	return staff, nil
}

// Count returns the number of staff members matching the filter
func (r *StaffRepositoryImpl) Count(ctx context.Context, filter models.StaffFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var staff models.Staff
	query := r.applyFilter(db.Model(&staff), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any staff member matching the filter exists
func (r *StaffRepositoryImpl) Exists(ctx context.Context, filter models.StaffFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *StaffRepositoryImpl) applyFilter(db *gorm.DB, filter models.StaffFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}

	return db
}
