package repository

import (
	"context"
	"errors"

	"github.com/oguzkaan/emlak-crm/models"
	"github.com/oguzkaan/emlak-crm/utils"
	"gorm.io/gorm"
)

// MatchRepositoryImpl implements the MatchRepository interface
type MatchRepositoryImpl struct {
	*BaseRepository[models.Match, models.MatchFilter]
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *gorm.DB) MatchRepository {
	return &MatchRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Match, models.MatchFilter](db),
	}
}

// ByUUID retrieves a match by UUID
func (r *MatchRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Match, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.MatchFilter{UUID: &parsedUUID}
	matches, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return nil, nil
	}

	return matches[0], nil
}

// ActiveByDemand retrieves a demand's active matches, best score first
func (r *MatchRepositoryImpl) ActiveByDemand(ctx context.Context, demandID uint) ([]*models.Match, error) {
	filter := models.MatchFilter{
		DemandID: &demandID,
		IsActive: utils.ToPtr(true),
	}
	return r.ByFilter(ctx, filter, "score DESC, listing_id ASC", 0, 0)
}

// ActiveByKey retrieves the at-most-one active match for a (demand, listing) pair
func (r *MatchRepositoryImpl) ActiveByKey(ctx context.Context, demandID uint, ref models.ListingRef) (*models.Match, error) {
	db := r.getDB(ctx)

	var match models.Match
	err := db.Where("demand_id = ? AND listing_id = ? AND listing_type = ? AND is_active", demandID, ref.ID, ref.Type).
		Last(&match).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &match, nil
}

// UpsertBatch writes a batch of scored matches keyed by (demand_id,
// listing_id, listing_type). An existing active row is updated in place;
// otherwise a new row is inserted with status `new`. The whole batch is
// one transaction: a failure rolls back every row.
func (r *MatchRepositoryImpl) UpsertBatch(ctx context.Context, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}

	return WithTransaction(ctx, r.DB, func(txCtx context.Context) error {
		return r.upsertBatch(txCtx, matches)
	})
}

func (r *MatchRepositoryImpl) upsertBatch(ctx context.Context, matches []*models.Match) error {
	db := r.getDB(ctx)

	for _, m := range matches {
		existing, err := r.ActiveByKey(ctx, m.DemandID, m.ListingRef())
		if err != nil {
			return err
		}

		if existing == nil {
			if err := db.Create(m).Error; err != nil {
				return err
			}
			continue
		}

		now := utils.UTCNow()
		err = db.Model(&models.Match{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"score":      m.Score,
				"breakdown":  m.Breakdown,
				"updated_by": m.UpdatedBy,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}

		// Reflect the persisted identity back to the caller
		m.ID = existing.ID
		m.UUID = existing.UUID
		m.Status = existing.Status
		m.CreatedAt = existing.CreatedAt
		m.UpdatedAt = &now
	}

	return nil
}

// Update updates a match
func (r *MatchRepositoryImpl) Update(ctx context.Context, match models.Match) error {
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
	match.UpdatedAt = &now

	err = db.Save(&match).Error
	if err != nil {
		return err
	}

	return nil
}

// CountDistinctDemandsWithActiveMatch counts demands having at least one active match
func (r *MatchRepositoryImpl) CountDistinctDemandsWithActiveMatch(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.Match{}).
		Where("is_active").
		Distinct("demand_id").
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// CountActiveWithMinScore counts active matches at or above the given score
func (r *MatchRepositoryImpl) CountActiveWithMinScore(ctx context.Context, minScore float64) (int64, error) {
	filter := models.MatchFilter{
		IsActive: utils.ToPtr(true),
		MinScore: &minScore,
	}
	return r.Count(ctx, filter)
}

// DeactivateByDemand marks all of a demand's active matches inactive
func (r *MatchRepositoryImpl) DeactivateByDemand(ctx context.Context, demandID uint) error {
	db := r.getDB(ctx)
	return db.Model(&models.Match{}).
		Where("demand_id = ? AND is_active", demandID).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": utils.UTCNow(),
		}).Error
}

// ByFilter retrieves matches based on filter criteria
func (r *MatchRepositoryImpl) ByFilter(ctx context.Context, filter models.MatchFilter, orderBy string, limit, offset int) ([]*models.Match, error) {
	db := r.getDB(ctx)

	var matches []*models.Match
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

	err := query.Find(&matches).Error
	if err != nil {
		return nil, err
	}

	return matches, nil
}

// Count returns the number of matches matching the filter
func (r *MatchRepositoryImpl) Count(ctx context.Context, filter models.MatchFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var match models.Match
	query := r.applyFilter(db.Model(&match), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any match matching the filter exists
func (r *MatchRepositoryImpl) Exists(ctx context.Context, filter models.MatchFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *MatchRepositoryImpl) applyFilter(db *gorm.DB, filter models.MatchFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.DemandID != nil {
		db = db.Where("demand_id = ?", *filter.DemandID)
	}
	if filter.ListingID != nil {
		db = db.Where("listing_id = ?", *filter.ListingID)
	}
	if filter.ListingType != nil {
		db = db.Where("listing_type = ?", *filter.ListingType)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.MinScore != nil {
		db = db.Where("score >= ?", *filter.MinScore)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
