package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/oguzkaan/emlak-crm/models"
	"gorm.io/gorm"
)

// applyCandidateFilter pushes the coarse candidate pre-filter down to one
// concrete listing table. Only active, published, not-deleted rows survive.
// Listings with unknown price or area are kept so the fine scorer can apply
// its neutral treatment; city filtering uses JSONB containment over the
// addresses column.
func applyCandidateFilter(db *gorm.DB, filter CandidateFilter) *gorm.DB {
	db = db.Where("status = ?", models.ListingStatusActive).
		Where("published")

	if filter.PriceMin != nil {
		db = db.Where("price IS NULL OR price >= ?", *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		db = db.Where("price IS NULL OR price <= ?", *filter.PriceMax)
	}
	if filter.AreaMin != nil {
		db = db.Where("area IS NULL OR area >= ?", *filter.AreaMin)
	}
	if filter.AreaMax != nil {
		db = db.Where("area IS NULL OR area <= ?", *filter.AreaMax)
	}
	if filter.SubType != nil {
		db = db.Where("type_tag ILIKE ?", "%"+*filter.SubType+"%")
	}
	if len(filter.CityIDs) > 0 {
		cond := db.Session(&gorm.Session{NewDB: true})
		clause := cond.Where("addresses @> ?::jsonb", fmt.Sprintf(`[{"city_id":%d}]`, filter.CityIDs[0]))
		for _, cityID := range filter.CityIDs[1:] {
			clause = clause.Or("addresses @> ?::jsonb", fmt.Sprintf(`[{"city_id":%d}]`, cityID))
		}
		db = db.Where(clause)
	}

	return db
}

// ResidentialListingRepositoryImpl reads residential listing candidates
type ResidentialListingRepositoryImpl struct {
	*BaseRepository[models.ResidentialListing, CandidateFilter]
}

// NewResidentialListingRepository creates a residential listing repository
func NewResidentialListingRepository(db *gorm.DB) ListingRepository {
	return &ResidentialListingRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ResidentialListing, CandidateFilter](db),
	}
}

// Type returns the listing type served by this repository
func (r *ResidentialListingRepositoryImpl) Type() models.ListingType {
	return models.ListingTypeResidential
}

// ByID retrieves one listing snapshot by ID
func (r *ResidentialListingRepositoryImpl) ByID(ctx context.Context, id uint) (*models.ListingSnapshot, error) {
	var row models.ResidentialListing
	if err := r.getDB(ctx).Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	snap := row.Snapshot()
	return &snap, nil
}

// FindCandidates retrieves the coarse-filtered candidate set, ordered by id
func (r *ResidentialListingRepositoryImpl) FindCandidates(ctx context.Context, filter CandidateFilter) ([]models.ListingSnapshot, error) {
	var rows []*models.ResidentialListing
	query := applyCandidateFilter(r.getDB(ctx), filter).Order("id ASC")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	snapshots := make([]models.ListingSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshots = append(snapshots, row.Snapshot())
	}
	return snapshots, nil
}

// CommercialListingRepositoryImpl reads commercial listing candidates
type CommercialListingRepositoryImpl struct {
	*BaseRepository[models.CommercialListing, CandidateFilter]
}

// NewCommercialListingRepository creates a commercial listing repository
func NewCommercialListingRepository(db *gorm.DB) ListingRepository {
	return &CommercialListingRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CommercialListing, CandidateFilter](db),
	}
}

// Type returns the listing type served by this repository
func (r *CommercialListingRepositoryImpl) Type() models.ListingType {
	return models.ListingTypeCommercial
}

// ByID retrieves one listing snapshot by ID
func (r *CommercialListingRepositoryImpl) ByID(ctx context.Context, id uint) (*models.ListingSnapshot, error) {
	var row models.CommercialListing
	if err := r.getDB(ctx).Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	snap := row.Snapshot()
	return &snap, nil
}

// FindCandidates retrieves the coarse-filtered candidate set, ordered by id
func (r *CommercialListingRepositoryImpl) FindCandidates(ctx context.Context, filter CandidateFilter) ([]models.ListingSnapshot, error) {
	var rows []*models.CommercialListing
	query := applyCandidateFilter(r.getDB(ctx), filter).Order("id ASC")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	snapshots := make([]models.ListingSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshots = append(snapshots, row.Snapshot())
	}
	return snapshots, nil
}

// LandListingRepositoryImpl reads land listing candidates
type LandListingRepositoryImpl struct {
	*BaseRepository[models.LandListing, CandidateFilter]
}

// NewLandListingRepository creates a land listing repository
func NewLandListingRepository(db *gorm.DB) ListingRepository {
	return &LandListingRepositoryImpl{
		BaseRepository: NewBaseRepository[models.LandListing, CandidateFilter](db),
	}
}

// Type returns the listing type served by this repository
func (r *LandListingRepositoryImpl) Type() models.ListingType {
	return models.ListingTypeLand
}

// ByID retrieves one listing snapshot by ID
func (r *LandListingRepositoryImpl) ByID(ctx context.Context, id uint) (*models.ListingSnapshot, error) {
	var row models.LandListing
	if err := r.getDB(ctx).Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	snap := row.Snapshot()
	return &snap, nil
}

// FindCandidates retrieves the coarse-filtered candidate set, ordered by id
func (r *LandListingRepositoryImpl) FindCandidates(ctx context.Context, filter CandidateFilter) ([]models.ListingSnapshot, error) {
	var rows []*models.LandListing
	query := applyCandidateFilter(r.getDB(ctx), filter).Order("id ASC")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	snapshots := make([]models.ListingSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshots = append(snapshots, row.Snapshot())
	}
	return snapshots, nil
}

// HospitalityListingRepositoryImpl reads hospitality listing candidates
type HospitalityListingRepositoryImpl struct {
	*BaseRepository[models.HospitalityListing, CandidateFilter]
}

// NewHospitalityListingRepository creates a hospitality listing repository
func NewHospitalityListingRepository(db *gorm.DB) ListingRepository {
	return &HospitalityListingRepositoryImpl{
		BaseRepository: NewBaseRepository[models.HospitalityListing, CandidateFilter](db),
	}
}

// Type returns the listing type served by this repository
func (r *HospitalityListingRepositoryImpl) Type() models.ListingType {
	return models.ListingTypeHospitality
}

// ByID retrieves one listing snapshot by ID
func (r *HospitalityListingRepositoryImpl) ByID(ctx context.Context, id uint) (*models.ListingSnapshot, error) {
	var row models.HospitalityListing
	if err := r.getDB(ctx).Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	snap := row.Snapshot()
	return &snap, nil
}

// FindCandidates retrieves the coarse-filtered candidate set, ordered by id
func (r *HospitalityListingRepositoryImpl) FindCandidates(ctx context.Context, filter CandidateFilter) ([]models.ListingSnapshot, error) {
	var rows []*models.HospitalityListing
	query := applyCandidateFilter(r.getDB(ctx), filter).Order("id ASC")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	snapshots := make([]models.ListingSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshots = append(snapshots, row.Snapshot())
	}
	return snapshots, nil
}
