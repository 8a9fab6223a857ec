// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/oguzkaan/emlak-crm/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CustomerRepository defines operations for customers
type CustomerRepository interface {
	Repository[models.Customer, models.CustomerFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Customer, error)
	ByMobile(ctx context.Context, mobile string) (*models.Customer, error)
}

// StaffRepository defines operations for staff members
type StaffRepository interface {
	Repository[models.Staff, models.StaffFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Staff, error)
}

// DemandRepository defines operations for customer demands
type DemandRepository interface {
	Repository[models.Demand, models.DemandFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Demand, error)
	ListActiveDemands(ctx context.Context, limit, offset int) ([]*models.Demand, error)
	CountActiveDemands(ctx context.Context) (int64, error)
	Update(ctx context.Context, demand models.Demand) error
	UpdateLastActivity(ctx context.Context, demandID uint, at time.Time) error
	SoftDelete(ctx context.Context, demandID uint) error
}

// CandidateFilter is the coarse pre-filter pushed down to the listing tables.
// Price and area bounds are widened by the scoring tolerance so borderline
// candidates still reach the fine scorer; unknown prices/areas are kept.
type CandidateFilter struct {
	PriceMin *float64
	PriceMax *float64
	AreaMin  *float64
	AreaMax  *float64
	SubType  *string
	CityIDs  []uint
}

// ListingRepository reads candidate listings of one concrete category table.
// The matching engine treats listings as read-only snapshots.
type ListingRepository interface {
	Type() models.ListingType
	ByID(ctx context.Context, id uint) (*models.ListingSnapshot, error)
	FindCandidates(ctx context.Context, filter CandidateFilter) ([]models.ListingSnapshot, error)
}

// ListingRepositoryRegistry resolves the concrete listing repository for a
// category. Unsupported categories resolve to nothing, which callers treat
// as an empty candidate set rather than an error.
type ListingRepositoryRegistry struct {
	repos map[models.ListingType]ListingRepository
}

// NewListingRepositoryRegistry builds a registry from the given repositories
func NewListingRepositoryRegistry(repos ...ListingRepository) *ListingRepositoryRegistry {
	m := make(map[models.ListingType]ListingRepository, len(repos))
	for _, r := range repos {
		m[r.Type()] = r
	}
	return &ListingRepositoryRegistry{repos: m}
}

// ForType resolves the repository for a listing type
func (r *ListingRepositoryRegistry) ForType(t models.ListingType) (ListingRepository, bool) {
	repo, ok := r.repos[t]
	return repo, ok
}

// ForCategory resolves the repository for a demand category
func (r *ListingRepositoryRegistry) ForCategory(c models.DemandCategory) (ListingRepository, bool) {
	t, ok := models.ListingTypeForCategory(c)
	if !ok {
		return nil, false
	}
	return r.ForType(t)
}

// MatchStatistics is the summary row returned by the statistics query
type MatchStatistics struct {
	ActiveDemands      int64 `json:"active_demands"`
	DemandsWithMatches int64 `json:"demands_with_matches"`
	ActiveMatches      int64 `json:"active_matches"`
	HighScoreMatches   int64 `json:"high_score_matches"`
	PresentedMatches   int64 `json:"presented_matches"`
	PendingMatches     int64 `json:"pending_matches"`
}

// MatchRepository defines operations for persisted matches
type MatchRepository interface {
	Repository[models.Match, models.MatchFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Match, error)
	ActiveByDemand(ctx context.Context, demandID uint) ([]*models.Match, error)
	ActiveByKey(ctx context.Context, demandID uint, ref models.ListingRef) (*models.Match, error)
	UpsertBatch(ctx context.Context, matches []*models.Match) error
	Update(ctx context.Context, match models.Match) error
	CountDistinctDemandsWithActiveMatch(ctx context.Context) (int64, error)
	CountActiveWithMinScore(ctx context.Context, minScore float64) (int64, error)
	DeactivateByDemand(ctx context.Context, demandID uint) error
}

// DemandActivityRepository defines operations for demand activity logs
type DemandActivityRepository interface {
	Repository[models.DemandActivity, models.DemandActivityFilter]
	ListByDemand(ctx context.Context, demandID uint, limit, offset int) ([]*models.DemandActivity, error)
}
