package businessflow

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/oguzkaan/emlak-crm/app/dto"
	"github.com/oguzkaan/emlak-crm/app/services"
	"github.com/oguzkaan/emlak-crm/config"
	"github.com/oguzkaan/emlak-crm/models"
	"github.com/oguzkaan/emlak-crm/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	matchingRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matching_runs_total",
		Help: "Total matching runs by outcome",
	}, []string{"outcome"})

	matchesWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matching_matches_written_total",
		Help: "Total match rows written by the engine",
	})

	matchingSweepDemandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matching_sweep_demands_total",
		Help: "Demands processed by the full-portfolio sweep, by outcome",
	}, []string{"outcome"})
)

const statisticsCacheKey = "matching:statistics"

// MatchingFlow runs the demand-to-listing matching engine
type MatchingFlow interface {
	RunMatching(ctx context.Context, req *dto.RunMatchingRequest, actor *ActorContext) (*dto.RunMatchingResponse, error)
	RunMatchingForDemand(ctx context.Context, demand *models.Demand, persist bool, actor *ActorContext) ([]*models.Match, error)
	RunMatchingForAllActiveDemands(ctx context.Context, actor *ActorContext) (*dto.SweepSummaryResponse, error)
	FindDemandsForListing(ctx context.Context, req *dto.FindDemandsForListingRequest) (*dto.FindDemandsForListingResponse, error)
	Statistics(ctx context.Context) (*dto.MatchStatisticsResponse, error)
}

// MatchingFlowImpl implements the matching engine business flow
type MatchingFlowImpl struct {
	demandRepo   repository.DemandRepository
	matchRepo    repository.MatchRepository
	activityRepo repository.DemandActivityRepository
	listings     *repository.ListingRepositoryRegistry
	notifier     services.NotificationService
	cacheConfig  *config.CacheConfig
	rc           *redis.Client
	db           *gorm.DB
}

// NewMatchingFlow creates a new matching flow instance
func NewMatchingFlow(
	demandRepo repository.DemandRepository,
	matchRepo repository.MatchRepository,
	activityRepo repository.DemandActivityRepository,
	listings *repository.ListingRepositoryRegistry,
	db *gorm.DB,
	rc *redis.Client,
	notifier services.NotificationService,
	cacheConfig *config.CacheConfig,
) MatchingFlow {
	return &MatchingFlowImpl{
		demandRepo:   demandRepo,
		matchRepo:    matchRepo,
		activityRepo: activityRepo,
		listings:     listings,
		notifier:     notifier,
		cacheConfig:  cacheConfig,
		rc:           rc,
		db:           db,
	}
}

// RunMatching runs the engine for one demand addressed by UUID
func (s *MatchingFlowImpl) RunMatching(ctx context.Context, req *dto.RunMatchingRequest, actor *ActorContext) (*dto.RunMatchingResponse, error) {
	demand, err := getDemandByUUID(ctx, s.demandRepo, req.DemandUUID)
	if err != nil {
		return nil, NewBusinessError("DEMAND_LOOKUP_FAILED", "Failed to lookup demand", err)
	}

	persist := !req.DryRun
	matches, err := s.RunMatchingForDemand(ctx, demand, persist, actor)
	if err != nil {
		return nil, err
	}

	resp := &dto.RunMatchingResponse{
		DemandUUID:   demand.UUID.String(),
		MatchesFound: len(matches),
		Persisted:    persist && len(matches) > 0,
		Matches:      make([]dto.MatchResponse, 0, len(matches)),
	}
	for _, m := range matches {
		resp.Matches = append(resp.Matches, dto.NewMatchResponse(m))
	}

	return resp, nil
}

// RunMatchingForDemand scores the demand against its candidate listings,
// keeps everything at or above the acceptance threshold, caps the result,
// and optionally persists it as one atomic batch. An inactive demand or an
// unsupported category yields an empty result, never an error.
func (s *MatchingFlowImpl) RunMatchingForDemand(ctx context.Context, demand *models.Demand, persist bool, actor *ActorContext) ([]*models.Match, error) {
	if !demand.Status.IsMatchable() {
		matchingRunsTotal.WithLabelValues("skipped").Inc()
		return nil, nil
	}

	listingRepo, ok := s.listings.ForCategory(demand.Category)
	if !ok {
		matchingRunsTotal.WithLabelValues("unsupported_category").Inc()
		return nil, nil
	}

	candidates, err := listingRepo.FindCandidates(ctx, candidateFilterForDemand(demand))
	if err != nil {
		matchingRunsTotal.WithLabelValues("error").Inc()
		return nil, NewBusinessError("CANDIDATE_FETCH_FAILED", "Failed to fetch candidate listings", err)
	}
	if len(candidates) == 0 {
		matchingRunsTotal.WithLabelValues("empty").Inc()
		return nil, nil
	}

	now := actor.Now()
	matches := make([]*models.Match, 0, len(candidates))
	for _, candidate := range candidates {
		score, breakdown := ScoreMatch(demand, candidate, now)
		if score < MinMatchScore {
			continue
		}

		matches = append(matches, &models.Match{
			DemandID:    demand.ID,
			ListingID:   candidate.Ref.ID,
			ListingType: candidate.Ref.Type,
			Score:       score,
			Breakdown:   breakdown,
			Status:      models.MatchStatusNew,
			CreatedBy:   actor.Actor(),
			UpdatedBy:   actor.Actor(),
		})
	}

	// Stable sort by score with listing id as the deterministic tie-break
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ListingID < matches[j].ListingID
	})

	if len(matches) > MaxMatchCount {
		matches = matches[:MaxMatchCount]
	}

	if !persist || len(matches) == 0 {
		matchingRunsTotal.WithLabelValues("ok").Inc()
		return matches, nil
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.matchRepo.UpsertBatch(txCtx, matches); err != nil {
			return err
		}

		metadata, _ := json.Marshal(map[string]int{
			"candidates": len(candidates),
			"matches":    len(matches),
		})
		activity := &models.DemandActivity{
			DemandID:  demand.ID,
			Action:    models.ActivityActionMatchingRun,
			ActorID:   actor.Actor(),
			Metadata:  metadata,
			CreatedAt: now,
		}
		if err := s.activityRepo.Save(txCtx, activity); err != nil {
			return err
		}

		return s.demandRepo.UpdateLastActivity(txCtx, demand.ID, now)
	})
	if err != nil {
		matchingRunsTotal.WithLabelValues("error").Inc()
		return nil, NewBusinessError("MATCH_PERSIST_FAILED", "Failed to save this demand's matches", err)
	}

	matchingRunsTotal.WithLabelValues("ok").Inc()
	matchesWrittenTotal.Add(float64(len(matches)))

	// Notifications are best effort and happen after the batch commits
	if err := s.notifier.NotifyNewMatches(demand, matches); err != nil {
		log.Printf("new-match notification failed for demand %s: %v", demand.UUID, err)
	}

	return matches, nil
}

// RunMatchingForAllActiveDemands sweeps every matchable demand. One demand's
// failure is logged and does not abort the sweep.
func (s *MatchingFlowImpl) RunMatchingForAllActiveDemands(ctx context.Context, actor *ActorContext) (*dto.SweepSummaryResponse, error) {
	demands, err := s.demandRepo.ListActiveDemands(ctx, 0, 0)
	if err != nil {
		return nil, NewBusinessError("DEMAND_SWEEP_FAILED", "Failed to list active demands", err)
	}

	summary := &dto.SweepSummaryResponse{}
	for _, demand := range demands {
		matches, err := s.RunMatchingForDemand(ctx, demand, true, actor)
		if err != nil {
			summary.DemandsFailed++
			matchingSweepDemandsTotal.WithLabelValues("failed").Inc()
			log.Printf("matching sweep failed for demand %s: %v", demand.UUID, err)
			continue
		}

		summary.DemandsProcessed++
		summary.MatchesWritten += len(matches)
		matchingSweepDemandsTotal.WithLabelValues("processed").Inc()
	}

	return summary, nil
}

// FindDemandsForListing performs the reverse search: which active demands
// does this listing satisfy. Read only, nothing is persisted or notified.
func (s *MatchingFlowImpl) FindDemandsForListing(ctx context.Context, req *dto.FindDemandsForListingRequest) (*dto.FindDemandsForListingResponse, error) {
	listingType := models.ListingType(req.ListingType)
	if !listingType.Valid() {
		return nil, NewBusinessError("LISTING_TYPE_INVALID", "Listing type is invalid", ErrListingTypeInvalid)
	}

	listingRepo, ok := s.listings.ForType(listingType)
	if !ok {
		return nil, NewBusinessError("LISTING_TYPE_INVALID", "Listing type is not served", ErrListingTypeInvalid)
	}

	snapshot, err := listingRepo.ByID(ctx, req.ListingID)
	if err != nil {
		return nil, NewBusinessError("LISTING_LOOKUP_FAILED", "Failed to lookup listing", err)
	}
	if snapshot == nil {
		return nil, NewBusinessError("LISTING_NOT_FOUND", "Listing not found", ErrListingNotFound)
	}

	category := listingType.Category()
	demands, err := s.demandRepo.ByFilter(ctx, models.DemandFilter{
		Category: &category,
		Statuses: models.ActiveDemandStatuses,
	}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("DEMAND_SWEEP_FAILED", "Failed to list candidate demands", err)
	}

	type scored struct {
		demand    *models.Demand
		score     float64
		breakdown models.ScoreBreakdown
	}

	now := time.Now().UTC()
	results := make([]scored, 0, len(demands))
	for _, demand := range demands {
		score, breakdown := ScoreMatch(demand, *snapshot, now)
		if score < MinMatchScore {
			continue
		}
		results = append(results, scored{demand: demand, score: score, breakdown: breakdown})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].demand.ID < results[j].demand.ID
	})

	if len(results) > MaxMatchCount {
		results = results[:MaxMatchCount]
	}

	resp := &dto.FindDemandsForListingResponse{
		ListingType: listingType.String(),
		ListingID:   req.ListingID,
		Demands:     make([]dto.DemandCandidateResponse, 0, len(results)),
	}
	for _, r := range results {
		candidate := dto.DemandCandidateResponse{
			DemandUUID: r.demand.UUID.String(),
			CustomerID: r.demand.CustomerID,
			Score:      r.score,
		}
		if r.demand.Customer != nil {
			name := r.demand.Customer.FullName()
			candidate.CustomerName = &name
		}
		candidate.Breakdown = dto.NewScoreBreakdownResponse(r.breakdown)
		resp.Demands = append(resp.Demands, candidate)
	}

	return resp, nil
}

// Statistics returns the portfolio-wide matching summary, cached briefly in
// Redis because dashboards poll it.
func (s *MatchingFlowImpl) Statistics(ctx context.Context) (*dto.MatchStatisticsResponse, error) {
	if s.rc != nil {
		if bs, err := s.rc.Get(ctx, statisticsCacheKey).Bytes(); err == nil && len(bs) > 0 {
			var cached dto.MatchStatisticsResponse
			if err := json.Unmarshal(bs, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	stats, err := s.computeStatistics(ctx)
	if err != nil {
		return nil, err
	}

	if s.rc != nil {
		if bs, err := json.Marshal(stats); err == nil {
			ttl := time.Minute
			if s.cacheConfig != nil && s.cacheConfig.StatisticsTTL > 0 {
				ttl = s.cacheConfig.StatisticsTTL
			}
			_ = s.rc.Set(ctx, statisticsCacheKey, bs, ttl).Err()
		}
	}

	return stats, nil
}

func (s *MatchingFlowImpl) computeStatistics(ctx context.Context) (*dto.MatchStatisticsResponse, error) {
	activeDemands, err := s.demandRepo.CountActiveDemands(ctx)
	if err != nil {
		return nil, NewBusinessError("STATISTICS_FAILED", "Failed to count active demands", err)
	}

	demandsWithMatches, err := s.matchRepo.CountDistinctDemandsWithActiveMatch(ctx)
	if err != nil {
		return nil, NewBusinessError("STATISTICS_FAILED", "Failed to count demands with matches", err)
	}

	active := true
	activeMatches, err := s.matchRepo.Count(ctx, models.MatchFilter{IsActive: &active})
	if err != nil {
		return nil, NewBusinessError("STATISTICS_FAILED", "Failed to count active matches", err)
	}

	highScoreMatches, err := s.matchRepo.CountActiveWithMinScore(ctx, HighScoreThreshold)
	if err != nil {
		return nil, NewBusinessError("STATISTICS_FAILED", "Failed to count high-score matches", err)
	}

	countByStatus := func(status models.MatchStatus) (int64, error) {
		return s.matchRepo.Count(ctx, models.MatchFilter{IsActive: &active, Status: &status})
	}

	presented, err := countByStatus(models.MatchStatusPresented)
	if err != nil {
		return nil, NewBusinessError("STATISTICS_FAILED", "Failed to count presented matches", err)
	}

	newCount, err := countByStatus(models.MatchStatusNew)
	if err != nil {
		return nil, NewBusinessError("STATISTICS_FAILED", "Failed to count new matches", err)
	}
	reviewed, err := countByStatus(models.MatchStatusReviewed)
	if err != nil {
		return nil, NewBusinessError("STATISTICS_FAILED", "Failed to count reviewed matches", err)
	}

	return &dto.MatchStatisticsResponse{
		ActiveDemands:      activeDemands,
		DemandsWithMatches: demandsWithMatches,
		ActiveMatches:      activeMatches,
		HighScoreMatches:   highScoreMatches,
		PresentedMatches:   presented,
		PendingMatches:     newCount + reviewed,
	}, nil
}

// candidateFilterForDemand translates the demand's criteria into the coarse
// pre-filter. Price and area bounds are widened by the scoring tolerance so
// listings inside the decay band still reach the fine scorer.
func candidateFilterForDemand(demand *models.Demand) repository.CandidateFilter {
	filter := repository.CandidateFilter{
		SubType: demand.SubType,
	}

	if demand.PriceMin != nil {
		min := *demand.PriceMin * (1 - PriceTolerance)
		filter.PriceMin = &min
	}
	if demand.PriceMax != nil {
		max := *demand.PriceMax * (1 + PriceTolerance)
		filter.PriceMax = &max
	}
	if demand.AreaMin != nil {
		min := *demand.AreaMin * (1 - AreaTolerance)
		filter.AreaMin = &min
	}
	if demand.AreaMax != nil {
		max := *demand.AreaMax * (1 + AreaTolerance)
		filter.AreaMax = &max
	}

	for _, pref := range demand.Locations {
		filter.CityIDs = append(filter.CityIDs, pref.CityID)
	}

	return filter
}
