package businessflow

import (
	"errors"
	"testing"
	"time"

	"github.com/oguzkaan/emlak-crm/app/dto"
	"github.com/oguzkaan/emlak-crm/models"
	"github.com/oguzkaan/emlak-crm/repository"
	"github.com/oguzkaan/emlak-crm/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotWithPrice(id uint, price *float64) models.ListingSnapshot {
	return models.ListingSnapshot{
		Ref:   models.ListingRef{Type: models.ListingTypeResidential, ID: id},
		Price: price,
	}
}

func newMatchingFixture(demands []*models.Demand, listings *fakeListingRepo) (MatchingFlow, *fakeDemandRepo, *fakeMatchRepo, *fakeActivityRepo, *fakeNotifier) {
	demandRepo := newFakeDemandRepo(demands...)
	matchRepo := newFakeMatchRepo()
	activityRepo := &fakeActivityRepo{}
	notifier := &fakeNotifier{}

	registry := repository.NewListingRepositoryRegistry(listings)
	flow := NewMatchingFlow(demandRepo, matchRepo, activityRepo, registry, nil, nil, notifier, nil)
	return flow, demandRepo, matchRepo, activityRepo, notifier
}

func TestRunMatchingForDemand(t *testing.T) {
	actor := NewActorContextAt(utils.ToPtr(uint(9)), time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))

	t.Run("InactiveDemandYieldsNothing", func(t *testing.T) {
		demand := &models.Demand{ID: 1, Category: models.DemandCategoryResidential, Status: models.DemandStatusPaused}
		listings := &fakeListingRepo{
			listingType: models.ListingTypeResidential,
			snapshots:   []models.ListingSnapshot{snapshotWithPrice(1, nil)},
		}
		flow, _, matchRepo, _, notifier := newMatchingFixture([]*models.Demand{demand}, listings)

		matches, err := flow.RunMatchingForDemand(txContext(), demand, true, actor)
		require.NoError(t, err)
		assert.Empty(t, matches)
		assert.Zero(t, matchRepo.upsertCalls)
		assert.Empty(t, notifier.newMatches)
	})

	t.Run("UnsupportedCategoryYieldsNothing", func(t *testing.T) {
		demand := &models.Demand{ID: 1, Category: models.DemandCategoryCommercial, Status: models.DemandStatusActive}
		listings := &fakeListingRepo{listingType: models.ListingTypeResidential}
		flow, _, _, _, _ := newMatchingFixture([]*models.Demand{demand}, listings)

		matches, err := flow.RunMatchingForDemand(txContext(), demand, true, actor)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("CandidateFetchErrorIsBusinessError", func(t *testing.T) {
		demand := &models.Demand{ID: 1, Category: models.DemandCategoryResidential, Status: models.DemandStatusActive}
		listings := &fakeListingRepo{
			listingType: models.ListingTypeResidential,
			findErr:     errors.New("connection refused"),
		}
		flow, _, _, _, _ := newMatchingFixture([]*models.Demand{demand}, listings)

		_, err := flow.RunMatchingForDemand(txContext(), demand, true, actor)
		require.Error(t, err)

		var businessErr *BusinessError
		require.ErrorAs(t, err, &businessErr)
		assert.Equal(t, "CANDIDATE_FETCH_FAILED", businessErr.Code)
	})

	t.Run("ScoresBelowThresholdAreDiscarded", func(t *testing.T) {
		demand := &models.Demand{
			ID:        1,
			Category:  models.DemandCategoryResidential,
			Status:    models.DemandStatusActive,
			PriceMin:  utils.ToPtr(100000.0),
			AreaMin:   utils.ToPtr(100.0),
			Locations: models.LocationPreferences{{CityID: 1}},
			Features:  models.FeatureMap{"pool": true},
		}

		// Every dimension except category at zero keeps the composite at 0.1
		poor := snapshotWithPrice(3, utils.ToPtr(10.0))
		poor.Area = utils.ToPtr(10.0)
		poor.Addresses = models.AddressList{{CityID: 2}}
		poor.Features = models.FeatureMap{"pool": false}

		listings := &fakeListingRepo{
			listingType: models.ListingTypeResidential,
			snapshots:   []models.ListingSnapshot{poor},
		}
		flow, _, _, _, _ := newMatchingFixture([]*models.Demand{demand}, listings)

		matches, err := flow.RunMatchingForDemand(txContext(), demand, true, actor)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("ResultsSortedByScoreThenListingID", func(t *testing.T) {
		demand := &models.Demand{
			ID:       1,
			Category: models.DemandCategoryResidential,
			Status:   models.DemandStatusActive,
			PriceMax: utils.ToPtr(200000.0),
		}
		listings := &fakeListingRepo{
			listingType: models.ListingTypeResidential,
			snapshots: []models.ListingSnapshot{
				snapshotWithPrice(30, utils.ToPtr(220000.0)), // decayed price score
				snapshotWithPrice(20, utils.ToPtr(150000.0)), // full price score
				snapshotWithPrice(10, utils.ToPtr(150000.0)), // full price score, lower ID
			},
		}
		flow, _, _, _, _ := newMatchingFixture([]*models.Demand{demand}, listings)

		matches, err := flow.RunMatchingForDemand(txContext(), demand, false, actor)
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, uint(10), matches[0].ListingID)
		assert.Equal(t, uint(20), matches[1].ListingID)
		assert.Equal(t, uint(30), matches[2].ListingID)
		assert.Equal(t, matches[0].Score, matches[1].Score)
		assert.Greater(t, matches[0].Score, matches[2].Score)
	})

	t.Run("ResultListIsCapped", func(t *testing.T) {
		demand := &models.Demand{ID: 1, Category: models.DemandCategoryResidential, Status: models.DemandStatusActive}

		snapshots := make([]models.ListingSnapshot, 0, MaxMatchCount+5)
		for i := 1; i <= MaxMatchCount+5; i++ {
			snapshots = append(snapshots, snapshotWithPrice(uint(i), nil))
		}
		listings := &fakeListingRepo{listingType: models.ListingTypeResidential, snapshots: snapshots}
		flow, _, _, _, _ := newMatchingFixture([]*models.Demand{demand}, listings)

		matches, err := flow.RunMatchingForDemand(txContext(), demand, false, actor)
		require.NoError(t, err)
		require.Len(t, matches, MaxMatchCount)
		// Equal scores, so the cap keeps the lowest listing IDs
		assert.Equal(t, uint(1), matches[0].ListingID)
		assert.Equal(t, uint(MaxMatchCount), matches[len(matches)-1].ListingID)
	})

	t.Run("DryRunPersistsNothing", func(t *testing.T) {
		demand := &models.Demand{ID: 1, Category: models.DemandCategoryResidential, Status: models.DemandStatusActive}
		listings := &fakeListingRepo{
			listingType: models.ListingTypeResidential,
			snapshots:   []models.ListingSnapshot{snapshotWithPrice(1, nil)},
		}
		flow, demandRepo, matchRepo, activityRepo, notifier := newMatchingFixture([]*models.Demand{demand}, listings)

		matches, err := flow.RunMatchingForDemand(txContext(), demand, false, actor)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Zero(t, matchRepo.upsertCalls)
		assert.Empty(t, activityRepo.activities)
		assert.Empty(t, demandRepo.lastActivity)
		assert.Empty(t, notifier.newMatches)
	})

	t.Run("PersistWritesBatchActivityAndNotifies", func(t *testing.T) {
		demand := &models.Demand{ID: 1, Category: models.DemandCategoryResidential, Status: models.DemandStatusActive}
		listings := &fakeListingRepo{
			listingType: models.ListingTypeResidential,
			snapshots: []models.ListingSnapshot{
				snapshotWithPrice(1, nil),
				snapshotWithPrice(2, nil),
			},
		}
		flow, demandRepo, matchRepo, activityRepo, notifier := newMatchingFixture([]*models.Demand{demand}, listings)

		matches, err := flow.RunMatchingForDemand(txContext(), demand, true, actor)
		require.NoError(t, err)
		require.Len(t, matches, 2)

		assert.Equal(t, 1, matchRepo.upsertCalls)
		for _, m := range matches {
			assert.Equal(t, models.MatchStatusNew, m.Status)
			assert.Equal(t, uint(9), *m.CreatedBy)
		}

		runs := activityRepo.byAction(models.ActivityActionMatchingRun)
		require.Len(t, runs, 1)
		assert.Equal(t, demand.ID, runs[0].DemandID)
		assert.JSONEq(t, `{"candidates":2,"matches":2}`, string(runs[0].Metadata))

		assert.Equal(t, actor.Now(), demandRepo.lastActivity[demand.ID])
		assert.Equal(t, []int{2}, notifier.newMatches)
	})

	t.Run("PersistFailureSkipsNotification", func(t *testing.T) {
		demand := &models.Demand{ID: 1, Category: models.DemandCategoryResidential, Status: models.DemandStatusActive}
		listings := &fakeListingRepo{
			listingType: models.ListingTypeResidential,
			snapshots:   []models.ListingSnapshot{snapshotWithPrice(1, nil)},
		}
		flow, _, matchRepo, _, notifier := newMatchingFixture([]*models.Demand{demand}, listings)
		matchRepo.upsertErr = errors.New("deadlock detected")

		_, err := flow.RunMatchingForDemand(txContext(), demand, true, actor)
		require.Error(t, err)

		var businessErr *BusinessError
		require.ErrorAs(t, err, &businessErr)
		assert.Equal(t, "MATCH_PERSIST_FAILED", businessErr.Code)
		assert.Empty(t, notifier.newMatches)
	})

	t.Run("CoarseFilterWidensBoundsByTolerance", func(t *testing.T) {
		demand := &models.Demand{
			ID:        1,
			Category:  models.DemandCategoryResidential,
			Status:    models.DemandStatusActive,
			PriceMin:  utils.ToPtr(100000.0),
			PriceMax:  utils.ToPtr(200000.0),
			AreaMin:   utils.ToPtr(100.0),
			AreaMax:   utils.ToPtr(200.0),
			Locations: models.LocationPreferences{{CityID: 34}, {CityID: 6}},
		}
		listings := &fakeListingRepo{listingType: models.ListingTypeResidential}
		flow, _, _, _, _ := newMatchingFixture([]*models.Demand{demand}, listings)

		_, err := flow.RunMatchingForDemand(txContext(), demand, false, actor)
		require.NoError(t, err)

		filter := listings.lastFilter
		require.NotNil(t, filter)
		assert.InDelta(t, 80000.0, *filter.PriceMin, 1e-9)
		assert.InDelta(t, 240000.0, *filter.PriceMax, 1e-9)
		assert.InDelta(t, 70.0, *filter.AreaMin, 1e-9)
		assert.InDelta(t, 260.0, *filter.AreaMax, 1e-9)
		assert.Equal(t, []uint{34, 6}, filter.CityIDs)
	})
}

func TestRunMatchingForAllActiveDemands(t *testing.T) {
	actor := NewActorContextAt(nil, time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC))

	t.Run("OneFailureDoesNotAbortTheSweep", func(t *testing.T) {
		okDemand := &models.Demand{ID: 1, Category: models.DemandCategoryResidential, Status: models.DemandStatusActive}
		badDemand := &models.Demand{ID: 2, Category: models.DemandCategoryCommercial, Status: models.DemandStatusActive}
		pausedDemand := &models.Demand{ID: 3, Category: models.DemandCategoryResidential, Status: models.DemandStatusPaused}

		residential := &fakeListingRepo{
			listingType: models.ListingTypeResidential,
			snapshots:   []models.ListingSnapshot{snapshotWithPrice(1, nil)},
		}
		commercial := &fakeListingRepo{
			listingType: models.ListingTypeCommercial,
			findErr:     errors.New("relation missing"),
		}

		demandRepo := newFakeDemandRepo(okDemand, badDemand, pausedDemand)
		matchRepo := newFakeMatchRepo()
		activityRepo := &fakeActivityRepo{}
		registry := repository.NewListingRepositoryRegistry(residential, commercial)
		flow := NewMatchingFlow(demandRepo, matchRepo, activityRepo, registry, nil, nil, &fakeNotifier{}, nil)

		summary, err := flow.RunMatchingForAllActiveDemands(txContext(), actor)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.DemandsProcessed)
		assert.Equal(t, 1, summary.DemandsFailed)
		assert.Equal(t, 1, summary.MatchesWritten)
	})
}

func TestFindDemandsForListing(t *testing.T) {
	t.Run("InvalidListingTypeFails", func(t *testing.T) {
		listings := &fakeListingRepo{listingType: models.ListingTypeResidential}
		flow, _, _, _, _ := newMatchingFixture(nil, listings)

		_, err := flow.FindDemandsForListing(txContext(), &dto.FindDemandsForListingRequest{
			ListingType: "parking_garage",
			ListingID:   1,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrListingTypeInvalid)
	})

	t.Run("UnknownListingFails", func(t *testing.T) {
		listings := &fakeListingRepo{listingType: models.ListingTypeResidential}
		flow, _, _, _, _ := newMatchingFixture(nil, listings)

		_, err := flow.FindDemandsForListing(txContext(), &dto.FindDemandsForListingRequest{
			ListingType: "residential",
			ListingID:   404,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrListingNotFound)
	})

	t.Run("ReturnsActiveDemandsAboveThresholdWithoutWriting", func(t *testing.T) {
		good := &models.Demand{
			ID:       1,
			Category: models.DemandCategoryResidential,
			Status:   models.DemandStatusActive,
			PriceMax: utils.ToPtr(200000.0),
			Customer: &models.Customer{FirstName: "Ayse", LastName: "Demir"},
		}
		negotiating := &models.Demand{
			ID:       2,
			Category: models.DemandCategoryResidential,
			Status:   models.DemandStatusNegotiating,
			PriceMax: utils.ToPtr(100000.0),
		}
		paused := &models.Demand{
			ID:       3,
			Category: models.DemandCategoryResidential,
			Status:   models.DemandStatusPaused,
		}

		listings := &fakeListingRepo{
			listingType: models.ListingTypeResidential,
			snapshots:   []models.ListingSnapshot{snapshotWithPrice(50, utils.ToPtr(150000.0))},
		}
		flow, _, matchRepo, activityRepo, notifier := newMatchingFixture(
			[]*models.Demand{good, negotiating, paused}, listings)

		resp, err := flow.FindDemandsForListing(txContext(), &dto.FindDemandsForListingRequest{
			ListingType: "residential",
			ListingID:   50,
		})
		require.NoError(t, err)
		require.Len(t, resp.Demands, 2)

		// The in-range demand outranks the one whose budget the price exceeds
		assert.Equal(t, good.UUID.String(), resp.Demands[0].DemandUUID)
		require.NotNil(t, resp.Demands[0].CustomerName)
		assert.Equal(t, "Ayse Demir", *resp.Demands[0].CustomerName)
		assert.Greater(t, resp.Demands[0].Score, resp.Demands[1].Score)

		assert.Zero(t, matchRepo.upsertCalls)
		assert.Empty(t, activityRepo.activities)
		assert.Empty(t, notifier.newMatches)
	})
}

func TestStatistics(t *testing.T) {
	t.Run("CountsAreAggregatedWithoutCache", func(t *testing.T) {
		demands := []*models.Demand{
			{ID: 1, Category: models.DemandCategoryResidential, Status: models.DemandStatusActive},
			{ID: 2, Category: models.DemandCategoryResidential, Status: models.DemandStatusNegotiating},
			{ID: 3, Category: models.DemandCategoryResidential, Status: models.DemandStatusCompleted},
		}
		demandRepo := newFakeDemandRepo(demands...)
		matchRepo := newFakeMatchRepo(
			&models.Match{ID: 1, DemandID: 1, ListingID: 1, ListingType: models.ListingTypeResidential, Score: 0.9, Status: models.MatchStatusNew},
			&models.Match{ID: 2, DemandID: 1, ListingID: 2, ListingType: models.ListingTypeResidential, Score: 0.6, Status: models.MatchStatusReviewed},
			&models.Match{ID: 3, DemandID: 2, ListingID: 3, ListingType: models.ListingTypeResidential, Score: 0.85, Status: models.MatchStatusPresented},
		)

		registry := repository.NewListingRepositoryRegistry(&fakeListingRepo{listingType: models.ListingTypeResidential})
		flow := NewMatchingFlow(demandRepo, matchRepo, &fakeActivityRepo{}, registry, nil, nil, &fakeNotifier{}, nil)

		stats, err := flow.Statistics(txContext())
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.ActiveDemands)
		assert.Equal(t, int64(2), stats.DemandsWithMatches)
		assert.Equal(t, int64(3), stats.ActiveMatches)
		assert.Equal(t, int64(2), stats.HighScoreMatches)
		assert.Equal(t, int64(1), stats.PresentedMatches)
		assert.Equal(t, int64(2), stats.PendingMatches)
	})
}
