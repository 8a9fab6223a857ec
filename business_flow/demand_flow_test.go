package businessflow

import (
	"testing"
	"time"

	"github.com/oguzkaan/emlak-crm/app/dto"
	"github.com/oguzkaan/emlak-crm/models"
	"github.com/oguzkaan/emlak-crm/repository"
	"github.com/oguzkaan/emlak-crm/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type demandFixture struct {
	flow         DemandFlow
	demandRepo   *fakeDemandRepo
	matchRepo    *fakeMatchRepo
	activityRepo *fakeActivityRepo
	notifier     *fakeNotifier
}

func newDemandFixture(demands []*models.Demand, customers []*models.Customer, staff []*models.Staff, snapshots []models.ListingSnapshot) *demandFixture {
	demandRepo := newFakeDemandRepo(demands...)
	matchRepo := newFakeMatchRepo()
	activityRepo := &fakeActivityRepo{}
	notifier := &fakeNotifier{}

	registry := repository.NewListingRepositoryRegistry(&fakeListingRepo{
		listingType: models.ListingTypeResidential,
		snapshots:   snapshots,
	})
	matching := NewMatchingFlow(demandRepo, matchRepo, activityRepo, registry, nil, nil, notifier, nil)
	flow := NewDemandFlow(demandRepo, newFakeCustomerRepo(customers...), newFakeStaffRepo(staff...), activityRepo, nil, matching, notifier)

	return &demandFixture{
		flow:         flow,
		demandRepo:   demandRepo,
		matchRepo:    matchRepo,
		activityRepo: activityRepo,
		notifier:     notifier,
	}
}

func activeCustomer(id uint) *models.Customer {
	return &models.Customer{
		ID:        id,
		FirstName: "Ali",
		LastName:  "Kaya",
		Mobile:    "+905551112233",
		IsActive:  utils.ToPtr(true),
	}
}

func TestCreateDemand(t *testing.T) {
	actor := NewActorContextAt(utils.ToPtr(uint(7)), time.Date(2026, 5, 10, 14, 0, 0, 0, time.UTC))

	t.Run("CreatesDemandAndRunsMatching", func(t *testing.T) {
		fx := newDemandFixture(nil,
			[]*models.Customer{activeCustomer(1)},
			[]*models.Staff{{ID: 5}},
			[]models.ListingSnapshot{residentialSnapshot(11)})

		resp, err := fx.flow.CreateDemand(txContext(), &dto.CreateDemandRequest{
			CustomerID: 1,
			StaffID:    utils.ToPtr(uint(5)),
			Category:   "residential",
			Note:       utils.ToPtr("prefers south-facing units"),
		}, actor)
		require.NoError(t, err)

		assert.NotEmpty(t, resp.Demand.UUID)
		assert.Equal(t, "active", resp.Demand.Status)
		assert.Equal(t, []string{"prefers south-facing units"}, resp.Demand.Notes)
		require.NotNil(t, resp.Demand.CustomerName)
		assert.Equal(t, "Ali Kaya", *resp.Demand.CustomerName)
		assert.Equal(t, 1, resp.MatchesFound)

		created := fx.activityRepo.byAction(models.ActivityActionDemandCreated)
		require.Len(t, created, 1)
		assert.Equal(t, actor.Actor(), created[0].ActorID)
		assert.Len(t, fx.activityRepo.byAction(models.ActivityActionMatchingRun), 1)
		assert.Equal(t, 1, fx.matchRepo.upsertCalls)
	})

	t.Run("RejectsInvalidCategory", func(t *testing.T) {
		fx := newDemandFixture(nil, []*models.Customer{activeCustomer(1)}, nil, nil)

		_, err := fx.flow.CreateDemand(txContext(), &dto.CreateDemandRequest{
			CustomerID: 1,
			Category:   "warehouse",
		}, actor)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDemandCategoryInvalid)
	})

	t.Run("RejectsUnknownCustomer", func(t *testing.T) {
		fx := newDemandFixture(nil, nil, nil, nil)

		_, err := fx.flow.CreateDemand(txContext(), &dto.CreateDemandRequest{
			CustomerID: 404,
			Category:   "residential",
		}, actor)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCustomerNotFound)
	})

	t.Run("RejectsInactiveCustomer", func(t *testing.T) {
		customer := activeCustomer(1)
		customer.IsActive = utils.ToPtr(false)
		fx := newDemandFixture(nil, []*models.Customer{customer}, nil, nil)

		_, err := fx.flow.CreateDemand(txContext(), &dto.CreateDemandRequest{
			CustomerID: 1,
			Category:   "residential",
		}, actor)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCustomerInactive)
	})

	t.Run("RejectsUnknownStaff", func(t *testing.T) {
		fx := newDemandFixture(nil, []*models.Customer{activeCustomer(1)}, nil, nil)

		_, err := fx.flow.CreateDemand(txContext(), &dto.CreateDemandRequest{
			CustomerID: 1,
			StaffID:    utils.ToPtr(uint(404)),
			Category:   "residential",
		}, actor)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStaffNotFound)
	})

	t.Run("RejectsInvertedBounds", func(t *testing.T) {
		fx := newDemandFixture(nil, []*models.Customer{activeCustomer(1)}, nil, nil)

		_, err := fx.flow.CreateDemand(txContext(), &dto.CreateDemandRequest{
			CustomerID: 1,
			Category:   "residential",
			PriceMin:   utils.ToPtr(500000.0),
			PriceMax:   utils.ToPtr(100000.0),
		}, actor)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidPriceBounds)

		_, err = fx.flow.CreateDemand(txContext(), &dto.CreateDemandRequest{
			CustomerID: 1,
			Category:   "residential",
			AreaMin:    utils.ToPtr(200.0),
			AreaMax:    utils.ToPtr(100.0),
		}, actor)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidAreaBounds)
	})
}

func TestUpdateDemand(t *testing.T) {
	actor := NewActorContextAt(utils.ToPtr(uint(7)), time.Date(2026, 5, 11, 10, 0, 0, 0, time.UTC))

	newDemand := func() *models.Demand {
		return &models.Demand{
			ID:       1,
			Category: models.DemandCategoryResidential,
			Status:   models.DemandStatusActive,
			PriceMax: utils.ToPtr(200000.0),
		}
	}

	t.Run("PriceChangeRetriggersMatchingAndNotifies", func(t *testing.T) {
		demand := newDemand()
		fx := newDemandFixture([]*models.Demand{demand}, nil, nil,
			[]models.ListingSnapshot{residentialSnapshot(11)})

		resp, err := fx.flow.UpdateDemand(txContext(), &dto.UpdateDemandRequest{
			UUID:     demand.UUID.String(),
			PriceMax: utils.ToPtr(300000.0),
		}, actor)
		require.NoError(t, err)

		assert.True(t, resp.Rematched)
		assert.Equal(t, []string{"price_range"}, fx.notifier.demandUpdated[0])
		assert.Equal(t, 1, fx.matchRepo.upsertCalls)

		updated := fx.activityRepo.byAction(models.ActivityActionDemandUpdated)
		require.Len(t, updated, 1)
		assert.JSONEq(t, `{"changed_fields":["price_range"]}`, string(updated[0].Metadata))
	})

	t.Run("NoteOnlyUpdateDoesNotRematch", func(t *testing.T) {
		demand := newDemand()
		fx := newDemandFixture([]*models.Demand{demand}, nil, nil,
			[]models.ListingSnapshot{residentialSnapshot(11)})

		resp, err := fx.flow.UpdateDemand(txContext(), &dto.UpdateDemandRequest{
			UUID: demand.UUID.String(),
			Note: utils.ToPtr("called back, still interested"),
		}, actor)
		require.NoError(t, err)

		assert.False(t, resp.Rematched)
		assert.Equal(t, []string{"called back, still interested"}, resp.Demand.Notes)
		assert.Empty(t, fx.notifier.demandUpdated)
		assert.Zero(t, fx.matchRepo.upsertCalls)
		assert.Len(t, fx.activityRepo.byAction(models.ActivityActionDemandUpdated), 1)
	})

	t.Run("PriorityOnlyUpdateDoesNotRematch", func(t *testing.T) {
		demand := newDemand()
		fx := newDemandFixture([]*models.Demand{demand}, nil, nil,
			[]models.ListingSnapshot{residentialSnapshot(11)})

		resp, err := fx.flow.UpdateDemand(txContext(), &dto.UpdateDemandRequest{
			UUID:     demand.UUID.String(),
			Priority: utils.ToPtr(int16(1)),
		}, actor)
		require.NoError(t, err)

		assert.False(t, resp.Rematched)
		assert.Empty(t, fx.notifier.demandUpdated)
		assert.Zero(t, fx.matchRepo.upsertCalls)
	})

	t.Run("RejectsInvalidStatus", func(t *testing.T) {
		demand := newDemand()
		fx := newDemandFixture([]*models.Demand{demand}, nil, nil, nil)

		_, err := fx.flow.UpdateDemand(txContext(), &dto.UpdateDemandRequest{
			UUID:   demand.UUID.String(),
			Status: utils.ToPtr("archived"),
		}, actor)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDemandStatusInvalid)
	})

	t.Run("RejectsEmptyUpdate", func(t *testing.T) {
		fx := newDemandFixture(nil, nil, nil, nil)

		_, err := fx.flow.UpdateDemand(txContext(), &dto.UpdateDemandRequest{
			UUID: "0e5cc1b2-94f5-4f3e-9f75-3f5b2a3c4d5e",
		}, actor)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDemandUpdateRequired)
	})

	t.Run("UnknownDemandFails", func(t *testing.T) {
		fx := newDemandFixture(nil, nil, nil, nil)

		_, err := fx.flow.UpdateDemand(txContext(), &dto.UpdateDemandRequest{
			UUID: "0e5cc1b2-94f5-4f3e-9f75-3f5b2a3c4d5e",
			Note: utils.ToPtr("still searching"),
		}, actor)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDemandNotFound)
	})
}

func TestListDemands(t *testing.T) {
	t.Run("AppliesPagingDefaults", func(t *testing.T) {
		fx := newDemandFixture([]*models.Demand{
			{ID: 1, Category: models.DemandCategoryResidential, Status: models.DemandStatusActive},
			{ID: 2, Category: models.DemandCategoryLand, Status: models.DemandStatusPaused},
		}, nil, nil, nil)

		resp, err := fx.flow.ListDemands(txContext(), &dto.ListDemandsRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.Total)
		assert.Equal(t, 1, resp.Page)
		assert.Len(t, resp.Demands, 2)
	})

	t.Run("FiltersByCategory", func(t *testing.T) {
		fx := newDemandFixture([]*models.Demand{
			{ID: 1, Category: models.DemandCategoryResidential, Status: models.DemandStatusActive},
			{ID: 2, Category: models.DemandCategoryLand, Status: models.DemandStatusActive},
		}, nil, nil, nil)

		resp, err := fx.flow.ListDemands(txContext(), &dto.ListDemandsRequest{
			Category: utils.ToPtr("land"),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.Total)
		require.Len(t, resp.Demands, 1)
		assert.Equal(t, "land", resp.Demands[0].Category)
	})

	t.Run("RejectsInvalidFilterValues", func(t *testing.T) {
		fx := newDemandFixture(nil, nil, nil, nil)

		_, err := fx.flow.ListDemands(txContext(), &dto.ListDemandsRequest{Category: utils.ToPtr("warehouse")})
		assert.ErrorIs(t, err, ErrDemandCategoryInvalid)

		_, err = fx.flow.ListDemands(txContext(), &dto.ListDemandsRequest{Status: utils.ToPtr("archived")})
		assert.ErrorIs(t, err, ErrDemandStatusInvalid)
	})
}

func TestDeleteDemand(t *testing.T) {
	t.Run("SoftDeletesByUUID", func(t *testing.T) {
		demand := &models.Demand{ID: 3, Category: models.DemandCategoryResidential, Status: models.DemandStatusActive}
		fx := newDemandFixture([]*models.Demand{demand}, nil, nil, nil)

		err := fx.flow.DeleteDemand(txContext(), demand.UUID.String(), NewActorContext(nil))
		require.NoError(t, err)
		assert.Equal(t, []uint{3}, fx.demandRepo.softDeleted)
	})

	t.Run("UnknownDemandFails", func(t *testing.T) {
		fx := newDemandFixture(nil, nil, nil, nil)

		err := fx.flow.DeleteDemand(txContext(), "0e5cc1b2-94f5-4f3e-9f75-3f5b2a3c4d5e", NewActorContext(nil))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDemandNotFound)
	})
}

func TestListActivities(t *testing.T) {
	t.Run("ReturnsOnlyThisDemandsEntries", func(t *testing.T) {
		demand := &models.Demand{ID: 4, Category: models.DemandCategoryResidential, Status: models.DemandStatusActive}
		fx := newDemandFixture([]*models.Demand{demand}, nil, nil, nil)

		require.NoError(t, fx.activityRepo.Save(txContext(), &models.DemandActivity{
			DemandID: 4,
			Action:   models.ActivityActionDemandCreated,
		}))
		require.NoError(t, fx.activityRepo.Save(txContext(), &models.DemandActivity{
			DemandID: 99,
			Action:   models.ActivityActionDemandCreated,
		}))

		resp, err := fx.flow.ListActivities(txContext(), demand.UUID.String(), 50, 0)
		require.NoError(t, err)
		require.Len(t, resp.Activities, 1)
		assert.Equal(t, models.ActivityActionDemandCreated, resp.Activities[0].Action)
	})
}
