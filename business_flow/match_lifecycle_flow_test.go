package businessflow

import (
	"testing"
	"time"

	"github.com/oguzkaan/emlak-crm/app/dto"
	"github.com/oguzkaan/emlak-crm/models"
	"github.com/oguzkaan/emlak-crm/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lifecycleFixture struct {
	flow         MatchLifecycleFlow
	demandRepo   *fakeDemandRepo
	matchRepo    *fakeMatchRepo
	activityRepo *fakeActivityRepo
	notifier     *fakeNotifier
}

func newLifecycleFixture(demands []*models.Demand, matches []*models.Match) *lifecycleFixture {
	demandRepo := newFakeDemandRepo(demands...)
	matchRepo := newFakeMatchRepo(matches...)
	activityRepo := &fakeActivityRepo{}
	notifier := &fakeNotifier{}

	flow := NewMatchLifecycleFlow(matchRepo, demandRepo, activityRepo, nil, notifier)
	return &lifecycleFixture{
		flow:         flow,
		demandRepo:   demandRepo,
		matchRepo:    matchRepo,
		activityRepo: activityRepo,
		notifier:     notifier,
	}
}

func newMatch() *models.Match {
	return &models.Match{
		ID:          1,
		DemandID:    10,
		ListingID:   50,
		ListingType: models.ListingTypeResidential,
		Score:       0.87,
		Status:      models.MatchStatusNew,
	}
}

func TestSetStatus(t *testing.T) {
	actor := NewActorContextAt(utils.ToPtr(uint(7)), time.Date(2026, 5, 12, 9, 0, 0, 0, time.UTC))

	t.Run("UpdatesMatchAndWritesActivity", func(t *testing.T) {
		match := newMatch()
		fx := newLifecycleFixture(nil, []*models.Match{match})

		resp, err := fx.flow.SetStatus(txContext(), &dto.UpdateMatchStatusRequest{
			UUID:   match.UUID.String(),
			Status: "reviewed",
			Note:   utils.ToPtr("shortlisted for the weekend tour"),
		}, actor)
		require.NoError(t, err)

		assert.Equal(t, "reviewed", resp.Match.Status)
		assert.Equal(t, []string{"shortlisted for the weekend tour"}, resp.Match.StaffNotes)
		assert.Equal(t, 1, fx.matchRepo.updateCalls)

		entries := fx.activityRepo.byAction(models.ActivityActionMatchStatusChanged)
		require.Len(t, entries, 1)
		assert.Equal(t, match.DemandID, entries[0].DemandID)
		assert.Equal(t, models.MatchStatusNew, *entries[0].OldStatus)
		assert.Equal(t, models.MatchStatusReviewed, *entries[0].NewStatus)
		assert.Equal(t, match.ListingID, *entries[0].ListingID)
		assert.Equal(t, uint(7), *entries[0].ActorID)

		assert.Equal(t, actor.Now(), fx.demandRepo.lastActivity[match.DemandID])
		assert.Zero(t, fx.notifier.accepted)
		assert.Zero(t, fx.notifier.rejected)
	})

	t.Run("AcceptedStatusNotifies", func(t *testing.T) {
		match := newMatch()
		fx := newLifecycleFixture(nil, []*models.Match{match})

		_, err := fx.flow.SetStatus(txContext(), &dto.UpdateMatchStatusRequest{
			UUID:   match.UUID.String(),
			Status: "accepted",
		}, actor)
		require.NoError(t, err)
		assert.Equal(t, 1, fx.notifier.accepted)
	})

	t.Run("RejectedStatusNotifies", func(t *testing.T) {
		match := newMatch()
		fx := newLifecycleFixture(nil, []*models.Match{match})

		_, err := fx.flow.SetStatus(txContext(), &dto.UpdateMatchStatusRequest{
			UUID:   match.UUID.String(),
			Status: "rejected",
		}, actor)
		require.NoError(t, err)
		assert.Equal(t, 1, fx.notifier.rejected)
	})

	t.Run("RejectsInvalidStatus", func(t *testing.T) {
		fx := newLifecycleFixture(nil, []*models.Match{newMatch()})

		_, err := fx.flow.SetStatus(txContext(), &dto.UpdateMatchStatusRequest{
			UUID:   "irrelevant",
			Status: "archived",
		}, actor)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidMatchStatus)
	})

	t.Run("UnknownMatchFails", func(t *testing.T) {
		fx := newLifecycleFixture(nil, nil)

		_, err := fx.flow.SetStatus(txContext(), &dto.UpdateMatchStatusRequest{
			UUID:   "0e5cc1b2-94f5-4f3e-9f75-3f5b2a3c4d5e",
			Status: "reviewed",
		}, actor)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMatchNotFound)
	})

	t.Run("SupersededMatchIsRejected", func(t *testing.T) {
		match := newMatch()
		match.IsActive = utils.ToPtr(false)
		fx := newLifecycleFixture(nil, []*models.Match{match})

		_, err := fx.flow.SetStatus(txContext(), &dto.UpdateMatchStatusRequest{
			UUID:   match.UUID.String(),
			Status: "reviewed",
		}, actor)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMatchInactive)
		assert.Zero(t, fx.matchRepo.updateCalls)
	})
}

func TestPresent(t *testing.T) {
	actor := NewActorContextAt(utils.ToPtr(uint(7)), time.Date(2026, 5, 12, 15, 30, 0, 0, time.UTC))

	t.Run("RecordsPresentationDetails", func(t *testing.T) {
		match := newMatch()
		fx := newLifecycleFixture(nil, []*models.Match{match})

		resp, err := fx.flow.Present(txContext(), &dto.PresentMatchRequest{
			UUID: match.UUID.String(),
			Note: utils.ToPtr("viewing scheduled for Saturday"),
		}, actor)
		require.NoError(t, err)

		assert.Equal(t, "presented", resp.Match.Status)
		require.NotNil(t, resp.Match.PresentedAt)
		assert.Equal(t, actor.Now(), *resp.Match.PresentedAt)
		require.NotNil(t, resp.Match.PresentedBy)
		assert.Equal(t, uint(7), *resp.Match.PresentedBy)

		entries := fx.activityRepo.byAction(models.ActivityActionMatchPresented)
		require.Len(t, entries, 1)
		assert.Equal(t, models.MatchStatusNew, *entries[0].OldStatus)
		assert.Equal(t, models.MatchStatusPresented, *entries[0].NewStatus)

		assert.Equal(t, 1, fx.notifier.presented)
	})
}

func TestRecordFeedback(t *testing.T) {
	actor := NewActorContextAt(utils.ToPtr(uint(7)), time.Date(2026, 5, 13, 11, 0, 0, 0, time.UTC))

	t.Run("RequiresFeedbackText", func(t *testing.T) {
		fx := newLifecycleFixture(nil, []*models.Match{newMatch()})

		_, err := fx.flow.RecordFeedback(txContext(), &dto.RecordFeedbackRequest{
			UUID: "irrelevant",
		}, actor)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFeedbackRequired)
	})

	t.Run("RejectsNonFinalStatus", func(t *testing.T) {
		match := newMatch()
		fx := newLifecycleFixture(nil, []*models.Match{match})

		_, err := fx.flow.RecordFeedback(txContext(), &dto.RecordFeedbackRequest{
			UUID:     match.UUID.String(),
			Feedback: "needs to think it over",
			Status:   utils.ToPtr("reviewed"),
		}, actor)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFeedbackStatusFinal)
		assert.Zero(t, fx.matchRepo.updateCalls)
	})

	t.Run("StoresFeedbackWithoutStatusChange", func(t *testing.T) {
		match := newMatch()
		match.Status = models.MatchStatusPresented
		fx := newLifecycleFixture(nil, []*models.Match{match})

		resp, err := fx.flow.RecordFeedback(txContext(), &dto.RecordFeedbackRequest{
			UUID:     match.UUID.String(),
			Feedback: "liked the layout, unsure about the price",
		}, actor)
		require.NoError(t, err)

		assert.Equal(t, "presented", resp.Match.Status)
		require.NotNil(t, resp.Match.CustomerFeedback)
		assert.Equal(t, "liked the layout, unsure about the price", *resp.Match.CustomerFeedback)

		assert.Len(t, fx.activityRepo.byAction(models.ActivityActionMatchFeedback), 1)
		assert.Zero(t, fx.notifier.accepted)
		assert.Zero(t, fx.notifier.rejected)
	})

	t.Run("FeedbackWithAcceptanceNotifiesOnce", func(t *testing.T) {
		match := newMatch()
		match.Status = models.MatchStatusPresented
		fx := newLifecycleFixture(nil, []*models.Match{match})

		resp, err := fx.flow.RecordFeedback(txContext(), &dto.RecordFeedbackRequest{
			UUID:     match.UUID.String(),
			Feedback: "we want it",
			Status:   utils.ToPtr("accepted"),
		}, actor)
		require.NoError(t, err)

		assert.Equal(t, "accepted", resp.Match.Status)
		assert.Len(t, fx.activityRepo.byAction(models.ActivityActionMatchFeedback), 1)
		assert.Equal(t, 1, fx.notifier.accepted)
	})

	t.Run("SameStatusDoesNotNotify", func(t *testing.T) {
		match := newMatch()
		match.Status = models.MatchStatusAccepted
		fx := newLifecycleFixture(nil, []*models.Match{match})

		_, err := fx.flow.RecordFeedback(txContext(), &dto.RecordFeedbackRequest{
			UUID:     match.UUID.String(),
			Feedback: "confirming our decision",
			Status:   utils.ToPtr("accepted"),
		}, actor)
		require.NoError(t, err)
		assert.Zero(t, fx.notifier.accepted)
	})
}

func TestAddNote(t *testing.T) {
	actor := NewActorContextAt(utils.ToPtr(uint(7)), time.Date(2026, 5, 14, 16, 0, 0, 0, time.UTC))

	t.Run("RequiresNote", func(t *testing.T) {
		fx := newLifecycleFixture(nil, []*models.Match{newMatch()})

		_, err := fx.flow.AddNote(txContext(), &dto.AddMatchNoteRequest{UUID: "irrelevant"}, actor)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMatchNoteRequired)
	})

	t.Run("AppendsWithoutChangingStatus", func(t *testing.T) {
		match := newMatch()
		match.AppendStaffNote("first note")
		fx := newLifecycleFixture(nil, []*models.Match{match})

		resp, err := fx.flow.AddNote(txContext(), &dto.AddMatchNoteRequest{
			UUID: match.UUID.String(),
			Note: "owner open to negotiation",
		}, actor)
		require.NoError(t, err)

		assert.Equal(t, "new", resp.Match.Status)
		assert.Equal(t, []string{"first note", "owner open to negotiation"}, resp.Match.StaffNotes)
		assert.Len(t, fx.activityRepo.byAction(models.ActivityActionMatchStatusChanged), 1)
	})
}

func TestListByDemand(t *testing.T) {
	t.Run("ReturnsOnlyActiveMatchesOfTheDemand", func(t *testing.T) {
		demand := &models.Demand{ID: 10, Category: models.DemandCategoryResidential, Status: models.DemandStatusActive}

		mine := newMatch()
		inactive := &models.Match{ID: 2, DemandID: 10, ListingID: 51, ListingType: models.ListingTypeResidential, IsActive: utils.ToPtr(false)}
		other := &models.Match{ID: 3, DemandID: 99, ListingID: 52, ListingType: models.ListingTypeResidential}

		fx := newLifecycleFixture([]*models.Demand{demand}, []*models.Match{mine, inactive, other})

		resp, err := fx.flow.ListByDemand(txContext(), demand.UUID.String())
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Total)
		require.Len(t, resp.Matches, 1)
		assert.Equal(t, mine.UUID.String(), resp.Matches[0].UUID)
	})

	t.Run("UnknownDemandFails", func(t *testing.T) {
		fx := newLifecycleFixture(nil, nil)

		_, err := fx.flow.ListByDemand(txContext(), "0e5cc1b2-94f5-4f3e-9f75-3f5b2a3c4d5e")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDemandNotFound)
	})
}
