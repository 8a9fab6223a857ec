package businessflow

import (
	"context"
	"log"

	"github.com/oguzkaan/emlak-crm/app/dto"
	"github.com/oguzkaan/emlak-crm/app/services"
	"github.com/oguzkaan/emlak-crm/models"
	"github.com/oguzkaan/emlak-crm/repository"
	"github.com/oguzkaan/emlak-crm/utils"
	"gorm.io/gorm"
)

// MatchLifecycleFlow moves matches through their lifecycle and keeps the
// demand's activity log appended. Status writes are not blocked by a guard
// table; any status is settable, and every change lands in the audit trail.
type MatchLifecycleFlow interface {
	SetStatus(ctx context.Context, req *dto.UpdateMatchStatusRequest, actor *ActorContext) (*dto.UpdateMatchStatusResponse, error)
	Present(ctx context.Context, req *dto.PresentMatchRequest, actor *ActorContext) (*dto.PresentMatchResponse, error)
	RecordFeedback(ctx context.Context, req *dto.RecordFeedbackRequest, actor *ActorContext) (*dto.RecordFeedbackResponse, error)
	AddNote(ctx context.Context, req *dto.AddMatchNoteRequest, actor *ActorContext) (*dto.AddMatchNoteResponse, error)
	ListByDemand(ctx context.Context, demandUUID string) (*dto.ListMatchesResponse, error)
}

// MatchLifecycleFlowImpl implements the match lifecycle business flow
type MatchLifecycleFlowImpl struct {
	matchRepo    repository.MatchRepository
	demandRepo   repository.DemandRepository
	activityRepo repository.DemandActivityRepository
	notifier     services.NotificationService
	db           *gorm.DB
}

// NewMatchLifecycleFlow creates a new match lifecycle flow instance
func NewMatchLifecycleFlow(
	matchRepo repository.MatchRepository,
	demandRepo repository.DemandRepository,
	activityRepo repository.DemandActivityRepository,
	db *gorm.DB,
	notifier services.NotificationService,
) MatchLifecycleFlow {
	return &MatchLifecycleFlowImpl{
		matchRepo:    matchRepo,
		demandRepo:   demandRepo,
		activityRepo: activityRepo,
		notifier:     notifier,
		db:           db,
	}
}

// SetStatus applies a lifecycle transition, appends the optional note, and
// writes the activity-log entry in the same transaction as the match update.
func (s *MatchLifecycleFlowImpl) SetStatus(ctx context.Context, req *dto.UpdateMatchStatusRequest, actor *ActorContext) (*dto.UpdateMatchStatusResponse, error) {
	newStatus := models.MatchStatus(req.Status)
	if !newStatus.Valid() {
		return nil, NewBusinessError("MATCH_STATUS_INVALID", "Invalid match status", ErrInvalidMatchStatus)
	}

	match, err := getMatchByUUID(ctx, s.matchRepo, req.UUID)
	if err != nil {
		return nil, NewBusinessError("MATCH_LOOKUP_FAILED", "Failed to lookup match", err)
	}

	oldStatus := match.Status
	match.Status = newStatus
	if req.Note != nil {
		match.AppendStaffNote(*req.Note)
	}
	match.UpdatedBy = actor.Actor()

	if err := s.applyChange(ctx, match, oldStatus, models.ActivityActionMatchStatusChanged, req.Note, actor); err != nil {
		return nil, NewBusinessError("MATCH_STATUS_UPDATE_FAILED", "Failed to update match status", err)
	}

	s.notifyStatus(match, newStatus)

	return &dto.UpdateMatchStatusResponse{Match: dto.NewMatchResponse(match)}, nil
}

// Present records a presentation: status moves to presented, the timestamp
// and presenting staff are stored, and optional feedback is kept with it.
func (s *MatchLifecycleFlowImpl) Present(ctx context.Context, req *dto.PresentMatchRequest, actor *ActorContext) (*dto.PresentMatchResponse, error) {
	match, err := getMatchByUUID(ctx, s.matchRepo, req.UUID)
	if err != nil {
		return nil, NewBusinessError("MATCH_LOOKUP_FAILED", "Failed to lookup match", err)
	}

	oldStatus := match.Status
	now := actor.Now()
	match.Status = models.MatchStatusPresented
	match.PresentedAt = &now
	match.PresentedBy = actor.Actor()
	match.UpdatedBy = actor.Actor()
	if req.Note != nil {
		match.AppendStaffNote(*req.Note)
	}

	if err := s.applyChange(ctx, match, oldStatus, models.ActivityActionMatchPresented, req.Note, actor); err != nil {
		return nil, NewBusinessError("MATCH_PRESENT_FAILED", "Failed to record presentation", err)
	}

	if err := s.notifier.NotifyMatchPresented(match); err != nil {
		log.Printf("presentation notification failed for match %s: %v", match.UUID, err)
	}

	return &dto.PresentMatchResponse{Match: dto.NewMatchResponse(match)}, nil
}

// RecordFeedback stores the customer's reaction and optionally moves the
// match to a final status (accepted or rejected). Exactly one activity entry
// is written either way.
func (s *MatchLifecycleFlowImpl) RecordFeedback(ctx context.Context, req *dto.RecordFeedbackRequest, actor *ActorContext) (*dto.RecordFeedbackResponse, error) {
	if req.Feedback == "" {
		return nil, NewBusinessError("FEEDBACK_REQUIRED", "Customer feedback is required", ErrFeedbackRequired)
	}

	match, err := getMatchByUUID(ctx, s.matchRepo, req.UUID)
	if err != nil {
		return nil, NewBusinessError("MATCH_LOOKUP_FAILED", "Failed to lookup match", err)
	}

	oldStatus := match.Status
	match.CustomerFeedback = &req.Feedback
	match.UpdatedBy = actor.Actor()

	statusChanged := false
	if req.Status != nil {
		newStatus := models.MatchStatus(*req.Status)
		if !newStatus.Valid() {
			return nil, NewBusinessError("MATCH_STATUS_INVALID", "Invalid match status", ErrInvalidMatchStatus)
		}
		if !newStatus.IsTerminal() {
			return nil, NewBusinessError("FEEDBACK_STATUS_NOT_FINAL", "Feedback status must be accepted or rejected", ErrFeedbackStatusFinal)
		}
		match.Status = newStatus
		statusChanged = newStatus != oldStatus
	}

	if err := s.applyChange(ctx, match, oldStatus, models.ActivityActionMatchFeedback, &req.Feedback, actor); err != nil {
		return nil, NewBusinessError("MATCH_FEEDBACK_FAILED", "Failed to record feedback", err)
	}

	if statusChanged {
		s.notifyStatus(match, match.Status)
	}

	return &dto.RecordFeedbackResponse{Match: dto.NewMatchResponse(match)}, nil
}

// AddNote appends a staff note without touching the lifecycle status
func (s *MatchLifecycleFlowImpl) AddNote(ctx context.Context, req *dto.AddMatchNoteRequest, actor *ActorContext) (*dto.AddMatchNoteResponse, error) {
	if req.Note == "" {
		return nil, NewBusinessError("MATCH_NOTE_REQUIRED", "Note is required", ErrMatchNoteRequired)
	}

	match, err := getMatchByUUID(ctx, s.matchRepo, req.UUID)
	if err != nil {
		return nil, NewBusinessError("MATCH_LOOKUP_FAILED", "Failed to lookup match", err)
	}

	oldStatus := match.Status
	match.AppendStaffNote(req.Note)
	match.UpdatedBy = actor.Actor()

	if err := s.applyChange(ctx, match, oldStatus, models.ActivityActionMatchStatusChanged, &req.Note, actor); err != nil {
		return nil, NewBusinessError("MATCH_NOTE_FAILED", "Failed to append note", err)
	}

	return &dto.AddMatchNoteResponse{Match: dto.NewMatchResponse(match)}, nil
}

// ListByDemand returns a demand's active matches, best score first
func (s *MatchLifecycleFlowImpl) ListByDemand(ctx context.Context, demandUUID string) (*dto.ListMatchesResponse, error) {
	demand, err := getDemandByUUID(ctx, s.demandRepo, demandUUID)
	if err != nil {
		return nil, NewBusinessError("DEMAND_LOOKUP_FAILED", "Failed to lookup demand", err)
	}

	matches, err := s.matchRepo.ActiveByDemand(ctx, demand.ID)
	if err != nil {
		return nil, NewBusinessError("MATCH_LIST_FAILED", "Failed to list matches", err)
	}

	resp := &dto.ListMatchesResponse{
		Matches: make([]dto.MatchResponse, 0, len(matches)),
		Total:   len(matches),
	}
	for _, m := range matches {
		resp.Matches = append(resp.Matches, dto.NewMatchResponse(m))
	}

	return resp, nil
}

// applyChange saves the mutated match, appends the activity-log entry on the
// parent demand, and bumps the demand's last-activity timestamp atomically.
func (s *MatchLifecycleFlowImpl) applyChange(ctx context.Context, match *models.Match, oldStatus models.MatchStatus, action string, note *string, actor *ActorContext) error {
	now := actor.Now()

	return repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		match.UpdatedAt = utils.ToPtr(now)
		if err := s.matchRepo.Update(txCtx, *match); err != nil {
			return err
		}

		activity := &models.DemandActivity{
			DemandID:    match.DemandID,
			Action:      action,
			OldStatus:   &oldStatus,
			NewStatus:   &match.Status,
			ListingID:   &match.ListingID,
			ListingType: &match.ListingType,
			Note:        note,
			ActorID:     actor.Actor(),
			CreatedAt:   now,
		}
		if err := s.activityRepo.Save(txCtx, activity); err != nil {
			return err
		}

		return s.demandRepo.UpdateLastActivity(txCtx, match.DemandID, now)
	})
}

func (s *MatchLifecycleFlowImpl) notifyStatus(match *models.Match, status models.MatchStatus) {
	var err error
	switch status {
	case models.MatchStatusAccepted:
		err = s.notifier.NotifyMatchAccepted(match)
	case models.MatchStatusRejected:
		err = s.notifier.NotifyMatchRejected(match)
	default:
		return
	}
	if err != nil {
		log.Printf("status notification failed for match %s: %v", match.UUID, err)
	}
}
