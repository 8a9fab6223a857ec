package dto

import (
	"time"

	"github.com/oguzkaan/emlak-crm/models"
)

// DimensionScoreResponse represents one scored dimension in API responses
type DimensionScoreResponse struct {
	Score     float64 `json:"score"`
	Weight    float64 `json:"weight"`
	Rationale string  `json:"rationale"`
}

// ScoreBreakdownResponse represents the per-dimension score explanation
type ScoreBreakdownResponse struct {
	Category   DimensionScoreResponse `json:"category"`
	Price      DimensionScoreResponse `json:"price"`
	Area       DimensionScoreResponse `json:"area"`
	Location   DimensionScoreResponse `json:"location"`
	Features   DimensionScoreResponse `json:"features"`
	Composite  float64                `json:"composite"`
	ComputedAt time.Time              `json:"computed_at"`
	Algorithm  string                 `json:"algorithm"`
}

// MatchResponse represents one demand-listing match in API responses
type MatchResponse struct {
	UUID             string                 `json:"uuid"`
	DemandID         uint                   `json:"demand_id"`
	ListingID        uint                   `json:"listing_id"`
	ListingType      string                 `json:"listing_type"`
	Score            float64                `json:"score"`
	Breakdown        ScoreBreakdownResponse `json:"breakdown"`
	Status           string                 `json:"status"`
	StatusDisplay    string                 `json:"status_display"`
	StaffNotes       []string               `json:"staff_notes"`
	PresentedAt      *time.Time             `json:"presented_at,omitempty"`
	PresentedBy      *uint                  `json:"presented_by,omitempty"`
	CustomerFeedback *string                `json:"customer_feedback,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        *time.Time             `json:"updated_at,omitempty"`
}

// ListMatchesResponse represents a demand's active matches, best score first
type ListMatchesResponse struct {
	Matches []MatchResponse `json:"matches"`
	Total   int             `json:"total"`
}

// UpdateMatchStatusRequest represents the request to move a match through its lifecycle
type UpdateMatchStatusRequest struct {
	UUID   string  `json:"-"`
	Status string  `json:"status" validate:"required,oneof=new reviewed presented accepted rejected"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=2000"`
}

// UpdateMatchStatusResponse represents the response to a match status update
type UpdateMatchStatusResponse struct {
	Match MatchResponse `json:"match"`
}

// PresentMatchRequest represents the request to record a match presentation
type PresentMatchRequest struct {
	UUID string  `json:"-"`
	Note *string `json:"note,omitempty" validate:"omitempty,max=2000"`
}

// PresentMatchResponse represents the response to a match presentation
type PresentMatchResponse struct {
	Match MatchResponse `json:"match"`
}

// RecordFeedbackRequest represents the request to attach customer feedback to a match
type RecordFeedbackRequest struct {
	UUID     string  `json:"-"`
	Feedback string  `json:"feedback" validate:"required,max=4000"`
	Status   *string `json:"status,omitempty" validate:"omitempty,oneof=accepted rejected"`
}

// RecordFeedbackResponse represents the response to recording feedback
type RecordFeedbackResponse struct {
	Match MatchResponse `json:"match"`
}

// AddMatchNoteRequest represents the request to append a staff note to a match
type AddMatchNoteRequest struct {
	UUID string `json:"-"`
	Note string `json:"note" validate:"required,max=2000"`
}

// AddMatchNoteResponse represents the response to appending a staff note
type AddMatchNoteResponse struct {
	Match MatchResponse `json:"match"`
}

// MatchStatisticsResponse represents the portfolio-wide matching summary
type MatchStatisticsResponse struct {
	ActiveDemands      int64 `json:"active_demands"`
	DemandsWithMatches int64 `json:"demands_with_matches"`
	ActiveMatches      int64 `json:"active_matches"`
	HighScoreMatches   int64 `json:"high_score_matches"`
	PresentedMatches   int64 `json:"presented_matches"`
	PendingMatches     int64 `json:"pending_matches"`
}

// NewMatchResponse maps a persisted match to its API representation
func NewMatchResponse(m *models.Match) MatchResponse {
	return MatchResponse{
		UUID:             m.UUID.String(),
		DemandID:         m.DemandID,
		ListingID:        m.ListingID,
		ListingType:      m.ListingType.String(),
		Score:            m.Score,
		Breakdown:        NewScoreBreakdownResponse(m.Breakdown),
		Status:           m.Status.String(),
		StatusDisplay:    m.GetStatusDisplayName(),
		StaffNotes:       []string(m.StaffNotes),
		PresentedAt:      m.PresentedAt,
		PresentedBy:      m.PresentedBy,
		CustomerFeedback: m.CustomerFeedback,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// NewScoreBreakdownResponse maps a persisted breakdown to its API representation
func NewScoreBreakdownResponse(b models.ScoreBreakdown) ScoreBreakdownResponse {
	dim := func(d models.DimensionScore) DimensionScoreResponse {
		return DimensionScoreResponse{Score: d.Score, Weight: d.Weight, Rationale: d.Rationale}
	}
	return ScoreBreakdownResponse{
		Category:   dim(b.Category),
		Price:      dim(b.Price),
		Area:       dim(b.Area),
		Location:   dim(b.Location),
		Features:   dim(b.Features),
		Composite:  b.Composite,
		ComputedAt: b.ComputedAt,
		Algorithm:  b.Algorithm,
	}
}
