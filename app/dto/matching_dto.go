package dto

// RunMatchingRequest represents the request to run matching for one demand
type RunMatchingRequest struct {
	DemandUUID string `json:"-"`
	DryRun     bool   `json:"dry_run,omitempty"`
}

// RunMatchingResponse represents the result of a single matching run
type RunMatchingResponse struct {
	DemandUUID   string          `json:"demand_uuid"`
	MatchesFound int             `json:"matches_found"`
	Persisted    bool            `json:"persisted"`
	Matches      []MatchResponse `json:"matches"`
}

// SweepSummaryResponse represents the result of a portfolio-wide matching sweep
type SweepSummaryResponse struct {
	DemandsProcessed int `json:"demands_processed"`
	DemandsFailed    int `json:"demands_failed"`
	MatchesWritten   int `json:"matches_written"`
}

// FindDemandsForListingRequest represents the reverse search for a listing
type FindDemandsForListingRequest struct {
	ListingType string `json:"-" validate:"required,oneof=residential commercial land hospitality"`
	ListingID   uint   `json:"-" validate:"required"`
}

// DemandCandidateResponse represents one demand scored against a listing
type DemandCandidateResponse struct {
	DemandUUID   string                 `json:"demand_uuid"`
	CustomerID   uint                   `json:"customer_id"`
	CustomerName *string                `json:"customer_name,omitempty"`
	Score        float64                `json:"score"`
	Breakdown    ScoreBreakdownResponse `json:"breakdown"`
}

// FindDemandsForListingResponse represents the reverse search result
type FindDemandsForListingResponse struct {
	ListingType string                    `json:"listing_type"`
	ListingID   uint                      `json:"listing_id"`
	Demands     []DemandCandidateResponse `json:"demands"`
}

// ExportMatchesRequest represents the request to export a demand's matches
type ExportMatchesRequest struct {
	DemandUUID string `json:"-"`
}
