package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/oguzkaan/emlak-crm/app/dto"
	"github.com/oguzkaan/emlak-crm/repository"
	"github.com/xuri/excelize/v2"
)

// ReportFlow produces staff-facing exports of matching results
type ReportFlow interface {
	ExportDemandMatches(ctx context.Context, req *dto.ExportMatchesRequest) (filename string, content []byte, err error)
}

// ReportFlowImpl implements the report business flow
type ReportFlowImpl struct {
	demandRepo repository.DemandRepository
	matchRepo  repository.MatchRepository
}

// NewReportFlow creates a new report flow instance
func NewReportFlow(demandRepo repository.DemandRepository, matchRepo repository.MatchRepository) ReportFlow {
	return &ReportFlowImpl{
		demandRepo: demandRepo,
		matchRepo:  matchRepo,
	}
}

// ExportDemandMatches writes one demand's active matches to an Excel sheet,
// best score first, one row per match with the per-dimension scores.
func (s *ReportFlowImpl) ExportDemandMatches(ctx context.Context, req *dto.ExportMatchesRequest) (string, []byte, error) {
	demand, err := getDemandByUUID(ctx, s.demandRepo, req.DemandUUID)
	if err != nil {
		return "", nil, NewBusinessError("DEMAND_LOOKUP_FAILED", "Failed to lookup demand", err)
	}

	matches, err := s.matchRepo.ActiveByDemand(ctx, demand.ID)
	if err != nil {
		return "", nil, NewBusinessError("MATCH_LIST_FAILED", "Failed to list matches", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "Matches"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{
		"listing_type", "listing_id", "score", "status",
		"category_score", "price_score", "area_score", "location_score", "feature_score",
		"presented_at", "customer_feedback", "created_at",
	}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for ri, m := range matches {
		presentedAt := ""
		if m.PresentedAt != nil {
			presentedAt = m.PresentedAt.UTC().Format(time.RFC3339)
		}
		feedback := ""
		if m.CustomerFeedback != nil {
			feedback = *m.CustomerFeedback
		}

		record := []string{
			m.ListingType.String(),
			strconv.FormatUint(uint64(m.ListingID), 10),
			strconv.FormatFloat(m.Score, 'f', 3, 64),
			m.Status.String(),
			strconv.FormatFloat(m.Breakdown.Category.Score, 'f', 3, 64),
			strconv.FormatFloat(m.Breakdown.Price.Score, 'f', 3, 64),
			strconv.FormatFloat(m.Breakdown.Area.Score, 'f', 3, 64),
			strconv.FormatFloat(m.Breakdown.Location.Score, 'f', 3, 64),
			strconv.FormatFloat(m.Breakdown.Features.Score, 'f', 3, 64),
			presentedAt,
			feedback,
			m.CreatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	filename := fmt.Sprintf("demand_%s_matches.xlsx", demand.UUID)
	return filename, buf.Bytes(), nil
}
