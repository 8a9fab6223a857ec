package businessflow

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/oguzkaan/emlak-crm/app/dto"
	"github.com/oguzkaan/emlak-crm/models"
	"github.com/oguzkaan/emlak-crm/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportDemandMatches(t *testing.T) {
	t.Run("WritesOneRowPerActiveMatch", func(t *testing.T) {
		demand := &models.Demand{ID: 10, Category: models.DemandCategoryResidential, Status: models.DemandStatusActive}
		demandRepo := newFakeDemandRepo(demand)

		presentedAt := time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)
		match := &models.Match{
			ID:          1,
			DemandID:    10,
			ListingID:   42,
			ListingType: models.ListingTypeResidential,
			Score:       0.955,
			Status:      models.MatchStatusPresented,
			PresentedAt: &presentedAt,
			Breakdown: models.ScoreBreakdown{
				Category: models.DimensionScore{Score: 1.0, Weight: WeightCategory},
				Price:    models.DimensionScore{Score: 1.0, Weight: WeightPrice},
				Area:     models.DimensionScore{Score: 1.0, Weight: WeightArea},
				Location: models.DimensionScore{Score: 1.0, Weight: WeightLocation},
				Features: models.DimensionScore{Score: 0.7, Weight: WeightFeatures},
			},
			CustomerFeedback: utils.ToPtr("very interested"),
			CreatedAt:        time.Date(2026, 5, 19, 9, 0, 0, 0, time.UTC),
		}
		matchRepo := newFakeMatchRepo(match)

		flow := NewReportFlow(demandRepo, matchRepo)
		filename, content, err := flow.ExportDemandMatches(txContext(), &dto.ExportMatchesRequest{
			DemandUUID: demand.UUID.String(),
		})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("demand_%s_matches.xlsx", demand.UUID), filename)
		require.NotEmpty(t, content)

		xl, err := excelize.OpenReader(bytes.NewReader(content))
		require.NoError(t, err)
		defer func() { _ = xl.Close() }()

		cell := func(ref string) string {
			v, err := xl.GetCellValue("Matches", ref)
			require.NoError(t, err)
			return v
		}

		assert.Equal(t, "listing_type", cell("A1"))
		assert.Equal(t, "score", cell("C1"))
		assert.Equal(t, "residential", cell("A2"))
		assert.Equal(t, "42", cell("B2"))
		assert.Equal(t, "0.955", cell("C2"))
		assert.Equal(t, "presented", cell("D2"))
		assert.Equal(t, "0.700", cell("I2"))
		assert.Equal(t, "2026-05-20T10:00:00Z", cell("J2"))
		assert.Equal(t, "very interested", cell("K2"))
	})

	t.Run("UnknownDemandFails", func(t *testing.T) {
		flow := NewReportFlow(newFakeDemandRepo(), newFakeMatchRepo())

		_, _, err := flow.ExportDemandMatches(txContext(), &dto.ExportMatchesRequest{
			DemandUUID: "0e5cc1b2-94f5-4f3e-9f75-3f5b2a3c4d5e",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDemandNotFound)
	})
}
