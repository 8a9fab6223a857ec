package businessflow

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oguzkaan/emlak-crm/models"
)

// Scoring constants. Weights sum to 1.0 and are fixed, not configurable
// per request.
const (
	WeightCategory = 0.10
	WeightPrice    = 0.30
	WeightArea     = 0.25
	WeightLocation = 0.20
	WeightFeatures = 0.15

	PriceTolerance = 0.20
	AreaTolerance  = 0.30

	FeatureNumericTolerance = 0.10

	// scoreNeutral applies when the demand states no preference,
	// scoreUnknown when the listing's value is unknown, and
	// scoreMissing when the listing lacks the data the demand asks about.
	scoreNeutral = 0.7
	scoreUnknown = 0.5
	scoreMissing = 0.3

	locationCityCredit        = 0.4
	locationDistrictCredit    = 0.3
	locationSubdistrictCredit = 0.3

	// MinMatchScore is the acceptance threshold: candidates scoring
	// strictly below it are discarded.
	MinMatchScore = 0.30

	// MaxMatchCount caps the result list of a single matching run.
	MaxMatchCount = 20

	// HighScoreThreshold marks a match worth escalated notification.
	HighScoreThreshold = 0.80

	// AlgorithmVersion tags every persisted breakdown so future
	// re-scoring can tell legacy scores apart.
	AlgorithmVersion = "v1"
)

// CategoryScore compares the demand's category and optional sub-type against
// the listing's type. The candidate selector only feeds same-category
// listings to the engine, so the mismatch branch matters for the reverse
// search and for direct scoring of arbitrary pairs.
func CategoryScore(demand *models.Demand, listing models.ListingSnapshot) (float64, string) {
	if demand.Category != listing.Ref.Type.Category() {
		return 0.0, fmt.Sprintf("category mismatch: demand wants %s, listing is %s", demand.Category, listing.Ref.Type.Category())
	}

	if demand.SubType == nil || *demand.SubType == "" {
		return 1.0, "category matches, no sub-type preference"
	}

	if listing.TypeTag != nil && strings.Contains(strings.ToLower(*listing.TypeTag), strings.ToLower(*demand.SubType)) {
		return 1.0, fmt.Sprintf("category and sub-type %q match", *demand.SubType)
	}

	return scoreNeutral, fmt.Sprintf("category matches but sub-type %q does not", *demand.SubType)
}

// PriceScore measures how well the listing's price fits the demand's bounds,
// with a linear decay over a 20% tolerance band outside them.
func PriceScore(demand *models.Demand, listing models.ListingSnapshot) (float64, string) {
	return rangeScore("price", listing.Price, demand.PriceMin, demand.PriceMax, PriceTolerance)
}

// AreaScore is the price score's shape with a wider 30% tolerance band,
// since area figures are less precise than prices.
func AreaScore(demand *models.Demand, listing models.ListingSnapshot) (float64, string) {
	return rangeScore("area", listing.Area, demand.AreaMin, demand.AreaMax, AreaTolerance)
}

func rangeScore(dimension string, value, min, max *float64, tolerance float64) (float64, string) {
	if value == nil {
		return scoreUnknown, fmt.Sprintf("listing %s unknown", dimension)
	}
	if min == nil && max == nil {
		return scoreNeutral, fmt.Sprintf("no %s preference", dimension)
	}

	v := *value
	if (min == nil || v >= *min) && (max == nil || v <= *max) {
		return 1.0, fmt.Sprintf("%s within requested range", dimension)
	}

	// Overshoot is measured relative to the violated bound
	var overshoot float64
	if max != nil && v > *max {
		overshoot = (v - *max) / *max
	} else {
		overshoot = (*min - v) / *min
	}

	score := math.Max(0, 1-overshoot/tolerance)
	return score, fmt.Sprintf("%s outside range by %.0f%%", dimension, overshoot*100)
}

// LocationScore awards hierarchical partial credit per (preference, address)
// pair and takes the best pair. District and subdistrict only add credit on
// top of a city match.
func LocationScore(demand *models.Demand, listing models.ListingSnapshot) (float64, string) {
	if len(demand.Locations) == 0 {
		return scoreNeutral, "no location preference"
	}
	if len(listing.Addresses) == 0 {
		return scoreMissing, "listing has no recorded address"
	}

	best := 0.0
	for _, pref := range demand.Locations {
		for _, addr := range listing.Addresses {
			if pref.CityID != addr.CityID {
				continue
			}
			score := locationCityCredit
			if pref.DistrictID != nil && addr.DistrictID != nil && *pref.DistrictID == *addr.DistrictID {
				score += locationDistrictCredit
				if pref.SubdistrictID != nil && addr.SubdistrictID != nil && *pref.SubdistrictID == *addr.SubdistrictID {
					score += locationSubdistrictCredit
				}
			}
			if score > best {
				best = score
			}
		}
	}

	if best == 0 {
		return 0.0, "no address matches any preferred location"
	}
	return best, fmt.Sprintf("best location overlap %.1f", best)
}

// FeatureScore is the fraction of the demand's feature criteria the listing
// satisfies. Comparison is type aware; a type mismatch counts as unsatisfied
// rather than an error.
func FeatureScore(demand *models.Demand, listing models.ListingSnapshot) (float64, string) {
	if len(demand.Features) == 0 {
		return scoreNeutral, "no feature criteria"
	}
	if len(listing.Features) == 0 {
		return scoreMissing, "listing has no recorded features"
	}

	satisfied := 0
	for name, desired := range demand.Features {
		actual, ok := listing.Features[name]
		if !ok {
			continue
		}
		if featureValueMatches(desired, actual) {
			satisfied++
		}
	}

	score := float64(satisfied) / float64(len(demand.Features))
	return score, fmt.Sprintf("%d of %d feature criteria satisfied", satisfied, len(demand.Features))
}

// featureValueMatches compares one desired feature value against the
// listing's actual value. Strings compare case-insensitively, numbers within
// a relative tolerance, and a collection on the listing side matches when it
// contains the desired value.
func featureValueMatches(desired, actual any) bool {
	if list, ok := actual.([]any); ok {
		for _, item := range list {
			if featureValueMatches(desired, item) {
				return true
			}
		}
		return false
	}

	if ds, ok := desired.(string); ok {
		as, ok := actual.(string)
		return ok && strings.EqualFold(ds, as)
	}

	if dn, ok := toFloat(desired); ok {
		an, ok := toFloat(actual)
		if !ok {
			return false
		}
		if dn == 0 {
			return an == 0
		}
		return math.Abs(an-dn)/math.Abs(dn) <= FeatureNumericTolerance
	}

	if db, ok := desired.(bool); ok {
		ab, ok := actual.(bool)
		return ok && db == ab
	}

	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// ScoreMatch computes the composite score of one demand-listing pair and the
// breakdown explaining it. Pure computation, no I/O.
func ScoreMatch(demand *models.Demand, listing models.ListingSnapshot, at time.Time) (float64, models.ScoreBreakdown) {
	categoryScore, categoryWhy := CategoryScore(demand, listing)
	priceScore, priceWhy := PriceScore(demand, listing)
	areaScore, areaWhy := AreaScore(demand, listing)
	locationScore, locationWhy := LocationScore(demand, listing)
	featureScore, featureWhy := FeatureScore(demand, listing)

	composite := round3(categoryScore*WeightCategory +
		priceScore*WeightPrice +
		areaScore*WeightArea +
		locationScore*WeightLocation +
		featureScore*WeightFeatures)

	breakdown := models.ScoreBreakdown{
		Category:   models.DimensionScore{Score: categoryScore, Weight: WeightCategory, Rationale: categoryWhy},
		Price:      models.DimensionScore{Score: priceScore, Weight: WeightPrice, Rationale: priceWhy},
		Area:       models.DimensionScore{Score: areaScore, Weight: WeightArea, Rationale: areaWhy},
		Location:   models.DimensionScore{Score: locationScore, Weight: WeightLocation, Rationale: locationWhy},
		Features:   models.DimensionScore{Score: featureScore, Weight: WeightFeatures, Rationale: featureWhy},
		Composite:  composite,
		ComputedAt: at.UTC(),
		Algorithm:  AlgorithmVersion,
	}

	return composite, breakdown
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
