package testing

import (
	"fmt"
	"math/rand"

	"github.com/oguzkaan/emlak-crm/models"
	"github.com/oguzkaan/emlak-crm/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestCustomer creates an active customer with a unique mobile number
func (tf *TestFixtures) CreateTestCustomer() (*models.Customer, error) {
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)
	email := fmt.Sprintf("ayse.demir.%s@example.com", randomDigits)

	customer := &models.Customer{
		FirstName: "Ayse",
		LastName:  "Demir",
		Mobile:    fmt.Sprintf("+9055%s", randomDigits),
		Email:     &email,
		IsActive:  utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to create test customer: %w", err)
	}

	return customer, nil
}

// CreateTestStaff creates an active staff member
func (tf *TestFixtures) CreateTestStaff() (*models.Staff, error) {
	mobile := fmt.Sprintf("+9053%09d", rand.Intn(900000000)+100000000)

	staff := &models.Staff{
		FirstName: "Mehmet",
		LastName:  "Yilmaz",
		Mobile:    &mobile,
		IsActive:  utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(staff).Error; err != nil {
		return nil, fmt.Errorf("failed to create test staff: %w", err)
	}

	return staff, nil
}

// CreateTestDemand creates an active residential demand for the given customer
func (tf *TestFixtures) CreateTestDemand(customerID uint) (*models.Demand, error) {
	demand := &models.Demand{
		CustomerID: customerID,
		Category:   models.DemandCategoryResidential,
		SubType:    utils.ToPtr("apartment"),
		Status:     models.DemandStatusActive,
		PriceMin:   utils.ToPtr(1000000.0),
		PriceMax:   utils.ToPtr(3000000.0),
		AreaMin:    utils.ToPtr(80.0),
		AreaMax:    utils.ToPtr(160.0),
		Locations:  models.LocationPreferences{{CityID: 34, DistrictID: utils.ToPtr(uint(12))}},
		Features:   models.FeatureMap{"parking": true, "balcony": true},
	}

	if err := tf.DB.DB.Create(demand).Error; err != nil {
		return nil, fmt.Errorf("failed to create test demand: %w", err)
	}

	return demand, nil
}

// CreateTestResidentialListing creates a published, active residential listing
// inside the default test demand's criteria
func (tf *TestFixtures) CreateTestResidentialListing() (*models.ResidentialListing, error) {
	listing := &models.ResidentialListing{
		ListingCore: models.ListingCore{
			Title:     "3+1 apartment with parking",
			TypeTag:   utils.ToPtr("apartment"),
			Price:     utils.ToPtr(2400000.0),
			Area:      utils.ToPtr(135.0),
			Status:    models.ListingStatusActive,
			Published: utils.ToPtr(true),
			Addresses: models.AddressList{{CityID: 34, DistrictID: utils.ToPtr(uint(12))}},
			Features:  models.FeatureMap{"parking": true, "balcony": true},
		},
		RoomCount: utils.ToPtr(int16(4)),
	}

	if err := tf.DB.DB.Create(listing).Error; err != nil {
		return nil, fmt.Errorf("failed to create test listing: %w", err)
	}

	return listing, nil
}

// CreateTestMatch creates an active match between a demand and a listing
func (tf *TestFixtures) CreateTestMatch(demandID, listingID uint, score float64) (*models.Match, error) {
	match := &models.Match{
		DemandID:    demandID,
		ListingID:   listingID,
		ListingType: models.ListingTypeResidential,
		Score:       score,
		Status:      models.MatchStatusNew,
		IsActive:    utils.ToPtr(true),
		Breakdown: models.ScoreBreakdown{
			Composite: score,
			Algorithm: "v1",
		},
	}

	if err := tf.DB.DB.Create(match).Error; err != nil {
		return nil, fmt.Errorf("failed to create test match: %w", err)
	}

	return match, nil
}
