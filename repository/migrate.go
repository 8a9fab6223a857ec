package repository

import (
	"fmt"
	"strings"

	"github.com/oguzkaan/emlak-crm/models"
	"gorm.io/gorm"
)

// enumTypes lists the Postgres enum types backing the model columns.
// They must exist before AutoMigrate creates the tables.
var enumTypes = []struct {
	name   string
	values []string
}{
	{"demand_category", []string{"land", "commercial", "residential", "hospitality"}},
	{"demand_status", []string{"active", "negotiating", "paused", "completed", "cancelled"}},
	{"listing_type", []string{"land", "commercial", "residential", "hospitality"}},
	{"listing_status", []string{"active", "inactive", "sold", "rented"}},
	{"match_status", []string{"new", "reviewed", "presented", "accepted", "rejected"}},
}

// Migrate creates the enum types and brings the schema up to date
func Migrate(db *gorm.DB) error {
	for _, enum := range enumTypes {
		quoted := make([]string, 0, len(enum.values))
		for _, v := range enum.values {
			quoted = append(quoted, "'"+v+"'")
		}

		stmt := fmt.Sprintf(
			"DO $$ BEGIN CREATE TYPE %s AS ENUM (%s); EXCEPTION WHEN duplicate_object THEN NULL; END $$;",
			enum.name, strings.Join(quoted, ", "))
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create enum type %s: %w", enum.name, err)
		}
	}

	return db.AutoMigrate(
		&models.Customer{},
		&models.Staff{},
		&models.Demand{},
		&models.DemandActivity{},
		&models.Match{},
		&models.ResidentialListing{},
		&models.CommercialListing{},
		&models.LandListing{},
		&models.HospitalityListing{},
	)
}
