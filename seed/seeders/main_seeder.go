package seeders

import (
	"log"

	"github.com/Calstins/teensha/model"
	"gorm.io/gorm"
)

// MainSeeder coordinates all seeding operations
type MainSeeder struct {
	db *gorm.DB
}

func NewMainSeeder(db *gorm.DB) *MainSeeder {
	return &MainSeeder{db: db}
}

func (s *MainSeeder) Migrate() error {
	return s.db.AutoMigrate(model.All()...)
}

// SeedAll runs all seeders in the correct order
func (s *MainSeeder) SeedAll(year int) error {
	log.Println("Starting database seeding...")

	// Challenges record who created them.
	adminID, err := NewAdminSeeder(s.db).SeedAdmin()
	if err != nil {
		log.Printf("Admin seeding failed: %v", err)
		return err
	}

	if err := NewChallengeSeeder(s.db, adminID).SeedYear(year); err != nil {
		log.Printf("Challenge seeding failed: %v", err)
		return err
	}

	log.Println("Database seeding completed successfully!")
	return nil
}

func (s *MainSeeder) SeedAdminOnly() error {
	_, err := NewAdminSeeder(s.db).SeedAdmin()
	return err
}

func (s *MainSeeder) SeedChallengesOnly(year int) error {
	adminID, err := NewAdminSeeder(s.db).SeedAdmin()
	if err != nil {
		return err
	}
	return NewChallengeSeeder(s.db, adminID).SeedYear(year)
}
