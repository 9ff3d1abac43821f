package seeders

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/services/repositories"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminSeeder handles seeding admin users
type AdminSeeder struct {
	users *repositories.UserRepository
}

func NewAdminSeeder(db *gorm.DB) *AdminSeeder {
	return &AdminSeeder{users: repositories.NewUserRepository(db)}
}

// SeedAdmin creates the admin staff account when it does not exist and returns its ID.
func (s *AdminSeeder) SeedAdmin() (string, error) {
	ctx := context.Background()
	email := strings.ToLower(os.Getenv("ADMIN_EMAIL"))
	if email == "" {
		email = "admin@teensha.app"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "ChangeMe123!"
	}

	existing, err := s.users.GetStaffByEmail(ctx, email)
	if err == nil {
		log.Println("Admin user already exists, skipping admin seeding")
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	id, _ := uuid.NewV7()
	now := time.Now().UTC()

	admin := &model.Staff{
		ID:        id.String(),
		Email:     email,
		Name:      "Administrator",
		Password:  string(hashedPassword),
		Role:      model.RoleAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.CreateStaff(ctx, admin); err != nil {
		log.Printf("Error creating admin user: %v", err)
		return "", err
	}

	log.Printf("Created admin user: %s", admin.Email)
	return admin.ID, nil
}
