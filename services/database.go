package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/services/repositories"
	"github.com/Calstins/teensha/shared"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database is implemented by PostgresService and SqliteService. Exactly one of them
// is registered in the runtime context.
type Database interface {
	Db() *gorm.DB
	HandleError(err error) error
}

// resolveDatabase returns the first registered database service among candidates.
func resolveDatabase(candidates ...interface{}) (Database, error) {
	for _, c := range candidates {
		if db, ok := c.(Database); ok && db != nil {
			return db, nil
		}
	}
	return nil, errors.New("no database service registered")
}

func gormConfig(level logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// createDefaultAdmin seeds one ADMIN staff account when none exists yet.
func createDefaultAdmin(db *gorm.DB, email, password string) error {
	ctx := context.Background()
	users := repositories.NewUserRepository(db)

	count, err := users.CountStaffWithRole(ctx, model.RoleAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	admin := &model.Staff{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(email),
		Name:      "Administrator",
		Password:  string(hashed),
		Role:      model.RoleAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := users.CreateStaff(ctx, admin); err != nil {
		log.WithError(err).Error("Failed to create admin staff")
		return err
	}
	log.WithField("email", admin.Email).Warn("Default admin created, change its password")
	return nil
}

// mapDatabaseError converts gorm errors into typed application errors and logs them.
// dialectConflict matches driver messages for unique violations that gorm did not translate.
func mapDatabaseError(err error, dialectConflict string) error {
	if err == nil {
		return nil
	}
	if _, ok := shared.GetAppError(err); ok {
		return err
	}

	var appErr *shared.AppError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		appErr = shared.NewNotFoundError(err, "Not Found")
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), dialectConflict):
		appErr = shared.NewConflictError(err, "resource already exists")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		appErr = shared.NewBadRequestError(err, "referenced resource does not exist")
	case strings.Contains(err.Error(), "connection refused"):
		appErr = shared.NewDependencyError(err, "database unavailable")
	default:
		appErr = shared.NewInternalError(err, "Internal Server Error")
	}

	entry := log.WithFields(log.Fields{
		"status_code": appErr.StatusCode,
		"error_type":  appErr.Type,
		"error":       err.Error(),
	})
	if appErr.StatusCode >= 500 {
		entry.Error("Database error occurred")
	} else {
		entry.Debug("Database operation failed")
	}
	return appErr
}
