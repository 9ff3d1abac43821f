package services

import (
	"os"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SqliteService is the single-file database used for local development
// (DB_DRIVER=sqlite). It migrates the same models as PostgresService.
type SqliteService struct {
	context.DefaultService
	db *gorm.DB

	database      string
	adminEmail    string
	adminPassword string
}

const SQLITE_SVC = "sqlite_svc"

// Id returns Service ID
func (ds SqliteService) Id() string {
	return SQLITE_SVC
}

// Db Access to raw SqliteService db
func (ds SqliteService) Db() *gorm.DB {
	return ds.db
}

// Configure the service
func (ds *SqliteService) Configure(ctx *context.Context) error {
	ds.database = os.Getenv("DB_DATABASE")
	if ds.database == "" {
		ds.database = "teensha.db"
	}
	ds.adminEmail = os.Getenv("ADMIN_EMAIL")
	if ds.adminEmail == "" {
		ds.adminEmail = "admin@teensha.app"
	}
	ds.adminPassword = os.Getenv("ADMIN_PASSWORD")
	if ds.adminPassword == "" {
		ds.adminPassword = "ChangeMe123!"
	}

	return ds.DefaultService.Configure(ctx)
}

// Start the service and open connection to the database
// Migrate any tables that have changed since last runtime
func (ds *SqliteService) Start() (err error) {
	ds.db, err = gorm.Open(sqlite.Open(ds.database), gormConfig(logger.Error))
	if err != nil {
		return err
	}

	// sqlite serialises writers; one connection avoids "database is locked".
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)

	if err = migrate(ds.db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		return err
	}
	if err = createDefaultAdmin(ds.db, ds.adminEmail, ds.adminPassword); err != nil {
		return err
	}

	log.Println("Database connected and migrated successfully")
	return nil
}

func (ds *SqliteService) Shutdown() {
	if ds.db == nil {
		return
	}
	if sqlDB, err := ds.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (ds *SqliteService) HandleError(err error) error {
	return mapDatabaseError(err, "UNIQUE constraint failed")
}
