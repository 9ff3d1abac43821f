package main

import (
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Calstins/teensha/seed/seeders"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	var (
		seedType = flag.String("type", "all", "Type of seeding: all, admin, challenges")
		year     = flag.Int("year", time.Now().Year(), "Year to create monthly challenges for")
		dsn      = flag.String("db", "", "Database DSN or SQLite path (overrides DATABASE_URL / DB_DATABASE)")
		driver   = flag.String("driver", "", "postgres or sqlite (overrides DB_DRIVER)")
		help     = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	db, err := open(*driver, *dsn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	mainSeeder := seeders.NewMainSeeder(db)
	if err := mainSeeder.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	switch *seedType {
	case "all":
		log.Println("Running complete database seeding...")
		err = mainSeeder.SeedAll(*year)
	case "admin":
		log.Println("Seeding admin only...")
		err = mainSeeder.SeedAdminOnly()
	case "challenges":
		log.Printf("Seeding %d challenges only...", *year)
		err = mainSeeder.SeedChallengesOnly(*year)
	default:
		log.Fatalf("Unknown seed type: %s. Use 'all', 'admin' or 'challenges'", *seedType)
	}
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding operation completed successfully!")
}

func open(driver, dsn string) (*gorm.DB, error) {
	if driver == "" {
		driver = os.Getenv("DB_DRIVER")
	}
	config := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}

	if strings.EqualFold(driver, "sqlite") {
		if dsn == "" {
			dsn = os.Getenv("DB_DATABASE")
		}
		if dsn == "" {
			dsn = "teensha.db"
		}
		log.Printf("Connected to database: %s", dsn)
		return gorm.Open(sqlite.Open(dsn), config)
	}

	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	log.Println("Connected to postgres database")
	return gorm.Open(postgres.Open(dsn), config)
}

func showHelp() {
	log.Print(`
Database Seeding Tool for Teensha

Usage: go run ./seed [flags]

Flags:
  -type string
        Type of seeding to perform (default "all")
        Options: all, admin, challenges
  -year int
        Year to create the twelve monthly challenges for (default: current year)
  -driver string
        postgres or sqlite (overrides DB_DRIVER)
  -db string
        Database DSN or SQLite path
  -help
        Show this help message

Examples:
  # Seed everything into the configured database
  go run ./seed

  # Seed next year's challenges into a local SQLite file
  go run ./seed -driver=sqlite -db=./teensha.db -type=challenges -year=2026

Environment Variables:
  DB_DRIVER      - postgres (default) or sqlite
  DATABASE_URL   - postgres DSN
  DB_DATABASE    - SQLite path (default: teensha.db)
  ADMIN_EMAIL    - seeded admin email (default: admin@teensha.app)
  ADMIN_PASSWORD - seeded admin password (default: ChangeMe123!)
`)
}
