package main

import (
	"os"
	"strings"

	"github.com/Calstins/teensha/services"
	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("No .env file found, using system environment variables")
	}

	ctx, err := context.NewCtx(
		database(),
		&services.RedisService{},
		&services.GeolocationService{},
		&services.MonitoringService{},

		&services.JWTService{},
		&services.EmailService{},
		&services.MinIOService{},
		&services.MediaService{},

		&services.NotificationService{},
		&services.EventBusService{},
		&services.MidtransService{},
		&services.EngineService{},

		&services.AuthService{},
		&services.ChallengeService{},
		&services.TeenService{},
		&services.RateLimitService{},
		&services.SchedulerService{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build service context")
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err).Msg("Service context stopped")
		return
	}
}

// database picks the store from DB_DRIVER. SQLite is for local development.
func database() context.Service {
	if strings.EqualFold(os.Getenv("DB_DRIVER"), "sqlite") {
		return &services.SqliteService{}
	}
	return &services.PostgresService{}
}
