package services

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/Calstins/teensha/docs"
	"github.com/Calstins/teensha/middleware"
	"github.com/Calstins/teensha/services/handlers"
	"github.com/Calstins/teensha/shared"
	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	log "github.com/sirupsen/logrus"
)

type HttpService struct {
	context.DefaultService

	port        int
	corsOrigins string
	app         *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	svc.corsOrigins = os.Getenv("CORS_ORIGINS")
	if svc.corsOrigins == "" {
		svc.corsOrigins = "http://localhost:3000"
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	authSvc := svc.Service(AUTH_SVC).(*AuthService)
	challengeSvc := svc.Service(CHALLENGE_SVC).(*ChallengeService)
	teenSvc := svc.Service(TEEN_SVC).(*TeenService)
	notificationSvc := svc.Service(NOTIFICATION_SVC).(*NotificationService)
	engineSvc := svc.Service(ENGINE_SVC).(*EngineService)
	redisSvc := svc.Service(REDIS_SVC).(*RedisService)
	rateLimitSvc := svc.Service(RATE_LIMIT_SVC).(*RateLimitService)
	schedulerSvc := svc.Service(SCHEDULER_SVC).(*SchedulerService)

	svc.app = fiber.New(fiber.Config{
		AppName:               appName,
		JSONEncoder:           shared.JSONMarshal,
		JSONDecoder:           shared.JSONUnmarshal,
		BodyLimit:             6 * shared.MaxUploadSizeBytes,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          svc.handleError,
	})

	svc.app.Use(recover.New())
	svc.app.Use(requestid.New())
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "TRACE") || strings.EqualFold(os.Getenv("LOG_LEVEL"), "DEBUG") {
		svc.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${locals:requestid} ${status} - ${method} ${path} (${latency})\n",
		}))
	}
	svc.app.Use(cors.New(cors.Config{
		AllowOrigins:     svc.corsOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + handlers.SignatureHeader,
		AllowCredentials: !strings.Contains(svc.corsOrigins, "*"),
	}))
	if monitoringSvc, ok := svc.Service(MONITORING_SVC).(*MonitoringService); ok {
		svc.app.Use(MonitoringMiddleware(monitoringSvc))
	}

	svc.app.Get("/ping", svc.ping)
	svc.app.Get("/swagger/*", swagger.HandlerDefault)

	svc.registerRoutes(routeDeps{
		auth:         authSvc,
		challenges:   challengeSvc,
		teens:        teenSvc,
		notification: notificationSvc,
		engine:       engineSvc,
		feed:         redisSvc,
		limiter:      rateLimitSvc,
		sweeper:      schedulerSvc,
	})

	svc.app.Use(func(c *fiber.Ctx) error {
		return shared.ResponseJSON(c, http.StatusNotFound, "Not Found", nil)
	})

	go func() {
		if err := svc.app.Listen(fmt.Sprintf(":%v", svc.port)); err != nil {
			log.WithError(err).Error("HTTP server stopped")
		}
	}()
	log.WithField("port", svc.port).Info("HTTP server started")
	return nil
}

type routeDeps struct {
	auth         handlers.AuthServiceInterface
	challenges   handlers.ChallengeServiceInterface
	teens        handlers.TeenServiceInterface
	notification handlers.NotificationServiceInterface
	engine       *EngineService
	feed         handlers.FeedSubscriberInterface
	limiter      middleware.Limiter
	sweeper      handlers.RaffleSweeperInterface
}

func (svc *HttpService) registerRoutes(d routeDeps) {
	eng := d.engine.Engine()

	authHandler := handlers.NewAuthHandler(d.auth, d.teens)
	challengeHandler := handlers.NewChallengeHandler(d.challenges)
	submissionHandler := handlers.NewSubmissionHandler(eng, d.teens)
	progressHandler := handlers.NewProgressHandler(eng, d.teens)
	paymentHandler := handlers.NewPaymentHandler(eng, d.engine, d.teens)
	notificationHandler := handlers.NewNotificationHandler(d.notification, d.feed)
	adminHandler := handlers.NewAdminHandler(eng, d.teens, d.sweeper)

	v1 := svc.app.Group("/api/v1")
	v1.Get("/ping", svc.ping)

	auth := v1.Group("/auth")
	auth.Post("/teens/register", middleware.RateLimit(d.limiter, "register", middleware.ByEmail), authHandler.RegisterTeen)
	auth.Post("/teens/login", middleware.RateLimit(d.limiter, "login", middleware.ByEmail), authHandler.LoginTeen)
	auth.Post("/staff/login", middleware.RateLimit(d.limiter, "login", middleware.ByEmail), authHandler.LoginStaff)

	// Gateway callbacks carry no JWT; the signature authenticates them.
	v1.Post("/payments/webhook", paymentHandler.Webhook)

	protected := v1.Group("", d.auth.RequiredAuth(), middleware.RateLimit(d.limiter, "api_general", middleware.ByUser))
	protected.Get("/ws/feed", notificationHandler.UpgradeFeed, notificationHandler.Feed())

	protected.Get("/challenges", challengeHandler.ListChallenges)
	protected.Get("/challenges/:id", challengeHandler.GetChallenge)

	// Group middleware matches by prefix, so the /admin routes must register before
	// the teen-only group mounted on the bare prefix.
	admin := protected.Group("/admin", d.auth.RequireRole(shared.RoleStaff, shared.RoleAdmin))
	admin.Get("/stats", adminHandler.Stats)
	admin.Post("/challenges", challengeHandler.CreateChallenge)
	admin.Put("/challenges/:id", challengeHandler.UpdateChallenge)
	admin.Post("/challenges/:id/tasks", challengeHandler.AddTask)
	admin.Post("/challenges/:id/badge", challengeHandler.CreateBadge)
	admin.Post("/challenges/:id/publish", challengeHandler.PublishChallenge)
	admin.Get("/submissions", submissionHandler.ReviewQueue)
	admin.Patch("/submissions/:id/review", submissionHandler.Review)
	admin.Delete("/submissions/:id", submissionHandler.DeleteAny)
	admin.Post("/teens/:teenId/progress/:challengeId/recompute", adminHandler.RecomputeProgress)
	admin.Post("/teens/:teenId/raffle/:year/recompute", adminHandler.RecomputeEligibility)

	// Granting badges and drawing the raffle stay with admins.
	superAdmin := admin.Group("", d.auth.RequireRole(shared.RoleAdmin))
	superAdmin.Post("/teens/:teenId/badges/:badgeId/award", adminHandler.AwardBadge)
	superAdmin.Post("/raffle/:year/recompute", adminHandler.SweepEligibility)
	superAdmin.Post("/raffle/:year/draw", adminHandler.DrawRaffle)

	teen := protected.Group("", d.auth.RequireRole(shared.RoleTeen))
	teen.Get("/teens/me", authHandler.Me)
	teen.Post("/tasks/:taskId/submissions", middleware.RateLimit(d.limiter, "submission", middleware.ByUser), submissionHandler.SubmitTask)
	teen.Get("/submissions/me", submissionHandler.ListMine)
	teen.Delete("/submissions/:id", submissionHandler.DeleteMine)
	teen.Get("/progress/me", progressHandler.ListMine)
	teen.Get("/progress/challenges/:challengeId", progressHandler.GetChallengeProgress)
	teen.Get("/raffle/me/:year", progressHandler.RaffleStatus)
	teen.Get("/badges/me", paymentHandler.ListMyBadges)
	teen.Post("/badges/:badgeId/purchase", middleware.RateLimit(d.limiter, "purchase", middleware.ByUser), paymentHandler.PurchaseBadge)
	teen.Post("/payments/:reference/confirm", paymentHandler.ConfirmPurchase)
	teen.Get("/payments/me", paymentHandler.ListMyTransactions)
	teen.Get("/notifications", notificationHandler.List)
	teen.Patch("/notifications/:id/read", notificationHandler.MarkRead)
}

func (svc *HttpService) Shutdown() {
	if svc.app != nil {
		_ = svc.app.ShutdownWithTimeout(10 * time.Second)
	}
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "max-age=10")
	return shared.ResponseJSON(c, http.StatusOK, "Success", "pong")
}

func (svc *HttpService) handleError(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok && appErr.StatusCode >= http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("Request failed")
	}
	return shared.ResponseError(c, err)
}
