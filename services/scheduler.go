package services

import (
	stdctx "context"
	"os"
	"time"

	"github.com/Calstins/teensha/engine"
	"github.com/Calstins/teensha/services/repositories"
	"github.com/alphabatem/common/context"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// SchedulerService runs periodic maintenance: closing expired challenges and a nightly
// raffle eligibility sweep that heals missed triggers.
type SchedulerService struct {
	context.DefaultService

	db         Database
	challenges *repositories.ChallengeRepository
	progress   *repositories.ProgressRepository
	engine     *engine.Engine
	monitoring *MonitoringService

	expirySchedule      string
	eligibilitySchedule string
	jobTimeout          time.Duration
	now                 func() time.Time

	cron *cron.Cron
}

const SCHEDULER_SVC = "scheduler_svc"

func (svc SchedulerService) Id() string {
	return SCHEDULER_SVC
}

func (svc *SchedulerService) Configure(ctx *context.Context) error {
	svc.expirySchedule = os.Getenv("CRON_CHALLENGE_EXPIRY")
	if svc.expirySchedule == "" {
		svc.expirySchedule = "*/15 * * * *"
	}
	svc.eligibilitySchedule = os.Getenv("CRON_ELIGIBILITY_SWEEP")
	if svc.eligibilitySchedule == "" {
		svc.eligibilitySchedule = "0 2 * * *"
	}
	svc.jobTimeout = 10 * time.Minute
	svc.now = time.Now
	return svc.DefaultService.Configure(ctx)
}

func (svc *SchedulerService) Start() error {
	db, err := resolveDatabase(svc.Service(POSTGRES_SVC), svc.Service(SQLITE_SVC))
	if err != nil {
		return err
	}
	svc.db = db
	svc.challenges = repositories.NewChallengeRepository(db.Db())
	svc.progress = repositories.NewProgressRepository(db.Db())
	svc.engine = svc.Service(ENGINE_SVC).(*EngineService).Engine()
	svc.monitoring, _ = svc.Service(MONITORING_SVC).(*MonitoringService)

	svc.cron = cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))
	if _, err := svc.cron.AddFunc(svc.expirySchedule, svc.job("challenge_expiry", svc.closeExpiredChallenges)); err != nil {
		return err
	}
	if _, err := svc.cron.AddFunc(svc.eligibilitySchedule, svc.job("eligibility_sweep", func(ctx stdctx.Context) error {
		_, err := svc.SweepEligibility(ctx, svc.now().Year())
		return err
	})); err != nil {
		return err
	}
	svc.cron.Start()

	log.WithFields(log.Fields{
		"challenge_expiry":  svc.expirySchedule,
		"eligibility_sweep": svc.eligibilitySchedule,
	}).Info("Scheduler started")
	return nil
}

func (svc *SchedulerService) Shutdown() {
	if svc.cron != nil {
		<-svc.cron.Stop().Done()
	}
}

func (svc *SchedulerService) job(name string, run func(ctx stdctx.Context) error) func() {
	return func() {
		ctx, cancel := stdctx.WithTimeout(stdctx.Background(), svc.jobTimeout)
		defer cancel()

		start := time.Now()
		err := run(ctx)
		svc.monitoring.RecordJob(name, time.Since(start), err)
		if err != nil {
			log.WithError(err).WithField("job", name).Error("Scheduled job failed")
		}
	}
}

func (svc *SchedulerService) closeExpiredChallenges(ctx stdctx.Context) error {
	closed, err := svc.challenges.DeactivateExpired(ctx, svc.now())
	if err != nil {
		return svc.db.HandleError(err)
	}
	if closed > 0 {
		log.WithField("count", closed).Info("Closed expired challenges")
	}
	return nil
}

// SweepEligibility recomputes the raffle entry of every teen holding a badge from
// year and returns how many teens it visited. One teen failing does not stop the sweep.
func (svc *SchedulerService) SweepEligibility(ctx stdctx.Context, year int) (int, error) {
	teenIDs, err := svc.progress.ListBadgeHolders(ctx, year)
	if err != nil {
		return 0, svc.db.HandleError(err)
	}

	var failed int
	for _, teenID := range teenIDs {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if _, err := svc.engine.RecomputeEligibility(ctx, teenID, year); err != nil {
			failed++
			log.WithError(err).WithFields(log.Fields{"teen_id": teenID, "year": year}).Warn("Eligibility recompute failed")
		}
	}

	log.WithFields(log.Fields{"year": year, "teens": len(teenIDs), "failed": failed}).Info("Eligibility sweep finished")
	return len(teenIDs), nil
}
