package services

import (
	stdctx "context"
	"fmt"
	"testing"
	"time"

	"github.com/Calstins/teensha/engine"
	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/services/repositories"
)

func newTestScheduler(t *testing.T, now time.Time) (*SchedulerService, testDatabase) {
	t.Helper()
	db := newTestDatabase(t)
	return &SchedulerService{
		db:         db,
		challenges: repositories.NewChallengeRepository(db.Db()),
		progress:   repositories.NewProgressRepository(db.Db()),
		engine:     engine.New(repositories.NewStore(db.Db()), engine.WithClock(func() time.Time { return now })),
		now:        func() time.Time { return now },
	}, db
}

func TestCloseExpiredChallenges(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	svc, db := newTestScheduler(t, now)

	for month, closing := range map[int]time.Time{1: now.Add(-time.Hour), 4: now.Add(time.Hour)} {
		c := model.Challenge{
			ID: fmt.Sprintf("ch-%d", month), Title: "c", Year: 2025, Month: month,
			GoLiveAt: now.Add(-48 * time.Hour), ClosingAt: closing, IsPublished: true, IsActive: true,
		}
		if err := db.Db().Create(&c).Error; err != nil {
			t.Fatal(err)
		}
	}

	if err := svc.closeExpiredChallenges(stdctx.Background()); err != nil {
		t.Fatalf("job: %v", err)
	}

	var expired, open model.Challenge
	db.Db().First(&expired, "id = ?", "ch-1")
	db.Db().First(&open, "id = ?", "ch-4")
	if expired.IsActive || !open.IsActive {
		t.Fatalf("expired active=%v open active=%v", expired.IsActive, open.IsActive)
	}
}

func TestSweepEligibilityCreatesEntries(t *testing.T) {
	now := time.Date(2025, 12, 31, 2, 0, 0, 0, time.UTC)
	svc, db := newTestScheduler(t, now)

	for _, id := range []string{"teen-full", "teen-part"} {
		if err := db.Db().Create(&model.Teen{ID: id, Email: id + "@example.com", Name: id, IsActive: true}).Error; err != nil {
			t.Fatal(err)
		}
	}
	for month := 1; month <= 12; month++ {
		id := fmt.Sprintf("ch-%02d", month)
		rows := []interface{}{
			&model.Challenge{ID: id, Title: id, Year: 2025, Month: month, IsPublished: true, IsActive: true},
			&model.Badge{ID: "b-" + id, ChallengeID: id, Name: id, Price: 1000, IsActive: true},
			&model.TeenBadge{ID: "full-" + id, TeenID: "teen-full", BadgeID: "b-" + id, Status: model.BadgeEarned},
		}
		if month <= 3 {
			rows = append(rows, &model.TeenBadge{ID: "part-" + id, TeenID: "teen-part", BadgeID: "b-" + id, Status: model.BadgePurchased})
		}
		for _, row := range rows {
			if err := db.Db().Create(row).Error; err != nil {
				t.Fatal(err)
			}
		}
	}

	visited, err := svc.SweepEligibility(stdctx.Background(), 2025)
	if err != nil || visited != 2 {
		t.Fatalf("sweep: visited=%d err=%v", visited, err)
	}

	ctx := stdctx.Background()
	full, err := svc.progress.GetRaffleEntry(ctx, "teen-full", 2025)
	if err != nil || !full.IsEligible || full.BadgeCount != 12 {
		t.Fatalf("full entry = %+v, err %v", full, err)
	}
	part, err := svc.progress.GetRaffleEntry(ctx, "teen-part", 2025)
	if err != nil || part.IsEligible || part.BadgeCount != 3 {
		t.Fatalf("partial entry = %+v, err %v", part, err)
	}
}
