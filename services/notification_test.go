package services

import (
	stdctx "context"
	"strings"
	"testing"
	"time"

	"github.com/Calstins/teensha/engine"
	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/services/repositories"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testDatabase struct{ db *gorm.DB }

func (d testDatabase) Db() *gorm.DB { return d.db }

func (d testDatabase) HandleError(err error) error {
	return mapDatabaseError(err, "UNIQUE constraint failed")
}

func newTestDatabase(t *testing.T) testDatabase {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), gormConfig(logger.Silent))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if err := migrate(db); err != nil {
		t.Skipf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return testDatabase{db: db}
}

func newTestNotificationService(t *testing.T) (*NotificationService, testDatabase) {
	t.Helper()
	db := newTestDatabase(t)
	return &NotificationService{
		db:            db,
		users:         repositories.NewUserRepository(db.Db()),
		challenges:    repositories.NewChallengeRepository(db.Db()),
		notifications: repositories.NewNotificationRepository(db.Db()),
	}, db
}

func seedTeens(t *testing.T, db *gorm.DB, active, inactive int) {
	t.Helper()
	for i := 0; i < active+inactive; i++ {
		teen := model.Teen{
			ID:       "teen-" + string(rune('a'+i)),
			Email:    string(rune('a'+i)) + "@example.com",
			Name:     "Teen",
			IsActive: true,
		}
		if err := db.Create(&teen).Error; err != nil {
			t.Fatalf("seed teen: %v", err)
		}
		if i >= active {
			if err := db.Model(&teen).Update("is_active", false).Error; err != nil {
				t.Fatalf("deactivate: %v", err)
			}
		}
	}
}

func TestDispatchBroadcastFansOut(t *testing.T) {
	svc, db := newTestNotificationService(t)
	seedTeens(t, db.Db(), 3, 1)

	ev := engine.Event{Type: engine.EventChallengePublished, Data: map[string]string{"title": "Save More"}, OccurredAt: time.Now()}
	if err := svc.Dispatch(stdctx.Background(), ev); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	var count int64
	db.Db().Model(&model.Notification{}).Where("type = ?", string(engine.EventChallengePublished)).Count(&count)
	if count != 3 {
		t.Fatalf("notifications = %d, want one per active teen", count)
	}
}

func TestDispatchTargetedAndMarkRead(t *testing.T) {
	svc, db := newTestNotificationService(t)
	seedTeens(t, db.Db(), 2, 0)
	ctx := stdctx.Background()

	ev := engine.Event{Type: engine.EventBadgeEarned, TeenID: "teen-a", Data: map[string]string{"badge_name": "Budget Boss"}}
	if err := svc.Dispatch(ctx, ev); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	items, total, err := svc.ListNotifications(ctx, "teen-a", true, 1, 10)
	if err != nil || total != 1 {
		t.Fatalf("list: total=%d err=%v", total, err)
	}
	if !strings.Contains(items[0].Body, "Budget Boss") {
		t.Errorf("body = %q", items[0].Body)
	}
	if _, total, _ := svc.ListNotifications(ctx, "teen-b", false, 1, 10); total != 0 {
		t.Fatalf("teen-b got %d notifications", total)
	}

	if err := svc.MarkRead(ctx, items[0].ID, "teen-a"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if _, unread, _ := svc.ListNotifications(ctx, "teen-a", true, 1, 10); unread != 0 {
		t.Fatalf("unread = %d after MarkRead", unread)
	}
	if err := svc.MarkRead(ctx, items[0].ID, "teen-b"); err == nil {
		t.Fatal("another teen marked the notification read")
	}
}

func TestDescribeEventRejectionNote(t *testing.T) {
	title, body := describeEvent(engine.Event{
		Type: engine.EventSubmissionRejected,
		Data: map[string]string{"task_title": "Track spending", "note": "add a receipt"},
	})
	if title != "Submission rejected" || !strings.Contains(body, "add a receipt") {
		t.Fatalf("got %q / %q", title, body)
	}
}
