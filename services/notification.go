package services

import (
	stdctx "context"
	"fmt"
	"strconv"
	"time"

	"github.com/Calstins/teensha/engine"
	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/services/repositories"
	"github.com/Calstins/teensha/shared"
	"github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// NotificationService turns engine events into in-app notifications and emails.
type NotificationService struct {
	context.DefaultService

	db            Database
	users         *repositories.UserRepository
	challenges    *repositories.ChallengeRepository
	notifications *repositories.NotificationRepository
	emailSvc      *EmailService
	monitoring    *MonitoringService
}

const NOTIFICATION_SVC = "notification_svc"

func (svc NotificationService) Id() string {
	return NOTIFICATION_SVC
}

func (svc *NotificationService) Start() error {
	db, err := resolveDatabase(svc.Service(POSTGRES_SVC), svc.Service(SQLITE_SVC))
	if err != nil {
		return err
	}
	svc.db = db
	svc.users = repositories.NewUserRepository(db.Db())
	svc.challenges = repositories.NewChallengeRepository(db.Db())
	svc.notifications = repositories.NewNotificationRepository(db.Db())
	svc.emailSvc, _ = svc.Service(EMAIL_SVC).(*EmailService)
	svc.monitoring, _ = svc.Service(MONITORING_SVC).(*MonitoringService)
	return nil
}

// Dispatch stores one notification per recipient and sends the matching email.
// Email failures are logged and never fail the dispatch.
func (svc *NotificationService) Dispatch(ctx stdctx.Context, ev engine.Event) error {
	recipients := []string{ev.TeenID}
	if ev.Broadcast() {
		ids, err := svc.users.ListActiveTeenIDs(ctx)
		if err != nil {
			return svc.db.HandleError(err)
		}
		recipients = ids
	}

	title, body := describeEvent(ev)
	data, err := shared.JSONMarshal(ev.Data)
	if err != nil {
		return err
	}

	createdAt := ev.OccurredAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	rows := make([]model.Notification, 0, len(recipients))
	for _, teenID := range recipients {
		rows = append(rows, model.Notification{
			ID:        uuid.NewString(),
			TeenID:    teenID,
			Type:      string(ev.Type),
			Title:     title,
			Body:      body,
			Data:      datatypes.JSON(data),
			CreatedAt: createdAt,
		})
	}

	err = svc.notifications.CreateNotifications(ctx, rows)
	svc.monitoring.RecordNotification("in_app", err)
	if err != nil {
		return svc.db.HandleError(err)
	}

	if svc.emailSvc != nil && svc.emailSvc.Enabled() {
		for _, teenID := range recipients {
			err := svc.sendEmail(ctx, teenID, ev)
			svc.monitoring.RecordNotification("email", err)
			if err != nil {
				log.WithError(err).WithFields(log.Fields{"teen_id": teenID, "event": ev.Type}).Warn("Failed to send notification email")
			}
		}
	}

	log.WithFields(log.Fields{"event": ev.Type, "recipients": len(recipients)}).Debug("Event dispatched")
	return nil
}

func (svc *NotificationService) sendEmail(ctx stdctx.Context, teenID string, ev engine.Event) error {
	teen, err := svc.users.GetTeen(ctx, teenID)
	if err != nil {
		return err
	}
	year, _ := strconv.Atoi(ev.Data["year"])

	switch ev.Type {
	case engine.EventChallengePublished:
		challenge, err := svc.challenges.GetChallenge(ctx, ev.Data["challenge_id"])
		if err != nil {
			return err
		}
		description, err := shared.RenderMarkdown(challenge.Description)
		if err != nil {
			return err
		}
		return svc.emailSvc.SendChallengePublishedEmail(teen.Email, teen.Name, challenge.Title, challenge.Theme, description)
	case engine.EventBadgeEarned:
		return svc.emailSvc.SendBadgeEarnedEmail(teen.Email, teen.Name, ev.Data["badge_name"])
	case engine.EventRaffleEligible:
		return svc.emailSvc.SendRaffleEligibleEmail(teen.Email, teen.Name, year)
	case engine.EventRaffleWinner:
		return svc.emailSvc.SendRaffleWinnerEmail(teen.Email, teen.Name, year)
	case engine.EventSubmissionRejected:
		return svc.emailSvc.SendSubmissionRejectedEmail(teen.Email, teen.Name, ev.Data["task_title"], ev.Data["note"])
	}
	return nil
}

func (svc *NotificationService) ListNotifications(ctx stdctx.Context, teenID string, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	notifications, total, err := svc.notifications.ListNotifications(ctx, teenID, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, svc.db.HandleError(err)
	}
	return notifications, total, nil
}

func (svc *NotificationService) MarkRead(ctx stdctx.Context, id, teenID string) error {
	if err := svc.notifications.MarkRead(ctx, id, teenID, time.Now().UTC()); err != nil {
		return svc.db.HandleError(err)
	}
	return nil
}

func describeEvent(ev engine.Event) (string, string) {
	switch ev.Type {
	case engine.EventChallengePublished:
		return "New challenge", fmt.Sprintf("%q is now live. Complete every task to earn the badge.", ev.Data["title"])
	case engine.EventTaskApproved:
		return "Task approved", fmt.Sprintf("Your submission for %q was approved.", ev.Data["task_title"])
	case engine.EventSubmissionRejected:
		body := fmt.Sprintf("Your submission for %q needs changes.", ev.Data["task_title"])
		if note := ev.Data["note"]; note != "" {
			body += " Reviewer note: " + note
		}
		return "Submission rejected", body
	case engine.EventChallengeCompleted:
		return "Challenge completed", "You finished every task of this month's challenge."
	case engine.EventBadgePurchased:
		return "Badge purchased", fmt.Sprintf("You bought the %q badge.", ev.Data["badge_name"])
	case engine.EventBadgeEarned:
		return "Badge earned", fmt.Sprintf("You earned the %q badge.", ev.Data["badge_name"])
	case engine.EventRaffleEligible:
		return "Raffle entry", fmt.Sprintf("You hold every badge of %s and are entered into the raffle.", ev.Data["year"])
	case engine.EventRaffleWinner:
		return "Raffle winner", fmt.Sprintf("You won the %s raffle!", ev.Data["year"])
	}
	return string(ev.Type), ""
}
