package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uthejd-slx/procura-backend/internal/config"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/shared/metrics"
	"go.uber.org/zap"
)

// EventNotification SSE event type carrying a new notification.
const EventNotification = "notification"

// Notice a notification waiting to be delivered.
type Notice struct {
	UserID string
	Level  string
	Title  string
	Body   string
	Link   string
}

// NotificationService persists notifications and fans them out to live
// streams and mail.
type NotificationService struct {
	repos       *repository.Repositories
	mailer      Mailer
	publisher   Publisher
	sendEmail   bool
	frontendURL string
	retention   int
}

func NewNotificationService(repos *repository.Repositories, mailer Mailer, publisher Publisher, cfg *config.Config) *NotificationService {
	return &NotificationService{
		repos:       repos,
		mailer:      mailer,
		publisher:   publisher,
		sendEmail:   cfg.Notifications.SendEmail,
		frontendURL: strings.TrimRight(cfg.Server.FrontendURL, "/"),
		retention:   cfg.Notifications.RetentionDays,
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// NotifyUser stores the notice, pushes it to open streams and mails it when
// the recipient allows it. Mail errors are logged only.
func (s *NotificationService) NotifyUser(ctx context.Context, n Notice) (*entity.Notification, error) {
	level := n.Level
	if level == "" {
		level = entity.NotificationInfo
	}
	notification := &entity.Notification{
		ID:     entity.NewID(),
		UserID: n.UserID,
		Level:  level,
		Title:  truncate(n.Title, 200),
		Body:   n.Body,
		Link:   truncate(n.Link, 500),
	}
	if err := s.repos.Notification.Create(ctx, notification); err != nil {
		metrics.RecordNotification("db", false)
		return nil, fmt.Errorf("create notification: %w", err)
	}
	metrics.RecordNotification("db", true)

	if s.publisher != nil {
		s.publisher.PublishToUser(n.UserID, EventNotification, notification)
	}

	s.mail(ctx, notification)
	return notification, nil
}

func (s *NotificationService) mail(ctx context.Context, n *entity.Notification) {
	if !s.sendEmail || s.mailer == nil || !s.mailer.Enabled() {
		return
	}
	user, err := s.repos.User.FindByID(ctx, n.UserID)
	if err != nil {
		zap.L().Warn("notification mail skipped", zap.String("user_id", n.UserID), zap.Error(err))
		return
	}
	if user.Profile != nil && !user.Profile.NotificationsEmailEnabled {
		return
	}

	body := n.Body
	if n.Link != "" {
		link := n.Link
		if strings.HasPrefix(link, "/") && s.frontendURL != "" {
			link = s.frontendURL + link
		}
		body = strings.TrimSpace(body + "\n\n" + link)
	}
	if err := s.mailer.SendMail(ctx, []string{user.Email}, n.Title, body); err != nil {
		metrics.RecordNotification("email", false)
		zap.L().Error("notification mail failed",
			zap.String("notification_id", n.ID),
			zap.String("user_id", user.ID),
			zap.Error(err))
		return
	}
	metrics.RecordNotification("email", true)
}

// Deliver sends notices collected during a committed transaction.
func (s *NotificationService) Deliver(ctx context.Context, notices []Notice) {
	for _, n := range notices {
		if _, err := s.NotifyUser(ctx, n); err != nil {
			zap.L().Error("deliver notification", zap.String("user_id", n.UserID), zap.Error(err))
		}
	}
}

// ==================== Inbox ====================

func (s *NotificationService) List(ctx context.Context, actor Actor, f repository.NotificationFilter) ([]entity.Notification, int64, error) {
	f.UserID = actor.ID
	return s.repos.Notification.List(ctx, f)
}

func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id string) (*entity.Notification, error) {
	n, err := s.repos.Notification.FindForUser(ctx, id, actor.ID)
	if err != nil {
		return nil, lookup(err, "notification")
	}
	if n.ReadAt == nil {
		now := time.Now().UTC()
		if err := s.repos.Notification.MarkRead(ctx, n.ID, now); err != nil {
			return nil, err
		}
		n.ReadAt = &now
	}
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	return s.repos.Notification.MarkAllRead(ctx, actor.ID, time.Now().UTC())
}

func (s *NotificationService) UnreadCount(ctx context.Context, actor Actor) (int64, error) {
	return s.repos.Notification.UnreadCount(ctx, actor.ID)
}

// PurgeRead removes read notifications past the retention window.
// A zero window disables purging.
func (s *NotificationService) PurgeRead(ctx context.Context, now time.Time) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -s.retention)
	return s.repos.Notification.PurgeReadBefore(ctx, cutoff)
}
