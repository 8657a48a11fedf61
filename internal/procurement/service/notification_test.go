package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/testutil"
)

type sentMail struct {
	to      []string
	subject string
	body    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (m *recordingMailer) Enabled() bool { return true }

func (m *recordingMailer) SendMail(_ context.Context, to []string, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func TestNotificationInbox(t *testing.T) {
	f := newFixture(t)
	me := actorOf(f.owner)

	var first *entity.Notification
	for _, title := range []string{"One", "Two", "Three"} {
		n, err := f.svc.Notifications.NotifyUser(f.ctx, Notice{UserID: f.owner.ID, Title: title})
		require.NoError(t, err)
		if first == nil {
			first = n
		}
	}
	assert.Equal(t, entity.NotificationInfo, first.Level)
	foreign, err := f.svc.Notifications.NotifyUser(f.ctx, Notice{UserID: f.buyer.ID, Title: "Not yours", Level: entity.NotificationWarning})
	require.NoError(t, err)

	unread, err := f.svc.Notifications.UnreadCount(f.ctx, me)
	require.NoError(t, err)
	assert.EqualValues(t, 3, unread)

	_, err = f.svc.Notifications.MarkRead(f.ctx, me, foreign.ID)
	requireKind(t, err, ErrNotFound)

	read, err := f.svc.Notifications.MarkRead(f.ctx, me, first.ID)
	require.NoError(t, err)
	require.NotNil(t, read.ReadAt)
	again, err := f.svc.Notifications.MarkRead(f.ctx, me, first.ID)
	require.NoError(t, err)
	require.NotNil(t, again.ReadAt)
	assert.WithinDuration(t, *read.ReadAt, *again.ReadAt, time.Second, "marking twice keeps the first read time")

	onlyUnread := true
	_, total, err := f.svc.Notifications.List(f.ctx, me, repository.NotificationFilter{Unread: &onlyUnread})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	updated, err := f.svc.Notifications.MarkAllRead(f.ctx, me)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)
	updated, err = f.svc.Notifications.MarkAllRead(f.ctx, me)
	require.NoError(t, err)
	assert.EqualValues(t, 0, updated)

	unread, err = f.svc.Notifications.UnreadCount(f.ctx, me)
	require.NoError(t, err)
	assert.EqualValues(t, 0, unread)
	unread, err = f.svc.Notifications.UnreadCount(f.ctx, actorOf(f.buyer))
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	var streamed int
	for _, ev := range f.publisher.events {
		if ev.userID == f.owner.ID && ev.eventType == EventNotification {
			streamed++
		}
	}
	assert.Equal(t, 3, streamed)
}

func TestNotificationMailFollowsProfile(t *testing.T) {
	f := newFixture(t)
	cfg := testutil.TestConfig()
	cfg.Notifications.SendEmail = true
	mailer := &recordingMailer{}
	svc := NewNotificationService(f.repos, mailer, nil, cfg)

	_, err := svc.NotifyUser(f.ctx, Notice{UserID: f.owner.ID, Title: "BOM approved", Body: "Ready", Link: "/boms/42"})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{f.owner.Email}, mailer.sent[0].to)
	assert.Equal(t, "BOM approved", mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].body, "http://frontend.test/boms/42")

	require.NoError(t, f.db.Model(&entity.Profile{}).
		Where("user_id = ?", f.owner.ID).
		Update("notifications_email_enabled", false).Error)
	_, err = svc.NotifyUser(f.ctx, Notice{UserID: f.owner.ID, Title: "Quiet"})
	require.NoError(t, err)
	assert.Len(t, mailer.sent, 1, "mail is skipped when the profile opts out")
	assert.Contains(t, f.notificationTitles(t, f.owner), "Quiet")

	// mail failures never fail the notification
	mailer.fail = errors.New("graph unavailable")
	n, err := svc.NotifyUser(f.ctx, Notice{UserID: f.buyer.ID, Title: "Still stored"})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)

	// the global switch turns mail off
	mailer.fail = nil
	quiet := NewNotificationService(f.repos, mailer, nil, testutil.TestConfig())
	_, err = quiet.NotifyUser(f.ctx, Notice{UserID: f.buyer.ID, Title: "No mail"})
	require.NoError(t, err)
	assert.Len(t, mailer.sent, 1)
}
