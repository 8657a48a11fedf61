package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uthejd-slx/procura-backend/internal/config"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/service"
	"github.com/uthejd-slx/procura-backend/internal/procurement/testutil"
	"github.com/uthejd-slx/procura-backend/internal/shared/roles"
	"github.com/uthejd-slx/procura-backend/internal/shared/storage"
	"gorm.io/gorm"
)

type env struct {
	db    *gorm.DB
	repos *repository.Repositories
	svc   *service.Services
	owner *entity.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	rdb, _ := testutil.SetupRedis(t)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	repos := repository.NewRepositories(db)
	return &env{
		db:    db,
		repos: repos,
		svc:   service.NewServices(repos, rdb, testutil.TestConfig(), store, nil, nil),
		owner: testutil.SeedUser(t, db, "owner@example.com"),
	}
}

// orderedBom creates an approved BOM whose two items are ordered with the given ETA.
func (e *env) orderedBom(t *testing.T, eta string) *entity.Bom {
	t.Helper()
	ctx := context.Background()
	approver := testutil.SeedUser(t, e.db, "approver-"+entity.NewID()[:6]+"@example.com", roles.Approver)
	buyer := testutil.SeedUser(t, e.db, "buyer-"+entity.NewID()[:6]+"@example.com", roles.Procurement)
	owner := service.Actor{ID: e.owner.ID, Email: e.owner.Email}

	one := 1.0
	bom, err := e.svc.Boms.Create(ctx, owner, service.CreateBomInput{
		Title: "Rack",
		Items: []service.BomItemInput{{Name: "Switch", Quantity: &one}, {Name: "Patch panel", Quantity: &one}},
	})
	require.NoError(t, err)
	req, err := e.svc.Boms.RequestProcurementApproval(ctx, owner, bom.ID, service.ApprovalRequestInput{ApproverIDs: []string{approver.ID}})
	require.NoError(t, err)
	_, err = e.svc.Approvals.Decide(ctx, service.Actor{ID: approver.ID, Roles: []string{roles.Approver}},
		req.Approvals[0].ID, service.ApprovalDecision{Status: "APPROVED"})
	require.NoError(t, err)
	_, err = e.svc.Receiving.MarkOrdered(ctx, service.Actor{ID: buyer.ID, Roles: []string{roles.Procurement}},
		bom.ID, service.MarkOrderedInput{ETADate: eta})
	require.NoError(t, err)
	return bom
}

func (e *env) overdueNotices(t *testing.T) int {
	t.Helper()
	items, _, err := e.repos.Notification.List(context.Background(), repository.NotificationFilter{UserID: e.owner.ID})
	require.NoError(t, err)
	n := 0
	for _, it := range items {
		if it.Title == "Delivery overdue" {
			n++
		}
	}
	return n
}

func TestRemindOverdueOncePerDay(t *testing.T) {
	e := newEnv(t)
	bom := e.orderedBom(t, "2030-01-10")
	rdb, mr := testutil.SetupRedis(t)
	r := NewRunner(e.repos, e.svc.Notifications, rdb)

	// not overdue yet on the ETA day itself
	r.now = func() time.Time { return time.Date(2030, 1, 10, 9, 0, 0, 0, time.UTC) }
	sent, err := r.RemindOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	r.now = func() time.Time { return time.Date(2030, 1, 11, 9, 0, 0, 0, time.UTC) }
	sent, err = r.RemindOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	sent, err = r.RemindOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent, "same day is deduplicated")
	for _, it := range bom.Items {
		assert.True(t, mr.Exists(overdueKeyPrefix+it.ID+":20300111"))
	}

	r.now = func() time.Time { return time.Date(2030, 1, 12, 9, 0, 0, 0, time.UTC) }
	sent, err = r.RemindOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, 4, e.overdueNotices(t))
}

func TestRemindOverdueSkipsWhenDedupFails(t *testing.T) {
	e := newEnv(t)
	e.orderedBom(t, "2030-01-10")
	rdb, mr := testutil.SetupRedis(t)
	r := NewRunner(e.repos, e.svc.Notifications, rdb)
	r.now = func() time.Time { return time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC) }

	mr.SetError("server down")
	sent, err := r.RemindOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, e.overdueNotices(t))
}

func TestRemindOverdueWithoutRedis(t *testing.T) {
	e := newEnv(t)
	e.orderedBom(t, "2030-01-10")
	r := NewRunner(e.repos, e.svc.Notifications, nil)
	r.now = func() time.Time { return time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC) }

	for i := 0; i < 2; i++ {
		sent, err := r.RemindOverdue(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, sent)
	}
}

func TestPurgeNotifications(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	old := time.Now().UTC().AddDate(0, 0, -120)
	read := old.Add(time.Hour)
	rows := []entity.Notification{
		{ID: entity.NewID(), UserID: e.owner.ID, Level: entity.NotificationInfo, Title: "old read", ReadAt: &read, CreatedAt: old},
		{ID: entity.NewID(), UserID: e.owner.ID, Level: entity.NotificationInfo, Title: "old unread", CreatedAt: old},
		{ID: entity.NewID(), UserID: e.owner.ID, Level: entity.NotificationInfo, Title: "fresh read", ReadAt: &read},
	}
	for i := range rows {
		require.NoError(t, e.db.Create(&rows[i]).Error)
	}

	r := NewRunner(e.repos, e.svc.Notifications, nil)
	n, err := r.PurgeNotifications(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	left, total, err := e.repos.Notification.List(ctx, repository.NotificationFilter{UserID: e.owner.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, it := range left {
		assert.NotEqual(t, "old read", it.Title)
	}
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	e := newEnv(t)
	r := NewRunner(e.repos, e.svc.Notifications, nil)
	require.NoError(t, r.Schedule(config.CronConfig{ETAOverdue: "0 8 * * *"}))
	assert.Len(t, r.cron.Entries(), 1)

	err := r.Schedule(config.CronConfig{RetentionPurge: "not a spec"})
	assert.Error(t, err)
}
