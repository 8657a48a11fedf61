package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/testutil"
	"github.com/uthejd-slx/procura-backend/internal/shared/roles"
	"github.com/uthejd-slx/procura-backend/internal/shared/storage"
	"gorm.io/gorm"
)

type published struct {
	userID    string
	eventType string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) PublishToUser(userID, eventType string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{userID: userID, eventType: eventType})
}

type fixture struct {
	ctx       context.Context
	db        *gorm.DB
	svc       *Services
	repos     *repository.Repositories
	publisher *recordingPublisher

	owner    *entity.User
	approver *entity.User
	buyer    *entity.User
	admin    *entity.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	rdb, _ := testutil.SetupRedis(t)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	repos := repository.NewRepositories(db)
	pub := &recordingPublisher{}
	return &fixture{
		ctx:       context.Background(),
		db:        db,
		svc:       NewServices(repos, rdb, testutil.TestConfig(), store, nil, pub),
		repos:     repos,
		publisher: pub,
		owner:     testutil.SeedUser(t, db, "owner@example.com"),
		approver:  testutil.SeedUser(t, db, "approver@example.com", roles.Approver),
		buyer:     testutil.SeedUser(t, db, "buyer@example.com", roles.Procurement),
		admin:     testutil.SeedUser(t, db, "admin@example.com", roles.Admin),
	}
}

func actorOf(u *entity.User) Actor {
	return Actor{ID: u.ID, Email: u.Email, Roles: roles.UserRoles(u.IsSuperuser, u.ProfileRoles())}
}

func qty(v float64) *float64 { return &v }

// draftBom creates a BOM with two items: one from Acme, one without vendor.
func (f *fixture) draftBom(t *testing.T) *entity.Bom {
	t.Helper()
	bom, err := f.svc.Boms.Create(f.ctx, actorOf(f.owner), CreateBomInput{
		Title:   "Lab bench",
		Project: "Apollo",
		Items: []BomItemInput{
			{Name: "Oscilloscope", Quantity: qty(2), Vendor: "Acme", UnitPrice: qty(450)},
			{Name: "Probe kit", Quantity: qty(1)},
		},
	})
	require.NoError(t, err)
	require.Len(t, bom.Items, 2)
	return bom
}

// approvedBom drives a fresh BOM through signoff and procurement approval.
func (f *fixture) approvedBom(t *testing.T) *entity.Bom {
	t.Helper()
	return f.approve(t, f.draftBom(t))
}

// approve signs off every item of bom and approves its procurement request.
func (f *fixture) approve(t *testing.T, bom *entity.Bom) *entity.Bom {
	t.Helper()
	owner := actorOf(f.owner)

	ids, err := f.svc.Boms.RequestSignoff(f.ctx, owner, bom.ID, SignoffRequestInput{AssigneeID: f.approver.ID})
	require.NoError(t, err)
	for _, id := range ids {
		_, err := f.svc.Boms.DecideSignoff(f.ctx, actorOf(f.approver), id, SignoffDecision{Status: "approved"})
		require.NoError(t, err)
	}

	req, err := f.svc.Boms.RequestProcurementApproval(f.ctx, owner, bom.ID, ApprovalRequestInput{ApproverIDs: []string{f.approver.ID}})
	require.NoError(t, err)
	_, err = f.svc.Approvals.Decide(f.ctx, actorOf(f.approver), req.Approvals[0].ID, ApprovalDecision{Status: "APPROVED"})
	require.NoError(t, err)

	return f.reload(t, bom.ID)
}

func (f *fixture) reload(t *testing.T, bomID string) *entity.Bom {
	t.Helper()
	bom, err := f.repos.Bom.FindByID(f.ctx, bomID)
	require.NoError(t, err)
	return bom
}

func itemNamed(t *testing.T, bom *entity.Bom, name string) entity.BomItem {
	t.Helper()
	for _, it := range bom.Items {
		if it.Name == name {
			return it
		}
	}
	t.Fatalf("item %q not found", name)
	return entity.BomItem{}
}

func (f *fixture) notificationTitles(t *testing.T, u *entity.User) []string {
	t.Helper()
	items, _, err := f.repos.Notification.List(f.ctx, repository.NotificationFilter{UserID: u.ID})
	require.NoError(t, err)
	titles := make([]string, len(items))
	for i, n := range items {
		titles[i] = n.Title
	}
	return titles
}

func requireKind(t *testing.T, err error, kind error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, kind), "want %v, got %v", kind, err)
}
