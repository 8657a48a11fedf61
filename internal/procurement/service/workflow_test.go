package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
)

func TestBomWorkflowFromDraftToCompleted(t *testing.T) {
	f := newFixture(t)
	owner, approver, buyer := actorOf(f.owner), actorOf(f.approver), actorOf(f.buyer)
	bom := f.draftBom(t)
	assert.Equal(t, entity.BomStatusDraft, bom.Status)

	// signoff
	ids, err := f.svc.Boms.RequestSignoff(f.ctx, owner, bom.ID, SignoffRequestInput{AssigneeID: f.approver.ID, Comment: "please check"})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Equal(t, entity.BomStatusSignoffPending, f.reload(t, bom.ID).Status)
	assert.Contains(t, f.notificationTitles(t, f.approver), "Signoff requested")

	_, err = f.svc.Boms.RequestProcurementApproval(f.ctx, owner, bom.ID, ApprovalRequestInput{ApproverIDs: []string{f.approver.ID}})
	requireKind(t, err, ErrValidation)

	for _, id := range ids {
		item, err := f.svc.Boms.DecideSignoff(f.ctx, approver, id, SignoffDecision{Status: "APPROVED"})
		require.NoError(t, err)
		assert.Equal(t, entity.SignoffApproved, item.SignoffStatus)
	}
	assert.Equal(t, entity.BomStatusDraft, f.reload(t, bom.ID).Status)

	// procurement approval
	req, err := f.svc.Boms.RequestProcurementApproval(f.ctx, owner, bom.ID, ApprovalRequestInput{ApproverIDs: []string{f.approver.ID, f.approver.ID}})
	require.NoError(t, err)
	require.Len(t, req.Approvals, 1)
	assert.Equal(t, entity.BomStatusApprovalPending, f.reload(t, bom.ID).Status)

	_, err = f.svc.Approvals.Decide(f.ctx, approver, req.Approvals[0].ID, ApprovalDecision{Status: "APPROVED"})
	require.NoError(t, err)
	assert.Equal(t, entity.BomStatusApproved, f.reload(t, bom.ID).Status)
	assert.Contains(t, f.notificationTitles(t, f.owner), "BOM approved")
	assert.Contains(t, f.notificationTitles(t, f.buyer), "BOM ready to order")

	// ordering
	n, err := f.svc.Receiving.MarkOrdered(f.ctx, buyer, bom.ID, MarkOrderedInput{ETADate: "2030-01-15"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = f.svc.Receiving.MarkOrdered(f.ctx, buyer, bom.ID, MarkOrderedInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, n, "already ordered items are left alone")
	bom = f.reload(t, bom.ID)
	assert.Equal(t, entity.BomStatusOrdered, bom.Status)
	for _, it := range bom.Items {
		require.NotNil(t, it.ETADate)
		assert.Equal(t, "2030-01-15", it.ETADate.Format("2006-01-02"))
	}

	// receiving
	scope, probe := itemNamed(t, bom, "Oscilloscope"), itemNamed(t, bom, "Probe kit")
	res, err := f.svc.Receiving.Receive(f.ctx, buyer, bom.ID, ReceiveInput{Lines: []ReceiveLine{
		{ItemID: scope.ID, QuantityReceived: 1},
		{ItemID: "unknown-item", QuantityReceived: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{scope.ID}, res.ItemIDs)
	assert.Equal(t, 0, res.AssetsCreated)
	assert.Equal(t, entity.BomStatusReceiving, f.reload(t, bom.ID).Status)

	res, err = f.svc.Receiving.Receive(f.ctx, buyer, bom.ID, ReceiveInput{Lines: []ReceiveLine{
		{ItemID: scope.ID, QuantityReceived: 1},
		{ItemID: probe.ID, QuantityReceived: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.AssetsCreated)
	assert.Equal(t, entity.BomStatusCompleted, f.reload(t, bom.ID).Status)

	// conversion is idempotent
	res, err = f.svc.Receiving.Receive(f.ctx, buyer, bom.ID, ReceiveInput{Lines: []ReceiveLine{{ItemID: probe.ID, QuantityReceived: 0.5}}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.AssetsCreated)

	assets, total, err := f.svc.Assets.List(f.ctx, buyer, repository.AssetFilter{BomID: bom.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, a := range assets {
		assert.Equal(t, bom.ID, a.Data["bom_id"])
		assert.Equal(t, entity.AssetStatusActive, a.Status)
	}

	// the owner sees assets of their BOM
	_, total, err = f.svc.Assets.List(f.ctx, owner, repository.AssetFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	events, _, err := f.svc.Boms.ListEvents(f.ctx, owner, repository.BomEventFilter{BomID: bom.ID})
	require.NoError(t, err)
	types := map[string]bool{}
	for _, e := range events {
		types[e.EventType] = true
	}
	for _, want := range []string{EventBomCreated, EventBomSignoffRequested, EventBomItemSignoffDecided,
		EventBomApprovalRequested, EventBomApprovalDecided, EventBomItemsMarkedOrdered, EventBomItemsReceived} {
		assert.True(t, types[want], want)
	}
}

func TestReceiveRejectsTinyQuantities(t *testing.T) {
	f := newFixture(t)
	bom := f.approvedBom(t)
	_, err := f.svc.Receiving.Receive(f.ctx, actorOf(f.buyer), bom.ID, ReceiveInput{Lines: []ReceiveLine{
		{ItemID: bom.Items[0].ID, QuantityReceived: 0.0001},
	}})
	requireKind(t, err, ErrValidation)
}

func TestSignoffNeedsChangesNotifiesOwner(t *testing.T) {
	f := newFixture(t)
	bom := f.draftBom(t)

	ids, err := f.svc.Boms.RequestSignoff(f.ctx, actorOf(f.owner), bom.ID, SignoffRequestInput{
		AssigneeID: f.approver.ID,
		ItemIDs:    []string{bom.Items[0].ID},
	})
	require.NoError(t, err)
	require.Equal(t, []string{bom.Items[0].ID}, ids)

	// only the assignee (or admin) decides
	_, err = f.svc.Boms.DecideSignoff(f.ctx, actorOf(f.buyer), ids[0], SignoffDecision{Status: "APPROVED"})
	requireKind(t, err, ErrForbidden)

	_, err = f.svc.Boms.DecideSignoff(f.ctx, actorOf(f.approver), ids[0], SignoffDecision{Status: "MAYBE"})
	requireKind(t, err, ErrValidation)

	_, err = f.svc.Boms.DecideSignoff(f.ctx, actorOf(f.approver), ids[0], SignoffDecision{Status: "NEEDS_CHANGES", Comment: "wrong model"})
	require.NoError(t, err)

	assert.Contains(t, f.notificationTitles(t, f.owner), "BOM needs changes")
	// no approval request yet, so the derived status falls back to DRAFT
	assert.Equal(t, entity.BomStatusDraft, f.reload(t, bom.ID).Status)

	var events []string
	for _, e := range f.publisher.events {
		if e.userID == f.owner.ID {
			events = append(events, e.eventType)
		}
	}
	assert.Equal(t, []string{EventNotification}, events)
}

func TestApprovalNeedsChangesClosesRequest(t *testing.T) {
	f := newFixture(t)
	second := actorOf(f.admin)
	bom := f.draftBom(t)

	req, err := f.svc.Boms.RequestProcurementApproval(f.ctx, actorOf(f.owner), bom.ID, ApprovalRequestInput{
		ApproverIDs: []string{f.approver.ID, f.admin.ID},
	})
	require.NoError(t, err)
	require.Len(t, req.Approvals, 2)

	var mine, theirs string
	for _, a := range req.Approvals {
		if a.ApproverID == f.approver.ID {
			mine = a.ID
		} else {
			theirs = a.ID
		}
	}

	// a non-approver cannot vote on someone else's approval
	_, err = f.svc.Approvals.Decide(f.ctx, actorOf(f.owner), mine, ApprovalDecision{Status: "APPROVED"})
	requireKind(t, err, ErrForbidden)

	_, err = f.svc.Approvals.Decide(f.ctx, actorOf(f.approver), mine, ApprovalDecision{Status: "APPROVED"})
	require.NoError(t, err)
	assert.Equal(t, entity.BomStatusApprovalPending, f.reload(t, bom.ID).Status)

	_, err = f.svc.Approvals.Decide(f.ctx, second, theirs, ApprovalDecision{Status: "NEEDS_CHANGES", Comment: "too expensive"})
	require.NoError(t, err)
	assert.Equal(t, entity.BomStatusNeedsChanges, f.reload(t, bom.ID).Status)
	assert.Contains(t, f.notificationTitles(t, f.owner), "BOM needs changes")

	_, err = f.svc.Approvals.Decide(f.ctx, actorOf(f.approver), mine, ApprovalDecision{Status: "NEEDS_CHANGES"})
	requireKind(t, err, ErrInvalidState)

	list, total, err := f.svc.Approvals.List(f.ctx, actorOf(f.approver), repository.ApprovalFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, mine, list[0].ID)
}

func TestApprovalRequiresApproverRole(t *testing.T) {
	f := newFixture(t)
	bom := f.draftBom(t)
	_, err := f.svc.Boms.RequestProcurementApproval(f.ctx, actorOf(f.owner), bom.ID, ApprovalRequestInput{
		ApproverIDs: []string{f.buyer.ID},
	})
	requireKind(t, err, ErrValidation)

	_, err = f.svc.Boms.RequestProcurementApproval(f.ctx, actorOf(f.owner), bom.ID, ApprovalRequestInput{})
	requireKind(t, err, ErrValidation)
}

func TestCancelResetsFlow(t *testing.T) {
	f := newFixture(t)
	bom := f.draftBom(t)
	owner := actorOf(f.owner)

	_, err := f.svc.Boms.RequestSignoff(f.ctx, owner, bom.ID, SignoffRequestInput{AssigneeID: f.approver.ID})
	require.NoError(t, err)

	// hidden BOMs read as missing
	_, err = f.svc.Boms.Cancel(f.ctx, actorOf(f.approver), bom.ID, "")
	requireKind(t, err, ErrNotFound)

	canceled, err := f.svc.Boms.Cancel(f.ctx, owner, bom.ID, "scope changed")
	require.NoError(t, err)
	assert.Equal(t, entity.BomStatusDraft, canceled.Status)
	assert.Equal(t, "scope changed", canceled.CancelComment)
	for _, it := range canceled.Items {
		assert.Equal(t, entity.SignoffCanceled, it.SignoffStatus)
	}
}

func TestStrictProcurementExcludesAdmin(t *testing.T) {
	f := newFixture(t)
	bom := f.approvedBom(t)

	_, err := f.svc.Receiving.MarkOrdered(f.ctx, actorOf(f.admin), bom.ID, MarkOrderedInput{})
	requireKind(t, err, ErrForbidden)

	_, err = f.svc.PurchaseOrders.CreateFromBom(f.ctx, actorOf(f.admin), bom.ID, FromBomInput{})
	requireKind(t, err, ErrForbidden)
}

func TestMarkOrderedNeedsApprovedBom(t *testing.T) {
	f := newFixture(t)
	bom := f.draftBom(t)
	_, err := f.svc.Receiving.MarkOrdered(f.ctx, actorOf(f.buyer), bom.ID, MarkOrderedInput{})
	requireKind(t, err, ErrInvalidState)
}

func TestDraftLimit(t *testing.T) {
	f := newFixture(t)
	f.svc.Boms.maxDrafts = 2
	owner := actorOf(f.owner)
	for i := 0; i < 2; i++ {
		_, err := f.svc.Boms.Create(f.ctx, owner, CreateBomInput{Title: "draft"})
		require.NoError(t, err)
	}
	_, err := f.svc.Boms.Create(f.ctx, owner, CreateBomInput{Title: "one too many"})
	requireKind(t, err, ErrValidation)
}

func TestBomVisibility(t *testing.T) {
	f := newFixture(t)
	bom := f.draftBom(t)

	_, err := f.svc.Boms.Get(f.ctx, actorOf(f.approver), bom.ID)
	requireKind(t, err, ErrNotFound)

	_, err = f.svc.Boms.Get(f.ctx, actorOf(f.buyer), bom.ID)
	require.NoError(t, err)

	_, err = f.svc.Boms.AddCollaborator(f.ctx, actorOf(f.owner), bom.ID, f.approver.ID)
	require.NoError(t, err)
	_, err = f.svc.Boms.AddCollaborator(f.ctx, actorOf(f.owner), bom.ID, f.approver.ID)
	require.NoError(t, err)
	_, err = f.svc.Boms.AddCollaborator(f.ctx, actorOf(f.owner), bom.ID, f.owner.ID)
	requireKind(t, err, ErrValidation)

	got, err := f.svc.Boms.Get(f.ctx, actorOf(f.approver), bom.ID)
	require.NoError(t, err)
	assert.Len(t, got.Collaborators, 1)

	require.NoError(t, f.svc.Boms.RemoveCollaborator(f.ctx, actorOf(f.approver), bom.ID, f.approver.ID))
	err = f.svc.Boms.RemoveCollaborator(f.ctx, actorOf(f.owner), bom.ID, f.approver.ID)
	requireKind(t, err, ErrNotFound)
}

func TestFractionalReceiptCompletesBom(t *testing.T) {
	f := newFixture(t)
	buyer := actorOf(f.buyer)
	bom, err := f.svc.Boms.Create(f.ctx, actorOf(f.owner), CreateBomInput{
		Title: "Cabling",
		Items: []BomItemInput{{Name: "Cat6 cable", Quantity: qty(0.9), Unit: "m"}},
	})
	require.NoError(t, err)
	bom = f.approve(t, bom)
	cable := bom.Items[0]

	res, err := f.svc.Receiving.Receive(f.ctx, buyer, bom.ID, ReceiveInput{Lines: []ReceiveLine{{ItemID: cable.ID, QuantityReceived: 0.3}}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.AssetsCreated)
	assert.Equal(t, entity.BomStatusReceiving, f.reload(t, bom.ID).Status)

	res, err = f.svc.Receiving.Receive(f.ctx, buyer, bom.ID, ReceiveInput{Lines: []ReceiveLine{{ItemID: cable.ID, QuantityReceived: 0.6}}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.AssetsCreated)

	bom = f.reload(t, bom.ID)
	assert.Equal(t, entity.BomStatusCompleted, bom.Status)
	assert.Equal(t, 0.9, bom.Items[0].ReceivedQuantity)
}

func TestReceiveRejectsNonFiniteQuantities(t *testing.T) {
	f := newFixture(t)
	bom := f.approvedBom(t)
	for _, v := range []float64{math.NaN(), math.Inf(1)} {
		_, err := f.svc.Receiving.Receive(f.ctx, actorOf(f.buyer), bom.ID, ReceiveInput{Lines: []ReceiveLine{
			{ItemID: bom.Items[0].ID, QuantityReceived: v},
		}})
		requireKind(t, err, ErrValidation)
	}

	_, err := f.svc.Boms.AddItem(f.ctx, actorOf(f.owner), f.draftBom(t).ID, BomItemInput{Name: "Odd", Quantity: qty(math.NaN())})
	requireKind(t, err, ErrValidation)
}

func TestDecideAfterRequestClosed(t *testing.T) {
	f := newFixture(t)
	owner := actorOf(f.owner)
	bom := f.draftBom(t)

	req, err := f.svc.Boms.RequestProcurementApproval(f.ctx, owner, bom.ID,
		ApprovalRequestInput{ApproverIDs: []string{f.approver.ID, f.admin.ID}})
	require.NoError(t, err)
	require.Len(t, req.Approvals, 2)

	var mine, other string
	for _, a := range req.Approvals {
		if a.ApproverID == f.approver.ID {
			mine = a.ID
		} else {
			other = a.ID
		}
	}
	_, err = f.svc.Approvals.Decide(f.ctx, actorOf(f.approver), mine, ApprovalDecision{Status: "NEEDS_CHANGES", Comment: "pricing"})
	require.NoError(t, err)

	// the request is closed, so the remaining approval cannot be decided
	_, err = f.svc.Approvals.Decide(f.ctx, actorOf(f.admin), other, ApprovalDecision{Status: "APPROVED"})
	requireKind(t, err, ErrInvalidState)
	_, err = f.svc.Approvals.Decide(f.ctx, actorOf(f.approver), mine, ApprovalDecision{Status: "APPROVED"})
	requireKind(t, err, ErrInvalidState)
	assert.Equal(t, entity.BomStatusNeedsChanges, f.reload(t, bom.ID).Status)
}
