package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
)

func TestCreatePurchaseOrdersFromBomGroupsByVendor(t *testing.T) {
	f := newFixture(t)
	buyer := actorOf(f.buyer)
	bom := f.approvedBom(t)

	_, err := f.svc.PurchaseOrders.CreateFromBom(f.ctx, actorOf(f.owner), bom.ID, FromBomInput{})
	requireKind(t, err, ErrForbidden)

	pos, err := f.svc.PurchaseOrders.CreateFromBom(f.ctx, buyer, bom.ID, FromBomInput{ETADate: "2030-02-01"})
	require.NoError(t, err)
	require.Len(t, pos, 2)
	assert.Equal(t, "Acme", pos[0].VendorName)
	assert.Equal(t, unassignedVendor, pos[1].VendorName)
	assert.NotEqual(t, pos[0].PONumber, pos[1].PONumber)
	for _, po := range pos {
		assert.Equal(t, entity.POStatusDraft, po.Status)
		assert.Regexp(t, `^PO-\d{8}-\d{5}$`, po.PONumber)
		require.Len(t, po.Items, 1)
	}
	assert.Equal(t, entity.BomStatusOrdered, f.reload(t, bom.ID).Status)

	// every item is on order now
	_, err = f.svc.PurchaseOrders.CreateFromBom(f.ctx, buyer, bom.ID, FromBomInput{})
	requireKind(t, err, ErrValidation)

	acme, err := f.svc.PurchaseOrders.Get(f.ctx, buyer, pos[0].ID)
	require.NoError(t, err)
	line := acme.Items[0]
	assert.Equal(t, "Oscilloscope", line.Name)
	require.NotNil(t, line.ETADate)
	assert.Equal(t, "2030-02-01", line.ETADate.Format("2006-01-02"))

	res, err := f.svc.PurchaseOrders.Receive(f.ctx, buyer, acme.ID, ReceiveInput{Lines: []ReceiveLine{{ItemID: line.ID, QuantityReceived: 1}}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.AssetsCreated)
	acme, err = f.svc.PurchaseOrders.Get(f.ctx, buyer, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusPartial, acme.Status)

	res, err = f.svc.PurchaseOrders.Receive(f.ctx, buyer, acme.ID, ReceiveInput{Lines: []ReceiveLine{{ItemID: line.ID, QuantityReceived: 1}}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.AssetsCreated)
	acme, err = f.svc.PurchaseOrders.Get(f.ctx, buyer, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusReceived, acme.Status)

	res, err = f.svc.PurchaseOrders.Receive(f.ctx, buyer, acme.ID, ReceiveInput{Lines: []ReceiveLine{{ItemID: line.ID, QuantityReceived: 1}}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.AssetsCreated, "a line converts once")

	_, err = f.svc.PurchaseOrders.Cancel(f.ctx, buyer, acme.ID)
	requireKind(t, err, ErrInvalidState)
	err = f.svc.PurchaseOrders.Delete(f.ctx, buyer, acme.ID)
	requireKind(t, err, ErrInvalidState)

	// the BOM owner can read POs of their BOM
	_, total, err := f.svc.PurchaseOrders.List(f.ctx, actorOf(f.owner), repository.POFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestPurchaseOrderManualLines(t *testing.T) {
	f := newFixture(t)
	buyer := actorOf(f.buyer)
	vendor := "Globex"

	po, err := f.svc.PurchaseOrders.Create(f.ctx, buyer, POInput{VendorName: &vendor})
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusDraft, po.Status)

	_, err = f.svc.PurchaseOrders.AddItem(f.ctx, buyer, po.ID, POItemInput{Name: " "})
	requireKind(t, err, ErrValidation)
	_, err = f.svc.PurchaseOrders.AddItem(f.ctx, buyer, po.ID, POItemInput{Name: "Cable", Quantity: qty(-1)})
	requireKind(t, err, ErrValidation)

	item, err := f.svc.PurchaseOrders.AddItem(f.ctx, buyer, po.ID, POItemInput{Name: "Cable"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, item.Quantity)

	sent, err := f.svc.PurchaseOrders.MarkSent(f.ctx, buyer, po.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusSent, sent.Status)

	canceled, err := f.svc.PurchaseOrders.Cancel(f.ctx, buyer, po.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusCanceled, canceled.Status)

	_, err = f.svc.PurchaseOrders.AddItem(f.ctx, buyer, po.ID, POItemInput{Name: "Adapter"})
	requireKind(t, err, ErrInvalidState)
	_, err = f.svc.PurchaseOrders.Receive(f.ctx, buyer, po.ID, ReceiveInput{Lines: []ReceiveLine{{ItemID: item.ID, QuantityReceived: 1}}})
	requireKind(t, err, ErrInvalidState)

	require.NoError(t, f.svc.PurchaseOrders.Delete(f.ctx, buyer, po.ID))
	_, err = f.svc.PurchaseOrders.Get(f.ctx, buyer, po.ID)
	requireKind(t, err, ErrNotFound)
}

func TestTransferMovesAssetQuantities(t *testing.T) {
	f := newFixture(t)
	buyer := actorOf(f.buyer)
	name, partnerName := "Soldering station", "Initech"

	asset, err := f.svc.Assets.Create(f.ctx, buyer, AssetInput{Name: &name, Quantity: qty(5)})
	require.NoError(t, err)

	_, err = f.svc.Transfers.CreatePartner(f.ctx, actorOf(f.owner), PartnerInput{Name: &partnerName})
	requireKind(t, err, ErrForbidden)
	partner, err := f.svc.Transfers.CreatePartner(f.ctx, buyer, PartnerInput{Name: &partnerName})
	require.NoError(t, err)
	_, err = f.svc.Transfers.CreatePartner(f.ctx, buyer, PartnerInput{Name: &partnerName})
	requireKind(t, err, ErrConflict)

	_, err = f.svc.Transfers.Create(f.ctx, buyer, TransferInput{})
	requireKind(t, err, ErrValidation)
	first, err := f.svc.Transfers.Create(f.ctx, buyer, TransferInput{PartnerID: &partner.ID})
	require.NoError(t, err)

	_, err = f.svc.Transfers.AddItem(f.ctx, buyer, first.ID, TransferItemInput{AssetID: asset.ID, Quantity: 6})
	requireKind(t, err, ErrValidation)
	_, err = f.svc.Transfers.AddItem(f.ctx, buyer, first.ID, TransferItemInput{AssetID: asset.ID, Quantity: 3})
	require.NoError(t, err)

	// approval needs a submitted transfer
	_, err = f.svc.Transfers.Approve(f.ctx, actorOf(f.approver), first.ID)
	requireKind(t, err, ErrInvalidState)
	_, err = f.svc.Transfers.Submit(f.ctx, buyer, first.ID)
	require.NoError(t, err)
	_, err = f.svc.Transfers.Approve(f.ctx, buyer, first.ID)
	requireKind(t, err, ErrForbidden)
	approved, err := f.svc.Transfers.Approve(f.ctx, actorOf(f.approver), first.ID)
	require.NoError(t, err)
	assert.Equal(t, f.approver.ID, deref(approved.ApprovedByID))

	done, err := f.svc.Transfers.Complete(f.ctx, buyer, first.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	asset, err = f.svc.Assets.Get(f.ctx, buyer, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, asset.TransferredQuantity)
	assert.Equal(t, entity.AssetStatusActive, asset.Status)

	second, err := f.svc.Transfers.Create(f.ctx, buyer, TransferInput{PartnerID: &partner.ID})
	require.NoError(t, err)
	_, err = f.svc.Transfers.AddItem(f.ctx, buyer, second.ID, TransferItemInput{AssetID: asset.ID, Quantity: 3})
	requireKind(t, err, ErrValidation)
	_, err = f.svc.Transfers.AddItem(f.ctx, buyer, second.ID, TransferItemInput{AssetID: asset.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.svc.Transfers.Submit(f.ctx, buyer, second.ID)
	require.NoError(t, err)
	_, err = f.svc.Transfers.Approve(f.ctx, actorOf(f.approver), second.ID)
	require.NoError(t, err)
	_, err = f.svc.Transfers.Complete(f.ctx, buyer, second.ID)
	require.NoError(t, err)

	asset, err = f.svc.Assets.Get(f.ctx, buyer, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, asset.TransferredQuantity)
	assert.Equal(t, entity.AssetStatusTransferred, asset.Status)

	err = f.svc.Transfers.DeletePartner(f.ctx, buyer, partner.ID)
	requireKind(t, err, ErrConflict)
	err = f.svc.Transfers.Delete(f.ctx, buyer, second.ID)
	requireKind(t, err, ErrInvalidState)
}

func TestBillLifecycle(t *testing.T) {
	f := newFixture(t)
	owner := actorOf(f.owner)
	title, amount := "Calibration service", 120.5

	_, err := f.svc.Bills.Create(f.ctx, owner, BillInput{})
	requireKind(t, err, ErrValidation)
	negative := -1.0
	_, err = f.svc.Bills.Create(f.ctx, owner, BillInput{Title: &title, Amount: &negative})
	requireKind(t, err, ErrValidation)

	bill, err := f.svc.Bills.Create(f.ctx, owner, BillInput{Title: &title, Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, entity.BillStatusDraft, bill.Status)

	_, err = f.svc.Bills.Approve(f.ctx, actorOf(f.approver), bill.ID)
	requireKind(t, err, ErrInvalidState)
	_, err = f.svc.Bills.Submit(f.ctx, owner, bill.ID)
	require.NoError(t, err)
	_, err = f.svc.Bills.Approve(f.ctx, owner, bill.ID)
	requireKind(t, err, ErrForbidden)

	rejected, err := f.svc.Bills.Reject(f.ctx, actorOf(f.approver), bill.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BillStatusRejected, rejected.Status)

	// rejected bills go back to the author for edits
	newAmount := 99.0
	updated, err := f.svc.Bills.Update(f.ctx, owner, bill.ID, BillInput{Amount: &newAmount})
	require.NoError(t, err)
	assert.Equal(t, 99.0, updated.Amount)
	_, err = f.svc.Bills.Submit(f.ctx, owner, bill.ID)
	require.NoError(t, err)

	approved, err := f.svc.Bills.Approve(f.ctx, actorOf(f.approver), bill.ID)
	require.NoError(t, err)
	assert.Equal(t, f.approver.ID, deref(approved.ApprovedByID))

	_, err = f.svc.Bills.MarkPaid(f.ctx, owner, bill.ID)
	requireKind(t, err, ErrForbidden)
	paid, err := f.svc.Bills.MarkPaid(f.ctx, actorOf(f.buyer), bill.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BillStatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	_, err = f.svc.Bills.Cancel(f.ctx, owner, bill.ID)
	requireKind(t, err, ErrInvalidState)
	err = f.svc.Bills.Delete(f.ctx, owner, bill.ID)
	requireKind(t, err, ErrInvalidState)

	// other employees do not see the bill
	stranger := Actor{ID: "someone-else"}
	_, err = f.svc.Bills.Get(f.ctx, stranger, bill.ID)
	requireKind(t, err, ErrNotFound)
}

func TestPurchaseOrderFractionalReceipt(t *testing.T) {
	f := newFixture(t)
	buyer := actorOf(f.buyer)
	vendor := "Wirehouse"

	po, err := f.svc.PurchaseOrders.Create(f.ctx, buyer, POInput{VendorName: &vendor})
	require.NoError(t, err)
	item, err := f.svc.PurchaseOrders.AddItem(f.ctx, buyer, po.ID, POItemInput{Name: "Fibre", Quantity: qty(0.9), Unit: "m"})
	require.NoError(t, err)

	for _, part := range []float64{0.3, 0.6} {
		_, err = f.svc.PurchaseOrders.Receive(f.ctx, buyer, po.ID, ReceiveInput{Lines: []ReceiveLine{{ItemID: item.ID, QuantityReceived: part}}})
		require.NoError(t, err)
	}

	po, err = f.svc.PurchaseOrders.Get(f.ctx, buyer, po.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusReceived, po.Status)
	assert.Equal(t, 0.9, po.Items[0].ReceivedQuantity)

	_, total, err := f.svc.Assets.List(f.ctx, buyer, repository.AssetFilter{PurchaseOrderID: po.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestPurchaseOrderNumbersIgnoreManualSuffixes(t *testing.T) {
	f := newFixture(t)
	buyer := actorOf(f.buyer)
	prefix := "PO-" + time.Now().UTC().Format("20060102") + "-"

	first, err := f.svc.PurchaseOrders.Create(f.ctx, buyer, POInput{})
	require.NoError(t, err)
	assert.Equal(t, prefix+"00001", first.PONumber)

	manual := prefix + "ZZZ"
	_, err = f.svc.PurchaseOrders.Create(f.ctx, buyer, POInput{PONumber: &manual})
	require.NoError(t, err)

	next, err := f.svc.PurchaseOrders.Create(f.ctx, buyer, POInput{})
	require.NoError(t, err)
	assert.Equal(t, prefix+"00002", next.PONumber)
}

func TestCompletedTransferCannotCompleteAgain(t *testing.T) {
	f := newFixture(t)
	buyer := actorOf(f.buyer)
	name, partnerName := "Bench PSU", "Umbrella"

	asset, err := f.svc.Assets.Create(f.ctx, buyer, AssetInput{Name: &name, Quantity: qty(10)})
	require.NoError(t, err)
	partner, err := f.svc.Transfers.CreatePartner(f.ctx, buyer, PartnerInput{Name: &partnerName})
	require.NoError(t, err)
	tr, err := f.svc.Transfers.Create(f.ctx, buyer, TransferInput{PartnerID: &partner.ID})
	require.NoError(t, err)
	_, err = f.svc.Transfers.AddItem(f.ctx, buyer, tr.ID, TransferItemInput{AssetID: asset.ID, Quantity: 5})
	require.NoError(t, err)
	_, err = f.svc.Transfers.Submit(f.ctx, buyer, tr.ID)
	require.NoError(t, err)
	_, err = f.svc.Transfers.Approve(f.ctx, actorOf(f.approver), tr.ID)
	require.NoError(t, err)

	_, err = f.svc.Transfers.Complete(f.ctx, buyer, tr.ID)
	require.NoError(t, err)
	_, err = f.svc.Transfers.Complete(f.ctx, buyer, tr.ID)
	requireKind(t, err, ErrInvalidState)
	_, err = f.svc.Transfers.Cancel(f.ctx, buyer, tr.ID)
	requireKind(t, err, ErrInvalidState)

	asset, err = f.svc.Assets.Get(f.ctx, buyer, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, asset.TransferredQuantity)
	assert.Equal(t, entity.AssetStatusActive, asset.Status)
}
