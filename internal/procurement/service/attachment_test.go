package service

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/procurement/testutil"
)

func TestAttachmentAccessFollowsLinkedRecords(t *testing.T) {
	f := newFixture(t)
	buyer := actorOf(f.buyer)
	clerk := testutil.SeedUser(t, f.db, "clerk@example.com")
	outsider := testutil.SeedUser(t, f.db, "outsider@example.com")

	bom := f.draftBom(t)
	// a PO raised by someone who has since lost the procurement role
	po := &entity.PurchaseOrder{
		ID:          entity.NewID(),
		CreatedByID: &clerk.ID,
		Status:      entity.POStatusDraft,
		PONumber:    "PO-LEGACY-7",
		Data:        entity.JSONB{},
	}
	require.NoError(t, f.repos.PO.Create(f.ctx, po))

	bill, err := f.svc.Bills.Create(f.ctx, actorOf(clerk), BillInput{Title: strPtr("Invoice 7")})
	require.NoError(t, err)
	linked, err := f.svc.Bills.Create(f.ctx, buyer, BillInput{Title: strPtr("Invoice 8"), BomID: &bom.ID, PurchaseOrderID: &po.ID})
	require.NoError(t, err)

	upload := func(in UploadInput) *entity.Attachment {
		t.Helper()
		in.FileName = "quote.pdf"
		in.ContentType = "application/pdf"
		in.Body = strings.NewReader("%PDF-1.4")
		in.Size = 8
		a, err := f.svc.Attachments.Upload(f.ctx, buyer, in)
		require.NoError(t, err)
		return a
	}
	onBom := upload(UploadInput{BomID: bom.ID})
	onPO := upload(UploadInput{PurchaseOrderID: po.ID})
	onBill := upload(UploadInput{BillID: bill.ID})
	onLinkedBill := upload(UploadInput{BillID: linked.ID})

	cases := []struct {
		name    string
		user    *entity.User
		file    *entity.Attachment
		visible bool
	}{
		{"bom owner", f.owner, onBom, true},
		{"outsider on bom", outsider, onBom, false},
		{"po creator", clerk, onPO, true},
		{"bom owner on unrelated po", f.owner, onPO, false},
		{"bill creator", clerk, onBill, true},
		{"outsider on bill", outsider, onBill, false},
		{"owner of the bill's bom", f.owner, onLinkedBill, true},
		{"creator of the bill's po", clerk, onLinkedBill, true},
		{"approver without a link", f.approver, onLinkedBill, false},
		{"admin", f.admin, onBill, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Attachments.Get(f.ctx, actorOf(tc.user), tc.file.ID)
			if tc.visible {
				assert.NoError(t, err)
			} else {
				requireKind(t, err, ErrNotFound)
			}
		})
	}

	a, rc, err := f.svc.Attachments.Open(f.ctx, actorOf(clerk), onPO.ID)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(content))
	assert.Equal(t, "application/pdf", a.ContentType)

	_, total, err := f.svc.Attachments.List(f.ctx, actorOf(outsider), repository.AttachmentFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	_, total, err = f.svc.Attachments.List(f.ctx, buyer, repository.AttachmentFilter{BillID: bill.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	// readers of a linked record still cannot delete the file
	requireKind(t, f.svc.Attachments.Delete(f.ctx, actorOf(f.owner), onBom.ID), ErrForbidden)
	require.NoError(t, f.svc.Attachments.Delete(f.ctx, actorOf(f.admin), onBom.ID))
	_, err = f.svc.Attachments.Get(f.ctx, buyer, onBom.ID)
	requireKind(t, err, ErrNotFound)

	_, err = f.svc.Attachments.Upload(f.ctx, buyer, UploadInput{
		FileName: "huge.bin",
		Body:     strings.NewReader("x"),
		Size:     f.svc.Attachments.MaxBytes() + 1,
	})
	requireKind(t, err, ErrValidation)
}
