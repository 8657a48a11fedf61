package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
)

func TestCatalogVisibilityAndSearch(t *testing.T) {
	f := newFixture(t)
	owner, approver, buyer := actorOf(f.owner), actorOf(f.approver), actorOf(f.buyer)

	_, err := f.svc.Catalog.Create(f.ctx, owner, CatalogInput{})
	requireKind(t, err, ErrValidation)
	_, err = f.svc.Catalog.Create(f.ctx, owner, CatalogInput{Name: strPtr("Cable"), UnitPrice: qty(-1)})
	requireKind(t, err, ErrValidation)

	mine, err := f.svc.Catalog.Create(f.ctx, owner, CatalogInput{
		Name: strPtr("USB-C cable"), Category: strPtr("Accessories"), VendorName: strPtr("Acme"), UnitPrice: qty(9.5),
	})
	require.NoError(t, err)
	_, err = f.svc.Catalog.Create(f.ctx, owner, CatalogInput{Name: strPtr("Logic analyzer"), Description: strPtr("16 channel"), VendorName: strPtr("Saleae")})
	require.NoError(t, err)
	theirs, err := f.svc.Catalog.Create(f.ctx, approver, CatalogInput{Name: strPtr("Desk lamp"), Category: strPtr("Furniture")})
	require.NoError(t, err)

	_, total, err := f.svc.Catalog.List(f.ctx, owner, repository.CatalogFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	_, total, err = f.svc.Catalog.List(f.ctx, buyer, repository.CatalogFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total, "procurement sees every catalog item")

	cases := []struct {
		name   string
		filter repository.CatalogFilter
		want   int64
	}{
		{"name", repository.CatalogFilter{Search: "usb"}, 1},
		{"description", repository.CatalogFilter{Search: "channel"}, 1},
		{"vendor in search", repository.CatalogFilter{Search: "saleae"}, 1},
		{"category in search", repository.CatalogFilter{Search: "furniture"}, 1},
		{"category filter", repository.CatalogFilter{Category: "Accessories"}, 1},
		{"vendor filter", repository.CatalogFilter{Vendor: "Acme"}, 1},
		{"no match", repository.CatalogFilter{Search: "oscilloscope"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, total, err := f.svc.Catalog.List(f.ctx, buyer, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, total)
		})
	}

	_, err = f.svc.Catalog.Get(f.ctx, owner, theirs.ID)
	requireKind(t, err, ErrNotFound)
	_, err = f.svc.Catalog.Update(f.ctx, owner, theirs.ID, CatalogInput{Name: strPtr("Mine now")})
	requireKind(t, err, ErrNotFound)
	requireKind(t, f.svc.Catalog.Delete(f.ctx, owner, theirs.ID), ErrNotFound)

	updated, err := f.svc.Catalog.Update(f.ctx, buyer, mine.ID, CatalogInput{UnitPrice: qty(8)})
	require.NoError(t, err)
	assert.Equal(t, 8.0, *updated.UnitPrice)
	require.NoError(t, f.svc.Catalog.Delete(f.ctx, actorOf(f.admin), theirs.ID))
}

func TestFeedbackReviewIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	owner, buyer, admin := actorOf(f.owner), actorOf(f.buyer), actorOf(f.admin)

	_, err := f.svc.Feedback.Create(f.ctx, owner, FeedbackInput{Category: "bug"})
	requireKind(t, err, ErrValidation)
	bad := 6
	_, err = f.svc.Feedback.Create(f.ctx, owner, FeedbackInput{Message: "hi", Rating: &bad})
	requireKind(t, err, ErrValidation)
	_, err = f.svc.Feedback.Create(f.ctx, owner, FeedbackInput{Category: "praise", Message: "hi"})
	requireKind(t, err, ErrValidation)

	rating := 4
	fb, err := f.svc.Feedback.Create(f.ctx, owner, FeedbackInput{Category: "ux", Message: "Export button is hidden", Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, entity.FeedbackUX, fb.Category)
	assert.Equal(t, entity.FeedbackStatusNew, fb.Status)
	_, err = f.svc.Feedback.Create(f.ctx, buyer, FeedbackInput{Message: "More filters please"})
	require.NoError(t, err)

	_, total, err := f.svc.Feedback.List(f.ctx, owner, "", repository.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	_, total, err = f.svc.Feedback.List(f.ctx, buyer, "", repository.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total, "procurement does not see other users' feedback")
	_, total, err = f.svc.Feedback.List(f.ctx, admin, "", repository.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	_, err = f.svc.Feedback.Get(f.ctx, buyer, fb.ID)
	requireKind(t, err, ErrNotFound)

	_, err = f.svc.Feedback.Review(f.ctx, owner, fb.ID, FeedbackReview{Status: strPtr("RESOLVED")})
	requireKind(t, err, ErrForbidden)
	requireKind(t, f.svc.Feedback.Delete(f.ctx, owner, fb.ID), ErrForbidden)

	_, err = f.svc.Feedback.Review(f.ctx, admin, fb.ID, FeedbackReview{Status: strPtr("closed")})
	requireKind(t, err, ErrValidation)
	reviewed, err := f.svc.Feedback.Review(f.ctx, admin, fb.ID, FeedbackReview{Status: strPtr("in_review"), AdminNote: strPtr("triaged")})
	require.NoError(t, err)
	assert.Equal(t, entity.FeedbackStatusInReview, reviewed.Status)
	assert.Equal(t, "triaged", reviewed.AdminNote)

	_, total, err = f.svc.Feedback.List(f.ctx, admin, "in_review", repository.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	require.NoError(t, f.svc.Feedback.Delete(f.ctx, admin, fb.ID))
	_, err = f.svc.Feedback.Get(f.ctx, owner, fb.ID)
	requireKind(t, err, ErrNotFound)
}
