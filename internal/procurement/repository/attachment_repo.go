package repository

import (
	"context"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"gorm.io/gorm"
)

type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// AttachmentFilter list filter. OwnerID limits to the user's uploads.
type AttachmentFilter struct {
	OwnerID         string
	BomID           string
	PurchaseOrderID string
	BillID          string
	Page
}

func (r *AttachmentRepository) Create(ctx context.Context, a *entity.Attachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AttachmentRepository) FindByID(ctx context.Context, id string) (*entity.Attachment, error) {
	var a entity.Attachment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Attachment{}).Error
}

func (r *AttachmentRepository) List(ctx context.Context, f AttachmentFilter) ([]entity.Attachment, int64, error) {
	var items []entity.Attachment
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Attachment{})
	if f.OwnerID != "" {
		query = query.Where("owner_id = ?", f.OwnerID)
	}
	if f.BomID != "" {
		query = query.Where("bom_id = ?", f.BomID)
	}
	if f.PurchaseOrderID != "" {
		query = query.Where("purchase_order_id = ?", f.PurchaseOrderID)
	}
	if f.BillID != "" {
		query = query.Where("bill_id = ?", f.BillID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := f.Page.apply(query.Order("created_at DESC, id DESC")).Find(&items).Error
	return items, total, err
}
