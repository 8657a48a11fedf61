package repository

import (
	"context"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"gorm.io/gorm"
)

type BillRepository struct {
	db *gorm.DB
}

func NewBillRepository(db *gorm.DB) *BillRepository {
	return &BillRepository{db: db}
}

// BillFilter list filter. VisibleTo limits to bills the user created, bills on
// BOMs they own and bills on POs they created.
type BillFilter struct {
	VisibleTo       string
	Statuses        []string
	Vendor          string
	BomID           string
	PurchaseOrderID string
	Created         TimeRange
	Page
}

func (r *BillRepository) Create(ctx context.Context, b *entity.Bill) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BillRepository) FindByID(ctx context.Context, id string) (*entity.Bill, error) {
	var b entity.Bill
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *BillRepository) Update(ctx context.Context, b *entity.Bill) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *BillRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Bill{}).Error
}

func (r *BillRepository) List(ctx context.Context, f BillFilter) ([]entity.Bill, int64, error) {
	var items []entity.Bill
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Bill{})
	if f.VisibleTo != "" {
		ownedBoms := r.db.Model(&entity.Bom{}).Select("id").Where("owner_id = ?", f.VisibleTo)
		ownPOs := r.db.Model(&entity.PurchaseOrder{}).Select("id").Where("created_by_id = ?", f.VisibleTo)
		query = query.Where("(created_by_id = ? OR bom_id IN (?) OR purchase_order_id IN (?))",
			f.VisibleTo, ownedBoms, ownPOs)
	}
	if len(f.Statuses) > 0 {
		query = query.Where("status IN ?", f.Statuses)
	}
	if f.Vendor != "" {
		query = query.Where(ilike("vendor_name"), contains(f.Vendor))
	}
	if f.BomID != "" {
		query = query.Where("bom_id = ?", f.BomID)
	}
	if f.PurchaseOrderID != "" {
		query = query.Where("purchase_order_id = ?", f.PurchaseOrderID)
	}
	query = f.Created.apply(query, "created_at")

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := f.Page.apply(query.Order("created_at DESC, id DESC")).Find(&items).Error
	return items, total, err
}
