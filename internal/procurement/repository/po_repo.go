package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PORepository purchase orders and their items.
type PORepository struct {
	db *gorm.DB
}

func NewPORepository(db *gorm.DB) *PORepository {
	return &PORepository{db: db}
}

// POFilter list filter. VisibleTo limits to POs created by the user or on BOMs they own.
type POFilter struct {
	VisibleTo string
	Statuses  []string
	BomID     string
	Vendor    string
	Category  string
	Search    string
	Created   TimeRange
	Updated   TimeRange
	Page
}

// NextNumber returns the next PO number for the given day prefix, e.g.
// PO-20261019-00003. Numbers with a non-numeric suffix do not count.
func (r *PORepository) NextNumber(ctx context.Context, prefix string, padding int) (string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrder{}).
		Where("po_number LIKE ?", prefix+"%").
		Pluck("po_number", &codes).Error
	if err != nil {
		return "", err
	}

	seq := 0
	for _, code := range codes {
		n, err := strconv.Atoi(strings.TrimPrefix(code, prefix))
		if err != nil || n < 0 {
			continue
		}
		if n > seq {
			seq = n
		}
	}
	seq++
	return fmt.Sprintf("%s%0*d", prefix, padding, seq), nil
}

func (r *PORepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(po).Error
}

func (r *PORepository) FindByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Bom").
		Preload("CreatedBy").
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &po, nil
}

func (r *PORepository) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(po).Error
}

func (r *PORepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).Model(&entity.PurchaseOrder{}).Where("id = ?", id).Update("status", status).Error
}

func (r *PORepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("purchase_order_id = ?", id).Delete(&entity.PurchaseOrderItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.PurchaseOrder{}).Error
	})
}

func (r *PORepository) List(ctx context.Context, f POFilter) ([]entity.PurchaseOrder, int64, error) {
	var pos []entity.PurchaseOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})
	if f.VisibleTo != "" {
		owned := r.db.Model(&entity.Bom{}).Select("id").Where("owner_id = ?", f.VisibleTo)
		query = query.Where("(created_by_id = ? OR bom_id IN (?))", f.VisibleTo, owned)
	}
	if len(f.Statuses) > 0 {
		query = query.Where("status IN ?", f.Statuses)
	}
	if f.BomID != "" {
		query = query.Where("bom_id = ?", f.BomID)
	}
	if f.Vendor != "" {
		query = query.Where(ilike("vendor_name"), contains(f.Vendor))
	}
	if f.Category != "" {
		query = query.Where("id IN (?)", r.db.Model(&entity.PurchaseOrderItem{}).
			Select("purchase_order_id").Where(ilike("category"), contains(f.Category)))
	}
	if f.Search != "" {
		like := contains(f.Search)
		query = query.Where("("+ilike("po_number")+" OR "+ilike("vendor_name")+")", like, like)
	}
	query = f.Created.apply(query, "created_at")
	query = f.Updated.apply(query, "updated_at")

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := f.Page.apply(query.Preload("Items").Order("updated_at DESC, id DESC")).Find(&pos).Error
	return pos, total, err
}

func (r *PORepository) CreateItem(ctx context.Context, item *entity.PurchaseOrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// ItemsByIDs returns items of the PO among ids, locked for update.
func (r *PORepository) ItemsByIDs(ctx context.Context, poID string, ids []string) ([]entity.PurchaseOrderItem, error) {
	var items []entity.PurchaseOrderItem
	if len(ids) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("purchase_order_id = ? AND id IN ?", poID, ids).
		Find(&items).Error
	return items, err
}

func (r *PORepository) ItemsByPO(ctx context.Context, poID string) ([]entity.PurchaseOrderItem, error) {
	var items []entity.PurchaseOrderItem
	err := r.db.WithContext(ctx).Where("purchase_order_id = ?", poID).Order("created_at ASC, id ASC").Find(&items).Error
	return items, err
}

func (r *PORepository) UpdateItem(ctx context.Context, item *entity.PurchaseOrderItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// BomItemIDsOnOrder returns the BOM item ids already placed on a PO line.
func (r *PORepository) BomItemIDsOnOrder(ctx context.Context, bomItemIDs []string) (map[string]bool, error) {
	var ids []string
	if len(bomItemIDs) == 0 {
		return map[string]bool{}, nil
	}
	err := r.db.WithContext(ctx).Model(&entity.PurchaseOrderItem{}).
		Where("bom_item_id IN ?", bomItemIDs).
		Pluck("bom_item_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
