package repository

import (
	"context"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssetRepository inventory assets.
type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// AssetFilter list filter. VisibleTo limits to assets the user created or
// that came from a BOM the user owns.
type AssetFilter struct {
	VisibleTo       string
	Statuses        []string
	BomID           string
	PurchaseOrderID string
	Category        string
	Vendor          string
	Search          string
	Page
}

func (r *AssetRepository) Create(ctx context.Context, asset *entity.Asset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

func (r *AssetRepository) FindByID(ctx context.Context, id string) (*entity.Asset, error) {
	var asset entity.Asset
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&asset).Error; err != nil {
		return nil, notFound(err)
	}
	return &asset, nil
}

// FindForUpdate loads the asset row locked for update.
func (r *AssetRepository) FindForUpdate(ctx context.Context, id string) (*entity.Asset, error) {
	var asset entity.Asset
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&asset).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &asset, nil
}

func (r *AssetRepository) Update(ctx context.Context, asset *entity.Asset) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(asset).Error
}

func (r *AssetRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Asset{}).Error
}

func (r *AssetRepository) ExistsForBomItem(ctx context.Context, bomItemID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Asset{}).Where("source_bom_item_id = ?", bomItemID).Count(&count).Error
	return count > 0, err
}

func (r *AssetRepository) ExistsForPOItem(ctx context.Context, poItemID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Asset{}).Where("source_po_item_id = ?", poItemID).Count(&count).Error
	return count > 0, err
}

func (r *AssetRepository) List(ctx context.Context, f AssetFilter) ([]entity.Asset, int64, error) {
	var assets []entity.Asset
	var total int64

	bomItemsOf := func(bomFilter *gorm.DB) *gorm.DB {
		return r.db.Model(&entity.BomItem{}).Select("id").Where("bom_id IN (?)", bomFilter)
	}

	query := r.db.WithContext(ctx).Model(&entity.Asset{})
	if f.VisibleTo != "" {
		owned := r.db.Model(&entity.Bom{}).Select("id").Where("owner_id = ?", f.VisibleTo)
		query = query.Where("(created_by_id = ? OR source_bom_item_id IN (?))", f.VisibleTo, bomItemsOf(owned))
	}
	if len(f.Statuses) > 0 {
		query = query.Where("status IN ?", f.Statuses)
	}
	if f.BomID != "" {
		query = query.Where("source_bom_item_id IN (?)",
			r.db.Model(&entity.BomItem{}).Select("id").Where("bom_id = ?", f.BomID))
	}
	if f.PurchaseOrderID != "" {
		query = query.Where("source_po_item_id IN (?)",
			r.db.Model(&entity.PurchaseOrderItem{}).Select("id").Where("purchase_order_id = ?", f.PurchaseOrderID))
	}
	if f.Category != "" {
		query = query.Where(ilike("category"), contains(f.Category))
	}
	if f.Vendor != "" {
		query = query.Where(ilike("vendor"), contains(f.Vendor))
	}
	if f.Search != "" {
		like := contains(f.Search)
		query = query.Where("("+ilike("name")+" OR "+ilike("description")+")", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := f.Page.apply(query.Order("updated_at DESC, id DESC")).Find(&assets).Error
	return assets, total, err
}
