package repository

import (
	"context"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"gorm.io/gorm"
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

type CatalogFilter struct {
	OwnerID  string
	Search   string
	Category string
	Vendor   string
	Page
}

func (r *CatalogRepository) Create(ctx context.Context, item *entity.CatalogItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *CatalogRepository) FindByID(ctx context.Context, id string) (*entity.CatalogItem, error) {
	var item entity.CatalogItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (r *CatalogRepository) Update(ctx context.Context, item *entity.CatalogItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *CatalogRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.CatalogItem{}).Error
}

func (r *CatalogRepository) List(ctx context.Context, f CatalogFilter) ([]entity.CatalogItem, int64, error) {
	var items []entity.CatalogItem
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.CatalogItem{})
	if f.OwnerID != "" {
		query = query.Where("owner_id = ?", f.OwnerID)
	}
	if f.Search != "" {
		like := contains(f.Search)
		query = query.Where("("+ilike("name")+" OR "+ilike("description")+" OR "+
			ilike("vendor_name")+" OR "+ilike("category")+")", like, like, like, like)
	}
	if f.Category != "" {
		query = query.Where(ilike("category"), contains(f.Category))
	}
	if f.Vendor != "" {
		query = query.Where(ilike("vendor_name"), contains(f.Vendor))
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := f.Page.apply(query.Order("updated_at DESC, id DESC")).Find(&items).Error
	return items, total, err
}
