package repository

import (
	"context"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"gorm.io/gorm"
)

type SearchRepository struct {
	db *gorm.DB
}

func NewSearchRepository(db *gorm.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

func (r *SearchRepository) Create(ctx context.Context, h *entity.SearchHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *SearchRepository) FindForUser(ctx context.Context, id, userID string) (*entity.SearchHistory, error) {
	var h entity.SearchHistory
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&h).Error; err != nil {
		return nil, notFound(err)
	}
	return &h, nil
}

func (r *SearchRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.SearchHistory{}).Error
}

func (r *SearchRepository) List(ctx context.Context, userID, entityType string, page Page) ([]entity.SearchHistory, int64, error) {
	var items []entity.SearchHistory
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.SearchHistory{}).Where("user_id = ?", userID)
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := page.apply(query.Order("created_at DESC, id DESC")).Find(&items).Error
	return items, total, err
}
