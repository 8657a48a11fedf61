package repository

import (
	"context"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"gorm.io/gorm"
)

type FeedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) Create(ctx context.Context, f *entity.Feedback) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *FeedbackRepository) FindByID(ctx context.Context, id string) (*entity.Feedback, error) {
	var f entity.Feedback
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (r *FeedbackRepository) Update(ctx context.Context, f *entity.Feedback) error {
	return r.db.WithContext(ctx).Save(f).Error
}

func (r *FeedbackRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Feedback{}).Error
}

// List with an empty userID returns every user's feedback.
func (r *FeedbackRepository) List(ctx context.Context, userID, status string, page Page) ([]entity.Feedback, int64, error) {
	var items []entity.Feedback
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Feedback{})
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := page.apply(query.Order("created_at DESC, id DESC")).Find(&items).Error
	return items, total, err
}
