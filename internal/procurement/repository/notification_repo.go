package repository

import (
	"context"
	"time"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"gorm.io/gorm"
)

// NotificationRepository in-app notifications.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// NotificationFilter list filter. Unread/Read narrow by read_at when set.
type NotificationFilter struct {
	UserID  string
	Levels  []string
	Unread  *bool
	Created TimeRange
	Page
}

func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepository) FindForUser(ctx context.Context, id, userID string) (*entity.Notification, error) {
	var n entity.Notification
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (r *NotificationRepository) List(ctx context.Context, f NotificationFilter) ([]entity.Notification, int64, error) {
	var items []entity.Notification
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Notification{}).Where("user_id = ?", f.UserID)
	if len(f.Levels) > 0 {
		query = query.Where("level IN ?", f.Levels)
	}
	if f.Unread != nil {
		if *f.Unread {
			query = query.Where("read_at IS NULL")
		} else {
			query = query.Where("read_at IS NOT NULL")
		}
	}
	query = f.Created.apply(query, "created_at")

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := f.Page.apply(query.Order("created_at DESC, id DESC")).Find(&items).Error
	return items, total, err
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at).Error
}

// MarkAllRead returns how many notifications were updated.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", at)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

// PurgeReadBefore deletes read notifications created before cutoff.
func (r *NotificationRepository) PurgeReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Delete(&entity.Notification{})
	return res.RowsAffected, res.Error
}
