package repository

import (
	"context"
	"strings"
	"time"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"gorm.io/gorm"
)

// UserRepository users and profiles.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user and its profile.
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Preload("Profile").Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindByEmail matches case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Preload("Profile").
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.User, error) {
	var users []entity.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Preload("Profile").Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// List active users ordered by email.
func (r *UserRepository) List(ctx context.Context, search string, page Page) ([]entity.User, int64, error) {
	var users []entity.User
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.User{}).Where("is_active = ?", true)
	if search != "" {
		like := contains(search)
		query = query.Where("("+ilike("email")+" OR id IN (?))", like,
			r.db.Model(&entity.Profile{}).Select("user_id").Where(ilike("display_name"), like))
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := page.apply(query.Preload("Profile").Order("email ASC")).Find(&users).Error
	return users, total, err
}

// ListActiveWithRole returns active users whose stored roles include role.
// Superusers are not included unless they also store the role.
func (r *UserRepository) ListActiveWithRole(ctx context.Context, role string) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).Preload("Profile").
		Where("is_active = ?", true).
		Where("id IN (?)", r.db.Model(&entity.Profile{}).Select("user_id").
			Where("roles LIKE ?", `%"`+role+`"%`)).
		Order("email ASC").
		Find(&users).Error
	return users, err
}

func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Omit("Profile").Save(user).Error
}

func (r *UserRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// SaveProfile creates or replaces the profile row.
func (r *UserRepository) SaveProfile(ctx context.Context, profile *entity.Profile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *UserRepository) FindProfile(ctx context.Context, userID string) (*entity.Profile, error) {
	var profile entity.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}
