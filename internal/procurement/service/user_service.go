package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/shared/roles"
	"golang.org/x/crypto/bcrypt"
)

// UserService user directory, admin updates and profiles.
type UserService struct {
	repos *repository.Repositories
}

func NewUserService(repos *repository.Repositories) *UserService {
	return &UserService{repos: repos}
}

// List active users for pickers.
func (s *UserService) List(ctx context.Context, search string, page repository.Page) ([]UserView, int64, error) {
	users, total, err := s.repos.User.List(ctx, search, page)
	if err != nil {
		return nil, 0, err
	}
	out := make([]UserView, len(users))
	for i := range users {
		out[i] = *viewOf(&users[i])
	}
	return out, total, nil
}

// AdminUpdateInput nil fields are left unchanged.
type AdminUpdateInput struct {
	IsActive *bool     `json:"is_active"`
	Roles    *[]string `json:"roles"`
}

// AdminUpdate changes activation and stored roles of a user.
func (s *UserService) AdminUpdate(ctx context.Context, userID string, in AdminUpdateInput) (*UserView, error) {
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, lookup(err, "user")
	}

	var normalized []string
	if in.Roles != nil {
		normalized, err = roles.Normalize(*in.Roles)
		if err != nil {
			return nil, invalid("%s", err.Error())
		}
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if in.IsActive != nil {
			user.IsActive = *in.IsActive
			if err := tx.User.Update(ctx, user); err != nil {
				return err
			}
		}
		if in.Roles != nil {
			profile := user.Profile
			if profile == nil {
				profile = &entity.Profile{UserID: user.ID, NotificationsEmailEnabled: true}
			}
			profile.Roles = entity.StringList(normalized)
			if err := tx.User.SaveProfile(ctx, profile); err != nil {
				return err
			}
			user.Profile = profile
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return viewOf(user), nil
}

// CreateSuperuser bootstraps an active admin account. An existing account
// with the same email is promoted instead.
func (s *UserService) CreateSuperuser(ctx context.Context, email, password string) (*entity.User, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repos.User.FindByEmail(ctx, normalized)
	switch {
	case err == nil:
		user.IsActive = true
		user.IsSuperuser = true
		user.PasswordHash = string(hash)
		return user, s.repos.User.Update(ctx, user)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	user = &entity.User{
		ID:           entity.NewID(),
		Email:        normalized,
		PasswordHash: string(hash),
		IsActive:     true,
		IsSuperuser:  true,
	}
	user.Profile = &entity.Profile{UserID: user.ID, NotificationsEmailEnabled: true, Roles: entity.StringList{}}
	return user, s.repos.User.Create(ctx, user)
}

// ==================== Profile ====================

// ProfileInput own-profile patch. Roles cannot be changed here.
type ProfileInput struct {
	DisplayName               *string `json:"display_name"`
	PhoneNumber               *string `json:"phone_number"`
	JobTitle                  *string `json:"job_title"`
	AvatarURL                 *string `json:"avatar_url"`
	NotificationsEmailEnabled *bool   `json:"notifications_email_enabled"`
}

func (s *UserService) Profile(ctx context.Context, actor Actor) (*entity.Profile, error) {
	profile, err := s.repos.User.FindProfile(ctx, actor.ID)
	if errors.Is(err, repository.ErrNotFound) {
		profile = &entity.Profile{UserID: actor.ID, NotificationsEmailEnabled: true, Roles: entity.StringList{}}
		if err := s.repos.User.SaveProfile(ctx, profile); err != nil {
			return nil, err
		}
		return profile, nil
	}
	return profile, err
}

func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, in ProfileInput) (*entity.Profile, error) {
	profile, err := s.Profile(ctx, actor)
	if err != nil {
		return nil, err
	}
	if in.DisplayName != nil {
		profile.DisplayName = *in.DisplayName
	}
	if in.PhoneNumber != nil {
		profile.PhoneNumber = *in.PhoneNumber
	}
	if in.JobTitle != nil {
		profile.JobTitle = *in.JobTitle
	}
	if in.AvatarURL != nil {
		profile.AvatarURL = *in.AvatarURL
	}
	if in.NotificationsEmailEnabled != nil {
		profile.NotificationsEmailEnabled = *in.NotificationsEmailEnabled
	}
	if err := s.repos.User.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
