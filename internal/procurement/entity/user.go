package entity

import "time"

// User account. Email is stored lowercase.
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Email        string     `json:"email" gorm:"size:254;uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"size:100"`
	IsActive     bool       `json:"is_active"`
	IsSuperuser  bool       `json:"is_superuser"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Profile *Profile `json:"profile,omitempty" gorm:"foreignKey:UserID"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName falls back to the email when the profile has no name.
func (u *User) DisplayName() string {
	if u.Profile != nil && u.Profile.DisplayName != "" {
		return u.Profile.DisplayName
	}
	return u.Email
}

// ProfileRoles returns the roles stored on the profile.
func (u *User) ProfileRoles() []string {
	if u.Profile == nil {
		return nil
	}
	return u.Profile.Roles
}

// Profile per-user settings and stored roles.
type Profile struct {
	UserID                    string     `json:"user_id" gorm:"primaryKey;size:32"`
	DisplayName               string     `json:"display_name" gorm:"size:150"`
	PhoneNumber               string     `json:"phone_number" gorm:"size:50"`
	JobTitle                  string     `json:"job_title" gorm:"size:150"`
	AvatarURL                 string     `json:"avatar_url" gorm:"size:500"`
	NotificationsEmailEnabled bool       `json:"notifications_email_enabled"`
	Roles                     StringList `json:"roles" gorm:"type:text"`
	CreatedAt                 time.Time  `json:"created_at"`
	UpdatedAt                 time.Time  `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// UserBrief compact user reference embedded in responses.
type UserBrief struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func BriefOf(u *User) *UserBrief {
	if u == nil || u.ID == "" {
		return nil
	}
	return &UserBrief{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName()}
}
