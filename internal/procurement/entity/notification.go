package entity

import "time"

// Notification levels
const (
	NotificationInfo    = "INFO"
	NotificationSuccess = "SUCCESS"
	NotificationWarning = "WARNING"
	NotificationError   = "ERROR"
)

type Notification struct {
	ID        string     `json:"id" gorm:"primaryKey;size:32"`
	UserID    string     `json:"user_id" gorm:"size:32;not null;index"`
	Level     string     `json:"level" gorm:"size:20;not null;index"`
	Title     string     `json:"title" gorm:"size:200;not null"`
	Body      string     `json:"body" gorm:"type:text"`
	Link      string     `json:"link" gorm:"size:500"`
	ReadAt    *time.Time `json:"read_at" gorm:"index"`
	CreatedAt time.Time  `json:"created_at" gorm:"index"`
}

func (Notification) TableName() string {
	return "notifications"
}
