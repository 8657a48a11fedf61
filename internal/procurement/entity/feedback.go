package entity

import "time"

// Feedback categories
const (
	FeedbackBug     = "BUG"
	FeedbackFeature = "FEATURE"
	FeedbackUX      = "UX"
	FeedbackOther   = "OTHER"
)

// Feedback statuses
const (
	FeedbackStatusNew      = "NEW"
	FeedbackStatusInReview = "IN_REVIEW"
	FeedbackStatusResolved = "RESOLVED"
)

type Feedback struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	UserID    *string   `json:"user_id" gorm:"size:32;index"`
	Category  string    `json:"category" gorm:"size:20;not null"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	PageURL   string    `json:"page_url" gorm:"size:500"`
	Rating    *int      `json:"rating"`
	Metadata  JSONB     `json:"metadata" gorm:"type:jsonb"`
	Status    string    `json:"status" gorm:"size:20;not null;index"`
	AdminNote string    `json:"admin_note" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Feedback) TableName() string {
	return "feedback"
}
