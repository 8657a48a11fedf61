package service

import (
	"context"
	"strings"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
)

type FeedbackService struct {
	repos *repository.Repositories
}

func NewFeedbackService(repos *repository.Repositories) *FeedbackService {
	return &FeedbackService{repos: repos}
}

// FeedbackInput submission from any signed-in user.
type FeedbackInput struct {
	Category string       `json:"category"`
	Message  string       `json:"message"`
	PageURL  string       `json:"page_url"`
	Rating   *int         `json:"rating"`
	Metadata entity.JSONB `json:"metadata"`
}

// FeedbackReview admin triage fields.
type FeedbackReview struct {
	Status    *string `json:"status"`
	AdminNote *string `json:"admin_note"`
}

func (s *FeedbackService) List(ctx context.Context, actor Actor, status string, page repository.Page) ([]entity.Feedback, int64, error) {
	userID := ""
	if !actor.IsAdmin() {
		userID = actor.ID
	}
	return s.repos.Feedback.List(ctx, userID, strings.ToUpper(strings.TrimSpace(status)), page)
}

func (s *FeedbackService) Get(ctx context.Context, actor Actor, id string) (*entity.Feedback, error) {
	f, err := s.repos.Feedback.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "feedback")
	}
	if !actor.IsAdmin() && deref(f.UserID) != actor.ID {
		return nil, notFound("feedback")
	}
	return f, nil
}

func (s *FeedbackService) Create(ctx context.Context, actor Actor, in FeedbackInput) (*entity.Feedback, error) {
	category := strings.ToUpper(strings.TrimSpace(in.Category))
	if category == "" {
		category = entity.FeedbackOther
	}
	switch category {
	case entity.FeedbackBug, entity.FeedbackFeature, entity.FeedbackUX, entity.FeedbackOther:
	default:
		return nil, invalid("unknown category %q", in.Category)
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, invalid("message is required")
	}
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return nil, invalid("rating must be between 1 and 5")
	}
	metadata := in.Metadata
	if metadata == nil {
		metadata = entity.JSONB{}
	}
	f := &entity.Feedback{
		ID:       entity.NewID(),
		UserID:   strPtr(actor.ID),
		Category: category,
		Message:  message,
		PageURL:  truncate(in.PageURL, 500),
		Rating:   in.Rating,
		Metadata: metadata,
		Status:   entity.FeedbackStatusNew,
	}
	if err := s.repos.Feedback.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FeedbackService) Review(ctx context.Context, actor Actor, id string, in FeedbackReview) (*entity.Feedback, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("only admins can update feedback")
	}
	f, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if in.Status != nil {
		switch status := strings.ToUpper(strings.TrimSpace(*in.Status)); status {
		case entity.FeedbackStatusNew, entity.FeedbackStatusInReview, entity.FeedbackStatusResolved:
			f.Status = status
		default:
			return nil, invalid("unknown status %q", *in.Status)
		}
	}
	if in.AdminNote != nil {
		f.AdminNote = *in.AdminNote
	}
	if err := s.repos.Feedback.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FeedbackService) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return forbidden("only admins can delete feedback")
	}
	f, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.repos.Feedback.Delete(ctx, f.ID)
}
