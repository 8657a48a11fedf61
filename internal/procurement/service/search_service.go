package service

import (
	"context"
	"strings"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
)

// SearchService saved search history, private to each user.
type SearchService struct {
	repos *repository.Repositories
}

func NewSearchService(repos *repository.Repositories) *SearchService {
	return &SearchService{repos: repos}
}

type SearchInput struct {
	EntityType string       `json:"entity_type"`
	Query      string       `json:"query"`
	Filters    entity.JSONB `json:"filters"`
}

func normalizeEntityType(raw string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if t == "" {
		return entity.SearchEntityOther, nil
	}
	for _, known := range entity.SearchEntityTypes {
		if t == known {
			return t, nil
		}
	}
	return "", invalid("unknown entity_type %q", raw)
}

func (s *SearchService) List(ctx context.Context, actor Actor, entityType string, page repository.Page) ([]entity.SearchHistory, int64, error) {
	if entityType != "" {
		t, err := normalizeEntityType(entityType)
		if err != nil {
			return nil, 0, err
		}
		entityType = t
	}
	return s.repos.Search.List(ctx, actor.ID, entityType, page)
}

func (s *SearchService) Create(ctx context.Context, actor Actor, in SearchInput) (*entity.SearchHistory, error) {
	t, err := normalizeEntityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	filters := in.Filters
	if filters == nil {
		filters = entity.JSONB{}
	}
	h := &entity.SearchHistory{
		ID:         entity.NewID(),
		UserID:     actor.ID,
		EntityType: t,
		Query:      truncate(strings.TrimSpace(in.Query), 500),
		Filters:    filters,
	}
	if err := s.repos.Search.Create(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *SearchService) Get(ctx context.Context, actor Actor, id string) (*entity.SearchHistory, error) {
	h, err := s.repos.Search.FindForUser(ctx, id, actor.ID)
	if err != nil {
		return nil, lookup(err, "search")
	}
	return h, nil
}

func (s *SearchService) Delete(ctx context.Context, actor Actor, id string) error {
	h, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.repos.Search.Delete(ctx, h.ID)
}

// Update always fails: saved searches are append-only history.
func (s *SearchService) Update(ctx context.Context, actor Actor, id string) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	return newError(ErrMethodNotAllowed, "saved searches cannot be modified")
}
