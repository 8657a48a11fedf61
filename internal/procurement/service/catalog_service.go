package service

import (
	"context"
	"strings"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
)

type CatalogService struct {
	repos *repository.Repositories
}

func NewCatalogService(repos *repository.Repositories) *CatalogService {
	return &CatalogService{repos: repos}
}

// CatalogInput nil fields are left unchanged on update.
type CatalogInput struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	Category    *string       `json:"category"`
	VendorName  *string       `json:"vendor_name"`
	VendorURL   *string       `json:"vendor_url"`
	Currency    *string       `json:"currency"`
	UnitPrice   *float64      `json:"unit_price"`
	TaxPercent  *float64      `json:"tax_percent"`
	Data        *entity.JSONB `json:"data"`
}

func (in CatalogInput) apply(item *entity.CatalogItem) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return invalid("name cannot be empty")
		}
		item.Name = name
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.Category != nil {
		item.Category = strings.TrimSpace(*in.Category)
	}
	if in.VendorName != nil {
		item.VendorName = strings.TrimSpace(*in.VendorName)
	}
	if in.VendorURL != nil {
		item.VendorURL = strings.TrimSpace(*in.VendorURL)
	}
	if in.Currency != nil {
		item.Currency = *in.Currency
	}
	if in.UnitPrice != nil {
		if !finite(*in.UnitPrice) || *in.UnitPrice < 0 {
			return invalid("unit_price cannot be negative")
		}
		item.UnitPrice = in.UnitPrice
	}
	if in.TaxPercent != nil {
		if !finite(*in.TaxPercent) || *in.TaxPercent < 0 || *in.TaxPercent > 100 {
			return invalid("tax_percent must be between 0 and 100")
		}
		item.TaxPercent = in.TaxPercent
	}
	if in.Data != nil {
		item.Data = *in.Data
	}
	return nil
}

func (s *CatalogService) List(ctx context.Context, actor Actor, f repository.CatalogFilter) ([]entity.CatalogItem, int64, error) {
	f.OwnerID = actor.visibleTo()
	return s.repos.Catalog.List(ctx, f)
}

func (s *CatalogService) Get(ctx context.Context, actor Actor, id string) (*entity.CatalogItem, error) {
	item, err := s.repos.Catalog.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "catalog item")
	}
	if !actor.SeesAll() && item.OwnerID != actor.ID {
		return nil, notFound("catalog item")
	}
	return item, nil
}

func (s *CatalogService) Create(ctx context.Context, actor Actor, in CatalogInput) (*entity.CatalogItem, error) {
	if in.Name == nil {
		return nil, invalid("name is required")
	}
	item := &entity.CatalogItem{ID: entity.NewID(), OwnerID: actor.ID, Data: entity.JSONB{}}
	if err := in.apply(item); err != nil {
		return nil, err
	}
	if err := s.repos.Catalog.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CatalogService) Update(ctx context.Context, actor Actor, id string, in CatalogInput) (*entity.CatalogItem, error) {
	item, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(item); err != nil {
		return nil, err
	}
	if err := s.repos.Catalog.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CatalogService) Delete(ctx context.Context, actor Actor, id string) error {
	item, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.repos.Catalog.Delete(ctx, item.ID)
}
