package service

import (
	"context"
	"strings"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/shared/metrics"
	"github.com/uthejd-slx/procura-backend/internal/shared/roles"
)

// AssetService inventory records and their conversion from received lines.
type AssetService struct {
	repos *repository.Repositories
}

func NewAssetService(repos *repository.Repositories) *AssetService {
	return &AssetService{repos: repos}
}

// ==================== Conversion ====================

// ConvertBomItems creates one asset per fully received BOM item that has
// none yet and returns how many were created.
func (s *AssetService) ConvertBomItems(ctx context.Context, tx *repository.Repositories, actor Actor, items []entity.BomItem) (int, error) {
	created := 0
	for i := range items {
		item := &items[i]
		if !item.IsFullyReceived() {
			continue
		}
		exists, err := tx.Asset.ExistsForBomItem(ctx, item.ID)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		asset := &entity.Asset{
			ID:              entity.NewID(),
			SourceBomItemID: strPtr(item.ID),
			CreatedByID:     strPtr(actor.ID),
			Name:            item.Name,
			Description:     item.Description,
			Category:        item.Category,
			Vendor:          item.Vendor,
			Quantity:        item.Quantity,
			Unit:            item.Unit,
			Status:          entity.AssetStatusActive,
			Data:            entity.JSONB{"bom_id": item.BomID, "bom_item_id": item.ID},
		}
		if err := tx.Asset.Create(ctx, asset); err != nil {
			return created, err
		}
		created++
	}
	metrics.RecordAssetsCreated("bom", created)
	return created, nil
}

// ConvertPOItems is ConvertBomItems for purchase order lines.
func (s *AssetService) ConvertPOItems(ctx context.Context, tx *repository.Repositories, actor Actor, items []entity.PurchaseOrderItem) (int, error) {
	created := 0
	for i := range items {
		item := &items[i]
		if !item.IsFullyReceived() {
			continue
		}
		exists, err := tx.Asset.ExistsForPOItem(ctx, item.ID)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		asset := &entity.Asset{
			ID:             entity.NewID(),
			SourcePOItemID: strPtr(item.ID),
			CreatedByID:    strPtr(actor.ID),
			Name:           item.Name,
			Description:    item.Description,
			Category:       item.Category,
			Vendor:         item.Vendor,
			Quantity:       item.Quantity,
			Unit:           item.Unit,
			Status:         entity.AssetStatusActive,
			Data:           entity.JSONB{"purchase_order_id": item.PurchaseOrderID, "purchase_order_item_id": item.ID},
		}
		if err := tx.Asset.Create(ctx, asset); err != nil {
			return created, err
		}
		created++
	}
	metrics.RecordAssetsCreated("purchase_order", created)
	return created, nil
}

// ApplyTransferQuantities moves transferred quantities onto the assets,
// re-checking availability under row locks.
func (s *AssetService) ApplyTransferQuantities(ctx context.Context, tx *repository.Repositories, items []entity.TransferItem) error {
	for _, ti := range items {
		asset, err := tx.Asset.FindForUpdate(ctx, ti.AssetID)
		if err != nil {
			return lookup(err, "asset")
		}
		if !entity.QuantityReached(asset.AvailableQuantity(), ti.Quantity) {
			return invalid("asset %q has only %g available", asset.Name, asset.AvailableQuantity())
		}
		asset.TransferredQuantity = entity.AddQuantity(asset.TransferredQuantity, ti.Quantity)
		if entity.QuantityReached(asset.TransferredQuantity, asset.Quantity) {
			asset.Status = entity.AssetStatusTransferred
		}
		if err := tx.Asset.Update(ctx, asset); err != nil {
			return err
		}
	}
	return nil
}

// ==================== CRUD ====================

func (s *AssetService) List(ctx context.Context, actor Actor, f repository.AssetFilter) ([]entity.Asset, int64, error) {
	f.VisibleTo = actor.visibleTo()
	return s.repos.Asset.List(ctx, f)
}

// Get staff, the creator and the owner of the source BOM may read an asset.
func (s *AssetService) Get(ctx context.Context, actor Actor, id string) (*entity.Asset, error) {
	asset, err := s.repos.Asset.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "asset")
	}
	if actor.SeesAll() || deref(asset.CreatedByID) == actor.ID {
		return asset, nil
	}
	if asset.SourceBomItemID != nil {
		item, err := s.repos.Bom.FindItem(ctx, *asset.SourceBomItemID)
		if err == nil {
			bom, err := s.repos.Bom.FindByID(ctx, item.BomID)
			if err == nil && bom.OwnerID == actor.ID {
				return asset, nil
			}
		}
	}
	return nil, notFound("asset")
}

// AssetInput nil fields are left unchanged on update.
type AssetInput struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	Category    *string       `json:"category"`
	Vendor      *string       `json:"vendor"`
	Quantity    *float64      `json:"quantity"`
	Unit        *string       `json:"unit"`
	Status      *string       `json:"status"`
	Data        *entity.JSONB `json:"data"`
}

func (in AssetInput) apply(a *entity.Asset) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return invalid("name cannot be empty")
		}
		a.Name = name
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.Category != nil {
		a.Category = *in.Category
	}
	if in.Vendor != nil {
		a.Vendor = *in.Vendor
	}
	if in.Unit != nil {
		a.Unit = *in.Unit
	}
	if in.Quantity != nil {
		if !finite(*in.Quantity) || entity.RoundQuantity(*in.Quantity) <= 0 {
			return invalid("quantity must be greater than zero")
		}
		if *in.Quantity < a.TransferredQuantity {
			return invalid("quantity cannot be below the transferred quantity")
		}
		a.Quantity = *in.Quantity
	}
	if in.Status != nil {
		switch status := strings.ToUpper(*in.Status); status {
		case entity.AssetStatusActive, entity.AssetStatusTransferred, entity.AssetStatusDisposed:
			a.Status = status
		default:
			return invalid("unknown asset status %q", *in.Status)
		}
	}
	if in.Data != nil {
		a.Data = *in.Data
	}
	return nil
}

func requireStaff(actor Actor) error {
	if !actor.Has(roles.Procurement) {
		return forbidden("procurement role required")
	}
	return nil
}

func (s *AssetService) Create(ctx context.Context, actor Actor, in AssetInput) (*entity.Asset, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if in.Name == nil {
		return nil, invalid("name is required")
	}
	asset := &entity.Asset{
		ID:          entity.NewID(),
		CreatedByID: strPtr(actor.ID),
		Quantity:    1,
		Status:      entity.AssetStatusActive,
		Data:        entity.JSONB{},
	}
	if err := in.apply(asset); err != nil {
		return nil, err
	}
	if err := s.repos.Asset.Create(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

func (s *AssetService) Update(ctx context.Context, actor Actor, id string, in AssetInput) (*entity.Asset, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	asset, err := s.repos.Asset.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "asset")
	}
	if err := in.apply(asset); err != nil {
		return nil, err
	}
	if err := s.repos.Asset.Update(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

func (s *AssetService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if _, err := s.repos.Asset.FindByID(ctx, id); err != nil {
		return lookup(err, "asset")
	}
	return s.repos.Asset.Delete(ctx, id)
}
