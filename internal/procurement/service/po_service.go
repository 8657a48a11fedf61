package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/uthejd-slx/procura-backend/internal/config"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
)

const unassignedVendor = "Unassigned vendor"

// PurchaseOrderService vendor orders, their lines and receipts.
type PurchaseOrderService struct {
	repos   *repository.Repositories
	assets  *AssetService
	prefix  string
	padding int
}

func NewPurchaseOrderService(repos *repository.Repositories, assets *AssetService, cfg config.WorkflowConfig) *PurchaseOrderService {
	prefix := cfg.PONumberPrefix
	if prefix == "" {
		prefix = "PO-"
	}
	padding := cfg.PONumberPadding
	if padding <= 0 {
		padding = 5
	}
	return &PurchaseOrderService{repos: repos, assets: assets, prefix: prefix, padding: padding}
}

// nextNumber PO-YYYYMMDD-00001 style number for today.
func (s *PurchaseOrderService) nextNumber(ctx context.Context, tx *repository.Repositories) (string, error) {
	return tx.PO.NextNumber(ctx, s.prefix+time.Now().UTC().Format("20060102")+"-", s.padding)
}

// recomputePO stores the status derived from the PO's lines.
func recomputePO(ctx context.Context, tx *repository.Repositories, po *entity.PurchaseOrder) error {
	items, err := tx.PO.ItemsByPO(ctx, po.ID)
	if err != nil {
		return err
	}
	next, ok := DerivePOStatus(po.Status, items)
	if !ok || next == po.Status {
		return nil
	}
	if err := tx.PO.UpdateStatus(ctx, po.ID, next); err != nil {
		return err
	}
	po.Status = next
	return nil
}

func (s *PurchaseOrderService) List(ctx context.Context, actor Actor, f repository.POFilter) ([]entity.PurchaseOrder, int64, error) {
	f.VisibleTo = actor.visibleTo()
	return s.repos.PO.List(ctx, f)
}

func canViewPO(actor Actor, po *entity.PurchaseOrder) bool {
	if actor.SeesAll() || deref(po.CreatedByID) == actor.ID {
		return true
	}
	return po.Bom != nil && po.Bom.OwnerID == actor.ID
}

func (s *PurchaseOrderService) Get(ctx context.Context, actor Actor, id string) (*entity.PurchaseOrder, error) {
	po, err := s.repos.PO.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "purchase order")
	}
	if !canViewPO(actor, po) {
		return nil, notFound("purchase order")
	}
	return po, nil
}

// POInput header fields. Nil fields are left unchanged on update.
type POInput struct {
	BomID      *string       `json:"bom_id"`
	PONumber   *string       `json:"po_number"`
	VendorName *string       `json:"vendor_name"`
	Currency   *string       `json:"currency"`
	Notes      *string       `json:"notes"`
	Data       *entity.JSONB `json:"data"`
}

func (in POInput) apply(po *entity.PurchaseOrder) {
	if in.VendorName != nil {
		po.VendorName = strings.TrimSpace(*in.VendorName)
	}
	if in.Currency != nil {
		po.Currency = *in.Currency
	}
	if in.Notes != nil {
		po.Notes = *in.Notes
	}
	if in.Data != nil {
		po.Data = *in.Data
	}
}

func (s *PurchaseOrderService) Create(ctx context.Context, actor Actor, in POInput) (*entity.PurchaseOrder, error) {
	if err := requireProcurement(actor); err != nil {
		return nil, err
	}
	po := &entity.PurchaseOrder{
		ID:          entity.NewID(),
		CreatedByID: strPtr(actor.ID),
		Status:      entity.POStatusDraft,
		Data:        entity.JSONB{},
	}
	in.apply(po)
	if in.BomID != nil && *in.BomID != "" {
		if _, err := s.repos.Bom.FindByID(ctx, *in.BomID); err != nil {
			return nil, lookup(err, "BOM")
		}
		po.BomID = in.BomID
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if in.PONumber != nil && strings.TrimSpace(*in.PONumber) != "" {
			po.PONumber = strings.TrimSpace(*in.PONumber)
		} else {
			number, err := s.nextNumber(ctx, tx)
			if err != nil {
				return err
			}
			po.PONumber = number
		}
		return tx.PO.Create(ctx, po)
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

func (s *PurchaseOrderService) Update(ctx context.Context, actor Actor, id string, in POInput) (*entity.PurchaseOrder, error) {
	if err := requireProcurement(actor); err != nil {
		return nil, err
	}
	po, err := s.repos.PO.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "purchase order")
	}
	in.apply(po)
	if in.PONumber != nil {
		number := strings.TrimSpace(*in.PONumber)
		if number == "" {
			return nil, invalid("po_number cannot be empty")
		}
		po.PONumber = number
	}
	if err := s.repos.PO.Update(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

// Delete refuses orders that already received goods, since assets point at
// their lines.
func (s *PurchaseOrderService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireProcurement(actor); err != nil {
		return err
	}
	po, err := s.repos.PO.FindByID(ctx, id)
	if err != nil {
		return lookup(err, "purchase order")
	}
	for _, item := range po.Items {
		if item.ReceivedQuantity > 0 {
			return badState("purchase order has received items and cannot be deleted")
		}
	}
	return s.repos.PO.Delete(ctx, po.ID)
}

// POItemInput line fields. Quantity defaults to 1.
type POItemInput struct {
	BomItemID   *string      `json:"bom_item_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Quantity    *float64     `json:"quantity"`
	Unit        string       `json:"unit"`
	Currency    string       `json:"currency"`
	UnitPrice   *float64     `json:"unit_price"`
	TaxPercent  *float64     `json:"tax_percent"`
	Vendor      string       `json:"vendor"`
	Category    string       `json:"category"`
	Link        string       `json:"link"`
	Notes       string       `json:"notes"`
	Data        entity.JSONB `json:"data"`
	ETADate     string       `json:"eta_date"`
}

func (s *PurchaseOrderService) AddItem(ctx context.Context, actor Actor, poID string, in POItemInput) (*entity.PurchaseOrderItem, error) {
	if err := requireProcurement(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("item name is required")
	}
	qty := 1.0
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	if err := validateCommercial(qty, in.UnitPrice, in.TaxPercent); err != nil {
		return nil, err
	}
	eta, err := ParseDate(in.ETADate)
	if err != nil {
		return nil, err
	}
	data := in.Data
	if data == nil {
		data = entity.JSONB{}
	}

	now := time.Now().UTC()
	item := &entity.PurchaseOrderItem{
		ID:          entity.NewID(),
		Name:        name,
		Description: in.Description,
		Quantity:    qty,
		Unit:        in.Unit,
		Currency:    in.Currency,
		UnitPrice:   in.UnitPrice,
		TaxPercent:  in.TaxPercent,
		Vendor:      in.Vendor,
		Category:    in.Category,
		Link:        in.Link,
		Notes:       in.Notes,
		Data:        data,
		OrderedAt:   &now,
		ETADate:     eta,
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		po, err := tx.PO.FindByID(ctx, poID)
		if err != nil {
			return lookup(err, "purchase order")
		}
		if po.Status == entity.POStatusCanceled {
			return badState("PO is canceled")
		}
		if in.BomItemID != nil && *in.BomItemID != "" {
			bomItem, err := tx.Bom.FindItem(ctx, *in.BomItemID)
			if err != nil {
				return lookup(err, "BOM item")
			}
			if po.BomID != nil && bomItem.BomID != *po.BomID {
				return invalid("BOM item belongs to a different BOM")
			}
			item.BomItemID = in.BomItemID
		}
		item.PurchaseOrderID = po.ID
		if err := tx.PO.CreateItem(ctx, item); err != nil {
			return err
		}
		return recomputePO(ctx, tx, po)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *PurchaseOrderService) MarkSent(ctx context.Context, actor Actor, id string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, actor, id, entity.POStatusSent, func(po *entity.PurchaseOrder) error {
		if po.Status == entity.POStatusCanceled {
			return badState("PO is canceled")
		}
		return nil
	})
}

func (s *PurchaseOrderService) Cancel(ctx context.Context, actor Actor, id string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, actor, id, entity.POStatusCanceled, func(po *entity.PurchaseOrder) error {
		if po.Status == entity.POStatusReceived {
			return badState("a received PO cannot be canceled")
		}
		return nil
	})
}

func (s *PurchaseOrderService) transition(ctx context.Context, actor Actor, id, status string, guard func(*entity.PurchaseOrder) error) (*entity.PurchaseOrder, error) {
	if err := requireProcurement(actor); err != nil {
		return nil, err
	}
	po, err := s.repos.PO.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "purchase order")
	}
	if err := guard(po); err != nil {
		return nil, err
	}
	if err := s.repos.PO.UpdateStatus(ctx, po.ID, status); err != nil {
		return nil, err
	}
	po.Status = status
	return po, nil
}

// Receive records receipt on PO lines and converts fully received lines
// into assets. Unknown lines are skipped.
func (s *PurchaseOrderService) Receive(ctx context.Context, actor Actor, poID string, in ReceiveInput) (*ReceiveResult, error) {
	if err := requireProcurement(actor); err != nil {
		return nil, err
	}
	ids, qty, err := receiptQuantities(in.Lines)
	if err != nil {
		return nil, err
	}

	result := &ReceiveResult{ItemIDs: []string{}}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		po, err := tx.PO.FindByID(ctx, poID)
		if err != nil {
			return lookup(err, "purchase order")
		}
		if po.Status == entity.POStatusCanceled {
			return badState("PO is canceled")
		}
		items, err := tx.PO.ItemsByIDs(ctx, po.ID, ids)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for i := range items {
			item := &items[i]
			item.ReceivedQuantity = entity.AddQuantity(item.ReceivedQuantity, qty[item.ID])
			item.ReceivedAt = &now
			if err := tx.PO.UpdateItem(ctx, item); err != nil {
				return err
			}
			result.ItemIDs = append(result.ItemIDs, item.ID)
		}
		if err := recomputePO(ctx, tx, po); err != nil {
			return err
		}

		result.AssetsCreated, err = s.assets.ConvertPOItems(ctx, tx, actor, items)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ==================== From BOM ====================

// FromBomInput item_ids defaults to every BOM item without a PO line.
type FromBomInput struct {
	ItemIDs []string `json:"item_ids"`
	ETADate string   `json:"eta_date"`
	Notes   string   `json:"notes"`
}

// CreateFromBom opens one DRAFT PO per vendor for the selected BOM items and
// marks those items ordered.
func (s *PurchaseOrderService) CreateFromBom(ctx context.Context, actor Actor, bomID string, in FromBomInput) ([]entity.PurchaseOrder, error) {
	if err := requireProcurement(actor); err != nil {
		return nil, err
	}
	eta, err := ParseDate(in.ETADate)
	if err != nil {
		return nil, err
	}

	var created []entity.PurchaseOrder
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		bom, err := tx.Bom.FindForUpdate(ctx, bomID)
		if err != nil {
			return lookup(err, "BOM")
		}
		if !orderable(bom.Status) {
			return badState("BOM must be APPROVED, ORDERED or RECEIVING to create purchase orders")
		}

		var items []entity.BomItem
		if ids := uniqueStrings(in.ItemIDs); len(ids) > 0 {
			items, err = tx.Bom.ItemsByIDs(ctx, bom.ID, ids)
		} else {
			items, err = tx.Bom.ItemsByBom(ctx, bom.ID)
		}
		if err != nil {
			return err
		}
		ids := make([]string, len(items))
		for i := range items {
			ids[i] = items[i].ID
		}
		onOrder, err := tx.PO.BomItemIDsOnOrder(ctx, ids)
		if err != nil {
			return err
		}

		groups := map[string][]entity.BomItem{}
		var vendors []string
		for _, item := range items {
			if onOrder[item.ID] {
				continue
			}
			vendor := strings.TrimSpace(item.Vendor)
			if vendor == "" {
				vendor = unassignedVendor
			}
			if _, ok := groups[vendor]; !ok {
				vendors = append(vendors, vendor)
			}
			groups[vendor] = append(groups[vendor], item)
		}
		if len(vendors) == 0 {
			return invalid("no items left to order")
		}
		sort.Strings(vendors)

		now := time.Now().UTC()
		var ordered []entity.BomItem
		poIDs := make([]string, 0, len(vendors))
		for _, vendor := range vendors {
			lines := groups[vendor]
			number, err := s.nextNumber(ctx, tx)
			if err != nil {
				return err
			}
			po := entity.PurchaseOrder{
				ID:          entity.NewID(),
				BomID:       strPtr(bom.ID),
				CreatedByID: strPtr(actor.ID),
				Status:      entity.POStatusDraft,
				PONumber:    number,
				VendorName:  vendor,
				Currency:    lines[0].Currency,
				Notes:       in.Notes,
				Data:        entity.JSONB{"bom_id": bom.ID},
			}
			for _, it := range lines {
				itemETA := it.ETADate
				if eta != nil {
					itemETA = eta
				}
				po.Items = append(po.Items, entity.PurchaseOrderItem{
					ID:              entity.NewID(),
					PurchaseOrderID: po.ID,
					BomItemID:       strPtr(it.ID),
					Name:            it.Name,
					Description:     it.Description,
					Quantity:        it.Quantity,
					Unit:            it.Unit,
					Currency:        it.Currency,
					UnitPrice:       it.UnitPrice,
					TaxPercent:      it.TaxPercent,
					Vendor:          it.Vendor,
					Category:        it.Category,
					Link:            it.Link,
					Notes:           it.Notes,
					Data:            it.Data,
					OrderedAt:       &now,
					ETADate:         itemETA,
				})
			}
			if err := tx.PO.Create(ctx, &po); err != nil {
				return err
			}
			created = append(created, po)
			poIDs = append(poIDs, po.ID)
			ordered = append(ordered, lines...)
		}

		marked := 0
		if err := markOrdered(ctx, tx, ordered, eta, &marked); err != nil {
			return err
		}
		itemIDs := make([]string, len(ordered))
		for i := range ordered {
			itemIDs[i] = ordered[i].ID
		}
		if err := logEvent(ctx, tx, bom.ID, actor, EventBomPurchaseOrdersCreated, "", entity.JSONB{
			"purchase_order_ids": poIDs,
			"item_ids":           itemIDs,
		}); err != nil {
			return err
		}
		_, err = recomputeBom(ctx, tx, bom.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
