package service

import (
	"context"
	"strings"
	"time"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/shared/roles"
)

const minReceiveQuantity = 0.001

// ReceivingService procurement ordering and receiving on BOM items.
type ReceivingService struct {
	repos  *repository.Repositories
	assets *AssetService
}

func NewReceivingService(repos *repository.Repositories, assets *AssetService) *ReceivingService {
	return &ReceivingService{repos: repos, assets: assets}
}

// ParseDate accepts YYYY-MM-DD or RFC3339.
func ParseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, invalid("invalid date %q, expected YYYY-MM-DD", raw)
	}
	t = t.UTC()
	return &t, nil
}

func requireProcurement(actor Actor) error {
	if !actor.HasStrict(roles.Procurement) {
		return forbidden("procurement role required")
	}
	return nil
}

func orderable(status string) bool {
	switch status {
	case entity.BomStatusApproved, entity.BomStatusOrdered, entity.BomStatusReceiving:
		return true
	}
	return false
}

// MarkOrderedInput item_ids defaults to every item of the BOM.
type MarkOrderedInput struct {
	ItemIDs []string `json:"item_ids"`
	ETADate string   `json:"eta_date"`
	Comment string   `json:"comment"`
}

// MarkOrdered stamps ordered_at on items not ordered yet and returns how many
// changed.
func (s *ReceivingService) MarkOrdered(ctx context.Context, actor Actor, bomID string, in MarkOrderedInput) (int, error) {
	if err := requireProcurement(actor); err != nil {
		return 0, err
	}
	eta, err := ParseDate(in.ETADate)
	if err != nil {
		return 0, err
	}

	updated := 0
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		bom, err := tx.Bom.FindForUpdate(ctx, bomID)
		if err != nil {
			return lookup(err, "BOM")
		}
		if !orderable(bom.Status) {
			return badState("BOM must be APPROVED, ORDERED or RECEIVING to mark items ordered")
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
		if err := markOrdered(ctx, tx, items, eta, &updated); err != nil {
			return err
		}

		if err := logEvent(ctx, tx, bom.ID, actor, EventBomItemsMarkedOrdered, in.Comment,
			entity.JSONB{"count": updated}); err != nil {
			return err
		}
		_, err = recomputeBom(ctx, tx, bom.ID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func markOrdered(ctx context.Context, tx *repository.Repositories, items []entity.BomItem, eta *time.Time, updated *int) error {
	now := time.Now().UTC()
	for i := range items {
		item := &items[i]
		if item.OrderedAt != nil {
			continue
		}
		item.OrderedAt = &now
		if eta != nil {
			item.ETADate = eta
		}
		if err := tx.Bom.UpdateItem(ctx, item); err != nil {
			return err
		}
		*updated++
	}
	return nil
}

// ReceiveLine quantity received for one item.
type ReceiveLine struct {
	ItemID           string  `json:"item_id"`
	QuantityReceived float64 `json:"quantity_received"`
}

// ReceiveInput receipt of one or more lines.
type ReceiveInput struct {
	Lines   []ReceiveLine `json:"lines"`
	Comment string        `json:"comment"`
}

// ReceiveResult items touched by a receipt and the assets it produced.
type ReceiveResult struct {
	ItemIDs       []string `json:"item_ids"`
	AssetsCreated int      `json:"assets_created"`
}

// receiptQuantities validates lines and sums duplicates, keeping line order.
func receiptQuantities(lines []ReceiveLine) ([]string, map[string]float64, error) {
	if len(lines) == 0 {
		return nil, nil, invalid("lines is required")
	}
	order := make([]string, 0, len(lines))
	qty := make(map[string]float64, len(lines))
	for _, l := range lines {
		if l.ItemID == "" {
			return nil, nil, invalid("item_id is required")
		}
		if !finite(l.QuantityReceived) || l.QuantityReceived < minReceiveQuantity {
			return nil, nil, invalid("quantity_received must be at least %g", minReceiveQuantity)
		}
		if _, ok := qty[l.ItemID]; !ok {
			order = append(order, l.ItemID)
		}
		qty[l.ItemID] = entity.AddQuantity(qty[l.ItemID], l.QuantityReceived)
	}
	return order, qty, nil
}

// Receive adds received quantities to BOM items, then converts the fully
// received ones into assets. Unknown items are skipped.
func (s *ReceivingService) Receive(ctx context.Context, actor Actor, bomID string, in ReceiveInput) (*ReceiveResult, error) {
	if err := requireProcurement(actor); err != nil {
		return nil, err
	}
	ids, qty, err := receiptQuantities(in.Lines)
	if err != nil {
		return nil, err
	}

	result := &ReceiveResult{ItemIDs: []string{}}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		bom, err := tx.Bom.FindForUpdate(ctx, bomID)
		if err != nil {
			return lookup(err, "BOM")
		}
		items, err := tx.Bom.ItemsByIDs(ctx, bom.ID, ids)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for i := range items {
			item := &items[i]
			item.ReceivedQuantity = entity.AddQuantity(item.ReceivedQuantity, qty[item.ID])
			item.ReceivedAt = &now
			if err := tx.Bom.UpdateItem(ctx, item); err != nil {
				return err
			}
			result.ItemIDs = append(result.ItemIDs, item.ID)
		}

		if err := logEvent(ctx, tx, bom.ID, actor, EventBomItemsReceived, in.Comment,
			entity.JSONB{"item_ids": result.ItemIDs}); err != nil {
			return err
		}
		if _, err := recomputeBom(ctx, tx, bom.ID); err != nil {
			return err
		}

		result.AssetsCreated, err = s.assets.ConvertBomItems(ctx, tx, actor, items)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
