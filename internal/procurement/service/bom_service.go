package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/uthejd-slx/procura-backend/internal/config"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/shared/metrics"
	"github.com/uthejd-slx/procura-backend/internal/shared/roles"
)

// BOM event types
const (
	EventBomCreated               = "bom.created"
	EventBomUpdated               = "bom.updated"
	EventBomItemAdded             = "bom.item_added"
	EventBomItemUpdated           = "bom.item_updated"
	EventBomItemDeleted           = "bom.item_deleted"
	EventBomItemsImported         = "bom.items_imported"
	EventBomFlowCanceled          = "bom.flow_canceled"
	EventBomSignoffRequested      = "bom.signoff_requested"
	EventBomItemSignoffDecided    = "bom.item_signoff_decided"
	EventBomApprovalRequested     = "bom.procurement_approval_requested"
	EventBomApprovalDecided       = "bom.procurement_approval_decided"
	EventBomCollaboratorAdded     = "bom.collaborator_added"
	EventBomCollaboratorRemoved   = "bom.collaborator_removed"
	EventBomItemsMarkedOrdered    = "bom.items_marked_ordered"
	EventBomItemsReceived         = "bom.items_received"
	EventBomPurchaseOrdersCreated = "bom.purchase_orders_created"
)

// BomService BOM authoring and the signoff/approval request flow.
type BomService struct {
	repos         *repository.Repositories
	notifications *NotificationService
	maxDrafts     int
}

func NewBomService(repos *repository.Repositories, notifications *NotificationService, cfg config.WorkflowConfig) *BomService {
	return &BomService{repos: repos, notifications: notifications, maxDrafts: cfg.MaxDraftsPerUser}
}

// ==================== Shared workflow helpers ====================

// BomLink frontend path of a BOM.
func BomLink(bomID string) string {
	return "/boms/" + bomID
}

func logEvent(ctx context.Context, tx *repository.Repositories, bomID string, actor Actor, eventType, message string, data entity.JSONB) error {
	return tx.Bom.CreateEvent(ctx, &entity.BomEvent{
		ID:        entity.NewID(),
		BomID:     bomID,
		ActorID:   strPtr(actor.ID),
		EventType: eventType,
		Message:   message,
		Data:      data,
	})
}

// recomputeBom stores the derived status of a BOM and returns it.
func recomputeBom(ctx context.Context, tx *repository.Repositories, bomID string) (string, error) {
	bom, err := tx.Bom.FindForUpdate(ctx, bomID)
	if err != nil {
		return "", lookup(err, "BOM")
	}
	items, err := tx.Bom.ItemsByBom(ctx, bomID)
	if err != nil {
		return "", err
	}
	latest, err := tx.Approval.LatestRequest(ctx, bomID)
	if err != nil {
		return "", err
	}
	next := DeriveBomStatus(bom.Status, items, latest)
	if next != bom.Status {
		if err := setBomStatus(ctx, tx, bom, next); err != nil {
			return "", err
		}
	}
	return next, nil
}

func setBomStatus(ctx context.Context, tx *repository.Repositories, bom *entity.Bom, status string) error {
	if bom.Status == status {
		return nil
	}
	if err := tx.Bom.UpdateStatus(ctx, bom.ID, status); err != nil {
		return err
	}
	metrics.RecordBomTransition(bom.Status, status)
	bom.Status = status
	return nil
}

func isCollaborator(ctx context.Context, repos *repository.Repositories, bom *entity.Bom, userID string) (bool, error) {
	return repos.Bom.IsCollaborator(ctx, bom.ID, userID)
}

// canViewBom owners, collaborators, approvers on the BOM and staff.
func canViewBom(ctx context.Context, repos *repository.Repositories, actor Actor, bom *entity.Bom) (bool, error) {
	if actor.SeesAll() || bom.OwnerID == actor.ID {
		return true, nil
	}
	return repos.Bom.CanView(ctx, bom.ID, actor.ID, actor.Has(roles.Approver))
}

// canEditBom owners, collaborators and admins.
func canEditBom(ctx context.Context, repos *repository.Repositories, actor Actor, bom *entity.Bom) (bool, error) {
	if bom.OwnerID == actor.ID || actor.IsAdmin() {
		return true, nil
	}
	return isCollaborator(ctx, repos, bom, actor.ID)
}

func canManageCollaborators(actor Actor, bom *entity.Bom) bool {
	return bom.OwnerID == actor.ID || actor.HasStrict(roles.Procurement) || actor.IsAdmin()
}

func isEditableStatus(status string) bool {
	return status == entity.BomStatusDraft || status == entity.BomStatusNeedsChanges
}

// visibleBom loads a BOM the actor may see. Hidden BOMs read as missing.
func (s *BomService) visibleBom(ctx context.Context, actor Actor, id string) (*entity.Bom, error) {
	bom, err := s.repos.Bom.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "BOM")
	}
	ok, err := canViewBom(ctx, s.repos, actor, bom)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("BOM")
	}
	return bom, nil
}

// editableBom applies the authoring guards shared by update and item edits.
func (s *BomService) editableBom(ctx context.Context, actor Actor, id string) (*entity.Bom, error) {
	bom, err := s.visibleBom(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	ok, err := canEditBom(ctx, s.repos, actor, bom)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, forbidden("only the BOM owner or collaborators can edit this BOM")
	}
	if !isEditableStatus(bom.Status) && !actor.IsAdmin() {
		return nil, invalid("BOM can only be edited in DRAFT or NEEDS_CHANGES status")
	}
	return bom, nil
}

// ==================== BOM CRUD ====================

// BomItemInput line item fields. Quantity defaults to 1.
type BomItemInput struct {
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
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validateCommercial(quantity float64, unitPrice, taxPercent *float64) error {
	if !finite(quantity) || entity.RoundQuantity(quantity) <= 0 {
		return invalid("quantity must be greater than zero")
	}
	if unitPrice != nil && (!finite(*unitPrice) || *unitPrice < 0) {
		return invalid("unit_price cannot be negative")
	}
	if taxPercent != nil && (!finite(*taxPercent) || *taxPercent < 0 || *taxPercent > 100) {
		return invalid("tax_percent must be between 0 and 100")
	}
	return nil
}

func (in BomItemInput) build(bomID string) (*entity.BomItem, error) {
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
	data := in.Data
	if data == nil {
		data = entity.JSONB{}
	}
	return &entity.BomItem{
		ID:            entity.NewID(),
		BomID:         bomID,
		Name:          name,
		Description:   in.Description,
		Quantity:      qty,
		Unit:          in.Unit,
		Currency:      in.Currency,
		UnitPrice:     in.UnitPrice,
		TaxPercent:    in.TaxPercent,
		Vendor:        in.Vendor,
		Category:      in.Category,
		Link:          in.Link,
		Notes:         in.Notes,
		Data:          data,
		SignoffStatus: entity.SignoffNone,
	}, nil
}

// CreateBomInput new BOM with optional inline items.
type CreateBomInput struct {
	Title      string         `json:"title"`
	Project    string         `json:"project"`
	TemplateID *string        `json:"template_id"`
	Data       entity.JSONB   `json:"data"`
	Items      []BomItemInput `json:"items"`
}

// UpdateBomInput nil fields are left unchanged. An empty template_id clears it.
type UpdateBomInput struct {
	Title      *string       `json:"title"`
	Project    *string       `json:"project"`
	TemplateID *string       `json:"template_id"`
	Data       *entity.JSONB `json:"data"`
}

func (s *BomService) checkTemplate(ctx context.Context, actor Actor, id string) error {
	tmpl, err := s.repos.Bom.FindTemplate(ctx, id)
	if err != nil {
		return invalid("template not found")
	}
	if !tmpl.IsGlobal() && deref(tmpl.OwnerID) != actor.ID && !actor.IsAdmin() {
		return invalid("template not found")
	}
	return nil
}

func (s *BomService) List(ctx context.Context, actor Actor, f repository.BomFilter) ([]entity.Bom, int64, error) {
	f.VisibleTo = actor.visibleTo()
	f.IncludeApprovals = actor.Has(roles.Approver)
	if !actor.SeesAll() {
		f.OwnerID = ""
	}
	return s.repos.Bom.List(ctx, f)
}

func (s *BomService) Create(ctx context.Context, actor Actor, in CreateBomInput) (*entity.Bom, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if s.maxDrafts > 0 {
		drafts, err := s.repos.Bom.CountByOwnerAndStatus(ctx, actor.ID, entity.BomStatusDraft)
		if err != nil {
			return nil, err
		}
		if drafts >= int64(s.maxDrafts) {
			return nil, invalid("draft limit reached (%d). Submit or delete existing drafts first", s.maxDrafts)
		}
	}
	if in.TemplateID != nil && *in.TemplateID != "" {
		if err := s.checkTemplate(ctx, actor, *in.TemplateID); err != nil {
			return nil, err
		}
	}

	bom := &entity.Bom{
		ID:         entity.NewID(),
		OwnerID:    actor.ID,
		TemplateID: in.TemplateID,
		Title:      title,
		Project:    strings.TrimSpace(in.Project),
		Status:     entity.BomStatusDraft,
		Data:       in.Data,
	}
	if bom.TemplateID != nil && *bom.TemplateID == "" {
		bom.TemplateID = nil
	}
	if bom.Data == nil {
		bom.Data = entity.JSONB{}
	}

	items := make([]entity.BomItem, 0, len(in.Items))
	for i, raw := range in.Items {
		item, err := raw.build(bom.ID)
		if err != nil {
			return nil, invalid("items[%d]: %s", i, err.Error())
		}
		items = append(items, *item)
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Bom.Create(ctx, bom); err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.Bom.CreateItems(ctx, items); err != nil {
				return err
			}
		}
		return logEvent(ctx, tx, bom.ID, actor, EventBomCreated, "", entity.JSONB{"items": len(items)})
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Bom.FindByID(ctx, bom.ID)
}

func (s *BomService) Get(ctx context.Context, actor Actor, id string) (*entity.Bom, error) {
	return s.visibleBom(ctx, actor, id)
}

func (s *BomService) Update(ctx context.Context, actor Actor, id string, in UpdateBomInput) (*entity.Bom, error) {
	bom, err := s.editableBom(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	changed := []string{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, invalid("title cannot be empty")
		}
		bom.Title = title
		changed = append(changed, "title")
	}
	if in.Project != nil {
		bom.Project = strings.TrimSpace(*in.Project)
		changed = append(changed, "project")
	}
	if in.Data != nil {
		bom.Data = *in.Data
		if bom.Data == nil {
			bom.Data = entity.JSONB{}
		}
		changed = append(changed, "data")
	}
	if in.TemplateID != nil {
		if *in.TemplateID == "" {
			bom.TemplateID = nil
		} else {
			if err := s.checkTemplate(ctx, actor, *in.TemplateID); err != nil {
				return nil, err
			}
			bom.TemplateID = in.TemplateID
		}
		bom.Template = nil
		changed = append(changed, "template_id")
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Bom.Update(ctx, bom); err != nil {
			return err
		}
		return logEvent(ctx, tx, bom.ID, actor, EventBomUpdated, "", entity.JSONB{"fields": changed})
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Bom.FindByID(ctx, bom.ID)
}

// Delete removes a DRAFT or CANCELED BOM. Owner or admin only.
func (s *BomService) Delete(ctx context.Context, actor Actor, id string) error {
	bom, err := s.visibleBom(ctx, actor, id)
	if err != nil {
		return err
	}
	if bom.OwnerID != actor.ID && !actor.IsAdmin() {
		return forbidden("only the BOM owner can delete this BOM")
	}
	if bom.Status != entity.BomStatusDraft && bom.Status != entity.BomStatusCanceled {
		return invalid("only DRAFT or CANCELED BOMs can be deleted")
	}
	return s.repos.Bom.Delete(ctx, bom.ID)
}

// ==================== Items ====================

func (s *BomService) AddItem(ctx context.Context, actor Actor, bomID string, in BomItemInput) (*entity.BomItem, error) {
	bom, err := s.editableBom(ctx, actor, bomID)
	if err != nil {
		return nil, err
	}
	item, err := in.build(bom.ID)
	if err != nil {
		return nil, err
	}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Bom.CreateItem(ctx, item); err != nil {
			return err
		}
		if err := logEvent(ctx, tx, bom.ID, actor, EventBomItemAdded, "", entity.JSONB{"item_id": item.ID}); err != nil {
			return err
		}
		_, err := recomputeBom(ctx, tx, bom.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *BomService) ListItems(ctx context.Context, actor Actor, f repository.BomItemFilter) ([]entity.BomItem, int64, error) {
	f.VisibleTo = actor.visibleTo()
	return s.repos.Bom.ListItems(ctx, f)
}

// BomItemPatch nil fields are left unchanged.
type BomItemPatch struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	Quantity    *float64      `json:"quantity"`
	Unit        *string       `json:"unit"`
	Currency    *string       `json:"currency"`
	UnitPrice   *float64      `json:"unit_price"`
	TaxPercent  *float64      `json:"tax_percent"`
	Vendor      *string       `json:"vendor"`
	Category    *string       `json:"category"`
	Link        *string       `json:"link"`
	Notes       *string       `json:"notes"`
	Data        *entity.JSONB `json:"data"`
}

func (p BomItemPatch) apply(item *entity.BomItem) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return invalid("item name cannot be empty")
		}
		item.Name = name
	}
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setString(&item.Description, p.Description)
	setString(&item.Unit, p.Unit)
	setString(&item.Currency, p.Currency)
	setString(&item.Vendor, p.Vendor)
	setString(&item.Category, p.Category)
	setString(&item.Link, p.Link)
	setString(&item.Notes, p.Notes)
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.UnitPrice != nil {
		item.UnitPrice = p.UnitPrice
	}
	if p.TaxPercent != nil {
		item.TaxPercent = p.TaxPercent
	}
	if p.Data != nil {
		item.Data = *p.Data
	}
	return validateCommercial(item.Quantity, item.UnitPrice, item.TaxPercent)
}

func (s *BomService) UpdateItem(ctx context.Context, actor Actor, itemID string, p BomItemPatch) (*entity.BomItem, error) {
	item, bom, err := s.itemForEdit(ctx, actor, itemID)
	if err != nil {
		return nil, err
	}
	if err := p.apply(item); err != nil {
		return nil, err
	}
	item.SignoffAssignee = nil
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Bom.UpdateItem(ctx, item); err != nil {
			return err
		}
		if err := logEvent(ctx, tx, bom.ID, actor, EventBomItemUpdated, "", entity.JSONB{"item_id": item.ID}); err != nil {
			return err
		}
		_, err := recomputeBom(ctx, tx, bom.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *BomService) DeleteItem(ctx context.Context, actor Actor, itemID string) error {
	item, bom, err := s.itemForEdit(ctx, actor, itemID)
	if err != nil {
		return err
	}
	return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Bom.DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		if err := logEvent(ctx, tx, bom.ID, actor, EventBomItemDeleted, item.Name, entity.JSONB{"item_id": item.ID}); err != nil {
			return err
		}
		_, err := recomputeBom(ctx, tx, bom.ID)
		return err
	})
}

// itemForEdit item visibility follows the item list; edits follow the BOM.
func (s *BomService) itemForEdit(ctx context.Context, actor Actor, itemID string) (*entity.BomItem, *entity.Bom, error) {
	item, err := s.repos.Bom.FindItem(ctx, itemID)
	if err != nil {
		return nil, nil, lookup(err, "BOM item")
	}
	bom, err := s.repos.Bom.FindByID(ctx, item.BomID)
	if err != nil {
		return nil, nil, lookup(err, "BOM item")
	}
	visible := actor.SeesAll() || deref(item.SignoffAssigneeID) == actor.ID
	if !visible {
		if visible, err = canViewBom(ctx, s.repos, actor, bom); err != nil {
			return nil, nil, err
		}
	}
	if !visible {
		return nil, nil, notFound("BOM item")
	}
	ok, err := canEditBom(ctx, s.repos, actor, bom)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, forbidden("only the BOM owner or collaborators can edit this BOM")
	}
	if !isEditableStatus(bom.Status) && !actor.IsAdmin() {
		return nil, nil, invalid("BOM can only be edited in DRAFT or NEEDS_CHANGES status")
	}
	return item, bom, nil
}

// ==================== Flow ====================

// Cancel resets the BOM to DRAFT, canceling open signoffs and a pending
// approval request.
func (s *BomService) Cancel(ctx context.Context, actor Actor, bomID, comment string) (*entity.Bom, error) {
	bom, err := s.visibleBom(ctx, actor, bomID)
	if err != nil {
		return nil, err
	}
	if bom.OwnerID != actor.ID && !actor.HasStrict(roles.Procurement) {
		return nil, forbidden("not allowed")
	}
	if bom.Status == entity.BomStatusCompleted || bom.Status == entity.BomStatusCanceled {
		return nil, invalid("a %s BOM has no flow to cancel", bom.Status)
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		bom.CancelComment = comment
		if err := tx.Bom.Update(ctx, bom); err != nil {
			return err
		}
		if err := setBomStatus(ctx, tx, bom, entity.BomStatusDraft); err != nil {
			return err
		}
		if _, err := tx.Bom.CancelRequestedSignoffs(ctx, bom.ID); err != nil {
			return err
		}
		latest, err := tx.Approval.LatestRequest(ctx, bom.ID)
		if err != nil {
			return err
		}
		if latest != nil && latest.Status == entity.ApprovalRequestPending {
			now := time.Now().UTC()
			if err := tx.Approval.UpdateRequestStatus(ctx, latest.ID, entity.ApprovalRequestCanceled, &now); err != nil {
				return err
			}
		}
		return logEvent(ctx, tx, bom.ID, actor, EventBomFlowCanceled, comment, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Bom.FindByID(ctx, bom.ID)
}

// SignoffRequestInput an empty ItemIDs selects every item.
type SignoffRequestInput struct {
	AssigneeID string   `json:"assignee_id" binding:"required"`
	ItemIDs    []string `json:"item_ids"`
	Comment    string   `json:"comment"`
}

func (s *BomService) flowBom(ctx context.Context, actor Actor, bomID, what string) (*entity.Bom, error) {
	bom, err := s.visibleBom(ctx, actor, bomID)
	if err != nil {
		return nil, err
	}
	ok, err := canEditBom(ctx, s.repos, actor, bom)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, forbidden("only the BOM owner or collaborators can request %s", what)
	}
	return bom, nil
}

// RequestSignoff assigns items to a reviewer and returns the updated item ids.
func (s *BomService) RequestSignoff(ctx context.Context, actor Actor, bomID string, in SignoffRequestInput) ([]string, error) {
	bom, err := s.flowBom(ctx, actor, bomID, "signoff")
	if err != nil {
		return nil, err
	}
	assignee, err := s.repos.User.FindByID(ctx, in.AssigneeID)
	if err != nil {
		return nil, invalid("assignee not found")
	}

	ids := in.ItemIDs
	if len(ids) == 0 {
		for _, it := range bom.Items {
			ids = append(ids, it.ID)
		}
	}

	var notices []Notice
	updated := []string{}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		items, err := tx.Bom.ItemsByIDs(ctx, bom.ID, ids)
		if err != nil {
			return err
		}
		for _, it := range items {
			updated = append(updated, it.ID)
			notices = append(notices, Notice{
				UserID: assignee.ID,
				Level:  entity.NotificationInfo,
				Title:  "Signoff requested",
				Body: strings.TrimSpace(fmt.Sprintf("%s requested signoff for '%s' in BOM %q. %s",
					actor.Email, it.Name, bom.Title, in.Comment)),
				Link: BomLink(bom.ID),
			})
		}
		if len(updated) > 0 {
			if _, err := tx.Bom.SetSignoff(ctx, bom.ID, updated, assignee.ID); err != nil {
				return err
			}
		}
		if err := logEvent(ctx, tx, bom.ID, actor, EventBomSignoffRequested, in.Comment,
			entity.JSONB{"assignee_id": assignee.ID, "item_ids": updated}); err != nil {
			return err
		}
		_, err = recomputeBom(ctx, tx, bom.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifications.Deliver(ctx, notices)
	return updated, nil
}

// SignoffDecision reviewer verdict on one item.
type SignoffDecision struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

// DecideSignoff records the assignee's verdict on a REQUESTED item.
func (s *BomService) DecideSignoff(ctx context.Context, actor Actor, itemID string, in SignoffDecision) (*entity.BomItem, error) {
	status := strings.ToUpper(strings.TrimSpace(in.Status))
	if status != entity.SignoffApproved && status != entity.SignoffNeedsChanges {
		return nil, invalid("status must be APPROVED or NEEDS_CHANGES")
	}
	item, err := s.repos.Bom.FindItem(ctx, itemID)
	if err != nil {
		return nil, lookup(err, "BOM item")
	}
	bom, err := s.repos.Bom.FindByID(ctx, item.BomID)
	if err != nil {
		return nil, lookup(err, "BOM item")
	}
	if deref(item.SignoffAssigneeID) != actor.ID && !actor.IsAdmin() {
		if ok, err := canViewBom(ctx, s.repos, actor, bom); err != nil {
			return nil, err
		} else if !ok {
			return nil, notFound("BOM item")
		}
		return nil, forbidden("only the signoff assignee can decide")
	}
	if item.SignoffStatus != entity.SignoffRequested {
		return nil, invalid("item signoff is not requested")
	}

	var notices []Notice
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		item.SignoffStatus = status
		item.SignoffComment = in.Comment
		item.SignoffAssignee = nil
		if err := tx.Bom.UpdateItem(ctx, item); err != nil {
			return err
		}
		if err := logEvent(ctx, tx, bom.ID, actor, EventBomItemSignoffDecided, in.Comment,
			entity.JSONB{"item_id": item.ID, "status": status}); err != nil {
			return err
		}
		if status == entity.SignoffNeedsChanges {
			if err := setBomStatus(ctx, tx, bom, entity.BomStatusNeedsChanges); err != nil {
				return err
			}
			notices = append(notices, needsChangesNotice(bom, in.Comment))
		}
		_, err := recomputeBom(ctx, tx, bom.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifications.Deliver(ctx, notices)
	return item, nil
}

func needsChangesNotice(bom *entity.Bom, comment string) Notice {
	return Notice{
		UserID: bom.OwnerID,
		Level:  entity.NotificationWarning,
		Title:  "BOM needs changes",
		Body:   strings.TrimSpace(fmt.Sprintf("BOM %q needs changes. %s", bom.Title, comment)),
		Link:   BomLink(bom.ID),
	}
}

// ApprovalRequestInput approvers for a new procurement approval round.
type ApprovalRequestInput struct {
	ApproverIDs []string `json:"approver_ids"`
	Comment     string   `json:"comment"`
}

// RequestProcurementApproval opens an approval round with one vote per approver.
func (s *BomService) RequestProcurementApproval(ctx context.Context, actor Actor, bomID string, in ApprovalRequestInput) (*entity.ProcurementApprovalRequest, error) {
	bom, err := s.flowBom(ctx, actor, bomID, "procurement approval")
	if err != nil {
		return nil, err
	}
	for _, it := range bom.Items {
		if it.SignoffStatus == entity.SignoffRequested {
			return nil, invalid("signoffs are still pending")
		}
	}

	ids := uniqueStrings(in.ApproverIDs)
	if len(ids) == 0 {
		return nil, invalid("approver_ids is required")
	}
	approvers, err := s.repos.User.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(approvers) != len(ids) {
		return nil, invalid("one or more approvers not found")
	}
	for i := range approvers {
		if !roles.Has(roles.UserRoles(approvers[i].IsSuperuser, approvers[i].ProfileRoles()), roles.Approver) {
			return nil, invalid("all approvers must have the approver role")
		}
	}

	req := &entity.ProcurementApprovalRequest{
		ID:            entity.NewID(),
		BomID:         bom.ID,
		RequestedByID: strPtr(actor.ID),
		Status:        entity.ApprovalRequestPending,
		Comment:       in.Comment,
	}
	for i := range approvers {
		req.Approvals = append(req.Approvals, entity.ProcurementApproval{
			ID:         entity.NewID(),
			RequestID:  req.ID,
			ApproverID: approvers[i].ID,
			Status:     entity.ApprovalPending,
		})
	}

	var notices []Notice
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Approval.CreateRequest(ctx, req); err != nil {
			return err
		}
		for i := range approvers {
			notices = append(notices, Notice{
				UserID: approvers[i].ID,
				Level:  entity.NotificationInfo,
				Title:  "Procurement approval requested",
				Body: strings.TrimSpace(fmt.Sprintf("%s requested procurement approval for BOM %q. %s",
					actor.Email, bom.Title, in.Comment)),
				Link: BomLink(bom.ID),
			})
		}
		if err := logEvent(ctx, tx, bom.ID, actor, EventBomApprovalRequested, in.Comment,
			entity.JSONB{"approver_ids": ids, "request_id": req.ID}); err != nil {
			return err
		}
		_, err := recomputeBom(ctx, tx, bom.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifications.Deliver(ctx, notices)
	return req, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ==================== Collaborators ====================

func (s *BomService) ListCollaborators(ctx context.Context, actor Actor, bomID string) ([]entity.BomCollaborator, error) {
	bom, err := s.visibleBom(ctx, actor, bomID)
	if err != nil {
		return nil, err
	}
	return s.repos.Bom.ListCollaborators(ctx, bom.ID)
}

// AddCollaborator is idempotent; the event is logged only for new rows.
func (s *BomService) AddCollaborator(ctx context.Context, actor Actor, bomID, userID string) (*entity.BomCollaborator, error) {
	bom, err := s.visibleBom(ctx, actor, bomID)
	if err != nil {
		return nil, err
	}
	if !canManageCollaborators(actor, bom) {
		return nil, forbidden("not allowed")
	}
	if userID == "" {
		return nil, invalid("user_id is required")
	}
	if userID == bom.OwnerID {
		return nil, invalid("owner is already part of the BOM")
	}
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, lookup(err, "user")
	}

	collaborator := &entity.BomCollaborator{
		ID:        entity.NewID(),
		BomID:     bom.ID,
		UserID:    user.ID,
		AddedByID: strPtr(actor.ID),
	}
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		created, err := tx.Bom.AddCollaborator(ctx, collaborator)
		if err != nil || !created {
			return err
		}
		return logEvent(ctx, tx, bom.ID, actor, EventBomCollaboratorAdded, "", entity.JSONB{"user_id": user.ID})
	})
	if err != nil {
		return nil, err
	}
	list, err := s.repos.Bom.ListCollaborators(ctx, bom.ID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].UserID == user.ID {
			return &list[i], nil
		}
	}
	return collaborator, nil
}

// RemoveCollaborator managers may remove anyone; collaborators may leave.
func (s *BomService) RemoveCollaborator(ctx context.Context, actor Actor, bomID, userID string) error {
	bom, err := s.visibleBom(ctx, actor, bomID)
	if err != nil {
		return err
	}
	if !canManageCollaborators(actor, bom) && actor.ID != userID {
		return forbidden("not allowed")
	}
	return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		n, err := tx.Bom.RemoveCollaborator(ctx, bom.ID, userID)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("collaborator")
		}
		return logEvent(ctx, tx, bom.ID, actor, EventBomCollaboratorRemoved, "", entity.JSONB{"user_id": userID})
	})
}

// ==================== Events ====================

func (s *BomService) ListEvents(ctx context.Context, actor Actor, f repository.BomEventFilter) ([]entity.BomEvent, int64, error) {
	f.VisibleTo = actor.visibleTo()
	return s.repos.Bom.ListEvents(ctx, f)
}
