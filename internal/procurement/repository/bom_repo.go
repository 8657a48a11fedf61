package repository

import (
	"context"
	"time"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BomRepository BOMs, their items, collaborators, events and templates.
type BomRepository struct {
	db *gorm.DB
}

func NewBomRepository(db *gorm.DB) *BomRepository {
	return &BomRepository{db: db}
}

// BomFilter list filter. An empty VisibleTo means no visibility restriction.
type BomFilter struct {
	VisibleTo        string
	IncludeApprovals bool
	Statuses         []string
	Search           string
	Project          string
	OwnerID          string
	TemplateID       string
	Created          TimeRange
	Updated          TimeRange
	Page
}

// visibleBoms restricts to BOMs owned by, shared with, or (optionally)
// awaiting approval from userID.
func (r *BomRepository) visibleBoms(q *gorm.DB, userID string, includeApprovals bool) *gorm.DB {
	collab := r.db.Model(&entity.BomCollaborator{}).Select("bom_id").Where("user_id = ?", userID)
	if !includeApprovals {
		return q.Where("(boms.owner_id = ? OR boms.id IN (?))", userID, collab)
	}
	approvals := r.db.Table("procurement_approval_requests AS par").
		Select("par.bom_id").
		Joins("JOIN procurement_approvals pa ON pa.request_id = par.id").
		Where("pa.approver_id = ?", userID)
	return q.Where("(boms.owner_id = ? OR boms.id IN (?) OR boms.id IN (?))", userID, collab, approvals)
}

func (r *BomRepository) Create(ctx context.Context, bom *entity.Bom) error {
	return r.db.WithContext(ctx).Create(bom).Error
}

// FindByID loads the BOM with owner, items and collaborators.
func (r *BomRepository) FindByID(ctx context.Context, id string) (*entity.Bom, error) {
	var bom entity.Bom
	err := r.db.WithContext(ctx).
		Preload("Owner.Profile").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Items.SignoffAssignee").
		Preload("Collaborators.User.Profile").
		Where("id = ?", id).
		First(&bom).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &bom, nil
}

// FindForUpdate loads only the BOM row, locking it where the database supports it.
func (r *BomRepository) FindForUpdate(ctx context.Context, id string) (*entity.Bom, error) {
	var bom entity.Bom
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&bom).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &bom, nil
}

func (r *BomRepository) Update(ctx context.Context, bom *entity.Bom) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(bom).Error
}

func (r *BomRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).Model(&entity.Bom{}).Where("id = ?", id).Update("status", status).Error
}

// Delete removes the BOM and everything hanging off it.
func (r *BomRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requestIDs := tx.Model(&entity.ProcurementApprovalRequest{}).Select("id").Where("bom_id = ?", id)
		if err := tx.Where("request_id IN (?)", requestIDs).Delete(&entity.ProcurementApproval{}).Error; err != nil {
			return err
		}
		for _, model := range []interface{}{
			&entity.ProcurementApprovalRequest{},
			&entity.BomCollaborator{},
			&entity.BomEvent{},
			&entity.BomItem{},
		} {
			if err := tx.Where("bom_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).Delete(&entity.Bom{}).Error
	})
}

func (r *BomRepository) List(ctx context.Context, f BomFilter) ([]entity.Bom, int64, error) {
	var boms []entity.Bom
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Bom{})
	if f.VisibleTo != "" {
		query = r.visibleBoms(query, f.VisibleTo, f.IncludeApprovals)
	}
	if len(f.Statuses) > 0 {
		query = query.Where("boms.status IN ?", f.Statuses)
	}
	if f.Search != "" {
		like := contains(f.Search)
		query = query.Where("("+ilike("boms.title")+" OR "+ilike("boms.project")+")", like, like)
	}
	if f.Project != "" {
		query = query.Where(ilike("boms.project"), contains(f.Project))
	}
	if f.OwnerID != "" {
		query = query.Where("boms.owner_id = ?", f.OwnerID)
	}
	if f.TemplateID != "" {
		query = query.Where("boms.template_id = ?", f.TemplateID)
	}
	query = f.Created.apply(query, "boms.created_at")
	query = f.Updated.apply(query, "boms.updated_at")

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := f.Page.apply(query.Preload("Owner.Profile").Order("boms.updated_at DESC")).Find(&boms).Error
	return boms, total, err
}

// CanView reports whether userID may see the BOM without elevated roles.
func (r *BomRepository) CanView(ctx context.Context, bomID, userID string, includeApprovals bool) (bool, error) {
	var count int64
	query := r.visibleBoms(r.db.WithContext(ctx).Model(&entity.Bom{}).Where("boms.id = ?", bomID), userID, includeApprovals)
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *BomRepository) CountByOwnerAndStatus(ctx context.Context, ownerID, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Bom{}).
		Where("owner_id = ? AND status = ?", ownerID, status).
		Count(&count).Error
	return count, err
}

// ==================== Items ====================

// BomItemFilter list filter for items across BOMs.
type BomItemFilter struct {
	VisibleTo       string
	BomID           string
	AssigneeID      string
	SignoffStatuses []string
	Search          string
	Page
}

func (r *BomRepository) CreateItem(ctx context.Context, item *entity.BomItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *BomRepository) CreateItems(ctx context.Context, items []entity.BomItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *BomRepository) FindItem(ctx context.Context, id string) (*entity.BomItem, error) {
	var item entity.BomItem
	err := r.db.WithContext(ctx).Preload("SignoffAssignee").Where("id = ?", id).First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (r *BomRepository) UpdateItem(ctx context.Context, item *entity.BomItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(item).Error
}

func (r *BomRepository) DeleteItem(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.BomItem{}).Error
}

// ItemsByBom returns the BOM's items in creation order.
func (r *BomRepository) ItemsByBom(ctx context.Context, bomID string) ([]entity.BomItem, error) {
	var items []entity.BomItem
	err := r.db.WithContext(ctx).Where("bom_id = ?", bomID).Order("created_at ASC, id ASC").Find(&items).Error
	return items, err
}

// ItemsByIDs returns items of bomID among ids, locked for update.
func (r *BomRepository) ItemsByIDs(ctx context.Context, bomID string, ids []string) ([]entity.BomItem, error) {
	var items []entity.BomItem
	if len(ids) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("bom_id = ? AND id IN ?", bomID, ids).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

// SetSignoff assigns items to a reviewer and marks them REQUESTED.
func (r *BomRepository) SetSignoff(ctx context.Context, bomID string, ids []string, assigneeID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.BomItem{}).
		Where("bom_id = ? AND id IN ?", bomID, ids).
		Updates(map[string]interface{}{
			"signoff_assignee_id": assigneeID,
			"signoff_status":      entity.SignoffRequested,
			"signoff_comment":     "",
		})
	return res.RowsAffected, res.Error
}

// CancelRequestedSignoffs flips REQUESTED items of bomID to CANCELED.
func (r *BomRepository) CancelRequestedSignoffs(ctx context.Context, bomID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.BomItem{}).
		Where("bom_id = ? AND signoff_status = ?", bomID, entity.SignoffRequested).
		Update("signoff_status", entity.SignoffCanceled)
	return res.RowsAffected, res.Error
}

func (r *BomRepository) ListItems(ctx context.Context, f BomItemFilter) ([]entity.BomItem, int64, error) {
	var items []entity.BomItem
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.BomItem{})
	if f.VisibleTo != "" {
		owned := r.db.Model(&entity.Bom{}).Select("id").Where("owner_id = ?", f.VisibleTo)
		collab := r.db.Model(&entity.BomCollaborator{}).Select("bom_id").Where("user_id = ?", f.VisibleTo)
		query = query.Where("(bom_id IN (?) OR bom_id IN (?) OR signoff_assignee_id = ?)", owned, collab, f.VisibleTo)
	}
	if f.BomID != "" {
		query = query.Where("bom_id = ?", f.BomID)
	}
	if f.AssigneeID != "" {
		query = query.Where("signoff_assignee_id = ?", f.AssigneeID)
	}
	if len(f.SignoffStatuses) > 0 {
		query = query.Where("signoff_status IN ?", f.SignoffStatuses)
	}
	if f.Search != "" {
		like := contains(f.Search)
		query = query.Where("("+ilike("name")+" OR "+ilike("description")+")", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := f.Page.apply(query.Preload("SignoffAssignee").Order("updated_at DESC, id ASC")).Find(&items).Error
	return items, total, err
}

// OverdueItems returns ordered, not fully received items whose ETA is before day.
func (r *BomRepository) OverdueItems(ctx context.Context, day time.Time) ([]entity.BomItem, error) {
	var items []entity.BomItem
	err := r.db.WithContext(ctx).
		Joins("JOIN boms ON boms.id = bom_items.bom_id").
		Where("bom_items.ordered_at IS NOT NULL").
		Where("bom_items.eta_date IS NOT NULL AND bom_items.eta_date < ?", day).
		Where("bom_items.received_quantity < bom_items.quantity").
		Where("boms.status NOT IN ?", []string{entity.BomStatusCanceled, entity.BomStatusCompleted}).
		Order("bom_items.eta_date ASC").
		Find(&items).Error
	return items, err
}

// ==================== Collaborators ====================

func (r *BomRepository) IsCollaborator(ctx context.Context, bomID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.BomCollaborator{}).
		Where("bom_id = ? AND user_id = ?", bomID, userID).
		Count(&count).Error
	return count > 0, err
}

// AddCollaborator is idempotent; created reports whether a row was inserted.
func (r *BomRepository) AddCollaborator(ctx context.Context, c *entity.BomCollaborator) (created bool, err error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "bom_id"}, {Name: "user_id"}}, DoNothing: true}).
		Create(c)
	return res.RowsAffected > 0, res.Error
}

func (r *BomRepository) RemoveCollaborator(ctx context.Context, bomID, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("bom_id = ? AND user_id = ?", bomID, userID).Delete(&entity.BomCollaborator{})
	return res.RowsAffected, res.Error
}

func (r *BomRepository) ListCollaborators(ctx context.Context, bomID string) ([]entity.BomCollaborator, error) {
	var collaborators []entity.BomCollaborator
	err := r.db.WithContext(ctx).Preload("User.Profile").
		Where("bom_id = ?", bomID).
		Order("created_at ASC").
		Find(&collaborators).Error
	return collaborators, err
}

// ==================== Events ====================

// BomEventFilter list filter for audit events.
type BomEventFilter struct {
	VisibleTo string
	BomID     string
	ActorID   string
	EventType string
	Created   TimeRange
	Ascending bool
	Page
}

func (r *BomRepository) CreateEvent(ctx context.Context, event *entity.BomEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *BomRepository) ListEvents(ctx context.Context, f BomEventFilter) ([]entity.BomEvent, int64, error) {
	var events []entity.BomEvent
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.BomEvent{})
	if f.VisibleTo != "" {
		owned := r.db.Model(&entity.Bom{}).Select("id").Where("owner_id = ?", f.VisibleTo)
		collab := r.db.Model(&entity.BomCollaborator{}).Select("bom_id").Where("user_id = ?", f.VisibleTo)
		query = query.Where("(bom_id IN (?) OR bom_id IN (?))", owned, collab)
	}
	if f.BomID != "" {
		query = query.Where("bom_id = ?", f.BomID)
	}
	if f.ActorID != "" {
		query = query.Where("actor_id = ?", f.ActorID)
	}
	if f.EventType != "" {
		query = query.Where("event_type = ?", f.EventType)
	}
	query = f.Created.apply(query, "created_at")

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	order := "created_at DESC, id DESC"
	if f.Ascending {
		order = "created_at ASC, id ASC"
	}
	err := f.Page.apply(query.Preload("Actor").Order(order)).Find(&events).Error
	return events, total, err
}

// ==================== Templates ====================

func (r *BomRepository) CreateTemplate(ctx context.Context, t *entity.BomTemplate) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *BomRepository) FindTemplate(ctx context.Context, id string) (*entity.BomTemplate, error) {
	var t entity.BomTemplate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *BomRepository) FindGlobalTemplateByName(ctx context.Context, name string) (*entity.BomTemplate, error) {
	var t entity.BomTemplate
	err := r.db.WithContext(ctx).Where("owner_id IS NULL AND name = ?", name).First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *BomRepository) UpdateTemplate(ctx context.Context, t *entity.BomTemplate) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *BomRepository) DeleteTemplate(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.BomTemplate{}).Error
}

// ListTemplates returns global templates plus those owned by ownerID.
func (r *BomRepository) ListTemplates(ctx context.Context, ownerID string, page Page) ([]entity.BomTemplate, int64, error) {
	var templates []entity.BomTemplate
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.BomTemplate{}).
		Where("owner_id IS NULL OR owner_id = ?", ownerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := page.apply(query.Order("name ASC, id ASC")).Find(&templates).Error
	return templates, total, err
}
