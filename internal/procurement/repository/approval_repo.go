package repository

import (
	"context"
	"time"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApprovalRepository procurement approval requests and votes.
type ApprovalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// ApprovalFilter list filter. Empty ApproverID lists everyone's approvals.
type ApprovalFilter struct {
	ApproverID string
	Statuses   []string
	BomID      string
	RequestID  string
	Page
}

// CreateRequest inserts the request together with its approvals.
func (r *ApprovalRepository) CreateRequest(ctx context.Context, req *entity.ProcurementApprovalRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// LatestRequest returns the newest request of the BOM, or nil when none exists.
func (r *ApprovalRepository) LatestRequest(ctx context.Context, bomID string) (*entity.ProcurementApprovalRequest, error) {
	var reqs []entity.ProcurementApprovalRequest
	err := r.db.WithContext(ctx).
		Where("bom_id = ?", bomID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, nil
	}
	return &reqs[0], nil
}

func (r *ApprovalRepository) FindRequest(ctx context.Context, id string) (*entity.ProcurementApprovalRequest, error) {
	var req entity.ProcurementApprovalRequest
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (r *ApprovalRepository) UpdateRequestStatus(ctx context.Context, id, status string, decidedAt *time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.ProcurementApprovalRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "decided_at": decidedAt}).Error
}

func (r *ApprovalRepository) FindApproval(ctx context.Context, id string) (*entity.ProcurementApproval, error) {
	var approval entity.ProcurementApproval
	err := r.db.WithContext(ctx).Preload("Request").Preload("Approver").
		Where("id = ?", id).First(&approval).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &approval, nil
}

func (r *ApprovalRepository) UpdateApproval(ctx context.Context, approval *entity.ProcurementApproval) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(approval).Error
}

func (r *ApprovalRepository) ApprovalsByRequest(ctx context.Context, requestID string) ([]entity.ProcurementApproval, error) {
	var approvals []entity.ProcurementApproval
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).Order("created_at ASC").Find(&approvals).Error
	return approvals, err
}

func (r *ApprovalRepository) ListApprovals(ctx context.Context, f ApprovalFilter) ([]entity.ProcurementApproval, int64, error) {
	var approvals []entity.ProcurementApproval
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ProcurementApproval{})
	if f.ApproverID != "" {
		query = query.Where("approver_id = ?", f.ApproverID)
	}
	if len(f.Statuses) > 0 {
		query = query.Where("status IN ?", f.Statuses)
	}
	if f.RequestID != "" {
		query = query.Where("request_id = ?", f.RequestID)
	}
	if f.BomID != "" {
		query = query.Where("request_id IN (?)",
			r.db.Model(&entity.ProcurementApprovalRequest{}).Select("id").Where("bom_id = ?", f.BomID))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	// pending approvals (NULL decided_at) come first
	err := f.Page.apply(query.Preload("Request").Preload("Approver").
		Order("CASE WHEN decided_at IS NULL THEN 0 ELSE 1 END ASC").
		Order("decided_at DESC").
		Order("created_at DESC, id DESC")).
		Find(&approvals).Error
	return approvals, total, err
}
