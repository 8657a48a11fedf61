package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/shared/roles"
)

// ApprovalService procurement approval votes.
type ApprovalService struct {
	repos         *repository.Repositories
	notifications *NotificationService
}

func NewApprovalService(repos *repository.Repositories, notifications *NotificationService) *ApprovalService {
	return &ApprovalService{repos: repos, notifications: notifications}
}

// List admins see every approval, everyone else their own.
func (s *ApprovalService) List(ctx context.Context, actor Actor, f repository.ApprovalFilter) ([]entity.ProcurementApproval, int64, error) {
	if !actor.IsAdmin() {
		f.ApproverID = actor.ID
	}
	return s.repos.Approval.ListApprovals(ctx, f)
}

// ApprovalDecision vote on a pending approval.
type ApprovalDecision struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// Decide records a vote and settles the request once it is decided.
func (s *ApprovalService) Decide(ctx context.Context, actor Actor, approvalID string, in ApprovalDecision) (*entity.ProcurementApproval, error) {
	status := strings.ToUpper(strings.TrimSpace(in.Status))
	if status != entity.ApprovalApproved && status != entity.ApprovalNeedsChanges {
		return nil, invalid("status must be APPROVED or NEEDS_CHANGES")
	}

	approval, err := s.repos.Approval.FindApproval(ctx, approvalID)
	if err != nil {
		return nil, lookup(err, "approval")
	}
	if approval.ApproverID != actor.ID && !actor.IsAdmin() {
		return nil, forbidden("only the assigned approver can decide this approval")
	}
	if !actor.Has(roles.Approver) {
		return nil, forbidden("approver role required")
	}

	var notices []Notice
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		req, err := tx.Approval.FindRequest(ctx, approval.RequestID)
		if err != nil {
			return lookup(err, "approval request")
		}
		if req.Status != entity.ApprovalRequestPending {
			return badState("approval request is %s", req.Status)
		}

		now := time.Now().UTC()
		approval.Status = status
		approval.Comment = in.Comment
		approval.DecidedAt = &now
		if err := tx.Approval.UpdateApproval(ctx, approval); err != nil {
			return err
		}
		if err := logEvent(ctx, tx, req.BomID, actor, EventBomApprovalDecided, in.Comment, entity.JSONB{
			"approval_id": approval.ID,
			"request_id":  req.ID,
			"status":      status,
		}); err != nil {
			return err
		}

		votes, err := tx.Approval.ApprovalsByRequest(ctx, req.ID)
		if err != nil {
			return err
		}
		bom, err := tx.Bom.FindForUpdate(ctx, req.BomID)
		if err != nil {
			return lookup(err, "BOM")
		}

		switch settle(votes) {
		case entity.ApprovalRequestNeedsChanges:
			if err := tx.Approval.UpdateRequestStatus(ctx, req.ID, entity.ApprovalRequestNeedsChanges, &now); err != nil {
				return err
			}
			if err := setBomStatus(ctx, tx, bom, entity.BomStatusNeedsChanges); err != nil {
				return err
			}
			notices = append(notices, needsChangesNotice(bom, in.Comment))
		case entity.ApprovalRequestApproved:
			if err := tx.Approval.UpdateRequestStatus(ctx, req.ID, entity.ApprovalRequestApproved, &now); err != nil {
				return err
			}
			if err := setBomStatus(ctx, tx, bom, entity.BomStatusApproved); err != nil {
				return err
			}
			approved, err := approvedNotices(ctx, tx, bom)
			if err != nil {
				return err
			}
			notices = append(notices, approved...)
		}

		_, err = recomputeBom(ctx, tx, bom.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifications.Deliver(ctx, notices)
	return approval, nil
}

// settle returns the request outcome implied by its votes, or "" while
// votes are still outstanding.
func settle(votes []entity.ProcurementApproval) string {
	if len(votes) == 0 {
		return ""
	}
	approved := 0
	for _, v := range votes {
		switch v.Status {
		case entity.ApprovalNeedsChanges:
			return entity.ApprovalRequestNeedsChanges
		case entity.ApprovalApproved:
			approved++
		}
	}
	if approved == len(votes) {
		return entity.ApprovalRequestApproved
	}
	return ""
}

// approvedNotices tells the owner and every procurement user that the BOM
// can be ordered.
func approvedNotices(ctx context.Context, tx *repository.Repositories, bom *entity.Bom) ([]Notice, error) {
	notices := []Notice{{
		UserID: bom.OwnerID,
		Level:  entity.NotificationSuccess,
		Title:  "BOM approved",
		Body:   fmt.Sprintf("BOM %q is approved for procurement.", bom.Title),
		Link:   BomLink(bom.ID),
	}}

	staff, err := tx.User.ListActiveWithRole(ctx, roles.Procurement)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{bom.OwnerID: true}
	for i := range staff {
		if seen[staff[i].ID] {
			continue
		}
		seen[staff[i].ID] = true
		notices = append(notices, Notice{
			UserID: staff[i].ID,
			Level:  entity.NotificationInfo,
			Title:  "BOM ready to order",
			Body:   fmt.Sprintf("BOM %q is approved and ready to order.", bom.Title),
			Link:   BomLink(bom.ID),
		})
	}
	return notices, nil
}
