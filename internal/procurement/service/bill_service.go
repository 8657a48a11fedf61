package service

import (
	"context"
	"strings"
	"time"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/shared/roles"
)

// BillService vendor invoices and their payment workflow.
type BillService struct {
	repos *repository.Repositories
}

func NewBillService(repos *repository.Repositories) *BillService {
	return &BillService{repos: repos}
}

// BillInput nil fields are left unchanged on update.
type BillInput struct {
	Title           *string       `json:"title"`
	VendorName      *string       `json:"vendor_name"`
	Amount          *float64      `json:"amount"`
	Currency        *string       `json:"currency"`
	DueDate         *string       `json:"due_date"`
	Notes           *string       `json:"notes"`
	Data            *entity.JSONB `json:"data"`
	BomID           *string       `json:"bom_id"`
	PurchaseOrderID *string       `json:"purchase_order_id"`
}

func (s *BillService) apply(ctx context.Context, b *entity.Bill, in BillInput) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return invalid("title cannot be empty")
		}
		b.Title = title
	}
	if in.VendorName != nil {
		b.VendorName = strings.TrimSpace(*in.VendorName)
	}
	if in.Amount != nil {
		if !finite(*in.Amount) || *in.Amount < 0 {
			return invalid("amount cannot be negative")
		}
		b.Amount = *in.Amount
	}
	if in.Currency != nil {
		b.Currency = *in.Currency
	}
	if in.DueDate != nil {
		due, err := ParseDate(*in.DueDate)
		if err != nil {
			return err
		}
		b.DueDate = due
	}
	if in.Notes != nil {
		b.Notes = *in.Notes
	}
	if in.Data != nil {
		b.Data = *in.Data
	}
	if in.BomID != nil {
		if *in.BomID != "" {
			if _, err := s.repos.Bom.FindByID(ctx, *in.BomID); err != nil {
				return lookup(err, "BOM")
			}
		}
		b.BomID = strPtr(*in.BomID)
	}
	if in.PurchaseOrderID != nil {
		if *in.PurchaseOrderID != "" {
			if _, err := s.repos.PO.FindByID(ctx, *in.PurchaseOrderID); err != nil {
				return lookup(err, "purchase order")
			}
		}
		b.PurchaseOrderID = strPtr(*in.PurchaseOrderID)
	}
	return nil
}

func (s *BillService) List(ctx context.Context, actor Actor, f repository.BillFilter) ([]entity.Bill, int64, error) {
	f.VisibleTo = actor.visibleTo()
	return s.repos.Bill.List(ctx, f)
}

func (s *BillService) canView(ctx context.Context, actor Actor, b *entity.Bill) bool {
	if actor.SeesAll() || deref(b.CreatedByID) == actor.ID {
		return true
	}
	if b.BomID != nil {
		bom, err := s.repos.Bom.FindByID(ctx, *b.BomID)
		if err == nil && bom.OwnerID == actor.ID {
			return true
		}
	}
	if b.PurchaseOrderID != nil {
		po, err := s.repos.PO.FindByID(ctx, *b.PurchaseOrderID)
		if err == nil && deref(po.CreatedByID) == actor.ID {
			return true
		}
	}
	return false
}

func (s *BillService) Get(ctx context.Context, actor Actor, id string) (*entity.Bill, error) {
	b, err := s.repos.Bill.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "bill")
	}
	if !s.canView(ctx, actor, b) {
		return nil, notFound("bill")
	}
	return b, nil
}

func (s *BillService) Create(ctx context.Context, actor Actor, in BillInput) (*entity.Bill, error) {
	if in.Title == nil {
		return nil, invalid("title is required")
	}
	b := &entity.Bill{
		ID:          entity.NewID(),
		Status:      entity.BillStatusDraft,
		CreatedByID: strPtr(actor.ID),
		Data:        entity.JSONB{},
	}
	if err := s.apply(ctx, b, in); err != nil {
		return nil, err
	}
	if err := s.repos.Bill.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// isAuthor creator, procurement and admins manage a bill.
func isAuthor(actor Actor, b *entity.Bill) bool {
	return deref(b.CreatedByID) == actor.ID || actor.Has(roles.Procurement)
}

func (s *BillService) Update(ctx context.Context, actor Actor, id string, in BillInput) (*entity.Bill, error) {
	b, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !isAuthor(actor, b) {
		return nil, forbidden("not allowed to edit this bill")
	}
	if b.Status != entity.BillStatusDraft && b.Status != entity.BillStatusRejected {
		return nil, badState("bill is not editable")
	}
	if err := s.apply(ctx, b, in); err != nil {
		return nil, err
	}
	if err := s.repos.Bill.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes DRAFT or CANCELED bills.
func (s *BillService) Delete(ctx context.Context, actor Actor, id string) error {
	b, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !isAuthor(actor, b) {
		return forbidden("not allowed to delete this bill")
	}
	if b.Status != entity.BillStatusDraft && b.Status != entity.BillStatusCanceled {
		return badState("only DRAFT or CANCELED bills can be deleted")
	}
	return s.repos.Bill.Delete(ctx, b.ID)
}

// ==================== Transitions ====================

func (s *BillService) Submit(ctx context.Context, actor Actor, id string) (*entity.Bill, error) {
	return s.transition(ctx, actor, id, func(b *entity.Bill) error {
		if !isAuthor(actor, b) {
			return forbidden("not allowed to submit this bill")
		}
		if b.Status != entity.BillStatusDraft && b.Status != entity.BillStatusRejected {
			return badState("only DRAFT or REJECTED bills can be submitted")
		}
		b.Status = entity.BillStatusSubmitted
		return nil
	})
}

func (s *BillService) Approve(ctx context.Context, actor Actor, id string) (*entity.Bill, error) {
	return s.transition(ctx, actor, id, func(b *entity.Bill) error {
		if !actor.Has(roles.Approver) {
			return forbidden("approver role required")
		}
		if b.Status != entity.BillStatusSubmitted {
			return badState("only SUBMITTED bills can be approved")
		}
		now := time.Now().UTC()
		b.Status = entity.BillStatusApproved
		b.ApprovedByID = strPtr(actor.ID)
		b.ApprovedAt = &now
		return nil
	})
}

func (s *BillService) Reject(ctx context.Context, actor Actor, id string) (*entity.Bill, error) {
	return s.transition(ctx, actor, id, func(b *entity.Bill) error {
		if !actor.Has(roles.Approver) {
			return forbidden("approver role required")
		}
		if b.Status != entity.BillStatusSubmitted {
			return badState("only SUBMITTED bills can be rejected")
		}
		b.Status = entity.BillStatusRejected
		b.ApprovedByID = nil
		b.ApprovedAt = nil
		return nil
	})
}

func (s *BillService) MarkPaid(ctx context.Context, actor Actor, id string) (*entity.Bill, error) {
	return s.transition(ctx, actor, id, func(b *entity.Bill) error {
		if !actor.Has(roles.Procurement) {
			return forbidden("procurement role required")
		}
		if b.Status != entity.BillStatusApproved {
			return badState("only APPROVED bills can be marked paid")
		}
		now := time.Now().UTC()
		b.Status = entity.BillStatusPaid
		b.PaidAt = &now
		return nil
	})
}

func (s *BillService) Cancel(ctx context.Context, actor Actor, id string) (*entity.Bill, error) {
	return s.transition(ctx, actor, id, func(b *entity.Bill) error {
		if !isAuthor(actor, b) {
			return forbidden("not allowed to cancel this bill")
		}
		if b.Status == entity.BillStatusPaid {
			return badState("a paid bill cannot be canceled")
		}
		b.Status = entity.BillStatusCanceled
		return nil
	})
}

// transition loads a bill the actor may see, lets step mutate it and saves.
// Approvers can act on bills they cannot otherwise see.
func (s *BillService) transition(ctx context.Context, actor Actor, id string, step func(*entity.Bill) error) (*entity.Bill, error) {
	b, err := s.repos.Bill.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "bill")
	}
	if !actor.Has(roles.Approver) && !s.canView(ctx, actor, b) {
		return nil, notFound("bill")
	}
	if err := step(b); err != nil {
		return nil, err
	}
	if err := s.repos.Bill.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}
