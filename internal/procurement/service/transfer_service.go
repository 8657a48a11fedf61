package service

import (
	"context"
	"strings"
	"time"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/shared/roles"
)

// TransferService partner companies and asset transfers.
type TransferService struct {
	repos  *repository.Repositories
	assets *AssetService
}

func NewTransferService(repos *repository.Repositories, assets *AssetService) *TransferService {
	return &TransferService{repos: repos, assets: assets}
}

// ==================== Partners ====================

// PartnerInput nil fields are left unchanged on update.
type PartnerInput struct {
	Name         *string `json:"name"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
	Address      *string `json:"address"`
}

func (s *TransferService) ListPartners(ctx context.Context, search string, page repository.Page) ([]entity.PartnerCompany, int64, error) {
	return s.repos.Transfer.ListPartners(ctx, search, page)
}

func (s *TransferService) GetPartner(ctx context.Context, id string) (*entity.PartnerCompany, error) {
	p, err := s.repos.Transfer.FindPartner(ctx, id)
	if err != nil {
		return nil, lookup(err, "partner company")
	}
	return p, nil
}

func (s *TransferService) applyPartner(ctx context.Context, p *entity.PartnerCompany, in PartnerInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return invalid("name cannot be empty")
		}
		taken, err := s.repos.Transfer.PartnerNameTaken(ctx, name, p.ID)
		if err != nil {
			return err
		}
		if taken {
			return newError(ErrConflict, "partner company %q already exists", name)
		}
		p.Name = name
	}
	if in.ContactEmail != nil {
		p.ContactEmail = strings.TrimSpace(*in.ContactEmail)
	}
	if in.ContactPhone != nil {
		p.ContactPhone = strings.TrimSpace(*in.ContactPhone)
	}
	if in.Address != nil {
		p.Address = *in.Address
	}
	return nil
}

func (s *TransferService) CreatePartner(ctx context.Context, actor Actor, in PartnerInput) (*entity.PartnerCompany, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if in.Name == nil {
		return nil, invalid("name is required")
	}
	p := &entity.PartnerCompany{ID: entity.NewID()}
	if err := s.applyPartner(ctx, p, in); err != nil {
		return nil, err
	}
	if err := s.repos.Transfer.CreatePartner(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *TransferService) UpdatePartner(ctx context.Context, actor Actor, id string, in PartnerInput) (*entity.PartnerCompany, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	p, err := s.GetPartner(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyPartner(ctx, p, in); err != nil {
		return nil, err
	}
	if err := s.repos.Transfer.UpdatePartner(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *TransferService) DeletePartner(ctx context.Context, actor Actor, id string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	if _, err := s.GetPartner(ctx, id); err != nil {
		return err
	}
	inUse, err := s.repos.Transfer.PartnerInUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return newError(ErrConflict, "partner company has transfers and cannot be deleted")
	}
	return s.repos.Transfer.DeletePartner(ctx, id)
}

// ==================== Transfers ====================

func (s *TransferService) List(ctx context.Context, actor Actor, f repository.TransferFilter) ([]entity.Transfer, int64, error) {
	f.VisibleTo = actor.visibleTo()
	return s.repos.Transfer.List(ctx, f)
}

func (s *TransferService) Get(ctx context.Context, actor Actor, id string) (*entity.Transfer, error) {
	t, err := s.repos.Transfer.FindByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "transfer")
	}
	if !actor.SeesAll() && deref(t.CreatedByID) != actor.ID {
		return nil, notFound("transfer")
	}
	return t, nil
}

// TransferInput header fields.
type TransferInput struct {
	PartnerID *string `json:"partner_id"`
	Notes     *string `json:"notes"`
}

func (s *TransferService) Create(ctx context.Context, actor Actor, in TransferInput) (*entity.Transfer, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if in.PartnerID == nil || *in.PartnerID == "" {
		return nil, invalid("partner_id is required")
	}
	partner, err := s.repos.Transfer.FindPartner(ctx, *in.PartnerID)
	if err != nil {
		return nil, lookup(err, "partner company")
	}
	t := &entity.Transfer{
		ID:          entity.NewID(),
		PartnerID:   partner.ID,
		CreatedByID: strPtr(actor.ID),
		Status:      entity.TransferStatusDraft,
	}
	if in.Notes != nil {
		t.Notes = *in.Notes
	}
	if err := s.repos.Transfer.Create(ctx, t); err != nil {
		return nil, err
	}
	t.Partner = partner
	return t, nil
}

// Update edits a DRAFT transfer.
func (s *TransferService) Update(ctx context.Context, actor Actor, id string, in TransferInput) (*entity.Transfer, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if t.Status != entity.TransferStatusDraft {
		return nil, badState("only DRAFT transfers can be edited")
	}
	if in.PartnerID != nil && *in.PartnerID != t.PartnerID {
		partner, err := s.repos.Transfer.FindPartner(ctx, *in.PartnerID)
		if err != nil {
			return nil, lookup(err, "partner company")
		}
		t.PartnerID = partner.ID
		t.Partner = partner
	}
	if in.Notes != nil {
		t.Notes = *in.Notes
	}
	if err := s.repos.Transfer.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes DRAFT or CANCELED transfers.
func (s *TransferService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if t.Status != entity.TransferStatusDraft && t.Status != entity.TransferStatusCanceled {
		return badState("only DRAFT or CANCELED transfers can be deleted")
	}
	return s.repos.Transfer.Delete(ctx, t.ID)
}

// TransferItemInput asset quantity to move.
type TransferItemInput struct {
	AssetID  string  `json:"asset_id"`
	Quantity float64 `json:"quantity"`
	Notes    string  `json:"notes"`
}

func (s *TransferService) AddItem(ctx context.Context, actor Actor, id string, in TransferItemInput) (*entity.TransferItem, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if t.Status != entity.TransferStatusDraft {
		return nil, badState("items can only be added to DRAFT transfers")
	}
	if !finite(in.Quantity) || entity.RoundQuantity(in.Quantity) <= 0 {
		return nil, invalid("quantity must be positive")
	}
	asset, err := s.repos.Asset.FindByID(ctx, in.AssetID)
	if err != nil {
		return nil, lookup(err, "asset")
	}
	if !entity.QuantityReached(asset.AvailableQuantity(), in.Quantity) {
		return nil, invalid("not enough available quantity")
	}
	item := &entity.TransferItem{
		ID:         entity.NewID(),
		TransferID: t.ID,
		AssetID:    asset.ID,
		Quantity:   in.Quantity,
		Notes:      in.Notes,
	}
	if err := s.repos.Transfer.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	item.Asset = asset
	return item, nil
}

func (s *TransferService) Submit(ctx context.Context, actor Actor, id string) (*entity.Transfer, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.move(ctx, actor, id, entity.TransferStatusSubmitted, entity.TransferStatusDraft)
}

func (s *TransferService) Approve(ctx context.Context, actor Actor, id string) (*entity.Transfer, error) {
	if !actor.Has(roles.Approver) {
		return nil, forbidden("approver role required")
	}
	// approvers decide transfers they did not create
	return s.move(ctx, actor, id, entity.TransferStatusApproved, entity.TransferStatusSubmitted)
}

func (s *TransferService) Cancel(ctx context.Context, actor Actor, id string) (*entity.Transfer, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.move(ctx, actor, id, entity.TransferStatusCanceled,
		entity.TransferStatusDraft, entity.TransferStatusSubmitted, entity.TransferStatusApproved)
}

// Complete applies the transferred quantities to the assets. The transfer row
// stays locked from the status check to the final update.
func (s *TransferService) Complete(ctx context.Context, actor Actor, id string) (*entity.Transfer, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		t, err := tx.Transfer.FindForUpdate(ctx, id)
		if err != nil {
			return lookup(err, "transfer")
		}
		if t.Status != entity.TransferStatusApproved {
			return badState("transfer must be APPROVED to complete, not %s", t.Status)
		}
		if len(t.Items) == 0 {
			return invalid("transfer has no items")
		}
		if err := s.assets.ApplyTransferQuantities(ctx, tx, t.Items); err != nil {
			return err
		}
		now := time.Now().UTC()
		t.Status = entity.TransferStatusCompleted
		t.CompletedAt = &now
		t.Items = nil
		return tx.Transfer.Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

func (s *TransferService) move(ctx context.Context, actor Actor, id, to string, from ...string) (*entity.Transfer, error) {
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		t, err := tx.Transfer.FindForUpdate(ctx, id)
		if err != nil {
			return lookup(err, "transfer")
		}
		allowed := false
		for _, st := range from {
			if t.Status == st {
				allowed = true
				break
			}
		}
		if !allowed {
			return badState("transfer cannot move from %s to %s", t.Status, to)
		}
		t.Status = to
		if to == entity.TransferStatusApproved {
			now := time.Now().UTC()
			t.ApprovedByID = strPtr(actor.ID)
			t.ApprovedAt = &now
		}
		t.Items = nil
		return tx.Transfer.Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Transfer.FindByID(ctx, id)
}
