package repository

import (
	"context"

	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransferRepository partner companies and asset transfers.
type TransferRepository struct {
	db *gorm.DB
}

func NewTransferRepository(db *gorm.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// TransferFilter list filter. VisibleTo limits to the user's own transfers.
type TransferFilter struct {
	VisibleTo string
	Statuses  []string
	PartnerID string
	Page
}

// ==================== Partners ====================

func (r *TransferRepository) CreatePartner(ctx context.Context, p *entity.PartnerCompany) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *TransferRepository) FindPartner(ctx context.Context, id string) (*entity.PartnerCompany, error) {
	var p entity.PartnerCompany
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *TransferRepository) PartnerNameTaken(ctx context.Context, name, exceptID string) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&entity.PartnerCompany{}).Where("LOWER(name) = LOWER(?)", name)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *TransferRepository) UpdatePartner(ctx context.Context, p *entity.PartnerCompany) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *TransferRepository) DeletePartner(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.PartnerCompany{}).Error
}

func (r *TransferRepository) PartnerInUse(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Transfer{}).Where("partner_id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *TransferRepository) ListPartners(ctx context.Context, search string, page Page) ([]entity.PartnerCompany, int64, error) {
	var partners []entity.PartnerCompany
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PartnerCompany{})
	if search != "" {
		query = query.Where(ilike("name"), contains(search))
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := page.apply(query.Order("name ASC")).Find(&partners).Error
	return partners, total, err
}

// ==================== Transfers ====================

func (r *TransferRepository) Create(ctx context.Context, t *entity.Transfer) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(t).Error
}

func (r *TransferRepository) FindByID(ctx context.Context, id string) (*entity.Transfer, error) {
	var t entity.Transfer
	err := r.db.WithContext(ctx).
		Preload("Partner").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Items.Asset").
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// FindForUpdate locks the transfer row and loads its items without assets.
func (r *TransferRepository) FindForUpdate(ctx context.Context, id string) (*entity.Transfer, error) {
	var t entity.Transfer
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&t).Error
	if err != nil {
		return nil, notFound(err)
	}
	err = r.db.WithContext(ctx).Where("transfer_id = ?", t.ID).
		Order("created_at ASC, id ASC").Find(&t.Items).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransferRepository) Update(ctx context.Context, t *entity.Transfer) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(t).Error
}

func (r *TransferRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transfer_id = ?", id).Delete(&entity.TransferItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.Transfer{}).Error
	})
}

func (r *TransferRepository) List(ctx context.Context, f TransferFilter) ([]entity.Transfer, int64, error) {
	var transfers []entity.Transfer
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Transfer{})
	if f.VisibleTo != "" {
		query = query.Where("created_by_id = ?", f.VisibleTo)
	}
	if len(f.Statuses) > 0 {
		query = query.Where("status IN ?", f.Statuses)
	}
	if f.PartnerID != "" {
		query = query.Where("partner_id = ?", f.PartnerID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := f.Page.apply(query.Preload("Partner").Order("updated_at DESC, id DESC")).Find(&transfers).Error
	return transfers, total, err
}

func (r *TransferRepository) CreateItem(ctx context.Context, item *entity.TransferItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}
