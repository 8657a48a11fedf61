package entity

import "time"

// Transfer statuses
const (
	TransferStatusDraft     = "DRAFT"
	TransferStatusSubmitted = "SUBMITTED"
	TransferStatusApproved  = "APPROVED"
	TransferStatusCompleted = "COMPLETED"
	TransferStatusCanceled  = "CANCELED"
)

// PartnerCompany receiver of transferred assets.
type PartnerCompany struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	Name         string    `json:"name" gorm:"size:200;uniqueIndex;not null"`
	ContactEmail string    `json:"contact_email" gorm:"size:254"`
	ContactPhone string    `json:"contact_phone" gorm:"size:50"`
	Address      string    `json:"address" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (PartnerCompany) TableName() string {
	return "partner_companies"
}

// Transfer movement of asset quantities to a partner.
type Transfer struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	PartnerID    string     `json:"partner_id" gorm:"size:32;not null;index"`
	CreatedByID  *string    `json:"created_by_id" gorm:"size:32;index"`
	Status       string     `json:"status" gorm:"size:20;not null;index"`
	Notes        string     `json:"notes" gorm:"type:text"`
	ApprovedByID *string    `json:"approved_by_id" gorm:"size:32"`
	ApprovedAt   *time.Time `json:"approved_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Partner *PartnerCompany `json:"partner,omitempty" gorm:"foreignKey:PartnerID"`
	Items   []TransferItem  `json:"items,omitempty" gorm:"foreignKey:TransferID"`
}

func (Transfer) TableName() string {
	return "transfers"
}

// TransferItem quantity of one asset in a transfer.
type TransferItem struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	TransferID string    `json:"transfer_id" gorm:"size:32;not null;index"`
	AssetID    string    `json:"asset_id" gorm:"size:32;not null;index"`
	Quantity   float64   `json:"quantity" gorm:"type:decimal(12,3);not null"`
	Notes      string    `json:"notes" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`

	Asset *Asset `json:"asset,omitempty" gorm:"foreignKey:AssetID"`
}

func (TransferItem) TableName() string {
	return "transfer_items"
}
